package mongostore

import (
	"context"
	"errors"
	"fmt"

	"civicbridge-be/models"
	"civicbridge-be/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type issueRepo struct {
	coll *mongo.Collection
}

func (r *issueRepo) Create(ctx context.Context, issue *models.Issue) error {
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, issue); err != nil {
		return fmt.Errorf("failed to insert issue: %w", err)
	}
	id, version := issue.ID, issue.Version
	store.OnRollback(ctx, func(ctx context.Context) error {
		_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "version": version})
		return err
	})
	return nil
}

func (r *issueRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve issue: %w", err)
	}
	if issue.Upvotes == nil {
		issue.Upvotes = []primitive.ObjectID{}
	}
	return &issue, nil
}

// Update replaces the document only while its version is unchanged, so status,
// upvote set and count always move together.
func (r *issueRepo) Update(ctx context.Context, issue *models.Issue) error {
	expected := issue.Version
	issue.Version++

	var prev models.Issue
	err := r.coll.FindOneAndReplace(ctx,
		bson.M{"_id": issue.ID, "version": expected},
		issue,
		options.FindOneAndReplace().SetReturnDocument(options.Before),
	).Decode(&prev)
	if err == nil {
		id, version := issue.ID, issue.Version
		store.OnRollback(ctx, func(ctx context.Context) error {
			_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": id, "version": version}, &prev)
			return err
		})
		return nil
	}

	issue.Version = expected
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("failed to update issue: %w", err)
	}
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": issue.ID})
	if err != nil {
		return fmt.Errorf("failed to check issue: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func (r *issueRepo) List(ctx context.Context, filter store.IssueFilter) ([]models.Issue, error) {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if !filter.CreatedBy.IsZero() {
		query["createdBy"] = filter.CreatedBy
	}
	if filter.HasLocation {
		query["location"] = bson.M{"$exists": true, "$ne": nil}
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		findOptions.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.coll.Find(ctx, query, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve issues: %w", err)
	}
	defer cursor.Close(ctx)

	issues := make([]models.Issue, 0)
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, fmt.Errorf("failed to decode issues: %w", err)
	}
	return issues, nil
}

type timelineRepo struct {
	coll *mongo.Collection
}

func (r *timelineRepo) Create(ctx context.Context, entry *models.TimelineEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to insert timeline entry: %w", err)
	}
	id := entry.ID
	store.OnRollback(ctx, func(ctx context.Context) error {
		_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
	return nil
}

func (r *timelineRepo) ListByIssue(ctx context.Context, issueID primitive.ObjectID) ([]models.TimelineEntry, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"issueId": issueID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve timeline: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]models.TimelineEntry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode timeline: %w", err)
	}
	return entries, nil
}

type userRepo struct {
	coll *mongo.Collection
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.coll.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return &user, nil
}

func (r *userRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	projection := options.Find().SetProjection(bson.M{"name": 1, "role": 1, "email": 1})
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, projection)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

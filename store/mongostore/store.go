// Package mongostore persists issues, timeline entries and users in MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civicbridge-be/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	issuesCollection   = "issues"
	timelineCollection = "issuetimelines"
	usersCollection    = "users"
)

// Store is backed by one MongoDB database. When transactions are enabled WithTx
// runs inside a session transaction, which needs a replica set or sharded cluster.
type Store struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
	logger       *zap.Logger
}

func New(client *mongo.Client, database string, transactions bool, logger *zap.Logger) *Store {
	return &Store{
		client:       client,
		db:           client.Database(database),
		transactions: transactions,
		logger:       logger,
	}
}

func (s *Store) Issues() store.IssueRepository {
	return &issueRepo{coll: s.db.Collection(issuesCollection)}
}

func (s *Store) Timeline() store.TimelineRepository {
	return &timelineRepo{coll: s.db.Collection(timelineCollection)}
}

func (s *Store) Users() store.UserRepository {
	return &userRepo{coll: s.db.Collection(usersCollection)}
}

// WithTx runs fn in a session transaction. Without transaction support every
// write inside fn registers its inverse and a failed fn is compensated.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	if !s.transactions {
		err := store.Compensate(ctx, fn)
		var undoErr *store.UndoError
		if errors.As(err, &undoErr) {
			s.logger.Error("Failed to undo partial write", zap.Error(err))
		}
		return err
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// Migrate creates the indexes the repositories rely on.
func (s *Store) Migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		issuesCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		},
		timelineCollection: {
			{Keys: bson.D{{Key: "issueId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
		s.logger.Info("Ensured MongoDB indexes", zap.String("collection", name), zap.Int("count", len(models)))
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

var _ store.Store = (*Store)(nil)

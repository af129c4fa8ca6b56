package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"civicbridge-be/models"
	"civicbridge-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const issueColumns = `id, title, description, category, longitude, latitude, address, image_url,
	status, created_by, upvote_count, version, created_at, updated_at`

type issueRepo struct {
	s *Store
}

func (r *issueRepo) Create(ctx context.Context, issue *models.Issue) error {
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	return r.s.WithTx(ctx, func(ctx context.Context) error {
		var lng, lat sql.NullFloat64
		if issue.Location != nil {
			lng = sql.NullFloat64{Float64: issue.Location.Longitude(), Valid: true}
			lat = sql.NullFloat64{Float64: issue.Location.Latitude(), Valid: true}
		}
		query := r.s.rebind(`INSERT INTO issues (` + issueColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		_, err := r.s.exec(ctx).ExecContext(ctx, query,
			issue.ID.Hex(), issue.Title, issue.Description, string(issue.Category),
			lng, lat, nullString(issue.Address), nullString(issue.ImageURL),
			string(issue.Status), issue.CreatedBy.Hex(), issue.UpvoteCount, issue.Version,
			issue.CreatedAt, issue.UpdatedAt,
		)
		if err != nil {
			r.s.logger.Error("Failed to insert issue", zap.Error(err))
			return fmt.Errorf("failed to insert issue: %w", err)
		}
		return r.replaceUpvotes(ctx, issue)
	})
}

func (r *issueRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	row := r.s.exec(ctx).QueryRowContext(ctx,
		r.s.rebind(`SELECT `+issueColumns+` FROM issues WHERE id = ?`), id.Hex())
	issue, err := scanIssue(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve issue: %w", err)
	}

	votes, err := r.upvotesFor(ctx, []string{id.Hex()})
	if err != nil {
		return nil, err
	}
	issue.Upvotes = votes[issue.ID]
	if issue.Upvotes == nil {
		issue.Upvotes = []primitive.ObjectID{}
	}
	return issue, nil
}

// Update writes the row and the upvote set together, guarded by the version column.
func (r *issueRepo) Update(ctx context.Context, issue *models.Issue) error {
	expected := issue.Version
	err := r.s.WithTx(ctx, func(ctx context.Context) error {
		var lng, lat sql.NullFloat64
		if issue.Location != nil {
			lng = sql.NullFloat64{Float64: issue.Location.Longitude(), Valid: true}
			lat = sql.NullFloat64{Float64: issue.Location.Latitude(), Valid: true}
		}
		query := r.s.rebind(`UPDATE issues SET title = ?, description = ?, category = ?,
			longitude = ?, latitude = ?, address = ?, image_url = ?, status = ?,
			upvote_count = ?, version = ?, updated_at = ?
			WHERE id = ? AND version = ?`)
		res, err := r.s.exec(ctx).ExecContext(ctx, query,
			issue.Title, issue.Description, string(issue.Category),
			lng, lat, nullString(issue.Address), nullString(issue.ImageURL), string(issue.Status),
			issue.UpvoteCount, expected+1, issue.UpdatedAt,
			issue.ID.Hex(), expected,
		)
		if err != nil {
			return fmt.Errorf("failed to update issue: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update issue: %w", err)
		}
		if n == 0 {
			var exists int
			err := r.s.exec(ctx).QueryRowContext(ctx,
				r.s.rebind(`SELECT COUNT(*) FROM issues WHERE id = ?`), issue.ID.Hex()).Scan(&exists)
			if err != nil {
				return fmt.Errorf("failed to check issue: %w", err)
			}
			if exists == 0 {
				return store.ErrNotFound
			}
			return store.ErrConflict
		}
		return r.replaceUpvotes(ctx, issue)
	})
	if err != nil {
		return err
	}
	issue.Version = expected + 1
	return nil
}

func (r *issueRepo) List(ctx context.Context, filter store.IssueFilter) ([]models.Issue, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if !filter.CreatedBy.IsZero() {
		where = append(where, "created_by = ?")
		args = append(args, filter.CreatedBy.Hex())
	}
	if filter.HasLocation {
		where = append(where, "longitude IS NOT NULL AND latitude IS NOT NULL")
	}

	query := `SELECT ` + issueColumns + ` FROM issues`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.s.exec(ctx).QueryContext(ctx, r.s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve issues: %w", err)
	}
	defer rows.Close()

	issues := make([]models.Issue, 0)
	ids := make([]string, 0)
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, *issue)
		ids = append(ids, issue.ID.Hex())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate issues: %w", err)
	}

	votes, err := r.upvotesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range issues {
		issues[i].Upvotes = votes[issues[i].ID]
		if issues[i].Upvotes == nil {
			issues[i].Upvotes = []primitive.ObjectID{}
		}
	}
	return issues, nil
}

// replaceUpvotes rewrites the upvote rows. The (issue_id, user_id) key rejects
// a second vote by the same user even if the caller skipped the check.
func (r *issueRepo) replaceUpvotes(ctx context.Context, issue *models.Issue) error {
	ex := r.s.exec(ctx)
	if _, err := ex.ExecContext(ctx, r.s.rebind(`DELETE FROM issue_upvotes WHERE issue_id = ?`), issue.ID.Hex()); err != nil {
		return fmt.Errorf("failed to clear upvotes: %w", err)
	}
	insert := r.s.rebind(`INSERT INTO issue_upvotes (issue_id, user_id, position) VALUES (?, ?, ?)`)
	for pos, userID := range issue.Upvotes {
		if _, err := ex.ExecContext(ctx, insert, issue.ID.Hex(), userID.Hex(), pos); err != nil {
			if isUniqueViolation(err) {
				return store.ErrDuplicate
			}
			return fmt.Errorf("failed to insert upvote: %w", err)
		}
	}
	return nil
}

func (r *issueRepo) upvotesFor(ctx context.Context, issueIDs []string) (map[primitive.ObjectID][]primitive.ObjectID, error) {
	out := make(map[primitive.ObjectID][]primitive.ObjectID, len(issueIDs))
	if len(issueIDs) == 0 {
		return out, nil
	}

	args := make([]interface{}, len(issueIDs))
	for i, id := range issueIDs {
		args[i] = id
	}
	query := `SELECT issue_id, user_id FROM issue_upvotes WHERE issue_id IN (` +
		placeholders(len(issueIDs)) + `) ORDER BY issue_id, position`

	rows, err := r.s.exec(ctx).QueryContext(ctx, r.s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve upvotes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var issueHex, userHex string
		if err := rows.Scan(&issueHex, &userHex); err != nil {
			return nil, fmt.Errorf("failed to scan upvote: %w", err)
		}
		issueID, err := primitive.ObjectIDFromHex(issueHex)
		if err != nil {
			return nil, fmt.Errorf("corrupt issue id %q: %w", issueHex, err)
		}
		userID, err := primitive.ObjectIDFromHex(userHex)
		if err != nil {
			return nil, fmt.Errorf("corrupt user id %q: %w", userHex, err)
		}
		out[issueID] = append(out[issueID], userID)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIssue(row rowScanner) (*models.Issue, error) {
	var (
		issue             models.Issue
		idHex, creatorHex string
		category, status  string
		lng, lat          sql.NullFloat64
		address, imageURL sql.NullString
	)
	err := row.Scan(&idHex, &issue.Title, &issue.Description, &category, &lng, &lat,
		&address, &imageURL, &status, &creatorHex, &issue.UpvoteCount, &issue.Version,
		&issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if issue.ID, err = primitive.ObjectIDFromHex(idHex); err != nil {
		return nil, fmt.Errorf("corrupt issue id %q: %w", idHex, err)
	}
	if issue.CreatedBy, err = primitive.ObjectIDFromHex(creatorHex); err != nil {
		return nil, fmt.Errorf("corrupt creator id %q: %w", creatorHex, err)
	}
	issue.Category = models.IssueCategory(category)
	issue.Status = models.IssueStatus(status)
	if lng.Valid && lat.Valid {
		issue.Location = models.NewGeoPoint(lng.Float64, lat.Float64)
	}
	if address.Valid {
		issue.Address = &address.String
	}
	if imageURL.Valid {
		issue.ImageURL = &imageURL.String
	}
	issue.CreatedAt = issue.CreatedAt.UTC()
	issue.UpdatedAt = issue.UpdatedAt.UTC()
	return &issue, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

package sqlstore

import (
	"context"
	"fmt"

	"civicbridge-be/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type timelineRepo struct {
	s *Store
}

func (r *timelineRepo) Create(ctx context.Context, entry *models.TimelineEntry) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	query := r.s.rebind(`INSERT INTO issue_timelines (id, issue_id, status, updated_by, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	_, err := r.s.exec(ctx).ExecContext(ctx, query,
		entry.ID.Hex(), entry.IssueID.Hex(), string(entry.Status), string(entry.UpdatedBy), entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert timeline entry: %w", err)
	}
	return nil
}

func (r *timelineRepo) ListByIssue(ctx context.Context, issueID primitive.ObjectID) ([]models.TimelineEntry, error) {
	query := r.s.rebind(`SELECT id, status, updated_by, created_at FROM issue_timelines
		WHERE issue_id = ? ORDER BY created_at ASC, id ASC`)
	rows, err := r.s.exec(ctx).QueryContext(ctx, query, issueID.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve timeline: %w", err)
	}
	defer rows.Close()

	entries := make([]models.TimelineEntry, 0)
	for rows.Next() {
		var (
			entry             models.TimelineEntry
			idHex             string
			status, updatedBy string
		)
		if err := rows.Scan(&idHex, &status, &updatedBy, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan timeline entry: %w", err)
		}
		if entry.ID, err = primitive.ObjectIDFromHex(idHex); err != nil {
			return nil, fmt.Errorf("corrupt timeline id %q: %w", idHex, err)
		}
		entry.IssueID = issueID
		entry.Status = models.IssueStatus(status)
		entry.UpdatedBy = models.ActorKind(updatedBy)
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

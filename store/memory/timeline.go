package memory

import (
	"context"

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
	stored := *entry

	return r.s.apply(ctx, func(s *Store) (func(), error) {
		n := len(s.timeline[stored.IssueID])
		s.timeline[stored.IssueID] = append(s.timeline[stored.IssueID], stored)
		return func() { s.timeline[stored.IssueID] = s.timeline[stored.IssueID][:n] }, nil
	})
}

// ListByIssue returns entries in append order, which is chronological because
// appends for one issue are serialized by the workflow engine.
func (r *timelineRepo) ListByIssue(ctx context.Context, issueID primitive.ObjectID) ([]models.TimelineEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	entries := r.s.timeline[issueID]
	out := make([]models.TimelineEntry, len(entries))
	copy(out, entries)
	return out, nil
}

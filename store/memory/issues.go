package memory

import (
	"bytes"
	"context"
	"errors"
	"sort"

	"civicbridge-be/models"
	"civicbridge-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type issueRepo struct {
	s *Store
}

func (r *issueRepo) Create(ctx context.Context, issue *models.Issue) error {
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	stored := issue.Clone()

	if tx := txFrom(ctx); tx != nil {
		tx.issues[stored.ID] = stored
	}
	return r.s.apply(ctx, func(s *Store) (func(), error) {
		if _, exists := s.issues[stored.ID]; exists {
			return nil, errors.New("issue already exists")
		}
		s.issues[stored.ID] = stored
		return func() { delete(s.issues, stored.ID) }, nil
	})
}

func (r *issueRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	if tx := txFrom(ctx); tx != nil {
		if pending, ok := tx.issues[id]; ok {
			out := pending.Clone()
			return &out, nil
		}
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	issue, ok := r.s.issues[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := issue.Clone()
	return &out, nil
}

func (r *issueRepo) Update(ctx context.Context, issue *models.Issue) error {
	expected := issue.Version
	issue.Version++
	stored := issue.Clone()

	if tx := txFrom(ctx); tx != nil {
		tx.issues[stored.ID] = stored
	}
	return r.s.apply(ctx, func(s *Store) (func(), error) {
		prev, ok := s.issues[stored.ID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if prev.Version != expected {
			return nil, store.ErrConflict
		}
		s.issues[stored.ID] = stored
		return func() { s.issues[stored.ID] = prev }, nil
	})
}

func (r *issueRepo) List(ctx context.Context, filter store.IssueFilter) ([]models.Issue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]models.Issue, 0)
	for _, issue := range r.s.issues {
		if !filter.Matches(&issue) {
			continue
		}
		out = append(out, issue.Clone())
	}

	// Newest first; ObjectIDs break ties between issues created in the same instant.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

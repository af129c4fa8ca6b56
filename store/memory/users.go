package memory

import (
	"context"
	"strings"

	"civicbridge-be/models"
	"civicbridge-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userRepo struct {
	s *Store
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	stored := *user
	email := strings.ToLower(stored.Email)

	return r.s.apply(ctx, func(s *Store) (func(), error) {
		if _, taken := s.emails[email]; taken {
			return nil, store.ErrDuplicate
		}
		s.users[stored.ID] = stored
		s.emails[email] = stored.ID
		return func() {
			delete(s.users, stored.ID)
			delete(s.emails, email)
		}, nil
	})
}

func (r *userRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	u := r.s.users[id]
	return &u, nil
}

func (r *userRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[primitive.ObjectID]models.User, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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
	query := r.s.rebind(`INSERT INTO users (id, name, email, password, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.s.exec(ctx).ExecContext(ctx, query,
		user.ID.Hex(), user.Name, user.Email, user.Password, string(user.Role), user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, `id = ?`, id.Hex())
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, `email = ?`, email)
}

func (r *userRepo) findOne(ctx context.Context, cond string, arg interface{}) (*models.User, error) {
	query := r.s.rebind(`SELECT id, name, email, password, role, created_at, updated_at FROM users WHERE ` + cond)
	user, err := scanUser(r.s.exec(ctx).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}

func (r *userRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id.Hex()
	}
	query := r.s.rebind(`SELECT id, name, email, password, role, created_at, updated_at FROM users
		WHERE id IN (` + placeholders(len(ids)) + `)`)
	rows, err := r.s.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.Password = ""
		out[user.ID] = *user
	}
	return out, rows.Err()
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user        models.User
		idHex, role string
	)
	if err := row.Scan(&idHex, &user.Name, &user.Email, &user.Password, &role, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return nil, fmt.Errorf("corrupt user id %q: %w", idHex, err)
	}
	user.ID = id
	user.Role = models.Role(role)
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}

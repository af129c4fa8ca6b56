package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"civicbridge-be/models"
	"civicbridge-be/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("Invalid credentials")

type RegisterInput struct {
	Name     string      `validate:"required,max=50"`
	Email    string      `validate:"required,email"`
	Password string      `validate:"required,min=6"`
	Role     models.Role `validate:"user_role"`
}

// UserService manages resident and official accounts.
type UserService struct {
	users  store.UserRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewUserService(users store.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{users: users, logger: logger, now: now}
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Role == "" {
		in.Role = models.RoleResident
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}

	ts := s.now()
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      in.Name,
		Email:     in.Email,
		Password:  in.Password,
		Role:      in.Role,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := user.HashPassword(); err != nil {
		s.logger.Error("Error hashing password", zap.Error(err))
		return nil, &StoreError{Op: "hash password", Err: err}
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, &ValidationError{Msg: "User with this email already exists"}
		}
		s.logger.Error("Error inserting user", zap.Error(err))
		return nil, &StoreError{Op: "create user", Err: err}
	}
	return user, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("Error loading user", zap.Error(err))
		return nil, &StoreError{Op: "load user", Err: err}
	}
	if !user.ComparePassword(password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &NotFoundError{Resource: "User"}
		}
		return nil, &StoreError{Op: "load user", Err: err}
	}
	return user, nil
}

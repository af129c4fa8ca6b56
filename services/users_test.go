package services

import (
	"context"
	"errors"
	"testing"

	"civicbridge-be/models"
	"civicbridge-be/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestUserService_RegisterAndLogin(t *testing.T) {
	svc := NewUserService(memory.New().Users(), zap.NewNop())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Ravi", Email: " Ravi@Example.com ", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleResident, user.Role, "role defaults to resident")
	assert.Equal(t, "ravi@example.com", user.Email)
	assert.NotEqual(t, "secret123", user.Password)

	got, err := svc.Login(ctx, "RAVI@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Login(ctx, "ravi@example.com", "wrong")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
	_, err = svc.Login(ctx, "nobody@example.com", "secret123")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))

	_, err = svc.Register(ctx, RegisterInput{Name: "Other", Email: "ravi@example.com", Password: "secret123"})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "User with this email already exists", validation.Msg)
}

func TestUserService_Register_Validation(t *testing.T) {
	svc := NewUserService(memory.New().Users(), zap.NewNop())

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing name", RegisterInput{Email: "a@b.co", Password: "secret123"}},
		{"bad email", RegisterInput{Name: "A", Email: "nope", Password: "secret123"}},
		{"short password", RegisterInput{Name: "A", Email: "a@b.co", Password: "123"}},
		{"unknown role", RegisterInput{Name: "A", Email: "a@b.co", Password: "secret123", Role: "MAYOR"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.in)
			var validation *ValidationError
			assert.ErrorAs(t, err, &validation)
		})
	}
}

func TestUserService_Get(t *testing.T) {
	svc := NewUserService(memory.New().Users(), zap.NewNop())
	ctx := context.Background()

	official, err := svc.Register(ctx, RegisterInput{Name: "Ward Officer", Email: "ward@city.gov", Password: "secret123", Role: models.RoleOfficial})
	require.NoError(t, err)

	got, err := svc.Get(ctx, official.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleOfficial, got.Role)
	assert.True(t, got.Actor().IsOfficial())

	_, err = svc.Get(ctx, primitive.NewObjectID())
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

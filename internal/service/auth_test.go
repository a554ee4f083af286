package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldforce/api/internal/model"
)

func TestCreateUserAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, &model.CreateUserRequest{
		Username: "sam",
		Password: "correct-horse",
		Email:    "sam@example.com",
		Role:     model.RoleSalesman,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "correct-horse", user.Password, "password must be stored hashed")

	got, err := svc.Authenticate(ctx, "sam", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, model.RoleSalesman, got.Role)

	_, err = svc.Authenticate(ctx, "sam", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(ctx, "nobody", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateInactiveUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, &model.CreateUserRequest{
		Username: "gone",
		Password: "some-password",
		Email:    "gone@example.com",
		Role:     model.RoleSalesman,
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(user).Update("status", 0).Error)

	_, err = svc.Authenticate(ctx, "gone", "some-password")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuthService(db)

	_, err := svc.CreateUser(context.Background(), &model.CreateUserRequest{
		Username: "odd",
		Password: "some-password",
		Email:    "odd@example.com",
		Role:     "manager",
	})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

package service

import (
	"context"
	"errors"
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"fieldforce/api/internal/model"
)

var (
	// ErrInvalidCredentials covers unknown users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserInactive means the account exists but has been disabled.
	ErrUserInactive = errors.New("user is inactive")
	// ErrInvalidRole means the requested role is not a dashboard role.
	ErrInvalidRole = errors.New("role must be admin or salesman")
)

// AuthService handles authentication business logic
type AuthService struct {
	db *gorm.DB
}

// NewAuthService creates a new auth service
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// Authenticate validates user credentials
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.Status != 1 {
		return nil, ErrUserInactive
	}

	return &user, nil
}

// GetUser fetches a user by id
func (s *AuthService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns all accounts, newest first
func (s *AuthService) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error
	return users, err
}

// CreateUser provisions a new account with a hashed password
func (s *AuthService) CreateUser(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	if req.Role != model.RoleAdmin && req.Role != model.RoleSalesman {
		return nil, ErrInvalidRole
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username: req.Username,
		Password: string(hashedPassword),
		Email:    req.Email,
		Phone:    req.Phone,
		Role:     req.Role,
		Status:   1,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// RecordLogin appends a login/logout audit entry. Failures are logged only;
// auditing never blocks the sign-in flow.
func (s *AuthService) RecordLogin(ctx context.Context, entry *model.LoginLog) {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		log.Printf("[Auth] Failed to record login log: %v", err)
	}
}

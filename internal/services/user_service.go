package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/vikasavnish/stockwatch/internal/models"
)

// UserService defines the interface for user-related operations
type UserService interface {
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
	CreateUser(ctx context.Context, user models.User) (models.User, error)
}

// userService implements the UserService interface
type userService struct {
	db *gorm.DB
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB) UserService {
	return &userService{
		db: db,
	}
}

// GetUserByEmail returns a user by email
func (s *userService) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	result := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user)
	return user, result.Error
}

// GetUserByID returns a user by ID
func (s *userService) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&user)
	return user, result.Error
}

// CreateUser creates a new user
func (s *userService) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	result := s.db.WithContext(ctx).Create(&user)
	return user, result.Error
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/vikasavnish/stockwatch/internal/models"
)

const EventUserCreated = "app/user.created"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidSignUp      = errors.New("email, password and name are required")
)

// AuthService defines the interface for authentication operations
type AuthService interface {
	SignUp(ctx context.Context, req models.SignUpRequest) (models.User, error)
	Authenticate(ctx context.Context, email, password string) (models.User, error)
}

// authService implements the AuthService interface
type authService struct {
	users  UserService
	events EventPublisher
	logger *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(users UserService, events EventPublisher, logger *slog.Logger) AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		users:  users,
		events: events,
		logger: logger,
	}
}

// SignUp creates an account and announces it with a user-created event.
// Event publication failures are logged, not returned.
func (s *authService) SignUp(ctx context.Context, req models.SignUpRequest) (models.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.FullName)
	if email == "" || req.Password == "" || name == "" {
		return models.User{}, ErrInvalidSignUp
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return models.User{}, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, models.User{
		Email:             email,
		Name:              name,
		HashedPassword:    string(hashedPassword),
		Country:           req.Country,
		InvestmentGoals:   req.InvestmentGoals,
		RiskTolerance:     req.RiskTolerance,
		PreferredIndustry: req.PreferredIndustry,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	if s.events != nil {
		err := s.events.Publish(ctx, EventUserCreated, map[string]string{
			"email":             user.Email,
			"name":              user.Name,
			"country":           req.Country,
			"investmentGoals":   req.InvestmentGoals,
			"riskTolerance":     req.RiskTolerance,
			"preferredIndustry": req.PreferredIndustry,
		})
		if err != nil {
			s.logger.Warn("publish user created event", "user_id", user.ID, "error", err)
		}
	}

	return user, nil
}

// Authenticate verifies user credentials and returns the user if valid
func (s *authService) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}

	// Check password
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	return user, nil
}

package models

import (
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an account that owns a watchlist. ID is an opaque string and is the
// only field the watchlist code joins on.
type User struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	Email             string    `gorm:"uniqueIndex;size:320" json:"email"`
	Name              string    `json:"name"`
	HashedPassword    string    `json:"-" gorm:"column:hashed_password"`
	Country           string    `json:"country,omitempty"`
	InvestmentGoals   string    `json:"investmentGoals,omitempty" gorm:"column:investment_goals"`
	RiskTolerance     string    `json:"riskTolerance,omitempty" gorm:"column:risk_tolerance"`
	PreferredIndustry string    `json:"preferredIndustry,omitempty" gorm:"column:preferred_industry"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns an ID and normalizes the email
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return nil
}

// Claims for JWT authentication
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	jwt.StandardClaims
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUpRequest carries the sign-up form. Everything past Password is
// profile data forwarded with the user-created event.
type SignUpRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	FullName          string `json:"fullName"`
	Country           string `json:"country"`
	InvestmentGoals   string `json:"investmentGoals"`
	RiskTolerance     string `json:"riskTolerance"`
	PreferredIndustry string `json:"preferredIndustry"`
}

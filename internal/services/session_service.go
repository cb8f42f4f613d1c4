package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/vikasavnish/stockwatch/internal/models"
)

// SessionCookie carries the session token for browser clients
const SessionCookie = "session_token"

// Session is the authenticated caller. User.ID is the watchlist join key.
type Session struct {
	User   SessionUser
	Claims *models.Claims
}

type SessionUser struct {
	ID    string
	Email string
	Name  string
}

// SessionService issues, resolves and revokes signed session tokens.
// Revocation needs redis; with a nil client revoked tokens stay valid until
// they expire.
type SessionService struct {
	secretKey []byte
	ttl       time.Duration
	redis     *redis.Client
	logger    *slog.Logger
}

// NewSessionService creates a session service
func NewSessionService(secretKey []byte, ttl time.Duration, redisClient *redis.Client, logger *slog.Logger) *SessionService {
	if ttl <= 0 {
		ttl = 60 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		secretKey: secretKey,
		ttl:       ttl,
		redis:     redisClient,
		logger:    logger,
	}
}

// Issue creates a new signed token for the user
func (s *SessionService) Issue(user models.User) (string, *models.Claims, error) {
	now := time.Now()
	claims := &models.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.ttl).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, claims, nil
}

// GetSession resolves the caller from the Authorization header or the session
// cookie. It returns nil when there is no valid, unrevoked token.
func (s *SessionService) GetSession(r *http.Request) *Session {
	tokenString := bearerToken(r)
	if tokenString == "" {
		return nil
	}

	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid || claims.UserID == "" {
		return nil
	}

	revoked, err := s.isRevoked(r.Context(), claims.Id)
	if err != nil {
		s.logger.Warn("session revocation check failed", "error", err)
		return nil
	}
	if revoked {
		return nil
	}

	return &Session{
		User: SessionUser{
			ID:    claims.UserID,
			Email: claims.Email,
			Name:  claims.Name,
		},
		Claims: claims,
	}
}

// Revoke invalidates the token identified by claims until it expires
func (s *SessionService) Revoke(ctx context.Context, claims *models.Claims) error {
	if s.redis == nil || claims == nil || claims.Id == "" {
		return nil
	}
	ttl := time.Until(time.Unix(claims.ExpiresAt, 0))
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, revokedKey(claims.Id), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// TTL returns how long issued tokens stay valid
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

func (s *SessionService) isRevoked(ctx context.Context, id string) (bool, error) {
	if s.redis == nil || id == "" {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, revokedKey(id)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func revokedKey(id string) string {
	return "session:revoked:" + id
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

package utils

import (
	"context"
	"errors"
)

// Key type for context values
type contextKey string

const (
	userIDKey  contextKey = "userID"
	sessionKey contextKey = "session"
)

// ErrNoUser is returned when the request carries no authenticated user
var ErrNoUser = errors.New("user ID not found in context")

// GetUserIDFromContext extracts the user ID from the context
func GetUserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", ErrNoUser
	}
	return userID, nil
}

// SetUserIDToContext adds the user ID to the context
func SetUserIDToContext(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// SetSessionToContext stores an arbitrary session value alongside the user ID
func SetSessionToContext(ctx context.Context, session interface{}) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// SessionFromContext returns the value stored by SetSessionToContext
func SessionFromContext(ctx context.Context) interface{} {
	return ctx.Value(sessionKey)
}

package api

import (
	"context"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/vikasavnish/stockwatch/internal/config"
	"github.com/vikasavnish/stockwatch/internal/services"
)

// Services bundles the application services shared by the router, the
// websocket hub and the scheduled tasks
type Services struct {
	Users     services.UserService
	Auth      services.AuthService
	Sessions  *services.SessionService
	Watchlist *services.WatchlistService
	Pages     *services.PageService

	// Checks are run by the health endpoint
	Checks map[string]func(ctx context.Context) error
}

// NewServices wires the services. redisClient may be nil.
func NewServices(
	cfg *config.Config,
	db *gorm.DB,
	store services.WatchlistStore,
	quotes services.QuoteSource,
	redisClient *redis.Client,
	logger *slog.Logger,
) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	users := services.NewUserService(db)
	events := services.NewEventPublisher(redisClient, logger.With("component", "events"))

	checks := map[string]func(ctx context.Context) error{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	return &Services{
		Checks:    checks,
		Users:     users,
		Auth:      services.NewAuthService(users, events, logger.With("component", "auth")),
		Sessions:  services.NewSessionService(cfg.JWT.SecretKey, cfg.JWT.TTL, redisClient, logger.With("component", "session")),
		Watchlist: services.NewWatchlistService(store, users, logger.With("component", "watchlist")),
		Pages:     services.NewPageService(store, quotes, logger.With("component", "page")),
	}
}

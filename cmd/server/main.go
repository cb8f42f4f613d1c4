package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"gorm.io/gorm"

	"github.com/vikasavnish/stockwatch/internal/api"
	"github.com/vikasavnish/stockwatch/internal/config"
	"github.com/vikasavnish/stockwatch/internal/db"
	"github.com/vikasavnish/stockwatch/internal/market"
	"github.com/vikasavnish/stockwatch/internal/services"
	"github.com/vikasavnish/stockwatch/internal/tasks"
	"github.com/vikasavnish/stockwatch/internal/websocket"
	"github.com/vikasavnish/stockwatch/web"
)

func main() {
	printRoutes := flag.Bool("routes", false, "print registered routes and exit")
	flag.Parse()

	// Load environment variables
	envErr := godotenv.Load()

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("no .env file found, using environment variables")
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database connection
	database, err := db.Connect(cfg.Database)
	if err != nil {
		logger.Error("connect database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}

	// Initialize Redis client
	var redisClient *redis.Client
	if client, err := db.ConnectRedis(cfg.Redis); err != nil {
		logger.Warn("redis unavailable, sessions cannot be revoked and events are dropped", "error", err)
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	store, closeStore, err := openWatchlistStore(ctx, cfg, database, logger)
	if err != nil {
		logger.Error("open watchlist store", "backend", cfg.Watchlist.Backend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if cfg.Market.APIKey == "" {
		logger.Warn("FINNHUB_API_KEY not set, market data requests will fail")
	}
	finnhub := market.NewFinnhubClient(cfg.Market.APIKey,
		market.WithBaseURL(cfg.Market.BaseURL),
		market.WithTimeout(cfg.Market.Timeout),
		market.WithLogger(logger.With("component", "finnhub")),
	)
	quotes := market.NewAggregator(finnhub, cfg.Market.Concurrency, logger.With("component", "market"))

	svc := api.NewServices(cfg, database, store, quotes, redisClient, logger)

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(svc.Sessions, svc.Watchlist, logger.With("component", "websocket"))
	go wsHub.Run(ctx)

	templates, err := web.Templates()
	if err != nil {
		logger.Error("parse templates", "error", err)
		os.Exit(1)
	}

	// Initialize router
	router := api.SetupRouter(svc, wsHub, templates, logger)
	if *printRoutes {
		api.PrintRoutes(os.Stdout, router)
		return
	}

	// Initialize scheduled tasks
	taskManager := tasks.NewManager(logger.With("component", "tasks"))
	taskManager.RegisterTask(tasks.NewQuoteRefreshTask(svc.Pages, wsHub, cfg.Tasks.QuoteRefreshInterval, logger.With("task", "quote-refresh")))
	taskManager.StartScheduledTasks(ctx)
	defer taskManager.StopAllTasks()

	// Set up CORS
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           corsMiddleware.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	logger.Info("server starting", "port", cfg.Server.Port, "watchlist_backend", cfg.Watchlist.Backend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// openWatchlistStore returns the store for the configured backend and a
// function that releases it
func openWatchlistStore(ctx context.Context, cfg *config.Config, database *gorm.DB, logger *slog.Logger) (services.WatchlistStore, func(), error) {
	if cfg.Watchlist.Backend != "mongo" {
		return services.NewGormWatchlistStore(database), func() {}, nil
	}

	client, mdb, err := db.ConnectMongo(ctx, cfg.Mongo, logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Disconnect(ctx)
	}

	store, err := services.NewMongoWatchlistStore(ctx, mdb)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return store, closeFn, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

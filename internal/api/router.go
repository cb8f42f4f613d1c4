package api

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vikasavnish/stockwatch/internal/handlers"
	"github.com/vikasavnish/stockwatch/internal/middleware"
	"github.com/vikasavnish/stockwatch/internal/websocket"
	"github.com/vikasavnish/stockwatch/web"
)

// SetupRouter configures all routes and returns the router
func SetupRouter(
	svc *Services,
	wsHub *websocket.Hub,
	templates *template.Template,
	logger *slog.Logger,
) *mux.Router {
	if logger == nil {
		logger = slog.Default()
	}

	// Create a new router
	router := mux.NewRouter()
	router.Use(middleware.WithSession(svc.Sessions))

	// Add health check endpoint
	router.HandleFunc("/api/health", HealthHandler(svc.Checks)).Methods("GET")

	// WebSocket route
	router.HandleFunc("/ws", wsHub.HandleWebSocket)

	// Serve static files
	router.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(web.GetFileSystem())),
	)

	// Create handlers using services
	authHandler := handlers.NewAuthHandler(svc.Auth, svc.Sessions, logger.With("handler", "auth"))
	watchlistHandler := handlers.NewWatchlistHandler(svc.Watchlist, svc.Pages, wsHub, logger.With("handler", "watchlist"))
	userHandler := handlers.NewUserHandler(svc.Users)
	pageHandler := handlers.NewPageHandler(svc.Pages, templates, logger.With("handler", "page"))

	// HTML pages and their forms
	pageHandler.RegisterRoutes(router)
	router.HandleFunc("/sign-in", authHandler.SignInForm(pageHandler)).Methods("POST")
	router.HandleFunc("/sign-up", authHandler.SignUpForm(pageHandler)).Methods("POST")
	router.HandleFunc("/sign-out", authHandler.SignOutForm).Methods("POST")

	// Create the API router
	apiRouter := router.PathPrefix("/api").Subrouter()

	// Add public endpoints (no authentication required)
	authHandler.RegisterRoutes(apiRouter)
	watchlistHandler.RegisterPublicRoutes(apiRouter)

	// Create a subrouter for authenticated endpoints
	authRouter := apiRouter.PathPrefix("").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(svc.Sessions))

	// Register routes
	watchlistHandler.RegisterRoutes(authRouter)
	userHandler.RegisterRoutes(authRouter)

	// Route listing for operators
	authRouter.HandleFunc("/routes", PrintRoutesHandler(router)).Methods("GET")

	return router
}

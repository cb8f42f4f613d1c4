package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/vikasavnish/stockwatch/internal/middleware"
	"github.com/vikasavnish/stockwatch/internal/models"
	"github.com/vikasavnish/stockwatch/internal/services"
	"github.com/vikasavnish/stockwatch/internal/toggle"
	"github.com/vikasavnish/stockwatch/internal/utils"
)

// WatchlistHandler serves the JSON watchlist API
type WatchlistHandler struct {
	watchlist *services.WatchlistService
	pages     *services.PageService
	notifier  toggle.Notifier
	logger    *slog.Logger
}

// NewWatchlistHandler creates a new watchlist handler. notifier, if set, also
// receives toggle toasts so a user's other open pages see them.
func NewWatchlistHandler(watchlist *services.WatchlistService, pages *services.PageService, notifier toggle.Notifier, logger *slog.Logger) *WatchlistHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchlistHandler{
		watchlist: watchlist,
		pages:     pages,
		notifier:  notifier,
		logger:    logger,
	}
}

// RegisterRoutes registers the endpoints that need a signed-in user
func (h *WatchlistHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/watchlist", h.GetWatchlist).Methods("GET")
	router.HandleFunc("/watchlist", h.AddSymbol).Methods("POST")
	router.HandleFunc("/watchlist/symbols", h.GetSymbols).Methods("GET")
	router.HandleFunc("/watchlist/{symbol}", h.RemoveSymbol).Methods("DELETE")
}

// RegisterPublicRoutes registers the endpoints that also answer anonymous
// callers
func (h *WatchlistHandler) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/watchlist/toggle", h.Toggle).Methods("POST")
}

// GetWatchlist returns the assembled watchlist of the current user
func (h *WatchlistHandler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	page := h.pages.Build(r.Context(), userID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page)
}

// AddSymbol adds a symbol to the current user's watchlist
func (h *WatchlistHandler) AddSymbol(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req models.WatchlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	if err := h.watchlist.Store.Add(r.Context(), userID, symbol, req.Company); err != nil {
		h.logger.Error("add to watchlist", "user_id", userID, "symbol", symbol, "error", err)
		http.Error(w, "Failed to update watchlist", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"symbol":      symbol,
		"company":     strings.TrimSpace(req.Company),
		"inWatchlist": true,
	})
}

// RemoveSymbol removes a symbol from the current user's watchlist. Removing
// a symbol that is not there succeeds.
func (h *WatchlistHandler) RemoveSymbol(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	if err := h.watchlist.Store.Remove(r.Context(), userID, symbol); err != nil {
		h.logger.Error("remove from watchlist", "user_id", userID, "symbol", symbol, "error", err)
		http.Error(w, "Failed to update watchlist", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSymbols returns the symbols on the current user's watchlist
func (h *WatchlistHandler) GetSymbols(w http.ResponseWriter, r *http.Request) {
	s := middleware.CurrentSession(r)
	if s == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"symbols": h.watchlist.SymbolsForEmail(r.Context(), s.User.Email),
	})
}

// Toggle flips one row and returns the settled row with the toasts it
// produced. Anonymous callers get the reverted row and a sign-in prompt.
func (h *WatchlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req models.ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Symbol) == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	userID, _ := utils.GetUserIDFromContext(r.Context())
	notes := &collectingNotifier{next: h.notifier}

	row, err := h.watchlist.Toggle(r.Context(), userID, req.Symbol, req.Company, req.InWatchlist, notes)
	if err != nil {
		h.logger.Warn("toggle", "user_id", userID, "symbol", req.Symbol, "error", err)
		http.Error(w, "Failed to update watchlist", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"row":           row,
		"notifications": notes.all(),
	})
}

// collectingNotifier records toasts for the HTTP response and forwards them
// to next for signed-in users.
type collectingNotifier struct {
	next toggle.Notifier

	mu    sync.Mutex
	notes []models.Notification
}

func (n *collectingNotifier) Success(userID, message string) {
	n.add(models.Notification{Level: "success", Message: message})
	if n.next != nil && userID != "" {
		n.next.Success(userID, message)
	}
}

func (n *collectingNotifier) Error(userID, message string) {
	n.add(models.Notification{Level: "error", Message: message})
	if n.next != nil && userID != "" {
		n.next.Error(userID, message)
	}
}

func (n *collectingNotifier) add(note models.Notification) {
	n.mu.Lock()
	n.notes = append(n.notes, note)
	n.mu.Unlock()
}

func (n *collectingNotifier) all() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.Notification, len(n.notes))
	copy(out, n.notes)
	return out
}

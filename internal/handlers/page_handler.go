package handlers

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vikasavnish/stockwatch/internal/middleware"
	"github.com/vikasavnish/stockwatch/internal/services"
)

// PageHandler renders the HTML pages
type PageHandler struct {
	pages     *services.PageService
	templates *template.Template
	logger    *slog.Logger
}

type pageData struct {
	Title string
	User  *services.SessionUser
	Page  *services.WatchlistPage
	Email string
	Error string
}

// NewPageHandler creates a new page handler
func NewPageHandler(pages *services.PageService, templates *template.Template, logger *slog.Logger) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageHandler{
		pages:     pages,
		templates: templates,
		logger:    logger,
	}
}

// RegisterRoutes registers the pages. The router must run
// middleware.WithSession.
func (h *PageHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.Home).Methods("GET")
	router.HandleFunc("/watchlist", h.Watchlist).Methods("GET")
	router.HandleFunc("/sign-in", h.SignIn).Methods("GET")
	router.HandleFunc("/sign-up", h.SignUp).Methods("GET")
}

// Home sends visitors to their watchlist
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/watchlist", http.StatusSeeOther)
}

// Watchlist renders the watchlist table, or redirects to sign-in when the
// caller is anonymous
func (h *PageHandler) Watchlist(w http.ResponseWriter, r *http.Request) {
	s := middleware.CurrentSession(r)
	if s == nil {
		http.Redirect(w, r, "/sign-in", http.StatusSeeOther)
		return
	}

	page := h.pages.Build(r.Context(), s.User.ID)
	h.render(w, "watchlist.html", pageData{
		Title: "Watchlist",
		User:  &s.User,
		Page:  page,
	})
}

// SignIn renders the sign-in form
func (h *PageHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if middleware.CurrentSession(r) != nil {
		http.Redirect(w, r, "/watchlist", http.StatusSeeOther)
		return
	}
	h.renderAuth(w, r, "sign-in.html", "Sign in", "", "")
}

// SignUp renders the sign-up form
func (h *PageHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	if middleware.CurrentSession(r) != nil {
		http.Redirect(w, r, "/watchlist", http.StatusSeeOther)
		return
	}
	h.renderAuth(w, r, "sign-up.html", "Sign up", "", "")
}

func (h *PageHandler) renderAuth(w http.ResponseWriter, _ *http.Request, name, title, email, errMsg string) {
	h.render(w, name, pageData{Title: title, Email: email, Error: errMsg})
}

// render buffers the page; a template error becomes a 500.
func (h *PageHandler) render(w http.ResponseWriter, name string, data pageData) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("render page", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/vikasavnish/stockwatch/internal/middleware"
	"github.com/vikasavnish/stockwatch/internal/models"
	"github.com/vikasavnish/stockwatch/internal/services"
)

// AuthHandler handles sign-up, sign-in and sign-out requests
type AuthHandler struct {
	authService services.AuthService
	sessions    *services.SessionService
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService services.AuthService, sessions *services.SessionService, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authService: authService,
		sessions:    sessions,
		logger:      logger,
	}
}

// RegisterRoutes registers the JSON auth endpoints under /auth
func (h *AuthHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/sign-up", h.SignUp).Methods("POST")
	router.HandleFunc("/auth/sign-in", h.SignIn).Methods("POST")
	router.HandleFunc("/auth/sign-out", h.SignOut).Methods("POST")
}

// SignUp creates an account and returns a session token
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.authService.SignUp(r.Context(), req)
	if err != nil {
		h.writeSignUpError(w, err)
		return
	}

	h.respondWithToken(w, http.StatusCreated, user)
}

// SignIn handles user sign-in and returns a session token
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	user, err := h.authService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.Error("sign in", "error", err)
		http.Error(w, "Could not sign in", http.StatusInternalServerError)
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

// SignOut revokes the caller's token and clears the session cookie
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if s := h.sessions.GetSession(r); s != nil {
		if err := h.sessions.Revoke(r.Context(), s.Claims); err != nil {
			h.logger.Error("sign out", "user_id", s.User.ID, "error", err)
			http.Error(w, "Could not sign out", http.StatusInternalServerError)
			return
		}
	}
	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// SignInForm handles the sign-in page form and redirects to the watchlist
func (h *AuthHandler) SignInForm(pages *PageHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}
		email := r.PostFormValue("email")

		user, err := h.authService.Authenticate(r.Context(), email, r.PostFormValue("password"))
		if err != nil {
			msg := "Invalid email or password"
			if !errors.Is(err, services.ErrInvalidCredentials) {
				h.logger.Error("sign in", "error", err)
				msg = "Could not sign in. Please try again later."
			}
			pages.renderAuth(w, r, "sign-in.html", "Sign in", email, msg)
			return
		}

		if err := h.setSessionCookie(w, user); err != nil {
			h.logger.Error("issue session", "user_id", user.ID, "error", err)
			http.Error(w, "Could not sign in", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/watchlist", http.StatusSeeOther)
	}
}

// SignUpForm handles the sign-up page form and redirects to the watchlist
func (h *AuthHandler) SignUpForm(pages *PageHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}
		req := models.SignUpRequest{
			Email:             r.PostFormValue("email"),
			Password:          r.PostFormValue("password"),
			FullName:          r.PostFormValue("fullName"),
			Country:           r.PostFormValue("country"),
			InvestmentGoals:   r.PostFormValue("investmentGoals"),
			RiskTolerance:     r.PostFormValue("riskTolerance"),
			PreferredIndustry: r.PostFormValue("preferredIndustry"),
		}

		user, err := h.authService.SignUp(r.Context(), req)
		if err != nil {
			var msg string
			switch {
			case errors.Is(err, services.ErrEmailTaken):
				msg = "An account with this email already exists"
			case errors.Is(err, services.ErrInvalidSignUp):
				msg = "Name, email and password are required"
			default:
				h.logger.Error("sign up", "error", err)
				msg = "Could not create your account. Please try again later."
			}
			pages.renderAuth(w, r, "sign-up.html", "Sign up", req.Email, msg)
			return
		}

		if err := h.setSessionCookie(w, user); err != nil {
			h.logger.Error("issue session", "user_id", user.ID, "error", err)
			http.Error(w, "Could not sign in", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/watchlist", http.StatusSeeOther)
	}
}

// SignOutForm revokes the session and redirects to the sign-in page
func (h *AuthHandler) SignOutForm(w http.ResponseWriter, r *http.Request) {
	if s := middleware.CurrentSession(r); s != nil {
		if err := h.sessions.Revoke(r.Context(), s.Claims); err != nil {
			h.logger.Warn("revoke session", "user_id", s.User.ID, "error", err)
		}
	}
	clearSessionCookie(w)
	http.Redirect(w, r, "/sign-in", http.StatusSeeOther)
}

func (h *AuthHandler) writeSignUpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidSignUp):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrEmailTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("sign up", "error", err)
		http.Error(w, "Could not create account", http.StatusInternalServerError)
	}
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user models.User) {
	tokenString, claims, err := h.sessions.Issue(user)
	if err != nil {
		h.logger.Error("issue session", "user_id", user.ID, "error", err)
		http.Error(w, "Could not generate token", http.StatusInternalServerError)
		return
	}
	setCookie(w, tokenString, h.sessions.TTL())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.TokenResponse{
		AccessToken: tokenString,
		TokenType:   "bearer",
		ExpiresAt:   claims.ExpiresAt,
	})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, user models.User) error {
	tokenString, _, err := h.sessions.Issue(user)
	if err != nil {
		return err
	}
	setCookie(w, tokenString, h.sessions.TTL())
	return nil
}

func setCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     services.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     services.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

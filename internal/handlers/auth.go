package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/baymax-health/apiserver/internal/auth"
	"github.com/baymax-health/apiserver/internal/services"
	"github.com/baymax-health/apiserver/internal/store"
	"github.com/baymax-health/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// AuthHandler provides JWT authentication endpoints.
type AuthHandler struct {
	userService *services.UserService
	tokens      *auth.Tokens
	denylist    auth.Denylist
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(userService *services.UserService, tokens *auth.Tokens, denylist auth.Denylist) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		tokens:      tokens,
		denylist:    denylist,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, h *AuthHandler) {
	r.Post("/signup", h.Signup)
	r.Post("/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Get("/me", h.Me)
		r.Put("/profile", h.UpdateProfile)
		r.Post("/logout", h.Logout)
	})
}

// RequireAuth enforces a valid, unrevoked bearer token belonging to an
// existing user and injects the subject into the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		claims, err := h.tokens.Parse(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, auth.ErrInvalidToken.Error())
			return
		}

		if h.denylist != nil && claims.TokenID != "" {
			revoked, err := h.denylist.IsRevoked(r.Context(), claims.TokenID)
			if err != nil {
				slog.ErrorContext(r.Context(), "Failed to check token denylist", slog.Any("err", err))
				writeError(w, http.StatusInternalServerError, "failed to authenticate")
				return
			}
			if revoked {
				writeError(w, http.StatusUnauthorized, auth.ErrRevoked.Error())
				return
			}
		}

		if _, err := h.userService.GetByID(r.Context(), claims.Subject); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "user no longer exists")
				return
			}
			slog.ErrorContext(r.Context(), "Failed to load user", slog.Any("err", err))
			writeError(w, http.StatusInternalServerError, "failed to authenticate")
			return
		}

		ctx := context.WithValue(r.Context(), contextSubjectKey, claims.Subject)
		ctx = context.WithValue(ctx, contextClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Signup creates a new account and returns a token.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.Signup(r.Context(), services.SignupInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Phone:           req.Phone,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeServiceError(w, r, err, "user not found", "failed to create user")
		return
	}

	h.writeToken(w, r, http.StatusCreated, user)
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing credentials")
		return
	}

	user, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err, "Invalid credentials", "failed to authenticate")
		return
	}

	h.writeToken(w, r, http.StatusOK, user)
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "user no longer exists")
			return
		}
		writeServiceError(w, r, err, "user not found", "failed to load user")
		return
	}

	writeData(w, http.StatusOK, UserResponse{User: user})
}

// UpdateProfile edits the caller's name, phone and optionally password.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, services.ProfileInput{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		writeServiceError(w, r, err, "user not found", "failed to update profile")
		return
	}

	writeData(w, http.StatusOK, UserResponse{User: user})
}

// Logout revokes the presented token until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(contextClaimsKey).(auth.Claims)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.denylist != nil && claims.TokenID != "" {
		if err := h.denylist.Revoke(r.Context(), claims.TokenID, claims.ExpiresAt); err != nil {
			writeServiceError(w, r, err, "", "failed to revoke token")
			return
		}
	}
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (h *AuthHandler) writeToken(w http.ResponseWriter, r *http.Request, status int, user types.User) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeServiceError(w, r, err, "", "failed to create token")
		return
	}
	writeData(w, status, AuthResponse{Token: token, User: user})
}

type SignupRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ProfileRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Phone           string `json:"phone"`
	Password        string `json:"password,omitempty"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type UserResponse struct {
	User types.User `json:"user"`
}

func bearerToken(r *http.Request) (string, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization header")
	}
	return token, nil
}

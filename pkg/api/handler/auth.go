package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/lennythecreator/sphinx/pkg/api/response"
	"github.com/lennythecreator/sphinx/pkg/auth"
	"github.com/lennythecreator/sphinx/pkg/domain"
	"github.com/lennythecreator/sphinx/pkg/logger"
)

const minPasswordLength = 8

type UsersRepository interface {
	Create(ctx context.Context, user domain.User) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

type TokenIssuer interface {
	Issue(user domain.User) (string, error)
}

type authHandler struct {
	users  UsersRepository
	tokens TokenIssuer
}

func NewAuth(users UsersRepository, tokens TokenIssuer) *authHandler {
	return &authHandler{
		users:  users,
		tokens: tokens,
	}
}

type registerRequest struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Name     string      `json:"name"`
	Major    string      `json:"major"`
	GradYear json.Number `json:"grad_year"`
}

func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Missing required fields.")
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" || req.Major == "" || req.GradYear == "" {
		response.Error(w, http.StatusBadRequest, "Missing required fields.")
		return
	}
	if len(req.Password) < minPasswordLength {
		response.Error(w, http.StatusBadRequest, "Password must be at least 8 characters.")
		return
	}
	gradYear, err := req.GradYear.Int64()
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Graduation year must be a number.")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.ErrorContext(r.Context(), "Hashing password failed", logger.Err(err))
		response.Error(w, http.StatusInternalServerError, "Failed to register user.")
		return
	}

	user, err := h.users.Create(r.Context(), domain.User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		Major:        req.Major,
		GradYear:     int(gradYear),
		PasswordHash: hash,
	})
	if err == domain.ErrEmailTaken {
		response.Error(w, http.StatusConflict, "User already exists.")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Creating user failed", logger.Err(err))
		response.Error(w, http.StatusInternalServerError, "Failed to register user.")
		return
	}

	response.OK(w, map[string]string{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		response.Error(w, http.StatusBadRequest, "Email and password are required.")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err == domain.ErrNotFound {
		response.Error(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Fetching user failed", logger.Err(err))
		response.Error(w, http.StatusInternalServerError, "Failed to log in.")
		return
	}

	if !h.checkPassword(r.Context(), user, req.Password) {
		response.Error(w, http.StatusUnauthorized, "Invalid credentials.")
		return
	}

	token, err := h.tokens.Issue(*user)
	if err != nil {
		slog.ErrorContext(r.Context(), "Issuing token failed", logger.Err(err))
		response.Error(w, http.StatusInternalServerError, "Failed to log in.")
		return
	}

	response.OK(w, map[string]any{
		"token": token,
		"user": map[string]string{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
		},
	})
}

// checkPassword verifies the submitted password, transparently upgrading
// accounts that still store it in plain text.
func (h *authHandler) checkPassword(ctx context.Context, user *domain.User, password string) bool {
	if auth.IsBcryptHash(user.PasswordHash) {
		return auth.VerifyPassword(password, user.PasswordHash)
	}

	if user.PasswordHash != password {
		return false
	}
	if hash, err := auth.HashPassword(password); err == nil {
		if err := h.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			slog.WarnContext(ctx, "Upgrading legacy password failed", logger.Err(err))
		}
	}
	return true
}

// internal/app/features/login/handler.go
package login

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	userstore "github.com/lmshub/toolhub/internal/app/store/users"
	"github.com/lmshub/toolhub/internal/app/system/auth"
	"github.com/lmshub/toolhub/internal/app/system/limits"
	"github.com/lmshub/toolhub/internal/app/system/ratelimit"
	"github.com/lmshub/toolhub/internal/app/system/timeouts"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler authenticates users against stored bcrypt hashes and starts a
// session. It is the only producer of the identity the rest of the app
// consumes.
type Handler struct {
	Users   *userstore.Store
	Limiter *ratelimit.LoginLimiter
	Log     *zap.Logger
}

func NewHandler(users *userstore.Store, limiter *ratelimit.LoginLimiter, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Limiter: limiter, Log: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// ServeLogin handles POST /login.
//
// Failures are reported with one generic message so the response does
// not reveal whether the email exists.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBodySize)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	if h.Limiter != nil && !h.Limiter.Check(r, req.Email) {
		h.Log.Warn("login: rate limited",
			zap.String("ip", ratelimit.ClientIP(r)))
		http.Error(w, "too many login attempts", http.StatusTooManyRequests)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Users.ByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, userstore.ErrUserNotFound) {
			h.Log.Error("login: user lookup failed", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		http.Error(w, "invalid email or password", http.StatusUnauthorized)
		return
	}

	if u.Status != "" && u.Status != "active" {
		http.Error(w, "invalid email or password", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "invalid email or password", http.StatusUnauthorized)
		return
	}

	su := auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
	}
	if h.Limiter != nil {
		h.Limiter.ResetEmail(req.Email)
	}
	if err := auth.SignIn(w, r, su); err != nil {
		h.Log.Error("login: session write failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.Log.Info("user signed in",
		zap.String("user_id", su.ID),
		zap.String("role", su.Role))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(loginResponse{
		ID:    su.ID,
		Name:  su.Name,
		Email: su.Email,
		Role:  su.Role,
	})
}

// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	"github.com/lmshub/toolhub/internal/app/system/auth"
	"go.uber.org/zap"
)

// Handler clears the caller's session.
type Handler struct {
	Log *zap.Logger
}

func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

// ServeLogout handles POST /logout. Signing out an unauthenticated
// caller is a no-op, not an error.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		h.Log.Info("user signed out", zap.String("user_id", u.ID))
	}
	if err := auth.SignOut(w, r); err != nil {
		h.Log.Error("logout: session clear failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// internal/app/features/dashboard/routes.go
package dashboard

import (
	"github.com/lmshub/toolhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires the dashboard feature under whatever mount point the
// top-level router chooses (e.g., "/dashboard").
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeDashboard)
		pr.Get("/tools", h.ServeTools)
	})
	return r
}

// internal/app/features/admincohorts/routes.go
package admincohorts

import (
	"github.com/lmshub/toolhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires the admin surface. Mounted under "/admin".
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole("admin"))
		pr.Get("/cohorts", h.ServeCohorts)
		pr.Post("/cohorts", h.ServeAddRestriction)
		pr.Delete("/cohorts", h.ServeRemoveRestriction)
		pr.Get("/cohorts/statistics", h.ServeStatistics)
		pr.Post("/plugins/invalidate", h.ServeInvalidate)
	})
	return r
}

// internal/app/features/sharing/routes.go
package sharing

import (
	"github.com/lmshub/toolhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires the sharing feature. Mounted under "/sharing".
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/grants", h.ServeListGrants)
		pr.Post("/grants", h.ServeGrant)
		pr.Delete("/grants", h.ServeRevoke)
		pr.Get("/effective", h.ServeEffective)
	})
	return r
}

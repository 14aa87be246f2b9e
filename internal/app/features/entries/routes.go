// internal/app/features/entries/routes.go
package entries

import (
	"github.com/lmshub/toolhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes wires the entries feature. Mounted under "/entries".
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Post("/", h.ServeCreate)
		pr.Get("/{entryID}", h.ServeGet)
		pr.Put("/{entryID}", h.ServeUpdate)
	})
	return r
}

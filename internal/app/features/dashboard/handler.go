// internal/app/features/dashboard/handler.go
package dashboard

import (
	"context"
	"encoding/json"
	"net/http"

	activitylogstore "github.com/lmshub/toolhub/internal/app/store/activitylog"
	"github.com/lmshub/toolhub/internal/app/policy/cohortgate"
	"github.com/lmshub/toolhub/internal/app/registry"
	"github.com/lmshub/toolhub/internal/app/system/authz"
	"github.com/lmshub/toolhub/internal/app/system/timeouts"
	"github.com/lmshub/toolhub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler assembles the dashboard view for the signed-in user: the
// weight-sorted blocks of the plugins the user can reach, plus each
// plugin's gating statistics.
type Handler struct {
	Registry *registry.Registry
	Gate     *cohortgate.Gate
	Audit    *activitylogstore.Store
	Log      *zap.Logger
}

func NewHandler(reg *registry.Registry, gate *cohortgate.Gate, audit *activitylogstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Registry: reg, Gate: gate, Audit: audit, Log: logger}
}

type pluginView struct {
	registry.Info
	Statistics cohortgate.Statistics `json:"statistics"`
}

type dashboardResponse struct {
	Blocks         []registry.Block     `json:"blocks"`
	Plugins        []pluginView         `json:"plugins"`
	RecentActivity []models.ActivityLog `json:"recent_activity,omitempty"`
}

// ServeDashboard handles GET /dashboard.
func (h *Handler) ServeDashboard(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	resp := dashboardResponse{
		Blocks:  h.Registry.DashboardBlocks(ctx, userID),
		Plugins: []pluginView{},
	}
	for _, p := range h.Registry.PluginsFor(ctx, userID) {
		resp.Plugins = append(resp.Plugins, pluginView{
			Info:       p.Info(),
			Statistics: h.Gate.Statistics(ctx, p.Name()),
		})
	}
	if resp.Blocks == nil {
		resp.Blocks = []registry.Block{}
	}

	// The recent-activity feed is admin only.
	if authz.IsAdmin(r) {
		recent, err := h.Audit.Recent(ctx, 20)
		if err != nil {
			h.Log.Warn("dashboard: recent activity lookup failed", zap.Error(err))
		} else {
			resp.RecentActivity = recent
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type toolsResponse struct {
	Tools map[string][]registry.Tool `json:"tools"`
}

// ServeTools handles GET /dashboard/tools.
func (h *Handler) ServeTools(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toolsResponse{
		Tools: h.Registry.Tools(ctx, userID),
	})
}

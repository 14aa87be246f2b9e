// internal/app/features/admincohorts/handler.go
package admincohorts

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/lmshub/toolhub/internal/app/policy/cohortgate"
	"github.com/lmshub/toolhub/internal/app/registry"
	activitylogstore "github.com/lmshub/toolhub/internal/app/store/activitylog"
	restrictionstore "github.com/lmshub/toolhub/internal/app/store/cohortrestrictions"
	cohortstore "github.com/lmshub/toolhub/internal/app/store/cohorts"
	"github.com/lmshub/toolhub/internal/app/system/authz"
	"github.com/lmshub/toolhub/internal/app/system/limits"
	"github.com/lmshub/toolhub/internal/app/system/timeouts"
	"github.com/lmshub/toolhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler is the admin surface for cohort restrictions and the plugin
// registry cache. All routes require the admin role.
type Handler struct {
	Restrictions *restrictionstore.Store
	Cohorts      *cohortstore.Store
	Gate         *cohortgate.Gate
	Registry     *registry.Registry
	Audit        *activitylogstore.Store
	Log          *zap.Logger
}

func NewHandler(
	restrictions *restrictionstore.Store,
	cohorts *cohortstore.Store,
	gate *cohortgate.Gate,
	reg *registry.Registry,
	audit *activitylogstore.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Restrictions: restrictions,
		Cohorts:      cohorts,
		Gate:         gate,
		Registry:     reg,
		Audit:        audit,
		Log:          logger,
	}
}

type cohortsResponse struct {
	Cohorts      []models.Cohort            `json:"cohorts"`
	Restrictions []models.CohortRestriction `json:"restrictions,omitempty"`
}

// ServeCohorts handles GET /admin/cohorts. Always lists all cohorts
// for the picker; with ?subplugin= it also lists that subplugin's
// restrictions.
func (h *Handler) ServeCohorts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	cohorts, err := h.Cohorts.ListAll(ctx)
	if err != nil {
		h.Log.Error("admin: cohort listing failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	resp := cohortsResponse{Cohorts: cohorts}
	if resp.Cohorts == nil {
		resp.Cohorts = []models.Cohort{}
	}

	if sub := query.Get(r, "subplugin"); sub != "" {
		if !h.knownSubplugin(sub) {
			http.Error(w, "unknown subplugin", http.StatusBadRequest)
			return
		}
		rows, err := h.Restrictions.BySubplugin(ctx, sub)
		if err != nil {
			h.Log.Error("admin: restriction listing failed", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		resp.Restrictions = rows
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type restrictionRequest struct {
	Subplugin string `json:"subplugin"`
	CohortID  string `json:"cohort_id"`
}

type restrictionResponse struct {
	Created bool `json:"created"`
}

// ServeAddRestriction handles POST /admin/cohorts. Adding the same
// restriction twice reports created=false and succeeds.
func (h *Handler) ServeAddRestriction(w http.ResponseWriter, r *http.Request) {
	_, _, adminID, ok := authz.UserCtx(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBodySize)
	var req restrictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !h.knownSubplugin(req.Subplugin) {
		http.Error(w, "unknown subplugin", http.StatusBadRequest)
		return
	}
	cohortID, err := primitive.ObjectIDFromHex(req.CohortID)
	if err != nil {
		http.Error(w, "invalid cohort id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Cohorts.ByID(ctx, cohortID); err != nil {
		http.Error(w, "cohort not found", http.StatusNotFound)
		return
	}

	created, err := h.Restrictions.Add(ctx, req.Subplugin, cohortID, adminID)
	if err != nil {
		h.Log.Error("admin: restriction add failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if created {
		h.record(ctx, adminID, activitylogstore.ActionRestrictionAdded, bson.M{
			"subplugin": req.Subplugin,
			"cohort_id": cohortID,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if created {
		w.WriteHeader(http.StatusCreated)
	}
	_ = json.NewEncoder(w).Encode(restrictionResponse{Created: created})
}

// ServeRemoveRestriction handles DELETE /admin/cohorts. With a
// cohort_id it removes one restriction; without, it clears every
// restriction for the subplugin.
func (h *Handler) ServeRemoveRestriction(w http.ResponseWriter, r *http.Request) {
	_, _, adminID, ok := authz.UserCtx(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sub := query.Get(r, "subplugin")
	if !h.knownSubplugin(sub) {
		http.Error(w, "unknown subplugin", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if s := query.Get(r, "cohort_id"); s != "" {
		cohortID, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			http.Error(w, "invalid cohort id", http.StatusBadRequest)
			return
		}
		if err := h.Restrictions.Remove(ctx, sub, cohortID); err != nil {
			h.Log.Error("admin: restriction remove failed", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		h.record(ctx, adminID, activitylogstore.ActionRestrictionRemoved, bson.M{
			"subplugin": sub,
			"cohort_id": cohortID,
		})
		w.WriteHeader(http.StatusNoContent)
		return
	}

	removed, err := h.Restrictions.Clear(ctx, sub)
	if err != nil {
		h.Log.Error("admin: restriction clear failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if removed > 0 {
		h.record(ctx, adminID, activitylogstore.ActionRestrictionRemoved, bson.M{
			"subplugin": sub,
			"removed":   removed,
		})
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeStatistics handles GET /admin/cohorts/statistics. With
// ?subplugin= it reports one subplugin, otherwise all of them.
func (h *Handler) ServeStatistics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	stats := map[string]cohortgate.Statistics{}
	if sub := query.Get(r, "subplugin"); sub != "" {
		if !h.knownSubplugin(sub) {
			http.Error(w, "unknown subplugin", http.StatusBadRequest)
			return
		}
		stats[sub] = h.Gate.Statistics(ctx, sub)
	} else {
		for _, sub := range h.Registry.Subplugins() {
			stats[sub] = h.Gate.Statistics(ctx, sub)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

// ServeInvalidate handles POST /admin/plugins/invalidate.
func (h *Handler) ServeInvalidate(w http.ResponseWriter, r *http.Request) {
	_, _, adminID, ok := authz.UserCtx(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	h.Registry.Invalidate()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	h.record(ctx, adminID, activitylogstore.ActionRegistryInvalidate, nil)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) knownSubplugin(name string) bool {
	if name == "" {
		return false
	}
	for _, sub := range h.Registry.Subplugins() {
		if sub == name {
			return true
		}
	}
	return false
}

func (h *Handler) record(ctx context.Context, userID primitive.ObjectID, action string, details bson.M) {
	if err := h.Audit.Record(ctx, userID, action, details); err != nil {
		h.Log.Warn("admin: activity log write failed",
			zap.String("action", action), zap.Error(err))
	}
}

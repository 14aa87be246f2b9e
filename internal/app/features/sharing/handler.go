// internal/app/features/sharing/handler.go
package sharing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/lmshub/toolhub/internal/app/policy/sharedaccess"
	activitylogstore "github.com/lmshub/toolhub/internal/app/store/activitylog"
	entrystore "github.com/lmshub/toolhub/internal/app/store/entries"
	grantstore "github.com/lmshub/toolhub/internal/app/store/grants"
	"github.com/lmshub/toolhub/internal/app/system/authz"
	"github.com/lmshub/toolhub/internal/app/system/limits"
	"github.com/lmshub/toolhub/internal/app/system/timeouts"
	"github.com/lmshub/toolhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler manages shared access grants. Granting and revoking require
// manage level on the resource, which owners hold implicitly.
type Handler struct {
	Grants  *grantstore.Store
	Entries *entrystore.Store
	Access  *sharedaccess.Resolver
	Audit   *activitylogstore.Store
	Log     *zap.Logger
}

func NewHandler(
	grants *grantstore.Store,
	entries *entrystore.Store,
	access *sharedaccess.Resolver,
	audit *activitylogstore.Store,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Grants:  grants,
		Entries: entries,
		Access:  access,
		Audit:   audit,
		Log:     logger,
	}
}

type grantRequest struct {
	ResourceType string     `json:"resource_type"`
	ResourceID   string     `json:"resource_id"`
	UserID       string     `json:"user_id"`
	Level        string     `json:"level"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// ServeGrant handles POST /sharing/grants.
func (h *Handler) ServeGrant(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxJSONBodySize)
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	resourceID, err := primitive.ObjectIDFromHex(req.ResourceID)
	if err != nil {
		http.Error(w, "invalid resource id", http.StatusBadRequest)
		return
	}
	granteeID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if _, err := sharedaccess.ParseLevel(req.Level); err != nil {
		http.Error(w, "invalid access level", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, ok := h.resolveResource(ctx, w, req.ResourceType, resourceID)
	if !ok {
		return
	}
	if !h.Access.CanAccess(ctx, res, userID, sharedaccess.LevelManage) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if granteeID == res.OwnerID {
		http.Error(w, "cannot grant access to the owner", http.StatusBadRequest)
		return
	}

	g := models.SharedAccessGrant{
		ResourceType: req.ResourceType,
		ResourceID:   resourceID,
		UserID:       granteeID,
		Level:        req.Level,
		ExpiresAt:    req.ExpiresAt,
		GrantedBy:    userID,
	}
	saved, err := h.Grants.Upsert(ctx, g)
	if err != nil {
		if errors.Is(err, grantstore.ErrInvalidGrant) {
			http.Error(w, "invalid grant", http.StatusBadRequest)
			return
		}
		h.Log.Error("sharing: grant upsert failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.record(ctx, userID, activitylogstore.ActionGrantCreated, bson.M{
		"resource_type": req.ResourceType,
		"resource_id":   resourceID,
		"grantee_id":    granteeID,
		"level":         req.Level,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(saved)
}

// ServeRevoke handles DELETE /sharing/grants. The grant is identified
// by resource_type, resource_id, and user_id query parameters.
func (h *Handler) ServeRevoke(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	resourceType := query.Get(r, "resource_type")
	resourceID, err := primitive.ObjectIDFromHex(query.Get(r, "resource_id"))
	if err != nil {
		http.Error(w, "invalid resource id", http.StatusBadRequest)
		return
	}
	granteeID, err := primitive.ObjectIDFromHex(query.Get(r, "user_id"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, ok := h.resolveResource(ctx, w, resourceType, resourceID)
	if !ok {
		return
	}
	if !h.Access.CanAccess(ctx, res, userID, sharedaccess.LevelManage) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if err := h.Grants.Revoke(ctx, resourceType, resourceID, granteeID); err != nil {
		if errors.Is(err, grantstore.ErrGrantNotFound) {
			http.Error(w, "grant not found", http.StatusNotFound)
			return
		}
		h.Log.Error("sharing: revoke failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.record(ctx, userID, activitylogstore.ActionGrantRevoked, bson.M{
		"resource_type": resourceType,
		"resource_id":   resourceID,
		"grantee_id":    granteeID,
	})

	w.WriteHeader(http.StatusNoContent)
}

// ServeListGrants handles GET /sharing/grants, listing the grants on
// one resource for its manager.
func (h *Handler) ServeListGrants(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	resourceType := query.Get(r, "resource_type")
	resourceID, err := primitive.ObjectIDFromHex(query.Get(r, "resource_id"))
	if err != nil {
		http.Error(w, "invalid resource id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, ok := h.resolveResource(ctx, w, resourceType, resourceID)
	if !ok {
		return
	}
	if !h.Access.CanAccess(ctx, res, userID, sharedaccess.LevelManage) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	grants, err := h.Grants.ForResource(ctx, resourceType, resourceID)
	if err != nil {
		h.Log.Error("sharing: grant listing failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if grants == nil {
		grants = []models.SharedAccessGrant{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(grants)
}

type effectiveResponse struct {
	Level string `json:"level"`
}

// ServeEffective handles GET /sharing/effective, reporting the caller's
// effective level on a resource.
func (h *Handler) ServeEffective(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	resourceType := query.Get(r, "resource_type")
	resourceID, err := primitive.ObjectIDFromHex(query.Get(r, "resource_id"))
	if err != nil {
		http.Error(w, "invalid resource id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, ok := h.resolveResource(ctx, w, resourceType, resourceID)
	if !ok {
		return
	}

	level := h.Access.EffectiveLevel(ctx, res, userID)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(effectiveResponse{Level: level.String()})
}

// resolveResource loads the resource and its owner. Only entries are
// shareable today; the type string is kept open for plugin resources.
// On failure the HTTP error has already been written.
func (h *Handler) resolveResource(ctx context.Context, w http.ResponseWriter, resourceType string, resourceID primitive.ObjectID) (sharedaccess.Resource, bool) {
	switch resourceType {
	case "entry":
		e, err := h.Entries.ByID(ctx, resourceID)
		if err != nil {
			if errors.Is(err, entrystore.ErrEntryNotFound) {
				http.Error(w, "resource not found", http.StatusNotFound)
				return sharedaccess.Resource{}, false
			}
			h.Log.Error("sharing: resource lookup failed", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return sharedaccess.Resource{}, false
		}
		return sharedaccess.Resource{Type: "entry", ID: e.ID, OwnerID: e.OwnerID}, true
	default:
		http.Error(w, "unsupported resource type", http.StatusBadRequest)
		return sharedaccess.Resource{}, false
	}
}

func (h *Handler) record(ctx context.Context, userID primitive.ObjectID, action string, details bson.M) {
	if err := h.Audit.Record(ctx, userID, action, details); err != nil {
		h.Log.Warn("sharing: activity log write failed",
			zap.String("action", action), zap.Error(err))
	}
}

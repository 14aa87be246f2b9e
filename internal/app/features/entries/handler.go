// internal/app/features/entries/handler.go
package entries

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lmshub/toolhub/internal/app/aggregator"
	"github.com/lmshub/toolhub/internal/app/policy/sharedaccess"
	"github.com/lmshub/toolhub/internal/app/policy/visibility"
	activitystore "github.com/lmshub/toolhub/internal/app/store/activities"
	entrystore "github.com/lmshub/toolhub/internal/app/store/entries"
	enrollmentstore "github.com/lmshub/toolhub/internal/app/store/enrollments"
	"github.com/lmshub/toolhub/internal/app/system/authz"
	"github.com/lmshub/toolhub/internal/app/system/limits"
	"github.com/lmshub/toolhub/internal/app/system/paging"
	"github.com/lmshub/toolhub/internal/app/system/timeouts"
	"github.com/lmshub/toolhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the aggregated entry listing and the entry write path.
type Handler struct {
	Agg         *aggregator.Aggregator
	Entries     *entrystore.Store
	Activities  *activitystore.Store
	Enrollments *enrollmentstore.Store
	Access      *sharedaccess.Resolver
	Visibility  *visibility.Resolver
	Log         *zap.Logger
}

func NewHandler(
	agg *aggregator.Aggregator,
	entries *entrystore.Store,
	activities *activitystore.Store,
	enrollments *enrollmentstore.Store,
	access *sharedaccess.Resolver,
	vis *visibility.Resolver,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Agg:         agg,
		Entries:     entries,
		Activities:  activities,
		Enrollments: enrollments,
		Access:      access,
		Visibility:  vis,
		Log:         logger,
	}
}

// ServeList handles GET /entries.
//
// Query parameters: course, activity (hex ObjectIDs), q (folded
// substring search), status, limit, offset, and separators=1 to insert
// boundary rows at each (course, activity) change.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var filters aggregator.Filters
	if s := query.Get(r, "course"); s != "" {
		oid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			http.Error(w, "invalid course id", http.StatusBadRequest)
			return
		}
		filters.CourseID = oid
	}
	if s := query.Get(r, "activity"); s != "" {
		oid, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			http.Error(w, "invalid activity id", http.StatusBadRequest)
			return
		}
		filters.ActivityID = oid
	}
	filters.Search = query.Get(r, "q")
	filters.Status = query.Get(r, "status")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	result, err := h.Agg.Visible(ctx, userID, filters, paging.ParsePage(r))
	if err != nil {
		h.Log.Error("entries: aggregation failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if query.Get(r, "separators") == "1" {
		result.Items = aggregator.WithSeparators(result.Items)
	}
	if result.Items == nil {
		result.Items = []aggregator.Item{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

type entryRequest struct {
	ActivityID string `json:"activity_id,omitempty"`
	GroupID    string `json:"group_id,omitempty"`

	Name         string `json:"name"`
	Status       string `json:"status,omitempty"`
	Market       string `json:"market,omitempty"`
	Industry     string `json:"industry,omitempty"`
	Role         string `json:"role,omitempty"`
	BusinessGoal string `json:"business_goal,omitempty"`
	Strategy     string `json:"strategy,omitempty"`
}

// ServeCreate handles POST /entries. The owner is always the signed-in
// user; a group, when given, must be one the user belongs to in the
// activity's course.
func (h *Handler) ServeCreate(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxEntryBodySize)
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	activityID, err := primitive.ObjectIDFromHex(req.ActivityID)
	if err != nil {
		http.Error(w, "invalid activity id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	act, err := h.Activities.ByID(ctx, activityID)
	if err != nil {
		http.Error(w, "activity not found", http.StatusNotFound)
		return
	}
	if !act.Visible {
		http.Error(w, "activity not found", http.StatusNotFound)
		return
	}

	enrolled, err := h.Enrollments.IsEnrolled(ctx, userID, act.CourseID)
	if err != nil {
		h.Log.Error("entries: enrollment check failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !enrolled {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var groupID primitive.ObjectID
	if req.GroupID != "" {
		groupID, err = primitive.ObjectIDFromHex(req.GroupID)
		if err != nil {
			http.Error(w, "invalid group id", http.StatusBadRequest)
			return
		}
		member, err := h.inGroup(ctx, userID, act.CourseID, groupID)
		if err != nil {
			h.Log.Error("entries: group membership check failed", zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !member {
			http.Error(w, "not a member of that group", http.StatusForbidden)
			return
		}
	}

	e := models.Entry{
		ActivityID:   act.ID,
		OwnerID:      userID,
		GroupID:      groupID,
		Name:         req.Name,
		Status:       req.Status,
		Market:       req.Market,
		Industry:     req.Industry,
		Role:         req.Role,
		BusinessGoal: req.BusinessGoal,
		Strategy:     req.Strategy,
	}
	created, err := h.Entries.Create(ctx, e)
	if err != nil {
		h.Log.Error("entries: create failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(created)
}

// ServeGet handles GET /entries/{entryID}. Visibility follows the same
// rules as the listing, plus shared-access view grants. Entries the
// caller cannot see report not found rather than forbidden.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	entryID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "entryID"))
	if err != nil {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	e, err := h.Entries.ByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, entrystore.ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		h.Log.Error("entries: lookup failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if !h.canView(ctx, e, userID) {
		http.Error(w, "entry not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(e)
}

// ServeUpdate handles PUT /entries/{entryID}. Editing needs ownership
// or a shared-access grant at edit level or above. Only content fields
// change; the activity, owner, and group are fixed at creation.
func (h *Handler) ServeUpdate(w http.ResponseWriter, r *http.Request) {
	_, _, userID, ok := authz.UserCtx(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	entryID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "entryID"))
	if err != nil {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxEntryBodySize)
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	e, err := h.Entries.ByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, entrystore.ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		h.Log.Error("entries: lookup failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	res := sharedaccess.Resource{Type: "entry", ID: e.ID, OwnerID: e.OwnerID}
	if !h.Access.CanAccess(ctx, res, userID, sharedaccess.LevelEdit) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	update := models.Entry{
		Name:         req.Name,
		Status:       req.Status,
		Market:       req.Market,
		Industry:     req.Industry,
		Role:         req.Role,
		BusinessGoal: req.BusinessGoal,
		Strategy:     req.Strategy,
	}
	if err := h.Entries.UpdateContent(ctx, e.ID, update); err != nil {
		h.Log.Error("entries: update failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	updated, err := h.Entries.ByID(ctx, e.ID)
	if err != nil {
		h.Log.Error("entries: reload failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(updated)
}

func (h *Handler) inGroup(ctx context.Context, userID, courseID, groupID primitive.ObjectID) (bool, error) {
	groups, err := h.Enrollments.GroupsOf(ctx, userID, courseID)
	if err != nil {
		return false, err
	}
	for _, g := range groups {
		if g == groupID {
			return true, nil
		}
	}
	return false, nil
}

// canView mirrors the listing's visibility rules for a single entry:
// the owner always sees it, a view-or-better grant opens it, and
// otherwise the entry's owner must be in the caller's visible owner
// set for the entry's activity.
func (h *Handler) canView(ctx context.Context, e models.Entry, userID primitive.ObjectID) bool {
	if e.OwnerID == userID {
		return true
	}
	res := sharedaccess.Resource{Type: "entry", ID: e.ID, OwnerID: e.OwnerID}
	if h.Access.CanAccess(ctx, res, userID, sharedaccess.LevelView) {
		return true
	}

	act, err := h.Activities.ByID(ctx, e.ActivityID)
	if err != nil || !act.Visible {
		return false
	}
	enrolled, err := h.Enrollments.IsEnrolled(ctx, userID, act.CourseID)
	if err != nil || !enrolled {
		return false
	}
	owners, ok := h.Visibility.VisibleEntryOwners(ctx, act, userID)
	if !ok {
		// Unresolvable activity context hides the entry, matching the
		// listing's skip of the whole activity.
		return false
	}
	if act.GroupMode == models.GroupModeSeparate && e.GroupID.IsZero() {
		// Ungrouped entries stay visible to everyone in the course.
		return true
	}
	for _, owner := range owners {
		if owner == e.OwnerID {
			return true
		}
	}
	return false
}

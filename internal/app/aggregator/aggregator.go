// Package aggregator merges per-activity visibility decisions into the
// ordered, paginated entry set a user is allowed to see.
package aggregator

import (
	"context"
	"sort"
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/lmshub/toolhub/internal/app/policy/visibility"
	"github.com/lmshub/toolhub/internal/domain/models"
)

// MaxPageSize bounds a single page of results.
const MaxPageSize = 100

// DefaultPageSize is used when the caller does not ask for a limit.
const DefaultPageSize = 50

// SubpluginSource names the registered tool plugins. Satisfied by
// *registry.Registry.
type SubpluginSource interface {
	Subplugins() []string
}

// FeatureGate is the subplugin-level gate. Satisfied by *cohortgate.Gate.
type FeatureGate interface {
	Allowed(ctx context.Context, subplugin string, userID primitive.ObjectID) bool
}

// ActivityDirectory lists the activities owned by a set of subplugins.
type ActivityDirectory interface {
	ActivitiesOf(ctx context.Context, subplugins []string) ([]models.Activity, error)
}

// CourseDirectory resolves course metadata in bulk.
type CourseDirectory interface {
	CoursesByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Course, error)
}

// EntrySource fetches entries for a set of activities in one call.
type EntrySource interface {
	EntriesOfActivities(ctx context.Context, activityIDs []primitive.ObjectID) ([]models.Entry, error)
}

// NameSource resolves user display names in bulk.
type NameSource interface {
	DisplayNames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error)
}

// EnrollmentChecker answers whether a user is enrolled in a course.
type EnrollmentChecker interface {
	IsEnrolled(ctx context.Context, userID, courseID primitive.ObjectID) (bool, error)
}

// CapabilityChecker answers capability questions in a course scope.
type CapabilityChecker interface {
	Has(ctx context.Context, userID primitive.ObjectID, capability string, scopeID primitive.ObjectID) bool
}

// OwnerResolver yields the visible entry owners for an activity.
// ok=false means the activity's context could not be resolved and the
// activity must be skipped entirely. Satisfied by *visibility.Resolver.
type OwnerResolver interface {
	VisibleEntryOwners(ctx context.Context, activity models.Activity, userID primitive.ObjectID) (owners []primitive.ObjectID, ok bool)
}

// Filters narrow the visible set; zero values mean "no constraint".
// All set filters must match (conjunction).
type Filters struct {
	CourseID   primitive.ObjectID
	ActivityID primitive.ObjectID
	Search     string
	Status     string
}

// Page selects a window of the sorted result.
type Page struct {
	Limit  int
	Offset int
}

// Item is one visible entry enriched with display context.
type Item struct {
	Entry        models.Entry       `json:"entry"`
	CourseID     primitive.ObjectID `json:"course_id"`
	CourseName   string             `json:"course_name"`
	ActivityName string             `json:"activity_name"`
	OwnerName    string             `json:"owner_name"`

	// Separator marks a (course, activity) boundary when the caller
	// asked for separators. Separator rows carry no entry.
	Separator bool `json:"separator,omitempty"`
}

// Result is one page of the visible set.
type Result struct {
	Items      []Item `json:"items"`
	TotalCount int    `json:"total_count"`
	HasMore    bool   `json:"has_more"`
}

// Aggregator combines the cohort gate, visibility resolution, and the
// entry store into the final visible set for a user.
type Aggregator struct {
	subplugins SubpluginSource
	gate       FeatureGate
	activities ActivityDirectory
	courses    CourseDirectory
	entries    EntrySource
	names      NameSource
	enroll     EnrollmentChecker
	caps       CapabilityChecker
	owners     OwnerResolver
	log        *zap.Logger
}

// New constructs an Aggregator over its collaborators.
func New(
	subplugins SubpluginSource,
	gate FeatureGate,
	activities ActivityDirectory,
	courses CourseDirectory,
	entries EntrySource,
	names NameSource,
	enroll EnrollmentChecker,
	caps CapabilityChecker,
	owners OwnerResolver,
	log *zap.Logger,
) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{
		subplugins: subplugins,
		gate:       gate,
		activities: activities,
		courses:    courses,
		entries:    entries,
		names:      names,
		enroll:     enroll,
		caps:       caps,
		owners:     owners,
		log:        log,
	}
}

// ownerKey memoizes visible-owner sets. Groups are course scoped, so
// every SEPARATE activity in a course yields the same owner set for a
// given user, and NONE/VISIBLE activities share the full enrolled set.
type ownerKey struct {
	courseID primitive.ObjectID
	separate bool
}

// Visible returns the sorted, paginated set of entries the user may
// see across all gated activities.
func (a *Aggregator) Visible(ctx context.Context, userID primitive.ObjectID, filters Filters, page Page) (Result, error) {
	eligible, err := a.eligibleActivities(ctx, userID, filters)
	if err != nil {
		return Result{}, err
	}
	if len(eligible) == 0 {
		return Result{Items: []Item{}}, nil
	}

	activityIDs := make([]primitive.ObjectID, 0, len(eligible))
	byActivity := make(map[primitive.ObjectID]models.Activity, len(eligible))
	courseIDSet := make(map[primitive.ObjectID]struct{})
	for _, act := range eligible {
		activityIDs = append(activityIDs, act.ID)
		byActivity[act.ID] = act
		courseIDSet[act.CourseID] = struct{}{}
	}

	// One batched fetch across all eligible activities.
	allEntries, err := a.entries.EntriesOfActivities(ctx, activityIDs)
	if err != nil {
		return Result{}, err
	}

	// A nil memoized set marks a failed resolution: the activity is
	// skipped outright, ungrouped entries included.
	ownerSets := make(map[ownerKey]map[primitive.ObjectID]struct{})
	ownerSet := func(act models.Activity) map[primitive.ObjectID]struct{} {
		key := ownerKey{courseID: act.CourseID, separate: act.GroupMode == models.GroupModeSeparate}
		if set, seen := ownerSets[key]; seen {
			return set
		}
		owners, ok := a.owners.VisibleEntryOwners(ctx, act, userID)
		if !ok {
			ownerSets[key] = nil
			return nil
		}
		set := make(map[primitive.ObjectID]struct{}, len(owners))
		for _, id := range owners {
			set[id] = struct{}{}
		}
		ownerSets[key] = set
		return set
	}

	searchCI := text.Fold(filters.Search)
	var visibleEntries []models.Entry
	ownerIDSet := make(map[primitive.ObjectID]struct{})
	for _, entry := range allEntries {
		act, ok := byActivity[entry.ActivityID]
		if !ok {
			continue
		}
		owners := ownerSet(act)
		if owners == nil {
			continue
		}
		if !a.entryVisible(entry, act, owners) {
			continue
		}
		if !matchesFilters(entry, searchCI, filters.Status) {
			continue
		}
		visibleEntries = append(visibleEntries, entry)
		ownerIDSet[entry.OwnerID] = struct{}{}
	}

	courseIDs := make([]primitive.ObjectID, 0, len(courseIDSet))
	for id := range courseIDSet {
		courseIDs = append(courseIDs, id)
	}
	courseByID, err := a.courses.CoursesByID(ctx, courseIDs)
	if err != nil {
		return Result{}, err
	}

	ownerIDs := make([]primitive.ObjectID, 0, len(ownerIDSet))
	for id := range ownerIDSet {
		ownerIDs = append(ownerIDs, id)
	}
	nameByID, err := a.names.DisplayNames(ctx, ownerIDs)
	if err != nil {
		return Result{}, err
	}

	items := make([]Item, 0, len(visibleEntries))
	for _, entry := range visibleEntries {
		act := byActivity[entry.ActivityID]
		items = append(items, Item{
			Entry:        entry,
			CourseID:     act.CourseID,
			CourseName:   courseByID[act.CourseID].FullName,
			ActivityName: act.Name,
			OwnerName:    nameByID[entry.OwnerID],
		})
	}

	sortItems(items)

	total := len(items)
	limit, offset := clampPage(page)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return Result{
		Items:      items[offset:end],
		TotalCount: total,
		HasMore:    end < total,
	}, nil
}

// WithSeparators inserts a boundary marker wherever the (course,
// activity) key changes. Ordering of the data rows is untouched.
func WithSeparators(items []Item) []Item {
	if len(items) == 0 {
		return items
	}
	out := make([]Item, 0, len(items)+8)
	var prev struct {
		courseID   primitive.ObjectID
		activityID primitive.ObjectID
	}
	for i, item := range items {
		if i == 0 || item.CourseID != prev.courseID || item.Entry.ActivityID != prev.activityID {
			out = append(out, Item{
				CourseID:     item.CourseID,
				CourseName:   item.CourseName,
				ActivityName: item.ActivityName,
				Separator:    true,
			})
			prev.courseID = item.CourseID
			prev.activityID = item.Entry.ActivityID
		}
		out = append(out, item)
	}
	return out
}

// eligibleActivities enumerates activities whose subplugin passes the
// cohort gate and where the user is enrolled with the base view
// capability. Gate and capability checks are per subplugin and per
// course, not per activity, so they are memoized across the loop.
func (a *Aggregator) eligibleActivities(ctx context.Context, userID primitive.ObjectID, filters Filters) ([]models.Activity, error) {
	names := a.subplugins.Subplugins()
	allowed := make([]string, 0, len(names))
	for _, name := range names {
		if a.gate.Allowed(ctx, name, userID) {
			allowed = append(allowed, name)
		}
	}
	if len(allowed) == 0 {
		return nil, nil
	}

	activities, err := a.activities.ActivitiesOf(ctx, allowed)
	if err != nil {
		return nil, err
	}

	courseOK := make(map[primitive.ObjectID]bool)
	var eligible []models.Activity
	for _, act := range activities {
		if !act.Visible {
			continue
		}
		if !filters.CourseID.IsZero() && act.CourseID != filters.CourseID {
			continue
		}
		if !filters.ActivityID.IsZero() && act.ID != filters.ActivityID {
			continue
		}
		ok, seen := courseOK[act.CourseID]
		if !seen {
			enrolled, err := a.enroll.IsEnrolled(ctx, userID, act.CourseID)
			if err != nil {
				a.log.Warn("enrollment check failed, skipping course",
					zap.String("course_id", act.CourseID.Hex()),
					zap.Error(err))
				courseOK[act.CourseID] = false
				continue
			}
			ok = enrolled && a.caps.Has(ctx, userID, visibility.CapViewEntries, act.CourseID)
			courseOK[act.CourseID] = ok
		}
		if ok {
			eligible = append(eligible, act)
		}
	}
	return eligible, nil
}

// entryVisible applies the per-entry visibility decision. Ungrouped
// entries bypass group mode entirely.
func (a *Aggregator) entryVisible(entry models.Entry, act models.Activity, owners map[primitive.ObjectID]struct{}) bool {
	if act.GroupMode == models.GroupModeSeparate && entry.GroupID.IsZero() {
		return true
	}
	_, ok := owners[entry.OwnerID]
	return ok
}

func matchesFilters(entry models.Entry, searchCI, status string) bool {
	if status != "" && entry.Status != status {
		return false
	}
	if searchCI == "" {
		return true
	}
	for _, field := range []string{
		entry.NameCI,
		text.Fold(entry.Market),
		text.Fold(entry.Industry),
		text.Fold(entry.Role),
		text.Fold(entry.BusinessGoal),
	} {
		if strings.Contains(field, searchCI) {
			return true
		}
	}
	return false
}

func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if ca, cb := text.Fold(a.CourseName), text.Fold(b.CourseName); ca != cb {
			return ca < cb
		}
		if aa, ab := text.Fold(a.ActivityName), text.Fold(b.ActivityName); aa != ab {
			return aa < ab
		}
		if !a.Entry.UpdatedAt.Equal(b.Entry.UpdatedAt) {
			return a.Entry.UpdatedAt.After(b.Entry.UpdatedAt)
		}
		return a.Entry.ID.Hex() < b.Entry.ID.Hex()
	})
}

func clampPage(page Page) (limit, offset int) {
	limit = page.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset = page.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

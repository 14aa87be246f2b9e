package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/lmshub/toolhub/internal/domain/models"
)

type fakeWorld struct {
	subplugins []string
	gated      map[string]bool // subplugin -> denied
	activities []models.Activity
	courses    map[primitive.ObjectID]models.Course
	entries    []models.Entry
	names      map[primitive.ObjectID]string
	enrolled   map[primitive.ObjectID]bool // course -> enrolled
	enrollErr  error
	caps       map[string]bool // capability -> has
	owners     map[primitive.ObjectID][]primitive.ObjectID // activity -> owners
	ownersDown map[primitive.ObjectID]bool // activity -> resolution failed
}

func (w *fakeWorld) Subplugins() []string { return w.subplugins }

func (w *fakeWorld) Allowed(ctx context.Context, subplugin string, userID primitive.ObjectID) bool {
	return !w.gated[subplugin]
}

func (w *fakeWorld) ActivitiesOf(ctx context.Context, subplugins []string) ([]models.Activity, error) {
	want := make(map[string]bool, len(subplugins))
	for _, s := range subplugins {
		want[s] = true
	}
	var out []models.Activity
	for _, act := range w.activities {
		if want[act.Subplugin] {
			out = append(out, act)
		}
	}
	return out, nil
}

func (w *fakeWorld) CoursesByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Course, error) {
	return w.courses, nil
}

func (w *fakeWorld) EntriesOfActivities(ctx context.Context, activityIDs []primitive.ObjectID) ([]models.Entry, error) {
	want := make(map[primitive.ObjectID]bool, len(activityIDs))
	for _, id := range activityIDs {
		want[id] = true
	}
	var out []models.Entry
	for _, e := range w.entries {
		if want[e.ActivityID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (w *fakeWorld) DisplayNames(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	return w.names, nil
}

func (w *fakeWorld) IsEnrolled(ctx context.Context, userID, courseID primitive.ObjectID) (bool, error) {
	if w.enrollErr != nil {
		return false, w.enrollErr
	}
	return w.enrolled[courseID], nil
}

func (w *fakeWorld) Has(ctx context.Context, userID primitive.ObjectID, capability string, scopeID primitive.ObjectID) bool {
	has, ok := w.caps[capability]
	if !ok {
		return true
	}
	return has
}

func (w *fakeWorld) VisibleEntryOwners(ctx context.Context, activity models.Activity, userID primitive.ObjectID) ([]primitive.ObjectID, bool) {
	if w.ownersDown[activity.ID] {
		return nil, false
	}
	return w.owners[activity.ID], true
}

func newAggregator(w *fakeWorld) *Aggregator {
	return New(w, w, w, w, w, w, w, w, w, zap.NewNop())
}

func entryAt(id, activityID, ownerID primitive.ObjectID, name string, updated time.Time) models.Entry {
	return models.Entry{
		ID:         id,
		ActivityID: activityID,
		OwnerID:    ownerID,
		Name:       name,
		NameCI:     text.Fold(name),
		Status:     "active",
		UpdatedAt:  updated,
	}
}

// oidWithSuffix builds a fixed ObjectID whose hex ends in the given
// byte, so id tie-break order in tests is predictable.
func oidWithSuffix(b byte) primitive.ObjectID {
	var id primitive.ObjectID
	id[11] = b
	id[0] = 1 // keep it non-zero
	return id
}

func TestVisibleOrderingIsDeterministic(t *testing.T) {
	ctx := context.Background()
	user := primitive.NewObjectID()
	owner := primitive.NewObjectID()

	courseA := primitive.NewObjectID()
	courseB := primitive.NewObjectID()
	actA := primitive.NewObjectID()
	actB := primitive.NewObjectID()

	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	w := &fakeWorld{
		subplugins: []string{"valuemapdoc"},
		activities: []models.Activity{
			{ID: actA, CourseID: courseA, Subplugin: "valuemapdoc", Name: "Maps", GroupMode: models.GroupModeNone, Visible: true},
			{ID: actB, CourseID: courseB, Subplugin: "valuemapdoc", Name: "Maps", GroupMode: models.GroupModeNone, Visible: true},
		},
		courses: map[primitive.ObjectID]models.Course{
			courseA: {ID: courseA, FullName: "zeta course"},
			courseB: {ID: courseB, FullName: "Alpha Course"},
		},
		entries: []models.Entry{
			entryAt(oidWithSuffix(3), actA, owner, "newest in zeta", base.Add(2*time.Hour)),
			entryAt(oidWithSuffix(2), actA, owner, "older in zeta", base),
			// Same activity and timestamp: id ascending breaks the tie.
			entryAt(oidWithSuffix(9), actB, owner, "tie high id", base),
			entryAt(oidWithSuffix(4), actB, owner, "tie low id", base),
		},
		names:    map[primitive.ObjectID]string{owner: "Pat Owner"},
		enrolled: map[primitive.ObjectID]bool{courseA: true, courseB: true},
		owners:   map[primitive.ObjectID][]primitive.ObjectID{actA: {owner}, actB: {owner}},
	}
	agg := newAggregator(w)

	first, err := agg.Visible(ctx, user, Filters{}, Page{})
	if err != nil {
		t.Fatalf("Visible: %v", err)
	}
	wantNames := []string{"tie low id", "tie high id", "newest in zeta", "older in zeta"}
	if len(first.Items) != len(wantNames) {
		t.Fatalf("got %d items, want %d", len(first.Items), len(wantNames))
	}
	for i, name := range wantNames {
		if first.Items[i].Entry.Name != name {
			t.Fatalf("items[%d] = %q, want %q", i, first.Items[i].Entry.Name, name)
		}
	}

	second, err := agg.Visible(ctx, user, Filters{}, Page{})
	if err != nil {
		t.Fatalf("Visible (repeat): %v", err)
	}
	for i := range first.Items {
		if first.Items[i].Entry.ID != second.Items[i].Entry.ID {
			t.Fatalf("order changed between identical queries at index %d", i)
		}
	}
}

func TestVisibleFiltersAreConjunctive(t *testing.T) {
	ctx := context.Background()
	user := primitive.NewObjectID()
	owner := primitive.NewObjectID()
	course := primitive.NewObjectID()
	act := primitive.NewObjectID()

	match := entryAt(primitive.NewObjectID(), act, owner, "Enterprise Sales Map", time.Now())
	match.Market = "Healthcare"
	wrongStatus := entryAt(primitive.NewObjectID(), act, owner, "Enterprise Sales Map", time.Now())
	wrongStatus.Status = "draft"
	wrongText := entryAt(primitive.NewObjectID(), act, owner, "Retail Plan", time.Now())

	w := &fakeWorld{
		subplugins: []string{"valuemapdoc"},
		activities: []models.Activity{
			{ID: act, CourseID: course, Subplugin: "valuemapdoc", Name: "Maps", GroupMode: models.GroupModeNone, Visible: true},
		},
		courses:  map[primitive.ObjectID]models.Course{course: {ID: course, FullName: "Course"}},
		entries:  []models.Entry{match, wrongStatus, wrongText},
		names:    map[primitive.ObjectID]string{owner: "Pat"},
		enrolled: map[primitive.ObjectID]bool{course: true},
		owners:   map[primitive.ObjectID][]primitive.ObjectID{act: {owner}},
	}
	agg := newAggregator(w)

	res, err := agg.Visible(ctx, user, Filters{Search: "SALES", Status: "active"}, Page{})
	if err != nil {
		t.Fatalf("Visible: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Entry.ID != match.ID {
		t.Fatalf("got %d items, want exactly the matching entry", len(res.Items))
	}

	// Search also covers the designated metadata fields.
	res, err = agg.Visible(ctx, user, Filters{Search: "healthcare"}, Page{})
	if err != nil {
		t.Fatalf("Visible: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Entry.ID != match.ID {
		t.Fatalf("market field search: got %d items, want 1", len(res.Items))
	}
}

func TestVisiblePaginationClamping(t *testing.T) {
	ctx := context.Background()
	user := primitive.NewObjectID()
	owner := primitive.NewObjectID()
	course := primitive.NewObjectID()
	act := primitive.NewObjectID()

	w := &fakeWorld{
		subplugins: []string{"valuemapdoc"},
		activities: []models.Activity{
			{ID: act, CourseID: course, Subplugin: "valuemapdoc", Name: "Maps", GroupMode: models.GroupModeNone, Visible: true},
		},
		courses:  map[primitive.ObjectID]models.Course{course: {ID: course, FullName: "Course"}},
		names:    map[primitive.ObjectID]string{owner: "Pat"},
		enrolled: map[primitive.ObjectID]bool{course: true},
		owners:   map[primitive.ObjectID][]primitive.ObjectID{act: {owner}},
	}
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		w.entries = append(w.entries,
			entryAt(primitive.NewObjectID(), act, owner, "entry", base.Add(time.Duration(i)*time.Minute)))
	}
	agg := newAggregator(w)

	tests := []struct {
		name      string
		page      Page
		wantLen   int
		wantMore  bool
		wantTotal int
	}{
		{"oversized limit clamped", Page{Limit: 500}, MaxPageSize, true, 120},
		{"zero limit defaults", Page{}, DefaultPageSize, true, 120},
		{"negative offset clamped", Page{Limit: 10, Offset: -5}, 10, true, 120},
		{"offset past end", Page{Limit: 10, Offset: 1000}, 0, false, 120},
		{"last partial page", Page{Limit: 50, Offset: 100}, 20, false, 120},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := agg.Visible(ctx, user, Filters{}, tc.page)
			if err != nil {
				t.Fatalf("Visible: %v", err)
			}
			if len(res.Items) != tc.wantLen {
				t.Fatalf("len = %d, want %d", len(res.Items), tc.wantLen)
			}
			if res.HasMore != tc.wantMore {
				t.Fatalf("HasMore = %v, want %v", res.HasMore, tc.wantMore)
			}
			if res.TotalCount != tc.wantTotal {
				t.Fatalf("TotalCount = %d, want %d", res.TotalCount, tc.wantTotal)
			}
		})
	}
}

func TestVisibleUngroupedEntryBypassesSeparateMode(t *testing.T) {
	ctx := context.Background()
	user := primitive.NewObjectID()
	stranger := primitive.NewObjectID()
	course := primitive.NewObjectID()
	act := primitive.NewObjectID()

	grouped := entryAt(primitive.NewObjectID(), act, stranger, "grouped", time.Now())
	grouped.GroupID = primitive.NewObjectID()
	ungrouped := entryAt(primitive.NewObjectID(), act, stranger, "ungrouped", time.Now())

	w := &fakeWorld{
		subplugins: []string{"valuemapdoc"},
		activities: []models.Activity{
			{ID: act, CourseID: course, Subplugin: "valuemapdoc", Name: "Maps", GroupMode: models.GroupModeSeparate, Visible: true},
		},
		courses:  map[primitive.ObjectID]models.Course{course: {ID: course, FullName: "Course"}},
		entries:  []models.Entry{grouped, ungrouped},
		names:    map[primitive.ObjectID]string{stranger: "Sam"},
		enrolled: map[primitive.ObjectID]bool{course: true},
		// The querying user shares no group with the stranger.
		owners: map[primitive.ObjectID][]primitive.ObjectID{act: {user}},
	}
	agg := newAggregator(w)

	res, err := agg.Visible(ctx, user, Filters{}, Page{})
	if err != nil {
		t.Fatalf("Visible: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Entry.ID != ungrouped.ID {
		t.Fatalf("got %d items, want only the ungrouped entry", len(res.Items))
	}
}

func TestVisibleSkipsActivityWhenOwnerResolutionFails(t *testing.T) {
	ctx := context.Background()
	user := primitive.NewObjectID()
	stranger := primitive.NewObjectID()
	course := primitive.NewObjectID()
	act := primitive.NewObjectID()

	// Ungrouped entries normally bypass separate mode, but a failed
	// owner resolution must suppress the whole activity.
	ungrouped := entryAt(primitive.NewObjectID(), act, stranger, "ungrouped", time.Now())
	own := entryAt(primitive.NewObjectID(), act, user, "own", time.Now())

	w := &fakeWorld{
		subplugins: []string{"valuemapdoc"},
		activities: []models.Activity{
			{ID: act, CourseID: course, Subplugin: "valuemapdoc", Name: "Maps", GroupMode: models.GroupModeSeparate, Visible: true},
		},
		courses:    map[primitive.ObjectID]models.Course{course: {ID: course, FullName: "Course"}},
		entries:    []models.Entry{ungrouped, own},
		names:      map[primitive.ObjectID]string{stranger: "Sam", user: "Pat"},
		enrolled:   map[primitive.ObjectID]bool{course: true},
		ownersDown: map[primitive.ObjectID]bool{act: true},
	}
	agg := newAggregator(w)

	res, err := agg.Visible(ctx, user, Filters{}, Page{})
	if err != nil {
		t.Fatalf("Visible: %v", err)
	}
	if len(res.Items) != 0 {
		t.Fatalf("got %d items, want none from an unresolvable activity", len(res.Items))
	}
}

func TestVisibleExcludesGatedSubpluginsAndHiddenActivities(t *testing.T) {
	ctx := context.Background()
	user := primitive.NewObjectID()
	owner := primitive.NewObjectID()
	course := primitive.NewObjectID()
	actOpen := primitive.NewObjectID()
	actGated := primitive.NewObjectID()
	actHidden := primitive.NewObjectID()

	w := &fakeWorld{
		subplugins: []string{"valuemapdoc", "cluster"},
		gated:      map[string]bool{"cluster": true},
		activities: []models.Activity{
			{ID: actOpen, CourseID: course, Subplugin: "valuemapdoc", Name: "Open", GroupMode: models.GroupModeNone, Visible: true},
			{ID: actGated, CourseID: course, Subplugin: "cluster", Name: "Gated", GroupMode: models.GroupModeNone, Visible: true},
			{ID: actHidden, CourseID: course, Subplugin: "valuemapdoc", Name: "Hidden", GroupMode: models.GroupModeNone, Visible: false},
		},
		courses: map[primitive.ObjectID]models.Course{course: {ID: course, FullName: "Course"}},
		entries: []models.Entry{
			entryAt(primitive.NewObjectID(), actOpen, owner, "visible", time.Now()),
			entryAt(primitive.NewObjectID(), actGated, owner, "gated away", time.Now()),
			entryAt(primitive.NewObjectID(), actHidden, owner, "hidden away", time.Now()),
		},
		names:    map[primitive.ObjectID]string{owner: "Pat"},
		enrolled: map[primitive.ObjectID]bool{course: true},
		owners: map[primitive.ObjectID][]primitive.ObjectID{
			actOpen: {owner}, actGated: {owner}, actHidden: {owner},
		},
	}
	agg := newAggregator(w)

	res, err := agg.Visible(ctx, user, Filters{}, Page{})
	if err != nil {
		t.Fatalf("Visible: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].Entry.Name != "visible" {
		t.Fatalf("got %d items, want only the open activity's entry", len(res.Items))
	}
}

func TestVisibleSkipsCourseOnEnrollmentError(t *testing.T) {
	ctx := context.Background()
	user := primitive.NewObjectID()
	course := primitive.NewObjectID()
	act := primitive.NewObjectID()

	w := &fakeWorld{
		subplugins: []string{"valuemapdoc"},
		activities: []models.Activity{
			{ID: act, CourseID: course, Subplugin: "valuemapdoc", Name: "Maps", GroupMode: models.GroupModeNone, Visible: true},
		},
		enrollErr: errors.New("directory offline"),
	}
	agg := newAggregator(w)

	res, err := agg.Visible(ctx, user, Filters{}, Page{})
	if err != nil {
		t.Fatalf("Visible: %v", err)
	}
	if len(res.Items) != 0 {
		t.Fatalf("got %d items, want none when enrollment cannot be resolved", len(res.Items))
	}
}

func TestWithSeparators(t *testing.T) {
	courseA := primitive.NewObjectID()
	courseB := primitive.NewObjectID()
	actA := primitive.NewObjectID()
	actB := primitive.NewObjectID()

	item := func(courseID, activityID primitive.ObjectID, name string) Item {
		return Item{
			Entry:    models.Entry{ID: primitive.NewObjectID(), ActivityID: activityID, Name: name},
			CourseID: courseID,
		}
	}
	items := []Item{
		item(courseA, actA, "a1"),
		item(courseA, actA, "a2"),
		item(courseA, actB, "b1"),
		item(courseB, actB, "c1"),
	}

	out := WithSeparators(items)
	if len(out) != 7 {
		t.Fatalf("got %d rows, want 7 (4 entries + 3 separators)", len(out))
	}
	wantSep := []bool{true, false, false, true, false, true, false}
	for i, sep := range wantSep {
		if out[i].Separator != sep {
			t.Fatalf("row %d separator = %v, want %v", i, out[i].Separator, sep)
		}
	}
	// Data rows keep their relative order.
	names := []string{}
	for _, row := range out {
		if !row.Separator {
			names = append(names, row.Entry.Name)
		}
	}
	want := []string{"a1", "a2", "b1", "c1"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("data order changed: %v", names)
		}
	}
}

func TestWithSeparatorsEmpty(t *testing.T) {
	if out := WithSeparators(nil); len(out) != 0 {
		t.Fatalf("got %d rows for empty input", len(out))
	}
}

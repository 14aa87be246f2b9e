package entries_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lmshub/toolhub/internal/app/aggregator"
	"github.com/lmshub/toolhub/internal/app/features/entries"
	"github.com/lmshub/toolhub/internal/app/plugins/cluster"
	"github.com/lmshub/toolhub/internal/app/plugins/valuemapdoc"
	"github.com/lmshub/toolhub/internal/app/policy/cohortgate"
	"github.com/lmshub/toolhub/internal/app/policy/sharedaccess"
	"github.com/lmshub/toolhub/internal/app/policy/visibility"
	"github.com/lmshub/toolhub/internal/app/registry"
	activitystore "github.com/lmshub/toolhub/internal/app/store/activities"
	restrictionstore "github.com/lmshub/toolhub/internal/app/store/cohortrestrictions"
	cohortstore "github.com/lmshub/toolhub/internal/app/store/cohorts"
	coursestore "github.com/lmshub/toolhub/internal/app/store/courses"
	entrystore "github.com/lmshub/toolhub/internal/app/store/entries"
	enrollmentstore "github.com/lmshub/toolhub/internal/app/store/enrollments"
	grantstore "github.com/lmshub/toolhub/internal/app/store/grants"
	userstore "github.com/lmshub/toolhub/internal/app/store/users"
	"github.com/lmshub/toolhub/internal/app/system/auth"
	"github.com/lmshub/toolhub/internal/app/system/caps"
	"github.com/lmshub/toolhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func newHandler(db *mongo.Database) *entries.Handler {
	log := zap.NewNop()

	users := userstore.New(db)
	activities := activitystore.New(db)
	courses := coursestore.New(db)
	entryStore := entrystore.New(db)
	enrollments := enrollmentstore.New(db)
	grants := grantstore.New(db)

	gate := cohortgate.New(restrictionstore.New(db), cohortstore.New(db), cohortgate.WithLogger(log))
	reg := registry.New(gate, log,
		valuemapdoc.New(entryStore, log),
		cluster.New(grants, log),
	)
	checker := caps.New(users, log)
	vis := visibility.New(enrollments, checker, log)
	access := sharedaccess.New(grants, sharedaccess.WithLogger(log))

	agg := aggregator.New(reg, gate, activities, courses, entryStore, users, enrollments, checker, vis, log)
	return entries.NewHandler(agg, entryStore, activities, enrollments, access, vis, log)
}

func as(r *http.Request, userID primitive.ObjectID, role string) *http.Request {
	return auth.WithTestUser(r, &auth.SessionUser{ID: userID.Hex(), Role: role})
}

func TestEntriesFeature(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	h := newHandler(db)

	ctx, cancel := testutil.TestContext()
	defer cancel()

	alice := fx.CreateUser(ctx, "Alice Adams", "member")
	bob := fx.CreateUser(ctx, "Bob Burns", "member")
	carol := fx.CreateUser(ctx, "Carol Chen", "member")

	course := fx.CreateCourse(ctx, "Algebra")
	act := fx.CreateActivity(ctx, course.ID, "valuemapdoc", "Value Maps", "separate")

	for _, u := range []primitive.ObjectID{alice.ID, bob.ID, carol.ID} {
		fx.Enroll(ctx, u, course.ID)
	}

	g1 := fx.CreateGroup(ctx, course.ID, "Group One")
	g2 := fx.CreateGroup(ctx, course.ID, "Group Two")
	fx.AddGroupMember(ctx, g1.ID, alice.ID, course.ID)
	fx.AddGroupMember(ctx, g2.ID, bob.ID, course.ID)

	aliceEntry := fx.CreateEntry(ctx, act.ID, alice.ID, g1.ID, "Alice Plan")
	bobEntry := fx.CreateEntry(ctx, act.ID, bob.ID, g2.ID, "Bob Plan")
	fx.CreateEntry(ctx, act.ID, carol.ID, primitive.NilObjectID, "Carol Plan")

	t.Run("list respects separate groups and ungrouped fallthrough", func(t *testing.T) {
		req := as(httptest.NewRequest("GET", "/entries", nil), alice.ID, "member")
		rec := httptest.NewRecorder()
		h.ServeList(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200 (body %q)", rec.Code, rec.Body.String())
		}
		var result aggregator.Result
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.TotalCount != 2 {
			t.Fatalf("total: got %d, want 2 (own group + ungrouped)", result.TotalCount)
		}
		for _, item := range result.Items {
			if item.Entry.OwnerID == bob.ID {
				t.Error("bob's separate-group entry leaked to alice")
			}
		}
	})

	t.Run("list with separators", func(t *testing.T) {
		req := as(httptest.NewRequest("GET", "/entries?separators=1", nil), alice.ID, "member")
		rec := httptest.NewRecorder()
		h.ServeList(rec, req)

		var result aggregator.Result
		if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(result.Items) != 3 {
			t.Fatalf("items: got %d, want 3 (1 separator + 2 entries)", len(result.Items))
		}
		if !result.Items[0].Separator {
			t.Error("expected a leading separator row")
		}
	})

	t.Run("malformed course filter", func(t *testing.T) {
		req := as(httptest.NewRequest("GET", "/entries?course=zzz", nil), alice.ID, "member")
		rec := httptest.NewRecorder()
		h.ServeList(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", rec.Code)
		}
	})

	t.Run("create sanitizes and stamps the owner", func(t *testing.T) {
		body := `{"activity_id":"` + act.ID.Hex() + `","group_id":"` + g1.ID.Hex() + `","name":"<b>Launch</b> Plan","market":"<script>x</script>EMEA"}`
		req := as(httptest.NewRequest("POST", "/entries", strings.NewReader(body)), alice.ID, "member")
		rec := httptest.NewRecorder()
		h.ServeCreate(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("status: got %d, want 201 (body %q)", rec.Code, rec.Body.String())
		}
		var created struct {
			Name    string `json:"name"`
			Market  string `json:"market"`
			OwnerID string `json:"owner_id"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if created.Name != "Launch Plan" {
			t.Errorf("name: got %q, want markup stripped", created.Name)
		}
		if created.Market != "EMEA" {
			t.Errorf("market: got %q, want %q", created.Market, "EMEA")
		}
		if created.OwnerID != alice.ID.Hex() {
			t.Errorf("owner: got %q, want the caller", created.OwnerID)
		}
	})

	t.Run("create in a foreign group is forbidden", func(t *testing.T) {
		body := `{"activity_id":"` + act.ID.Hex() + `","group_id":"` + g2.ID.Hex() + `","name":"Sneaky"}`
		req := as(httptest.NewRequest("POST", "/entries", strings.NewReader(body)), alice.ID, "member")
		rec := httptest.NewRecorder()
		h.ServeCreate(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status: got %d, want 403", rec.Code)
		}
	})

	t.Run("single entry hidden across separate groups", func(t *testing.T) {
		req := as(httptest.NewRequest("GET", "/entries/"+bobEntry.ID.Hex(), nil), alice.ID, "member")
		req = testutil.WithChiURLParam(req, "entryID", bobEntry.ID.Hex())
		rec := httptest.NewRecorder()
		h.ServeGet(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status: got %d, want 404", rec.Code)
		}
	})

	t.Run("view grant opens a hidden entry", func(t *testing.T) {
		fx.Grant(ctx, "entry", bobEntry.ID, alice.ID, "view", nil)

		req := as(httptest.NewRequest("GET", "/entries/"+bobEntry.ID.Hex(), nil), alice.ID, "member")
		req = testutil.WithChiURLParam(req, "entryID", bobEntry.ID.Hex())
		rec := httptest.NewRecorder()
		h.ServeGet(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200 (body %q)", rec.Code, rec.Body.String())
		}
	})

	t.Run("view grant does not allow editing", func(t *testing.T) {
		body := `{"name":"Rewritten"}`
		req := as(httptest.NewRequest("PUT", "/entries/"+bobEntry.ID.Hex(), strings.NewReader(body)), alice.ID, "member")
		req = testutil.WithChiURLParam(req, "entryID", bobEntry.ID.Hex())
		rec := httptest.NewRecorder()
		h.ServeUpdate(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status: got %d, want 403", rec.Code)
		}
	})

	t.Run("owner edits content only", func(t *testing.T) {
		body := `{"name":"Alice Plan v2","strategy":"<p>Go upmarket</p>"}`
		req := as(httptest.NewRequest("PUT", "/entries/"+aliceEntry.ID.Hex(), strings.NewReader(body)), alice.ID, "member")
		req = testutil.WithChiURLParam(req, "entryID", aliceEntry.ID.Hex())
		rec := httptest.NewRecorder()
		h.ServeUpdate(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200 (body %q)", rec.Code, rec.Body.String())
		}
		var updated struct {
			Name    string `json:"name"`
			OwnerID string `json:"owner_id"`
			GroupID string `json:"group_id"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if updated.Name != "Alice Plan v2" {
			t.Errorf("name: got %q", updated.Name)
		}
		if updated.OwnerID != alice.ID.Hex() || updated.GroupID != g1.ID.Hex() {
			t.Error("ownership or group changed on a content update")
		}
	})

	t.Run("unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeList(rec, httptest.NewRequest("GET", "/entries", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status: got %d, want 401", rec.Code)
		}
	})
}

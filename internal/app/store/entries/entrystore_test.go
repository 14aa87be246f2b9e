package entrystore_test

import (
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	entrystore "github.com/lmshub/toolhub/internal/app/store/entries"
	"github.com/lmshub/toolhub/internal/domain/models"
	"github.com/lmshub/toolhub/internal/testutil"
)

func TestCreateSanitizesContent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := entrystore.New(db)
	created, err := store.Create(ctx, models.Entry{
		ActivityID: primitive.NewObjectID(),
		OwnerID:    primitive.NewObjectID(),
		Name:       "<script>alert('x')</script>Enterprise Map",
		Market:     "<b>Healthcare</b>",
		Strategy:   `<p>Lead with value</p><iframe src="https://evil.example"></iframe>`,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if strings.Contains(created.Name, "<") {
		t.Errorf("name kept markup: %q", created.Name)
	}
	if created.Market != "Healthcare" {
		t.Errorf("market = %q, want plain text", created.Market)
	}
	if !strings.Contains(created.Strategy, "<p>Lead with value</p>") {
		t.Errorf("strategy lost safe formatting: %q", created.Strategy)
	}
	if strings.Contains(created.Strategy, "iframe") {
		t.Errorf("strategy kept iframe: %q", created.Strategy)
	}
	if created.NameCI == "" || created.NameCI != strings.ToLower(created.NameCI) {
		t.Errorf("name_ci not folded: %q", created.NameCI)
	}
	if created.Status != "active" {
		t.Errorf("default status = %q, want active", created.Status)
	}
}

func TestUpdateContentDoesNotTouchOwnership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := entrystore.New(db)
	owner := primitive.NewObjectID()
	activity := primitive.NewObjectID()
	group := primitive.NewObjectID()

	created, err := store.Create(ctx, models.Entry{
		ActivityID: activity,
		OwnerID:    owner,
		GroupID:    group,
		Name:       "Original",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	update := created
	update.Name = "Renamed"
	update.OwnerID = primitive.NewObjectID()
	update.ActivityID = primitive.NewObjectID()
	if err := store.UpdateContent(ctx, created.ID, update); err != nil {
		t.Fatalf("UpdateContent: %v", err)
	}

	got, err := store.ByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if got.Name != "Renamed" {
		t.Errorf("name = %q, want Renamed", got.Name)
	}
	if got.OwnerID != owner || got.ActivityID != activity || got.GroupID != group {
		t.Error("ownership, activity, or group changed on content update")
	}
}

func TestUpdateContentMissingEntry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := entrystore.New(db)
	err := store.UpdateContent(ctx, primitive.NewObjectID(), models.Entry{Name: "x"})
	if err != entrystore.ErrEntryNotFound {
		t.Fatalf("err = %v, want ErrEntryNotFound", err)
	}
}

func TestEntriesOfActivitiesBatches(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	store := entrystore.New(db)

	actA := primitive.NewObjectID()
	actB := primitive.NewObjectID()
	actOther := primitive.NewObjectID()
	owner := primitive.NewObjectID()

	fx.CreateEntry(ctx, actA, owner, primitive.NilObjectID, "a1")
	fx.CreateEntry(ctx, actA, owner, primitive.NilObjectID, "a2")
	fx.CreateEntry(ctx, actB, owner, primitive.NilObjectID, "b1")
	fx.CreateEntry(ctx, actOther, owner, primitive.NilObjectID, "excluded")

	got, err := store.EntriesOfActivities(ctx, []primitive.ObjectID{actA, actB})
	if err != nil {
		t.Fatalf("EntriesOfActivities: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	for _, e := range got {
		if e.ActivityID == actOther {
			t.Fatal("entry from an unrequested activity returned")
		}
	}

	got, err = store.EntriesOfActivities(ctx, nil)
	if err != nil {
		t.Fatalf("EntriesOfActivities(nil): %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("empty activity set returned %d entries", len(got))
	}
}

func TestCountByOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	store := entrystore.New(db)
	owner := primitive.NewObjectID()
	act := primitive.NewObjectID()

	for i := 0; i < 2; i++ {
		if _, err := store.Create(ctx, models.Entry{ActivityID: act, OwnerID: owner, Name: "mine"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	draft := models.Entry{ActivityID: act, OwnerID: owner, Name: "draft", Status: "draft"}
	if _, err := store.Create(ctx, draft); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Create(ctx, models.Entry{ActivityID: act, OwnerID: primitive.NewObjectID(), Name: "other"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	total, err := store.CountByOwner(ctx, owner)
	if err != nil {
		t.Fatalf("CountByOwner: %v", err)
	}
	if total != 3 {
		t.Fatalf("CountByOwner = %d, want 3", total)
	}
	active, err := store.CountByOwnerAndStatus(ctx, owner, "active")
	if err != nil {
		t.Fatalf("CountByOwnerAndStatus: %v", err)
	}
	if active != 2 {
		t.Fatalf("active count = %d, want 2", active)
	}
}

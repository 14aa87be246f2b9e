package indexes_test

import (
	"testing"

	"github.com/lmshub/toolhub/internal/app/system/indexes"
	"github.com/lmshub/toolhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesUniqueIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	checks := map[string]string{
		"users":                "uniq_users_email",
		"cohort_members":       "uniq_cohort_members_pair",
		"cohort_restrictions":  "uniq_restrictions_pair",
		"enrollments":          "uniq_enrollments_pair",
		"group_memberships":    "uniq_group_memberships_pair",
		"shared_access_grants": "uniq_grants_resource_user",
	}

	for coll, want := range checks {
		cur, err := db.Collection(coll).Indexes().List(ctx)
		if err != nil {
			t.Fatalf("%s: list indexes: %v", coll, err)
		}
		found := false
		for cur.Next(ctx) {
			var idx bson.M
			if err := cur.Decode(&idx); err != nil {
				continue
			}
			if name, ok := idx["name"].(string); ok && name == want {
				found = true
			}
		}
		cur.Close(ctx)
		if !found {
			t.Errorf("%s: expected unique index %q", coll, want)
		}
	}
}

// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.

The unique compound indexes are load bearing: restriction adds are
idempotent because (subplugin, cohort_id) is unique, and grant upserts
converge because (resource_type, resource_id, user_id) is unique.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureCohorts(ctx, db); err != nil {
		problems = append(problems, "cohorts: "+err.Error())
	}
	if err := ensureCohortMembers(ctx, db); err != nil {
		problems = append(problems, "cohort_members: "+err.Error())
	}
	if err := ensureCohortRestrictions(ctx, db); err != nil {
		problems = append(problems, "cohort_restrictions: "+err.Error())
	}
	if err := ensureEnrollments(ctx, db); err != nil {
		problems = append(problems, "enrollments: "+err.Error())
	}
	if err := ensureActivities(ctx, db); err != nil {
		problems = append(problems, "activities: "+err.Error())
	}
	if err := ensureGroupMemberships(ctx, db); err != nil {
		problems = append(problems, "group_memberships: "+err.Error())
	}
	if err := ensureEntries(ctx, db); err != nil {
		problems = append(problems, "entries: "+err.Error())
	}
	if err := ensureGrants(ctx, db); err != nil {
		problems = append(problems, "shared_access_grants: "+err.Error())
	}
	if err := ensureActivityLog(ctx, db); err != nil {
		problems = append(problems, "activity_log: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameUnique(a, b *bool) bool {
	av := a != nil && *a
	bv := b != nil && *b
	return av == bv
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, desired []mongo.IndexModel) error {
	existing := map[string]existingIndex{} // key signature -> index
	cur, err := coll.Indexes().List(ctx)
	if err == nil {
		for cur.Next(ctx) {
			var idx existingIndex
			if err := cur.Decode(&idx); err != nil {
				zap.L().Warn("failed to decode existing index",
					zap.String("collection", coll.Name()),
					zap.Error(err))
				continue
			}
			existing[keySig(idx.Key)] = idx
		}
		cur.Close(ctx)
	}

	var errs []string
	for _, m := range desired {
		var name string
		var unique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if sameUnique(unique, ex.Unique) {
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("keys", sig))
				continue
			}
			// Options mismatch (e.g. upgrading to unique). Drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", name),
				zap.String("keys", sig),
				zap.Error(err))
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique != nil && *unique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                             */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
	})
}

func ensureCohorts(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("cohorts"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_cohorts_name_ci"),
		},
	})
}

func ensureCohortMembers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("cohort_members"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "cohort_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_cohort_members_pair"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_cohort_members_user"),
		},
	})
}

func ensureCohortRestrictions(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("cohort_restrictions"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subplugin", Value: 1}, {Key: "cohort_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_restrictions_pair"),
		},
	})
}

func ensureEnrollments(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("enrollments"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "course_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_enrollments_pair"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_enrollments_user"),
		},
	})
}

func ensureActivities(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("activities"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "subplugin", Value: 1}},
			Options: options.Index().SetName("idx_activities_subplugin"),
		},
		{
			Keys:    bson.D{{Key: "course_id", Value: 1}},
			Options: options.Index().SetName("idx_activities_course"),
		},
	})
}

func ensureGroupMemberships(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("group_memberships"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_group_memberships_pair"),
		},
		// User's groups within one course (separate group mode).
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "course_id", Value: 1}},
			Options: options.Index().SetName("idx_group_memberships_user_course"),
		},
	})
}

func ensureEntries(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("entries"), []mongo.IndexModel{
		// Batched fetch keyed by the eligible activity set.
		{
			Keys:    bson.D{{Key: "activity_id", Value: 1}, {Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_entries_activity_updated"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_entries_owner_status"),
		},
	})
}

func ensureGrants(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("shared_access_grants"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "resource_type", Value: 1},
				{Key: "resource_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_grants_resource_user"),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_grants_user_expiry"),
		},
	})
}

func ensureActivityLog(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("activity_log"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_activity_log_created"),
		},
	})
}

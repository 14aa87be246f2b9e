// internal/app/store/cohortrestrictions/restrictionstore.go
package restrictionstore

import (
	"context"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lmshub/toolhub/internal/domain/models"
)

// Store reads and writes the per-subplugin cohort restriction rows.
// The unique (subplugin, cohort_id) index makes Add idempotent.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("cohort_restrictions")}
}

// Add inserts a restriction row. It reports false when the pair
// already exists, which is not an error.
func (s *Store) Add(ctx context.Context, subplugin string, cohortID, createdBy primitive.ObjectID) (bool, error) {
	_, err := s.c.InsertOne(ctx, models.CohortRestriction{
		ID:        primitive.NewObjectID(),
		Subplugin: subplugin,
		CohortID:  cohortID,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Remove deletes a restriction row. Removing an absent pair succeeds.
func (s *Store) Remove(ctx context.Context, subplugin string, cohortID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"subplugin": subplugin, "cohort_id": cohortID})
	return err
}

// Clear removes every restriction for a subplugin, returning it to the
// open policy.
func (s *Store) Clear(ctx context.Context, subplugin string) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"subplugin": subplugin})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// RestrictedCohorts returns the cohort IDs restricting a subplugin.
// An empty result means the subplugin is unrestricted.
func (s *Store) RestrictedCohorts(ctx context.Context, subplugin string) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"subplugin": subplugin})
	if err != nil {
		return nil, err
	}
	var rows []models.CohortRestriction
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.CohortID)
	}
	return ids, nil
}

// BySubplugin returns the full restriction rows for admin listings.
func (s *Store) BySubplugin(ctx context.Context, subplugin string) ([]models.CohortRestriction, error) {
	cur, err := s.c.Find(ctx, bson.M{"subplugin": subplugin})
	if err != nil {
		return nil, err
	}
	var rows []models.CohortRestriction
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

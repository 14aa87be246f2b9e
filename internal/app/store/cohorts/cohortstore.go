// internal/app/store/cohorts/cohortstore.go
package cohortstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lmshub/toolhub/internal/domain/models"
)

// Store reads the cohort reference data and its membership rows.
// Cohorts are owned by the external identity system; this store never
// writes them outside of test fixtures.
type Store struct {
	cohorts *mongo.Collection
	members *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		cohorts: db.Collection("cohorts"),
		members: db.Collection("cohort_members"),
	}
}

// ListAll returns every cohort, sorted by folded name, for the admin
// cohort picker.
func (s *Store) ListAll(ctx context.Context) ([]models.Cohort, error) {
	cur, err := s.cohorts.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var out []models.Cohort
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ByID returns one cohort.
func (s *Store) ByID(ctx context.Context, id primitive.ObjectID) (models.Cohort, error) {
	var c models.Cohort
	if err := s.cohorts.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return models.Cohort{}, err
	}
	return c, nil
}

// CohortsOf returns the cohort IDs the user belongs to.
func (s *Store) CohortsOf(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.members.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	var rows []models.CohortMember
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.CohortID)
	}
	return ids, nil
}

// UsersInCohorts counts the distinct users across a set of cohorts.
// Used for restriction statistics, not for access decisions.
func (s *Store) UsersInCohorts(ctx context.Context, cohortIDs []primitive.ObjectID) (int, error) {
	if len(cohortIDs) == 0 {
		return 0, nil
	}
	users, err := s.members.Distinct(ctx, "user_id", bson.M{"cohort_id": bson.M{"$in": cohortIDs}})
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

// internal/app/store/activities/activitystore.go
package activitystore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lmshub/toolhub/internal/domain/models"
)

// Store reads the activity directory. Activities and their group modes
// are configured per course externally; this plugin only reads them.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("activities")}
}

// ByID returns one activity.
func (s *Store) ByID(ctx context.Context, id primitive.ObjectID) (models.Activity, error) {
	var a models.Activity
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return models.Activity{}, err
	}
	return a, nil
}

// ActivitiesOf returns every activity owned by the given subplugins.
func (s *Store) ActivitiesOf(ctx context.Context, subplugins []string) ([]models.Activity, error) {
	if len(subplugins) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"subplugin": bson.M{"$in": subplugins}})
	if err != nil {
		return nil, err
	}
	var out []models.Activity
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ByCourse returns the activities of one course.
func (s *Store) ByCourse(ctx context.Context, courseID primitive.ObjectID) ([]models.Activity, error) {
	cur, err := s.c.Find(ctx, bson.M{"course_id": courseID})
	if err != nil {
		return nil, err
	}
	var out []models.Activity
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// internal/app/store/courses/coursestore.go
package coursestore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lmshub/toolhub/internal/domain/models"
)

// Store reads the course directory.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("courses")}
}

// ByID returns one course.
func (s *Store) ByID(ctx context.Context, id primitive.ObjectID) (models.Course, error) {
	var c models.Course
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return models.Course{}, err
	}
	return c, nil
}

// CoursesByID fetches a set of courses in one query, keyed by ID.
// Missing IDs are simply absent from the map.
func (s *Store) CoursesByID(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Course, error) {
	out := make(map[primitive.ObjectID]models.Course, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var rows []models.Course
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	for _, c := range rows {
		out[c.ID] = c
	}
	return out, nil
}

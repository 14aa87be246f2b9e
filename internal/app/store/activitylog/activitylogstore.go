// internal/app/store/activitylog/activitylogstore.go
package activitylogstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lmshub/toolhub/internal/domain/models"
)

// Action names recorded by the admin and sharing surfaces.
const (
	ActionGrantCreated       = "grant_created"
	ActionGrantRevoked       = "grant_revoked"
	ActionRestrictionAdded   = "restriction_added"
	ActionRestrictionRemoved = "restriction_removed"
	ActionRegistryInvalidate = "registry_invalidated"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("activity_log")}
}

// Record appends one event. Logging failures are the caller's choice
// to ignore; recording is best effort and never blocks the action.
func (s *Store) Record(ctx context.Context, userID primitive.ObjectID, action string, details bson.M) error {
	_, err := s.c.InsertOne(ctx, models.ActivityLog{
		UserID:    userID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	})
	return err
}

// Recent returns the newest events, most recent first.
func (s *Store) Recent(ctx context.Context, limit int64) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	cur, err := s.c.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	var out []models.ActivityLog
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

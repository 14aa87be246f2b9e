// internal/app/store/entries/entrystore.go
package entrystore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lmshub/toolhub/internal/app/system/htmlsanitize"
	"github.com/lmshub/toolhub/internal/domain/models"
)

type Store struct {
	c *mongo.Collection
}

var ErrEntryNotFound = errors.New("entry not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("entries")}
}

// sanitize cleans content fields in place. Strategy may carry limited
// rich formatting; everything else is plain text.
func sanitize(e *models.Entry) {
	e.Name = htmlsanitize.Plain(e.Name)
	e.NameCI = text.Fold(e.Name)
	e.Market = htmlsanitize.Plain(e.Market)
	e.Industry = htmlsanitize.Plain(e.Industry)
	e.Role = htmlsanitize.Plain(e.Role)
	e.BusinessGoal = htmlsanitize.Plain(e.BusinessGoal)
	e.Strategy = htmlsanitize.Sanitize(e.Strategy)
}

func (s *Store) Create(ctx context.Context, e models.Entry) (models.Entry, error) {
	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	if e.Status == "" {
		e.Status = "active"
	}
	sanitize(&e)
	e.CreatedAt = now
	e.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Entry{}, err
	}
	return e, nil
}

// UpdateContent replaces the content fields of an existing entry.
// Ownership, activity, and group assignment never change.
func (s *Store) UpdateContent(ctx context.Context, id primitive.ObjectID, e models.Entry) error {
	sanitize(&e)
	set := bson.M{
		"name":          e.Name,
		"name_ci":       e.NameCI,
		"market":        e.Market,
		"industry":      e.Industry,
		"role":          e.Role,
		"business_goal": e.BusinessGoal,
		"strategy":      e.Strategy,
		"updated_at":    time.Now().UTC(),
	}
	if e.Status != "" {
		set["status"] = e.Status
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (s *Store) ByID(ctx context.Context, id primitive.ObjectID) (models.Entry, error) {
	var e models.Entry
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Entry{}, ErrEntryNotFound
		}
		return models.Entry{}, err
	}
	return e, nil
}

// EntriesOfActivities fetches the entries of a set of activities in
// one query.
func (s *Store) EntriesOfActivities(ctx context.Context, activityIDs []primitive.ObjectID) ([]models.Entry, error) {
	if len(activityIDs) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"activity_id": bson.M{"$in": activityIDs}})
	if err != nil {
		return nil, err
	}
	var out []models.Entry
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByOwner counts every entry owned by a user, across activities.
func (s *Store) CountByOwner(ctx context.Context, ownerID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"owner_id": ownerID})
}

// CountByOwnerAndStatus counts a user's entries in one status.
func (s *Store) CountByOwnerAndStatus(ctx context.Context, ownerID primitive.ObjectID, status string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"owner_id": ownerID, "status": status})
}

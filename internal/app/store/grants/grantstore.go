// internal/app/store/grants/grantstore.go
package grantstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lmshub/toolhub/internal/app/policy/sharedaccess"
	"github.com/lmshub/toolhub/internal/domain/models"
)

// Store reads and writes shared access grants. One grant per
// (resource_type, resource_id, user_id), enforced by a unique index;
// Upsert replaces the level and expiry of an existing grant.
//
// Expired grants are not swept; the resolver ignores them at read
// time and CountForUser filters them in the query.
type Store struct {
	c *mongo.Collection
}

var (
	ErrGrantNotFound = errors.New("grant not found")
	ErrInvalidGrant  = errors.New("invalid grant")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("shared_access_grants")}
}

// Upsert writes a grant after validating its level and expiry. An
// expiry in the past is rejected rather than coerced.
func (s *Store) Upsert(ctx context.Context, g models.SharedAccessGrant) (models.SharedAccessGrant, error) {
	if _, err := sharedaccess.ParseLevel(g.Level); err != nil {
		return models.SharedAccessGrant{}, ErrInvalidGrant
	}
	if g.ResourceType == "" || g.ResourceID.IsZero() || g.UserID.IsZero() {
		return models.SharedAccessGrant{}, ErrInvalidGrant
	}
	if g.ExpiresAt != nil && g.ExpiresAt.Before(time.Now().UTC()) {
		return models.SharedAccessGrant{}, ErrInvalidGrant
	}
	if g.Token == "" {
		g.Token = uuid.NewString()
	}
	g.CreatedAt = time.Now().UTC()

	filter := bson.M{
		"resource_type": g.ResourceType,
		"resource_id":   g.ResourceID,
		"user_id":       g.UserID,
	}
	set := bson.M{
		"level":      g.Level,
		"expires_at": g.ExpiresAt,
		"granted_by": g.GrantedBy,
		"token":      g.Token,
		"created_at": g.CreatedAt,
	}
	_, err := s.c.UpdateOne(ctx, filter,
		bson.M{"$set": set, "$setOnInsert": filter},
		options.Update().SetUpsert(true))
	if err != nil {
		return models.SharedAccessGrant{}, err
	}
	return g, nil
}

// Revoke deletes a grant.
func (s *Store) Revoke(ctx context.Context, resourceType string, resourceID, userID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{
		"resource_type": resourceType,
		"resource_id":   resourceID,
		"user_id":       userID,
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrGrantNotFound
	}
	return nil
}

// GrantFor returns the grant row for (resource, user), expired or not.
// Expiry is the resolver's concern.
func (s *Store) GrantFor(ctx context.Context, resourceType string, resourceID, userID primitive.ObjectID) (models.SharedAccessGrant, bool, error) {
	var g models.SharedAccessGrant
	err := s.c.FindOne(ctx, bson.M{
		"resource_type": resourceType,
		"resource_id":   resourceID,
		"user_id":       userID,
	}).Decode(&g)
	if err == mongo.ErrNoDocuments {
		return models.SharedAccessGrant{}, false, nil
	}
	if err != nil {
		return models.SharedAccessGrant{}, false, err
	}
	return g, true, nil
}

// ForResource lists every grant on a resource, for the sharing UI.
func (s *Store) ForResource(ctx context.Context, resourceType string, resourceID primitive.ObjectID) ([]models.SharedAccessGrant, error) {
	cur, err := s.c.Find(ctx, bson.M{"resource_type": resourceType, "resource_id": resourceID})
	if err != nil {
		return nil, err
	}
	var out []models.SharedAccessGrant
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountForUser counts the user's live grants.
func (s *Store) CountForUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"user_id": userID,
		"$or": bson.A{
			bson.M{"expires_at": nil},
			bson.M{"expires_at": bson.M{"$gt": time.Now().UTC()}},
		},
	})
}

// internal/app/store/enrollments/enrollmentstore.go
package enrollmentstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lmshub/toolhub/internal/domain/models"
)

// Store reads course enrollments and group memberships. Both are
// directory data owned by the external identity system; together they
// satisfy the visibility resolver's enrollment directory.
type Store struct {
	enrollments *mongo.Collection
	memberships *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		enrollments: db.Collection("enrollments"),
		memberships: db.Collection("group_memberships"),
	}
}

// IsEnrolled reports whether the user has an active enrollment in the
// course. Suspended enrollments do not count.
func (s *Store) IsEnrolled(ctx context.Context, userID, courseID primitive.ObjectID) (bool, error) {
	err := s.enrollments.FindOne(ctx, bson.M{
		"user_id":   userID,
		"course_id": courseID,
		"status":    "active",
	}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// EnrolledUsers returns the active enrollees of a course.
func (s *Store) EnrolledUsers(ctx context.Context, courseID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.enrollments.Find(ctx, bson.M{"course_id": courseID, "status": "active"})
	if err != nil {
		return nil, err
	}
	var rows []models.Enrollment
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.UserID)
	}
	return ids, nil
}

// GroupsOf returns the user's group IDs within a course.
func (s *Store) GroupsOf(ctx context.Context, userID, courseID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.memberships.Find(ctx, bson.M{"user_id": userID, "course_id": courseID})
	if err != nil {
		return nil, err
	}
	var rows []models.GroupMembership
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.GroupID)
	}
	return ids, nil
}

// MembersOfGroups returns the distinct users across a set of groups in
// one query. The set is what separate group mode resolves against.
func (s *Store) MembersOfGroups(ctx context.Context, groupIDs []primitive.ObjectID) ([]primitive.ObjectID, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}
	raw, err := s.memberships.Distinct(ctx, "user_id", bson.M{"group_id": bson.M{"$in": groupIDs}})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

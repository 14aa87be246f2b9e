// internal/domain/models/groupmembership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupMembership is the authoritative join between users and groups.
// Exactly one document per (group_id, user_id); the course_id is
// denormalized from the group so a user's groups within a course can be
// fetched without a join.
type GroupMembership struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID  primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	CourseID primitive.ObjectID `bson:"course_id" json:"course_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

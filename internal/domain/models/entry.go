// internal/domain/models/entry.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Entry is a single value-map row owned by one user under one activity.
// Entries are never reassigned to a different activity. GroupID is the
// group the entry was created in; the zero ObjectID means the entry is
// ungrouped (it predates or bypasses grouping) and is visible under any
// group mode.
type Entry struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ActivityID primitive.ObjectID `bson:"activity_id" json:"activity_id"`
	OwnerID    primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	GroupID    primitive.ObjectID `bson:"group_id,omitempty" json:"group_id,omitempty"`

	Name   string `bson:"name" json:"name"`
	NameCI string `bson:"name_ci" json:"name_ci"`
	Status string `bson:"status" json:"status"` // "active" | "draft"

	// Value-map content fields. Sanitized at the write boundary.
	Market       string `bson:"market,omitempty" json:"market,omitempty"`
	Industry     string `bson:"industry,omitempty" json:"industry,omitempty"`
	Role         string `bson:"role,omitempty" json:"role,omitempty"`
	BusinessGoal string `bson:"business_goal,omitempty" json:"business_goal,omitempty"`
	Strategy     string `bson:"strategy,omitempty" json:"strategy,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

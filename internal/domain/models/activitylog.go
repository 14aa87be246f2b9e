// internal/domain/models/activitylog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityLog records administrative and sharing events (grant created,
// grant revoked, restrictions changed). Read by the dashboard's recent
// activity block.
type ActivityLog struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID  primitive.ObjectID `bson:"user_id" json:"user_id"`
	Action  string             `bson:"action" json:"action"`
	Details bson.M             `bson:"details,omitempty" json:"details,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// internal/domain/models/sharedaccessgrant.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SharedAccessGrant gives one user leveled access to one resource owned
// by somebody else. Ownership always implies full access regardless of
// any grant row, so a grant for the owner is meaningless but harmless.
//
// ExpiresAt is optional; a grant whose ExpiresAt is in the past is
// treated as absent at read time. There is no background sweep: expiry
// is enforced lazily against the evaluation-time clock.
//
// When a resource is deleted its grants become orphaned; resolution
// must ignore them rather than trying to resolve the missing resource.
type SharedAccessGrant struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ResourceType string             `bson:"resource_type" json:"resource_type"` // e.g. "cluster", "entry"
	ResourceID   primitive.ObjectID `bson:"resource_id" json:"resource_id"`
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	Level        string             `bson:"level" json:"level"` // view | edit | manage
	ExpiresAt    *time.Time         `bson:"expires_at,omitempty" json:"expires_at,omitempty"`

	GrantedBy primitive.ObjectID `bson:"granted_by" json:"granted_by"`
	Token     string             `bson:"token" json:"token"` // opaque audit token
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

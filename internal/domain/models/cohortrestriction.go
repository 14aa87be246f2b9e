// internal/domain/models/cohortrestriction.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CohortRestriction limits a subplugin (feature area) to members of one
// cohort. A subplugin with no restriction rows at all is unrestricted:
// the empty set means "open to everyone", not "denied". Once at least
// one row exists the policy is closed and any-of membership is required.
//
// Exactly one document per (subplugin, cohort_id); enforced by a unique
// compound index.
type CohortRestriction struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Subplugin string             `bson:"subplugin" json:"subplugin"`
	CohortID  primitive.ObjectID `bson:"cohort_id" json:"cohort_id"`

	CreatedBy primitive.ObjectID `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// internal/domain/models/cohort.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cohort is a named set of users used purely for feature gating.
// Cohorts are static reference data owned by the site administration;
// they are independent of course groups.
type Cohort struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"name_ci"`
	IDNumber    string             `bson:"id_number,omitempty" json:"id_number,omitempty"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// CohortMember is the join between users and cohorts. Read-only
// directory data from this plugin's point of view.
type CohortMember struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CohortID primitive.ObjectID `bson:"cohort_id" json:"cohort_id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

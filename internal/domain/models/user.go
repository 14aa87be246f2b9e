// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents admins, teachers, and members.
//
// NOTE:
//   - Cohort membership is not embedded on User.
//     Use the cohort_members collection to discover a user's cohorts.
//   - Course enrollment lives in the enrollments collection.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"` // lowercase, diacritics-stripped
	Email      string             `bson:"email" json:"email"`
	Role       string             `bson:"role" json:"role"` // admin | teacher | member
	Status     string             `bson:"status,omitempty" json:"status,omitempty"`

	PasswordHash string `bson:"password_hash,omitempty" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

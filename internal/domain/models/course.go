// internal/domain/models/course.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Course is the enrollment scope for activities and groups.
type Course struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	FullName    string             `bson:"full_name" json:"full_name"`
	ShortName   string             `bson:"short_name" json:"short_name"`
	ShortNameCI string             `bson:"short_name_ci" json:"short_name_ci"`
	Visible     bool               `bson:"visible" json:"visible"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Enrollment joins a user to a course. Lifecycle owned by the external
// identity system; this plugin only reads it.
type Enrollment struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CourseID primitive.ObjectID `bson:"course_id" json:"course_id"`
	UserID   primitive.ObjectID `bson:"user_id" json:"user_id"`
	Status   string             `bson:"status" json:"status"` // "active" | "suspended"

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

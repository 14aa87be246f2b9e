// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group represents a course-scoped working group. Activity visibility
// under "separate" group mode is resolved against these groups.
//
// NOTE:
//   - Member lists are not embedded on Group.
//     All membership is stored in the group_memberships collection.
type Group struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	CourseID primitive.ObjectID `bson:"course_id" json:"course_id"`
	Name     string             `bson:"name" json:"name"`
	NameCI   string             `bson:"name_ci" json:"name_ci"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// internal/domain/models/activity.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Group visibility modes for an activity. The mode is static per
// activity instance and changes only through course configuration,
// which is external to this plugin.
const (
	GroupModeNone     = "none"     // no grouping, everyone sees everyone
	GroupModeVisible  = "visible"  // grouped, but all groups see each other
	GroupModeSeparate = "separate" // grouped and isolated unless overridden
)

// Activity is a course-scoped unit that owns entries and carries a
// group-visibility mode. Each activity belongs to exactly one course
// and exactly one subplugin (feature area).
type Activity struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	CourseID  primitive.ObjectID `bson:"course_id" json:"course_id"`
	Subplugin string             `bson:"subplugin" json:"subplugin"`
	Name      string             `bson:"name" json:"name"`
	NameCI    string             `bson:"name_ci" json:"name_ci"`
	GroupMode string             `bson:"group_mode" json:"group_mode"` // none | visible | separate
	Visible   bool               `bson:"visible" json:"visible"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

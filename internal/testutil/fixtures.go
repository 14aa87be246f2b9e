package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lmshub/toolhub/internal/domain/models"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("fixture insert into %s: %v", coll, err)
	}
}

// CreateUser creates a test user with the given name and role.
func (f *Fixtures) CreateUser(ctx context.Context, name, role string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   name,
		FullNameCI: text.Fold(name),
		Email:      text.Fold(name) + "@test.example",
		Role:       role,
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateCohort creates a cohort with the given name.
func (f *Fixtures) CreateCohort(ctx context.Context, name string) models.Cohort {
	f.t.Helper()
	c := models.Cohort{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "cohorts", c)
	return c
}

// AddCohortMember places a user in a cohort.
func (f *Fixtures) AddCohortMember(ctx context.Context, cohortID, userID primitive.ObjectID) {
	f.t.Helper()
	f.insert(ctx, "cohort_members", models.CohortMember{
		ID:        primitive.NewObjectID(),
		CohortID:  cohortID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	})
}

// CreateCourse creates a visible course.
func (f *Fixtures) CreateCourse(ctx context.Context, fullName string) models.Course {
	f.t.Helper()
	now := time.Now().UTC()
	c := models.Course{
		ID:          primitive.NewObjectID(),
		FullName:    fullName,
		ShortName:   fullName,
		ShortNameCI: text.Fold(fullName),
		Visible:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "courses", c)
	return c
}

// Enroll creates an active enrollment.
func (f *Fixtures) Enroll(ctx context.Context, userID, courseID primitive.ObjectID) {
	f.t.Helper()
	f.insert(ctx, "enrollments", models.Enrollment{
		ID:        primitive.NewObjectID(),
		CourseID:  courseID,
		UserID:    userID,
		Status:    "active",
		CreatedAt: time.Now().UTC(),
	})
}

// CreateActivity creates a visible activity in a course.
func (f *Fixtures) CreateActivity(ctx context.Context, courseID primitive.ObjectID, subplugin, name, groupMode string) models.Activity {
	f.t.Helper()
	a := models.Activity{
		ID:        primitive.NewObjectID(),
		CourseID:  courseID,
		Subplugin: subplugin,
		Name:      name,
		NameCI:    text.Fold(name),
		GroupMode: groupMode,
		Visible:   true,
	}
	f.insert(ctx, "activities", a)
	return a
}

// CreateGroup creates a course group.
func (f *Fixtures) CreateGroup(ctx context.Context, courseID primitive.ObjectID, name string) models.Group {
	f.t.Helper()
	g := models.Group{
		ID:        primitive.NewObjectID(),
		CourseID:  courseID,
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "groups", g)
	return g
}

// AddGroupMember places a user in a group.
func (f *Fixtures) AddGroupMember(ctx context.Context, groupID, userID, courseID primitive.ObjectID) {
	f.t.Helper()
	f.insert(ctx, "group_memberships", models.GroupMembership{
		ID:        primitive.NewObjectID(),
		GroupID:   groupID,
		UserID:    userID,
		CourseID:  courseID,
		CreatedAt: time.Now().UTC(),
	})
}

// CreateEntry creates an entry under an activity. Pass the zero
// ObjectID as groupID for an ungrouped entry.
func (f *Fixtures) CreateEntry(ctx context.Context, activityID, ownerID, groupID primitive.ObjectID, name string) models.Entry {
	f.t.Helper()
	now := time.Now().UTC()
	e := models.Entry{
		ID:         primitive.NewObjectID(),
		ActivityID: activityID,
		OwnerID:    ownerID,
		GroupID:    groupID,
		Name:       name,
		NameCI:     text.Fold(name),
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "entries", e)
	return e
}

// Restrict adds a cohort restriction row for a subplugin.
func (f *Fixtures) Restrict(ctx context.Context, subplugin string, cohortID primitive.ObjectID) {
	f.t.Helper()
	f.insert(ctx, "cohort_restrictions", models.CohortRestriction{
		ID:        primitive.NewObjectID(),
		Subplugin: subplugin,
		CohortID:  cohortID,
	})
}

// Grant creates a shared access grant; expiresAt may be nil.
func (f *Fixtures) Grant(ctx context.Context, resourceType string, resourceID, userID primitive.ObjectID, level string, expiresAt *time.Time) models.SharedAccessGrant {
	f.t.Helper()
	g := models.SharedAccessGrant{
		ID:           primitive.NewObjectID(),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		UserID:       userID,
		Level:        level,
		ExpiresAt:    expiresAt,
		CreatedAt:    time.Now().UTC(),
	}
	f.insert(ctx, "shared_access_grants", g)
	return g
}

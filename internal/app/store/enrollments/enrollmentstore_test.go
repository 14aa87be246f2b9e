package enrollmentstore_test

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	enrollmentstore "github.com/lmshub/toolhub/internal/app/store/enrollments"
	"github.com/lmshub/toolhub/internal/domain/models"
	"github.com/lmshub/toolhub/internal/testutil"
)

func TestIsEnrolledIgnoresSuspended(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	store := enrollmentstore.New(db)

	course := fx.CreateCourse(ctx, "Sales 101")
	active := fx.CreateUser(ctx, "Active Member", "member")
	suspended := fx.CreateUser(ctx, "Suspended Member", "member")

	fx.Enroll(ctx, active.ID, course.ID)
	if _, err := db.Collection("enrollments").InsertOne(ctx, models.Enrollment{
		ID:       primitive.NewObjectID(),
		CourseID: course.ID,
		UserID:   suspended.ID,
		Status:   "suspended",
	}); err != nil {
		t.Fatalf("insert suspended enrollment: %v", err)
	}

	ok, err := store.IsEnrolled(ctx, active.ID, course.ID)
	if err != nil || !ok {
		t.Fatalf("IsEnrolled(active) = %v, %v; want true", ok, err)
	}
	ok, err = store.IsEnrolled(ctx, suspended.ID, course.ID)
	if err != nil || ok {
		t.Fatalf("IsEnrolled(suspended) = %v, %v; want false", ok, err)
	}

	users, err := store.EnrolledUsers(ctx, course.ID)
	if err != nil {
		t.Fatalf("EnrolledUsers: %v", err)
	}
	if len(users) != 1 || users[0] != active.ID {
		t.Fatalf("EnrolledUsers = %v, want only the active member", users)
	}
}

func TestGroupsOfAndMembersOfGroups(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	store := enrollmentstore.New(db)

	course := fx.CreateCourse(ctx, "Sales 101")
	otherCourse := fx.CreateCourse(ctx, "Marketing 201")
	u1 := fx.CreateUser(ctx, "User One", "member")
	u2 := fx.CreateUser(ctx, "User Two", "member")
	u3 := fx.CreateUser(ctx, "User Three", "member")

	g1 := fx.CreateGroup(ctx, course.ID, "G1")
	g2 := fx.CreateGroup(ctx, course.ID, "G2")
	other := fx.CreateGroup(ctx, otherCourse.ID, "Other")

	fx.AddGroupMember(ctx, g1.ID, u1.ID, course.ID)
	fx.AddGroupMember(ctx, g1.ID, u2.ID, course.ID)
	fx.AddGroupMember(ctx, g2.ID, u2.ID, course.ID)
	fx.AddGroupMember(ctx, g2.ID, u3.ID, course.ID)
	fx.AddGroupMember(ctx, other.ID, u1.ID, otherCourse.ID)

	groups, err := store.GroupsOf(ctx, u1.ID, course.ID)
	if err != nil {
		t.Fatalf("GroupsOf: %v", err)
	}
	if len(groups) != 1 || groups[0] != g1.ID {
		t.Fatalf("GroupsOf(u1) = %v, want just G1 (other course excluded)", groups)
	}

	// u2 is in both groups; members across them are distinct.
	members, err := store.MembersOfGroups(ctx, []primitive.ObjectID{g1.ID, g2.ID})
	if err != nil {
		t.Fatalf("MembersOfGroups: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("MembersOfGroups = %d users, want 3 distinct", len(members))
	}

	members, err = store.MembersOfGroups(ctx, nil)
	if err != nil {
		t.Fatalf("MembersOfGroups(nil): %v", err)
	}
	if len(members) != 0 {
		t.Fatalf("empty group set returned %d members", len(members))
	}
}

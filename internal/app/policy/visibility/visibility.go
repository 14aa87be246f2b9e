// Package visibility resolves, per activity, which users' entries the
// requesting user may see. The group-mode state machine:
//
//   - none / visible: every user enrolled in the activity's course.
//   - separate: users holding the access-all-groups override see
//     everyone; otherwise the union of members of the requesting user's
//     groups in that course. A user who belongs to no group sees only
//     themselves, never nothing, so their own ungrouped entries stay
//     visible.
//
// An entry with no group assignment is visible regardless of mode; that
// tie-break is per-entry and applied by the aggregator, not here.
//
// Lookup failures are converted at this boundary: an activity whose
// course context cannot be resolved reports ok=false and a warning log,
// and the caller skips it entirely. One broken activity never aborts
// evaluation of its siblings.
package visibility

import (
	"context"

	"github.com/lmshub/toolhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Capabilities consulted by the resolver and the aggregator.
const (
	// CapAccessAllGroups overrides separate-group isolation.
	CapAccessAllGroups = "accessallgroups"

	// CapViewEntries is the base capability required to see any entry
	// under an activity's course.
	CapViewEntries = "viewentries"
)

// EnrollmentDirectory resolves course enrollment and group membership.
// Implemented by an adapter over the external enrollment system.
type EnrollmentDirectory interface {
	IsEnrolled(ctx context.Context, userID, courseID primitive.ObjectID) (bool, error)
	EnrolledUsers(ctx context.Context, courseID primitive.ObjectID) ([]primitive.ObjectID, error)
	GroupsOf(ctx context.Context, userID, courseID primitive.ObjectID) ([]primitive.ObjectID, error)
	MembersOfGroups(ctx context.Context, groupIDs []primitive.ObjectID) ([]primitive.ObjectID, error)
}

// CapabilityChecker answers capability questions for a user within a
// scope (a course). Implementations resolve failures to false.
type CapabilityChecker interface {
	Has(ctx context.Context, userID primitive.ObjectID, capability string, scopeID primitive.ObjectID) bool
}

// Resolver is the per-activity visibility gate. Stateless and safe for
// concurrent use.
type Resolver struct {
	enroll EnrollmentDirectory
	caps   CapabilityChecker
	log    *zap.Logger
}

// New constructs a Resolver. A nil logger defaults to a no-op logger.
func New(enroll EnrollmentDirectory, caps CapabilityChecker, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{enroll: enroll, caps: caps, log: log}
}

// VisibleEntryOwners returns the set of user IDs whose entries under
// the activity are visible to userID. The aggregator filters raw
// entries by owner membership in this set.
//
// ok is false when the activity's course context could not be
// resolved. The caller must then skip the activity entirely, including
// its ungrouped entries; a false ok is never a statement about access.
func (r *Resolver) VisibleEntryOwners(ctx context.Context, activity models.Activity, userID primitive.ObjectID) (owners []primitive.ObjectID, ok bool) {
	switch activity.GroupMode {
	case models.GroupModeSeparate:
		if r.caps.Has(ctx, userID, CapAccessAllGroups, activity.CourseID) {
			return r.allEnrolled(ctx, activity)
		}
		return r.ownGroupMembers(ctx, activity, userID)
	default:
		// none, visible, or an unrecognized mode from older data:
		// everyone enrolled in the course.
		return r.allEnrolled(ctx, activity)
	}
}

func (r *Resolver) allEnrolled(ctx context.Context, activity models.Activity) ([]primitive.ObjectID, bool) {
	users, err := r.enroll.EnrolledUsers(ctx, activity.CourseID)
	if err != nil {
		r.skip(activity, "enrolled users lookup failed", err)
		return nil, false
	}
	return users, true
}

func (r *Resolver) ownGroupMembers(ctx context.Context, activity models.Activity, userID primitive.ObjectID) ([]primitive.ObjectID, bool) {
	groups, err := r.enroll.GroupsOf(ctx, userID, activity.CourseID)
	if err != nil {
		r.skip(activity, "group lookup failed", err)
		return nil, false
	}
	if len(groups) == 0 {
		// Ungrouped user: self-visibility fallback.
		return []primitive.ObjectID{userID}, true
	}

	members, err := r.enroll.MembersOfGroups(ctx, groups)
	if err != nil {
		r.skip(activity, "group member lookup failed", err)
		return nil, false
	}
	return members, true
}

func (r *Resolver) skip(activity models.Activity, msg string, err error) {
	r.log.Warn("visibility: skipping activity: "+msg,
		zap.String("activity_id", activity.ID.Hex()),
		zap.String("course_id", activity.CourseID.Hex()),
		zap.Error(err))
}

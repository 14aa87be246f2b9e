// Package caps answers capability questions for the visibility layer.
//
// Capabilities are derived from the user's role: admins and teachers
// hold the all-groups override everywhere, and every active user holds
// the base view capability in courses they can reach (enrollment is
// checked separately). Lookup failures answer false; capability checks
// fail closed, unlike the cohort gate.
package caps

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/lmshub/toolhub/internal/app/policy/visibility"
	"github.com/lmshub/toolhub/internal/domain/models"
)

// UserSource resolves users by ID. Satisfied by *userstore.Store.
type UserSource interface {
	ByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

// Checker satisfies visibility.CapabilityChecker and
// aggregator.CapabilityChecker.
type Checker struct {
	users UserSource
	log   *zap.Logger
}

func New(users UserSource, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Checker{users: users, log: log}
}

// Has reports whether the user holds the capability in the given scope.
// The scope is currently a course ID; role-derived capabilities do not
// vary by course, so it is accepted for interface fit and logging only.
func (c *Checker) Has(ctx context.Context, userID primitive.ObjectID, capability string, scopeID primitive.ObjectID) bool {
	u, err := c.users.ByID(ctx, userID)
	if err != nil {
		c.log.Warn("capability lookup failed",
			zap.String("capability", capability),
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
		return false
	}
	if u.Status != "" && u.Status != "active" {
		return false
	}

	switch capability {
	case visibility.CapAccessAllGroups:
		return u.Role == "admin" || u.Role == "teacher"
	case visibility.CapViewEntries:
		return true
	default:
		return false
	}
}

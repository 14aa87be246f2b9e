// Package cohortgate decides whether a user may use a named feature
// area (subplugin) at all, based on cohort membership.
//
// The policy is open by default: a subplugin with no restriction rows
// is available to everyone. Once at least one cohort restriction exists
// the policy is closed and the user must belong to at least one of the
// restricted cohorts.
//
// On a failed restriction or membership lookup the gate falls back to
// its configured fail policy. The default is fail-open (allow), which
// trades least-privilege for availability; sites that prefer the
// stricter behavior construct the gate with WithFailClosed.
package cohortgate

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RestrictionSource reads the cohort restrictions configured for a
// subplugin. Implemented by the cohort restriction store.
type RestrictionSource interface {
	// RestrictedCohorts returns the cohorts a subplugin is limited to.
	// An empty slice means the subplugin is unrestricted.
	RestrictedCohorts(ctx context.Context, subplugin string) ([]primitive.ObjectID, error)
}

// IdentityDirectory resolves a user's cohort memberships. Implemented
// by an adapter over the external identity system.
type IdentityDirectory interface {
	CohortsOf(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)

	// UsersInCohorts counts the distinct users that belong to at least
	// one of the given cohorts. Used only for statistics.
	UsersInCohorts(ctx context.Context, cohortIDs []primitive.ObjectID) (int, error)
}

// Statistics summarizes a subplugin's gating configuration for the
// admin dashboard.
type Statistics struct {
	RestrictedCohortCount int  `json:"restricted_cohort_count"`
	UsersWithAccessCount  int  `json:"users_with_access_count"`
	Unrestricted          bool `json:"unrestricted"`
}

// Gate is the subplugin-level feature gate. Evaluation is read-only;
// a Gate is safe for concurrent use.
type Gate struct {
	restrictions RestrictionSource
	identity     IdentityDirectory
	failOpen     bool
	log          *zap.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithFailClosed makes the gate deny access when restriction or
// membership data cannot be read, instead of the default allow.
func WithFailClosed() Option {
	return func(g *Gate) { g.failOpen = false }
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(log *zap.Logger) Option {
	return func(g *Gate) { g.log = log }
}

// New constructs a Gate. The default fail policy is fail-open.
func New(restrictions RestrictionSource, identity IdentityDirectory, opts ...Option) *Gate {
	g := &Gate{
		restrictions: restrictions,
		identity:     identity,
		failOpen:     true,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allowed reports whether the user may use the subplugin. It is a pure
// function of the restriction set and the user's cohorts; lookup
// failures resolve to the configured fail policy and are logged, never
// surfaced to the caller.
func (g *Gate) Allowed(ctx context.Context, subplugin string, userID primitive.ObjectID) bool {
	restricted, err := g.restrictions.RestrictedCohorts(ctx, subplugin)
	if err != nil {
		return g.fallback(subplugin, "restriction lookup failed", err)
	}
	if len(restricted) == 0 {
		return true
	}

	userCohorts, err := g.identity.CohortsOf(ctx, userID)
	if err != nil {
		return g.fallback(subplugin, "cohort membership lookup failed", err)
	}

	member := make(map[primitive.ObjectID]struct{}, len(userCohorts))
	for _, id := range userCohorts {
		member[id] = struct{}{}
	}
	for _, id := range restricted {
		if _, ok := member[id]; ok {
			return true
		}
	}
	return false
}

// Statistics returns gating statistics for a subplugin. A failed
// restriction lookup yields the zero shape with Unrestricted false, so
// a degraded read never presents a restricted subplugin as open.
func (g *Gate) Statistics(ctx context.Context, subplugin string) Statistics {
	restricted, err := g.restrictions.RestrictedCohorts(ctx, subplugin)
	if err != nil {
		g.log.Warn("cohort gate: statistics lookup failed",
			zap.String("subplugin", subplugin),
			zap.Error(err))
		return Statistics{}
	}
	if len(restricted) == 0 {
		return Statistics{Unrestricted: true}
	}

	users, err := g.identity.UsersInCohorts(ctx, restricted)
	if err != nil {
		g.log.Warn("cohort gate: user count failed",
			zap.String("subplugin", subplugin),
			zap.Error(err))
		users = 0
	}
	return Statistics{
		RestrictedCohortCount: len(restricted),
		UsersWithAccessCount:  users,
	}
}

func (g *Gate) fallback(subplugin, msg string, err error) bool {
	g.log.Warn("cohort gate: "+msg,
		zap.String("subplugin", subplugin),
		zap.Bool("fail_open", g.failOpen),
		zap.Error(err))
	return g.failOpen
}

// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/lmshub/toolhub/internal/app/aggregator"
	admincohortsfeature "github.com/lmshub/toolhub/internal/app/features/admincohorts"
	dashboardfeature "github.com/lmshub/toolhub/internal/app/features/dashboard"
	entriesfeature "github.com/lmshub/toolhub/internal/app/features/entries"
	healthfeature "github.com/lmshub/toolhub/internal/app/features/health"
	loginfeature "github.com/lmshub/toolhub/internal/app/features/login"
	logoutfeature "github.com/lmshub/toolhub/internal/app/features/logout"
	sharingfeature "github.com/lmshub/toolhub/internal/app/features/sharing"
	"github.com/lmshub/toolhub/internal/app/plugins/cluster"
	"github.com/lmshub/toolhub/internal/app/plugins/valuemapdoc"
	"github.com/lmshub/toolhub/internal/app/policy/cohortgate"
	"github.com/lmshub/toolhub/internal/app/policy/sharedaccess"
	"github.com/lmshub/toolhub/internal/app/policy/visibility"
	"github.com/lmshub/toolhub/internal/app/registry"
	activitystore "github.com/lmshub/toolhub/internal/app/store/activities"
	activitylogstore "github.com/lmshub/toolhub/internal/app/store/activitylog"
	restrictionstore "github.com/lmshub/toolhub/internal/app/store/cohortrestrictions"
	cohortstore "github.com/lmshub/toolhub/internal/app/store/cohorts"
	coursestore "github.com/lmshub/toolhub/internal/app/store/courses"
	entrystore "github.com/lmshub/toolhub/internal/app/store/entries"
	enrollmentstore "github.com/lmshub/toolhub/internal/app/store/enrollments"
	grantstore "github.com/lmshub/toolhub/internal/app/store/grants"
	userstore "github.com/lmshub/toolhub/internal/app/store/users"
	"github.com/lmshub/toolhub/internal/app/system/auth"
	"github.com/lmshub/toolhub/internal/app/system/caps"
	"github.com/lmshub/toolhub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup,
// and the Startup hook have completed. The whole dependency graph is
// assembled here: stores over the Mongo database, the policy layer on
// top of the stores, the plugin registry and aggregator on top of the
// policies, and the feature handlers at the edge.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	// Stores.
	users := userstore.New(db)
	cohorts := cohortstore.New(db)
	restrictions := restrictionstore.New(db)
	courses := coursestore.New(db)
	enrollments := enrollmentstore.New(db)
	activities := activitystore.New(db)
	entries := entrystore.New(db)
	grants := grantstore.New(db)
	audit := activitylogstore.New(db)

	// Policy layer.
	gateOpts := []cohortgate.Option{cohortgate.WithLogger(logger)}
	if !appCfg.CohortGateFailOpen {
		gateOpts = append(gateOpts, cohortgate.WithFailClosed())
	}
	gate := cohortgate.New(restrictions, cohorts, gateOpts...)

	checker := caps.New(users, logger)
	vis := visibility.New(enrollments, checker, logger)
	access := sharedaccess.New(grants, sharedaccess.WithLogger(logger))

	// Plugins and aggregation.
	reg := registry.New(gate, logger,
		valuemapdoc.New(entries, logger),
		cluster.New(grants, logger),
	)
	agg := aggregator.New(reg, gate, activities, courses, entries, users, enrollments, checker, vis, logger)

	r := chi.NewRouter()

	// Global auth middleware: loads the SessionUser into context so
	// handlers can read it via auth.CurrentUser(r).
	r.Use(auth.LoadSessionUser)

	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	loginHandler := loginfeature.NewHandler(users, ratelimit.NewLoginLimiter(), logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	dashboardHandler := dashboardfeature.NewHandler(reg, gate, audit, logger)
	r.Mount("/dashboard", dashboardfeature.Routes(dashboardHandler))

	entriesHandler := entriesfeature.NewHandler(agg, entries, activities, enrollments, access, vis, logger)
	r.Mount("/entries", entriesfeature.Routes(entriesHandler))

	sharingHandler := sharingfeature.NewHandler(grants, entries, access, audit, logger)
	r.Mount("/sharing", sharingfeature.Routes(sharingHandler))

	adminHandler := admincohortsfeature.NewHandler(restrictions, cohorts, gate, reg, audit, logger)
	r.Mount("/admin", admincohortsfeature.Routes(adminHandler))

	return r, nil
}

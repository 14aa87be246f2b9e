// internal/app/bootstrap/appconfig.go
package bootstrap

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (HTTP ports, TLS,
// logging, CORS). AppConfig is everything specific to ToolHub: the
// Mongo connection, session cookies, and the access-policy knobs.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionDomain string // Cookie domain (blank means current host)

	// CohortGateFailOpen controls what the cohort gate does when
	// restriction or membership data cannot be read: true (the
	// default) keeps features reachable, false denies access.
	CohortGateFailOpen bool

	// AdminEmail, when set, names a user who is created or promoted to
	// the admin role on startup. Used to bootstrap a fresh database.
	AdminEmail string
}

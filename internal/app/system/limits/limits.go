// internal/app/system/limits/limits.go
package limits

// Request body size limits. These prevent memory exhaustion from
// oversized JSON payloads.
const (
	// MaxEntryBodySize bounds entry create/update payloads, which may
	// carry rich strategy text.
	MaxEntryBodySize = 1 << 20 // 1 MB

	// MaxJSONBodySize bounds every other JSON payload (grants,
	// restrictions, login).
	MaxJSONBodySize = 64 << 10 // 64 KB
)

// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined here.
// This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// BACKEND API
// =============================================================================

// DefaultAPIBaseURL is the backend used when nothing is configured.
const DefaultAPIBaseURL = "http://localhost:3000"

// DefaultAPITimeout is the transport-level timeout for one HTTP exchange.
const DefaultAPITimeout = 30 * time.Second

// DefaultUserAgent identifies the client in backend logs.
const DefaultUserAgent = "aiguard-console/1.0"

// MaxResponseSize is the maximum accepted response body (10MB).
const MaxResponseSize = 10 * 1024 * 1024

// MaxErrorBodyLogLen limits error response bodies in logs to prevent bloat.
const MaxErrorBodyLogLen = 500

// =============================================================================
// IDENTITY PROVIDER
// =============================================================================

// Identity provider modes.
const (
	ProviderFirebase = "firebase"
	ProviderMemory   = "memory"
)

// DefaultIdentityToolkitURL is the Identity Toolkit REST base.
const DefaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1"

// DefaultSecureTokenURL is the token refresh endpoint.
const DefaultSecureTokenURL = "https://securetoken.googleapis.com/v1/token"

// DefaultJWKSURL publishes the keys that sign provider ID tokens.
const DefaultJWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"

// DefaultIssuerPrefix is prepended to the project ID to form the token issuer.
const DefaultIssuerPrefix = "https://securetoken.google.com/"

// TokenRefreshLeeway renews cached ID tokens this long before they expire.
const TokenRefreshLeeway = 5 * time.Minute

// =============================================================================
// LOCAL STATE
// =============================================================================

// ConfigDirName is the directory under the user config dir.
const ConfigDirName = "aiguard"

// ConfigFileName is the default config file name.
const ConfigFileName = "config.yaml"

// CredentialsFileName is the default credential database name.
const CredentialsFileName = "credentials.db"

// TraceFileName is the default request trace file name.
const TraceFileName = "requests.jsonl"

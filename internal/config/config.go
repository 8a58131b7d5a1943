// Package config loads the console client configuration.
//
// Sources, lowest precedence first:
//   - built-in defaults (defaults.go)
//   - YAML file (default ~/.config/aiguard/config.yaml), with ${VAR:-default} expansion
//   - environment variables (AIGUARD_*), including values loaded from .env files
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aiguard/console/internal/monitoring"
)

// Config is the full client configuration.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Identity   IdentityConfig   `yaml:"identity"`
	Storage    StorageConfig    `yaml:"storage"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// APIConfig configures the backend connection.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent,omitempty"`
}

// IdentityConfig configures the identity provider.
type IdentityConfig struct {
	Provider           string `yaml:"provider"` // firebase, memory
	APIKey             string `yaml:"api_key,omitempty"`
	ProjectID          string `yaml:"project_id,omitempty"`
	IdentityToolkitURL string `yaml:"identity_toolkit_url,omitempty"`
	SecureTokenURL     string `yaml:"secure_token_url,omitempty"`
	JWKSURL            string `yaml:"jwks_url,omitempty"`
	VerifyTokens       bool   `yaml:"verify_tokens"`
}

// StorageConfig configures local persistence of the provider session.
type StorageConfig struct {
	Persist         bool   `yaml:"persist"`
	CredentialsPath string `yaml:"credentials_path,omitempty"`
}

// MonitoringConfig configures logging and request tracing.
type MonitoringConfig struct {
	Log   monitoring.LoggerConfig `yaml:"log"`
	Trace monitoring.TraceConfig  `yaml:"trace"`
}

// Dir returns ~/.config/aiguard.
func Dir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, ConfigDirName)
}

// DefaultPath returns the config file location, honoring AIGUARD_CONFIG.
func DefaultPath() string {
	if p := os.Getenv("AIGUARD_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(Dir(), ConfigFileName)
}

// Default returns a config populated with built-in defaults.
func Default() *Config {
	dir := Dir()
	return &Config{
		API: APIConfig{
			BaseURL:   DefaultAPIBaseURL,
			Timeout:   DefaultAPITimeout,
			UserAgent: DefaultUserAgent,
		},
		Identity: IdentityConfig{
			Provider:           ProviderFirebase,
			IdentityToolkitURL: DefaultIdentityToolkitURL,
			SecureTokenURL:     DefaultSecureTokenURL,
			JWKSURL:            DefaultJWKSURL,
		},
		Storage: StorageConfig{
			Persist:         true,
			CredentialsPath: filepath.Join(dir, CredentialsFileName),
		},
		Monitoring: MonitoringConfig{
			Log: monitoring.LoggerConfig{Level: "warn", Format: "console", Output: "stderr"},
			Trace: monitoring.TraceConfig{
				Enabled: false,
				LogPath: filepath.Join(dir, TraceFileName),
			},
		},
	}
}

// LoadEnvFiles loads .env from the working directory and the config dir.
// Missing files are ignored; existing environment variables win.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(Dir(), ".env"))
}

// Load reads the config file at path (missing file = defaults) and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 -- path is user-provided config location
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path, creating the directory.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	// #nosec G301 -- config directory permissions
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// #nosec G306 -- config may hold an API key
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Validate checks the config for values the client cannot work with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must start with http:// or https://, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	switch c.Identity.Provider {
	case ProviderMemory:
	case ProviderFirebase:
		if c.Identity.APIKey == "" {
			return fmt.Errorf("identity.api_key is required for the %s provider", ProviderFirebase)
		}
		if c.Identity.VerifyTokens && c.Identity.ProjectID == "" {
			return fmt.Errorf("identity.project_id is required when identity.verify_tokens is set")
		}
	default:
		return fmt.Errorf("unknown identity.provider %q (expected %s or %s)", c.Identity.Provider, ProviderFirebase, ProviderMemory)
	}
	return nil
}

// Issuer returns the expected ID token issuer.
func (c IdentityConfig) Issuer() string {
	return DefaultIssuerPrefix + c.ProjectID
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("AIGUARD_API_BASE_URL", &c.API.BaseURL)
	setString("AIGUARD_IDENTITY_PROVIDER", &c.Identity.Provider)
	setString("AIGUARD_FIREBASE_API_KEY", &c.Identity.APIKey)
	setString("AIGUARD_FIREBASE_PROJECT_ID", &c.Identity.ProjectID)
	setString("AIGUARD_CREDENTIALS_PATH", &c.Storage.CredentialsPath)
	setString("AIGUARD_LOG_LEVEL", &c.Monitoring.Log.Level)

	// Timeout in milliseconds, same unit the web console used.
	if v := os.Getenv("AIGUARD_API_TIMEOUT"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return fmt.Errorf("AIGUARD_API_TIMEOUT must be a positive number of milliseconds, got %q", v)
		}
		c.API.Timeout = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("AIGUARD_TRACE"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("AIGUARD_TRACE must be a boolean, got %q", v)
		}
		c.Monitoring.Trace.Enabled = enabled
	}
	return nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv expands ${VAR} and ${VAR:-default} references.
// Unset variables without a default expand to the empty string.
func ExpandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		if v := os.Getenv(m[1]); v != "" {
			return v
		}
		return m[2]
	})
}

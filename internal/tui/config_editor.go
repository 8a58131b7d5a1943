package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/aiguard/console/internal/config"
	"github.com/aiguard/console/internal/services"
)

// =============================================================================
// PROVIDER DEFINITIONS
// =============================================================================

// ProviderInfo describes an upstream LLM provider whose keys a project can
// hold.
type ProviderInfo struct {
	Name        string
	DisplayName string
	EnvVar      string
	KeyPrefix   string
}

// SupportedProviders lists the providers in display order.
var SupportedProviders = []ProviderInfo{
	{Name: services.ProviderOpenAI, DisplayName: "OpenAI", EnvVar: "OPENAI_API_KEY", KeyPrefix: "sk-"},
	{Name: services.ProviderAnthropic, DisplayName: "Anthropic", EnvVar: "ANTHROPIC_API_KEY", KeyPrefix: "sk-ant-"},
	{Name: services.ProviderGoogle, DisplayName: "Google Gemini", EnvVar: "GEMINI_API_KEY"},
}

// LookupProvider finds a provider by name.
func LookupProvider(name string) (ProviderInfo, bool) {
	for _, p := range SupportedProviders {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderInfo{}, false
}

// KeyFromEnv reads the provider's key from its environment variable.
func (p ProviderInfo) KeyFromEnv() (string, bool) {
	v := strings.TrimSpace(os.Getenv(p.EnvVar))
	return v, v != ""
}

// =============================================================================
// CONFIG EDITOR
// =============================================================================

// EditConfig walks through the settings a first run needs and updates cfg in
// place. Empty answers keep the current value.
func EditConfig(p *Prompter, cfg *config.Config) error {
	PrintHeader("AI Guard Console Setup")

	var err error
	if cfg.API.BaseURL, err = p.Ask("Backend URL", cfg.API.BaseURL); err != nil {
		return err
	}

	provider, err := p.Ask(fmt.Sprintf("Identity provider (%s/%s)", config.ProviderFirebase, config.ProviderMemory), cfg.Identity.Provider)
	if err != nil {
		return err
	}
	provider = strings.ToLower(provider)
	if provider != config.ProviderFirebase && provider != config.ProviderMemory {
		return fmt.Errorf("unknown identity provider %q", provider)
	}
	cfg.Identity.Provider = provider

	if provider == config.ProviderFirebase {
		if cfg.Identity.APIKey, err = p.Ask("Firebase web API key", cfg.Identity.APIKey); err != nil {
			return err
		}
		if cfg.Identity.ProjectID, err = p.Ask("Firebase project ID (optional)", cfg.Identity.ProjectID); err != nil {
			return err
		}
		if cfg.Identity.ProjectID != "" {
			if cfg.Identity.VerifyTokens, err = p.Confirm("Verify ID token signatures", cfg.Identity.VerifyTokens); err != nil {
				return err
			}
		} else {
			cfg.Identity.VerifyTokens = false
		}
	}

	if cfg.Storage.Persist, err = p.Confirm("Remember the session between runs", cfg.Storage.Persist); err != nil {
		return err
	}

	PrintStep("Validating settings")
	return cfg.Validate()
}

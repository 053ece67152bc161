package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no Anthropic API key configured")

// GetAPIKey returns the Anthropic API key from the configuration.
// It checks in order: environment variable, config file.
func GetAPIKey(cfg *Config) (string, error) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, nil
	}

	if cfg != nil && cfg.Anthropic.APIKey != "" {
		key := os.ExpandEnv(cfg.Anthropic.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, nil
		}
	}

	return "", ErrNoAPIKey
}

// ValidateAPIKey performs basic validation on an API key.
// It checks format but does not verify the key with Anthropic's API.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrNoAPIKey
	}

	// Anthropic API keys start with "sk-ant-"
	if !strings.HasPrefix(key, "sk-ant-") {
		return errors.New("invalid API key format: expected 'sk-ant-' prefix")
	}

	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}

	return nil
}

// MaskAPIKey returns a masked version of a secret for display.
// Shows the first 7 characters and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 15 {
		return "***"
	}

	return key[:7] + "..." + key[len(key)-4:]
}

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv    KeySource = "environment"
	KeySourceConfig KeySource = "config_file"
	KeySourceNone   KeySource = "none"
)

// GetAPIKeySource returns where the API key was sourced from.
func GetAPIKeySource(cfg *Config) KeySource {
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return KeySourceEnv
	}

	if cfg != nil && cfg.Anthropic.APIKey != "" {
		key := os.ExpandEnv(cfg.Anthropic.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return KeySourceConfig
		}
	}

	return KeySourceNone
}

// secretKeys are masked when settings are displayed.
var secretKeys = map[string]bool{
	"anthropic.api_key": true,
	"ado.token":         true,
	"ado.pat":           true,
}

// IsSecret reports whether key holds a credential.
func IsSecret(key string) bool {
	return secretKeys[key]
}

// DisplayValue formats a setting for display, masking credentials.
func DisplayValue(key string, value any) string {
	s := fmt.Sprint(value)
	if IsSecret(key) {
		return MaskAPIKey(s)
	}
	return s
}

// Requirement names a capability a command needs configured.
type Requirement int

const (
	// NeedModel requires model credentials (API key or Bedrock).
	NeedModel Requirement = 1 << iota
	// NeedTracker requires Azure DevOps location and credentials.
	NeedTracker
)

// Validate reports every missing or invalid setting for the requirements,
// joined into one error.
func (c *Config) Validate(req Requirement) error {
	var errs []error

	if req&NeedModel != 0 && !c.Bedrock.Enabled {
		key, err := GetAPIKey(c)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("anthropic.api_key: %w (or set bedrock.enabled)", err))
		case c.Anthropic.BaseURL == "":
			// Gateways behind anthropic.base_url may issue their own key format.
			if err := ValidateAPIKey(key); err != nil {
				errs = append(errs, fmt.Errorf("anthropic.api_key (from %s): %w", GetAPIKeySource(c), err))
			}
		}
	}
	if req&NeedTracker != 0 {
		if c.ADO.Organization == "" && c.ADO.BaseURL == "" {
			errs = append(errs, errors.New("ado.organization: required (or set ado.base_url)"))
		}
		switch {
		case c.ADO.Token == "" && c.ADO.PAT == "":
			errs = append(errs, errors.New("ado.token or ado.pat: required"))
		case c.ADO.Token != "" && c.ADO.PAT != "":
			errs = append(errs, errors.New("ado.token and ado.pat: set only one"))
		}
	}

	if c.Images.MaxImages < 0 {
		errs = append(errs, fmt.Errorf("images.max_images: must not be negative (got %d)", c.Images.MaxImages))
	}
	if c.Inference.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("inference.max_tokens: must be positive (got %d)", c.Inference.MaxTokens))
	}
	if c.Inference.EvaluationMaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("inference.evaluation_max_tokens: must be positive (got %d)", c.Inference.EvaluationMaxTokens))
	}
	switch c.Storage.Driver {
	case "", "sqlite", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unsupported %q", c.Storage.Driver))
	}

	return errors.Join(errs...)
}

// Package config handles configuration loading and management for Task Genie.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

const (
	appName           = "taskgenie"
	projectConfigName = ".taskgenie.yaml"
)

// Config holds all configuration for Task Genie.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Bedrock   BedrockConfig   `mapstructure:"bedrock"`
	ADO       ADOConfig       `mapstructure:"ado"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Images    ImagesConfig    `mapstructure:"images"`
	Inference InferenceConfig `mapstructure:"inference"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// BedrockConfig selects the AWS Bedrock transport.
type BedrockConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// ADOConfig holds Azure DevOps settings. One of Token and PAT is required.
type ADOConfig struct {
	Organization string `mapstructure:"organization"`
	BaseURL      string `mapstructure:"base_url"`
	Token        string `mapstructure:"token"`
	PAT          string `mapstructure:"pat"`
	Tag          string `mapstructure:"tag"`
}

// KnowledgeConfig tunes knowledge base retrieval.
type KnowledgeConfig struct {
	// DBPath overrides storage.path for the knowledge tables.
	DBPath            string `mapstructure:"db_path"`
	MaxDocuments      int    `mapstructure:"max_documents"`
	GuidelineAreaPath string `mapstructure:"guideline_area_path"`
}

// ImagesConfig bounds the images attached to a model request.
type ImagesConfig struct {
	MaxImages int     `mapstructure:"max_images"`
	MaxSizeMB float64 `mapstructure:"max_size_mb"`
}

// InferenceConfig holds model request defaults.
type InferenceConfig struct {
	MaxTokens           int     `mapstructure:"max_tokens"`
	EvaluationMaxTokens int     `mapstructure:"evaluation_max_tokens"`
	Temperature         float64 `mapstructure:"temperature"`
}

// StorageConfig locates the local database.
type StorageConfig struct {
	// Driver is "sqlite" (pure Go) or "sqlite3" (cgo).
	Driver string `mapstructure:"driver"`
	// Path defaults to the XDG data directory when empty.
	Path string `mapstructure:"path"`
}

// LogConfig configures the root logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envBindings maps config keys to the environment variables of a deployment.
// For keys with several variables the first set one wins.
var envBindings = map[string][]string{
	"anthropic.api_key":  {"ANTHROPIC_API_KEY"},
	"anthropic.model":    {"TASKGENIE_MODEL", "AWS_BEDROCK_MODEL_ID"},
	"anthropic.base_url": {"ANTHROPIC_BASE_URL"},
	"bedrock.region":     {"AWS_REGION"},
	"bedrock.profile":    {"AWS_PROFILE"},
	"ado.organization":   {"AZURE_DEVOPS_ORGANIZATION"},
	"ado.token":          {"AZURE_DEVOPS_TOKEN"},
	"ado.pat":            {"AZURE_DEVOPS_PAT"},
	"storage.path":       {"TASKGENIE_DB_PATH"},
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, AZURE_DEVOPS_*, TASKGENIE_*)
// 2. Project config (.taskgenie.yaml in current directory or parent)
// 3. User config (~/.config/taskgenie/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v, err := LoadViper()
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// LoadViper returns the layered settings without decoding them, for callers
// that read individual keys.
func LoadViper() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)
	return v, nil
}

// LoadFromPath loads configuration from a specific file over the defaults.
// Environment variables still apply.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	bindEnv(v)
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.ADO.Token = os.ExpandEnv(cfg.ADO.Token)
	cfg.ADO.PAT = os.ExpandEnv(cfg.ADO.PAT)
	return cfg, nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(appName)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, vars := range envBindings {
		input := append([]string{key}, vars...)
		_ = v.BindEnv(input...)
	}
}

// Set writes one key to the user config file, creating it if needed.
func Set(key, value string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key %q", key)
	}
	return setInFile(GetUserConfigPath(), key, value)
}

func setInFile(path, key, value string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}
	v.Set(key, value)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Keys returns every known config key, sorted.
func Keys() []string {
	v := viper.New()
	setDefaults(v)
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key is a recognised setting.
func IsKnownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("anthropic.api_key", d.Anthropic.APIKey)
	v.SetDefault("anthropic.model", d.Anthropic.Model)
	v.SetDefault("anthropic.base_url", d.Anthropic.BaseURL)

	v.SetDefault("bedrock.enabled", d.Bedrock.Enabled)
	v.SetDefault("bedrock.region", d.Bedrock.Region)
	v.SetDefault("bedrock.profile", d.Bedrock.Profile)

	v.SetDefault("ado.organization", d.ADO.Organization)
	v.SetDefault("ado.base_url", d.ADO.BaseURL)
	v.SetDefault("ado.token", d.ADO.Token)
	v.SetDefault("ado.pat", d.ADO.PAT)
	v.SetDefault("ado.tag", d.ADO.Tag)

	v.SetDefault("knowledge.db_path", d.Knowledge.DBPath)
	v.SetDefault("knowledge.max_documents", d.Knowledge.MaxDocuments)
	v.SetDefault("knowledge.guideline_area_path", d.Knowledge.GuidelineAreaPath)

	v.SetDefault("images.max_images", d.Images.MaxImages)
	v.SetDefault("images.max_size_mb", d.Images.MaxSizeMB)

	v.SetDefault("inference.max_tokens", d.Inference.MaxTokens)
	v.SetDefault("inference.evaluation_max_tokens", d.Inference.EvaluationMaxTokens)
	v.SetDefault("inference.temperature", d.Inference.Temperature)

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", d.Storage.Path)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// getUserConfigDir returns the XDG config directory for Task Genie.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", appName)
	}
	return filepath.Join(home, ".config", appName)
}

// findProjectConfig searches for .taskgenie.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, projectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{Model: "claude-sonnet-4-20250514"},
		ADO:       ADOConfig{Tag: "Task Genie"},
		Knowledge: KnowledgeConfig{
			MaxDocuments:      3,
			GuidelineAreaPath: "agile-process",
		},
		Images: ImagesConfig{
			MaxImages: 3,
			MaxSizeMB: 5,
		},
		Inference: InferenceConfig{
			MaxTokens:           10240,
			EvaluationMaxTokens: 2048,
			Temperature:         0.5,
		},
		Storage: StorageConfig{Driver: "sqlite"},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

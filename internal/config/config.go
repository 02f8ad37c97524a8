// Package config handles loading and merging pilot configuration from
// .pilot/config.yaml, defaults, and CLI flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// PatternsConfig represents pattern memory configuration
type PatternsConfig struct {
	// Backend selects the persistence backend ("file" or "sqlite")
	Backend string `yaml:"backend"`

	// Path is the pattern store location (JSON file or SQLite database)
	Path string `yaml:"path"`

	// Capacity is the maximum number of retained patterns
	Capacity int `yaml:"capacity"`
}

// ExecutionConfig represents step execution configuration
type ExecutionConfig struct {
	// OnFailure selects what happens when a step fails with no working
	// fallback ("halt" or "skip")
	OnFailure string `yaml:"on_failure"`

	// RequireApproval gates every step behind operator approval, not just
	// high-risk ones
	RequireApproval bool `yaml:"require_approval"`

	// StepTimeout is the maximum runtime for a single command step
	StepTimeout time.Duration `yaml:"step_timeout"`
}

// ModelConfig represents LLM backend configuration
type ModelConfig struct {
	// Provider selects the backend ("openai", "ollama", or empty to disable)
	Provider string `yaml:"provider"`

	// Model is the model name passed to the provider
	Model string `yaml:"model"`

	// BaseURL overrides the provider endpoint (for local or proxy setups)
	BaseURL string `yaml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key
	APIKeyEnv string `yaml:"api_key_env"`
}

// Config represents pilot configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// MaxSteps caps how many steps a single plan may contain (0 = unlimited)
	MaxSteps int `yaml:"max_steps"`

	// Patterns contains pattern memory configuration
	Patterns PatternsConfig `yaml:"patterns"`

	// Execution contains step execution configuration
	Execution ExecutionConfig `yaml:"execution"`

	// Model contains LLM backend configuration
	Model ModelConfig `yaml:"model"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		MaxSteps: 0,
		Patterns: PatternsConfig{
			Backend:  "file",
			Path:     ".pilot/patterns.json",
			Capacity: 500,
		},
		Execution: ExecutionConfig{
			OnFailure:       "halt",
			RequireApproval: false,
			StepTimeout:     5 * time.Minute,
		},
		Model: ModelConfig{
			Provider:  "",
			Model:     "",
			BaseURL:   "",
			APIKeyEnv: "OPENAI_API_KEY",
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Temporary struct so the step timeout can be written as "30s" / "5m"
	type yamlConfig struct {
		LogLevel string         `yaml:"log_level"`
		MaxSteps int            `yaml:"max_steps"`
		Patterns PatternsConfig `yaml:"patterns"`
		Execution struct {
			OnFailure       string `yaml:"on_failure"`
			RequireApproval bool   `yaml:"require_approval"`
			StepTimeout     string `yaml:"step_timeout"`
		} `yaml:"execution"`
		Model ModelConfig `yaml:"model"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.MaxSteps != 0 {
		cfg.MaxSteps = yamlCfg.MaxSteps
	}
	if yamlCfg.Patterns.Backend != "" {
		cfg.Patterns.Backend = yamlCfg.Patterns.Backend
	}
	if yamlCfg.Patterns.Path != "" {
		cfg.Patterns.Path = yamlCfg.Patterns.Path
	}
	if yamlCfg.Patterns.Capacity != 0 {
		cfg.Patterns.Capacity = yamlCfg.Patterns.Capacity
	}
	if yamlCfg.Execution.OnFailure != "" {
		cfg.Execution.OnFailure = yamlCfg.Execution.OnFailure
	}
	if yamlCfg.Execution.RequireApproval {
		cfg.Execution.RequireApproval = yamlCfg.Execution.RequireApproval
	}
	if yamlCfg.Execution.StepTimeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Execution.StepTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid step_timeout format %q: %w", yamlCfg.Execution.StepTimeout, err)
		}
		cfg.Execution.StepTimeout = timeout
	}
	if yamlCfg.Model.Provider != "" {
		cfg.Model.Provider = yamlCfg.Model.Provider
	}
	if yamlCfg.Model.Model != "" {
		cfg.Model.Model = yamlCfg.Model.Model
	}
	if yamlCfg.Model.BaseURL != "" {
		cfg.Model.BaseURL = yamlCfg.Model.BaseURL
	}
	if yamlCfg.Model.APIKeyEnv != "" {
		cfg.Model.APIKeyEnv = yamlCfg.Model.APIKeyEnv
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .pilot/config.yaml in the
// specified directory. If the directory or file doesn't exist, returns
// default configuration without error.
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ".pilot", "config.yaml")
	return LoadConfig(configPath)
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values so CLI flags take
// precedence over config file settings.
func (c *Config) MergeWithFlags(logLevel *string, maxSteps *int, onFailure *string, requireApproval *bool, patternsPath *string) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if maxSteps != nil {
		c.MaxSteps = *maxSteps
	}
	if onFailure != nil {
		c.Execution.OnFailure = *onFailure
	}
	if requireApproval != nil {
		c.Execution.RequireApproval = *requireApproval
	}
	if patternsPath != nil {
		c.Patterns.Path = *patternsPath
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	switch c.Patterns.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("invalid patterns backend %q: must be \"file\" or \"sqlite\"", c.Patterns.Backend)
	}
	if c.Patterns.Capacity < 0 {
		return fmt.Errorf("patterns capacity must not be negative, got %d", c.Patterns.Capacity)
	}
	switch c.Execution.OnFailure {
	case "halt", "skip":
	default:
		return fmt.Errorf("invalid on_failure %q: must be \"halt\" or \"skip\"", c.Execution.OnFailure)
	}
	if c.Execution.StepTimeout < 0 {
		return fmt.Errorf("step_timeout must not be negative, got %s", c.Execution.StepTimeout)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative, got %d", c.MaxSteps)
	}
	switch c.Model.Provider {
	case "", "openai", "ollama":
	default:
		return fmt.Errorf("invalid model provider %q: must be \"openai\" or \"ollama\"", c.Model.Provider)
	}
	return nil
}

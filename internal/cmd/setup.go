package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/harrison/pilot/internal/config"
	"github.com/harrison/pilot/internal/logger"
	"github.com/harrison/pilot/internal/pattern"
	"github.com/harrison/pilot/internal/planner"
)

// loadConfigFromCmd resolves the effective configuration for a command: the
// --config flag if given, otherwise .pilot/config.yaml in the current
// directory, otherwise defaults.
func loadConfigFromCmd(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if logLevel, _ := cmd.Flags().GetString("log-level"); logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openPatternStore builds the pattern store for the configured backend. The
// returned close function releases backend resources (a no-op for the file
// backend) and must be called when the store is no longer needed.
func openPatternStore(cfg *config.Config, log pattern.Logger) (*pattern.Store, func() error, error) {
	if dir := filepath.Dir(cfg.Patterns.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create pattern store directory: %w", err)
		}
	}

	var persist pattern.Persistence
	closeFn := func() error { return nil }

	switch cfg.Patterns.Backend {
	case "sqlite":
		sp, err := pattern.NewSQLitePersistence(cfg.Patterns.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open pattern database: %w", err)
		}
		persist = sp
		closeFn = sp.Close
	default:
		fp, err := pattern.NewFilePersistence(cfg.Patterns.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open pattern file: %w", err)
		}
		persist = fp
	}

	store := pattern.NewStoreWithOptions(persist, log, pattern.StoreOptions{
		Capacity: cfg.Patterns.Capacity,
	})
	return store, closeFn, nil
}

// buildModel constructs the configured LLM backend, or nil when no provider
// is configured.
func buildModel(cfg *config.Config) (llms.Model, error) {
	switch cfg.Model.Provider {
	case "":
		return nil, nil
	case "openai":
		opts := []openai.Option{
			openai.WithToken(os.Getenv(cfg.Model.APIKeyEnv)),
		}
		if cfg.Model.Model != "" {
			opts = append(opts, openai.WithModel(cfg.Model.Model))
		}
		if cfg.Model.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.Model.BaseURL))
		}
		return openai.New(opts...)
	case "ollama":
		opts := []ollama.Option{}
		if cfg.Model.Model != "" {
			opts = append(opts, ollama.WithModel(cfg.Model.Model))
		}
		if cfg.Model.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.Model.BaseURL))
		}
		return ollama.New(opts...)
	}
	return nil, fmt.Errorf("unsupported model provider %q", cfg.Model.Provider)
}

// chooseDecomposer selects the decomposition strategy for a request: the
// model when one is configured, markdown parsing when the description looks
// like a markdown list, and clause splitting otherwise.
func chooseDecomposer(model llms.Model, description string) planner.Decomposer {
	if model != nil {
		return planner.NewModelDecomposer(model)
	}
	if looksLikeMarkdownList(description) {
		return planner.NewMarkdownDecomposer()
	}
	return planner.NewRuleDecomposer()
}

func looksLikeMarkdownList(description string) bool {
	for _, line := range strings.Split(description, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- ") || strings.HasPrefix(trimmed, "* ") {
			return true
		}
		if len(trimmed) > 2 && trimmed[0] >= '1' && trimmed[0] <= '9' &&
			(strings.HasPrefix(trimmed[1:], ". ") || strings.HasPrefix(trimmed[1:], ") ")) {
			return true
		}
	}
	return false
}

// newLogger builds the console logger shared by all commands.
func newLogger(cfg *config.Config) *logger.ConsoleLogger {
	return logger.NewConsoleLogger(os.Stderr, cfg.LogLevel)
}

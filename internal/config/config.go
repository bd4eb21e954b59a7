package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete workplan configuration
type Config struct {
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Planning PlanningConfig `mapstructure:"planning"`
	Advisor  AdvisorConfig  `mapstructure:"advisor"`
	Output   OutputConfig   `mapstructure:"output"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// TrackerConfig selects and configures the tracking system work items come from
type TrackerConfig struct {
	// Kind is the tracker backend: "file", "azure", or "github" (default: "file")
	Kind string `mapstructure:"kind"`
	// File is the path to a YAML or JSON fixture when Kind is "file"
	File string `mapstructure:"file"`
	// Azure configures the Azure DevOps backend
	Azure AzureConfig `mapstructure:"azure"`
	// GitHub configures the GitHub sub-issues backend
	GitHub GitHubConfig `mapstructure:"github"`
}

// AzureConfig holds Azure DevOps connection settings
type AzureConfig struct {
	// Organization is the Azure DevOps organization name
	Organization string `mapstructure:"organization"`
	// Project is the project containing the work items
	Project string `mapstructure:"project"`
	// PAT is a personal access token with work item read scope.
	// Prefer setting WORKPLAN_TRACKER_AZURE_PAT over writing it to the config file.
	PAT string `mapstructure:"pat"`
	// BaseURL overrides the service root (default: "https://dev.azure.com")
	BaseURL string `mapstructure:"base_url"`
}

// GitHubConfig holds settings for the gh-backed tracker
type GitHubConfig struct {
	// Repo is the repository in owner/name form
	Repo string `mapstructure:"repo"`
	// Command is the gh executable (default: "gh")
	Command string `mapstructure:"command"`
}

// BatchConfig controls detail hydration
type BatchConfig struct {
	// MaxBatchSize is the number of ids per detail request (default: 30, max: 30)
	MaxBatchSize int `mapstructure:"max_batch_size"`
	// MaxConcurrency is the number of detail requests in flight (default: 4)
	MaxConcurrency int `mapstructure:"max_concurrency"`
	// FetchTimeoutSeconds bounds each detail request attempt (default: 30)
	FetchTimeoutSeconds int `mapstructure:"fetch_timeout_seconds"`
}

// FetchTimeout returns the per-attempt timeout as a Duration
func (c *BatchConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// RiskConfig tunes signal extraction for the risk policy
type RiskConfig struct {
	// MinDescriptionLength is the character count below which scope is ambiguous (default: 40)
	MinDescriptionLength int `mapstructure:"min_description_length"`
	// MaxHintDelta bounds the advisory hint adjustment in either direction (default: 15)
	MaxHintDelta int `mapstructure:"max_hint_delta"`
	// VagueTerms mark a description as underspecified
	VagueTerms []string `mapstructure:"vague_terms"`
	// SecurityKeywords mark work touching security-sensitive areas
	SecurityKeywords []string `mapstructure:"security_keywords"`
	// ApprovalTags mark work gated on an external sign-off
	ApprovalTags []string `mapstructure:"approval_tags"`
}

// PlanningConfig controls which items are scheduled
type PlanningConfig struct {
	// HoldStates are states whose items are reported as unscheduled
	HoldStates []string `mapstructure:"hold_states"`
	// ExcludedStates are filtered by the tracker query itself. Items in these
	// states are never seen, so a blocker in one of them reports as an
	// external dependency instead of a satisfied one (default: none)
	ExcludedStates []string `mapstructure:"excluded_states"`
}

// AdvisorConfig controls the optional AI suitability hint
type AdvisorConfig struct {
	// Enabled turns on advisory hints (default: false)
	Enabled bool `mapstructure:"enabled"`
	// Command is the claude executable (default: "claude")
	Command string `mapstructure:"command"`
	// TimeoutSeconds bounds each hint request (default: 60)
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// Timeout returns the hint timeout as a Duration
func (c *AdvisorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// OutputConfig controls plan rendering
type OutputConfig struct {
	// Format is "markdown", "json", "yaml", or "terminal" (default: "markdown")
	Format string `mapstructure:"format"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Dir is the directory for workplan.log; empty logs to stderr
	Dir string `mapstructure:"dir"`
}

// MetricsConfig controls the Prometheus endpoint of the serve command
type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables it
	Addr string `mapstructure:"addr"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Tracker: TrackerConfig{
			Kind: "file",
			File: "workitems.yaml",
			Azure: AzureConfig{
				BaseURL: "https://dev.azure.com",
			},
			GitHub: GitHubConfig{
				Command: "gh",
			},
		},
		Batch: BatchConfig{
			MaxBatchSize:        30,
			MaxConcurrency:      4,
			FetchTimeoutSeconds: 30,
		},
		Risk: RiskConfig{
			MinDescriptionLength: 40,
			MaxHintDelta:         15,
			VagueTerms:           []string{"TBD", "etc", "somehow", "maybe", "investigate", "as needed", "various", "figure out"},
			SecurityKeywords: []string{
				"security", "auth", "authentication", "authorization", "authenticate", "oauth", "SSO",
				"credential", "secret", "password", "token", "encryption", "encrypt",
				"permission", "vulnerability", "CVE", "PII",
			},
			ApprovalTags: []string{"needs-approval", "approval-required", "legal-review", "compliance"},
		},
		Planning: PlanningConfig{
			HoldStates:     []string{"On Hold", "Blocked", "Deferred"},
			ExcludedStates: []string{},
		},
		Advisor: AdvisorConfig{
			Enabled:        false,
			Command:        "claude",
			TimeoutSeconds: 60,
		},
		Output: OutputConfig{
			Format: "markdown",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Tracker defaults
	viper.SetDefault("tracker.kind", defaults.Tracker.Kind)
	viper.SetDefault("tracker.file", defaults.Tracker.File)
	viper.SetDefault("tracker.azure.organization", defaults.Tracker.Azure.Organization)
	viper.SetDefault("tracker.azure.project", defaults.Tracker.Azure.Project)
	viper.SetDefault("tracker.azure.pat", defaults.Tracker.Azure.PAT)
	viper.SetDefault("tracker.azure.base_url", defaults.Tracker.Azure.BaseURL)
	viper.SetDefault("tracker.github.repo", defaults.Tracker.GitHub.Repo)
	viper.SetDefault("tracker.github.command", defaults.Tracker.GitHub.Command)

	// Batch defaults
	viper.SetDefault("batch.max_batch_size", defaults.Batch.MaxBatchSize)
	viper.SetDefault("batch.max_concurrency", defaults.Batch.MaxConcurrency)
	viper.SetDefault("batch.fetch_timeout_seconds", defaults.Batch.FetchTimeoutSeconds)

	// Risk defaults
	viper.SetDefault("risk.min_description_length", defaults.Risk.MinDescriptionLength)
	viper.SetDefault("risk.max_hint_delta", defaults.Risk.MaxHintDelta)
	viper.SetDefault("risk.vague_terms", defaults.Risk.VagueTerms)
	viper.SetDefault("risk.security_keywords", defaults.Risk.SecurityKeywords)
	viper.SetDefault("risk.approval_tags", defaults.Risk.ApprovalTags)

	// Planning defaults
	viper.SetDefault("planning.hold_states", defaults.Planning.HoldStates)
	viper.SetDefault("planning.excluded_states", defaults.Planning.ExcludedStates)

	// Advisor defaults
	viper.SetDefault("advisor.enabled", defaults.Advisor.Enabled)
	viper.SetDefault("advisor.command", defaults.Advisor.Command)
	viper.SetDefault("advisor.timeout_seconds", defaults.Advisor.TimeoutSeconds)

	// Output defaults
	viper.SetDefault("output.format", defaults.Output.Format)

	// Logging defaults
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	// Metrics defaults
	viper.SetDefault("metrics.addr", defaults.Metrics.Addr)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "workplan")
	}
	// Fall back to ~/.config/workplan
	home, err := os.UserHomeDir()
	if err != nil {
		return ".workplan"
	}
	return filepath.Join(home, ".config", "workplan")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/workplan/internal/config"
	perrors "github.com/Iron-Ham/workplan/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify workplan configuration",
	Long: `View or modify workplan configuration.

Without arguments, displays the current configuration.
Use subcommands to validate, modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for invalid values",
	RunE:  runConfigValidate,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  workplan config set tracker.kind azure
  workplan config set batch.max_concurrency 8
  workplan config set advisor.enabled true

Run 'workplan config show' to see every key. List-valued keys such as
planning.hold_states must be edited in the config file directly.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/workplan/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// settableKeys maps scalar configuration keys to their value type.
var settableKeys = map[string]string{
	"tracker.kind":                "string",
	"tracker.file":                "string",
	"tracker.azure.organization":  "string",
	"tracker.azure.project":       "string",
	"tracker.azure.base_url":      "string",
	"tracker.github.repo":         "string",
	"tracker.github.command":      "string",
	"batch.max_batch_size":        "int",
	"batch.max_concurrency":       "int",
	"batch.fetch_timeout_seconds": "int",
	"risk.min_description_length": "int",
	"risk.max_hint_delta":         "int",
	"advisor.enabled":             "bool",
	"advisor.command":             "string",
	"advisor.timeout_seconds":     "int",
	"output.format":               "string",
	"logging.level":               "string",
	"logging.dir":                 "string",
	"metrics.addr":                "string",
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out)

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Config file: (none - using defaults)\n")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "tracker:")
	fmt.Fprintf(out, "  kind: %s\n", cfg.Tracker.Kind)
	fmt.Fprintf(out, "  file: %s\n", cfg.Tracker.File)
	fmt.Fprintf(out, "  azure.organization: %s\n", cfg.Tracker.Azure.Organization)
	fmt.Fprintf(out, "  azure.project: %s\n", cfg.Tracker.Azure.Project)
	fmt.Fprintf(out, "  azure.pat: %s\n", maskSecret(cfg.Tracker.Azure.PAT))
	fmt.Fprintf(out, "  azure.base_url: %s\n", cfg.Tracker.Azure.BaseURL)
	fmt.Fprintf(out, "  github.repo: %s\n", cfg.Tracker.GitHub.Repo)
	fmt.Fprintf(out, "  github.command: %s\n", cfg.Tracker.GitHub.Command)

	fmt.Fprintln(out, "batch:")
	fmt.Fprintf(out, "  max_batch_size: %d\n", cfg.Batch.MaxBatchSize)
	fmt.Fprintf(out, "  max_concurrency: %d\n", cfg.Batch.MaxConcurrency)
	fmt.Fprintf(out, "  fetch_timeout_seconds: %d\n", cfg.Batch.FetchTimeoutSeconds)

	fmt.Fprintln(out, "risk:")
	fmt.Fprintf(out, "  min_description_length: %d\n", cfg.Risk.MinDescriptionLength)
	fmt.Fprintf(out, "  max_hint_delta: %d\n", cfg.Risk.MaxHintDelta)
	fmt.Fprintf(out, "  vague_terms: %s\n", strings.Join(cfg.Risk.VagueTerms, ", "))
	fmt.Fprintf(out, "  security_keywords: %s\n", strings.Join(cfg.Risk.SecurityKeywords, ", "))
	fmt.Fprintf(out, "  approval_tags: %s\n", strings.Join(cfg.Risk.ApprovalTags, ", "))

	fmt.Fprintln(out, "planning:")
	fmt.Fprintf(out, "  hold_states: %s\n", strings.Join(cfg.Planning.HoldStates, ", "))
	fmt.Fprintf(out, "  excluded_states: %s\n", strings.Join(cfg.Planning.ExcludedStates, ", "))

	fmt.Fprintln(out, "advisor:")
	fmt.Fprintf(out, "  enabled: %v\n", cfg.Advisor.Enabled)
	fmt.Fprintf(out, "  command: %s\n", cfg.Advisor.Command)
	fmt.Fprintf(out, "  timeout_seconds: %d\n", cfg.Advisor.TimeoutSeconds)

	fmt.Fprintln(out, "output:")
	fmt.Fprintf(out, "  format: %s\n", cfg.Output.Format)

	fmt.Fprintln(out, "logging:")
	fmt.Fprintf(out, "  level: %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "  dir: %s\n", cfg.Logging.Dir)

	fmt.Fprintln(out, "metrics:")
	fmt.Fprintf(out, "  addr: %s\n", cfg.Metrics.Addr)

	return nil
}

// maskSecret hides all but the last four characters of a credential.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	keyType, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'workplan config set --help' to see valid keys", key)
	}

	// Validate the value based on type
	var typedValue any
	switch keyType {
	case "string":
		if err := validateEnum(key, value); err != nil {
			return err
		}
		typedValue = value
	case "bool":
		if value != "true" && value != "false" {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = value == "true"
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		if intVal < 0 {
			return fmt.Errorf("invalid value for %s: must be non-negative", key)
		}
		typedValue = intVal
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return perrors.Wrap(err, "failed to create config directory")
	}

	viper.Set(key, typedValue)

	configFile := config.ConfigFile()
	if err := viper.WriteConfigAs(configFile); err != nil {
		return perrors.Wrap(err, "failed to write config file")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", configFile)

	return nil
}

// validateEnum rejects values outside the fixed choices of enum-like keys.
func validateEnum(key, value string) error {
	var valid []string
	switch key {
	case "tracker.kind":
		valid = config.ValidTrackerKinds()
	case "output.format":
		valid = config.ValidOutputFormats()
	case "logging.level":
		valid = config.ValidLogLevels()
	default:
		return nil
	}
	if !slices.Contains(valid, value) {
		return fmt.Errorf("invalid value for %s: %s\nValid options: %s", key, value, strings.Join(valid, ", "))
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'workplan config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return perrors.Wrap(err, "failed to create config directory")
	}

	if err := os.WriteFile(configFile, []byte(defaultConfigContent), 0644); err != nil {
		return perrors.Wrap(err, "failed to write config file")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	fmt.Fprintln(cmd.OutOrStdout(), "Edit this file to customize workplan's behavior.")

	return nil
}

const defaultConfigContent = `# workplan configuration

# Where work items come from
tracker:
  # Options: file, azure, github
  kind: file
  # YAML or JSON fixture read by the file tracker
  file: workitems.yaml
  azure:
    organization: ""
    project: ""
    # Prefer WORKPLAN_TRACKER_AZURE_PAT over storing the token here
    pat: ""
    base_url: https://dev.azure.com
  github:
    # owner/name
    repo: ""
    command: gh

# Detail hydration
batch:
  # Ids per detail request (max 30)
  max_batch_size: 30
  # Detail requests in flight
  max_concurrency: 4
  # Timeout per request attempt
  fetch_timeout_seconds: 30

# Risk signal extraction
risk:
  # Descriptions shorter than this are ambiguous
  min_description_length: 40
  # Bound on the advisory hint adjustment
  max_hint_delta: 15
  vague_terms: [TBD, etc, somehow, maybe, investigate, as needed, various, figure out]
  security_keywords: [security, auth, authentication, authorization, authenticate, oauth, SSO, credential, secret, password, token, encryption, encrypt, permission, vulnerability, CVE, PII]
  approval_tags: [needs-approval, approval-required, legal-review, compliance]

planning:
  # Items in these states, and everything depending on them, are left unscheduled
  hold_states: [On Hold, Blocked, Deferred]
  # Filtered out by the tracker query
  excluded_states: []

# Optional model-backed hint that nudges risk scores
advisor:
  enabled: false
  command: claude
  timeout_seconds: 60

output:
  # Options: markdown, json, yaml, terminal
  format: markdown

logging:
  # Options: debug, info, warn, error
  level: info
  # Directory for workplan.log; empty logs to stderr
  dir: ""

metrics:
  # Listen address for /metrics in serve mode; empty disables it
  addr: ""
`

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. ./config.yaml (current directory)\n")
	fmt.Fprintln(out, "\nEnvironment variables: WORKPLAN_* (e.g., WORKPLAN_TRACKER_AZURE_PAT)")
	fmt.Fprintln(out, "A .env file in the current directory is loaded first.")

	return nil
}

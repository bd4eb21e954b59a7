package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "batch.max_batch_size")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// repoRegex validates owner/name repository references
var repoRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// MaxBatchSize is the largest detail request the trackers accept
const MaxBatchSize = 30

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidOutputFormats returns the list of valid plan output formats
func ValidOutputFormats() []string {
	return []string{"markdown", "json", "yaml", "terminal"}
}

// ValidTrackerKinds returns the list of supported tracker backends
func ValidTrackerKinds() []string {
	return []string{"file", "azure", "github"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateTracker()...)
	errors = append(errors, c.validateBatch()...)
	errors = append(errors, c.validateRisk()...)
	errors = append(errors, c.validatePlanning()...)
	errors = append(errors, c.validateAdvisor()...)
	errors = append(errors, c.validateOutput()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateTracker validates the TrackerConfig
func (c *Config) validateTracker() []ValidationError {
	var errors []ValidationError

	switch c.Tracker.Kind {
	case "file":
		if strings.TrimSpace(c.Tracker.File) == "" {
			errors = append(errors, ValidationError{
				Field:   "tracker.file",
				Value:   c.Tracker.File,
				Message: "is required when tracker.kind is file",
			})
		}
	case "azure":
		if c.Tracker.Azure.Organization == "" {
			errors = append(errors, ValidationError{
				Field:   "tracker.azure.organization",
				Value:   c.Tracker.Azure.Organization,
				Message: "is required when tracker.kind is azure",
			})
		}
		if c.Tracker.Azure.Project == "" {
			errors = append(errors, ValidationError{
				Field:   "tracker.azure.project",
				Value:   c.Tracker.Azure.Project,
				Message: "is required when tracker.kind is azure",
			})
		}
		if u := c.Tracker.Azure.BaseURL; u != "" && !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			errors = append(errors, ValidationError{
				Field:   "tracker.azure.base_url",
				Value:   u,
				Message: "must start with http:// or https://",
			})
		}
	case "github":
		if !repoRegex.MatchString(c.Tracker.GitHub.Repo) {
			errors = append(errors, ValidationError{
				Field:   "tracker.github.repo",
				Value:   c.Tracker.GitHub.Repo,
				Message: "must be in owner/name form",
			})
		}
		if c.Tracker.GitHub.Command == "" {
			errors = append(errors, ValidationError{
				Field:   "tracker.github.command",
				Value:   c.Tracker.GitHub.Command,
				Message: "cannot be empty",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "tracker.kind",
			Value:   c.Tracker.Kind,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidTrackerKinds(), ", ")),
		})
	}

	return errors
}

// validateBatch validates the BatchConfig
func (c *Config) validateBatch() []ValidationError {
	var errors []ValidationError

	if c.Batch.MaxBatchSize < 1 || c.Batch.MaxBatchSize > MaxBatchSize {
		errors = append(errors, ValidationError{
			Field:   "batch.max_batch_size",
			Value:   c.Batch.MaxBatchSize,
			Message: fmt.Sprintf("must be between 1 and %d", MaxBatchSize),
		})
	}

	if c.Batch.MaxConcurrency < 1 {
		errors = append(errors, ValidationError{
			Field:   "batch.max_concurrency",
			Value:   c.Batch.MaxConcurrency,
			Message: "must be at least 1",
		})
	}

	if c.Batch.FetchTimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "batch.fetch_timeout_seconds",
			Value:   c.Batch.FetchTimeoutSeconds,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validateRisk validates the RiskConfig
func (c *Config) validateRisk() []ValidationError {
	var errors []ValidationError

	if c.Risk.MinDescriptionLength < 0 {
		errors = append(errors, ValidationError{
			Field:   "risk.min_description_length",
			Value:   c.Risk.MinDescriptionLength,
			Message: "must be non-negative",
		})
	}

	if c.Risk.MaxHintDelta < 0 || c.Risk.MaxHintDelta > 50 {
		errors = append(errors, ValidationError{
			Field:   "risk.max_hint_delta",
			Value:   c.Risk.MaxHintDelta,
			Message: "must be between 0 and 50",
		})
	}

	errors = append(errors, validateTermList("risk.vague_terms", c.Risk.VagueTerms)...)
	errors = append(errors, validateTermList("risk.security_keywords", c.Risk.SecurityKeywords)...)
	errors = append(errors, validateTermList("risk.approval_tags", c.Risk.ApprovalTags)...)

	return errors
}

// validatePlanning validates the PlanningConfig
func (c *Config) validatePlanning() []ValidationError {
	var errors []ValidationError

	terminal := []string{"done", "completed", "closed", "resolved", "removed"}
	for i, s := range c.Planning.HoldStates {
		if slices.Contains(terminal, strings.ToLower(strings.TrimSpace(s))) {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("planning.hold_states[%d]", i),
				Value:   s,
				Message: "terminal states cannot be hold states",
			})
		}
	}
	errors = append(errors, validateTermList("planning.hold_states", c.Planning.HoldStates)...)
	errors = append(errors, validateTermList("planning.excluded_states", c.Planning.ExcludedStates)...)

	return errors
}

// validateAdvisor validates the AdvisorConfig
func (c *Config) validateAdvisor() []ValidationError {
	var errors []ValidationError

	if !c.Advisor.Enabled {
		return errors
	}

	if strings.TrimSpace(c.Advisor.Command) == "" {
		errors = append(errors, ValidationError{
			Field:   "advisor.command",
			Value:   c.Advisor.Command,
			Message: "cannot be empty when advisor is enabled",
		})
	}

	if c.Advisor.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "advisor.timeout_seconds",
			Value:   c.Advisor.TimeoutSeconds,
			Message: "must be at least 1",
		})
	}

	return errors
}

// validateOutput validates the OutputConfig
func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	if c.Output.Format != "" && !slices.Contains(ValidOutputFormats(), c.Output.Format) {
		errors = append(errors, ValidationError{
			Field:   "output.format",
			Value:   c.Output.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidOutputFormats(), ", ")),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

// validateTermList rejects blank and duplicate (case-insensitive) entries
func validateTermList(field string, terms []string) []ValidationError {
	var errors []ValidationError
	seen := make(map[string]bool)

	for i, term := range terms {
		fieldName := fmt.Sprintf("%s[%d]", field, i)
		normalized := strings.ToLower(strings.TrimSpace(term))

		if normalized == "" {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Value:   term,
				Message: "cannot be empty",
			})
			continue
		}

		if seen[normalized] {
			errors = append(errors, ValidationError{
				Field:   fieldName,
				Value:   term,
				Message: "duplicate entry",
			})
		}
		seen[normalized] = true
	}

	return errors
}

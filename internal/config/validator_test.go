package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got errors: %v", errs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{
			name:      "unknown tracker kind",
			modify:    func(c *Config) { c.Tracker.Kind = "jira" },
			wantField: "tracker.kind",
		},
		{
			name:      "file tracker without path",
			modify:    func(c *Config) { c.Tracker.File = " " },
			wantField: "tracker.file",
		},
		{
			name: "azure without organization",
			modify: func(c *Config) {
				c.Tracker.Kind = "azure"
				c.Tracker.Azure.Project = "Backlog"
			},
			wantField: "tracker.azure.organization",
		},
		{
			name: "azure without project",
			modify: func(c *Config) {
				c.Tracker.Kind = "azure"
				c.Tracker.Azure.Organization = "acme"
			},
			wantField: "tracker.azure.project",
		},
		{
			name: "azure with bad base url",
			modify: func(c *Config) {
				c.Tracker.Kind = "azure"
				c.Tracker.Azure.Organization = "acme"
				c.Tracker.Azure.Project = "Backlog"
				c.Tracker.Azure.BaseURL = "dev.azure.com"
			},
			wantField: "tracker.azure.base_url",
		},
		{
			name: "github with malformed repo",
			modify: func(c *Config) {
				c.Tracker.Kind = "github"
				c.Tracker.GitHub.Repo = "just-a-name"
			},
			wantField: "tracker.github.repo",
		},
		{
			name:      "batch size zero",
			modify:    func(c *Config) { c.Batch.MaxBatchSize = 0 },
			wantField: "batch.max_batch_size",
		},
		{
			name:      "batch size above limit",
			modify:    func(c *Config) { c.Batch.MaxBatchSize = 31 },
			wantField: "batch.max_batch_size",
		},
		{
			name:      "no concurrency",
			modify:    func(c *Config) { c.Batch.MaxConcurrency = 0 },
			wantField: "batch.max_concurrency",
		},
		{
			name:      "no fetch timeout",
			modify:    func(c *Config) { c.Batch.FetchTimeoutSeconds = 0 },
			wantField: "batch.fetch_timeout_seconds",
		},
		{
			name:      "negative description length",
			modify:    func(c *Config) { c.Risk.MinDescriptionLength = -1 },
			wantField: "risk.min_description_length",
		},
		{
			name:      "hint delta too large",
			modify:    func(c *Config) { c.Risk.MaxHintDelta = 90 },
			wantField: "risk.max_hint_delta",
		},
		{
			name:      "blank vague term",
			modify:    func(c *Config) { c.Risk.VagueTerms = []string{"TBD", " "} },
			wantField: "risk.vague_terms[1]",
		},
		{
			name:      "duplicate approval tag",
			modify:    func(c *Config) { c.Risk.ApprovalTags = []string{"compliance", "Compliance"} },
			wantField: "risk.approval_tags[1]",
		},
		{
			name:      "terminal hold state",
			modify:    func(c *Config) { c.Planning.HoldStates = []string{"Done"} },
			wantField: "planning.hold_states[0]",
		},
		{
			name: "advisor enabled without command",
			modify: func(c *Config) {
				c.Advisor.Enabled = true
				c.Advisor.Command = ""
			},
			wantField: "advisor.command",
		},
		{
			name:      "unknown output format",
			modify:    func(c *Config) { c.Output.Format = "html" },
			wantField: "output.format",
		},
		{
			name:      "unknown log level",
			modify:    func(c *Config) { c.Logging.Level = "verbose" },
			wantField: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("Validate() returned %d errors, want 1: %v", len(errs), errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.wantField)
			}
		})
	}
}

func TestConfig_Validate_AdvisorDisabledSkipsChecks(t *testing.T) {
	cfg := Default()
	cfg.Advisor.Command = ""
	cfg.Advisor.TimeoutSeconds = 0

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("disabled advisor should not be validated, got %v", errs)
	}
}

func TestConfig_Validate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Batch.MaxBatchSize = 0
	cfg.Batch.MaxConcurrency = 0
	cfg.Output.Format = "pdf"

	if errs := cfg.Validate(); len(errs) != 3 {
		t.Errorf("Validate() returned %d errors, want 3: %v", len(errs), errs)
	}
}

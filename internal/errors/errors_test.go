package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// GraphError Tests
// -----------------------------------------------------------------------------

func TestNewGraphError(t *testing.T) {
	members := []string{"12", "15", "19"}
	err := NewGraphError(members)

	members[0] = "mutated"
	if err.CycleMembers[0] != "12" {
		t.Errorf("CycleMembers[0] = %q, want %q (constructor must copy)", err.CycleMembers[0], "12")
	}
	if !errors.Is(err, ErrDependencyCycle) {
		t.Error("errors.Is(err, ErrDependencyCycle) = false, want true")
	}
	if err.IsRetryable() {
		t.Error("IsRetryable() = true, want false")
	}
	if err.Severity() != SeverityError {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityError)
	}
}

func TestGraphError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *GraphError
		want string
	}{
		{
			name: "without parent",
			err:  NewGraphError([]string{"1", "2"}),
			want: "graph error: dependency cycle among 1, 2: dependency cycle detected",
		},
		{
			name: "with parent",
			err:  NewGraphError([]string{"1", "2"}).WithParentID("10"),
			want: "graph error [parent=10]: dependency cycle among 1, 2: dependency cycle detected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGraphError_As(t *testing.T) {
	wrapped := fmt.Errorf("planning: %w", NewGraphError([]string{"a", "b"}))

	var graphErr *GraphError
	if !errors.As(wrapped, &graphErr) {
		t.Fatal("errors.As() failed to find GraphError")
	}
	if len(graphErr.CycleMembers) != 2 {
		t.Errorf("len(CycleMembers) = %d, want 2", len(graphErr.CycleMembers))
	}
}

// -----------------------------------------------------------------------------
// FetchFatalError Tests
// -----------------------------------------------------------------------------

func TestFetchFatalError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewFetchFatalError("listing children", cause).WithParentID("7")

	if got, want := err.Error(), "fetch failed [parent=7]: listing children: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrTrackerUnreachable) {
		t.Error("errors.Is(err, ErrTrackerUnreachable) = false, want true")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if err.IsRetryable() {
		t.Error("IsRetryable() = true for non-retryable cause")
	}
	if err.Severity() != SeverityCritical {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityCritical)
	}
}

func TestFetchFatalError_RetryableCause(t *testing.T) {
	err := NewFetchFatalError("listing children", NewTimeoutError("wiql query", time.Second))
	if !err.IsRetryable() {
		t.Error("IsRetryable() = false, want true when cause is a timeout")
	}
}

// -----------------------------------------------------------------------------
// PlanningError Tests
// -----------------------------------------------------------------------------

func TestPlanningError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *PlanningError
		want string
	}{
		{
			name: "message only",
			err:  NewPlanningError("hydration aborted", nil),
			want: "planning error: hydration aborted",
		},
		{
			name: "with parent and phase",
			err:  NewPlanningError("hydration aborted", ErrTimeout).WithParentID("3").WithPhase("hydrate"),
			want: "planning error [parent=3, phase=hydrate]: hydration aborted: operation timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// Semantic Error Tests
// -----------------------------------------------------------------------------

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("work item", "42")
	if got, want := err.Error(), "work item '42' not found"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	withCause := NewNotFoundError("work item", "42").WithCause(ErrInvalidInput)
	if !errors.Is(withCause, ErrInvalidInput) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("parent id cannot be empty").WithField("parent_id").WithValue("")

	want := "validation error [field=parent_id, value=]: parent id cannot be empty"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("errors.Is(err, ErrInvalidInput) = false, want true")
	}
}

func TestTimeoutError(t *testing.T) {
	err := NewTimeoutError("fetching detail batch 2", 30*time.Second)

	if got, want := err.Error(), "timeout error: fetching detail batch 2 (timeout: 30s)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Error("errors.Is(err, ErrTimeout) = false, want true")
	}
	if !err.IsRetryable() {
		t.Error("IsRetryable() = false, want true")
	}
}

// -----------------------------------------------------------------------------
// Classification Tests
// -----------------------------------------------------------------------------

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"wrapped timeout sentinel", fmt.Errorf("x: %w", ErrTimeout), true},
		{"timeout error", NewTimeoutError("op", time.Second), true},
		{"graph error", NewGraphError([]string{"a"}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"graph", NewGraphError([]string{"a", "b"}), true},
		{"fetch", NewFetchFatalError("list", errors.New("x")), true},
		{"wrapped planning", Wrap(NewPlanningError("x", nil), "ctx"), true},
		{"validation", NewValidationError("bad"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetSeverity(t *testing.T) {
	if got := GetSeverity(nil); got != SeverityDebug {
		t.Errorf("GetSeverity(nil) = %v, want %v", got, SeverityDebug)
	}
	if got := GetSeverity(errors.New("x")); got != SeverityError {
		t.Errorf("GetSeverity(plain) = %v, want %v", got, SeverityError)
	}
	if got := GetSeverity(NewValidationError("x")); got != SeverityWarning {
		t.Errorf("GetSeverity(validation) = %v, want %v", got, SeverityWarning)
	}
}

func TestWrapf(t *testing.T) {
	if Wrapf(nil, "x %d", 1) != nil {
		t.Error("Wrapf(nil) should return nil")
	}
	err := Wrapf(ErrTimeout, "batch %d", 2)
	if got, want := err.Error(), "batch 2: operation timed out"; got != want {
		t.Errorf("Wrapf() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Error("Wrapf() lost the wrapped error")
	}
	if !IsUserFacing(NewGraphError([]string{"a"})) {
		t.Error("IsUserFacing(GraphError) = false, want true")
	}
}

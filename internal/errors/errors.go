// Package errors provides centralized error definitions and error handling utilities
// for workplan. It defines the planning error taxonomy, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors are fatal for a single planning invocation:
//   - GraphError: an explicit-dependency cycle was found among work items
//   - FetchFatalError: the tracking system could not be reached at all
//   - PlanningError: any other failure while assembling a plan
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// Batch degradation and validation warnings are not errors. They are recorded
// on the plan itself so the caller still receives a complete result.
//
// # Usage
//
//	err := errors.NewGraphError([]string{"101", "102"})
//	if errors.Is(err, errors.ErrDependencyCycle) { ... }
//
//	var graphErr *errors.GraphError
//	if errors.As(err, &graphErr) {
//	    fmt.Println(graphErr.CycleMembers)
//	}
//
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Planning-related sentinel errors
var (
	// ErrDependencyCycle indicates a circular explicit dependency between work items.
	ErrDependencyCycle = New("dependency cycle detected")
	// ErrTrackerUnreachable indicates the tracking system could not be queried at all.
	ErrTrackerUnreachable = New("tracking system unreachable")
	// ErrParentRequired indicates a planning call was made without a parent id.
	ErrParentRequired = New("parent work item id is required")
	// ErrPlanInvalid indicates that an assembled plan violated an ordering invariant.
	ErrPlanInvalid = New("plan is invalid")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// PlanError is the base interface for all workplan errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type PlanError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// GraphError reports an explicit-dependency cycle. It names every work item that
// sits on a cycle, in discovery order. A GraphError is fatal for the planning
// invocation: no partial plan accompanies it.
//
// Example:
//
//	err := errors.NewGraphError([]string{"12", "15"}).WithParentID("10")
//	fmt.Println(err) // "graph error [parent=10]: dependency cycle among 12, 15: dependency cycle detected"
type GraphError struct {
	baseError
	ParentID     string
	CycleMembers []string
}

// NewGraphError creates a new GraphError naming the given cycle members.
func NewGraphError(members []string) *GraphError {
	cp := make([]string, len(members))
	copy(cp, members)
	return &GraphError{
		baseError: baseError{
			message:    fmt.Sprintf("dependency cycle among %s", strings.Join(cp, ", ")),
			cause:      ErrDependencyCycle,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		CycleMembers: cp,
	}
}

// WithParentID adds the parent work item id to the error context.
func (e *GraphError) WithParentID(id string) *GraphError {
	e.ParentID = id
	return e
}

// Error returns the formatted error message.
func (e *GraphError) Error() string {
	prefix := "graph error"
	if e.ParentID != "" {
		prefix = fmt.Sprintf("graph error [parent=%s]", e.ParentID)
	}
	return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
}

// Is checks if this error matches the target.
func (e *GraphError) Is(target error) bool {
	if _, ok := target.(*GraphError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// FetchFatalError reports that the tracking system could not be queried at all,
// as opposed to a single detail batch failing (which degrades instead).
//
// Example:
//
//	err := errors.NewFetchFatalError("listing children", cause).WithParentID("10")
type FetchFatalError struct {
	baseError
	ParentID  string
	Operation string
}

// NewFetchFatalError creates a new FetchFatalError. Retryability follows the cause.
func NewFetchFatalError(operation string, cause error) *FetchFatalError {
	return &FetchFatalError{
		baseError: baseError{
			message:    operation,
			cause:      cause,
			severity:   SeverityCritical,
			retryable:  IsRetryable(cause),
			userFacing: true,
		},
		Operation: operation,
	}
}

// WithParentID adds the parent work item id to the error context.
func (e *FetchFatalError) WithParentID(id string) *FetchFatalError {
	e.ParentID = id
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *FetchFatalError) WithRetryable(r bool) *FetchFatalError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *FetchFatalError) Error() string {
	prefix := "fetch failed"
	if e.ParentID != "" {
		prefix = fmt.Sprintf("fetch failed [parent=%s]", e.ParentID)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *FetchFatalError) Is(target error) bool {
	if _, ok := target.(*FetchFatalError); ok {
		return true
	}
	if errors.Is(target, ErrTrackerUnreachable) {
		return true
	}
	return e.baseError.Is(target)
}

// PlanningError represents any other failure while producing a plan.
//
// Example:
//
//	err := errors.NewPlanningError("hydrating details", ctx.Err()).WithPhase("hydrate")
type PlanningError struct {
	baseError
	ParentID string
	Phase    string
}

// NewPlanningError creates a new PlanningError.
func NewPlanningError(message string, cause error) *PlanningError {
	return &PlanningError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithParentID adds the parent work item id to the error context.
func (e *PlanningError) WithParentID(id string) *PlanningError {
	e.ParentID = id
	return e
}

// WithPhase adds the pipeline phase name to the error context.
func (e *PlanningError) WithPhase(phase string) *PlanningError {
	e.Phase = phase
	return e
}

// Error returns the formatted error message.
func (e *PlanningError) Error() string {
	var parts []string
	if e.ParentID != "" {
		parts = append(parts, fmt.Sprintf("parent=%s", e.ParentID))
	}
	if e.Phase != "" {
		parts = append(parts, fmt.Sprintf("phase=%s", e.Phase))
	}

	prefix := "planning error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("planning error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *PlanningError) Is(target error) bool {
	if _, ok := target.(*PlanningError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("work item", "42")
//	fmt.Println(err) // "work item '42' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("parent id cannot be empty")
//	err = err.WithField("parent_id").WithValue("")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("fetching detail batch 2", 30*time.Second)
//	fmt.Println(err) // "timeout error: fetching detail batch 2 (timeout: 30s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true, // Timeouts are generally retryable
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing PlanError with IsRetryable() returning true
//   - TimeoutError instances
//   - Errors wrapping ErrTimeout
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var planErr PlanError
	if As(err, &planErr) {
		return planErr.IsRetryable()
	}

	if Is(err, ErrTimeout) {
		return true
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var planErr PlanError
	if As(err, &planErr) {
		return planErr.IsUserFacing()
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement PlanError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var planErr PlanError
	if As(err, &planErr) {
		return planErr.Severity()
	}

	return SeverityError
}

// IsFatal returns true if the error aborts a planning invocation without a plan:
// a GraphError, a FetchFatalError, or a PlanningError.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var graphErr *GraphError
	var fetchErr *FetchFatalError
	var planningErr *PlanningError

	return As(err, &graphErr) || As(err, &fetchErr) || As(err, &planningErr)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

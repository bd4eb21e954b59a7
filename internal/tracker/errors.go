package tracker

import "errors"

// Sentinel errors for tracker operations.
var (
	// ErrIssueNotFound indicates that the requested work item does not exist.
	ErrIssueNotFound = errors.New("work item not found")

	// ErrAuthRequired indicates that authentication is required or was rejected.
	ErrAuthRequired = errors.New("authentication required")

	// ErrProviderUnavailable indicates that the provider tool/API is not available.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

package workitem

import (
	"slices"
	"strings"
)

var terminalStates = []string{"done", "completed", "closed", "resolved", "removed"}

var activeStates = []string{
	"new", "proposed", "active", "approved", "committed", "ready", "open",
	"to do", "doing", "in progress", "design", "in review",
}

// DefaultHoldStates are states whose items survive normalization but are
// never scheduled.
func DefaultHoldStates() []string {
	return []string{"On Hold", "Blocked", "Deferred"}
}

// TerminalStates returns the states that exclude an item from planning entirely.
func TerminalStates() []string {
	return []string{"Done", "Completed", "Closed", "Resolved", "Removed"}
}

func canonicalState(state string) string {
	return strings.ToLower(strings.Join(strings.Fields(state), " "))
}

// IsTerminal reports whether state is a terminal state (case-insensitive).
func IsTerminal(state string) bool {
	return slices.Contains(terminalStates, canonicalState(state))
}

// IsActive reports whether state is one of the known active states.
func IsActive(state string) bool {
	return slices.Contains(activeStates, canonicalState(state))
}

// IsHold reports whether state matches one of holdStates (case-insensitive).
func IsHold(state string, holdStates []string) bool {
	s := canonicalState(state)
	if s == "" {
		return false
	}
	return slices.ContainsFunc(holdStates, func(h string) bool {
		return canonicalState(h) == s
	})
}

// IsKnown reports whether state belongs to any recognized vocabulary.
func IsKnown(state string, holdStates []string) bool {
	return IsTerminal(state) || IsActive(state) || IsHold(state, holdStates)
}

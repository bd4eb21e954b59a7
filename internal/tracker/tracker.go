// Package tracker provides read-only access to the tracking systems that own
// backlog work items. It defines the Source interface the planner consumes
// and implementations for Azure DevOps (REST), GitHub sub-issues (gh CLI),
// and local YAML/JSON fixtures.
package tracker

import (
	"context"

	"github.com/Iron-Ham/workplan/internal/workitem"
)

// Source defines the read operations the planner needs from a tracking system.
// Implementations never write to the tracker.
type Source interface {
	// FetchChildren returns the children of parentID in discovery order.
	// excludedStates is a hint for backends that can filter server-side;
	// results may still contain items in any state.
	// An error means the tracker could not be reached at all.
	FetchChildren(ctx context.Context, parentID string, excludedStates []string) ([]workitem.WorkItem, error)

	// FetchDetailsBatch hydrates up to 30 ids in one call. Ids the backend
	// does not know are omitted from the result.
	FetchDetailsBatch(ctx context.Context, ids []string) ([]workitem.Detail, error)
}

// Kind names a tracker backend.
type Kind string

// Supported backends.
const (
	KindFile   Kind = "file"
	KindAzure  Kind = "azure"
	KindGitHub Kind = "github"
)

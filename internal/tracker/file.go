package tracker

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/workplan/internal/workitem"
)

// Fixture is the on-disk format read by FileSource. JSON is accepted too,
// since it is valid YAML.
//
//	parent: "100"
//	items:
//	  - id: "101"
//	    title: Paginate orders
//	    state: Active
//	    blocked_by: ["102"]
type Fixture struct {
	// Parent is the default parent for items without parent_id.
	Parent string              `yaml:"parent"`
	Items  []workitem.WorkItem `yaml:"items"`
}

// FileSource serves work items from a local fixture file. The file is re-read
// on every call so edits are picked up without restarting.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the fixture path.
func (f *FileSource) Path() string { return f.path }

// LoadFixture reads and parses a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: fixture %s does not exist", ErrProviderUnavailable, path)
		}
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return &fx, nil
}

// FetchChildren returns fixture items whose parent is parentID, skipping
// excluded states.
func (f *FileSource) FetchChildren(ctx context.Context, parentID string, excludedStates []string) ([]workitem.WorkItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fx, err := LoadFixture(f.path)
	if err != nil {
		return nil, err
	}

	var children []workitem.WorkItem
	for _, it := range fx.Items {
		parent := it.ParentID
		if parent == "" {
			parent = fx.Parent
		}
		if parent != parentID || isExcluded(it.State, excludedStates) {
			continue
		}
		it.ParentID = parent
		children = append(children, it)
	}

	if len(children) == 0 && !fx.knows(parentID) {
		return nil, fmt.Errorf("%w: parent %s", ErrIssueNotFound, parentID)
	}
	return children, nil
}

// knows reports whether id appears in the fixture as an item or a parent.
func (fx *Fixture) knows(id string) bool {
	if fx.Parent == id {
		return true
	}
	return slices.ContainsFunc(fx.Items, func(it workitem.WorkItem) bool {
		return it.ID == id || it.ParentID == id
	})
}

// FetchDetailsBatch returns the full fixture records for ids.
func (f *FileSource) FetchDetailsBatch(ctx context.Context, ids []string) ([]workitem.Detail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fx, err := LoadFixture(f.path)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]workitem.WorkItem, len(fx.Items))
	for _, it := range fx.Items {
		if _, dup := byID[it.ID]; !dup {
			byID[it.ID] = it
		}
	}

	details := make([]workitem.Detail, 0, len(ids))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			continue
		}
		details = append(details, detailFromItem(it))
	}
	return details, nil
}

func detailFromItem(it workitem.WorkItem) workitem.Detail {
	return workitem.Detail{
		ID:                 it.ID,
		Title:              it.Title,
		AssignedTo:         it.AssignedTo,
		BlockedBy:          it.BlockedBy,
		Tags:               it.Tags,
		RequiresApproval:   it.RequiresApproval,
		LinkedPRCount:      it.LinkedPRCount,
		LinkedCommitCount:  it.LinkedCommitCount,
		RelatedCount:       it.RelatedCount,
		ChildCount:         it.ChildCount,
		Description:        it.Description,
		AcceptanceCriteria: it.AcceptanceCriteria,
		ChangedAt:          it.ChangedAt,
	}
}

func isExcluded(state string, excluded []string) bool {
	return slices.ContainsFunc(excluded, func(s string) bool {
		return strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(state))
	})
}

var _ Source = (*FileSource)(nil)

package workitem

import (
	"fmt"
	"strings"
)

// WarningKind classifies a non-fatal planning warning.
type WarningKind string

// Warning kinds reported on a plan.
const (
	WarnMissingTitle       WarningKind = "missing-title"
	WarnMissingID          WarningKind = "missing-id"
	WarnDuplicateID        WarningKind = "duplicate-id"
	WarnUnknownState       WarningKind = "unknown-state"
	WarnExternalDependency WarningKind = "unresolved-external-dependency"
	WarnBatchDegraded      WarningKind = "batch-degraded"
	WarnHintFailed         WarningKind = "hint-failed"
)

// Warning is a non-fatal validation finding attached to an item.
// ItemID is empty for findings about records that have no id.
type Warning struct {
	ItemID  string      `json:"item_id,omitempty" yaml:"item_id,omitempty"`
	Kind    WarningKind `json:"kind" yaml:"kind"`
	Message string      `json:"message" yaml:"message"`
}

// NormalizedSet is the active item set handed to hydration and graph building.
type NormalizedSet struct {
	// Items holds surviving items in discovery order.
	Items []WorkItem
	// Terminal holds ids of discarded terminal-state items. A dependency on
	// one of these is already satisfied.
	Terminal map[string]bool
	Warnings []Warning
}

// IDs returns the ids of the surviving items in discovery order.
func (s NormalizedSet) IDs() []string {
	ids := make([]string, len(s.Items))
	for i, it := range s.Items {
		ids[i] = it.ID
	}
	return ids
}

// Normalize filters raw fetched items down to the active set.
//
// Terminal-state items, items without an id, later duplicates of an id, and
// the parent itself are dropped. Items without a title get a placeholder and
// a "title missing" gap. Unknown states are reported but the item is kept.
// Normalize never fails; problems surface as warnings.
func Normalize(parentID string, raw []WorkItem, holdStates []string) NormalizedSet {
	set := NormalizedSet{
		Items:    make([]WorkItem, 0, len(raw)),
		Terminal: make(map[string]bool),
	}
	seen := make(map[string]bool, len(raw))

	for pos, r := range raw {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			set.Warnings = append(set.Warnings, Warning{
				Kind:    WarnMissingID,
				Message: fmt.Sprintf("item at position %d has no id and was discarded", pos),
			})
			continue
		}
		if IsTerminal(r.State) {
			set.Terminal[id] = true
			continue
		}
		if parentID != "" && id == parentID {
			continue
		}
		if seen[id] {
			set.Warnings = append(set.Warnings, Warning{
				ItemID:  id,
				Kind:    WarnDuplicateID,
				Message: fmt.Sprintf("duplicate item %s at position %d ignored", id, pos),
			})
			continue
		}
		seen[id] = true

		item := r.Clone()
		item.ID = id
		if strings.TrimSpace(item.Title) == "" {
			item.Title = PlaceholderTitle(id)
			item.MissingInfo = append(item.MissingInfo, GapTitleMissing)
			set.Warnings = append(set.Warnings, Warning{
				ItemID:  id,
				Kind:    WarnMissingTitle,
				Message: "title missing; placeholder used",
			})
		}
		if !IsKnown(item.State, holdStates) {
			set.Warnings = append(set.Warnings, Warning{
				ItemID:  id,
				Kind:    WarnUnknownState,
				Message: fmt.Sprintf("unknown state %q; item retained", item.State),
			})
		}
		set.Items = append(set.Items, item)
	}

	// An id that is both terminal and active keeps its active record.
	for _, it := range set.Items {
		delete(set.Terminal, it.ID)
	}

	return set
}

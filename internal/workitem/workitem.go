// Package workitem defines the backlog work item model shared by every stage
// of the planner, together with the normalization and hydration-merge steps
// that turn raw tracker records into the active item set.
package workitem

import (
	"slices"
	"strings"
	"time"
)

// Gap descriptions recorded in MissingInfo.
const (
	GapTitleMissing    = "title missing"
	GapFetchFailed     = "fetch failed"
	GapCriteriaMissing = "acceptance criteria missing"
)

// WorkItem is a trackable backlog unit as fetched from a tracking system.
// It is read-only input for a planning run; MissingInfo and Notes are the only
// fields the planner itself populates.
type WorkItem struct {
	ID                 string    `json:"id" yaml:"id"`
	Title              string    `json:"title" yaml:"title"`
	Type               string    `json:"type,omitempty" yaml:"type,omitempty"`
	State              string    `json:"state" yaml:"state"`
	AssignedTo         string    `json:"assigned_to,omitempty" yaml:"assigned_to,omitempty"`
	ParentID           string    `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	BlockedBy          []string  `json:"blocked_by,omitempty" yaml:"blocked_by,omitempty"`
	Tags               []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	RequiresApproval   bool      `json:"requires_approval,omitempty" yaml:"requires_approval,omitempty"`
	LinkedPRCount      int       `json:"linked_pr_count,omitempty" yaml:"linked_pr_count,omitempty"`
	LinkedCommitCount  int       `json:"linked_commit_count,omitempty" yaml:"linked_commit_count,omitempty"`
	RelatedCount       int       `json:"related_count,omitempty" yaml:"related_count,omitempty"`
	ChildCount         int       `json:"child_count,omitempty" yaml:"child_count,omitempty"`
	Description        string    `json:"description,omitempty" yaml:"description,omitempty"`
	AcceptanceCriteria string    `json:"acceptance_criteria,omitempty" yaml:"acceptance_criteria,omitempty"`
	ChangedAt          time.Time `json:"changed_at,omitzero" yaml:"changed_at,omitempty"`

	MissingInfo []string `json:"missing_info,omitempty" yaml:"missing_info,omitempty"`
	Notes       []string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Detail is the hydration record returned by a batch detail fetch.
// Zero-valued fields mean "not reported" and leave the shallow item untouched.
type Detail struct {
	ID                 string    `json:"id" yaml:"id"`
	Title              string    `json:"title,omitempty" yaml:"title,omitempty"`
	AssignedTo         string    `json:"assigned_to,omitempty" yaml:"assigned_to,omitempty"`
	BlockedBy          []string  `json:"blocked_by,omitempty" yaml:"blocked_by,omitempty"`
	Tags               []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	RequiresApproval   bool      `json:"requires_approval,omitempty" yaml:"requires_approval,omitempty"`
	LinkedPRCount      int       `json:"linked_pr_count,omitempty" yaml:"linked_pr_count,omitempty"`
	LinkedCommitCount  int       `json:"linked_commit_count,omitempty" yaml:"linked_commit_count,omitempty"`
	RelatedCount       int       `json:"related_count,omitempty" yaml:"related_count,omitempty"`
	ChildCount         int       `json:"child_count,omitempty" yaml:"child_count,omitempty"`
	Description        string    `json:"description,omitempty" yaml:"description,omitempty"`
	AcceptanceCriteria string    `json:"acceptance_criteria,omitempty" yaml:"acceptance_criteria,omitempty"`
	ChangedAt          time.Time `json:"changed_at,omitzero" yaml:"changed_at,omitempty"`

	// Unavailable marks a record synthesized for an id whose chunk could not
	// be fetched.
	Unavailable bool `json:"unavailable,omitempty" yaml:"unavailable,omitempty"`
}

// UnavailableDetail returns the placeholder detail for an id that could not be hydrated.
func UnavailableDetail(id string) Detail {
	return Detail{ID: id, Unavailable: true}
}

// IsDegraded reports whether the item's details could not be fetched.
func (w WorkItem) IsDegraded() bool {
	return slices.Contains(w.MissingInfo, GapFetchFailed)
}

// IsCompound reports whether the item has children and needs decomposition.
func (w WorkItem) IsCompound() bool {
	return w.ChildCount > 0
}

// Clone returns a deep copy of the item so callers can annotate it without
// touching the fetched original.
func (w WorkItem) Clone() WorkItem {
	c := w
	c.BlockedBy = slices.Clone(w.BlockedBy)
	c.Tags = slices.Clone(w.Tags)
	c.MissingInfo = slices.Clone(w.MissingInfo)
	c.Notes = slices.Clone(w.Notes)
	return c
}

// Merge overlays a hydration record onto a shallow item and returns the result.
// An unavailable detail forces MissingInfo to exactly ["fetch failed"].
func Merge(item WorkItem, d Detail) WorkItem {
	out := item.Clone()

	if d.Unavailable {
		out.MissingInfo = []string{GapFetchFailed}
		out.Notes = append(out.Notes, "details unavailable; classified conservatively")
		return out
	}

	if d.Title != "" && isPlaceholderTitle(out) {
		out.Title = d.Title
		out.MissingInfo = slices.DeleteFunc(out.MissingInfo, func(s string) bool { return s == GapTitleMissing })
	}
	if d.AssignedTo != "" {
		out.AssignedTo = d.AssignedTo
	}
	if d.Description != "" {
		out.Description = d.Description
	}
	if d.AcceptanceCriteria != "" {
		out.AcceptanceCriteria = d.AcceptanceCriteria
	}
	if !d.ChangedAt.IsZero() {
		out.ChangedAt = d.ChangedAt
	}
	out.RequiresApproval = out.RequiresApproval || d.RequiresApproval
	out.BlockedBy = union(out.BlockedBy, d.BlockedBy)
	out.Tags = union(out.Tags, d.Tags)
	out.LinkedPRCount = max(out.LinkedPRCount, d.LinkedPRCount)
	out.LinkedCommitCount = max(out.LinkedCommitCount, d.LinkedCommitCount)
	out.RelatedCount = max(out.RelatedCount, d.RelatedCount)
	out.ChildCount = max(out.ChildCount, d.ChildCount)

	return out
}

// PlaceholderTitle returns the title used for items fetched without one.
func PlaceholderTitle(id string) string {
	return "(untitled " + id + ")"
}

func isPlaceholderTitle(w WorkItem) bool {
	return w.Title == "" || w.Title == PlaceholderTitle(w.ID)
}

// union appends the elements of extra not already in base, preserving order.
func union(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, s := range slices.Concat(base, extra) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

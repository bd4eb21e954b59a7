package planner

import (
	"github.com/Iron-Ham/workplan/internal/risk"
	"github.com/Iron-Ham/workplan/internal/workitem"
)

// ExecutionBlock is a set of items that may run concurrently once every
// earlier block has finished.
type ExecutionBlock struct {
	Index int      `json:"index" yaml:"index"`
	Items []string `json:"items" yaml:"items"`
	// Assessments point into ExecutionPlan.Assessments, one per entry of Items.
	Assessments []*risk.Assessment `json:"-" yaml:"-"`
	Note        string             `json:"note,omitempty" yaml:"note,omitempty"`
}

// UnscheduledItem is an active item kept out of every block.
type UnscheduledItem struct {
	ID     string `json:"id" yaml:"id"`
	Reason string `json:"reason" yaml:"reason"`
}

// Summary holds the plan's aggregate counts.
type Summary struct {
	Total         int `json:"total" yaml:"total"`
	Scheduled     int `json:"scheduled" yaml:"scheduled"`
	Unscheduled   int `json:"unscheduled" yaml:"unscheduled"`
	AISuitable    int `json:"ai_suitable" yaml:"ai_suitable"`
	SpotCheck     int `json:"spot_check" yaml:"spot_check"`
	HumanRequired int `json:"human_required" yaml:"human_required"`
	Hybrid        int `json:"hybrid" yaml:"hybrid"`
	Degraded      int `json:"degraded" yaml:"degraded"`
	BlockCount    int `json:"block_count" yaml:"block_count"`

	// MaxParallelism is the size of the widest block.
	MaxParallelism int `json:"max_parallelism" yaml:"max_parallelism"`
	// AverageParallelism is scheduled items per block, rounded to two places.
	AverageParallelism float64 `json:"average_parallelism" yaml:"average_parallelism"`
	// SingleItemBlocks counts blocks that serialize the plan on one item.
	SingleItemBlocks int `json:"single_item_blocks" yaml:"single_item_blocks"`
}

// ExecutionPlan is the result of one planning run. It carries no timestamps
// or run identifiers, so identical input always serializes identically.
type ExecutionPlan struct {
	ParentID      string             `json:"parent_id" yaml:"parent_id"`
	PolicyVersion string             `json:"policy_version" yaml:"policy_version"`
	Blocks        []ExecutionBlock   `json:"blocks" yaml:"blocks"`
	Unscheduled   []UnscheduledItem  `json:"unscheduled" yaml:"unscheduled"`
	Warnings      []workitem.Warning `json:"warnings" yaml:"warnings"`
	// Assessments are in discovery order.
	Assessments []risk.Assessment   `json:"assessments" yaml:"assessments"`
	Items       []workitem.WorkItem `json:"items" yaml:"items"`
	Summary     Summary             `json:"summary" yaml:"summary"`
}

// Assessment returns the assessment for id, or nil.
func (p *ExecutionPlan) Assessment(id string) *risk.Assessment {
	for i := range p.Assessments {
		if p.Assessments[i].ItemID == id {
			return &p.Assessments[i]
		}
	}
	return nil
}

// Item returns the hydrated item for id, or nil.
func (p *ExecutionPlan) Item(id string) *workitem.WorkItem {
	for i := range p.Items {
		if p.Items[i].ID == id {
			return &p.Items[i]
		}
	}
	return nil
}

// BlockOf returns the index of the block containing id, or -1 when the item
// is unscheduled or unknown.
func (p *ExecutionPlan) BlockOf(id string) int {
	for _, b := range p.Blocks {
		for _, it := range b.Items {
			if it == id {
				return b.Index
			}
		}
	}
	return -1
}

// ReadyForAgent returns the ids of scheduled AI items in block order.
func (p *ExecutionPlan) ReadyForAgent() []string {
	var ids []string
	for _, b := range p.Blocks {
		for _, a := range b.Assessments {
			if a.Decision == risk.DecisionAI {
				ids = append(ids, a.ItemID)
			}
		}
	}
	return ids
}

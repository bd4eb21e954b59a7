package risk

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Iron-Ham/workplan/internal/logging"
	"github.com/Iron-Ham/workplan/internal/workitem"
)

// Hint is an advisory opinion from an external analyzer.
type Hint struct {
	Delta int    `json:"delta"`
	Note  string `json:"note"`
}

// HintProvider supplies optional advisory hints.
type HintProvider interface {
	Hint(ctx context.Context, item workitem.WorkItem) (Hint, error)
}

// Assessment is the classification of one item.
type Assessment struct {
	ItemID      string   `json:"item_id" yaml:"item_id"`
	Score       int      `json:"score" yaml:"score"`
	Decision    Decision `json:"decision" yaml:"decision"`
	SpotCheck   bool     `json:"spot_check,omitempty" yaml:"spot_check,omitempty"`
	Rationale   string   `json:"rationale" yaml:"rationale"`
	MissingInfo []string `json:"missing_info,omitempty" yaml:"missing_info,omitempty"`
	Signals     Signals  `json:"signals" yaml:"signals"`
	HintNote    string   `json:"hint_note,omitempty" yaml:"hint_note,omitempty"`
}

// Score computes the clipped risk score for a signal vector plus a hint delta
// already bounded by the caller.
func Score(s Signals, w Weights, hintDelta int) int {
	score := w.Base
	if s.HasExternalApprovalFlag {
		score += w.Approval
	}
	if s.IsAmbiguousScope {
		score += w.Ambiguous
	}
	if s.TouchesSecurityArea {
		score += w.Security
	}
	if !s.HasAcceptanceCriteria {
		score += w.MissingCriteria
	}
	if s.HasChildren {
		score += w.Children
	}
	return clip(score+hintDelta, MinScore, MaxScore)
}

// Decide applies the decision table. It returns the decision, whether a
// spot check is recommended, the possibly raised score, and a rationale.
func Decide(score int, s Signals, missingInfo []string) (Decision, bool, int, string) {
	switch {
	case len(missingInfo) > 0:
		return DecisionHuman, false, max(score, HumanThreshold), "missing information: " + strings.Join(missingInfo, ", ")
	case score >= HumanThreshold:
		return DecisionHuman, false, score, fmt.Sprintf("risk score %d at or above %d", score, HumanThreshold)
	case s.HasChildren:
		return DecisionHybrid, false, score, "decomposition required before autonomous execution"
	case score < SpotCheckThreshold:
		return DecisionAI, false, score, fmt.Sprintf("low risk score %d", score)
	default:
		return DecisionAI, true, score, fmt.Sprintf("risk score %d; spot-check recommended", score)
	}
}

// MissingInfo returns the ordered gap list for an item. Degraded items report
// exactly the fetch failure.
func MissingInfo(item workitem.WorkItem, s Signals) []string {
	if item.IsDegraded() {
		return []string{workitem.GapFetchFailed}
	}
	gaps := slices.Clone(item.MissingInfo)
	if !s.HasAcceptanceCriteria {
		gaps = append(gaps, workitem.GapCriteriaMissing)
	}
	return gaps
}

// Scorer assesses items under a fixed policy.
type Scorer struct {
	policy Policy
	hints  HintProvider
	logger *logging.Logger
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithHintProvider wires an advisory hint source. A nil provider disables hints.
func WithHintProvider(h HintProvider) ScorerOption {
	return func(s *Scorer) { s.hints = h }
}

// WithScorerLogger sets the logger.
func WithScorerLogger(l *logging.Logger) ScorerOption {
	return func(s *Scorer) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewScorer creates a Scorer for p.
func NewScorer(p Policy, opts ...ScorerOption) *Scorer {
	s := &Scorer{policy: p, logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the scorer's policy.
func (s *Scorer) Policy() Policy { return s.policy }

// Assess classifies item. A failing hint provider contributes nothing and is
// reported as a warning instead of an error.
func (s *Scorer) Assess(ctx context.Context, item workitem.WorkItem) (Assessment, *workitem.Warning) {
	signals := ExtractSignals(item, s.policy)
	hint, warning := s.hint(ctx, item)

	delta := clip(hint.Delta, -s.policy.MaxHintDelta, s.policy.MaxHintDelta)
	missing := MissingInfo(item, signals)
	decision, spot, score, rationale := Decide(Score(signals, s.policy.Weights, delta), signals, missing)

	return Assessment{
		ItemID:      item.ID,
		Score:       score,
		Decision:    decision,
		SpotCheck:   spot,
		Rationale:   rationale,
		MissingInfo: missing,
		Signals:     signals,
		HintNote:    hint.Note,
	}, warning
}

func (s *Scorer) hint(ctx context.Context, item workitem.WorkItem) (Hint, *workitem.Warning) {
	if s.hints == nil {
		return Hint{}, nil
	}
	h, err := s.hints.Hint(ctx, item)
	if err != nil {
		s.logger.Warn("advisory hint failed", "item_id", item.ID, "error", err.Error())
		return Hint{}, &workitem.Warning{
			ItemID:  item.ID,
			Kind:    workitem.WarnHintFailed,
			Message: "advisory hint unavailable; scored without it",
		}
	}
	return h, nil
}

func clip(v, lo, hi int) int {
	if lo > hi {
		return 0
	}
	return min(max(v, lo), hi)
}

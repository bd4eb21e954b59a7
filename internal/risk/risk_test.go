package risk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/workplan/internal/workitem"
)

const clearDescription = "Add pagination to the orders listing endpoint with a page size of fifty."

func cleanItem(id string) workitem.WorkItem {
	return workitem.WorkItem{
		ID:                 id,
		Title:              "Paginate orders",
		State:              "Active",
		Description:        clearDescription,
		AcceptanceCriteria: "Orders endpoint returns at most fifty rows per page.",
	}
}

type stubHints struct {
	hint Hint
	err  error
}

func (s stubHints) Hint(context.Context, workitem.WorkItem) (Hint, error) {
	return s.hint, s.err
}

func TestExtractSignals(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name   string
		mutate func(*workitem.WorkItem)
		want   Signals
	}{
		{
			name:   "clean item",
			mutate: func(*workitem.WorkItem) {},
			want:   Signals{HasAcceptanceCriteria: true},
		},
		{
			name:   "criteria only markup",
			mutate: func(w *workitem.WorkItem) { w.AcceptanceCriteria = "<div>&nbsp;</div>\n## " },
			want:   Signals{},
		},
		{
			name:   "approval flag",
			mutate: func(w *workitem.WorkItem) { w.RequiresApproval = true },
			want:   Signals{HasAcceptanceCriteria: true, HasExternalApprovalFlag: true},
		},
		{
			name:   "approval tag",
			mutate: func(w *workitem.WorkItem) { w.Tags = []string{"Legal-Review"} },
			want:   Signals{HasAcceptanceCriteria: true, HasExternalApprovalFlag: true},
		},
		{
			name:   "short description",
			mutate: func(w *workitem.WorkItem) { w.Description = "<p>Fix it</p>" },
			want:   Signals{HasAcceptanceCriteria: true, IsAmbiguousScope: true},
		},
		{
			name: "vague term",
			mutate: func(w *workitem.WorkItem) {
				w.Description = clearDescription + " Other endpoints TBD."
			},
			want: Signals{HasAcceptanceCriteria: true, IsAmbiguousScope: true},
		},
		{
			name: "vague term must be a whole word",
			mutate: func(w *workitem.WorkItem) {
				w.Description = clearDescription + " Keep the fetch logic unchanged."
			},
			want: Signals{HasAcceptanceCriteria: true},
		},
		{
			name:   "security keyword in title",
			mutate: func(w *workitem.WorkItem) { w.Title = "Rotate OAuth tokens" },
			want:   Signals{HasAcceptanceCriteria: true, TouchesSecurityArea: true},
		},
		{
			name:   "security keyword must be a whole word",
			mutate: func(w *workitem.WorkItem) { w.Title = "Show author name on blog cards" },
			want:   Signals{HasAcceptanceCriteria: true},
		},
		{
			name:   "security stem listed explicitly",
			mutate: func(w *workitem.WorkItem) { w.Title = "Require authorization on export endpoint" },
			want:   Signals{HasAcceptanceCriteria: true, TouchesSecurityArea: true},
		},
		{
			name:   "plural security keyword",
			mutate: func(w *workitem.WorkItem) { w.Title = "Rotate storage credentials" },
			want:   Signals{HasAcceptanceCriteria: true, TouchesSecurityArea: true},
		},
		{
			name:   "security keyword in tags",
			mutate: func(w *workitem.WorkItem) { w.Tags = []string{"pii"} },
			want:   Signals{HasAcceptanceCriteria: true, TouchesSecurityArea: true},
		},
		{
			name:   "children",
			mutate: func(w *workitem.WorkItem) { w.ChildCount = 3 },
			want:   Signals{HasAcceptanceCriteria: true, HasChildren: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := cleanItem("1")
			tt.mutate(&it)
			assert.Equal(t, tt.want, ExtractSignals(it, p))
		})
	}
}

func TestContainsAny(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		terms  []string
		plural bool
		want   bool
	}{
		{"prefix of longer word", "Show author name on blog cards", []string{"auth"}, true, false},
		{"exact word", "Fix auth redirect", []string{"auth"}, true, true},
		{"plural s", "Rotate tokens", []string{"token"}, true, true},
		{"plural es", "Patch the message buses", []string{"bus"}, true, true},
		{"plural disabled", "Rotate tokens", []string{"token"}, false, false},
		{"case insensitive", "Rotate OAuth secrets", []string{"oauth"}, true, true},
		{"phrase", "Layout as needed.", []string{"as needed"}, false, true},
		{"regexp metacharacters quoted", "Upgrade C++ runtime", []string{"c.+"}, false, false},
		{"blank terms skipped", "anything", []string{" ", ""}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsAny(tt.text, tt.terms, tt.plural))
		})
	}
}

func TestAssess_AuthorIsNotSecurity(t *testing.T) {
	it := cleanItem("7")
	it.Title = "Show author name on blog cards"

	sig := ExtractSignals(it, DefaultPolicy())
	assert.False(t, sig.TouchesSecurityArea)
	assert.Equal(t, DefaultWeights().Base, Score(sig, DefaultWeights(), 0))
}

func TestDefaultWeights_ReturnsCopy(t *testing.T) {
	w := DefaultWeights()
	w.Security = 99
	assert.Equal(t, 15, DefaultWeights().Security)
	assert.Equal(t, 15, DefaultPolicy().Weights.Security)
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		s     Signals
		delta int
		want  int
	}{
		{"baseline", Signals{HasAcceptanceCriteria: true}, 0, 10},
		{"missing criteria", Signals{}, 0, 35},
		{"approval without criteria", Signals{HasExternalApprovalFlag: true}, 0, 60},
		{"everything", Signals{HasExternalApprovalFlag: true, IsAmbiguousScope: true, TouchesSecurityArea: true, HasChildren: true}, 0, 100},
		{"everything plus hint clipped high", Signals{HasExternalApprovalFlag: true, IsAmbiguousScope: true, TouchesSecurityArea: true, HasChildren: true}, 15, 100},
		{"negative hint clipped low", Signals{HasAcceptanceCriteria: true}, -15, 0},
		{"positive hint", Signals{HasAcceptanceCriteria: true}, 7, 17},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.s, DefaultWeights(), tt.delta))
		})
	}
}

func TestScore_MonotonicInCriteria(t *testing.T) {
	for mask := range 16 {
		s := Signals{
			HasExternalApprovalFlag: mask&1 != 0,
			IsAmbiguousScope:        mask&2 != 0,
			TouchesSecurityArea:     mask&4 != 0,
			HasChildren:             mask&8 != 0,
		}
		for delta := -15; delta <= 15; delta += 5 {
			with := s
			with.HasAcceptanceCriteria = true
			without := s
			without.HasAcceptanceCriteria = false

			assert.GreaterOrEqual(t, Score(without, DefaultWeights(), delta), Score(with, DefaultWeights(), delta),
				"signals %+v delta %d", s, delta)
		}
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		score     int
		s         Signals
		missing   []string
		decision  Decision
		spotCheck bool
		outScore  int
	}{
		{"missing info raises floor", 10, Signals{}, []string{"fetch failed"}, DecisionHuman, false, 60},
		{"missing info keeps higher score", 85, Signals{}, []string{"title missing"}, DecisionHuman, false, 85},
		{"high score", 60, Signals{HasAcceptanceCriteria: true}, nil, DecisionHuman, false, 60},
		{"compound low score", 20, Signals{HasChildren: true}, nil, DecisionHybrid, false, 20},
		{"compound high score stays human", 70, Signals{HasChildren: true}, nil, DecisionHuman, false, 70},
		{"low score", 29, Signals{}, nil, DecisionAI, false, 29},
		{"spot check", 30, Signals{}, nil, DecisionAI, true, 30},
		{"spot check upper", 59, Signals{}, nil, DecisionAI, true, 59},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, spot, score, rationale := Decide(tt.score, tt.s, tt.missing)
			assert.Equal(t, tt.decision, decision)
			assert.Equal(t, tt.spotCheck, spot)
			assert.Equal(t, tt.outScore, score)
			assert.NotEmpty(t, rationale)
		})
	}
}

func TestAssess_Scenarios(t *testing.T) {
	scorer := NewScorer(DefaultPolicy())
	ctx := context.Background()

	t.Run("clean item is AI with score 10", func(t *testing.T) {
		a, warn := scorer.Assess(ctx, cleanItem("A"))
		assert.Nil(t, warn)
		assert.Equal(t, 10, a.Score)
		assert.Equal(t, DecisionAI, a.Decision)
		assert.False(t, a.SpotCheck)
		assert.Empty(t, a.MissingInfo)
	})

	t.Run("approval without criteria is Human at 60", func(t *testing.T) {
		b := cleanItem("B")
		b.RequiresApproval = true
		b.AcceptanceCriteria = ""

		a, _ := scorer.Assess(ctx, b)
		assert.Equal(t, 60, a.Score)
		assert.Equal(t, DecisionHuman, a.Decision)
		assert.Equal(t, []string{workitem.GapCriteriaMissing}, a.MissingInfo)
	})

	t.Run("compound item is Hybrid", func(t *testing.T) {
		c := cleanItem("C")
		c.ChildCount = 2

		a, _ := scorer.Assess(ctx, c)
		assert.Equal(t, 20, a.Score)
		assert.Equal(t, DecisionHybrid, a.Decision)
		assert.Contains(t, a.Rationale, "decomposition")
	})

	t.Run("degraded item reports only fetch failure", func(t *testing.T) {
		d := workitem.Merge(workitem.WorkItem{ID: "D", Title: "x", State: "New"}, workitem.UnavailableDetail("D"))

		a, _ := scorer.Assess(ctx, d)
		assert.Equal(t, []string{workitem.GapFetchFailed}, a.MissingInfo)
		assert.Equal(t, DecisionHuman, a.Decision)
		assert.GreaterOrEqual(t, a.Score, HumanThreshold)
	})
}

func TestAssess_Hints(t *testing.T) {
	ctx := context.Background()

	t.Run("delta is clipped and note recorded", func(t *testing.T) {
		s := NewScorer(DefaultPolicy(), WithHintProvider(stubHints{hint: Hint{Delta: 40, Note: "touches billing"}}))
		a, warn := s.Assess(ctx, cleanItem("1"))
		require.Nil(t, warn)
		assert.Equal(t, 25, a.Score)
		assert.False(t, a.SpotCheck)
		assert.Equal(t, "touches billing", a.HintNote)
	})

	t.Run("failing provider contributes nothing", func(t *testing.T) {
		s := NewScorer(DefaultPolicy(), WithHintProvider(stubHints{err: errors.New("claude not found")}))
		a, warn := s.Assess(ctx, cleanItem("1"))
		require.NotNil(t, warn)
		assert.Equal(t, workitem.WarnHintFailed, warn.Kind)
		assert.Equal(t, 10, a.Score)
		assert.Equal(t, DecisionAI, a.Decision)
	})
}

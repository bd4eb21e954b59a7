// Package planner turns the active children of a parent work item into an
// ordered set of execution blocks.
//
// A run fetches the children, normalizes them, hydrates details in bounded
// parallel chunks, builds the explicit dependency graph, classifies every
// item with the risk policy and levels the graph into blocks. Runs share no
// state; the same input always produces the same plan.
package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/workplan/internal/batch"
	"github.com/Iron-Ham/workplan/internal/config"
	perrors "github.com/Iron-Ham/workplan/internal/errors"
	"github.com/Iron-Ham/workplan/internal/graph"
	"github.com/Iron-Ham/workplan/internal/logging"
	"github.com/Iron-Ham/workplan/internal/risk"
	"github.com/Iron-Ham/workplan/internal/tracker"
	"github.com/Iron-Ham/workplan/internal/workitem"
)

// Config holds the planning inputs that do not come from the tracker.
type Config struct {
	Batch      batch.Config
	Policy     risk.Policy
	HoldStates []string
	// ExcludedStates are passed to the tracker's child query.
	ExcludedStates []string
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Batch:      batch.DefaultConfig(),
		Policy:     risk.DefaultPolicy(),
		HoldStates: workitem.DefaultHoldStates(),
	}
}

// FromConfig maps the application configuration onto planner settings.
func FromConfig(c *config.Config) Config {
	policy := risk.DefaultPolicy()
	policy.MinDescriptionLength = c.Risk.MinDescriptionLength
	policy.MaxHintDelta = c.Risk.MaxHintDelta
	if len(c.Risk.VagueTerms) > 0 {
		policy.VagueTerms = c.Risk.VagueTerms
	}
	if len(c.Risk.SecurityKeywords) > 0 {
		policy.SecurityKeywords = c.Risk.SecurityKeywords
	}
	if len(c.Risk.ApprovalTags) > 0 {
		policy.ApprovalTags = c.Risk.ApprovalTags
	}

	return Config{
		Batch: batch.Config{
			MaxBatchSize:   c.Batch.MaxBatchSize,
			MaxConcurrency: c.Batch.MaxConcurrency,
			FetchTimeout:   c.Batch.FetchTimeout(),
		},
		Policy:         policy,
		HoldStates:     c.Planning.HoldStates,
		ExcludedStates: c.Planning.ExcludedStates,
	}
}

// Planner produces execution plans from a tracker.
type Planner struct {
	source   tracker.Source
	cfg      Config
	logger   *logging.Logger
	hints    risk.HintProvider
	recorder Recorder
}

// New creates a Planner reading from source.
func New(source tracker.Source, cfg Config, opts ...Option) *Planner {
	p := &Planner{
		source:   source,
		cfg:      cfg,
		logger:   logging.NopLogger(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PlanParallelExecution plans the active children of parentID.
//
// It fails with *errors.ValidationError for a blank or malformed parent id,
// with *errors.NotFoundError when the tracker does not know the parent,
// with *errors.FetchFatalError when the children cannot be listed,
// with *errors.GraphError when explicit dependencies form a cycle, and with
// the context error when ctx ends. Failing detail chunks degrade the affected
// items instead of failing the run.
func (p *Planner) PlanParallelExecution(ctx context.Context, parentID string) (*ExecutionPlan, error) {
	start := time.Now()
	if strings.TrimSpace(parentID) == "" {
		p.recorder.ObservePlan(OutcomeInvalid, time.Since(start))
		return nil, perrors.NewValidationError("parent work item id is required").
			WithField("parent_id").
			WithCause(perrors.ErrParentRequired)
	}
	log := p.runLogger(parentID)

	log.WithPhase("fetch").Info("fetching children")
	raw, err := p.source.FetchChildren(ctx, parentID, p.cfg.ExcludedStates)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			p.recorder.ObservePlan(OutcomeCanceled, time.Since(start))
			return nil, ctxErr
		}
		switch {
		case errors.Is(err, perrors.ErrInvalidInput):
			log.Warn("invalid parent reference", "error", err.Error())
			p.recorder.ObservePlan(OutcomeInvalid, time.Since(start))
			return nil, err
		case errors.Is(err, tracker.ErrIssueNotFound):
			log.Warn("parent not found", "error", err.Error())
			p.recorder.ObservePlan(OutcomeNotFound, time.Since(start))
			return nil, perrors.NewNotFoundError("work item", parentID).WithCause(err)
		}
		log.Error("listing children failed", "error", err.Error())
		p.recorder.ObservePlan(OutcomeFetchFailed, time.Since(start))
		return nil, perrors.NewFetchFatalError("listing children", err).
			WithParentID(parentID).
			WithRetryable(errors.Is(err, tracker.ErrProviderUnavailable))
	}

	plan, err := p.plan(ctx, log, parentID, raw, true)
	p.recorder.ObservePlan(outcomeOf(err), time.Since(start))
	return plan, err
}

// PlanItems plans items that were already fetched. Details are still
// hydrated from the tracker when the Planner has one.
func (p *Planner) PlanItems(ctx context.Context, parentID string, items []workitem.WorkItem) (*ExecutionPlan, error) {
	start := time.Now()
	plan, err := p.plan(ctx, p.runLogger(parentID), parentID, items, p.source != nil)
	p.recorder.ObservePlan(outcomeOf(err), time.Since(start))
	return plan, err
}

func (p *Planner) runLogger(parentID string) *logging.Logger {
	return p.logger.WithRun(uuid.NewString()).WithParent(parentID)
}

func (p *Planner) plan(ctx context.Context, log *logging.Logger, parentID string, raw []workitem.WorkItem, hydrate bool) (*ExecutionPlan, error) {
	set := workitem.Normalize(parentID, raw, p.cfg.HoldStates)
	warnings := set.Warnings
	log.WithPhase("normalize").Info("normalized items",
		"fetched", len(raw),
		"active", len(set.Items),
		"terminal", len(set.Terminal),
		"warnings", len(set.Warnings),
	)

	items := set.Items
	if hydrate && len(items) > 0 {
		hydrated, degradeWarnings, err := p.hydrate(ctx, log, items)
		if err != nil {
			return nil, err
		}
		items = hydrated
		warnings = append(warnings, degradeWarnings...)
	}

	g, err := graph.Build(items, set.Terminal)
	if err != nil {
		var gerr *perrors.GraphError
		if errors.As(err, &gerr) {
			log.WithPhase("graph").Error("dependency cycle", "members", gerr.CycleMembers)
			return nil, gerr.WithParentID(parentID)
		}
		return nil, err
	}
	warnings = append(warnings, g.Warnings()...)
	log.WithPhase("graph").Info("built dependency graph", "nodes", g.Len(), "edges", len(g.Edges()))

	scorer := risk.NewScorer(p.cfg.Policy, risk.WithHintProvider(p.hints), risk.WithScorerLogger(log))
	assessments := make([]risk.Assessment, 0, g.Len())
	for _, n := range g.Nodes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, w := scorer.Assess(ctx, n.Item)
		if w != nil {
			warnings = append(warnings, *w)
		}
		assessments = append(assessments, a)
		p.recorder.ObserveDecision(a.Decision, a.SpotCheck)
		log.WithPhase("score").Debug("assessed item",
			"item_id", a.ItemID,
			"score", a.Score,
			"decision", string(a.Decision),
		)
	}

	lv := Level(g, p.cfg.HoldStates)
	plan := Assemble(parentID, g, lv, assessments, warnings)
	if err := Verify(plan, g); err != nil {
		log.WithPhase("level").Error("plan failed verification", "error", err.Error())
		return nil, err
	}
	log.WithPhase("level").Info("plan assembled",
		"blocks", plan.Summary.BlockCount,
		"scheduled", plan.Summary.Scheduled,
		"unscheduled", plan.Summary.Unscheduled,
		"degraded", plan.Summary.Degraded,
	)
	return plan, nil
}

// hydrate fetches details for items and merges them in discovery order.
func (p *Planner) hydrate(ctx context.Context, log *logging.Logger, items []workitem.WorkItem) ([]workitem.WorkItem, []workitem.Warning, error) {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	b := batch.New(p.source, p.cfg.Batch,
		batch.WithLogger(log.WithPhase("hydrate")),
		batch.WithChunkHook(func(r batch.ChunkReport) { p.recorder.ObserveChunk(r.Outcome) }),
	)
	res, err := b.Hydrate(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	merged := make([]workitem.WorkItem, len(items))
	for i, it := range items {
		merged[i] = workitem.Merge(it, res.Details[i])
	}
	log.WithPhase("hydrate").Info("hydrated items",
		"chunks", len(res.Chunks),
		"degraded", len(res.Degraded),
	)
	return merged, degradeWarnings(res), nil
}

// degradeWarnings reports each degraded chunk once, plus any id a
// successful chunk left out of its response.
func degradeWarnings(res *batch.Result) []workitem.Warning {
	var warnings []workitem.Warning
	inDegradedChunk := make(map[string]bool)
	for _, c := range res.Chunks {
		if c.Outcome != batch.OutcomeDegraded {
			continue
		}
		for _, id := range c.IDs {
			inDegradedChunk[id] = true
		}
		warnings = append(warnings, workitem.Warning{
			Kind:    workitem.WarnBatchDegraded,
			Message: degradeMessage(c),
		})
	}
	for _, id := range res.Degraded {
		if inDegradedChunk[id] {
			continue
		}
		warnings = append(warnings, workitem.Warning{
			ItemID:  id,
			Kind:    workitem.WarnBatchDegraded,
			Message: "tracker returned no details",
		})
	}
	return warnings
}

func degradeMessage(c batch.ChunkReport) string {
	msg := fmt.Sprintf("detail batch %d (%d items, %s..%s) failed after %d attempts",
		c.Index, len(c.IDs), c.IDs[0], c.IDs[len(c.IDs)-1], c.Attempts)
	var timeoutErr *perrors.TimeoutError
	if errors.As(c.Err, &timeoutErr) {
		msg += fmt.Sprintf(", each timed out after %s", timeoutErr.Duration)
	}
	return msg
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, perrors.ErrDependencyCycle):
		return OutcomeCycle
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	case errors.Is(err, perrors.ErrTrackerUnreachable):
		return OutcomeFetchFailed
	default:
		return OutcomeInvalid
	}
}

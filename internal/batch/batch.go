// Package batch hydrates work items with their details in bounded-size chunks.
//
// Chunks are fetched concurrently by a bounded pool. Each attempt runs under
// its own timeout and a failed chunk is retried once; a chunk that fails twice
// degrades to unavailable records instead of failing the run. Results are
// committed one whole chunk at a time and returned in the original id order,
// so completion order never leaks into the output.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	perrors "github.com/Iron-Ham/workplan/internal/errors"
	"github.com/Iron-Ham/workplan/internal/logging"
	"github.com/Iron-Ham/workplan/internal/workitem"
)

// MaxBatchSize is the largest chunk the tracker APIs accept.
const MaxBatchSize = 30

// Defaults for Config fields left at zero.
const (
	DefaultMaxConcurrency = 4
	DefaultFetchTimeout   = 30 * time.Second
)

// maxAttempts is one try plus one retry.
const maxAttempts = 2

// Fetcher retrieves details for a chunk of ids.
type Fetcher interface {
	FetchDetailsBatch(ctx context.Context, ids []string) ([]workitem.Detail, error)
}

// Config controls chunking and fetch parallelism.
type Config struct {
	MaxBatchSize   int
	MaxConcurrency int
	FetchTimeout   time.Duration
}

// DefaultConfig returns the default batching configuration.
func DefaultConfig() Config {
	return Config{
		MaxBatchSize:   MaxBatchSize,
		MaxConcurrency: DefaultMaxConcurrency,
		FetchTimeout:   DefaultFetchTimeout,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxBatchSize <= 0 || c.MaxBatchSize > MaxBatchSize {
		c.MaxBatchSize = MaxBatchSize
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	return c
}

// Chunk outcomes reported in ChunkReport.Outcome.
const (
	OutcomeOK       = "ok"
	OutcomeRetried  = "retried"
	OutcomeDegraded = "degraded"
)

// ChunkReport describes how one chunk was fetched.
type ChunkReport struct {
	Index    int
	IDs      []string
	Attempts int
	Outcome  string
	Err      error // last error, nil when the chunk succeeded
}

// Result is the hydration output in original id order.
type Result struct {
	Details  []workitem.Detail
	Degraded []string // ids whose chunk failed twice, in id order
	Chunks   []ChunkReport
}

// Option configures a Batcher.
type Option func(*Batcher)

// WithLogger sets the logger used for chunk-level diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(b *Batcher) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithChunkHook registers a callback invoked after each chunk is committed.
// It is called from the single merge section, never concurrently.
func WithChunkHook(fn func(ChunkReport)) Option {
	return func(b *Batcher) {
		b.onChunk = fn
	}
}

// Batcher hydrates ids using a Fetcher.
type Batcher struct {
	fetcher Fetcher
	cfg     Config
	logger  *logging.Logger
	onChunk func(ChunkReport)
}

// New creates a Batcher. Zero Config fields fall back to defaults and a batch
// size above MaxBatchSize is clamped.
func New(f Fetcher, cfg Config, opts ...Option) *Batcher {
	b := &Batcher{
		fetcher: f,
		cfg:     cfg.withDefaults(),
		logger:  logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Config returns the effective configuration.
func (b *Batcher) Config() Config {
	return b.cfg
}

// accumulator is the shared sink written once per finished chunk.
type accumulator struct {
	mu      sync.Mutex
	details map[string]workitem.Detail
	reports []ChunkReport
	onChunk func(ChunkReport)
}

func (a *accumulator) commit(report ChunkReport, details []workitem.Detail) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, d := range details {
		a.details[d.ID] = d
	}
	a.reports[report.Index] = report
	if a.onChunk != nil {
		a.onChunk(report)
	}
}

// Hydrate fetches details for ids. Canceling ctx aborts with the context
// error; individual chunk failures degrade instead.
func (b *Batcher) Hydrate(ctx context.Context, ids []string) (*Result, error) {
	chunks := Partition(ids, b.cfg.MaxBatchSize)
	acc := &accumulator{
		details: make(map[string]workitem.Detail, len(ids)),
		reports: make([]ChunkReport, len(chunks)),
		onChunk: b.onChunk,
	}

	p := pool.New().WithMaxGoroutines(b.cfg.MaxConcurrency)
	for i, chunk := range chunks {
		p.Go(func() {
			report, details := b.fetchChunk(ctx, i, chunk)
			if ctx.Err() != nil {
				return
			}
			acc.commit(report, details)
		})
	}
	p.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		Details: make([]workitem.Detail, 0, len(ids)),
		Chunks:  acc.reports,
	}
	for _, id := range ids {
		d, ok := acc.details[id]
		if !ok {
			d = workitem.UnavailableDetail(id)
		}
		if d.Unavailable {
			res.Degraded = append(res.Degraded, id)
		}
		res.Details = append(res.Details, d)
	}
	return res, nil
}

// fetchChunk runs up to maxAttempts bounded attempts and returns the
// chunk's details, synthesizing unavailable records after the last failure.
func (b *Batcher) fetchChunk(ctx context.Context, index int, ids []string) (ChunkReport, []workitem.Detail) {
	report := ChunkReport{Index: index, IDs: ids}
	log := b.logger.With("chunk", index, "size", len(ids))

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			report.Err = ctx.Err()
			return report, nil
		}
		report.Attempts = attempt

		details, err := b.attempt(ctx, index, ids)
		if err == nil {
			report.Outcome = OutcomeOK
			if attempt > 1 {
				report.Outcome = OutcomeRetried
			}
			report.Err = nil
			return report, filterDetails(ids, details)
		}

		report.Err = err
		log.Warn("detail fetch attempt failed", "attempt", attempt, "retryable", perrors.IsRetryable(err), "error", err.Error())
	}

	report.Outcome = OutcomeDegraded
	log.Error("detail chunk degraded", "attempts", report.Attempts, "error", report.Err.Error())

	degraded := make([]workitem.Detail, len(ids))
	for i, id := range ids {
		degraded[i] = workitem.UnavailableDetail(id)
	}
	return report, degraded
}

// fetchResult carries one FetchDetailsBatch call back to its attempt.
type fetchResult struct {
	details []workitem.Detail
	err     error
}

// attempt runs one bounded fetch. The fetch runs in its own goroutine so a
// fetcher that never returns is abandoned at the deadline; the buffered
// channel lets that goroutine exit whenever it does return.
func (b *Batcher) attempt(ctx context.Context, index int, ids []string) ([]workitem.Detail, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, b.cfg.FetchTimeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		details, err := b.fetcher.FetchDetailsBatch(attemptCtx, ids)
		done <- fetchResult{details: details, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			if attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
				return nil, b.timeoutError(index, r.err)
			}
			return nil, r.err
		}
		return r.details, nil
	case <-attemptCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, b.timeoutError(index, attemptCtx.Err())
	}
}

func (b *Batcher) timeoutError(index int, cause error) error {
	return perrors.NewTimeoutError(fmt.Sprintf("fetching detail batch %d", index), b.cfg.FetchTimeout).WithCause(cause)
}

// filterDetails keeps only details for ids in the chunk. Ids the source did
// not return are left out and become unavailable during assembly.
func filterDetails(ids []string, details []workitem.Detail) []workitem.Detail {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]workitem.Detail, 0, len(details))
	for _, d := range details {
		if want[d.ID] {
			out = append(out, d)
			delete(want, d.ID)
		}
	}
	return out
}

// Partition splits ids into consecutive chunks of at most size elements.
func Partition(ids []string, size int) [][]string {
	if size <= 0 {
		size = MaxBatchSize
	}
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end:end])
	}
	return chunks
}

package batch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/Iron-Ham/workplan/internal/errors"
	"github.com/Iron-Ham/workplan/internal/workitem"
)

// fetchFunc adapts a function to the Fetcher interface.
type fetchFunc func(ctx context.Context, ids []string) ([]workitem.Detail, error)

func (f fetchFunc) FetchDetailsBatch(ctx context.Context, ids []string) ([]workitem.Detail, error) {
	return f(ctx, ids)
}

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d", i+1)
	}
	return ids
}

func echoDetails(ids []string) []workitem.Detail {
	out := make([]workitem.Detail, len(ids))
	for i, id := range ids {
		out[i] = workitem.Detail{ID: id, Description: "detail for " + id}
	}
	return out
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		size  int
		sizes []int
	}{
		{"empty", 0, 30, nil},
		{"exact", 30, 30, []int{30}},
		{"forty-five", 45, 30, []int{30, 15}},
		{"small chunks", 7, 3, []int{3, 3, 1}},
		{"non-positive size uses max", 31, 0, []int{30, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Partition(makeIDs(tt.n), tt.size)
			var sizes []int
			for _, c := range chunks {
				sizes = append(sizes, len(c))
			}
			assert.Equal(t, tt.sizes, sizes)
		})
	}
}

func TestNew_ClampsBatchSize(t *testing.T) {
	b := New(nil, Config{MaxBatchSize: 200})

	cfg := b.Config()
	assert.Equal(t, MaxBatchSize, cfg.MaxBatchSize)
	assert.Equal(t, DefaultMaxConcurrency, cfg.MaxConcurrency)
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout)
}

func TestHydrate_PreservesIDOrder(t *testing.T) {
	ids := makeIDs(95)
	fetcher := fetchFunc(func(ctx context.Context, chunk []string) ([]workitem.Detail, error) {
		// Later chunks finish first and return their records reversed.
		first := chunk[0]
		if first == "1" {
			time.Sleep(20 * time.Millisecond)
		}
		details := echoDetails(chunk)
		slices.Reverse(details)
		return details, nil
	})

	res, err := New(fetcher, Config{MaxBatchSize: 30, MaxConcurrency: 4}).Hydrate(context.Background(), ids)
	require.NoError(t, err)

	got := make([]string, len(res.Details))
	for i, d := range res.Details {
		got[i] = d.ID
	}
	assert.Equal(t, ids, got)
	assert.Empty(t, res.Degraded)
	require.Len(t, res.Chunks, 4)
	for _, c := range res.Chunks {
		assert.Equal(t, OutcomeOK, c.Outcome)
		assert.Equal(t, 1, c.Attempts)
	}
}

func TestHydrate_RetriesOnce(t *testing.T) {
	var calls atomic.Int32
	fetcher := fetchFunc(func(ctx context.Context, chunk []string) ([]workitem.Detail, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("transient")
		}
		return echoDetails(chunk), nil
	})

	res, err := New(fetcher, DefaultConfig()).Hydrate(context.Background(), makeIDs(5))
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Empty(t, res.Degraded)
	require.Len(t, res.Chunks, 1)
	assert.Equal(t, OutcomeRetried, res.Chunks[0].Outcome)
	assert.Equal(t, 2, res.Chunks[0].Attempts)
}

func TestHydrate_DegradesChunkThatFailsTwice(t *testing.T) {
	ids := makeIDs(45)
	var mu sync.Mutex
	attemptsByChunk := map[string]int{}

	fetcher := fetchFunc(func(ctx context.Context, chunk []string) ([]workitem.Detail, error) {
		mu.Lock()
		attemptsByChunk[chunk[0]]++
		mu.Unlock()
		if chunk[0] == "31" {
			return nil, errors.New("service unavailable")
		}
		return echoDetails(chunk), nil
	})

	var hooked []ChunkReport
	b := New(fetcher, DefaultConfig(), WithChunkHook(func(r ChunkReport) {
		hooked = append(hooked, r)
	}))

	res, err := b.Hydrate(context.Background(), ids)
	require.NoError(t, err)

	require.Len(t, res.Details, 45)
	assert.Equal(t, ids[30:], res.Degraded)
	for _, d := range res.Details[30:] {
		assert.True(t, d.Unavailable, "id %s should be unavailable", d.ID)
	}
	for _, d := range res.Details[:30] {
		assert.False(t, d.Unavailable, "id %s should be hydrated", d.ID)
	}

	assert.Equal(t, 1, attemptsByChunk["1"])
	assert.Equal(t, 2, attemptsByChunk["31"])

	require.Len(t, res.Chunks, 2)
	assert.Len(t, res.Chunks[0].IDs, 30)
	assert.Len(t, res.Chunks[1].IDs, 15)
	assert.Equal(t, OutcomeDegraded, res.Chunks[1].Outcome)
	assert.EqualError(t, res.Chunks[1].Err, "service unavailable")
	assert.Len(t, hooked, 2)
}

func TestHydrate_TimeoutDegrades(t *testing.T) {
	fetcher := fetchFunc(func(ctx context.Context, chunk []string) ([]workitem.Detail, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	start := time.Now()
	res, err := New(fetcher, Config{FetchTimeout: 20 * time.Millisecond}).Hydrate(context.Background(), makeIDs(3))
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, []string{"1", "2", "3"}, res.Degraded)
	assert.ErrorIs(t, res.Chunks[0].Err, context.DeadlineExceeded)
	assert.ErrorIs(t, res.Chunks[0].Err, perrors.ErrTimeout)
}

func TestHydrate_SlowFetcherIgnoringContext(t *testing.T) {
	fetcher := fetchFunc(func(ctx context.Context, chunk []string) ([]workitem.Detail, error) {
		time.Sleep(30 * time.Millisecond)
		return echoDetails(chunk), nil
	})

	res, err := New(fetcher, Config{FetchTimeout: 5 * time.Millisecond}).Hydrate(context.Background(), makeIDs(2))
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "2"}, res.Degraded)
}

func TestHydrate_FetcherThatNeverReturns(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	var calls atomic.Int32
	fetcher := fetchFunc(func(ctx context.Context, chunk []string) ([]workitem.Detail, error) {
		calls.Add(1)
		<-block
		return echoDetails(chunk), nil
	})

	done := make(chan struct{})
	var res *Result
	var err error
	go func() {
		defer close(done)
		res, err = New(fetcher, Config{FetchTimeout: 20 * time.Millisecond}).Hydrate(context.Background(), makeIDs(45))
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Hydrate blocked past the per-attempt timeout")
	}

	require.NoError(t, err)
	assert.Equal(t, makeIDs(45), res.Degraded)
	assert.Equal(t, int32(4), calls.Load())
	for _, c := range res.Chunks {
		assert.Equal(t, OutcomeDegraded, c.Outcome)
		assert.Equal(t, 2, c.Attempts)
		assert.ErrorIs(t, c.Err, perrors.ErrTimeout)

		var timeoutErr *perrors.TimeoutError
		require.ErrorAs(t, c.Err, &timeoutErr)
		assert.Equal(t, 20*time.Millisecond, timeoutErr.Duration)
		assert.True(t, perrors.IsRetryable(c.Err))
	}
}

func TestHydrate_CancelWhileFetcherBlocked(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{}, 1)
	fetcher := fetchFunc(func(_ context.Context, chunk []string) ([]workitem.Detail, error) {
		started <- struct{}{}
		<-block
		return echoDetails(chunk), nil
	})

	go func() {
		<-started
		cancel()
	}()

	_, err := New(fetcher, Config{FetchTimeout: time.Minute}).Hydrate(ctx, makeIDs(3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHydrate_MissingRecordsBecomeUnavailable(t *testing.T) {
	fetcher := fetchFunc(func(ctx context.Context, chunk []string) ([]workitem.Detail, error) {
		return append(echoDetails(chunk[:1]), workitem.Detail{ID: "stranger"}), nil
	})

	res, err := New(fetcher, DefaultConfig()).Hydrate(context.Background(), []string{"a", "b"})
	require.NoError(t, err)

	require.Len(t, res.Details, 2)
	assert.False(t, res.Details[0].Unavailable)
	assert.True(t, res.Details[1].Unavailable)
	assert.Equal(t, []string{"b"}, res.Degraded)
}

func TestHydrate_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := fetchFunc(func(ctx context.Context, chunk []string) ([]workitem.Detail, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})

	res, err := New(fetcher, DefaultConfig()).Hydrate(ctx, makeIDs(40))

	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHydrate_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	fetcher := fetchFunc(func(ctx context.Context, chunk []string) ([]workitem.Detail, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return echoDetails(chunk), nil
	})

	_, err := New(fetcher, Config{MaxBatchSize: 1, MaxConcurrency: 2}).Hydrate(context.Background(), makeIDs(10))
	require.NoError(t, err)

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

// Package logging provides structured logging for workplan runs.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation. Every planning run gets a child logger carrying its
// run ID and parent work item ID, and each pipeline phase adds a phase
// attribute, so a single run can be filtered out of a shared log afterwards.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("", "INFO") // stderr
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	runLogger := logger.WithRun(runID).WithParent("1234")
//	runLogger.WithPhase("hydrate").Warn("batch degraded", "chunk", 2)
//
// Output:
//
//	{"time":"...","level":"WARN","msg":"batch degraded","run_id":"...","parent_id":"1234","phase":"hydrate","chunk":2}
//
// Run IDs never appear in the plan itself; plans stay byte-identical across
// runs over the same input.
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewLoggerWithWriter] with a buffer
// to assert on emitted entries.
package logging

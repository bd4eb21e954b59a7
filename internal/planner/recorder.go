package planner

import (
	"time"

	"github.com/Iron-Ham/workplan/internal/risk"
)

// Plan outcomes passed to Recorder.ObservePlan.
const (
	OutcomeOK          = "ok"
	OutcomeCycle       = "cycle"
	OutcomeFetchFailed = "fetch_failed"
	OutcomeCanceled    = "canceled"
	OutcomeInvalid     = "invalid"
	OutcomeNotFound    = "not_found"
)

// Recorder receives run telemetry. Implementations must be safe for
// concurrent use; ObserveChunk is called from fetch workers.
type Recorder interface {
	ObservePlan(outcome string, elapsed time.Duration)
	ObserveChunk(outcome string)
	ObserveDecision(decision risk.Decision, spotCheck bool)
}

type nopRecorder struct{}

func (nopRecorder) ObservePlan(string, time.Duration)   {}
func (nopRecorder) ObserveChunk(string)                 {}
func (nopRecorder) ObserveDecision(risk.Decision, bool) {}

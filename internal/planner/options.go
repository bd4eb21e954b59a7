package planner

import (
	"github.com/Iron-Ham/workplan/internal/logging"
	"github.com/Iron-Ham/workplan/internal/risk"
)

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger. Each run derives a child logger tagged with
// its run id and parent id.
func WithLogger(l *logging.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithHintProvider wires an advisory hint source into scoring.
func WithHintProvider(h risk.HintProvider) Option {
	return func(p *Planner) { p.hints = h }
}

// WithRecorder reports run outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(p *Planner) {
		if r != nil {
			p.recorder = r
		}
	}
}

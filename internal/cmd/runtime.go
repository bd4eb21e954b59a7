package cmd

import (
	"errors"
	"io"

	"github.com/Iron-Ham/workplan/internal/advisor"
	"github.com/Iron-Ham/workplan/internal/config"
	perrors "github.com/Iron-Ham/workplan/internal/errors"
	"github.com/Iron-Ham/workplan/internal/logging"
	"github.com/Iron-Ham/workplan/internal/planner"
	"github.com/Iron-Ham/workplan/internal/tracker"
)

// runtime bundles what a command needs to plan and the resources to release.
type runtime struct {
	cfg     *config.Config
	logger  *logging.Logger
	source  tracker.Source
	planner *planner.Planner
	closer  io.Closer
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		var verrs config.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, perrors.Wrap(err, "invalid configuration")
		}
		return nil, perrors.Wrap(err, "failed to load config")
	}
	return cfg, nil
}

// newRuntime opens the configured tracker and builds a planner around it.
func newRuntime(cfg *config.Config, opts ...planner.Option) (*runtime, error) {
	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	source, closer, err := tracker.Open(cfg.Tracker)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	all := []planner.Option{planner.WithLogger(logger)}
	if cfg.Advisor.Enabled {
		all = append(all, planner.WithHintProvider(advisor.New(cfg.Advisor.Command, cfg.Advisor.Timeout())))
	}
	all = append(all, opts...)

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		source:  source,
		planner: planner.New(source, planner.FromConfig(cfg), all...),
		closer:  closer,
	}, nil
}

// Close releases the tracker client and the log file.
func (r *runtime) Close() error {
	return errors.Join(r.closer.Close(), r.logger.Close())
}

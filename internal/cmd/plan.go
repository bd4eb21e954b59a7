package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	perrors "github.com/Iron-Ham/workplan/internal/errors"
	"github.com/Iron-Ham/workplan/internal/planner"
	"github.com/Iron-Ham/workplan/internal/render"
	"github.com/Iron-Ham/workplan/internal/tracker"
)

var planCmd = &cobra.Command{
	Use:   "plan <parent-id>",
	Short: "Plan the children of a parent work item into parallel blocks",
	Long: `Plan fetches the active children of the given parent work item, builds
their dependency graph, scores each item against the risk policy, and prints
an ordered list of execution blocks. Items in the same block have no
dependencies on each other and can run concurrently.

Output formats: markdown (default), json, yaml, terminal.

With --watch and the file tracker, the plan is rebuilt whenever the fixture
file changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

var (
	planOutput string
	planWatch  bool
)

func init() {
	planCmd.Flags().StringP("format", "f", "", "output format: markdown, json, yaml, terminal")
	_ = viper.BindPFlag("output.format", planCmd.Flags().Lookup("format"))
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "", "write the plan to a file instead of stdout")
	planCmd.Flags().BoolVarP(&planWatch, "watch", "w", false, "re-plan when the fixture file changes (file tracker only)")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	parentID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = rt.Close() }()

	format := render.Format(cfg.Output.Format)
	emit := func(ctx context.Context) error {
		plan, err := rt.planner.PlanParallelExecution(ctx, parentID)
		if err != nil {
			return err
		}
		return writePlan(cmd.OutOrStdout(), planOutput, plan, format)
	}

	if !planWatch {
		return emit(cmd.Context())
	}

	fs, ok := rt.source.(*tracker.FileSource)
	if !ok {
		return fmt.Errorf("--watch requires the file tracker (configured: %s)", cfg.Tracker.Kind)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	replan := func() {
		if err := emit(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
	replan()

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes (Ctrl+C to stop)\n", fs.Path())
	return tracker.Watch(ctx, fs.Path(), tracker.DefaultDebounce, replan, func(err error) {
		rt.logger.Warn("fixture watcher error", "error", err.Error())
	})
}

// writePlan renders plan to path, or to w when path is empty.
func writePlan(w io.Writer, path string, plan *planner.ExecutionPlan, format render.Format) error {
	if path == "" {
		return render.Render(w, plan, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return perrors.Wrap(err, "failed to create output file")
	}
	if err := render.Render(f, plan, format); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

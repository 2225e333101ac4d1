package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/askiada/regflow/internal/config"
	"github.com/askiada/regflow/pkg/workflow"
	"github.com/askiada/regflow/pkg/workflow/drawer"
	"github.com/askiada/regflow/pkg/workflow/measure"
	"github.com/askiada/regflow/pkg/workflow/model"
)

// LogFile is written in the log directory when one is configured.
const LogFile = "regflow.log"

// session is the configuration and logger shared by the commands running workflows.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	close  func() error
}

func newSession(opts *RootOptions, stderr io.Writer) (*session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "unable to load configuration", err)
	}

	if opts.BaseDir != "" {
		cfg.BaseDir = opts.BaseDir
	}

	if opts.WFRun != "" {
		err = cfg.ApplyPreset(opts.WFRun)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --wfrun", err)
		}
	}

	switch workflow.GraphStyle(opts.GraphStyle) {
	case workflow.GraphFlat, workflow.GraphHierarchical:
	default:
		return nil, WrapExitError(ExitCommandError, "invalid --graph-style", errors.Errorf("%q", opts.GraphStyle))
	}

	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid log level", err)
	}

	if opts.Verbose {
		level = slog.LevelDebug
	}

	s := &session{cfg: cfg, close: func() error { return nil }}
	out := stderr

	if dir := cfg.Logging.LogDirectory; dir != "" && !opts.DryRun {
		err = os.MkdirAll(dir, 0o755) //nolint:gosec
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "unable to create log directory", err)
		}

		file, err := os.OpenFile(filepath.Join(dir, LogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "unable to open log file", err)
		}

		out = io.MultiWriter(stderr, file)
		s.close = file.Close
	}

	s.logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(s.logger)

	return s, nil
}

// run runs wf and reports the critical path. With --graph the executed graph is drawn with the
// measured durations.
func (s *session) run(ctx context.Context, opts *RootOptions, wf *workflow.Workflow, stdout io.Writer) (*workflow.Result, error) {
	var options []model.WorkflowOption

	if opts.Graph != "" {
		m := measure.NewDefaultMeasure()
		d := drawer.NewDOTDrawer(opts.Graph, drawer.Hierarchical(workflow.GraphStyle(opts.GraphStyle) == workflow.GraphHierarchical))
		options = append(options, measure.WorkflowMeasure(m), drawer.WorkflowDrawer(d, m))
	}

	wfCfg := s.cfg.Workflow(s.logger, opts.DryRun, options...)
	wfCfg.DryRunOutput = stdout

	result, err := wf.Run(ctx, wfCfg)
	if err != nil {
		var runErr *workflow.RunError
		if errors.As(err, &runErr) || result != nil {
			return result, WrapExitError(ExitFailure, "workflow failed", err)
		}

		return nil, WrapExitError(ExitCommandError, "unable to run workflow", err)
	}

	path, elapsed, err := result.CriticalPath()
	if err == nil && len(path) > 0 {
		s.logger.Info("critical path", "nodes", fmt.Sprint(path), "elapsed", elapsed)
	}

	return result, nil
}

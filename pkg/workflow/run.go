package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/askiada/regflow/pkg/workflow/model"
)

// Plugin selects how jobs are dispatched.
type Plugin string

const (
	// Linear runs one job at a time in a stable topological order.
	Linear Plugin = "Linear"
	// MultiProc runs up to NProcs jobs at once on the local machine.
	MultiProc Plugin = "MultiProc"
	// SGE submits command jobs to a Sun Grid Engine queue.
	SGE Plugin = "SGE"
	// SGEGraph is accepted for compatibility and behaves as SGE.
	SGEGraph Plugin = "SGEGraph"
)

// Config holds the execution settings of a run.
type Config struct {
	// BaseDir is the directory holding one working directory per job.
	BaseDir string
	Plugin  Plugin
	// NProcs bounds the number of concurrent jobs for MultiProc and SGE.
	NProcs int
	// StopOnFirstCrash cancels the run at the first failure. Otherwise independent branches
	// carry on and the descendants of failed nodes are skipped.
	StopOnFirstCrash bool
	// StopOnFirstRerun fails a job that ran before and cannot reuse its results.
	StopOnFirstRerun bool
	HashMethod       HashMethod
	// LocalHashCheck reuses the results of jobs whose inputs did not change.
	LocalHashCheck bool
	// JobFinishedTimeout is how long outputs of a finished job may take to appear.
	JobFinishedTimeout time.Duration
	// NodeTimeout bounds each job, no limit when zero.
	NodeTimeout time.Duration
	// QsubArgs are the default arguments of submitted jobs.
	QsubArgs string
	// DryRun prints command lines instead of running them. Nothing is written to BaseDir.
	DryRun bool
	// DryRunOutput receives the printed command lines, os.Stdout when nil.
	DryRunOutput io.Writer
	// Launcher overrides the launcher derived from Plugin and DryRun.
	Launcher Launcher
	// Resolve maps binary names to the paths used to run them.
	Resolve func(string) string
	Logger  *slog.Logger
	Options []model.WorkflowOption
}

func (c Config) withDefaults() (Config, error) {
	switch c.Plugin {
	case "":
		c.Plugin = Linear
	case Linear, MultiProc, SGE, SGEGraph:
	default:
		return c, errors.Wrapf(ErrUnknownPlugin, "%q", c.Plugin)
	}

	if c.NProcs <= 0 || c.Plugin == Linear {
		c.NProcs = 1
	}

	if c.HashMethod == "" {
		c.HashMethod = HashTimestamp
	}

	if c.BaseDir == "" {
		c.BaseDir = "."
	}

	// job directories must not depend on the working directory of a launcher
	base, err := filepath.Abs(c.BaseDir)
	if err != nil {
		return c, errors.Wrapf(err, "unable to resolve %s", c.BaseDir)
	}
	c.BaseDir = base

	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	return c, nil
}

// Result holds what a run produced.
type Result struct {
	RunID    string
	outputs  map[string]Outputs
	statuses map[string]model.Status
	plan     *plan
}

// Output returns the output field of the node at path.
func (r *Result) Output(path, field string) (any, error) {
	outs, ok := r.outputs[path]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownNode, "%s has no outputs", path)
	}

	value, ok := outs[field]
	if !ok {
		return nil, errors.Wrapf(ErrMissingOutput, "%s.%s", path, field)
	}

	return value, nil
}

// Status returns the final status of the node at path.
func (r *Result) Status(path string) model.Status {
	return r.statuses[path]
}

type runner struct {
	cfg    Config
	root   string
	runID  string
	logger *slog.Logger
	plan   *plan
	infos  map[string]*model.NodeInfo

	launcher      Launcher
	localLauncher Launcher
	slots         *semaphore.Weighted

	mu        sync.Mutex
	outputs   map[string]Outputs
	emptyMaps map[string]bool
	statuses  map[string]model.Status
	finished  map[string]time.Time
	failures  []*NodeError
}

// Run executes the workflow. With StopOnFirstCrash unset a *RunError lists every failed node;
// the outputs of the nodes that succeeded are still available in the result.
func (w *Workflow) Run(ctx context.Context, cfg Config) (*Result, error) {
	if w == nil {
		return nil, ErrWorkflowMustBeSet
	}

	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	p, err := w.plan()
	if err != nil {
		return nil, err
	}

	r := &runner{
		cfg:       cfg,
		root:      w.name,
		runID:     newRunID(),
		plan:      p,
		infos:     make(map[string]*model.NodeInfo, len(p.order)),
		slots:     semaphore.NewWeighted(int64(cfg.NProcs)),
		outputs:   make(map[string]Outputs, len(p.order)),
		emptyMaps: make(map[string]bool),
		statuses:  make(map[string]model.Status, len(p.order)),
		finished:  make(map[string]time.Time, len(p.order)),
	}
	r.logger = cfg.Logger.With("workflow", w.name, "run_id", r.runID)
	r.launcher, r.localLauncher = cfg.launchers()

	err = r.prepare()
	if err != nil {
		return nil, err
	}

	r.logger.Info("workflow started", "plugin", cfg.Plugin, "nodes", len(p.order), "base_dir", cfg.BaseDir)
	start := time.Now()

	if cfg.Plugin == Linear {
		err = r.runLinear(ctx)
	} else {
		err = r.runConcurrent(ctx)
	}

	result := &Result{RunID: r.runID, outputs: r.outputs, statuses: r.statuses, plan: p}
	runErr := r.finish(ctx, err)
	r.logger.Info("workflow finished", "elapsed", time.Since(start), "failed", len(r.failures))

	for _, opt := range cfg.Options {
		err := opt.Finish()
		if err != nil && runErr == nil {
			runErr = errors.Wrap(err, "unable to finish workflow option")
		}
	}

	return result, runErr
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

func (c Config) launchers() (Launcher, Launcher) {
	if c.Launcher != nil {
		return c.Launcher, c.Launcher
	}

	if c.DryRun {
		out := c.DryRunOutput
		if out == nil {
			out = os.Stdout
		}

		launcher := &DryRunLauncher{W: out}

		return launcher, launcher
	}

	if c.Plugin == SGE || c.Plugin == SGEGraph {
		return QsubLauncher{DefaultArgs: c.QsubArgs}, LocalLauncher{}
	}

	return LocalLauncher{}, LocalLauncher{}
}

// prepare builds node descriptions and hands them to the options in topological order.
func (r *runner) prepare() error {
	for _, opt := range r.cfg.Options {
		err := opt.New()
		if err != nil {
			return errors.Wrap(err, "unable to apply workflow option")
		}
	}

	for _, path := range r.plan.order {
		info := r.plan.nodes[path].info(path)
		info.Terminal = len(r.plan.succs[path]) == 0
		r.infos[path] = info
	}

	for _, path := range r.plan.order {
		parents := make([]*model.NodeInfo, len(r.plan.preds[path]))
		for i, pred := range r.plan.preds[path] {
			parents[i] = r.infos[pred]
		}

		for _, opt := range r.cfg.Options {
			err := opt.PrepareNode(parents, r.infos[path])
			if err != nil {
				return errors.Wrap(err, "unable to prepare node")
			}
		}
	}

	return nil
}

func (r *runner) finish(ctx context.Context, err error) error {
	if len(r.failures) > 0 {
		return &RunError{Failures: r.failures}
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Wrap(ctxErr, "workflow interrupted")
	}

	return err
}

func (r *runner) runLinear(ctx context.Context) error {
	for _, path := range r.plan.order {
		if ctx.Err() != nil {
			r.done(path, model.StatusSkipped, 0)

			continue
		}

		err := r.visit(ctx, path)
		if err != nil {
			for _, rest := range r.plan.order {
				if _, ok := r.status(rest); !ok {
					r.done(rest, model.StatusSkipped, 0)
				}
			}

			return err
		}
	}

	return nil
}

func (r *runner) runConcurrent(ctx context.Context) error {
	grp, gctx := errgroup.WithContext(ctx)

	done := make(map[string]chan struct{}, len(r.plan.order))
	for _, path := range r.plan.order {
		done[path] = make(chan struct{})
	}

	for _, path := range r.plan.order {
		path := path

		grp.Go(func() error {
			defer close(done[path])

			for _, pred := range r.plan.preds[path] {
				select {
				case <-done[pred]:
				case <-gctx.Done():
					r.done(path, model.StatusSkipped, 0)

					return nil
				}
			}

			if gctx.Err() != nil {
				r.done(path, model.StatusSkipped, 0)

				return nil
			}

			return r.visit(gctx, path)
		})
	}

	return grp.Wait()
}

// visit runs a node whose parents are done. It only returns an error when the run must stop.
func (r *runner) visit(ctx context.Context, path string) error {
	for _, pred := range r.plan.preds[path] {
		status, _ := r.status(pred)
		if status == model.StatusFailed || status == model.StatusSkipped {
			r.logger.Warn("node skipped", "node", path, "parent", pred, "parent_status", status)
			r.done(path, model.StatusSkipped, 0)

			return nil
		}
	}

	start := time.Now()
	r.notifyStart(path, start)

	status, err := r.execute(ctx, path)
	if err == nil {
		r.done(path, status, time.Since(start))

		return nil
	}

	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		r.done(path, model.StatusSkipped, time.Since(start))

		return nil
	}

	r.logger.Error("node failed", "node", path, "elapsed", time.Since(start), "error", err)
	r.fail(path, err)
	r.done(path, model.StatusFailed, time.Since(start))

	if r.cfg.StopOnFirstCrash {
		return &NodeError{Node: path, Err: err}
	}

	return nil
}

func (r *runner) status(path string) (model.Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, ok := r.statuses[path]

	return status, ok
}

func (r *runner) fail(path string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failures = append(r.failures, &NodeError{Node: path, Err: err})
}

func (r *runner) notifyStart(path string, start time.Time) {
	r.mu.Lock()
	waits := make(map[string]time.Duration, len(r.plan.preds[path]))
	for _, pred := range r.plan.preds[path] {
		waits[pred] = start.Sub(r.finished[pred])
	}
	r.mu.Unlock()

	r.logger.Debug("node started", "node", path)

	for _, opt := range r.cfg.Options {
		err := opt.OnNodeStart(r.infos[path], waits)
		if err != nil {
			r.logger.Warn("workflow option failed", "hook", "OnNodeStart", "node", path, "error", err)
		}
	}
}

func (r *runner) done(path string, status model.Status, elapsed time.Duration) {
	r.mu.Lock()
	r.statuses[path] = status
	r.finished[path] = time.Now()
	r.mu.Unlock()

	// nodes that did not run weigh nothing on the critical path
	weight := 0
	if status != model.StatusCached && status != model.StatusSkipped {
		weight = int(elapsed.Milliseconds())
	}

	err := r.plan.store.UpdateVertexProperties(path, func(p *graph.VertexProperties) {
		p.Attributes["status"] = string(status)
		p.Weight = weight
	})
	if err != nil {
		r.logger.Warn("unable to record node status", "node", path, "error", err)
	}

	if status != model.StatusSkipped {
		r.logger.Info("node finished", "node", path, "status", status, "elapsed", elapsed)
	}

	for _, opt := range r.cfg.Options {
		err := opt.OnNodeDone(r.infos[path], status, elapsed)
		if err != nil {
			r.logger.Warn("workflow option failed", "hook", "OnNodeDone", "node", path, "error", err)
		}
	}
}

func (r *runner) nodeDir(path string) string {
	parts := append([]string{r.cfg.BaseDir, r.root}, strings.Split(path, ".")...)

	return filepath.Join(parts...)
}

func (r *runner) gatherInputs(path string) (Inputs, error) {
	in := r.plan.nodes[path].inputs.clone()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.plan.incoming[path] {
		value, ok := r.outputs[c.src][c.srcField]
		if !ok {
			if !r.emptyMaps[c.src] {
				return nil, errors.Wrapf(ErrMissingOutput, "%s.%s", c.src, c.srcField)
			}
			value = []any{}
		}
		in[c.dstField] = value
	}

	return in, nil
}

// execute runs every job of the node and records its outputs.
func (r *runner) execute(ctx context.Context, path string) (model.Status, error) {
	node := r.plan.nodes[path]

	in, err := r.gatherInputs(path)
	if err != nil {
		return model.StatusFailed, err
	}

	var (
		outs   Outputs
		cached bool
	)

	if node.IsMap() {
		outs, cached, err = r.runMap(ctx, path, node, in)
	} else {
		outs, cached, err = r.runJob(ctx, path, path, node, r.nodeDir(path), in)
	}

	if err != nil {
		return model.StatusFailed, err
	}

	r.mu.Lock()
	r.outputs[path] = outs
	r.mu.Unlock()

	if cached {
		return model.StatusCached, nil
	}

	return model.StatusSucceeded, nil
}

func (r *runner) runMap(ctx context.Context, path string, node *Node, in Inputs) (Outputs, bool, error) {
	lists := make(map[string][]any, len(node.iterFields))
	length := -1

	for _, field := range node.iterFields {
		var list []any

		err := in.Decode(field, &list)
		if err != nil {
			return nil, false, errors.Wrapf(ErrIterField, "%s: %v", field, err)
		}

		if length >= 0 && len(list) != length {
			return nil, false, errors.Wrapf(ErrIterField, "%s has %d elements, expected %d", field, len(list), length)
		}

		length = len(list)
		lists[field] = list
	}

	if length == 0 {
		r.mu.Lock()
		r.emptyMaps[path] = true
		r.mu.Unlock()

		return Outputs{}, false, nil
	}

	results := make([]Outputs, length)
	cached := make([]bool, length)
	name := path[strings.LastIndex(path, ".")+1:]

	grp, gctx := errgroup.WithContext(ctx)

	for i := 0; i < length; i++ {
		i := i
		jobIn := in.clone()

		for field, list := range lists {
			jobIn[field] = list[i]
		}

		dir := filepath.Join(r.nodeDir(path), "mapflow", fmt.Sprintf("_%s%d", name, i))
		job := fmt.Sprintf("%s[%d]", path, i)

		grp.Go(func() error {
			outs, hit, err := r.runJob(gctx, path, job, node, dir, jobIn)
			results[i], cached[i] = outs, hit

			return errors.Wrapf(err, "element %d", i)
		})
	}

	err := grp.Wait()
	if err != nil {
		return nil, false, err
	}

	merged := Outputs{}
	allCached := true

	for i, outs := range results {
		allCached = allCached && cached[i]

		for field, value := range outs {
			list, ok := merged[field].([]any)
			if !ok {
				list = make([]any, length)
			}
			list[i] = value
			merged[field] = list
		}
	}

	return merged, allCached, nil
}

// runJob runs one job of a node, reusing cached results when allowed.
func (r *runner) runJob(ctx context.Context, path, job string, node *Node, dir string, in Inputs) (Outputs, bool, error) {
	rt := &Runtime{
		Node:          path,
		Job:           job,
		Dir:           dir,
		Logger:        r.logger.With("node", path, "job", job),
		qsubArgs:      node.PluginArgs,
		local:         node.RunWithoutSubmitting,
		dryRun:        r.cfg.DryRun,
		launcher:      r.launcher,
		localLauncher: r.localLauncher,
		resolve:       r.cfg.Resolve,
		outputTimeout: r.cfg.JobFinishedTimeout,
	}

	if r.cfg.DryRun {
		return r.invoke(ctx, rt, node, in)
	}

	err := os.MkdirAll(dir, 0o755) //nolint:gosec
	if err != nil {
		return nil, false, errors.Wrapf(err, "unable to create %s", dir)
	}

	sum, err := hashInputs(r.cfg.HashMethod, node.iface, in)
	if err != nil {
		return nil, false, errors.Wrap(err, "unable to hash inputs")
	}

	if r.cfg.LocalHashCheck {
		if outs, ok := loadCache(dir, sum); ok {
			rt.Logger.Info("job cached", "dir", dir)
			r.jobDone(path, 0, true)

			return outs, true, nil
		}
	}

	if r.cfg.StopOnFirstRerun && hasRun(dir) {
		return nil, false, errors.Wrap(ErrRerunRequired, job)
	}

	err = clearCache(dir)
	if err != nil {
		return nil, false, err
	}

	outs, _, err := r.invoke(ctx, rt, node, in)
	if err != nil {
		return nil, false, err
	}

	err = writeCache(dir, sum, outs)
	if err != nil {
		return nil, false, err
	}

	return outs, false, nil
}

func (r *runner) invoke(ctx context.Context, rt *Runtime, node *Node, in Inputs) (Outputs, bool, error) {
	if !node.RunWithoutSubmitting {
		err := r.slots.Acquire(ctx, 1)
		if err != nil {
			return nil, false, err
		}
		defer r.slots.Release(1)
	}

	if r.cfg.NodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.NodeTimeout)
		defer cancel()
	}

	start := time.Now()

	outs, err := node.iface.Run(ctx, rt, in)
	if err != nil {
		return nil, false, err
	}

	if outs == nil {
		outs = Outputs{}
	}

	r.jobDone(rt.Node, time.Since(start), false)

	return outs, false, nil
}

func (r *runner) jobDone(path string, elapsed time.Duration, cached bool) {
	for _, opt := range r.cfg.Options {
		err := opt.OnJobDone(r.infos[path], elapsed, cached)
		if err != nil {
			r.logger.Warn("workflow option failed", "hook", "OnJobDone", "node", path, "error", err)
		}
	}
}

package workflow

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Interface is the unit of work run by a node.
type Interface interface {
	Run(ctx context.Context, rt *Runtime, in Inputs) (Outputs, error)
}

// Fingerprinter is implemented by interfaces carrying configuration that is not part of their
// inputs. The fingerprint takes part in the hash deciding whether a cached result can be reused.
type Fingerprinter interface {
	Fingerprint() string
}

type identity struct {
	fields []string
}

// Identity returns an interface forwarding the listed inputs unchanged. Unset fields are omitted.
func Identity(fields ...string) Interface {
	return &identity{fields: fields}
}

func (i *identity) Run(_ context.Context, _ *Runtime, in Inputs) (Outputs, error) {
	out := make(Outputs, len(i.fields))
	for _, field := range i.fields {
		if value, ok := in[field]; ok {
			out[field] = value
		}
	}

	return out, nil
}

func (i *identity) Fingerprint() string {
	return "identity:" + strings.Join(i.fields, ",")
}

type function struct {
	name string
	fn   func(ctx context.Context, in Inputs) (Outputs, error)
}

// Func returns an interface running fn in process. name identifies the function in hashes and
// graphs.
func Func(name string, fn func(ctx context.Context, in Inputs) (Outputs, error)) Interface {
	return &function{name: name, fn: fn}
}

func (f *function) Run(ctx context.Context, _ *Runtime, in Inputs) (Outputs, error) {
	return f.fn(ctx, in)
}

func (f *function) Fingerprint() string {
	return "func:" + f.name
}

// Runtime is what an interface sees of the engine while one of its jobs runs.
type Runtime struct {
	// Node is the dotted path of the node.
	Node string
	// Job names the job; it differs from Node for the elements of a map node.
	Job string
	// Dir is the working directory of the job.
	Dir    string
	Logger *slog.Logger

	qsubArgs      string
	local         bool
	dryRun        bool
	launcher      Launcher
	localLauncher Launcher
	resolve       func(string) string
	outputTimeout time.Duration
}

// DryRun reports whether commands are only printed.
func (rt *Runtime) DryRun() bool {
	return rt.dryRun
}

// Exec runs an external command in the job directory with the launcher of the run.
// Nodes flagged to run without submitting always use the local launcher.
func (rt *Runtime) Exec(ctx context.Context, executable string, args []string) error {
	path := executable
	if rt.resolve != nil {
		path = rt.resolve(executable)
	}

	job := &Job{
		Name:     rt.Job,
		Dir:      rt.Dir,
		Path:     path,
		Args:     args,
		QsubArgs: rt.qsubArgs,
	}

	launcher := rt.launcher
	if rt.local && rt.localLauncher != nil {
		launcher = rt.localLauncher
	}

	rt.Logger.Debug("launching command", "cmdline", job.Cmdline())

	err := launcher.Launch(ctx, job)
	if err != nil {
		return errors.Wrapf(err, "unable to launch %s", executable)
	}

	return nil
}

// AwaitFiles waits until every path exists. Jobs run on a cluster may report completion before
// their outputs are visible on the shared filesystem, so the check is retried until the job
// finished timeout of the run elapses.
func (rt *Runtime) AwaitFiles(ctx context.Context, paths []string) error {
	deadline := time.Now().Add(rt.outputTimeout)
	missing := paths

	for {
		missing = missingFiles(missing)
		if len(missing) == 0 {
			return nil
		}

		if !time.Now().Before(deadline) {
			sort.Strings(missing)

			return errors.Wrap(ErrOutputNotFound, strings.Join(missing, ", "))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(awaitPollInterval):
		}
	}
}

const awaitPollInterval = 500 * time.Millisecond

func missingFiles(paths []string) []string {
	var missing []string

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}

	return missing
}

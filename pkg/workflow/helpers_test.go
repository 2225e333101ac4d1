package workflow_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/regflow/pkg/workflow"
)

var errBoom = errors.New("boom")

func quietConfig(t *testing.T) workflow.Config {
	t.Helper()

	return workflow.Config{
		BaseDir: t.TempDir(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// increment reads x and outputs y = x + 1.
func increment(calls *atomic.Int64) workflow.Interface {
	return workflow.Func("increment", func(_ context.Context, in workflow.Inputs) (workflow.Outputs, error) {
		if calls != nil {
			calls.Add(1)
		}

		var x int

		err := in.Decode("x", &x)
		if err != nil {
			return nil, err
		}

		return workflow.Outputs{"y": x + 1}, nil
	})
}

func failing() workflow.Interface {
	return workflow.Func("failing", func(_ context.Context, _ workflow.Inputs) (workflow.Outputs, error) {
		return nil, errBoom
	})
}

func sleeping(d time.Duration) workflow.Interface {
	return workflow.Func("sleeping", func(ctx context.Context, _ workflow.Inputs) (workflow.Outputs, error) {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		return workflow.Outputs{"done": true}, nil
	})
}

// execInterface launches "tool --in <x>" through the runtime.
type execInterface struct{}

func (execInterface) Run(ctx context.Context, rt *workflow.Runtime, in workflow.Inputs) (workflow.Outputs, error) {
	x, err := in.String("x")
	if err != nil {
		return nil, err
	}

	err = rt.Exec(ctx, "tool", []string{"--in", x})
	if err != nil {
		return nil, err
	}

	return workflow.Outputs{"x": x}, nil
}

type recordingLauncher struct {
	mu   sync.Mutex
	jobs []*workflow.Job
}

func (l *recordingLauncher) Launch(_ context.Context, job *workflow.Job) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.jobs = append(l.jobs, job)

	return nil
}

func (l *recordingLauncher) cmdlines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.jobs))
	for i, job := range l.jobs {
		out[i] = job.Cmdline()
	}
	sort.Strings(out)

	return out
}

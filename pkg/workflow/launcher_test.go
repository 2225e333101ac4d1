package workflow_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/regflow/pkg/workflow"
)

func TestQsubCommand(t *testing.T) {
	t.Parallel()

	q := workflow.QsubLauncher{DefaultArgs: "-q all.q"}
	job := &workflow.Job{Name: "wf.BeginANTS[0]", Dir: "/work", Path: "ANTS", Args: []string{"3"}}

	cmd := q.Command(job)
	assert.Equal(t, "qsub", cmd.Path)
	assert.Equal(t, "/work", cmd.Dir)
	assert.Equal(t, "qsub -sync y -b y -cwd -N rf_wf_BeginANTS_0_ -q all.q ANTS 3", cmd.Cmdline())

	job.QsubArgs = "-pe smp1 8-12 -q long.q"
	q.Qsub = "/sge/bin/qsub"
	assert.Equal(t, "/sge/bin/qsub -sync y -b y -cwd -N rf_wf_BeginANTS_0_ -pe smp1 8-12 -q long.q ANTS 3",
		q.Command(job).Cmdline())
}

func TestQsubLaunch(t *testing.T) {
	t.Parallel()

	runner := &recordingLauncher{}
	q := workflow.QsubLauncher{Runner: runner}

	require.NoError(t, q.Launch(context.Background(), &workflow.Job{Name: "n", Path: "tool"}))
	assert.Equal(t, []string{"qsub -sync y -b y -cwd -N rf_n tool"}, runner.cmdlines())
}

func TestLocalLauncher(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	job := &workflow.Job{Name: "echo", Dir: dir, Path: "sh", Args: []string{"-c", "echo hello"}}

	require.NoError(t, workflow.LocalLauncher{}.Launch(context.Background(), job))

	out, err := os.ReadFile(filepath.Join(dir, workflow.StdoutFile))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(out))

	cmdline, err := os.ReadFile(filepath.Join(dir, workflow.CommandFile))
	require.NoError(t, err)
	assert.Equal(t, "sh -c echo hello\n", string(cmdline))

	job.Args = []string{"-c", "echo broken >&2; exit 3"}
	err = workflow.LocalLauncher{}.Launch(context.Background(), job)
	require.Error(t, err)
	assert.Contains(t, err.Error(), workflow.StderrFile)

	stderr, err := os.ReadFile(filepath.Join(dir, workflow.StderrFile))
	require.NoError(t, err)
	assert.Equal(t, "broken\n", string(stderr))
}

func TestDryRunLauncher(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	d := &workflow.DryRunLauncher{W: &out}
	require.NoError(t, d.Launch(context.Background(), &workflow.Job{Name: "a", Path: "ANTS", Args: []string{"3"}}))
	assert.Equal(t, "[a] ANTS 3\n", out.String())
}

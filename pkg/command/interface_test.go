package command_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/regflow/pkg/command"
	"github.com/askiada/regflow/pkg/workflow"
)

func TestBind(t *testing.T) {
	t.Parallel()

	factor := 2.0
	base := echo{Input: "a.nii", Factor: &factor}

	spec, err := command.Bind(base, map[string]any{
		"extra":   "b.nii",
		"verbose": true,
	})
	require.NoError(t, err)

	assert.Equal(t, "a.nii", spec.Input)
	assert.Equal(t, command.PathList{"b.nii"}, spec.Extra)
	assert.True(t, spec.Verbose)
	require.NotNil(t, spec.Factor)
	assert.NotSame(t, base.Factor, spec.Factor)

	*spec.Factor = 3
	assert.Equal(t, 2.0, *base.Factor)
}

func TestBindUnknownField(t *testing.T) {
	t.Parallel()

	_, err := command.Bind(echo{}, map[string]any{"unknown": 1})
	assert.ErrorIs(t, err, command.ErrInvalidValue)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := command.NewRegistry()
	require.NoError(t, r.Register("echo", echo{Verbose: true}))
	require.NoError(t, r.Register("copy", echo{}))
	assert.ErrorIs(t, r.Register("echo", echo{}), command.ErrDuplicateTool)
	assert.ErrorIs(t, r.Register("nil", nil), command.ErrInvalidValue)

	assert.Equal(t, []string{"copy", "echo"}, r.Names())

	spec, err := r.Bind("echo", map[string]any{"input": "a.nii"})
	require.NoError(t, err)

	line, err := command.Cmdline(spec, nil)
	require.NoError(t, err)
	assert.Equal(t, "echo -v a.nii", line)

	_, err = r.Bind("missing", nil)
	assert.ErrorIs(t, err, command.ErrUnknownTool)

	_, err = r.Interface("missing")
	assert.ErrorIs(t, err, command.ErrUnknownTool)
}

// touchLauncher records jobs and creates the file named by the last argument, as a tool would.
type touchLauncher struct {
	mu   sync.Mutex
	jobs []workflow.Job
}

func (l *touchLauncher) Launch(_ context.Context, job *workflow.Job) error {
	l.mu.Lock()
	l.jobs = append(l.jobs, *job)
	l.mu.Unlock()

	return os.WriteFile(filepath.Join(job.Dir, "out.nii"), []byte("x"), 0o600)
}

func TestNewInterfaceRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "a.nii")
	require.NoError(t, os.WriteFile(input, []byte("x"), 0o600))

	wf, err := workflow.New("wf")
	require.NoError(t, err)

	node := workflow.NewNode("echo", command.NewInterface("echo", echo{Output: "out.nii"})).
		Set("input", input).
		Set("verbose", true)
	require.NoError(t, wf.Add(node))

	launcher := &touchLauncher{}
	result, err := wf.Run(context.Background(), workflow.Config{
		BaseDir:  filepath.Join(dir, "work"),
		Launcher: launcher,
		Resolve:  command.DirResolver(map[string]string{"echo": "/opt/bin"}),
	})
	require.NoError(t, err)

	require.Len(t, launcher.jobs, 1)
	job := launcher.jobs[0]
	assert.Equal(t, "/opt/bin/echo", job.Path)
	assert.Equal(t, []string{"-v", input}, job.Args)
	assert.Equal(t, filepath.Join(dir, "work", "wf", "echo"), job.Dir)

	out, err := result.Output("echo", "output")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "work", "wf", "echo", "out.nii"), out)
}

func TestNewInterfaceMissingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	wf, err := workflow.New("wf")
	require.NoError(t, err)
	require.NoError(t, wf.Add(workflow.NewNode("echo", command.NewInterface("echo", echo{Output: "out.nii"})).
		Set("input", filepath.Join(dir, "missing.nii"))))

	launcher := &touchLauncher{}
	_, err = wf.Run(context.Background(), workflow.Config{BaseDir: dir, Launcher: launcher})
	require.ErrorIs(t, err, command.ErrFileNotFound)
	assert.Empty(t, launcher.jobs)
}

func TestNewInterfaceMissingOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "a.nii")
	require.NoError(t, os.WriteFile(input, []byte("x"), 0o600))

	wf, err := workflow.New("wf")
	require.NoError(t, err)
	require.NoError(t, wf.Add(workflow.NewNode("echo", command.NewInterface("echo", echo{Output: "other.nii"})).
		Set("input", input)))

	_, err = wf.Run(context.Background(), workflow.Config{BaseDir: dir, Launcher: &touchLauncher{}})
	assert.ErrorIs(t, err, workflow.ErrOutputNotFound)
}

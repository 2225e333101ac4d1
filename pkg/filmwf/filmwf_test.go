package filmwf_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/regflow/pkg/command"
	"github.com/askiada/regflow/pkg/command/cmtk"
	"github.com/askiada/regflow/pkg/filmwf"
	"github.com/askiada/regflow/pkg/workflow"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestNewWithoutImages(t *testing.T) {
	t.Parallel()

	_, err := filmwf.New(nil, cmtk.NewFilm())
	assert.ErrorIs(t, err, command.ErrMissingInput)
}

func TestDryRun(t *testing.T) {
	t.Parallel()

	images := []string{
		"/nopoulos/structural/peg_MR/8720323/a.nii.gz",
		"/nopoulos/structural/peg_MR/8720324/b.nii.gz",
	}

	wf, err := filmwf.New(images, cmtk.NewFilm())
	require.NoError(t, err)
	assert.Equal(t, filmwf.Name, wf.Name())

	var out bytes.Buffer

	base := t.TempDir()
	res, err := wf.Run(context.Background(), workflow.Config{
		BaseDir:      base,
		DryRun:       true,
		DryRunOutput: &out,
		Resolve:      command.DirResolver(map[string]string{"film": "/opt/cmtk"}),
		Logger:       discard,
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	sort.Strings(lines)

	const flags = "--passes 2 --injection-kernel-sigma 0.5 --injection-kernel-radius 2 --cubic --num-iterations 20"
	assert.Equal(t, []string{
		"[Film[0]] /opt/cmtk/film " + flags + " " + images[0] + " film3pC_peg_MR_a.nii.gz",
		"[Film[1]] /opt/cmtk/film " + flags + " " + images[1] + " film3pC_peg_MR_b.nii.gz",
	}, lines)

	corrected, err := res.Output("OutputSpec", "output_image")
	require.NoError(t, err)

	mapflow := filepath.Join(base, filmwf.Name, "Film", "mapflow")
	assert.Equal(t, []any{
		filepath.Join(mapflow, "_Film0", "film3pC_peg_MR_a.nii.gz"),
		filepath.Join(mapflow, "_Film1", "film3pC_peg_MR_b.nii.gz"),
	}, corrected)
}

// writeLauncher creates the file named by the last argument in the job directory.
type writeLauncher struct {
	mu   sync.Mutex
	jobs []string
}

func (l *writeLauncher) Launch(_ context.Context, job *workflow.Job) error {
	l.mu.Lock()
	l.jobs = append(l.jobs, job.Name)
	l.mu.Unlock()

	return os.WriteFile(filepath.Join(job.Dir, job.Args[len(job.Args)-1]), []byte("x"), 0o600)
}

func TestRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	images := []string{filepath.Join(dir, "a.nii.gz"), filepath.Join(dir, "b.nii.gz"), filepath.Join(dir, "c.nii.gz")}

	for _, image := range images {
		require.NoError(t, os.WriteFile(image, []byte("x"), 0o600))
	}

	film := cmtk.NewFilm()
	film.OutputImage = "corrected.nii.gz"

	wf, err := filmwf.New(images, film)
	require.NoError(t, err)

	launcher := &writeLauncher{}
	base := filepath.Join(dir, "work")

	res, err := wf.Run(context.Background(), workflow.Config{
		BaseDir:  base,
		Plugin:   workflow.MultiProc,
		NProcs:   2,
		Launcher: launcher,
		Logger:   discard,
	})
	require.NoError(t, err)

	sort.Strings(launcher.jobs)
	assert.Equal(t, []string{"Film[0]", "Film[1]", "Film[2]"}, launcher.jobs)

	corrected, err := res.Output("OutputSpec", "output_image")
	require.NoError(t, err)
	require.Len(t, corrected, 3)

	for i, image := range corrected.([]any) {
		assert.FileExists(t, image.(string))
		assert.Equal(t, filepath.Join(base, filmwf.Name, "Film", "mapflow", fmt.Sprintf("_Film%d", i), "corrected.nii.gz"), image)
	}
}

// checkingLauncher fails unless the input image, the argument before the output, can be opened
// from the job directory.
type checkingLauncher struct {
	mu   sync.Mutex
	runs int
}

func (l *checkingLauncher) Launch(_ context.Context, job *workflow.Job) error {
	l.mu.Lock()
	l.runs++
	l.mu.Unlock()

	input := job.Args[len(job.Args)-2]
	if !filepath.IsAbs(input) {
		input = filepath.Join(job.Dir, input)
	}

	_, err := os.Stat(input)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(job.Dir, job.Args[len(job.Args)-1]), []byte("x"), 0o600)
}

func TestRunWithRelativeInput(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, os.WriteFile("T2.nii.gz", []byte("first"), 0o600))

	film := cmtk.NewFilm()
	film.OutputImage = "corrected.nii.gz"

	launcher := &checkingLauncher{}
	cfg := workflow.Config{
		BaseDir:        filepath.Join(dir, "work"),
		HashMethod:     workflow.HashContent,
		LocalHashCheck: true,
		Launcher:       launcher,
		Logger:         discard,
	}

	run := func() {
		wf, err := filmwf.New([]string{"T2.nii.gz"}, film)
		require.NoError(t, err)

		_, err = wf.Run(context.Background(), cfg)
		require.NoError(t, err)
	}

	run()
	assert.Equal(t, 1, launcher.runs)

	run()
	assert.Equal(t, 1, launcher.runs, "unchanged input reuses the result")

	require.NoError(t, os.WriteFile("T2.nii.gz", []byte("second"), 0o600))
	run()
	assert.Equal(t, 2, launcher.runs, "changed input content runs the job again")
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(wd)) })
}

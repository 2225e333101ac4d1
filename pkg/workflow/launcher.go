package workflow

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Job is one external command to launch.
type Job struct {
	Name     string
	Dir      string
	Path     string
	Args     []string
	QsubArgs string
}

// Cmdline renders the command line of the job.
func (j *Job) Cmdline() string {
	return strings.Join(append([]string{j.Path}, j.Args...), " ")
}

// Launcher starts the command of a job and waits for it to finish.
type Launcher interface {
	Launch(ctx context.Context, job *Job) error
}

// Files written next to the outputs of every launched job.
const (
	CommandFile = "command.txt"
	StdoutFile  = "command.out"
	StderrFile  = "command.err"
)

// LocalLauncher runs jobs as child processes.
type LocalLauncher struct{}

func (LocalLauncher) Launch(ctx context.Context, job *Job) error {
	err := os.WriteFile(filepath.Join(job.Dir, CommandFile), []byte(job.Cmdline()+"\n"), 0o644) //nolint:gosec
	if err != nil {
		return errors.Wrap(err, "unable to write command file")
	}

	stdout, err := os.Create(filepath.Join(job.Dir, StdoutFile))
	if err != nil {
		return errors.Wrap(err, "unable to create stdout file")
	}
	defer stdout.Close()

	stderrPath := filepath.Join(job.Dir, StderrFile)

	stderr, err := os.Create(stderrPath)
	if err != nil {
		return errors.Wrap(err, "unable to create stderr file")
	}
	defer stderr.Close()

	cmd := exec.CommandContext(ctx, job.Path, job.Args...) //nolint:gosec
	cmd.Dir = job.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err = cmd.Run()
	if err != nil {
		return errors.Wrapf(err, "unable to run %s, see %s", job.Path, stderrPath)
	}

	return nil
}

// QsubLauncher submits jobs to a Sun Grid Engine queue and blocks until they finish.
type QsubLauncher struct {
	// Qsub is the submission binary, qsub when empty.
	Qsub string
	// DefaultArgs are used for jobs without qsub arguments of their own.
	DefaultArgs string
	// Runner launches the qsub command itself, LocalLauncher when nil.
	Runner Launcher
}

var invalidJobName = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Command returns the job submitting job to the queue.
func (q QsubLauncher) Command(job *Job) *Job {
	qsub := q.Qsub
	if qsub == "" {
		qsub = "qsub"
	}

	qsubArgs := job.QsubArgs
	if qsubArgs == "" {
		qsubArgs = q.DefaultArgs
	}

	args := []string{"-sync", "y", "-b", "y", "-cwd", "-N", "rf_" + invalidJobName.ReplaceAllString(job.Name, "_")}
	args = append(args, strings.Fields(qsubArgs)...)
	args = append(args, job.Path)
	args = append(args, job.Args...)

	return &Job{
		Name: job.Name,
		Dir:  job.Dir,
		Path: qsub,
		Args: args,
	}
}

func (q QsubLauncher) Launch(ctx context.Context, job *Job) error {
	runner := q.Runner
	if runner == nil {
		runner = LocalLauncher{}
	}

	return runner.Launch(ctx, q.Command(job))
}

// DryRunLauncher prints command lines instead of running them.
type DryRunLauncher struct {
	mu sync.Mutex
	W  io.Writer
}

func (d *DryRunLauncher) Launch(_ context.Context, job *Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := fmt.Fprintf(d.W, "[%s] %s\n", job.Name, job.Cmdline())

	return errors.Wrap(err, "unable to print command")
}

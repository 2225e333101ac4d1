// Package config loads the execution settings of regflow: defaults, then an optional YAML file,
// then environment variables, then the wfrun preset chosen on the command line.
package config

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/askiada/regflow/pkg/command"
	"github.com/askiada/regflow/pkg/workflow"
	"github.com/askiada/regflow/pkg/workflow/model"
)

var (
	ErrUnknownPreset = errors.New("unknown wfrun preset")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds every setting of a run.
type Config struct {
	BaseDir   string    `yaml:"base_dir" env:"REGFLOW_BASE_DIR"`
	Execution Execution `yaml:"execution"`
	Logging   Logging   `yaml:"logging"`
	Tools     Tools     `yaml:"tools"`
}

// Execution mirrors the execution settings of the workflow engine.
type Execution struct {
	Plugin           string `yaml:"plugin" env:"REGFLOW_PLUGIN"`
	NProcs           int    `yaml:"n_procs" env:"REGFLOW_N_PROCS"`
	QsubArgs         string `yaml:"qsub_args" env:"REGFLOW_QSUB_ARGS"`
	Queue            string `yaml:"queue" env:"REGFLOW_SGE_QUEUE"`
	StopOnFirstCrash bool   `yaml:"stop_on_first_crash"`
	StopOnFirstRerun bool   `yaml:"stop_on_first_rerun"`
	HashMethod       string `yaml:"hash_method"`
	LocalHashCheck   bool   `yaml:"local_hash_check"`
	// JobFinishedTimeout and NodeTimeout are in seconds.
	JobFinishedTimeout int `yaml:"job_finished_timeout"`
	NodeTimeout        int `yaml:"node_timeout"`
}

type Logging struct {
	Level        string `yaml:"level" env:"REGFLOW_LOG_LEVEL"`
	LogDirectory string `yaml:"log_directory" env:"REGFLOW_LOG_DIR"`
}

// Tools locates the directories holding the external binaries. Binaries are looked up in PATH
// when their directory is empty.
type Tools struct {
	ANTSPath       string `yaml:"ants_path" env:"ANTSPATH"`
	CMTKBinDir     string `yaml:"cmtk_bin_dir" env:"CMTK_BIN_DIR"`
	BRAINSToolsDir string `yaml:"brainstools_bin_dir" env:"BRAINSTOOLS_BIN_DIR"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		BaseDir: ".",
		Execution: Execution{
			Plugin:             string(workflow.Linear),
			NProcs:             1,
			Queue:              "-q all.q",
			StopOnFirstCrash:   true,
			StopOnFirstRerun:   false,
			HashMethod:         string(workflow.HashTimestamp),
			LocalHashCheck:     true,
			JobFinishedTimeout: 15,
		},
		Logging: Logging{Level: "info"},
	}
}

// Load returns the defaults overlaid with the YAML file at path, when path is not empty, and
// with the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read %s", path)
		}

		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)

		err = dec.Decode(cfg)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidConfig, "%s: %v", path, err)
		}
	}

	err := ParseEnv(cfg)
	if err != nil {
		return nil, err
	}

	err = cfg.Validate()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks enumerated values and bounds.
func (c *Config) Validate() error {
	switch workflow.Plugin(c.Execution.Plugin) {
	case workflow.Linear, workflow.MultiProc, workflow.SGE, workflow.SGEGraph:
	default:
		return errors.Wrapf(ErrInvalidConfig, "plugin %q", c.Execution.Plugin)
	}

	switch workflow.HashMethod(c.Execution.HashMethod) {
	case workflow.HashTimestamp, workflow.HashContent:
	default:
		return errors.Wrapf(ErrInvalidConfig, "hash_method %q", c.Execution.HashMethod)
	}

	if c.Execution.NProcs < 0 || c.Execution.JobFinishedTimeout < 0 || c.Execution.NodeTimeout < 0 {
		return errors.Wrap(ErrInvalidConfig, "n_procs and timeouts must not be negative")
	}

	_, err := c.Logging.SlogLevel()

	return err
}

// SlogLevel parses the log level.
func (l Logging) SlogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(strings.ToUpper(l.Level)))
	if err != nil {
		return level, errors.Wrapf(ErrInvalidConfig, "log level %q", l.Level)
	}

	return level, nil
}

// Binaries maps each external binary to its configured directory.
func (t Tools) Binaries() map[string]string {
	return map[string]string{
		"ANTS":                    t.ANTSPath,
		"WarpImageMultiTransform": t.ANTSPath,
		"AverageImages":           t.ANTSPath,
		"AverageAffineTransform":  t.ANTSPath,
		"MultiplyImages":          t.ANTSPath,
		"film":                    t.CMTKBinDir,
		"gtractResampleCodeImage": t.BRAINSToolsDir,
	}
}

// Workflow returns the engine settings.
func (c *Config) Workflow(logger *slog.Logger, dryRun bool, opts ...model.WorkflowOption) workflow.Config {
	return workflow.Config{
		BaseDir:            c.BaseDir,
		Plugin:             workflow.Plugin(c.Execution.Plugin),
		NProcs:             c.Execution.NProcs,
		StopOnFirstCrash:   c.Execution.StopOnFirstCrash,
		StopOnFirstRerun:   c.Execution.StopOnFirstRerun,
		HashMethod:         workflow.HashMethod(c.Execution.HashMethod),
		LocalHashCheck:     c.Execution.LocalHashCheck,
		JobFinishedTimeout: time.Duration(c.Execution.JobFinishedTimeout) * time.Second,
		NodeTimeout:        time.Duration(c.Execution.NodeTimeout) * time.Second,
		QsubArgs:           c.Execution.QsubArgs,
		DryRun:             dryRun,
		Resolve:            command.DirResolver(c.Tools.Binaries()),
		Logger:             logger,
		Options:            opts,
	}
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/askiada/regflow/internal/config"
	"github.com/askiada/regflow/pkg/command"
	"github.com/askiada/regflow/pkg/command/ants"
	"github.com/askiada/regflow/pkg/command/brains"
	"github.com/askiada/regflow/pkg/command/cmtk"
)

// CmdlineOptions holds flags for the cmdline command.
type CmdlineOptions struct {
	*RootOptions
	InputsFile string
	List       bool
}

// NewRegistry returns a registry holding every known tool.
func NewRegistry() (*command.Registry, error) {
	r := command.NewRegistry()

	for _, register := range []func(*command.Registry) error{ants.Register, cmtk.Register, brains.Register} {
		err := register(r)
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

// NewCmdlineCommand creates the cmdline command.
func NewCmdlineCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CmdlineOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cmdline <tool>",
		Short: "Print the command line of one tool",
		Long: `Print the command line a tool would run with the parameters read from a YAML file.
Parameter names are the snake_case names used in workflows.

Example:
  regflow cmdline film -f film.yaml
  regflow cmdline --list`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCmdline(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.InputsFile, "file", "f", "", "YAML file holding the tool parameters")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list the known tools")

	return cmd
}

func runCmdline(cmd *cobra.Command, opts *CmdlineOptions, args []string) error {
	registry, err := NewRegistry()
	if err != nil {
		return WrapExitError(ExitFailure, "unable to register tools", err)
	}

	if opts.List {
		for _, name := range registry.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}

		return nil
	}

	if len(args) != 1 {
		return WrapExitError(ExitCommandError, "missing tool name", command.ErrUnknownTool)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "unable to load configuration", err)
	}

	in := map[string]any{}

	if opts.InputsFile != "" {
		raw, err := os.ReadFile(opts.InputsFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "unable to read inputs", err)
		}

		err = yaml.Unmarshal(raw, &in)
		if err != nil {
			return WrapExitError(ExitCommandError, "unable to decode inputs", err)
		}
	}

	spec, err := registry.Bind(args[0], in)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid parameters", err)
	}

	line, err := command.Cmdline(spec, command.DirResolver(cfg.Tools.Binaries()))
	if err != nil {
		return WrapExitError(ExitCommandError, "unable to build command line", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), line)

	return nil
}

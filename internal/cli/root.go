package cli

import (
	"github.com/spf13/cobra"

	"github.com/askiada/regflow/pkg/workflow"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	BaseDir    string
	WFRun      string
	DryRun     bool
	Graph      string
	GraphStyle string
}

// NewRootCommand creates the root command of regflow.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "regflow",
		Short: "Neuroimaging registration workflows",
		Long: `Build population templates with ANTS and correct interleaved motion with CMTK film.

Every tool invocation runs in its own directory under the base directory. Results of jobs whose
inputs did not change are reused on the next run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.BaseDir, "base-dir", "", "directory holding the job directories")
	cmd.PersistentFlags().StringVar(&opts.WFRun, "wfrun", "", "execution preset (local, local_4, local_12, helium_all.q, helium_all.q_graph, ipl_OSX)")
	cmd.PersistentFlags().BoolVar(&opts.DryRun, "dry-run", false, "print command lines without running them")
	cmd.PersistentFlags().StringVar(&opts.Graph, "graph", "", "write the executed graph to this DOT file")
	cmd.PersistentFlags().StringVar(&opts.GraphStyle, "graph-style", string(workflow.GraphHierarchical), "graph layout (flat|hierarchical)")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.AddCommand(NewTemplateCommand(opts))
	cmd.AddCommand(NewFilmCommand(opts))
	cmd.AddCommand(NewCmdlineCommand(opts))

	return cmd
}

// usageArgs marks positional argument errors as command errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		err := validate(cmd, args)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid arguments", err)
		}

		return nil
	}
}

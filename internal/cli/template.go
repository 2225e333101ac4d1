package cli

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/askiada/regflow/pkg/templatebuild"
)

// TemplateOptions holds flags for the template command.
type TemplateOptions struct {
	*RootOptions
	Inputs       []string
	PassiveFile  string
	Prefix       string
	Iterations   int
	GradientStep float64
}

// NewTemplateCommand creates the template command.
func NewTemplateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TemplateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Build a population template from volumes",
		Long: `Build a population template with the ANTS build template parallel scheme.

The volumes are first averaged, then every iteration registers each volume to the current
template and reshapes the average of the deformed volumes into the next template.

Example:
  regflow template --wfrun local_4 -i 01_T1_half.nii.gz -i 02_T1_half.nii.gz -i 03_T1_half.nii.gz`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTemplate(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Inputs, "input", "i", nil, "input volumes")
	cmd.Flags().StringVar(&opts.PassiveFile, "passive", "", "YAML file listing per subject the images to carry along, keyed by image type")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", templatebuild.DefaultPrefix, "prefix of the iteration outputs")
	cmd.Flags().IntVar(&opts.Iterations, "iterations", templatebuild.DefaultIterations, "number of registration iterations")
	cmd.Flags().Float64Var(&opts.GradientStep, "gradient-step", templatebuild.DefaultGradientStep, "template update gradient step")

	return cmd
}

func runTemplate(cmd *cobra.Command, opts *TemplateOptions) error {
	if len(opts.Inputs) == 0 {
		return WrapExitError(ExitCommandError, "no input volume", errors.New("--input is required"))
	}

	passive, err := readPassive(opts.PassiveFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "unable to read passive images", err)
	}

	s, err := newSession(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.close()

	tpl, err := templatebuild.BuildTemplateParallel(opts.Inputs, passive, templatebuild.Options{
		Prefix:       opts.Prefix,
		Queue:        s.cfg.Execution.Queue,
		GradientStep: opts.GradientStep,
		Iterations:   opts.Iterations,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "unable to build workflow", err)
	}

	result, err := s.run(cmd.Context(), opts.RootOptions, tpl.Workflow, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if opts.DryRun {
		return nil
	}

	template, err := result.Output(tpl.OutputSpec, "template")
	if err != nil {
		return WrapExitError(ExitFailure, "no template produced", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), template)

	return nil
}

func readPassive(path string) ([]map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %s", path)
	}

	var passive []map[string]string

	err = yaml.Unmarshal(raw, &passive)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to decode %s", path)
	}

	return passive, nil
}

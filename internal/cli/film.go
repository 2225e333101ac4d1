package cli

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/askiada/regflow/pkg/command/cmtk"
	"github.com/askiada/regflow/pkg/filmwf"
	"github.com/askiada/regflow/pkg/workflow"
)

// FilmOptions holds flags for the film command.
type FilmOptions struct {
	*RootOptions
	Inputs []string
	Film   cmtk.Film
}

// NewFilmCommand creates the film command.
func NewFilmCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FilmOptions{RootOptions: rootOpts, Film: cmtk.NewFilm()}

	cmd := &cobra.Command{
		Use:   "film",
		Short: "Correct interleaved motion in images",
		Long: `Run CMTK film on every image. The corrected image of <dir0>/<dir1>/<site>/.../<name> is
named <prefix>_<site>_<name>. --output-image turns off site naming and is used as given.

Example:
  regflow film --passes 2 --injection-kernel-sigma 1 --num-iterations 30 -i /data/structural/site/T2.nii.gz`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFilm(cmd, opts)
		},
	}

	f := &opts.Film
	cmd.Flags().StringSliceVarP(&opts.Inputs, "input", "i", nil, "interleaved images")
	cmd.Flags().StringVar(&f.OutputImage, "output-image", "", "output image name")
	cmd.Flags().StringVar(&f.OutputPrefix, "output-prefix", f.OutputPrefix, "prefix of derived output names")
	cmd.Flags().IntVar(&f.Passes, "passes", f.Passes, "number of interleaved passes")
	cmd.Flags().Float64Var(&f.InjectionKernelSigma, "injection-kernel-sigma", f.InjectionKernelSigma, "injection kernel standard deviation")
	cmd.Flags().Float64Var(&f.InjectionKernelRadius, "injection-kernel-radius", f.InjectionKernelRadius, "injection kernel truncation radius")
	cmd.Flags().IntVar(&f.NumIterations, "num-iterations", f.NumIterations, "maximum number of inverse interpolation iterations")
	cmd.Flags().StringVar(&f.InverseInterpolationKernel, "kernel", f.InverseInterpolationKernel, "inverse interpolation kernel (cubic|linear|hamming-sinc|cosine-sinc)")
	cmd.Flags().StringVar(&f.InterleavingAxis, "interleave-axis", "", "through-slice direction of the acquisition")
	cmd.Flags().StringVar(&f.RegistrationMetric, "registration-metric", "", "pass registration metric (nmi|mi|cr|msd|cc)")
	cmd.Flags().BoolVar(&f.Verbose, "film-verbose", false, "make film verbose")

	return cmd
}

func runFilm(cmd *cobra.Command, opts *FilmOptions) error {
	if len(opts.Inputs) == 0 {
		return WrapExitError(ExitCommandError, "no input image", errors.New("--input is required"))
	}

	s, err := newSession(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.close()

	wf, err := filmwf.New(opts.Inputs, opts.Film)
	if err != nil {
		return WrapExitError(ExitCommandError, "unable to build workflow", err)
	}

	result, err := s.run(cmd.Context(), opts.RootOptions, wf, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	if opts.DryRun {
		return nil
	}

	value, err := result.Output("OutputSpec", "output_image")
	if err != nil {
		return WrapExitError(ExitFailure, "no image produced", err)
	}

	var images []string

	err = workflow.DecodeValue(value, &images)
	if err != nil {
		return WrapExitError(ExitFailure, "unexpected output", err)
	}

	for _, image := range images {
		fmt.Fprintln(cmd.OutOrStdout(), image)
	}

	return nil
}

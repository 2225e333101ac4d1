// Package cmtk describes the CMTK film tool, which corrects interleaved motion by inverse
// interpolation.
package cmtk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/regflow/pkg/command"
)

// ErrInvalidInputPath is returned when the acquisition site cannot be read from the input path.
var ErrInvalidInputPath = errors.New("input path has too few components to name the output")

// Film defaults.
const (
	DefaultOutputPrefix          = "film3pC"
	DefaultPasses                = 2
	DefaultInjectionKernelSigma  = 0.5
	DefaultInjectionKernelRadius = 2
	DefaultNumIterations         = 20
	DefaultInterpolationKernel   = "cubic"
)

var (
	interpolationKernels = []string{"cubic", "linear", "hamming-sinc", "cosine-sinc"}
	interleaveAxes       = []string{
		"guess-from-input", "axial", "sagittal", "coronal", "interleave-x", "interleave-y", "interleave-z",
	}
	registrationMetrics = []string{"nmi", "mi", "cr", "msd", "cc"}
)

// siteComponent is the index of the acquisition site in an input path split on "/",
// e.g. "peg_MR" in /nopoulos/structural/peg_MR/...
const siteComponent = 3

// Film reconstructs a motion corrected image from an interleaved acquisition.
type Film struct {
	InputImage  string `yaml:"input_image,omitempty"`
	OutputImage string `yaml:"output_image,omitempty"`
	// OutputPrefix starts the derived output name, <prefix>_<site>_<input basename>.
	OutputPrefix string `yaml:"output_prefix,omitempty"`

	Passes                     int      `yaml:"passes,omitempty"`
	PassWeights                []string `yaml:"pass_weights,omitempty"`
	InjectionKernelSigma       float64  `yaml:"injection_kernel_sigma,omitempty"`
	InjectionKernelRadius      float64  `yaml:"injection_kernel_radius,omitempty"`
	NumIterations              int      `yaml:"num_iterations,omitempty"`
	InverseInterpolationKernel string   `yaml:"inverse_interpolation_kernel,omitempty"`
	InterleavingAxis           string   `yaml:"interleaving_axis,omitempty"`
	RegistrationMetric         string   `yaml:"registration_metric,omitempty"`
	PaddingValue               *float64 `yaml:"padding_value,omitempty"`
	ReferenceImage             string   `yaml:"reference_image,omitempty"`
	ImportXformsPath           string   `yaml:"import_xforms_path,omitempty"`
	ExportXformsPath           string   `yaml:"export_xforms_path,omitempty"`
	FourthOrderError           bool     `yaml:"fourth_order_error,omitempty"`
	LNormWeight                *float64 `yaml:"l_norm_weight,omitempty"`
	NoTruncation               bool     `yaml:"no_truncation,omitempty"`
	WriteInjectedImage         string   `yaml:"write_injected_image,omitempty"`
	WriteImagesAsFloat         bool     `yaml:"write_images_as_float,omitempty"`
	Verbose                    bool     `yaml:"verbose,omitempty"`
	Threads                    int      `yaml:"threads,omitempty"`
}

// NewFilm returns a Film holding the tool defaults.
func NewFilm() Film {
	return Film{
		OutputPrefix:               DefaultOutputPrefix,
		Passes:                     DefaultPasses,
		InjectionKernelSigma:       DefaultInjectionKernelSigma,
		InjectionKernelRadius:      DefaultInjectionKernelRadius,
		NumIterations:              DefaultNumIterations,
		InverseInterpolationKernel: DefaultInterpolationKernel,
	}
}

func (Film) Executable() string {
	return "film"
}

func (f Film) RequiredFiles() []string {
	return []string{f.InputImage, f.ReferenceImage}
}

func (f Film) Args() ([]string, error) {
	if f.InputImage == "" {
		return nil, errors.Wrap(command.ErrMissingInput, "input_image")
	}

	for _, check := range []struct {
		name    string
		value   string
		allowed []string
	}{
		{"inverse_interpolation_kernel", f.InverseInterpolationKernel, interpolationKernels},
		{"interleaving_axis", f.InterleavingAxis, interleaveAxes},
		{"registration_metric", f.RegistrationMetric, registrationMetrics},
	} {
		err := oneOf(check.name, check.value, check.allowed)
		if err != nil {
			return nil, err
		}
	}

	for _, weight := range f.PassWeights {
		err := checkPassWeight(weight)
		if err != nil {
			return nil, err
		}
	}

	output, err := f.outputName()
	if err != nil {
		return nil, err
	}

	kernel := f.InverseInterpolationKernel
	if kernel == "" {
		kernel = DefaultInterpolationKernel
	}

	args := &command.ArgList{}
	args.Switch("--verbose", f.Verbose)

	if f.Threads > 0 {
		args.Flag("--threads", fmt.Sprint(f.Threads))
	}

	args.Choice(f.InterleavingAxis)

	if f.Passes > 0 {
		args.Flag("--passes", fmt.Sprint(f.Passes))
	}

	for _, weight := range f.PassWeights {
		args.Flag("--pass-weight", weight)
	}

	args.OptionalFloat("--padding-value", f.PaddingValue)
	args.OptionalFlag("--reference-image", f.ReferenceImage)
	args.Choice(f.RegistrationMetric)
	args.OptionalFlag("--import-xforms-path", f.ImportXformsPath)
	args.OptionalFlag("--export-xforms-path", f.ExportXformsPath)
	args.Flag("--injection-kernel-sigma", command.FormatFloat(f.InjectionKernelSigma))
	args.Flag("--injection-kernel-radius", command.FormatFloat(f.InjectionKernelRadius))
	args.Choice(kernel)
	args.Switch("--fourth-order-error", f.FourthOrderError)

	if f.NumIterations > 0 {
		args.Flag("--num-iterations", fmt.Sprint(f.NumIterations))
	}

	args.OptionalFloat("--l-norm-weight", f.LNormWeight)
	args.Switch("--no-truncation", f.NoTruncation)
	args.OptionalFlag("--write-injected-image", f.WriteInjectedImage)
	args.Switch("--write-images-as-float", f.WriteImagesAsFloat)
	args.Positional(f.InputImage, output)

	return args.Args(), nil
}

func oneOf(name, value string, allowed []string) error {
	if value == "" {
		return nil
	}

	for _, candidate := range allowed {
		if value == candidate {
			return nil
		}
	}

	return errors.Wrapf(command.ErrInvalidValue, "%s %q, expected one of %s", name, value, strings.Join(allowed, ", "))
}

// checkPassWeight accepts the <pass>:<weight> form film takes, e.g. 0:0.5.
func checkPassWeight(value string) error {
	pass, weight, ok := strings.Cut(value, ":")
	if !ok {
		return errors.Wrapf(command.ErrInvalidValue, "pass weight %q, expected <pass>:<weight>", value)
	}

	n, err := strconv.Atoi(pass)
	if err != nil || n < 0 {
		return errors.Wrapf(command.ErrInvalidValue, "pass weight %q has an invalid pass", value)
	}

	_, err = strconv.ParseFloat(weight, 64)
	if err != nil {
		return errors.Wrapf(command.ErrInvalidValue, "pass weight %q has an invalid weight", value)
	}

	return nil
}

// outputName returns the output image set explicitly, or the name derived from the input path.
func (f Film) outputName() (string, error) {
	if f.OutputImage != "" {
		return f.OutputImage, nil
	}

	parts := strings.Split(strings.TrimSpace(f.InputImage), "/")
	if len(parts) <= siteComponent {
		return "", errors.Wrapf(ErrInvalidInputPath, "%s", f.InputImage)
	}

	prefix := f.OutputPrefix
	if prefix == "" {
		prefix = DefaultOutputPrefix
	}

	return fmt.Sprintf("%s_%s_%s", prefix, parts[siteComponent], parts[len(parts)-1]), nil
}

func (f Film) Outputs(dir string) (map[string]any, error) {
	output, err := f.outputName()
	if err != nil {
		return nil, err
	}

	return map[string]any{"image": command.Abs(dir, output)}, nil
}

// Register adds film to r.
func Register(r *command.Registry) error {
	return r.Register("film", NewFilm())
}

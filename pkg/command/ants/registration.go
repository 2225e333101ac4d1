package ants

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/regflow/pkg/command"
)

// DefaultDimension is used when a descriptor leaves its dimension unset.
const DefaultDimension = 3

func dimension(d int) string {
	if d == 0 {
		d = DefaultDimension
	}

	return fmt.Sprint(d)
}

// Registration runs ANTS to register moving images onto fixed images. One image metric is
// rendered per fixed/moving pair.
type Registration struct {
	Dimension             int              `yaml:"dimension,omitempty"`
	FixedImage            command.PathList `yaml:"fixed_image,omitempty"`
	MovingImage           command.PathList `yaml:"moving_image,omitempty"`
	Metric                []string         `yaml:"metric,omitempty"`
	MetricWeight          []float64        `yaml:"metric_weight,omitempty"`
	Radius                []int            `yaml:"radius,omitempty"`
	OutputTransformPrefix string           `yaml:"output_transform_prefix,omitempty"`

	TransformationModel string  `yaml:"transformation_model,omitempty"`
	GradientStepLength  float64 `yaml:"gradient_step_length,omitempty"`
	NumberOfTimeSteps   int     `yaml:"number_of_time_steps,omitempty"`
	DeltaTime           float64 `yaml:"delta_time,omitempty"`
	SymmetryType        float64 `yaml:"symmetry_type,omitempty"`

	Regularization                      string   `yaml:"regularization,omitempty"`
	RegularizationGradientFieldSigma    *float64 `yaml:"regularization_gradient_field_sigma,omitempty"`
	RegularizationDeformationFieldSigma *float64 `yaml:"regularization_deformation_field_sigma,omitempty"`

	NumberOfIterations       []int `yaml:"number_of_iterations,omitempty"`
	SmoothingSigmas          []int `yaml:"smoothing_sigmas,omitempty"`
	SubsamplingFactors       []int `yaml:"subsampling_factors,omitempty"`
	NumberOfAffineIterations []int `yaml:"number_of_affine_iterations,omitempty"`
	MIOption                 []int `yaml:"mi_option,omitempty"`
	UseHistogramMatching     bool  `yaml:"use_histogram_matching,omitempty"`
}

func (Registration) Executable() string {
	return "ANTS"
}

func (r Registration) RequiredFiles() []string {
	return append(append([]string{}, r.FixedImage...), r.MovingImage...)
}

func (r Registration) Args() ([]string, error) {
	metrics, err := r.imageMetrics()
	if err != nil {
		return nil, err
	}

	if r.OutputTransformPrefix == "" {
		return nil, errors.Wrap(command.ErrMissingInput, "output_transform_prefix")
	}

	args := &command.ArgList{}
	args.Positional(dimension(r.Dimension))

	for _, metric := range metrics {
		args.Flag("--image-metric", metric)
	}

	if r.TransformationModel != "" {
		args.Flag("--transformation-model", r.transformationModel())
	}

	if r.Regularization != "" {
		args.Flag("--regularization", r.regularization())
	}

	if len(r.NumberOfIterations) > 0 {
		args.Flag("--number-of-iterations", command.JoinInts(r.NumberOfIterations))
	}

	if len(r.SmoothingSigmas) > 0 {
		args.Flag("--gaussian-smoothing-sigmas", command.JoinInts(r.SmoothingSigmas))
	}

	if len(r.SubsamplingFactors) > 0 {
		args.Flag("--subsampling-factors", command.JoinInts(r.SubsamplingFactors))
	}

	if len(r.NumberOfAffineIterations) > 0 {
		args.Flag("--number-of-affine-iterations", command.JoinInts(r.NumberOfAffineIterations))
	}

	if len(r.MIOption) > 0 {
		args.Flag("--MI-option", command.JoinInts(r.MIOption))
	}

	if r.UseHistogramMatching {
		args.Flag("--use-Histogram-Matching", "1")
	}

	args.Flag("--output-naming", r.OutputTransformPrefix)

	return args.Args(), nil
}

func (r Registration) imageMetrics() ([]string, error) {
	if len(r.MovingImage) == 0 {
		return nil, errors.Wrap(command.ErrMissingInput, "moving_image")
	}

	if len(r.FixedImage) == 0 {
		return nil, errors.Wrap(command.ErrMissingInput, "fixed_image")
	}

	n := len(r.Metric)
	if n == 0 {
		return nil, errors.Wrap(command.ErrMissingInput, "metric")
	}

	for _, field := range []struct {
		name   string
		length int
	}{
		{"fixed_image", len(r.FixedImage)},
		{"moving_image", len(r.MovingImage)},
		{"metric_weight", len(r.MetricWeight)},
		{"radius", len(r.Radius)},
	} {
		if field.length != n {
			return nil, errors.Wrapf(command.ErrInvalidValue, "%s has %d elements, metric has %d", field.name, field.length, n)
		}
	}

	metrics := make([]string, n)
	for i := range r.Metric {
		metrics[i] = fmt.Sprintf("%s[%s,%s,%s,%d]",
			r.Metric[i], r.FixedImage[i], r.MovingImage[i], command.FormatFloat(r.MetricWeight[i]), r.Radius[i])
	}

	return metrics, nil
}

func (r Registration) transformationModel() string {
	params := []string{command.FormatFloat(r.GradientStepLength)}
	if r.NumberOfTimeSteps > 0 {
		params = append(params,
			fmt.Sprint(r.NumberOfTimeSteps), command.FormatFloat(r.DeltaTime), command.FormatFloat(r.SymmetryType))
	}

	return r.TransformationModel + "[" + strings.Join(params, ",") + "]"
}

func (r Registration) regularization() string {
	var params []string
	if r.RegularizationGradientFieldSigma != nil {
		params = append(params, command.FormatFloat(*r.RegularizationGradientFieldSigma))
	}

	if r.RegularizationDeformationFieldSigma != nil {
		params = append(params, command.FormatFloat(*r.RegularizationDeformationFieldSigma))
	}

	if len(params) == 0 {
		return r.Regularization
	}

	return r.Regularization + "[" + strings.Join(params, ",") + "]"
}

// Outputs lists the transforms written under the output prefix.
func (r Registration) Outputs(dir string) (map[string]any, error) {
	if r.OutputTransformPrefix == "" {
		return nil, errors.Wrap(command.ErrMissingInput, "output_transform_prefix")
	}

	return map[string]any{
		"affine_transform":       command.Abs(dir, r.OutputTransformPrefix+"Affine.txt"),
		"warp_transform":         command.Abs(dir, r.OutputTransformPrefix+"Warp.nii.gz"),
		"inverse_warp_transform": command.Abs(dir, r.OutputTransformPrefix+"InverseWarp.nii.gz"),
	}, nil
}

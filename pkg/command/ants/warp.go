package ants

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/askiada/regflow/pkg/command"
)

// DefaultWarpPostfix is appended to the moving image name when no output name is given.
const DefaultWarpPostfix = "_wimt"

// WarpImageMultiTransform applies a series of transforms to a moving image.
//
// InvertAffine holds 1-based positions counted among the affine transforms of the series, that
// is the .txt and .mat files; the transforms at those positions are inverted.
type WarpImageMultiTransform struct {
	Dimension            int              `yaml:"dimension,omitempty"`
	MovingImage          string           `yaml:"moving_image,omitempty"`
	OutputImage          string           `yaml:"output_image,omitempty"`
	OutPostfix           string           `yaml:"out_postfix,omitempty"`
	ReferenceImage       string           `yaml:"reference_image,omitempty"`
	TightestBox          bool             `yaml:"tightest_box,omitempty"`
	UseNearest           bool             `yaml:"use_nearest,omitempty"`
	UseBSpline           bool             `yaml:"use_bspline,omitempty"`
	TransformationSeries command.PathList `yaml:"transformation_series,omitempty"`
	InvertAffine         []int            `yaml:"invert_affine,omitempty"`
}

func (WarpImageMultiTransform) Executable() string {
	return "WarpImageMultiTransform"
}

func (w WarpImageMultiTransform) RequiredFiles() []string {
	files := append([]string{w.MovingImage, w.ReferenceImage}, w.TransformationSeries...)

	return files
}

func (w WarpImageMultiTransform) Args() ([]string, error) {
	if w.MovingImage == "" {
		return nil, errors.Wrap(command.ErrMissingInput, "moving_image")
	}

	if len(w.TransformationSeries) == 0 {
		return nil, errors.Wrap(command.ErrMissingInput, "transformation_series")
	}

	if w.ReferenceImage != "" && w.TightestBox {
		return nil, errors.Wrap(command.ErrInvalidValue, "reference_image and tightest_box are mutually exclusive")
	}

	series, err := w.series()
	if err != nil {
		return nil, err
	}

	args := &command.ArgList{}
	args.Positional(dimension(w.Dimension), w.MovingImage, w.outputName())
	args.OptionalFlag("-R", w.ReferenceImage)
	args.Switch("--tightest-bounding-box", w.TightestBox)
	args.Switch("--use-NN", w.UseNearest)
	args.Switch("--use-BSpline", w.UseBSpline)
	args.Positional(series...)

	return args.Args(), nil
}

func (w WarpImageMultiTransform) series() ([]string, error) {
	invert := make(map[int]bool, len(w.InvertAffine))
	for _, idx := range w.InvertAffine {
		if idx < 1 {
			return nil, errors.Wrapf(command.ErrInvalidValue, "invert_affine index %d, positions start at 1", idx)
		}
		invert[idx] = true
	}

	series := make([]string, 0, len(w.TransformationSeries)+len(invert))
	affines := 0

	for _, transform := range w.TransformationSeries {
		if isAffine(transform) {
			affines++
			if invert[affines] {
				series = append(series, "-i")
			}
		}
		series = append(series, transform)
	}

	return series, nil
}

func isAffine(path string) bool {
	switch filepath.Ext(path) {
	case ".txt", ".mat":
		return true
	default:
		return false
	}
}

// outputName is relative: the command runs in the job directory.
func (w WarpImageMultiTransform) outputName() string {
	if w.OutputImage != "" {
		return w.OutputImage
	}

	postfix := w.OutPostfix
	if postfix == "" {
		postfix = DefaultWarpPostfix
	}

	stem, ext := command.SplitExt(w.MovingImage)

	return stem + postfix + ext
}

func (w WarpImageMultiTransform) Outputs(dir string) (map[string]any, error) {
	if w.MovingImage == "" {
		return nil, errors.Wrap(command.ErrMissingInput, "moving_image")
	}

	return map[string]any{"output_image": command.Abs(dir, w.outputName())}, nil
}

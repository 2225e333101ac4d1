// Package brains describes BRAINSTools programs.
package brains

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/askiada/regflow/pkg/command"
)

// DefaultOutputVolume names the output when one is requested without a path.
const DefaultOutputVolume = "outputVolume.nrrd"

var transformTypes = map[string]bool{
	"Rigid": true, "Affine": true, "B-Spline": true, "Inverse-B-Spline": true, "None": true,
}

// ResampleCodeImage resamples a code image, such as a label map, into a reference space.
type ResampleCodeImage struct {
	InputCodeVolume      string `yaml:"input_code_volume,omitempty"`
	InputReferenceVolume string `yaml:"input_reference_volume,omitempty"`
	InputTransform       string `yaml:"input_transform,omitempty"`
	TransformType        string `yaml:"transform_type,omitempty"`
	// OutputVolume is the output path. WriteOutputVolume alone writes DefaultOutputVolume.
	OutputVolume      string `yaml:"output_volume,omitempty"`
	WriteOutputVolume bool   `yaml:"write_output_volume,omitempty"`
	NumberOfThreads   int    `yaml:"number_of_threads,omitempty"`
}

func (ResampleCodeImage) Executable() string {
	return "gtractResampleCodeImage"
}

func (r ResampleCodeImage) RequiredFiles() []string {
	return []string{r.InputCodeVolume, r.InputReferenceVolume, r.InputTransform}
}

func (r ResampleCodeImage) Args() ([]string, error) {
	if r.TransformType != "" && !transformTypes[r.TransformType] {
		return nil, errors.Wrapf(command.ErrInvalidValue, "transform_type %q", r.TransformType)
	}

	args := &command.ArgList{}
	args.OptionalFlag("--inputCodeVolume", r.InputCodeVolume)
	args.OptionalFlag("--inputReferenceVolume", r.InputReferenceVolume)
	args.OptionalFlag("--inputTransform", r.InputTransform)
	args.OptionalFlag("--transformType", r.TransformType)
	args.OptionalFlag("--outputVolume", r.output())

	if r.NumberOfThreads > 0 {
		args.Flag("--numberOfThreads", fmt.Sprint(r.NumberOfThreads))
	}

	return args.Args(), nil
}

func (r ResampleCodeImage) output() string {
	if r.OutputVolume == "" && r.WriteOutputVolume {
		return DefaultOutputVolume
	}

	return r.OutputVolume
}

func (r ResampleCodeImage) Outputs(dir string) (map[string]any, error) {
	output := r.output()
	if output == "" {
		return map[string]any{}, nil
	}

	return map[string]any{"output_volume": command.Abs(dir, output)}, nil
}

// Register adds gtractResampleCodeImage to r.
func Register(r *command.Registry) error {
	return r.Register(ResampleCodeImage{}.Executable(), ResampleCodeImage{})
}

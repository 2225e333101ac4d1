// Package transforms reshapes the outputs of one registration step into the inputs the next step
// expects: transform pairs per subject, flattened passive images and their regrouping per image
// type.
package transforms

import (
	"sort"

	"github.com/pkg/errors"
)

var (
	// ErrLengthMismatch is returned when lists that must be parallel differ in length.
	ErrLengthMismatch = errors.New("lists must have the same length")
	// ErrUnevenSubjects is returned when subjects carry different numbers of passive images.
	ErrUnevenSubjects = errors.New("every subject must carry the same number of passive images")
)

// GradientSteps is the number of times the gradient step warp is applied when reshaping a
// template.
const GradientSteps = 4

// MakeTransformLists pairs each warp with the affine transform of the same subject, warp first,
// which is the order WarpImageMultiTransform composes them in.
func MakeTransformLists(warps, affines []string) ([][]string, error) {
	if len(warps) != len(affines) {
		return nil, errors.Wrapf(ErrLengthMismatch, "%d warps, %d affine transforms", len(warps), len(affines))
	}

	pairs := make([][]string, len(warps))
	for i := range warps {
		pairs[i] = []string{warps[i], affines[i]}
	}

	return pairs, nil
}

// TransformListWithGradientWarps returns the average affine transform followed by the gradient
// step warp repeated GradientSteps times.
func TransformListWithGradientWarps(affine, warp string) []string {
	list := make([]string, 0, GradientSteps+1)
	list = append(list, affine)

	for i := 0; i < GradientSteps; i++ {
		list = append(list, warp)
	}

	return list
}

// Flattened holds three parallel lists, one entry per passive image.
type Flattened struct {
	Images     []string
	Transforms [][]string
	NameTypes  []string
}

// FlattenTransformsAndImages expands per-subject passive images, keyed by image type, into
// parallel lists where each image is paired with the transforms of its subject. Image types are
// visited in sorted order.
func FlattenTransformsAndImages(passive []map[string]string, series [][]string) (Flattened, error) {
	flat := Flattened{Images: []string{}, Transforms: [][]string{}, NameTypes: []string{}}
	if len(passive) == 0 {
		return flat, nil
	}

	if len(passive) != len(series) {
		return flat, errors.Wrapf(ErrLengthMismatch, "%d subjects, %d transform series", len(passive), len(series))
	}

	expected := len(passive[0])

	for subject, images := range passive {
		if len(images) != expected {
			return Flattened{}, errors.Wrapf(ErrUnevenSubjects, "subject %d has %d images, expected %d",
				subject, len(images), expected)
		}

		types := make([]string, 0, len(images))
		for nameType := range images {
			types = append(types, nameType)
		}
		sort.Strings(types)

		for _, nameType := range types {
			flat.Images = append(flat.Images, images[nameType])
			flat.Transforms = append(flat.Transforms, append([]string(nil), series[subject]...))
			flat.NameTypes = append(flat.NameTypes, nameType)
		}
	}

	return flat, nil
}

// Renested groups deformed passive images per image type.
type Renested struct {
	// Images holds one list per image type, one entry per subject.
	Images [][]string
	// AverageNames names the average of each image type, AVG_<type>.nii.gz.
	AverageNames []string
	// Postfixes are appended to the reshaped average of each image type, WARP_AVG_<type>.
	Postfixes []string
}

// RenestDeformedPassiveImages groups deformed images by their image type. Types come out in the
// order they first appear in nameTypes.
func RenestDeformedPassiveImages(deformed, nameTypes []string) (Renested, error) {
	nested := Renested{Images: [][]string{}, AverageNames: []string{}, Postfixes: []string{}}

	if len(deformed) != len(nameTypes) {
		return nested, errors.Wrapf(ErrLengthMismatch, "%d deformed images, %d image types", len(deformed), len(nameTypes))
	}

	index := make(map[string]int)

	for i, nameType := range nameTypes {
		pos, ok := index[nameType]
		if !ok {
			pos = len(nested.Images)
			index[nameType] = pos
			nested.Images = append(nested.Images, []string{})
			nested.AverageNames = append(nested.AverageNames, "AVG_"+nameType+".nii.gz")
			nested.Postfixes = append(nested.Postfixes, "WARP_AVG_"+nameType)
		}
		nested.Images[pos] = append(nested.Images[pos], deformed[i])
	}

	return nested, nil
}

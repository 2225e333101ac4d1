// Package templatebuild assembles the workflows building a population template with ANTS: an
// initial average of the input volumes, then iterations registering every volume to the current
// template and reshaping the average of the deformed volumes into the next template.
package templatebuild

import (
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/askiada/regflow/pkg/command"
	"github.com/askiada/regflow/pkg/command/ants"
	"github.com/askiada/regflow/pkg/workflow"
)

// Defaults of Options.
const (
	DefaultPrefix       = "SyN"
	DefaultGradientStep = 0.25
	DefaultIterations   = 2
)

// RegistrationQsubArgs are the qsub arguments of the registration jobs, which need several cores.
// The cluster queue is appended.
const RegistrationQsubArgs = "-S /bin/bash -pe smp1 8-12 -l mem_free=6000M -o /dev/null -e /dev/null "

// Options configures the template workflows.
type Options struct {
	// Prefix names the outputs of an iteration.
	Prefix string
	// Queue is appended to the qsub arguments of the registration jobs, e.g. "-q all.q".
	Queue string
	// GradientStep scales the average warp applied to the template at each iteration.
	GradientStep float64
	// Iterations is the number of registration iterations of BuildTemplateParallel.
	Iterations int
	// Registration replaces DefaultRegistration.
	Registration *ants.Registration
}

func (o Options) withDefaults() Options {
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}

	if o.GradientStep == 0 {
		o.GradientStep = DefaultGradientStep
	}

	if o.Iterations <= 0 {
		o.Iterations = DefaultIterations
	}

	return o
}

// DefaultRegistration returns the SyN registration run for every volume at each iteration.
func DefaultRegistration(prefix string) ants.Registration {
	gradientSigma, deformationSigma := 3.0, 0.0

	return ants.Registration{
		Dimension:                           3,
		OutputTransformPrefix:               prefix + "_tfm",
		Metric:                              []string{"CC"},
		MetricWeight:                        []float64{1},
		Radius:                              []int{5},
		TransformationModel:                 "SyN",
		GradientStepLength:                  DefaultGradientStep,
		NumberOfIterations:                  []int{50, 35, 15},
		UseHistogramMatching:                true,
		MIOption:                            []int{32, 16000},
		Regularization:                      "Gauss",
		RegularizationGradientFieldSigma:    &gradientSigma,
		RegularizationDeformationFieldSigma: &deformationSigma,
		NumberOfAffineIterations:            []int{10000, 10000, 10000, 10000, 10000},
	}
}

// wiring connects nodes and keeps the first error.
type wiring struct {
	wf  *workflow.Workflow
	err error
}

func (w *wiring) connect(src workflow.Vertex, srcField string, dst workflow.Vertex, dstField string) {
	if w.err != nil {
		return
	}

	err := w.wf.Connect(src, srcField, dst, dstField)
	if err != nil {
		w.err = errors.Wrapf(err, "unable to connect %s to %s", srcField, dstField)
	}
}

// SingleIteration returns one template building iteration.
//
// InputSpec takes images, fixed_image (the current template) and passive_images, a list holding
// per subject the images to carry along keyed by image type. OutputSpec returns template, the
// transforms_list of every subject and passive_deformed_templates.
func SingleIteration(opts Options) (*workflow.Workflow, error) {
	opts = opts.withDefaults()
	prefix := opts.Prefix

	wf, err := workflow.New("ANTSTemplateBuildSingleIterationWF_" + prefix)
	if err != nil {
		return nil, err
	}

	w := &wiring{wf: wf}

	inputSpec := workflow.NewNode("InputSpec", workflow.Identity("images", "fixed_image", "passive_images"),
		workflow.WithoutSubmitting()).
		Set("passive_images", []map[string]string{})
	outputSpec := workflow.NewNode("OutputSpec", workflow.Identity("template", "transforms_list", "passive_deformed_templates"),
		workflow.WithoutSubmitting())

	registration := DefaultRegistration(prefix)
	if opts.Registration != nil {
		registration = *opts.Registration
	}

	beginANTS := workflow.NewMapNode("BeginANTS", command.NewInterface("ANTS", registration), []string{"moving_image"},
		workflow.WithPluginArgs(RegistrationQsubArgs+opts.Queue))
	w.connect(inputSpec, "images", beginANTS, "moving_image")
	w.connect(inputSpec, "fixed_image", beginANTS, "fixed_image")

	makeTransformsLists := workflow.NewNode("MakeTransformsLists", makeTransformLists(), workflow.WithoutSubmitting())
	w.connect(beginANTS, "warp_transform", makeTransformsLists, "warp_transform_list")
	w.connect(beginANTS, "affine_transform", makeTransformsLists, "affine_transform_list")

	warpDeformed := workflow.NewMapNode("wimtdeformed",
		command.NewInterface("WarpImageMultiTransform", ants.WarpImageMultiTransform{Dimension: 3}),
		[]string{"transformation_series", "moving_image"})
	w.connect(inputSpec, "images", warpDeformed, "moving_image")
	w.connect(makeTransformsLists, "out", warpDeformed, "transformation_series")

	avgDeformed := workflow.NewNode("AvgDeformedImages", command.NewInterface("AverageImages", ants.AverageImages{
		Dimension:          3,
		OutputAverageImage: prefix + ".nii.gz",
		Normalize:          true,
	}))
	w.connect(warpDeformed, "output_image", avgDeformed, "images")

	avgAffine := workflow.NewNode("AvgAffineTransform", command.NewInterface("AverageAffineTransform", ants.AverageAffineTransform{
		Dimension:             3,
		OutputAffineTransform: prefix + "Affine.mat",
	}))
	w.connect(beginANTS, "affine_transform", avgAffine, "transforms")

	avgWarp := workflow.NewNode("AvgWarpImages", command.NewInterface("AverageImages", ants.AverageImages{
		Dimension:          3,
		OutputAverageImage: prefix + "warp.nii.gz",
		Normalize:          true,
	}))
	w.connect(beginANTS, "warp_transform", avgWarp, "images")

	gradientStep := workflow.NewNode("GradientStepWarpImage", command.NewInterface("MultiplyImages", ants.MultiplyImages{
		Dimension:          3,
		SecondInput:        command.FormatFloat(-opts.GradientStep),
		OutputProductImage: prefix + "warp.nii.gz",
	}))
	w.connect(avgWarp, "average_image", gradientStep, "first_input")

	updateShape := workflow.NewNode("UpdateTemplateShape", command.NewInterface("WarpImageMultiTransform", ants.WarpImageMultiTransform{
		Dimension:    3,
		InvertAffine: []int{1},
	}))
	w.connect(avgDeformed, "average_image", updateShape, "reference_image")
	w.connect(avgAffine, "affine_transform", updateShape, "transformation_series")
	w.connect(gradientStep, "product_image", updateShape, "moving_image")

	gradientWarps := workflow.NewNode("MakeTransformListWithGradientWarps", transformListWithGradientWarps(),
		workflow.WithoutSubmitting())
	w.connect(avgAffine, "affine_transform", gradientWarps, "average_affine_transform")
	w.connect(updateShape, "output_image", gradientWarps, "gradient_step_warp")

	reshape := workflow.NewNode("ReshapeAverageImageWithShapeUpdate", command.NewInterface("WarpImageMultiTransform", ants.WarpImageMultiTransform{
		Dimension:    3,
		InvertAffine: []int{1},
		OutPostfix:   "_Reshaped",
	}))
	w.connect(avgDeformed, "average_image", reshape, "moving_image")
	w.connect(avgDeformed, "average_image", reshape, "reference_image")
	w.connect(gradientWarps, "transform_list", reshape, "transformation_series")
	w.connect(reshape, "output_image", outputSpec, "template")
	w.connect(makeTransformsLists, "out", outputSpec, "transforms_list")

	connectPassive(w, inputSpec, outputSpec, makeTransformsLists, gradientWarps)

	if w.err != nil {
		return nil, w.err
	}

	return wf, nil
}

// connectPassive warps the passive images of every subject with the transforms of the subject,
// averages them per image type and reshapes each average like the template.
func connectPassive(w *wiring, inputSpec, outputSpec, transformLists, gradientWarps *workflow.Node) {
	flatten := workflow.NewNode("99_FlattenTransformAndImagesList", flattenTransformsAndImages(),
		workflow.WithoutSubmitting())
	w.connect(inputSpec, "passive_images", flatten, "passive_images")
	w.connect(transformLists, "out", flatten, "transformation_series")

	warpPassive := workflow.NewMapNode("wimtPassivedeformed",
		command.NewInterface("WarpImageMultiTransform", ants.WarpImageMultiTransform{Dimension: 3}),
		[]string{"transformation_series", "moving_image"})
	w.connect(flatten, "flattened_images", warpPassive, "moving_image")
	w.connect(flatten, "flattened_transforms", warpPassive, "transformation_series")

	renest := workflow.NewNode("99_RenestDeformedPassiveImages", renestDeformedPassiveImages(),
		workflow.WithoutSubmitting())
	w.connect(warpPassive, "output_image", renest, "deformed_passive_images")
	w.connect(flatten, "flattened_image_nametypes", renest, "flattened_image_nametypes")

	avgPassive := workflow.NewMapNode("AvgDeformedPassiveImages",
		command.NewInterface("AverageImages", ants.AverageImages{Dimension: 3}),
		[]string{"images", "output_average_image"})
	w.connect(renest, "nested_imagetype_list", avgPassive, "images")
	w.connect(renest, "output_average_image_list", avgPassive, "output_average_image")

	reshapePassive := workflow.NewMapNode("ReshapeAveragePassiveImageWithShapeUpdate",
		command.NewInterface("WarpImageMultiTransform", ants.WarpImageMultiTransform{Dimension: 3, InvertAffine: []int{1}}),
		[]string{"moving_image", "reference_image", "out_postfix"})
	w.connect(renest, "image_type_list", reshapePassive, "out_postfix")
	w.connect(avgPassive, "average_image", reshapePassive, "moving_image")
	w.connect(avgPassive, "average_image", reshapePassive, "reference_image")
	w.connect(gradientWarps, "transform_list", reshapePassive, "transformation_series")
	w.connect(reshapePassive, "output_image", outputSpec, "passive_deformed_templates")
}

// InitialAverage returns the workflow averaging the input images into the first template.
// InputSpec takes images, OutputSpec returns average_image.
func InitialAverage() (*workflow.Workflow, error) {
	wf, err := workflow.New("InitialAverageWF")
	if err != nil {
		return nil, err
	}

	w := &wiring{wf: wf}

	inputSpec := workflow.NewNode("InputSpec", workflow.Identity("images"), workflow.WithoutSubmitting())
	outputSpec := workflow.NewNode("OutputSpec", workflow.Identity("average_image"), workflow.WithoutSubmitting())

	average := workflow.NewNode("InitAvgImages", command.NewInterface("AverageImages", ants.AverageImages{
		Dimension:          3,
		OutputAverageImage: "initial_template.nii.gz",
		Normalize:          true,
	}))
	w.connect(inputSpec, "images", average, "images")
	w.connect(average, "average_image", outputSpec, "average_image")

	if w.err != nil {
		return nil, w.err
	}

	return wf, nil
}

// Template is a template building workflow.
type Template struct {
	Workflow *workflow.Workflow
	// OutputSpec is the path of the node holding the outputs of the last iteration.
	OutputSpec string
}

// BuildTemplateParallel returns the complete template building workflow for images. Each
// iteration after the first is a clone of the first one fed with the previous template. Relative
// paths of images and passive images are resolved against the working directory.
func BuildTemplateParallel(images []string, passive []map[string]string, opts Options) (*Template, error) {
	opts = opts.withDefaults()

	if len(images) == 0 {
		return nil, errors.Wrap(command.ErrMissingInput, "images")
	}

	images, err := command.AbsPaths(images)
	if err != nil {
		return nil, err
	}

	passive, err = absPassive(passive)
	if err != nil {
		return nil, err
	}

	wf, err := workflow.New("buildtemplateparallel")
	if err != nil {
		return nil, err
	}

	w := &wiring{wf: wf}

	infoSource := workflow.NewNode("infoSource", workflow.Identity("images", "passive_images"), workflow.WithoutSubmitting()).
		Set("images", images).
		Set("passive_images", passive)

	initAvg, err := InitialAverage()
	if err != nil {
		return nil, err
	}

	w.connect(infoSource, "images", initAvg, "InputSpec.images")

	first, err := SingleIteration(opts)
	if err != nil {
		return nil, err
	}

	w.connect(infoSource, "images", first, "InputSpec.images")
	w.connect(infoSource, "passive_images", first, "InputSpec.passive_images")
	w.connect(initAvg, "OutputSpec.average_image", first, "InputSpec.fixed_image")

	previous := first
	for i := 2; i <= opts.Iterations; i++ {
		next, err := first.Clone(fmt.Sprintf("%s_iteration%d", first.Name(), i))
		if err != nil {
			return nil, errors.Wrapf(err, "unable to clone iteration %d", i)
		}

		w.connect(infoSource, "images", next, "InputSpec.images")
		w.connect(infoSource, "passive_images", next, "InputSpec.passive_images")
		w.connect(previous, "OutputSpec.template", next, "InputSpec.fixed_image")
		previous = next
	}

	if w.err != nil {
		return nil, w.err
	}

	return &Template{Workflow: wf, OutputSpec: previous.Name() + ".OutputSpec"}, nil
}

func absPassive(passive []map[string]string) ([]map[string]string, error) {
	res := make([]map[string]string, len(passive))

	for i, images := range passive {
		res[i] = make(map[string]string, len(images))

		for nameType, path := range images {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, errors.Wrapf(err, "unable to resolve %s", path)
			}
			res[i][nameType] = abs
		}
	}

	return res, nil
}

package ants_test

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/regflow/pkg/command"
	"github.com/askiada/regflow/pkg/command/ants"
)

func float(v float64) *float64 {
	return &v
}

func TestCmdlineGolden(t *testing.T) {
	t.Parallel()

	cases := map[string]command.Spec{
		"registration_syn": ants.Registration{
			Dimension:                           3,
			FixedImage:                          command.PathList{"fixed.nii.gz"},
			MovingImage:                         command.PathList{"moving.nii.gz"},
			Metric:                              []string{"CC"},
			MetricWeight:                        []float64{1},
			Radius:                              []int{5},
			OutputTransformPrefix:               "SyN_tfm",
			TransformationModel:                 "SyN",
			GradientStepLength:                  0.25,
			NumberOfIterations:                  []int{50, 35, 15},
			UseHistogramMatching:                true,
			MIOption:                            []int{32, 16000},
			Regularization:                      "Gauss",
			RegularizationGradientFieldSigma:    float(3),
			RegularizationDeformationFieldSigma: float(0),
			NumberOfAffineIterations:            []int{10000, 10000, 10000, 10000, 10000},
		},
		"registration_time_steps": ants.Registration{
			Dimension:             2,
			FixedImage:            command.PathList{"f1.nii", "f2.nii"},
			MovingImage:           command.PathList{"m1.nii", "m2.nii"},
			Metric:                []string{"CC", "MI"},
			MetricWeight:          []float64{1, 0.5},
			Radius:                []int{4, 32},
			OutputTransformPrefix: "out_",
			TransformationModel:   "SyN",
			GradientStepLength:    0.5,
			NumberOfTimeSteps:     2,
			DeltaTime:             0.05,
			SymmetryType:          0.25,
			Regularization:        "Gauss",
			NumberOfIterations:    []int{100, 50},
			SmoothingSigmas:       []int{2, 1},
			SubsamplingFactors:    []int{4, 2},
		},
		"warp_default_postfix": ants.WarpImageMultiTransform{
			Dimension:            3,
			MovingImage:          "/data/T1.nii.gz",
			TransformationSeries: command.PathList{"w.nii.gz", "a.txt"},
		},
		"warp_invert_first_affine": ants.WarpImageMultiTransform{
			Dimension:            3,
			MovingImage:          "avgwarp.nii.gz",
			ReferenceImage:       "avg.nii.gz",
			OutPostfix:           "_Reshaped",
			UseNearest:           true,
			TransformationSeries: command.PathList{"Affine.mat", "w.nii.gz", "w.nii.gz"},
			InvertAffine:         []int{1},
		},
		"warp_invert_second_affine": ants.WarpImageMultiTransform{
			MovingImage:          "m.nii",
			OutputImage:          "out.nii",
			TightestBox:          true,
			TransformationSeries: command.PathList{"a1.txt", "w.nii", "a2.mat"},
			InvertAffine:         []int{2},
		},
		"average_images_normalized": ants.AverageImages{
			Dimension:          3,
			OutputAverageImage: "SyN.nii.gz",
			Normalize:          true,
			Images:             command.PathList{"a.nii.gz", "b.nii.gz"},
		},
		"average_images_defaults": ants.AverageImages{
			Images: command.PathList{"a.nii"},
		},
		"average_affine_transform": ants.AverageAffineTransform{
			Dimension:             3,
			OutputAffineTransform: "SyNAffine.mat",
			Transforms:            command.PathList{"a.txt", "b.txt"},
		},
		"multiply_by_constant": ants.MultiplyImages{
			Dimension:          3,
			FirstInput:         "SyNwarp.nii.gz",
			SecondInput:        command.FormatFloat(-0.25),
			OutputProductImage: "SyNwarp.nii.gz",
		},
	}

	for name, spec := range cases {
		name, spec := name, spec
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			line, err := command.Cmdline(spec, nil)
			require.NoError(t, err)

			g := goldie.New(t)
			g.Assert(t, name, []byte(line+"\n"))
		})
	}
}

func TestRegistrationErrors(t *testing.T) {
	t.Parallel()

	valid := ants.Registration{
		FixedImage:            command.PathList{"f.nii"},
		MovingImage:           command.PathList{"m.nii"},
		Metric:                []string{"CC"},
		MetricWeight:          []float64{1},
		Radius:                []int{5},
		OutputTransformPrefix: "p",
	}

	_, err := valid.Args()
	require.NoError(t, err)

	cases := map[string]struct {
		mutate func(r *ants.Registration)
		want   error
	}{
		"no moving image": {mutate: func(r *ants.Registration) { r.MovingImage = nil }, want: command.ErrMissingInput},
		"no fixed image":  {mutate: func(r *ants.Registration) { r.FixedImage = nil }, want: command.ErrMissingInput},
		"no metric":       {mutate: func(r *ants.Registration) { r.Metric = nil }, want: command.ErrMissingInput},
		"no prefix":       {mutate: func(r *ants.Registration) { r.OutputTransformPrefix = "" }, want: command.ErrMissingInput},
		"radius length":   {mutate: func(r *ants.Registration) { r.Radius = []int{5, 4} }, want: command.ErrInvalidValue},
		"weight length":   {mutate: func(r *ants.Registration) { r.MetricWeight = nil }, want: command.ErrInvalidValue},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := valid
			tc.mutate(&r)

			_, err := r.Args()
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRequiredFieldOrder(t *testing.T) {
	t.Parallel()

	for i := 0; i < 20; i++ {
		_, err := ants.MultiplyImages{}.Args()
		require.ErrorIs(t, err, command.ErrMissingInput)
		assert.EqualError(t, err, "first_input: mandatory input is not set")

		_, err = ants.Registration{
			FixedImage:            command.PathList{"f.nii", "g.nii"},
			MovingImage:           command.PathList{"m.nii", "n.nii"},
			Metric:                []string{"CC"},
			OutputTransformPrefix: "p",
		}.Args()
		require.ErrorIs(t, err, command.ErrInvalidValue)
		assert.Contains(t, err.Error(), "fixed_image has 2 elements, metric has 1")
	}
}

func TestRegistrationOutputs(t *testing.T) {
	t.Parallel()

	outs, err := ants.Registration{OutputTransformPrefix: "SyN_tfm"}.Outputs("/work")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"affine_transform":       "/work/SyN_tfmAffine.txt",
		"warp_transform":         "/work/SyN_tfmWarp.nii.gz",
		"inverse_warp_transform": "/work/SyN_tfmInverseWarp.nii.gz",
	}, outs)
}

func TestWarpImageMultiTransform(t *testing.T) {
	t.Parallel()

	t.Run("outputs", func(t *testing.T) {
		t.Parallel()

		outs, err := ants.WarpImageMultiTransform{MovingImage: "/data/AVG_T2.nii.gz", OutPostfix: "WARP_AVG_T2"}.Outputs("/work")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"output_image": "/work/AVG_T2WARP_AVG_T2.nii.gz"}, outs)
	})

	t.Run("reference and tightest box", func(t *testing.T) {
		t.Parallel()

		_, err := ants.WarpImageMultiTransform{
			MovingImage:          "m.nii",
			ReferenceImage:       "r.nii",
			TightestBox:          true,
			TransformationSeries: command.PathList{"a.txt"},
		}.Args()
		assert.ErrorIs(t, err, command.ErrInvalidValue)
	})

	t.Run("invalid invert index", func(t *testing.T) {
		t.Parallel()

		_, err := ants.WarpImageMultiTransform{
			MovingImage:          "m.nii",
			TransformationSeries: command.PathList{"a.txt"},
			InvertAffine:         []int{0},
		}.Args()
		assert.ErrorIs(t, err, command.ErrInvalidValue)
	})

	t.Run("no transform", func(t *testing.T) {
		t.Parallel()

		_, err := ants.WarpImageMultiTransform{MovingImage: "m.nii"}.Args()
		assert.ErrorIs(t, err, command.ErrMissingInput)
	})
}

func TestMultiplyImagesRequiredFiles(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a.nii"}, ants.MultiplyImages{FirstInput: "a.nii", SecondInput: "-0.25"}.RequiredFiles())
	assert.Equal(t, []string{"a.nii", "b.nii"}, ants.MultiplyImages{FirstInput: "a.nii", SecondInput: "b.nii"}.RequiredFiles())

	_, err := ants.MultiplyImages{FirstInput: "a.nii", SecondInput: "2"}.Args()
	assert.ErrorIs(t, err, command.ErrMissingInput)
}

func TestAverageAffineTransformRequiresOutput(t *testing.T) {
	t.Parallel()

	_, err := ants.AverageAffineTransform{Transforms: command.PathList{"a.txt"}}.Args()
	assert.ErrorIs(t, err, command.ErrMissingInput)
}

func TestRegister(t *testing.T) {
	t.Parallel()

	r := command.NewRegistry()
	require.NoError(t, ants.Register(r))
	assert.Equal(t, []string{"ANTS", "AverageAffineTransform", "AverageImages", "MultiplyImages", "WarpImageMultiTransform"}, r.Names())

	spec, err := r.Bind("AverageImages", map[string]any{"images": []string{"a.nii", "b.nii"}, "normalize": true})
	require.NoError(t, err)

	line, err := command.Cmdline(spec, nil)
	require.NoError(t, err)
	assert.Equal(t, "AverageImages 3 average.nii 1 a.nii b.nii", line)
}

func TestAverageImagesNormalizeAsInt(t *testing.T) {
	t.Parallel()

	r := command.NewRegistry()
	require.NoError(t, ants.Register(r))

	for value, want := range map[int]string{0: "0", 1: "1"} {
		spec, err := r.Bind("AverageImages", map[string]any{"images": "a.nii", "normalize": value})
		require.NoError(t, err)

		line, err := command.Cmdline(spec, nil)
		require.NoError(t, err)
		assert.Equal(t, "AverageImages 3 average.nii "+want+" a.nii", line)
	}

	_, err := r.Bind("AverageImages", map[string]any{"images": "a.nii", "normalize": 2})
	assert.ErrorIs(t, err, command.ErrInvalidValue)
}

package brains_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/regflow/pkg/command"
	"github.com/askiada/regflow/pkg/command/brains"
)

func TestResampleCodeImageArgs(t *testing.T) {
	t.Parallel()

	r := brains.ResampleCodeImage{
		InputCodeVolume:      "labels.nrrd",
		InputReferenceVolume: "t1.nrrd",
		InputTransform:       "xfm.mat",
		TransformType:        "Affine",
		WriteOutputVolume:    true,
		NumberOfThreads:      2,
	}

	line, err := command.Cmdline(r, command.DirResolver(map[string]string{"gtractResampleCodeImage": "/opt/brains"}))
	require.NoError(t, err)
	assert.Equal(t, "/opt/brains/gtractResampleCodeImage --inputCodeVolume labels.nrrd --inputReferenceVolume t1.nrrd"+
		" --inputTransform xfm.mat --transformType Affine --outputVolume outputVolume.nrrd --numberOfThreads 2", line)

	outs, err := r.Outputs("/work")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"output_volume": "/work/outputVolume.nrrd"}, outs)
}

func TestResampleCodeImageOutputs(t *testing.T) {
	t.Parallel()

	outs, err := brains.ResampleCodeImage{}.Outputs("/work")
	require.NoError(t, err)
	assert.Empty(t, outs)

	outs, err = brains.ResampleCodeImage{OutputVolume: "/out/resampled.nrrd", WriteOutputVolume: true}.Outputs("/work")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"output_volume": "/out/resampled.nrrd"}, outs)
}

func TestResampleCodeImageInvalidTransformType(t *testing.T) {
	t.Parallel()

	_, err := brains.ResampleCodeImage{TransformType: "Similarity"}.Args()
	assert.ErrorIs(t, err, command.ErrInvalidValue)
}

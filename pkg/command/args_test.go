package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askiada/regflow/pkg/command"
)

func TestArgList(t *testing.T) {
	t.Parallel()

	half := 0.5
	three := 3

	args := &command.ArgList{}
	args.Positional("3").
		Flag("--passes", "2").
		OptionalFlag("--empty", "").
		OptionalFlag("--reference-image", "ref.nii").
		OptionalFloat("--sigma", &half).
		OptionalFloat("--unset", nil).
		OptionalInt("--threads", &three).
		OptionalInt("--unset-int", nil).
		Switch("--verbose", true).
		Switch("--quiet", false).
		Choice("cubic").
		Choice("")

	assert.Equal(t, []string{
		"3", "--passes", "2", "--reference-image", "ref.nii", "--sigma", "0.5",
		"--threads", "3", "--verbose", "--cubic",
	}, args.Args())
}

func TestArgListArgsIsACopy(t *testing.T) {
	t.Parallel()

	args := &command.ArgList{}
	args.Positional("a")

	got := args.Args()
	got[0] = "b"

	assert.Equal(t, []string{"a"}, args.Args())
}

func TestFormatFloat(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		value float64
		want  string
	}{
		"integer":  {value: 1, want: "1"},
		"half":     {value: 0.5, want: "0.5"},
		"negative": {value: -0.25, want: "-0.25"},
		"zero":     {value: 0, want: "0"},
		"large":    {value: 16000, want: "16000"},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, command.FormatFloat(tc.value))
		})
	}
}

func TestJoinInts(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "50x35x15", command.JoinInts([]int{50, 35, 15}))
	assert.Equal(t, "32", command.JoinInts([]int{32}))
	assert.Equal(t, "", command.JoinInts(nil))
}

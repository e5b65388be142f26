package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/domain"
)

var testToolchain = Toolchain{
	Python:           "/usr/bin/python3",
	Dir:              "/opt/Wan2.2",
	PreprocessScript: "wan/modules/animate/preprocess/preprocess_data.py",
	GenerateScript:   "generate.py",
	CheckpointDir:    "Wan2.2-Animate-14B",
}

func TestPreprocessArgumentsPerMode(t *testing.T) {
	tests := []struct {
		mode Mode
		want []string
	}{
		{
			mode: ModeAnimation,
			want: []string{
				"wan/modules/animate/preprocess/preprocess_data.py",
				"--ckpt_path", "Wan2.2-Animate-14B/process_checkpoint",
				"--video_path", "/tmp/s/motion_video.mp4",
				"--refer_path", "/tmp/s/edited_image.png",
				"--save_path", "/tmp/s/process_results",
				"--resolution_area", "1280", "720",
				"--retarget_flag", "--use_flux",
			},
		},
		{
			mode: ModeReplacement,
			want: []string{
				"wan/modules/animate/preprocess/preprocess_data.py",
				"--ckpt_path", "Wan2.2-Animate-14B/process_checkpoint",
				"--video_path", "/tmp/s/motion_video.mp4",
				"--refer_path", "/tmp/s/edited_image.png",
				"--save_path", "/tmp/s/process_results",
				"--resolution_area", "1280", "720",
				"--iterations", "3", "--k", "7", "--w_len", "1", "--h_len", "1", "--replace_flag",
			},
		},
	}
	for _, tc := range tests {
		t.Run(string(tc.mode), func(t *testing.T) {
			inv := testToolchain.Preprocess(tc.mode, "/tmp/s/motion_video.mp4", "/tmp/s/edited_image.png", "/tmp/s/process_results")
			assert.Equal(t, StagePreprocess, inv.Stage)
			assert.Equal(t, "/usr/bin/python3", inv.Command)
			assert.Equal(t, "/opt/Wan2.2", inv.Dir)
			assert.Equal(t, tc.want, inv.Args)
		})
	}
}

func TestGenerateArgumentsPerMode(t *testing.T) {
	base := []string{
		"generate.py",
		"--task", "animate-14B",
		"--ckpt_dir", "Wan2.2-Animate-14B",
		"--src_root_path", "/tmp/s/process_results",
		"--refert_num", "1",
		"--prompt", "a dancer on a rooftop at dusk",
		"--output_root", "/tmp/s/outputs",
	}
	tests := []struct {
		mode Mode
		flag string
	}{
		{ModeAnimation, "--retarget_flag"},
		{ModeReplacement, "--replace_flag"},
	}
	for _, tc := range tests {
		t.Run(string(tc.mode), func(t *testing.T) {
			inv := testToolchain.Generate(tc.mode, "/tmp/s/process_results", "a dancer on a rooftop at dusk", "/tmp/s/outputs")
			assert.Equal(t, StageGenerate, inv.Stage)
			assert.Equal(t, append(append([]string{}, base...), tc.flag), inv.Args)
		})
	}
}

func TestModeArgumentSetsAreDistinct(t *testing.T) {
	anim := testToolchain.Preprocess(ModeAnimation, "v", "i", "o")
	repl := testToolchain.Preprocess(ModeReplacement, "v", "i", "o")
	assert.NotEqual(t, anim.Args, repl.Args)

	animGen := testToolchain.Generate(ModeAnimation, "s", "p", "o")
	replGen := testToolchain.Generate(ModeReplacement, "s", "p", "o")
	assert.NotEqual(t, animGen.Args, replGen.Args)
}

func TestInvocationStringQuotesArguments(t *testing.T) {
	inv := Invocation{Command: "python", Args: []string{"generate.py", "--prompt", "it's a test", ""}}
	assert.Equal(t, `python generate.py --prompt 'it'\''s a test' ''`, inv.String())
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode(" Animation ")
	require.NoError(t, err)
	assert.Equal(t, ModeAnimation, mode)

	mode, err = ParseMode("replacement")
	require.NoError(t, err)
	assert.Equal(t, ModeReplacement, mode)

	_, err = ParseMode("remix")
	var validation *domain.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, []string{"mode"}, validation.Fields)
	assert.Contains(t, err.Error(), `"remix"`)
}

func TestDefaultPythonInterpreter(t *testing.T) {
	inv := Toolchain{GenerateScript: "generate.py"}.Generate(ModeAnimation, "s", "p", "o")
	assert.Equal(t, "python", inv.Command)
}

package pipeline

import (
	"path/filepath"
	"strings"
)

const (
	StagePreprocess = "preprocess"
	StageGenerate   = "generate"
)

// Invocation is one external command with its full argument vector.
type Invocation struct {
	Stage   string
	Command string
	Args    []string
	Dir     string
}

// String renders the invocation the way it would be typed in a shell, for logs.
func (i Invocation) String() string {
	parts := make([]string, 0, len(i.Args)+1)
	parts = append(parts, quoteArg(i.Command))
	for _, arg := range i.Args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, " \t\n'\"\\$`") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// Toolchain locates the external video-generation scripts and checkpoints.
// Relative script and checkpoint paths resolve against Dir, which is also the
// working directory of every stage.
type Toolchain struct {
	Python           string
	Dir              string
	PreprocessScript string
	GenerateScript   string
	CheckpointDir    string
}

// Preprocess builds the invocation that extracts pose/face material from the
// motion video and the edited reference image into saveDir.
func (t Toolchain) Preprocess(mode Mode, videoPath, referencePath, saveDir string) Invocation {
	args := []string{
		t.PreprocessScript,
		"--ckpt_path", filepath.Join(t.CheckpointDir, "process_checkpoint"),
		"--video_path", videoPath,
		"--refer_path", referencePath,
		"--save_path", saveDir,
		"--resolution_area", "1280", "720",
	}
	args = append(args, preprocessFlags[mode]...)
	return Invocation{Stage: StagePreprocess, Command: t.python(), Args: args, Dir: t.Dir}
}

// Generate builds the invocation that renders the final clip from the
// preprocess output into a new subdirectory of outputRoot.
func (t Toolchain) Generate(mode Mode, sourceDir, scenePrompt, outputRoot string) Invocation {
	args := []string{
		t.GenerateScript,
		"--task", "animate-14B",
		"--ckpt_dir", t.CheckpointDir,
		"--src_root_path", sourceDir,
		"--refert_num", "1",
		"--prompt", scenePrompt,
		"--output_root", outputRoot,
	}
	if flag := generateFlags[mode]; flag != "" {
		args = append(args, flag)
	}
	return Invocation{Stage: StageGenerate, Command: t.python(), Args: args, Dir: t.Dir}
}

func (t Toolchain) python() string {
	if strings.TrimSpace(t.Python) == "" {
		return "python"
	}
	return t.Python
}

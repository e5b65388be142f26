package pipeline

import (
	"fmt"
	"strings"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/domain"
)

// Mode selects how the reference character is combined with the motion video.
type Mode string

const (
	// ModeAnimation drives the edited character with the motion of the video.
	ModeAnimation Mode = "animation"
	// ModeReplacement swaps the person in the video for the edited character.
	ModeReplacement Mode = "replacement"
)

// ParseMode accepts only the two known modes (case-insensitive).
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeAnimation:
		return ModeAnimation, nil
	case ModeReplacement:
		return ModeReplacement, nil
	}
	return "", &domain.ValidationError{
		Fields:  []string{"mode"},
		Message: fmt.Sprintf("Unsupported mode %q: expected %s or %s", raw, ModeAnimation, ModeReplacement),
	}
}

var preprocessFlags = map[Mode][]string{
	ModeAnimation:   {"--retarget_flag", "--use_flux"},
	ModeReplacement: {"--iterations", "3", "--k", "7", "--w_len", "1", "--h_len", "1", "--replace_flag"},
}

var generateFlags = map[Mode]string{
	ModeAnimation:   "--retarget_flag",
	ModeReplacement: "--replace_flag",
}

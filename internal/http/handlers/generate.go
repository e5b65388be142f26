package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/animate"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/domain"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/middleware"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/pipeline"
)

const msgInvalidJSON = "Invalid JSON payload supplied."

type generateRequest struct {
	OriginalImage string `json:"original_image"`
	ImageMIMEType string `json:"image_mime_type"`
	EditPrompt    string `json:"edit_prompt"`
	MotionVideo   string `json:"motion_video"`
	VideoMIMEType string `json:"video_mime_type"`
	ScenePrompt   string `json:"scene_prompt"`
	Mode          string `json:"mode"`
}

type generateResponse struct {
	Status    string `json:"status"`
	VideoData string `json:"video_data"`
	MIMEType  string `json:"mime_type"`
}

// missingFields lists absent or empty fields in wire order. Whitespace is a
// value; only the empty string is missing.
func (r generateRequest) missingFields() []string {
	fields := []struct {
		name  string
		value string
	}{
		{"original_image", r.OriginalImage},
		{"image_mime_type", r.ImageMIMEType},
		{"edit_prompt", r.EditPrompt},
		{"motion_video", r.MotionVideo},
		{"video_mime_type", r.VideoMIMEType},
		{"scene_prompt", r.ScenePrompt},
		{"mode", r.Mode},
	}
	var missing []string
	for _, f := range fields {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// GenerateVideo validates the payload, runs the pipeline and returns the clip
// as base64. Validation failures never reach the generator.
func (a *App) GenerateVideo(w http.ResponseWriter, r *http.Request) {
	if a.MaxRequestBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.MaxRequestBytes)
	}

	req, err := decodeGenerateRequest(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.fail(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes.", tooLarge.Limit))
			return
		}
		a.failErr(w, err)
		return
	}

	if missing := req.missingFields(); len(missing) > 0 {
		a.failErr(w, &domain.ValidationError{Fields: missing})
		return
	}

	mode, err := pipeline.ParseMode(req.Mode)
	if err != nil {
		a.failErr(w, err)
		return
	}

	image, video, err := decodeArtifacts(req)
	if err != nil {
		a.failErr(w, err)
		return
	}

	// A client disconnect must not abort a running pipeline. Prompts are
	// NFC-composed before they become toolchain arguments.
	ctx := context.WithoutCancel(r.Context())
	result, err := a.Generator.Generate(ctx, animate.Request{
		RequestID:   middleware.RequestIDFromContext(r.Context()),
		Image:       image,
		ImageMIME:   strings.TrimSpace(req.ImageMIMEType),
		EditPrompt:  norm.NFC.String(req.EditPrompt),
		Video:       video,
		VideoMIME:   strings.TrimSpace(req.VideoMIMEType),
		ScenePrompt: norm.NFC.String(req.ScenePrompt),
		Mode:        mode,
	})
	if err != nil {
		a.failErr(w, err)
		return
	}

	a.json(w, http.StatusOK, generateResponse{
		Status:    "success",
		VideoData: base64.StdEncoding.EncodeToString(result.Video),
		MIMEType:  result.MIMEType,
	})
}

// decodeGenerateRequest rejects bodies that are not a non-empty JSON object.
func decodeGenerateRequest(r *http.Request) (generateRequest, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return generateRequest{}, err
		}
		return generateRequest{}, invalidJSON(err)
	}
	if len(raw) == 0 {
		return generateRequest{}, invalidJSON(domain.ErrInvalidPayload)
	}

	var req generateRequest
	for name, dst := range map[string]*string{
		"original_image":  &req.OriginalImage,
		"image_mime_type": &req.ImageMIMEType,
		"edit_prompt":     &req.EditPrompt,
		"motion_video":    &req.MotionVideo,
		"video_mime_type": &req.VideoMIMEType,
		"scene_prompt":    &req.ScenePrompt,
		"mode":            &req.Mode,
	} {
		value, ok := raw[name]
		if !ok || string(value) == "null" {
			continue
		}
		if err := json.Unmarshal(value, dst); err != nil {
			return generateRequest{}, invalidJSON(fmt.Errorf("%s: %w", name, err))
		}
	}
	return req, nil
}

func invalidJSON(err error) error {
	return &domain.ValidationError{Message: msgInvalidJSON, Err: err}
}

func decodeArtifacts(req generateRequest) ([]byte, []byte, error) {
	image, err := decodeBase64(req.OriginalImage)
	if err != nil {
		return nil, nil, decodeFailure("original_image", err)
	}
	video, err := decodeBase64(req.MotionVideo)
	if err != nil {
		return nil, nil, decodeFailure("motion_video", err)
	}
	return image, video, nil
}

func decodeFailure(field string, err error) error {
	return &domain.ValidationError{
		Fields:  []string{field},
		Message: fmt.Sprintf("Failed to decode base64 payloads: %s: %v", field, err),
		Err:     err,
	}
}

// decodeBase64 accepts standard-alphabet input with or without padding.
// Embedded whitespace (line-wrapped encoders) is ignored.
func decodeBase64(data string) ([]byte, error) {
	data = strings.Join(strings.Fields(data), "")
	data = strings.TrimRight(data, "=")
	return base64.RawStdEncoding.DecodeString(data)
}

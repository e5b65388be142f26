package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/animate"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/domain"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/pipeline"
)

type recordingGenerator struct {
	calls  []animate.Request
	result *animate.Result
	err    error
}

func (g *recordingGenerator) Generate(ctx context.Context, req animate.Request) (*animate.Result, error) {
	g.calls = append(g.calls, req)
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func newTestApp(gen Generator) *App {
	return &App{Generator: gen, Logger: zerolog.Nop(), StaticDir: "", MaxRequestBytes: 1 << 20}
}

func validPayload() map[string]any {
	return map[string]any{
		"original_image":  base64.StdEncoding.EncodeToString([]byte("image-bytes")),
		"image_mime_type": "image/png",
		"edit_prompt":     "give her a red scarf",
		"motion_video":    base64.StdEncoding.EncodeToString([]byte("video-bytes")),
		"video_mime_type": "video/mp4",
		"scene_prompt":    "a snowy street at night",
		"mode":            "animation",
	}
}

func postGenerate(t *testing.T, app *App, body string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/generate-video", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	app.GenerateVideo(rec, req)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func encode(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestGenerateVideoRejectsInvalidJSON(t *testing.T) {
	for _, body := range []string{"", "not json", "{}", "[]", "null", `{"mode": 7}`} {
		t.Run(body, func(t *testing.T) {
			gen := &recordingGenerator{}
			rec, out := postGenerate(t, newTestApp(gen), body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "error", out["status"])
			assert.Equal(t, "Invalid JSON payload supplied.", out["error"])
			assert.Empty(t, gen.calls)
		})
	}
}

func TestGenerateVideoEnumeratesMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p map[string]any)
		want   string
	}{
		{
			name:   "single field",
			mutate: func(p map[string]any) { delete(p, "scene_prompt") },
			want:   "Missing required fields: scene_prompt",
		},
		{
			name: "several in request order",
			mutate: func(p map[string]any) {
				delete(p, "mode")
				p["edit_prompt"] = ""
				p["original_image"] = nil
			},
			want: "Missing required fields: original_image, edit_prompt, mode",
		},
		{
			name:   "empty string counts as missing",
			mutate: func(p map[string]any) { p["video_mime_type"] = "" },
			want:   "Missing required fields: video_mime_type",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &recordingGenerator{}
			payload := validPayload()
			tc.mutate(payload)

			rec, out := postGenerate(t, newTestApp(gen), encode(t, payload))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.want, out["error"])
			assert.Empty(t, gen.calls)
		})
	}
}

func TestGenerateVideoAcceptsWhitespacePrompts(t *testing.T) {
	gen := &recordingGenerator{result: &animate.Result{Video: []byte("v"), MIMEType: animate.ResultMIMEType}}
	payload := validPayload()
	payload["edit_prompt"] = "   "
	payload["scene_prompt"] = " "

	rec, _ := postGenerate(t, newTestApp(gen), encode(t, payload))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, gen.calls, 1)
	assert.Equal(t, "   ", gen.calls[0].EditPrompt)
	assert.Equal(t, " ", gen.calls[0].ScenePrompt)
}

func TestGenerateVideoRejectsUnknownMode(t *testing.T) {
	gen := &recordingGenerator{}
	payload := validPayload()
	payload["mode"] = "morph"

	rec, out := postGenerate(t, newTestApp(gen), encode(t, payload))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `Unsupported mode "morph": expected animation or replacement`, out["error"])
	assert.Empty(t, gen.calls)
}

func TestGenerateVideoMalformedBase64NeverReachesGenerator(t *testing.T) {
	for _, field := range []string{"original_image", "motion_video"} {
		t.Run(field, func(t *testing.T) {
			gen := &recordingGenerator{}
			payload := validPayload()
			payload[field] = "@@not-base64@@"

			rec, out := postGenerate(t, newTestApp(gen), encode(t, payload))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.True(t, strings.HasPrefix(out["error"], "Failed to decode base64 payloads: "+field), out["error"])
			assert.Empty(t, gen.calls)
		})
	}
}

func TestGenerateVideoAcceptsUnpaddedBase64(t *testing.T) {
	gen := &recordingGenerator{result: &animate.Result{Video: []byte("v"), MIMEType: animate.ResultMIMEType}}
	payload := validPayload()
	payload["original_image"] = base64.RawStdEncoding.EncodeToString([]byte("ab"))
	payload["motion_video"] = "YWJj\nZGVm"

	rec, _ := postGenerate(t, newTestApp(gen), encode(t, payload))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, gen.calls, 1)
	assert.Equal(t, []byte("ab"), gen.calls[0].Image)
	assert.Equal(t, []byte("abcdef"), gen.calls[0].Video)
}

func TestGenerateVideoSuccessPayload(t *testing.T) {
	clip := []byte("\x00\x00\x00\x18ftypmp42 generated")
	gen := &recordingGenerator{result: &animate.Result{SessionID: "s1", Video: clip, MIMEType: animate.ResultMIMEType}}
	payload := validPayload()
	payload["mode"] = "Replacement"

	rec, out := postGenerate(t, newTestApp(gen), encode(t, payload))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{
		"status":     "success",
		"video_data": base64.StdEncoding.EncodeToString(clip),
		"mime_type":  "video/mp4",
	}, out)

	require.Len(t, gen.calls, 1)
	call := gen.calls[0]
	assert.Equal(t, pipeline.ModeReplacement, call.Mode)
	assert.Equal(t, []byte("image-bytes"), call.Image)
	assert.Equal(t, []byte("video-bytes"), call.Video)
	assert.Equal(t, "image/png", call.ImageMIME)
	assert.Equal(t, "give her a red scarf", call.EditPrompt)
	assert.Equal(t, "a snowy street at night", call.ScenePrompt)
}

func TestGenerateVideoMapsPipelineErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "second stage stderr",
			err:      &domain.PipelineStageError{Stage: pipeline.StageGenerate, ExitCode: 1, Stderr: "boom"},
			contains: "boom",
		},
		{
			name:     "result not found",
			err:      &domain.ResultNotFoundError{Root: "/tmp/x/outputs", Reason: "no result directory under /tmp/x/outputs"},
			contains: "generated video not found: no result directory",
		},
		{
			name:     "missing credentials",
			err:      &domain.ConfigurationError{Setting: "GEMINI_API_KEY"},
			contains: "GEMINI_API_KEY is not configured",
		},
		{
			name:     "edit service",
			err:      &domain.EditServiceError{Op: "upload", Err: errors.New("status 403")},
			contains: "image edit failed (upload): status 403",
		},
		{
			name:     "unexpected",
			err:      errors.New("disk full"),
			contains: "internal error: disk full",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gen := &recordingGenerator{err: tc.err}
			rec, out := postGenerate(t, newTestApp(gen), encode(t, validPayload()))

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, "error", out["status"])
			assert.Contains(t, out["error"], tc.contains)
		})
	}
}

func TestGenerateVideoRejectsOversizedBody(t *testing.T) {
	gen := &recordingGenerator{}
	app := newTestApp(gen)
	app.MaxRequestBytes = 64

	rec, out := postGenerate(t, app, encode(t, validPayload()))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "Request body exceeds 64 bytes.", out["error"])
	assert.Empty(t, gen.calls)
}

func TestGenerateVideoComposesPrompts(t *testing.T) {
	gen := &recordingGenerator{result: &animate.Result{Video: []byte("v"), MIMEType: animate.ResultMIMEType}}
	payload := validPayload()
	payload["edit_prompt"] = "cafe\u0301 apron"
	payload["scene_prompt"] = "re\u0301sume\u0301 on a desk"

	rec, _ := postGenerate(t, newTestApp(gen), encode(t, payload))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, gen.calls, 1)
	assert.Equal(t, "caf\u00e9 apron", gen.calls[0].EditPrompt)
	assert.Equal(t, "r\u00e9sum\u00e9 on a desk", gen.calls[0].ScenePrompt)
}

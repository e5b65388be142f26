package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/animate"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/domain"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/http/handlers"
)

type failingGenerator struct{}

func (failingGenerator) Generate(ctx context.Context, req animate.Request) (*animate.Result, error) {
	return nil, &domain.PipelineStageError{Stage: "generate", ExitCode: 1, Stderr: "boom"}
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(ctx context.Context, req animate.Request) (*animate.Result, error) {
	panic("unexpected")
}

func newTestServer(t *testing.T, gen handlers.Generator) *httptest.Server {
	t.Helper()
	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html></html>"), 0o644))
	app := &handlers.App{Generator: gen, Logger: zerolog.Nop(), StaticDir: static}
	srv := httptest.NewServer(NewRouter(app, zerolog.Nop(), []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

const validBody = `{"original_image":"aW1n","image_mime_type":"image/png","edit_prompt":"x",` +
	`"motion_video":"dmlk","video_mime_type":"video/mp4","scene_prompt":"y","mode":"animation"}`

func TestRouterRoutes(t *testing.T) {
	srv := newTestServer(t, failingGenerator{})

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantBody   string
	}{
		{name: "health", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK, wantBody: `"status":"ok"`},
		{name: "index", method: http.MethodGet, path: "/", wantStatus: http.StatusOK, wantBody: "<html></html>"},
		{name: "missing static", method: http.MethodGet, path: "/nope.png", wantStatus: http.StatusNotFound, wantBody: `"error":"Not found"`},
		{name: "stage failure", method: http.MethodPost, path: "/generate-video", body: validBody, wantStatus: http.StatusInternalServerError, wantBody: "boom"},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK, wantBody: "bananimate_sessions_in_flight"},
		{name: "runs disabled", method: http.MethodGet, path: "/runs", wantStatus: http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, srv.URL+tc.path, strings.NewReader(tc.body))
			require.NoError(t, err)
			resp, err := srv.Client().Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			assert.Contains(t, string(body), tc.wantBody)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
		})
	}
}

func TestRouterEchoesRequestID(t *testing.T) {
	srv := newTestServer(t, failingGenerator{})
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "trace-42")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "trace-42", resp.Header.Get("X-Request-ID"))
}

func TestRouterRecoversPanics(t *testing.T) {
	srv := newTestServer(t, panickingGenerator{})
	resp, err := srv.Client().Post(srv.URL+"/generate-video", "application/json", strings.NewReader(validBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"status":"error","error":"internal error: unexpected"}`, string(body))
}

func TestRouterRejectsUnknownMethodWithJSON(t *testing.T) {
	srv := newTestServer(t, failingGenerator{})
	resp, err := srv.Client().Post(srv.URL+"/healthz", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.JSONEq(t, `{"status":"error","error":"Method not allowed."}`, string(body))
}

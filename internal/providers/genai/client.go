package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gabriel-vasile/mimetype"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/domain"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/infra"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/storage"
)

const (
	fileStateProcessing = "PROCESSING"
	fileStateFailed     = "FAILED"

	editedImageName = "edited_image"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey       string
	BaseURL      string
	APIVersion   string
	Model        string
	PollInterval time.Duration
	HTTPClient   *http.Client
	Logger       *infra.Logger
}

// Client edits images through the Gemini Files and generateContent APIs.
type Client struct {
	apiKey       string
	baseURL      string
	apiVersion   string
	model        string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       *infra.Logger
}

// EditRequest describes one image edit. The edited image is written into OutputDir.
type EditRequest struct {
	ImagePath string
	MIMEType  string
	Prompt    string
	OutputDir string
	RequestID string
}

type geminiFile struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	State    string `json:"state"`
	Error    *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type uploadResponse struct {
	File geminiFile `json:"file"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
	FileData   *geminiFileData   `json:"fileData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one with sensible timeouts will be created.
func NewClient(opts Options) (*Client, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("genai: invalid base url: %w", err)
	}

	version := strings.Trim(opts.APIVersion, "/ ")
	if version == "" {
		version = "v1beta"
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.5-flash-image"
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}

	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		baseURL:      baseURL,
		apiVersion:   version,
		model:        model,
		pollInterval: interval,
		httpClient:   client,
		logger:       logger,
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// EditImage uploads the source image, waits for Gemini to finish processing
// it, asks the model to apply the prompt and stores the returned image in
// req.OutputDir. The uploaded file is deleted afterwards on a best-effort basis.
func (c *Client) EditImage(ctx context.Context, req EditRequest) (string, error) {
	if c.apiKey == "" {
		return "", &domain.ConfigurationError{Setting: "GEMINI_API_KEY"}
	}

	data, err := os.ReadFile(req.ImagePath)
	if err != nil {
		return "", &domain.EditServiceError{Op: "read source", Err: err}
	}
	mimeType := strings.TrimSpace(req.MIMEType)
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}

	log := c.logger.With().Str("request_id", req.RequestID).Str("model", c.model).Logger()

	file, err := c.upload(ctx, data, mimeType, filepath.Base(req.ImagePath))
	if err != nil {
		return "", &domain.EditServiceError{Op: "upload", Err: err}
	}
	log.Debug().Str("file", file.Name).Str("state", file.State).Msg("genai: source image uploaded")
	defer c.deleteFile(context.WithoutCancel(ctx), file.Name, log)

	file, err = c.waitUntilProcessed(ctx, file)
	if err != nil {
		return "", &domain.EditServiceError{Op: "processing", Err: err}
	}

	blob, outMIME, err := c.generateEdit(ctx, file, mimeType, req.Prompt)
	if err != nil {
		return "", &domain.EditServiceError{Op: "generate", Err: err}
	}

	path := filepath.Join(req.OutputDir, editedImageName+storage.ExtensionFor(outMIME, ".png"))
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		return "", fmt.Errorf("genai: persist edited image: %w", err)
	}
	log.Info().Str("mime_type", outMIME).Int("bytes", len(blob)).Msg("genai: image edited")
	return path, nil
}

func (c *Client) upload(ctx context.Context, data []byte, mimeType, displayName string) (*geminiFile, error) {
	endpoint := fmt.Sprintf("%s/upload/%s/files", c.baseURL, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create upload request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("X-Goog-Upload-File-Name", displayName)
	req.Header.Set("Content-Type", mimeType)

	var out uploadResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.File.Name == "" {
		return nil, errors.New("upload response missing file name")
	}
	return &out.File, nil
}

// waitUntilProcessed polls the file on a fixed interval while it is PROCESSING.
func (c *Client) waitUntilProcessed(ctx context.Context, file *geminiFile) (*geminiFile, error) {
	current := file
	first := true
	poll := func() error {
		if !first || current.State == "" {
			next, err := c.getFile(ctx, current.Name)
			if err != nil {
				return backoff.Permanent(err)
			}
			current = next
		}
		first = false
		switch current.State {
		case fileStateProcessing:
			return errors.New("file still processing")
		case fileStateFailed:
			msg := "processing failed"
			if current.Error != nil && current.Error.Message != "" {
				msg = current.Error.Message
			}
			return backoff.Permanent(fmt.Errorf("file %s: %s", current.Name, msg))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(c.pollInterval), ctx)
	if err := backoff.Retry(poll, policy); err != nil {
		return nil, err
	}
	if current.URI == "" {
		return nil, fmt.Errorf("file %s has no uri", current.Name)
	}
	return current, nil
}

func (c *Client) getFile(ctx context.Context, name string) (*geminiFile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resourceURL(name), nil)
	if err != nil {
		return nil, fmt.Errorf("create status request: %w", err)
	}
	c.authorize(req)
	var file geminiFile
	if err := c.do(req, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

func (c *Client) deleteFile(ctx context.Context, name string, log infra.Logger) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.resourceURL(name), nil)
	if err != nil {
		log.Warn().Err(err).Str("file", name).Msg("genai: failed to delete uploaded file")
		return
	}
	c.authorize(req)
	if err := c.do(req, nil); err != nil {
		log.Warn().Err(err).Str("file", name).Msg("genai: failed to delete uploaded file")
		return
	}
	log.Debug().Str("file", name).Msg("genai: uploaded file deleted")
}

func (c *Client) generateEdit(ctx context.Context, file *geminiFile, mimeType, prompt string) ([]byte, string, error) {
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{FileData: &geminiFileData{MimeType: firstNonEmpty(file.MimeType, mimeType), FileURI: file.URI}},
				{Text: strings.TrimSpace(prompt)},
			},
		}},
		GenerationConfig: &geminiGenerationConfig{ResponseModalities: []string{"IMAGE", "TEXT"}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, "", fmt.Errorf("marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, url.PathEscape(c.model))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	var response geminiGenerateContentResponse
	if err := c.do(req, &response); err != nil {
		return nil, "", err
	}
	return extractInlineImage(response)
}

// extractInlineImage returns the first inline binary part of the response.
func extractInlineImage(response geminiGenerateContentResponse) ([]byte, string, error) {
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return nil, "", fmt.Errorf("decode inline data: %w", err)
			}
			mimeType := strings.TrimSpace(part.InlineData.MimeType)
			if mimeType == "" {
				mimeType = mimetype.Detect(data).String()
			}
			return data, mimeType, nil
		}
	}
	return nil, "", errors.New("response missing inline image data")
}

func (c *Client) resourceURL(name string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, strings.TrimLeft(name, "/"))
}

func (c *Client) authorize(req *http.Request) {
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if len(data) > 0 {
			return fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("gemini status %d", resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv    string `envconfig:"APP_ENV" default:"development"`
	Port      string `envconfig:"PORT" default:"5000"`
	StaticDir string `envconfig:"STATIC_DIR" default:"public"`
	WorkDir   string `envconfig:"WORK_DIR"`

	GeminiAPIKey       string        `envconfig:"GEMINI_API_KEY"`
	GoogleAPIKey       string        `envconfig:"GOOGLE_API_KEY"`
	GeminiBaseURL      string        `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com"`
	GeminiAPIVersion   string        `envconfig:"GEMINI_API_VERSION" default:"v1beta"`
	GeminiModel        string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash-image"`
	GeminiPollInterval time.Duration `envconfig:"GEMINI_POLL_INTERVAL" default:"2s"`
	GeminiHTTPTimeout  time.Duration `envconfig:"GEMINI_HTTP_TIMEOUT" default:"120s"`

	NgrokAuthToken string `envconfig:"NGROK_AUTH_TOKEN"`

	Python           string `envconfig:"ANIMATE_PYTHON" default:"python"`
	ToolchainDir     string `envconfig:"ANIMATE_TOOLCHAIN_DIR" default:"Wan2.2"`
	PreprocessScript string `envconfig:"ANIMATE_PREPROCESS_SCRIPT" default:"wan/modules/animate/preprocess/preprocess_data.py"`
	GenerateScript   string `envconfig:"ANIMATE_GENERATE_SCRIPT" default:"generate.py"`
	CheckpointDir    string `envconfig:"ANIMATE_CHECKPOINT_DIR" default:"Wan2.2-Animate-14B"`
	ResultFilename   string `envconfig:"ANIMATE_RESULT_FILENAME" default:"output.mp4"`

	RunJournalDSN      string   `envconfig:"RUN_JOURNAL_DSN"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	MaxRequestBytes    int64    `envconfig:"MAX_REQUEST_BYTES" default:"1073741824"`

	HTTPReadTimeoutSeconds  int `envconfig:"HTTP_READ_TIMEOUT_SECONDS" default:"120"`
	HTTPWriteTimeoutSeconds int `envconfig:"HTTP_WRITE_TIMEOUT_SECONDS" default:"0"`
	HTTPIdleTimeoutSeconds  int `envconfig:"HTTP_IDLE_TIMEOUT_SECONDS" default:"120"`
	ShutdownTimeoutSeconds  int `envconfig:"SHUTDOWN_TIMEOUT_SECONDS" default:"30"`
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// Missing credentials are not an error here; they surface when a request needs them.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg.GeminiAPIKey = strings.TrimSpace(cfg.GeminiAPIKey)
	if cfg.GeminiAPIKey == "" {
		cfg.GeminiAPIKey = strings.TrimSpace(cfg.GoogleAPIKey)
	}
	if strings.TrimSpace(cfg.WorkDir) == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "bananimate-sessions")
	}
	if strings.TrimSpace(cfg.ResultFilename) == "" {
		return nil, fmt.Errorf("ANIMATE_RESULT_FILENAME must not be empty")
	}
	if cfg.GeminiPollInterval <= 0 {
		return nil, fmt.Errorf("GEMINI_POLL_INTERVAL must be positive")
	}

	return &cfg, nil
}

func (c *Config) HTTPReadTimeout() time.Duration {
	return time.Duration(c.HTTPReadTimeoutSeconds) * time.Second
}

// HTTPWriteTimeout is zero by default: generation responses take minutes.
func (c *Config) HTTPWriteTimeout() time.Duration {
	return time.Duration(c.HTTPWriteTimeoutSeconds) * time.Second
}

func (c *Config) HTTPIdleTimeout() time.Duration {
	return time.Duration(c.HTTPIdleTimeoutSeconds) * time.Second
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

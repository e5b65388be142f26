package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/adapter/repo"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/animate"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/http/handlers"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/http/httpapi"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/infra"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/pipeline"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/providers/genai"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/storage"
)

const bannerRule = "=============================================================================="

func main() {
	// optional .env
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()

	store, err := storage.NewSessionStore(cfg.WorkDir, logger.With().Str("component", "storage").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare work directory")
	}

	editLogger := logger.With().Str("component", "genai").Logger()
	editor, err := genai.NewClient(genai.Options{
		APIKey:       cfg.GeminiAPIKey,
		BaseURL:      cfg.GeminiBaseURL,
		APIVersion:   cfg.GeminiAPIVersion,
		Model:        cfg.GeminiModel,
		PollInterval: cfg.GeminiPollInterval,
		HTTPClient:   &http.Client{Timeout: cfg.GeminiHTTPTimeout},
		Logger:       &editLogger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure image edit client")
	}
	if !editor.HasCredentials() {
		logger.Warn().Msg("GEMINI_API_KEY environment variable not set. Image editing will fail until it is provided.")
	}
	if _, err := os.Stat(filepath.Join(cfg.StaticDir, "index.html")); err != nil {
		logger.Warn().Str("static_dir", cfg.StaticDir).Msg("frontend bundle not found; GET / will return 404 until the web app is built into STATIC_DIR")
	}

	runs, closeRuns, err := repo.Open(ctx, cfg.RunJournalDSN, logger.With().Str("component", "journal").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open run journal")
	}
	defer closeRuns()

	service := animate.NewService(animate.Options{
		Store:  store,
		Editor: editor,
		Runner: pipeline.NewExecRunner(logger.With().Str("component", "pipeline").Logger()),
		Toolchain: pipeline.Toolchain{
			Python:           cfg.Python,
			Dir:              cfg.ToolchainDir,
			PreprocessScript: cfg.PreprocessScript,
			GenerateScript:   cfg.GenerateScript,
			CheckpointDir:    cfg.CheckpointDir,
		},
		Locator: pipeline.DirLocator{Filename: cfg.ResultFilename},
		Runs:    runs,
		Logger:  logger.With().Str("component", "animate").Logger(),
	})

	app := &handlers.App{
		Generator:       service,
		RunJournal:      runs,
		Logger:          logger,
		StaticDir:       cfg.StaticDir,
		MaxRequestBytes: cfg.MaxRequestBytes,
	}
	router := httpapi.NewRouter(app, logger, cfg.CORSAllowedOrigins)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("work_dir", store.Root()).
			Str("model", editor.Model()).
			Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	tunnel, err := infra.OpenTunnel(ctx, cfg.NgrokAuthToken)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("failed to establish ngrok tunnel")
	case tunnel == nil:
		logger.Warn().Msg("NGROK_AUTH_TOKEN environment variable not set. Serving on the local URL only.")
	default:
		go func() {
			if err := server.Serve(tunnel); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("tunnel listener stopped")
			}
		}()
	}

	if tunnel != nil {
		printBanner(logger, "Click this Public URL to open it: "+tunnel.URL())
	} else {
		printBanner(logger, "Open the app via the local URL: http://127.0.0.1:"+cfg.Port)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if tunnel != nil {
		// Shutdown already closed the listener; this ends the ngrok session.
		if err := tunnel.Close(); err != nil {
			logger.Debug().Err(err).Msg("tunnel close")
		}
	}
	logger.Info().Msg("server stopped")
}

func printBanner(logger infra.Logger, line string) {
	logger.Info().Msg(bannerRule)
	logger.Info().Msg("Your all-in-one AI Video App is running!")
	logger.Info().Msg(line)
	logger.Info().Msg(bannerRule)
}

// Package animate runs one generation request through the session-scoped
// pipeline: persist inputs, edit the reference image, preprocess, generate,
// locate the result. The session directory is removed on every exit path.
package animate

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/domain"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/pipeline"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/providers/genai"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/storage"
)

// ResultMIMEType is the content type of every generated clip.
const ResultMIMEType = "video/mp4"

const (
	stageEdit           = "edit"
	preprocessDirName   = "process_results"
	generateRootDirName = "outputs"
)

// ImageEditor applies a text edit to an image on disk and returns the path of
// the edited copy.
type ImageEditor interface {
	EditImage(ctx context.Context, req genai.EditRequest) (string, error)
}

// ResultLocator finds the final clip given the generate stage's output root.
type ResultLocator interface {
	Locate(root string) (string, error)
}

// Request is a decoded, validated generation request.
type Request struct {
	RequestID   string
	Image       []byte
	ImageMIME   string
	EditPrompt  string
	Video       []byte
	VideoMIME   string
	ScenePrompt string
	Mode        pipeline.Mode
}

// Result is the generated clip.
type Result struct {
	SessionID string
	Video     []byte
	MIMEType  string
}

// Service wires the artifact store, the edit client and the pipeline runner.
type Service struct {
	store     *storage.SessionStore
	editor    ImageEditor
	runner    pipeline.Runner
	toolchain pipeline.Toolchain
	locator   ResultLocator
	runs      domain.RunRepository
	logger    zerolog.Logger
}

// Options collects Service dependencies. Runs may be nil.
type Options struct {
	Store     *storage.SessionStore
	Editor    ImageEditor
	Runner    pipeline.Runner
	Toolchain pipeline.Toolchain
	Locator   ResultLocator
	Runs      domain.RunRepository
	Logger    zerolog.Logger
}

// NewService builds a Service from opts.
func NewService(opts Options) *Service {
	return &Service{
		store:     opts.Store,
		editor:    opts.Editor,
		runner:    opts.Runner,
		toolchain: opts.Toolchain,
		locator:   opts.Locator,
		runs:      opts.Runs,
		logger:    opts.Logger,
	}
}

// Generate executes the full pipeline synchronously. Stages are never
// retried; the first failure ends the request.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	sess, err := s.store.Create()
	if err != nil {
		return nil, err
	}
	sessionsInFlight.Inc()
	log := s.logger.With().
		Str("request_id", req.RequestID).
		Str("session_id", sess.ID).
		Str("mode", string(req.Mode)).
		Logger()

	var result *Result
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("animate: panic: %v", p)
			defer panic(p)
		}
		s.store.Cleanup(sess)
		sessionsInFlight.Dec()
		generationDuration.Observe(time.Since(start).Seconds())
		generationsTotal.WithLabelValues(outcome(err)).Inc()
		s.record(ctx, sess.ID, req, start, err)
	}()

	log.Info().
		Str("edit_prompt", req.EditPrompt).
		Str("scene_prompt", req.ScenePrompt).
		Msg("animate: generation started")

	result, err = s.run(ctx, sess, req, log)
	if err != nil {
		log.Error().Err(err).Str("kind", domain.ErrorKind(err)).Msg("animate: generation failed")
		return nil, err
	}
	log.Info().Int("bytes", len(result.Video)).Dur("elapsed", time.Since(start)).Msg("animate: generation finished")
	return result, nil
}

func (s *Service) run(ctx context.Context, sess *storage.Session, req Request, log zerolog.Logger) (*Result, error) {
	imagePath, err := s.store.WriteArtifact(sess, "original_image", req.ImageMIME, ".bin", req.Image)
	if err != nil {
		return nil, err
	}
	videoPath, err := s.store.WriteArtifact(sess, "motion_video", req.VideoMIME, ".mp4", req.Video)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("image", imagePath).Str("video", videoPath).Msg("animate: inputs saved")

	editStart := time.Now()
	editedPath, err := s.editor.EditImage(ctx, genai.EditRequest{
		ImagePath: imagePath,
		MIMEType:  req.ImageMIME,
		Prompt:    req.EditPrompt,
		OutputDir: sess.Dir,
		RequestID: req.RequestID,
	})
	observeStage(stageEdit, editStart, err)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("edited_image", editedPath).Msg("animate: image edited")

	preprocessDir, err := s.store.StageDir(sess, preprocessDirName)
	if err != nil {
		return nil, err
	}
	if err := s.runStage(ctx, sess, preprocessDir,
		s.toolchain.Preprocess(req.Mode, videoPath, editedPath, preprocessDir)); err != nil {
		return nil, err
	}

	outputRoot, err := s.store.StageDir(sess, generateRootDirName)
	if err != nil {
		return nil, err
	}
	if err := s.runStage(ctx, sess, outputRoot,
		s.toolchain.Generate(req.Mode, preprocessDir, req.ScenePrompt, outputRoot)); err != nil {
		return nil, err
	}

	resultPath, err := s.locator.Locate(outputRoot)
	if err != nil {
		return nil, err
	}
	video, err := os.ReadFile(resultPath)
	if err != nil {
		return nil, fmt.Errorf("read generated video: %w", err)
	}
	log.Debug().Str("result", resultPath).Msg("animate: result located")

	return &Result{SessionID: sess.ID, Video: video, MIMEType: ResultMIMEType}, nil
}

func (s *Service) runStage(ctx context.Context, sess *storage.Session, outDir string, inv pipeline.Invocation) error {
	start := time.Now()
	_, err := s.runner.Run(ctx, inv)
	observeStage(inv.Stage, start, err)
	if err != nil {
		return err
	}
	sess.Stages = append(sess.Stages, storage.StageOutput{Stage: inv.Stage, Dir: outDir})
	return nil
}

func (s *Service) record(ctx context.Context, sessionID string, req Request, start time.Time, err error) {
	if s.runs == nil {
		return
	}
	run := &domain.Run{
		ID:          sessionID,
		RequestID:   req.RequestID,
		Mode:        string(req.Mode),
		EditPrompt:  req.EditPrompt,
		ScenePrompt: req.ScenePrompt,
		Status:      domain.RunStatusSucceeded,
		StartedAt:   start.UTC(),
		Duration:    time.Since(start),
	}
	if err != nil {
		run.Status = domain.RunStatusFailed
		run.ErrorKind = domain.ErrorKind(err)
		run.ErrorMessage = err.Error()
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if recErr := s.runs.Record(recordCtx, run); recErr != nil {
		s.logger.Warn().Err(recErr).Str("session_id", sessionID).Msg("animate: failed to record run")
	}
}

func observeStage(stage string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	stageDuration.WithLabelValues(stage, status).Observe(time.Since(start).Seconds())
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return domain.ErrorKind(err)
}

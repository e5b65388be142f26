package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/domain"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

type runView struct {
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id,omitempty"`
	Mode         string    `json:"mode"`
	EditPrompt   string    `json:"edit_prompt"`
	ScenePrompt  string    `json:"scene_prompt"`
	Status       string    `json:"status"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	DurationMS   int64     `json:"duration_ms"`
}

func newRunView(run domain.Run) runView {
	return runView{
		ID:           run.ID,
		RequestID:    run.RequestID,
		Mode:         run.Mode,
		EditPrompt:   run.EditPrompt,
		ScenePrompt:  run.ScenePrompt,
		Status:       string(run.Status),
		ErrorKind:    run.ErrorKind,
		ErrorMessage: run.ErrorMessage,
		StartedAt:    run.StartedAt,
		DurationMS:   run.Duration.Milliseconds(),
	}
}

const msgJournalDisabled = "Run journal is not configured."

// Runs lists the most recent generation runs, newest first. ?status=failed
// (or succeeded) narrows the list before the limit applies.
func (a *App) Runs(w http.ResponseWriter, r *http.Request) {
	if a.RunJournal == nil {
		a.fail(w, http.StatusServiceUnavailable, msgJournalDisabled)
		return
	}

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			a.fail(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}
	status, err := domain.ParseRunStatus(r.URL.Query().Get("status"))
	if err != nil {
		a.fail(w, http.StatusBadRequest, "status must be succeeded or failed")
		return
	}

	runs, err := a.RunJournal.ListRecent(r.Context(), limit, status)
	if err != nil {
		a.Logger.Error().Err(err).Msg("list runs")
		a.failErr(w, err)
		return
	}

	items := make([]runView, 0, len(runs))
	for _, run := range runs {
		items = append(items, newRunView(run))
	}
	a.json(w, http.StatusOK, map[string]any{"status": "ok", "items": items})
}

// Run returns one journal entry by session id.
func (a *App) Run(w http.ResponseWriter, r *http.Request) {
	if a.RunJournal == nil {
		a.fail(w, http.StatusServiceUnavailable, msgJournalDisabled)
		return
	}

	run, err := a.RunJournal.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		a.fail(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err != nil {
		a.Logger.Error().Err(err).Msg("get run")
		a.failErr(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"status": "ok", "run": newRunView(*run)})
}

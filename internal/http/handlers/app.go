package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/animate"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/domain"
)

// Generator runs one generation request to completion.
type Generator interface {
	Generate(ctx context.Context, req animate.Request) (*animate.Result, error)
}

// App holds the dependencies shared by every handler. RunJournal may be nil when
// the run journal is disabled.
type App struct {
	Generator       Generator
	RunJournal      domain.RunRepository
	Logger          zerolog.Logger
	StaticDir       string
	MaxRequestBytes int64
}

type errorBody struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.Logger.Warn().Err(err).Msg("write response body")
	}
}

func (a *App) fail(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, errorBody{Status: "error", Error: msg})
}

// failErr maps err onto the error taxonomy and writes it.
func (a *App) failErr(w http.ResponseWriter, err error) {
	a.fail(w, statusFor(err), messageFor(err))
}

func statusFor(err error) int {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func messageFor(err error) string {
	if domain.ErrorKind(err) == "internal" {
		return "internal error: " + err.Error()
	}
	return err.Error()
}

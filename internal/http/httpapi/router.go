package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/http/handlers"
	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/middleware"
)

// NewRouter mounts the API, the metrics endpoint and the static frontend.
func NewRouter(app *handlers.App, logger zerolog.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(logger),
		app.Recover,
		middleware.CORS(allowedOrigins),
	)

	r.Get("/healthz", app.Health)
	r.Post("/generate-video", app.GenerateVideo)
	r.Get("/runs", app.Runs)
	r.Get("/runs/{id}", app.Run)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", app.Index)
	r.Get("/*", app.Static)
	r.NotFound(app.NotFound)
	r.MethodNotAllowed(app.MethodNotAllowed)

	return r
}

package handlers

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/ZHO-ZHO-ZHO/BananAnimate/internal/middleware"
)

// Recover turns a panic below it into a 500 with the usual error body.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func (a *App) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if p == http.ErrAbortHandler {
				panic(p)
			}
			a.Logger.Error().
				Str("request_id", middleware.RequestIDFromContext(r.Context())).
				Str("panic", fmt.Sprint(p)).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic")
			a.fail(w, http.StatusInternalServerError, fmt.Sprintf("internal error: %v", p))
		}()
		next.ServeHTTP(w, r)
	})
}

// MethodNotAllowed answers known paths hit with an unsupported method.
func (a *App) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	a.fail(w, http.StatusMethodNotAllowed, "Method not allowed.")
}

// Package router is the engine's thin operational HTTP surface. The product
// API lives elsewhere; this process only answers health, readiness and job
// introspection probes.
package router

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"

	"github.com/shandysiswandi/penagih/internal/pkg/instrument"
	"github.com/shandysiswandi/penagih/internal/pkg/stacktrace"
	"github.com/shandysiswandi/penagih/internal/pkg/uid"
)

// Handler produces a JSON payload or an error for one probe endpoint.
type Handler func(r *http.Request) (any, error)

// Config holds dependencies required to build a Router.
type Config struct {
	// UUID generates request correlation IDs.
	UUID uid.StringID
	// AllowedOrigins configures CORS; empty means same-origin only.
	AllowedOrigins []string
}

// Router wraps httprouter with the probe middleware chain.
type Router struct {
	hr   *httprouter.Router
	cors *cors.Cors
	uuid uid.StringID
}

// NewRouter builds the operational router.
func NewRouter(cfg Config) *Router {
	hr := &httprouter.Router{
		RedirectTrailingSlash:  true,
		HandleMethodNotAllowed: true,
		HandleOPTIONS:          true,
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "endpoint not found"})
		}),
		MethodNotAllowed: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"message": "method not allowed"})
		}),
	}

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	})

	return &Router{hr: hr, cors: c, uuid: cfg.UUID}
}

// GET registers a probe endpoint.
func (rt *Router) GET(path string, h Handler) {
	rt.hr.GET(path, func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		payload, err := h(r)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "ok", "data": payload})
	})
}

// ServeHTTP implements http.Handler with correlation id and panic recovery
// around the route table.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rvr := recover(); rvr != nil {
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}

			paths := stacktrace.InternalPaths(debug.Stack())
			if len(paths) == 0 {
				slog.ErrorContext(r.Context(), "panic on probe endpoint", "because", rvr, "stack", string(debug.Stack()))
			} else {
				slog.ErrorContext(r.Context(), "panic on probe endpoint", "because", rvr, "stack", paths)
			}

			writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
		}
	}()

	cid := r.Header.Get("X-Correlation-ID")
	if cid == "" {
		cid = rt.uuid.Generate()
	}
	w.Header().Set("X-Correlation-ID", cid)
	r = r.WithContext(instrument.WithCorrelationID(r.Context(), cid))

	rt.cors.Handler(rt.hr).ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Package api exposes the calculator over HTTP. Every request carries its own preset,
// so the server keeps no session state besides the preset store.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/artycalc/artycalc/internal/ballistics"
	"github.com/artycalc/artycalc/internal/correction"
	"github.com/artycalc/artycalc/internal/scene"
	"github.com/artycalc/artycalc/internal/storage"
	"github.com/artycalc/artycalc/pkg/core"
	"github.com/gorilla/mux"
)

// maxBodyBytes caps preset request bodies.
const maxBodyBytes = 1 << 20

// Dependencies holds what the HTTP handlers need. Backend may be nil, in which case
// the preset routes answer 503.
type Dependencies struct {
	Backend storage.Backend
	Logger  *slog.Logger
	// Margin is the viewport margin used by /api/solve.
	Margin float64
}

// Server holds the HTTP handlers
type Server struct {
	deps Dependencies
}

// SolveResponse is the body of POST /api/solve.
type SolveResponse struct {
	Scene    scene.Scene     `json:"scene"`
	Viewport *scene.Viewport `json:"viewport,omitempty"`
}

// CalibrateResponse is the body of POST /api/calibrate.
type CalibrateResponse struct {
	Preset     core.Snapshot     `json:"preset"`
	Correction correction.Output `json:"correction"`
	Changed    bool              `json:"changed"`
}

// NewServer creates the handler set.
func NewServer(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Server{deps: deps}
}

// Router builds the mux router with all routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recovery)
	r.Use(s.logRequests)

	r.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	// registered on the root router so a method mismatch answers 405, not 404
	r.HandleFunc("/api/guns", s.Guns).Methods(http.MethodGet)
	r.HandleFunc("/api/solve", s.Solve).Methods(http.MethodPost)
	r.HandleFunc("/api/calibrate", s.Calibrate).Methods(http.MethodPost)
	r.HandleFunc("/api/presets", s.ListPresets).Methods(http.MethodGet)
	r.HandleFunc("/api/presets/{name}", s.GetPreset).Methods(http.MethodGet)
	r.HandleFunc("/api/presets/{name}", s.PutPreset).Methods(http.MethodPut)
	r.HandleFunc("/api/presets/{name}", s.DeletePreset).Methods(http.MethodDelete)
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// HTTPServer wraps the router in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func (s *Server) Guns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ballistics.Models())
}

func (s *Server) Solve(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.decodePreset(w, r)
	if !ok {
		return
	}
	resp := SolveResponse{Scene: scene.Recompute(snap)}

	q := r.URL.Query()
	if q.Has("width") || q.Has("height") {
		width, errW := strconv.ParseFloat(q.Get("width"), 64)
		height, errH := strconv.ParseFloat(q.Get("height"), 64)
		if errW != nil || errH != nil || width <= 0 || height <= 0 {
			writeError(w, http.StatusBadRequest, "width and height must be positive numbers")
			return
		}
		vp := scene.Fit(resp.Scene, width, height, s.deps.Margin)
		resp.Viewport = &vp
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) Calibrate(w http.ResponseWriter, r *http.Request) {
	gun, err := strconv.Atoi(r.URL.Query().Get("gun"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "gun must be a 1-based index")
		return
	}
	snap, ok := s.decodePreset(w, r)
	if !ok {
		return
	}
	out, changed, err := scene.Calibrate(snap, gun)
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CalibrateResponse{Preset: *snap, Correction: out, Changed: changed})
}

func (s *Server) ListPresets(w http.ResponseWriter, r *http.Request) {
	if !s.hasBackend(w) {
		return
	}
	list, err := s.deps.Backend.List(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}
	if list == nil {
		list = []storage.PresetInfo{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) GetPreset(w http.ResponseWriter, r *http.Request) {
	if !s.hasBackend(w) {
		return
	}
	p, err := s.deps.Backend.Load(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PutPreset stores the body under the name from the path.
func (s *Server) PutPreset(w http.ResponseWriter, r *http.Request) {
	if !s.hasBackend(w) {
		return
	}
	snap, ok := s.decodePreset(w, r)
	if !ok {
		return
	}
	snap.Name = mux.Vars(r)["name"]
	if err := s.deps.Backend.Save(r.Context(), *snap); err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, *snap)
}

func (s *Server) DeletePreset(w http.ResponseWriter, r *http.Request) {
	if !s.hasBackend(w) {
		return
	}
	if err := s.deps.Backend.Delete(r.Context(), mux.Vars(r)["name"]); err != nil {
		s.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodePreset reads a preset body and imports it into a fresh snapshot, so counts
// are clamped to the minimums and azimuths are normalized.
func (s *Server) decodePreset(w http.ResponseWriter, r *http.Request) (*core.Snapshot, bool) {
	var p core.Snapshot
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid preset body")
		return nil, false
	}
	snap := core.NewSnapshot()
	snap.Import(p)
	return snap, true
}

func (s *Server) hasBackend(w http.ResponseWriter) bool {
	if s.deps.Backend == nil {
		writeError(w, http.StatusServiceUnavailable, "preset storage not configured")
		return false
	}
	return true
}

func (s *Server) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrPresetNotFound):
		writeError(w, http.StatusNotFound, "preset not found")
	case errors.Is(err, storage.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "invalid preset name")
	case errors.Is(err, core.ErrIndexOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.deps.Logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.deps.Logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.deps.Logger.Error("panic in handler", "path", r.URL.Path, "error", fmt.Sprint(rec))
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeJSON encodes before writing the status so an unencodable value becomes a 500.
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(map[string]string{"error": "response not encodable"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

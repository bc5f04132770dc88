// Package server exposes the MemLens pipeline over HTTP.
//
// The server is an external collaborator of the engine: it feeds snapshots
// in (from request bodies or the snapshot store) and serves renderable
// layout collections out. It adds no engine semantics of its own.
//
// # Endpoints
//
//	GET    /healthz                     liveness probe
//	POST   /api/layout                  compute a layout for an inline snapshot
//	GET    /api/snapshots               list stored snapshot IDs
//	PUT    /api/snapshots               store a snapshot, returns its ID
//	GET    /api/snapshots/{id}          fetch a stored snapshot
//	DELETE /api/snapshots/{id}          delete a stored snapshot
//	GET    /api/snapshots/{id}/layout   compute a layout for a stored snapshot
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/memlens/memlens/pkg/errors"
	"github.com/memlens/memlens/pkg/graph"
	"github.com/memlens/memlens/pkg/pipeline"
	"github.com/memlens/memlens/pkg/store"
)

// maxBodyBytes caps request bodies; snapshots beyond this are rejected.
const maxBodyBytes = 32 << 20

// Server routes HTTP requests into the pipeline.
type Server struct {
	runner *pipeline.Runner
	store  store.Store // may be nil; snapshot endpoints then return 503
	logger *log.Logger
}

// New creates a server. The store may be nil when only the inline layout
// endpoint is needed.
func New(runner *pipeline.Runner, st store.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{runner: runner, store: st, logger: logger}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Route("/snapshots", func(r chi.Router) {
			r.Get("/", s.handleListSnapshots)
			r.Put("/", s.handlePutSnapshot)
			r.Get("/{id}", s.handleGetSnapshot)
			r.Delete("/{id}", s.handleDeleteSnapshot)
			r.Get("/{id}/layout", s.handleSnapshotLayout)
		})
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// layoutRequest is the body of POST /api/layout.
type layoutRequest struct {
	Snapshot *graph.Snapshot  `json:"snapshot"`
	Options  pipeline.Options `json:"options"`
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if req.Snapshot == nil {
		s.writeError(w, apperrors.New(apperrors.ErrCodeInvalidSnapshot, "request body must include a snapshot"))
		return
	}
	s.computeAndWrite(w, r, req.Snapshot, req.Options)
}

func (s *Server) handleSnapshotLayout(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, apperrors.New(apperrors.ErrCodeUnsupported, "no snapshot store configured"))
		return
	}
	id := chi.URLParam(r, "id")
	snap, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, apperrors.New(apperrors.ErrCodeSnapshotNotFound, "snapshot %s not found", id))
		return
	}
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeStore, err, "fetch snapshot %s", id))
		return
	}
	s.computeAndWrite(w, r, snap, optionsFromQuery(r))
}

// computeAndWrite runs the pipeline and writes the layout response. An empty
// snapshot yields an empty-state payload, never an error.
func (s *Server) computeAndWrite(w http.ResponseWriter, r *http.Request, snap *graph.Snapshot, opts pipeline.Options) {
	opts.Logger = s.logger
	result, err := s.runner.Execute(r.Context(), snap, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := map[string]any{
		"snapshot_hash": result.SnapshotHash,
		"layout":        result.Layout,
		"empty":         result.Layout == nil,
	}
	if result.Tree != nil {
		resp["orphans"] = result.Tree.Orphans
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, apperrors.New(apperrors.ErrCodeUnsupported, "no snapshot store configured"))
		return
	}
	ids, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeStore, err, "list snapshots"))
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids})
}

func (s *Server) handlePutSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, apperrors.New(apperrors.ErrCodeUnsupported, "no snapshot store configured"))
		return
	}
	var snap graph.Snapshot
	if err := decodeBody(r, &snap); err != nil {
		s.writeError(w, err)
		return
	}
	id, err := s.store.Put(r.Context(), &snap)
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeStore, err, "store snapshot"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, apperrors.New(apperrors.ErrCodeUnsupported, "no snapshot store configured"))
		return
	}
	id := chi.URLParam(r, "id")
	snap, err := s.store.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, apperrors.New(apperrors.ErrCodeSnapshotNotFound, "snapshot %s not found", id))
		return
	}
	if err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeStore, err, "fetch snapshot %s", id))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, apperrors.New(apperrors.ErrCodeUnsupported, "no snapshot store configured"))
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, apperrors.Wrap(apperrors.ErrCodeStore, err, "delete snapshot %s", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Helpers
// =============================================================================

// optionsFromQuery parses pipeline options from URL query parameters for the
// GET layout endpoint.
func optionsFromQuery(r *http.Request) pipeline.Options {
	q := r.URL.Query()
	opts := pipeline.Options{
		RootID:     q.Get("root"),
		SelectedID: q.Get("selected"),
		ShowLabels: q.Get("labels") == "true",
	}
	if v, err := strconv.Atoi(q.Get("max_depth")); err == nil && v > 0 {
		opts.MaxDepth = v
	}
	if v, err := strconv.Atoi(q.Get("max_children")); err == nil && v > 0 {
		opts.MaxChildren = v
	}
	if expanded := q.Get("expanded"); expanded != "" {
		opts.Expanded = strings.Split(expanded, ",")
	}
	return opts
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps structured error codes onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeInvalidSnapshot, apperrors.ErrCodeInvalidOption:
		status = http.StatusBadRequest
	case apperrors.ErrCodeNotFound, apperrors.ErrCodeSnapshotNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeUnsupported:
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    string(apperrors.GetCode(err)),
			"message": apperrors.UserMessage(err),
		},
	})
}

// logRequests logs one line per request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Package httpapi exposes the data engine over a read-mostly JSON API.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"dorkroom/internal/core"
	"dorkroom/pkg/domain"
)

const maxAdmissionBody = 1 << 20

// Handler serves the HTTP API for a Service.
type Handler struct {
	svc      *core.Service
	logger   zerolog.Logger
	gatherer prometheus.Gatherer
	router   chi.Router
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option { return func(h *Handler) { h.logger = l } }

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) {
		if g != nil {
			h.gatherer = g
		}
	}
}

// NewHandler constructs the API router.
func NewHandler(svc *core.Service, opts ...Option) *Handler {
	h := &Handler{svc: svc, logger: zerolog.Nop(), gatherer: prometheus.DefaultGatherer}
	for _, opt := range opts {
		opt(h)
	}
	h.router = h.routes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.logRequests)
	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/films", h.handleListFilms)
		r.Get("/films/search", h.handleSearchFilms)
		r.Get("/films/{id}", h.handleGetFilm)
		r.Get("/films/{id}/combinations", h.handleFilmCombinations)

		r.Get("/developers", h.handleListDevelopers)
		r.Get("/developers/search", h.handleSearchDevelopers)
		r.Get("/developers/{id}", h.handleGetDeveloper)
		r.Get("/developers/{id}/combinations", h.handleDeveloperCombinations)

		r.Get("/combinations", h.handleListCombinations)
		r.Get("/combinations/search", h.handleSearchCombinations)
		r.Get("/combinations/{id}", h.handleGetCombination)

		r.Get("/formats", h.handleListFormats)
		r.Get("/formats/{id}", h.handleGetFormat)

		r.Get("/search", h.handleSearchAll)
		r.Post("/admissions/{kind}", h.handleAdmission)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (h *Handler) engine() *core.Engine { return h.svc.Engine() }

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	stats, err := h.engine().Stats()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "stats": stats})
}

func (h *Handler) handleListFilms(w http.ResponseWriter, r *http.Request) {
	films, err := h.engine().ListFilms(r.Context())
	h.respond(w, map[string]any{"films": films}, err)
}

func (h *Handler) handleSearchFilms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	color := domain.ColorType(q.Get("color_type"))
	if color != "" && !color.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid color_type %q", color))
		return
	}
	if fuzzy(r) {
		limit, ok := limitParam(w, r)
		if !ok {
			return
		}
		films, err := h.engine().FuzzySearchFilms(r.Context(), q.Get("q"), limit, color)
		h.respond(w, map[string]any{"films": films}, err)
		return
	}
	films, err := h.engine().SearchFilms(r.Context(), q.Get("q"), color)
	h.respond(w, map[string]any{"films": films}, err)
}

func (h *Handler) handleGetFilm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	film, found, err := h.engine().GetFilm(r.Context(), id)
	h.respondFound(w, domain.EntityFilm, id, map[string]any{"film": film}, found, err)
}

func (h *Handler) handleFilmCombinations(w http.ResponseWriter, r *http.Request) {
	combos, err := h.engine().CombinationsForFilm(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, map[string]any{"combinations": combos}, err)
}

func (h *Handler) handleListDevelopers(w http.ResponseWriter, r *http.Request) {
	devs, err := h.engine().ListDevelopers(r.Context())
	h.respond(w, map[string]any{"developers": devs}, err)
}

func (h *Handler) handleSearchDevelopers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if fuzzy(r) {
		limit, ok := limitParam(w, r)
		if !ok {
			return
		}
		devs, err := h.engine().FuzzySearchDevelopers(r.Context(), q, limit)
		h.respond(w, map[string]any{"developers": devs}, err)
		return
	}
	devs, err := h.engine().SearchDevelopers(r.Context(), q)
	h.respond(w, map[string]any{"developers": devs}, err)
}

func (h *Handler) handleGetDeveloper(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	dev, found, err := h.engine().GetDeveloper(r.Context(), id)
	h.respondFound(w, domain.EntityDeveloper, id, map[string]any{"developer": dev}, found, err)
}

func (h *Handler) handleDeveloperCombinations(w http.ResponseWriter, r *http.Request) {
	combos, err := h.engine().CombinationsForDeveloper(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, map[string]any{"combinations": combos}, err)
}

func (h *Handler) handleListCombinations(w http.ResponseWriter, r *http.Request) {
	combos, err := h.engine().ListCombinations(r.Context())
	h.respond(w, map[string]any{"combinations": combos}, err)
}

func (h *Handler) handleSearchCombinations(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	combos, err := h.engine().FuzzySearchCombinations(r.Context(), r.URL.Query().Get("q"), limit)
	h.respond(w, map[string]any{"combinations": combos}, err)
}

func (h *Handler) handleGetCombination(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.engine().ResolveCombination(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, resolved, err)
}

func (h *Handler) handleListFormats(w http.ResponseWriter, r *http.Request) {
	formats, err := h.engine().ListFormats(r.Context())
	h.respond(w, map[string]any{"formats": formats}, err)
}

func (h *Handler) handleGetFormat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	format, found, err := h.engine().GetFormat(r.Context(), id)
	h.respondFound(w, domain.EntityFormat, id, map[string]any{"format": format}, found, err)
}

func (h *Handler) handleSearchAll(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}
	results, err := h.engine().SearchAll(r.Context(), r.URL.Query().Get("q"), limit)
	h.respond(w, results, err)
}

type admissionRequest struct {
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}

func (h *Handler) handleAdmission(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseEntityKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	opts := core.AdmitOptions{}
	if opts.DryRun, err = boolParam(r, "dry_run"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.AcknowledgeWarnings, err = boolParam(r, "acknowledge_warnings"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req admissionRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxAdmissionBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid admission body: %v", err))
		return
	}

	res, err := h.svc.Admit(r.Context(), domain.Candidate{Kind: kind, ID: req.ID, Fields: req.Fields}, opts)
	var (
		rejection domain.RejectionError
		held      core.ErrHeld
	)
	switch {
	case err == nil:
		status := http.StatusOK
		if !opts.DryRun && res.Action == domain.ActionCreate {
			status = http.StatusCreated
		}
		writeJSON(w, status, res)
	case errors.As(err, &rejection):
		writeJSON(w, http.StatusUnprocessableEntity, res)
	case errors.As(err, &held):
		writeJSON(w, http.StatusConflict, res)
	default:
		h.writeEngineError(w, err)
	}
}

func (h *Handler) respond(w http.ResponseWriter, payload any, err error) {
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) respondFound(w http.ResponseWriter, kind domain.EntityKind, id string, payload any, found bool, err error) {
	if err == nil && !found {
		err = core.ErrNotFound{Entity: kind, ID: id}
	}
	h.respond(w, payload, err)
}

func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	var (
		notFound  core.ErrNotFound
		integrity domain.IntegrityError
	)
	switch {
	case errors.Is(err, core.ErrNotLoaded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &integrity):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error(), "violations": integrity.Violations})
	case errors.Is(err, core.ErrUnknownKind):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func fuzzy(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("fuzzy"))
	return v
}

func boolParam(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

func limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
		return 0, false
	}
	return n, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

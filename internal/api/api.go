package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kalambet/talentflow/internal/document"
	"github.com/kalambet/talentflow/internal/record"
	"github.com/kalambet/talentflow/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

const maxPageSize = 100

var validate = validator.New(validator.WithRequiredStructEnabled())

type Deps struct {
	Store  *storage.Store
	Token  string
	Logger *slog.Logger
}

// NewHandler returns the talentflow REST API. /health and /metrics are open;
// everything else requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", handleListJobs(deps))
			r.Post("/", handleCreateJob(deps))
			r.Get("/{id}", handleGetJob(deps))
			r.Patch("/{id}", handlePatchJob(deps))
			r.Post("/{id}/reorder", handleReorderJob(deps))
		})
		r.Route("/candidates", func(r chi.Router) {
			r.Get("/", handleListCandidates(deps))
			r.Post("/", handleCreateCandidate(deps))
			r.Get("/{id}", handleGetCandidate(deps))
			r.Patch("/{id}", handlePatchCandidate(deps))
			r.Post("/{id}/notes", handleAddNote(deps))
		})
		r.Route("/assessments/{jobId}", func(r chi.Router) {
			r.Get("/", handleGetAssessment(deps))
			r.Put("/", handlePutAssessment(deps))
			r.Post("/template", handleApplyTemplate(deps))
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

func validationError(w http.ResponseWriter, verr *document.ValidationError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error": map[string]any{
			"message":  verr.Error(),
			"type":     "validation_error",
			"problems": verr.Problems,
		},
	})
}

// storeError maps storage errors onto HTTP responses.
func storeError(w http.ResponseWriter, log *slog.Logger, what string, err error) {
	var verr *document.ValidationError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "%s not found", what)
	case errors.Is(err, storage.ErrConflict):
		httpError(w, http.StatusConflict, "conflict", "%v", err)
	case errors.As(err, &verr):
		validationError(w, verr)
	default:
		log.Error("storage error", "resource", what, "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "failed to access %s: %v", what, err)
	}
}

// decodeBody reads a JSON body into v and runs struct validation. It writes
// the error response and returns false on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request: %s", strings.Join(fields, ", "))
			return false
		}
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request: %v", err)
		return false
	}
	return true
}

// parseQuery reads the shared list parameters.
func parseQuery(r *http.Request) record.Query {
	v := r.URL.Query()
	return record.Query{
		Search:   strings.TrimSpace(v.Get("search")),
		Status:   record.JobStatus(v.Get("status")),
		Stage:    record.Stage(v.Get("stage")),
		JobID:    v.Get("jobId"),
		Page:     parseIntParam(r, "page", 1, 0),
		PageSize: parseIntParam(r, "pageSize", record.DefaultPageSize, maxPageSize),
	}.Normalize()
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

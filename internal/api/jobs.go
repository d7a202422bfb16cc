package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/talentflow/internal/record"
)

type reorderRequest struct {
	FromOrder *float64 `json:"fromOrder" validate:"required"`
	ToOrder   *float64 `json:"toOrder" validate:"required"`
}

func handleListJobs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := parseQuery(r)
		if q.Status != "" && q.Status != record.JobActive && q.Status != record.JobArchived {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown status %q", q.Status)
			return
		}
		page, err := deps.Store.ListJobs(q)
		if err != nil {
			storeError(w, deps.Logger, "jobs", err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func handleCreateJob(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req record.NewJob
		if !decodeBody(w, r, &req) {
			return
		}
		job, err := deps.Store.CreateJob(req)
		if err != nil {
			storeError(w, deps.Logger, "job", err)
			return
		}
		deps.Logger.Info("job created", "job_id", job.ID, "slug", job.Slug)
		writeJSON(w, http.StatusCreated, job)
	}
}

func handleGetJob(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := deps.Store.GetJob(chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, deps.Logger, "job", err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func handlePatchJob(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch record.JobPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		job, err := deps.Store.UpdateJob(chi.URLParam(r, "id"), patch)
		if err != nil {
			storeError(w, deps.Logger, "job", err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func handleReorderJob(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reorderRequest
		if !decodeBody(w, r, &req) {
			return
		}
		id := chi.URLParam(r, "id")
		if err := deps.Store.ReorderJob(id, *req.FromOrder, *req.ToOrder); err != nil {
			storeError(w, deps.Logger, "job", err)
			return
		}
		deps.Logger.Debug("job reordered", "job_id", id, "from", *req.FromOrder, "to", *req.ToOrder)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

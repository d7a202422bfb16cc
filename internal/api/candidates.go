package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/talentflow/internal/record"
)

type noteRequest struct {
	Text string `json:"text" validate:"required,max=10000"`
}

func handleListCandidates(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := parseQuery(r)
		if q.Stage != "" && !q.Stage.Valid() {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown stage %q", q.Stage)
			return
		}
		page, err := deps.Store.ListCandidates(q)
		if err != nil {
			storeError(w, deps.Logger, "candidates", err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func handleCreateCandidate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req record.NewCandidate
		if !decodeBody(w, r, &req) {
			return
		}
		if req.JobID != "" {
			if _, err := deps.Store.GetJob(req.JobID); err != nil {
				storeError(w, deps.Logger, "job", err)
				return
			}
		}
		c, err := deps.Store.CreateCandidate(req)
		if err != nil {
			storeError(w, deps.Logger, "candidate", err)
			return
		}
		deps.Logger.Info("candidate created", "candidate_id", c.ID, "job_id", c.JobID)
		writeJSON(w, http.StatusCreated, c)
	}
}

func handleGetCandidate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := deps.Store.GetCandidate(chi.URLParam(r, "id"))
		if err != nil {
			storeError(w, deps.Logger, "candidate", err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func handlePatchCandidate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch record.CandidatePatch
		if !decodeBody(w, r, &patch) {
			return
		}
		c, err := deps.Store.UpdateCandidate(chi.URLParam(r, "id"), patch)
		if err != nil {
			storeError(w, deps.Logger, "candidate", err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func handleAddNote(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req noteRequest
		if !decodeBody(w, r, &req) {
			return
		}
		n, err := deps.Store.AddNote(chi.URLParam(r, "id"), req.Text)
		if err != nil {
			storeError(w, deps.Logger, "candidate", err)
			return
		}
		writeJSON(w, http.StatusCreated, n)
	}
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/talentflow/internal/document"
	"github.com/kalambet/talentflow/internal/template"
)

type templateRequest struct {
	Template string `json:"template" validate:"required"`
}

func handleGetAssessment(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tree, err := deps.Store.GetAssessment(chi.URLParam(r, "jobId"))
		if err != nil {
			storeError(w, deps.Logger, "assessment", err)
			return
		}
		writeJSON(w, http.StatusOK, tree)
	}
}

func handlePutAssessment(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var tree document.Tree
		if err := decodeTree(r, &tree); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		jobID := chi.URLParam(r, "jobId")
		if err := deps.Store.SaveAssessment(jobID, tree); err != nil {
			storeError(w, deps.Logger, "job", err)
			return
		}
		deps.Logger.Info("assessment saved", "job_id", jobID, "sections", tree.Len(), "questions", tree.QuestionCount())
		writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
	}
}

func handleApplyTemplate(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req templateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		tree, err := template.Instantiate(req.Template, uuid.NewString)
		if errors.Is(err, template.ErrUnknownTemplate) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err != nil {
			storeError(w, deps.Logger, "template", err)
			return
		}
		jobID := chi.URLParam(r, "jobId")
		if err := deps.Store.SaveAssessment(jobID, tree); err != nil {
			storeError(w, deps.Logger, "job", err)
			return
		}
		writeJSON(w, http.StatusOK, tree)
	}
}

func decodeTree(r *http.Request, tree *document.Tree) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(tree)
}

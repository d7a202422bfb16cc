package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/talentflow/internal/document"
	"github.com/kalambet/talentflow/internal/record"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "secret", 0)
}

func writeError(w http.ResponseWriter, code int, typ, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": msg, "type": typ}})
}

func TestList_EncodesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "go", q.Get("search"))
		assert.Equal(t, "active", q.Get("status"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "10", q.Get("pageSize"))
		_ = json.NewEncoder(w).Encode(record.Page[record.Job]{
			Items: []record.Job{{ID: "j1", Title: "Go dev"}},
			Total: 11,
		})
	})

	page, err := c.Jobs().List(context.Background(), record.Query{Search: "go", Status: record.JobActive, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 11, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "j1", page.Items[0].ID)
}

func TestUpdate_SendsOnlyPatchedFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/jobs/j1", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"status": "archived"}, body)
		_ = json.NewEncoder(w).Encode(record.Job{ID: "j1", Status: record.JobArchived, Title: "canonical"})
	})

	status := record.JobArchived
	got, err := c.Jobs().Update(context.Background(), "j1", record.JobPatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "canonical", got.Title)
}

func TestReorder_Conflict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/jobs/j3/reorder", r.URL.Path)
		var body map[string]float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 3.0, body["fromOrder"])
		assert.Equal(t, 0.0, body["toOrder"])
		writeError(w, http.StatusConflict, "conflict", "order keys are stale")
	})

	err := c.Jobs().Reorder(context.Background(), "j3", 3, 0)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "stale")
}

func TestFetch_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "")
	})

	_, err := c.Assessments().Fetch(context.Background(), "j1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSave_ValidationError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid","type":"validation_error","problems":[{"field":"Sections[0].Title","rule":"required"}]}}`))
	})

	err := c.Assessments().Save(context.Background(), "j1", document.Tree{})
	var verr *document.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Problems[0].Rule)
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusInternalServerError, "server_error", "boom")
	})

	err := c.Health(context.Background())
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 500, serr.Code)
	assert.Equal(t, "server_error", serr.Type)
	assert.Equal(t, "server returned 500: boom", serr.Error())
}

func TestAddNote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/candidates/c1/notes", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(record.Note{ID: "n1", CandidateID: "c1", Text: body["text"]})
	})

	n, err := c.Candidates().Add(context.Background(), "c1", "ping @Ann")
	require.NoError(t, err)
	assert.Equal(t, "ping @Ann", n.Text)
}

func TestUnreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", 0)
	err := c.Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
}

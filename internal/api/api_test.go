package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/talentflow/internal/document"
	"github.com/kalambet/talentflow/internal/record"
	"github.com/kalambet/talentflow/internal/remote"
	"github.com/kalambet/talentflow/internal/storage"
)

const testToken = "test-token-12345"

func setupHandler(t *testing.T) (http.Handler, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewHandler(Deps{Store: store, Token: testToken}), store
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func errorType(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return env.Error.Type
}

func TestAuth(t *testing.T) {
	h, _ := setupHandler(t)

	rr := serve(h, authReq(http.MethodGet, "/jobs", "", ""))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "authentication_error", errorType(t, rr))

	rr = serve(h, authReq(http.MethodGet, "/jobs", "", "wrong"))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(h, authReq(http.MethodGet, "/jobs", "", testToken))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = serve(h, authReq(http.MethodGet, "/health", "", ""))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := setupHandler(t)
	serve(h, authReq(http.MethodGet, "/jobs", "", testToken))

	rr := serve(h, authReq(http.MethodGet, "/metrics", "", ""))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "talentflow_http_requests_total")
	assert.Contains(t, rr.Body.String(), `route="/jobs`)
}

func TestJobs_CreateListPatch(t *testing.T) {
	h, _ := setupHandler(t)

	rr := serve(h, authReq(http.MethodPost, "/jobs", `{"title":"Senior Go Engineer","tags":["remote"]}`, testToken))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var job record.Job
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &job))
	assert.Equal(t, "senior-go-engineer", job.Slug)
	assert.Equal(t, record.JobActive, job.Status)

	rr = serve(h, authReq(http.MethodPost, "/jobs", `{"tags":["remote"]}`, testToken))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_request_error", errorType(t, rr))

	rr = serve(h, authReq(http.MethodPatch, "/jobs/"+job.ID, `{"status":"archived"}`, testToken))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var patched record.Job
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &patched))
	assert.Equal(t, record.JobArchived, patched.Status)
	assert.Equal(t, job.Title, patched.Title)

	rr = serve(h, authReq(http.MethodPatch, "/jobs/"+job.ID, `{"status":"paused"}`, testToken))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h, authReq(http.MethodPatch, "/jobs/missing", `{"status":"active"}`, testToken))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", errorType(t, rr))

	rr = serve(h, authReq(http.MethodGet, "/jobs?status=archived&pageSize=5", "", testToken))
	require.Equal(t, http.StatusOK, rr.Code)
	var page record.Page[record.Job]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)

	rr = serve(h, authReq(http.MethodGet, "/jobs?status=paused", "", testToken))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestJobs_Reorder(t *testing.T) {
	h, store := setupHandler(t)
	var jobs []record.Job
	for _, title := range []string{"A", "B", "C"} {
		j, err := store.CreateJob(record.NewJob{Title: title})
		require.NoError(t, err)
		jobs = append(jobs, j)
	}

	rr := serve(h, authReq(http.MethodPost, "/jobs/"+jobs[2].ID+"/reorder", `{"fromOrder":3,"toOrder":1}`, testToken))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	page, err := store.ListJobs(record.Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, []string{page.Items[0].Title, page.Items[1].Title, page.Items[2].Title})

	rr = serve(h, authReq(http.MethodPost, "/jobs/"+jobs[2].ID+"/reorder", `{"fromOrder":3,"toOrder":2}`, testToken))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "conflict", errorType(t, rr))

	rr = serve(h, authReq(http.MethodPost, "/jobs/"+jobs[0].ID+"/reorder", `{"toOrder":2}`, testToken))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCandidates_StageAndNotes(t *testing.T) {
	h, store := setupHandler(t)
	job, err := store.CreateJob(record.NewJob{Title: "Designer"})
	require.NoError(t, err)

	rr := serve(h, authReq(http.MethodPost, "/candidates", `{"name":"Ann Lee","email":"ann@example.com","jobId":"`+job.ID+`"}`, testToken))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var c record.Candidate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &c))
	assert.Equal(t, record.StageApplied, c.Stage)

	rr = serve(h, authReq(http.MethodPost, "/candidates", `{"name":"Bob","email":"not-an-email"}`, testToken))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = serve(h, authReq(http.MethodPost, "/candidates", `{"name":"Bob","email":"bob@example.com","jobId":"missing"}`, testToken))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(h, authReq(http.MethodPatch, "/candidates/"+c.ID, `{"stage":"tech"}`, testToken))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = serve(h, authReq(http.MethodPost, "/candidates/"+c.ID+"/notes", `{"text":"ask @Bob about it"}`, testToken))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = serve(h, authReq(http.MethodPost, "/candidates/"+c.ID+"/notes", `{"text":""}`, testToken))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h, authReq(http.MethodGet, "/candidates/"+c.ID, "", testToken))
	require.Equal(t, http.StatusOK, rr.Code)
	var detail record.Candidate
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &detail))
	assert.Equal(t, record.StageTech, detail.Stage)
	require.Len(t, detail.History, 1)
	assert.Equal(t, record.StageApplied, detail.History[0].From)
	require.Len(t, detail.Notes, 1)
	assert.Equal(t, "ask @Bob about it", detail.Notes[0].Text)

	rr = serve(h, authReq(http.MethodGet, "/candidates?stage=tech&jobId="+job.ID, "", testToken))
	require.Equal(t, http.StatusOK, rr.Code)
	var page record.Page[record.Candidate]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)

	rr = serve(h, authReq(http.MethodGet, "/candidates?stage=lunch", "", testToken))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAssessments_SaveValidateTemplate(t *testing.T) {
	h, store := setupHandler(t)
	job, err := store.CreateJob(record.NewJob{Title: "PM"})
	require.NoError(t, err)

	rr := serve(h, authReq(http.MethodGet, "/assessments/"+job.ID, "", testToken))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	bad := `{"sections":[{"id":"s1","title":"","questions":[]}]}`
	rr = serve(h, authReq(http.MethodPut, "/assessments/"+job.ID, bad, testToken))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	assert.Equal(t, "validation_error", errorType(t, rr))
	assert.Contains(t, rr.Body.String(), `"problems"`)

	good := `{"sections":[{"id":"s1","title":"Basics","questions":[{"id":"q1","type":"short_text","text":"Name","required":true}]}]}`
	rr = serve(h, authReq(http.MethodPut, "/assessments/"+job.ID, good, testToken))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"status":"saved"}`, rr.Body.String())

	rr = serve(h, authReq(http.MethodPut, "/assessments/missing", good, testToken))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = serve(h, authReq(http.MethodPost, "/assessments/"+job.ID+"/template", `{"template":"product-manager"}`, testToken))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var tree document.Tree
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tree))
	assert.Positive(t, tree.Len())

	stored, err := store.GetAssessment(job.ID)
	require.NoError(t, err)
	assert.Equal(t, tree.QuestionCount(), stored.QuestionCount())

	rr = serve(h, authReq(http.MethodPost, "/assessments/"+job.ID+"/template", `{"template":"astronaut"}`, testToken))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAssessments_RejectDuplicateIDs(t *testing.T) {
	h, store := setupHandler(t)
	job, err := store.CreateJob(record.NewJob{Title: "PM"})
	require.NoError(t, err)

	dup := `{"sections":[
		{"id":"s","title":"One","questions":[{"id":"q","type":"short_text","text":"Name"}]},
		{"id":"s","title":"Two","questions":[{"id":"q","type":"short_text","text":"Email"}]}]}`
	rr := serve(h, authReq(http.MethodPut, "/assessments/"+job.ID, dup, testToken))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	assert.Equal(t, "validation_error", errorType(t, rr))
	assert.Contains(t, rr.Body.String(), `"rule":"unique"`)

	_, err = store.GetAssessment(job.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// TestRemoteClientRoundTrip drives the HTTP client against the real handler.
func TestRemoteClientRoundTrip(t *testing.T) {
	h, store := setupHandler(t)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	client := remote.NewClient(srv.URL, testToken, 5*time.Second)
	require.NoError(t, client.Health(ctx))

	job, err := client.Jobs().Create(ctx, record.NewJob{Title: "Backend Engineer"})
	require.NoError(t, err)
	_, err = client.Jobs().Create(ctx, record.NewJob{Title: "Frontend Engineer"})
	require.NoError(t, err)

	page, err := client.Jobs().List(ctx, record.Query{Search: "Engineer"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	err = client.Jobs().Reorder(ctx, job.ID, 5, 2)
	assert.ErrorIs(t, err, remote.ErrConflict)
	require.NoError(t, client.Jobs().Reorder(ctx, job.ID, 1, 2))

	_, err = client.Assessments().Fetch(ctx, job.ID)
	assert.ErrorIs(t, err, remote.ErrNotFound)

	editor := document.NewEditor()
	tree, sid := editor.AddSection(document.Tree{})
	tree, _ = editor.AddQuestion(tree, sid, document.Numeric)
	require.NoError(t, client.Assessments().Save(ctx, job.ID, tree))

	fetched, err := client.Assessments().Fetch(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, tree.QuestionCount(), fetched.QuestionCount())
	assert.Equal(t, sid, fetched.SectionAt(0).ID)

	invalid := document.NewTree(&document.Section{ID: "s1"})
	err = client.Assessments().Save(ctx, job.ID, invalid)
	var verr *document.ValidationError
	require.True(t, errors.As(err, &verr), "err = %v", err)
	assert.NotEmpty(t, verr.Problems)

	c, err := client.Candidates().Create(ctx, record.NewCandidate{Name: "Ann Lee", Email: "ann@example.com", JobID: job.ID})
	require.NoError(t, err)
	note, err := client.Candidates().Add(ctx, c.ID, "hello @Ann Lee")
	require.NoError(t, err)
	assert.Equal(t, c.ID, note.CandidateID)

	stage := record.StageOffer
	updated, err := client.Candidates().Update(ctx, c.ID, record.CandidatePatch{Stage: &stage})
	require.NoError(t, err)
	assert.Equal(t, record.StageOffer, updated.Stage)

	counts, err := store.TaskCounts()
	require.NoError(t, err)
	assert.Equal(t, 1, counts["pending"])
}

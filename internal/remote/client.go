package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kalambet/talentflow/internal/document"
	"github.com/kalambet/talentflow/internal/record"
)

// Client talks to the talentflow HTTP service.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient returns a client for baseURL authenticating with token.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("server not reachable, is talentflow running? (%w)", err)
	}
	return decodeJSON(resp, out)
}

type errorEnvelope struct {
	Error struct {
		Message  string             `json:"message"`
		Type     string             `json:"type"`
		Problems []document.Problem `json:"problems,omitempty"`
	} `json:"error"`
}

// decodeJSON decodes a 2xx body into v and maps error responses onto the
// package errors.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		var env errorEnvelope
		_ = json.Unmarshal(body, &env)
		switch resp.StatusCode {
		case http.StatusNotFound:
			return wrapSentinel(env.Error.Message, ErrNotFound)
		case http.StatusConflict:
			return wrapSentinel(env.Error.Message, ErrConflict)
		case http.StatusUnprocessableEntity:
			if len(env.Error.Problems) > 0 {
				return &document.ValidationError{Problems: env.Error.Problems}
			}
		}
		msg := env.Error.Message
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return &StatusError{Code: resp.StatusCode, Type: env.Error.Type, Message: msg}
	}
	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func wrapSentinel(msg string, sentinel error) error {
	if msg == "" {
		return sentinel
	}
	return fmt.Errorf("%s: %w", msg, sentinel)
}

// collection is the shared list/get/update binding of one REST resource.
type collection[T, P any] struct {
	c    *Client
	path string
}

func (r collection[T, P]) List(ctx context.Context, q record.Query) (record.Page[T], error) {
	q = q.Normalize()
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("pageSize", strconv.Itoa(q.PageSize))
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Stage != "" {
		v.Set("stage", string(q.Stage))
	}
	if q.JobID != "" {
		v.Set("jobId", q.JobID)
	}

	var page record.Page[T]
	if err := r.c.do(ctx, http.MethodGet, r.path+"?"+v.Encode(), nil, &page); err != nil {
		return record.Page[T]{}, fmt.Errorf("listing %s: %w", strings.TrimPrefix(r.path, "/"), err)
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

func (r collection[T, P]) Get(ctx context.Context, id string) (T, error) {
	var out T
	err := r.c.do(ctx, http.MethodGet, r.path+"/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (r collection[T, P]) Update(ctx context.Context, id string, patch P) (T, error) {
	var out T
	err := r.c.do(ctx, http.MethodPatch, r.path+"/"+url.PathEscape(id), patch, &out)
	return out, err
}

// JobsClient binds the /jobs resource.
type JobsClient struct {
	collection[record.Job, record.JobPatch]
}

// Jobs returns the job collection binding.
func (c *Client) Jobs() *JobsClient {
	return &JobsClient{collection[record.Job, record.JobPatch]{c: c, path: "/jobs"}}
}

// Create adds a job.
func (j *JobsClient) Create(ctx context.Context, in record.NewJob) (record.Job, error) {
	var out record.Job
	err := j.c.do(ctx, http.MethodPost, "/jobs", in, &out)
	return out, err
}

// Reorder asks the service to move job id from fromKey to toKey.
func (j *JobsClient) Reorder(ctx context.Context, id string, fromKey, toKey float64) error {
	body := map[string]float64{"fromOrder": fromKey, "toOrder": toKey}
	return j.c.do(ctx, http.MethodPost, "/jobs/"+url.PathEscape(id)+"/reorder", body, nil)
}

// CandidatesClient binds the /candidates resource.
type CandidatesClient struct {
	collection[record.Candidate, record.CandidatePatch]
}

// Candidates returns the candidate collection binding.
func (c *Client) Candidates() *CandidatesClient {
	return &CandidatesClient{collection[record.Candidate, record.CandidatePatch]{c: c, path: "/candidates"}}
}

// Create adds a candidate, typically in response to an apply-to-job action.
func (cc *CandidatesClient) Create(ctx context.Context, in record.NewCandidate) (record.Candidate, error) {
	var out record.Candidate
	err := cc.c.do(ctx, http.MethodPost, "/candidates", in, &out)
	return out, err
}

// Add implements Notes.
func (cc *CandidatesClient) Add(ctx context.Context, candidateID, text string) (record.Note, error) {
	var out record.Note
	err := cc.c.do(ctx, http.MethodPost, "/candidates/"+url.PathEscape(candidateID)+"/notes",
		map[string]string{"text": text}, &out)
	return out, err
}

// AssessmentsClient binds the /assessments resource.
type AssessmentsClient struct {
	c *Client
}

// Assessments returns the assessment document binding.
func (c *Client) Assessments() *AssessmentsClient {
	return &AssessmentsClient{c: c}
}

func (a *AssessmentsClient) Fetch(ctx context.Context, jobID string) (document.Tree, error) {
	var tree document.Tree
	err := a.c.do(ctx, http.MethodGet, "/assessments/"+url.PathEscape(jobID), nil, &tree)
	return tree, err
}

func (a *AssessmentsClient) Save(ctx context.Context, jobID string, tree document.Tree) error {
	return a.c.do(ctx, http.MethodPut, "/assessments/"+url.PathEscape(jobID), tree, nil)
}

// ApplyTemplate replaces the job's assessment with a built-in template and
// returns the stored tree.
func (a *AssessmentsClient) ApplyTemplate(ctx context.Context, jobID, name string) (document.Tree, error) {
	var tree document.Tree
	err := a.c.do(ctx, http.MethodPost, "/assessments/"+url.PathEscape(jobID)+"/template",
		map[string]string{"template": name}, &tree)
	return tree, err
}

// Health reports whether the service answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

var (
	_ Collection[record.Job, record.JobPatch]             = (*JobsClient)(nil)
	_ Ordered                                             = (*JobsClient)(nil)
	_ Collection[record.Candidate, record.CandidatePatch] = (*CandidatesClient)(nil)
	_ Notes                                               = (*CandidatesClient)(nil)
	_ Documents                                           = (*AssessmentsClient)(nil)
)

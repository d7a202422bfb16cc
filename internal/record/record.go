// Package record defines the job and candidate records held by entity stores
// and exchanged with the remote service, together with their typed patches.
package record

import (
	"regexp"
	"strings"
	"time"
)

// JobStatus is the lifecycle state of a job posting.
type JobStatus string

const (
	JobActive   JobStatus = "active"
	JobArchived JobStatus = "archived"
)

// Toggle returns the other status.
func (s JobStatus) Toggle() JobStatus {
	if s == JobArchived {
		return JobActive
	}
	return JobArchived
}

// Job is a posting. Order is a sort key; only its relative magnitude matters.
type Job struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Slug      string    `json:"slug" yaml:"slug"`
	Status    JobStatus `json:"status" yaml:"status"`
	Tags      []string  `json:"tags" yaml:"tags"`
	Order     float64   `json:"order" yaml:"order"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

func (j Job) Key() string { return j.ID }

// OrderKey returns the job's sort key.
func (j Job) OrderKey() float64 { return j.Order }

// WithOrderKey returns a copy of j with the sort key replaced.
func (j Job) WithOrderKey(k float64) Job {
	j.Order = k
	return j
}

// JobPatch lists job fields to overwrite; nil fields are kept.
type JobPatch struct {
	Title  *string    `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Status *JobStatus `json:"status,omitempty" validate:"omitempty,oneof=active archived"`
	Tags   *[]string  `json:"tags,omitempty" validate:"omitempty,dive,min=1"`
}

// Apply returns j with the patch fields written.
func (p JobPatch) Apply(j Job) Job {
	if p.Title != nil {
		j.Title = *p.Title
	}
	if p.Status != nil {
		j.Status = *p.Status
	}
	if p.Tags != nil {
		j.Tags = append([]string{}, (*p.Tags)...)
	}
	return j
}

// Capture returns a patch holding j's current values for the fields p sets.
func (p JobPatch) Capture(j Job) JobPatch {
	var undo JobPatch
	if p.Title != nil {
		v := j.Title
		undo.Title = &v
	}
	if p.Status != nil {
		v := j.Status
		undo.Status = &v
	}
	if p.Tags != nil {
		v := append([]string{}, j.Tags...)
		undo.Tags = &v
	}
	return undo
}

// Stage is a candidate's position in the hiring pipeline.
type Stage string

const (
	StageApplied  Stage = "applied"
	StageScreen   Stage = "screen"
	StageTech     Stage = "tech"
	StageOffer    Stage = "offer"
	StageHired    Stage = "hired"
	StageRejected Stage = "rejected"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{StageApplied, StageScreen, StageTech, StageOffer, StageHired, StageRejected}

func (s Stage) Valid() bool {
	for _, st := range Stages {
		if s == st {
			return true
		}
	}
	return false
}

// Candidate is an applicant. Notes and History are only filled on detail
// fetches.
type Candidate struct {
	ID        string        `json:"id" yaml:"id"`
	Name      string        `json:"name" yaml:"name"`
	Email     string        `json:"email" yaml:"email"`
	Stage     Stage         `json:"stage" yaml:"stage"`
	JobID     string        `json:"jobId" yaml:"jobId"`
	CreatedAt time.Time     `json:"createdAt" yaml:"createdAt"`
	Notes     []Note        `json:"notes,omitempty" yaml:"notes,omitempty"`
	History   []StageChange `json:"history,omitempty" yaml:"history,omitempty"`
}

func (c Candidate) Key() string { return c.ID }

// CandidatePatch lists candidate fields to overwrite; nil fields are kept.
type CandidatePatch struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Stage *Stage  `json:"stage,omitempty" validate:"omitempty,oneof=applied screen tech offer hired rejected"`
	JobID *string `json:"jobId,omitempty"`
}

func (p CandidatePatch) Apply(c Candidate) Candidate {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Stage != nil {
		c.Stage = *p.Stage
	}
	if p.JobID != nil {
		c.JobID = *p.JobID
	}
	return c
}

func (p CandidatePatch) Capture(c Candidate) CandidatePatch {
	var undo CandidatePatch
	if p.Name != nil {
		v := c.Name
		undo.Name = &v
	}
	if p.Email != nil {
		v := c.Email
		undo.Email = &v
	}
	if p.Stage != nil {
		v := c.Stage
		undo.Stage = &v
	}
	if p.JobID != nil {
		v := c.JobID
		undo.JobID = &v
	}
	return undo
}

// Note is free text attached to a candidate. Mentions holds the candidate
// ids resolved from @name tokens, filled in asynchronously.
type Note struct {
	ID          string    `json:"id" yaml:"id"`
	CandidateID string    `json:"candidateId" yaml:"candidateId"`
	Text        string    `json:"text" yaml:"text"`
	At          time.Time `json:"at" yaml:"at"`
	Mentions    []string  `json:"mentions,omitempty" yaml:"mentions,omitempty"`
}

// StageChange is one entry of a candidate's timeline.
type StageChange struct {
	From Stage     `json:"from" yaml:"from"`
	To   Stage     `json:"to" yaml:"to"`
	At   time.Time `json:"at" yaml:"at"`
}

// NewJob is the body of a job creation request.
type NewJob struct {
	Title string   `json:"title" validate:"required,max=200"`
	Slug  string   `json:"slug,omitempty" validate:"omitempty,max=200"`
	Tags  []string `json:"tags,omitempty" validate:"omitempty,dive,min=1"`
}

// NewCandidate is the body of a candidate creation request.
type NewCandidate struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	JobID string `json:"jobId,omitempty"`
	Stage Stage  `json:"stage,omitempty" validate:"omitempty,oneof=applied screen tech offer hired rejected"`
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL slug from a title.
func Slugify(title string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(title), "-"), "-")
}

// Query selects one page of a collection.
type Query struct {
	Search   string
	Status   JobStatus
	Stage    Stage
	JobID    string
	Page     int
	PageSize int
}

// DefaultPageSize applies when a query leaves PageSize unset.
const DefaultPageSize = 10

// Normalize fills page defaults.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	return q
}

// Offset is the index of the first item on the page.
func (q Query) Offset() int {
	q = q.Normalize()
	return (q.Page - 1) * q.PageSize
}

// Page is one page of a collection plus the unpaginated total.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

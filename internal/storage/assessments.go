package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kalambet/talentflow/internal/document"
)

// GetAssessment returns the assessment stored for a job.
func (s *Store) GetAssessment(jobID string) (document.Tree, error) {
	var body string
	err := s.db.QueryRow(`SELECT body FROM assessments WHERE job_id = ?`, jobID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return document.Tree{}, ErrNotFound
	}
	if err != nil {
		return document.Tree{}, err
	}
	var tree document.Tree
	if err := json.Unmarshal([]byte(body), &tree); err != nil {
		return document.Tree{}, fmt.Errorf("parsing assessment of job %s: %w", jobID, err)
	}
	return tree, nil
}

// SaveAssessment validates and stores the assessment of a job, replacing any
// previous one. The job must exist.
func (s *Store) SaveAssessment(jobID string, tree document.Tree) error {
	if err := document.Validate(tree); err != nil {
		return err
	}
	if _, err := s.GetJob(jobID); err != nil {
		return err
	}
	body, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encoding assessment: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO assessments (job_id, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		jobID, string(body), formatTime(time.Now()))
	return err
}

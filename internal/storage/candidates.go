package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/talentflow/internal/record"
)

const candidateColumns = `id, name, email, stage, job_id, created_at`

func scanCandidate(row rowScanner) (record.Candidate, error) {
	var c record.Candidate
	var stage, createdAt string
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &stage, &c.JobID, &createdAt); err != nil {
		return record.Candidate{}, err
	}
	c.Stage = record.Stage(stage)
	var err error
	if c.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return record.Candidate{}, err
	}
	return c, nil
}

func (s *Store) CreateCandidate(in record.NewCandidate) (record.Candidate, error) {
	stage := in.Stage
	if stage == "" {
		stage = record.StageApplied
	}
	c := record.Candidate{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		Stage:     stage,
		JobID:     in.JobID,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	_, err := s.db.Exec(`INSERT INTO candidates (`+candidateColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Email, string(c.Stage), c.JobID, formatTime(c.CreatedAt))
	if err != nil {
		return record.Candidate{}, fmt.Errorf("inserting candidate: %w", err)
	}
	return c, nil
}

// GetCandidate returns the candidate with its notes and stage history.
func (s *Store) GetCandidate(id string) (record.Candidate, error) {
	c, err := scanCandidate(s.db.QueryRow(`SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return record.Candidate{}, ErrNotFound
	}
	if err != nil {
		return record.Candidate{}, err
	}
	if c.Notes, err = s.ListNotes(id); err != nil {
		return record.Candidate{}, err
	}
	if c.History, err = s.stageHistory(id); err != nil {
		return record.Candidate{}, err
	}
	return c, nil
}

func (s *Store) stageHistory(candidateID string) ([]record.StageChange, error) {
	rows, err := s.db.Query(`SELECT from_stage, to_stage, at FROM stage_history WHERE candidate_id = ? ORDER BY rowid ASC`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("reading stage history: %w", err)
	}
	defer rows.Close()

	out := []record.StageChange{}
	for rows.Next() {
		var from, to, at string
		if err := rows.Scan(&from, &to, &at); err != nil {
			return nil, err
		}
		t, err := parseTime("at", at)
		if err != nil {
			return nil, err
		}
		out = append(out, record.StageChange{From: record.Stage(from), To: record.Stage(to), At: t})
	}
	return out, rows.Err()
}

// ListCandidates returns one page of candidates filtered by name/email
// search, stage and job.
func (s *Store) ListCandidates(q record.Query) (record.Page[record.Candidate], error) {
	q = q.Normalize()
	var where []string
	var args []any
	if q.Search != "" {
		where = append(where, `(name LIKE ? ESCAPE '\' OR email LIKE ? ESCAPE '\')`)
		like := containsPattern(q.Search)
		args = append(args, like, like)
	}
	if q.Stage != "" {
		where = append(where, `stage = ?`)
		args = append(args, string(q.Stage))
	}
	if q.JobID != "" {
		where = append(where, `job_id = ?`)
		args = append(args, q.JobID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM candidates`+clause, args...).Scan(&total); err != nil {
		return record.Page[record.Candidate]{}, fmt.Errorf("counting candidates: %w", err)
	}

	rows, err := s.db.Query(`SELECT `+candidateColumns+` FROM candidates`+clause+` ORDER BY created_at ASC, rowid ASC LIMIT ? OFFSET ?`,
		append(args, q.PageSize, q.Offset())...)
	if err != nil {
		return record.Page[record.Candidate]{}, fmt.Errorf("listing candidates: %w", err)
	}
	defer rows.Close()

	items := []record.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return record.Page[record.Candidate]{}, err
		}
		items = append(items, c)
	}
	return record.Page[record.Candidate]{Items: items, Total: total}, rows.Err()
}

// UpdateCandidate applies patch and returns the stored candidate. A stage
// change appends to the candidate's history.
func (s *Store) UpdateCandidate(id string, patch record.CandidatePatch) (record.Candidate, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return record.Candidate{}, fmt.Errorf("beginning update: %w", err)
	}
	defer tx.Rollback()

	cur, err := scanCandidate(tx.QueryRow(`SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return record.Candidate{}, ErrNotFound
	}
	if err != nil {
		return record.Candidate{}, err
	}
	next := patch.Apply(cur)
	if _, err := tx.Exec(`UPDATE candidates SET name = ?, email = ?, stage = ?, job_id = ? WHERE id = ?`,
		next.Name, next.Email, string(next.Stage), next.JobID, id); err != nil {
		return record.Candidate{}, fmt.Errorf("updating candidate: %w", err)
	}
	if next.Stage != cur.Stage {
		if _, err := tx.Exec(`INSERT INTO stage_history (candidate_id, from_stage, to_stage, at) VALUES (?, ?, ?, ?)`,
			id, string(cur.Stage), string(next.Stage), formatTime(time.Now())); err != nil {
			return record.Candidate{}, fmt.Errorf("recording stage change: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return record.Candidate{}, fmt.Errorf("committing update: %w", err)
	}
	return next, nil
}

// CandidateNames returns id and name of every candidate, for mention
// suggestions and resolution.
func (s *Store) CandidateNames() ([]record.Candidate, error) {
	rows, err := s.db.Query(`SELECT id, name FROM candidates ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing candidate names: %w", err)
	}
	defer rows.Close()

	var out []record.Candidate
	for rows.Next() {
		var c record.Candidate
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/talentflow/internal/record"
)

const jobColumns = `id, title, slug, status, tags, sort_order, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (record.Job, error) {
	var j record.Job
	var status, tags, createdAt string
	if err := row.Scan(&j.ID, &j.Title, &j.Slug, &status, &tags, &j.Order, &createdAt); err != nil {
		return record.Job{}, err
	}
	j.Status = record.JobStatus(status)
	if err := json.Unmarshal([]byte(tags), &j.Tags); err != nil {
		return record.Job{}, fmt.Errorf("parsing tags of job %s: %w", j.ID, err)
	}
	if j.Tags == nil {
		j.Tags = []string{}
	}
	var err error
	if j.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return record.Job{}, err
	}
	return j, nil
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	data, _ := json.Marshal(tags)
	return string(data)
}

// CreateJob inserts an active job at the end of the order.
func (s *Store) CreateJob(in record.NewJob) (record.Job, error) {
	var maxOrder sql.NullFloat64
	if err := s.db.QueryRow(`SELECT MAX(sort_order) FROM jobs`).Scan(&maxOrder); err != nil {
		return record.Job{}, fmt.Errorf("reading max order: %w", err)
	}
	slug := in.Slug
	if slug == "" {
		slug = record.Slugify(in.Title)
	}
	j := record.Job{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Slug:      slug,
		Status:    record.JobActive,
		Tags:      append([]string{}, in.Tags...),
		Order:     maxOrder.Float64 + 1,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	_, err := s.db.Exec(`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.Title, j.Slug, string(j.Status), encodeTags(j.Tags), j.Order, formatTime(j.CreatedAt))
	if err != nil {
		return record.Job{}, fmt.Errorf("inserting job: %w", err)
	}
	return j, nil
}

func (s *Store) GetJob(id string) (record.Job, error) {
	j, err := scanJob(s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return record.Job{}, ErrNotFound
	}
	return j, err
}

// ListJobs returns one page of jobs in order, filtered by title/tag search
// and status.
func (s *Store) ListJobs(q record.Query) (record.Page[record.Job], error) {
	q = q.Normalize()
	var where []string
	var args []any
	if q.Search != "" {
		where = append(where, `(title LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`)
		like := containsPattern(q.Search)
		args = append(args, like, like)
	}
	if q.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, string(q.Status))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM jobs`+clause, args...).Scan(&total); err != nil {
		return record.Page[record.Job]{}, fmt.Errorf("counting jobs: %w", err)
	}

	rows, err := s.db.Query(`SELECT `+jobColumns+` FROM jobs`+clause+` ORDER BY sort_order ASC, id ASC LIMIT ? OFFSET ?`,
		append(args, q.PageSize, q.Offset())...)
	if err != nil {
		return record.Page[record.Job]{}, fmt.Errorf("listing jobs: %w", err)
	}
	defer rows.Close()

	items := []record.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return record.Page[record.Job]{}, err
		}
		items = append(items, j)
	}
	return record.Page[record.Job]{Items: items, Total: total}, rows.Err()
}

// UpdateJob applies patch and returns the stored job.
func (s *Store) UpdateJob(id string, patch record.JobPatch) (record.Job, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return record.Job{}, fmt.Errorf("beginning update: %w", err)
	}
	defer tx.Rollback()

	cur, err := scanJob(tx.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return record.Job{}, ErrNotFound
	}
	if err != nil {
		return record.Job{}, err
	}
	next := patch.Apply(cur)
	if patch.Title != nil {
		next.Slug = record.Slugify(next.Title)
	}
	if _, err := tx.Exec(`UPDATE jobs SET title = ?, slug = ?, status = ?, tags = ? WHERE id = ?`,
		next.Title, next.Slug, string(next.Status), encodeTags(next.Tags), id); err != nil {
		return record.Job{}, fmt.Errorf("updating job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return record.Job{}, fmt.Errorf("committing update: %w", err)
	}
	return next, nil
}

// ReorderJob moves job id from fromKey to toKey. Jobs whose keys lie between
// the two shift by one position and the keys in that range are reassigned in
// ascending order, so keys outside the range never change. ErrConflict is
// returned when fromKey is not the job's key or no job holds toKey.
func (s *Store) ReorderJob(id string, fromKey, toKey float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning reorder: %w", err)
	}
	defer tx.Rollback()

	var cur float64
	err = tx.QueryRow(`SELECT sort_order FROM jobs WHERE id = ?`, id).Scan(&cur)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if cur != fromKey {
		return fmt.Errorf("job %s has order %v, not %v: %w", id, cur, fromKey, ErrConflict)
	}
	if fromKey == toKey {
		return nil
	}
	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM jobs WHERE sort_order = ?`, toKey).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no job has order %v: %w", toKey, ErrConflict)
	}

	lo, hi := min(fromKey, toKey), max(fromKey, toKey)
	rows, err := tx.Query(`SELECT id, sort_order FROM jobs WHERE sort_order BETWEEN ? AND ? ORDER BY sort_order ASC, id ASC`, lo, hi)
	if err != nil {
		return fmt.Errorf("selecting reorder range: %w", err)
	}
	var ids []string
	var keys []float64
	for rows.Next() {
		var rid string
		var k float64
		if err := rows.Scan(&rid, &k); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, rid)
		keys = append(keys, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rest := make([]string, 0, len(ids))
	for _, rid := range ids {
		if rid != id {
			rest = append(rest, rid)
		}
	}
	var moved []string
	if fromKey < toKey {
		moved = append(rest, id)
	} else {
		moved = append([]string{id}, rest...)
	}
	for i, rid := range moved {
		if _, err := tx.Exec(`UPDATE jobs SET sort_order = ? WHERE id = ?`, keys[i], rid); err != nil {
			return fmt.Errorf("updating order of %s: %w", rid, err)
		}
	}
	return tx.Commit()
}

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/talentflow/internal/record"
)

// ResolveMentionsPayload is the task payload for TaskResolveMentions.
type ResolveMentionsPayload struct {
	NoteID string `json:"note_id"`
}

// AddNote stores a note for the candidate and queues mention resolution in
// the same transaction.
func (s *Store) AddNote(candidateID, text string) (record.Note, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return record.Note{}, fmt.Errorf("beginning note insert: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM candidates WHERE id = ?`, candidateID).Scan(&exists); err != nil {
		return record.Note{}, err
	}
	if exists == 0 {
		return record.Note{}, ErrNotFound
	}

	n := record.Note{
		ID:          uuid.NewString(),
		CandidateID: candidateID,
		Text:        text,
		At:          time.Now().UTC().Truncate(time.Second),
	}
	if _, err := tx.Exec(`INSERT INTO notes (id, candidate_id, text, created_at) VALUES (?, ?, ?, ?)`,
		n.ID, n.CandidateID, n.Text, formatTime(n.At)); err != nil {
		return record.Note{}, fmt.Errorf("inserting note: %w", err)
	}

	payload, _ := json.Marshal(ResolveMentionsPayload{NoteID: n.ID})
	if err := enqueueTask(tx, Task{ID: uuid.NewString(), Type: TaskResolveMentions, PayloadJSON: string(payload)}); err != nil {
		return record.Note{}, fmt.Errorf("queueing mention resolution: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return record.Note{}, fmt.Errorf("committing note: %w", err)
	}
	return n, nil
}

func (s *Store) GetNote(id string) (record.Note, error) {
	var n record.Note
	var at string
	err := s.db.QueryRow(`SELECT id, candidate_id, text, created_at FROM notes WHERE id = ?`, id).
		Scan(&n.ID, &n.CandidateID, &n.Text, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Note{}, ErrNotFound
	}
	if err != nil {
		return record.Note{}, err
	}
	if n.At, err = parseTime("created_at", at); err != nil {
		return record.Note{}, err
	}
	if n.Mentions, err = s.noteMentions(id); err != nil {
		return record.Note{}, err
	}
	return n, nil
}

// ListNotes returns a candidate's notes, oldest first.
func (s *Store) ListNotes(candidateID string) ([]record.Note, error) {
	rows, err := s.db.Query(`SELECT id, text, created_at FROM notes WHERE candidate_id = ? ORDER BY created_at ASC, rowid ASC`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	var out []record.Note
	for rows.Next() {
		n := record.Note{CandidateID: candidateID}
		var at string
		if err := rows.Scan(&n.ID, &n.Text, &at); err != nil {
			rows.Close()
			return nil, err
		}
		if n.At, err = parseTime("created_at", at); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// single connection: mentions are read after the notes cursor is closed
	for i := range out {
		if out[i].Mentions, err = s.noteMentions(out[i].ID); err != nil {
			return nil, err
		}
	}
	if out == nil {
		out = []record.Note{}
	}
	return out, nil
}

func (s *Store) noteMentions(noteID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT candidate_id FROM note_mentions WHERE note_id = ? ORDER BY rowid ASC`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SetNoteMentions replaces the resolved mentions of a note.
func (s *Store) SetNoteMentions(noteID string, candidateIDs []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning mentions update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM note_mentions WHERE note_id = ?`, noteID); err != nil {
		return err
	}
	for _, id := range candidateIDs {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO note_mentions (note_id, candidate_id) VALUES (?, ?)`, noteID, id); err != nil {
			return fmt.Errorf("inserting mention: %w", err)
		}
	}
	return tx.Commit()
}

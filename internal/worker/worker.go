// Package worker drains the background task queue. Its only task type links
// @name mentions in candidate notes to candidate ids.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kalambet/talentflow/internal/mention"
	"github.com/kalambet/talentflow/internal/record"
	"github.com/kalambet/talentflow/internal/storage"
)

var tasksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "talentflow_tasks_total",
		Help: "Background tasks processed, by type and result.",
	},
	[]string{"type", "result"},
)

// TaskStore abstracts the queue and the note records the worker touches.
type TaskStore interface {
	ClaimNextTask(types []string) (*storage.Task, error)
	CompleteTask(id string) error
	FailTask(id string, errMsg string) error
	GetNote(id string) (record.Note, error)
	CandidateNames() ([]record.Candidate, error)
	SetNoteMentions(noteID string, candidateIDs []string) error
}

// Worker processes resolve_mentions tasks from the SQLite task queue.
type Worker struct {
	store  TaskStore
	poll   time.Duration
	logger *slog.Logger
}

// NewWorker creates a Worker polling store every pollInterval.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store TaskStore, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:  store,
		poll:   pollInterval,
		logger: slog.Default(),
	}
}

// Run polls for tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single task. It reports whether a task was
// claimed, whatever its outcome.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	task, err := w.store.ClaimNextTask([]string{storage.TaskResolveMentions})
	if err != nil {
		return false, fmt.Errorf("claiming task: %w", err)
	}
	if task == nil {
		return false, nil
	}

	if err := w.resolveMentions(task); err != nil {
		tasksTotal.WithLabelValues(task.Type, "error").Inc()
		w.logger.Warn("task failed", "task_id", task.ID, "type", task.Type, "attempt", task.Attempts+1, "error", err)
		if failErr := w.store.FailTask(task.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark task as failed", "task_id", task.ID, "error", failErr)
		}
		return true, nil
	}

	tasksTotal.WithLabelValues(task.Type, "ok").Inc()
	if err := w.store.CompleteTask(task.ID); err != nil {
		return true, fmt.Errorf("completing task %s: %w", task.ID, err)
	}
	return true, nil
}

func (w *Worker) resolveMentions(task *storage.Task) error {
	var payload storage.ResolveMentionsPayload
	if err := json.Unmarshal([]byte(task.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	note, err := w.store.GetNote(payload.NoteID)
	if err != nil {
		return fmt.Errorf("loading note %s: %w", payload.NoteID, err)
	}

	names := mention.Names(note.Text)
	if len(names) == 0 {
		return nil
	}
	candidates, err := w.store.CandidateNames()
	if err != nil {
		return fmt.Errorf("listing candidates: %w", err)
	}
	ids := mention.Resolve(names, candidates)
	if err := w.store.SetNoteMentions(note.ID, ids); err != nil {
		return fmt.Errorf("storing mentions of note %s: %w", note.ID, err)
	}
	w.logger.Debug("mentions resolved", "note_id", note.ID, "names", len(names), "linked", len(ids))
	return nil
}

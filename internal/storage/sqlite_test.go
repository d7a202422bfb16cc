package storage

import (
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestMigrationsIdempotent runs Open twice on the same database and verifies
// the schema_version count stays correct (migration not re-applied).
func TestMigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()

	s1, err := Open(dir)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	v1, err := s1.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	s1.Close()

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()

	v2, err := s2.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(v1) != len(v2) {
		t.Errorf("migration count changed: %d -> %d", len(v1), len(v2))
	}
}

func TestMigrationsOrdered(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("expected at least one applied migration")
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] <= versions[i-1] {
			t.Errorf("migrations not in ascending order: %v", versions)
			break
		}
	}
}

func TestIndexesExist(t *testing.T) {
	s := openTestStore(t)

	indexes := []string{"idx_jobs_sort_order", "idx_jobs_status", "idx_candidates_stage", "idx_candidates_job_id", "idx_notes_candidate", "idx_tasks_claim"}
	for _, idx := range indexes {
		var count int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&count); err != nil {
			t.Fatalf("querying index %s: %v", idx, err)
		}
		if count != 1 {
			t.Errorf("index %s not found", idx)
		}
	}
}

func TestEnqueueAndClaimTask(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueTask(Task{ID: "t-claim-1", Type: TaskResolveMentions, PayloadJSON: `{"note_id":"n1"}`}); err != nil {
		t.Fatalf("EnqueueTask: %v", err)
	}

	got, err := s.ClaimNextTask([]string{TaskResolveMentions})
	if err != nil {
		t.Fatalf("ClaimNextTask: %v", err)
	}
	if got == nil {
		t.Fatal("ClaimNextTask returned nil")
	}
	if got.ID != "t-claim-1" {
		t.Errorf("ID = %q, want %q", got.ID, "t-claim-1")
	}
	if got.PayloadJSON != `{"note_id":"n1"}` {
		t.Errorf("PayloadJSON = %q", got.PayloadJSON)
	}
	if got.Status != "running" {
		t.Errorf("Status = %q, want %q", got.Status, "running")
	}
	if got.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", got.MaxAttempts)
	}
}

func TestClaimNextTask_Empty(t *testing.T) {
	s := openTestStore(t)

	got, err := s.ClaimNextTask([]string{TaskResolveMentions})
	if err != nil {
		t.Fatalf("ClaimNextTask: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
	if got, _ := s.ClaimNextTask(nil); got != nil {
		t.Errorf("expected nil for no types, got %+v", got)
	}
}

func TestClaimNextTask_RespectRunAfter(t *testing.T) {
	s := openTestStore(t)

	task := Task{ID: "t-future", Type: "x", PayloadJSON: `{}`, RunAfter: time.Now().UTC().Add(time.Hour)}
	if err := s.EnqueueTask(task); err != nil {
		t.Fatalf("EnqueueTask: %v", err)
	}
	got, err := s.ClaimNextTask([]string{"x"})
	if err != nil {
		t.Fatalf("ClaimNextTask: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for future run_after, got %+v", got)
	}
}

func TestClaimNextTask_TypeFilterAndSkipsRunning(t *testing.T) {
	s := openTestStore(t)

	for _, task := range []Task{
		{ID: "t-a", Type: "a", PayloadJSON: `{}`},
		{ID: "t-b1", Type: "b", PayloadJSON: `{}`},
	} {
		if err := s.EnqueueTask(task); err != nil {
			t.Fatalf("EnqueueTask %s: %v", task.ID, err)
		}
	}

	got, err := s.ClaimNextTask([]string{"b"})
	if err != nil || got == nil {
		t.Fatalf("ClaimNextTask: %v, %v", got, err)
	}
	if got.ID != "t-b1" {
		t.Errorf("ID = %q, want t-b1", got.ID)
	}
	if again, _ := s.ClaimNextTask([]string{"b"}); again != nil {
		t.Errorf("running task claimed twice: %+v", again)
	}
}

func TestCompleteTask(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueTask(Task{ID: "t-complete", Type: "x", PayloadJSON: `{}`}); err != nil {
		t.Fatalf("EnqueueTask: %v", err)
	}
	if _, err := s.ClaimNextTask([]string{"x"}); err != nil {
		t.Fatalf("ClaimNextTask: %v", err)
	}
	if err := s.CompleteTask("t-complete"); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
	counts, err := s.TaskCounts()
	if err != nil {
		t.Fatalf("TaskCounts: %v", err)
	}
	if counts["completed"] != 1 {
		t.Errorf("counts = %v, want one completed", counts)
	}
	if err := s.CompleteTask("missing"); err != ErrNotFound {
		t.Errorf("CompleteTask(missing) = %v, want ErrNotFound", err)
	}
}

func TestFailTask_BackoffThenFailed(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueTask(Task{ID: "t-fail", Type: "x", PayloadJSON: `{}`, MaxAttempts: 2}); err != nil {
		t.Fatalf("EnqueueTask: %v", err)
	}
	if _, err := s.ClaimNextTask([]string{"x"}); err != nil {
		t.Fatalf("ClaimNextTask: %v", err)
	}

	before := time.Now().UTC()
	if err := s.FailTask("t-fail", "something broke"); err != nil {
		t.Fatalf("FailTask: %v", err)
	}

	var status, lastError, runAfterStr string
	var attempts int
	if err := s.db.QueryRow(`SELECT status, attempts, last_error, run_after FROM tasks WHERE id = 't-fail'`).
		Scan(&status, &attempts, &lastError, &runAfterStr); err != nil {
		t.Fatalf("SELECT: %v", err)
	}
	if status != "pending" || attempts != 1 || lastError != "something broke" {
		t.Errorf("after first failure: status=%q attempts=%d last_error=%q", status, attempts, lastError)
	}
	runAfter, err := time.Parse(time.RFC3339, runAfterStr)
	if err != nil {
		t.Fatalf("parsing run_after: %v", err)
	}
	if !runAfter.After(before) {
		t.Errorf("run_after %v should be after %v", runAfter, before)
	}

	if err := s.FailTask("t-fail", "fatal"); err != nil {
		t.Fatalf("FailTask: %v", err)
	}
	if err := s.db.QueryRow(`SELECT status FROM tasks WHERE id = 't-fail'`).Scan(&status); err != nil {
		t.Fatalf("SELECT: %v", err)
	}
	if status != "failed" {
		t.Errorf("status = %q, want failed", status)
	}
	if err := s.FailTask("missing", "x"); err != ErrNotFound {
		t.Errorf("FailTask(missing) = %v, want ErrNotFound", err)
	}
}

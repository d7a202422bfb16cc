package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/talentflow/internal/document"
	"github.com/kalambet/talentflow/internal/record"
	"github.com/kalambet/talentflow/internal/storage"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T) (MCPDeps, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return MCPDeps{Store: store, Version: "test"}, store
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// --- tests ---

func TestMCPServer_Registers(t *testing.T) {
	deps, _ := newTestMCPDeps(t)
	if NewMCPServer(deps) == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

func TestMCPTool_ListJobs(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	for i := range 3 {
		if _, err := store.CreateJob(record.NewJob{Title: fmt.Sprintf("Engineer %d", i)}); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}

	result, err := mcpListJobs(deps)(context.Background(), makeCallToolRequest("list_jobs", map[string]any{
		"search":    "Engineer",
		"page_size": 2,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}

	var page record.Page[record.Job]
	if err := json.Unmarshal([]byte(toolText(t, result)), &page); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 {
		t.Errorf("total = %d, items = %d", page.Total, len(page.Items))
	}

	result, _ = mcpListJobs(deps)(context.Background(), makeCallToolRequest("list_jobs", map[string]any{"status": "closed"}))
	if !result.IsError {
		t.Error("expected error for unknown status")
	}
}

func TestMCPTool_AddNote(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	c, err := store.CreateCandidate(record.NewCandidate{Name: "Ann Lee", Email: "ann@example.com"})
	if err != nil {
		t.Fatalf("CreateCandidate: %v", err)
	}

	result, err := mcpAddNote(deps)(context.Background(), makeCallToolRequest("add_note", map[string]any{
		"candidate_id": c.ID,
		"text":         "strong systems background, ask @Bob Stone",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool error: %s", toolText(t, result))
	}
	if !strings.Contains(toolText(t, result), c.ID) {
		t.Errorf("result %q does not name the candidate", toolText(t, result))
	}

	notes, _ := store.ListNotes(c.ID)
	if len(notes) != 1 {
		t.Fatalf("notes = %d, want 1", len(notes))
	}

	result, _ = mcpAddNote(deps)(context.Background(), makeCallToolRequest("add_note", map[string]any{
		"candidate_id": "missing",
		"text":         "x",
	}))
	if !result.IsError {
		t.Error("expected error for unknown candidate")
	}

	result, _ = mcpAddNote(deps)(context.Background(), makeCallToolRequest("add_note", map[string]any{"candidate_id": c.ID}))
	if !result.IsError {
		t.Error("expected error for missing text")
	}
}

func TestMCPTool_GetAssessment(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	job, _ := store.CreateJob(record.NewJob{Title: "Designer"})

	result, _ := mcpGetAssessment(deps)(context.Background(), makeCallToolRequest("get_assessment", map[string]any{"job_id": job.ID}))
	if !result.IsError {
		t.Error("expected error before an assessment is saved")
	}

	tree := document.NewTree(&document.Section{ID: "s1", Title: "Portfolio", Questions: []*document.Question{
		{ID: "q1", Type: document.LongText, Text: "Describe a project"},
	}})
	if err := store.SaveAssessment(job.ID, tree); err != nil {
		t.Fatalf("SaveAssessment: %v", err)
	}

	result, err := mcpGetAssessment(deps)(context.Background(), makeCallToolRequest("get_assessment", map[string]any{"job_id": job.ID}))
	if err != nil || result.IsError {
		t.Fatalf("get_assessment: %v", err)
	}
	var got document.Tree
	if err := json.Unmarshal([]byte(toolText(t, result)), &got); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if got.Len() != 1 || got.SectionAt(0).Title != "Portfolio" {
		t.Errorf("assessment = %s", toolText(t, result))
	}
}

func TestMCPServer_ConcurrentCalls(t *testing.T) {
	deps, store := newTestMCPDeps(t)
	c, _ := store.CreateCandidate(record.NewCandidate{Name: "Ann Lee", Email: "ann@example.com"})

	addHandler := mcpAddNote(deps)
	listHandler := mcpListJobs(deps)

	var wg sync.WaitGroup
	errs := make(chan error, 20)

	for range 5 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			req := makeCallToolRequest("add_note", map[string]any{"candidate_id": c.ID, "text": "concurrent note"})
			res, err := addHandler(context.Background(), req)
			if err != nil {
				errs <- err
			} else if res.IsError {
				errs <- fmt.Errorf("%s", toolText(t, res))
			}
		}()
		go func() {
			defer wg.Done()
			if _, err := listHandler(context.Background(), makeCallToolRequest("list_jobs", nil)); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent call failed: %v", err)
	}

	notes, _ := store.ListNotes(c.ID)
	if len(notes) != 5 {
		t.Errorf("notes = %d, want 5", len(notes))
	}
}

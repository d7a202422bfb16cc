package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/talentflow/internal/record"
	"github.com/kalambet/talentflow/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store   *storage.Store
	Version string
}

// NewMCPServer creates an MCP server exposing jobs, notes and assessments
// as tools.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"talentflow",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("talentflow: hiring pipeline with jobs, candidates and assessments."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_jobs",
			mcp.WithDescription("List job postings in board order, optionally filtered by a title/tag search and status."),
			mcp.WithString("search", mcp.Description("Substring of the title or a tag")),
			mcp.WithString("status", mcp.Description("active or archived")),
			mcp.WithNumber("page", mcp.Description("1-based page number (default 1)")),
			mcp.WithNumber("page_size", mcp.Description("Jobs per page (default 10, max 100)")),
		),
		mcpListJobs(deps),
	)

	s.AddTool(
		mcp.NewTool("add_note",
			mcp.WithDescription("Attach a note to a candidate. @Name mentions are linked to candidates in the background."),
			mcp.WithString("candidate_id", mcp.Description("Candidate id"), mcp.Required()),
			mcp.WithString("text", mcp.Description("Note text"), mcp.Required()),
		),
		mcpAddNote(deps),
	)

	s.AddTool(
		mcp.NewTool("get_assessment",
			mcp.WithDescription("Return the assessment of a job as JSON sections."),
			mcp.WithString("job_id", mcp.Description("Job id"), mcp.Required()),
		),
		mcpGetAssessment(deps),
	)

	return s
}

func mcpListJobs(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q := record.Query{
			Search:   req.GetString("search", ""),
			Status:   record.JobStatus(req.GetString("status", "")),
			Page:     req.GetInt("page", 1),
			PageSize: min(req.GetInt("page_size", record.DefaultPageSize), maxPageSize),
		}
		if q.Status != "" && q.Status != record.JobActive && q.Status != record.JobArchived {
			return mcpError(fmt.Sprintf("unknown status %q", q.Status)), nil
		}
		page, err := deps.Store.ListJobs(q)
		if err != nil {
			return mcpError(fmt.Sprintf("listing jobs failed: %v", err)), nil
		}
		return mcpJSON(page)
	}
}

func mcpAddNote(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		candidateID, err := req.RequireString("candidate_id")
		if err != nil {
			return mcpError("candidate_id is required"), nil
		}
		text, err := req.RequireString("text")
		if err != nil || text == "" {
			return mcpError("text is required"), nil
		}

		n, err := deps.Store.AddNote(candidateID, text)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("candidate %s not found", candidateID)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to add note: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Added note %s to candidate %s", n.ID, candidateID)), nil
	}
}

func mcpGetAssessment(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jobID, err := req.RequireString("job_id")
		if err != nil {
			return mcpError("job_id is required"), nil
		}
		tree, err := deps.Store.GetAssessment(jobID)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("job %s has no assessment", jobID)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to read assessment: %v", err)), nil
		}
		return mcpJSON(tree)
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

package storage

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/kalambet/talentflow/internal/document"
	"github.com/kalambet/talentflow/internal/record"
)

func TestCandidateLifecycle(t *testing.T) {
	s := openTestStore(t)
	job := seedJobs(t, s, 1)[0]

	c, err := s.CreateCandidate(record.NewCandidate{Name: "Ann Lee", Email: "ann@example.com", JobID: job.ID})
	if err != nil {
		t.Fatalf("CreateCandidate: %v", err)
	}
	if c.Stage != record.StageApplied {
		t.Errorf("Stage = %q, want applied", c.Stage)
	}

	screen := record.StageScreen
	if _, err := s.UpdateCandidate(c.ID, record.CandidatePatch{Stage: &screen}); err != nil {
		t.Fatalf("UpdateCandidate: %v", err)
	}
	name := "Ann B. Lee"
	if _, err := s.UpdateCandidate(c.ID, record.CandidatePatch{Name: &name}); err != nil {
		t.Fatalf("UpdateCandidate: %v", err)
	}

	got, err := s.GetCandidate(c.ID)
	if err != nil {
		t.Fatalf("GetCandidate: %v", err)
	}
	if got.Name != name || got.Stage != record.StageScreen {
		t.Errorf("GetCandidate = %+v", got)
	}
	if len(got.History) != 1 || got.History[0].From != record.StageApplied || got.History[0].To != record.StageScreen {
		t.Errorf("History = %+v, want one applied->screen entry", got.History)
	}
	if len(got.Notes) != 0 {
		t.Errorf("Notes = %+v, want none", got.Notes)
	}

	if _, err := s.GetCandidate("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetCandidate(missing) = %v, want ErrNotFound", err)
	}
	if _, err := s.UpdateCandidate("missing", record.CandidatePatch{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateCandidate(missing) = %v, want ErrNotFound", err)
	}
}

func TestListCandidates_Filters(t *testing.T) {
	s := openTestStore(t)
	jobs := seedJobs(t, s, 2)

	for _, in := range []record.NewCandidate{
		{Name: "Ann Lee", Email: "ann@example.com", JobID: jobs[0].ID},
		{Name: "Bob Stone", Email: "bob@mail.test", JobID: jobs[0].ID, Stage: record.StageTech},
		{Name: "Carol Anders", Email: "carol@example.com", JobID: jobs[1].ID, Stage: record.StageTech},
	} {
		if _, err := s.CreateCandidate(in); err != nil {
			t.Fatalf("CreateCandidate: %v", err)
		}
	}

	tests := []struct {
		name  string
		q     record.Query
		total int
	}{
		{"all", record.Query{}, 3},
		{"name search", record.Query{Search: "ann"}, 1},
		{"underscore is literal", record.Query{Search: "b_b"}, 0},
		{"percent is literal", record.Query{Search: "%"}, 0},
		{"email search", record.Query{Search: "example"}, 2},
		{"stage", record.Query{Stage: record.StageTech}, 2},
		{"job", record.Query{JobID: jobs[0].ID}, 2},
		{"combined", record.Query{Stage: record.StageTech, JobID: jobs[1].ID}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := s.ListCandidates(tt.q)
			if err != nil {
				t.Fatalf("ListCandidates: %v", err)
			}
			if page.Total != tt.total || len(page.Items) != tt.total {
				t.Errorf("Total = %d, items = %d, want %d", page.Total, len(page.Items), tt.total)
			}
		})
	}

	page, _ := s.ListCandidates(record.Query{PageSize: 2, Page: 2})
	if page.Total != 3 || len(page.Items) != 1 || page.Items[0].Name != "Carol Anders" {
		t.Errorf("page 2 = %+v", page)
	}
}

func TestAddNote_QueuesMentionTask(t *testing.T) {
	s := openTestStore(t)
	c, _ := s.CreateCandidate(record.NewCandidate{Name: "Ann Lee", Email: "ann@example.com"})

	n, err := s.AddNote(c.ID, "great call with @Bob Stone")
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}

	task, err := s.ClaimNextTask([]string{TaskResolveMentions})
	if err != nil || task == nil {
		t.Fatalf("ClaimNextTask: %v, %v", task, err)
	}
	var payload ResolveMentionsPayload
	if err := json.Unmarshal([]byte(task.PayloadJSON), &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.NoteID != n.ID {
		t.Errorf("payload note = %q, want %q", payload.NoteID, n.ID)
	}

	if _, err := s.AddNote("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddNote(missing) = %v, want ErrNotFound", err)
	}
	counts, _ := s.TaskCounts()
	if counts["pending"] != 0 {
		t.Errorf("a rejected note left a task behind: %v", counts)
	}
}

func TestNotesAndMentions(t *testing.T) {
	s := openTestStore(t)
	ann, _ := s.CreateCandidate(record.NewCandidate{Name: "Ann Lee", Email: "ann@example.com"})
	bob, _ := s.CreateCandidate(record.NewCandidate{Name: "Bob Stone", Email: "bob@example.com"})

	first, _ := s.AddNote(ann.ID, "first")
	second, _ := s.AddNote(ann.ID, "then @Bob Stone")

	if err := s.SetNoteMentions(second.ID, []string{bob.ID, bob.ID}); err != nil {
		t.Fatalf("SetNoteMentions: %v", err)
	}
	got, err := s.GetNote(second.ID)
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if !reflect.DeepEqual(got.Mentions, []string{bob.ID}) {
		t.Errorf("Mentions = %v, want [%s]", got.Mentions, bob.ID)
	}

	if err := s.SetNoteMentions(second.ID, nil); err != nil {
		t.Fatalf("SetNoteMentions: %v", err)
	}
	if got, _ := s.GetNote(second.ID); len(got.Mentions) != 0 {
		t.Errorf("Mentions not cleared: %v", got.Mentions)
	}

	notes, err := s.ListNotes(ann.ID)
	if err != nil {
		t.Fatalf("ListNotes: %v", err)
	}
	if len(notes) != 2 || notes[0].ID != first.ID || notes[1].ID != second.ID {
		t.Errorf("ListNotes = %+v", notes)
	}
	if notes, _ := s.ListNotes(bob.ID); notes == nil || len(notes) != 0 {
		t.Errorf("ListNotes(bob) = %#v, want empty", notes)
	}
	if _, err := s.GetNote("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetNote(missing) = %v, want ErrNotFound", err)
	}
}

func TestCandidateNames(t *testing.T) {
	s := openTestStore(t)
	for _, name := range []string{"Carol", "Ann", "Bob"} {
		if _, err := s.CreateCandidate(record.NewCandidate{Name: name, Email: name + "@example.com"}); err != nil {
			t.Fatalf("CreateCandidate: %v", err)
		}
	}
	got, err := s.CandidateNames()
	if err != nil {
		t.Fatalf("CandidateNames: %v", err)
	}
	var names []string
	for _, c := range got {
		names = append(names, c.Name)
		if c.ID == "" {
			t.Error("missing id")
		}
	}
	if !reflect.DeepEqual(names, []string{"Ann", "Bob", "Carol"}) {
		t.Errorf("names = %v", names)
	}
}

func TestAssessments(t *testing.T) {
	s := openTestStore(t)
	job := seedJobs(t, s, 1)[0]

	if _, err := s.GetAssessment(job.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetAssessment before save = %v, want ErrNotFound", err)
	}

	tree := document.NewTree(&document.Section{
		ID:    "s1",
		Title: "Basics",
		Questions: []*document.Question{
			{ID: "q1", Type: document.ShortText, Text: "Name", Required: true},
		},
	})
	if err := s.SaveAssessment(job.ID, tree); err != nil {
		t.Fatalf("SaveAssessment: %v", err)
	}
	got, err := s.GetAssessment(job.ID)
	if err != nil {
		t.Fatalf("GetAssessment: %v", err)
	}
	if got.Len() != 1 || got.SectionAt(0).Questions[0].Text != "Name" {
		t.Errorf("GetAssessment = %+v", got)
	}

	title := "Renamed"
	tree = document.NewEditor().UpdateSection(tree, "s1", document.SectionPatch{Title: &title})
	if err := s.SaveAssessment(job.ID, tree); err != nil {
		t.Fatalf("SaveAssessment overwrite: %v", err)
	}
	got, _ = s.GetAssessment(job.ID)
	if got.SectionAt(0).Title != "Renamed" {
		t.Errorf("Title = %q, want Renamed", got.SectionAt(0).Title)
	}

	if err := s.SaveAssessment("missing", tree); !errors.Is(err, ErrNotFound) {
		t.Errorf("SaveAssessment(missing job) = %v, want ErrNotFound", err)
	}

	bad := document.NewTree(&document.Section{ID: "s1", Title: "x", Questions: []*document.Question{{ID: "q1", Type: "bogus", Text: "x"}}})
	var verr *document.ValidationError
	if err := s.SaveAssessment(job.ID, bad); !errors.As(err, &verr) {
		t.Errorf("SaveAssessment(invalid) = %v, want ValidationError", err)
	}
}

func TestSeed(t *testing.T) {
	s := openTestStore(t)

	if err := s.Seed(5, 40); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	jobs, _ := s.ListJobs(record.Query{})
	cands, _ := s.ListCandidates(record.Query{})
	if jobs.Total != 5 || cands.Total != 40 {
		t.Errorf("seeded %d jobs and %d candidates", jobs.Total, cands.Total)
	}

	if err := s.Seed(5, 40); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	jobs, _ = s.ListJobs(record.Query{})
	if jobs.Total != 5 {
		t.Errorf("second Seed added jobs: total %d", jobs.Total)
	}
}

package builder

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/talentflow/internal/document"
	"github.com/kalambet/talentflow/internal/remote"
)

type mockDocs struct {
	stored  map[string]document.Tree
	saveErr error
	saves   int
}

func newMockDocs() *mockDocs { return &mockDocs{stored: map[string]document.Tree{}} }

func (m *mockDocs) Fetch(ctx context.Context, owner string) (document.Tree, error) {
	t, ok := m.stored[owner]
	if !ok {
		return document.Tree{}, remote.ErrNotFound
	}
	return t, nil
}

func (m *mockDocs) Save(ctx context.Context, owner string, t document.Tree) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.stored[owner] = t
	return nil
}

func seq() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newSession(docs remote.Documents) *Session {
	ids := seq()
	return New("job-1", docs, document.NewEditorWithIDs(ids), ids)
}

func TestFetch_Missing(t *testing.T) {
	s := newSession(newMockDocs())
	found, err := s.Fetch(context.Background())
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, s.Exists())
	assert.Equal(t, 0, s.Tree().Len())
	assert.Empty(t, s.Active())
}

func TestSaveFetchRoundTrip(t *testing.T) {
	docs := newMockDocs()
	s := newSession(docs)
	sid := s.AddSection()
	assert.Equal(t, sid, s.Active())
	qid := s.AddQuestion(sid, document.Numeric)
	require.NotEmpty(t, qid)
	assert.True(t, s.Dirty())

	require.NoError(t, s.Save(context.Background()))
	assert.False(t, s.Dirty())
	assert.True(t, s.Exists())

	other := newSession(docs)
	found, err := other.Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, sid, other.Active())
	assert.NotNil(t, other.Tree().Question(sid, qid))
}

func TestSave_ValidationKeepsEdits(t *testing.T) {
	docs := newMockDocs()
	s := newSession(docs)
	sid := s.AddSection()
	qid := s.AddQuestion(sid, document.SingleChoice)
	before := s.Tree()

	err := s.Save(context.Background())
	var verr *document.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, docs.saves, "invalid trees never reach the remote")
	assert.True(t, document.Same(before, s.Tree()))
	assert.True(t, s.Dirty())

	opts := []string{"Yes", "No"}
	s.UpdateQuestion(sid, qid, document.QuestionPatch{Options: &opts})
	require.NoError(t, s.Save(context.Background()))
}

func TestSave_RemoteFailureKeepsEdits(t *testing.T) {
	docs := newMockDocs()
	docs.saveErr = errors.New("timeout")
	s := newSession(docs)
	s.AddSection()

	err := s.Save(context.Background())
	assert.ErrorContains(t, err, "timeout")
	assert.Equal(t, 1, s.Tree().Len())
	assert.True(t, s.Dirty())
}

func TestActiveFallsBackToFirstSection(t *testing.T) {
	s := newSession(newMockDocs())
	first := s.AddSection()
	second := s.AddSection()
	assert.Equal(t, second, s.Active())

	s.DeleteSection(second)
	assert.Equal(t, first, s.Active())

	s.DeleteSection(first)
	assert.Empty(t, s.Active())

	s.SetActive("missing")
	assert.Empty(t, s.Active())
}

func TestApplyTemplate(t *testing.T) {
	s := newSession(newMockDocs())
	require.NoError(t, s.ApplyTemplate("ui-ux-designer"))
	tree := s.Tree()
	assert.Equal(t, 2, tree.Len())
	assert.Equal(t, tree.SectionAt(0).ID, s.Active())
	assert.True(t, s.Dirty())
	assert.NoError(t, s.Save(context.Background()))

	assert.Error(t, s.ApplyTemplate("nope"))
	assert.True(t, document.Same(tree, s.Tree()))
}

func TestStartFromScratchAndMove(t *testing.T) {
	s := newSession(newMockDocs())
	s.StartFromScratch()
	require.Equal(t, 1, s.Tree().Len())
	sid := s.Tree().SectionAt(0).ID

	a := s.AddQuestion(sid, document.ShortText)
	b := s.AddQuestion(sid, document.LongText)
	s.MoveQuestion(sid, 1, 0)
	qs := s.Tree().Section(sid).Questions
	assert.Equal(t, []string{b, a}, []string{qs[0].ID, qs[1].ID})

	s.DeleteQuestion(sid, a)
	assert.Equal(t, 1, s.Tree().QuestionCount())

	title := "Intro"
	s.UpdateSection(sid, document.SectionPatch{Title: &title})
	assert.Equal(t, "Intro", s.Tree().Section(sid).Title)
}

func TestPreview(t *testing.T) {
	s := newSession(newMockDocs())
	require.NoError(t, s.ApplyTemplate("product-manager"))
	sec := s.Tree().SectionAt(0)
	domain := sec.Questions[1].ID

	assert.Len(t, s.Preview(document.Answers{})[sec.ID], 2)
	assert.Len(t, s.Preview(document.Answers{domain: "Other"})[sec.ID], 3)
}

func TestImport(t *testing.T) {
	docs := newMockDocs()
	s := newSession(docs)
	imported := document.NewTree(&document.Section{
		ID:    "s1",
		Title: "Imported",
		Questions: []*document.Question{
			{ID: "q1", Type: document.ShortText, Text: "Name?"},
		},
	})

	require.NoError(t, s.Import(imported))
	assert.Equal(t, "s1", s.Active())
	assert.True(t, s.Dirty())
	require.NoError(t, s.Save(context.Background()))
	assert.False(t, s.Dirty())
	assert.Equal(t, "Imported", docs.stored["job-1"].SectionAt(0).Title)

	dup := document.NewTree(
		&document.Section{ID: "s2", Title: "A", Questions: []*document.Question{{ID: "q", Type: document.ShortText, Text: "One"}}},
		&document.Section{ID: "s3", Title: "B", Questions: []*document.Question{{ID: "q", Type: document.ShortText, Text: "Two"}}},
	)
	var verr *document.ValidationError
	require.ErrorAs(t, s.Import(dup), &verr)
	assert.Equal(t, "unique", verr.Problems[0].Rule)
	assert.Equal(t, "Imported", s.Tree().SectionAt(0).Title)
	assert.False(t, s.Dirty())
}

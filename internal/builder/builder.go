// Package builder is the editing session for one assessment document. It
// owns the current tree, tracks the active section and saves through the
// remote document service.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kalambet/talentflow/internal/document"
	"github.com/kalambet/talentflow/internal/remote"
	"github.com/kalambet/talentflow/internal/template"
)

// Session edits the assessment attached to one owner record.
type Session struct {
	ownerID string
	docs    remote.Documents
	editor  *document.Editor
	newID   func() string
	logger  *slog.Logger

	mu     sync.Mutex
	tree   document.Tree
	saved  document.Tree
	active string
	exists bool
}

// New returns a session for ownerID. newID is used for template ids; nil
// means random UUIDs.
func New(ownerID string, docs remote.Documents, editor *document.Editor, newID func() string) *Session {
	if editor == nil {
		editor = document.NewEditor()
	}
	if newID == nil {
		newID = editor.NewID
	}
	return &Session{
		ownerID: ownerID,
		docs:    docs,
		editor:  editor,
		newID:   newID,
		logger:  slog.Default().With("owner_id", ownerID),
	}
}

// Fetch loads the stored document. A missing document leaves the session
// empty and returns false.
func (s *Session) Fetch(ctx context.Context) (bool, error) {
	tree, err := s.docs.Fetch(ctx, s.ownerID)
	if errors.Is(err, remote.ErrNotFound) {
		s.mu.Lock()
		s.tree, s.saved, s.active, s.exists = document.Tree{}, document.Tree{}, "", false
		s.mu.Unlock()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fetching assessment: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree, s.saved, s.exists = tree, tree, true
	s.active = ""
	s.fixActiveLocked()
	return true, nil
}

// Tree returns the current document.
func (s *Session) Tree() document.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree
}

// Active returns the id of the section being edited, or "".
func (s *Session) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActive selects a section. Unknown ids are ignored.
func (s *Session) SetActive(sectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tree.Section(sectionID) != nil {
		s.active = sectionID
	}
}

// Dirty reports whether the tree differs from the last fetched or saved one.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !document.Same(s.tree, s.saved)
}

// fixActiveLocked falls back to the first section when the active one is gone.
func (s *Session) fixActiveLocked() {
	if s.active != "" && s.tree.Section(s.active) != nil {
		return
	}
	s.active = ""
	if first := s.tree.SectionAt(0); first != nil {
		s.active = first.ID
	}
}

func (s *Session) edit(fn func(document.Tree) document.Tree) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = fn(s.tree)
	s.fixActiveLocked()
}

// AddSection appends a section and makes it active.
func (s *Session) AddSection() string {
	var id string
	s.edit(func(t document.Tree) document.Tree {
		t, id = s.editor.AddSection(t)
		return t
	})
	s.SetActive(id)
	return id
}

func (s *Session) UpdateSection(sectionID string, patch document.SectionPatch) {
	s.edit(func(t document.Tree) document.Tree { return s.editor.UpdateSection(t, sectionID, patch) })
}

func (s *Session) DeleteSection(sectionID string) {
	s.edit(func(t document.Tree) document.Tree { return s.editor.DeleteSection(t, sectionID) })
}

// AddQuestion appends a question to the section and returns its id, or ""
// for an unknown section.
func (s *Session) AddQuestion(sectionID string, qt document.QuestionType) string {
	var id string
	s.edit(func(t document.Tree) document.Tree {
		t, id = s.editor.AddQuestion(t, sectionID, qt)
		return t
	})
	return id
}

func (s *Session) UpdateQuestion(sectionID, questionID string, patch document.QuestionPatch) {
	s.edit(func(t document.Tree) document.Tree {
		return s.editor.UpdateQuestion(t, sectionID, questionID, patch)
	})
}

func (s *Session) DeleteQuestion(sectionID, questionID string) {
	s.edit(func(t document.Tree) document.Tree { return s.editor.DeleteQuestion(t, sectionID, questionID) })
}

func (s *Session) MoveQuestion(sectionID string, from, to int) {
	s.edit(func(t document.Tree) document.Tree { return s.editor.MoveQuestion(t, sectionID, from, to) })
}

// StartFromScratch replaces the tree with a single empty section.
func (s *Session) StartFromScratch() {
	s.edit(func(document.Tree) document.Tree {
		t, _ := s.editor.AddSection(document.Tree{})
		return t
	})
}

// ApplyTemplate replaces the tree with a fresh copy of a bundled template.
// The result is unsaved.
func (s *Session) ApplyTemplate(name string) error {
	tree, err := template.Instantiate(name, s.newID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = tree
	s.active = ""
	s.fixActiveLocked()
	return nil
}

// Import replaces the tree with t, typically read from an exported file.
// A tree that fails validation is rejected and the current tree is kept.
// The result is unsaved.
func (s *Session) Import(t document.Tree) error {
	if err := document.Validate(t); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = t
	s.active = ""
	s.fixActiveLocked()
	return nil
}

// Save validates and stores the current tree. On any error the local tree
// is kept so the user can correct it and retry.
func (s *Session) Save(ctx context.Context) error {
	tree := s.Tree()
	if err := document.Validate(tree); err != nil {
		return err
	}
	if err := s.docs.Save(ctx, s.ownerID, tree); err != nil {
		s.logger.Warn("saving assessment", "error", err)
		return fmt.Errorf("saving assessment: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = tree
	s.exists = true
	s.logger.Info("assessment saved", "sections", tree.Len(), "questions", tree.QuestionCount())
	return nil
}

// Exists reports whether the owner has a stored document.
func (s *Session) Exists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exists
}

// Preview returns the questions visible for answers, per section.
func (s *Session) Preview(answers document.Answers) map[string][]*document.Question {
	return s.Tree().Visible(answers)
}

package document

import (
	"github.com/google/uuid"
)

// Editor applies structural edits to trees. It holds no document state; its
// only dependency is the id generator.
type Editor struct {
	newID func() string
}

// NewEditor returns an Editor that assigns random UUIDs.
func NewEditor() *Editor {
	return &Editor{newID: uuid.NewString}
}

// NewEditorWithIDs returns an Editor using a custom id generator (for tests).
func NewEditorWithIDs(newID func() string) *Editor {
	return &Editor{newID: newID}
}

// NewID returns a fresh id from the editor's generator.
func (e *Editor) NewID() string { return e.newID() }

// AddSection appends an empty section with a fresh id and returns the new
// tree together with that id.
func (e *Editor) AddSection(t Tree) (Tree, string) {
	s := &Section{
		ID:        e.newID(),
		Title:     DefaultSectionTitle,
		Questions: []*Question{},
	}
	next := make([]*Section, len(t.sections), len(t.sections)+1)
	copy(next, t.sections)
	return Tree{sections: append(next, s)}, s.ID
}

// UpdateSection merges patch into the section. Unknown ids leave t unchanged.
func (e *Editor) UpdateSection(t Tree, sectionID string, patch SectionPatch) Tree {
	i := t.indexOf(sectionID)
	if i < 0 || patch.empty() {
		return t
	}
	s := *t.sections[i]
	if patch.Title != nil {
		s.Title = *patch.Title
	}
	if patch.Description != nil {
		s.Description = *patch.Description
	}
	return t.withSection(i, &s)
}

// DeleteSection removes the section and every question it owns.
func (e *Editor) DeleteSection(t Tree, sectionID string) Tree {
	i := t.indexOf(sectionID)
	if i < 0 {
		return t
	}
	next := make([]*Section, 0, len(t.sections)-1)
	next = append(next, t.sections[:i]...)
	next = append(next, t.sections[i+1:]...)
	if len(next) == 0 {
		return Tree{}
	}
	return Tree{sections: next}
}

// AddQuestion appends a default question of type qt to the section and
// returns the new tree with the question id. Unknown sections leave t
// unchanged and return an empty id.
func (e *Editor) AddQuestion(t Tree, sectionID string, qt QuestionType) (Tree, string) {
	i := t.indexOf(sectionID)
	if i < 0 {
		return t, ""
	}
	if qt == "" {
		qt = ShortText
	}
	q := &Question{
		ID:         e.newID(),
		Type:       qt,
		Text:       DefaultQuestionText,
		Validation: map[string]any{},
		Options:    []string{},
		Conditions: []Condition{},
	}
	old := t.sections[i]
	s := *old
	s.Questions = make([]*Question, len(old.Questions), len(old.Questions)+1)
	copy(s.Questions, old.Questions)
	s.Questions = append(s.Questions, q)
	return t.withSection(i, &s), q.ID
}

// UpdateQuestion merges patch into the question of the given section.
func (e *Editor) UpdateQuestion(t Tree, sectionID, questionID string, patch QuestionPatch) Tree {
	i := t.indexOf(sectionID)
	if i < 0 || patch.empty() {
		return t
	}
	old := t.sections[i]
	j := old.indexOf(questionID)
	if j < 0 {
		return t
	}

	q := *old.Questions[j]
	if patch.Type != nil {
		q.Type = *patch.Type
	}
	if patch.Text != nil {
		q.Text = *patch.Text
	}
	if patch.Required != nil {
		q.Required = *patch.Required
	}
	if patch.Validation != nil {
		q.Validation = cloneMap(*patch.Validation)
	}
	if patch.Options != nil {
		q.Options = append([]string{}, (*patch.Options)...)
	}
	if patch.Conditions != nil {
		q.Conditions = append([]Condition{}, (*patch.Conditions)...)
	}

	s := *old
	s.Questions = make([]*Question, len(old.Questions))
	copy(s.Questions, old.Questions)
	s.Questions[j] = &q
	return t.withSection(i, &s)
}

// DeleteQuestion removes the question from the section.
func (e *Editor) DeleteQuestion(t Tree, sectionID, questionID string) Tree {
	i := t.indexOf(sectionID)
	if i < 0 {
		return t
	}
	old := t.sections[i]
	j := old.indexOf(questionID)
	if j < 0 {
		return t
	}
	s := *old
	s.Questions = make([]*Question, 0, len(old.Questions)-1)
	s.Questions = append(s.Questions, old.Questions[:j]...)
	s.Questions = append(s.Questions, old.Questions[j+1:]...)
	return t.withSection(i, &s)
}

// MoveQuestion moves the question at index from to index to within one
// section. Both indices are clamped to [0, len-1]; equal indices after
// clamping return t unchanged.
func (e *Editor) MoveQuestion(t Tree, sectionID string, from, to int) Tree {
	i := t.indexOf(sectionID)
	if i < 0 {
		return t
	}
	old := t.sections[i]
	n := len(old.Questions)
	if n == 0 {
		return t
	}
	from = clamp(from, 0, n-1)
	to = clamp(to, 0, n-1)
	if from == to {
		return t
	}

	s := *old
	s.Questions = make([]*Question, n)
	copy(s.Questions, old.Questions)
	moved := s.Questions[from]
	if from < to {
		copy(s.Questions[from:to], s.Questions[from+1:to+1])
	} else {
		copy(s.Questions[to+1:from+1], s.Questions[to:from])
	}
	s.Questions[to] = moved
	return t.withSection(i, &s)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

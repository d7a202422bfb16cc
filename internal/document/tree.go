package document

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Tree is an immutable assessment document. The zero value is an empty tree.
type Tree struct {
	sections []*Section
}

// NewTree builds a tree from sections. The slice is copied; the sections are
// shared.
func NewTree(sections ...*Section) Tree {
	if len(sections) == 0 {
		return Tree{}
	}
	s := make([]*Section, len(sections))
	copy(s, sections)
	return Tree{sections: s}
}

// Len returns the number of sections.
func (t Tree) Len() int { return len(t.sections) }

// Sections returns the sections in display order. The returned slice is a
// copy; the sections themselves are shared and must not be modified.
func (t Tree) Sections() []*Section {
	out := make([]*Section, len(t.sections))
	copy(out, t.sections)
	return out
}

// SectionAt returns the section at index i, or nil when out of range.
func (t Tree) SectionAt(i int) *Section {
	if i < 0 || i >= len(t.sections) {
		return nil
	}
	return t.sections[i]
}

// Section returns the section with the given id, or nil.
func (t Tree) Section(id string) *Section {
	if i := t.indexOf(id); i >= 0 {
		return t.sections[i]
	}
	return nil
}

// Question returns the question with the given id within the section, or nil.
func (t Tree) Question(sectionID, questionID string) *Question {
	s := t.Section(sectionID)
	if s == nil {
		return nil
	}
	if i := s.indexOf(questionID); i >= 0 {
		return s.Questions[i]
	}
	return nil
}

// QuestionCount returns the total number of questions across sections.
func (t Tree) QuestionCount() int {
	n := 0
	for _, s := range t.sections {
		n += len(s.Questions)
	}
	return n
}

// Same reports whether a and b share the same section list, i.e. b was
// returned unchanged from an edit of a.
func Same(a, b Tree) bool {
	if len(a.sections) != len(b.sections) {
		return false
	}
	if len(a.sections) == 0 {
		return true
	}
	return &a.sections[0] == &b.sections[0]
}

func (t Tree) indexOf(sectionID string) int {
	for i, s := range t.sections {
		if s.ID == sectionID {
			return i
		}
	}
	return -1
}

func (s *Section) indexOf(questionID string) int {
	for i, q := range s.Questions {
		if q.ID == questionID {
			return i
		}
	}
	return -1
}

// withSection returns a copy of t with the section at index i replaced.
func (t Tree) withSection(i int, s *Section) Tree {
	next := make([]*Section, len(t.sections))
	copy(next, t.sections)
	next[i] = s
	return Tree{sections: next}
}

type treeJSON struct {
	Sections []*Section `json:"sections" yaml:"sections"`
}

// MarshalJSON encodes the tree as {"sections": [...]}.
func (t Tree) MarshalJSON() ([]byte, error) {
	sections := t.sections
	if sections == nil {
		sections = []*Section{}
	}
	return json.Marshal(treeJSON{Sections: sections})
}

// UnmarshalJSON decodes {"sections": [...]}, normalizing nil collections.
func (t *Tree) UnmarshalJSON(data []byte) error {
	var raw treeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = FromSections(raw.Sections)
	return nil
}

// MarshalYAML encodes the tree with the same shape as JSON.
func (t Tree) MarshalYAML() (any, error) {
	return treeJSON{Sections: t.sections}, nil
}

// UnmarshalYAML decodes the same shape as JSON.
func (t *Tree) UnmarshalYAML(value *yaml.Node) error {
	var raw treeJSON
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*t = FromSections(raw.Sections)
	return nil
}

// FromSections builds a tree from decoded sections, dropping nil entries and
// replacing nil collections with empty ones.
func FromSections(sections []*Section) Tree {
	out := make([]*Section, 0, len(sections))
	for _, s := range sections {
		if s == nil {
			continue
		}
		qs := make([]*Question, 0, len(s.Questions))
		for _, q := range s.Questions {
			if q == nil {
				continue
			}
			if q.Validation == nil {
				q.Validation = map[string]any{}
			}
			if q.Options == nil {
				q.Options = []string{}
			}
			if q.Conditions == nil {
				q.Conditions = []Condition{}
			}
			qs = append(qs, q)
		}
		s.Questions = qs
		out = append(out, s)
	}
	if len(out) == 0 {
		return Tree{}
	}
	return Tree{sections: out}
}

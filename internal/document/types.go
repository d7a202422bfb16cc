// Package document implements the assessment document: an ordered list of
// sections, each owning an ordered list of questions.
//
// Trees are persistent values. Every edit returns a new Tree that reuses the
// *Section and *Question pointers it did not touch, so callers can detect
// unchanged subtrees with pointer comparison. Values reachable from a Tree
// must be treated as read-only.
package document

// QuestionType enumerates the supported answer kinds.
type QuestionType string

const (
	SingleChoice QuestionType = "single_choice"
	MultiChoice  QuestionType = "multi_choice"
	ShortText    QuestionType = "short_text"
	LongText     QuestionType = "long_text"
	Numeric      QuestionType = "numeric"
	FileUpload   QuestionType = "file_upload"
)

// QuestionTypes lists every type in builder menu order.
var QuestionTypes = []QuestionType{SingleChoice, MultiChoice, ShortText, LongText, Numeric, FileUpload}

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	for _, qt := range QuestionTypes {
		if t == qt {
			return true
		}
	}
	return false
}

// IsChoice reports whether answers are picked from Options.
func (t QuestionType) IsChoice() bool {
	return t == SingleChoice || t == MultiChoice
}

const (
	DefaultSectionTitle = "New Section"
	DefaultQuestionText = "New Question"
)

// Section is a titled group of questions.
type Section struct {
	ID          string      `json:"id" yaml:"id" validate:"required"`
	Title       string      `json:"title" yaml:"title" validate:"required"`
	Description string      `json:"description" yaml:"description"`
	Questions   []*Question `json:"questions" yaml:"questions" validate:"dive,required"`
}

// Question is a single prompt inside a section.
type Question struct {
	ID         string         `json:"id" yaml:"id" validate:"required"`
	Type       QuestionType   `json:"type" yaml:"type" validate:"required,questiontype"`
	Text       string         `json:"text" yaml:"text" validate:"required"`
	Required   bool           `json:"required" yaml:"required"`
	Validation map[string]any `json:"validation" yaml:"validation"`
	Options    []string       `json:"options" yaml:"options"`
	Conditions []Condition    `json:"conditions" yaml:"conditions" validate:"dive"`
}

// Condition makes a question visible only when another question's answer
// equals ExpectedValue. DependsOn is a plain id reference and may dangle.
type Condition struct {
	DependsOn     string `json:"dependsOnQuestionId" yaml:"dependsOnQuestionId" validate:"required"`
	ExpectedValue any    `json:"expectedValue" yaml:"expectedValue"`
}

// SectionPatch holds the section fields to overwrite; nil fields are kept.
type SectionPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// QuestionPatch holds the question fields to overwrite; nil fields are kept.
type QuestionPatch struct {
	Type       *QuestionType   `json:"type,omitempty"`
	Text       *string         `json:"text,omitempty"`
	Required   *bool           `json:"required,omitempty"`
	Validation *map[string]any `json:"validation,omitempty"`
	Options    *[]string       `json:"options,omitempty"`
	Conditions *[]Condition    `json:"conditions,omitempty"`
}

func (p SectionPatch) empty() bool {
	return p.Title == nil && p.Description == nil
}

func (p QuestionPatch) empty() bool {
	return p.Type == nil && p.Text == nil && p.Required == nil &&
		p.Validation == nil && p.Options == nil && p.Conditions == nil
}

// Answers maps question ids to answer values. Multi-choice answers are
// []string; numeric answers are float64 or a numeric string.
type Answers map[string]any

package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("questiontype", func(fl validator.FieldLevel) bool {
		return QuestionType(fl.Field().String()).Valid()
	})
	validate.RegisterStructValidation(questionRules, Question{})
	validate.RegisterStructValidation(uniqueIDs, document{})
}

// uniqueIDs reports every section or question whose id was already used
// elsewhere in the tree.
func uniqueIDs(sl validator.StructLevel) {
	d := sl.Current().Interface().(document)
	seen := make(map[string]bool)
	check := func(id, field string) {
		if id == "" {
			return
		}
		if seen[id] {
			sl.ReportError(id, field, "ID", "unique", "")
		}
		seen[id] = true
	}
	for i, sec := range d.Sections {
		if sec == nil {
			continue
		}
		check(sec.ID, fmt.Sprintf("Sections[%d].ID", i))
		for j, q := range sec.Questions {
			if q != nil {
				check(q.ID, fmt.Sprintf("Sections[%d].Questions[%d].ID", i, j))
			}
		}
	}
}

// questionRules covers the cross-field checks tags cannot express.
func questionRules(sl validator.StructLevel) {
	q := sl.Current().Interface().(Question)
	if q.Type.IsChoice() {
		ok := false
		for _, o := range q.Options {
			if strings.TrimSpace(o) != "" {
				ok = true
				break
			}
		}
		if !ok {
			sl.ReportError(q.Options, "Options", "options", "choiceoptions", "")
		}
	}
	for _, c := range q.Conditions {
		if c.DependsOn == q.ID {
			sl.ReportError(q.Conditions, "Conditions", "conditions", "selfreference", "")
			break
		}
	}
}

// Problem is one failed rule.
type Problem struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError is returned when a tree cannot be saved.
type ValidationError struct {
	Problems []Problem `json:"problems"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.Field+": "+p.Rule)
	}
	return "invalid assessment: " + strings.Join(parts, "; ")
}

type document struct {
	Sections []*Section `validate:"dive,required"`
}

// Validate checks the tree before it is saved. It returns a *ValidationError
// listing every problem, or nil.
func Validate(t Tree) error {
	err := validate.Struct(document{Sections: t.sections})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating assessment: %w", err)
	}
	out := &ValidationError{Problems: make([]Problem, 0, len(verrs))}
	for _, fe := range verrs {
		out.Problems = append(out.Problems, Problem{
			Field: strings.TrimPrefix(fe.Namespace(), "document."),
			Rule:  fe.Tag(),
		})
	}
	return out
}

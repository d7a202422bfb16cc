package document

import (
	"fmt"
	"strings"
)

// index maps question ids to questions across all sections.
func (t Tree) index() map[string]*Question {
	idx := make(map[string]*Question, t.QuestionCount())
	for _, s := range t.sections {
		for _, q := range s.Questions {
			idx[q.ID] = q
		}
	}
	return idx
}

// ConditionsMet reports whether every condition of q holds for answers. A
// condition whose target question no longer exists, or has no answer, is not
// met.
func (t Tree) ConditionsMet(q *Question, answers Answers) bool {
	if q == nil {
		return false
	}
	if len(q.Conditions) == 0 {
		return true
	}
	return conditionsMet(t.index(), q, answers)
}

// Visible returns, per section id, the questions shown for answers.
func (t Tree) Visible(answers Answers) map[string][]*Question {
	idx := t.index()
	out := make(map[string][]*Question, len(t.sections))
	for _, s := range t.sections {
		visible := make([]*Question, 0, len(s.Questions))
		for _, q := range s.Questions {
			if conditionsMet(idx, q, answers) {
				visible = append(visible, q)
			}
		}
		out[s.ID] = visible
	}
	return out
}

// DanglingConditions lists "questionID->dependsOn" pairs whose target is
// missing from the tree.
func (t Tree) DanglingConditions() []string {
	idx := t.index()
	var out []string
	for _, s := range t.sections {
		for _, q := range s.Questions {
			for _, c := range q.Conditions {
				if _, ok := idx[c.DependsOn]; !ok {
					out = append(out, q.ID+"->"+c.DependsOn)
				}
			}
		}
	}
	return out
}

func conditionsMet(idx map[string]*Question, q *Question, answers Answers) bool {
	for _, c := range q.Conditions {
		if _, ok := idx[c.DependsOn]; !ok {
			return false
		}
		got, ok := answers[c.DependsOn]
		if !ok || got == nil {
			return false
		}
		if !answerMatches(got, c.ExpectedValue) {
			return false
		}
	}
	return true
}

// answerMatches compares by string form. Slice answers (multi-choice) match
// when any selected value equals the expected one.
func answerMatches(got, expected any) bool {
	want := stringify(expected)
	switch v := got.(type) {
	case []string:
		for _, s := range v {
			if s == want {
				return true
			}
		}
		return false
	case []any:
		for _, s := range v {
			if stringify(s) == want {
				return true
			}
		}
		return false
	}
	return stringify(got) == want
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", x), "0"), ".")
	case float32:
		return stringify(float64(x))
	default:
		return fmt.Sprint(v)
	}
}

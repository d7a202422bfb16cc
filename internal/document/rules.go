package document

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	exprlang "github.com/expr-lang/expr"
)

// Validation rule names understood by CheckAnswer.
const (
	RuleMin       = "min"
	RuleMax       = "max"
	RuleMinLength = "minLength"
	RuleMaxLength = "maxLength"
	RulePattern   = "pattern"
	RuleExpr      = "expr"
)

// AnswerError reports the first rule an answer failed.
type AnswerError struct {
	QuestionID string
	Rule       string
	Message    string
}

func (e *AnswerError) Error() string {
	return fmt.Sprintf("question %s: %s: %s", e.QuestionID, e.Rule, e.Message)
}

// CheckAnswer evaluates the question's required flag, its options for choice
// types, and its validation rules against answer. A nil return means the
// answer is acceptable.
func CheckAnswer(q *Question, answer any) error {
	fail := func(rule, format string, args ...any) error {
		return &AnswerError{QuestionID: q.ID, Rule: rule, Message: fmt.Sprintf(format, args...)}
	}

	if isBlank(answer) {
		if q.Required {
			return fail("required", "an answer is required")
		}
		return nil
	}

	if q.Type.IsChoice() {
		for _, v := range selections(answer) {
			if !contains(q.Options, v) {
				return fail("options", "%q is not one of the options", v)
			}
		}
		if q.Type == SingleChoice && len(selections(answer)) > 1 {
			return fail("options", "only one option may be selected")
		}
	}

	text := stringify(answer)
	if q.Type == Numeric {
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return fail("numeric", "%q is not a number", text)
		}
		if lim, ok := number(q.Validation[RuleMin]); ok && n < lim {
			return fail(RuleMin, "must be at least %v", lim)
		}
		if lim, ok := number(q.Validation[RuleMax]); ok && n > lim {
			return fail(RuleMax, "must be at most %v", lim)
		}
	}

	if q.Type == ShortText || q.Type == LongText {
		length := utf8.RuneCountInString(text)
		if lim, ok := number(q.Validation[RuleMinLength]); ok && float64(length) < lim {
			return fail(RuleMinLength, "must be at least %v characters", lim)
		}
		if lim, ok := number(q.Validation[RuleMaxLength]); ok && float64(length) > lim {
			return fail(RuleMaxLength, "must be at most %v characters", lim)
		}
		if p, ok := q.Validation[RulePattern].(string); ok && p != "" {
			re, err := regexp.Compile(p)
			if err != nil {
				return fail(RulePattern, "bad pattern: %v", err)
			}
			if !re.MatchString(text) {
				return fail(RulePattern, "does not match %s", p)
			}
		}
	}

	if src, ok := q.Validation[RuleExpr].(string); ok && src != "" {
		program, err := exprlang.Compile(src,
			exprlang.Env(map[string]any{"value": answer}),
			exprlang.AsBool(),
		)
		if err != nil {
			return fail(RuleExpr, "bad expression: %v", err)
		}
		out, err := exprlang.Run(program, map[string]any{"value": answer})
		if err != nil {
			return fail(RuleExpr, "evaluating: %v", err)
		}
		if pass, _ := out.(bool); !pass {
			return fail(RuleExpr, "%s is false", src)
		}
	}
	return nil
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []string:
		return len(x) == 0
	case []any:
		return len(x) == 0
	}
	return false
}

func selections(v any) []string {
	switch x := v.(type) {
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, s := range x {
			out = append(out, stringify(s))
		}
		return out
	}
	return []string{stringify(v)}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// number accepts JSON numbers, ints and numeric strings.
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return n, err == nil
	}
	return 0, false
}

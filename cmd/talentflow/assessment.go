package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kalambet/talentflow/internal/builder"
	"github.com/kalambet/talentflow/internal/document"
	"github.com/kalambet/talentflow/internal/template"
)

func newAssessmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "assessment",
		Aliases: []string{"asmt"},
		Short:   "Build the assessment attached to a job",
	}
	cmd.AddCommand(
		newAssessmentShowCmd(),
		newAssessmentTemplatesCmd(),
		newAssessmentTemplateCmd(),
		newAssessmentScratchCmd(),
		newAssessmentExportCmd(),
		newAssessmentImportCmd(),
		newAssessmentAddSectionCmd(),
		newAssessmentAddQuestionCmd(),
		newAssessmentDeleteCmd(),
		newAssessmentMoveCmd(),
	)
	return cmd
}

// openBuilder starts an editing session on the job's stored assessment.
func (a *clientApp) openBuilder(ctx context.Context, jobID string, mustExist bool) (*builder.Session, error) {
	s := builder.New(jobID, a.remote.Assessments(), nil, nil)
	found, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if mustExist && !found {
		return nil, fmt.Errorf("job %s has no assessment yet; start with a template or scratch", jobID)
	}
	return s, nil
}

// editAssessment runs edit inside a builder session and saves the result.
func editAssessment(cmd *cobra.Command, jobID string, mustExist bool, edit func(s *builder.Session) error) error {
	app, err := newClientApp()
	if err != nil {
		return err
	}
	defer app.Close()

	s, err := app.openBuilder(cmd.Context(), jobID, mustExist)
	if err != nil {
		return err
	}
	if err := edit(s); err != nil {
		printProblems(err)
		return err
	}
	if !s.Dirty() {
		printStep("No changes")
		return nil
	}
	if err := s.Save(cmd.Context()); err != nil {
		printProblems(err)
		return err
	}
	tree := s.Tree()
	printSuccess("Saved assessment for %s (%d sections, %d questions)", jobID, tree.Len(), tree.QuestionCount())
	return nil
}

func printProblems(err error) {
	var verr *document.ValidationError
	if errors.As(err, &verr) {
		for _, p := range verr.Problems {
			printError("%s: %s", p.Field, p.Rule)
		}
	}
}

func newAssessmentShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Print the assessment, or the questions visible for given answers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetStringArray("answer")
			answers, err := parseAnswers(raw)
			if err != nil {
				return err
			}

			app, err := newClientApp()
			if err != nil {
				return err
			}
			defer app.Close()

			s, err := app.openBuilder(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}

			var visible map[string][]*document.Question
			if answers != nil {
				visible = s.Preview(answers)
			}
			writeTree(cmd.OutOrStdout(), s.Tree(), visible)
			return nil
		},
	}
	cmd.Flags().StringArray("answer", nil, "preview with answer question-id=value (repeat for multi-choice)")
	return cmd
}

// parseAnswers turns id=value pairs into answers. A repeated id collects a
// multi-choice selection.
func parseAnswers(raw []string) (document.Answers, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	answers := document.Answers{}
	for _, kv := range raw {
		id, val, ok := strings.Cut(kv, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid answer %q (want question-id=value)", kv)
		}
		switch prev := answers[id].(type) {
		case nil:
			answers[id] = val
		case string:
			answers[id] = []string{prev, val}
		case []string:
			answers[id] = append(prev, val)
		}
	}
	return answers, nil
}

func writeTree(w io.Writer, t document.Tree, visible map[string][]*document.Question) {
	for i, sec := range t.Sections() {
		fmt.Fprintf(w, "%d. %s  %s\n", i+1, colorize(colorBold, sec.Title), colorize(colorDim, sec.ID))
		if sec.Description != "" {
			fmt.Fprintf(w, "   %s\n", sec.Description)
		}
		questions := sec.Questions
		if visible != nil {
			questions = visible[sec.ID]
		}
		for j, q := range questions {
			req := ""
			if q.Required {
				req = colorize(colorRed, " *")
			}
			fmt.Fprintf(w, "   %d.%d [%s] %s%s  %s\n", i+1, j+1, q.Type, q.Text, req, colorize(colorDim, q.ID))
			if len(q.Options) > 0 {
				fmt.Fprintf(w, "         options: %s\n", strings.Join(q.Options, " | "))
			}
			for _, c := range q.Conditions {
				fmt.Fprintf(w, "         when %s = %v\n", c.DependsOn, c.ExpectedValue)
			}
		}
	}
}

func newAssessmentTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the bundled assessment templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range template.Names() {
				tpl, err := template.Get(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", name, tpl.Title)
			}
			return nil
		},
	}
}

func newAssessmentTemplateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "template <job-id> <template>",
		Short: "Replace the assessment with a bundled template",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editAssessment(cmd, args[0], false, func(s *builder.Session) error {
				return s.ApplyTemplate(args[1])
			})
		},
	}
}

func newAssessmentScratchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scratch <job-id>",
		Short: "Replace the assessment with a single empty section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editAssessment(cmd, args[0], false, func(s *builder.Session) error {
				s.StartFromScratch()
				return nil
			})
		},
	}
}

func newAssessmentExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <job-id>",
		Short: "Write the assessment as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")

			app, err := newClientApp()
			if err != nil {
				return err
			}
			defer app.Close()

			s, err := app.openBuilder(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(s.Tree()); err != nil {
				return fmt.Errorf("encoding assessment: %w", err)
			}
			if err := enc.Close(); err != nil {
				return err
			}
			if output != "" {
				printSuccess("Assessment exported to %s", output)
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "output file path (default: stdout)")
	return cmd
}

func newAssessmentImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <job-id> <file>",
		Short: "Replace the assessment with a YAML or JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			// JSON is a subset of YAML.
			var tree document.Tree
			if err := yaml.Unmarshal(data, &tree); err != nil {
				return fmt.Errorf("parsing %s: %w", args[1], err)
			}
			return editAssessment(cmd, args[0], false, func(s *builder.Session) error {
				return s.Import(tree)
			})
		},
	}
}

func newAssessmentAddSectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-section <job-id>",
		Short: "Append a section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			desc, _ := cmd.Flags().GetString("description")
			return editAssessment(cmd, args[0], false, func(s *builder.Session) error {
				id := s.AddSection()
				patch := document.SectionPatch{}
				if title != "" {
					patch.Title = &title
				}
				if desc != "" {
					patch.Description = &desc
				}
				s.UpdateSection(id, patch)
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().String("title", "", "section title")
	cmd.Flags().String("description", "", "section description")
	return cmd
}

func newAssessmentAddQuestionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-question <job-id> <section-id>",
		Short: "Append a question to a section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qtype, _ := cmd.Flags().GetString("type")
			text, _ := cmd.Flags().GetString("text")
			required, _ := cmd.Flags().GetBool("required")
			options, _ := cmd.Flags().GetStringSlice("options")

			qt := document.QuestionType(qtype)
			if !qt.Valid() {
				return fmt.Errorf("invalid question type %q", qtype)
			}
			return editAssessment(cmd, args[0], true, func(s *builder.Session) error {
				sid := args[1]
				if s.Tree().Section(sid) == nil {
					return fmt.Errorf("section %s not found", sid)
				}
				id := s.AddQuestion(sid, qt)
				patch := document.QuestionPatch{Required: &required}
				if text != "" {
					patch.Text = &text
				}
				if len(options) > 0 {
					patch.Options = &options
				}
				s.UpdateQuestion(sid, id, patch)
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().String("type", string(document.ShortText), "question type")
	cmd.Flags().String("text", "", "question text")
	cmd.Flags().Bool("required", false, "answer is required")
	cmd.Flags().StringSlice("options", nil, "choices for single_choice and multi_choice")
	return cmd
}

func newAssessmentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <job-id> <section-id> [question-id]",
		Short: "Delete a section, or one question of it",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editAssessment(cmd, args[0], true, func(s *builder.Session) error {
				if len(args) == 3 {
					s.DeleteQuestion(args[1], args[2])
				} else {
					s.DeleteSection(args[1])
				}
				return nil
			})
		},
	}
}

func newAssessmentMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <job-id> <section-id> <from> <to>",
		Short: "Move a question within its section (1-based positions)",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := parseRows(args[2], args[3])
			if err != nil {
				return err
			}
			return editAssessment(cmd, args[0], true, func(s *builder.Session) error {
				s.MoveQuestion(args[1], from-1, to-1)
				return nil
			})
		},
	}
}

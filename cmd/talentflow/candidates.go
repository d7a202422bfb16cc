package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/talentflow/internal/entity"
	"github.com/kalambet/talentflow/internal/mention"
	"github.com/kalambet/talentflow/internal/optimistic"
	"github.com/kalambet/talentflow/internal/record"
	"github.com/kalambet/talentflow/internal/window"
)

// fetchPageSize is the largest page the service hands out.
const fetchPageSize = 100

func newCandidatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "candidates",
		Aliases: []string{"cand"},
		Short:   "Browse candidates and their notes",
	}
	cmd.AddCommand(
		newCandidatesListCmd(),
		newCandidatesShowCmd(),
		newCandidatesStageCmd(),
		newCandidatesNoteCmd(),
		newCandidatesSuggestCmd(),
	)
	return cmd
}

// allCandidates pages through the remote collection until every match of q
// is loaded.
func (a *clientApp) allCandidates(ctx context.Context, q record.Query) ([]record.Candidate, error) {
	q.PageSize = fetchPageSize
	var out []record.Candidate
	for q.Page = 1; ; q.Page++ {
		page, err := a.remote.Candidates().List(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
		if len(page.Items) == 0 || len(out) >= page.Total {
			return out, nil
		}
	}
}

func newCandidatesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the visible window of the candidate list",
		Long: `Loads every matching candidate and prints only the rows that fall in the
viewport at the given scroll position (see view.row_height,
view.viewport_height and view.overscan).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			search, _ := cmd.Flags().GetString("search")
			stage, _ := cmd.Flags().GetString("stage")
			jobID, _ := cmd.Flags().GetString("job")
			scroll, _ := cmd.Flags().GetFloat64("scroll")
			row, _ := cmd.Flags().GetInt("row")

			if stage != "" && !record.Stage(stage).Valid() {
				return fmt.Errorf("invalid stage %q", stage)
			}

			app, err := newClientApp()
			if err != nil {
				return err
			}
			defer app.Close()

			items, err := app.allCandidates(cmd.Context(), record.Query{
				Search: search,
				Stage:  record.Stage(stage),
				JobID:  jobID,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No candidates found.")
				return nil
			}

			vp := window.Viewport{
				RowHeight: app.cfg.View.RowHeight,
				Height:    app.cfg.View.ViewportHeight,
				Overscan:  app.cfg.View.Overscan,
			}
			if row > 0 {
				scroll = float64((row - 1) * vp.RowHeight)
			}
			rows, r := window.Render(items, vp, scroll)
			writeCandidateRows(out, rows)
			fmt.Fprintf(out, "\nrows %d-%d of %d (offset %dpx, height %dpx)\n", r.Start+1, r.End, len(items), r.Offset, r.TotalHeight)
			return nil
		},
	}
	cmd.Flags().String("search", "", "filter by name or email")
	cmd.Flags().String("stage", "", "filter by stage")
	cmd.Flags().String("job", "", "filter by job id")
	cmd.Flags().Float64("scroll", 0, "scroll offset in pixels")
	cmd.Flags().Int("row", 0, "scroll so that this 1-based row is at the top")
	return cmd
}

func newCandidatesShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <candidate-id>",
		Short: "Show a candidate with stage history and notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asHTML, _ := cmd.Flags().GetBool("html")

			app, err := newClientApp()
			if err != nil {
				return err
			}
			defer app.Close()

			c, err := app.remote.Candidates().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			writeCandidate(cmd.OutOrStdout(), c, asHTML)
			return nil
		},
	}
	cmd.Flags().Bool("html", false, "render notes as HTML with highlighted mentions")
	return cmd
}

func writeCandidate(w io.Writer, c record.Candidate, asHTML bool) {
	fmt.Fprintf(w, "%s <%s>\n", colorize(colorBold, c.Name), c.Email)
	fmt.Fprintf(w, "  id:    %s\n  stage: %s\n", c.ID, stageLabel(c.Stage))
	if c.JobID != "" {
		fmt.Fprintf(w, "  job:   %s\n", c.JobID)
	}

	if len(c.History) > 0 {
		fmt.Fprintln(w, "\nTimeline")
		for _, h := range c.History {
			fmt.Fprintf(w, "  %s  %s → %s\n", h.At.Format("2006-01-02 15:04"), h.From, h.To)
		}
	}

	if len(c.Notes) > 0 {
		fmt.Fprintln(w, "\nNotes")
		for _, n := range c.Notes {
			text := highlightMentions(n.Text)
			if asHTML {
				text = mention.RenderHTML(n.Text)
			}
			fmt.Fprintf(w, "  %s  %s\n", n.At.Format("2006-01-02 15:04"), text)
		}
	}
}

func highlightMentions(text string) string {
	var b strings.Builder
	pos := 0
	for _, m := range mention.Parse(text) {
		b.WriteString(text[pos:m.Start])
		b.WriteString(colorize(colorCyan, text[m.Start:m.End]))
		pos = m.End
	}
	b.WriteString(text[pos:])
	return b.String()
}

func newCandidatesStageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stage <candidate-id> <stage>",
		Short: "Move a candidate to another pipeline stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage := record.Stage(args[1])
			if !stage.Valid() {
				return fmt.Errorf("invalid stage %q", args[1])
			}

			ctx := cmd.Context()
			app, err := newClientApp()
			if err != nil {
				return err
			}
			defer app.Close()

			c, err := app.remote.Candidates().Get(ctx, args[0])
			if err != nil {
				return err
			}

			store := entity.NewStore[record.Candidate]("candidates", app.remote.Candidates().List, entity.WithHub(app.hub))
			defer store.Close()
			store.Replace(record.Page[record.Candidate]{Items: []record.Candidate{c}, Total: 1})

			coord := optimistic.NewCoordinator[record.Candidate, record.CandidatePatch](store, app.remote.Candidates(), app.hub.MutationFailed)
			if _, err := coord.Update(ctx, c.ID, record.CandidatePatch{Stage: &stage}); err != nil {
				return err
			}
			coord.Wait()

			if err := app.failure(); err != nil {
				return err
			}
			printSuccess("%s moved from %s to %s", c.Name, c.Stage, stage)
			return nil
		},
	}
}

func newCandidatesNoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note <candidate-id> <text>",
		Short: "Add a note; @Name mentions are linked to candidates",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newClientApp()
			if err != nil {
				return err
			}
			defer app.Close()

			text := strings.Join(args[1:], " ")
			note, err := app.remote.Candidates().Add(cmd.Context(), args[0], text)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), note.ID)
			if names := mention.Names(text); len(names) > 0 {
				printSuccess("Note added, resolving %s", strings.Join(names, ", "))
			} else {
				printSuccess("Note added")
			}
			return nil
		},
	}
}

func newCandidatesSuggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest <text>",
		Short: "Suggest candidate names for the @mention being typed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pick, _ := cmd.Flags().GetInt("pick")
			text := strings.Join(args, " ")

			app, err := newClientApp()
			if err != nil {
				return err
			}
			defer app.Close()

			all, err := app.allCandidates(cmd.Context(), record.Query{})
			if err != nil {
				return err
			}
			names := make([]string, len(all))
			for i, c := range all {
				names[i] = c.Name
			}

			out := cmd.OutOrStdout()
			suggestions := mention.Suggest(names, text)
			if pick > 0 {
				if pick > len(suggestions) {
					return fmt.Errorf("only %d suggestions", len(suggestions))
				}
				fmt.Fprintln(out, mention.Pick(text, suggestions[pick-1]))
				return nil
			}
			for i, s := range suggestions {
				fmt.Fprintf(out, "%d. %s\n", i+1, s)
			}
			return nil
		},
	}
	cmd.Flags().Int("pick", 0, "print the text completed with the n-th suggestion")
	return cmd
}

package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/talentflow/internal/bus"
	"github.com/kalambet/talentflow/internal/entity"
	"github.com/kalambet/talentflow/internal/optimistic"
	"github.com/kalambet/talentflow/internal/record"
)

func recordQuery(page, size int) record.Query {
	return record.Query{Page: page, PageSize: size}
}

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Browse and manage job postings",
	}
	cmd.AddCommand(
		newJobsListCmd(),
		newJobsCreateCmd(),
		newJobsArchiveCmd(),
		newJobsReorderCmd(),
		newJobsApplyCmd(),
	)
	return cmd
}

// jobStore returns an entity store over the remote job collection, loaded
// with q.
func (a *clientApp) jobStore(ctx context.Context, q record.Query) (*entity.Store[record.Job], error) {
	store := entity.NewStore[record.Job]("jobs", a.remote.Jobs().List, entity.WithHub(a.hub), entity.WithQuery(q))
	if err := store.Refresh(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func jobsQuery(cmd *cobra.Command, defaultSize int) (record.Query, error) {
	search, _ := cmd.Flags().GetString("search")
	status, _ := cmd.Flags().GetString("status")
	page, _ := cmd.Flags().GetInt("page")
	size, _ := cmd.Flags().GetInt("page-size")
	if size <= 0 {
		size = defaultSize
	}
	q := record.Query{Search: search, Status: record.JobStatus(status), Page: page, PageSize: size}
	switch q.Status {
	case "", record.JobActive, record.JobArchived:
	default:
		return q, fmt.Errorf("invalid status %q (want active or archived)", status)
	}
	return q.Normalize(), nil
}

func addPageFlags(cmd *cobra.Command) {
	cmd.Flags().String("search", "", "filter by title")
	cmd.Flags().String("status", "", "filter by status (active, archived)")
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("page-size", 0, "rows per page (default view.page_size)")
}

func newJobsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newClientApp()
			if err != nil {
				return err
			}
			defer app.Close()

			q, err := jobsQuery(cmd, app.cfg.View.PageSize)
			if err != nil {
				return err
			}
			store, err := app.jobStore(cmd.Context(), q)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if store.Len() == 0 {
				fmt.Fprintln(out, "No jobs found.")
				return nil
			}
			writeJobs(out, store.Items(), q.Offset())
			fmt.Fprintf(out, "\n%s  (%d jobs)\n", pagerLine(q.Page, store.Total(), q.PageSize), store.Total())
			return nil
		},
	}
	addPageFlags(cmd)
	return cmd
}

func newJobsCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a job posting",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, _ := cmd.Flags().GetStringSlice("tags")
			slug, _ := cmd.Flags().GetString("slug")

			app, err := newClientApp()
			if err != nil {
				return err
			}
			defer app.Close()

			job, err := app.remote.Jobs().Create(cmd.Context(), record.NewJob{
				Title: strings.Join(args, " "),
				Slug:  slug,
				Tags:  tags,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), job.ID)
			printSuccess("Created job %q (%s)", job.Title, job.Slug)
			return nil
		},
	}
	cmd.Flags().StringSlice("tags", nil, "comma-separated tags")
	cmd.Flags().String("slug", "", "URL slug (default derived from the title)")
	return cmd
}

func newJobsArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <job-id>",
		Short: "Toggle a job between active and archived",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := newClientApp()
			if err != nil {
				return err
			}
			defer app.Close()

			job, err := app.remote.Jobs().Get(ctx, args[0])
			if err != nil {
				return err
			}

			store := entity.NewStore[record.Job]("jobs", app.remote.Jobs().List, entity.WithHub(app.hub))
			defer store.Close()
			store.Replace(record.Page[record.Job]{Items: []record.Job{job}, Total: 1})

			coord := optimistic.NewCoordinator[record.Job, record.JobPatch](store, app.remote.Jobs(), app.hub.MutationFailed)
			next := job.Status.Toggle()
			if _, err := coord.Update(ctx, job.ID, record.JobPatch{Status: &next}); err != nil {
				return err
			}
			coord.Wait()

			if err := app.failure(); err != nil {
				return err
			}
			got, _ := store.Get(job.ID)
			printSuccess("Job %q is now %s", got.Title, got.Status)
			return nil
		},
	}
}

func newJobsReorderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reorder <from> <to>",
		Short: "Move the job at row <from> to row <to> of the current page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := parseRows(args[0], args[1])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := newClientApp()
			if err != nil {
				return err
			}
			defer app.Close()

			q, err := jobsQuery(cmd, app.cfg.View.PageSize)
			if err != nil {
				return err
			}
			store, err := app.jobStore(ctx, q)
			if err != nil {
				return err
			}
			defer store.Close()

			off := q.Offset()
			r := optimistic.NewReorderer[record.Job](store, app.remote.Jobs(), app.hub.MutationFailed)
			if err := r.Move(ctx, from-off-1, to-off-1); err != nil {
				if errors.Is(err, optimistic.ErrIndexOutOfRange) {
					return fmt.Errorf("rows must be between %d and %d", off+1, off+store.Len())
				}
				return err
			}
			r.Wait()

			if err := app.failure(); err != nil {
				return err
			}
			writeJobs(cmd.OutOrStdout(), store.Items(), off)
			return nil
		},
	}
	addPageFlags(cmd)
	return cmd
}

func parseRows(a, b string) (int, int, error) {
	var from, to int
	if _, err := fmt.Sscan(a, &from); err != nil {
		return 0, 0, fmt.Errorf("invalid row %q", a)
	}
	if _, err := fmt.Sscan(b, &to); err != nil {
		return 0, 0, fmt.Errorf("invalid row %q", b)
	}
	return from, to, nil
}

func newJobsApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <job-id>",
		Short: "Open an application for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			if name == "" || email == "" {
				return fmt.Errorf("--name and --email are required")
			}

			ctx := cmd.Context()
			app, err := newClientApp()
			if err != nil {
				return err
			}
			defer app.Close()

			job, err := app.remote.Jobs().Get(ctx, args[0])
			if err != nil {
				return err
			}
			if job.Status == record.JobArchived {
				return fmt.Errorf("job %q is archived", job.Title)
			}

			var (
				created  record.Candidate
				applyErr error
			)
			unsubscribe := app.hub.ApplyToJob.Subscribe(func(e bus.ApplyToJob) {
				created, applyErr = app.remote.Candidates().Create(ctx, record.NewCandidate{
					Name:  name,
					Email: email,
					JobID: e.JobID,
				})
			})
			defer unsubscribe()

			app.hub.ApplyToJob.Publish(bus.ApplyToJob{JobID: job.ID, JobTitle: job.Title})
			if applyErr != nil {
				return applyErr
			}
			fmt.Fprintln(cmd.OutOrStdout(), created.ID)
			printSuccess("%s applied to %q", created.Name, job.Title)
			return nil
		},
	}
	cmd.Flags().String("name", "", "applicant name")
	cmd.Flags().String("email", "", "applicant email")
	return cmd
}

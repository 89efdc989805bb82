package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/piwi3910/slabnest/internal/history"
	"github.com/piwi3910/slabnest/internal/model"
	"github.com/piwi3910/slabnest/internal/project"
)

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		limit int
		jobID string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded nesting jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(project.HistoryPath(root.config))
			if err != nil {
				return fmt.Errorf("opening history: %w", err)
			}
			defer store.Close()

			ctx := cmd.Context()
			if jobID != "" {
				job, err := store.Get(ctx, jobID)
				if err != nil {
					return err
				}
				sheets, err := store.Sheets(ctx, jobID)
				if err != nil {
					return err
				}
				return printJob(cmd.OutOrStdout(), job, sheets)
			}

			jobs, err := store.List(ctx, limit)
			if err != nil {
				return err
			}
			return printJobs(cmd.OutOrStdout(), jobs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to list, 0 for all")
	cmd.Flags().StringVar(&jobID, "job", "", "Show the sheets of one job")
	return cmd
}

func printJobs(out io.Writer, jobs []history.JobSummary) error {
	if len(jobs) == 0 {
		fmt.Fprintln(out, "No jobs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tDURATION\tSHEETS\tPLACED\tUNPLACED\tUTILIZATION\tCRITERION\tERROR")
	fmt.Fprintln(w, "--\t-------\t--------\t------\t------\t--------\t-----------\t---------\t-----")
	for _, j := range jobs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%.1f%%\t%s\t%s\n",
			j.ID,
			j.StartedAt.Local().Format(time.DateTime),
			j.Duration().Round(time.Millisecond),
			j.Sheets,
			j.Placed,
			j.Unplaced,
			j.Utilization,
			j.Criterion,
			j.Error,
		)
	}
	return w.Flush()
}

func printJob(out io.Writer, job history.JobSummary, sheets []model.SheetSummary) error {
	fmt.Fprintf(out, "Job %s started %s, %d attempt(s), criterion %s\n",
		job.ID, job.StartedAt.Local().Format(time.DateTime), job.Attempts, job.Criterion)
	if job.Error != "" {
		fmt.Fprintf(out, "Stopped early: %s\n", job.Error)
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SHEET\tATTEMPT\tSIZE\tOBJECTS\tOBJECT AREA\tUTILIZATION")
	fmt.Fprintln(w, "-----\t-------\t----\t-------\t-----------\t-----------")
	for _, s := range sheets {
		fmt.Fprintf(w, "%d\t%d\t%.2f x %.2f\t%d\t%.2f\t%.1f%%\n",
			s.Index, s.Attempt, s.Width, s.Height, s.ObjectCount, s.ObjectArea, s.Utilization*100)
	}
	return w.Flush()
}

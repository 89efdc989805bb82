package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/piwi3910/slabnest/internal/nesting"
)

func newCompareCmd(root *rootOptions) *cobra.Command {
	flags := &jobFlags{}
	cmd := &cobra.Command{
		Use:   "compare [job.yaml]",
		Short: "Nest a job under alternative parameter sets and compare the results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job, warnings, err := flags.build(cmd, root.config, args)
			for _, w := range warnings {
				root.component("cli").Warn(w)
			}
			if err != nil {
				return err
			}

			scenarios := nesting.BuildDefaultScenarios(job.Params)
			results := nesting.CompareScenarios(cmd.Context(), flags.engine(root), job, scenarios,
				nesting.WithLogger(root.component("nesting")))
			return printComparison(cmd.OutOrStdout(), results)
		},
	}
	flags.register(cmd)
	return cmd
}

func printComparison(out io.Writer, results []nesting.ComparisonResult) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCENARIO\tSHEETS\tPLACED\tUNPLACED\tWASTE")
	fmt.Fprintln(w, "--------\t------\t------\t--------\t-----")

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\terror: %v\n", r.Scenario.Name, r.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.1f%%\n",
			r.Scenario.Name, r.SheetsUsed, r.PlacedCount, r.UnplacedCount, r.WastePercent)
	}
	return w.Flush()
}

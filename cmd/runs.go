package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/sabrinalaillita/fpg-strl/internal/report"
	"github.com/spf13/cobra"
)

var (
	runsFormat string
	runsKind   string
	runsTop    int
	runsOutput string
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved analysis runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := activeConfig().RunsDir
		list, err := report.List(dir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintf(out, "No saved runs in %s\n", dir)
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCREATED\tNAME\tSTATUS\tTRANSACTIONS\tITEMSETS\tRULES")
		for _, s := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n", shortID(s.ID), s.CreatedAt.Local().Format("2006-01-02 15:04"),
				s.Name, s.Status, s.Transactions, s.Itemsets, s.Rules)
		}
		return tw.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved run by id or unique id prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := normalizeFormat(runsFormat, "markdown", "json", "csv")
		if err != nil {
			return err
		}
		run, err := report.Find(activeConfig().RunsDir, args[0])
		if err != nil {
			return err
		}
		out, err := renderRun(run, format, runsKind, runsTop)
		if err != nil {
			return err
		}
		return writeOutput(cmd, runsOutput, out, "run")
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsShowCmd.Flags().StringVarP(&runsFormat, "format", "f", "markdown", "output format: markdown | json | csv")
	runsShowCmd.Flags().StringVar(&runsKind, "table", report.KindRules, "csv table: itemsets | rules")
	runsShowCmd.Flags().IntVar(&runsTop, "top", 50, "markdown: rows shown per table (0 = all)")
	runsShowCmd.Flags().StringVarP(&runsOutput, "output", "o", "", "optional path to write the run")
}

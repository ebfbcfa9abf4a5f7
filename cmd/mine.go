package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sabrinalaillita/fpg-strl/internal/analysis"
	"github.com/sabrinalaillita/fpg-strl/internal/mining"
	"github.com/sabrinalaillita/fpg-strl/internal/report"
	"github.com/sabrinalaillita/fpg-strl/internal/utils"
	"github.com/spf13/cobra"
)

var (
	mineTable   tableFlags
	mineParams  paramFlags
	mineOutput  string
	mineFormat  string
	mineKind    string
	mineTop     int
	mineSave    bool
	mineTimeout time.Duration
)

var mineCmd = &cobra.Command{
	Use:   "mine <file>",
	Short: "Mine frequent itemsets and association rules from a sales export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := normalizeFormat(mineFormat, "markdown", "json", "csv")
		if err != nil {
			return err
		}
		opt, err := mineTable.options(cmd)
		if err != nil {
			return err
		}
		params, err := mineParams.params(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if mineTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, mineTimeout)
			defer cancel()
		}

		run, ds, err := mineFile(ctx, args[0], opt, params)
		if err != nil {
			return err
		}
		printWarnings(cmd, ds)

		out, err := renderRun(run, format, mineKind, mineTop)
		if err != nil {
			return err
		}
		if err := writeOutput(cmd, mineOutput, out, "analysis"); err != nil {
			return err
		}
		if mineSave {
			path, err := run.Save(activeConfig().RunsDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved run %s to %s\n", run.ID, path)
		}
		return nil
	},
}

// mineFile loads and cleans path, then runs the mining pipeline on it.
func mineFile(ctx context.Context, path string, opt analysis.Options, params mining.Params) (*report.Run, *analysis.Dataset, error) {
	ds, err := analysis.LoadTransactions(path, opt)
	if err != nil {
		return nil, nil, err
	}
	if len(ds.Transactions) == 0 {
		return nil, ds, fmt.Errorf("%s: %w: no transactions left after cleaning", ds.Name, mining.ErrInvalidInput)
	}
	slog.Debug("transactions loaded", "file", ds.Name, "rows", ds.Rows, "transactions", len(ds.Transactions), "dropped", ds.Dropped)

	start := time.Now()
	res, err := mining.Analyze(ctx, ds.Transactions, params)
	if err != nil {
		return nil, ds, fmt.Errorf("%s: %w", ds.Name, err)
	}
	slog.Debug("mining done", "file", ds.Name, "min_count", res.MinCount, "itemsets", len(res.Itemsets),
		"rules", len(res.Rules), "status", res.Status, "elapsed", time.Since(start))

	run := report.NewRun(path, params, res)
	run.Summary = analysis.Summarize(ds, 10)
	return run, ds, nil
}

// renderRun formats run as markdown, json, or a csv table of kind.
func renderRun(run *report.Run, format, kind string, top int) ([]byte, error) {
	switch format {
	case "json":
		b, err := utils.PrettyJSON(run)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case "csv":
		var buf bytes.Buffer
		if err := run.WriteCSV(&buf, kind); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return []byte(run.Markdown(top)), nil
	}
}

func init() {
	rootCmd.AddCommand(mineCmd)
	mineTable.register(mineCmd.Flags())
	mineParams.register(mineCmd.Flags())
	mineCmd.Flags().StringVarP(&mineOutput, "output", "o", "", "optional path to write the report")
	mineCmd.Flags().StringVarP(&mineFormat, "format", "f", "markdown", "output format: markdown | json | csv")
	mineCmd.Flags().StringVar(&mineKind, "table", report.KindRules, "csv table: itemsets | rules")
	mineCmd.Flags().IntVar(&mineTop, "top", 50, "markdown: rows shown per table (0 = all)")
	mineCmd.Flags().BoolVar(&mineSave, "save", false, "save the run to the runs directory")
	mineCmd.Flags().DurationVar(&mineTimeout, "timeout", 0, "abort mining after this duration (0 = none)")
}

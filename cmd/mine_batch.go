package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sabrinalaillita/fpg-strl/internal/report"
	"github.com/sabrinalaillita/fpg-strl/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	mbTable  tableFlags
	mbParams paramFlags
	mbJobs   int
	mbOutDir string
	mbTop    int
	mbNoSave bool
	mbQuiet  bool
)

var mineBatchCmd = &cobra.Command{
	Use:   "mine-batch <files...>",
	Short: "Mine multiple CSV/TSV/XLSX exports concurrently and save each run",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		opt, err := mbTable.options(cmd)
		if err != nil {
			return err
		}
		params, err := mbParams.params(cmd)
		if err != nil {
			return err
		}
		if mbJobs < 1 {
			return fmt.Errorf("--jobs must be at least 1")
		}
		runsDir := activeConfig().RunsDir
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		var mu sync.Mutex
		out := cmd.OutOrStdout()
		logf := func(format string, a ...any) {
			if mbQuiet {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintf(out, format, a...)
		}

		runs := make([]*report.Run, len(files))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(mbJobs)
		total := len(files)
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				logf("[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
				run, ds, err := mineFile(gctx, path, opt, params)
				if ds != nil && !mbQuiet {
					mu.Lock()
					printWarnings(cmd, ds)
					mu.Unlock()
				}
				if err != nil {
					return err
				}
				if mbOutDir != "" {
					base := filepath.Base(path)
					md := filepath.Join(mbOutDir, strings.TrimSuffix(base, filepath.Ext(base))+".mba.md")
					if err := utils.EnsureDir(mbOutDir); err != nil {
						return err
					}
					if err := utils.SafeWriteFile(md, []byte(run.Markdown(mbTop))); err != nil {
						return fmt.Errorf("write report: %w", err)
					}
				}
				if !mbNoSave {
					if _, err := run.Save(runsDir); err != nil {
						return err
					}
				}
				runs[i] = run
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for _, run := range runs {
			logf("✓ %s: %d transactions, %d itemsets, %d rules (%s)\n", run.Name, run.Transactions, len(run.Itemsets), len(run.Rules), shortID(run.ID))
		}
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(mineBatchCmd)
	mbTable.register(mineBatchCmd.Flags())
	mbParams.register(mineBatchCmd.Flags())
	mineBatchCmd.Flags().IntVarP(&mbJobs, "jobs", "j", 4, "number of files mined concurrently")
	mineBatchCmd.Flags().StringVar(&mbOutDir, "out-dir", "", "also write a Markdown report per file to this directory")
	mineBatchCmd.Flags().IntVar(&mbTop, "top", 50, "markdown: rows shown per table (0 = all)")
	mineBatchCmd.Flags().BoolVar(&mbNoSave, "no-save", false, "do not save runs to the runs directory")
	mineBatchCmd.Flags().BoolVar(&mbQuiet, "quiet", false, "suppress progress and non-essential output")
}

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sabrinalaillita/fpg-strl/internal/analysis"
	"github.com/sabrinalaillita/fpg-strl/internal/mining"
	"github.com/sabrinalaillita/fpg-strl/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// tableFlags select and clean the columns of an input export.
type tableFlags struct {
	delimiter  string
	txColumn   string
	itemColumn string
	statusCol  string
	qtyColumn  string
	exclude    []string
	lowercase  bool
	maxRows    int
	sheetName  string
	sheetIndex int
}

func (f *tableFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	fs.StringVar(&f.txColumn, "tx-col", "", "transaction id column (auto-detect if omitted)")
	fs.StringVar(&f.itemColumn, "item-col", "", "item column (auto-detect if omitted)")
	fs.StringVar(&f.statusCol, "status-col", "", "status column used to drop unpaid/returned lines (auto-detect if omitted)")
	fs.StringVar(&f.qtyColumn, "qty-col", "", "quantity column; rows with quantity <= 0 are dropped (auto-detect if omitted)")
	fs.StringSliceVar(&f.exclude, "exclude-status", nil, "status values to drop (overrides config, repeatable)")
	fs.BoolVar(&f.lowercase, "lowercase", true, "lowercase item names (overrides config; --lowercase=false keeps casing)")
	fs.IntVar(&f.maxRows, "max-rows", 0, "maximum rows to process (0 = unlimited)")
	fs.StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	fs.IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
}

func (f *tableFlags) options(cmd *cobra.Command) (analysis.Options, error) {
	opt := activeConfig().LoadOptions()
	switch f.delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", f.delimiter)
	}
	opt.TransactionColumn = f.txColumn
	opt.ItemColumn = f.itemColumn
	opt.StatusColumn = f.statusCol
	opt.QuantityColumn = f.qtyColumn
	if cmd.Flags().Changed("exclude-status") {
		opt.ExcludeStatuses = f.exclude
	}
	if cmd.Flags().Changed("lowercase") {
		opt.Lowercase = f.lowercase
	}
	if f.maxRows < 0 {
		return opt, fmt.Errorf("--max-rows must not be negative")
	}
	opt.MaxRows = f.maxRows
	opt.SheetName = f.sheetName
	opt.SheetIndex = f.sheetIndex
	return opt, nil
}

// paramFlags override the configured mining thresholds.
type paramFlags struct {
	minSupport    float64
	minConfidence float64
	minLift       float64
	maxLen        int
	maxItemsets   int
	maxRules      int
}

func (f *paramFlags) register(fs *pflag.FlagSet) {
	d := mining.DefaultParams()
	fs.Float64VarP(&f.minSupport, "min-support", "s", d.MinSupport, "minimum itemset support in (0, 1] (overrides config)")
	fs.Float64VarP(&f.minConfidence, "min-confidence", "c", d.MinConfidence, "minimum rule confidence in [0, 1] (overrides config)")
	fs.Float64VarP(&f.minLift, "min-lift", "l", d.MinLift, "minimum rule lift (overrides config)")
	fs.IntVar(&f.maxLen, "max-len", 0, "maximum itemset size (0 = unlimited)")
	fs.IntVar(&f.maxItemsets, "max-itemsets", d.MaxItemsets, "abort when more itemsets are found (0 = no limit)")
	fs.IntVar(&f.maxRules, "max-rules", d.MaxRules, "abort when more rules are found (0 = no limit)")
}

// params starts from config and applies only the flags the user set.
func (f *paramFlags) params(cmd *cobra.Command) (mining.Params, error) {
	p := activeConfig().Params()
	fl := cmd.Flags()
	if fl.Changed("min-support") {
		p.MinSupport = f.minSupport
	}
	if fl.Changed("min-confidence") {
		p.MinConfidence = f.minConfidence
	}
	if fl.Changed("min-lift") {
		p.MinLift = f.minLift
	}
	if fl.Changed("max-len") {
		p.MaxLen = f.maxLen
	}
	if fl.Changed("max-itemsets") {
		p.MaxItemsets = f.maxItemsets
	}
	if fl.Changed("max-rules") {
		p.MaxRules = f.maxRules
	}
	return p, p.Validate()
}

// expandInputs resolves globs, keeping literal paths that exist, deduplicated
// and sorted.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// treat as literal path if exists
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// writeOutput prints data, or writes it atomically to path when set.
func writeOutput(cmd *cobra.Command, path string, data []byte, what string) error {
	if path == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("ensure output dir: %w", err)
		}
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s to %s\n", what, path)
	return nil
}

func printWarnings(cmd *cobra.Command, ds *analysis.Dataset) {
	for _, w := range ds.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %s: %s\n", ds.Name, w)
	}
}

func normalizeFormat(s string, allowed ...string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(s))
	if f == "md" {
		f = "markdown"
	}
	for _, a := range allowed {
		if f == a {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported --format: %s (use %s)", s, strings.Join(allowed, "|"))
}

package cmd

import (
	"github.com/sabrinalaillita/fpg-strl/internal/analysis"
	"github.com/sabrinalaillita/fpg-strl/internal/utils"
	"github.com/spf13/cobra"
)

var (
	edaTable  tableFlags
	edaTop    int
	edaFormat string
	edaOutput string
)

var edaCmd = &cobra.Command{
	Use:   "eda <file>",
	Short: "Summarize baskets and top items of a sales export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := normalizeFormat(edaFormat, "markdown", "json")
		if err != nil {
			return err
		}
		opt, err := edaTable.options(cmd)
		if err != nil {
			return err
		}
		ds, err := analysis.LoadTransactions(args[0], opt)
		if err != nil {
			return err
		}
		s := analysis.Summarize(ds, edaTop)
		var out []byte
		if format == "json" {
			b, err := utils.PrettyJSON(s)
			if err != nil {
				return err
			}
			out = append(b, '\n')
		} else {
			out = []byte(s.Markdown())
		}
		return writeOutput(cmd, edaOutput, out, "summary")
	},
}

func init() {
	rootCmd.AddCommand(edaCmd)
	edaTable.register(edaCmd.Flags())
	edaCmd.Flags().IntVar(&edaTop, "top", 10, "number of top items to list")
	edaCmd.Flags().StringVarP(&edaFormat, "format", "f", "markdown", "output format: markdown | json")
	edaCmd.Flags().StringVarP(&edaOutput, "output", "o", "", "optional path to write the summary")
}

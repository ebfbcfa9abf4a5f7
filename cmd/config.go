package cmd

import (
	"fmt"
	"strings"

	cfgpkg "github.com/sabrinalaillita/fpg-strl/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set fpg configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := activeConfig()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "min_support: %g\n", c.MinSupport)
		fmt.Fprintf(out, "min_confidence: %g\n", c.MinConfidence)
		fmt.Fprintf(out, "min_lift: %g\n", c.MinLift)
		fmt.Fprintf(out, "max_len: %d\n", c.MaxLen)
		fmt.Fprintf(out, "max_itemsets: %d\n", c.MaxItemsets)
		fmt.Fprintf(out, "max_rules: %d\n", c.MaxRules)
		fmt.Fprintf(out, "lowercase: %t\n", c.Lowercase)
		fmt.Fprintf(out, "exclude_statuses: %s\n", strings.Join(c.ExcludeStatuses, ", "))
		fmt.Fprintf(out, "runs_dir: %s\n", c.RunsDir)
		fmt.Fprintf(out, "server_addr: %s\n", c.ServerAddr)
		fmt.Fprintf(out, "allowed_origins: %s\n", strings.Join(c.AllowedOrigins, ", "))
		fmt.Fprintf(out, "max_upload_mb: %d\n", c.MaxUploadMB)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

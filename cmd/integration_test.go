package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sabrinalaillita/fpg-strl/internal/mining"
	"github.com/sabrinalaillita/fpg-strl/internal/report"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const salesCSV = `Transaction,Item,Qty,Status
t1,Bread,1,paid
t1,Butter,1,paid
t1,Jam,1,paid
t2,Bread,2,paid
t2,Butter,1,paid
t3,Bread,1,paid
t3,Jam,1,paid
t4,Bread,1,paid
t5,Butter,1,paid
t5,Jam,1,paid
t6,Milk,1,unpaid
t7,Milk,-1,paid
`

// runCmd is a helper to execute the root command with args.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

func execCmd(args ...string) (string, error) {
	// Reset sticky flags that may persist Changed state across invocations
	resetFlags(rootCmd)
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// setupHome isolates config and runs under a temp HOME and writes the
// sample export there.
func setupHome(t *testing.T) (home, csvPath string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	csvPath = filepath.Join(home, "sales.csv")
	if err := os.WriteFile(csvPath, []byte(salesCSV), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return home, csvPath
}

func savedRuns(t *testing.T, home string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(home, ".fpg", "runs", "*.json"))
	if err != nil {
		t.Fatalf("glob runs: %v", err)
	}
	return matches
}

func TestCLI_MineSaveListShow(t *testing.T) {
	home, csvPath := setupHome(t)

	out := runCmd(t, "mine", csvPath, "-s", "0.4", "--save")
	for _, want := range []string{
		"Transactions: 5, distinct items: 3, min count: 2",
		"[FREQUENT ITEMSETS] (6)",
		"[ASSOCIATION RULES] (2)",
		"| butter | jam |",
		"✓ Saved run",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("mine output missing %q:\n%s", want, out)
		}
	}

	runs := savedRuns(t, home)
	if len(runs) != 1 {
		t.Fatalf("saved runs = %v, want 1", runs)
	}
	id := strings.TrimSuffix(filepath.Base(runs[0]), ".json")

	list := runCmd(t, "runs", "list")
	if !strings.Contains(list, id[:8]) || !strings.Contains(list, "sales") {
		t.Fatalf("runs list missing run:\n%s", list)
	}

	csvOut := runCmd(t, "runs", "show", id[:8], "-f", "csv", "--table", "itemsets")
	if !strings.HasPrefix(csvOut, "itemsets,length,count,support\nbread,1,4,0.8\n") {
		t.Fatalf("unexpected itemsets csv:\n%s", csvOut)
	}

	if _, err := execCmd("runs", "show", "nope"); err == nil {
		t.Fatalf("expected error for unknown run")
	}
}

func TestCLI_MineJSONToFile(t *testing.T) {
	home, csvPath := setupHome(t)
	outPath := filepath.Join(home, "out", "report.json")

	out := runCmd(t, "mine", csvPath, "-s", "0.4", "-f", "json", "-o", outPath)
	if !strings.Contains(out, "✓ Wrote analysis to "+outPath) {
		t.Fatalf("missing write confirmation:\n%s", out)
	}
	b, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var run report.Run
	if err := json.Unmarshal(b, &run); err != nil {
		t.Fatalf("parse output: %v", err)
	}
	if run.Status != mining.StatusOK || len(run.Rules) != 2 || run.Summary == nil {
		t.Fatalf("unexpected run: status=%s rules=%d summary=%v", run.Status, len(run.Rules), run.Summary)
	}
	if run.Summary.Dropped["excluded status"] != 1 || run.Summary.Dropped["non-positive quantity"] != 1 {
		t.Fatalf("dropped = %v", run.Summary.Dropped)
	}
	if len(savedRuns(t, home)) != 0 {
		t.Fatalf("run saved without --save")
	}
}

func TestCLI_MineNoResultsIsNotAnError(t *testing.T) {
	_, csvPath := setupHome(t)
	out := runCmd(t, "mine", csvPath, "-s", "0.9")
	if !strings.Contains(out, "No itemset reaches min support 0.9") {
		t.Fatalf("missing empty notice:\n%s", out)
	}
}

func TestCLI_MineRejectsBadInput(t *testing.T) {
	home, csvPath := setupHome(t)
	if _, err := execCmd("mine", csvPath, "-s", "1.5"); !mining.IsInvalidInput(err) {
		t.Fatalf("err = %v, want invalid input", err)
	}
	if _, err := execCmd("mine", csvPath, "-f", "xml"); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
	empty := filepath.Join(home, "empty.csv")
	if err := os.WriteFile(empty, []byte("Transaction,Item,Status\nt1,A,void\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if _, err := execCmd("mine", empty); !mining.IsInvalidInput(err) {
		t.Fatalf("err = %v, want invalid input", err)
	}
	if _, err := execCmd("mine", csvPath, "-s", "0.2", "--max-itemsets", "3"); !mining.IsResourceExhausted(err) {
		t.Fatalf("err = %v, want resource exhausted", err)
	}
}

func TestCLI_MineBatch(t *testing.T) {
	home, csvPath := setupHome(t)
	data := filepath.Join(home, "data")
	if err := os.MkdirAll(data, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"north.csv", "south.csv"} {
		if err := os.WriteFile(filepath.Join(data, name), []byte(salesCSV), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	reports := filepath.Join(home, "reports")

	out := runCmd(t, "mine-batch", filepath.Join(data, "*.csv"), csvPath, "-s", "0.4", "-j", "2", "--out-dir", reports)
	for _, want := range []string{"[1/3] Processing", "[3/3] Processing", "✓ north:", "✓ south:", "✓ sales:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("batch output missing %q:\n%s", want, out)
		}
	}
	if got := len(savedRuns(t, home)); got != 3 {
		t.Fatalf("saved runs = %d, want 3", got)
	}
	for _, name := range []string{"north.mba.md", "south.mba.md", "sales.mba.md"} {
		if _, err := os.Stat(filepath.Join(reports, name)); err != nil {
			t.Fatalf("missing report %s: %v", name, err)
		}
	}

	if _, err := execCmd("mine-batch", filepath.Join(home, "missing", "*.csv")); err == nil {
		t.Fatalf("expected error when nothing matches")
	}
}

func TestCLI_EDA(t *testing.T) {
	_, csvPath := setupHome(t)
	out := runCmd(t, "eda", csvPath, "--top", "2")
	for _, want := range []string{"[DATASET SUMMARY]", "Transactions: 5", "| bread | 4 | 80.0% |", "[CLEANING]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("eda output missing %q:\n%s", want, out)
		}
	}
	out = runCmd(t, "eda", csvPath, "--lowercase=false", "-f", "json")
	if !strings.Contains(out, `"item": "Bread"`) {
		t.Fatalf("json summary should keep casing:\n%s", out)
	}
}

func TestCLI_LowercaseFlagOverridesConfig(t *testing.T) {
	_, csvPath := setupHome(t)
	runCmd(t, "config", "set", "lowercase", "false")

	out := runCmd(t, "eda", csvPath, "-f", "json")
	if !strings.Contains(out, `"item": "Bread"`) {
		t.Fatalf("configured casing not applied:\n%s", out)
	}
	out = runCmd(t, "eda", csvPath, "--lowercase", "-f", "json")
	if !strings.Contains(out, `"item": "bread"`) || strings.Contains(out, `"item": "Bread"`) {
		t.Fatalf("--lowercase should override config:\n%s", out)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home, csvPath := setupHome(t)

	runCmd(t, "config", "set", "min_support", "0.4")
	if _, err := os.Stat(filepath.Join(home, ".fpg", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}
	show := runCmd(t, "config", "show")
	if !strings.Contains(show, "min_support: 0.4") {
		t.Fatalf("config show:\n%s", show)
	}
	out := runCmd(t, "mine", csvPath)
	if !strings.Contains(out, "min count: 2") {
		t.Fatalf("configured min support not applied:\n%s", out)
	}
	if _, err := execCmd("config", "set", "api_key", "x"); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sabrinalaillita/fpg-strl/internal/analysis"
	"github.com/sabrinalaillita/fpg-strl/internal/mining"
	"github.com/sabrinalaillita/fpg-strl/internal/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Mining thresholds
	MinSupport    float64 `mapstructure:"min_support" yaml:"min_support"`
	MinConfidence float64 `mapstructure:"min_confidence" yaml:"min_confidence"`
	MinLift       float64 `mapstructure:"min_lift" yaml:"min_lift"`
	MaxLen        int     `mapstructure:"max_len" yaml:"max_len"`
	MaxItemsets   int     `mapstructure:"max_itemsets" yaml:"max_itemsets"`
	MaxRules      int     `mapstructure:"max_rules" yaml:"max_rules"`

	// Cleaning
	Lowercase       bool     `mapstructure:"lowercase" yaml:"lowercase"`
	ExcludeStatuses []string `mapstructure:"exclude_statuses" yaml:"exclude_statuses"`

	RunsDir        string   `mapstructure:"runs_dir" yaml:"runs_dir"`
	ServerAddr     string   `mapstructure:"server_addr" yaml:"server_addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	// Upload size cap for the HTTP API, in MiB.
	MaxUploadMB int `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

// Default returns the built-in configuration, before file and env overrides.
func Default() *Global {
	def := mining.DefaultParams()
	return &Global{
		MinSupport:      def.MinSupport,
		MinConfidence:   def.MinConfidence,
		MinLift:         def.MinLift,
		MaxLen:          def.MaxLen,
		MaxItemsets:     def.MaxItemsets,
		MaxRules:        def.MaxRules,
		Lowercase:       true,
		ExcludeStatuses: analysis.DefaultExcludeStatuses(),
		ServerAddr:      ":8001",
		AllowedOrigins:  []string{"*"},
		MaxUploadMB:     32,
	}
}

// Params returns the mining parameters configured in c.
func (c *Global) Params() mining.Params {
	return mining.Params{
		MinSupport:    c.MinSupport,
		MinConfidence: c.MinConfidence,
		MinLift:       c.MinLift,
		MaxLen:        c.MaxLen,
		MaxItemsets:   c.MaxItemsets,
		MaxRules:      c.MaxRules,
	}
}

// LoadOptions returns table cleaning options seeded from c.
func (c *Global) LoadOptions() analysis.Options {
	opt := analysis.DefaultOptions()
	opt.Lowercase = c.Lowercase
	opt.ExcludeStatuses = append([]string(nil), c.ExcludeStatuses...)
	return opt
}

// Set assigns a single key from its string form. Keys match the YAML names.
func (c *Global) Set(key, val string) error {
	switch key {
	case "min_support", "min_confidence", "min_lift":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid float for %s: %v", key, val)
		}
		if key != "min_lift" && f > 1 {
			return fmt.Errorf("%s must be within [0, 1]: %v", key, val)
		}
		switch key {
		case "min_support":
			if f == 0 {
				return fmt.Errorf("min_support must be greater than 0")
			}
			c.MinSupport = f
		case "min_confidence":
			c.MinConfidence = f
		default:
			c.MinLift = f
		}
	case "max_len", "max_itemsets", "max_rules", "max_upload_mb":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		switch key {
		case "max_len":
			c.MaxLen = i
		case "max_itemsets":
			c.MaxItemsets = i
		case "max_rules":
			c.MaxRules = i
		default:
			c.MaxUploadMB = i
		}
	case "lowercase":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for lowercase: %v", val)
		}
		c.Lowercase = b
	case "exclude_statuses":
		c.ExcludeStatuses = splitList(val)
	case "allowed_origins":
		c.AllowedOrigins = splitList(val)
	case "runs_dir":
		c.RunsDir = val
	case "server_addr":
		c.ServerAddr = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func splitList(val string) []string {
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.fpg/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := utils.AppDir()
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("FPG")
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("min_support", d.MinSupport)
	v.SetDefault("min_confidence", d.MinConfidence)
	v.SetDefault("min_lift", d.MinLift)
	v.SetDefault("max_len", d.MaxLen)
	v.SetDefault("max_itemsets", d.MaxItemsets)
	v.SetDefault("max_rules", d.MaxRules)
	v.SetDefault("lowercase", d.Lowercase)
	v.SetDefault("exclude_statuses", d.ExcludeStatuses)
	v.SetDefault("server_addr", d.ServerAddr)
	v.SetDefault("allowed_origins", d.AllowedOrigins)
	v.SetDefault("max_upload_mb", d.MaxUploadMB)
	// registered so FPG_RUNS_DIR is seen by Unmarshal
	v.SetDefault("runs_dir", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := utils.AppDir()
		if err != nil {
			return nil, err
		}
		_ = utils.EnsureDir(dir)
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve runs_dir default: ~/.fpg/runs
	if c.RunsDir == "" {
		dir, err := utils.AppDir()
		if err != nil {
			return nil, err
		}
		c.RunsDir = filepath.Join(dir, "runs")
	}
	runs, err := utils.ExpandHome(c.RunsDir)
	if err != nil {
		return nil, err
	}
	c.RunsDir = runs
	return &c, nil
}

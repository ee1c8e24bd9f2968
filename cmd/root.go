package cmd

import (
	"fmt"
	"os"

	cfgpkg "github.com/KaramelBytes/recipetrends/internal/config"
	"github.com/KaramelBytes/recipetrends/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "recipetrends",
	Short: "Recipe trends: temporal and categorical analytics over recipe datasets",
	Long: `recipetrends groups recipe records by year, season or weekday/weekend and
reports weighted trends, significance tests and ingredient/tag frequency shifts.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.recipetrends/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace|debug|info|warn|error|disabled (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console|json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so read-only commands still work
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c

	lc := cfg.Logging()
	if logLevel != "" {
		lc.Level = logLevel
	}
	if logFormat != "" {
		lc.Format = logFormat
	}
	logging.Init(lc)
}

// loadedConfig returns the loaded configuration, loading it on first use when
// commands run without cobra initialization (tests).
func loadedConfig() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}

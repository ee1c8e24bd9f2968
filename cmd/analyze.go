package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/recipetrends/internal/dataset"
	"github.com/KaramelBytes/recipetrends/internal/logging"
	"github.com/KaramelBytes/recipetrends/internal/trends"
	"github.com/KaramelBytes/recipetrends/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaFlags      inputFlags
	anaOutputPath string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a recipe dataset (CSV/TSV/JSONL/XLSX) and report trends",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := anaFlags.extension(); err != nil {
			return err
		}
		rep, err := analyzeFile(args[0], &anaFlags)
		if err != nil {
			return err
		}
		out, err := render(rep, anaFlags.format)
		if err != nil {
			return err
		}
		if anaOutputPath != "" {
			if err := utils.SafeWriteFile(anaOutputPath, out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote analysis to %s\n", anaOutputPath)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

// analyzeFile loads path and runs every configured pair over it.
func analyzeFile(path string, f *inputFlags) (*trends.Report, error) {
	lopt, err := f.loadOptions()
	if err != nil {
		return nil, err
	}
	opts, err := f.analysisOptions()
	if err != nil {
		return nil, err
	}
	log := logging.Logger()
	opts.Logger = log

	start := time.Now()
	records, err := dataset.Load(path, lopt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	log.Debug().Str("file", path).Int("records", len(records)).Dur("elapsed", time.Since(start)).Msg("dataset loaded")

	rep, err := trends.Run(records, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	rep.Source = path
	return rep, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	anaFlags.register(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputPath, "output", "o", "", "optional path to write the report")
}

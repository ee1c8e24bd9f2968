package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/KaramelBytes/recipetrends/internal/logging"
	"github.com/KaramelBytes/recipetrends/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	abFlags   inputFlags
	abOutDir  string
	abWorkers int
	abQuiet   bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple recipe datasets concurrently and write one report per file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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
			return fmt.Errorf("no input files matched")
		}
		sort.Strings(files)

		ext, err := abFlags.extension()
		if err != nil {
			return err
		}
		if abOutDir == "" {
			return fmt.Errorf("--out-dir is required")
		}
		if err := utils.EnsureDir(abOutDir); err != nil {
			return err
		}
		workers := loadedConfig().BatchWorkers
		if abWorkers > 0 {
			workers = abWorkers
		}

		outputs := outputNames(abOutDir, files, ext)

		log := logging.Logger()
		out := cmd.OutOrStdout()
		var (
			mu   sync.Mutex
			done int
		)
		total := len(files)
		g, gCtx := errgroup.WithContext(cmd.Context())
		g.SetLimit(workers)
		for i, path := range files {
			i, path := i, path
			g.Go(func() error {
				// Skip files not yet started once another one failed.
				if err := gCtx.Err(); err != nil {
					return err
				}
				rep, err := analyzeFile(path, &abFlags)
				if err != nil {
					return err
				}
				body, err := render(rep, abFlags.format)
				if err != nil {
					return err
				}
				if err := utils.SafeWriteFile(outputs[i], body); err != nil {
					return fmt.Errorf("write %s: %w", outputs[i], err)
				}
				log.Debug().Str("file", path).Str("output", outputs[i]).Int("failures", rep.Failures()).Msg("report written")

				mu.Lock()
				defer mu.Unlock()
				done++
				if !abQuiet {
					fmt.Fprintf(out, "[%d/%d] %s → %s\n", done, total, filepath.Base(path), filepath.Base(outputs[i]))
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		if !abQuiet {
			fmt.Fprintf(out, "✓ Wrote %d reports to %s\n", total, abOutDir)
		}
		return nil
	},
}

// outputNames maps each input to a distinct report path in dir. Repeated
// basenames get a __N suffix, skipping names already taken.
func outputNames(dir string, files []string, ext string) []string {
	out := make([]string, len(files))
	used := make(map[string]bool, len(files))
	for i, path := range files {
		name := utils.OutputName(dir, path, ext)
		stem := name[:len(name)-len(ext)]
		for n := 2; used[name]; n++ {
			name = fmt.Sprintf("%s__%d%s", stem, n, ext)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abFlags.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory for the per-file reports")
	analyzeBatchCmd.Flags().IntVar(&abWorkers, "workers", 0, "files analyzed concurrently (default from config batch_workers)")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}

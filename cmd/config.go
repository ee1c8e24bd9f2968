package cmd

import (
	"fmt"
	"sort"

	cfgpkg "github.com/KaramelBytes/recipetrends/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set recipetrends configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := loadedConfig()
		out := cmd.OutOrStdout()
		for _, k := range cfgpkg.Keys {
			v, err := c.Get(k)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
		names := make([]string, 0, len(c.Labels))
		for name := range c.Labels {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "labels.%s: %s\n", name, c.Labels[name])
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long:  "Set a config value and save to disk. Display labels are set with labels.<name>.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := loadedConfig()
		if err := c.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cfgpkg.Default()
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = c
		path := cfgFile
		if path == "" {
			p, err := cfgpkg.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote default config to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
}

package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/recipetrends/internal/analysis"
	"github.com/KaramelBytes/recipetrends/internal/utils"
	"github.com/spf13/cobra"
)

var (
	fitX    string
	fitY    string
	fitW    string
	fitJSON bool
)

var fitCmd = &cobra.Command{
	Use:     "fit",
	Short:   "Fit a weighted linear trend to comma-separated x, y and weights",
	Example: `  recipetrends fit --x 2001,2002,2003 --y 30,25,20 --w 9,21,30`,
	RunE: func(cmd *cobra.Command, args []string) error {
		x, err := parseFloats("x", fitX)
		if err != nil {
			return err
		}
		y, err := parseFloats("y", fitY)
		if err != nil {
			return err
		}
		w := analysis.UniformWeights(len(x))
		if fitW != "" {
			if w, err = parseFloats("w", fitW); err != nil {
				return err
			}
		}
		res, err := analysis.Fit(x, y, w)
		if err != nil && !errors.Is(err, analysis.ErrUndefinedBias) {
			return err
		}
		out := cmd.OutOrStdout()
		if fitJSON {
			b, jerr := utils.PrettyJSON(res)
			if jerr != nil {
				return jerr
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintf(out, "slope: %.6g (unweighted %.6g)\n", res.Slope, res.SlopeUnweighted)
		fmt.Fprintf(out, "intercept: %.6g (unweighted %.6g)\n", res.Intercept, res.InterceptUnweighted)
		fmt.Fprintf(out, "r2: %.4f (unweighted %.4f)\n", res.R2Weighted, res.R2Unweighted)
		fmt.Fprintf(out, "p_value: %.4g  std_err: %.4g  n: %d\n", res.PValue, res.StdErr, res.N)
		if res.BiasDefined {
			fmt.Fprintf(out, "bias: %.2f%%\n", res.BiasPct)
		} else {
			fmt.Fprintln(out, "bias: undefined (unweighted slope is zero)")
		}
		return nil
	},
}

func parseFloats(name, s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("--%s is required", name)
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number in --%s: %q", name, p)
		}
		out = append(out, v)
	}
	return out, nil
}

func init() {
	rootCmd.AddCommand(fitCmd)
	fitCmd.Flags().StringVar(&fitX, "x", "", "comma-separated predictor values")
	fitCmd.Flags().StringVar(&fitY, "y", "", "comma-separated response values")
	fitCmd.Flags().StringVar(&fitW, "w", "", "comma-separated non-negative weights (default uniform)")
	fitCmd.Flags().BoolVar(&fitJSON, "json", false, "print the fit as JSON")
}

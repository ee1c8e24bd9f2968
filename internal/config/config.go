package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/recipetrends/internal/dataset"
	"github.com/KaramelBytes/recipetrends/internal/logging"
	"github.com/KaramelBytes/recipetrends/internal/recipe"
	"github.com/KaramelBytes/recipetrends/internal/trends"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	QuantileLow   float64  `mapstructure:"quantile_low" yaml:"quantile_low" validate:"gte=0,lt=1"`
	QuantileHigh  float64  `mapstructure:"quantile_high" yaml:"quantile_high" validate:"gt=0,lte=1,gtfield=QuantileLow"`
	MinOccurrence int      `mapstructure:"min_occurrence" yaml:"min_occurrence" validate:"gte=0"`
	TopK          int      `mapstructure:"top_k" yaml:"top_k" validate:"gte=0"`
	Alpha         float64  `mapstructure:"alpha" yaml:"alpha" validate:"gt=0,lt=1"`
	EqualVar      bool     `mapstructure:"equal_var" yaml:"equal_var"`
	Yates         bool     `mapstructure:"yates" yaml:"yates"`
	Dimensions    []string `mapstructure:"dimensions" yaml:"dimensions" validate:"min=1"`
	Families      []string `mapstructure:"families" yaml:"families" validate:"min=1"`

	// Input parsing
	ListSeparator string `mapstructure:"list_separator" yaml:"list_separator" validate:"required"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=trace debug info warn error disabled"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=console json"`

	// analyze-batch concurrency
	BatchWorkers int `mapstructure:"batch_workers" yaml:"batch_workers" validate:"min=1,max=64"`

	// Display names for dimensions, families and metrics in Markdown output.
	Labels map[string]string `mapstructure:"labels" yaml:"labels,omitempty"`
}

// Keys lists the scalar keys accepted by Set, in display order.
var Keys = []string{
	"quantile_low", "quantile_high", "min_occurrence", "top_k", "alpha",
	"equal_var", "yates", "dimensions", "families", "list_separator",
	"log_level", "log_format", "batch_workers",
}

var validate = validator.New()

func setDefaults(v *viper.Viper) {
	v.SetDefault("quantile_low", 0.25)
	v.SetDefault("quantile_high", 0.75)
	v.SetDefault("min_occurrence", 10)
	v.SetDefault("top_k", 10)
	v.SetDefault("alpha", 0.05)
	v.SetDefault("equal_var", true)
	v.SetDefault("yates", false)
	v.SetDefault("dimensions", dimensionNames())
	v.SetDefault("families", familyNames())
	v.SetDefault("list_separator", "|")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("batch_workers", 4)
	v.SetDefault("labels", map[string]string{})
}

// Default returns the configuration used when no file or environment
// overrides are present.
func Default() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

func dimensionNames() []string {
	out := make([]string, len(recipe.Dimensions))
	for i, d := range recipe.Dimensions {
		out[i] = string(d)
	}
	return out
}

func familyNames() []string {
	out := make([]string, len(recipe.Families))
	for i, f := range recipe.Families {
		out[i] = string(f)
	}
	return out
}

// DefaultPath is ~/.recipetrends/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".recipetrends", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to the default path, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
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
// Precedence: env > config file > defaults. A missing file is not an error.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("RECIPETRENDS")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".recipetrends"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks field constraints and that every dimension and family
// name is known.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s fails %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.dimensions(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.families(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Global) dimensions() ([]recipe.Dimension, error) {
	out := make([]recipe.Dimension, 0, len(c.Dimensions))
	for _, s := range c.Dimensions {
		d, err := recipe.ParseDimension(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (c *Global) families() ([]recipe.Family, error) {
	out := make([]recipe.Family, 0, len(c.Families))
	for _, s := range c.Families {
		f, err := recipe.ParseFamily(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// ToOptions builds the orchestrator options described by c.
func (c *Global) ToOptions() (trends.Options, error) {
	dims, err := c.dimensions()
	if err != nil {
		return trends.Options{}, err
	}
	fams, err := c.families()
	if err != nil {
		return trends.Options{}, err
	}
	o := trends.DefaultOptions()
	o.Dimensions = dims
	o.Families = fams
	o.Quantiles = [2]float64{c.QuantileLow, c.QuantileHigh}
	o.MinOccurrence = c.MinOccurrence
	o.TopK = c.TopK
	o.Alpha = c.Alpha
	o.EqualVar = c.EqualVar
	o.Yates = c.Yates
	o.Labels = c.Labels
	return o, o.Validate()
}

// LoadOptions builds the dataset loading options described by c.
func (c *Global) LoadOptions() dataset.LoadOptions {
	o := dataset.DefaultLoadOptions()
	if c.ListSeparator != "" {
		o.ListSeparator = c.ListSeparator
	}
	return o
}

// Logging builds the logger configuration described by c.
func (c *Global) Logging() logging.Config {
	return logging.Config{Level: c.LogLevel, Format: c.LogFormat}
}

// Set assigns a scalar key from its string form. Labels are set with
// "labels.<name>".
func (c *Global) Set(key, val string) error {
	if name, ok := strings.CutPrefix(key, "labels."); ok && name != "" {
		if c.Labels == nil {
			c.Labels = map[string]string{}
		}
		c.Labels[name] = val
		return nil
	}
	var err error
	switch key {
	case "quantile_low":
		c.QuantileLow, err = strconv.ParseFloat(val, 64)
	case "quantile_high":
		c.QuantileHigh, err = strconv.ParseFloat(val, 64)
	case "min_occurrence":
		c.MinOccurrence, err = strconv.Atoi(val)
	case "top_k":
		c.TopK, err = strconv.Atoi(val)
	case "alpha":
		c.Alpha, err = strconv.ParseFloat(val, 64)
	case "equal_var":
		c.EqualVar, err = strconv.ParseBool(val)
	case "yates":
		c.Yates, err = strconv.ParseBool(val)
	case "dimensions":
		c.Dimensions = splitCSV(val)
	case "families":
		c.Families = splitCSV(val)
	case "list_separator":
		c.ListSeparator = val
	case "log_level":
		c.LogLevel = strings.ToLower(val)
	case "log_format":
		c.LogFormat = strings.ToLower(val)
	case "batch_workers":
		c.BatchWorkers, err = strconv.Atoi(val)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q", key, val)
	}
	return c.Validate()
}

// Get returns the string form of a key accepted by Set.
func (c *Global) Get(key string) (string, error) {
	if name, ok := strings.CutPrefix(key, "labels."); ok {
		return c.Labels[name], nil
	}
	switch key {
	case "quantile_low":
		return strconv.FormatFloat(c.QuantileLow, 'g', -1, 64), nil
	case "quantile_high":
		return strconv.FormatFloat(c.QuantileHigh, 'g', -1, 64), nil
	case "min_occurrence":
		return strconv.Itoa(c.MinOccurrence), nil
	case "top_k":
		return strconv.Itoa(c.TopK), nil
	case "alpha":
		return strconv.FormatFloat(c.Alpha, 'g', -1, 64), nil
	case "equal_var":
		return strconv.FormatBool(c.EqualVar), nil
	case "yates":
		return strconv.FormatBool(c.Yates), nil
	case "dimensions":
		return strings.Join(c.Dimensions, ","), nil
	case "families":
		return strings.Join(c.Families, ","), nil
	case "list_separator":
		return c.ListSeparator, nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	case "batch_workers":
		return strconv.Itoa(c.BatchWorkers), nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

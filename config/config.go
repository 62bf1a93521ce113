// Package config loads goregime settings from a YAML file, GOREGIME_
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/sartorproj/goregime/analysis"
	"github.com/sartorproj/goregime/changepoint"
	"github.com/sartorproj/goregime/timeseries"
)

// EnvPrefix prefixes environment overrides, e.g. GOREGIME_ANALYSIS_PENALTY.
const EnvPrefix = "GOREGIME"

// Config is the complete run configuration.
type Config struct {
	// Input is the raw or prepared price CSV.
	Input string `mapstructure:"input" yaml:"input" validate:"required"`
	// Prepared is where the cleaned series is saved; empty skips saving.
	Prepared string `mapstructure:"prepared" yaml:"prepared"`
	// VolatilityWindow is the rolling window of the volatility column written
	// alongside daily returns in the prepared series.
	VolatilityWindow int `mapstructure:"volatility_window" yaml:"volatility_window" validate:"gte=2"`
	// OutputDir receives the report files.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir" validate:"required"`
	// Figures enables PNG figures.
	Figures bool `mapstructure:"figures" yaml:"figures"`
	// Parallelism limits concurrent analyses; zero runs all at once.
	Parallelism int `mapstructure:"parallelism" yaml:"parallelism" validate:"gte=0"`
	// Trace prints OpenTelemetry spans to standard error.
	Trace bool `mapstructure:"trace" yaml:"trace"`

	Log      LogConfig        `mapstructure:"log" yaml:"log"`
	CSV      CSVConfig        `mapstructure:"csv" yaml:"csv"`
	Analysis analysis.Options `mapstructure:"analysis" yaml:"analysis"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json"`
}

// CSVConfig describes the input file layout.
type CSVConfig struct {
	DateColumn  string   `mapstructure:"date_column" yaml:"date_column"`
	ValueColumn string   `mapstructure:"value_column" yaml:"value_column"`
	DateFormats []string `mapstructure:"date_formats" yaml:"date_formats" validate:"dive,required"`
	Delimiter   string   `mapstructure:"delimiter" yaml:"delimiter" validate:"len=1"`
	SkipRows    int      `mapstructure:"skip_rows" yaml:"skip_rows" validate:"gte=0"`
}

// Options converts the layout to timeseries CSV options.
func (c CSVConfig) Options() *timeseries.CSVOptions {
	opts := timeseries.DefaultCSVOptions()
	opts.DateColumn = c.DateColumn
	opts.ValueColumn = c.ValueColumn
	opts.SkipRows = c.SkipRows
	if len(c.DateFormats) > 0 {
		opts.DateFormats = c.DateFormats
	}
	if r, _ := utf8.DecodeRuneInString(c.Delimiter); r != utf8.RuneError {
		opts.Delimiter = r
	}
	return opts
}

// SlogLevel returns the slog level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetDefaults registers every key with its default so that environment
// variables can override keys absent from the file.
func SetDefaults(v *viper.Viper) {
	def := analysis.DefaultOptions()
	csv := timeseries.DefaultCSVOptions()

	v.SetDefault("input", "data/raw/BrentOilPrices.csv")
	v.SetDefault("prepared", "data/processed/brent_clean.csv")
	v.SetDefault("volatility_window", 30)
	v.SetDefault("output_dir", "reports")
	v.SetDefault("figures", true)
	v.SetDefault("parallelism", 0)
	v.SetDefault("trace", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("csv.date_column", "")
	v.SetDefault("csv.value_column", "")
	v.SetDefault("csv.date_formats", csv.DateFormats)
	v.SetDefault("csv.delimiter", string(csv.Delimiter))
	v.SetDefault("csv.skip_rows", 0)

	v.SetDefault("analysis.window", def.Window)
	v.SetDefault("analysis.period", def.Period)
	v.SetDefault("analysis.penalty", def.Penalty)
	v.SetDefault("analysis.min_segment_length", def.MinSegmentLength)
	v.SetDefault("analysis.cost_model", string(def.CostModel))
	v.SetDefault("analysis.decompose_model", string(def.DecomposeModel))
	v.SetDefault("analysis.kernel_gamma", def.KernelGamma)
	v.SetDefault("analysis.exhaustive", def.Exhaustive)
	v.SetDefault("analysis.adf.regression", string(def.ADF.Regression))
	v.SetDefault("analysis.adf.max_lag", def.ADF.MaxLag)
	v.SetDefault("analysis.adf.autolag", string(def.ADF.Autolag))
}

// NewViper returns a viper instance with defaults and environment
// overrides configured.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional YAML file at path into v and decodes the result.
// Flags bound to v before the call take precedence over file and environment.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate is the validator instance for configuration structs.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("costmodel", validateCostModel)
}

// validateCostModel accepts every name ParseCostModel resolves.
func validateCostModel(fl validator.FieldLevel) bool {
	_, err := changepoint.ParseCostModel(fl.Field().String())
	return err == nil
}

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Validate checks struct constraints and then the analysis options.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

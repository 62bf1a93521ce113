package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sartorproj/goregime/analysis"
	"github.com/sartorproj/goregime/config"
	"github.com/sartorproj/goregime/report"
	"github.com/sartorproj/goregime/timeseries"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app carries the state shared by the subcommands.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: config.NewViper(), stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "goregime",
		Short: "Regime analysis of Brent oil prices",
		Long: `goregime cleans a daily price series and analyses it for
stationarity, seasonality and structural breaks.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	pf.StringP("input", "i", "", "input price CSV")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("log-format", "", "log format: text or json")
	bindFlags(a.v, pf, map[string]string{
		"input":      "input",
		"log-level":  "log.level",
		"log-format": "log.format",
	})

	root.AddCommand(a.prepareCmd(), a.analyzeCmd(), a.versionCmd())
	return root
}

// bindFlags binds each flag to its configuration key.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}

func (a *app) load(cmd *cobra.Command) error {
	if cmd.Name() == "version" {
		return nil
	}
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(a.stderr, cfg.Log)
	slog.SetDefault(a.logger)
	return nil
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *app) prepareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Clean a raw price CSV and save the prepared series",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := a.prepare()
			if err != nil {
				return err
			}
			if a.cfg.Prepared == "" {
				return fmt.Errorf("no output path: set --output or prepared in the configuration")
			}
			if err := os.MkdirAll(filepath.Dir(a.cfg.Prepared), 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			columns := timeseries.ReturnColumns(series, a.cfg.VolatilityWindow)
			if err := timeseries.SaveCSV(series, a.cfg.Prepared, columns...); err != nil {
				return fmt.Errorf("save prepared series: %w", err)
			}
			a.logger.Info("prepared series saved",
				"path", a.cfg.Prepared,
				"observations", series.Len(),
				"volatility_window", a.cfg.VolatilityWindow,
			)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringP("output", "o", "", "path of the prepared CSV")
	f.Int("volatility-window", 0, "rolling window of the volatility column")
	bindFlags(a.v, f, map[string]string{
		"output":            "prepared",
		"volatility-window": "volatility_window",
	})
	return cmd
}

// prepare loads and cleans the configured input.
func (a *app) prepare() (*timeseries.Series, error) {
	f, err := os.Open(a.cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	series, st, err := timeseries.Prepare(f, a.cfg.CSV.Options())
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", a.cfg.Input, err)
	}
	a.logger.Info("input prepared",
		"path", a.cfg.Input,
		"rows", st.Rows,
		"bad_dates", st.BadDates,
		"duplicates", st.Duplicates,
		"missing", st.MissingBefore,
		"interpolated", st.Interpolated,
		"dropped", st.DroppedAtEdges,
		"observations", st.Observations,
	)
	return series, nil
}

func (a *app) analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the stationarity, decomposition and change-point analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.analyze(ctx)
		},
	}

	f := cmd.Flags()
	f.StringP("output-dir", "o", "", "report directory")
	f.Int("window", 0, "rolling window in observations")
	f.Int("period", 0, "seasonal period in observations")
	f.Float64("penalty", 0, "penalty per segment")
	f.Int("min-segment-length", 0, "minimum regime length in observations")
	f.String("cost-model", "", "segment cost: kernel_rbf, mean_shift or variance_shift")
	f.Bool("exhaustive", false, "evaluate every predecessor instead of pruning")
	f.Bool("figures", true, "write PNG figures")
	f.Int("parallelism", 0, "maximum concurrent analyses, 0 for all")
	f.Bool("trace", false, "print OpenTelemetry spans to stderr")
	bindFlags(a.v, f, map[string]string{
		"output-dir":         "output_dir",
		"window":             "analysis.window",
		"period":             "analysis.period",
		"penalty":            "analysis.penalty",
		"min-segment-length": "analysis.min_segment_length",
		"cost-model":         "analysis.cost_model",
		"exhaustive":         "analysis.exhaustive",
		"figures":            "figures",
		"parallelism":        "parallelism",
		"trace":              "trace",
	})
	return cmd
}

func (a *app) analyze(ctx context.Context) error {
	if a.cfg.Trace {
		shutdown, err := setupTracing(ctx, a.stderr)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				a.logger.Warn("trace shutdown failed", "error", err)
			}
		}()
	}

	series, err := a.prepare()
	if err != nil {
		return err
	}

	engine := analysis.New(
		analysis.WithLogger(a.logger),
		analysis.WithParallelism(a.cfg.Parallelism),
		analysis.WithSinks(
			report.NewTableSink(a.stdout),
			report.NewDirSink(a.cfg.OutputDir,
				report.WithFigures(a.cfg.Figures),
				report.WithLogger(a.logger),
			),
		),
	)

	rep, err := engine.Run(ctx, series, a.cfg.Analysis)
	if err != nil {
		if rep != nil {
			return fmt.Errorf("%d of %d analyses failed or could not be reported: %w",
				len(rep.Failures), len(analysis.Analyses()), err)
		}
		return err
	}
	fmt.Fprintf(a.stdout, "\nOutputs saved to %s\n", a.cfg.OutputDir)
	return nil
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "goregime", version)
		},
	}
}

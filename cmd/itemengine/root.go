package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/itemengine/pkg/cli"
	"mercator-hq/itemengine/pkg/config"
	"mercator-hq/itemengine/pkg/item"
	"mercator-hq/itemengine/pkg/qti/content"
	"mercator-hq/itemengine/pkg/telemetry/logging"
	"mercator-hq/itemengine/pkg/telemetry/metrics"
	"mercator-hq/itemengine/pkg/telemetry/tracing"
)

var (
	// Global flags
	cfgFile     string
	verbose     bool
	format      string
	outputFile  string
	metricsFile string
	traceParent string
)

// env is what setup built for the running command.
var env struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	format  cli.OutputFormat
	ctx     context.Context
	stop    context.CancelFunc
}

var rootCmd = &cobra.Command{
	Use:   "itemengine",
	Short: "itemengine - QTI assessment item processing engine",
	Long: `itemengine compiles QTI 2.x and 3.0 assessment items, renders their
content, and runs candidate sessions against them.

Candidate responses are read from YAML or JSON files mapping response
identifiers to values. Sessions can be saved as JSON snapshots and resumed
by later commands.

Configuration is read from --config (YAML) and ITEMENGINE_* environment
variables, e.g. ITEMENGINE_PARSER_STRICT=true.`,
	Version:            Version,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

// Execute runs the root command and exits with the code of its error.
func Execute() {
	err := rootCmd.Execute()
	if err != nil && env.stop != nil {
		// PersistentPostRunE is skipped when RunE fails.
		if terr := teardown(rootCmd, nil); terr != nil {
			fmt.Fprintln(os.Stderr, "Error:", terr)
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "output format: text, json, xlsx")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "write results to a file instead of stdout")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics", "", "write Prometheus metrics to a file on exit (- for stderr)")
	rootCmd.PersistentFlags().StringVar(&traceParent, "traceparent", "", "W3C traceparent to continue a caller's trace")
}

// setup loads configuration and builds the logger, metrics and tracer.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if metricsFile != "" {
		cfg.Telemetry.Metrics.Enabled = true
	}
	config.SetConfig(cfg)

	f, err := cli.ParseFormat(format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, cmd.ErrOrStderr()))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, tracing.WithServiceVersion(Version))
	if err != nil {
		return cli.NewConfigError("telemetry.tracing", err.Error())
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	if traceParent != "" {
		ctx, err = tracing.ContextWithTraceParent(ctx, traceParent)
		if err != nil {
			stop()
			return cli.NewConfigError("traceparent", err.Error())
		}
	}

	env.cfg = cfg
	env.logger = logger
	env.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	env.tracer = tracer
	env.format = f
	env.ctx = ctx
	env.stop = stop

	logger.Debug("configuration loaded",
		"config", cfgFile,
		"format", string(f),
		"metrics", cfg.Telemetry.Metrics.Enabled,
		"tracing", cfg.Telemetry.Tracing.Enabled,
	)
	return nil
}

// teardown flushes spans and writes the metrics dump.
func teardown(cmd *cobra.Command, args []string) error {
	defer env.stop()

	var errs []error
	if err := env.tracer.Shutdown(context.Background()); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush traces: %w", err))
	}

	switch metricsFile {
	case "":
	case "-":
		errs = append(errs, env.metrics.WriteText(cmd.ErrOrStderr()))
	default:
		f, err := os.Create(metricsFile)
		if err != nil {
			errs = append(errs, cli.NewInputError(metricsFile, err))
			break
		}
		errs = append(errs, env.metrics.WriteText(f), f.Close())
	}
	return errors.Join(errs...)
}

// itemOptions returns the engine options every command shares.
func itemOptions(extra ...item.Option) []item.Option {
	opts := []item.Option{
		item.WithConfig(env.cfg),
		item.WithLogger(env.logger.Slog()),
		item.WithMetrics(env.metrics),
		item.WithTracer(env.tracer),
	}
	return append(opts, extra...)
}

// newSanitizer builds the content sanitizer from configuration.
func newSanitizer() *content.Sanitizer {
	return content.NewSanitizer(
		content.WithURLAttributes(env.cfg.Sanitizer.ExtraURLAttributes...),
		content.WithBlockedPrefixes(env.cfg.Sanitizer.BlockedSchemes...),
	)
}

// writeResult formats data to --output or the command's stdout.
func writeResult(cmd *cobra.Command, data any) (err error) {
	var w io.Writer = cmd.OutOrStdout()
	if outputFile != "" {
		f, ferr := os.Create(outputFile)
		if ferr != nil {
			return cli.NewInputError(outputFile, ferr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	return cli.NewFormatter(env.format).FormatTo(w, data)
}

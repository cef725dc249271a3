// Package cli implements the rtlive commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/rtlive/rtlive/internal/config"
	"github.com/rtlive/rtlive/internal/metrics"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	configPath  string
	logLevel    string
	metricsFile string

	cfg   *config.Config
	runID string
}

// NewRootCmd returns the top-level command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "rtlive",
		Short: "Delay distributions and Rt inference summaries",
		Long: "rtlive builds the onset-to-confirmation delay distribution from the public " +
			"COVID-19 line-list and summarizes posterior Rt samples into a daily report.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Config file (default: built-in defaults)")
	pf.StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "Prometheus textfile written after the run (overrides metrics.textfile)")

	root.AddCommand(newDelayCmd(a), newSummarizeCmd(a), newCacheCmd(a))
	return root
}

// setup installs the JSON logger and loads the config.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("cli: --log-level: %w", err)
	}
	a.runID = ulid.Make().String()
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger.With("run_id", a.runID))

	if a.configPath == "" {
		a.cfg = config.Default()
	} else {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if a.metricsFile != "" {
		a.cfg.Metrics.Textfile = a.metricsFile
	}

	slog.Debug("cli: config loaded",
		"config", a.configPath,
		"cache_driver", a.cfg.Cache.Driver,
		"metrics_textfile", a.cfg.Metrics.Textfile,
	)
	return nil
}

// writeMetrics writes rec to the configured textfile, if any. A failed write
// is logged and does not fail the run.
func (a *app) writeMetrics(rec *metrics.Recorder) {
	path := a.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := rec.Write(path); err != nil {
		slog.Warn("cli: metrics textfile not written", "path", path, "err", err)
		return
	}
	slog.Debug("cli: metrics textfile written", "path", path)
}

// emit writes data to path, or to the command's stdout when path is empty
// or "-".
func emit(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return fmt.Errorf("cli: write stdout: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cli: write output: %w", err)
	}
	return nil
}

func outputName(path string) string {
	if path == "" || path == "-" {
		return "stdout"
	}
	return path
}

package cli

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rtlive/rtlive/internal/config"
	"github.com/rtlive/rtlive/internal/metrics"
	"github.com/rtlive/rtlive/internal/posterior"
	"github.com/rtlive/rtlive/internal/summary"
)

func newSummarizeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize posterior Rt samples into a daily report",
		Long: "Reads long-format posterior samples (chain,draw,date,r_t,infections,test_adjusted_positive)\n" +
			"and observed covariates (date,positive,tests) and prints one row per date with\n" +
			"Rt mean, median and HDI bounds plus rescaled infection and positivity series.",
		Args: cobra.NoArgs,
		RunE: a.runSummarize,
	}

	cmd.Flags().String("posterior", "", "Posterior samples CSV (required)")
	cmd.Flags().String("covariates", "", "Observed covariates CSV (required)")
	cmd.Flags().Float64("hdi-mass", 0, "Credible interval mass in (0, 1) (default from config)")
	cmd.Flags().String("format", "csv", "Output format: csv or json")
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	cmd.Flags().Bool("watch", false, "Re-summarize whenever an input file changes")

	cmd.MarkFlagRequired("posterior")
	cmd.MarkFlagRequired("covariates")

	return cmd
}

func (a *app) runSummarize(cmd *cobra.Command, args []string) error {
	postPath, _ := cmd.Flags().GetString("posterior")
	covPath, _ := cmd.Flags().GetString("covariates")
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("output")
	watch, _ := cmd.Flags().GetBool("watch")

	opts := summary.OptionsFrom(a.cfg.Summary)
	if cmd.Flags().Changed("hdi-mass") {
		opts.HDIMass, _ = cmd.Flags().GetFloat64("hdi-mass")
		if opts.HDIMass <= 0 || opts.HDIMass >= 1 {
			return fmt.Errorf("cli: --hdi-mass must be in (0, 1), got %v", opts.HDIMass)
		}
	}
	if format != "csv" && format != "json" {
		return fmt.Errorf("cli: --format must be csv or json, got %q", format)
	}

	run := func() error {
		rec := metrics.New(metrics.PipelineSummarize)

		post, err := posterior.OpenSamples(postPath)
		if err != nil {
			return err
		}
		cov, err := posterior.OpenCovariates(covPath)
		if err != nil {
			return err
		}
		rows, err := summary.Summarize(post, cov, opts)
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if format == "json" {
			err = summary.WriteJSON(&buf, rows, opts.HDIMass)
		} else {
			err = summary.WriteCSV(&buf, rows, opts.HDIMass)
		}
		if err != nil {
			return err
		}
		if err := emit(cmd, out, buf.Bytes()); err != nil {
			return err
		}
		rec.Summary(len(rows))

		slog.Info("cli: summary written",
			"dates", len(rows),
			"samples", len(post.Rt[0]),
			"hdi_mass", opts.HDIMass,
			"format", format,
			"output", outputName(out),
		)
		a.writeMetrics(rec)
		return nil
	}

	if err := run(); err != nil {
		if !watch {
			return err
		}
		slog.Error("cli: summarize failed, waiting for input changes", "err", err)
	}
	if !watch {
		return nil
	}

	return config.Watch(cmd.Context(), []string{postPath, covPath}, func(path string) {
		slog.Info("cli: input changed, re-summarizing", "path", path)
		if err := run(); err != nil {
			slog.Error("cli: summarize failed", "err", err)
		}
	})
}

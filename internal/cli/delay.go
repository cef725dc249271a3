package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rtlive/rtlive/internal/cache"
	"github.com/rtlive/rtlive/internal/config"
	"github.com/rtlive/rtlive/internal/delay"
	"github.com/rtlive/rtlive/internal/linelist"
	"github.com/rtlive/rtlive/internal/metrics"
	"github.com/rtlive/rtlive/pkg/types"
)

func newDelayCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delay",
		Short: "Build the onset-to-confirmation delay distribution",
		Long: "Prints the daily probability of a confirmation delay as CSV (day,p_delay).\n" +
			"The empirical distribution is built from the line-list on first use and\n" +
			"served from the cache afterwards.",
		Args: cobra.NoArgs,
		RunE: a.runDelay,
	}

	cmd.Flags().Bool("fitted", false, "Use the parametric lognormal distribution instead of the line-list")
	cmd.Flags().Bool("refresh", false, "Discard the cached distribution and rebuild it")
	cmd.Flags().Int("max-delay", 0, "Drop delays longer than this many days (default from config)")
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")

	return cmd
}

func (a *app) runDelay(cmd *cobra.Command, args []string) error {
	fitted, _ := cmd.Flags().GetBool("fitted")
	refresh, _ := cmd.Flags().GetBool("refresh")
	out, _ := cmd.Flags().GetString("output")

	maxDelay := a.cfg.Delay.MaxDelay
	if cmd.Flags().Changed("max-delay") {
		maxDelay, _ = cmd.Flags().GetInt("max-delay")
		if maxDelay < 0 {
			return fmt.Errorf("cli: --max-delay must be >= 0, got %d", maxDelay)
		}
	}

	rec := metrics.New(metrics.PipelineDelay)

	var (
		dist types.Distribution
		hit  bool
		err  error
	)
	if fitted {
		dist = delay.Fitted(delay.FittedFrom(a.cfg.Delay.Fitted))
	} else {
		dist, hit, err = a.empiricalDelay(cmd, rec, maxDelay, refresh)
		if err != nil {
			return err
		}
	}
	rec.Delay(hit, len(dist))

	var buf bytes.Buffer
	if err := delay.Encode(&buf, dist); err != nil {
		return err
	}
	if err := emit(cmd, out, buf.Bytes()); err != nil {
		return err
	}

	slog.Info("cli: delay distribution written",
		"fitted", fitted,
		"cache_hit", hit,
		"days", len(dist),
		"output", outputName(out),
	)
	a.writeMetrics(rec)
	return nil
}

func (a *app) empiricalDelay(cmd *cobra.Command, rec *metrics.Recorder, maxDelay int, refresh bool) (types.Distribution, bool, error) {
	ctx := cmd.Context()
	store, err := cache.Open(ctx, a.cfg.Cache)
	if err != nil {
		return nil, false, err
	}
	defer store.Close()

	var opts []linelist.Option
	if a.cfg.LineList.Progress {
		opts = append(opts, linelist.WithProgress(cmd.ErrOrStderr()))
	}
	loader := linelist.NewLoader(a.cfg.LineList, opts...)

	p := &delay.Provider{
		Store: store,
		Key:   delayKey(a.cfg.Delay.CacheKey, maxDelay, a.cfg.Delay.IncubationDays),
		Load: func(ctx context.Context) ([]types.Record, error) {
			res, err := loader.Load(ctx)
			if err != nil {
				return nil, err
			}
			rec.LineList(res.RowsRead, len(res.Records))
			return res.Records, nil
		},
		MaxDelay:       maxDelay,
		IncubationDays: a.cfg.Delay.IncubationDays,
	}

	if refresh {
		existed, err := p.Invalidate(ctx)
		if err != nil {
			return nil, false, err
		}
		slog.Info("cli: cached distribution discarded", "key", p.Key, "existed", existed)
	}
	return p.Get(ctx)
}

// delayKey derives the cache key for a distribution truncated at maxDelay
// and padded by incubationDays. The stock parameters use key unchanged; any
// other combination gets its own entry.
func delayKey(key string, maxDelay, incubationDays int) string {
	var suffix string
	if maxDelay != config.DefaultMaxDelay {
		suffix += fmt.Sprintf("_max%d", maxDelay)
	}
	if incubationDays != config.DefaultIncubationDays {
		suffix += fmt.Sprintf("_inc%d", incubationDays)
	}
	if suffix == "" {
		return key
	}
	if base, ok := strings.CutSuffix(key, ".csv"); ok {
		return base + suffix + ".csv"
	}
	return key + suffix
}

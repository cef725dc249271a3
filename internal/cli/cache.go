package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rtlive/rtlive/internal/cache"
	"github.com/rtlive/rtlive/internal/delay"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the cached delay distribution",
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the cached delay distribution",
		Args:  cobra.NoArgs,
		RunE:  a.runCacheClear,
	}
	clearCmd.Flags().Int("max-delay", 0, "Clear the entry built with this --max-delay override (default from config)")

	cmd.AddCommand(clearCmd)
	return cmd
}

func (a *app) runCacheClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := cache.Open(ctx, a.cfg.Cache)
	if err != nil {
		return err
	}
	defer store.Close()

	maxDelay := a.cfg.Delay.MaxDelay
	if cmd.Flags().Changed("max-delay") {
		maxDelay, _ = cmd.Flags().GetInt("max-delay")
	}
	p := &delay.Provider{Store: store, Key: delayKey(a.cfg.Delay.CacheKey, maxDelay, a.cfg.Delay.IncubationDays)}
	existed, err := p.Invalidate(ctx)
	if err != nil {
		return err
	}

	res := clearResult{OK: true, Driver: string(store.Driver()), Key: p.Key, Existed: existed}
	if fs, ok := store.(*cache.FS); ok {
		res.Path, _ = fs.Path(p.Key)
	}
	if err := json.NewEncoder(cmd.OutOrStdout()).Encode(res); err != nil {
		return fmt.Errorf("cli: write result: %w", err)
	}
	return nil
}

// clearResult is the status line printed by cache clear.
type clearResult struct {
	OK      bool   `json:"ok"`
	Driver  string `json:"driver"`
	Key     string `json:"key"`
	Path    string `json:"path,omitempty"`
	Existed bool   `json:"existed"`
}

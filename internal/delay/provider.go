package delay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rtlive/rtlive/internal/cache"
	"github.com/rtlive/rtlive/pkg/types"
)

// LoadFunc returns the cleaned line-list records. It is only called on a
// cache miss.
type LoadFunc func(ctx context.Context) ([]types.Record, error)

// Provider returns the empirical distribution, building it at most once per
// cache lifetime.
type Provider struct {
	Store          cache.Store
	Key            string
	Load           LoadFunc
	MaxDelay       int
	IncubationDays int
}

// Get returns the cached distribution when present; otherwise it loads the
// records, builds the distribution and caches it. The bool reports a cache
// hit. An unreadable cache entry is rebuilt.
func (p *Provider) Get(ctx context.Context) (types.Distribution, bool, error) {
	data, err := p.Store.Get(ctx, p.Key)
	switch {
	case err == nil:
		dist, derr := Decode(bytes.NewReader(data))
		if derr == nil {
			slog.Debug("delay: cache hit", "key", p.Key, "driver", p.Store.Driver(), "days", len(dist))
			return dist, true, nil
		}
		slog.Warn("delay: cached distribution unreadable, rebuilding", "key", p.Key, "err", derr)
	case errors.Is(err, cache.ErrNotFound):
		slog.Info("delay: cache miss, building from line-list", "key", p.Key, "driver", p.Store.Driver())
	default:
		return nil, false, fmt.Errorf("delay: read cache: %w", err)
	}

	records, err := p.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	dist, err := Empirical(Delays(records, p.MaxDelay), p.IncubationDays)
	if err != nil {
		return nil, false, err
	}

	encoded, err := encodeBytes(dist)
	if err != nil {
		return nil, false, fmt.Errorf("delay: encode: %w", err)
	}
	if err := p.Store.Put(ctx, p.Key, encoded); err != nil {
		return nil, false, fmt.Errorf("delay: write cache: %w", err)
	}
	return dist, false, nil
}

// Invalidate removes the cached distribution. It reports whether an entry
// existed.
func (p *Provider) Invalidate(ctx context.Context) (bool, error) {
	existed, err := p.Store.Delete(ctx, p.Key)
	if err != nil {
		return false, fmt.Errorf("delay: invalidate cache: %w", err)
	}
	return existed, nil
}

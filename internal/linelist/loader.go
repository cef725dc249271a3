package linelist

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rtlive/rtlive/internal/config"
	"github.com/rtlive/rtlive/pkg/types"
)

// Result is the outcome of one Load: the surviving records plus the counts
// and cutoff that produced them.
type Result struct {
	Records []types.Record

	// RowsRead is the number of data rows in the downloaded CSV.
	RowsRead int

	// Cleaned is the number of records that passed Clean, before censoring.
	Cleaned int

	// Cutoff is the right-censoring cutoff applied to onset dates.
	Cutoff time.Time
}

// Loader downloads and filters the line-list.
type Loader struct {
	cfg      config.LineList
	opts     Options
	client   *http.Client
	progress io.Writer
}

// Option customises a Loader.
type Option func(*Loader)

// WithProgress renders a download progress bar to w.
func WithProgress(w io.Writer) Option {
	return func(l *Loader) { l.progress = w }
}

// WithHTTPClient replaces the client built from the config.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// NewLoader returns a Loader for the given line-list configuration.
// It builds the HTTP client once and reuses it across Load calls.
func NewLoader(cfg config.LineList, opts ...Option) *Loader {
	l := &Loader{
		cfg:    cfg,
		opts:   OptionsFrom(cfg),
		client: buildHTTPClient(cfg),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load downloads the dataset, cleans it and applies the right-censoring
// cutoff derived from the latest onset.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	rows, n, err := l.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("linelist: fetch %s: %w", l.cfg.URL, err)
	}

	cleaned := Clean(rows, l.opts)
	cutoff := CensorCutoff(cleaned, l.cfg.CensorWindow())
	records := Censor(cleaned, cutoff)

	slog.Info("linelist: loaded",
		"rows", n,
		"cleaned", len(cleaned),
		"records", len(records),
		"cutoff", cutoff.Format(time.DateOnly),
	)

	if len(records) == 0 {
		return nil, fmt.Errorf("linelist: no records survived filtering of %d rows: %w", n, types.ErrEmptyResult)
	}
	return &Result{Records: records, RowsRead: n, Cleaned: len(cleaned), Cutoff: cutoff}, nil
}

// Records is Load without the bookkeeping, for callers that only need the
// surviving records.
func (l *Loader) Records(ctx context.Context) ([]types.Record, error) {
	res, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

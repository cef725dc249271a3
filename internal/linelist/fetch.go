package linelist

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/rtlive/rtlive/internal/config"
	"github.com/rtlive/rtlive/pkg/types"
)

// Dataset column names we keep.
const (
	colCountry   = "country"
	colOnset     = "date_onset_symptoms"
	colConfirmed = "date_confirmation"
)

// tarMagicOffset is where the "ustar" magic sits in a POSIX tar header.
const tarMagicOffset = 257

// authRoundTripper injects authentication headers into every outgoing request.
type authRoundTripper struct {
	base http.RoundTripper
	auth config.AuthConfig
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	switch t.auth.Mode {
	case "bearer":
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+t.auth.Token())
	case "basic":
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.auth.Username, t.auth.Password())
	}
	return t.base.RoundTrip(req)
}

// buildHTTPClient constructs an http.Client for the dataset's auth and TLS settings.
func buildHTTPClient(cfg config.LineList) *http.Client {
	tlsCfg := &tls.Config{
		InsecureSkipVerify: cfg.TLS.InsecureSkipVerify, //nolint:gosec // user-configured
	}
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = tlsCfg

	return &http.Client{
		Transport: &authRoundTripper{base: base, auth: cfg.Auth},
		Timeout:   cfg.Timeout,
	}
}

// fetch performs an HTTP GET to url and returns the raw line-list rows plus
// the number of data rows read.
func (l *Loader) fetch(ctx context.Context) ([]types.RawRecord, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.URL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: http get: %v", types.ErrDataUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("%w: unexpected status %d", types.ErrDataUnavailable, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if l.progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(l.progress),
			progressbar.OptionSetDescription("downloading line-list"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionClearOnFinish(),
		)
		defer func() { _ = bar.Finish() }()
		body = io.TeeReader(resp.Body, bar)
	}

	csvStream, err := decompress(body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", types.ErrDataUnavailable, err)
	}
	return parseCSV(csvStream)
}

// decompress unwraps the gzip layer and, when the payload is a tar archive,
// positions the reader on its first CSV member.
func decompress(r io.Reader) (io.Reader, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	br := bufio.NewReader(zr)

	head, err := br.Peek(tarMagicOffset + 5)
	if err != nil || string(head[tarMagicOffset:]) != "ustar" {
		// Too short to be a tar archive, or no tar magic: plain CSV.
		return br, nil
	}

	tr := tar.NewReader(br)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("tar: no csv member found")
		}
		if err != nil {
			return nil, fmt.Errorf("tar: %w", err)
		}
		if hdr.Typeflag == tar.TypeReg && strings.HasSuffix(hdr.Name, ".csv") {
			return tr, nil
		}
	}
}

// parseCSV reads the header, locates the three kept columns and returns one
// RawRecord per data row.
func parseCSV(r io.Reader) ([]types.RawRecord, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read header: %v", types.ErrDataUnavailable, err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	cols := make([]int, 0, 3)
	for _, name := range []string{colCountry, colOnset, colConfirmed} {
		i, ok := idx[name]
		if !ok {
			return nil, 0, fmt.Errorf("%w: column %q", types.ErrMissingField, name)
		}
		cols = append(cols, i)
	}

	var rows []types.RawRecord
	n := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, n, fmt.Errorf("%w: read row %d: %v", types.ErrDataUnavailable, n+1, err)
		}
		n++
		rows = append(rows, types.RawRecord{
			Country:   field(rec, cols[0]),
			Onset:     field(rec, cols[1]),
			Confirmed: field(rec, cols[2]),
		})
	}
	return rows, n, nil
}

// field returns a copy of rec[i], or "" when the row is short. Copying
// detaches the value from the reused row buffer so the full row can be freed.
func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.Clone(rec[i])
}

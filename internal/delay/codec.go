package delay

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/rtlive/rtlive/pkg/types"
)

var header = []string{"day", "p_delay"}

// Encode writes dist as a two-column CSV table: day offset, probability.
func Encode(w io.Writer, dist types.Distribution) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for day, p := range dist {
		if err := cw.Write([]string{strconv.Itoa(day), strconv.FormatFloat(p, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode reads a table written by Encode. Days must run 0, 1, 2, … without
// gaps.
func Decode(r io.Reader) (types.Distribution, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("delay: read header: %w", err)
	}
	if head[0] != header[0] || head[1] != header[1] {
		return nil, fmt.Errorf("delay: unexpected header %v: %w", head, types.ErrMissingField)
	}

	var dist types.Distribution
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("delay: read row: %w", err)
		}
		day, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("delay: parse day %q: %w", rec[0], err)
		}
		if day != len(dist) {
			return nil, fmt.Errorf("delay: day %d out of sequence, want %d", day, len(dist))
		}
		p, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return nil, fmt.Errorf("delay: parse probability %q: %w", rec[1], err)
		}
		dist = append(dist, p)
	}
	if len(dist) == 0 {
		return nil, fmt.Errorf("delay: empty table: %w", types.ErrEmptyResult)
	}
	return dist, nil
}

func encodeBytes(dist types.Distribution) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, dist); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

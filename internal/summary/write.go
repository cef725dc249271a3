package summary

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/rtlive/rtlive/pkg/types"
)

// Columns returns the report column names for an interval of the given mass.
func Columns(mass float64) []string {
	pct := strconv.FormatFloat(math.Round(mass*1e6)/1e4, 'f', -1, 64)
	return []string{
		"date",
		"mean",
		"median",
		"lower_" + pct,
		"upper_" + pct,
		"infections",
		"test_adjusted_positive",
		"test_adjusted_positive_raw",
		"positive",
		"tests",
	}
}

func values(r types.SummaryRow) []float64 {
	return []float64{
		r.Mean,
		r.Median,
		r.Lower,
		r.Upper,
		r.Infections,
		r.TestAdjustedPositive,
		r.TestAdjustedPositiveRaw,
		r.Positive,
		r.Tests,
	}
}

// WriteCSV writes rows as CSV with a header line. Non-finite values are
// written as empty fields.
func WriteCSV(w io.Writer, rows []types.SummaryRow, mass float64) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns(mass)); err != nil {
		return fmt.Errorf("summary: write csv: %w", err)
	}
	rec := make([]string, 0, 10)
	for _, r := range rows {
		rec = append(rec[:0], r.Date.Format(time.DateOnly))
		for _, v := range values(r) {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("summary: write csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("summary: write csv: %w", err)
	}
	return nil
}

// WriteJSON writes rows as a JSON array of objects keyed by column name, in
// column order. Non-finite values are written as null.
func WriteJSON(w io.Writer, rows []types.SummaryRow, mass float64) error {
	cols := Columns(mass)
	keys := make([][]byte, len(cols))
	for i, c := range cols {
		k, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("summary: write json: %w", err)
		}
		keys[i] = k
	}

	bw := bufio.NewWriter(w)
	bw.WriteByte('[')
	for i, r := range rows {
		if i > 0 {
			bw.WriteByte(',')
		}
		bw.WriteString("\n  {")
		bw.Write(keys[0])
		bw.WriteString(`:"`)
		bw.WriteString(r.Date.Format(time.DateOnly))
		bw.WriteByte('"')
		for j, v := range values(r) {
			bw.WriteByte(',')
			bw.Write(keys[j+1])
			bw.WriteByte(':')
			if math.IsNaN(v) || math.IsInf(v, 0) {
				bw.WriteString("null")
				continue
			}
			bw.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		}
		bw.WriteByte('}')
	}
	if len(rows) > 0 {
		bw.WriteByte('\n')
	}
	bw.WriteString("]\n")
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("summary: write json: %w", err)
	}
	return nil
}

package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
)

// CSVFetcher reads <Dir>/<SYMBOL>.csv files with a header row. Recognised
// columns: date|timestamp|t, open|o, high|h, low|l, close|c, adj close|adjclose,
// volume|v. Dates are YYYY-MM-DD or Unix milliseconds.
type CSVFetcher struct {
	Dir string
}

func NewCSVFetcher(dir string) *CSVFetcher { return &CSVFetcher{Dir: dir} }

func (f *CSVFetcher) Name() string { return "csv" }

func (f *CSVFetcher) FetchDailyBars(_ context.Context, symbol string, from, to time.Time) ([]model.OHLCV, error) {
	path := filepath.Join(f.Dir, symbol+".csv")
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no price file for %s (%s)", model.ErrInvalidInput, symbol, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	bars, err := readCSVBars(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	bars = filterRange(bars, from, to)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s has no rows between %s and %s", model.ErrInvalidInput,
			path, from.Format(dateLayout), to.Format(dateLayout))
	}
	return bars, nil
}

const dateLayout = "2006-01-02"

func readCSVBars(r io.Reader) ([]model.OHLCV, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := map[string]int{}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "date", "timestamp", "t", "time":
			col["t"] = i
		case "open", "o":
			col["o"] = i
		case "high", "h":
			col["h"] = i
		case "low", "l":
			col["l"] = i
		case "close", "c":
			col["c"] = i
		case "adj close", "adjclose", "adj_close", "ac":
			col["ac"] = i
		case "volume", "v":
			col["v"] = i
		}
	}
	if _, ok := col["t"]; !ok {
		return nil, fmt.Errorf("%w: missing date column", model.ErrInvalidInput)
	}
	_, hasClose := col["c"]
	_, hasAdj := col["ac"]
	if !hasClose && !hasAdj {
		return nil, fmt.Errorf("%w: missing close column", model.ErrInvalidInput)
	}

	var bars []model.OHLCV
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ts, err := parseTime(rec[col["t"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		num := func(key string) float64 {
			i, ok := col[key]
			if !ok || i >= len(rec) {
				return 0
			}
			v, _ := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			return v
		}
		c := num("c")
		if ac := num("ac"); ac > 0 {
			c = ac
		}
		if c <= 0 {
			continue // blank or null row
		}
		bars = append(bars, model.OHLCV{
			Time: ts, Open: num("o"), High: num("h"), Low: num("l"), Close: c, Volume: num("v"),
		})
	}
	return bars, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: bad date %q", model.ErrInvalidInput, s)
}

// ParquetFetcher reads <Dir>/<SYMBOL>.parquet files of model.Bar rows.
type ParquetFetcher struct {
	Dir string
}

func NewParquetFetcher(dir string) *ParquetFetcher { return &ParquetFetcher{Dir: dir} }

func (f *ParquetFetcher) Name() string { return "parquet" }

func (f *ParquetFetcher) FetchDailyBars(_ context.Context, symbol string, from, to time.Time) ([]model.OHLCV, error) {
	path := filepath.Join(f.Dir, symbol+".parquet")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: no price file for %s (%s)", model.ErrInvalidInput, symbol, path)
	}
	rows, err := parquet.ReadFile[model.Bar](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	bars := make([]model.OHLCV, 0, len(rows))
	for _, r := range rows {
		b := r.ToOHLCV()
		if b.Close > 0 {
			bars = append(bars, b)
		}
	}
	bars = filterRange(bars, from, to)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s has no rows between %s and %s", model.ErrInvalidInput,
			path, from.Format(dateLayout), to.Format(dateLayout))
	}
	return bars, nil
}

// WriteParquet stores bars as a <dir>/<symbol>.parquet file readable by
// ParquetFetcher.
func WriteParquet(dir, symbol string, bars []model.OHLCV) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	rows := make([]model.Bar, len(bars))
	for i, b := range bars {
		rows[i] = model.BarFromOHLCV(b)
	}
	return parquet.WriteFile(filepath.Join(dir, symbol+".parquet"), rows)
}

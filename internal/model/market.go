package model

import "time"

// OHLCV represents a single daily bar. Close is the adjusted close when the
// provider supplies one.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds the chronological bars of one symbol.
type PriceSeries struct {
	Symbol    string
	Bars      []OHLCV
	Source    string
	FetchedAt time.Time
}

// Closes returns the close prices in chronological order.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// PriceMatrix is a rectangular T x N table of closing prices: one row per
// timestamp, one column per symbol, no gaps.
type PriceMatrix struct {
	Symbols []string
	Times   []time.Time
	Prices  [][]float64
}

// Rows returns T.
func (m *PriceMatrix) Rows() int { return len(m.Prices) }

// Cols returns N.
func (m *PriceMatrix) Cols() int { return len(m.Symbols) }

// Column copies the price history of asset j.
func (m *PriceMatrix) Column(j int) []float64 {
	out := make([]float64, len(m.Prices))
	for t, row := range m.Prices {
		out[t] = row[j]
	}
	return out
}

// ReturnMatrix holds log returns. Row t is the return from Times[t] to
// Times[t+1] of the source PriceMatrix, so it has one row fewer.
type ReturnMatrix struct {
	Symbols []string
	Times   []time.Time
	Values  [][]float64
}

// Rows returns T-1.
func (m *ReturnMatrix) Rows() int { return len(m.Values) }

// Cols returns N.
func (m *ReturnMatrix) Cols() int { return len(m.Symbols) }

package model

import "time"

// Bar is the on-disk row format for price files (parquet) and the sqlite
// cache. Timestamp is Unix milliseconds.
type Bar struct {
	Timestamp int64   `json:"t" parquet:"t"`
	Open      float64 `json:"o" parquet:"o"`
	High      float64 `json:"h" parquet:"h"`
	Low       float64 `json:"l" parquet:"l"`
	Close     float64 `json:"c" parquet:"c"`
	AdjClose  float64 `json:"ac,omitempty" parquet:"ac,optional"`
	Volume    float64 `json:"v" parquet:"v"`
}

// ToOHLCV converts a stored bar, preferring the adjusted close when present.
func (b Bar) ToOHLCV() OHLCV {
	c := b.Close
	if b.AdjClose > 0 {
		c = b.AdjClose
	}
	return OHLCV{
		Time:   time.UnixMilli(b.Timestamp).UTC(),
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  c,
		Volume: b.Volume,
	}
}

// BarFromOHLCV is the inverse of ToOHLCV.
func BarFromOHLCV(o OHLCV) Bar {
	return Bar{
		Timestamp: o.Time.UnixMilli(),
		Open:      o.Open,
		High:      o.High,
		Low:       o.Low,
		Close:     o.Close,
		Volume:    o.Volume,
	}
}

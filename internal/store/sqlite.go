package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mdc5017/QuantFinanceCourse/internal/model"
)

// SQLiteCache stores price bars in a SQLite database.
type SQLiteCache struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteCache opens (or creates) the SQLite database and runs migrations.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	c := &SQLiteCache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite price cache opened: %s", dbPath)
	return c, nil
}

func (c *SQLiteCache) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_bars (
			symbol    TEXT    NOT NULL,
			source    TEXT    NOT NULL,
			timestamp INTEGER NOT NULL,
			open      REAL,
			high      REAL,
			low       REAL,
			close     REAL    NOT NULL,
			volume    REAL,
			PRIMARY KEY (symbol, source, timestamp)
		)`,

		`CREATE TABLE IF NOT EXISTS fetch_ranges (
			symbol     TEXT    NOT NULL,
			source     TEXT    NOT NULL,
			start_ts   INTEGER NOT NULL,
			end_ts     INTEGER NOT NULL,
			fetched_at INTEGER NOT NULL,
			PRIMARY KEY (symbol, source, start_ts, end_ts)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ranges_symbol ON fetch_ranges(symbol, source)`,
	}

	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (c *SQLiteCache) Load(ctx context.Context, symbol, source string, from, to time.Time) ([]model.OHLCV, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var covered int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fetch_ranges
		WHERE symbol = ? AND source = ? AND start_ts <= ? AND end_ts >= ?`,
		symbol, source, from.Unix(), to.Unix(),
	).Scan(&covered)
	if err != nil {
		return nil, false, fmt.Errorf("query fetch ranges: %w", err)
	}
	if covered == 0 {
		return nil, false, nil
	}

	rows, err := c.db.QueryContext(ctx, `SELECT timestamp, open, high, low, close, volume
		FROM price_bars
		WHERE symbol = ? AND source = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp`,
		symbol, source, from.Unix(), to.Unix(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("query price bars: %w", err)
	}
	defer rows.Close()

	var bars []model.OHLCV
	for rows.Next() {
		var ts int64
		var b model.OHLCV
		if err := rows.Scan(&ts, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, false, fmt.Errorf("scan price bar: %w", err)
		}
		b.Time = time.Unix(ts, 0).UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return bars, true, nil
}

func (c *SQLiteCache) Save(ctx context.Context, symbol, source string, from, to time.Time, bars []model.OHLCV) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO price_bars
		(symbol, source, timestamp, open, high, low, close, volume)
		VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, symbol, source, b.Time.Unix(),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("insert bar: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO fetch_ranges
		(symbol, source, start_ts, end_ts, fetched_at) VALUES (?,?,?,?,?)`,
		symbol, source, from.Unix(), to.Unix(), time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("insert fetch range: %w", err)
	}
	return tx.Commit()
}

func (c *SQLiteCache) Close() error {
	log.Println("[INFO] closing sqlite price cache")
	return c.db.Close()
}

// Package history stores immutable daily OHLCV bars in sqlite. Prices are
// TEXT columns holding exact decimal strings; they never round-trip through
// floats.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"darvas/internal/types"
)

type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the bar database under root.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("history root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(root, "history.db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS historicals (
			ticker TEXT NOT NULL,
			date TEXT NOT NULL,
			open TEXT NOT NULL,
			high TEXT NOT NULL,
			low TEXT NOT NULL,
			close TEXT NOT NULL,
			volume INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (ticker, date)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_historicals_date ON historicals(date);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertBars writes bars in one transaction; a duplicate (ticker, date) is
// overwritten.
func (s *Store) InsertBars(ctx context.Context, bars []types.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO historicals (ticker, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticker, date) DO UPDATE SET
		    open=excluded.open,
		    high=excluded.high,
		    low=excluded.low,
		    close=excluded.close,
		    volume=excluded.volume`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()
	count := 0
	for _, b := range bars {
		_, err := stmt.ExecContext(ctx, b.Ticker, b.DateString(),
			b.Open.String(), b.High.String(), b.Low.String(), b.Close.String(), b.Volume)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

// BarOn returns the bar for the exact date; ok=false when the ticker did not
// trade that day.
func (s *Store) BarOn(ctx context.Context, ticker string, date time.Time) (types.Bar, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ticker, date, open, high, low, close, volume
		FROM historicals WHERE ticker = ? AND date = ?`,
		ticker, date.Format(types.DateLayout))
	bar, err := scanBar(row)
	if err == sql.ErrNoRows {
		return types.Bar{}, false, nil
	}
	if err != nil {
		return types.Bar{}, false, err
	}
	return bar, true, nil
}

// GetBars returns the lookback most recent bars strictly before end, oldest
// first. Fails with types.ErrInsufficientHistory when fewer exist.
func (s *Store) GetBars(ctx context.Context, ticker string, end time.Time, lookback int) ([]types.Bar, error) {
	bars, err := s.barsBefore(ctx, ticker, end, lookback)
	if err != nil {
		return nil, err
	}
	if len(bars) < lookback {
		return nil, fmt.Errorf("%w: %s has %d bars before %s, need %d",
			types.ErrInsufficientHistory, ticker, len(bars), end.Format(types.DateLayout), lookback)
	}
	return bars, nil
}

// RecentBars returns up to n bars strictly before end, oldest first. Short
// history is not an error.
func (s *Store) RecentBars(ctx context.Context, ticker string, end time.Time, n int) ([]types.Bar, error) {
	return s.barsBefore(ctx, ticker, end, n)
}

func (s *Store) barsBefore(ctx context.Context, ticker string, end time.Time, limit int) ([]types.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, date, open, high, low, close, volume FROM (
			SELECT * FROM historicals
			WHERE ticker = ? AND date < ?
			ORDER BY date DESC LIMIT ?
		) ORDER BY date ASC`,
		ticker, end.Format(types.DateLayout), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var bars []types.Bar
	for rows.Next() {
		bar, err := scanBar(rows)
		if err != nil {
			return nil, err
		}
		bars = append(bars, bar)
	}
	return bars, rows.Err()
}

// LastBarUpTo returns the most recent bar on or before date, for valuing open
// positions in reports.
func (s *Store) LastBarUpTo(ctx context.Context, ticker string, date time.Time) (types.Bar, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT ticker, date, open, high, low, close, volume
		FROM historicals WHERE ticker = ? AND date <= ?
		ORDER BY date DESC LIMIT 1`,
		ticker, date.Format(types.DateLayout))
	bar, err := scanBar(row)
	if err == sql.ErrNoRows {
		return types.Bar{}, false, nil
	}
	if err != nil {
		return types.Bar{}, false, err
	}
	return bar, true, nil
}

// Tickers lists every ticker with at least one bar.
func (s *Store) Tickers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT ticker FROM historicals ORDER BY ticker`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// TradingDates returns the distinct dates in [start, end] on which any ticker
// traded, ascending. The simulator walks this calendar.
func (s *Store) TradingDates(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT date FROM historicals
		WHERE date >= ? AND date <= ? ORDER BY date ASC`,
		start.Format(types.DateLayout), end.Format(types.DateLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		date, err := types.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("corrupt date %q in historicals: %w", raw, err)
		}
		dates = append(dates, date)
	}
	return dates, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBar(row rowScanner) (types.Bar, error) {
	var (
		bar      types.Bar
		date     string
		o, h, l  string
		closeStr string
	)
	if err := row.Scan(&bar.Ticker, &date, &o, &h, &l, &closeStr, &bar.Volume); err != nil {
		return types.Bar{}, err
	}
	parsed, err := types.ParseDate(date)
	if err != nil {
		return types.Bar{}, fmt.Errorf("corrupt date %q: %w", date, err)
	}
	bar.Date = parsed
	for _, field := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&bar.Open, o}, {&bar.High, h}, {&bar.Low, l}, {&bar.Close, closeStr},
	} {
		v, err := decimal.NewFromString(field.src)
		if err != nil {
			return types.Bar{}, fmt.Errorf("corrupt price %q: %w", field.src, err)
		}
		*field.dst = v
	}
	return bar, nil
}

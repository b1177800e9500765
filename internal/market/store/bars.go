package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ashare/internal/cache"
	"ashare/internal/market"
)

// Store provides access to the persisted per-stock market data: daily bars,
// stock profiles and sector constituent lists. Reads are point-in-time safe:
// bar queries never return rows beyond the requested cutoff date.
type Store struct {
	db    *sql.DB
	cache cache.Cacher
}

const profileCacheTTL = 12 * time.Hour
const constituentsCacheTTL = 12 * time.Hour

// New creates a store backed by the given database and cache
func New(db *sql.DB, cacher cache.Cacher) *Store {
	return &Store{db: db, cache: cacher}
}

// GetBars returns daily bars for a symbol within [start, end], ascending by
// date. The inclusive end bound is the future-leakage guard callers rely on.
func (s *Store) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]market.Bar, error) {
	query := `
		SELECT symbol, trade_date, open, high, low, close, volume
		FROM stock_bars
		WHERE symbol = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, symbol, market.Midnight(start), market.Midnight(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query bars for %s: %w", symbol, err)
	}
	defer rows.Close()

	var bars []market.Bar
	for rows.Next() {
		var b market.Bar
		if err := rows.Scan(&b.Symbol, &b.TradeDate, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		b.TradeDate = market.Midnight(b.TradeDate)
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bars: %w", err)
	}

	return bars, nil
}

// UpsertBars writes daily bars, replacing existing rows for the same
// (symbol, trade_date) so repeated imports are idempotent.
func (s *Store) UpsertBars(ctx context.Context, bars []market.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stock_bars (symbol, trade_date, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, trade_date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, b.Symbol, market.Midnight(b.TradeDate), b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("failed to upsert bar %s %s: %w", b.Symbol, market.FormatDate(b.TradeDate), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetProfile returns a stock's profile, or nil when the stock is unknown.
func (s *Store) GetProfile(ctx context.Context, symbol string) (*market.Profile, error) {
	if s.cache != nil {
		if p, err := s.cache.GetProfile(ctx, symbol); err == nil {
			return p, nil
		}
	}

	query := `
		SELECT symbol, name, COALESCE(shares_outstanding, 0), is_soe
		FROM stock_profiles
		WHERE symbol = $1
	`

	var p market.Profile
	err := s.db.QueryRowContext(ctx, query, symbol).Scan(&p.Symbol, &p.Name, &p.SharesOutstanding, &p.IsSOE)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile for %s: %w", symbol, err)
	}

	if s.cache != nil {
		_ = s.cache.SetProfile(ctx, symbol, &p, profileCacheTTL)
	}
	return &p, nil
}

// GetSectors returns all sectors that have constituents registered.
func (s *Store) GetSectors(ctx context.Context) ([]market.Sector, error) {
	query := `
		SELECT DISTINCT sector_code, sector_name
		FROM sector_constituents
		ORDER BY sector_code
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sectors: %w", err)
	}
	defer rows.Close()

	var sectors []market.Sector
	for rows.Next() {
		var sec market.Sector
		if err := rows.Scan(&sec.Code, &sec.Name); err != nil {
			return nil, fmt.Errorf("failed to scan sector: %w", err)
		}
		sectors = append(sectors, sec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sectors: %w", err)
	}
	return sectors, nil
}

// GetConstituents returns a sector's constituent symbols in registered order.
func (s *Store) GetConstituents(ctx context.Context, sectorCode string) ([]string, error) {
	if s.cache != nil {
		if symbols, err := s.cache.GetConstituents(ctx, sectorCode); err == nil {
			return symbols, nil
		}
	}

	query := `
		SELECT symbol
		FROM sector_constituents
		WHERE sector_code = $1
		ORDER BY rank, symbol
	`

	rows, err := s.db.QueryContext(ctx, query, sectorCode)
	if err != nil {
		return nil, fmt.Errorf("failed to query constituents for %s: %w", sectorCode, err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan constituent: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating constituents: %w", err)
	}

	if s.cache != nil && len(symbols) > 0 {
		_ = s.cache.SetConstituents(ctx, sectorCode, symbols, constituentsCacheTTL)
	}
	return symbols, nil
}

// TradeDatesAfter returns the distinct stock trading dates strictly after
// the given date, ascending. The orchestrator uses this to find the dates an
// index is missing relative to the freshest stock data.
func (s *Store) TradeDatesAfter(ctx context.Context, after time.Time) ([]time.Time, error) {
	query := `
		SELECT DISTINCT trade_date
		FROM stock_bars
		WHERE trade_date > $1
		ORDER BY trade_date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, market.Midnight(after))
	if err != nil {
		return nil, fmt.Errorf("failed to query trade dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan trade date: %w", err)
		}
		dates = append(dates, market.Midnight(d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade dates: %w", err)
	}
	return dates, nil
}

// LatestTradeDate returns the freshest stock bar date in the store.
func (s *Store) LatestTradeDate(ctx context.Context) (time.Time, bool, error) {
	var d sql.NullTime
	err := s.db.QueryRowContext(ctx, `SELECT MAX(trade_date) FROM stock_bars`).Scan(&d)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest trade date: %w", err)
	}
	if !d.Valid {
		return time.Time{}, false, nil
	}
	return market.Midnight(d.Time), true, nil
}

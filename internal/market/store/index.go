package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ashare/internal/market"
)

// IndexSummary describes one persisted synthetic index.
type IndexSummary struct {
	IndexCode string    `json:"index_code"`
	IndexName string    `json:"index_name"`
	FirstDate time.Time `json:"first_date"`
	LastDate  time.Time `json:"last_date"`
	BarCount  int       `json:"bar_count"`
}

// UpsertIndexBars writes index bars keyed by (index_code, trade_date).
// The upsert makes per-date re-runs idempotent, which the incremental
// maintenance loop depends on for safe retries.
func (s *Store) UpsertIndexBars(ctx context.Context, bars []market.IndexBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sector_indexes (index_code, index_name, trade_date, open, high, low, close, volume, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (index_code, trade_date) DO UPDATE SET
			index_name = EXCLUDED.index_name,
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			updated_at = NOW()
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, b.IndexCode, b.IndexName, market.Midnight(b.TradeDate),
			b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("failed to upsert index bar %s %s: %w", b.IndexCode, market.FormatDate(b.TradeDate), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LastIndexBar returns an index's most recent persisted bar, or false when
// the index has never been calculated.
func (s *Store) LastIndexBar(ctx context.Context, indexCode string) (*market.IndexBar, bool, error) {
	query := `
		SELECT index_code, index_name, trade_date, open, high, low, close, volume
		FROM sector_indexes
		WHERE index_code = $1
		ORDER BY trade_date DESC
		LIMIT 1
	`

	var b market.IndexBar
	err := s.db.QueryRowContext(ctx, query, indexCode).Scan(
		&b.IndexCode, &b.IndexName, &b.TradeDate, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query last index bar for %s: %w", indexCode, err)
	}
	b.TradeDate = market.Midnight(b.TradeDate)
	return &b, true, nil
}

// GetIndexBars returns an index's bars within [start, end], ascending.
func (s *Store) GetIndexBars(ctx context.Context, indexCode string, start, end time.Time) ([]market.IndexBar, error) {
	query := `
		SELECT index_code, index_name, trade_date, open, high, low, close, volume
		FROM sector_indexes
		WHERE index_code = $1 AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date ASC
	`

	rows, err := s.db.QueryContext(ctx, query, indexCode, market.Midnight(start), market.Midnight(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query index bars for %s: %w", indexCode, err)
	}
	defer rows.Close()

	var bars []market.IndexBar
	for rows.Next() {
		var b market.IndexBar
		if err := rows.Scan(&b.IndexCode, &b.IndexName, &b.TradeDate, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan index bar: %w", err)
		}
		b.TradeDate = market.Midnight(b.TradeDate)
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index bars: %w", err)
	}
	return bars, nil
}

// ListIndexes summarizes all persisted indexes.
func (s *Store) ListIndexes(ctx context.Context) ([]IndexSummary, error) {
	query := `
		SELECT index_code, MAX(index_name), MIN(trade_date), MAX(trade_date), COUNT(*)
		FROM sector_indexes
		GROUP BY index_code
		ORDER BY index_code
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	defer rows.Close()

	var summaries []IndexSummary
	for rows.Next() {
		var sum IndexSummary
		if err := rows.Scan(&sum.IndexCode, &sum.IndexName, &sum.FirstDate, &sum.LastDate, &sum.BarCount); err != nil {
			return nil, fmt.Errorf("failed to scan index summary: %w", err)
		}
		sum.FirstDate = market.Midnight(sum.FirstDate)
		sum.LastDate = market.Midnight(sum.LastDate)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating index summaries: %w", err)
	}
	return summaries, nil
}

// DeleteIndexBars removes all bars of an index, used before a full
// recalculation is persisted so stale history cannot survive a constituent
// change or a window shift.
func (s *Store) DeleteIndexBars(ctx context.Context, indexCode string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sector_indexes WHERE index_code = $1`, indexCode); err != nil {
		return fmt.Errorf("failed to delete index bars for %s: %w", indexCode, err)
	}
	return nil
}

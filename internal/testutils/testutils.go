// Package testutils provides in-memory market data fixtures shared by the
// package tests. The fixture satisfies the panel and screener source
// interfaces so pipeline components can be tested without a database.
package testutils

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ashare/internal/market"
)

// MemoryMarket is an in-memory stand-in for the persisted market store.
type MemoryMarket struct {
	Bars         map[string][]market.Bar
	Profiles     map[string]*market.Profile
	Constituents map[string][]string

	// BarErr forces GetBars to fail for a symbol.
	BarErr map[string]error
}

// NewMemoryMarket creates an empty fixture.
func NewMemoryMarket() *MemoryMarket {
	return &MemoryMarket{
		Bars:         make(map[string][]market.Bar),
		Profiles:     make(map[string]*market.Profile),
		Constituents: make(map[string][]string),
		BarErr:       make(map[string]error),
	}
}

// GetBars returns the fixture bars within [start, end], ascending.
func (m *MemoryMarket) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]market.Bar, error) {
	if err := m.BarErr[symbol]; err != nil {
		return nil, err
	}

	var out []market.Bar
	for _, bar := range m.Bars[symbol] {
		if bar.TradeDate.Before(start) || bar.TradeDate.After(end) {
			continue
		}
		out = append(out, bar)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TradeDate.Before(out[j].TradeDate) })
	return out, nil
}

// GetProfile returns the fixture profile, nil when unknown.
func (m *MemoryMarket) GetProfile(ctx context.Context, symbol string) (*market.Profile, error) {
	return m.Profiles[symbol], nil
}

// GetConstituents returns a sector's fixture constituents.
func (m *MemoryMarket) GetConstituents(ctx context.Context, sectorCode string) ([]string, error) {
	symbols, ok := m.Constituents[sectorCode]
	if !ok {
		return nil, fmt.Errorf("unknown sector %s", sectorCode)
	}
	return symbols, nil
}

// AddBar appends one daily bar for a symbol.
func (m *MemoryMarket) AddBar(symbol string, date time.Time, open, high, low, close, volume float64) {
	m.Bars[symbol] = append(m.Bars[symbol], market.Bar{
		Symbol:    symbol,
		TradeDate: market.Midnight(date),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	})
}

// SetProfile registers a symbol's shares outstanding and SOE tag.
func (m *MemoryMarket) SetProfile(symbol string, shares float64, isSOE bool) {
	m.Profiles[symbol] = &market.Profile{
		Symbol:            symbol,
		SharesOutstanding: shares,
		IsSOE:             isSOE,
	}
}

// Date builds a UTC midnight date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// AddFlatBars appends n consecutive weekday bars with a constant price and
// volume, starting at the given date. Returns the last date used.
func (m *MemoryMarket) AddFlatBars(symbol string, start time.Time, n int, price, volume float64) time.Time {
	date := market.Midnight(start)
	var last time.Time
	for added := 0; added < n; {
		if date.Weekday() != time.Saturday && date.Weekday() != time.Sunday {
			m.AddBar(symbol, date, price, price, price, price, volume)
			last = date
			added++
		}
		date = date.AddDate(0, 0, 1)
	}
	return last
}

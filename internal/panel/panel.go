package panel

import (
	"time"

	"ashare/internal/market"
)

// Panel is an aligned wide table of daily stock data: one row per trading
// date, one column set per instrument. It is built once per calculation run
// and treated as a read-only snapshot afterwards, so downstream calculators
// can never mutate history.
type Panel struct {
	dates   []time.Time
	symbols []string

	open   map[string][]float64
	high   map[string][]float64
	low    map[string][]float64
	close  map[string][]float64
	volume map[string][]float64
	shares map[string][]float64

	dateIdx map[string]int
}

// Row is a point-in-time view of one panel date.
type Row struct {
	panel *Panel
	idx   int
}

func newPanel(dates []time.Time, symbols []string) *Panel {
	p := &Panel{
		dates:   dates,
		symbols: symbols,
		open:    make(map[string][]float64, len(symbols)),
		high:    make(map[string][]float64, len(symbols)),
		low:     make(map[string][]float64, len(symbols)),
		close:   make(map[string][]float64, len(symbols)),
		volume:  make(map[string][]float64, len(symbols)),
		shares:  make(map[string][]float64, len(symbols)),
		dateIdx: make(map[string]int, len(dates)),
	}
	for i, d := range dates {
		p.dateIdx[market.FormatDate(d)] = i
	}
	return p
}

// IsEmpty reports whether the panel holds no usable data.
func (p *Panel) IsEmpty() bool {
	return p == nil || len(p.dates) == 0 || len(p.symbols) == 0
}

// NumRows returns the number of trading dates in the panel.
func (p *Panel) NumRows() int {
	return len(p.dates)
}

// Dates returns the panel's trading dates, ascending.
func (p *Panel) Dates() []time.Time {
	return p.dates
}

// Symbols returns the instruments included in the panel, in the order they
// were supplied to the builder.
func (p *Panel) Symbols() []string {
	return p.symbols
}

// LastDate returns the most recent date in the panel.
func (p *Panel) LastDate() (time.Time, bool) {
	if len(p.dates) == 0 {
		return time.Time{}, false
	}
	return p.dates[len(p.dates)-1], true
}

// RowAt returns the row for a given date, or false when the date is not in
// the panel. Callers must handle the missing case explicitly; a date outside
// the range is a normal outcome, not an exception.
func (p *Panel) RowAt(date time.Time) (Row, bool) {
	idx, ok := p.dateIdx[market.FormatDate(date)]
	if !ok {
		return Row{}, false
	}
	return Row{panel: p, idx: idx}, true
}

// RowByIndex returns the i-th row.
func (p *Panel) RowByIndex(i int) (Row, bool) {
	if i < 0 || i >= len(p.dates) {
		return Row{}, false
	}
	return Row{panel: p, idx: i}, true
}

// Index returns the row of the row view.
func (r Row) Index() int { return r.idx }

// Date returns the date of the row.
func (r Row) Date() time.Time { return r.panel.dates[r.idx] }

// Open returns the open price of a symbol at this row.
func (r Row) Open(symbol string) float64 { return r.panel.open[symbol][r.idx] }

// High returns the high price of a symbol at this row.
func (r Row) High(symbol string) float64 { return r.panel.high[symbol][r.idx] }

// Low returns the low price of a symbol at this row.
func (r Row) Low(symbol string) float64 { return r.panel.low[symbol][r.idx] }

// Close returns the close price of a symbol at this row.
func (r Row) Close(symbol string) float64 { return r.panel.close[symbol][r.idx] }

// Volume returns the traded volume of a symbol at this row.
func (r Row) Volume(symbol string) float64 { return r.panel.volume[symbol][r.idx] }

// Shares returns the shares outstanding of a symbol at this row.
func (r Row) Shares(symbol string) float64 { return r.panel.shares[symbol][r.idx] }

// MarketCap returns close × shares outstanding of a symbol at this row.
func (r Row) MarketCap(symbol string) float64 {
	return r.Close(symbol) * r.Shares(symbol)
}

// Closes returns a symbol's close price series, aligned to Dates().
func (p *Panel) Closes(symbol string) []float64 { return p.close[symbol] }

// Volumes returns a symbol's volume series, aligned to Dates().
func (p *Panel) Volumes(symbol string) []float64 { return p.volume[symbol] }

// Shares returns a symbol's shares-outstanding series, aligned to Dates().
func (p *Panel) Shares(symbol string) []float64 { return p.shares[symbol] }

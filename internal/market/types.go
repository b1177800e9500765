package market

import "time"

// DateFormat is the calendar date layout used across the toolkit.
const DateFormat = "2006-01-02"

// Bar represents a single daily OHLCV bar for a stock
type Bar struct {
	Symbol    string    `json:"symbol"`
	TradeDate time.Time `json:"trade_date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// IndexBar represents a single daily bar of a synthetic sector index
type IndexBar struct {
	IndexCode string    `json:"index_code"`
	IndexName string    `json:"index_name"`
	TradeDate time.Time `json:"trade_date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// Profile represents slow-changing per-stock attributes
type Profile struct {
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	SharesOutstanding float64 `json:"shares_outstanding"`
	IsSOE             bool    `json:"is_soe"`
}

// Sector represents a stock grouping that gets a synthetic index
type Sector struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ParseDate parses a calendar date string
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateFormat, s, time.UTC)
}

// FormatDate formats a date as a calendar string
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// Midnight truncates a timestamp to its calendar date
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether two timestamps fall on the same calendar date
func SameDate(a, b time.Time) bool {
	return Midnight(a).Equal(Midnight(b))
}

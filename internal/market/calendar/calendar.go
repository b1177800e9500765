package calendar

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"ashare/internal/market"
)

// Calendar 判断A股交易日。周六周日永不交易（调休补班日也不交易），
// 法定节假日从配置文件加载，缺省时退化为周一到周五都是交易日。
type Calendar struct {
	holidays map[string]bool
}

// New creates a calendar with no holidays loaded.
func New() *Calendar {
	return &Calendar{holidays: make(map[string]bool)}
}

// Load creates a calendar from a JSON holiday file,
// format {"holidays": ["2025-01-01", ...]}. An empty path yields an
// empty calendar; a missing file is not an error.
func Load(filePath string) (*Calendar, error) {
	c := New()
	if filePath == "" {
		return c, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read holiday file: %w", err)
	}

	var config struct {
		Holidays []string `json:"holidays"`
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse holiday file: %w", err)
	}

	for _, date := range config.Holidays {
		c.holidays[date] = true
	}
	return c, nil
}

// AddHoliday marks a date as a non-trading day.
func (c *Calendar) AddHoliday(date time.Time) {
	c.holidays[market.FormatDate(date)] = true
}

// IsTradingDay reports whether the given date is an A-share trading day.
func (c *Calendar) IsTradingDay(date time.Time) bool {
	wd := date.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !c.holidays[market.FormatDate(date)]
}

// NextTradingDay returns the first trading day strictly after the given date.
func (c *Calendar) NextTradingDay(date time.Time) time.Time {
	d := market.Midnight(date).AddDate(0, 0, 1)
	for !c.IsTradingDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// TradingDays returns all trading days in [start, end], inclusive.
func (c *Calendar) TradingDays(start, end time.Time) []time.Time {
	var days []time.Time
	for d := market.Midnight(start); !d.After(market.Midnight(end)); d = d.AddDate(0, 0, 1) {
		if c.IsTradingDay(d) {
			days = append(days, d)
		}
	}
	return days
}

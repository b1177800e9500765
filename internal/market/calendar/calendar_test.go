package calendar

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ashare/internal/market"
)

func TestIsTradingDay(t *testing.T) {
	c := New()

	t.Run("weekends never trade", func(t *testing.T) {
		saturday := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
		sunday := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
		if c.IsTradingDay(saturday) || c.IsTradingDay(sunday) {
			t.Error("weekend must not be a trading day")
		}
	})

	t.Run("weekday trades unless it is a holiday", func(t *testing.T) {
		newYear := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		if !c.IsTradingDay(newYear) {
			t.Error("without a holiday list, a weekday is a trading day")
		}
		c.AddHoliday(newYear)
		if c.IsTradingDay(newYear) {
			t.Error("registered holiday must not trade")
		}
	})
}

func TestLoadHolidayFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.json")
	content := `{"holidays": ["2026-02-16", "2026-02-17"]}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.IsTradingDay(time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)) {
		t.Error("loaded holiday must not trade")
	}

	t.Run("missing file is not an error", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err != nil {
			t.Errorf("missing file should load empty: %v", err)
		}
	})
}

func TestNextTradingDay(t *testing.T) {
	c := New()
	friday := time.Date(2026, 1, 9, 0, 0, 0, 0, time.UTC)

	next := c.NextTradingDay(friday)
	if market.FormatDate(next) != "2026-01-12" {
		t.Errorf("next trading day after Friday = %s, want 2026-01-12", market.FormatDate(next))
	}
}

func TestTradingDays(t *testing.T) {
	c := New()
	c.AddHoliday(time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC))

	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC)

	// 周一到周五减去一天假日，周末不计
	days := c.TradingDays(start, end)
	if len(days) != 4 {
		t.Fatalf("expected 4 trading days, got %d", len(days))
	}
}

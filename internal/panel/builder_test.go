package panel

import (
	"context"
	"testing"
	"time"

	apperrors "ashare/internal/errors"
	"ashare/internal/market"
	"ashare/internal/testutils"
)

func TestBuildAlignsOnDateUnion(t *testing.T) {
	ctx := context.Background()
	m := testutils.NewMemoryMarket()

	d1 := testutils.Date(2026, 1, 5)
	d2 := testutils.Date(2026, 1, 6)
	d3 := testutils.Date(2026, 1, 7)

	// 600001 每天都有行情，600002 在 d2 停牌
	m.AddBar("600001", d1, 10, 10.5, 9.8, 10.2, 1000)
	m.AddBar("600001", d2, 10.2, 10.6, 10.1, 10.4, 1100)
	m.AddBar("600001", d3, 10.4, 10.9, 10.3, 10.8, 1200)
	m.AddBar("600002", d1, 20, 20.5, 19.8, 20.1, 500)
	m.AddBar("600002", d3, 20.1, 20.4, 19.9, 20.0, 600)
	m.SetProfile("600001", 10000, false)
	m.SetProfile("600002", 20000, true)

	b := NewBuilder(m, nil)
	p, err := b.Build(ctx, []string{"600001", "600002"}, d1, d3)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if p.NumRows() != 3 {
		t.Fatalf("expected 3 rows, got %d", p.NumRows())
	}

	t.Run("suspension keeps last price with zero volume", func(t *testing.T) {
		row, ok := p.RowAt(d2)
		if !ok {
			t.Fatal("d2 missing from panel")
		}
		if row.Close("600002") != 20.1 {
			t.Errorf("expected frozen close 20.1, got %v", row.Close("600002"))
		}
		if row.Open("600002") != 20 {
			t.Errorf("expected frozen open 20, got %v", row.Open("600002"))
		}
		if row.Volume("600002") != 0 {
			t.Errorf("suspended day volume should be 0, got %v", row.Volume("600002"))
		}
		// 正常交易的个股不受影响
		if row.Volume("600001") != 1100 {
			t.Errorf("expected volume 1100, got %v", row.Volume("600001"))
		}
	})

	t.Run("shares come from the profile", func(t *testing.T) {
		row, _ := p.RowAt(d1)
		if row.Shares("600002") != 20000 {
			t.Errorf("expected shares 20000, got %v", row.Shares("600002"))
		}
		if row.MarketCap("600002") != 20.1*20000 {
			t.Errorf("unexpected market cap %v", row.MarketCap("600002"))
		}
	})
}

func TestBuildBackfillsLeadingGap(t *testing.T) {
	ctx := context.Background()
	m := testutils.NewMemoryMarket()

	d1 := testutils.Date(2026, 1, 5)
	d2 := testutils.Date(2026, 1, 6)

	m.AddBar("600001", d1, 10, 10, 10, 10, 1000)
	m.AddBar("600001", d2, 10, 10, 10, 10, 1000)
	// 600003 上市较晚，窗口开头无行情
	m.AddBar("600003", d2, 30, 30, 30, 30, 300)
	m.SetProfile("600001", 10000, false)
	m.SetProfile("600003", 5000, false)

	b := NewBuilder(m, nil)
	p, err := b.Build(ctx, []string{"600001", "600003"}, d1, d2)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	row, _ := p.RowAt(d1)
	if row.Close("600003") != 30 {
		t.Errorf("leading gap should backfill from first bar, got %v", row.Close("600003"))
	}
	if row.Volume("600003") != 0 {
		t.Errorf("backfilled day volume should be 0, got %v", row.Volume("600003"))
	}
}

func TestBuildExcludesUnusableSymbols(t *testing.T) {
	ctx := context.Background()
	m := testutils.NewMemoryMarket()

	d1 := testutils.Date(2026, 1, 5)
	m.AddBar("600001", d1, 10, 10, 10, 10, 1000)
	m.SetProfile("600001", 10000, false)
	m.BarErr["600009"] = apperrors.New(apperrors.ErrCodeDBQuery, "boom")

	b := NewBuilder(m, nil)
	// 600009 查询失败，600008 无数据，都应被剔除而非报错
	p, err := b.Build(ctx, []string{"600001", "600009", "600008"}, d1, d1)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(p.Symbols()) != 1 || p.Symbols()[0] != "600001" {
		t.Errorf("expected only 600001, got %v", p.Symbols())
	}
}

func TestBuildEmptyPanelIsNotAnError(t *testing.T) {
	ctx := context.Background()
	m := testutils.NewMemoryMarket()

	b := NewBuilder(m, nil)
	p, err := b.Build(ctx, []string{"600001"}, testutils.Date(2026, 1, 5), testutils.Date(2026, 1, 9))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !p.IsEmpty() {
		t.Error("expected an empty panel")
	}
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	b := NewBuilder(testutils.NewMemoryMarket(), nil)

	_, err := b.Build(ctx, nil, testutils.Date(2026, 1, 5), testutils.Date(2026, 1, 9))
	if !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("empty symbol list: expected INVALID_INPUT, got %v", err)
	}

	_, err = b.Build(ctx, []string{"600001"}, testutils.Date(2026, 1, 9), testutils.Date(2026, 1, 5))
	if !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("inverted range: expected INVALID_INPUT, got %v", err)
	}
}

func TestRowAtNormalizesTime(t *testing.T) {
	ctx := context.Background()
	m := testutils.NewMemoryMarket()
	d1 := testutils.Date(2026, 1, 5)
	m.AddBar("600001", d1, 10, 10, 10, 10, 1000)
	m.SetProfile("600001", 10000, false)

	b := NewBuilder(m, nil)
	p, err := b.Build(ctx, []string{"600001"}, d1, d1)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	noon := time.Date(2026, 1, 5, 12, 30, 0, 0, time.UTC)
	if _, ok := p.RowAt(market.Midnight(noon)); !ok {
		t.Error("midnight-normalized lookup should find the row")
	}
	if _, ok := p.RowAt(testutils.Date(2026, 1, 6)); ok {
		t.Error("absent date must report not found")
	}
}

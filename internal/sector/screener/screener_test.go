package screener

import (
	"context"
	"fmt"
	"testing"

	"ashare/internal/panel"
	"ashare/internal/testutils"
)

func newTestScreener(m *testutils.MemoryMarket, cfg Config) *Screener {
	builder := panel.NewBuilder(m, nil)
	return New(m, m, builder, nil, cfg, nil)
}

func TestNewAppliesPerFieldDefaults(t *testing.T) {
	m := testutils.NewMemoryMarket()
	s := newTestScreener(m, Config{TurnoverWindow: 10, SelectRatio: 0.5})

	if s.cfg.TurnoverWindow != 10 || s.cfg.SelectRatio != 0.5 {
		t.Errorf("explicit fields overridden: %+v", s.cfg)
	}
	if s.cfg.BurstLookback != 126 || s.cfg.BurstMultiplier != 1.5 || s.cfg.MinSelect != 3 {
		t.Errorf("unset fields not defaulted: %+v", s.cfg)
	}
	if s.cfg.SOEBonus != 1.2 || s.cfg.HighPriceBonus != 1.2 {
		t.Errorf("unset bonuses not defaulted: %+v", s.cfg)
	}
}

func TestScreenPassthroughSmallSector(t *testing.T) {
	m := testutils.NewMemoryMarket()
	m.Constituents["BK0001"] = []string{"600001", "600002", "600003"}

	s := newTestScreener(m, DefaultConfig)

	// 成分股不超过最少选取数时原样返回，不做任何评分
	selected, err := s.Screen(context.Background(), "BK0001", testutils.Date(2026, 1, 5))
	if err != nil {
		t.Fatalf("Screen failed: %v", err)
	}
	if len(selected) != 3 {
		t.Fatalf("expected passthrough of 3 symbols, got %v", selected)
	}
}

func TestScreenSelectsTopFraction(t *testing.T) {
	m := testutils.NewMemoryMarket()
	start := testutils.Date(2026, 1, 5)

	var symbols []string
	var last = start
	for i := 0; i < 10; i++ {
		symbol := fmt.Sprintf("6000%02d", i)
		symbols = append(symbols, symbol)
		// 换手率随编号递增：volume = (i+1)*1000, shares 固定
		last = m.AddFlatBars(symbol, start, 40, 10, float64((i+1)*1000))
		m.SetProfile(symbol, 100000, false)
	}
	m.Constituents["BK0001"] = symbols

	cfg := DefaultConfig
	cfg.TurnoverWindow = 5
	cfg.BurstLookback = 10
	s := newTestScreener(m, cfg)

	selected, err := s.Screen(context.Background(), "BK0001", last)
	if err != nil {
		t.Fatalf("Screen failed: %v", err)
	}

	// 10 只成分股：max(3, ceil(0.2*10)) = 3
	if len(selected) != 3 {
		t.Fatalf("expected 3 selected, got %v", selected)
	}
	// 换手率最高的编号靠后
	want := map[string]bool{"600009": true, "600008": true, "600007": true}
	for _, symbol := range selected {
		if !want[symbol] {
			t.Errorf("unexpected selection %v", selected)
			break
		}
	}
}

func TestScreenBonusesCompound(t *testing.T) {
	m := testutils.NewMemoryMarket()
	start := testutils.Date(2026, 1, 5)

	// 八只股票换手率完全相同；600000 同时命中国企和高价两项加成
	var symbols []string
	var last = start
	for i := 0; i < 8; i++ {
		symbol := fmt.Sprintf("6000%02d", i)
		symbols = append(symbols, symbol)
		price := 10.0
		if i == 0 {
			price = 100 // 高于中位数收盘价
		}
		last = m.AddFlatBars(symbol, start, 40, price, 1000)
		m.SetProfile(symbol, 100000, i == 0)
	}
	m.Constituents["BK0001"] = symbols

	cfg := DefaultConfig
	cfg.TurnoverWindow = 5
	cfg.BurstLookback = 10
	s := newTestScreener(m, cfg)

	selected, err := s.Screen(context.Background(), "BK0001", last)
	if err != nil {
		t.Fatalf("Screen failed: %v", err)
	}
	if len(selected) == 0 || selected[0] != "600000" {
		t.Errorf("double-bonus symbol should rank first, got %v", selected)
	}
}

func TestBonusScoreIsExactly144Percent(t *testing.T) {
	m := testutils.NewMemoryMarket()
	start := testutils.Date(2026, 1, 5)

	var symbols []string
	var last = start
	for i := 0; i < 4; i++ {
		symbol := fmt.Sprintf("6000%02d", i)
		symbols = append(symbols, symbol)
		price := 10.0
		if i == 0 {
			price = 100
		}
		last = m.AddFlatBars(symbol, start, 40, price, 1000)
		m.SetProfile(symbol, 100000, i == 0)
	}

	cfg := DefaultConfig
	cfg.TurnoverWindow = 5
	cfg.BurstLookback = 10
	s := newTestScreener(m, cfg)

	p, err := panel.NewBuilder(m, nil).Build(context.Background(), symbols,
		start.AddDate(0, 0, -1), last)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	asOfRow, ok := p.RowAt(last)
	if !ok {
		t.Fatal("as-of date missing from panel")
	}

	scored := s.scoreCandidates(context.Background(), p, asOfRow)
	byScore := make(map[string]float64, len(scored))
	for _, sc := range scored {
		byScore[sc.Symbol] = sc.Score
	}

	// 双重加成 = 1.2 × 1.2，严格乘性叠加
	base := byScore["600001"]
	if base <= 0 {
		t.Fatalf("base score = %v, want > 0", base)
	}
	if got := byScore["600000"] / base; got < 1.44-1e-9 || got > 1.44+1e-9 {
		t.Errorf("bonus ratio = %v, want exactly 1.44", got)
	}
}

func TestScreenDegradedFallback(t *testing.T) {
	m := testutils.NewMemoryMarket()
	// 五只成分股但没有任何行情数据
	m.Constituents["BK0001"] = []string{"600001", "600002", "600003", "600004", "600005"}

	s := newTestScreener(m, DefaultConfig)

	selected, err := s.Screen(context.Background(), "BK0001", testutils.Date(2026, 1, 5))
	if err != nil {
		t.Fatalf("Screen failed: %v", err)
	}

	// 降级路径：按注册顺序取前 MinSelect 只
	want := []string{"600001", "600002", "600003"}
	if len(selected) != len(want) {
		t.Fatalf("expected %v, got %v", want, selected)
	}
	for i := range want {
		if selected[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, selected)
		}
	}
}

func TestCountBursts(t *testing.T) {
	// 第 6 个位置的量是前 5 日均量的 3 倍，仅此一天判定为放量
	volumes := []float64{100, 100, 100, 100, 100, 300, 100, 100}
	if got := countBursts(volumes, 5, 10, 1.5); got != 1 {
		t.Errorf("countBursts = %d, want 1", got)
	}

	// 当日自身不计入均量基数
	flat := []float64{100, 100, 100, 100}
	if got := countBursts(flat, 5, 10, 1.5); got != 0 {
		t.Errorf("flat series bursts = %d, want 0", got)
	}
}

func TestMedian(t *testing.T) {
	if got := median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("odd median = %v, want 2", got)
	}
	if got := median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("even median = %v, want 2.5", got)
	}
	if got := median(nil); got != 0 {
		t.Errorf("empty median = %v, want 0", got)
	}
}

package screener

import (
	"context"
	"math"
	"sort"
	"time"

	"ashare/internal/cache"
	"ashare/internal/logger"
	"ashare/internal/market"
	"ashare/internal/panel"
)

// Config holds the screener's tuning parameters.
type Config struct {
	TurnoverWindow  int     // 换手率均值窗口（交易日）
	BurstLookback   int     // 放量天数统计窗口（交易日）
	BurstMultiplier float64 // 放量判定倍数
	SelectRatio     float64 // 选取比例
	MinSelect       int     // 最少选取数量
	SOEBonus        float64 // 国企标签加成
	HighPriceBonus  float64 // 高价股加成
}

// DefaultConfig matches the hand-tuned parameters of the research workflow.
var DefaultConfig = Config{
	TurnoverWindow:  30,
	BurstLookback:   126,
	BurstMultiplier: 1.5,
	SelectRatio:     0.2,
	MinSelect:       3,
	SOEBonus:        1.2,
	HighPriceBonus:  1.2,
}

func (c *Config) applyDefaults() {
	if c.TurnoverWindow <= 0 {
		c.TurnoverWindow = DefaultConfig.TurnoverWindow
	}
	if c.BurstLookback <= 0 {
		c.BurstLookback = DefaultConfig.BurstLookback
	}
	if c.BurstMultiplier <= 0 {
		c.BurstMultiplier = DefaultConfig.BurstMultiplier
	}
	if c.SelectRatio <= 0 {
		c.SelectRatio = DefaultConfig.SelectRatio
	}
	if c.MinSelect <= 0 {
		c.MinSelect = DefaultConfig.MinSelect
	}
	if c.SOEBonus <= 0 {
		c.SOEBonus = DefaultConfig.SOEBonus
	}
	if c.HighPriceBonus <= 0 {
		c.HighPriceBonus = DefaultConfig.HighPriceBonus
	}
}

// ConstituentSource resolves a sector to its constituent symbols.
type ConstituentSource interface {
	GetConstituents(ctx context.Context, sectorCode string) ([]string, error)
}

// Scored pairs a symbol with its final activity score.
type Scored struct {
	Symbol string
	Score  float64
}

// Screener ranks a sector's constituents by an activity/liquidity composite
// and selects a representative top fraction, so that index construction does
// not need to load every constituent's history.
type Screener struct {
	constituents ConstituentSource
	source       panel.BarSource
	builder      *panel.Builder
	cache        cache.Cacher
	cfg          Config
	log          logger.Logger
}

// New creates a screener. The cache may be nil.
func New(constituents ConstituentSource, source panel.BarSource, builder *panel.Builder, cacher cache.Cacher, cfg Config, log logger.Logger) *Screener {
	cfg.applyDefaults()
	if log == nil {
		log = logger.Global()
	}
	return &Screener{
		constituents: constituents,
		source:       source,
		builder:      builder,
		cache:        cacher,
		cfg:          cfg,
		log:          log,
	}
}

// Screen selects the representative constituents of a sector as of a date.
// Sectors with MinSelect or fewer constituents are returned unchanged. When
// asOfDate is absent from the computed metrics (non-trading day, not enough
// history), the first MinSelect constituents are returned as a degraded,
// low-confidence fallback rather than an error.
func (s *Screener) Screen(ctx context.Context, sectorCode string, asOfDate time.Time) ([]string, error) {
	symbols, err := s.constituents.GetConstituents(ctx, sectorCode)
	if err != nil {
		return nil, err
	}
	if len(symbols) <= s.cfg.MinSelect {
		return symbols, nil
	}

	dateKey := market.FormatDate(asOfDate)
	if s.cache != nil {
		if cached, err := s.cache.GetSelection(ctx, sectorCode, dateKey); err == nil {
			return cached, nil
		}
	}

	selected := s.screenSymbols(ctx, sectorCode, symbols, asOfDate)

	if s.cache != nil {
		_ = s.cache.SetSelection(ctx, sectorCode, dateKey, selected, 24*time.Hour)
	}
	return selected, nil
}

func (s *Screener) screenSymbols(ctx context.Context, sectorCode string, symbols []string, asOfDate time.Time) []string {
	// 覆盖放量统计窗口所需的自然日回看区间
	lookbackDays := 2*s.cfg.BurstLookback + 2*s.cfg.TurnoverWindow
	start := asOfDate.AddDate(0, 0, -lookbackDays)

	p, err := s.builder.Build(ctx, symbols, start, asOfDate)
	if err != nil || p.IsEmpty() {
		s.log.Warn("screening degraded: panel unavailable", "sector", sectorCode, "error", err)
		return firstN(symbols, s.cfg.MinSelect)
	}

	asOfRow, ok := p.RowAt(market.Midnight(asOfDate))
	if !ok {
		s.log.Warn("screening degraded: as-of date not in panel",
			"sector", sectorCode, "as_of", market.FormatDate(asOfDate))
		return firstN(symbols, s.cfg.MinSelect)
	}

	scored := s.scoreCandidates(ctx, p, asOfRow)
	if len(scored) == 0 {
		s.log.Warn("screening degraded: no scorable candidates", "sector", sectorCode)
		return firstN(symbols, s.cfg.MinSelect)
	}

	// 稳定排序：同分保持成分股原始顺序
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	count := int(math.Ceil(s.cfg.SelectRatio * float64(len(symbols))))
	if count < s.cfg.MinSelect {
		count = s.cfg.MinSelect
	}
	if count > len(scored) {
		count = len(scored)
	}

	selected := make([]string, count)
	for i := 0; i < count; i++ {
		selected[i] = scored[i].Symbol
	}
	return selected
}

// scoreCandidates computes the activity composite for every panel symbol
// with a known shares-outstanding attribute.
func (s *Screener) scoreCandidates(ctx context.Context, p *panel.Panel, asOfRow panel.Row) []Scored {
	type candidate struct {
		symbol   string
		turnover float64
		bursts   int
		close    float64
		isSOE    bool
	}

	var candidates []candidate
	var maxTurnover float64

	for _, symbol := range p.Symbols() {
		shares := asOfRow.Shares(symbol)
		if shares <= 0 {
			continue
		}

		volumes := p.Volumes(symbol)
		end := asOfRow.Index() + 1

		turnover := meanTurnover(volumes[:end], shares, s.cfg.TurnoverWindow)
		bursts := countBursts(volumes[:end], s.cfg.TurnoverWindow, s.cfg.BurstLookback, s.cfg.BurstMultiplier)

		var isSOE bool
		if profile, err := s.source.GetProfile(ctx, symbol); err == nil && profile != nil {
			isSOE = profile.IsSOE
		}

		candidates = append(candidates, candidate{
			symbol:   symbol,
			turnover: turnover,
			bursts:   bursts,
			close:    asOfRow.Close(symbol),
			isSOE:    isSOE,
		})
		if turnover > maxTurnover {
			maxTurnover = turnover
		}
	}

	if len(candidates) == 0 {
		return nil
	}

	closes := make([]float64, len(candidates))
	for i, c := range candidates {
		closes[i] = c.close
	}
	medianClose := median(closes)

	scored := make([]Scored, len(candidates))
	for i, c := range candidates {
		turnoverNorm := 0.0
		if maxTurnover > 0 {
			turnoverNorm = c.turnover / maxTurnover
		}
		score := 0.6*turnoverNorm + 0.4*(float64(c.bursts)/100)

		// 加成是乘性的，两项可叠加
		if c.isSOE {
			score *= s.cfg.SOEBonus
		}
		if c.close > medianClose {
			score *= s.cfg.HighPriceBonus
		}

		scored[i] = Scored{Symbol: c.symbol, Score: score}
	}
	return scored
}

// meanTurnover averages volume/shares over the trailing window.
func meanTurnover(volumes []float64, shares float64, window int) float64 {
	if len(volumes) == 0 || shares <= 0 {
		return 0
	}
	start := len(volumes) - window
	if start < 0 {
		start = 0
	}
	var sum float64
	for _, v := range volumes[start:] {
		sum += v / shares
	}
	return sum / float64(len(volumes)-start)
}

// countBursts counts days in the trailing lookback whose volume exceeded
// multiplier × its own trailing rolling mean.
func countBursts(volumes []float64, window, lookback int, multiplier float64) int {
	start := len(volumes) - lookback
	if start < 1 {
		start = 1
	}
	count := 0
	for i := start; i < len(volumes); i++ {
		wStart := i - window
		if wStart < 0 {
			wStart = 0
		}
		var sum float64
		for _, v := range volumes[wStart:i] {
			sum += v
		}
		n := i - wStart
		if n == 0 {
			continue
		}
		mean := sum / float64(n)
		if mean > 0 && volumes[i] > multiplier*mean {
			count++
		}
	}
	return count
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func firstN(symbols []string, n int) []string {
	if len(symbols) < n {
		n = len(symbols)
	}
	return append([]string(nil), symbols[:n]...)
}

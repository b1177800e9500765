package panel

import (
	"context"
	"sort"
	"time"

	apperrors "ashare/internal/errors"
	"ashare/internal/logger"
	"ashare/internal/market"
)

// BarSource supplies raw per-stock history. The bar query must never return
// rows beyond the requested end date; the index calculator's point-in-time
// weighting depends on that contract.
type BarSource interface {
	GetBars(ctx context.Context, symbol string, start, end time.Time) ([]market.Bar, error)
	GetProfile(ctx context.Context, symbol string) (*market.Profile, error)
}

// Builder converts independently fetched per-stock histories into aligned
// wide panels with deterministic suspension handling.
type Builder struct {
	source BarSource
	log    logger.Logger
}

// NewBuilder creates a panel builder
func NewBuilder(source BarSource, log logger.Logger) *Builder {
	if log == nil {
		log = logger.Global()
	}
	return &Builder{source: source, log: log}
}

// Source returns the underlying bar source.
func (b *Builder) Source() BarSource {
	return b.source
}

// Build fetches bars for every symbol and aligns them on the union of their
// trading dates within [start, end]. Missing per-stock cells are treated as
// trading suspensions: prices and shares are forward-filled then
// back-filled (frozen at the last known value), volume is filled with zero.
// Symbols with no data at all in the window are silently excluded; if none
// remain, an empty panel is returned rather than an error.
func (b *Builder) Build(ctx context.Context, symbols []string, start, end time.Time) (*Panel, error) {
	if len(symbols) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "stock list is empty")
	}
	if start.After(end) {
		return nil, apperrors.Newf(apperrors.ErrCodeInvalidInput, "invalid date range",
			"start %s after end %s", market.FormatDate(start), market.FormatDate(end))
	}

	// 逐只拉取，缺数据的个股直接剔除，不视为错误
	type symbolBars struct {
		symbol string
		byDate map[string]market.Bar
		shares float64
	}

	var included []symbolBars
	dateSet := make(map[string]time.Time)

	for _, symbol := range symbols {
		bars, err := b.source.GetBars(ctx, symbol, start, end)
		if err != nil {
			b.log.Warn("failed to fetch bars, excluding from panel", "symbol", symbol, "error", err)
			continue
		}
		if len(bars) == 0 {
			continue
		}

		byDate := make(map[string]market.Bar, len(bars))
		for _, bar := range bars {
			key := market.FormatDate(bar.TradeDate)
			byDate[key] = bar
			dateSet[key] = market.Midnight(bar.TradeDate)
		}

		var shares float64
		profile, err := b.source.GetProfile(ctx, symbol)
		if err != nil {
			b.log.Warn("failed to fetch profile", "symbol", symbol, "error", err)
		} else if profile != nil {
			shares = profile.SharesOutstanding
		}

		included = append(included, symbolBars{symbol: symbol, byDate: byDate, shares: shares})
	}

	if len(included) == 0 {
		return newPanel(nil, nil), nil
	}

	dates := make([]time.Time, 0, len(dateSet))
	for _, d := range dateSet {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	orderedSymbols := make([]string, len(included))
	for i, sb := range included {
		orderedSymbols[i] = sb.symbol
	}

	// 先在普通切片里按列累积，最后一次性装配，避免逐列增量扩表
	p := newPanel(dates, orderedSymbols)
	for _, sb := range included {
		open := make([]float64, len(dates))
		high := make([]float64, len(dates))
		low := make([]float64, len(dates))
		closeCol := make([]float64, len(dates))
		volume := make([]float64, len(dates))
		shares := make([]float64, len(dates))

		// Forward fill: a suspended day keeps the last known prices with
		// zero volume. Volume zero is "no trading", distinct from unknown.
		var last market.Bar
		var seen bool
		firstIdx := -1
		for i, d := range dates {
			if bar, ok := sb.byDate[market.FormatDate(d)]; ok {
				last = bar
				if !seen {
					firstIdx = i
					seen = true
				}
				open[i], high[i], low[i], closeCol[i] = bar.Open, bar.High, bar.Low, bar.Close
				volume[i] = bar.Volume
			} else if seen {
				open[i], high[i], low[i], closeCol[i] = last.Open, last.High, last.Low, last.Close
				volume[i] = 0
			}
			shares[i] = sb.shares
		}

		// Back fill the leading gap from the first known bar.
		if firstIdx > 0 {
			first := sb.byDate[market.FormatDate(dates[firstIdx])]
			for i := 0; i < firstIdx; i++ {
				open[i], high[i], low[i], closeCol[i] = first.Open, first.High, first.Low, first.Close
				volume[i] = 0
			}
		}

		p.open[sb.symbol] = open
		p.high[sb.symbol] = high
		p.low[sb.symbol] = low
		p.close[sb.symbol] = closeCol
		p.volume[sb.symbol] = volume
		p.shares[sb.symbol] = shares
	}

	return p, nil
}

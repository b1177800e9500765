package index

import (
	"context"
	"math"
	"time"

	apperrors "ashare/internal/errors"
	"ashare/internal/logger"
	"ashare/internal/market"
	"ashare/internal/panel"
)

// Calculator builds a market-cap-weighted synthetic index for one stock
// basket. The price panel is built eagerly at construction and retained for
// the life of the instance: the incremental maintenance path calls
// CalculateIncremental once per pending date in a tight loop, and panel
// construction dominates cost, so it must happen exactly once per index.
type Calculator struct {
	indexCode string
	indexName string
	panel     *panel.Panel
	weights   [][]float64
	log       logger.Logger
}

// NewCalculator builds the price panel for the given stocks and date range
// and prepares the prior-day weight matrix. Returns PANEL_EMPTY when no
// instrument has usable data in the window.
func NewCalculator(ctx context.Context, builder *panel.Builder, indexCode, indexName string, symbols []string, start, end time.Time) (*Calculator, error) {
	p, err := builder.Build(ctx, symbols, start, end)
	if err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return nil, apperrors.Newf(apperrors.ErrCodePanelEmpty, "no usable price data",
			"index %s: %d symbols, window %s..%s", indexCode, len(symbols),
			market.FormatDate(start), market.FormatDate(end))
	}

	return &Calculator{
		indexCode: indexCode,
		indexName: indexName,
		panel:     p,
		weights:   PriorDayWeights(p),
		log:       logger.Global().WithField("index_code", indexCode),
	}, nil
}

// Panel exposes the retained price panel.
func (c *Calculator) Panel() *panel.Panel {
	return c.panel
}

// CalculateIndex computes the full index history, re-based so that the close
// at baseDate equals baseValue. The first panel row is dropped (it has no
// prior-day weights). When the computed value at baseDate is zero, the first
// date with a positive close is used instead and a diagnostic is logged.
func (c *Calculator) CalculateIndex(baseDate time.Time, baseValue float64) ([]market.IndexBar, error) {
	dates := c.panel.Dates()
	symbols := c.panel.Symbols()
	if len(dates) < 2 {
		return nil, apperrors.Newf(apperrors.ErrCodePanelEmpty, "not enough history",
			"index %s has %d panel rows", c.indexCode, len(dates))
	}

	raw := make([]weightedOHLCV, len(dates))
	for t := 1; t < len(dates); t++ {
		row, _ := c.panel.RowByIndex(t)
		raw[t] = aggregateRow(row, symbols, c.weights[t])
	}

	baseRow, ok := c.panel.RowAt(baseDate)
	if !ok || baseRow.Index() == 0 {
		return nil, apperrors.Newf(apperrors.ErrCodeBaseDateOutOfRange, "base date outside computed range",
			"index %s base date %s, range %s..%s", c.indexCode, market.FormatDate(baseDate),
			market.FormatDate(dates[1]), market.FormatDate(dates[len(dates)-1]))
	}

	basePrice := raw[baseRow.Index()].Close
	if basePrice <= 0 {
		// 基准日计算值为零（通常是停牌簇），向后找第一个有效收盘价
		fallback := -1
		for t := 1; t < len(dates); t++ {
			if raw[t].Close > 0 {
				fallback = t
				break
			}
		}
		if fallback < 0 {
			return nil, apperrors.Newf(apperrors.ErrCodeZeroWeightSum, "no positive close in range",
				"index %s", c.indexCode)
		}
		c.log.Warn("base date close is zero, re-basing off first positive close",
			"base_date", market.FormatDate(baseDate),
			"fallback_date", market.FormatDate(dates[fallback]))
		basePrice = raw[fallback].Close
	}

	scale := baseValue / basePrice
	bars := make([]market.IndexBar, 0, len(dates)-1)
	for t := 1; t < len(dates); t++ {
		bars = append(bars, market.IndexBar{
			IndexCode: c.indexCode,
			IndexName: c.indexName,
			TradeDate: dates[t],
			Open:      round2(raw[t].Open * scale),
			High:      round2(raw[t].High * scale),
			Low:       round2(raw[t].Low * scale),
			Close:     round2(raw[t].Close * scale),
			Volume:    int64(math.Round(raw[t].Volume)),
		})
	}

	return bars, nil
}

// CalculateIncremental extends an already-published index by exactly one
// trading day: the most recent date in the panel. The new bar is anchored to
// the index's own last published close, not a re-derived base price, so
// thousands of indexes can be maintained daily without touching history.
//
// Each of O/H/L/C is scaled independently by
//
//	value = lastClose × (todayWeighted / lastDateWeighted)
//
// which reproduces what a full recalculation would publish for the day,
// given identical weights and anchor.
func (c *Calculator) CalculateIncremental(lastDate time.Time, lastClose float64) (market.IndexBar, error) {
	today, ok := c.panel.LastDate()
	if !ok {
		return market.IndexBar{}, apperrors.New(apperrors.ErrCodePanelEmpty, "panel has no dates")
	}
	return c.CalculateIncrementalAt(lastDate, today, lastClose)
}

// CalculateIncrementalAt behaves like CalculateIncremental but targets an
// explicit panel date instead of the panel's most recent one. The
// maintenance loop uses it to walk several pending dates in chronological
// order over a single retained panel.
func (c *Calculator) CalculateIncrementalAt(lastDate, targetDate time.Time, lastClose float64) (market.IndexBar, error) {
	lastRow, ok := c.panel.RowAt(lastDate)
	if !ok {
		return market.IndexBar{}, apperrors.Newf(apperrors.ErrCodeAnchorMissing, "anchor date not in panel",
			"index %s anchor %s", c.indexCode, market.FormatDate(lastDate))
	}
	if lastRow.Index() == 0 {
		return market.IndexBar{}, apperrors.Newf(apperrors.ErrCodeAnchorMissing, "anchor date has no prior-day weights",
			"index %s anchor %s is the first panel row", c.indexCode, market.FormatDate(lastDate))
	}

	targetRow, ok := c.panel.RowAt(targetDate)
	if !ok {
		return market.IndexBar{}, apperrors.Newf(apperrors.ErrCodePanelNoDate, "target date not in panel",
			"index %s target %s", c.indexCode, market.FormatDate(targetDate))
	}
	if targetRow.Index() <= lastRow.Index() {
		return market.IndexBar{}, apperrors.Newf(apperrors.ErrCodeInvalidInput, "target date not after anchor",
			"index %s anchor %s target %s", c.indexCode,
			market.FormatDate(lastDate), market.FormatDate(targetDate))
	}

	symbols := c.panel.Symbols()
	lastAgg := aggregateRow(lastRow, symbols, c.weights[lastRow.Index()])
	targetAgg := aggregateRow(targetRow, symbols, c.weights[targetRow.Index()])

	if lastAgg.Open == 0 || lastAgg.High == 0 || lastAgg.Low == 0 || lastAgg.Close == 0 {
		return market.IndexBar{}, apperrors.Newf(apperrors.ErrCodeZeroWeightSum, "anchor day weighted aggregate is zero",
			"index %s anchor %s", c.indexCode, market.FormatDate(lastDate))
	}

	open := lastClose * (targetAgg.Open / lastAgg.Open)
	high := lastClose * (targetAgg.High / lastAgg.High)
	low := lastClose * (targetAgg.Low / lastAgg.Low)
	closePrice := lastClose * (targetAgg.Close / lastAgg.Close)

	low = math.Min(low, math.Min(open, closePrice))
	high = math.Max(high, math.Max(open, closePrice))

	return market.IndexBar{
		IndexCode: c.indexCode,
		IndexName: c.indexName,
		TradeDate: targetRow.Date(),
		Open:      round2(open),
		High:      round2(high),
		Low:       round2(low),
		Close:     round2(closePrice),
		Volume:    int64(math.Round(targetAgg.Volume)),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

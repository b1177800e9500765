package index

import (
	"ashare/internal/panel"
)

// PriorDayWeights computes the constituent weight matrix for a panel.
//
// The weight of instrument i on row t is its market cap on row t-1 divided
// by the total market cap on row t-1. Weighting day T by day T-1's caps is
// the point-in-time rule that keeps same-day information out of the
// aggregation: today's price move is never weighted by today's own cap.
//
// The returned slice is aligned to p.Dates() and p.Symbols(). Row 0 is nil
// (no prior day exists), as is any row whose prior-day total cap is zero.
func PriorDayWeights(p *panel.Panel) [][]float64 {
	n := p.NumRows()
	symbols := p.Symbols()
	weights := make([][]float64, n)

	for t := 1; t < n; t++ {
		prev, ok := p.RowByIndex(t - 1)
		if !ok {
			continue
		}

		var totalCap float64
		caps := make([]float64, len(symbols))
		for i, symbol := range symbols {
			caps[i] = prev.MarketCap(symbol)
			totalCap += caps[i]
		}
		if totalCap <= 0 {
			continue
		}

		w := make([]float64, len(symbols))
		for i := range symbols {
			w[i] = caps[i] / totalCap
		}
		weights[t] = w
	}

	return weights
}

// weightedOHLCV aggregates one panel row with the given weights. Volume is a
// straight sum: it is a quantity, not a price-like level, so it is never
// weighted.
type weightedOHLCV struct {
	Open, High, Low, Close, Volume float64
}

func aggregateRow(row panel.Row, symbols []string, w []float64) weightedOHLCV {
	var agg weightedOHLCV
	for i, symbol := range symbols {
		if w != nil {
			agg.Open += row.Open(symbol) * w[i]
			agg.High += row.High(symbol) * w[i]
			agg.Low += row.Low(symbol) * w[i]
			agg.Close += row.Close(symbol) * w[i]
		}
		agg.Volume += row.Volume(symbol)
	}
	return agg
}

package workflow

import (
	"context"
	"math"
	"sort"

	"ashare/internal/indicator"
	"ashare/internal/panel"
)

// Refinement identifies a sub-basket of a parent sector that gets its own
// independent synthetic index. Refined indexes share no state with the
// parent or with each other; each is a flat (sector, tag) instance.
type Refinement string

const (
	RefineLargeCap  Refinement = "large_cap"
	RefineSmallCap  Refinement = "small_cap"
	RefineHighPrice Refinement = "high_price"
	RefineLowPrice  Refinement = "low_price"
	RefineSOE       Refinement = "soe"
	RefineMomentum  Refinement = "momentum"
)

// AllRefinements lists the refined sub-index variants built per sector.
var AllRefinements = []Refinement{
	RefineLargeCap, RefineSmallCap, RefineHighPrice, RefineLowPrice, RefineSOE, RefineMomentum,
}

var refinementNames = map[Refinement]string{
	RefineLargeCap:  "大盘",
	RefineSmallCap:  "小盘",
	RefineHighPrice: "高价",
	RefineLowPrice:  "低价",
	RefineSOE:       "国企",
	RefineMomentum:  "强势",
}

// momentumWindow is the ROC lookback used by the momentum refinement.
const momentumWindow = 20

// RefinedIndexCode derives the index code of a (sector, tag) pair.
func RefinedIndexCode(sectorCode string, tag Refinement) string {
	return sectorCode + "." + string(tag)
}

// RefinedIndexName derives the display name of a (sector, tag) pair.
func RefinedIndexName(sectorName string, tag Refinement) string {
	return sectorName + refinementNames[tag]
}

// applyRefinement selects the refined subset of the symbols in a parent
// panel, judged at the panel's most recent row.
func applyRefinement(ctx context.Context, tag Refinement, p *panel.Panel, source panel.BarSource) []string {
	last, ok := p.RowByIndex(p.NumRows() - 1)
	if !ok {
		return nil
	}
	symbols := p.Symbols()

	switch tag {
	case RefineLargeCap:
		return topHalfBy(symbols, func(s string) float64 { return last.MarketCap(s) }, true)
	case RefineSmallCap:
		return topHalfBy(symbols, func(s string) float64 { return last.MarketCap(s) }, false)
	case RefineHighPrice:
		return topHalfBy(symbols, func(s string) float64 { return last.Close(s) }, true)
	case RefineLowPrice:
		return topHalfBy(symbols, func(s string) float64 { return last.Close(s) }, false)
	case RefineSOE:
		var subset []string
		for _, s := range symbols {
			if profile, err := source.GetProfile(ctx, s); err == nil && profile != nil && profile.IsSOE {
				subset = append(subset, s)
			}
		}
		return subset
	case RefineMomentum:
		return topHalfBy(symbols, func(s string) float64 {
			roc := indicator.ROC(p.Closes(s), momentumWindow)
			v := roc[len(roc)-1]
			if math.IsNaN(v) {
				return -math.MaxFloat64
			}
			return v
		}, true)
	default:
		return nil
	}
}

// topHalfBy selects the top (or bottom) half of symbols ranked by metric,
// keeping at least one symbol. Ties preserve the original order.
func topHalfBy(symbols []string, metric func(string) float64, descending bool) []string {
	ranked := append([]string(nil), symbols...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if descending {
			return metric(ranked[i]) > metric(ranked[j])
		}
		return metric(ranked[i]) < metric(ranked[j])
	})

	half := (len(ranked) + 1) / 2
	return ranked[:half]
}

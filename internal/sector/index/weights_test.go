package index

import (
	"context"
	"math"
	"testing"

	"ashare/internal/panel"
	"ashare/internal/testutils"
)

func buildTestPanel(t *testing.T, m *testutils.MemoryMarket, symbols []string) *panel.Panel {
	t.Helper()
	start := testutils.Date(2026, 1, 1)
	end := testutils.Date(2026, 1, 31)
	p, err := panel.NewBuilder(m, nil).Build(context.Background(), symbols, start, end)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return p
}

func TestPriorDayWeights(t *testing.T) {
	m := testutils.NewMemoryMarket()
	d1 := testutils.Date(2026, 1, 5)
	d2 := testutils.Date(2026, 1, 6)
	d3 := testutils.Date(2026, 1, 7)

	// 市值 d1: A=1000, B=4000；d2: A=1100, B=3800
	m.AddBar("A", d1, 10, 10, 10, 10, 100)
	m.AddBar("A", d2, 11, 11, 11, 11, 100)
	m.AddBar("A", d3, 12, 12, 12, 12, 100)
	m.AddBar("B", d1, 20, 20, 20, 20, 100)
	m.AddBar("B", d2, 19, 19, 19, 19, 100)
	m.AddBar("B", d3, 21, 21, 21, 21, 100)
	m.SetProfile("A", 100, false)
	m.SetProfile("B", 200, false)

	p := buildTestPanel(t, m, []string{"A", "B"})
	weights := PriorDayWeights(p)

	if len(weights) != 3 {
		t.Fatalf("expected 3 weight rows, got %d", len(weights))
	}

	t.Run("first row has no weights", func(t *testing.T) {
		if weights[0] != nil {
			t.Errorf("row 0 should be nil, got %v", weights[0])
		}
	})

	t.Run("weights use the prior day's caps", func(t *testing.T) {
		// d2 的权重来自 d1 的市值，而不是 d2 自身的
		wantA := 1000.0 / 5000.0
		wantB := 4000.0 / 5000.0
		if math.Abs(weights[1][0]-wantA) > 1e-12 || math.Abs(weights[1][1]-wantB) > 1e-12 {
			t.Errorf("d2 weights = %v, want [%v %v]", weights[1], wantA, wantB)
		}

		wantA = 1100.0 / 4900.0
		wantB = 3800.0 / 4900.0
		if math.Abs(weights[2][0]-wantA) > 1e-12 || math.Abs(weights[2][1]-wantB) > 1e-12 {
			t.Errorf("d3 weights = %v, want [%v %v]", weights[2], wantA, wantB)
		}
	})

	t.Run("rows sum to one", func(t *testing.T) {
		for i := 1; i < len(weights); i++ {
			var sum float64
			for _, w := range weights[i] {
				sum += w
			}
			if math.Abs(sum-1) > 1e-12 {
				t.Errorf("row %d weight sum = %v", i, sum)
			}
		}
	})
}

func TestPriorDayWeightsZeroCap(t *testing.T) {
	m := testutils.NewMemoryMarket()
	d1 := testutils.Date(2026, 1, 5)
	d2 := testutils.Date(2026, 1, 6)

	// 无股本信息：市值恒为零，权重行应为 nil
	m.AddBar("A", d1, 10, 10, 10, 10, 100)
	m.AddBar("A", d2, 11, 11, 11, 11, 100)

	p := buildTestPanel(t, m, []string{"A"})
	weights := PriorDayWeights(p)

	if weights[1] != nil {
		t.Errorf("zero prior cap should yield nil weights, got %v", weights[1])
	}
}

func TestAggregateRowSumsVolumeUnweighted(t *testing.T) {
	m := testutils.NewMemoryMarket()
	d1 := testutils.Date(2026, 1, 5)
	d2 := testutils.Date(2026, 1, 6)

	m.AddBar("A", d1, 10, 10, 10, 10, 300)
	m.AddBar("A", d2, 10, 10, 10, 10, 400)
	m.AddBar("B", d1, 20, 20, 20, 20, 500)
	m.AddBar("B", d2, 20, 20, 20, 20, 600)
	m.SetProfile("A", 100, false)
	m.SetProfile("B", 100, false)

	p := buildTestPanel(t, m, []string{"A", "B"})
	weights := PriorDayWeights(p)

	row, _ := p.RowByIndex(1)
	agg := aggregateRow(row, p.Symbols(), weights[1])

	// 成交量是数量，直接求和，不乘权重
	if agg.Volume != 1000 {
		t.Errorf("expected summed volume 1000, got %v", agg.Volume)
	}
}

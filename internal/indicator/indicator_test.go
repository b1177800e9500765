package indicator

import (
	"math"
	"testing"
)

func TestMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	ma := MA(values, 3)

	if !math.IsNaN(ma[0]) || !math.IsNaN(ma[1]) {
		t.Error("positions before the first full window must be NaN")
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if math.Abs(ma[i+2]-w) > 1e-12 {
			t.Errorf("ma[%d] = %v, want %v", i+2, ma[i+2], w)
		}
	}

	short := MA([]float64{1, 2}, 3)
	for _, v := range short {
		if !math.IsNaN(v) {
			t.Error("series shorter than the period must stay NaN")
		}
	}
}

func TestEMAConvergesToConstant(t *testing.T) {
	values := make([]float64, 50)
	for i := range values {
		values[i] = 7
	}
	ema := EMA(values, 12)
	if math.Abs(ema[49]-7) > 1e-9 {
		t.Errorf("EMA of a constant series should be the constant, got %v", ema[49])
	}
}

func TestMACDHistogramConvention(t *testing.T) {
	closes := []float64{10, 10.5, 11, 10.8, 11.2, 11.5, 11.3, 11.8, 12, 12.4, 12.1, 12.6}
	dif, dea, hist := MACD(closes, 3, 6, 3)

	// 柱状值是 DIF-DEA 的 2 倍（A股软件惯例）
	for i := range closes {
		want := 2 * (dif[i] - dea[i])
		if math.Abs(hist[i]-want) > 1e-12 {
			t.Errorf("hist[%d] = %v, want %v", i, hist[i], want)
		}
	}
}

func TestRSIExtremes(t *testing.T) {
	up := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	rsi := RSI(up, 5)
	if rsi[7] != 100 {
		t.Errorf("all-gain RSI = %v, want 100", rsi[7])
	}

	down := []float64{8, 7, 6, 5, 4, 3, 2, 1}
	rsi = RSI(down, 5)
	if math.Abs(rsi[7]) > 1e-9 {
		t.Errorf("all-loss RSI = %v, want 0", rsi[7])
	}
}

func TestKDJNeutralStart(t *testing.T) {
	highs := []float64{10, 10, 10}
	lows := []float64{10, 10, 10}
	closes := []float64{10, 10, 10}

	// 无波动时 RSV 取中性值 50，K/D/J 全部停在 50
	k, d, j := KDJ(highs, lows, closes, 9)
	for i := range closes {
		if math.Abs(k[i]-50) > 1e-9 || math.Abs(d[i]-50) > 1e-9 || math.Abs(j[i]-50) > 1e-9 {
			t.Errorf("flat KDJ at %d = (%v, %v, %v), want 50s", i, k[i], d[i], j[i])
		}
	}
}

func TestBOLLBandsAreSymmetric(t *testing.T) {
	closes := []float64{10, 11, 12, 11, 10, 11, 12, 13, 12, 11}
	upper, middle, lower := BOLL(closes, 5, 2)

	for i := 4; i < len(closes); i++ {
		if math.Abs((upper[i]-middle[i])-(middle[i]-lower[i])) > 1e-9 {
			t.Errorf("bands not symmetric at %d: %v %v %v", i, upper[i], middle[i], lower[i])
		}
		if upper[i] < lower[i] {
			t.Errorf("upper below lower at %d", i)
		}
	}
}

func TestROC(t *testing.T) {
	closes := []float64{100, 101, 102, 110}
	roc := ROC(closes, 3)

	if !math.IsNaN(roc[2]) {
		t.Error("positions before the lookback must be NaN")
	}
	if math.Abs(roc[3]-10) > 1e-9 {
		t.Errorf("roc[3] = %v, want 10", roc[3])
	}
}

func TestBIAS(t *testing.T) {
	closes := []float64{10, 10, 10, 10, 12}
	bias := BIAS(closes, 5)

	// MA = 10.4，乖离率 = (12-10.4)/10.4*100
	want := (12 - 10.4) / 10.4 * 100
	if math.Abs(bias[4]-want) > 1e-9 {
		t.Errorf("bias[4] = %v, want %v", bias[4], want)
	}
}

func TestATRFlatSeries(t *testing.T) {
	n := 10
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i := 0; i < n; i++ {
		highs[i], lows[i], closes[i] = 10, 10, 10
	}
	atr := ATR(highs, lows, closes, 5)
	if math.Abs(atr[n-1]) > 1e-12 {
		t.Errorf("flat ATR = %v, want 0", atr[n-1])
	}
}

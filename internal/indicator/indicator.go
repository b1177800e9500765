package indicator

import "math"

// 经典技术指标的序列计算。输入均为按日期升序排列的日线序列，
// 输出与输入等长，窗口不足的前导位置为 NaN。

// MA 简单移动平均
func MA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA 指数移动平均
func EMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACD 返回 DIF、DEA、柱状值（DIF-DEA 的 2 倍，A股软件惯例）
func MACD(closes []float64, fast, slow, signal int) (dif, dea, hist []float64) {
	emaFast := EMA(closes, fast)
	emaSlow := EMA(closes, slow)
	dif = make([]float64, len(closes))
	for i := range closes {
		dif[i] = emaFast[i] - emaSlow[i]
	}
	dea = EMA(dif, signal)
	hist = make([]float64, len(closes))
	for i := range closes {
		hist[i] = 2 * (dif[i] - dea[i])
	}
	return dif, dea, hist
}

// KDJ 随机指标，返回 K、D、J 序列
func KDJ(highs, lows, closes []float64, period int) (k, d, j []float64) {
	n := len(closes)
	k = make([]float64, n)
	d = make([]float64, n)
	j = make([]float64, n)

	prevK, prevD := 50.0, 50.0
	for i := 0; i < n; i++ {
		start := i - period + 1
		if start < 0 {
			start = 0
		}
		hh, ll := highs[start], lows[start]
		for t := start + 1; t <= i; t++ {
			hh = math.Max(hh, highs[t])
			ll = math.Min(ll, lows[t])
		}

		rsv := 50.0
		if hh > ll {
			rsv = (closes[i] - ll) / (hh - ll) * 100
		}
		k[i] = (2*prevK + rsv) / 3
		d[i] = (2*prevD + k[i]) / 3
		j[i] = 3*k[i] - 2*d[i]
		prevK, prevD = k[i], d[i]
	}
	return k, d, j
}

// BOLL 布林带，返回上轨、中轨、下轨
func BOLL(closes []float64, period int, width float64) (upper, middle, lower []float64) {
	middle = MA(closes, period)
	upper = nanSlice(len(closes))
	lower = nanSlice(len(closes))
	for i := period - 1; i < len(closes); i++ {
		var sumSq float64
		for t := i - period + 1; t <= i; t++ {
			diff := closes[t] - middle[i]
			sumSq += diff * diff
		}
		std := math.Sqrt(sumSq / float64(period))
		upper[i] = middle[i] + width*std
		lower[i] = middle[i] - width*std
	}
	return upper, middle, lower
}

// RSI 相对强弱指标（Wilder 平滑）
func RSI(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if period <= 0 || len(closes) <= period {
		return out
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			gainSum += diff
		} else {
			lossSum -= diff
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if diff > 0 {
			gain = diff
		} else {
			loss = -diff
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ATR 平均真实波幅
func ATR(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if period <= 0 || n < period+1 {
		return out
	}

	tr := make([]float64, n)
	tr[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	var sum float64
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	out[period] = sum / float64(period)
	for i := period + 1; i < n; i++ {
		out[i] = (out[i-1]*float64(period-1) + tr[i]) / float64(period)
	}
	return out
}

// BIAS 乖离率（%）
func BIAS(closes []float64, period int) []float64 {
	ma := MA(closes, period)
	out := nanSlice(len(closes))
	for i := range closes {
		if !math.IsNaN(ma[i]) && ma[i] != 0 {
			out[i] = (closes[i] - ma[i]) / ma[i] * 100
		}
	}
	return out
}

// ROC 区间涨跌幅（%），period 日前至今
func ROC(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	for i := period; i < len(closes); i++ {
		if closes[i-period] != 0 {
			out[i] = (closes[i] - closes[i-period]) / closes[i-period] * 100
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

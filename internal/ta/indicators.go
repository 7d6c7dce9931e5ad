package ta

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	SMAPeriod     = 20
	SMAMidPeriod  = 50
	SMALongPeriod = 200
	RSIPeriod     = 14

	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9

	BollingerPeriod  = 20
	BollingerStdDevs = 2.0
)

// Snapshot holds the indicator values at the newest close. Fields are nil
// when there is not enough history to compute them.
type Snapshot struct {
	LastClose float64  `json:"last_close"`
	SMA20     *float64 `json:"sma_20,omitempty"`
	SMA50     *float64 `json:"sma_50,omitempty"`
	SMA200    *float64 `json:"sma_200,omitempty"`
	RSI14     *float64 `json:"rsi_14,omitempty"`

	MACD       *float64 `json:"macd,omitempty"`
	MACDSignal *float64 `json:"macd_signal,omitempty"`
	MACDHist   *float64 `json:"macd_hist,omitempty"`

	BBUpper  *float64 `json:"bb_upper,omitempty"`
	BBMiddle *float64 `json:"bb_middle,omitempty"`
	BBLower  *float64 `json:"bb_lower,omitempty"`
}

// Latest computes a Snapshot from closes ordered oldest first. MACD is only
// reported once the slow EMA has MACDSlow closes behind it.
func Latest(closes []float64) *Snapshot {
	if len(closes) == 0 {
		return nil
	}
	snap := &Snapshot{LastClose: closes[len(closes)-1]}
	snap.SMA20 = lastPtr(SMASeries(closes, SMAPeriod))
	snap.SMA50 = lastPtr(SMASeries(closes, SMAMidPeriod))
	snap.SMA200 = lastPtr(SMASeries(closes, SMALongPeriod))
	snap.RSI14 = lastPtr(RSISeries(closes, RSIPeriod))

	if len(closes) >= MACDSlow {
		line, signal, hist := MACDSeries(closes, MACDFast, MACDSlow, MACDSignal)
		snap.MACD = lastPtr(line)
		snap.MACDSignal = lastPtr(signal)
		snap.MACDHist = lastPtr(hist)
	}

	middle, upper, lower := BollingerSeries(closes, BollingerPeriod, BollingerStdDevs)
	snap.BBMiddle = lastPtr(middle)
	snap.BBUpper = lastPtr(upper)
	snap.BBLower = lastPtr(lower)
	return snap
}

func lastPtr(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// MeanStd returns the mean and sample (n-1) standard deviation. A single
// value has zero deviation.
func MeanStd(values []float64) (float64, float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// SMASeries is NaN until period values have been seen.
func SMASeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	out := make([]float64, len(values))
	if period <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(period)
	}
	return out
}

// EMASeries is seeded with the first value and smoothed with 2/(period+1).
func EMASeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	out := make([]float64, len(values))
	if period <= 1 {
		copy(out, values)
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// MACDSeries returns the MACD line, its signal line and the histogram
// (line minus signal).
func MACDSeries(values []float64, fast, slow, signal int) ([]float64, []float64, []float64) {
	if len(values) == 0 {
		return nil, nil, nil
	}
	fastEMA := EMASeries(values, fast)
	slowEMA := EMASeries(values, slow)
	line := make([]float64, len(values))
	for i := range values {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine := EMASeries(line, signal)
	hist := make([]float64, len(values))
	for i := range values {
		hist[i] = line[i] - signalLine[i]
	}
	return line, signalLine, hist
}

// BollingerSeries returns middle, upper and lower bands over a rolling
// window; all three are NaN until period values have been seen.
func BollingerSeries(values []float64, period int, stdDevs float64) ([]float64, []float64, []float64) {
	if len(values) == 0 {
		return nil, nil, nil
	}
	middle := make([]float64, len(values))
	upper := make([]float64, len(values))
	lower := make([]float64, len(values))
	for i := range values {
		middle[i] = math.NaN()
		upper[i] = math.NaN()
		lower[i] = math.NaN()
	}
	if period <= 0 {
		return middle, upper, lower
	}
	for i := period - 1; i < len(values); i++ {
		mean, std := MeanStd(values[i-period+1 : i+1])
		middle[i] = mean
		upper[i] = mean + stdDevs*std
		lower[i] = mean - stdDevs*std
	}
	return middle, upper, lower
}

// RSISeries uses Wilder smoothing and is NaN for the first period closes.
func RSISeries(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) <= period {
		return nil
	}
	series := make([]float64, len(closes))
	for i := range series {
		series[i] = math.NaN()
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	series[period] = rsiFromAvg(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		avgGain = (avgGain*float64(period-1) + math.Max(delta, 0)) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + math.Max(-delta, 0)) / float64(period)
		series[i] = rsiFromAvg(avgGain, avgLoss)
	}
	return series
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

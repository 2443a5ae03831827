package strategy

// sma is the mean of the last period values. Shorter inputs average
// whatever is there; an empty input is 0.
func sma(values []float64, period int) float64 {
	if len(values) == 0 || period <= 0 {
		return 0
	}
	if period > len(values) {
		period = len(values)
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// rsi is the Relative Strength Index over the last period deltas, using
// simple averages rather than Wilder smoothing. Returns the neutral 50
// when there is not enough history and 100 when there are no losses.
func rsi(values []float64, period int) float64 {
	if period <= 0 || len(values) < period+1 {
		return 50.0
	}
	tail := values[len(values)-(period+1):]
	gainSum := 0.0
	lossSum := 0.0
	for i := 1; i < len(tail); i++ {
		delta := tail[i] - tail[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// pctChange is (to-from)/from, 0 when from is 0.
func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from
}

package analysis

import (
	"math"
	"time"

	"github.com/agbru/memprof/internal/metrics"
)

// MinPredictionSamples is the shortest window Predict will fit.
const MinPredictionSamples = 10

const (
	safetyBufferRatio = 0.10
	maxForecast       = float64(1 << 63)
)

// Predict fits host used bytes against seconds elapsed since the first
// snapshot of the window and evaluates the line horizon after the last
// snapshot, so the forecast always lies ahead of the newest reading.
// Confidence is the fit's R². Windows shorter than MinPredictionSamples
// return a zero-confidence prediction holding the latest usage.
func Predict(snaps []metrics.Snapshot, horizon time.Duration) Prediction {
	snaps = usable(snaps)
	pred := Prediction{Horizon: horizon}
	if len(snaps) == 0 {
		return pred
	}
	first, last := snaps[0], snaps[len(snaps)-1]
	pred.TargetTime = last.Timestamp.Add(horizon)
	pred.PredictedPeak = last.UsedMemory
	if len(snaps) < MinPredictionSamples {
		pred.SafetyBuffer = safetyBuffer(pred.PredictedPeak)
		return pred
	}

	x := make([]float64, len(snaps))
	y := make([]float64, len(snaps))
	for i, s := range snaps {
		x[i] = s.Timestamp.Sub(first.Timestamp).Seconds()
		y[i] = float64(s.UsedMemory)
	}
	fit, ok := LinearRegression(x, y)
	if !ok {
		pred.SafetyBuffer = safetyBuffer(pred.PredictedPeak)
		return pred
	}

	target := last.Timestamp.Sub(first.Timestamp).Seconds() + horizon.Seconds()
	forecast := math.Min(math.Max(0, fit.At(target)), maxForecast)
	pred.PredictedPeak = uint64(math.Round(forecast))
	pred.Confidence = fit.R2
	pred.Slope = fit.Slope
	pred.SafetyBuffer = safetyBuffer(pred.PredictedPeak)
	return pred
}

func safetyBuffer(v uint64) uint64 {
	return uint64(math.Round(float64(v) * safetyBufferRatio))
}

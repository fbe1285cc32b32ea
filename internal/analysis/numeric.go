package analysis

import "math"

// Numeric covers the value types analysed by the helpers below.
type Numeric interface {
	~int | ~int64 | ~uint64 | ~float64
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean[T Numeric](values []T) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values))
}

// PopulationVariance divides by n. Fewer than two values yield 0.
func PopulationVariance[T Numeric](values []T) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		diff := float64(v) - mean
		variance += diff * diff
	}
	return variance / float64(len(values))
}

// Regression is an ordinary least-squares fit y = Intercept + Slope*x.
type Regression struct {
	Slope     float64
	Intercept float64
	// R2 is the coefficient of determination. A perfectly flat series fits
	// exactly and reports 1.
	R2 float64
}

// At evaluates the fitted line.
func (r Regression) At(x float64) float64 { return r.Intercept + r.Slope*x }

// LinearRegression fits y against x. ok is false when the inputs differ in
// length, have fewer than two points, or x has no spread.
func LinearRegression(x, y []float64) (Regression, bool) {
	if len(x) != len(y) || len(x) < 2 {
		return Regression{}, false
	}

	n := float64(len(x))
	var sumX, sumY, sumXY, sumXX float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumXX += x[i] * x[i]
	}

	denominator := n*sumXX - sumX*sumX
	if denominator == 0 {
		return Regression{}, false
	}
	slope := (n*sumXY - sumX*sumY) / denominator
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for i := range x {
		d := y[i] - meanY
		ssTot += d * d
		r := y[i] - (intercept + slope*x[i])
		ssRes += r * r
	}

	r2 := 1.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}
	return Regression{Slope: slope, Intercept: intercept, R2: clamp01(r2)}, true
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

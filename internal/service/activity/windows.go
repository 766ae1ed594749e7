package activity

import "math"

// Windowing defaults: 100-sample windows advancing by half a window.
const (
	DefaultWindowSize      = 100
	DefaultOverlapFraction = 0.5
)

// MakeWindows slices samples into fixed-length windows advancing by
// windowSize*(1-overlap) each step. Any trailing remainder shorter than a
// full window is discarded. Deterministic: same input, same output.
func MakeWindows(samples []float64, windowSize int, overlap float64) [][]float64 {
	if windowSize <= 0 || len(samples) < windowSize {
		return nil
	}

	step := int(float64(windowSize) * (1 - overlap))
	if step < 1 {
		step = 1
	}

	var windows [][]float64
	for start := 0; start+windowSize <= len(samples); start += step {
		windows = append(windows, samples[start:start+windowSize])
	}
	return windows
}

// WindowCount reports how many windows MakeWindows would yield for a
// sequence of n samples, without materializing them.
func WindowCount(n, windowSize int, overlap float64) int {
	if windowSize <= 0 || n < windowSize {
		return 0
	}
	step := int(float64(windowSize) * (1 - overlap))
	if step < 1 {
		step = 1
	}
	return (n-windowSize)/step + 1
}

// Normalize returns a copy of window with zero mean and unit variance. A
// constant signal (zero standard deviation) divides by 1 instead,
// yielding all zeros rather than NaN.
func Normalize(window []float64) []float64 {
	n := len(window)
	if n == 0 {
		return nil
	}

	mean := 0.0
	for _, v := range window {
		mean += v
	}
	mean /= float64(n)

	variance := 0.0
	for _, v := range window {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n)

	std := math.Sqrt(variance)
	if std == 0 {
		std = 1
	}

	out := make([]float64, n)
	for i, v := range window {
		out[i] = (v - mean) / std
	}
	return out
}

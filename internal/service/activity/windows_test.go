package activity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeWindows(t *testing.T) {
	samples := make([]float64, 250)
	for i := range samples {
		samples[i] = float64(i)
	}

	// 100-sample windows, 50% overlap: starts at 0, 50, 100, 150. The
	// remainder past index 249 is discarded.
	windows := MakeWindows(samples, 100, 0.5)
	require.Len(t, windows, 4)
	assert.Equal(t, 0.0, windows[0][0])
	assert.Equal(t, 50.0, windows[1][0])
	assert.Equal(t, 150.0, windows[3][0])
	assert.Equal(t, 249.0, windows[3][99])

	assert.Equal(t, 4, WindowCount(250, 100, 0.5))
}

func TestMakeWindowsShortInput(t *testing.T) {
	assert.Nil(t, MakeWindows(make([]float64, 99), 100, 0.5))
	assert.Equal(t, 0, WindowCount(99, 100, 0.5))

	// Exactly one window's worth.
	windows := MakeWindows(make([]float64, 100), 100, 0.5)
	assert.Len(t, windows, 1)
}

func TestMakeWindowsFullOverlapStep(t *testing.T) {
	// overlap ~1.0 would give step 0; it is clamped to 1.
	windows := MakeWindows(make([]float64, 12), 10, 0.99)
	assert.Len(t, windows, 3)
}

func TestNormalize(t *testing.T) {
	out := Normalize([]float64{2, 4, 6, 8})
	require.Len(t, out, 4)

	mean := 0.0
	for _, v := range out {
		mean += v
	}
	mean /= float64(len(out))
	assert.InDelta(t, 0.0, mean, 1e-12)

	variance := 0.0
	for _, v := range out {
		variance += v * v
	}
	variance /= float64(len(out))
	assert.InDelta(t, 1.0, variance, 1e-12)
}

func TestNormalizeConstantSignal(t *testing.T) {
	// Zero variance divides by 1: all zeros, never NaN.
	out := Normalize([]float64{7, 7, 7})
	for _, v := range out {
		assert.Equal(t, 0.0, v)
		assert.False(t, math.IsNaN(v))
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := []float64{1, 2, 3}
	Normalize(in)
	assert.Equal(t, []float64{1, 2, 3}, in)
}

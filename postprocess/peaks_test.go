package postprocess

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPeaks(t *testing.T) {

	const w, h = 8, 6
	plane := make([]float32, w*h)

	plane[1*w+2] = 0.9
	plane[4*w+6] = 0.6
	// below threshold
	plane[4*w+1] = 0.04

	peaks := FindPeaks(plane, w, h, 3, 0.05, 10)

	require.Len(t, peaks, 2)

	assert.Equal(t, 3, peaks[0].Part)
	assert.Equal(t, float32(0.9), peaks[0].Score)
	assert.Equal(t, float32(2), peaks[0].X)
	assert.Equal(t, float32(1), peaks[0].Y)

	assert.Equal(t, float32(0.6), peaks[1].Score)
	assert.Equal(t, float32(6), peaks[1].X)
	assert.Equal(t, float32(4), peaks[1].Y)
}

func TestFindPeaksPlateau(t *testing.T) {

	const w, h = 6, 6
	plane := make([]float32, w*h)

	// a 2x2 plateau gives a single peak at its first pixel, refined to the
	// plateau center
	for _, i := range []int{2*w + 2, 2*w + 3, 3*w + 2, 3*w + 3} {
		plane[i] = 0.5
	}

	peaks := FindPeaks(plane, w, h, 0, 0.05, 10)

	require.Len(t, peaks, 1)
	assert.InDelta(t, 2.5, peaks[0].X, 1e-6)
	assert.InDelta(t, 2.5, peaks[0].Y, 1e-6)
}

func TestFindPeaksRefinement(t *testing.T) {

	const w, h = 5, 5
	plane := make([]float32, w*h)

	plane[2*w+2] = 1
	plane[2*w+3] = 0.5

	peaks := FindPeaks(plane, w, h, 0, 0.05, 10)

	require.Len(t, peaks, 1)
	assert.InDelta(t, 2+0.5/1.5, peaks[0].X, 1e-6)
	assert.InDelta(t, 2, peaks[0].Y, 1e-6)
}

func TestFindPeaksMaxPeaks(t *testing.T) {

	const w, h = 10, 3
	plane := make([]float32, w*h)

	for i, v := range []float32{0.2, 0.8, 0.5, 0.9, 0.3} {
		plane[1*w+2*i] = v
	}

	peaks := FindPeaks(plane, w, h, 0, 0.05, 3)

	require.Len(t, peaks, 3)
	assert.Equal(t, []float32{0.9, 0.8, 0.5},
		[]float32{peaks[0].Score, peaks[1].Score, peaks[2].Score})
}

func TestFindPeaksIgnoresNaN(t *testing.T) {

	const w, h = 4, 4
	plane := make([]float32, w*h)

	plane[1*w+1] = float32(math.NaN())
	plane[2*w+2] = 0.7

	peaks := FindPeaks(plane, w, h, 0, 0.05, 10)

	require.Len(t, peaks, 1)
	assert.Equal(t, float32(0.7), peaks[0].Score)
}

func TestFindPeaksEmpty(t *testing.T) {

	plane := make([]float32, 16)
	peaks := FindPeaks(plane, 4, 4, 0, 0.05, 10)

	assert.NotNil(t, peaks)
	assert.Empty(t, peaks)
}

func TestPlaneMax(t *testing.T) {

	nan := float32(math.NaN())

	tests := []struct {
		name  string
		plane []float32
		want  float64
	}{
		{"positive", []float32{0.1, 0.7, 0.3}, 0.7},
		{"negative", []float32{-0.5, -0.2, -0.9}, -0.2},
		{"leading NaN", []float32{nan, 0.2, 0.4}, 0.4},
		{"all NaN", []float32{nan, nan}, math.Inf(-1)},
	}

	scratch := make([]float64, 4)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, planeMax(tt.plane, scratch), 1e-6)
		})
	}
}

package postprocess

import (
	"math"
	"sort"

	"github.com/swdee/go-openpose/pose"
	"gonum.org/v1/gonum/floats"
)

// planeMax returns the largest value of a plane using scratch, which must be
// at least as long as the plane. NaN values are ignored.
func planeMax(plane []float32, scratch []float64) float64 {

	vals := scratch[:len(plane)]

	for i, v := range plane {
		if math.IsNaN(float64(v)) {
			vals[i] = math.Inf(-1)
			continue
		}

		vals[i] = float64(v)
	}

	return floats.Max(vals)
}

// FindPeaks returns the local maxima of a part heatmap above threshold as
// keypoint candidates, highest score first and at most maxPeaks of them.
// A pixel is a peak when it is strictly greater than the neighbours before
// it in scan order and not smaller than those after, so a plateau yields a
// single peak.
func FindPeaks(plane []float32, width, height, part int, threshold float32,
	maxPeaks int) []pose.Candidate {

	peaks := make([]pose.Candidate, 0)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {

			v := plane[y*width+x]

			// negated to reject NaN
			if !(v > threshold) {
				continue
			}

			if !isPeak(plane, width, height, x, y, v) {
				continue
			}

			cx, cy := refinePeak(plane, width, height, x, y)

			peaks = append(peaks, pose.Candidate{
				Part:  part,
				X:     cx,
				Y:     cy,
				Score: v,
			})
		}
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Score > peaks[j].Score
	})

	if maxPeaks > 0 && len(peaks) > maxPeaks {
		peaks = peaks[:maxPeaks]
	}

	return peaks
}

// isPeak checks the 3x3 neighbourhood of (x,y)
func isPeak(plane []float32, width, height, x, y int, v float32) bool {

	for dy := -1; dy <= 1; dy++ {
		ny := y + dy

		if ny < 0 || ny >= height {
			continue
		}

		for dx := -1; dx <= 1; dx++ {
			nx := x + dx

			if (dx == 0 && dy == 0) || nx < 0 || nx >= width {
				continue
			}

			n := plane[ny*width+nx]
			before := dy < 0 || (dy == 0 && dx < 0)

			if before && n >= v {
				return false
			}

			if !before && n > v {
				return false
			}
		}
	}

	return true
}

// refinePeak returns the sub-pixel peak position as the confidence weighted
// centroid of its 3x3 neighbourhood
func refinePeak(plane []float32, width, height, x, y int) (float32, float32) {

	var sx, sy, sw float32

	for dy := -1; dy <= 1; dy++ {
		ny := y + dy

		if ny < 0 || ny >= height {
			continue
		}

		for dx := -1; dx <= 1; dx++ {
			nx := x + dx

			if nx < 0 || nx >= width {
				continue
			}

			w := plane[ny*width+nx]

			if !(w > 0) {
				continue
			}

			sx += w * float32(nx)
			sy += w * float32(ny)
			sw += w
		}
	}

	if sw <= 0 {
		return float32(x), float32(y)
	}

	return sx / sw, sy / sw
}

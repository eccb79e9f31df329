package postprocess

import (
	"fmt"
	"math"

	"github.com/swdee/go-openpose/pose"
	"gonum.org/v1/gonum/mat"
)

// limbScores scores every pairing of source and destination candidates of a
// limb. Invalid pairings score zero.
func (d *Decoder) limbScores(paf *pose.AffinityFieldSet, l pose.Limb,
	candsA, candsB []pose.Candidate) (*mat.Dense, error) {

	scores := mat.NewDense(len(candsA), len(candsB), nil)

	for i, a := range candsA {
		for j, b := range candsB {

			s, ok, err := d.scoreLimb(paf, l, a, b)

			if err != nil {
				return nil, err
			}

			if ok {
				scores.Set(i, j, float64(s))
			}
		}
	}

	return scores, nil
}

// scoreLimb integrates the affinity field along the line from a to b. The
// pairing is valid when enough samples align with the limb direction and the
// mean alignment, penalized for limbs longer than half the image height,
// stays positive.
func (d *Decoder) scoreLimb(paf *pose.AffinityFieldSet, l pose.Limb,
	a, b pose.Candidate) (float32, bool, error) {

	dx := float64(b.X - a.X)
	dy := float64(b.Y - a.Y)
	norm := math.Hypot(dx, dy)

	if norm < 1e-6 {
		return 0, false, nil
	}

	ux := dx / norm
	uy := dy / norm
	n := d.Params.IntegrationPoints

	var sum float64
	count := 0

	for i := 0; i < n; i++ {

		t := float64(i) / float64(n-1)
		x := clampInt(int(math.Round(float64(a.X)+t*dx)), 0, paf.Width-1)
		y := clampInt(int(math.Round(float64(a.Y)+t*dy)), 0, paf.Height-1)

		vx, vy := paf.Vector(l, x, y)

		if !finite(vx) || !finite(vy) {
			return 0, false, fmt.Errorf("%w: non-finite value at (%d,%d) for limb %d-%d",
				ErrMalformedField, x, y, l.A, l.B)
		}

		s := float64(vx)*ux + float64(vy)*uy

		if s > float64(d.Params.InterThreshold) {
			sum += s
			count++
		}
	}

	if count == 0 || float64(count)/float64(n) < float64(d.Params.InterMinAboveThreshold) {
		return 0, false, nil
	}

	prior := math.Min(0.5*float64(paf.Height)/norm-1, 0)
	score := sum/float64(count) + prior

	if score <= 0 {
		return 0, false, nil
	}

	return float32(score), true, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

func finite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

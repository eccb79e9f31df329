// Package posetest renders synthetic heatmaps and part affinity fields from
// known skeletons, for testing decoders and pipelines without network weights.
package posetest

import (
	"math"

	"github.com/swdee/go-openpose/pose"
)

// Joint is the ground truth position of one body part
type Joint struct {
	X       float64
	Y       float64
	Visible bool
}

// Person holds one joint per body part in body model order
type Person []Joint

// Transform returns a copy of the person with every visible joint mapped
// through f
func (p Person) Transform(f func(x, y float64) (float64, float64)) Person {

	out := make(Person, len(p))

	for i, j := range p {
		out[i] = j

		if j.Visible {
			out[i].X, out[i].Y = f(j.X, j.Y)
		}
	}

	return out
}

// Hide returns a copy of the person with the given parts not visible
func (p Person) Hide(parts ...int) Person {

	out := append(Person(nil), p...)

	for _, i := range parts {
		out[i].Visible = false
	}

	return out
}

// standing is the layout of an upright person facing the camera, x is the
// offset from the body center and y the distance from the top of the head,
// both as a fraction of body height
var standing = map[string][2]float64{
	"Head":      {0, 0.04},
	"Nose":      {0, 0.06},
	"REye":      {-0.02, 0.045},
	"LEye":      {0.02, 0.045},
	"REar":      {-0.045, 0.06},
	"LEar":      {0.045, 0.06},
	"Neck":      {0, 0.16},
	"RShoulder": {-0.11, 0.17},
	"LShoulder": {0.11, 0.17},
	"RElbow":    {-0.14, 0.32},
	"LElbow":    {0.14, 0.32},
	"RWrist":    {-0.15, 0.45},
	"LWrist":    {0.15, 0.45},
	"Chest":     {0, 0.33},
	"MidHip":    {0, 0.5},
	"RHip":      {-0.06, 0.5},
	"LHip":      {0.06, 0.5},
	"RKnee":     {-0.065, 0.72},
	"LKnee":     {0.065, 0.72},
	"RAnkle":    {-0.07, 0.93},
	"LAnkle":    {0.07, 0.93},
	"RHeel":     {-0.06, 0.95},
	"LHeel":     {0.06, 0.95},
	"RBigToe":   {-0.09, 0.98},
	"LBigToe":   {0.09, 0.98},
	"RSmallToe": {-0.11, 0.97},
	"LSmallToe": {0.11, 0.97},
}

// Standing returns an upright person of the given height whose body is
// centered on cx with the top of the head at top
func Standing(m *pose.BodyModel, cx, top, height float64) Person {

	p := make(Person, m.NumParts())

	for i, name := range m.Parts {
		if pos, ok := standing[name]; ok {
			p[i] = Joint{
				X:       cx + pos[0]*height,
				Y:       top + pos[1]*height,
				Visible: true,
			}
		}
	}

	return p
}

// Options controls rendering
type Options struct {
	// Sigma is the standard deviation of each part's Gaussian peak in pixels
	Sigma float64
	// LimbWidth is the distance from a limb segment within which its affinity
	// field is set, in pixels
	LimbWidth float64
}

// DefaultOptions returns options suited to maps at network input resolution
func DefaultOptions() Options {
	return Options{
		Sigma:     3,
		LimbWidth: 2,
	}
}

// Render draws the heatmaps and affinity fields a perfect network would
// output for the given people on a width x height grid
func Render(m *pose.BodyModel, people []Person, width, height int,
	o Options) (*pose.HeatmapSet, *pose.AffinityFieldSet) {

	hm := &pose.HeatmapSet{Maps: pose.NewMaps(m.NumHeatmaps(), height, width)}
	paf := &pose.AffinityFieldSet{Maps: pose.NewMaps(m.NumPAFs(), height, width)}

	for part := 0; part < m.NumParts(); part++ {
		for _, p := range people {
			if part < len(p) && p[part].Visible {
				renderPeak(hm.Maps, part, p[part], o.Sigma)
			}
		}
	}

	// background is the complement of the strongest part
	bkg := m.Background()

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var best float32

			for part := 0; part < m.NumParts(); part++ {
				best = max(best, hm.At(part, x, y))
			}

			hm.Set(bkg, x, y, 1-best)
		}
	}

	counts := make([]int, width*height)

	for _, l := range m.Limbs {

		for i := range counts {
			counts[i] = 0
		}

		for _, p := range people {
			if l.A >= len(p) || l.B >= len(p) || !p[l.A].Visible || !p[l.B].Visible {
				continue
			}

			renderLimb(paf.Maps, l, p[l.A], p[l.B], o.LimbWidth, counts)
		}

		// average where people overlap
		for i, n := range counts {
			if n > 1 {
				paf.Plane(l.PAFX)[i] /= float32(n)
				paf.Plane(l.PAFY)[i] /= float32(n)
			}
		}
	}

	return hm, paf
}

func renderPeak(m pose.Maps, c int, j Joint, sigma float64) {

	r := int(math.Ceil(4 * sigma))
	x0 := max(0, int(j.X)-r)
	x1 := min(m.Width-1, int(j.X)+r)
	y0 := max(0, int(j.Y)-r)
	y1 := min(m.Height-1, int(j.Y)+r)

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			dx := float64(x) - j.X
			dy := float64(y) - j.Y
			v := float32(math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma)))

			if v > m.At(c, x, y) {
				m.Set(c, x, y, v)
			}
		}
	}
}

func renderLimb(m pose.Maps, l pose.Limb, a, b Joint, width float64, counts []int) {

	dx := b.X - a.X
	dy := b.Y - a.Y
	length := math.Hypot(dx, dy)

	if length < 1e-6 {
		return
	}

	ux := dx / length
	uy := dy / length

	x0 := max(0, int(math.Floor(math.Min(a.X, b.X)-width)))
	x1 := min(m.Width-1, int(math.Ceil(math.Max(a.X, b.X)+width)))
	y0 := max(0, int(math.Floor(math.Min(a.Y, b.Y)-width)))
	y1 := min(m.Height-1, int(math.Ceil(math.Max(a.Y, b.Y)+width)))

	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			px := float64(x) - a.X
			py := float64(y) - a.Y

			along := px*ux + py*uy
			across := math.Abs(px*uy - py*ux)

			if along < -width || along > length+width || across > width {
				continue
			}

			m.Set(l.PAFX, x, y, m.At(l.PAFX, x, y)+float32(ux))
			m.Set(l.PAFY, x, y, m.At(l.PAFY, x, y)+float32(uy))
			counts[y*m.Width+x]++
		}
	}
}

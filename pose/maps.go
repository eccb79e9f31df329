package pose

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Maps is a planar stack of float32 maps stored channel major, so the value
// of channel c at pixel (x,y) is Data[c*Height*Width + y*Width + x]
type Maps struct {
	Channels int
	Height   int
	Width    int
	Data     []float32
}

// NewMaps allocates a zeroed stack of maps
func NewMaps(channels, height, width int) Maps {
	return Maps{
		Channels: channels,
		Height:   height,
		Width:    width,
		Data:     make([]float32, channels*height*width),
	}
}

// Validate checks the dimensions agree with the data length
func (m Maps) Validate() error {

	if m.Channels <= 0 || m.Height <= 0 || m.Width <= 0 {
		return fmt.Errorf("invalid map dimensions %dx%dx%d", m.Channels, m.Height, m.Width)
	}

	if len(m.Data) != m.Channels*m.Height*m.Width {
		return fmt.Errorf("map data length %d does not match dimensions %dx%dx%d",
			len(m.Data), m.Channels, m.Height, m.Width)
	}

	return nil
}

// Plane returns the data of a single channel. The slice shares memory with
// the stack.
func (m Maps) Plane(c int) []float32 {
	size := m.Height * m.Width
	return m.Data[c*size : (c+1)*size]
}

// At returns the value of channel c at pixel (x,y)
func (m Maps) At(c, x, y int) float32 {
	return m.Data[(c*m.Height+y)*m.Width+x]
}

// Set stores the value of channel c at pixel (x,y)
func (m Maps) Set(c, x, y int, v float32) {
	m.Data[(c*m.Height+y)*m.Width+x] = v
}

// Max returns the maximum value of a channel and the pixel it occurs at
func (m Maps) Max(c int) (float32, int, int) {

	plane := m.Plane(c)
	vals := make([]float64, len(plane))

	for i, v := range plane {
		vals[i] = float64(v)
	}

	idx := floats.MaxIdx(vals)

	return plane[idx], idx % m.Width, idx / m.Width
}

// Clone returns a deep copy
func (m Maps) Clone() Maps {
	out := m
	out.Data = append([]float32(nil), m.Data...)
	return out
}

// Finite reports whether every value of the stack is a finite number
func (m Maps) Finite() bool {
	for _, v := range m.Data {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}

	return true
}

// HeatmapSet holds one confidence map per body part followed by the
// background map
type HeatmapSet struct {
	Maps
}

// NumParts returns the number of part channels, excluding background
func (h *HeatmapSet) NumParts() int {
	return h.Channels - 1
}

// Part returns the confidence map of a body part
func (h *HeatmapSet) Part(i int) []float32 {
	return h.Plane(i)
}

// Background returns the background confidence map
func (h *HeatmapSet) Background() []float32 {
	return h.Plane(h.Channels - 1)
}

// AffinityFieldSet holds the x and y vector components of every limb's part
// affinity field in network channel order
type AffinityFieldSet struct {
	Maps
}

// Vector returns the field vector of a limb at pixel (x,y)
func (a *AffinityFieldSet) Vector(l Limb, x, y int) (float32, float32) {
	return a.At(l.PAFX, x, y), a.At(l.PAFY, x, y)
}

// CheckModel verifies a heatmap and affinity field pair matches the body
// model channel layout and shares the same spatial size
func CheckModel(m *BodyModel, hm *HeatmapSet, paf *AffinityFieldSet) error {

	if hm == nil || paf == nil {
		return fmt.Errorf("missing heatmaps or affinity fields")
	}

	if err := hm.Validate(); err != nil {
		return fmt.Errorf("heatmaps: %w", err)
	}

	if err := paf.Validate(); err != nil {
		return fmt.Errorf("affinity fields: %w", err)
	}

	if hm.Channels != m.NumHeatmaps() {
		return fmt.Errorf("body model %s expects %d heatmap channels, got %d",
			m.Name, m.NumHeatmaps(), hm.Channels)
	}

	if paf.Channels != m.NumPAFs() {
		return fmt.Errorf("body model %s expects %d affinity field channels, got %d",
			m.Name, m.NumPAFs(), paf.Channels)
	}

	if hm.Width != paf.Width || hm.Height != paf.Height {
		return fmt.Errorf("heatmap size %dx%d differs from affinity field size %dx%d",
			hm.Width, hm.Height, paf.Width, paf.Height)
	}

	return nil
}

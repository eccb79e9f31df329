package openpose

import (
	"math"

	"github.com/swdee/go-openpose/pose"
)

// heatmapSelection picks the channels exported in Datum.PoseHeatMaps
type heatmapSelection struct {
	parts bool
	bkg   bool
	pafs  bool
	scale int
}

func (s heatmapSelection) empty() bool {
	return !s.parts && !s.bkg && !s.pafs
}

// poseHeatMaps stacks the selected channels, parts then background then
// PAFs, rescaled to the selection's scale mode
func poseHeatMaps(s heatmapSelection, hm *pose.HeatmapSet, paf *pose.AffinityFieldSet) pose.Maps {

	if s.empty() {
		return pose.Maps{}
	}

	channels := 0

	if s.parts {
		channels += hm.NumParts()
	}

	if s.bkg {
		channels++
	}

	if s.pafs {
		channels += paf.Channels
	}

	out := pose.NewMaps(channels, hm.Height, hm.Width)
	c := 0

	add := func(src []float32, field bool) {
		dst := out.Plane(c)

		for i, v := range src {
			dst[i] = scaleValue(v, field, s.scale)
		}

		c++
	}

	if s.parts {
		for p := 0; p < hm.NumParts(); p++ {
			add(hm.Part(p), false)
		}
	}

	if s.bkg {
		add(hm.Background(), false)
	}

	if s.pafs {
		for p := 0; p < paf.Channels; p++ {
			add(paf.Plane(p), true)
		}
	}

	return out
}

// scaleValue maps a heatmap value, nominally in [0,1], or a field value,
// nominally in [-1,1], to the scale mode's range
func scaleValue(v float32, field bool, mode int) float32 {

	switch mode {
	case HeatmapScaleSigned:
		if !field {
			v = 2*v - 1
		}

		return clamp32(v, -1, 1)

	case HeatmapScaleUnit, HeatmapScaleUint8:
		if field {
			v = (v + 1) / 2
		}

		v = clamp32(v, 0, 1)

		if mode == HeatmapScaleUint8 {
			v = float32(math.Round(float64(v) * 255))
		}

		return v
	}

	return v
}

func clamp32(v, lo, hi float32) float32 {
	return max(lo, min(hi, v))
}

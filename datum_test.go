package openpose

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-openpose/pose"
)

func testDatum() *Datum {

	hm := &pose.HeatmapSet{Maps: pose.NewMaps(3, 2, 2)}
	paf := &pose.AffinityFieldSet{Maps: pose.NewMaps(2, 2, 2)}

	return &Datum{
		ID:             7,
		Name:           "test",
		InputNetData:   []float32{-0.5, 0, 0.5},
		Heatmaps:       hm,
		AffinityFields: paf,
		PoseHeatMaps:   pose.NewMaps(1, 2, 2),
		PartCandidates: [][]pose.Candidate{{{Part: 0, X: 1, Y: 2, Score: 0.9}}, {}},
		Skeletons: []pose.Skeleton{
			{ID: 0, Score: 0.8, NumParts: 2, Keypoints: []pose.Keypoint{{X: 1, Y: 2, Score: 0.9}, {X: 3, Y: 4, Score: 0.7}}},
			{ID: 1, Score: 0.6, NumParts: 1, Keypoints: []pose.Keypoint{{}, {X: 5, Y: 6, Score: 0.6}}},
		},
	}
}

func TestDatumAccessors(t *testing.T) {

	d := testDatum()

	assert.Equal(t, 2, d.NumPeople())
	assert.Equal(t, []float32{0.8, 0.6}, d.Scores())
	assert.Equal(t, [][][3]float32{
		{{1, 2, 0.9}, {3, 4, 0.7}},
		{{0, 0, 0}, {5, 6, 0.6}},
	}, d.Keypoints())
}

func TestDatumClone(t *testing.T) {

	d := testDatum()
	c := d.Clone()

	if diff := cmp.Diff(d, c); diff != "" {
		t.Fatalf("clone differs (-orig +clone):\n%s", diff)
	}

	c.InputNetData[0] = 1
	c.Heatmaps.Set(0, 0, 0, 1)
	c.AffinityFields.Set(0, 0, 0, 1)
	c.PoseHeatMaps.Set(0, 0, 0, 1)
	c.PartCandidates[0][0].X = 100
	c.Skeletons[0].Keypoints[0].X = 100

	assert.Equal(t, float32(-0.5), d.InputNetData[0])
	assert.Equal(t, float32(0), d.Heatmaps.At(0, 0, 0))
	assert.Equal(t, float32(0), d.AffinityFields.At(0, 0, 0))
	assert.Equal(t, float32(0), d.PoseHeatMaps.At(0, 0, 0))
	assert.Equal(t, float32(1), d.PartCandidates[0][0].X)
	assert.Equal(t, float32(1), d.Skeletons[0].Keypoints[0].X)

	empty := (&Datum{}).Clone()
	assert.Nil(t, empty.Skeletons)
	assert.Nil(t, empty.Heatmaps)
}

func TestScaleValue(t *testing.T) {

	tests := []struct {
		mode  int
		field bool
		in    float32
		want  float32
	}{
		{HeatmapScaleSigned, false, 0, -1},
		{HeatmapScaleSigned, false, 0.75, 0.5},
		{HeatmapScaleSigned, true, -0.5, -0.5},
		{HeatmapScaleSigned, false, 1.2, 1},
		{HeatmapScaleUnit, false, 0.3, 0.3},
		{HeatmapScaleUnit, false, -0.1, 0},
		{HeatmapScaleUnit, true, -1, 0},
		{HeatmapScaleUnit, true, 0.5, 0.75},
		{HeatmapScaleUint8, false, 0.5, 128},
		{HeatmapScaleUint8, true, 1, 255},
		{HeatmapScaleUint8, false, 2, 255},
		{HeatmapScaleRaw, false, 1.7, 1.7},
		{HeatmapScaleRaw, true, -3, -3},
	}

	for _, tt := range tests {
		got := scaleValue(tt.in, tt.field, tt.mode)

		if got != tt.want {
			t.Errorf("scaleValue(%v, field=%v, mode=%d) = %v, want %v",
				tt.in, tt.field, tt.mode, got, tt.want)
		}
	}
}

func TestPoseHeatMapsSelection(t *testing.T) {

	m := cocoModel(t)
	hm := &pose.HeatmapSet{Maps: pose.NewMaps(m.NumHeatmaps(), 4, 4)}
	paf := &pose.AffinityFieldSet{Maps: pose.NewMaps(m.NumPAFs(), 4, 4)}

	hm.Set(m.Background(), 1, 1, 1)
	paf.Set(0, 2, 2, -1)

	tests := []struct {
		sel      heatmapSelection
		channels int
	}{
		{heatmapSelection{}, 0},
		{heatmapSelection{parts: true}, 18},
		{heatmapSelection{bkg: true}, 1},
		{heatmapSelection{pafs: true}, 38},
		{heatmapSelection{parts: true, bkg: true, pafs: true}, 57},
	}

	for _, tt := range tests {
		out := poseHeatMaps(tt.sel, hm, paf)
		assert.Equal(t, tt.channels, out.Channels, "%+v", tt.sel)
	}

	// background then fields, unit scale
	out := poseHeatMaps(heatmapSelection{bkg: true, pafs: true, scale: HeatmapScaleUnit}, hm, paf)
	require.Equal(t, 39, out.Channels)
	assert.Equal(t, float32(1), out.At(0, 1, 1))
	assert.Equal(t, float32(0), out.At(1, 2, 2))
	assert.Equal(t, float32(0.5), out.At(1, 0, 0))
}

package openpose

import (
	"slices"
	"time"

	"github.com/swdee/go-openpose/pose"
	"github.com/swdee/go-openpose/preprocess"
)

// Datum holds everything produced for one frame. It is not modified after
// being returned, use Clone for a copy to change.
type Datum struct {
	// ID increases with every frame processed by an engine
	ID int64
	// Name is the name of the source frame
	Name string
	// Model is the body model skeletons are expressed in
	Model *pose.BodyModel
	// Scale maps between source image and network input coordinates
	Scale preprocess.Scale
	// InputNetData is the normalized network input in CHW order
	InputNetData []float32
	// Heatmaps are the part confidence maps at network input resolution
	Heatmaps *pose.HeatmapSet
	// AffinityFields are the part affinity fields at network input
	// resolution
	AffinityFields *pose.AffinityFieldSet
	// PoseHeatMaps are the exported channels selected by the heatmaps_add
	// options and scaled by heatmaps_scale, empty when none are selected
	PoseHeatMaps pose.Maps
	// HeatmapsScale is the scale mode PoseHeatMaps values are in
	HeatmapsScale int
	// PartCandidates are the keypoint candidates per part in source image
	// coordinates, nil unless part_candidates is set
	PartCandidates [][]pose.Candidate
	// Skeletons are the detected people ordered by descending score, nil
	// when only heatmaps were requested
	Skeletons []pose.Skeleton
	// Elapsed is the time taken to process the frame
	Elapsed time.Duration
}

// NumPeople returns the number of skeletons
func (d *Datum) NumPeople() int {
	return len(d.Skeletons)
}

// Keypoints returns the skeletons as a people x parts x 3 array of x, y and
// score
func (d *Datum) Keypoints() [][][3]float32 {

	out := make([][][3]float32, len(d.Skeletons))

	for i, s := range d.Skeletons {
		out[i] = make([][3]float32, len(s.Keypoints))

		for j, k := range s.Keypoints {
			out[i][j] = [3]float32{k.X, k.Y, k.Score}
		}
	}

	return out
}

// Scores returns the score of each skeleton
func (d *Datum) Scores() []float32 {

	out := make([]float32, len(d.Skeletons))

	for i, s := range d.Skeletons {
		out[i] = s.Score
	}

	return out
}

// Clone returns a deep copy
func (d *Datum) Clone() *Datum {

	out := *d
	out.InputNetData = slices.Clone(d.InputNetData)
	out.PoseHeatMaps = d.PoseHeatMaps.Clone()

	if d.Heatmaps != nil {
		out.Heatmaps = &pose.HeatmapSet{Maps: d.Heatmaps.Clone()}
	}

	if d.AffinityFields != nil {
		out.AffinityFields = &pose.AffinityFieldSet{Maps: d.AffinityFields.Clone()}
	}

	if d.PartCandidates != nil {
		out.PartCandidates = make([][]pose.Candidate, len(d.PartCandidates))

		for i, c := range d.PartCandidates {
			out.PartCandidates[i] = slices.Clone(c)
		}
	}

	if d.Skeletons != nil {
		out.Skeletons = make([]pose.Skeleton, len(d.Skeletons))

		for i, s := range d.Skeletons {
			out.Skeletons[i] = s.Clone()
		}
	}

	return &out
}

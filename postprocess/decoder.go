package postprocess

import (
	"errors"
	"fmt"
	"sort"

	"github.com/swdee/go-openpose/pose"
	"github.com/swdee/go-openpose/preprocess"
)

// ErrMalformedField is returned when affinity field data cannot be used to
// assemble skeletons
var ErrMalformedField = errors.New("malformed affinity field")

// FieldError locates a malformed field failure, Limb is -1 when the field
// set as a whole was rejected
type FieldError struct {
	Limb int
	Err  error
}

func (e *FieldError) Error() string {
	if e.Limb < 0 {
		return e.Err.Error()
	}

	return fmt.Sprintf("limb %d: %v", e.Limb, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// MatchMethod selects how candidate pairs of a limb are matched
type MatchMethod string

const (
	// MatchGreedy accepts pairs in descending score order
	MatchGreedy MatchMethod = "greedy"
	// MatchOptimal maximizes the summed score of all pairs of a limb
	MatchOptimal MatchMethod = "optimal"
)

// Params defines the thresholds used to decode heatmaps and affinity fields
// into skeletons
type Params struct {
	// NMSThreshold is the minimum heatmap confidence for a peak to become a
	// keypoint candidate
	NMSThreshold float32
	// InterThreshold is the minimum affinity alignment for a line sample to
	// count towards a limb
	InterThreshold float32
	// InterMinAboveThreshold is the fraction of line samples that must exceed
	// InterThreshold for a pairing to be valid
	InterMinAboveThreshold float32
	// IntegrationPoints is the number of samples taken along a limb
	IntegrationPoints int
	// MinSubsetCount is the minimum number of parts a person must have
	MinSubsetCount int
	// MinSubsetScore is the minimum average score per part of a person
	MinSubsetScore float32
	// MaxPeaks caps the candidates kept per part, highest scores first
	MaxPeaks int
	// NumberPeopleMax limits the returned skeletons, -1 returns all
	NumberPeopleMax int
	// Method is the limb matching method
	Method MatchMethod
}

// DefaultParams returns the decoder parameters:
// - NMS Threshold: 0.05
// - Inter Threshold: 0.05
// - Inter Min Above Threshold: 0.95
// - Integration Points: 10
// - Min Subset Count: 3
// - Min Subset Score: 0.4
// - Max Peaks: 64
// - Number People Max: all
// - Method: greedy
func DefaultParams() Params {
	return Params{
		NMSThreshold:           0.05,
		InterThreshold:         0.05,
		InterMinAboveThreshold: 0.95,
		IntegrationPoints:      10,
		MinSubsetCount:         3,
		MinSubsetScore:         0.4,
		MaxPeaks:               64,
		NumberPeopleMax:        -1,
		Method:                 MatchGreedy,
	}
}

// Validate checks the parameters are usable
func (p Params) Validate() error {

	if p.IntegrationPoints < 2 {
		return fmt.Errorf("integration points must be at least 2, got %d", p.IntegrationPoints)
	}

	if p.MaxPeaks < 1 {
		return fmt.Errorf("max peaks must be positive, got %d", p.MaxPeaks)
	}

	if p.Method != MatchGreedy && p.Method != MatchOptimal {
		return fmt.Errorf("unknown match method %q", p.Method)
	}

	return nil
}

// Decoder turns heatmaps and part affinity fields into skeletons for a body
// model
type Decoder struct {
	// Params are the decoding thresholds
	Params Params
	model  *pose.BodyModel
}

// NewDecoder returns a decoder for the body model
func NewDecoder(model *pose.BodyModel, p Params) (*Decoder, error) {

	if model == nil {
		return nil, fmt.Errorf("body model is required")
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &Decoder{
		Params: p,
		model:  model,
	}, nil
}

// Result is the output of decoding one frame
type Result struct {
	// Candidates are the keypoint candidates per part in network input
	// coordinates
	Candidates [][]pose.Candidate
	// Skeletons are the assembled people in original image coordinates
	Skeletons []pose.Skeleton
}

// Decode finds keypoint candidates and assembles them into skeletons. The
// maps are expected at network input resolution so candidates map back to the
// source image through scale.
func (d *Decoder) Decode(hm *pose.HeatmapSet, paf *pose.AffinityFieldSet,
	scale preprocess.Scale) (*Result, error) {

	if err := pose.CheckModel(d.model, hm, paf); err != nil {
		return nil, &FieldError{Limb: -1, Err: fmt.Errorf("%w: %w", ErrMalformedField, err)}
	}

	res := &Result{
		Candidates: make([][]pose.Candidate, d.model.NumParts()),
	}

	total := 0

	scratch := make([]float64, hm.Width*hm.Height)

	for part := 0; part < d.model.NumParts(); part++ {
		plane := hm.Part(part)

		// skip the scan of planes with nothing above threshold
		if planeMax(plane, scratch) <= float64(d.Params.NMSThreshold) {
			res.Candidates[part] = []pose.Candidate{}
			continue
		}

		res.Candidates[part] = FindPeaks(plane, hm.Width, hm.Height, part,
			d.Params.NMSThreshold, d.Params.MaxPeaks)
		total += len(res.Candidates[part])
	}

	if total == 0 {
		// nothing above threshold is a valid empty result
		res.Skeletons = []pose.Skeleton{}
		return res, nil
	}

	people, err := d.assemble(res.Candidates, paf)

	if err != nil {
		return nil, err
	}

	res.Skeletons = d.skeletons(people, res.Candidates, scale)

	return res, nil
}

// skeletons converts assembled people into scored skeletons in source image
// coordinates, ordered by descending score
func (d *Decoder) skeletons(people []*person, cands [][]pose.Candidate,
	scale preprocess.Scale) []pose.Skeleton {

	out := make([]pose.Skeleton, 0, len(people))

	for _, p := range people {

		sk := pose.Skeleton{
			Keypoints: make([]pose.Keypoint, d.model.NumParts()),
			Score:     p.score / float32(2*p.count-1),
			NumParts:  p.count,
		}

		for part, idx := range p.parts {
			if idx < 0 {
				continue
			}

			c := cands[part][idx]
			x, y := scale.ToSource(float64(c.X), float64(c.Y))

			sk.Keypoints[part] = pose.Keypoint{
				X:     float32(x),
				Y:     float32(y),
				Score: c.Score,
			}
		}

		out = append(out, sk)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}

		ai, aj := anchor(out[i]), anchor(out[j])

		if ai.X != aj.X {
			return ai.X < aj.X
		}

		return ai.Y < aj.Y
	})

	if d.Params.NumberPeopleMax > 0 && len(out) > d.Params.NumberPeopleMax {
		out = out[:d.Params.NumberPeopleMax]
	}

	for i := range out {
		out[i].ID = i
	}

	return out
}

// anchor returns the first detected keypoint of a skeleton
func anchor(s pose.Skeleton) pose.Keypoint {
	for _, k := range s.Keypoints {
		if k.Score > 0 {
			return k
		}
	}

	return pose.Keypoint{}
}

package pose

import (
	"fmt"
	"strings"
)

// Model names a trained network body model
type Model string

const (
	COCO   Model = "COCO"
	BODY25 Model = "BODY_25"
	MPI    Model = "MPI"
)

// Limb is a pair of body parts joined by a part affinity field
type Limb struct {
	// A is the index of the source part
	A int
	// B is the index of the destination part
	B int
	// PAFX is the affinity field channel holding the x component of the limb
	// vector, relative to the first PAF channel
	PAFX int
	// PAFY is the affinity field channel holding the y component
	PAFY int
	// Redundant limbs may attach parts to an existing person but never start
	// a new one
	Redundant bool
}

// ModelFiles are the paths of a body model's weights relative to the model
// folder
type ModelFiles struct {
	Prototxt   string
	Caffemodel string
	RKNN       string
}

// BodyModel defines the fixed enumeration and ordering of body parts and limbs
// a network was trained with
type BodyModel struct {
	// Name of the model
	Name Model
	// Parts are the body part names in heatmap channel order, the background
	// channel is not included
	Parts []string
	// Limbs in the order they are assembled into skeletons
	Limbs []Limb
	// Files are the weights for each backend
	Files ModelFiles
}

// NumParts returns the number of body parts excluding background
func (b *BodyModel) NumParts() int {
	return len(b.Parts)
}

// NumHeatmaps returns the number of heatmap channels the network outputs,
// being one per part plus the background channel
func (b *BodyModel) NumHeatmaps() int {
	return len(b.Parts) + 1
}

// NumPAFs returns the number of affinity field channels, two per limb
func (b *BodyModel) NumPAFs() int {
	return 2 * len(b.Limbs)
}

// NumChannels returns the total number of network output channels
func (b *BodyModel) NumChannels() int {
	return b.NumHeatmaps() + b.NumPAFs()
}

// Background returns the channel index of the background heatmap
func (b *BodyModel) Background() int {
	return len(b.Parts)
}

// PartIndex returns the index of the named part, the match is case insensitive
func (b *BodyModel) PartIndex(name string) (int, bool) {
	for i, p := range b.Parts {
		if strings.EqualFold(p, name) {
			return i, true
		}
	}

	return -1, false
}

// LookupModel returns the body model with the given name
func LookupModel(name Model) (*BodyModel, error) {

	m, ok := models[Model(strings.ToUpper(string(name)))]

	if !ok {
		return nil, fmt.Errorf("unknown body model %q, expected one of %s, %s, %s",
			name, COCO, BODY25, MPI)
	}

	return m, nil
}

// limbs builds the limb table from flat part pair and PAF channel lists,
// marking the limbs at the given indices as redundant
func limbs(pairs, pafs []int, redundant ...int) []Limb {

	out := make([]Limb, len(pairs)/2)

	for i := range out {
		out[i] = Limb{
			A:    pairs[2*i],
			B:    pairs[2*i+1],
			PAFX: pafs[2*i],
			PAFY: pafs[2*i+1],
		}
	}

	for _, i := range redundant {
		out[i].Redundant = true
	}

	return out
}

var models = map[Model]*BodyModel{
	COCO: {
		Name: COCO,
		Parts: []string{"Nose", "Neck", "RShoulder", "RElbow", "RWrist",
			"LShoulder", "LElbow", "LWrist", "RHip", "RKnee", "RAnkle", "LHip",
			"LKnee", "LAnkle", "REye", "LEye", "REar", "LEar"},
		Limbs: limbs(
			[]int{1, 2, 1, 5, 2, 3, 3, 4, 5, 6, 6, 7, 1, 8, 8, 9, 9, 10, 1, 11,
				11, 12, 12, 13, 1, 0, 0, 14, 14, 16, 0, 15, 15, 17, 2, 16, 5, 17},
			[]int{12, 13, 20, 21, 14, 15, 16, 17, 22, 23, 24, 25, 0, 1, 2, 3, 4, 5,
				6, 7, 8, 9, 10, 11, 28, 29, 30, 31, 34, 35, 32, 33, 36, 37, 18, 19,
				26, 27},
			17, 18,
		),
		Files: ModelFiles{
			Prototxt:   "pose/coco/pose_deploy_linevec.prototxt",
			Caffemodel: "pose/coco/pose_iter_440000.caffemodel",
			RKNN:       "pose/coco/pose_iter_440000.rknn",
		},
	},
	BODY25: {
		Name: BODY25,
		Parts: []string{"Nose", "Neck", "RShoulder", "RElbow", "RWrist",
			"LShoulder", "LElbow", "LWrist", "MidHip", "RHip", "RKnee", "RAnkle",
			"LHip", "LKnee", "LAnkle", "REye", "LEye", "REar", "LEar", "LBigToe",
			"LSmallToe", "LHeel", "RBigToe", "RSmallToe", "RHeel"},
		Limbs: limbs(
			[]int{1, 8, 1, 2, 1, 5, 2, 3, 3, 4, 5, 6, 6, 7, 8, 9, 9, 10, 10, 11,
				8, 12, 12, 13, 13, 14, 1, 0, 0, 15, 15, 17, 0, 16, 16, 18, 2, 17,
				5, 18, 14, 19, 19, 20, 14, 21, 11, 22, 22, 23, 11, 24},
			[]int{0, 1, 14, 15, 22, 23, 16, 17, 18, 19, 24, 25, 26, 27, 6, 7, 2, 3,
				4, 5, 8, 9, 10, 11, 12, 13, 30, 31, 32, 33, 36, 37, 34, 35, 38, 39,
				20, 21, 28, 29, 40, 41, 42, 43, 44, 45, 46, 47, 48, 49, 50, 51},
			17, 18,
		),
		Files: ModelFiles{
			Prototxt:   "pose/body_25/pose_deploy.prototxt",
			Caffemodel: "pose/body_25/pose_iter_584000.caffemodel",
			RKNN:       "pose/body_25/pose_iter_584000.rknn",
		},
	},
	MPI: {
		Name: MPI,
		Parts: []string{"Head", "Neck", "RShoulder", "RElbow", "RWrist",
			"LShoulder", "LElbow", "LWrist", "RHip", "RKnee", "RAnkle", "LHip",
			"LKnee", "LAnkle", "Chest"},
		Limbs: limbs(
			[]int{0, 1, 1, 2, 2, 3, 3, 4, 1, 5, 5, 6, 6, 7, 1, 14, 14, 8, 8, 9, 9,
				10, 14, 11, 11, 12, 12, 13},
			[]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18,
				19, 20, 21, 22, 23, 24, 25, 26, 27},
		),
		Files: ModelFiles{
			Prototxt:   "pose/mpi/pose_deploy_linevec.prototxt",
			Caffemodel: "pose/mpi/pose_iter_160000.caffemodel",
			RKNN:       "pose/mpi/pose_iter_160000.rknn",
		},
	},
}

package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	openpose "github.com/swdee/go-openpose"
	"go.uber.org/multierr"
)

// KeypointsVersion is the version written in keypoint JSON documents
const KeypointsVersion = 1.3

// Keypoints is the JSON document written for one frame
type Keypoints struct {
	Version float64  `json:"version"`
	People  []Person `json:"people"`
	// PartCandidates holds one x, y, score triplet list per body part, keyed
	// by part index, when candidates were requested
	PartCandidates []map[string][]float32 `json:"part_candidates,omitempty"`
}

// Person is one skeleton as a flat x, y, score array in body model part
// order
type Person struct {
	PersonID        []int     `json:"person_id"`
	PoseKeypoints2D []float32 `json:"pose_keypoints_2d"`
}

// NewKeypoints builds the JSON document for a datum
func NewKeypoints(d *openpose.Datum) Keypoints {

	doc := Keypoints{
		Version: KeypointsVersion,
		People:  make([]Person, 0, d.NumPeople()),
	}

	for _, s := range d.Skeletons {
		kps := make([]float32, 0, 3*len(s.Keypoints))

		for _, k := range s.Keypoints {
			kps = append(kps, k.X, k.Y, k.Score)
		}

		doc.People = append(doc.People, Person{
			PersonID:        []int{-1},
			PoseKeypoints2D: kps,
		})
	}

	if d.PartCandidates != nil {
		cands := make(map[string][]float32, len(d.PartCandidates))

		for part, cs := range d.PartCandidates {
			vals := make([]float32, 0, 3*len(cs))

			for _, c := range cs {
				vals = append(vals, c.X, c.Y, c.Score)
			}

			cands[fmt.Sprint(part)] = vals
		}

		doc.PartCandidates = []map[string][]float32{cands}
	}

	return doc
}

// WriteKeypointsJSON writes the datum's skeletons as a keypoint JSON
// document
func WriteKeypointsJSON(w io.Writer, d *openpose.Datum) error {

	if d == nil {
		return fmt.Errorf("nil datum")
	}

	enc := json.NewEncoder(w)

	if err := enc.Encode(NewKeypoints(d)); err != nil {
		return fmt.Errorf("error encoding keypoints: %w", err)
	}

	return nil
}

// WriteKeypointsFile writes the keypoint JSON into dir as
// <frame name>_keypoints.json, returning the file path
func WriteKeypointsFile(dir string, d *openpose.Datum) (path string, err error) {

	path = filepath.Join(dir, baseName(d.Name)+"_keypoints.json")

	f, err := os.Create(path)

	if err != nil {
		return "", fmt.Errorf("error creating keypoints file: %w", err)
	}

	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	if err = WriteKeypointsJSON(f, d); err != nil {
		return "", err
	}

	return path, nil
}

// baseName strips the directory and extension from a frame name
func baseName(name string) string {

	base := filepath.Base(name)

	if base == "." || base == string(filepath.Separator) || name == "" {
		return "frame"
	}

	return strings.TrimSuffix(base, filepath.Ext(base))
}

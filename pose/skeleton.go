package pose

// Keypoint is the location of one body part in original image coordinates.
// A part that was not detected has a zero Score.
type Keypoint struct {
	X     float32
	Y     float32
	Score float32
}

// Valid reports whether the part was detected with at least the given
// confidence
func (k Keypoint) Valid(threshold float32) bool {
	return k.Score > 0 && k.Score >= threshold
}

// Candidate is a heatmap peak that may become a skeleton keypoint
type Candidate struct {
	// Part is the body part index the peak was found on
	Part int
	// X and Y are the refined peak position in network input coordinates
	X float32
	Y float32
	// Score is the heatmap confidence at the peak
	Score float32
}

// Skeleton is one detected person
type Skeleton struct {
	// ID is the position of the person in the frame's result set
	ID int
	// Keypoints holds one entry per body part in body model order
	Keypoints []Keypoint
	// Score is the mean of the part and limb scores that formed the person
	Score float32
	// NumParts is the number of detected parts
	NumParts int
}

// Part returns the keypoint of a body part
func (s Skeleton) Part(i int) Keypoint {
	if i < 0 || i >= len(s.Keypoints) {
		return Keypoint{}
	}

	return s.Keypoints[i]
}

// Clone returns a deep copy
func (s Skeleton) Clone() Skeleton {
	out := s
	out.Keypoints = append([]Keypoint(nil), s.Keypoints...)
	return out
}

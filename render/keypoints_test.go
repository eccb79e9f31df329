package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-openpose/pose"
	"gocv.io/x/gocv"
)

func painted(img gocv.Mat, x, y int) bool {
	v := img.GetVecbAt(y, x)
	return v[0] != 0 || v[1] != 0 || v[2] != 0
}

// paintedNear reports whether any pixel within d rows of x,y is painted
func paintedNear(img gocv.Mat, x, y, d int) bool {
	for dy := -d; dy <= d; dy++ {
		if painted(img, x, y+dy) {
			return true
		}
	}

	return false
}

func testSkeleton(t *testing.T) (*pose.BodyModel, pose.Skeleton) {

	m, err := pose.LookupModel(pose.COCO)
	require.NoError(t, err)

	s := pose.Skeleton{ID: 0, Keypoints: make([]pose.Keypoint, m.NumParts())}

	// neck to right shoulder, limb 0 of the COCO model
	s.Keypoints[1] = pose.Keypoint{X: 100, Y: 60, Score: 0.9}
	s.Keypoints[2] = pose.Keypoint{X: 60, Y: 60, Score: 0.8}
	// below the threshold
	s.Keypoints[8] = pose.Keypoint{X: 100, Y: 150, Score: 0.01}
	s.NumParts = 3

	return m, s
}

func TestSkeletons(t *testing.T) {

	m, s := testSkeleton(t)

	img := gocv.Zeros(200, 200, gocv.MatTypeCV8UC3)
	defer img.Close()

	style := DefaultStyle()
	style.Labels = false

	Skeletons(&img, m, []pose.Skeleton{s}, style)

	assert.True(t, painted(img, 100, 60), "neck joint")
	assert.True(t, painted(img, 60, 60), "shoulder joint")
	assert.True(t, painted(img, 80, 60), "limb line")

	assert.False(t, painted(img, 100, 150), "hidden hip")
	assert.False(t, painted(img, 100, 105), "no limb to hidden hip")
	assert.False(t, painted(img, 190, 190))
}

func TestSkeletonsOutlineAndLabel(t *testing.T) {

	m, s := testSkeleton(t)

	img := gocv.Zeros(200, 200, gocv.MatTypeCV8UC3)
	defer img.Close()

	style := DefaultStyle()
	style.Outline = true
	style.RegionPadding = 20

	Skeletons(&img, m, []pose.Skeleton{s}, style)

	// the region sits 20px below the limb
	assert.True(t, paintedNear(img, 80, 80, 2), "outline below limb")
	// the label sits above the region
	assert.True(t, painted(img, 60, 36), "label box")
}

func TestSkeletonsEmpty(t *testing.T) {

	m, _ := testSkeleton(t)

	img := gocv.Zeros(50, 50, gocv.MatTypeCV8UC3)
	defer img.Close()

	Skeletons(&img, m, nil, DefaultStyle())

	for y := 0; y < 50; y += 10 {
		for x := 0; x < 50; x += 10 {
			assert.False(t, painted(img, x, y))
		}
	}
}

func TestPaletteWraps(t *testing.T) {
	assert.Equal(t, PersonColor(0), PersonColor(len(palette)))
	assert.Equal(t, LimbColor(3), LimbColor(-3))
}

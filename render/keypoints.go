package render

import (
	"fmt"
	"image"
	"math"

	"github.com/swdee/go-openpose/pose"
	"github.com/swdee/go-openpose/postprocess"
	"gocv.io/x/gocv"
)

// Style controls how skeletons are drawn
type Style struct {
	// Threshold is the minimum keypoint score drawn
	Threshold     float32
	LineThickness int
	JointRadius   int
	// Labels draws "person N" above each skeleton
	Labels bool
	// Outline draws the person region around each skeleton
	Outline bool
	// RegionPadding grows the person region outwards in pixels
	RegionPadding float64
	Font          Font
}

// DefaultStyle returns default skeleton style settings
func DefaultStyle() Style {
	return Style{
		Threshold:     0.05,
		LineThickness: 2,
		JointRadius:   3,
		Labels:        true,
		Outline:       false,
		RegionPadding: 10,
		Font:          DefaultFont(),
	}
}

// Skeletons renders the limbs and joints of every person onto a BGR image,
// skipping keypoints below the style threshold
func Skeletons(img *gocv.Mat, m *pose.BodyModel, people []pose.Skeleton, style Style) {

	labels := make([]label, 0, len(people))

	for _, s := range people {

		// redundant limbs repeat connections already drawn through the body
		for li, l := range m.Limbs {
			if l.Redundant {
				continue
			}

			a := s.Part(l.A)
			b := s.Part(l.B)

			if !a.Valid(style.Threshold) || !b.Valid(style.Threshold) {
				continue
			}

			gocv.Line(img, point(a), point(b), LimbColor(li), style.LineThickness)
		}

		for i, k := range s.Keypoints {
			if k.Valid(style.Threshold) {
				gocv.Circle(img, point(k), style.JointRadius, LimbColor(i), -1)
			}
		}

		if !style.Labels && !style.Outline {
			continue
		}

		region := postprocess.PersonRegion(s, style.Threshold, style.RegionPadding)

		if len(region) == 0 {
			continue
		}

		if style.Outline {
			pv := gocv.NewPointsVectorFromPoints([][]image.Point{region})
			gocv.Polylines(img, pv, true, PersonColor(s.ID), style.LineThickness)
			pv.Close()
		}

		if style.Labels {
			labels = append(labels, placeLabel(bounds(region), fmt.Sprintf("person %d", s.ID),
				PersonColor(s.ID), style.Font, style.LineThickness))
		}
	}

	drawLabels(img, labels, style.Font)
}

func point(k pose.Keypoint) image.Point {
	return image.Pt(int(math.Round(float64(k.X))), int(math.Round(float64(k.Y))))
}

// bounds returns the bounding rectangle of a polygon
func bounds(pts []image.Point) image.Rectangle {

	r := image.Rectangle{Min: pts[0], Max: pts[0]}

	for _, p := range pts[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}

	return r
}

package postprocess

import (
	"image"
	"math"
	"sort"

	clipper "github.com/ctessum/go.clipper"
	"github.com/swdee/go-openpose/pose"
)

// PersonRegion returns the outline of a skeleton's keypoints at or above
// threshold, being their convex hull grown outwards by padding pixels with
// rounded corners. Nil is returned when no keypoint qualifies.
func PersonRegion(s pose.Skeleton, threshold float32, padding float64) []image.Point {

	pts := make([]image.Point, 0, len(s.Keypoints))

	for _, k := range s.Keypoints {
		if k.Valid(threshold) {
			pts = append(pts, image.Pt(int(math.Round(float64(k.X))),
				int(math.Round(float64(k.Y)))))
		}
	}

	if len(pts) == 0 {
		return nil
	}

	hull := convexHull(pts)

	var path clipper.Path

	for _, pt := range hull {
		path = append(path, &clipper.IntPoint{X: clipper.CInt(pt.X), Y: clipper.CInt(pt.Y)})
	}

	co := clipper.NewClipperOffset()

	if len(hull) < 3 {
		// a point or a line segment, grown into a disc or capsule
		co.AddPath(path, clipper.JtRound, clipper.EtOpenRound)
	} else {
		co.AddPath(path, clipper.JtRound, clipper.EtClosedPolygon)
	}

	solution := co.Execute(padding)

	// the offset of a convex polygon is a single path, keep the largest in
	// case of numerical splits
	var best clipper.Path

	for _, sol := range solution {
		if len(sol) > len(best) {
			best = sol
		}
	}

	if len(best) == 0 {
		return hull
	}

	out := make([]image.Point, len(best))

	for i, pt := range best {
		out[i] = image.Pt(int(pt.X), int(pt.Y))
	}

	return out
}

// convexHull returns the hull of the points in counter clockwise order using
// the monotone chain algorithm, collinear points are dropped
func convexHull(pts []image.Point) []image.Point {

	sorted := append([]image.Point(nil), pts...)

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}

		return sorted[i].Y < sorted[j].Y
	})

	// remove duplicates
	uniq := sorted[:0]

	for i, p := range sorted {
		if i == 0 || p != sorted[i-1] {
			uniq = append(uniq, p)
		}
	}

	if len(uniq) < 3 {
		return uniq
	}

	cross := func(o, a, b image.Point) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make([]image.Point, 0, 2*len(uniq))

	for _, p := range uniq {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}

		hull = append(hull, p)
	}

	lower := len(hull) + 1

	for i := len(uniq) - 2; i >= 0; i-- {
		p := uniq[i]

		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}

		hull = append(hull, p)
	}

	return hull[:len(hull)-1]
}

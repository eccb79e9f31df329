package export

import (
	"fmt"
	"math"
	"path/filepath"

	openpose "github.com/swdee/go-openpose"
	"gocv.io/x/gocv"
)

// HeatmapImage converts one PoseHeatMaps channel to an 8 bit grayscale Mat,
// mapping the scale mode's range onto 0-255
func HeatmapImage(d *openpose.Datum, channel int) (gocv.Mat, error) {

	m := d.PoseHeatMaps

	if err := m.Validate(); err != nil {
		return gocv.NewMat(), err
	}

	if channel < 0 || channel >= m.Channels {
		return gocv.NewMat(), fmt.Errorf("channel %d out of range [0-%d)", channel, m.Channels)
	}

	plane := m.Plane(channel)
	pix := make([]byte, len(plane))

	for i, v := range plane {
		pix[i] = toGray(v, d.HeatmapsScale)
	}

	return gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8U, pix)
}

func toGray(v float32, mode int) byte {

	var u float64

	switch mode {
	case openpose.HeatmapScaleSigned:
		u = (float64(v) + 1) / 2
	case openpose.HeatmapScaleUint8:
		u = float64(v) / 255
	default:
		u = float64(v)
	}

	if math.IsNaN(u) {
		return 0
	}

	return byte(math.Round(max(0, min(1, u)) * 255))
}

// WriteHeatmaps writes every PoseHeatMaps channel as a grayscale PNG named
// <prefix>_<frame name>_<channel>.png in dir, returning the paths written
func WriteHeatmaps(dir, prefix string, d *openpose.Datum) ([]string, error) {

	if d == nil {
		return nil, fmt.Errorf("nil datum")
	}

	if d.PoseHeatMaps.Channels == 0 {
		return nil, fmt.Errorf("datum has no heatmaps, enable a heatmaps_add option")
	}

	paths := make([]string, 0, d.PoseHeatMaps.Channels)

	for c := 0; c < d.PoseHeatMaps.Channels; c++ {

		img, err := HeatmapImage(d, c)

		if err != nil {
			img.Close()
			return paths, err
		}

		path := filepath.Join(dir, fmt.Sprintf("%s_%s_%d.png", prefix, baseName(d.Name), c))
		ok := gocv.IMWrite(path, img)
		img.Close()

		if !ok {
			return paths, fmt.Errorf("failed to write heatmap %s", path)
		}

		paths = append(paths, path)
	}

	return paths, nil
}

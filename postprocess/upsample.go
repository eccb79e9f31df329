package postprocess

import (
	"fmt"
	"image"

	"github.com/swdee/go-openpose/pose"
	"gocv.io/x/gocv"
)

// ResizeMaps resizes every channel of a map stack to the given size using
// bicubic interpolation. The network outputs maps at a fraction of its input
// resolution, they are brought back to input resolution before decoding.
func ResizeMaps(m pose.Maps, width, height int) (pose.Maps, error) {

	if err := m.Validate(); err != nil {
		return pose.Maps{}, err
	}

	if m.Width == width && m.Height == height {
		return m.Clone(), nil
	}

	out := pose.NewMaps(m.Channels, height, width)

	src := gocv.NewMatWithSize(m.Height, m.Width, gocv.MatTypeCV32F)
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()

	srcData, err := src.DataPtrFloat32()

	if err != nil {
		return pose.Maps{}, fmt.Errorf("error accessing resize buffer: %w", err)
	}

	for c := 0; c < m.Channels; c++ {

		copy(srcData, m.Plane(c))

		gocv.Resize(src, &dst, image.Pt(width, height), 0, 0, gocv.InterpolationCubic)

		dstData, err := dst.DataPtrFloat32()

		if err != nil {
			return pose.Maps{}, fmt.Errorf("error reading resized channel %d: %w", c, err)
		}

		copy(out.Plane(c), dstData)
	}

	return out, nil
}

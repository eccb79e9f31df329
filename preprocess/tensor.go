package preprocess

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

const (
	// NormScale and NormMean define the network input normalization
	// v*NormScale - NormMean applied to each 8 bit pixel channel
	NormScale = 1.0 / 256.0
	NormMean  = 0.5
)

// PadColor is the letterbox border color
var PadColor = color.RGBA{R: 0, G: 0, B: 0, A: 255}

// Tensor is a letterboxed image ready for inference along with the metadata
// to map results back to the source image
type Tensor struct {
	// Mat is the letterboxed 8 bit BGR image at network input size
	Mat gocv.Mat
	// Scale is the letterbox metadata
	Scale Scale
}

// NewTensor letterboxes an 8 bit three channel image into a tensor of the
// given network input size
func NewTensor(img gocv.Mat, size image.Point, pad color.RGBA) (*Tensor, error) {

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	if img.Channels() != 3 || img.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("image must be 8 bit with 3 channels, got type %s",
			img.Type().String())
	}

	resizer, err := NewResizer(img.Cols(), img.Rows(), size.X, size.Y)

	if err != nil {
		return nil, err
	}

	defer resizer.Close()

	dest := gocv.NewMat()

	err = resizer.LetterBoxResize(img, &dest, pad)

	if err != nil {
		dest.Close()
		return nil, err
	}

	return &Tensor{
		Mat:   dest,
		Scale: resizer.Scale(),
	}, nil
}

// Size returns the tensor width and height
func (t *Tensor) Size() image.Point {
	return image.Pt(t.Mat.Cols(), t.Mat.Rows())
}

// Normalized returns the network input as float32 values in channel major
// BGR order with the normalization applied
func (t *Tensor) Normalized() ([]float32, error) {

	f := gocv.NewMat()
	defer f.Close()

	t.Mat.ConvertToWithParams(&f, gocv.MatTypeCV32FC3, NormScale, -NormMean)

	planes := gocv.Split(f)

	defer func() {
		for _, p := range planes {
			p.Close()
		}
	}()

	size := t.Mat.Rows() * t.Mat.Cols()
	out := make([]float32, 0, len(planes)*size)

	for i, p := range planes {

		data, err := p.DataPtrFloat32()

		if err != nil {
			return nil, fmt.Errorf("error reading channel %d: %w", i, err)
		}

		out = append(out, data[:size]...)
	}

	return out, nil
}

// Close frees the tensor image
func (t *Tensor) Close() error {
	return t.Mat.Close()
}

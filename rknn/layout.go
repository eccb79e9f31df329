package rknn

import "fmt"

// Layout is the memory order of a 4-D tensor
type Layout int

const (
	NCHW Layout = iota
	NHWC
)

// String returns a readable description of the layout
func (l Layout) String() string {
	if l == NHWC {
		return "NHWC"
	}

	return "NCHW"
}

// Shape is the size of one image's network output
type Shape struct {
	Channels int
	Height   int
	Width    int
}

// Len returns the number of values in the shape
func (s Shape) Len() int {
	return s.Channels * s.Height * s.Width
}

// OutputShape reads the per image shape from 4-D output dims in the given
// layout, the first dim being the batch
func OutputShape(dims []uint32, layout Layout) (batch int, s Shape, err error) {

	if len(dims) < 4 {
		return 0, Shape{}, fmt.Errorf("expected 4 output dims, got %d", len(dims))
	}

	batch = int(dims[0])

	if layout == NHWC {
		s = Shape{Height: int(dims[1]), Width: int(dims[2]), Channels: int(dims[3])}
	} else {
		s = Shape{Channels: int(dims[1]), Height: int(dims[2]), Width: int(dims[3])}
	}

	if batch <= 0 || s.Len() <= 0 {
		return 0, Shape{}, fmt.Errorf("invalid output dims %v", dims[:4])
	}

	return batch, s, nil
}

// ToNCHW returns one image's output in channel major order
func ToNCHW(data []float32, s Shape, layout Layout) ([]float32, error) {

	if len(data) != s.Len() {
		return nil, fmt.Errorf("output has %d values, shape %dx%dx%d needs %d",
			len(data), s.Channels, s.Height, s.Width, s.Len())
	}

	if layout == NCHW {
		return data, nil
	}

	out := make([]float32, len(data))
	plane := s.Height * s.Width

	for i := 0; i < plane; i++ {
		for c := 0; c < s.Channels; c++ {
			out[c*plane+i] = data[i*s.Channels+c]
		}
	}

	return out, nil
}

// ImageOutput slices the output of image idx out of a batched buffer
func ImageOutput(buf []float32, idx int, s Shape) ([]float32, error) {

	if idx < 0 {
		return nil, fmt.Errorf("invalid image index %d", idx)
	}

	offset := idx * s.Len()

	if offset+s.Len() > len(buf) {
		return nil, fmt.Errorf("offset %d out of range [%d,%d)", offset, len(buf), offset+s.Len())
	}

	return buf[offset : offset+s.Len()], nil
}

package openpose

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	"gocv.io/x/gocv"
)

// formats accepted by DecodeFile and DecodeBytes
var formats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"bmp":  true,
}

// Frame is a decoded image in BGR channel order with 8 bits per channel.
// The caller owns the Frame and must Close it.
type Frame struct {
	// Name identifies the image, the file path or name given to DecodeBytes
	Name string
	// Format is the encoding the image was decoded from
	Format string
	mat    gocv.Mat
}

// DecodeFile reads and decodes an image file
func DecodeFile(path string) (*Frame, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		return nil, &DecodeError{Source: path, Err: err}
	}

	return DecodeBytes(path, data)
}

// DecodeBytes decodes an encoded JPEG, PNG or BMP image. Empty, truncated or
// otherwise corrupt data returns a *DecodeError.
func DecodeBytes(name string, data []byte) (*Frame, error) {

	if len(data) == 0 {
		return nil, &DecodeError{Source: name, Err: errors.New("no image data")}
	}

	img, format, err := image.Decode(bytes.NewReader(data))

	if err != nil {
		return nil, &DecodeError{Source: name, Err: err}
	}

	if !formats[format] {
		return nil, &DecodeError{Source: name, Err: fmt.Errorf("unsupported format %s", format)}
	}

	f, err := NewFrame(name, img)

	if err != nil {
		return nil, err
	}

	f.Format = format

	return f, nil
}

// NewFrame converts an in memory image to a Frame
func NewFrame(name string, img image.Image) (*Frame, error) {

	b := img.Bounds()

	if b.Empty() {
		return nil, &DecodeError{Source: name, Err: errors.New("image has no pixels")}
	}

	rgba, ok := img.(*image.RGBA)

	if !ok || rgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	src, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)

	if err != nil {
		return nil, &DecodeError{Source: name, Err: fmt.Errorf("error creating mat: %w", err)}
	}

	defer src.Close()

	mat := gocv.NewMat()
	gocv.CvtColor(src, &mat, gocv.ColorRGBAToBGR)

	if mat.Empty() {
		mat.Close()
		return nil, &DecodeError{Source: name, Err: errors.New("color conversion failed")}
	}

	return &Frame{
		Name: name,
		mat:  mat,
	}, nil
}

// NewFrameFromMat copies a BGR gocv.Mat into a Frame
func NewFrameFromMat(name string, m gocv.Mat) (*Frame, error) {

	if m.Empty() {
		return nil, &DecodeError{Source: name, Err: errors.New("image has no pixels")}
	}

	if m.Type() != gocv.MatTypeCV8UC3 {
		return nil, &DecodeError{Source: name,
			Err: fmt.Errorf("expected 8 bit BGR image, got mat type %v", m.Type())}
	}

	return &Frame{
		Name: name,
		mat:  m.Clone(),
	}, nil
}

// Width in pixels
func (f *Frame) Width() int {
	return f.mat.Cols()
}

// Height in pixels
func (f *Frame) Height() int {
	return f.mat.Rows()
}

// Channels is always 3
func (f *Frame) Channels() int {
	return f.mat.Channels()
}

// ChannelOrder is always BGR
func (f *Frame) ChannelOrder() string {
	return "BGR"
}

// Depth is always uint8
func (f *Frame) Depth() string {
	return "uint8"
}

// Mat returns the pixel data. It must not be modified or closed, use Clone
// for a copy to draw on.
func (f *Frame) Mat() gocv.Mat {
	return f.mat
}

// Clone returns a copy of the pixel data owned by the caller
func (f *Frame) Clone() gocv.Mat {
	return f.mat.Clone()
}

// BaseName returns the file name of the frame without directory or
// extension
func (f *Frame) BaseName() string {
	base := filepath.Base(f.Name)
	return base[:len(base)-len(filepath.Ext(base))]
}

// Close frees the pixel data
func (f *Frame) Close() error {
	return f.mat.Close()
}

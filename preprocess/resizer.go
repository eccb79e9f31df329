package preprocess

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Scale holds the letterbox metadata needed to map coordinates between the
// network input and the original image
type Scale struct {
	// X and Y are the horizontal and vertical resize factors applied to the
	// source image, equal up to pixel rounding of the resized size
	X float64
	Y float64
	// XPad and YPad are the letterbox borders added to the left and top
	XPad int
	YPad int
	// SrcWidth and SrcHeight are the original image dimensions
	SrcWidth  int
	SrcHeight int
	// NetWidth and NetHeight are the network input dimensions
	NetWidth  int
	NetHeight int
}

// ToSource maps a point in network input coordinates back to the original
// image
func (s Scale) ToSource(x, y float64) (float64, float64) {
	return (x - float64(s.XPad)) / s.X, (y - float64(s.YPad)) / s.Y
}

// ToNet maps a point in original image coordinates to network input
// coordinates
func (s Scale) ToNet(x, y float64) (float64, float64) {
	return x*s.X + float64(s.XPad), y*s.Y + float64(s.YPad)
}

// Content returns the region of the network input covered by image pixels,
// outside of it is letterbox padding
func (s Scale) Content() image.Rectangle {
	return image.Rect(s.XPad, s.YPad,
		s.XPad+int(float64(s.SrcWidth)*s.X+0.5), s.YPad+int(float64(s.SrcHeight)*s.Y+0.5))
}

// Resizer letterboxes images of a given size into the network input size
type Resizer struct {
	// srcWidth is the width of the source image
	srcWidth int
	// srcHeight is the height of the source image
	srcHeight int
	// destWidth is the width to scale to
	destWidth int
	// destHeight is the height to scale to
	destHeight int
	// tempMat holds the resized image before padding
	tempMat gocv.Mat
	// letterbox parameters used in scaling
	xPad  int
	yPad  int
	scale float64
	// resize dimensions
	resizeW int
	resizeH int
}

// NewResizer returns a resizer used for scaling an image to the needed
// dimensions for the network input
func NewResizer(srcWidth, srcHeight, destWidth, destHeight int) (*Resizer, error) {

	if srcWidth <= 0 || srcHeight <= 0 {
		return nil, fmt.Errorf("invalid source size %dx%d", srcWidth, srcHeight)
	}

	if destWidth <= 0 || destHeight <= 0 {
		return nil, fmt.Errorf("invalid destination size %dx%d", destWidth, destHeight)
	}

	r := &Resizer{
		srcWidth:   srcWidth,
		srcHeight:  srcHeight,
		destWidth:  destWidth,
		destHeight: destHeight,
		tempMat:    gocv.NewMat(),
	}

	r.preCalc()

	return r, nil
}

// Close frees memory allocated during resize process
func (r *Resizer) Close() error {
	return r.tempMat.Close()
}

// preCalc the scaling factors for source and destination sizes
func (r *Resizer) preCalc() {

	r.resizeW = r.destWidth
	r.resizeH = r.destHeight

	scaleW := float64(r.destWidth) / float64(r.srcWidth)
	scaleH := float64(r.destHeight) / float64(r.srcHeight)
	r.scale = scaleH

	if scaleW < scaleH {
		r.scale = scaleW
		r.resizeH = max(1, int(float64(r.srcHeight)*r.scale+0.5))
	} else {
		r.resizeW = max(1, int(float64(r.srcWidth)*r.scale+0.5))
	}

	r.yPad = (r.destHeight - r.resizeH) / 2
	r.xPad = (r.destWidth - r.resizeW) / 2
}

// LetterBoxResize resizes the image to the network input size keeping its
// aspect ratio, padding the borders with the given color
func (r *Resizer) LetterBoxResize(src gocv.Mat, dest *gocv.Mat, color color.RGBA) error {

	if src.Cols() != r.srcWidth || src.Rows() != r.srcHeight {
		return fmt.Errorf("image size %dx%d does not match resizer source %dx%d",
			src.Cols(), src.Rows(), r.srcWidth, r.srcHeight)
	}

	gocv.Resize(src, &r.tempMat, image.Pt(r.resizeW, r.resizeH),
		0, 0, gocv.InterpolationCubic)

	gocv.CopyMakeBorder(r.tempMat, dest, r.yPad, r.destHeight-r.resizeH-r.yPad,
		r.xPad, r.destWidth-r.resizeW-r.xPad, gocv.BorderConstant, color)

	return nil
}

// Scale returns the letterbox metadata
func (r *Resizer) Scale() Scale {
	return Scale{
		X:         float64(r.resizeW) / float64(r.srcWidth),
		Y:         float64(r.resizeH) / float64(r.srcHeight),
		XPad:      r.xPad,
		YPad:      r.yPad,
		SrcWidth:  r.srcWidth,
		SrcHeight: r.srcHeight,
		NetWidth:  r.destWidth,
		NetHeight: r.destHeight,
	}
}

// ScaleFactor returns the aspect preserving scale factor
func (r *Resizer) ScaleFactor() float64 {
	return r.scale
}

// XPad returns the x padding used in letterbox resize
func (r *Resizer) XPad() int {
	return r.xPad
}

// YPad returns the y padding used in letterbox resize
func (r *Resizer) YPad() int {
	return r.yPad
}

package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// LabelAlign places a person label against the left edge of the person's
// region, its middle or its right edge
type LabelAlign int

const (
	AlignLeft LabelAlign = iota
	AlignCenter
	AlignRight
)

// Font is the text style of person labels
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	// Pad is the gap between the text and the sides (X) and top (Y) of the
	// label background
	Pad image.Point
	// Baseline is the gap between the text and the bottom of the label
	Baseline int
	Align    LabelAlign
}

// DefaultFont is small white text on a tag in the person's color
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		Pad:       image.Pt(4, 4),
		Baseline:  6,
		Align:     AlignLeft,
	}
}

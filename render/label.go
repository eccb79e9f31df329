package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// label is a text tag drawn above the region it names
type label struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// placeLabel positions text on top of box according to the font alignment
func placeLabel(box image.Rectangle, text string, clr color.RGBA, font Font,
	lineThickness int) label {

	textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

	var centerX int

	switch font.Align {
	case AlignCenter:
		centerX = (box.Min.X + box.Max.X) / 2

	case AlignRight:
		centerX = box.Max.X - (textSize.X / 2) - font.Pad.X + (lineThickness / 2)

	default:
		centerX = box.Min.X + (textSize.X / 2) + font.Pad.X - (lineThickness / 2)
	}

	return label{
		rect: image.Rect(centerX-textSize.X/2-font.Pad.X,
			box.Min.Y-textSize.Y-font.Pad.Y-font.Baseline,
			centerX+textSize.X/2+font.Pad.X, box.Min.Y),
		clr:     clr,
		text:    text,
		textPos: image.Pt(centerX-textSize.X/2, box.Min.Y-font.Baseline),
	}
}

// drawLabels paints the labels last so they are the top most layer
func drawLabels(img *gocv.Mat, labels []label, font Font) {
	for _, l := range labels {
		gocv.Rectangle(img, l.rect, l.clr, -1)

		gocv.PutTextWithParams(img, l.text, l.textPos, font.Face, font.Scale,
			font.Color, font.Thickness, gocv.LineAA, false)
	}
}

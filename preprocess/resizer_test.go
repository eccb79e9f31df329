package preprocess

import (
	"image"
	"image/color"
	"math"
	"testing"

	"gocv.io/x/gocv"
)

var (
	black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

func TestLetterBoxResize(t *testing.T) {

	tests := []struct {
		srcWidth      int
		srcHeight     int
		resizeWidth   int
		resizeHeight  int
		expectedXPad  int
		expectedYPad  int
		expectedScale float64
	}{
		{1280, 720, 640, 640, 0, 140, 0.50},
		{800, 1000, 640, 640, 64, 0, 0.64},
		{800, 800, 640, 640, 0, 0, 0.8},
		{256, 256, 368, 368, 0, 0, 1.4375},
		{640, 480, 368, 368, 0, 46, 0.575},
	}

	for _, tc := range tests {
		img := gocv.NewMatWithSize(tc.srcHeight, tc.srcWidth, gocv.MatTypeCV8UC3)
		resizedImg := gocv.NewMat()

		resizer, err := NewResizer(tc.srcWidth, tc.srcHeight, tc.resizeWidth, tc.resizeHeight)

		if err != nil {
			t.Fatalf("NewResizer failed: %v", err)
		}

		if err := resizer.LetterBoxResize(img, &resizedImg, black); err != nil {
			t.Fatalf("LetterBoxResize failed: %v", err)
		}

		if resizer.XPad() != tc.expectedXPad || resizer.YPad() != tc.expectedYPad {
			t.Errorf("Test failed for src (%d, %d): Padding values wrong, expected XPad=%d, YPad=%d, got xPad=%d, yPad=%d",
				tc.srcWidth, tc.srcHeight, tc.expectedXPad, tc.expectedYPad, resizer.XPad(), resizer.YPad())
		}

		if math.Abs(resizer.ScaleFactor()-tc.expectedScale) > 1e-9 {
			t.Errorf("Test failed for src (%d, %d): Scalefactor incorrect, expected %f, got %f",
				tc.srcWidth, tc.srcHeight, tc.expectedScale, resizer.ScaleFactor())
		}

		if resizedImg.Cols() != tc.resizeWidth || resizedImg.Rows() != tc.resizeHeight {
			t.Errorf("Test failed for src (%d, %d): output size %dx%d",
				tc.srcWidth, tc.srcHeight, resizedImg.Cols(), resizedImg.Rows())
		}

		img.Close()
		resizedImg.Close()
		resizer.Close()
	}
}

func TestLetterBoxResizeSizeMismatch(t *testing.T) {

	img := gocv.NewMatWithSize(10, 20, gocv.MatTypeCV8UC3)
	defer img.Close()

	dest := gocv.NewMat()
	defer dest.Close()

	resizer, err := NewResizer(30, 30, 16, 16)

	if err != nil {
		t.Fatalf("NewResizer failed: %v", err)
	}

	defer resizer.Close()

	if err := resizer.LetterBoxResize(img, &dest, black); err == nil {
		t.Errorf("expected error for mismatched source size")
	}

	if _, err := NewResizer(0, 10, 16, 16); err == nil {
		t.Errorf("expected error for zero source width")
	}
}

// TestScaleRoundTrip maps points from the source image into network space
// and back, the result must land within a sub-pixel tolerance
func TestScaleRoundTrip(t *testing.T) {

	sizes := []image.Point{
		{1280, 720}, {720, 1280}, {256, 256}, {333, 197}, {1, 500},
	}

	for _, src := range sizes {
		resizer, err := NewResizer(src.X, src.Y, 368, 368)

		if err != nil {
			t.Fatalf("NewResizer failed: %v", err)
		}

		s := resizer.Scale()
		resizer.Close()

		for _, p := range [][2]float64{
			{0, 0}, {float64(src.X) - 1, float64(src.Y) - 1},
			{float64(src.X) / 3, float64(src.Y) / 7}, {0.25, 0.75},
		} {
			nx, ny := s.ToNet(p[0], p[1])
			ox, oy := s.ToSource(nx, ny)

			if math.Abs(ox-p[0]) > 1e-6 || math.Abs(oy-p[1]) > 1e-6 {
				t.Errorf("src %v point %v round trip gave (%f, %f)", src, p, ox, oy)
			}

			if nx < 0 || ny < 0 || nx > 368 || ny > 368 {
				t.Errorf("src %v point %v mapped outside network input (%f, %f)", src, p, nx, ny)
			}
		}
	}
}

func TestScaleContent(t *testing.T) {

	resizer, err := NewResizer(640, 480, 368, 368)

	if err != nil {
		t.Fatalf("NewResizer failed: %v", err)
	}

	defer resizer.Close()

	got := resizer.Scale().Content()
	want := image.Rect(0, 46, 368, 46+276)

	if got != want {
		t.Errorf("expected content %v, got %v", want, got)
	}
}

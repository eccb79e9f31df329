package openpose

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func testImage(width, height int) *image.RGBA {

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}

	return img
}

func TestDecodeBytes(t *testing.T) {

	img := testImage(40, 30)

	encoders := map[string]func(*bytes.Buffer) error{
		"png":  func(b *bytes.Buffer) error { return png.Encode(b, img) },
		"jpeg": func(b *bytes.Buffer) error { return jpeg.Encode(b, img, &jpeg.Options{Quality: 95}) },
		"bmp":  func(b *bytes.Buffer) error { return bmp.Encode(b, img) },
	}

	for format, encode := range encoders {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, encode(&buf))

			f, err := DecodeBytes("red."+format, buf.Bytes())
			require.NoError(t, err)
			defer f.Close()

			assert.Equal(t, format, f.Format)
			assert.Equal(t, 40, f.Width())
			assert.Equal(t, 30, f.Height())
			assert.Equal(t, 3, f.Channels())
			assert.Equal(t, "BGR", f.ChannelOrder())
			assert.Equal(t, "uint8", f.Depth())

			// red in BGR order
			mat := f.Mat()
			assert.InDelta(t, 0, mat.GetUCharAt(10, 10*3+0), 4)
			assert.InDelta(t, 0, mat.GetUCharAt(10, 10*3+1), 4)
			assert.InDelta(t, 255, mat.GetUCharAt(10, 10*3+2), 4)
		})
	}
}

func TestDecodeBytesMalformed(t *testing.T) {

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(40, 30)))
	valid := buf.Bytes()

	var gifBuf bytes.Buffer
	require.NoError(t, gif.Encode(&gifBuf, testImage(8, 8), nil))

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("this is not an image at all")},
		{"truncated", valid[:len(valid)/2]},
		{"corrupt header", append([]byte{0x89, 'P', 'N', 'X'}, valid[4:]...)},
		{"unsupported format", gifBuf.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeBytes(tt.name, tt.data)

			assert.Nil(t, f)

			var derr *DecodeError
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tt.name, derr.Source)
		})
	}
}

func TestDecodeFile(t *testing.T) {

	dir := t.TempDir()
	path := filepath.Join(dir, "person.png")

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(16, 16)))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	f, err := DecodeFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, path, f.Name)
	assert.Equal(t, "person", f.BaseName())

	_, err = DecodeFile(filepath.Join(dir, "missing.png"))

	var derr *DecodeError
	assert.ErrorAs(t, err, &derr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewFrameSubImage(t *testing.T) {

	img := testImage(20, 20)
	img.Set(5, 6, color.RGBA{G: 255, A: 255})

	// a sub image has a non zero origin and a wider stride
	sub := img.SubImage(image.Rect(5, 6, 15, 12))

	f, err := NewFrame("sub", sub)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, 10, f.Width())
	assert.Equal(t, 6, f.Height())
	mat := f.Mat()
	assert.Equal(t, uint8(255), mat.GetUCharAt(0, 1))

	_, err = NewFrame("empty", image.NewRGBA(image.Rect(0, 0, 0, 0)))

	var derr *DecodeError
	assert.ErrorAs(t, err, &derr)
}

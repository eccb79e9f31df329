package rknn

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Batch concatenates letterboxed images into a single NHWC Mat for models
// compiled with a batch dimension
type Batch struct {
	mat gocv.Mat
	// size of the batch
	size     int
	width    int
	height   int
	channels int
	// matCnt is how many Mats have been added with Add()
	matCnt int
	// imgSize is the number of bytes of one image
	imgSize int
}

// NewBatch creates an empty batch of 8 bit images
func NewBatch(batchSize, height, width, channels int) *Batch {

	shape := []int{batchSize, height, width, channels}

	return &Batch{
		size:     batchSize,
		height:   height,
		width:    width,
		channels: channels,
		mat:      gocv.NewMatWithSizes(shape, gocv.MatTypeCV8U),
		imgSize:  height * width * channels,
	}
}

// Add a Mat to the next free slot in the batch
func (b *Batch) Add(img gocv.Mat) error {

	if b.matCnt >= b.size {
		return fmt.Errorf("batch full")
	}

	if err := b.addAt(b.matCnt, img); err != nil {
		return err
	}

	b.matCnt++
	return nil
}

func (b *Batch) addAt(idx int, img gocv.Mat) error {

	if img.Rows() != b.height || img.Cols() != b.width ||
		img.Channels() != b.channels {
		return fmt.Errorf("image %dx%dx%d does not match batch shape %dx%dx%d",
			img.Cols(), img.Rows(), img.Channels(), b.width, b.height, b.channels)
	}

	if !img.IsContinuous() {
		img = img.Clone()
		defer img.Close()
	}

	dstAll, err := b.mat.DataPtrUint8()

	if err != nil {
		return fmt.Errorf("error accessing uint8 batch memory: %w", err)
	}

	src, err := img.DataPtrUint8()

	if err != nil {
		return fmt.Errorf("error getting uint8 data from image: %w", err)
	}

	copy(dstAll[idx*b.imgSize:], src)

	return nil
}

// Len returns the number of images added
func (b *Batch) Len() int {
	return b.matCnt
}

// Size returns the batch capacity
func (b *Batch) Size() int {
	return b.size
}

// Mat returns the concatenated mat
func (b *Batch) Mat() gocv.Mat {
	return b.mat
}

// Clear the batch so it can be reused, the unused slots of a partial batch
// keep stale pixels whose outputs are ignored
func (b *Batch) Clear() {
	b.matCnt = 0
}

// Close the batch and free allocated memory
func (b *Batch) Close() error {
	return b.mat.Close()
}

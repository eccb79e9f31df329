package rknn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/x448/float16"
)

func TestFloat16ToFloat32(t *testing.T) {

	vals := []float32{0, 1, -1, 0.5, 0.0009765625, 65504, -2.25}
	buf := make([]uint16, len(vals))

	for i, v := range vals {
		buf[i] = float16.Fromfloat32(v).Bits()
	}

	assert.Equal(t, vals, Float16ToFloat32(buf))

	nan := Float16ToFloat32([]uint16{0x7e00})
	assert.True(t, math.IsNaN(float64(nan[0])))

	assert.Empty(t, Float16ToFloat32(nil))
}

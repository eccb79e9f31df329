package pose

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapsIndexing(t *testing.T) {

	m := NewMaps(3, 4, 5)
	require.NoError(t, m.Validate())

	m.Set(2, 4, 3, 0.75)
	m.Set(1, 0, 1, 0.25)

	assert.Equal(t, float32(0.75), m.At(2, 4, 3))
	assert.Equal(t, float32(0.75), m.Plane(2)[3*5+4])
	assert.Equal(t, float32(0.25), m.Plane(1)[5])

	v, x, y := m.Max(2)
	assert.Equal(t, float32(0.75), v)
	assert.Equal(t, 4, x)
	assert.Equal(t, 3, y)
}

func TestMapsValidate(t *testing.T) {

	m := Maps{Channels: 2, Height: 2, Width: 2, Data: make([]float32, 7)}
	assert.Error(t, m.Validate())

	m = Maps{Channels: 0, Height: 2, Width: 2}
	assert.Error(t, m.Validate())
}

func TestMapsCloneAndFinite(t *testing.T) {

	m := NewMaps(1, 2, 2)
	c := m.Clone()
	c.Set(0, 1, 1, 1)

	assert.Equal(t, float32(0), m.At(0, 1, 1))
	assert.True(t, m.Finite())

	m.Set(0, 0, 0, float32(math.NaN()))
	assert.False(t, m.Finite())
}

func TestCheckModel(t *testing.T) {

	m, err := LookupModel(MPI)
	require.NoError(t, err)

	hm := &HeatmapSet{NewMaps(m.NumHeatmaps(), 8, 8)}
	paf := &AffinityFieldSet{NewMaps(m.NumPAFs(), 8, 8)}
	assert.NoError(t, CheckModel(m, hm, paf))
	assert.Equal(t, m.NumParts(), hm.NumParts())

	short := &AffinityFieldSet{NewMaps(m.NumPAFs()-2, 8, 8)}
	assert.Error(t, CheckModel(m, hm, short))

	small := &AffinityFieldSet{NewMaps(m.NumPAFs(), 4, 8)}
	assert.Error(t, CheckModel(m, hm, small))

	assert.Error(t, CheckModel(m, nil, paf))
}

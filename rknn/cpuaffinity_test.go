//go:build linux

package rknn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPUCoreMask(t *testing.T) {
	assert.Equal(t, RK3588FastCores, CPUCoreMask([]int{4, 5, 6, 7}))
	assert.Equal(t, RK3582AllCores, CPUCoreMask([]int{0, 1, 2, 3, 4, 5}))
	assert.Equal(t, uintptr(0), CPUCoreMask(nil))
}

func TestPlatformCPUMask(t *testing.T) {

	mask, err := PlatformCPUMask("RK3588", FastCores)
	require.NoError(t, err)
	assert.Equal(t, RK3588FastCores, mask)

	mask, err = PlatformCPUMask("rk3566", FastCores)
	require.NoError(t, err)
	assert.Equal(t, RK356xAllCores, mask)

	_, err = PlatformCPUMask("rk1234", AllCores)
	assert.Error(t, err)

	_, err = PlatformCPUMask("rk3588", CoreType(7))
	assert.Error(t, err)
}

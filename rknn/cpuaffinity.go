//go:build linux

package rknn

import (
	"fmt"
	"strings"
	"syscall"
	"unsafe"
)

// CPU affinity masks of the big and little cores on each platform
const (
	RK3588FastCores = uintptr(0b11110000)
	RK3588SlowCores = uintptr(0b00001111)
	RK3588AllCores  = uintptr(0b11111111)

	RK3582FastCores = uintptr(0b00110000)
	RK3582SlowCores = uintptr(0b00001111)
	RK3582AllCores  = uintptr(0b00111111)

	RK3576FastCores = uintptr(0b11110000)
	RK3576SlowCores = uintptr(0b00001111)
	RK3576AllCores  = uintptr(0b11111111)

	// the rk356x parts have four identical cores
	RK356xAllCores = uintptr(0b00001111)
)

// CoreType specifies the CPU core type
type CoreType int

const (
	FastCores CoreType = 0
	SlowCores CoreType = 1
	AllCores  CoreType = 2
)

var coreMaskList = map[string]map[CoreType]uintptr{
	"rk3562": {SlowCores: RK356xAllCores, FastCores: RK356xAllCores, AllCores: RK356xAllCores},
	"rk3566": {SlowCores: RK356xAllCores, FastCores: RK356xAllCores, AllCores: RK356xAllCores},
	"rk3568": {SlowCores: RK356xAllCores, FastCores: RK356xAllCores, AllCores: RK356xAllCores},
	"rk3576": {SlowCores: RK3576SlowCores, FastCores: RK3576FastCores, AllCores: RK3576AllCores},
	"rk3582": {SlowCores: RK3582SlowCores, FastCores: RK3582FastCores, AllCores: RK3582AllCores},
	"rk3588": {SlowCores: RK3588SlowCores, FastCores: RK3588FastCores, AllCores: RK3588AllCores},
}

// SetCPUAffinity pins the process to the cores in mask
func SetCPUAffinity(mask uintptr) error {

	_, _, err := syscall.RawSyscall(syscall.SYS_SCHED_SETAFFINITY, 0,
		unsafe.Sizeof(mask), uintptr(unsafe.Pointer(&mask)))

	if err != 0 {
		return fmt.Errorf("failed to set CPU affinity: %w", err)
	}

	return nil
}

// GetCPUAffinity returns the mask of cores the process may run on
func GetCPUAffinity() (uintptr, error) {

	var mask uintptr

	_, _, err := syscall.RawSyscall(syscall.SYS_SCHED_GETAFFINITY, 0,
		unsafe.Sizeof(mask), uintptr(unsafe.Pointer(&mask)))

	if err != 0 {
		return 0, fmt.Errorf("failed to get CPU affinity: %w", err)
	}

	return mask, nil
}

// CPUCoreMask builds a mask from core numbers, eg: []int{4,5,6,7}
func CPUCoreMask(cores []int) uintptr {

	var mask uintptr

	for _, core := range cores {
		mask |= 1 << core
	}

	return mask
}

// PlatformCPUMask returns the affinity mask of a core type on a platform
func PlatformCPUMask(platform string, ct CoreType) (uintptr, error) {

	cores, ok := coreMaskList[strings.ToLower(strings.TrimSpace(platform))]

	if !ok {
		return 0, fmt.Errorf("unknown platform: %s", platform)
	}

	mask, ok := cores[ct]

	if !ok {
		return 0, fmt.Errorf("unknown core type %d", ct)
	}

	return mask, nil
}

// SetCPUAffinityByPlatform pins the process to the given core type of the
// platform, so pre and post processing runs on the fast cores
func SetCPUAffinityByPlatform(platform string, ct CoreType) error {

	mask, err := PlatformCPUMask(platform, ct)

	if err != nil {
		return err
	}

	return SetCPUAffinity(mask)
}

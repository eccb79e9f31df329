package rknn

import (
	"fmt"
	"strings"
)

// CoreMask selects which NPU cores a runtime executes on, the values match
// rknn_core_mask in rknn_api.h
type CoreMask int

// The rk3588 has three NPU cores, auto picks an idle core whilst the others
// pin the model to a specific core or combination of cores
const (
	NPUCoreAuto    CoreMask = 0
	NPUCore0       CoreMask = 1
	NPUCore1       CoreMask = 2
	NPUCore2       CoreMask = 4
	NPUCore01      CoreMask = 3
	NPUCore012     CoreMask = 7
	NPUSkipSetCore CoreMask = 9999
)

// String returns a readable description of the mask
func (c CoreMask) String() string {
	switch c {
	case NPUCoreAuto:
		return "auto"
	case NPUCore0:
		return "core0"
	case NPUCore1:
		return "core1"
	case NPUCore2:
		return "core2"
	case NPUCore01:
		return "core0_1"
	case NPUCore012:
		return "core0_1_2"
	case NPUSkipSetCore:
		return "skip"
	default:
		return fmt.Sprintf("mask(%d)", int(c))
	}
}

// A list of Rockchip platforms and the NPU cores each has, runtimes in a
// pool are spread across them
var (
	RK3588 = []CoreMask{NPUCore0, NPUCore1, NPUCore2}
	RK3582 = []CoreMask{NPUCore0, NPUCore1, NPUCore2}
	RK3576 = []CoreMask{NPUCore0, NPUCore1}
	RK3568 = []CoreMask{NPUSkipSetCore}
	RK3566 = []CoreMask{NPUSkipSetCore}
	RK3562 = []CoreMask{NPUSkipSetCore}
)

var platformCores = map[string][]CoreMask{
	"rk3588": RK3588,
	"rk3582": RK3582,
	"rk3576": RK3576,
	"rk3568": RK3568,
	"rk3566": RK3566,
	"rk3562": RK3562,
}

// PlatformCores returns the NPU cores of a platform, given as
// rk3562|rk3566|rk3568|rk3576|rk3582|rk3588
func PlatformCores(platform string) ([]CoreMask, error) {

	cores, ok := platformCores[strings.ToLower(strings.TrimSpace(platform))]

	if !ok {
		return nil, fmt.Errorf("unknown platform: %s", platform)
	}

	return cores, nil
}

// WorkerCore returns the core mask a pool worker is pinned to, workers are
// assigned to the platform's cores round robin
func WorkerCore(platform string, worker int) (CoreMask, error) {

	cores, err := PlatformCores(platform)

	if err != nil {
		return NPUSkipSetCore, err
	}

	if worker < 0 {
		return NPUSkipSetCore, fmt.Errorf("invalid worker index %d", worker)
	}

	return cores[worker%len(cores)], nil
}

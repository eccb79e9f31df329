/*
Package rknn runs the pose network on the Rockchip NPU through the RKNN
Toolkit2 C API.

The cgo runtime is only compiled with the rknn build tag, as it needs
librknnrt and rknn_api.h from the board support package:

	go build -tags rknn ./...

The NPU core masks, CPU affinity helpers, batching and output conversion
are pure Go and available on every platform.
*/
package rknn

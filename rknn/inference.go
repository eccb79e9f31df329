//go:build rknn

package rknn

/*
#include "rknn_api.h"
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"

	"gocv.io/x/gocv"
)

// Inference runs the model on a NHWC uint8 input, either a single image or
// a Batch Mat
func (r *Runtime) Inference(mat gocv.Mat) (*Outputs, error) {

	if !mat.IsContinuous() {
		mat = mat.Clone()
		defer mat.Close()
	}

	data, err := mat.DataPtrUint8()

	if err != nil {
		return nil, fmt.Errorf("error getting data pointer to Mat: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	in := C.rknn_input{
		index:        0,
		buf:          unsafe.Pointer(&data[0]),
		size:         C.uint32_t(len(data)),
		pass_through: 0,
		_type:        C.RKNN_TENSOR_UINT8,
		fmt:          C.RKNN_TENSOR_NHWC,
	}

	if ret := C.rknn_inputs_set(r.ctx, 1, &in); ret != C.RKNN_SUCC {
		return nil, fmt.Errorf("C.rknn_inputs_set failed with code %d, error: %s",
			int(ret), ErrorCodes(ret).String())
	}

	if ret := C.rknn_run(r.ctx, nil); ret < 0 {
		return nil, fmt.Errorf("C.rknn_run failed with code %d, error: %s",
			int(ret), ErrorCodes(ret).String())
	}

	return r.getOutputs()
}

// Outputs holds the C output buffers of one run, they must be released with
// Free
type Outputs struct {
	cOutputs []C.rknn_output
	rt       *Runtime
	freed    bool
	sync.Mutex
}

func (r *Runtime) getOutputs() (*Outputs, error) {

	n := r.ioNum.NumberOutput

	outputs := &Outputs{
		cOutputs: make([]C.rknn_output, n),
		rt:       r,
	}

	for idx := range outputs.cOutputs {
		outputs.cOutputs[idx].index = C.uint32_t(idx)
		// fp16 outputs are converted in Go with the lookup table, everything
		// else is dequantized by the runtime
		if r.outputAttrs[idx].Type != TensorFloat16 {
			outputs.cOutputs[idx].want_float = 1
		}
	}

	ret := C.rknn_outputs_get(r.ctx, C.uint32_t(n),
		(*C.rknn_output)(unsafe.Pointer(&outputs.cOutputs[0])), nil)

	if ret < 0 {
		return nil, fmt.Errorf("C.rknn_outputs_get failed with code %d, error: %s",
			int(ret), ErrorCodes(ret).String())
	}

	return outputs, nil
}

// Float32 returns output idx as float32 values, copied out of C memory
func (o *Outputs) Float32(idx int) ([]float32, error) {

	o.Lock()
	defer o.Unlock()

	if o.freed {
		return nil, fmt.Errorf("outputs already freed")
	}

	if idx < 0 || idx >= len(o.cOutputs) {
		return nil, fmt.Errorf("output %d out of range [0-%d)", idx, len(o.cOutputs))
	}

	c := o.cOutputs[idx]

	if c.want_float == 0 {
		buf := unsafe.Slice((*uint16)(c.buf), int(c.size)/2)
		return Float16ToFloat32(buf), nil
	}

	buf := unsafe.Slice((*float32)(c.buf), int(c.size)/4)

	return append([]float32(nil), buf...), nil
}

// Free releases the C output buffers
func (o *Outputs) Free() error {

	o.Lock()
	defer o.Unlock()

	if o.freed {
		return nil
	}

	o.freed = true

	ret := C.rknn_outputs_release(o.rt.ctx, C.uint32_t(len(o.cOutputs)),
		(*C.rknn_output)(unsafe.Pointer(&o.cOutputs[0])))

	if ret != 0 {
		return fmt.Errorf("C.rknn_outputs_release failed with code %d, error: %s",
			ret, ErrorCodes(ret).String())
	}

	return nil
}

//go:build rknn

package openpose

import (
	"fmt"
	"strings"

	"github.com/swdee/go-openpose/pose"
	"github.com/swdee/go-openpose/preprocess"
	"github.com/swdee/go-openpose/rknn"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func init() {
	RegisterBackend("rknn", BackendDriver{
		Files: func(m *pose.BodyModel) []string {
			return []string{m.Files.RKNN}
		},
		Open: openRKNN,
	})
}

// rknnBackend runs an RKNN compiled pose network on one NPU core
type rknnBackend struct {
	rt    *rknn.Runtime
	model *pose.BodyModel
	batch *rknn.Batch
	input rknn.Shape
	log   *zap.Logger
}

func openRKNN(opts BackendOptions) (Backend, error) {

	if len(opts.Files) != 1 {
		return nil, fmt.Errorf("rknn backend needs one model file, got %v", opts.Files)
	}

	core, err := rknn.WorkerCore(opts.Platform, opts.Worker)

	if err != nil {
		return nil, err
	}

	rt, err := rknn.NewRuntime(opts.Files[0], core)

	if err != nil {
		return nil, err
	}

	batchSize, input, err := rt.InputShape()

	if err != nil {
		rt.Close()
		return nil, err
	}

	if input.Width != opts.NetResolution.Width || input.Height != opts.NetResolution.Height {
		rt.Close()
		return nil, fmt.Errorf("rknn model input is %dx%d, net_resolution is %s",
			input.Width, input.Height, opts.NetResolution)
	}

	ver, err := rt.SDKVersion()

	if err != nil {
		rt.Close()
		return nil, err
	}

	opts.Logger.Debug("rknn runtime loaded",
		zap.String("file", opts.Files[0]),
		zap.Stringer("core", core),
		zap.Int("batch", batchSize),
		zap.Int("worker", opts.Worker),
		zap.String("driver", ver.DriverVersion),
		zap.String("api", ver.APIVersion),
	)

	if opts.Worker == 0 && opts.Logger.Core().Enabled(zap.DebugLevel) {
		var sb strings.Builder

		if err := rt.Query(&sb); err == nil {
			opts.Logger.Debug("rknn model tensors", zap.String("query", sb.String()))
		}
	}

	return &rknnBackend{
		rt:    rt,
		model: opts.Model,
		batch: rknn.NewBatch(batchSize, input.Height, input.Width, input.Channels),
		input: input,
		log:   opts.Logger,
	}, nil
}

// Forward runs the tensors through the NPU in chunks of the compiled batch
// size
func (b *rknnBackend) Forward(tensors []*preprocess.Tensor) ([]NetOutput, error) {

	out := make([]NetOutput, 0, len(tensors))

	for start := 0; start < len(tensors); start += b.batch.Size() {

		end := min(start+b.batch.Size(), len(tensors))

		res, err := b.forwardBatch(tensors[start:end])

		if err != nil {
			return nil, err
		}

		out = append(out, res...)
	}

	return out, nil
}

func (b *rknnBackend) forwardBatch(tensors []*preprocess.Tensor) ([]NetOutput, error) {

	b.batch.Clear()

	for _, t := range tensors {
		if err := b.batch.Add(t.Mat); err != nil {
			return nil, err
		}
	}

	outputs, err := b.rt.Inference(b.batch.Mat())

	if err != nil {
		return nil, err
	}

	defer outputs.Free()

	attr := b.rt.OutputAttrs()[0]

	_, shape, err := rknn.OutputShape(attr.Dims[:attr.NDims], attr.Layout())

	if err != nil {
		return nil, err
	}

	buf, err := outputs.Float32(0)

	if err != nil {
		return nil, err
	}

	res := make([]NetOutput, len(tensors))

	for i := range tensors {

		data, err := rknn.ImageOutput(buf, i, shape)

		if err != nil {
			return nil, err
		}

		data, err = rknn.ToNCHW(data, shape, attr.Layout())

		if err != nil {
			return nil, err
		}

		res[i], err = splitOutput(b.model, data, shape.Channels, shape.Height, shape.Width)

		if err != nil {
			return nil, err
		}
	}

	return res, nil
}

func (b *rknnBackend) Close() error {
	return multierr.Combine(b.batch.Close(), b.rt.Close())
}

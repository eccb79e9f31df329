package openpose

import (
	"fmt"
	"image"
	"strings"

	"github.com/swdee/go-openpose/pose"
	"github.com/swdee/go-openpose/preprocess"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

func init() {
	RegisterBackend("opencv", BackendDriver{
		Files: func(m *pose.BodyModel) []string {
			return []string{m.Files.Prototxt, m.Files.Caffemodel}
		},
		Open: openOpenCV,
	})
}

// opencvBackend runs the Caffe pose network with the OpenCV DNN module
type opencvBackend struct {
	net   gocv.Net
	model *pose.BodyModel
	size  image.Point
	log   *zap.Logger
}

// netTarget maps a target name to the OpenCV DNN backend and target
func netTarget(target string) (gocv.NetBackendType, gocv.NetTargetType, error) {

	switch strings.ToLower(target) {
	case TargetCPU:
		return gocv.NetBackendDefault, gocv.NetTargetCPU, nil
	case TargetCUDA:
		return gocv.NetBackendCUDA, gocv.NetTargetCUDA, nil
	case TargetCUDAFP16:
		return gocv.NetBackendCUDA, gocv.NetTargetCUDAFP16, nil
	case TargetOpenCL:
		return gocv.NetBackendOpenCV, gocv.NetTargetFP32, nil
	case TargetOpenCLFP16:
		return gocv.NetBackendOpenCV, gocv.NetTargetFP16, nil
	case TargetVulkan:
		return gocv.NetBackendVKCOM, gocv.NetTargetVulkan, nil
	}

	return 0, 0, fmt.Errorf("unknown target %q", target)
}

func openOpenCV(opts BackendOptions) (Backend, error) {

	if len(opts.Files) != 2 {
		return nil, fmt.Errorf("opencv backend needs prototxt and caffemodel files, got %v", opts.Files)
	}

	backend, target, err := netTarget(opts.Target)

	if err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromCaffe(opts.Files[0], opts.Files[1])

	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("error reading network from %s and %s", opts.Files[0], opts.Files[1])
	}

	net.SetPreferableBackend(backend)
	net.SetPreferableTarget(target)

	opts.Logger.Debug("Opened opencv network",
		zap.Int("worker", opts.Worker),
		zap.String("target", opts.Target),
		zap.String("prototxt", opts.Files[0]),
	)

	return &opencvBackend{
		net:   net,
		model: opts.Model,
		size:  image.Pt(opts.NetResolution.Width, opts.NetResolution.Height),
		log:   opts.Logger,
	}, nil
}

// Forward packs the tensors into one NCHW blob normalized to x/256-0.5 and
// runs the network
func (b *opencvBackend) Forward(tensors []*preprocess.Tensor) ([]NetOutput, error) {

	if len(tensors) == 0 {
		return nil, nil
	}

	imgs := make([]gocv.Mat, len(tensors))

	for i, t := range tensors {
		if t.Size() != b.size {
			return nil, fmt.Errorf("tensor %d has size %v, network expects %v", i, t.Size(), b.size)
		}

		imgs[i] = t.Mat
	}

	blob := gocv.NewMat()
	defer blob.Close()

	mean := preprocess.NormMean / preprocess.NormScale

	gocv.BlobFromImages(imgs, &blob, preprocess.NormScale, b.size,
		gocv.NewScalar(mean, mean, mean, 0), false, false, gocv.MatTypeCV32F)

	b.net.SetInput(blob, "")

	out := b.net.Forward("")
	defer out.Close()

	if out.Empty() {
		return nil, fmt.Errorf("network returned no output")
	}

	dims := out.Size()

	if len(dims) != 4 || dims[0] != len(tensors) {
		return nil, fmt.Errorf("unexpected network output shape %v for batch of %d", dims, len(tensors))
	}

	data, err := out.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error reading network output: %w", err)
	}

	channels, height, width := dims[1], dims[2], dims[3]
	per := channels * height * width
	res := make([]NetOutput, len(tensors))

	for i := range tensors {
		res[i], err = splitOutput(b.model, data[i*per:(i+1)*per], channels, height, width)

		if err != nil {
			return nil, err
		}
	}

	return res, nil
}

// Close frees the network
func (b *opencvBackend) Close() error {
	return b.net.Close()
}

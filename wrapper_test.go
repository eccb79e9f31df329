package openpose

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-openpose/pose"
	"github.com/swdee/go-openpose/pose/posetest"
	"go.uber.org/zap/zaptest"
)

// fakeConfig returns a configuration for the fake backend with its weights
// file present in a temporary model folder
func fakeConfig(t *testing.T) Config {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "fake"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fake", "COCO.bin"), []byte("weights"), 0o644))

	cfg := DefaultConfig()
	cfg.ModelFolder = dir
	cfg.Backend = "fake"

	return cfg
}

func startWrapper(t *testing.T, cfg Config, opts ...Option) *Wrapper {
	t.Helper()

	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	w := NewWrapper(opts...)

	require.NoError(t, w.Configure(cfg))
	require.NoError(t, w.Start(context.Background()))

	t.Cleanup(func() {
		w.Close()
	})

	return w
}

func uniformFrame(t *testing.T, name string, width, height int, c color.RGBA) *Frame {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}

	f, err := NewFrame(name, img)
	require.NoError(t, err)

	t.Cleanup(func() {
		f.Close()
	})

	return f
}

func cocoModel(t *testing.T) *pose.BodyModel {
	m, err := pose.LookupModel(pose.COCO)
	require.NoError(t, err)
	return m
}

func TestWrapperLifecycle(t *testing.T) {

	resetFake(t)

	w := NewWrapper()
	assert.Equal(t, StateInit, w.State())
	assert.NotEmpty(t, w.ID())

	f := uniformFrame(t, "blank", 64, 64, color.RGBA{A: 255})

	_, err := w.Process(context.Background(), f)
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, w.Configure(fakeConfig(t)))
	assert.Equal(t, StateConfigured, w.State())

	_, err = w.Process(context.Background(), f)
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, w.Start(context.Background()))
	assert.Equal(t, StateReady, w.State())
	assert.Equal(t, int32(1), fake.opened.Load())

	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyStarted)
	assert.ErrorIs(t, w.Configure(fakeConfig(t)), ErrAlreadyStarted)

	_, err = w.Process(context.Background(), f)
	require.NoError(t, err)

	require.NoError(t, w.Close())
	assert.Equal(t, StateShutdown, w.State())
	assert.Equal(t, int32(1), fake.closed.Load())

	// closing again is a no-op
	require.NoError(t, w.Close())
	assert.Equal(t, int32(1), fake.closed.Load())

	_, err = w.Process(context.Background(), f)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, w.Start(context.Background()), ErrClosed)
	assert.ErrorIs(t, w.Configure(fakeConfig(t)), ErrClosed)
}

func TestWrapperConfigureInvalid(t *testing.T) {

	w := NewWrapper()

	cfg := DefaultConfig()
	cfg.NumWorkers = 0

	err := w.Configure(cfg)

	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "num_workers", cerr.Key)
	assert.Equal(t, StateInit, w.State())
}

func TestWrapperStartMissingWeights(t *testing.T) {

	resetFake(t)

	cfg := fakeConfig(t)
	cfg.ModelFolder = t.TempDir()

	w := NewWrapper()
	require.NoError(t, w.Configure(cfg))

	err := w.Start(context.Background())

	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "model_folder", cerr.Key)
	assert.Equal(t, StateConfigured, w.State())
}

func TestWrapperStartLoadFailure(t *testing.T) {

	resetFake(t)
	fake.openErr = errFakeOpen

	reg := prometheus.NewRegistry()
	w := NewWrapper(WithRegisterer(reg))
	require.NoError(t, w.Configure(fakeConfig(t)))

	err := w.Start(context.Background())

	var ierr *InferenceError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "load", ierr.Op)
	assert.ErrorIs(t, err, errFakeOpen)

	// a failed start leaves no metrics registered so it can be retried
	fake.openErr = nil
	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Close())
}

func TestWrapperProcessBlank(t *testing.T) {

	resetFake(t)
	w := startWrapper(t, fakeConfig(t))

	d, err := w.Process(context.Background(), uniformFrame(t, "blank", 640, 480, color.RGBA{A: 255}))
	require.NoError(t, err)

	assert.Equal(t, "blank", d.Name)
	assert.Equal(t, 0, d.NumPeople())
	assert.NotNil(t, d.Skeletons)
	assert.Empty(t, d.Keypoints())

	// the heatmap set always carries every part of the body model
	assert.Equal(t, 18, d.Heatmaps.NumParts())
	assert.Equal(t, 368, d.Heatmaps.Width)
	assert.Equal(t, 368, d.Heatmaps.Height)
	assert.Equal(t, 38, d.AffinityFields.Channels)
	assert.Len(t, d.InputNetData, 3*368*368)

	assert.Equal(t, 640, d.Scale.SrcWidth)
	assert.Equal(t, 480, d.Scale.SrcHeight)
	assert.InDelta(t, 0.575, d.Scale.X, 1e-9)
}

func TestWrapperProcessSinglePerson(t *testing.T) {

	resetFake(t)

	m := cocoModel(t)
	truth := posetest.Standing(m, 128, 20, 220)
	fake.scene = sceneOf(truth)

	cfg := fakeConfig(t)
	cfg.PartCandidates = true

	w := startWrapper(t, cfg)

	d, err := w.Process(context.Background(), uniformFrame(t, "person", 256, 256,
		color.RGBA{R: 90, G: 120, B: 150, A: 255}))
	require.NoError(t, err)

	require.Equal(t, 1, d.NumPeople())
	sk := d.Skeletons[0]

	assert.Equal(t, 18, sk.NumParts)
	assert.Same(t, m, d.Model)

	for _, name := range []string{"Nose", "Neck", "RShoulder", "LShoulder", "RHip", "LHip"} {
		part, ok := m.PartIndex(name)
		require.True(t, ok)

		kp := sk.Part(part)
		assert.Greater(t, kp.Score, float32(0.05), name)
		assert.InDelta(t, truth[part].X, float64(kp.X), 3, name)
		assert.InDelta(t, truth[part].Y, float64(kp.Y), 3, name)
	}

	// candidates are reported in source image coordinates
	require.Len(t, d.PartCandidates, 18)
	require.Len(t, d.PartCandidates[1], 1)
	assert.InDelta(t, truth[1].X, float64(d.PartCandidates[1][0].X), 3)

	assert.Equal(t, []float32{sk.Score}, d.Scores())
	assert.Greater(t, d.Elapsed, time.Duration(0))
}

func TestWrapperHeatmapsOnly(t *testing.T) {

	resetFake(t)
	fake.scene = sceneOf(posetest.Standing(cocoModel(t), 128, 20, 220))

	cfg := fakeConfig(t)
	cfg.Body = BodyHeatmapsOnly
	cfg.HeatmapsAddParts = true
	cfg.HeatmapsAddBkg = true
	cfg.HeatmapsAddPAFs = true

	w := startWrapper(t, cfg)

	d, err := w.Process(context.Background(), uniformFrame(t, "person", 256, 256, color.RGBA{A: 255}))
	require.NoError(t, err)

	assert.Nil(t, d.Skeletons)
	assert.Equal(t, 57, d.PoseHeatMaps.Channels)

	neck, _, _ := d.PoseHeatMaps.Max(1)
	assert.Greater(t, neck, float32(0.5))

	for _, v := range d.PoseHeatMaps.Data {
		require.GreaterOrEqual(t, v, float32(0))
		require.LessOrEqual(t, v, float32(1))
	}
}

func TestWrapperProcessBatch(t *testing.T) {

	resetFake(t)

	m := cocoModel(t)
	fake.scene = sceneOf(posetest.Standing(m, 60, 10, 200), posetest.Standing(m, 190, 30, 200))

	w := startWrapper(t, fakeConfig(t))

	frames := []*Frame{
		uniformFrame(t, "a", 256, 256, color.RGBA{A: 255}),
		uniformFrame(t, "b", 256, 256, color.RGBA{A: 255}),
	}

	res, err := w.ProcessBatch(context.Background(), frames)
	require.NoError(t, err)
	require.Len(t, res, 2)

	assert.Equal(t, "a", res[0].Name)
	assert.Equal(t, "b", res[1].Name)
	assert.Equal(t, int64(0), res[0].ID)
	assert.Equal(t, int64(1), res[1].ID)

	for _, d := range res {
		assert.Equal(t, 2, d.NumPeople())
	}

	empty, err := w.ProcessBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWrapperProcessAllConcurrent(t *testing.T) {

	resetFake(t)
	fake.delay = 20 * time.Millisecond

	reg := prometheus.NewRegistry()
	cfg := fakeConfig(t)
	cfg.NumWorkers = 3

	w := startWrapper(t, cfg, WithRegisterer(reg))
	assert.Equal(t, int32(3), fake.opened.Load())

	frames := make([]*Frame, 9)

	for i := range frames {
		frames[i] = uniformFrame(t, "frame", 128, 96, color.RGBA{A: 255})
	}

	res, err := w.ProcessAll(context.Background(), frames)
	require.NoError(t, err)
	require.Len(t, res, len(frames))

	ids := make(map[int64]bool)

	for _, d := range res {
		require.NotNil(t, d)
		ids[d.ID] = true
	}

	assert.Len(t, ids, len(frames))
	assert.LessOrEqual(t, fake.peak.Load(), int32(3))
	assert.Greater(t, fake.peak.Load(), int32(1))

	assert.Equal(t, float64(len(frames)),
		testutil.ToFloat64(w.metrics.frames.WithLabelValues("ok")))
}

func TestWrapperDecodeErrors(t *testing.T) {

	resetFake(t)
	w := startWrapper(t, fakeConfig(t))

	_, err := w.Process(context.Background(), nil)

	var derr *DecodeError
	assert.ErrorAs(t, err, &derr)

	frame, err := DecodeBytes("garbage", []byte("definitely not an image"))
	assert.Nil(t, frame)
	assert.ErrorAs(t, err, &derr)
	assert.Equal(t, "garbage", derr.Source)

	assert.Equal(t, float64(1), testutil.ToFloat64(w.metrics.frames.WithLabelValues("decode_error")))
}

func TestWrapperMalformedOutput(t *testing.T) {

	resetFake(t)
	fake.mutate = dropChannel

	w := startWrapper(t, fakeConfig(t))

	_, err := w.Process(context.Background(), uniformFrame(t, "x", 64, 64, color.RGBA{A: 255}))

	var ierr *InferenceError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, "output", ierr.Op)
}

func TestWrapperMalformedField(t *testing.T) {

	resetFake(t)
	fake.scene = sceneOf(posetest.Standing(cocoModel(t), 128, 20, 220))
	fake.mutate = poisonField

	w := startWrapper(t, fakeConfig(t))

	_, err := w.Process(context.Background(), uniformFrame(t, "x", 256, 256, color.RGBA{A: 255}))

	var aerr *DecodeAssemblyError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, 0, aerr.Limb)
}

func TestWrapperContextCancelled(t *testing.T) {

	resetFake(t)
	fake.delay = 200 * time.Millisecond

	w := startWrapper(t, fakeConfig(t))
	f := uniformFrame(t, "x", 64, 64, color.RGBA{A: 255})

	started := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		close(started)
		_, err := w.Process(context.Background(), f)
		done <- err
	}()

	<-started
	time.Sleep(50 * time.Millisecond)

	// the only backend is busy
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := w.Process(ctx, f)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)

	require.NoError(t, <-done)
}

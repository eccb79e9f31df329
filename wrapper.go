package openpose

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/swdee/go-openpose/pose"
	"github.com/swdee/go-openpose/postprocess"
	"github.com/swdee/go-openpose/preprocess"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State is the lifecycle stage of a Wrapper
type State int

const (
	// StateInit is a new engine using the default configuration
	StateInit State = iota
	// StateConfigured has a validated configuration but no network loaded
	StateConfigured
	// StateReady has the network loaded and accepts frames
	StateReady
	// StateShutdown has released the network, no further use is possible
	StateShutdown
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConfigured:
		return "configured"
	case StateReady:
		return "ready"
	case StateShutdown:
		return "shutdown"
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// Option configures a Wrapper
type Option func(*Wrapper)

// WithLogger sets the logger, the default discards all output
func WithLogger(l *zap.Logger) Option {
	return func(w *Wrapper) {
		w.log = l
	}
}

// WithRegisterer sets where metrics are registered, the default is a
// private registry
func WithRegisterer(r prometheus.Registerer) Option {
	return func(w *Wrapper) {
		w.reg = r
	}
}

// WithObjectFetcher sets how a gs:// model folder is read, the default uses
// Google Cloud Storage with application default credentials
func WithObjectFetcher(f ObjectFetcher) Option {
	return func(w *Wrapper) {
		w.fetcher = f
	}
}

// Wrapper is the pose estimation engine. It is configured, started once,
// used from any number of goroutines and finally closed.
type Wrapper struct {
	id      string
	log     *zap.Logger
	reg     prometheus.Registerer
	fetcher ObjectFetcher

	// mu guards the fields below, frames are processed under the read lock
	mu      sync.RWMutex
	state   State
	cfg     Config
	model   *pose.BodyModel
	decoder *postprocess.Decoder
	pool    *Pool
	metrics *metrics
	ids     idGenerator
}

// NewWrapper returns an engine in StateInit
func NewWrapper(opts ...Option) *Wrapper {

	w := &Wrapper{
		id:      uuid.NewString(),
		log:     zap.NewNop(),
		reg:     prometheus.NewRegistry(),
		fetcher: gcsFetcher{},
		cfg:     DefaultConfig(),
	}

	for _, o := range opts {
		o(w)
	}

	w.log = w.log.With(zap.String("engine", w.id))

	return w
}

// ID returns the unique id of the engine used in logs and metrics
func (w *Wrapper) ID() string {
	return w.id
}

// State returns the lifecycle stage
func (w *Wrapper) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Config returns the current configuration
func (w *Wrapper) Config() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

// Model returns the configured body model
func (w *Wrapper) Model() *pose.BodyModel {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg.model()
}

// Configure validates and applies a configuration. It may be called any
// number of times before Start.
func (w *Wrapper) Configure(cfg Config) error {

	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateReady:
		return ErrAlreadyStarted
	case StateShutdown:
		return ErrClosed
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	w.cfg = cfg
	w.state = StateConfigured

	w.log.Info("Engine configured",
		zap.String("model", cfg.ModelPose),
		zap.Stringer("net_resolution", cfg.NetResolution),
		zap.String("backend", cfg.Backend),
	)

	return nil
}

// Start resolves the model files and opens the backend pool. A model
// folder or weights that cannot be found return a *ConfigError, weights
// that fail to load an *InferenceError.
func (w *Wrapper) Start(ctx context.Context) error {

	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateReady:
		return ErrAlreadyStarted
	case StateShutdown:
		return ErrClosed
	}

	cfg := w.cfg

	if err := cfg.Validate(); err != nil {
		return err
	}

	model := cfg.model()
	driver, _ := lookupBackend(cfg.Backend)

	decoder, err := postprocess.NewDecoder(model, cfg.decoderParams())

	if err != nil {
		return &ConfigError{Err: err}
	}

	store := &modelStore{
		folder:   cfg.ModelFolder,
		cacheDir: cfg.CacheDir,
		fetcher:  w.fetcher,
		log:      w.log,
	}

	files, err := store.resolve(ctx, driver.Files(model))

	if err != nil {
		return err
	}

	m, err := newMetrics(w.reg, w.id)

	if err != nil {
		return fmt.Errorf("error registering metrics: %w", err)
	}

	pool, err := NewPool(cfg.NumWorkers, func(worker int) (Backend, error) {

		b, err := driver.Open(BackendOptions{
			Model:         model,
			Files:         files,
			NetResolution: cfg.NetResolution,
			Target:        cfg.Target,
			Platform:      cfg.RKNNPlatform,
			Worker:        worker,
			Logger:        w.log,
		})

		if err != nil {
			return nil, &InferenceError{Op: "load", Err: err}
		}

		return b, nil
	})

	if err != nil {
		m.unregister(w.reg)
		return err
	}

	w.model = model
	w.decoder = decoder
	w.pool = pool
	w.metrics = m
	w.state = StateReady

	w.log.Info("Engine started",
		zap.String("model", string(model.Name)),
		zap.Stringer("net_resolution", cfg.NetResolution),
		zap.String("backend", cfg.Backend),
		zap.String("target", cfg.Target),
		zap.Int("workers", cfg.NumWorkers),
	)

	return nil
}

// Process runs one frame through the pipeline. ctx bounds the wait for a
// free backend, a forward pass once begun runs to completion.
func (w *Wrapper) Process(ctx context.Context, f *Frame) (*Datum, error) {

	res, err := w.ProcessBatch(ctx, []*Frame{f})

	if err != nil {
		return nil, err
	}

	return res[0], nil
}

// ProcessBatch runs the frames as one batch on a single backend
func (w *Wrapper) ProcessBatch(ctx context.Context, frames []*Frame) ([]*Datum, error) {

	w.mu.RLock()
	defer w.mu.RUnlock()

	switch w.state {
	case StateShutdown:
		return nil, ErrClosed
	case StateReady:
	default:
		return nil, ErrNotReady
	}

	if len(frames) == 0 {
		return []*Datum{}, nil
	}

	res, err := w.process(ctx, frames)

	for range frames {
		w.metrics.frame(err)
	}

	if err != nil {
		return nil, err
	}

	return res, nil
}

// ProcessAll runs each frame on its own backend, as many at once as the
// pool holds. The first error cancels frames not yet started.
func (w *Wrapper) ProcessAll(ctx context.Context, frames []*Frame) ([]*Datum, error) {

	w.mu.RLock()
	workers := w.cfg.NumWorkers
	w.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	results := make([]*Datum, len(frames))

	for i, f := range frames {
		g.Go(func() error {
			d, err := w.Process(gctx, f)

			if err != nil {
				return err
			}

			results[i] = d
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// process runs the pipeline, the read lock must be held
func (w *Wrapper) process(ctx context.Context, frames []*Frame) ([]*Datum, error) {

	started := time.Now()
	size := image.Pt(w.cfg.NetResolution.Width, w.cfg.NetResolution.Height)
	tensors := make([]*preprocess.Tensor, 0, len(frames))

	defer func() {
		for _, t := range tensors {
			t.Close()
		}
	}()

	for i, f := range frames {

		if f == nil {
			return nil, &DecodeError{Source: fmt.Sprintf("frame %d", i), Err: errors.New("nil frame")}
		}

		t, err := preprocess.NewTensor(f.Mat(), size, preprocess.PadColor)

		if err != nil {
			return nil, &DecodeError{Source: f.Name, Err: err}
		}

		tensors = append(tensors, t)
	}

	waitStart := time.Now()
	b, err := w.pool.Get(ctx)
	w.metrics.poolWait.Observe(time.Since(waitStart).Seconds())

	if err != nil {
		return nil, err
	}

	inferStart := time.Now()
	outs, err := b.Forward(tensors)
	w.pool.Return(b)
	w.metrics.inference.Observe(time.Since(inferStart).Seconds())

	if err != nil {
		return nil, &InferenceError{Op: "forward", Err: err}
	}

	if len(outs) != len(tensors) {
		return nil, &InferenceError{Op: "output",
			Err: fmt.Errorf("backend returned %d outputs for %d tensors", len(outs), len(tensors))}
	}

	res := make([]*Datum, len(frames))

	for i := range frames {

		d, err := w.decode(frames[i], tensors[i], outs[i])

		if err != nil {
			return nil, err
		}

		d.Elapsed = time.Since(started)
		res[i] = d

		w.log.Debug("Processed frame",
			zap.Int64("id", d.ID),
			zap.String("name", d.Name),
			zap.Int("people", d.NumPeople()),
			zap.Duration("elapsed", d.Elapsed),
		)
	}

	return res, nil
}

// decode upsamples one network output and assembles its skeletons
func (w *Wrapper) decode(f *Frame, t *preprocess.Tensor, out NetOutput) (*Datum, error) {

	if err := pose.CheckModel(w.model, out.Heatmaps, out.PAFs); err != nil {
		return nil, &InferenceError{Op: "output", Err: err}
	}

	width, height := w.cfg.NetResolution.Width, w.cfg.NetResolution.Height

	hmMaps, err := postprocess.ResizeMaps(out.Heatmaps.Maps, width, height)

	if err != nil {
		return nil, &InferenceError{Op: "upsample", Err: err}
	}

	pafMaps, err := postprocess.ResizeMaps(out.PAFs.Maps, width, height)

	if err != nil {
		return nil, &InferenceError{Op: "upsample", Err: err}
	}

	input, err := t.Normalized()

	if err != nil {
		return nil, &InferenceError{Op: "input", Err: err}
	}

	hm := &pose.HeatmapSet{Maps: hmMaps}
	paf := &pose.AffinityFieldSet{Maps: pafMaps}

	d := &Datum{
		ID:             w.ids.next(),
		Name:           f.Name,
		Model:          w.model,
		Scale:          t.Scale,
		InputNetData:   input,
		Heatmaps:       hm,
		AffinityFields: paf,
		PoseHeatMaps: poseHeatMaps(heatmapSelection{
			parts: w.cfg.HeatmapsAddParts,
			bkg:   w.cfg.HeatmapsAddBkg,
			pafs:  w.cfg.HeatmapsAddPAFs,
			scale: w.cfg.HeatmapsScale,
		}, hm, paf),
		HeatmapsScale: w.cfg.HeatmapsScale,
	}

	if w.cfg.Body != BodyFull {
		return d, nil
	}

	res, err := w.decoder.Decode(hm, paf, t.Scale)

	if err != nil {
		limb := -1

		var fe *postprocess.FieldError
		if errors.As(err, &fe) {
			limb = fe.Limb
		}

		return nil, &DecodeAssemblyError{Limb: limb, Err: err}
	}

	d.Skeletons = res.Skeletons
	w.metrics.people.Observe(float64(len(res.Skeletons)))

	if w.cfg.PartCandidates {
		d.PartCandidates = make([][]pose.Candidate, len(res.Candidates))

		for part, cands := range res.Candidates {
			d.PartCandidates[part] = make([]pose.Candidate, len(cands))

			for i, c := range cands {
				x, y := t.Scale.ToSource(float64(c.X), float64(c.Y))
				c.X, c.Y = float32(x), float32(y)
				d.PartCandidates[part][i] = c
			}
		}
	}

	return d, nil
}

// Close releases every backend. It is safe to call more than once.
func (w *Wrapper) Close() error {

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateShutdown {
		return nil
	}

	w.state = StateShutdown

	var err error

	if w.pool != nil {
		err = multierr.Append(err, w.pool.Close())
	}

	if w.metrics != nil {
		w.metrics.unregister(w.reg)
	}

	w.log.Info("Engine closed")

	return err
}

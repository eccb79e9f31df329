package openpose

import (
	"fmt"
	"sort"
	"sync"

	"github.com/swdee/go-openpose/pose"
	"github.com/swdee/go-openpose/preprocess"
	"go.uber.org/zap"
)

// NetOutput is the network output for one tensor at network output
// resolution
type NetOutput struct {
	Heatmaps *pose.HeatmapSet
	PAFs     *pose.AffinityFieldSet
}

// Backend runs the pose network. A Backend is used by one goroutine at a
// time, the engine pools several for concurrent frames.
type Backend interface {
	// Forward runs a batch of tensors returning one output per tensor in
	// order
	Forward(tensors []*preprocess.Tensor) ([]NetOutput, error)
	// Close frees the network
	Close() error
}

// BackendOptions are passed to a driver when opening an instance
type BackendOptions struct {
	// Model is the body model the weights were trained for
	Model *pose.BodyModel
	// Files are the resolved paths of the files the driver asked for
	Files []string
	// NetResolution is the network input size
	NetResolution Size
	// Target is the acceleration device
	Target string
	// Platform is the Rockchip platform for NPU backends
	Platform string
	// Worker is the index of the instance within the pool
	Worker int
	Logger *zap.Logger
}

// BackendDriver opens backend instances
type BackendDriver struct {
	// Files returns the model files, relative to the model folder, an
	// instance needs
	Files func(m *pose.BodyModel) []string
	// Open creates one instance
	Open func(opts BackendOptions) (Backend, error)
}

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]BackendDriver)
)

// RegisterBackend makes a backend available by name. It panics if the name
// is registered twice.
func RegisterBackend(name string, d BackendDriver) {

	backendsMu.Lock()
	defer backendsMu.Unlock()

	if _, dup := backends[name]; dup {
		panic(fmt.Sprintf("openpose: backend %q registered twice", name))
	}

	backends[name] = d
}

// Backends returns the registered backend names
func Backends() []string {

	backendsMu.RLock()
	defer backendsMu.RUnlock()

	names := make([]string, 0, len(backends))

	for n := range backends {
		names = append(names, n)
	}

	sort.Strings(names)

	return names
}

func lookupBackend(name string) (BackendDriver, bool) {

	backendsMu.RLock()
	defer backendsMu.RUnlock()

	d, ok := backends[name]
	return d, ok
}

// splitOutput divides one image's network output of heatmap channels
// followed by PAF channels into the two map sets
func splitOutput(m *pose.BodyModel, data []float32, channels, height, width int) (NetOutput, error) {

	if channels != m.NumChannels() {
		return NetOutput{}, fmt.Errorf("network output has %d channels, model %s expects %d",
			channels, m.Name, m.NumChannels())
	}

	plane := height * width

	if len(data) != channels*plane {
		return NetOutput{}, fmt.Errorf("network output has %d values, expected %d",
			len(data), channels*plane)
	}

	hm := pose.NewMaps(m.NumHeatmaps(), height, width)
	paf := pose.NewMaps(m.NumPAFs(), height, width)

	copy(hm.Data, data[:m.NumHeatmaps()*plane])
	copy(paf.Data, data[m.NumHeatmaps()*plane:])

	return NetOutput{
		Heatmaps: &pose.HeatmapSet{Maps: hm},
		PAFs:     &pose.AffinityFieldSet{Maps: paf},
	}, nil
}

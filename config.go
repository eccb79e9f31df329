package openpose

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/swdee/go-openpose/pose"
	"github.com/swdee/go-openpose/postprocess"
	"gopkg.in/yaml.v3"
)

// Size is a width and height in pixels, written as "WxH"
type Size struct {
	Width  int
	Height int
}

// String returns the size as "WxH"
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// MarshalText implements encoding.TextMarshaler
func (s Size) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses "WxH"
func (s *Size) UnmarshalText(text []byte) error {

	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(string(text))), "x")

	if !ok {
		return fmt.Errorf("size %q is not in WxH form", text)
	}

	width, err := strconv.Atoi(w)

	if err != nil {
		return fmt.Errorf("size %q has invalid width: %w", text, err)
	}

	height, err := strconv.Atoi(h)

	if err != nil {
		return fmt.Errorf("size %q has invalid height: %w", text, err)
	}

	s.Width = width
	s.Height = height

	return nil
}

// Heatmap scale modes of Datum.PoseHeatMaps
const (
	// HeatmapScaleSigned maps values to [-1,1]
	HeatmapScaleSigned = 0
	// HeatmapScaleUnit maps values to [0,1]
	HeatmapScaleUnit = 1
	// HeatmapScaleUint8 maps values to [0,255] rounded
	HeatmapScaleUint8 = 2
	// HeatmapScaleRaw leaves the network output unchanged
	HeatmapScaleRaw = 3
)

// Body modes
const (
	// BodyFull runs the network and assembles skeletons
	BodyFull = 1
	// BodyHeatmapsOnly runs the network without decoding skeletons
	BodyHeatmapsOnly = 2
)

// Acceleration targets for the OpenCV backend
const (
	TargetCPU        = "cpu"
	TargetCUDA       = "cuda"
	TargetCUDAFP16   = "cuda_fp16"
	TargetOpenCL     = "opencl"
	TargetOpenCLFP16 = "opencl_fp16"
	TargetVulkan     = "vulkan"
)

var targets = []string{TargetCPU, TargetCUDA, TargetCUDAFP16, TargetOpenCL,
	TargetOpenCLFP16, TargetVulkan}

// RKNNPlatforms are the Rockchip platforms the NPU backend can pin cores on
var RKNNPlatforms = []string{"rk3588", "rk3582", "rk3576", "rk3568", "rk3566", "rk3562"}

// Config holds every option of the engine
type Config struct {
	// ModelFolder is the directory holding the pose/<model> weight folders,
	// or a gs://bucket/prefix location downloaded into CacheDir
	ModelFolder string `yaml:"model_folder" mapstructure:"model_folder"`
	// ModelPose selects the body model, COCO, BODY_25 or MPI
	ModelPose string `yaml:"model_pose" mapstructure:"model_pose"`
	// NetResolution is the network input size, both sides multiples of 16
	NetResolution Size `yaml:"net_resolution" mapstructure:"net_resolution"`
	// Backend names the registered inference backend
	Backend string `yaml:"backend" mapstructure:"backend"`
	// Target selects the acceleration device of the opencv backend
	Target string `yaml:"target" mapstructure:"target"`
	// NumWorkers is the number of backend instances frames run on
	// concurrently
	NumWorkers int `yaml:"num_workers" mapstructure:"num_workers"`
	// RKNNPlatform is the Rockchip platform the rknn backend pins NPU cores
	// for
	RKNNPlatform string `yaml:"rknn_platform" mapstructure:"rknn_platform"`

	// Body is BodyFull or BodyHeatmapsOnly
	Body             int  `yaml:"body" mapstructure:"body"`
	HeatmapsAddParts bool `yaml:"heatmaps_add_parts" mapstructure:"heatmaps_add_parts"`
	HeatmapsAddBkg   bool `yaml:"heatmaps_add_bkg" mapstructure:"heatmaps_add_bkg"`
	HeatmapsAddPAFs  bool `yaml:"heatmaps_add_PAFs" mapstructure:"heatmaps_add_PAFs"`
	// HeatmapsScale is one of the HeatmapScale modes
	HeatmapsScale  int  `yaml:"heatmaps_scale" mapstructure:"heatmaps_scale"`
	PartCandidates bool `yaml:"part_candidates" mapstructure:"part_candidates"`

	NumberPeopleMax        int     `yaml:"number_people_max" mapstructure:"number_people_max"`
	RenderThreshold        float32 `yaml:"render_threshold" mapstructure:"render_threshold"`
	NMSThreshold           float32 `yaml:"nms_threshold" mapstructure:"nms_threshold"`
	InterThreshold         float32 `yaml:"inter_threshold" mapstructure:"inter_threshold"`
	InterMinAboveThreshold float32 `yaml:"inter_min_above_threshold" mapstructure:"inter_min_above_threshold"`
	MinSubsetCount         int     `yaml:"min_subset_count" mapstructure:"min_subset_count"`
	MinSubsetScore         float32 `yaml:"min_subset_score" mapstructure:"min_subset_score"`
	IntegrationPoints      int     `yaml:"integration_points" mapstructure:"integration_points"`
	MaxPeaks               int     `yaml:"max_peaks" mapstructure:"max_peaks"`
	ConnectMethod          string  `yaml:"connect_method" mapstructure:"connect_method"`

	// CacheDir receives model weights downloaded from a remote ModelFolder
	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"`
}

// DefaultConfig returns the configuration used when an option is not given:
// - Model Folder: models/
// - Model: COCO at 368x368
// - Backend: opencv on the CPU with one worker
// - Body: full skeleton decoding
// - Heatmaps: none exported, scaled to [0,1]
// - Decoder: thresholds of postprocess.DefaultParams
func DefaultConfig() Config {

	p := postprocess.DefaultParams()

	return Config{
		ModelFolder:            "models/",
		ModelPose:              string(pose.COCO),
		NetResolution:          Size{Width: 368, Height: 368},
		Backend:                "opencv",
		Target:                 TargetCPU,
		NumWorkers:             1,
		RKNNPlatform:           "rk3588",
		Body:                   BodyFull,
		HeatmapsScale:          HeatmapScaleUnit,
		NumberPeopleMax:        p.NumberPeopleMax,
		RenderThreshold:        0.05,
		NMSThreshold:           p.NMSThreshold,
		InterThreshold:         p.InterThreshold,
		InterMinAboveThreshold: p.InterMinAboveThreshold,
		MinSubsetCount:         p.MinSubsetCount,
		MinSubsetScore:         p.MinSubsetScore,
		IntegrationPoints:      p.IntegrationPoints,
		MaxPeaks:               p.MaxPeaks,
		ConnectMethod:          string(p.Method),
		CacheDir:               os.TempDir(),
	}
}

// Validate checks every option, returning a *ConfigError naming the first
// invalid key
func (c Config) Validate() error {

	if c.ModelFolder == "" {
		return configErr("model_folder", "must be set")
	}

	if _, err := pose.LookupModel(pose.Model(c.ModelPose)); err != nil {
		return &ConfigError{Key: "model_pose", Err: err}
	}

	if c.NetResolution.Width <= 0 || c.NetResolution.Height <= 0 ||
		c.NetResolution.Width%16 != 0 || c.NetResolution.Height%16 != 0 {
		return configErr("net_resolution", "%s must be positive multiples of 16", c.NetResolution)
	}

	if _, ok := lookupBackend(c.Backend); !ok {
		return configErr("backend", "unknown backend %q, available %v", c.Backend, Backends())
	}

	if !slices.Contains(targets, strings.ToLower(c.Target)) {
		return configErr("target", "unknown target %q, expected one of %v", c.Target, targets)
	}

	if c.NumWorkers < 1 {
		return configErr("num_workers", "must be at least 1, got %d", c.NumWorkers)
	}

	if !slices.Contains(RKNNPlatforms, strings.ToLower(c.RKNNPlatform)) {
		return configErr("rknn_platform", "unknown platform %q, expected one of %v",
			c.RKNNPlatform, RKNNPlatforms)
	}

	if c.Body != BodyFull && c.Body != BodyHeatmapsOnly {
		return configErr("body", "must be %d or %d, got %d", BodyFull, BodyHeatmapsOnly, c.Body)
	}

	if c.HeatmapsScale < HeatmapScaleSigned || c.HeatmapsScale > HeatmapScaleRaw {
		return configErr("heatmaps_scale", "must be between %d and %d, got %d",
			HeatmapScaleSigned, HeatmapScaleRaw, c.HeatmapsScale)
	}

	if c.NumberPeopleMax == 0 || c.NumberPeopleMax < -1 {
		return configErr("number_people_max", "must be -1 or positive, got %d", c.NumberPeopleMax)
	}

	unit := []struct {
		key string
		val float32
	}{
		{"render_threshold", c.RenderThreshold},
		{"nms_threshold", c.NMSThreshold},
		{"inter_threshold", c.InterThreshold},
		{"inter_min_above_threshold", c.InterMinAboveThreshold},
		{"min_subset_score", c.MinSubsetScore},
	}

	for _, u := range unit {
		if u.val < 0 || u.val > 1 {
			return configErr(u.key, "must be within [0,1], got %v", u.val)
		}
	}

	if c.MinSubsetCount < 1 {
		return configErr("min_subset_count", "must be at least 1, got %d", c.MinSubsetCount)
	}

	if c.IntegrationPoints < 2 {
		return configErr("integration_points", "must be at least 2, got %d", c.IntegrationPoints)
	}

	if c.MaxPeaks < 1 {
		return configErr("max_peaks", "must be at least 1, got %d", c.MaxPeaks)
	}

	switch postprocess.MatchMethod(c.ConnectMethod) {
	case postprocess.MatchGreedy, postprocess.MatchOptimal:
	default:
		return configErr("connect_method", "must be %q or %q, got %q",
			postprocess.MatchGreedy, postprocess.MatchOptimal, c.ConnectMethod)
	}

	if isRemote(c.ModelFolder) && c.CacheDir == "" {
		return configErr("cache_dir", "must be set for remote model folder %q", c.ModelFolder)
	}

	return nil
}

// model returns the body model, Validate must have passed
func (c Config) model() *pose.BodyModel {
	m, _ := pose.LookupModel(pose.Model(c.ModelPose))
	return m
}

// decoderParams returns the skeleton decoder parameters
func (c Config) decoderParams() postprocess.Params {
	return postprocess.Params{
		NMSThreshold:           c.NMSThreshold,
		InterThreshold:         c.InterThreshold,
		InterMinAboveThreshold: c.InterMinAboveThreshold,
		IntegrationPoints:      c.IntegrationPoints,
		MinSubsetCount:         c.MinSubsetCount,
		MinSubsetScore:         c.MinSubsetScore,
		MaxPeaks:               c.MaxPeaks,
		NumberPeopleMax:        c.NumberPeopleMax,
		Method:                 postprocess.MatchMethod(c.ConnectMethod),
	}
}

// LoadConfig reads a YAML file of options over DefaultConfig. Unknown keys
// and values of the wrong type are rejected.
func LoadConfig(path string) (Config, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		return Config{}, &ConfigError{Err: fmt.Errorf("error reading config file: %w", err)}
	}

	opts := make(map[string]any)
	dec := yaml.NewDecoder(bytes.NewReader(data))

	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, &ConfigError{Err: fmt.Errorf("error parsing config file %s: %w", path, err)}
	}

	return ConfigFromMap(opts)
}

// SaveConfig writes the configuration as YAML
func SaveConfig(path string, c Config) error {

	data, err := yaml.Marshal(c)

	if err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// ConfigFromMap applies options keyed by their config name over
// DefaultConfig. String values are converted to the option's type so the
// result of ParseOptions can be passed directly.
func ConfigFromMap(opts map[string]any) (Config, error) {
	return DefaultConfig().Apply(opts)
}

// Apply returns a copy of the configuration with the options applied and
// validated. Keys are applied one at a time so any failure names its key.
func (c Config) Apply(opts map[string]any) (Config, error) {

	cfg := c

	for _, key := range slices.Sorted(maps.Keys(opts)) {

		if !knownKey(key) {
			return Config{}, configErr(key, "unknown option")
		}

		if opts[key] == nil {
			return Config{}, configErr(key, "missing value")
		}

		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.TextUnmarshallerHookFunc(),
				strictScalarHook,
			),
			ErrorUnused: true,
			Result:      &cfg,
		})

		if err != nil {
			return Config{}, &ConfigError{Key: key, Err: err}
		}

		if err := dec.Decode(map[string]any{key: opts[key]}); err != nil {
			return Config{}, &ConfigError{Key: key, Err: err}
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// strictScalarHook converts option values into bool, integer and float
// fields. Strings must parse completely, floats must be whole numbers to set
// an integer and booleans only set booleans.
func strictScalarHook(from reflect.Type, to reflect.Type, data any) (any, error) {

	v := reflect.ValueOf(data)

	switch to.Kind() {
	case reflect.Bool:
		switch from.Kind() {
		case reflect.Bool:
			return data, nil
		case reflect.String:
			b, err := strconv.ParseBool(strings.TrimSpace(v.String()))

			if err != nil {
				return nil, fmt.Errorf("%q is not a boolean", v.String())
			}

			return b, nil
		}

		return nil, fmt.Errorf("cannot use %v as a boolean", data)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return data, nil
		case reflect.Float32, reflect.Float64:
			f := v.Float()

			if f != math.Trunc(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("%v is not a whole number", data)
			}

			return int64(f), nil
		case reflect.String:
			i, err := strconv.ParseInt(strings.TrimSpace(v.String()), 10, 64)

			if err != nil {
				return nil, fmt.Errorf("%q is not an integer", v.String())
			}

			return i, nil
		}

		return nil, fmt.Errorf("cannot use %v as an integer", data)

	case reflect.Float32, reflect.Float64:
		switch from.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			return data, nil
		case reflect.String:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)

			if err != nil {
				return nil, fmt.Errorf("%q is not a number", v.String())
			}

			return f, nil
		}

		return nil, fmt.Errorf("cannot use %v as a number", data)
	}

	return data, nil
}

// ParseOptions turns "--key value" and "--key=value" arguments into an
// options map for ConfigFromMap. A flag followed by another flag or by
// nothing is a boolean set to true.
func ParseOptions(args []string) (map[string]any, error) {

	opts := make(map[string]any)

	for i := 0; i < len(args); i++ {

		arg := args[i]

		if !strings.HasPrefix(arg, "-") || strings.TrimLeft(arg, "-") == "" {
			return nil, configErr(arg, "expected an option starting with -")
		}

		key := strings.TrimLeft(arg, "-")

		if k, v, ok := strings.Cut(key, "="); ok {
			opts[k] = v
			continue
		}

		if i+1 < len(args) && !isFlag(args[i+1]) {
			opts[key] = args[i+1]
			i++
			continue
		}

		opts[key] = "true"
	}

	return opts, nil
}

// isFlag reports whether an argument starts a new option. Negative numbers
// are values.
func isFlag(arg string) bool {

	if !strings.HasPrefix(arg, "-") {
		return false
	}

	_, err := strconv.ParseFloat(arg, 64)
	return err != nil
}

// configKeys holds the mapstructure names of Config, lowercased
var configKeys = func() map[string]bool {

	keys := make(map[string]bool)
	t := reflect.TypeOf(Config{})

	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("mapstructure"); tag != "" {
			keys[strings.ToLower(tag)] = true
		}
	}

	return keys
}()

func knownKey(key string) bool {
	return configKeys[strings.ToLower(key)]
}

func isRemote(folder string) bool {
	return strings.HasPrefix(folder, "gs://")
}

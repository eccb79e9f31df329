package openpose

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned when processing is requested before Start
	ErrNotReady = errors.New("engine is not started")
	// ErrClosed is returned when the engine has been shut down
	ErrClosed = errors.New("engine is closed")
	// ErrAlreadyStarted is returned by Configure and Start once the engine
	// is running
	ErrAlreadyStarted = errors.New("engine already started")
)

// DecodeError reports image data that could not be decoded into a Frame
type DecodeError struct {
	// Source names the file or buffer that failed
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("error decoding image %q: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ConfigError reports an invalid configuration value or unknown option
type ConfigError struct {
	// Key is the configuration key at fault, empty when the error concerns
	// the configuration as a whole
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}

	return fmt.Sprintf("invalid configuration %q: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// InferenceError reports a failure loading or running the network
type InferenceError struct {
	// Op is the stage that failed, such as "load", "forward" or "output"
	Op  string
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference %s failed: %v", e.Op, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// DecodeAssemblyError reports affinity field data that could not be
// assembled into skeletons
type DecodeAssemblyError struct {
	// Limb is the limb index being assembled, -1 when the whole field set
	// was rejected
	Limb int
	Err  error
}

func (e *DecodeAssemblyError) Error() string {
	if e.Limb < 0 {
		return fmt.Sprintf("skeleton assembly failed: %v", e.Err)
	}

	return fmt.Sprintf("skeleton assembly failed on limb %d: %v", e.Limb, e.Err)
}

func (e *DecodeAssemblyError) Unwrap() error {
	return e.Err
}

func configErr(key string, format string, args ...any) error {
	return &ConfigError{Key: key, Err: fmt.Errorf(format, args...)}
}

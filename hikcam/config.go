package hikcam

import (
	"fmt"
	"math"
	"time"
)

// TriggerMode selects how frames are produced
type TriggerMode string

const (
	// Continuous free-runs at the configured frame rate
	Continuous TriggerMode = "continuous"

	// Software produces one frame per software trigger
	Software TriggerMode = "trigger"
)

// ParseTriggerMode converts the text form of a trigger mode
func ParseTriggerMode(s string) (TriggerMode, error) {
	m := TriggerMode(s)
	if !m.Valid() {
		return "", &Error{Kind: InvalidConfig, Op: "TriggerMode",
			Err: fmt.Errorf("%q is not %q or %q", s, Continuous, Software)}
	}
	return m, nil
}

// Valid is true for Continuous and Software
func (m TriggerMode) Valid() bool {
	return m == Continuous || m == Software
}

// Config is the configuration of a capture session.  It is validated once
// by Connect; afterwards the session keeps its own copy in step with
// successful parameter writes.
type Config struct {
	// CameraIndex is the position of the camera in the enumerated list
	CameraIndex int `json:"cameraIndex" yaml:"CameraIndex" koanf:"CameraIndex"`

	// TriggerMode is continuous or trigger
	TriggerMode TriggerMode `json:"triggerMode" yaml:"TriggerMode" koanf:"TriggerMode"`

	// Width of the image in pixels
	Width int `json:"width" yaml:"Width" koanf:"Width"`

	// Height of the image in pixels
	Height int `json:"height" yaml:"Height" koanf:"Height"`

	// Exposure is the exposure time in microseconds
	Exposure float64 `json:"exposure" yaml:"Exposure" koanf:"Exposure"`

	// Gain is the sensor gain, in the camera's units
	Gain float64 `json:"gain" yaml:"Gain" koanf:"Gain"`

	// FPS is the acquisition frame rate
	FPS float64 `json:"fps" yaml:"FPS" koanf:"FPS"`

	// Timeout is the default wait for a frame
	Timeout time.Duration `json:"timeout" yaml:"Timeout" koanf:"Timeout"`
}

// DefaultConfig is the first camera, free running at 1280x720, 10ms, 30fps
func DefaultConfig() Config {
	return Config{
		CameraIndex: 0,
		TriggerMode: Continuous,
		Width:       1280,
		Height:      720,
		Exposure:    10000,
		Gain:        0,
		FPS:         30,
		Timeout:     1000 * time.Millisecond,
	}
}

// Validate checks every field.  Out of range values are reported, never
// clamped.
func (c Config) Validate() error {
	switch {
	case c.CameraIndex < 0:
		return invalid("CameraIndex", "must be >= 0, got %d", c.CameraIndex)
	case !c.TriggerMode.Valid():
		return invalid("TriggerMode", "must be %q or %q, got %q", Continuous, Software, c.TriggerMode)
	case c.Width <= 0:
		return invalid("Width", "must be > 0, got %d", c.Width)
	case c.Height <= 0:
		return invalid("Height", "must be > 0, got %d", c.Height)
	case c.Exposure < 0 || math.IsNaN(c.Exposure):
		return invalid("Exposure", "must be >= 0, got %g", c.Exposure)
	case c.Gain < 0 || math.IsNaN(c.Gain):
		return invalid("Gain", "must be >= 0, got %g", c.Gain)
	case c.FPS <= 0 || math.IsNaN(c.FPS):
		return invalid("FPS", "must be > 0, got %g", c.FPS)
	case c.Timeout <= 0:
		return invalid("Timeout", "must be > 0, got %s", c.Timeout)
	}
	return nil
}

func invalid(field, format string, args ...interface{}) error {
	return &Error{Kind: InvalidConfig, Op: field, Err: fmt.Errorf(format, args...)}
}

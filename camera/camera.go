/*Package camera describes the capabilities the transports need from a camera

A hikcam.Session satisfies all of them.  The HTTP wrapper and the MQTT
publisher depend on these interfaces rather than the session so they can be
driven by anything that produces BGR frames.

*/
package camera

import (
	"time"

	"github.com/nasa-jpl/hikcam/hikcam"
	"github.com/nasa-jpl/hikcam/imgconv"
)

// Streamer can be started and stopped
type Streamer interface {
	// Start begins streaming; a no-op while streaming
	Start() error

	// Stop ends streaming; a no-op while stopped
	Stop() error

	// IsStreaming reports whether frames are flowing
	IsStreaming() bool
}

// Grabber hands out frames
type Grabber interface {
	// GetImage waits up to timeout for the next frame.  A zero timeout uses
	// the camera's default.
	GetImage(timeout time.Duration) (*imgconv.BGR, error)

	// TriggerAndGetImage fires a software trigger and waits for its frame
	TriggerAndGetImage(timeout time.Duration) (*imgconv.BGR, error)
}

// ParamController reads and writes acquisition parameters
type ParamController interface {
	GetParams() (hikcam.CameraParams, error)
	SetParams(hikcam.ParamSet) ([]hikcam.Warning, error)

	Exposure() (float64, error)
	SetExposure(float64) error

	Gain() (float64, error)
	SetGain(float64) (*hikcam.Warning, error)

	FPS() (float64, error)
	SetFPS(float64) error

	Width() (int, error)
	SetWidth(int) error

	Height() (int, error)
	SetHeight(int) error

	OffsetX() (int, error)
	SetOffsetX(int) error

	OffsetY() (int, error)
	SetOffsetY(int) error

	TriggerMode() (hikcam.TriggerMode, error)
	SetTriggerMode(hikcam.TriggerMode) error

	// PixelFormat is the SDK name of the sensor pixel format
	PixelFormat() (string, error)
}

// Describer knows what it is connected to
type Describer interface {
	DeviceInfo() hikcam.DeviceInfo
}

// Camera is the full set
type Camera interface {
	Streamer
	Grabber
	ParamController
	Describer
}

var _ Camera = (*hikcam.Session)(nil)

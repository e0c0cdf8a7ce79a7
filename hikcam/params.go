package hikcam

import (
	"errors"
	"fmt"
	"math"

	"github.com/nasa-jpl/hikcam/mvs"
	"github.com/nasa-jpl/hikcam/pixfmt"
)

// CameraParams is a snapshot of the camera's settings, read live
type CameraParams struct {
	Width  int `json:"width"`
	Height int `json:"height"`

	// Exposure in microseconds
	Exposure float64 `json:"exposure"`

	Gain float64 `json:"gain"`

	FPS float64 `json:"fps"`

	// PixelFormat is the SDK name of the current pixel format
	PixelFormat string `json:"pixelFormat"`

	TriggerMode TriggerMode `json:"triggerMode"`

	OffsetX int `json:"offsetX"`
	OffsetY int `json:"offsetY"`
}

// ParamSet is a partial update.  Nil fields are left untouched.
type ParamSet struct {
	Width       *int         `json:"width,omitempty"`
	Height      *int         `json:"height,omitempty"`
	Exposure    *float64     `json:"exposure,omitempty"`
	Gain        *float64     `json:"gain,omitempty"`
	FPS         *float64     `json:"fps,omitempty"`
	TriggerMode *TriggerMode `json:"triggerMode,omitempty"`
	OffsetX     *int         `json:"offsetX,omitempty"`
	OffsetY     *int         `json:"offsetY,omitempty"`
}

// Validate checks every supplied field
func (p ParamSet) Validate() error {
	if p.Width != nil && *p.Width <= 0 {
		return invalid("Width", "must be > 0, got %d", *p.Width)
	}
	if p.Height != nil && *p.Height <= 0 {
		return invalid("Height", "must be > 0, got %d", *p.Height)
	}
	if p.Exposure != nil && (*p.Exposure < 0 || math.IsNaN(*p.Exposure)) {
		return invalid("Exposure", "must be >= 0, got %g", *p.Exposure)
	}
	if p.Gain != nil && (*p.Gain < 0 || math.IsNaN(*p.Gain)) {
		return invalid("Gain", "must be >= 0, got %g", *p.Gain)
	}
	if p.FPS != nil && (*p.FPS <= 0 || math.IsNaN(*p.FPS)) {
		return invalid("FPS", "must be > 0, got %g", *p.FPS)
	}
	if p.TriggerMode != nil && !p.TriggerMode.Valid() {
		return invalid("TriggerMode", "must be %q or %q, got %q", Continuous, Software, *p.TriggerMode)
	}
	if p.OffsetX != nil && *p.OffsetX < 0 {
		return invalid("OffsetX", "must be >= 0, got %d", *p.OffsetX)
	}
	if p.OffsetY != nil && *p.OffsetY < 0 {
		return invalid("OffsetY", "must be >= 0, got %d", *p.OffsetY)
	}
	return nil
}

// device returns the open handle, or an error of kind k if the session has
// been closed
func (s *Session) device(k Kind, op string) (mvs.Device, error) {
	if s.dev == nil || s.state == Closed {
		return nil, &Error{Kind: k, Op: op, Err: ErrClosed}
	}
	return s.dev, nil
}

func (s *Session) readInt(key string) (int, error) {
	dev, err := s.device(ParameterReadFailed, key)
	if err != nil {
		return 0, err
	}
	v, err := dev.GetInt(key)
	if err != nil {
		return 0, newError(ParameterReadFailed, key, err)
	}
	return int(v), nil
}

func (s *Session) writeInt(key string, v int) error {
	dev, err := s.device(ParameterWriteFailed, key)
	if err != nil {
		return err
	}
	if err := dev.SetInt(key, int64(v)); err != nil {
		return newError(ParameterWriteFailed, key, err)
	}
	return nil
}

// readNumber reads a feature that some cameras expose as a float and others
// as an integer.  The float query is made first; only the integer query's
// failure is reported.
func (s *Session) readNumber(key string) (float64, error) {
	dev, err := s.device(ParameterReadFailed, key)
	if err != nil {
		return 0, err
	}
	if f, err := dev.GetFloat(key); err == nil {
		return f, nil
	}
	i, err := dev.GetInt(key)
	if err != nil {
		return 0, newError(ParameterReadFailed, key, err)
	}
	return float64(i), nil
}

// writeNumber is the write side of readNumber
func (s *Session) writeNumber(key string, v float64) error {
	dev, err := s.device(ParameterWriteFailed, key)
	if err != nil {
		return err
	}
	if err := dev.SetFloat(key, v); err == nil {
		return nil
	}
	if err := dev.SetInt(key, int64(math.Round(v))); err != nil {
		return newError(ParameterWriteFailed, key, err)
	}
	return nil
}

// Width queries the image width
func (s *Session) Width() (int, error) { return s.readInt("Width") }

// SetWidth sets the image width
func (s *Session) SetWidth(v int) error {
	if v <= 0 {
		return invalid("Width", "must be > 0, got %d", v)
	}
	if err := s.writeInt("Width", v); err != nil {
		return err
	}
	s.cfg.Width = v
	return nil
}

// Height queries the image height
func (s *Session) Height() (int, error) { return s.readInt("Height") }

// SetHeight sets the image height
func (s *Session) SetHeight(v int) error {
	if v <= 0 {
		return invalid("Height", "must be > 0, got %d", v)
	}
	if err := s.writeInt("Height", v); err != nil {
		return err
	}
	s.cfg.Height = v
	return nil
}

// OffsetX queries the horizontal offset of the AOI
func (s *Session) OffsetX() (int, error) { return s.readInt("OffsetX") }

// SetOffsetX sets the horizontal offset of the AOI
func (s *Session) SetOffsetX(v int) error {
	if v < 0 {
		return invalid("OffsetX", "must be >= 0, got %d", v)
	}
	return s.writeInt("OffsetX", v)
}

// OffsetY queries the vertical offset of the AOI
func (s *Session) OffsetY() (int, error) { return s.readInt("OffsetY") }

// SetOffsetY sets the vertical offset of the AOI
func (s *Session) SetOffsetY(v int) error {
	if v < 0 {
		return invalid("OffsetY", "must be >= 0, got %d", v)
	}
	return s.writeInt("OffsetY", v)
}

// Exposure queries the exposure time in microseconds
func (s *Session) Exposure() (float64, error) { return s.readNumber("ExposureTime") }

// SetExposure sets the exposure time in microseconds
func (s *Session) SetExposure(us float64) error {
	if us < 0 || math.IsNaN(us) {
		return invalid("Exposure", "must be >= 0, got %g", us)
	}
	if err := s.writeNumber("ExposureTime", us); err != nil {
		return err
	}
	s.cfg.Exposure = us
	return nil
}

// FPS queries the acquisition frame rate
func (s *Session) FPS() (float64, error) { return s.readNumber("AcquisitionFrameRate") }

// SetFPS sets the acquisition frame rate
func (s *Session) SetFPS(fps float64) error {
	if fps <= 0 || math.IsNaN(fps) {
		return invalid("FPS", "must be > 0, got %g", fps)
	}
	if err := s.writeNumber("AcquisitionFrameRate", fps); err != nil {
		return err
	}
	s.cfg.FPS = fps
	return nil
}

// Gain queries the gain.  Cameras without a Gain feature are read through
// AnalogGain.
func (s *Session) Gain() (float64, error) {
	g, err := s.readNumber("Gain")
	if err == nil {
		return g, nil
	}
	if g, err2 := s.readNumber("AnalogGain"); err2 == nil {
		return g, nil
	}
	return 0, err
}

// SetGain sets the gain, through AnalogGain if Gain is refused.  Many
// sensors have no writable gain, so a refusal is reported as a Warning and
// logged rather than returned as an error.  The error is only non-nil for
// an invalid value or a closed session.
func (s *Session) SetGain(v float64) (*Warning, error) {
	if v < 0 || math.IsNaN(v) {
		return nil, invalid("Gain", "must be >= 0, got %g", v)
	}
	dev, err := s.device(ParameterWriteFailed, "Gain")
	if err != nil {
		return nil, err
	}
	err = dev.SetFloat("Gain", v)
	if err != nil {
		err = dev.SetFloat("AnalogGain", v)
	}
	if err != nil {
		w := &Warning{Param: "Gain", Err: err}
		errors.As(err, &w.Code)
		s.logf("hikcam: warning: %s", w)
		return w, nil
	}
	s.cfg.Gain = v
	return nil, nil
}

// TriggerMode queries the camera's trigger mode
func (s *Session) TriggerMode() (TriggerMode, error) {
	dev, err := s.device(ParameterReadFailed, "TriggerMode")
	if err != nil {
		return "", err
	}
	v, err := dev.GetEnum("TriggerMode")
	if err != nil {
		return "", newError(ParameterReadFailed, "TriggerMode", err)
	}
	if v == mvs.TriggerModeOn {
		return Software, nil
	}
	return Continuous, nil
}

// SetTriggerMode switches between continuous and software triggering.
// Software mode also selects the software trigger source.
func (s *Session) SetTriggerMode(m TriggerMode) error {
	if !m.Valid() {
		return invalid("TriggerMode", "must be %q or %q, got %q", Continuous, Software, m)
	}
	if _, err := s.device(ParameterWriteFailed, "TriggerMode"); err != nil {
		return err
	}
	if err := s.writeTrigger(m); err != nil {
		return newError(ParameterWriteFailed, "TriggerMode", err)
	}
	s.cfg.TriggerMode = m
	return nil
}

// PixelFormat queries the SDK name of the camera's pixel format
func (s *Session) PixelFormat() (string, error) {
	dev, err := s.device(ParameterReadFailed, "PixelFormat")
	if err != nil {
		return "", err
	}
	v, err := dev.GetEnum("PixelFormat")
	if err != nil {
		return "", newError(ParameterReadFailed, "PixelFormat", err)
	}
	return pixfmt.Name(pixfmt.PixelType(v)), nil
}

// GetParams reads every parameter from the camera.  The first failed read
// is returned.
func (s *Session) GetParams() (CameraParams, error) {
	var (
		p   CameraParams
		err error
	)
	if p.Width, err = s.Width(); err != nil {
		return p, err
	}
	if p.Height, err = s.Height(); err != nil {
		return p, err
	}
	if p.Exposure, err = s.Exposure(); err != nil {
		return p, err
	}
	if p.Gain, err = s.Gain(); err != nil {
		return p, err
	}
	if p.FPS, err = s.FPS(); err != nil {
		return p, err
	}
	if p.PixelFormat, err = s.PixelFormat(); err != nil {
		return p, err
	}
	if p.TriggerMode, err = s.TriggerMode(); err != nil {
		return p, err
	}
	if p.OffsetX, err = s.OffsetX(); err != nil {
		return p, err
	}
	if p.OffsetY, err = s.OffsetY(); err != nil {
		return p, err
	}
	return p, nil
}

// SetParams applies the supplied fields in the order width, height,
// exposure, gain, fps, trigger mode, offset x, offset y.  Every field is
// validated before anything is written.  The first failed write stops the
// update; fields already written are not rolled back.  Gain writes the
// camera refuses are returned as warnings.
func (s *Session) SetParams(p ParamSet) ([]Warning, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	var warnings []Warning
	if p.Width != nil {
		if err := s.SetWidth(*p.Width); err != nil {
			return warnings, err
		}
	}
	if p.Height != nil {
		if err := s.SetHeight(*p.Height); err != nil {
			return warnings, err
		}
	}
	if p.Exposure != nil {
		if err := s.SetExposure(*p.Exposure); err != nil {
			return warnings, err
		}
	}
	if p.Gain != nil {
		w, err := s.SetGain(*p.Gain)
		if err != nil {
			return warnings, err
		}
		if w != nil {
			warnings = append(warnings, *w)
		}
	}
	if p.FPS != nil {
		if err := s.SetFPS(*p.FPS); err != nil {
			return warnings, err
		}
	}
	if p.TriggerMode != nil {
		if err := s.SetTriggerMode(*p.TriggerMode); err != nil {
			return warnings, err
		}
	}
	if p.OffsetX != nil {
		if err := s.SetOffsetX(*p.OffsetX); err != nil {
			return warnings, err
		}
	}
	if p.OffsetY != nil {
		if err := s.SetOffsetY(*p.OffsetY); err != nil {
			return warnings, err
		}
	}
	return warnings, nil
}

// String formats the snapshot on one line
func (p CameraParams) String() string {
	return fmt.Sprintf("%dx%d+%d+%d exposure=%gus gain=%g fps=%g format=%s trigger=%s",
		p.Width, p.Height, p.OffsetX, p.OffsetY, p.Exposure, p.Gain, p.FPS, p.PixelFormat, p.TriggerMode)
}

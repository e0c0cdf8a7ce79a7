/*Package hikcam is a capture API for Hikrobot MVS cameras.

A Session owns one open camera.  It is created by Connect, moves between
Connected, Streaming and Stopped with Start and Stop, hands out frames as
8-bit BGR images with GetImage and TriggerAndGetImage, and is released with
Close.  SDK initialization is shared between sessions through a Guard.

Sessions are not safe for concurrent use; callers serialize access to a
session.  Independent sessions may be used from different goroutines.

	g := hikcam.NewGuard(mvs.Native())
	s, err := hikcam.Connect(g, hikcam.DefaultConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	s.Start()
	img, err := s.GetImage(0)
*/
package hikcam

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/nasa-jpl/hikcam/imgconv"
	"github.com/nasa-jpl/hikcam/mvs"
	"github.com/nasa-jpl/hikcam/pixfmt"
)

// State is the lifecycle state of a session
type State int

const (
	Disconnected State = iota
	Connected
	Streaming
	Stopped
	Closed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connected:
		return "Connected"
	case Streaming:
		return "Streaming"
	case Stopped:
		return "Stopped"
	case Closed:
		return "Closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session is a connection to one camera
type Session struct {
	// Logger receives warnings: packet size problems, gain writes that
	// were not applied, and errors swallowed by Close
	Logger *log.Logger

	guard *Guard
	dev   mvs.Device
	open  bool

	// released is set once the guard reference has been dropped
	released bool

	cfg     Config
	info    DeviceInfo
	state   State
	payload int64
	pixel   pixfmt.PixelType
}

// Connect validates cfg and opens the camera it selects.  On failure every
// resource taken so far is released before the error is returned.
func Connect(g *Guard, cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := g.Acquire(); err != nil {
		return nil, newError(ConnectionFailed, "Initialize", err)
	}
	s := &Session{
		Logger: log.Default(),
		guard:  g,
		cfg:    cfg,
		state:  Disconnected,
		pixel:  pixfmt.Undefined,
	}
	if err := s.connect(); err != nil {
		s.teardown()
		s.state = Closed
		return nil, err
	}
	s.state = Connected
	runtime.SetFinalizer(s, func(s *Session) { s.Close() })
	return s, nil
}

func (s *Session) connect() error {
	lib := s.guard.Library()
	recs, err := lib.EnumDevices(mvs.LayerAll)
	if err != nil {
		return newError(ConnectionFailed, "EnumDevices", err)
	}
	if len(recs) == 0 {
		return &Error{Kind: NoDeviceFound, Op: "EnumDevices"}
	}
	idx := s.cfg.CameraIndex
	if idx >= len(recs) {
		return &Error{Kind: IndexOutOfRange, Op: "EnumDevices",
			Err: fmt.Errorf("camera index %d, %d devices found", idx, len(recs))}
	}
	rec := recs[idx]
	s.info = ExtractDeviceInfo(idx, rec)

	dev, err := lib.CreateHandle(rec)
	if err != nil {
		return newError(ConnectionFailed, "CreateHandle", err)
	}
	s.dev = dev
	if err := dev.Open(mvs.AccessExclusive); err != nil {
		return newError(ConnectionFailed, "OpenDevice", err)
	}
	s.open = true

	if s.info.Transport == GigE {
		if n := dev.OptimalPacketSize(); n > 0 {
			if err := dev.SetInt("GevSCPSPacketSize", int64(n)); err != nil {
				s.logf("hikcam: could not set packet size %d on %s: %v", n, s.info.Serial, err)
			}
		} else {
			s.logf("hikcam: %s reports no optimal packet size, leaving default", s.info.Serial)
		}
	}

	if err := s.writeTrigger(s.cfg.TriggerMode); err != nil {
		return newError(ConnectionFailed, "TriggerMode", err)
	}

	payload, err := dev.GetInt("PayloadSize")
	if err != nil {
		return newError(ConnectionFailed, "PayloadSize", err)
	}
	s.payload = payload
	return nil
}

// writeTrigger puts the camera in m, selecting the software source for
// Software
func (s *Session) writeTrigger(m TriggerMode) error {
	if m == Software {
		if err := s.dev.SetEnum("TriggerMode", mvs.TriggerModeOn); err != nil {
			return err
		}
		return s.dev.SetEnum("TriggerSource", mvs.TriggerSourceSoftware)
	}
	return s.dev.SetEnum("TriggerMode", mvs.TriggerModeOff)
}

// Start begins streaming.  It is a no-op while already streaming.
func (s *Session) Start() error {
	switch s.state {
	case Streaming:
		return nil
	case Connected, Stopped:
	default:
		return &Error{Kind: StreamStartFailed, Op: "StartGrabbing", Err: fmt.Errorf("session is %s", s.state)}
	}
	if err := s.dev.StartGrabbing(); err != nil {
		return newError(StreamStartFailed, "StartGrabbing", err)
	}
	s.state = Streaming
	return nil
}

// Stop ends streaming.  It is a no-op while not streaming.
func (s *Session) Stop() error {
	if s.state != Streaming {
		return nil
	}
	if err := s.dev.StopGrabbing(); err != nil {
		return newError(StreamStopFailed, "StopGrabbing", err)
	}
	s.state = Stopped
	return nil
}

// GetImage waits for the next frame and returns it as a BGR image.  A
// timeout of zero uses the configured timeout.  A timeout leaves the session
// streaming; the call may be retried.
func (s *Session) GetImage(timeout time.Duration) (*imgconv.BGR, error) {
	if s.state != Streaming {
		return nil, &Error{Kind: NotStreaming, Op: "GetImage", Err: fmt.Errorf("session is %s", s.state)}
	}
	if timeout <= 0 {
		timeout = s.cfg.Timeout
	}
	f, err := s.dev.GetImageBuffer(timeout)
	if err != nil {
		var st mvs.Status
		if errors.As(err, &st) && st.Timeout() {
			return nil, newError(AcquisitionTimeout, "GetImageBuffer", err)
		}
		return nil, newError(AcquisitionFailed, "GetImageBuffer", err)
	}
	if f == nil {
		return nil, &Error{Kind: AcquisitionFailed, Op: "GetImageBuffer", Err: errors.New("driver returned no frame")}
	}
	defer func() {
		if err := s.dev.FreeImageBuffer(f); err != nil {
			s.logf("hikcam: free image buffer: %v", err)
		}
	}()
	if f.Data == nil {
		return nil, &Error{Kind: AcquisitionFailed, Op: "GetImageBuffer", Err: errors.New("frame has no buffer")}
	}
	s.pixel = f.Info.PixelType

	img, err := imgconv.Convert(imgconv.Raw{
		Data:      f.Data,
		Width:     f.Info.Width,
		Height:    f.Info.Height,
		PixelType: f.Info.PixelType,
		Length:    f.Info.FrameLen,
	})
	if err != nil {
		var u imgconv.UnsupportedPixelFormatError
		if errors.As(err, &u) {
			return nil, newError(UnsupportedPixelFormat, "Convert", err)
		}
		return nil, newError(AcquisitionFailed, "Convert", err)
	}
	return img, nil
}

// TriggerAndGetImage fires one software trigger and waits for its frame.
// The session must be configured for software triggering.  At most one
// trigger should be outstanding: a second trigger before the first frame is
// retrieved can cause frames to be skipped or paired with the wrong trigger.
func (s *Session) TriggerAndGetImage(timeout time.Duration) (*imgconv.BGR, error) {
	if s.cfg.TriggerMode != Software {
		return nil, &Error{Kind: WrongTriggerMode, Op: "TriggerSoftware",
			Err: fmt.Errorf("session trigger mode is %q", s.cfg.TriggerMode)}
	}
	if s.state != Streaming {
		return nil, &Error{Kind: NotStreaming, Op: "TriggerSoftware", Err: fmt.Errorf("session is %s", s.state)}
	}
	if err := s.dev.Command("TriggerSoftware"); err != nil {
		return nil, newError(AcquisitionFailed, "TriggerSoftware", err)
	}
	return s.GetImage(timeout)
}

// Close stops streaming, closes the camera and drops the session's SDK
// reference.  It always returns nil; teardown errors are logged.  Calling
// Close more than once is safe.
func (s *Session) Close() error {
	if s.state == Closed {
		return nil
	}
	runtime.SetFinalizer(s, nil)
	if s.state == Streaming {
		if err := s.dev.StopGrabbing(); err != nil {
			s.logf("hikcam: stop grabbing on close: %v", err)
		}
	}
	s.teardown()
	s.state = Closed
	return nil
}

// teardown releases whatever the session holds
func (s *Session) teardown() {
	if s.dev != nil {
		if s.open {
			if err := s.dev.Close(); err != nil {
				s.logf("hikcam: close device: %v", err)
			}
			s.open = false
		}
		if err := s.dev.Destroy(); err != nil {
			s.logf("hikcam: destroy handle: %v", err)
		}
		s.dev = nil
	}
	if !s.released {
		s.released = true
		if err := s.guard.Release(); err != nil {
			s.logf("hikcam: finalize SDK: %v", err)
		}
	}
}

func (s *Session) logf(format string, args ...interface{}) {
	if s.Logger != nil {
		s.Logger.Printf(format, args...)
	}
}

// State is the current lifecycle state
func (s *Session) State() State { return s.state }

// IsStreaming is true between Start and Stop
func (s *Session) IsStreaming() bool { return s.state == Streaming }

// DeviceInfo describes the connected camera
func (s *Session) DeviceInfo() DeviceInfo { return s.info }

// PayloadSize is the frame payload size read at connection
func (s *Session) PayloadSize() int64 { return s.payload }

// PixelType is the pixel format of the last frame retrieved, or
// pixfmt.Undefined before the first
func (s *Session) PixelType() pixfmt.PixelType { return s.pixel }

// Config is the session's configuration as updated by successful writes
func (s *Session) Config() Config { return s.cfg }

package hikcam

import (
	"errors"
	"fmt"

	"github.com/nasa-jpl/hikcam/mvs"
)

// ErrClosed is wrapped by errors from operations on a closed session
var ErrClosed = errors.New("session is closed")

// Kind classifies the failures of a capture session.  A Kind is itself an
// error so it can be the target of errors.Is.
type Kind int

const (
	// NoDeviceFound means enumeration found no cameras
	NoDeviceFound Kind = iota + 1

	// IndexOutOfRange means the configured camera index is past the end of
	// the enumerated list
	IndexOutOfRange

	// ConnectionFailed is any native failure while connecting
	ConnectionFailed

	// StreamStartFailed means StartGrabbing failed
	StreamStartFailed

	// StreamStopFailed means StopGrabbing failed
	StreamStopFailed

	// NotStreaming means an image was requested outside the Streaming state
	NotStreaming

	// AcquisitionTimeout means no frame arrived within the timeout
	AcquisitionTimeout

	// AcquisitionFailed is any other failure to acquire or decode a frame
	AcquisitionFailed

	// WrongTriggerMode means a software trigger was requested on a session
	// that is not software triggered
	WrongTriggerMode

	// UnsupportedPixelFormat means the frame's pixel format cannot be
	// converted
	UnsupportedPixelFormat

	// ParameterReadFailed means a parameter query failed
	ParameterReadFailed

	// ParameterWriteFailed means a parameter write failed
	ParameterWriteFailed

	// InvalidConfig means a value failed validation before reaching the device
	InvalidConfig
)

var kindNames = map[Kind]string{
	NoDeviceFound:          "NoDeviceFound",
	IndexOutOfRange:        "IndexOutOfRange",
	ConnectionFailed:       "ConnectionFailed",
	StreamStartFailed:      "StreamStartFailed",
	StreamStopFailed:       "StreamStopFailed",
	NotStreaming:           "NotStreaming",
	AcquisitionTimeout:     "AcquisitionTimeout",
	AcquisitionFailed:      "AcquisitionFailed",
	WrongTriggerMode:       "WrongTriggerMode",
	UnsupportedPixelFormat: "UnsupportedPixelFormat",
	ParameterReadFailed:    "ParameterReadFailed",
	ParameterWriteFailed:   "ParameterWriteFailed",
	InvalidConfig:          "InvalidConfig",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) Error() string {
	return k.String()
}

// Error is the error type returned by sessions
type Error struct {
	Kind Kind

	// Op is the native call or parameter that failed
	Op string

	// Code is the native status, zero if the failure did not come from the SDK
	Code mvs.Status

	// Err is the underlying error, if any
	Err error
}

func (e *Error) Error() string {
	s := "hikcam: " + e.Kind.String()
	if e.Op != "" {
		s += " (" + e.Op + ")"
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a Kind target against the error's kind
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// newError builds an *Error, lifting the native status out of err if it
// carries one
func newError(k Kind, op string, err error) *Error {
	e := &Error{Kind: k, Op: op, Err: err}
	var s mvs.Status
	if errors.As(err, &s) {
		e.Code = s
	}
	return e
}

// Warning reports a parameter write the session chose not to treat as an
// error
type Warning struct {
	// Param is the parameter that could not be written
	Param string

	// Code is the native status of the last attempt
	Code mvs.Status

	Err error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s not applied: %v", w.Param, w.Err)
}

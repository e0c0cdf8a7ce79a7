/*Package mvs exposes the Hikrobot Machine Vision (MVS) camera SDK to Go.

The SDK is reached through the Library and Device interfaces.  The real
binding is compiled with the "mvs" build tag and links against
libMvCameraControl; without the tag, Native returns a library whose every call
fails with ErrNotAvailable.  This lets the rest of the module, and its tests,
build on machines without the vendor runtime.

Every SDK call returns an unsigned status; 0 is success.  Non-zero codes are
returned as Status, which satisfies error and carries the SDK's name for the
code.

Frames returned by GetImageBuffer are borrowed from the driver.  Their Data
slice aliases driver memory and is invalid once FreeImageBuffer is called;
copy out of it first.
*/
package mvs

import (
	"errors"
	"fmt"
	"time"
	"unsafe"

	"github.com/nasa-jpl/hikcam/pixfmt"
)

var (
	// ErrNotAvailable is returned by every call of the stub library
	ErrNotAvailable = errors.New("MVS SDK not available - build with -tags mvs")

	// ErrCodes maps status codes to the names in MvErrorDefine.h
	ErrCodes = map[Status]string{
		0x00000000: "MV_OK",
		0x80000000: "MV_E_HANDLE",
		0x80000001: "MV_E_SUPPORT",
		0x80000002: "MV_E_BUFOVER",
		0x80000003: "MV_E_CALLORDER",
		0x80000004: "MV_E_PARAMETER",
		0x80000006: "MV_E_RESOURCE",
		0x80000007: "MV_E_NODATA",
		0x80000008: "MV_E_PRECONDITION",
		0x80000009: "MV_E_VERSION",
		0x8000000A: "MV_E_NOENOUGH_BUF",
		0x8000000B: "MV_E_ABNORMAL_IMAGE",
		0x8000000C: "MV_E_LOAD_LIBRARY",
		0x8000000D: "MV_E_NOOUTBUF",
		0x8000000E: "MV_E_ENCRYPT",
		0x8000000F: "MV_E_OPENFILE",
		0x80000010: "MV_E_BUF_IN_USE",
		0x80000011: "MV_E_BUF_INVALID",
		0x80000012: "MV_E_NOALIGN_BUF",
		0x80000013: "MV_E_NOENOUGH_BUF_NUM",
		0x80000014: "MV_E_PORT_IN_USE",
		0x80000015: "MV_E_IMAGE_DECODEC",
		0x80000016: "MV_E_UINT32_LIMIT",
		0x80000017: "MV_E_IMAGE_HEIGHT",
		0x80000018: "MV_E_NOENOUGH_DDR",
		0x80000019: "MV_E_NOENOUGH_STREAM",
		0x8000001A: "MV_E_NORESPONSE",
		0x800000FF: "MV_E_UNKNOW",

		// GenICam
		0x80000100: "MV_E_GC_GENERIC",
		0x80000101: "MV_E_GC_ARGUMENT",
		0x80000102: "MV_E_GC_RANGE",
		0x80000103: "MV_E_GC_PROPERTY",
		0x80000104: "MV_E_GC_RUNTIME",
		0x80000105: "MV_E_GC_LOGICAL",
		0x80000106: "MV_E_GC_ACCESS",
		0x80000107: "MV_E_GC_TIMEOUT",
		0x80000108: "MV_E_GC_DYNAMICCAST",
		0x800001FF: "MV_E_GC_UNKNOW",

		// GigE
		0x80000200: "MV_E_NOT_IMPLEMENTED",
		0x80000201: "MV_E_INVALID_ADDRESS",
		0x80000202: "MV_E_WRITE_PROTECT",
		0x80000203: "MV_E_ACCESS_DENIED",
		0x80000204: "MV_E_BUSY",
		0x80000205: "MV_E_PACKET",
		0x80000206: "MV_E_NETER",
		0x80000221: "MV_E_IP_CONFLICT",

		// USB
		0x80000300: "MV_E_USB_READ",
		0x80000301: "MV_E_USB_WRITE",
		0x80000302: "MV_E_USB_DEVICE",
		0x80000303: "MV_E_USB_GENICAM",
		0x80000304: "MV_E_USB_BANDWIDTH",
		0x80000305: "MV_E_USB_DRIVER",
		0x800003FF: "MV_E_USB_UNKNOW",
	}
)

// frequently inspected codes
const (
	OK           Status = 0x00000000
	EHandle      Status = 0x80000000
	ESupport     Status = 0x80000001
	ECallOrder   Status = 0x80000003
	EParameter   Status = 0x80000004
	EResource    Status = 0x80000006
	ENoData      Status = 0x80000007
	ELoadLibrary Status = 0x8000000C
	EGCProp      Status = 0x80000103
	EGCAccess    Status = 0x80000106
	EGCTimeout   Status = 0x80000107
	EAccess      Status = 0x80000203
	EBusy        Status = 0x80000204
)

// Status is a status code returned by the SDK
type Status uint32

func (s Status) Error() string {
	if name, ok := ErrCodes[s]; ok {
		return fmt.Sprintf("0x%08x - %s", uint32(s), name)
	}
	return fmt.Sprintf("0x%08x - UNKNOWN_ERROR_CODE", uint32(s))
}

// Timeout is true for the codes the SDK uses when no frame arrived in time
func (s Status) Timeout() bool {
	return s == ENoData || s == EGCTimeout
}

// Error returns nil for MV_OK and a Status for anything else
func Error(code uint32) error {
	if code == 0 {
		return nil
	}
	return Status(code)
}

// TransportLayer is a bitmask of device transport layers
type TransportLayer uint32

const (
	// LayerUnknown is reported for devices the SDK cannot classify
	LayerUnknown TransportLayer = 0x0

	// LayerGigE is a GigE Vision device
	LayerGigE TransportLayer = 0x1

	// LayerUSB is a USB3 Vision device
	LayerUSB TransportLayer = 0x4

	// LayerCameraLink is a legacy serial CameraLink device
	LayerCameraLink TransportLayer = 0x8

	// LayerGenTLGigE is a GigE device reached through a GenTL producer
	LayerGenTLGigE TransportLayer = 0x40

	// LayerGenTLCameraLink is a CameraLink frame grabber device
	LayerGenTLCameraLink TransportLayer = 0x80

	// LayerGenTLCXP is a CoaXPress frame grabber device
	LayerGenTLCXP TransportLayer = 0x100

	// LayerGenTLXoF is a fibre (XoF) frame grabber device
	LayerGenTLXoF TransportLayer = 0x200

	// LayerAll is every layer a capture session enumerates
	LayerAll = LayerGigE | LayerUSB | LayerGenTLCameraLink | LayerGenTLCXP | LayerGenTLXoF
)

// AccessMode is how a device is opened
type AccessMode uint32

const (
	// AccessExclusive grants sole control of the device
	AccessExclusive AccessMode = 1

	// AccessControl grants control while allowing other readers
	AccessControl AccessMode = 3

	// AccessMonitor is read only
	AccessMonitor AccessMode = 7
)

// enum values for the trigger features
const (
	TriggerModeOff uint32 = 0
	TriggerModeOn  uint32 = 1

	TriggerSourceLine0    uint32 = 0
	TriggerSourceSoftware uint32 = 7
)

// DeviceRecord is the raw description of one enumerated device.  String
// fields hold the NUL padded bytes exactly as the SDK reported them.
type DeviceRecord struct {
	// Layer is the transport the device was found on
	Layer TransportLayer

	// ModelName is the chModelName field
	ModelName []byte

	// SerialNumber is the chSerialNumber field
	SerialNumber []byte

	// ManufacturerName is the vendor / manufacturer field
	ManufacturerName []byte

	// UserDefinedName is the user programmable name
	UserDefinedName []byte

	// CurrentIP is the big-endian packed IPv4 address, GigE only
	CurrentIP uint32

	// Native points at the SDK's MV_CC_DEVICE_INFO.  It is owned by the SDK
	// and valid until the next enumeration.
	Native unsafe.Pointer
}

// FrameInfo is the metadata of an acquired frame
type FrameInfo struct {
	Width     int
	Height    int
	PixelType pixfmt.PixelType
	FrameLen  int
	FrameNum  uint32
}

// Frame is a frame buffer borrowed from the driver
type Frame struct {
	// Data aliases driver memory.  It must not be retained past
	// FreeImageBuffer.
	Data []byte

	Info FrameInfo

	// Native is the driver's frame descriptor, handed back on release
	Native unsafe.Pointer
}

// Library is the process-wide half of the SDK
type Library interface {
	// Initialize must be called once before any other call
	Initialize() error

	// Finalize releases the SDK's global resources
	Finalize() error

	// EnumDevices lists the devices on the given transport layers
	EnumDevices(layers TransportLayer) ([]DeviceRecord, error)

	// CreateHandle creates an unopened handle to a device
	CreateHandle(rec DeviceRecord) (Device, error)
}

// Device is a handle to a single camera
type Device interface {
	Open(mode AccessMode) error
	Close() error

	// Destroy frees the handle itself.  The device is unusable afterwards.
	Destroy() error

	// OptimalPacketSize is the GigE packet size the SDK recommends.  It is
	// zero or negative if the device does not support it.
	OptimalPacketSize() int

	GetInt(key string) (int64, error)
	SetInt(key string, value int64) error
	GetFloat(key string) (float64, error)
	SetFloat(key string, value float64) error
	GetEnum(key string) (uint32, error)
	SetEnum(key string, value uint32) error

	// Command executes a command feature such as TriggerSoftware
	Command(key string) error

	StartGrabbing() error
	StopGrabbing() error

	// GetImageBuffer waits up to timeout for the next frame
	GetImageBuffer(timeout time.Duration) (*Frame, error)

	// FreeImageBuffer returns a frame to the driver
	FreeImageBuffer(f *Frame) error
}

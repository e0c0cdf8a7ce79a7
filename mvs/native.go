//go:build mvs

package mvs

/*
#cgo CFLAGS: -I/opt/MVS/include
#cgo LDFLAGS: -L/opt/MVS/lib/64 -lMvCameraControl
#include <stdlib.h>
#include <string.h>
#include <MvCameraControl.h>

static MV_GIGE_DEVICE_INFO* gigeInfo(MV_CC_DEVICE_INFO* d) { return &d->SpecialInfo.stGigEInfo; }
static MV_USB3_DEVICE_INFO* usbInfo(MV_CC_DEVICE_INFO* d) { return &d->SpecialInfo.stUsb3VInfo; }
static MV_CML_DEVICE_INFO* cmlInfo(MV_CC_DEVICE_INFO* d) { return &d->SpecialInfo.stCMLInfo; }
static MV_CXP_DEVICE_INFO* cxpInfo(MV_CC_DEVICE_INFO* d) { return &d->SpecialInfo.stCXPInfo; }
static MV_XOF_DEVICE_INFO* xofInfo(MV_CC_DEVICE_INFO* d) { return &d->SpecialInfo.stXoFInfo; }
*/
import "C"
import (
	"sync"
	"time"
	"unsafe"

	"github.com/nasa-jpl/hikcam/pixfmt"
)

// Native returns the SDK linked into this binary
func Native() Library {
	return &library{}
}

// library serializes enumeration against finalization.  The descriptors the
// SDK points the list at stay owned by the SDK until the next enumeration.
type library struct {
	mu sync.Mutex
}

func (l *library) Initialize() error {
	return Error(uint32(C.MV_CC_Initialize()))
}

func (l *library) Finalize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Error(uint32(C.MV_CC_Finalize()))
}

func (l *library) EnumDevices(layers TransportLayer) ([]DeviceRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	list := (*C.MV_CC_DEVICE_INFO_LIST)(C.calloc(1, C.sizeof_MV_CC_DEVICE_INFO_LIST))
	if list == nil {
		return nil, EResource
	}
	defer C.free(unsafe.Pointer(list))
	err := Error(uint32(C.MV_CC_EnumDevices(C.uint(layers), list)))
	if err != nil {
		return nil, err
	}
	n := int(list.nDeviceNum)
	out := make([]DeviceRecord, 0, n)
	for i := 0; i < n; i++ {
		d := list.pDeviceInfo[i]
		if d == nil {
			continue
		}
		out = append(out, record(d))
	}
	return out, nil
}

// record copies the fields of interest out of the SDK's descriptor
func record(d *C.MV_CC_DEVICE_INFO) DeviceRecord {
	rec := DeviceRecord{Layer: TransportLayer(d.nTLayerType), Native: unsafe.Pointer(d)}
	switch rec.Layer {
	case LayerGigE, LayerGenTLGigE:
		g := C.gigeInfo(d)
		rec.ModelName = chars(&g.chModelName[0], len(g.chModelName))
		rec.SerialNumber = chars(&g.chSerialNumber[0], len(g.chSerialNumber))
		rec.ManufacturerName = chars(&g.chManufacturerName[0], len(g.chManufacturerName))
		rec.UserDefinedName = chars(&g.chUserDefinedName[0], len(g.chUserDefinedName))
		rec.CurrentIP = uint32(g.nCurrentIp)
	case LayerUSB:
		u := C.usbInfo(d)
		rec.ModelName = chars(&u.chModelName[0], len(u.chModelName))
		rec.SerialNumber = chars(&u.chSerialNumber[0], len(u.chSerialNumber))
		rec.ManufacturerName = chars(&u.chManufacturerName[0], len(u.chManufacturerName))
		rec.UserDefinedName = chars(&u.chUserDefinedName[0], len(u.chUserDefinedName))
	case LayerGenTLCameraLink:
		c := C.cmlInfo(d)
		rec.ModelName = chars(&c.chModelName[0], len(c.chModelName))
		rec.SerialNumber = chars(&c.chSerialNumber[0], len(c.chSerialNumber))
		rec.ManufacturerName = chars(&c.chVendorName[0], len(c.chVendorName))
		rec.UserDefinedName = chars(&c.chUserDefinedName[0], len(c.chUserDefinedName))
	case LayerGenTLCXP:
		c := C.cxpInfo(d)
		rec.ModelName = chars(&c.chModelName[0], len(c.chModelName))
		rec.SerialNumber = chars(&c.chSerialNumber[0], len(c.chSerialNumber))
		rec.ManufacturerName = chars(&c.chVendorName[0], len(c.chVendorName))
		rec.UserDefinedName = chars(&c.chUserDefinedName[0], len(c.chUserDefinedName))
	case LayerGenTLXoF:
		x := C.xofInfo(d)
		rec.ModelName = chars(&x.chModelName[0], len(x.chModelName))
		rec.SerialNumber = chars(&x.chSerialNumber[0], len(x.chSerialNumber))
		rec.ManufacturerName = chars(&x.chVendorName[0], len(x.chVendorName))
		rec.UserDefinedName = chars(&x.chUserDefinedName[0], len(x.chUserDefinedName))
	}
	return rec
}

// chars copies a fixed size unsigned char array
func chars(p *C.uchar, n int) []byte {
	return C.GoBytes(unsafe.Pointer(p), C.int(n))
}

func (l *library) CreateHandle(rec DeviceRecord) (Device, error) {
	if rec.Native == nil {
		return nil, EParameter
	}
	d := &device{}
	err := Error(uint32(C.MV_CC_CreateHandle(&d.h, (*C.MV_CC_DEVICE_INFO)(rec.Native))))
	if err != nil {
		return nil, err
	}
	return d, nil
}

type device struct {
	h unsafe.Pointer
}

func (d *device) Open(mode AccessMode) error {
	return Error(uint32(C.MV_CC_OpenDevice(d.h, C.uint(mode), 0)))
}

func (d *device) Close() error {
	return Error(uint32(C.MV_CC_CloseDevice(d.h)))
}

func (d *device) Destroy() error {
	if d.h == nil {
		return nil
	}
	err := Error(uint32(C.MV_CC_DestroyHandle(d.h)))
	d.h = nil
	return err
}

func (d *device) OptimalPacketSize() int {
	return int(C.MV_CC_GetOptimalPacketSize(d.h))
}

func (d *device) GetInt(key string) (int64, error) {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	var v C.MVCC_INTVALUE_EX
	err := Error(uint32(C.MV_CC_GetIntValueEx(d.h, ckey, &v)))
	return int64(v.nCurValue), err
}

func (d *device) SetInt(key string, value int64) error {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	return Error(uint32(C.MV_CC_SetIntValueEx(d.h, ckey, C.int64_t(value))))
}

func (d *device) GetFloat(key string) (float64, error) {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	var v C.MVCC_FLOATVALUE
	err := Error(uint32(C.MV_CC_GetFloatValue(d.h, ckey, &v)))
	return float64(v.fCurValue), err
}

func (d *device) SetFloat(key string, value float64) error {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	return Error(uint32(C.MV_CC_SetFloatValue(d.h, ckey, C.float(value))))
}

func (d *device) GetEnum(key string) (uint32, error) {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	var v C.MVCC_ENUMVALUE
	err := Error(uint32(C.MV_CC_GetEnumValue(d.h, ckey, &v)))
	return uint32(v.nCurValue), err
}

func (d *device) SetEnum(key string, value uint32) error {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	return Error(uint32(C.MV_CC_SetEnumValue(d.h, ckey, C.uint(value))))
}

func (d *device) Command(key string) error {
	ckey := C.CString(key)
	defer C.free(unsafe.Pointer(ckey))
	return Error(uint32(C.MV_CC_SetCommandValue(d.h, ckey)))
}

func (d *device) StartGrabbing() error {
	return Error(uint32(C.MV_CC_StartGrabbing(d.h)))
}

func (d *device) StopGrabbing() error {
	return Error(uint32(C.MV_CC_StopGrabbing(d.h)))
}

func (d *device) GetImageBuffer(timeout time.Duration) (*Frame, error) {
	// the descriptor lives in C memory; it is handed back on release
	out := (*C.MV_FRAME_OUT)(C.malloc(C.sizeof_MV_FRAME_OUT))
	C.memset(unsafe.Pointer(out), 0, C.sizeof_MV_FRAME_OUT)
	tout := C.uint(timeout.Milliseconds())
	err := Error(uint32(C.MV_CC_GetImageBuffer(d.h, out, tout)))
	if err != nil {
		C.free(unsafe.Pointer(out))
		return nil, err
	}
	info := out.stFrameInfo
	f := &Frame{
		Info: FrameInfo{
			Width:     int(info.nWidth),
			Height:    int(info.nHeight),
			PixelType: pixfmt.PixelType(info.enPixelType),
			FrameLen:  int(info.nFrameLen),
			FrameNum:  uint32(info.nFrameNum),
		},
		Native: unsafe.Pointer(out),
	}
	if out.pBufAddr != nil {
		f.Data = unsafe.Slice((*byte)(unsafe.Pointer(out.pBufAddr)), f.Info.FrameLen)
	}
	return f, nil
}

func (d *device) FreeImageBuffer(f *Frame) error {
	if f == nil || f.Native == nil {
		return nil
	}
	out := (*C.MV_FRAME_OUT)(f.Native)
	err := Error(uint32(C.MV_CC_FreeImageBuffer(d.h, out)))
	C.free(f.Native)
	f.Native = nil
	f.Data = nil
	return err
}

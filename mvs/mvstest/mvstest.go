/*Package mvstest provides an in-memory MVS SDK for tests and for running the
command line tools without a camera.

Every handle created from one Library shares a single feature store and a
single frame source.  Failures are injected per operation with Fail.
*/
package mvstest

import (
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/nasa-jpl/hikcam/mvs"
	"github.com/nasa-jpl/hikcam/pixfmt"
)

// Poison is written over a frame buffer when it is released, so a caller
// that kept the slice sees garbage instead of the frame
const Poison = 0xEE

// Camera describes a simulated device
type Camera struct {
	Layer  mvs.TransportLayer
	Model  string
	Serial string
	Vendor string

	// IP is reported for GigE devices
	IP net.IP

	// RawModel overrides Model with undecoded bytes
	RawModel []byte
}

// Frame is a frame the library serves from GetImageBuffer
type Frame struct {
	Width, Height int
	PixelType     pixfmt.PixelType
	Data          []byte
}

// Library is a fake mvs.Library.  Counters are updated under a lock; read
// them once the calls under test have returned.
type Library struct {
	mu sync.Mutex

	Cameras []Camera

	// Frames are served round robin
	Frames []Frame

	// PacketSize is reported by OptimalPacketSize
	PacketSize int

	Ints   map[string]int64
	Floats map[string]float64
	Enums  map[string]uint32

	fail map[string]mvs.Status

	Initialized int
	Finalized   int
	Enumerated  int
	Created     int
	Opened      int
	Closed      int
	Destroyed   int
	Started     int
	Stopped     int
	Grabbed     int
	Released    int

	// Commands counts executed command features by name
	Commands map[string]int

	// Writes records every successful Set* in order as "Kind Feature"
	Writes []string

	grabbing bool
	pending  int
	next     int
}

// NewLibrary returns a library exposing cams with the feature set of a
// typical area scan camera
func NewLibrary(cams ...Camera) *Library {
	return &Library{
		Cameras:    cams,
		PacketSize: 8164,
		Ints: map[string]int64{
			"Width":             1280,
			"Height":            720,
			"OffsetX":           0,
			"OffsetY":           0,
			"PayloadSize":       1280 * 720,
			"GevSCPSPacketSize": 1500,
		},
		Floats: map[string]float64{
			"ExposureTime":         10000,
			"Gain":                 0,
			"AcquisitionFrameRate": 30,
		},
		Enums: map[string]uint32{
			"TriggerMode":   mvs.TriggerModeOff,
			"TriggerSource": mvs.TriggerSourceLine0,
			"PixelFormat":   uint32(pixfmt.Mono8),
		},
		fail:     map[string]mvs.Status{},
		Commands: map[string]int{},
	}
}

// GigE is a convenience for a GigE camera at ip
func GigE(model, serial, ip string) Camera {
	return Camera{Layer: mvs.LayerGigE, Model: model, Serial: serial, Vendor: "Hikrobot", IP: net.ParseIP(ip)}
}

// USB is a convenience for a USB3 Vision camera
func USB(model, serial string) Camera {
	return Camera{Layer: mvs.LayerUSB, Model: model, Serial: serial, Vendor: "Hikrobot"}
}

// Fail makes op return status.  op is a bare operation name (Initialize,
// EnumDevices, CreateHandle, Open, Close, Destroy, StartGrabbing,
// StopGrabbing, GetImageBuffer, FreeImageBuffer) or an accessor and feature,
// e.g. "SetFloat Gain" or "Command TriggerSoftware".  A zero status clears
// the failure.
func (l *Library) Fail(op string, status mvs.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if status == mvs.OK {
		delete(l.fail, op)
		return
	}
	l.fail[op] = status
}

func (l *Library) failed(op string) error {
	if s, ok := l.fail[op]; ok {
		return s
	}
	return nil
}

// Pending is the number of software triggers not yet consumed by a grab
func (l *Library) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}

// Grabbing reports whether the stream is running
func (l *Library) Grabbing() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.grabbing
}

func (l *Library) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.failed("Initialize"); err != nil {
		return err
	}
	l.Initialized++
	return nil
}

func (l *Library) Finalize() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Finalized++
	return l.failed("Finalize")
}

func (l *Library) EnumDevices(layers mvs.TransportLayer) ([]mvs.DeviceRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.failed("EnumDevices"); err != nil {
		return nil, err
	}
	l.Enumerated++
	var out []mvs.DeviceRecord
	for _, c := range l.Cameras {
		if c.Layer != mvs.LayerUnknown && layers&c.Layer == 0 {
			continue
		}
		out = append(out, c.record())
	}
	return out, nil
}

func (c Camera) record() mvs.DeviceRecord {
	rec := mvs.DeviceRecord{
		Layer:            c.Layer,
		ModelName:        padded(c.Model, 32),
		SerialNumber:     padded(c.Serial, 16),
		ManufacturerName: padded(c.Vendor, 32),
	}
	if c.RawModel != nil {
		rec.ModelName = c.RawModel
	}
	if ip4 := c.IP.To4(); ip4 != nil {
		rec.CurrentIP = binary.BigEndian.Uint32(ip4)
	}
	return rec
}

// padded mimics a fixed size char array
func padded(s string, n int) []byte {
	b := make([]byte, n)
	copy(b, s)
	return b
}

func (l *Library) CreateHandle(rec mvs.DeviceRecord) (mvs.Device, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.failed("CreateHandle"); err != nil {
		return nil, err
	}
	l.Created++
	return &device{lib: l, layer: rec.Layer}, nil
}

type device struct {
	lib       *Library
	layer     mvs.TransportLayer
	open      bool
	destroyed bool
}

func (d *device) op(name string) error {
	if d.destroyed {
		return mvs.EHandle
	}
	return d.lib.failed(name)
}

func (d *device) Open(mode mvs.AccessMode) error {
	d.lib.mu.Lock()
	defer d.lib.mu.Unlock()
	if err := d.op("Open"); err != nil {
		return err
	}
	d.open = true
	d.lib.Opened++
	return nil
}

func (d *device) Close() error {
	d.lib.mu.Lock()
	defer d.lib.mu.Unlock()
	if err := d.op("Close"); err != nil {
		return err
	}
	if !d.open {
		return mvs.ECallOrder
	}
	d.open = false
	d.lib.grabbing = false
	d.lib.Closed++
	return nil
}

func (d *device) Destroy() error {
	d.lib.mu.Lock()
	defer d.lib.mu.Unlock()
	if err := d.op("Destroy"); err != nil {
		return err
	}
	d.destroyed = true
	d.lib.Destroyed++
	return nil
}

func (d *device) OptimalPacketSize() int {
	d.lib.mu.Lock()
	defer d.lib.mu.Unlock()
	if d.layer != mvs.LayerGigE && d.layer != mvs.LayerGenTLGigE {
		return 0
	}
	return d.lib.PacketSize
}

// access guards every feature read or write
func (d *device) access(op, key string) error {
	if err := d.op(op + " " + key); err != nil {
		return err
	}
	if !d.open {
		return mvs.ECallOrder
	}
	return nil
}

// wrongType is the status for a feature that exists with another type
func (d *device) wrongType(key string) error {
	_, i := d.lib.Ints[key]
	_, f := d.lib.Floats[key]
	_, e := d.lib.Enums[key]
	if i || f || e {
		return mvs.EGCProp
	}
	return mvs.ESupport
}

func (d *device) GetInt(key string) (int64, error) {
	d.lib.mu.Lock()
	defer d.lib.mu.Unlock()
	if err := d.access("GetInt", key); err != nil {
		return 0, err
	}
	v, ok := d.lib.Ints[key]
	if !ok {
		return 0, d.wrongType(key)
	}
	return v, nil
}

func (d *device) SetInt(key string, value int64) error {
	d.lib.mu.Lock()
	defer d.lib.mu.Unlock()
	if err := d.access("SetInt", key); err != nil {
		return err
	}
	if _, ok := d.lib.Ints[key]; !ok {
		return d.wrongType(key)
	}
	d.lib.Ints[key] = value
	d.lib.Writes = append(d.lib.Writes, "Int "+key)
	return nil
}

func (d *device) GetFloat(key string) (float64, error) {
	d.lib.mu.Lock()
	defer d.lib.mu.Unlock()
	if err := d.access("GetFloat", key); err != nil {
		return 0, err
	}
	v, ok := d.lib.Floats[key]
	if !ok {
		return 0, d.wrongType(key)
	}
	return v, nil
}

func (d *device) SetFloat(key string, value float64) error {
	d.lib.mu.Lock()
	defer d.lib.mu.Unlock()
	if err := d.access("SetFloat", key); err != nil {
		return err
	}
	if _, ok := d.lib.Floats[key]; !ok {
		return d.wrongType(key)
	}
	d.lib.Floats[key] = value
	d.lib.Writes = append(d.lib.Writes, "Float "+key)
	return nil
}

func (d *device) GetEnum(key string) (uint32, error) {
	d.lib.mu.Lock()
	defer d.lib.mu.Unlock()
	if err := d.access("GetEnum", key); err != nil {
		return 0, err
	}
	v, ok := d.lib.Enums[key]
	if !ok {
		return 0, d.wrongType(key)
	}
	return v, nil
}

func (d *device) SetEnum(key string, value uint32) error {
	d.lib.mu.Lock()
	defer d.lib.mu.Unlock()
	if err := d.access("SetEnum", key); err != nil {
		return err
	}
	if _, ok := d.lib.Enums[key]; !ok {
		return d.wrongType(key)
	}
	d.lib.Enums[key] = value
	d.lib.Writes = append(d.lib.Writes, "Enum "+key)
	return nil
}

func (d *device) Command(key string) error {
	d.lib.mu.Lock()
	defer d.lib.mu.Unlock()
	if err := d.access("Command", key); err != nil {
		return err
	}
	d.lib.Commands[key]++
	if key == "TriggerSoftware" {
		d.lib.pending++
	}
	return nil
}

func (d *device) StartGrabbing() error {
	d.lib.mu.Lock()
	defer d.lib.mu.Unlock()
	if err := d.op("StartGrabbing"); err != nil {
		return err
	}
	if !d.open {
		return mvs.ECallOrder
	}
	d.lib.grabbing = true
	d.lib.Started++
	return nil
}

func (d *device) StopGrabbing() error {
	d.lib.mu.Lock()
	defer d.lib.mu.Unlock()
	if err := d.op("StopGrabbing"); err != nil {
		return err
	}
	d.lib.grabbing = false
	d.lib.pending = 0
	d.lib.Stopped++
	return nil
}

// GetImageBuffer never blocks; with nothing to serve it reports MV_E_NODATA
// as the SDK does when the timeout expires
func (d *device) GetImageBuffer(timeout time.Duration) (*mvs.Frame, error) {
	d.lib.mu.Lock()
	defer d.lib.mu.Unlock()
	if err := d.op("GetImageBuffer"); err != nil {
		return nil, err
	}
	if !d.lib.grabbing {
		return nil, mvs.ECallOrder
	}
	if len(d.lib.Frames) == 0 {
		return nil, mvs.ENoData
	}
	if d.lib.Enums["TriggerMode"] == mvs.TriggerModeOn {
		if d.lib.pending == 0 {
			return nil, mvs.ENoData
		}
		d.lib.pending--
	}
	src := d.lib.Frames[d.lib.next%len(d.lib.Frames)]
	d.lib.next++
	d.lib.Grabbed++
	buf := make([]byte, len(src.Data))
	copy(buf, src.Data)
	return &mvs.Frame{
		Data: buf,
		Info: mvs.FrameInfo{
			Width:     src.Width,
			Height:    src.Height,
			PixelType: src.PixelType,
			FrameLen:  len(buf),
			FrameNum:  uint32(d.lib.Grabbed),
		},
	}, nil
}

func (d *device) FreeImageBuffer(f *mvs.Frame) error {
	d.lib.mu.Lock()
	defer d.lib.mu.Unlock()
	for i := range f.Data {
		f.Data[i] = Poison
	}
	d.lib.Released++
	return d.op("FreeImageBuffer")
}

// Outstanding is the number of frames handed out and not yet released
func (l *Library) Outstanding() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Grabbed - l.Released
}

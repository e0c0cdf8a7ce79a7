package hikcam

import (
	"bytes"
	"fmt"
	"net"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/nasa-jpl/hikcam/mvs"
)

// TransportType is the physical interface a camera is attached by
type TransportType string

const (
	GigE       TransportType = "GigE"
	USB3Vision TransportType = "USB3 Vision"
	CameraLink TransportType = "CameraLink"
	CoaXPress  TransportType = "CoaXPress"
	XoF        TransportType = "XoF"
	Unknown    TransportType = "Unknown"
)

// DeviceInfo describes one enumerated camera
type DeviceInfo struct {
	// Index is the position in the enumeration it came from.  It is only
	// stable within that enumeration.
	Index int `json:"index"`

	Transport TransportType `json:"transport"`

	Model string `json:"model"`

	Serial string `json:"serial"`

	Vendor string `json:"vendor,omitempty"`

	// UserName is the user programmable device name
	UserName string `json:"userName,omitempty"`

	// IP is only set for GigE cameras
	IP net.IP `json:"ip,omitempty"`
}

func (d DeviceInfo) String() string {
	s := fmt.Sprintf("[%d] %s %s (%s)", d.Index, d.Transport, d.Model, d.Serial)
	if d.IP != nil {
		s += " " + d.IP.String()
	}
	return s
}

// Transport maps a transport layer to its interface type
func Transport(l mvs.TransportLayer) TransportType {
	switch l {
	case mvs.LayerGigE, mvs.LayerGenTLGigE:
		return GigE
	case mvs.LayerUSB:
		return USB3Vision
	case mvs.LayerCameraLink, mvs.LayerGenTLCameraLink:
		return CameraLink
	case mvs.LayerGenTLCXP:
		return CoaXPress
	case mvs.LayerGenTLXoF:
		return XoF
	}
	return Unknown
}

// ExtractDeviceInfo converts a raw device record.  It never fails; text
// that cannot be decoded cleanly is decoded lossily.
func ExtractDeviceInfo(index int, rec mvs.DeviceRecord) DeviceInfo {
	info := DeviceInfo{
		Index:     index,
		Transport: Transport(rec.Layer),
		Model:     DecodeText(rec.ModelName),
		Serial:    DecodeText(rec.SerialNumber),
		Vendor:    DecodeText(rec.ManufacturerName),
		UserName:  DecodeText(rec.UserDefinedName),
	}
	if info.Transport == GigE {
		ip := rec.CurrentIP
		info.IP = net.IPv4(byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip))
	}
	return info
}

// DecodeText decodes a NUL padded device string.  GBK is tried first, as
// used by the vendor's Chinese firmware, then UTF-8, then Latin-1.
func DecodeText(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if len(b) == 0 {
		return ""
	}
	if !gbkEuroLead(b) {
		if s, err := simplifiedchinese.GBK.NewDecoder().Bytes(b); err == nil && !bytes.ContainsRune(s, utf8.RuneError) {
			return string(s)
		}
	}
	if utf8.Valid(b) {
		return string(b)
	}
	if s, err := charmap.ISO8859_1.NewDecoder().Bytes(b); err == nil {
		return string(s)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// gbkEuroLead is true when 0x80 appears where a GBK lead byte is expected.
// The decoder maps it to the euro sign; strict GBK has no such character.
func gbkEuroLead(b []byte) bool {
	for i := 0; i < len(b); {
		switch {
		case b[i] < 0x80:
			i++
		case b[i] == 0x80:
			return true
		default:
			i += 2
		}
	}
	return false
}

// Enumerate lists the cameras on every transport a session can connect over
func Enumerate(g *Guard) ([]DeviceInfo, error) {
	if err := g.Acquire(); err != nil {
		return nil, fmt.Errorf("hikcam: initialize SDK: %w", err)
	}
	defer g.Release()
	recs, err := g.Library().EnumDevices(mvs.LayerAll)
	if err != nil {
		return nil, fmt.Errorf("hikcam: enumerate devices: %w", err)
	}
	out := make([]DeviceInfo, len(recs))
	for i, r := range recs {
		out[i] = ExtractDeviceInfo(i, r)
	}
	return out, nil
}

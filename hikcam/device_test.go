package hikcam_test

import (
	"errors"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/nasa-jpl/hikcam/hikcam"
	"github.com/nasa-jpl/hikcam/mvs"
	"github.com/nasa-jpl/hikcam/mvs/mvstest"
)

func TestDecodeTextStopsAtNUL(t *testing.T) {
	got := hikcam.DecodeText([]byte{'M', 'V', '-', 'C', 'A', 0, 'x', 'y'})
	if got != "MV-CA" {
		t.Errorf("expected MV-CA, got %q", got)
	}
	if got := hikcam.DecodeText(make([]byte, 16)); got != "" {
		t.Errorf("expected empty string for an empty field, got %q", got)
	}
}

func TestDecodeTextGBK(t *testing.T) {
	raw, err := simplifiedchinese.GBK.NewEncoder().String("海康")
	if err != nil {
		t.Fatal(err)
	}
	if got := hikcam.DecodeText(append([]byte(raw), 0, 0)); got != "海康" {
		t.Errorf("expected 海康, got %q", got)
	}
}

func TestDecodeTextLatin1Fallback(t *testing.T) {
	if got := hikcam.DecodeText([]byte{0x41, 0xFF}); got != "Aÿ" {
		t.Errorf("expected Aÿ, got %q", got)
	}
}

func TestDecodeTextLoneEuroByte(t *testing.T) {
	if got := hikcam.DecodeText([]byte{'A', 0x80, 'B'}); got != "A\u0080B" {
		t.Errorf("expected the Latin-1 fallback A\\u0080B, got %q", got)
	}
	// 0x80 is a valid trailing byte
	if got := hikcam.DecodeText([]byte{'A', 0x81, 0x80}); got != "A亐" {
		t.Errorf("expected A亐, got %q", got)
	}
}

func TestExtractGigE(t *testing.T) {
	rec := mvs.DeviceRecord{
		Layer:        mvs.LayerGigE,
		ModelName:    []byte("MV-CA050-10GC\x00\x00\x00"),
		SerialNumber: []byte("DA0001\x00"),
		CurrentIP:    0xC0A8010A,
	}
	info := hikcam.ExtractDeviceInfo(3, rec)
	if info.Index != 3 || info.Transport != hikcam.GigE {
		t.Errorf("expected index 3 over GigE, got %s", info)
	}
	if info.Model != "MV-CA050-10GC" || info.Serial != "DA0001" {
		t.Errorf("expected model and serial without padding, got %q %q", info.Model, info.Serial)
	}
	if info.IP.String() != "192.168.1.10" {
		t.Errorf("expected 192.168.1.10, got %s", info.IP)
	}
}

func TestExtractUSBHasNoIP(t *testing.T) {
	info := hikcam.ExtractDeviceInfo(0, mvs.DeviceRecord{Layer: mvs.LayerUSB, ModelName: []byte("MV-CS016")})
	if info.Transport != hikcam.USB3Vision || info.IP != nil {
		t.Errorf("expected USB3 Vision without IP, got %s", info)
	}
}

func TestTransportUnknown(t *testing.T) {
	if got := hikcam.Transport(mvs.TransportLayer(0x8000)); got != hikcam.Unknown {
		t.Errorf("expected Unknown, got %s", got)
	}
}

func TestEnumerate(t *testing.T) {
	lib := mvstest.NewLibrary(mvstest.GigE("A", "1", "10.0.0.2"), mvstest.USB("B", "2"))
	g := hikcam.NewGuard(lib)
	devs, err := hikcam.Enumerate(g)
	if err != nil {
		t.Fatal(err)
	}
	if len(devs) != 2 || devs[1].Model != "B" || devs[1].Index != 1 {
		t.Errorf("expected two devices in order, got %v", devs)
	}
	if g.Count() != 0 || lib.Finalized != 1 {
		t.Errorf("expected the SDK to be released after listing, count=%d finalized=%d", g.Count(), lib.Finalized)
	}
}

func TestEnumerateFailure(t *testing.T) {
	lib := mvstest.NewLibrary()
	lib.Fail("EnumDevices", mvs.EAccess)
	_, err := hikcam.Enumerate(hikcam.NewGuard(lib))
	if !errors.Is(err, mvs.EAccess) {
		t.Errorf("expected the native status to be wrapped, got %v", err)
	}
}

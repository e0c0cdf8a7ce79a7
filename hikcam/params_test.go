package hikcam_test

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/nasa-jpl/hikcam/hikcam"
	"github.com/nasa-jpl/hikcam/mvs"
	"github.com/nasa-jpl/hikcam/pixfmt"
)

func intp(i int) *int           { return &i }
func floatp(f float64) *float64 { return &f }

func modep(m hikcam.TriggerMode) *hikcam.TriggerMode { return &m }

func TestGetParamsIsLive(t *testing.T) {
	lib := fakeLib()
	s := connect(t, lib, nil)
	defer s.Close()
	lib.Ints["Width"] = 640
	lib.Floats["ExposureTime"] = 2500
	lib.Enums["PixelFormat"] = uint32(pixfmt.BayerRG8)
	p, err := s.GetParams()
	if err != nil {
		t.Fatal(err)
	}
	if p.Width != 640 || p.Exposure != 2500 || p.PixelFormat != "BayerRG8" {
		t.Errorf("expected live values, got %s", p)
	}
	if p.TriggerMode != hikcam.Continuous {
		t.Errorf("expected continuous, got %s", p.TriggerMode)
	}
}

func TestGetParamsReadFailure(t *testing.T) {
	lib := fakeLib()
	s := connect(t, lib, nil)
	defer s.Close()
	lib.Fail("GetInt OffsetX", mvs.EGCAccess)
	if _, err := s.GetParams(); !errors.Is(err, hikcam.ParameterReadFailed) {
		t.Errorf("expected ParameterReadFailed, got %v", err)
	}
}

func TestExposureIntegerFallback(t *testing.T) {
	lib := fakeLib()
	delete(lib.Floats, "ExposureTime")
	lib.Ints["ExposureTime"] = 5000
	s := connect(t, lib, nil)
	defer s.Close()
	e, err := s.Exposure()
	if err != nil || e != 5000 {
		t.Errorf("expected 5000 via the integer query, got %g %v", e, err)
	}
	if err := s.SetExposure(7000.4); err != nil {
		t.Fatal(err)
	}
	if lib.Ints["ExposureTime"] != 7000 {
		t.Errorf("expected integer write of 7000, got %d", lib.Ints["ExposureTime"])
	}
	if s.Config().Exposure != 7000.4 {
		t.Errorf("expected config to follow the write, got %g", s.Config().Exposure)
	}
}

func TestSetterFailureLeavesConfig(t *testing.T) {
	lib := fakeLib()
	s := connect(t, lib, nil)
	defer s.Close()
	lib.Fail("SetFloat AcquisitionFrameRate", mvs.EGCAccess)
	lib.Fail("SetInt AcquisitionFrameRate", mvs.EGCAccess)
	err := s.SetFPS(60)
	var herr *hikcam.Error
	if !errors.As(err, &herr) || herr.Kind != hikcam.ParameterWriteFailed || herr.Code != mvs.EGCAccess {
		t.Errorf("expected ParameterWriteFailed carrying MV_E_GC_ACCESS, got %v", err)
	}
	if s.Config().FPS != 30 {
		t.Errorf("expected config fps unchanged at 30, got %g", s.Config().FPS)
	}
}

func TestSetGainSoftFailure(t *testing.T) {
	lib := fakeLib()
	s := connect(t, lib, nil)
	defer s.Close()
	lib.Fail("SetFloat Gain", mvs.EGCAccess)
	w, err := s.SetGain(6)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if w == nil || w.Param != "Gain" {
		t.Fatalf("expected a gain warning, got %v", w)
	}
	if s.Config().Gain != 0 {
		t.Errorf("expected config gain unchanged, got %g", s.Config().Gain)
	}
}

func TestSetGainAnalogFallback(t *testing.T) {
	lib := fakeLib()
	delete(lib.Floats, "Gain")
	lib.Floats["AnalogGain"] = 1
	s := connect(t, lib, nil)
	defer s.Close()
	w, err := s.SetGain(3)
	if err != nil || w != nil {
		t.Fatalf("expected AnalogGain write to succeed, got %v %v", w, err)
	}
	if lib.Floats["AnalogGain"] != 3 {
		t.Errorf("expected AnalogGain 3, got %g", lib.Floats["AnalogGain"])
	}
	if g, err := s.Gain(); err != nil || g != 3 {
		t.Errorf("expected gain read through AnalogGain, got %g %v", g, err)
	}
}

func TestSetParamsValidatesFirst(t *testing.T) {
	lib := fakeLib()
	s := connect(t, lib, nil)
	defer s.Close()
	before := len(lib.Writes)
	_, err := s.SetParams(hikcam.ParamSet{Exposure: floatp(100), Width: intp(-1)})
	if !errors.Is(err, hikcam.InvalidConfig) {
		t.Errorf("expected InvalidConfig, got %v", err)
	}
	if len(lib.Writes) != before {
		t.Errorf("expected no native writes, got %v", lib.Writes[before:])
	}
}

func TestNaNRejectedBeforeWriting(t *testing.T) {
	lib := fakeLib()
	s := connect(t, lib, nil)
	defer s.Close()
	before := len(lib.Writes)
	nan := math.NaN()
	for _, p := range []hikcam.ParamSet{{Exposure: &nan}, {Gain: &nan}, {FPS: &nan}} {
		if _, err := s.SetParams(p); !errors.Is(err, hikcam.InvalidConfig) {
			t.Errorf("expected InvalidConfig for %+v, got %v", p, err)
		}
	}
	if err := s.SetExposure(nan); !errors.Is(err, hikcam.InvalidConfig) {
		t.Errorf("expected InvalidConfig from SetExposure, got %v", err)
	}
	if err := s.SetFPS(nan); !errors.Is(err, hikcam.InvalidConfig) {
		t.Errorf("expected InvalidConfig from SetFPS, got %v", err)
	}
	if _, err := s.SetGain(nan); !errors.Is(err, hikcam.InvalidConfig) {
		t.Errorf("expected InvalidConfig from SetGain, got %v", err)
	}
	if len(lib.Writes) != before {
		t.Errorf("expected no native writes, got %v", lib.Writes[before:])
	}
}

func TestSetParamsOrder(t *testing.T) {
	lib := fakeLib()
	s := connect(t, lib, nil)
	defer s.Close()
	before := len(lib.Writes)
	_, err := s.SetParams(hikcam.ParamSet{
		OffsetY:     intp(2),
		OffsetX:     intp(4),
		TriggerMode: modep(hikcam.Software),
		FPS:         floatp(10),
		Gain:        floatp(1),
		Exposure:    floatp(500),
		Height:      intp(480),
		Width:       intp(640),
	})
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{
		"Int Width", "Int Height", "Float ExposureTime", "Float Gain", "Float AcquisitionFrameRate",
		"Enum TriggerMode", "Enum TriggerSource", "Int OffsetX", "Int OffsetY",
	}
	if got := lib.Writes[before:]; !reflect.DeepEqual(got, expected) {
		t.Errorf("expected writes %v, got %v", expected, got)
	}
	if m, _ := s.TriggerMode(); m != hikcam.Software {
		t.Errorf("expected live trigger mode software, got %s", m)
	}
	cfg := s.Config()
	if cfg.Width != 640 || cfg.Height != 480 || cfg.TriggerMode != hikcam.Software {
		t.Errorf("expected config to follow the writes, got %+v", cfg)
	}
}

func TestSetParamsGainDoesNotAbort(t *testing.T) {
	lib := fakeLib()
	s := connect(t, lib, nil)
	defer s.Close()
	lib.Fail("SetFloat Gain", mvs.EGCAccess)
	warnings, err := s.SetParams(hikcam.ParamSet{Gain: floatp(5), FPS: floatp(15)})
	if err != nil {
		t.Fatalf("expected gain failure not to raise, got %v", err)
	}
	if len(warnings) != 1 {
		t.Errorf("expected one warning, got %v", warnings)
	}
	if lib.Floats["AcquisitionFrameRate"] != 15 {
		t.Errorf("expected later fields to be applied, fps=%g", lib.Floats["AcquisitionFrameRate"])
	}
}

func TestSetParamsStopsAtFirstFailure(t *testing.T) {
	lib := fakeLib()
	s := connect(t, lib, nil)
	defer s.Close()
	lib.Fail("SetInt Height", mvs.EGCAccess)
	_, err := s.SetParams(hikcam.ParamSet{Width: intp(320), Height: intp(240), Exposure: floatp(99)})
	var herr *hikcam.Error
	if !errors.As(err, &herr) || herr.Kind != hikcam.ParameterWriteFailed || herr.Op != "Height" {
		t.Fatalf("expected ParameterWriteFailed on Height, got %v", err)
	}
	if lib.Ints["Width"] != 320 {
		t.Errorf("expected width to stay applied, got %d", lib.Ints["Width"])
	}
	if lib.Floats["ExposureTime"] == 99 {
		t.Error("expected exposure not to be written after the failure")
	}
}

func TestAccessorsAfterClose(t *testing.T) {
	s := connect(t, fakeLib(), nil)
	s.Close()
	if _, err := s.Width(); !errors.Is(err, hikcam.ErrClosed) || !errors.Is(err, hikcam.ParameterReadFailed) {
		t.Errorf("expected ParameterReadFailed wrapping ErrClosed, got %v", err)
	}
	if err := s.SetWidth(10); !errors.Is(err, hikcam.ParameterWriteFailed) {
		t.Errorf("expected ParameterWriteFailed, got %v", err)
	}
}

package main

import (
	"errors"
	"image/png"
	"io"
	"log"
	"os"
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/knadh/koanf/providers/structs"

	"github.com/nasa-jpl/hikcam/hikcam"
	"github.com/nasa-jpl/hikcam/imgconv"
	"github.com/nasa-jpl/hikcam/imgpub"
	"github.com/nasa-jpl/hikcam/imgrec"
	"github.com/nasa-jpl/hikcam/mvs"
	"github.com/nasa-jpl/hikcam/mvs/mvstest"
)

func TestEnvKey(t *testing.T) {
	k.Load(structs.Provider(defaults(), "koanf"), nil)
	cases := map[string]string{
		"HIKCAM_CAMERA_EXPOSURE": "Camera.Exposure",
		"HIKCAM_ADDR":            "Addr",
		"HIKCAM_MQTT_BROKER":     "MQTT.Broker",
		"HIKCAM_NOT_A_KEY":       "not.a.key",
	}
	for in, expected := range cases {
		if got := envKey(in); got != expected {
			t.Errorf("%s: expected %s got %s", in, expected, got)
		}
	}
}

func TestPermanent(t *testing.T) {
	g := hikcam.NewGuard(library(true))
	cfg := hikcam.DefaultConfig()
	cfg.CameraIndex = 3
	_, err := hikcam.Connect(g, cfg)
	if !permanent(err) {
		t.Errorf("expected an out of range index to be permanent, got %v", err)
	}
}

func TestSaveSimulated(t *testing.T) {
	c := defaults()
	c.Fake = true
	g := hikcam.NewGuard(library(c.Fake))
	s, err := connect(g, c, false)
	if err != nil {
		t.Fatal(err)
	}
	s.Logger = log.New(io.Discard, "", 0)
	defer s.Close()
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	rec := &imgrec.Recorder{Root: t.TempDir(), Prefix: "sim_", Ext: imgconv.PNG.Ext()}
	fn := rec.Filename()
	if err := save(s, rec, imgconv.PNG); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(fn)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil || cfg.Width != 640 || cfg.Height != 480 {
		t.Errorf("expected a 640x480 png, got %+v %v", cfg, err)
	}
	if rec.Filename() == fn {
		t.Error("expected the recorder to advance")
	}
}

// released checks the camera was closed and the SDK finalized
func released(t *testing.T, lib *mvstest.Library) {
	t.Helper()
	if lib.Closed != 1 || lib.Destroyed != 1 || lib.Finalized != 1 {
		t.Errorf("expected the camera closed and the SDK finalized, got closed=%d destroyed=%d finalized=%d",
			lib.Closed, lib.Destroyed, lib.Finalized)
	}
}

func TestGrabFailureClosesSession(t *testing.T) {
	lib := library(true).(*mvstest.Library)
	lib.Fail("GetImageBuffer", mvs.EHandle)
	o := grabOpts{n: 3, out: t.TempDir(), prefix: "f", format: imgconv.JPEG}
	if err := grabFrames(hikcam.NewGuard(lib), defaults(), o); !errors.Is(err, hikcam.AcquisitionFailed) {
		t.Errorf("expected AcquisitionFailed, got %v", err)
	}
	released(t, lib)
}

func TestGrabStartFailureClosesSession(t *testing.T) {
	lib := library(true).(*mvstest.Library)
	lib.Fail("StartGrabbing", mvs.EHandle)
	o := grabOpts{n: 1, out: t.TempDir(), prefix: "f", format: imgconv.PNG}
	if err := grabFrames(hikcam.NewGuard(lib), defaults(), o); !errors.Is(err, hikcam.StreamStartFailed) {
		t.Errorf("expected StreamStartFailed, got %v", err)
	}
	released(t, lib)
}

func TestPublishDialFailureClosesSession(t *testing.T) {
	lib := library(true).(*mvstest.Library)
	refused := errors.New("connection refused")
	dial := func(imgpub.Config) (mqtt.Client, error) { return nil, refused }
	if err := publishFrames(hikcam.NewGuard(lib), defaults(), 1, dial); !errors.Is(err, refused) {
		t.Errorf("expected the dial error, got %v", err)
	}
	released(t, lib)
}

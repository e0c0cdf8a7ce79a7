package hikcam_test

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/nasa-jpl/hikcam/hikcam"
)

func ExampleDefaultConfig() {
	cfg := hikcam.DefaultConfig()
	fmt.Println(cfg.TriggerMode, cfg.Width, cfg.Height, cfg.Timeout)
	// Output: continuous 1280 720 1s
}

func TestDefaultConfigValid(t *testing.T) {
	if err := hikcam.DefaultConfig().Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*hikcam.Config){
		"CameraIndex": func(c *hikcam.Config) { c.CameraIndex = -1 },
		"TriggerMode": func(c *hikcam.Config) { c.TriggerMode = "hardware" },
		"Width":       func(c *hikcam.Config) { c.Width = 0 },
		"Height":      func(c *hikcam.Config) { c.Height = -4 },
		"Exposure":    func(c *hikcam.Config) { c.Exposure = -1 },
		"Gain":        func(c *hikcam.Config) { c.Gain = -0.5 },
		"FPS":         func(c *hikcam.Config) { c.FPS = 0 },
		"Timeout":     func(c *hikcam.Config) { c.Timeout = 0 },
	}
	for field, mut := range cases {
		cfg := hikcam.DefaultConfig()
		mut(&cfg)
		err := cfg.Validate()
		var herr *hikcam.Error
		if !errors.As(err, &herr) || herr.Kind != hikcam.InvalidConfig {
			t.Errorf("%s: expected InvalidConfig, got %v", field, err)
			continue
		}
		if herr.Op != field {
			t.Errorf("expected the error to name %s, got %s", field, herr.Op)
		}
	}
}

func TestValidateRejectsNaN(t *testing.T) {
	cases := map[string]func(*hikcam.Config){
		"Exposure": func(c *hikcam.Config) { c.Exposure = math.NaN() },
		"Gain":     func(c *hikcam.Config) { c.Gain = math.NaN() },
		"FPS":      func(c *hikcam.Config) { c.FPS = math.NaN() },
	}
	for field, mut := range cases {
		cfg := hikcam.DefaultConfig()
		mut(&cfg)
		var herr *hikcam.Error
		if err := cfg.Validate(); !errors.As(err, &herr) || herr.Op != field {
			t.Errorf("%s: expected InvalidConfig naming the field, got %v", field, err)
		}
	}
}

func TestValidateAcceptsZeroExposureAndGain(t *testing.T) {
	cfg := hikcam.DefaultConfig()
	cfg.Exposure = 0
	cfg.Gain = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected zero exposure and gain to be valid, got %v", err)
	}
}

func TestParseTriggerMode(t *testing.T) {
	for _, s := range []string{"continuous", "trigger"} {
		m, err := hikcam.ParseTriggerMode(s)
		if err != nil || string(m) != s {
			t.Errorf("expected %s, got %s %v", s, m, err)
		}
	}
	if _, err := hikcam.ParseTriggerMode("Trigger"); !errors.Is(err, hikcam.InvalidConfig) {
		t.Errorf("expected InvalidConfig for a miscased mode, got %v", err)
	}
}

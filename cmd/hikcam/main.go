package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"

	"github.com/nasa-jpl/hikcam/hikcam"
	"github.com/nasa-jpl/hikcam/imgpub"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "hikcam.yml"

	// EnvPrefix marks environment variables that override the config file
	EnvPrefix = "HIKCAM_"

	k = koanf.New(".")
)

type recorder struct {
	// Root is the root folder to write to
	Root string `yaml:"Root" koanf:"Root"`

	// Prefix is the filename prefix to use
	Prefix string `yaml:"Prefix" koanf:"Prefix"`

	// Enabled turns on recording of every image served over HTTP
	Enabled bool `yaml:"Enabled" koanf:"Enabled"`
}

type retry struct {
	// MaxElapsed is how long run keeps trying to connect
	MaxElapsed time.Duration `yaml:"MaxElapsed" koanf:"MaxElapsed"`

	// MaxInterval caps the wait between attempts
	MaxInterval time.Duration `yaml:"MaxInterval" koanf:"MaxInterval"`
}

type config struct {
	Addr string `yaml:"Addr" koanf:"Addr"`
	Root string `yaml:"Root" koanf:"Root"`

	// Fake uses an in-memory camera instead of the MVS SDK
	Fake bool `yaml:"Fake" koanf:"Fake"`

	// ApplyParams writes the Camera size, exposure, gain and fps once
	// connected.  Otherwise the camera keeps its own settings.
	ApplyParams bool `yaml:"ApplyParams" koanf:"ApplyParams"`

	Camera   hikcam.Config `yaml:"Camera" koanf:"Camera"`
	Recorder recorder      `yaml:"Recorder" koanf:"Recorder"`
	MQTT     imgpub.Config `yaml:"MQTT" koanf:"MQTT"`
	Retry    retry         `yaml:"Retry" koanf:"Retry"`
}

func defaults() config {
	return config{
		Addr:     ":8000",
		Root:     "/",
		Camera:   hikcam.DefaultConfig(),
		Recorder: recorder{Prefix: "hikcam_"},
		MQTT: imgpub.Config{
			Broker:  "tcp://localhost:1883",
			Prefix:  "hikcam",
			QoS:     0,
			Timeout: 5 * time.Second,
		},
		Retry: retry{MaxElapsed: 30 * time.Second, MaxInterval: 5 * time.Second},
	}
}

func setupconfig() {
	k.Load(structs.Provider(defaults(), "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		log.Fatalf("error loading environment: %v", err)
	}
}

// envKey maps HIKCAM_CAMERA_EXPOSURE to the existing key Camera.Exposure
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	s = strings.ReplaceAll(s, "_", ".")
	for _, key := range k.Keys() {
		if strings.ToLower(key) == s {
			return key
		}
	}
	return s
}

func loadconf() config {
	c := config{}
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatal(err)
	}
	return c
}

func root() {
	str := `hikcam captures frames from Hikrobot MVS industrial cameras
and serves them over HTTP or publishes them over MQTT.

Usage:
	hikcam <command> [flags]

Commands:
	run
	list
	grab
	publish
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `hikcam is amenable to configuration via its .yml file.  For a primer on YAML, see
https://yaml.org/start.html

When no configuration is provided, the defaults are used.  The command mkconf
generates the configuration file with the default values.  Any key can be
overridden from the environment, HIKCAM_CAMERA_EXPOSURE=5000 sets
Camera.Exposure for example.

run       serves the camera over HTTP at Addr, mounted at Root
list      prints the cameras the SDK can see
grab      saves frames to disk: grab -n 10 -fmt png -out frames
publish   publishes frames and parameters to the MQTT broker, paced at
          Camera.FPS: publish -n 0 runs until interrupted

Every command takes -fake to use a simulated camera instead of the SDK, and
-index to pick a camera other than Camera.CameraIndex.

The camera's own size, exposure, gain and frame rate are left alone unless
ApplyParams is true.  Camera.TriggerMode is always applied; "trigger" puts the
camera in software trigger mode and each frame is fired by hikcam.

Timeouts and retry intervals are durations: 500ms, 2s, 1m.`
	fmt.Println(str)
}

func mkconf() {
	c := loadconf()
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := loadconf()
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("hikcam version %v\n", Version)
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd := strings.ToLower(args[1])
	var err error
	switch cmd {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		printconf()
	case "version":
		pversion()
	case "run":
		err = run(args[2:])
	case "list":
		err = list(args[2:])
	case "grab":
		err = grab(args[2:])
	case "publish":
		err = publish(args[2:])
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	// commands return instead of exiting so their deferred Close runs
	if err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/theckman/yacspin"
	"golang.org/x/time/rate"

	"github.com/nasa-jpl/hikcam/generichttp"
	"github.com/nasa-jpl/hikcam/generichttp/camera"
	"github.com/nasa-jpl/hikcam/hikcam"
	"github.com/nasa-jpl/hikcam/imgconv"
	"github.com/nasa-jpl/hikcam/imgpub"
	"github.com/nasa-jpl/hikcam/imgrec"
	"github.com/nasa-jpl/hikcam/mvs"
	"github.com/nasa-jpl/hikcam/mvs/mvstest"
	"github.com/nasa-jpl/hikcam/pixfmt"
	"github.com/nasa-jpl/hikcam/server/middleware/locker"
)

// cmdFlags are the flags every command shares
type cmdFlags struct {
	*flag.FlagSet
	fake  *bool
	index *int
}

func newFlags(name string, c config) cmdFlags {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	return cmdFlags{
		FlagSet: fs,
		fake:    fs.Bool("fake", c.Fake, "use a simulated camera"),
		index:   fs.Int("index", c.Camera.CameraIndex, "camera index"),
	}
}

// parse applies the shared flags to c
func (f cmdFlags) parse(args []string, c *config) {
	f.Parse(args)
	c.Fake = *f.fake
	c.Camera.CameraIndex = *f.index
}

// library is the SDK, or a simulated one with a single GigE camera
func library(fake bool) mvs.Library {
	if !fake {
		return mvs.Native()
	}
	lib := mvstest.NewLibrary(mvstest.GigE("MV-CA050-10GC (simulated)", "SIM00001", "127.0.0.1"))
	lib.Frames = []mvstest.Frame{simulatedFrame(640, 480, 0), simulatedFrame(640, 480, 64)}
	lib.Ints["Width"], lib.Ints["Height"], lib.Ints["PayloadSize"] = 640, 480, 640*480
	lib.Enums["PixelFormat"] = uint32(pixfmt.BayerRG8)
	return lib
}

// simulatedFrame is an RGGB mosaic of a diagonal gradient
func simulatedFrame(w, h int, phase byte) mvstest.Frame {
	buf := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf[y*w+x] = byte(x+y) + phase
		}
	}
	return mvstest.Frame{Width: w, Height: h, PixelType: pixfmt.BayerRG8, Data: buf}
}

func spinner(msg string) *yacspin.Spinner {
	s, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[11],
		Suffix:            " ",
		Message:           msg,
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		log.Printf("no spinner: %v", err)
		return nil
	}
	if err := s.Start(); err != nil {
		return nil
	}
	return s
}

func stopSpinner(s *yacspin.Spinner, err error) {
	if s == nil {
		return
	}
	if err != nil {
		s.StopFailMessage(err.Error())
		s.StopFail()
		return
	}
	s.Stop()
}

// permanent is true for connection errors retrying cannot fix
func permanent(err error) bool {
	return errors.Is(err, hikcam.InvalidConfig) ||
		errors.Is(err, hikcam.IndexOutOfRange) ||
		errors.Is(err, mvs.ErrNotAvailable)
}

// connect opens the configured camera.  With retry, connection failures and
// an empty bus are retried with exponential backoff.
func connect(g *hikcam.Guard, c config, retry bool) (*hikcam.Session, error) {
	var s *hikcam.Session
	op := func() error {
		var err error
		s, err = hikcam.Connect(g, c.Camera)
		if err != nil && (!retry || permanent(err)) {
			return backoff.Permanent(err)
		}
		if err != nil {
			log.Printf("connecting: %v", err)
		}
		return err
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     250 * time.Millisecond,
		RandomizationFactor: 0.1,
		Multiplier:          2.,
		MaxInterval:         c.Retry.MaxInterval,
		MaxElapsedTime:      c.Retry.MaxElapsed,
		Clock:               backoff.SystemClock})
	var perr *backoff.PermanentError
	if errors.As(err, &perr) {
		err = perr.Err
	}
	if err != nil {
		return nil, err
	}
	log.Printf("connected to %s", s.DeviceInfo())
	if c.ApplyParams {
		if err := applyParams(s, c.Camera); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

// applyParams writes the configured acquisition settings to the camera
func applyParams(s *hikcam.Session, cfg hikcam.Config) error {
	ws, err := s.SetParams(hikcam.ParamSet{
		Width:    &cfg.Width,
		Height:   &cfg.Height,
		Exposure: &cfg.Exposure,
		Gain:     &cfg.Gain,
		FPS:      &cfg.FPS,
	})
	for _, w := range ws {
		log.Printf("warning: %s", w)
	}
	return err
}

// grabOne fires a trigger first when the session is in software trigger mode
func grabOne(s *hikcam.Session) (*imgconv.BGR, error) {
	if s.Config().TriggerMode == hikcam.Software {
		return s.TriggerAndGetImage(0)
	}
	return s.GetImage(0)
}

func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func list(args []string) error {
	c := loadconf()
	f := newFlags("list", c)
	f.parse(args, &c)
	sp := spinner("enumerating cameras")
	devs, err := hikcam.Enumerate(hikcam.NewGuard(library(c.Fake)))
	stopSpinner(sp, err)
	if err != nil {
		return err
	}
	if len(devs) == 0 {
		fmt.Println("no cameras found")
		return nil
	}
	for _, d := range devs {
		fmt.Println(d)
	}
	return nil
}

func run(args []string) error {
	c := loadconf()
	f := newFlags("run", c)
	f.parse(args, &c)

	g := hikcam.NewGuard(library(c.Fake))
	s, err := connect(g, c, true)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Start(); err != nil {
		return err
	}

	rec := &imgrec.Recorder{Root: c.Recorder.Root, Prefix: c.Recorder.Prefix, Enabled: c.Recorder.Enabled}
	w := camera.NewHTTPCamera(s, rec, func() ([]hikcam.DeviceInfo, error) { return hikcam.Enumerate(g) })
	lock := locker.New()
	locker.Inject(w, lock)

	// clean up the submux string
	hndlrS := generichttp.SubMuxSanitize(c.Root)
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	mux := chi.NewRouter()
	mux.Use(lock.Check)
	w.RT().Bind(mux)
	root.Mount(hndlrS, mux)

	srv := &http.Server{Addr: c.Addr, Handler: root}
	ctx, stop := interruptible()
	defer stop()
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()
	log.Println("now listening for requests at ", c.Addr+hndlrS)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type grabOpts struct {
	n      int
	out    string
	prefix string
	format imgconv.Format
}

func grab(args []string) error {
	c := loadconf()
	f := newFlags("grab", c)
	n := f.Int("n", 1, "number of frames")
	out := f.String("out", ".", "root folder; frames go in a dated subfolder")
	prefix := f.String("prefix", c.Recorder.Prefix, "filename prefix")
	fmtS := f.String("fmt", "jpg", "jpg, png or fits")
	f.parse(args, &c)
	format, err := imgconv.ParseFormat(*fmtS)
	if err != nil {
		return err
	}
	return grabFrames(hikcam.NewGuard(library(c.Fake)), c, grabOpts{n: *n, out: *out, prefix: *prefix, format: format})
}

// grabFrames saves o.n frames.  The session is closed on every return.
func grabFrames(g *hikcam.Guard, c config, o grabOpts) error {
	s, err := connect(g, c, false)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Start(); err != nil {
		return err
	}

	rec := &imgrec.Recorder{Root: o.out, Prefix: o.prefix, Ext: o.format.Ext()}
	rec.Incr()
	lim := rate.NewLimiter(rate.Limit(c.Camera.FPS), 1)
	ctx, stop := interruptible()
	defer stop()
	sp := spinner(fmt.Sprintf("grabbing %d frames", o.n))
	for i := 0; i < o.n; i++ {
		if err = lim.Wait(ctx); err != nil {
			break
		}
		if sp != nil {
			sp.Message(fmt.Sprintf("frame %d/%d", i+1, o.n))
		}
		if err = save(s, rec, o.format); err != nil {
			break
		}
	}
	stopSpinner(sp, err)
	if err != nil {
		return err
	}
	return s.Stop()
}

// save grabs a frame and writes it to the recorder's next file
func save(s *hikcam.Session, rec *imgrec.Recorder, format imgconv.Format) error {
	img, err := grabOne(s)
	if err != nil {
		return err
	}
	buf := &bytes.Buffer{}
	if format == imgconv.FITS {
		var pp *hikcam.CameraParams
		if p, err := s.GetParams(); err == nil {
			pp = &p
		}
		err = camera.WriteFits(buf, camera.HeaderCards(s.DeviceInfo(), pp, time.Now()), img)
	} else {
		err = imgconv.Encode(buf, img, format)
	}
	if err != nil {
		return err
	}
	if _, err := rec.Write(buf.Bytes()); err != nil {
		return err
	}
	rec.Incr()
	return nil
}

// dialer connects to an MQTT broker
type dialer func(imgpub.Config) (mqtt.Client, error)

func publish(args []string) error {
	c := loadconf()
	f := newFlags("publish", c)
	n := f.Int("n", 0, "number of frames, 0 to run until interrupted")
	broker := f.String("broker", c.MQTT.Broker, "MQTT broker URL")
	f.parse(args, &c)
	c.MQTT.Broker = *broker
	return publishFrames(hikcam.NewGuard(library(c.Fake)), c, *n, imgpub.Dial)
}

// publishFrames publishes n frames, or until interrupted when n is zero.
// The session is closed on every return.
func publishFrames(g *hikcam.Guard, c config, n int, dial dialer) error {
	s, err := connect(g, c, true)
	if err != nil {
		return err
	}
	defer s.Close()

	cl, err := dial(c.MQTT)
	if err != nil {
		return err
	}
	defer cl.Disconnect(250)
	pub := imgpub.New(cl, c.MQTT)

	if err := s.Start(); err != nil {
		return err
	}
	lim := rate.NewLimiter(rate.Limit(c.Camera.FPS), 1)
	ctx, stop := interruptible()
	defer stop()
	trigger := s.Config().TriggerMode == hikcam.Software
	log.Printf("publishing to %s under %s", c.MQTT.Broker, pub.Topic(""))
	for i := 0; n == 0 || i < n; i++ {
		if err := lim.Wait(ctx); err != nil {
			return nil
		}
		err := pub.Grab(s, s, trigger, 0)
		switch {
		case errors.Is(err, hikcam.AcquisitionTimeout):
			log.Println(err)
		case err != nil:
			return err
		}
	}
	return nil
}

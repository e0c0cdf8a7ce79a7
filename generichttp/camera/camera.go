// Package camera provides an HTTP interface to a machine vision camera
package camera

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/astrogo/fitsio"

	"github.com/nasa-jpl/hikcam/camera"
	"github.com/nasa-jpl/hikcam/generichttp"
	"github.com/nasa-jpl/hikcam/hikcam"
	"github.com/nasa-jpl/hikcam/imgconv"
	"github.com/nasa-jpl/hikcam/imgrec"
	"github.com/nasa-jpl/hikcam/server"
	"github.com/nasa-jpl/hikcam/util"
)

// Lister enumerates the cameras that could be connected to
type Lister func() ([]hikcam.DeviceInfo, error)

// HTTPCamera wraps a camera in an HTTP route table.  Every handler that
// touches the camera holds the same mutex, so a session that is not safe
// for concurrent use can be served.
type HTTPCamera struct {
	// Cam is the underlying camera
	Cam camera.Camera

	// Recorder, if not nil, receives a copy of every image served while it
	// is enabled
	Recorder *imgrec.Recorder

	// RouteTable maps URLs to functions
	RouteTable generichttp.RouteTable

	mu sync.Mutex
}

// NewHTTPCamera returns a new HTTP wrapper around a camera.  list and rec
// may be nil, in which case /devices and the /autowrite routes are left out.
func NewHTTPCamera(c camera.Camera, rec *imgrec.Recorder, list Lister) *HTTPCamera {
	h := &HTTPCamera{Cam: c, Recorder: rec}
	rt := generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/device-info"}: h.locked(h.GetDeviceInfo),
		{Method: http.MethodPost, Path: "/start"}:      h.locked(h.Start),
		{Method: http.MethodPost, Path: "/stop"}:       h.locked(h.Stop),
		{Method: http.MethodGet, Path: "/streaming"}:   h.locked(generichttp.GetBool(func() (bool, error) { return c.IsStreaming(), nil })),
		{Method: http.MethodPost, Path: "/streaming"}:  h.locked(generichttp.SetBool(streaming(c))),
		{Method: http.MethodGet, Path: "/image"}:       h.GetImage,
		{Method: http.MethodGet, Path: "/params"}:      h.locked(h.GetParams),
		{Method: http.MethodPost, Path: "/params"}:     h.locked(h.SetParams),

		{Method: http.MethodGet, Path: "/exposure"}:  h.locked(generichttp.GetFloat(c.Exposure)),
		{Method: http.MethodPost, Path: "/exposure"}: h.locked(generichttp.SetFloat(badFloat(c.SetExposure))),
		{Method: http.MethodGet, Path: "/gain"}:      h.locked(generichttp.GetFloat(c.Gain)),
		{Method: http.MethodPost, Path: "/gain"}:     h.locked(h.SetGain),
		{Method: http.MethodGet, Path: "/fps"}:       h.locked(generichttp.GetFloat(c.FPS)),
		{Method: http.MethodPost, Path: "/fps"}:      h.locked(generichttp.SetFloat(badFloat(c.SetFPS))),
		{Method: http.MethodGet, Path: "/width"}:     h.locked(generichttp.GetInt(c.Width)),
		{Method: http.MethodPost, Path: "/width"}:    h.locked(generichttp.SetInt(badInt(c.SetWidth))),
		{Method: http.MethodGet, Path: "/height"}:    h.locked(generichttp.GetInt(c.Height)),
		{Method: http.MethodPost, Path: "/height"}:   h.locked(generichttp.SetInt(badInt(c.SetHeight))),
		{Method: http.MethodGet, Path: "/offset-x"}:  h.locked(generichttp.GetInt(c.OffsetX)),
		{Method: http.MethodPost, Path: "/offset-x"}: h.locked(generichttp.SetInt(badInt(c.SetOffsetX))),
		{Method: http.MethodGet, Path: "/offset-y"}:  h.locked(generichttp.GetInt(c.OffsetY)),
		{Method: http.MethodPost, Path: "/offset-y"}: h.locked(generichttp.SetInt(badInt(c.SetOffsetY))),

		{Method: http.MethodGet, Path: "/trigger-mode"}:  h.locked(generichttp.GetString(triggerMode(c))),
		{Method: http.MethodPost, Path: "/trigger-mode"}: h.locked(generichttp.SetString(setTriggerMode(c))),
		{Method: http.MethodGet, Path: "/pixel-format"}:  h.locked(generichttp.GetString(c.PixelFormat)),
	}
	if list != nil {
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/devices"}] = h.locked(GetDevices(list))
	}
	h.RouteTable = rt
	if rec != nil {
		imgrec.NewHTTPWrapper(rec).Inject(h)
	}
	return h
}

// RT satisfies the generichttp.HTTPer interface
func (h *HTTPCamera) RT() generichttp.RouteTable {
	return h.RouteTable
}

func (h *HTTPCamera) locked(fcn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		defer h.mu.Unlock()
		fcn(w, r)
	}
}

// StatusCode is the HTTP status for an error from a capture session
func StatusCode(err error) int {
	var herr *hikcam.Error
	if !errors.As(err, &herr) {
		return http.StatusInternalServerError
	}
	switch herr.Kind {
	case hikcam.InvalidConfig:
		return http.StatusBadRequest
	case hikcam.NotStreaming, hikcam.WrongTriggerMode:
		return http.StatusConflict
	case hikcam.AcquisitionTimeout:
		return http.StatusGatewayTimeout
	case hikcam.UnsupportedPixelFormat:
		return http.StatusUnsupportedMediaType
	}
	return http.StatusInternalServerError
}

func httpError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), StatusCode(err))
}

// badRequest marks invalid values so the generic handlers reply 400
func badRequest(err error) error {
	if errors.Is(err, hikcam.InvalidConfig) {
		return generichttp.BadRequest{Err: err}
	}
	return err
}

func badFloat(fcn func(float64) error) func(float64) error {
	return func(f float64) error { return badRequest(fcn(f)) }
}

func badInt(fcn func(int) error) func(int) error {
	return func(i int) error { return badRequest(fcn(i)) }
}

// streaming starts the camera on true and stops it on false
func streaming(c camera.Streamer) func(bool) error {
	return func(on bool) error {
		if on {
			return c.Start()
		}
		return c.Stop()
	}
}

func triggerMode(c camera.ParamController) func() (string, error) {
	return func() (string, error) {
		m, err := c.TriggerMode()
		return string(m), err
	}
}

func setTriggerMode(c camera.ParamController) func(string) error {
	return func(s string) error {
		m, err := hikcam.ParseTriggerMode(s)
		if err != nil {
			return badRequest(err)
		}
		return badRequest(c.SetTriggerMode(m))
	}
}

// GetDevices lists the cameras as JSON
func GetDevices(list Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		devs, err := list()
		if err != nil {
			httpError(w, err)
			return
		}
		if devs == nil {
			devs = []hikcam.DeviceInfo{}
		}
		server.Respond(w, devs)
	}
}

// GetDeviceInfo describes the connected camera as JSON
func (h *HTTPCamera) GetDeviceInfo(w http.ResponseWriter, r *http.Request) {
	server.Respond(w, h.Cam.DeviceInfo())
}

// Start begins streaming on a POST request
func (h *HTTPCamera) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.Cam.Start(); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Stop ends streaming on a POST request
func (h *HTTPCamera) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.Cam.Stop(); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetParams returns every camera parameter as JSON
func (h *HTTPCamera) GetParams(w http.ResponseWriter, r *http.Request) {
	p, err := h.Cam.GetParams()
	if err != nil {
		httpError(w, err)
		return
	}
	server.Respond(w, p)
}

type warnings struct {
	Warnings []string `json:"warnings"`
}

func warningStrings(ws ...hikcam.Warning) warnings {
	out := warnings{Warnings: []string{}}
	for _, w := range ws {
		out.Warnings = append(out.Warnings, w.String())
	}
	return out
}

// SetParams applies a partial update given as JSON, with the same field
// names GetParams returns.  Gain writes the camera refused come back as
// warnings.
func (h *HTTPCamera) SetParams(w http.ResponseWriter, r *http.Request) {
	p := hikcam.ParamSet{}
	err := json.NewDecoder(r.Body).Decode(&p)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ws, err := h.Cam.SetParams(p)
	if err != nil {
		httpError(w, err)
		return
	}
	server.Respond(w, warningStrings(ws...))
}

// SetGain sets the gain from a JSON {'f64': value}.  A refused write is
// not an error; the reply lists it as a warning.
func (h *HTTPCamera) SetGain(w http.ResponseWriter, r *http.Request) {
	f := server.FloatT{}
	err := json.NewDecoder(r.Body).Decode(&f)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	warn, err := h.Cam.SetGain(f.F64)
	if err != nil {
		httpError(w, err)
		return
	}
	if warn != nil {
		server.Respond(w, warningStrings(*warn))
		return
	}
	server.Respond(w, warningStrings())
}

// GetImage grabs a frame and returns it on a GET request.
//
// Query parameters:
//
//	fmt      jpg (default), png or fits
//	trigger  true to fire a software trigger first
//	timeout  how long to wait for the frame, e.g. 500ms.  A bare number is
//	         milliseconds.  Empty uses the session's timeout.
//	rot      clockwise rotation in degrees, a multiple of 90
//
// If the recorder is enabled and writes files of the requested format, the
// image is also saved to disk.
func (h *HTTPCamera) GetImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := imgconv.ParseFormat(q.Get("fmt"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	trigger, err := util.ParseBoolDefault(q.Get("trigger"), false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var timeout time.Duration
	if s := q.Get("timeout"); s != "" {
		timeout, err = util.ParseDuration(s, "ms")
		if err != nil || timeout < 0 {
			http.Error(w, "timeout must be a non-negative duration", http.StatusBadRequest)
			return
		}
	}
	rot := 0
	if s := q.Get("rot"); s != "" {
		rot, err = strconv.Atoi(s)
		if err != nil || rot%90 != 0 {
			http.Error(w, "rot must be a multiple of 90", http.StatusBadRequest)
			return
		}
	}

	h.mu.Lock()
	var img *imgconv.BGR
	if trigger {
		img, err = h.Cam.TriggerAndGetImage(timeout)
	} else {
		img, err = h.Cam.GetImage(timeout)
	}
	var cards []fitsio.Card
	if err == nil && format == imgconv.FITS {
		cards = h.headerCards()
	}
	h.mu.Unlock()
	if err != nil {
		httpError(w, err)
		return
	}

	img, err = Rotate(img, rot)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	buf := &bytes.Buffer{}
	if format == imgconv.FITS {
		err = WriteFits(buf, cards, img)
	} else {
		err = imgconv.Encode(buf, img, format)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if rec := h.Recorder; rec != nil && rec.IsEnabled() && rec.Extension() == format.Ext() {
		if _, err := rec.Write(buf.Bytes()); err != nil {
			log.Printf("autowrite to %s failed: %v", rec.Filename(), err)
		}
		rec.Incr()
	}

	hdr := w.Header()
	hdr.Set("Content-Type", format.ContentType())
	if format == imgconv.FITS {
		hdr.Set("Content-Disposition", "attachment; filename=image.fits")
	}
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// headerCards must be called with the mutex held
func (h *HTTPCamera) headerCards() []fitsio.Card {
	var pp *hikcam.CameraParams
	if p, err := h.Cam.GetParams(); err == nil {
		pp = &p
	} else {
		log.Printf("reading parameters for the FITS header: %v", err)
	}
	return HeaderCards(h.Cam.DeviceInfo(), pp, time.Now())
}

package camera

import (
	"io"
	"time"

	"github.com/astrogo/fitsio"

	"github.com/nasa-jpl/hikcam/hikcam"
	"github.com/nasa-jpl/hikcam/imgconv"
	"github.com/nasa-jpl/hikcam/mathx"
)

// WriteFits streams img to w as an 8-bit width x height x 3 cube with the
// red, green and blue planes in that order
func WriteFits(w io.Writer, metadata []fitsio.Card, img *imgconv.BGR) error {
	width, height := img.Rect.Dx(), img.Rect.Dy()
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()
	im := fitsio.NewImage(8, []int{width, height, 3})
	defer im.Close()
	metadata = append(metadata, fitsio.Card{Name: "PLANES", Value: "RGB", Comment: "order of the colour planes"})
	err = im.Header().Append(metadata...)
	if err != nil {
		return err
	}

	n := width * height
	buf := make([]byte, 3*n)
	for i, c := range []int{2, 1, 0} {
		copy(buf[i*n:], img.Plane(c))
	}
	err = im.Write(buf)
	if err != nil {
		return err
	}
	return fits.Write(im)
}

// HeaderCards describes the camera and its settings at the time of a frame.
// p may be nil when the parameters could not be read.
func HeaderCards(info hikcam.DeviceInfo, p *hikcam.CameraParams, t time.Time) []fitsio.Card {
	cards := []fitsio.Card{
		{Name: "DATE-OBS", Value: t.UTC().Format("2006-01-02T15:04:05.000"), Comment: "frame retrieval time, UTC"},
		{Name: "INSTRUME", Value: info.Model, Comment: "camera model"},
		{Name: "SERIAL", Value: info.Serial, Comment: "camera serial number"},
		{Name: "IFACE", Value: string(info.Transport), Comment: "camera interface"},
	}
	if p == nil {
		return cards
	}
	return append(cards,
		fitsio.Card{Name: "EXPTIME", Value: mathx.Round(p.Exposure/1e6, 1e-6), Comment: "exposure time, seconds"},
		fitsio.Card{Name: "GAIN", Value: mathx.Round(p.Gain, 1e-3), Comment: "sensor gain"},
		fitsio.Card{Name: "FPS", Value: mathx.Round(p.FPS, 1e-3), Comment: "acquisition frame rate"},
		fitsio.Card{Name: "PIXFMT", Value: p.PixelFormat, Comment: "sensor pixel format"},
		fitsio.Card{Name: "TRIGGER", Value: string(p.TriggerMode), Comment: "trigger mode"},
		fitsio.Card{Name: "AOILEFT", Value: p.OffsetX, Comment: "0-based horizontal offset"},
		fitsio.Card{Name: "AOITOP", Value: p.OffsetY, Comment: "0-based vertical offset"},
	)
}

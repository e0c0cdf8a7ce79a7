/*Package imgconv converts raw camera frames into 8-bit BGR images.

Convert copies the frame out of the caller's buffer before doing anything
else, so the buffer may be returned to the driver as soon as Convert returns,
whether or not it succeeded.  Colour conversion and demosaicing are done by
OpenCV through gocv.

Samples deeper than 8 bits, including the GigE Vision 10 and 12 bit packed
layouts, are reduced to their 8 most significant bits before conversion.
*/
package imgconv

import (
	"errors"
	"fmt"
	"image"
	"runtime"

	"gocv.io/x/gocv"

	"github.com/nasa-jpl/hikcam/pixfmt"
)

var (
	// ErrShortBuffer is returned when a frame holds fewer bytes than its
	// declared length or its dimensions require
	ErrShortBuffer = errors.New("frame buffer shorter than its declared size")

	// ErrBadDimensions is returned for a frame with a non-positive width or height
	ErrBadDimensions = errors.New("frame width and height must be positive")
)

// UnsupportedPixelFormatError is returned for pixel formats Convert has no
// path for
type UnsupportedPixelFormatError struct {
	PixelType pixfmt.PixelType
}

func (e UnsupportedPixelFormatError) Error() string {
	return fmt.Sprintf("unsupported pixel format %s (0x%08x)", e.PixelType, uint32(e.PixelType))
}

// Raw describes a frame as delivered by the driver
type Raw struct {
	// Data is the frame buffer.  It is only read.
	Data []byte

	Width, Height int

	PixelType pixfmt.PixelType

	// Length is the number of valid bytes in Data.  Zero means all of Data.
	Length int
}

// bayerCodes maps a filter pattern to its demosaic conversion
var bayerCodes = map[pixfmt.Pattern]gocv.ColorConversionCode{
	pixfmt.PatternGR: gocv.ColorBayerGRToBGR,
	pixfmt.PatternRG: gocv.ColorBayerRGToBGR,
	pixfmt.PatternGB: gocv.ColorBayerGBToBGR,
	pixfmt.PatternBG: gocv.ColorBayerBGToBGR,
}

// Convert produces a height x width x 3 BGR image from a raw frame.  The
// result never shares memory with r.Data.
func Convert(r Raw) (*BGR, error) {
	n := r.Length
	if n == 0 {
		n = len(r.Data)
	}
	if n < 0 || n > len(r.Data) {
		return nil, ErrShortBuffer
	}
	buf := make([]byte, n)
	copy(buf, r.Data[:n])

	if r.Width <= 0 || r.Height <= 0 {
		return nil, ErrBadDimensions
	}
	class := pixfmt.Classify(r.PixelType)
	if class == pixfmt.Unsupported {
		return nil, UnsupportedPixelFormatError{r.PixelType}
	}
	if len(buf) < packedLen(r.PixelType, r.Width*r.Height) {
		return nil, fmt.Errorf("%w: %s %dx%d needs %d bytes, have %d", ErrShortBuffer,
			r.PixelType, r.Width, r.Height, packedLen(r.PixelType, r.Width*r.Height), len(buf))
	}

	switch class {
	case pixfmt.RGB:
		return convertRGB(buf, r.Width, r.Height, r.PixelType)
	case pixfmt.Bayer:
		pat, _ := pixfmt.BayerPattern(r.PixelType)
		mono := To8Bit(buf, r.Width*r.Height, r.PixelType)
		return cvt(mono, r.Width, r.Height, gocv.MatTypeCV8UC1, bayerCodes[pat])
	default:
		mono := To8Bit(buf, r.Width*r.Height, r.PixelType)
		return cvt(mono, r.Width, r.Height, gocv.MatTypeCV8UC1, gocv.ColorGrayToBGR)
	}
}

func convertRGB(buf []byte, w, h int, p pixfmt.PixelType) (*BGR, error) {
	switch p {
	case pixfmt.BGR8Packed:
		// already in the output layout
		return &BGR{Pix: buf[:3*w*h], Stride: 3 * w, Rect: image.Rect(0, 0, w, h)}, nil
	case pixfmt.RGB8Packed:
		return cvt(buf[:3*w*h], w, h, gocv.MatTypeCV8UC3, gocv.ColorRGBToBGR)
	case pixfmt.RGBA8Packed:
		return cvt(buf[:4*w*h], w, h, gocv.MatTypeCV8UC4, gocv.ColorRGBAToBGR)
	case pixfmt.BGRA8Packed:
		return cvt(buf[:4*w*h], w, h, gocv.MatTypeCV8UC4, gocv.ColorBGRAToBGR)
	}
	return nil, UnsupportedPixelFormatError{p}
}

// cvt runs one OpenCV colour conversion whose output is 8UC3
func cvt(src []byte, w, h int, mt gocv.MatType, code gocv.ColorConversionCode) (*BGR, error) {
	in, err := gocv.NewMatFromBytes(h, w, mt, src)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	out := gocv.NewMat()
	defer out.Close()
	gocv.CvtColor(in, &out, code)
	runtime.KeepAlive(src)

	if out.Rows() != h || out.Cols() != w || out.Channels() != 3 {
		return nil, fmt.Errorf("colour conversion produced %dx%dx%d, expected %dx%dx3",
			out.Rows(), out.Cols(), out.Channels(), h, w)
	}
	return &BGR{Pix: out.ToBytes(), Stride: 3 * w, Rect: image.Rect(0, 0, w, h)}, nil
}

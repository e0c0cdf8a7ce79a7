package imgconv

import (
	"fmt"
	"image/png"
	"io"
	"strings"

	"gocv.io/x/gocv"
)

// Format is an output image encoding
type Format string

const (
	JPEG Format = "jpg"
	PNG  Format = "png"
	FITS Format = "fits"
)

// ParseFormat accepts jpg, jpeg, png, fits and fit in any case.  The empty
// string is JPEG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "jpg", "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "fits", "fit":
		return FITS, nil
	}
	return "", fmt.Errorf("unknown image format %q", s)
}

// Ext is the file extension for the format, with the dot
func (f Format) Ext() string {
	return "." + string(f)
}

// ContentType is the MIME type for the format
func (f Format) ContentType() string {
	switch f {
	case PNG:
		return "image/png"
	case FITS:
		return "image/fits"
	}
	return "image/jpeg"
}

// EncodeJPEG compresses img with OpenCV's encoder
func EncodeJPEG(img *BGR) ([]byte, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	m, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, img.compact())
	if err != nil {
		return nil, err
	}
	defer m.Close()
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, m)
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	b := buf.GetBytes()
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// Encode writes img as JPEG or PNG.  FITS needs header cards and is written
// by the callers that have them.
func Encode(w io.Writer, img *BGR, f Format) error {
	switch f {
	case JPEG:
		b, err := EncodeJPEG(img)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case PNG:
		return png.Encode(w, img.RGBA())
	}
	return fmt.Errorf("cannot encode %q without metadata", f)
}

// compact returns Pix without row padding
func (p *BGR) compact() []uint8 {
	w, h := p.Rect.Dx(), p.Rect.Dy()
	if p.Stride == 3*w {
		return p.Pix[:3*w*h]
	}
	out := make([]uint8, 3*w*h)
	for y := 0; y < h; y++ {
		copy(out[3*w*y:3*w*(y+1)], p.Pix[y*p.Stride:])
	}
	return out
}

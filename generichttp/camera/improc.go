// this file contains a few small image processing utilities
package camera

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/nasa-jpl/hikcam/imgconv"
)

var rotations = map[int]gocv.RotateFlag{
	90:  gocv.Rotate90Clockwise,
	180: gocv.Rotate180Clockwise,
	270: gocv.Rotate90CounterClockwise,
}

// Rotate turns img clockwise by 0, 90, 180 or 270 degrees
func Rotate(img *imgconv.BGR, degrees int) (*imgconv.BGR, error) {
	degrees = ((degrees % 360) + 360) % 360
	if degrees == 0 {
		return img, nil
	}
	flag, ok := rotations[degrees]
	if !ok {
		return nil, fmt.Errorf("rotation must be a multiple of 90 degrees, got %d", degrees)
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	src, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC3, img.Pix[:3*w*h])
	if err != nil {
		return nil, err
	}
	defer src.Close()
	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Rotate(src, &dst, flag)
	ow, oh := dst.Cols(), dst.Rows()
	return &imgconv.BGR{Pix: dst.ToBytes(), Stride: 3 * ow, Rect: image.Rect(0, 0, ow, oh)}, nil
}

package imgconv

import (
	"image"
	"image/color"
)

// BGR is an owned 8-bit image with interleaved B, G, R samples.  It
// implements image.Image so it can be handed to any encoder in the image
// tree.
type BGR struct {
	// Pix holds the samples row major, three bytes per pixel
	Pix []uint8

	// Stride is the distance in bytes between vertically adjacent pixels
	Stride int

	Rect image.Rectangle
}

// NewBGR returns a zeroed image of the given bounds
func NewBGR(r image.Rectangle) *BGR {
	return &BGR{
		Pix:    make([]uint8, 3*r.Dx()*r.Dy()),
		Stride: 3 * r.Dx(),
		Rect:   r,
	}
}

// ColorModel satisfies image.Image
func (p *BGR) ColorModel() color.Model { return color.RGBAModel }

// Bounds satisfies image.Image
func (p *BGR) Bounds() image.Rectangle { return p.Rect }

// At satisfies image.Image
func (p *BGR) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return color.RGBA{}
	}
	i := p.PixOffset(x, y)
	return color.RGBA{R: p.Pix[i+2], G: p.Pix[i+1], B: p.Pix[i], A: 0xff}
}

// PixOffset is the index of the first (blue) sample of pixel (x, y)
func (p *BGR) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*3
}

// Shape is [height, width, 3]
func (p *BGR) Shape() [3]int {
	return [3]int{p.Rect.Dy(), p.Rect.Dx(), 3}
}

// RGBA copies the image into an *image.RGBA, which the stdlib encoders
// have fast paths for
func (p *BGR) RGBA() *image.RGBA {
	out := image.NewRGBA(p.Rect)
	w, h := p.Rect.Dx(), p.Rect.Dy()
	for y := 0; y < h; y++ {
		src := p.Pix[y*p.Stride : y*p.Stride+3*w]
		dst := out.Pix[y*out.Stride : y*out.Stride+4*w]
		for x := 0; x < w; x++ {
			dst[4*x] = src[3*x+2]
			dst[4*x+1] = src[3*x+1]
			dst[4*x+2] = src[3*x]
			dst[4*x+3] = 0xff
		}
	}
	return out
}

// Plane returns one colour channel as a contiguous row-major slice.
// c is 0 for blue, 1 for green, 2 for red.
func (p *BGR) Plane(c int) []uint8 {
	w, h := p.Rect.Dx(), p.Rect.Dy()
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := p.Pix[y*p.Stride:]
		for x := 0; x < w; x++ {
			out[y*w+x] = row[3*x+c]
		}
	}
	return out
}

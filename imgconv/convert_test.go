package imgconv_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/nasa-jpl/hikcam/imgconv"
	"github.com/nasa-jpl/hikcam/pixfmt"
)

const (
	w = 8
	h = 6
)

func raw(p pixfmt.PixelType, fill byte) imgconv.Raw {
	buf := bytes.Repeat([]byte{fill}, pixfmt.FrameBytes(p, w, h))
	return imgconv.Raw{Data: buf, Width: w, Height: h, PixelType: p, Length: len(buf)}
}

func TestConvertShape(t *testing.T) {
	formats := []pixfmt.PixelType{
		pixfmt.Mono8, pixfmt.Mono16,
		pixfmt.BayerGR8, pixfmt.BayerRG8, pixfmt.BayerGB8, pixfmt.BayerBG8,
		pixfmt.RGB8Packed, pixfmt.BGR8Packed, pixfmt.RGBA8Packed, pixfmt.BGRA8Packed,
		pixfmt.Mono12Packed, pixfmt.BayerRG12,
	}
	for _, p := range formats {
		img, err := imgconv.Convert(raw(p, 7))
		if err != nil {
			t.Errorf("expected %s to convert, got %v", p, err)
			continue
		}
		if img.Shape() != [3]int{h, w, 3} {
			t.Errorf("expected %s to give shape [%d %d 3], got %v", p, h, w, img.Shape())
		}
		if len(img.Pix) != h*w*3 {
			t.Errorf("expected %d samples for %s, got %d", h*w*3, p, len(img.Pix))
		}
	}
}

func TestBGRPassThrough(t *testing.T) {
	r := raw(pixfmt.BGR8Packed, 0)
	for i := range r.Data {
		r.Data[i] = byte(i)
	}
	img, err := imgconv.Convert(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(img.Pix, r.Data) {
		t.Error("expected BGR8 to pass through unchanged")
	}
}

func TestRGBSwapsToBGR(t *testing.T) {
	r := raw(pixfmt.RGB8Packed, 0)
	for i := 0; i < len(r.Data); i += 3 {
		r.Data[i], r.Data[i+1], r.Data[i+2] = 10, 20, 30
	}
	img, err := imgconv.Convert(r)
	if err != nil {
		t.Fatal(err)
	}
	px := img.Pix[:3]
	if px[0] != 30 || px[1] != 20 || px[2] != 10 {
		t.Errorf("expected [30 20 10], got %v", px)
	}
}

func TestRGBADropsAlpha(t *testing.T) {
	r := raw(pixfmt.RGBA8Packed, 0)
	for i := 0; i < len(r.Data); i += 4 {
		r.Data[i], r.Data[i+1], r.Data[i+2], r.Data[i+3] = 1, 2, 3, 99
	}
	img, err := imgconv.Convert(r)
	if err != nil {
		t.Fatal(err)
	}
	if px := img.Pix[:3]; px[0] != 3 || px[1] != 2 || px[2] != 1 {
		t.Errorf("expected [3 2 1], got %v", px)
	}
}

func TestBayerFlatFieldIsFlat(t *testing.T) {
	for _, p := range []pixfmt.PixelType{pixfmt.BayerGR8, pixfmt.BayerRG8, pixfmt.BayerGB8, pixfmt.BayerBG8, pixfmt.BayerBG10Packed} {
		img, err := imgconv.Convert(raw(p, 0))
		if err != nil {
			t.Fatalf("expected %s to convert, got %v", p, err)
		}
		for i, v := range img.Pix {
			if v != 0 {
				t.Errorf("expected all zero output for %s, got %d at %d", p, v, i)
				break
			}
		}
	}
}

func TestBayerPatternSelectsChannel(t *testing.T) {
	// OpenCV names a pattern by its second row, so the BG code reads an RGGB
	// mosaic.  Sites are interior; the demosaic replicates the border.
	cases := []struct {
		p       pixfmt.PixelType
		x, y    int
		channel int
	}{
		{pixfmt.BayerGR8, 3, 2, 0},
		{pixfmt.BayerGB8, 3, 2, 2},
		{pixfmt.BayerRG8, 2, 2, 0},
		{pixfmt.BayerBG8, 2, 2, 2},
		{pixfmt.BayerBG12, 2, 2, 2},
	}
	for _, c := range cases {
		r := raw(c.p, 0)
		bpp := len(r.Data) / (w * h)
		r.Data[(c.y*w+c.x)*bpp+bpp-1] = 0x0C // 0x0C00 is 3072, 192 once shifted to 8 bits
		if bpp == 1 {
			r.Data[c.y*w+c.x] = 192
		}
		img, err := imgconv.Convert(r)
		if err != nil {
			t.Fatalf("expected %s to convert, got %v", c.p, err)
		}
		px := img.Pix[img.PixOffset(c.x, c.y):][:3]
		for ch := 0; ch < 3; ch++ {
			expected := byte(0)
			if ch == c.channel {
				expected = 192
			}
			if px[ch] != expected {
				t.Errorf("%s: expected the lit site in channel %d, got %v", c.p, c.channel, px)
				break
			}
		}
	}
}

func TestMonoReplicatesChannels(t *testing.T) {
	img, err := imgconv.Convert(raw(pixfmt.Mono8, 42))
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range img.Pix {
		if v != 42 {
			t.Fatalf("expected every sample to be 42, got %d at %d", v, i)
		}
	}
}

func TestMono16KeepsHighByte(t *testing.T) {
	r := raw(pixfmt.Mono16, 0)
	for i := 0; i < len(r.Data); i += 2 {
		r.Data[i], r.Data[i+1] = 0x34, 0xAB // 0xAB34 little endian
	}
	img, err := imgconv.Convert(r)
	if err != nil {
		t.Fatal(err)
	}
	if img.Pix[0] != 0xAB {
		t.Errorf("expected 0xAB, got 0x%x", img.Pix[0])
	}
}

func TestUnsupportedNamesCode(t *testing.T) {
	_, err := imgconv.Convert(raw(pixfmt.YUV422Packed, 0))
	var u imgconv.UnsupportedPixelFormatError
	if !errors.As(err, &u) {
		t.Fatalf("expected UnsupportedPixelFormatError, got %v", err)
	}
	if u.PixelType != pixfmt.YUV422Packed {
		t.Errorf("expected error to name YUV422_Packed, got %s", u.PixelType)
	}
}

func TestShortBuffer(t *testing.T) {
	r := raw(pixfmt.Mono8, 0)
	r.Length = len(r.Data) + 1
	if _, err := imgconv.Convert(r); !errors.Is(err, imgconv.ErrShortBuffer) {
		t.Errorf("expected ErrShortBuffer for overlong Length, got %v", err)
	}
	r = raw(pixfmt.RGB8Packed, 0)
	r.Data = r.Data[:10]
	r.Length = 10
	if _, err := imgconv.Convert(r); !errors.Is(err, imgconv.ErrShortBuffer) {
		t.Errorf("expected ErrShortBuffer for truncated frame, got %v", err)
	}
}

func TestOutputDoesNotAliasInput(t *testing.T) {
	r := raw(pixfmt.BGR8Packed, 5)
	img, err := imgconv.Convert(r)
	if err != nil {
		t.Fatal(err)
	}
	for i := range r.Data {
		r.Data[i] = 0xEE
	}
	if img.Pix[0] != 5 {
		t.Error("expected output to be unaffected by writes to the source buffer")
	}
}

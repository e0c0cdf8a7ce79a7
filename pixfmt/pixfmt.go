/*Package pixfmt classifies the GigE Vision pixel format codes reported by the
MVS SDK.

The codes follow the PFNC layout used by the SDK's PixelType_Gvsp_* enum: the
high byte holds the colour flag (mono 0x01, colour 0x02), bits 16-23 the
effective bits per pixel, and the low word an id.  Everything in this package
is a pure function of the code.
*/
package pixfmt

import "fmt"

// PixelType is an MvGvspPixelType value
type PixelType uint32

// Mono formats
const (
	Mono8        PixelType = 0x01080001
	Mono10       PixelType = 0x01100003
	Mono10Packed PixelType = 0x010C0004
	Mono12       PixelType = 0x01100005
	Mono12Packed PixelType = 0x010C0006
	Mono16       PixelType = 0x01100007
)

// Bayer formats
const (
	BayerGR8 PixelType = 0x01080008
	BayerRG8 PixelType = 0x01080009
	BayerGB8 PixelType = 0x0108000A
	BayerBG8 PixelType = 0x0108000B

	BayerGR10 PixelType = 0x0110000C
	BayerRG10 PixelType = 0x0110000D
	BayerGB10 PixelType = 0x0110000E
	BayerBG10 PixelType = 0x0110000F

	BayerGR12 PixelType = 0x01100010
	BayerRG12 PixelType = 0x01100011
	BayerGB12 PixelType = 0x01100012
	BayerBG12 PixelType = 0x01100013

	BayerGR10Packed PixelType = 0x010C0026
	BayerRG10Packed PixelType = 0x010C0027
	BayerGB10Packed PixelType = 0x010C0028
	BayerBG10Packed PixelType = 0x010C0029

	BayerGR12Packed PixelType = 0x010C002A
	BayerRG12Packed PixelType = 0x010C002B
	BayerGB12Packed PixelType = 0x010C002C
	BayerBG12Packed PixelType = 0x010C002D
)

// Packed colour formats
const (
	RGB8Packed  PixelType = 0x02180014
	BGR8Packed  PixelType = 0x02180015
	RGBA8Packed PixelType = 0x02200016
	BGRA8Packed PixelType = 0x02200017

	YUV422Packed     PixelType = 0x0210001F
	YUV422YUYVPacked PixelType = 0x02100032

	// Undefined is reported by the SDK before any frame has been seen
	Undefined PixelType = 0xFFFFFFFF
)

// Class is the conversion family a pixel format belongs to
type Class int

const (
	// Unsupported formats cannot be converted
	Unsupported Class = iota

	// Mono is a single intensity channel
	Mono

	// Bayer is a single channel colour filter array mosaic
	Bayer

	// RGB covers the interleaved RGB, BGR, RGBA and BGRA formats
	RGB
)

func (c Class) String() string {
	switch c {
	case Mono:
		return "mono"
	case Bayer:
		return "bayer"
	case RGB:
		return "rgb"
	default:
		return "unsupported"
	}
}

// Pattern is the colour filter arrangement of a Bayer sensor.  The numeric
// values are fixed; they match the vendor's colour code table.
type Pattern int

const (
	// PatternGR starts with a green then red pixel
	PatternGR Pattern = iota

	// PatternRG starts with a red then green pixel
	PatternRG

	// PatternGB starts with a green then blue pixel
	PatternGB

	// PatternBG starts with a blue then green pixel
	PatternBG
)

func (p Pattern) String() string {
	switch p {
	case PatternGR:
		return "GR"
	case PatternRG:
		return "RG"
	case PatternGB:
		return "GB"
	case PatternBG:
		return "BG"
	}
	return fmt.Sprintf("Pattern(%d)", int(p))
}

// bayer maps every Bayer variant to its pattern.  Bit depth and packing do
// not change the pattern.
var bayer = map[PixelType]Pattern{
	BayerGR8: PatternGR, BayerRG8: PatternRG, BayerGB8: PatternGB, BayerBG8: PatternBG,
	BayerGR10: PatternGR, BayerRG10: PatternRG, BayerGB10: PatternGB, BayerBG10: PatternBG,
	BayerGR12: PatternGR, BayerRG12: PatternRG, BayerGB12: PatternGB, BayerBG12: PatternBG,
	BayerGR10Packed: PatternGR, BayerRG10Packed: PatternRG, BayerGB10Packed: PatternGB, BayerBG10Packed: PatternBG,
	BayerGR12Packed: PatternGR, BayerRG12Packed: PatternRG, BayerGB12Packed: PatternGB, BayerBG12Packed: PatternBG,
}

var names = map[PixelType]string{
	Undefined:        "Undefined",
	Mono8:            "Mono8",
	Mono10:           "Mono10",
	Mono10Packed:     "Mono10_Packed",
	Mono12:           "Mono12",
	Mono12Packed:     "Mono12_Packed",
	Mono16:           "Mono16",
	BayerGR8:         "BayerGR8",
	BayerRG8:         "BayerRG8",
	BayerGB8:         "BayerGB8",
	BayerBG8:         "BayerBG8",
	BayerGR10:        "BayerGR10",
	BayerRG10:        "BayerRG10",
	BayerGB10:        "BayerGB10",
	BayerBG10:        "BayerBG10",
	BayerGR10Packed:  "BayerGR10_Packed",
	BayerRG10Packed:  "BayerRG10_Packed",
	BayerGB10Packed:  "BayerGB10_Packed",
	BayerBG10Packed:  "BayerBG10_Packed",
	BayerGR12:        "BayerGR12",
	BayerRG12:        "BayerRG12",
	BayerGB12:        "BayerGB12",
	BayerBG12:        "BayerBG12",
	BayerGR12Packed:  "BayerGR12_Packed",
	BayerRG12Packed:  "BayerRG12_Packed",
	BayerGB12Packed:  "BayerGB12_Packed",
	BayerBG12Packed:  "BayerBG12_Packed",
	RGB8Packed:       "RGB8_Packed",
	BGR8Packed:       "BGR8_Packed",
	RGBA8Packed:      "RGBA8_Packed",
	BGRA8Packed:      "BGRA8_Packed",
	YUV422Packed:     "YUV422_Packed",
	YUV422YUYVPacked: "YUV422_YUYV_Packed",
}

// Name returns the SDK's name for p, or Unknown(0x...) for codes outside the
// table
func Name(p PixelType) string {
	if s, ok := names[p]; ok {
		return s
	}
	return fmt.Sprintf("Unknown(0x%x)", uint32(p))
}

func (p PixelType) String() string {
	return Name(p)
}

// Parse looks up a pixel type by its SDK name
func Parse(name string) (PixelType, bool) {
	for k, v := range names {
		if v == name {
			return k, true
		}
	}
	return Undefined, false
}

// Classify returns the conversion family of p
func Classify(p PixelType) Class {
	switch {
	case IsRGB(p):
		return RGB
	case IsBayer(p):
		return Bayer
	case IsMono(p):
		return Mono
	}
	return Unsupported
}

// IsMono is true for the single channel intensity formats
func IsMono(p PixelType) bool {
	switch p {
	case Mono8, Mono10, Mono10Packed, Mono12, Mono12Packed, Mono16:
		return true
	}
	return false
}

// IsBayer is true for every Bayer variant regardless of depth or packing
func IsBayer(p PixelType) bool {
	_, ok := bayer[p]
	return ok
}

// IsRGB is true for the interleaved 8-bit colour formats
func IsRGB(p PixelType) bool {
	switch p {
	case RGB8Packed, BGR8Packed, RGBA8Packed, BGRA8Packed:
		return true
	}
	return false
}

// BayerPattern returns the filter pattern of a Bayer format.  ok is false if
// p is not a Bayer format.
func BayerPattern(p PixelType) (pat Pattern, ok bool) {
	pat, ok = bayer[p]
	return
}

// Channels is the number of interleaved channels in one pixel
func Channels(p PixelType) int {
	switch p {
	case RGB8Packed, BGR8Packed:
		return 3
	case RGBA8Packed, BGRA8Packed:
		return 4
	}
	return 1
}

// BitsPerPixel is the occupied bits per pixel encoded in the code itself
func BitsPerPixel(p PixelType) int {
	if p == Undefined {
		return 0
	}
	return int((uint32(p) >> 16) & 0xFF)
}

// SampleBits is the significant bits of one sample, e.g. 12 for both
// Mono12 and Mono12_Packed
func SampleBits(p PixelType) int {
	switch p {
	case Mono10, Mono10Packed,
		BayerGR10, BayerRG10, BayerGB10, BayerBG10,
		BayerGR10Packed, BayerRG10Packed, BayerGB10Packed, BayerBG10Packed:
		return 10
	case Mono12, Mono12Packed,
		BayerGR12, BayerRG12, BayerGB12, BayerBG12,
		BayerGR12Packed, BayerRG12Packed, BayerGB12Packed, BayerBG12Packed:
		return 12
	case Mono16:
		return 16
	}
	return 8
}

// IsPacked is true for the 3-bytes-per-2-pixels GigE Vision packings
func IsPacked(p PixelType) bool {
	return BitsPerPixel(p) == 12 && Classify(p) != Unsupported
}

// FrameBytes is the number of bytes a width x height frame of p occupies
func FrameBytes(p PixelType, width, height int) int {
	return width * height * BitsPerPixel(p) / 8
}

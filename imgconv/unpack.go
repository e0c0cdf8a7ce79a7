package imgconv

import (
	"encoding/binary"

	"github.com/nasa-jpl/hikcam/pixfmt"
)

// packedLen is the number of bytes n pixels of p occupy
func packedLen(p pixfmt.PixelType, n int) int {
	if pixfmt.IsPacked(p) {
		return (3*n + 1) / 2
	}
	return n * pixfmt.BitsPerPixel(p) / 8
}

// Unpack expands n single channel samples of p to one uint16 each, at their
// native depth.  Unpacked deep formats are little endian.  The GigE Vision
// packings store two pixels in three bytes: the outer bytes hold the most
// significant 8 bits of each pixel and the middle byte holds the remaining
// low bits, first pixel in the low nibble.
func Unpack(buf []byte, n int, p pixfmt.PixelType) []uint16 {
	out := make([]uint16, n)
	bits := pixfmt.SampleBits(p)
	switch {
	case pixfmt.IsPacked(p):
		low := uint16(bits - 8)
		mask := byte(1<<low - 1)
		for i := 0; i < n; i++ {
			base := 3 * (i / 2)
			if i%2 == 0 {
				out[i] = uint16(buf[base])<<low | uint16(buf[base+1]&mask)
			} else {
				out[i] = uint16(buf[base+2])<<low | uint16((buf[base+1]>>4)&mask)
			}
		}
	case bits > 8:
		for i := 0; i < n; i++ {
			out[i] = binary.LittleEndian.Uint16(buf[2*i:])
		}
	default:
		for i := 0; i < n; i++ {
			out[i] = uint16(buf[i])
		}
	}
	return out
}

// To8Bit reduces n single channel samples of p to 8 bits by dropping the
// least significant bits.  8-bit input is returned as is.
func To8Bit(buf []byte, n int, p pixfmt.PixelType) []byte {
	bits := pixfmt.SampleBits(p)
	if bits == 8 {
		return buf[:n]
	}
	shift := uint(bits - 8)
	out := make([]byte, n)
	for i, v := range Unpack(buf, n, p) {
		v >>= shift
		if v > 0xff {
			// stray bits above the declared depth
			v = 0xff
		}
		out[i] = byte(v)
	}
	return out
}

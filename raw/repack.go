package raw

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformedImage is returned when a processed image's declared layout does
// not match its data.
var ErrMalformedImage = errors.New("malformed processed image")

// Repack converts img into the canonical 4-channel layout: R, G, B copied from
// the source and a synthesized alpha at the maximum value for img.Bits.
// Monochrome sources are replicated into R, G and B; sources with more than
// three colours keep the first three. img is only read, the result is a new
// allocation.
func Repack(img *MemoryImage) ([]uint16, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrMalformedImage)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", ErrMalformedImage, img.Width, img.Height)
	}
	if img.Bits != 8 && img.Bits != 16 {
		return nil, fmt.Errorf("%w: unsupported bits per sample %d", ErrMalformedImage, img.Bits)
	}
	if img.Colors != 1 && img.Colors < 3 {
		return nil, fmt.Errorf("%w: unsupported channel count %d", ErrMalformedImage, img.Colors)
	}
	if len(img.Data) != img.expectedSize() {
		return nil, fmt.Errorf("%w: data size %d, want %d (%dx%dx%d at %d bits)",
			ErrMalformedImage, len(img.Data), img.expectedSize(),
			img.Width, img.Height, img.Colors, img.Bits)
	}

	const channels = 4
	pixels := img.Width * img.Height
	out := make([]uint16, pixels*channels)
	alpha := uint16(1<<img.Bits - 1)
	c := img.Colors

	if img.Bits == 16 {
		src := img.Data
		for i := 0; i < pixels; i++ {
			s := i * c * 2
			d := i * channels
			if c == 1 {
				v := binary.NativeEndian.Uint16(src[s:])
				out[d], out[d+1], out[d+2] = v, v, v
			} else {
				out[d+0] = binary.NativeEndian.Uint16(src[s:])
				out[d+1] = binary.NativeEndian.Uint16(src[s+2:])
				out[d+2] = binary.NativeEndian.Uint16(src[s+4:])
			}
			out[d+3] = alpha
		}
		return out, nil
	}

	src := img.Data
	for i := 0; i < pixels; i++ {
		s := i * c
		d := i * channels
		if c == 1 {
			v := uint16(src[s])
			out[d], out[d+1], out[d+2] = v, v, v
		} else {
			out[d+0] = uint16(src[s])
			out[d+1] = uint16(src[s+1])
			out[d+2] = uint16(src[s+2])
		}
		out[d+3] = alpha
	}
	return out, nil
}

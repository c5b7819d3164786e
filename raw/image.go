package raw

import (
	"image"
)

// Image returns the result as an *image.RGBA64 for display and encoding
// APIs. Samples below 16 bits are widened to the full 16-bit range. The
// returned image does not share memory with r.
func (r *DecodedResult) Image() *image.RGBA64 {
	img := image.NewRGBA64(image.Rect(0, 0, r.Width, r.Height))
	scale := uint32(1)
	if r.BitsPerSample == 8 {
		scale = 257
	}
	pix := img.Pix
	for i, v := range r.Pix {
		w := uint32(v) * scale
		pix[2*i] = byte(w >> 8)
		pix[2*i+1] = byte(w)
	}
	return img
}

// WithImage returns a copy of r's metadata carrying the pixels of img, scaled
// back to r.BitsPerSample. Alpha is forced fully opaque. img must be 4 channel
// RGBA64 with its origin at 0,0.
func (r *DecodedResult) WithImage(img *image.RGBA64) *DecodedResult {
	b := img.Bounds()
	out := *r
	out.Width = b.Dx()
	out.Height = b.Dy()
	out.Pix = make([]uint16, out.Width*out.Height*4)

	maxValue := uint16(1<<r.BitsPerSample - 1)
	for y := 0; y < out.Height; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		for x := 0; x < out.Width; x++ {
			d := (y*out.Width + x) * 4
			for c := 0; c < 3; c++ {
				v := uint16(row[8*x+2*c])<<8 | uint16(row[8*x+2*c+1])
				if r.BitsPerSample == 8 {
					v = uint16((uint32(v) + 128) / 257)
				}
				out.Pix[d+c] = v
			}
			out.Pix[d+3] = maxValue
		}
	}
	return &out
}

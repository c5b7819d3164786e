package raw

import (
	"fmt"
	"math"
	"strings"
)

// Metadata is the capture and geometry information of a decode, as reported
// by the engine.
type Metadata struct {
	// RawWidth and RawHeight are the sensor extent before processing
	RawWidth  int
	RawHeight int

	// Width and Height are the dimensions of the processed image
	Width  int
	Height int

	ISO         float32
	FocalLength float32 // millimetres
	Aperture    float32 // f-number
	Shutter     float32 // seconds

	// Flip is the engine orientation code. Pixels are never rotated; the
	// caller applies it.
	Flip int

	// Colors and Bits are the channel count and sample depth the engine
	// actually produced, before repacking.
	Colors int
	Bits   int
}

// extractMetadata reads m's fields from sizes, s and img. sizes must be the
// geometry read before processing. Nothing is converted.
func extractMetadata(s Session, sizes Sizes, img *MemoryImage) Metadata {
	other := s.Other()
	return Metadata{
		RawWidth:    sizes.RawWidth,
		RawHeight:   sizes.RawHeight,
		Width:       img.Width,
		Height:      img.Height,
		ISO:         other.ISOSpeed,
		FocalLength: other.FocalLength,
		Aperture:    other.Aperture,
		Shutter:     other.Shutter,
		Flip:        sizes.Flip,
		Colors:      img.Colors,
		Bits:        img.Bits,
	}
}

// ShutterString formats the shutter speed the way photographers read it:
// "1/250" below one second, "2.5" otherwise.
func (m Metadata) ShutterString() string {
	if m.Shutter <= 0 {
		return "0"
	}
	if m.Shutter < 1 {
		return fmt.Sprintf("1/%.0f", math.Round(1/float64(m.Shutter)))
	}
	return fmt.Sprintf("%g", m.Shutter)
}

// Summary returns a short human readable description of the capture.
func (m Metadata) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dimensions: %dx%d\n", m.RawWidth, m.RawHeight)
	fmt.Fprintf(&b, "Focal Length: %gmm\n", m.FocalLength)
	fmt.Fprintf(&b, "Aperture: f/%.1f\n", m.Aperture)
	fmt.Fprintf(&b, "ISO: %g\n", m.ISO)
	fmt.Fprintf(&b, "Shutter: %s\n", m.ShutterString())
	fmt.Fprintf(&b, "Demosaiced dimensions: %dx%d\n", m.Width, m.Height)
	return b.String()
}

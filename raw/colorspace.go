package raw

import (
	"fmt"
	"strings"
)

// ColorSpace is the output colour space the engine converts into while
// processing.
type ColorSpace uint8

// Supported output colour spaces
const (
	ColorSpaceRaw ColorSpace = iota
	ColorSpaceSRGB
	ColorSpaceAdobe
	ColorSpaceWide
	ColorSpaceProPhoto
	ColorSpaceXYZ
	ColorSpaceACES
	numColorSpaces
)

// engineCodes maps a ColorSpace to the engine's output_color value.
// It is the only place the numeric codes appear.
var engineCodes = [numColorSpaces]int{
	ColorSpaceRaw:      0,
	ColorSpaceSRGB:     1,
	ColorSpaceAdobe:    2,
	ColorSpaceWide:     3,
	ColorSpaceProPhoto: 4,
	ColorSpaceXYZ:      5,
	ColorSpaceACES:     6,
}

var colorSpaceNames = [numColorSpaces]string{
	ColorSpaceRaw:      "raw",
	ColorSpaceSRGB:     "sRGB",
	ColorSpaceAdobe:    "Adobe",
	ColorSpaceWide:     "Wide",
	ColorSpaceProPhoto: "ProPhoto",
	ColorSpaceXYZ:      "XYZ",
	ColorSpaceACES:     "ACES",
}

// gamma curves (power, toe slope) handed to the engine per colour space.
var (
	gammaSRGB  = [2]float64{1 / 2.4, 12.92}
	gammaBT709 = [2]float64{0.45, 4.5}
)

// Valid reports whether c is one of the defined colour spaces.
func (c ColorSpace) Valid() bool {
	return c < numColorSpaces
}

// EngineCode returns the engine's numeric output_color code for c.
// Invalid values map to -1.
func (c ColorSpace) EngineCode() int {
	if !c.Valid() {
		return -1
	}
	return engineCodes[c]
}

// Gamma returns the transfer curve used when outputting into c.
func (c ColorSpace) Gamma() [2]float64 {
	if c == ColorSpaceSRGB {
		return gammaSRGB
	}
	return gammaBT709
}

func (c ColorSpace) String() string {
	if !c.Valid() {
		return fmt.Sprintf("ColorSpace(%d)", uint8(c))
	}
	return colorSpaceNames[c]
}

// ParseColorSpace looks a colour space up by name, ignoring case.
func ParseColorSpace(name string) (ColorSpace, error) {
	for i, n := range colorSpaceNames {
		if strings.EqualFold(n, name) {
			return ColorSpace(i), nil
		}
	}
	return 0, fmt.Errorf("unknown color space %q", name)
}

// Package resize downscales decoded RAW images.
package resize

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"golang.org/x/image/draw"

	"github.com/cocosip/go-raw-codec/raw"
)

// ErrInvalidFactor is returned for scale factors outside (0, 1] or factors
// that would produce an empty image.
var ErrInvalidFactor = errors.New("invalid scale factor")

// Filter selects the resampling kernel.
type Filter int

// Resampling kernels
const (
	// Triangle is the bilinear tent filter
	Triangle Filter = iota
	// CatmullRom is the cubic B=0, C=0.5 filter
	CatmullRom
	// Mitchell is the Mitchell-Netravali cubic, B=C=1/3
	Mitchell
	// Lanczos3 is the windowed sinc with three lobes
	Lanczos3
)

var filterNames = map[Filter]string{
	Triangle:   "triangle",
	CatmullRom: "catmullrom",
	Mitchell:   "mitchell",
	Lanczos3:   "lanczos3",
}

func (f Filter) String() string {
	if n, ok := filterNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Filter(%d)", int(f))
}

// Valid reports whether f names a known kernel.
func (f Filter) Valid() bool {
	_, ok := filterNames[f]
	return ok
}

// ParseFilter returns the filter with the given name. The empty string
// selects Triangle.
func ParseFilter(name string) (Filter, error) {
	if name == "" {
		return Triangle, nil
	}
	for f, n := range filterNames {
		if strings.EqualFold(n, name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown resize filter %q", name)
}

var mitchell = &draw.Kernel{Support: 2, At: func(t float64) float64 {
	const b, c = 1.0 / 3, 1.0 / 3
	if t < 1 {
		return ((12-9*b-6*c)*t*t*t + (-18+12*b+6*c)*t*t + (6 - 2*b)) / 6
	}
	return ((-b-6*c)*t*t*t + (6*b+30*c)*t*t + (-12*b-48*c)*t + (8*b + 24*c)) / 6
}}

var lanczos3 = &draw.Kernel{Support: 3, At: func(t float64) float64 {
	if t == 0 {
		return 1
	}
	return sinc(t) * sinc(t/3)
}}

func sinc(x float64) float64 {
	x *= math.Pi
	return math.Sin(x) / x
}

func (f Filter) kernel() (*draw.Kernel, error) {
	switch f {
	case Triangle:
		return draw.BiLinear, nil
	case CatmullRom:
		return draw.CatmullRom, nil
	case Mitchell:
		return mitchell, nil
	case Lanczos3:
		return lanczos3, nil
	default:
		return nil, fmt.Errorf("unknown resize filter %d", int(f))
	}
}

// Dimensions returns the output size for scaling w x h by factor: each side
// is floor(side * factor).
func Dimensions(w, h int, factor float64) (int, int) {
	return int(math.Floor(float64(w) * factor)), int(math.Floor(float64(h) * factor))
}

// Scale returns a copy of r scaled by factor with filter f. Only downscaling
// is supported; factor 1 returns an unscaled copy. Metadata other than the
// output dimensions is carried over unchanged, so RawWidth and RawHeight still
// describe the sensor.
func Scale(r *raw.DecodedResult, factor float64, f Filter) (*raw.DecodedResult, error) {
	if math.IsNaN(factor) || factor <= 0 || factor > 1 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFactor, factor)
	}
	k, err := f.kernel()
	if err != nil {
		return nil, err
	}

	if factor == 1 {
		out := *r
		out.Pix = append([]uint16(nil), r.Pix...)
		return &out, nil
	}

	w, h := Dimensions(r.Width, r.Height, factor)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("%w: %v reduces %dx%d to nothing", ErrInvalidFactor, factor, r.Width, r.Height)
	}

	src := r.Image()
	dst := image.NewRGBA64(image.Rect(0, 0, w, h))
	k.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	raw.Logger().Debug("resized",
		"from_width", r.Width, "from_height", r.Height,
		"width", w, "height", h,
		"filter", f.String())
	return r.WithImage(dst), nil
}

// Package export writes decoded RAW images to common image files.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	"github.com/cocosip/go-raw-codec/raw"
)

// ErrUnknownFormat is returned for output names and format names export
// cannot map to an encoder.
var ErrUnknownFormat = errors.New("unknown output format")

// Format is an output file format.
type Format int

// Output formats
const (
	PNG  Format = iota // 16-bit RGBA PNG
	PNG8               // 8-bit RGBA PNG
	TIFF               // 16-bit RGBA TIFF, Deflate compressed
)

var formatNames = map[Format]string{
	PNG:  "png",
	PNG8: "png8",
	TIFF: "tiff",
}

func (f Format) String() string {
	if n, ok := formatNames[f]; ok {
		return n
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	if f == TIFF {
		return ".tif"
	}
	return ".png"
}

// ParseFormat returns the format with the given name.
func ParseFormat(name string) (Format, error) {
	for f, n := range formatNames {
		if strings.EqualFold(n, name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// FormatFor picks the format from the extension of path.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return PNG, nil
	case ".tif", ".tiff":
		return TIFF, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

// Image8 returns r as an 8-bit image. 16-bit samples keep their high byte.
func Image8(r *raw.DecodedResult) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	shift := uint(0)
	if r.BitsPerSample > 8 {
		shift = uint(r.BitsPerSample - 8)
	}
	for i, v := range r.Pix {
		img.Pix[i] = byte(v >> shift)
	}
	return img
}

// WritePNG encodes r as a 16-bit PNG.
func WritePNG(w io.Writer, r *raw.DecodedResult) error {
	return png.Encode(w, r.Image())
}

// WritePNG8 encodes r as an 8-bit PNG.
func WritePNG8(w io.Writer, r *raw.DecodedResult) error {
	return png.Encode(w, Image8(r))
}

// WriteTIFF encodes r as a 16-bit Deflate compressed TIFF.
func WriteTIFF(w io.Writer, r *raw.DecodedResult) error {
	return tiff.Encode(w, r.Image(), &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// Encode writes r to w in format f.
func Encode(w io.Writer, r *raw.DecodedResult, f Format) error {
	switch f {
	case PNG:
		return WritePNG(w, r)
	case PNG8:
		return WritePNG8(w, r)
	case TIFF:
		return WriteTIFF(w, r)
	default:
		return fmt.Errorf("%w: %v", ErrUnknownFormat, f)
	}
}

// Write saves r to path in the format its extension names.
func Write(path string, r *raw.DecodedResult) error {
	f, err := FormatFor(path)
	if err != nil {
		return err
	}
	return WriteFile(path, r, f)
}

// WriteFile saves r to path in format f, replacing any existing file.
func WriteFile(path string, r *raw.DecodedResult, f Format) (err error) {
	if _, ok := formatNames[f]; !ok {
		return fmt.Errorf("%w: %v", ErrUnknownFormat, f)
	}

	file, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(file)
	if err := Encode(bw, r, f); err != nil {
		return fmt.Errorf("encoding %s: %w", f, err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	raw.Logger().Debug("exported", "path", path, "format", f.String(),
		"width", r.Width, "height", r.Height)
	return nil
}

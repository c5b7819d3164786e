// Package rawio loads RAW containers from disk, transparently unwrapping
// zstd and gzip compressed archives.
package rawio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/cocosip/go-raw-codec/raw"
)

// DefaultLimit caps the size of a loaded or decompressed container.
const DefaultLimit = 1 << 30

// ErrTooLarge is returned when a container exceeds the size limit.
var ErrTooLarge = errors.New("input exceeds size limit")

// Compression identifies an outer compression layer.
type Compression int

// Compression layers
const (
	None Compression = iota
	Zstd
	Gzip
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Zstd:
		return "zstd"
	case Gzip:
		return "gzip"
	default:
		return fmt.Sprintf("Compression(%d)", int(c))
	}
}

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	gzipMagic = []byte{0x1F, 0x8B}
)

// Detect returns the compression layer data starts with.
func Detect(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return Zstd
	case bytes.HasPrefix(data, gzipMagic):
		return Gzip
	default:
		return None
	}
}

// ReadFile reads path and unwraps it with DefaultLimit.
func ReadFile(path string) ([]byte, error) {
	return ReadFileLimit(path, DefaultLimit)
}

// ReadFileLimit reads path and unwraps it. Both the file and the
// decompressed payload must fit in limit bytes.
func ReadFileLimit(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	data, err := readLimited(f, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	out, err := UnwrapLimit(data, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// Unwrap decompresses data if it is a zstd or gzip stream and returns it
// unchanged otherwise.
func Unwrap(data []byte) ([]byte, error) {
	return UnwrapLimit(data, DefaultLimit)
}

// UnwrapLimit is Unwrap with an explicit cap on the decompressed size.
func UnwrapLimit(data []byte, limit int64) ([]byte, error) {
	c := Detect(data)
	var (
		out []byte
		err error
	)
	switch c {
	case Zstd:
		out, err = unzstd(data, limit)
	case Gzip:
		out, err = gunzip(data, limit)
	default:
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c, err)
	}

	raw.Logger().Debug("unwrapped input", "compression", c.String(),
		"compressed", len(data), "size", len(out))
	return out, nil
}

func unzstd(data []byte, limit int64) ([]byte, error) {
	dec, err := zstd.NewReader(
		bytes.NewReader(data),
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
	)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return readLimited(dec, limit)
}

func gunzip(data []byte, limit int64) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = zr.Close()
	}()

	return readLimited(zr, limit)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, ErrTooLarge
	}
	return out, nil
}

package codec

import (
	"bytes"
	"fmt"
	"math"

	"github.com/cocosip/go-raw-codec/raw"
	"github.com/cocosip/go-raw-codec/resize"
)

// Codec is the interface implemented by every RAW container decoder
type Codec interface {
	// Decode decodes a complete container
	Decode(data []byte, opts DecodeOptions) (*raw.DecodedResult, error)

	// CanDecode reports whether header looks like this codec's container.
	// header may be shorter than the whole file.
	CanDecode(header []byte) bool

	// Name returns a human-readable name
	Name() string
}

// DecodeOptions controls post-decode processing
type DecodeOptions struct {
	// Scale downsizes the demosaiced image, in (0, 1].
	// 0 means no scaling
	Scale float64

	// Filter is the resampling kernel used when Scale is below 1
	Filter resize.Filter
}

// Validate validates decode options
func (o *DecodeOptions) Validate() error {
	if math.IsNaN(o.Scale) || o.Scale < 0 || o.Scale > 1 {
		return fmt.Errorf("%w: scale %v", ErrInvalidParameter, o.Scale)
	}
	if !o.Filter.Valid() {
		return fmt.Errorf("%w: filter %v", ErrInvalidParameter, o.Filter)
	}
	return nil
}

// Signature is a magic byte sequence expected at a fixed offset
type Signature struct {
	Offset int
	Magic  []byte
}

// Match reports whether header carries the signature
func (s Signature) Match(header []byte) bool {
	end := s.Offset + len(s.Magic)
	if s.Offset < 0 || end > len(header) {
		return false
	}
	return bytes.Equal(header[s.Offset:end], s.Magic)
}

// RawCodec decodes one family of RAW containers through a raw.Decoder.
// A header matches when any of its signatures does.
type RawCodec struct {
	name       string
	signatures []Signature
	decoder    *raw.Decoder
}

// NewRawCodec returns a codec named name that accepts headers matching any
// of sigs and decodes them with dec.
func NewRawCodec(name string, dec *raw.Decoder, sigs ...Signature) *RawCodec {
	return &RawCodec{name: name, signatures: sigs, decoder: dec}
}

// Name returns the codec name
func (c *RawCodec) Name() string {
	return c.name
}

// CanDecode checks the header against the codec's signatures
func (c *RawCodec) CanDecode(header []byte) bool {
	for _, s := range c.signatures {
		if s.Match(header) {
			return true
		}
	}
	return false
}

// Decode decodes data and applies opts
func (c *RawCodec) Decode(data []byte, opts DecodeOptions) (*raw.DecodedResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	res, err := c.decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}

	if opts.Scale == 0 || opts.Scale == 1 {
		return res, nil
	}
	return resize.Scale(res, opts.Scale, opts.Filter)
}

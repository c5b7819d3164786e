package raw

import (
	"errors"

	"github.com/google/uuid"
)

// ErrEmptyInput is the cause carried by an OpenFailed error for a zero-length
// buffer.
var ErrEmptyInput = errors.New("empty input buffer")

// DecodedResult is a decoded RAW image. Pix holds Width*Height*Channels
// samples of BitsPerSample bits, interleaved R, G, B, A, row-major. The caller
// owns Pix; nothing else references it.
type DecodedResult struct {
	Metadata

	BitsPerSample int
	Channels      int
	ColorSpace    ColorSpace
	Pix           []uint16
}

// ByteLen is the size of the pixel data in bytes at BitsPerSample.
func (r *DecodedResult) ByteLen() int {
	return len(r.Pix) * r.BitsPerSample / 8
}

// Decoder decodes RAW files with an Engine. A Decoder holds no per-decode
// state: each Decode call runs on its own engine session, so one Decoder may
// serve concurrent callers when the engine's sessions are independent.
type Decoder struct {
	engine Engine
}

// NewDecoder returns a Decoder backed by e.
func NewDecoder(e Engine) *Decoder {
	return &Decoder{engine: e}
}

// Version returns the engine's version string.
func (d *Decoder) Version() string {
	return d.engine.Version()
}

// Decode decodes one RAW container. On failure the error is a *DecodeError
// naming the stage; the result is then nil, never partially filled.
//
// Engine resources are released before Decode returns on every path: the
// processed image first, then the session.
func (d *Decoder) Decode(data []byte) (*DecodedResult, error) {
	log := Logger().With("trace_id", uuid.NewString())

	if len(data) == 0 {
		err := newDecodeError(OpenFailed, ErrEmptyInput)
		log.Warn("decode failed", "stage", err.Kind.String(), "error", err)
		return nil, err
	}

	s, err := d.engine.NewSession()
	if err != nil {
		derr := newDecodeError(OpenFailed, err)
		log.Warn("decode failed", "stage", derr.Kind.String(), "error", derr)
		return nil, derr
	}
	defer s.Close()

	img, sizes, err := invoke(s, data, log)
	if err != nil {
		log.Warn("decode failed", "stage", KindOf(err).String(), "error", err)
		return nil, err
	}
	defer s.ReleaseImage(img)

	meta := extractMetadata(s, sizes, img)
	pix, err := Repack(img)
	if err != nil {
		derr := newDecodeError(DemosaicFailed, err)
		log.Warn("decode failed", "stage", derr.Kind.String(), "error", derr)
		return nil, derr
	}

	contract := OutputContract()
	log.Debug("decoded",
		"width", meta.Width,
		"height", meta.Height,
		"iso", meta.ISO,
		"flip", meta.Flip)
	return &DecodedResult{
		Metadata:      meta,
		BitsPerSample: img.Bits,
		Channels:      contract.Channels,
		ColorSpace:    contract.ColorSpace,
		Pix:           pix,
	}, nil
}

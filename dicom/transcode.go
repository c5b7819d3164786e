package dicom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cocosip/go-dicom/pkg/dicom/transfer"
	"github.com/cocosip/go-dicom/pkg/imaging/codec"

	"github.com/cocosip/go-raw-codec/raw"
)

// ErrNoCodec is returned when no codec is registered for a transfer syntax
var ErrNoCodec = errors.New("no codec registered for transfer syntax")

// validator is implemented by typed codec parameters that can check
// themselves.
type validator interface {
	Validate() error
}

var syntaxNames = map[string]*transfer.Syntax{
	"explicit-le":          transfer.ExplicitVRLittleEndian,
	"jpeg-lossless":        transfer.JPEGLossless,
	"jpeg-lossless-sv1":    transfer.JPEGLosslessSV1,
	"jpegls-lossless":      transfer.JPEGLSLossless,
	"jpegls-near-lossless": transfer.JPEGLSNearLossless,
	"jpeg2000-lossless":    transfer.JPEG2000Lossless,
	"htj2k-lossless":       transfer.HTJ2KLossless,
	"rle":                  transfer.RLELossless,
}

// SyntaxByName returns the transfer syntax for a short name such as
// "jpegls-lossless" or for a transfer syntax UID.
func SyntaxByName(name string) (*transfer.Syntax, error) {
	if ts, ok := syntaxNames[strings.ToLower(name)]; ok {
		return ts, nil
	}
	for _, ts := range syntaxNames {
		if ts.UID().UID() == name {
			return ts, nil
		}
	}
	return nil, fmt.Errorf("unknown transfer syntax %q", name)
}

// Registry looks up imaging codecs by transfer syntax. go-dicom's global
// registry satisfies it.
type Registry interface {
	GetCodec(ts *transfer.Syntax) (codec.Codec, bool)
}

// Transcode encodes r as one frame in transfer syntax ts using go-dicom's
// global codec registry. See TranscodeWith.
func Transcode(r *raw.DecodedResult, ts *transfer.Syntax, params codec.Parameters) ([]byte, error) {
	return TranscodeWith(codec.GetGlobalRegistry(), r, ts, params)
}

// TranscodeWith encodes r as one frame in transfer syntax ts. Explicit VR
// Little Endian yields the native frame; any other syntax is encoded by the
// codec reg holds for it, with its default parameters when params is nil.
func TranscodeWith(reg Registry, r *raw.DecodedResult, ts *transfer.Syntax, params codec.Parameters) ([]byte, error) {
	src, err := NewPixelData(r)
	if err != nil {
		return nil, err
	}
	if ts == nil || ts.UID().UID() == transfer.ExplicitVRLittleEndian.UID().UID() {
		return src.GetFrame(0)
	}

	c, ok := reg.GetCodec(ts)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoCodec, ts.UID().UID())
	}
	if params == nil {
		params = c.GetDefaultParameters()
	}
	if v, ok := params.(validator); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s parameters: %w", c.Name(), err)
		}
	}

	dst := newEncapsulated(src.GetFrameInfo())
	if err := c.Encode(src, dst, params); err != nil {
		return nil, fmt.Errorf("%s encode failed: %w", c.Name(), err)
	}
	frame, err := dst.GetFrame(0)
	if err != nil {
		return nil, fmt.Errorf("%s produced no frame: %w", c.Name(), err)
	}

	raw.Logger().Debug("transcoded", "codec", c.Name(), "transfer_syntax", ts.UID().UID(),
		"native", len(src.frames[0]), "encoded", len(frame))
	return frame, nil
}

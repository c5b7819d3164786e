package raw

import (
	"errors"
	"fmt"
)

// ErrorKind identifies the pipeline stage a decode failed in.
type ErrorKind int

// Decode failure kinds
const (
	// OpenFailed: malformed container, unsupported sensor or truncated input
	OpenFailed ErrorKind = iota + 1
	// UnpackFailed: corrupt sensor data
	UnpackFailed
	// DemosaicFailed: the engine failed while processing or laying out the image
	DemosaicFailed
)

// Sentinel errors, one per ErrorKind
var (
	ErrOpenFailed     = errors.New("opening failed")
	ErrUnpackFailed   = errors.New("unpacking failed")
	ErrDemosaicFailed = errors.New("demosaic failed")
)

func (k ErrorKind) String() string {
	switch k {
	case OpenFailed:
		return "OpenFailed"
	case UnpackFailed:
		return "UnpackFailed"
	case DemosaicFailed:
		return "DemosaicFailed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case OpenFailed:
		return ErrOpenFailed
	case UnpackFailed:
		return ErrUnpackFailed
	case DemosaicFailed:
		return ErrDemosaicFailed
	default:
		return nil
	}
}

// DecodeError is returned by Decoder.Decode. Err carries the engine's own
// error, if any.
type DecodeError struct {
	Kind ErrorKind
	Err  error
}

func (e *DecodeError) Error() string {
	msg := e.Kind.String()
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel error of the failing stage, so callers can write
// errors.Is(err, raw.ErrUnpackFailed).
func (e *DecodeError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func newDecodeError(kind ErrorKind, err error) *DecodeError {
	return &DecodeError{Kind: kind, Err: err}
}

// KindOf returns the ErrorKind carried by err, or 0 when err is not a
// DecodeError.
func KindOf(err error) ErrorKind {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

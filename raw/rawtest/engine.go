// Package rawtest provides a scripted raw.Engine for tests. Buffers built with
// Buffer describe the image the engine will produce and the stage, if any, at
// which it fails. The engine counts every resource it hands out so tests can
// check that nothing leaks.
package rawtest

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/cocosip/go-raw-codec/raw"
)

// Stage names a point of the decode sequence.
type Stage uint8

// Stages at which a scripted buffer can fail
const (
	StageNone Stage = iota
	StageOpen
	StageUnpack
	StageProcess
	StageLayout
	// StageLayoutImage fails layout but still hands out the image
	StageLayoutImage
)

// Magic starts every scripted buffer.
var Magic = []byte("RAWTEST1")

const headerSize = 8 + 2 + 2 + 1 + 1 + 1 + 1 + 1 + 1 + 4*4

// Engine errors
var (
	ErrBadMagic   = errors.New("rawtest: bad magic")
	ErrTruncated  = errors.New("rawtest: truncated buffer")
	ErrScripted   = errors.New("rawtest: scripted failure")
	ErrOutOfOrder = errors.New("rawtest: call out of order")
)

// Spec describes a scripted RAW file.
type Spec struct {
	// Width and Height are the raw sensor extent (max 65535)
	Width  int
	Height int

	// Colors and Bits override what the engine produces. Zero means three
	// colours at the requested output depth.
	Colors int
	Bits   int

	Fail Stage
	Seed byte
	Flip int

	ISO         float32
	FocalLength float32
	Aperture    float32
	Shutter     float32
}

// Buffer encodes s as a scripted RAW file.
func Buffer(s Spec) []byte {
	buf := make([]byte, headerSize+s.Width*s.Height)
	copy(buf, Magic)
	p := buf[len(Magic):]
	binary.LittleEndian.PutUint16(p[0:], uint16(s.Width))
	binary.LittleEndian.PutUint16(p[2:], uint16(s.Height))
	p[4] = byte(s.Colors)
	p[5] = byte(s.Bits)
	p[6] = byte(s.Fail)
	p[7] = s.Seed
	p[8] = byte(s.Flip)
	binary.LittleEndian.PutUint32(p[10:], math.Float32bits(s.ISO))
	binary.LittleEndian.PutUint32(p[14:], math.Float32bits(s.FocalLength))
	binary.LittleEndian.PutUint32(p[18:], math.Float32bits(s.Aperture))
	binary.LittleEndian.PutUint32(p[22:], math.Float32bits(s.Shutter))

	mosaic := buf[headerSize:]
	for i := range mosaic {
		mosaic[i] = byte(i*7) ^ s.Seed
	}
	return buf
}

func parseSpec(data []byte) (Spec, []byte, error) {
	if len(data) < len(Magic) || string(data[:len(Magic)]) != string(Magic) {
		return Spec{}, nil, ErrBadMagic
	}
	if len(data) < headerSize {
		return Spec{}, nil, ErrTruncated
	}
	p := data[len(Magic):]
	s := Spec{
		Width:       int(binary.LittleEndian.Uint16(p[0:])),
		Height:      int(binary.LittleEndian.Uint16(p[2:])),
		Colors:      int(p[4]),
		Bits:        int(p[5]),
		Fail:        Stage(p[6]),
		Seed:        p[7],
		Flip:        int(p[8]),
		ISO:         math.Float32frombits(binary.LittleEndian.Uint32(p[10:])),
		FocalLength: math.Float32frombits(binary.LittleEndian.Uint32(p[14:])),
		Aperture:    math.Float32frombits(binary.LittleEndian.Uint32(p[18:])),
		Shutter:     math.Float32frombits(binary.LittleEndian.Uint32(p[22:])),
	}
	mosaic := data[headerSize:]
	if len(mosaic) < s.Width*s.Height {
		return Spec{}, nil, ErrTruncated
	}
	return s, mosaic[:s.Width*s.Height], nil
}

// Counts is a snapshot of the engine's resource accounting.
type Counts struct {
	Sessions  int
	Opens     int
	Unpacks   int
	Processes int
	Images    int
	Releases  int
	Closes    int
}

// Leaked reports sessions that were never closed plus images never released.
func (c Counts) Leaked() int {
	return (c.Sessions - c.Closes) + (c.Images - c.Releases)
}

// Engine is a scripted raw.Engine. The zero value is ready to use and safe for
// concurrent sessions.
type Engine struct {
	// FailNewSession makes NewSession fail, as an allocation failure would.
	FailNewSession bool

	mu       sync.Mutex
	counts   Counts
	params   []raw.ProcessingParameters
	problems []string
}

var _ raw.Engine = (*Engine)(nil)

// Version implements raw.Engine.
func (e *Engine) Version() string {
	return "rawtest-1.0"
}

// NewSession implements raw.Engine.
func (e *Engine) NewSession() (raw.Session, error) {
	if e.FailNewSession {
		return nil, errors.New("rawtest: cannot allocate session")
	}
	e.mu.Lock()
	e.counts.Sessions++
	e.mu.Unlock()
	return &session{engine: e}, nil
}

// Counts returns the current resource accounting.
func (e *Engine) Counts() Counts {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counts
}

// Parameters returns every parameter set applied so far, in order.
func (e *Engine) Parameters() []raw.ProcessingParameters {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]raw.ProcessingParameters(nil), e.params...)
}

// Problems lists protocol violations seen so far: calls out of order, double
// release, double close, use after close.
func (e *Engine) Problems() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.problems...)
}

func (e *Engine) count(f func(c *Counts)) {
	e.mu.Lock()
	f(&e.counts)
	e.mu.Unlock()
}

func (e *Engine) problem(format string, args ...any) {
	e.mu.Lock()
	e.problems = append(e.problems, fmt.Sprintf(format, args...))
	e.mu.Unlock()
}

type sessionState int

const (
	stateNew sessionState = iota
	stateOpened
	stateUnpacked
	stateConfigured
	stateProcessed
	stateImaged
	stateClosed
)

type session struct {
	engine *Engine
	state  sessionState
	spec   Spec
	mosaic []byte
	params raw.ProcessingParameters
	sizes  raw.Sizes
	image  *raw.MemoryImage
}

func (s *session) step(from, to sessionState, op string) error {
	if s.state != from {
		s.engine.problem("%s called in state %d", op, s.state)
		return fmt.Errorf("%w: %s", ErrOutOfOrder, op)
	}
	s.state = to
	return nil
}

func (s *session) Open(data []byte) error {
	s.engine.count(func(c *Counts) { c.Opens++ })
	if err := s.step(stateNew, stateOpened, "Open"); err != nil {
		return err
	}
	spec, mosaic, err := parseSpec(data)
	if err != nil {
		return err
	}
	if spec.Fail == StageOpen {
		return fmt.Errorf("%w at open", ErrScripted)
	}
	s.spec = spec
	s.mosaic = mosaic
	s.sizes = raw.Sizes{RawWidth: spec.Width, RawHeight: spec.Height, Flip: spec.Flip}
	return nil
}

func (s *session) Unpack() error {
	s.engine.count(func(c *Counts) { c.Unpacks++ })
	if err := s.step(stateOpened, stateUnpacked, "Unpack"); err != nil {
		return err
	}
	if s.spec.Fail == StageUnpack {
		return fmt.Errorf("%w at unpack", ErrScripted)
	}
	return nil
}

func (s *session) Sizes() raw.Sizes {
	return s.sizes
}

func (s *session) Other() raw.Other {
	return raw.Other{
		ISOSpeed:    s.spec.ISO,
		FocalLength: s.spec.FocalLength,
		Aperture:    s.spec.Aperture,
		Shutter:     s.spec.Shutter,
	}
}

func (s *session) SetParameters(p raw.ProcessingParameters) {
	if s.step(stateUnpacked, stateConfigured, "SetParameters") != nil {
		return
	}
	s.params = p
	s.engine.mu.Lock()
	s.engine.params = append(s.engine.params, p)
	s.engine.mu.Unlock()
}

func (s *session) Process() error {
	s.engine.count(func(c *Counts) { c.Processes++ })
	if err := s.step(stateConfigured, stateProcessed, "Process"); err != nil {
		return err
	}
	if s.spec.Fail == StageProcess {
		return fmt.Errorf("%w at process", ErrScripted)
	}
	crop := s.params.CropBox
	s.sizes.Width = min(crop[2], s.spec.Width-crop[0])
	s.sizes.Height = min(crop[3], s.spec.Height-crop[1])
	if s.params.UserFlip >= 0 {
		s.sizes.Flip = s.params.UserFlip
	}
	return nil
}

// MakeMemoryImage lays out a deterministic function of the mosaic: each
// colour plane is the mosaic sample shifted by a per-channel offset.
func (s *session) MakeMemoryImage() (*raw.MemoryImage, error) {
	if err := s.step(stateProcessed, stateImaged, "MakeMemoryImage"); err != nil {
		return nil, err
	}
	if s.spec.Fail == StageLayout {
		return nil, fmt.Errorf("%w at layout", ErrScripted)
	}

	colors := s.spec.Colors
	if colors == 0 {
		colors = 3
	}
	bits := s.spec.Bits
	if bits == 0 {
		bits = s.params.OutputBPS
	}
	w, h := s.sizes.Width, s.sizes.Height
	img := &raw.MemoryImage{
		Width:  w,
		Height: h,
		Colors: colors,
		Bits:   bits,
		Data:   make([]byte, w*h*colors*(bits/8)),
	}

	crop := s.params.CropBox
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m := s.mosaic[(y+crop[1])*s.spec.Width+x+crop[0]]
			for c := 0; c < colors; c++ {
				v := m + byte(c)*17
				i := (y*w+x)*colors + c
				if bits == 16 {
					binary.NativeEndian.PutUint16(img.Data[i*2:], uint16(v)*257)
				} else {
					img.Data[i] = v
				}
			}
		}
	}

	s.image = img
	s.engine.count(func(c *Counts) { c.Images++ })
	if s.spec.Fail == StageLayoutImage {
		return img, fmt.Errorf("%w at layout", ErrScripted)
	}
	return img, nil
}

func (s *session) ReleaseImage(img *raw.MemoryImage) {
	if img == nil || img != s.image {
		s.engine.problem("ReleaseImage of unknown or already released image")
		return
	}
	if s.state == stateClosed {
		s.engine.problem("ReleaseImage after Close")
	}
	img.Data = nil
	s.image = nil
	s.engine.count(func(c *Counts) { c.Releases++ })
}

func (s *session) Close() {
	if s.state == stateClosed {
		s.engine.problem("Close called twice")
		return
	}
	if s.image != nil {
		s.engine.problem("Close with image still held")
	}
	s.state = stateClosed
	s.mosaic = nil
	s.engine.count(func(c *Counts) { c.Closes++ })
}

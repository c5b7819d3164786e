//go:build libraw

package libraw

/*
#cgo pkg-config: libraw
#include <stdlib.h>
#include <libraw/libraw.h>

void set_progress_handler(libraw_data_t *lr, void *data);
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	pointer "github.com/mattn/go-pointer"

	"github.com/cocosip/go-raw-codec/codec"
	"github.com/cocosip/go-raw-codec/raw"
)

func init() {
	codec.RegisterRawFormats(raw.NewDecoder(New()))
}

var errNoHandle = errors.New("libraw: libraw_init returned no handle")

// ProgressFunc receives LibRaw's progress reports. stage is LibRaw's name for
// the processing step; iteration counts up to expected within it.
type ProgressFunc func(stage string, iteration, expected int)

// Engine is a raw.Engine backed by LibRaw. Every session owns a separate
// LibRaw handle.
type Engine struct {
	// Progress, when set, is called from the decoding goroutine as LibRaw
	// works through a file
	Progress ProgressFunc
}

var _ raw.Engine = (*Engine)(nil)

// New returns an Engine without a progress callback.
func New() *Engine {
	return &Engine{}
}

// Version returns the LibRaw version string.
func (e *Engine) Version() string {
	return C.GoString(C.libraw_version())
}

// NewSession allocates a LibRaw handle.
func (e *Engine) NewSession() (raw.Session, error) {
	lr := C.libraw_init(0)
	if lr == nil {
		return nil, errNoHandle
	}
	s := &session{lr: lr}
	if e.Progress != nil {
		s.progress = pointer.Save(e.Progress)
		C.set_progress_handler(lr, s.progress)
	}
	return s, nil
}

type session struct {
	lr       *C.libraw_data_t
	buf      unsafe.Pointer
	progress unsafe.Pointer
	image    *C.libraw_processed_image_t
}

func status(op string, rc C.int) error {
	if rc == C.LIBRAW_SUCCESS {
		return nil
	}
	return fmt.Errorf("libraw %s: %s (%d)", op, C.GoString(C.libraw_strerror(rc)), int(rc))
}

// Open hands LibRaw a C copy of data; LibRaw reads from it until Close.
func (s *session) Open(data []byte) error {
	if len(data) == 0 {
		return status("open_buffer", C.LIBRAW_IO_ERROR)
	}
	s.buf = C.CBytes(data)
	return status("open_buffer", C.libraw_open_buffer(s.lr, s.buf, C.size_t(len(data))))
}

func (s *session) Unpack() error {
	return status("unpack", C.libraw_unpack(s.lr))
}

func (s *session) Sizes() raw.Sizes {
	sz := &s.lr.sizes
	return raw.Sizes{
		RawWidth:  int(sz.raw_width),
		RawHeight: int(sz.raw_height),
		Width:     int(sz.width),
		Height:    int(sz.height),
		Flip:      int(sz.flip),
	}
}

func (s *session) Other() raw.Other {
	o := &s.lr.other
	return raw.Other{
		ISOSpeed:    float32(o.iso_speed),
		FocalLength: float32(o.focal_len),
		Aperture:    float32(o.aperture),
		Shutter:     float32(o.shutter),
	}
}

func (s *session) SetParameters(p raw.ProcessingParameters) {
	params := &s.lr.params
	params.output_bps = C.int(p.OutputBPS)
	params.no_auto_bright = cbool(p.NoAutoBright)
	params.use_camera_wb = cbool(p.UseCameraWB)
	params.user_flip = C.int(p.UserFlip)
	params.output_color = C.int(p.ColorSpace.EngineCode())
	params.gamm[0] = C.double(p.Gamma[0])
	params.gamm[1] = C.double(p.Gamma[1])
	for i, v := range p.CropBox {
		params.cropbox[i] = C.uint(v)
	}
}

func cbool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

func (s *session) Process() error {
	return status("dcraw_process", C.libraw_dcraw_process(s.lr))
}

// MakeMemoryImage returns an image whose Data aliases LibRaw's buffer. It
// stays valid until ReleaseImage.
func (s *session) MakeMemoryImage() (*raw.MemoryImage, error) {
	var rc C.int
	img := C.libraw_dcraw_make_mem_image(s.lr, &rc)
	if err := status("dcraw_make_mem_image", rc); err != nil {
		if img != nil {
			C.libraw_dcraw_clear_mem(img)
		}
		return nil, err
	}
	if img == nil {
		return nil, nil
	}
	s.image = img

	return &raw.MemoryImage{
		Width:  int(img.width),
		Height: int(img.height),
		Colors: int(img.colors),
		Bits:   int(img.bits),
		Data:   unsafe.Slice((*byte)(unsafe.Pointer(&img.data[0])), int(img.data_size)),
	}, nil
}

func (s *session) ReleaseImage(img *raw.MemoryImage) {
	if s.image == nil {
		return
	}
	C.libraw_dcraw_clear_mem(s.image)
	s.image = nil
	if img != nil {
		img.Data = nil
	}
}

func (s *session) Close() {
	if s.image != nil {
		C.libraw_dcraw_clear_mem(s.image)
		s.image = nil
	}
	if s.lr != nil {
		C.libraw_close(s.lr)
		s.lr = nil
	}
	if s.buf != nil {
		C.free(s.buf)
		s.buf = nil
	}
	if s.progress != nil {
		pointer.Unref(s.progress)
		s.progress = nil
	}
}

//export goRawProgress
func goRawProgress(data unsafe.Pointer, stage, iteration, expected C.int) C.int {
	if f, ok := pointer.Restore(data).(ProgressFunc); ok {
		name := C.GoString(C.libraw_strprogress(C.enum_LibRaw_progress(stage)))
		f(name, int(iteration), int(expected))
	}
	return 0
}

// Package dicom bridges decoded RAW images to the go-dicom imaging codecs,
// so a photograph can be stored as native or compressed DICOM pixel data.
package dicom

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cocosip/go-dicom/pkg/imaging/imagetypes"

	"github.com/cocosip/go-raw-codec/raw"
)

var (
	// ErrTooLarge is returned for images wider or taller than a DICOM
	// frame can describe
	ErrTooLarge = errors.New("image too large for a DICOM frame")

	// ErrNoFrame is returned for frame indexes outside the pixel data
	ErrNoFrame = errors.New("frame index out of range")
)

const maxFrameSide = 1<<16 - 1

// FrameInfo describes r as an interleaved RGB frame: 3 samples per pixel,
// unsigned, stored at the result's bit depth.
func FrameInfo(r *raw.DecodedResult) (*imagetypes.FrameInfo, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %dx%d", r.Width, r.Height)
	}
	if r.Width > maxFrameSide || r.Height > maxFrameSide {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, r.Width, r.Height)
	}
	if r.BitsPerSample != 8 && r.BitsPerSample != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d", r.BitsPerSample)
	}

	info := &imagetypes.FrameInfo{
		Width:                     uint16(r.Width),
		Height:                    uint16(r.Height),
		BitsAllocated:             16,
		BitsStored:                16,
		HighBit:                   15,
		SamplesPerPixel:           3,
		PixelRepresentation:       0,
		PlanarConfiguration:       0,
		PhotometricInterpretation: "RGB",
	}
	if r.BitsPerSample == 8 {
		info.BitsAllocated, info.BitsStored, info.HighBit = 8, 8, 7
	}
	return info, nil
}

// PixelData is an in-memory imagetypes.PixelData
type PixelData struct {
	frames       [][]byte
	frameInfo    *imagetypes.FrameInfo
	encapsulated bool
}

var _ imagetypes.PixelData = (*PixelData)(nil)

// NewPixelData returns native pixel data holding r as a single frame.
// 16-bit samples are little endian; alpha is dropped.
func NewPixelData(r *raw.DecodedResult) (*PixelData, error) {
	info, err := FrameInfo(r)
	if err != nil {
		return nil, err
	}

	n := r.Width * r.Height
	var frame []byte
	if r.BitsPerSample == 16 {
		frame = make([]byte, n*6)
		for i := 0; i < n; i++ {
			for c := 0; c < 3; c++ {
				binary.LittleEndian.PutUint16(frame[6*i+2*c:], r.Pix[4*i+c])
			}
		}
	} else {
		frame = make([]byte, n*3)
		for i := 0; i < n; i++ {
			for c := 0; c < 3; c++ {
				frame[3*i+c] = byte(r.Pix[4*i+c])
			}
		}
	}

	return &PixelData{frames: [][]byte{frame}, frameInfo: info}, nil
}

func newEncapsulated(info *imagetypes.FrameInfo) *PixelData {
	copied := *info
	return &PixelData{frameInfo: &copied, encapsulated: true}
}

// GetFrame returns the pixel data for the specified frame (0-indexed)
func (p *PixelData) GetFrame(frameIndex int) ([]byte, error) {
	if frameIndex < 0 || frameIndex >= len(p.frames) {
		return nil, fmt.Errorf("%w: %d of %d", ErrNoFrame, frameIndex, len(p.frames))
	}
	return p.frames[frameIndex], nil
}

// AddFrame appends a new frame to the pixel data
func (p *PixelData) AddFrame(frameData []byte) error {
	p.frames = append(p.frames, frameData)
	return nil
}

// FrameCount returns the number of frames in the pixel data
func (p *PixelData) FrameCount() int {
	return len(p.frames)
}

// GetFrameInfo returns frame metadata for codec operations
func (p *PixelData) GetFrameInfo() *imagetypes.FrameInfo {
	return p.frameInfo
}

// IsEncapsulated returns true if pixel data is encapsulated (compressed)
func (p *PixelData) IsEncapsulated() bool {
	return p.encapsulated
}

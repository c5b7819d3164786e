package raw

import (
	"errors"
	"log/slog"
)

var errNoImage = errors.New("engine returned no image")

// invoke drives s through open, unpack, configure, process and image layout.
// The first failing stage ends the sequence; releasing whatever s acquired is
// left to the caller, which owns s.
//
// The returned Sizes are read before processing. Engines rewrite the flip
// code from UserFlip while processing, so only this copy holds the file's
// orientation.
func invoke(s Session, data []byte, log *slog.Logger) (*MemoryImage, Sizes, error) {
	if err := s.Open(data); err != nil {
		return nil, Sizes{}, newDecodeError(OpenFailed, err)
	}

	if err := s.Unpack(); err != nil {
		return nil, Sizes{}, newDecodeError(UnpackFailed, err)
	}

	sizes := s.Sizes()
	params := Configure(sizes.RawWidth, sizes.RawHeight)
	s.SetParameters(params)
	log.Debug("unpacked",
		"raw_width", sizes.RawWidth,
		"raw_height", sizes.RawHeight,
		"color_space", params.ColorSpace.String())

	if err := s.Process(); err != nil {
		return nil, Sizes{}, newDecodeError(DemosaicFailed, err)
	}

	img, err := s.MakeMemoryImage()
	if err != nil {
		if img != nil {
			s.ReleaseImage(img)
		}
		return nil, Sizes{}, newDecodeError(DemosaicFailed, err)
	}
	if img == nil {
		return nil, Sizes{}, newDecodeError(DemosaicFailed, errNoImage)
	}
	log.Debug("processed",
		"width", img.Width,
		"height", img.Height,
		"colors", img.Colors,
		"bits", img.Bits)
	return img, sizes, nil
}

package raw

// Engine is the RAW decoding engine. Sensor decompression, demosaicing and
// colour conversion all live behind it; this package only drives it.
type Engine interface {
	// NewSession allocates fresh, independent engine state.
	NewSession() (Session, error)

	// Version returns the engine's version string.
	Version() string
}

// Session is one engine decode context. It is not reentrant and must not be
// shared between goroutines. Methods must be called in the order
// Open, Unpack, SetParameters, Process, MakeMemoryImage; Close is always
// called last, exactly once, whatever happened before.
type Session interface {
	// Open parses the container held in data. The session may keep a
	// reference to data until Close.
	Open(data []byte) error

	// Unpack decompresses the sensor data into the engine's mosaic buffer.
	Unpack() error

	// Sizes reports the image geometry known to the session. Raw sizes and
	// the flip code are valid after Open, output sizes after Process. Process
	// may replace the flip code with ProcessingParameters.UserFlip.
	Sizes() Sizes

	// Other reports the capture information read from the container.
	Other() Other

	// SetParameters applies p to the session.
	SetParameters(p ProcessingParameters)

	// Process demosaics and converts the unpacked data.
	Process() error

	// MakeMemoryImage lays the processed image out as an interleaved buffer.
	// An image returned together with an error is still passed to
	// ReleaseImage.
	MakeMemoryImage() (*MemoryImage, error)

	// ReleaseImage frees an image returned by MakeMemoryImage.
	ReleaseImage(img *MemoryImage)

	// Close frees all engine state.
	Close()
}

// Sizes is the geometry reported by the engine.
type Sizes struct {
	RawWidth  int
	RawHeight int
	Width     int
	Height    int
	// Flip is the engine's orientation code
	Flip int
}

// Other is the capture information reported by the engine.
type Other struct {
	ISOSpeed    float32
	FocalLength float32
	Aperture    float32
	Shutter     float32
}

// MemoryImage is a processed image in engine-owned memory. Data holds
// Width*Height*Colors samples of Bits bits each, interleaved, row-major,
// 16-bit samples in host byte order. Data must not be used after the image is
// released.
type MemoryImage struct {
	Width  int
	Height int
	Colors int
	Bits   int
	Data   []byte
}

// expectedSize is the byte length Data must have.
func (m *MemoryImage) expectedSize() int {
	return m.Width * m.Height * m.Colors * (m.Bits / 8)
}

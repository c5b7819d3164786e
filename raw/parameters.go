package raw

// ProcessingParameters is the parameter set applied to a session before
// processing. It is a plain value: build one with Configure and hand copies
// around, never a pointer.
type ProcessingParameters struct {
	// OutputBPS is the output bit depth per sample
	OutputBPS int

	// NoAutoBright disables histogram based brightness scaling
	NoAutoBright bool

	// UseCameraWB applies the as-shot white balance from the file
	UseCameraWB bool

	// UserFlip overrides orientation handling. 0 leaves pixels unrotated;
	// the file's orientation is still reported through Metadata.Flip.
	UserFlip int

	// CropBox is left, top, width, height in raw sensor coordinates
	CropBox [4]int

	// Gamma is the (power, toe slope) pair of the output transfer curve
	Gamma [2]float64

	// ColorSpace is the output colour space
	ColorSpace ColorSpace
}

// Contract describes the shape of every DecodedResult produced by this package.
type Contract struct {
	BitsPerSample int
	Channels      int
	ColorSpace    ColorSpace
}

// outputContract is the canonical output: 16-bit, 4-channel RGBA with opaque
// alpha, sRGB primaries and transfer curve. Never written after init.
var outputContract = Contract{
	BitsPerSample: 16,
	Channels:      4,
	ColorSpace:    ColorSpaceSRGB,
}

// OutputContract returns the shape every DecodedResult has.
func OutputContract() Contract {
	return outputContract
}

// Configure returns the processing parameters for a sensor of the given raw
// extent. Brightness and white balance automation stay off so the output is a
// function of the sensor data alone, and the crop box always covers the full
// sensor.
func Configure(rawWidth, rawHeight int) ProcessingParameters {
	cs := outputContract.ColorSpace
	return ProcessingParameters{
		OutputBPS:    outputContract.BitsPerSample,
		NoAutoBright: true,
		UseCameraWB:  false,
		UserFlip:     0,
		CropBox:      [4]int{0, 0, rawWidth, rawHeight},
		Gamma:        cs.Gamma(),
		ColorSpace:   cs,
	}
}

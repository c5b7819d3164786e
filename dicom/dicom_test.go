package dicom

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/cocosip/go-dicom/pkg/dicom/transfer"
	"github.com/cocosip/go-dicom/pkg/imaging/codec"
	"github.com/cocosip/go-dicom/pkg/imaging/imagetypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocosip/go-raw-codec/raw"
)

func testResult(w, h, bits int) *raw.DecodedResult {
	pix := make([]uint16, w*h*4)
	maxValue := 1<<bits - 1
	for i := 0; i < w*h; i++ {
		pix[4*i] = uint16(i % (maxValue + 1))
		pix[4*i+1] = uint16((i * 3) % (maxValue + 1))
		pix[4*i+2] = uint16(maxValue - i%(maxValue+1))
		pix[4*i+3] = uint16(maxValue)
	}
	return &raw.DecodedResult{
		Metadata:      raw.Metadata{Width: w, Height: h},
		BitsPerSample: bits,
		Channels:      4,
		ColorSpace:    raw.ColorSpaceSRGB,
		Pix:           pix,
	}
}

type testParams struct {
	values  map[string]interface{}
	invalid bool
}

func (p *testParams) GetParameter(name string) interface{} { return p.values[name] }

func (p *testParams) SetParameter(name string, value interface{}) { p.values[name] = value }

func (p *testParams) Validate() error {
	if p.invalid {
		return errors.New("bad parameters")
	}
	return nil
}

// reverseCodec "compresses" a frame by reversing its bytes.
type reverseCodec struct {
	ts       *transfer.Syntax
	gotInfo  *imagetypes.FrameInfo
	gotParam codec.Parameters
}

func (c *reverseCodec) Name() string { return "reverse" }

func (c *reverseCodec) TransferSyntax() *transfer.Syntax { return c.ts }

func (c *reverseCodec) GetDefaultParameters() codec.Parameters {
	return &testParams{values: map[string]interface{}{"default": true}}
}

func (c *reverseCodec) Encode(oldPixelData, newPixelData imagetypes.PixelData, params codec.Parameters) error {
	c.gotInfo = oldPixelData.GetFrameInfo()
	c.gotParam = params
	frame, err := oldPixelData.GetFrame(0)
	if err != nil {
		return err
	}
	out := make([]byte, len(frame))
	for i, b := range frame {
		out[len(frame)-1-i] = b
	}
	return newPixelData.AddFrame(out)
}

func (c *reverseCodec) Decode(oldPixelData, newPixelData imagetypes.PixelData, _ codec.Parameters) error {
	return c.Encode(oldPixelData, newPixelData, nil)
}

type mapRegistry map[string]codec.Codec

func (m mapRegistry) GetCodec(ts *transfer.Syntax) (codec.Codec, bool) {
	c, ok := m[ts.UID().UID()]
	return c, ok
}

func TestFrameInfo(t *testing.T) {
	info, err := FrameInfo(testResult(640, 480, 16))
	require.NoError(t, err)

	assert.EqualValues(t, 640, info.Width)
	assert.EqualValues(t, 480, info.Height)
	assert.EqualValues(t, 16, info.BitsAllocated)
	assert.EqualValues(t, 16, info.BitsStored)
	assert.EqualValues(t, 15, info.HighBit)
	assert.EqualValues(t, 3, info.SamplesPerPixel)
	assert.EqualValues(t, 0, info.PixelRepresentation)
	assert.EqualValues(t, 0, info.PlanarConfiguration)
	assert.Equal(t, "RGB", info.PhotometricInterpretation)

	info, err = FrameInfo(testResult(4, 4, 8))
	require.NoError(t, err)
	assert.EqualValues(t, 8, info.BitsStored)
	assert.EqualValues(t, 7, info.HighBit)
}

func TestFrameInfoRejects(t *testing.T) {
	wide := &raw.DecodedResult{Metadata: raw.Metadata{Width: 70000, Height: 10}, BitsPerSample: 16}
	_, err := FrameInfo(wide)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = FrameInfo(&raw.DecodedResult{BitsPerSample: 16})
	assert.Error(t, err)

	odd := testResult(2, 2, 16)
	odd.BitsPerSample = 12
	_, err = FrameInfo(odd)
	assert.Error(t, err)
}

func TestNewPixelData(t *testing.T) {
	r := testResult(5, 3, 16)
	pd, err := NewPixelData(r)
	require.NoError(t, err)

	assert.Equal(t, 1, pd.FrameCount())
	assert.False(t, pd.IsEncapsulated())

	frame, err := pd.GetFrame(0)
	require.NoError(t, err)
	require.Len(t, frame, 5*3*3*2)
	for i := 0; i < 15; i++ {
		for c := 0; c < 3; c++ {
			got := binary.LittleEndian.Uint16(frame[6*i+2*c:])
			if got != r.Pix[4*i+c] {
				t.Fatalf("pixel %d channel %d = %d, want %d", i, c, got, r.Pix[4*i+c])
			}
		}
	}

	_, err = pd.GetFrame(1)
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestNewPixelData8Bit(t *testing.T) {
	r := testResult(4, 2, 8)
	pd, err := NewPixelData(r)
	require.NoError(t, err)

	frame, err := pd.GetFrame(0)
	require.NoError(t, err)
	require.Len(t, frame, 4*2*3)
	for i := 0; i < 8; i++ {
		assert.Equal(t, []byte{byte(r.Pix[4*i]), byte(r.Pix[4*i+1]), byte(r.Pix[4*i+2])}, frame[3*i:3*i+3])
	}
}

func TestTranscodeNative(t *testing.T) {
	r := testResult(6, 4, 16)
	native, err := NewPixelData(r)
	require.NoError(t, err)
	want, _ := native.GetFrame(0)

	got, err := Transcode(r, transfer.ExplicitVRLittleEndian, nil)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestTranscodeWithCodec(t *testing.T) {
	r := testResult(6, 4, 16)
	rc := &reverseCodec{ts: transfer.JPEG2000Lossless}
	reg := mapRegistry{transfer.JPEG2000Lossless.UID().UID(): rc}

	got, err := TranscodeWith(reg, r, transfer.JPEG2000Lossless, nil)
	require.NoError(t, err)

	native, _ := NewPixelData(r)
	frame, _ := native.GetFrame(0)
	require.Len(t, got, len(frame))
	assert.Equal(t, frame[0], got[len(got)-1])
	assert.Equal(t, frame[len(frame)-1], got[0])

	require.NotNil(t, rc.gotInfo)
	assert.EqualValues(t, 6, rc.gotInfo.Width)
	require.NotNil(t, rc.gotParam, "default parameters must be used when none are given")
	assert.Equal(t, true, rc.gotParam.GetParameter("default"))

	custom := &testParams{values: map[string]interface{}{"numLevels": 3}}
	_, err = TranscodeWith(reg, r, transfer.JPEG2000Lossless, custom)
	require.NoError(t, err)
	assert.Same(t, custom, rc.gotParam)
}

func TestTranscodeWithBaseParameters(t *testing.T) {
	r := testResult(3, 2, 16)
	rc := &reverseCodec{ts: transfer.JPEGLSLossless}
	reg := mapRegistry{transfer.JPEGLSLossless.UID().UID(): rc}

	params := codec.NewBaseParameters()
	params.SetParameter("nearLossless", 0)

	got, err := TranscodeWith(reg, r, transfer.JPEGLSLossless, params)
	require.NoError(t, err)
	assert.Len(t, got, 3*2*3*2)
	assert.Equal(t, params, rc.gotParam)
}

func TestTranscodeErrors(t *testing.T) {
	r := testResult(2, 2, 16)
	reg := mapRegistry{transfer.JPEG2000Lossless.UID().UID(): &reverseCodec{ts: transfer.JPEG2000Lossless}}

	_, err := TranscodeWith(reg, r, transfer.JPEGLSLossless, nil)
	assert.ErrorIs(t, err, ErrNoCodec)

	_, err = TranscodeWith(reg, r, transfer.JPEG2000Lossless, &testParams{invalid: true})
	assert.Error(t, err)

	huge := &raw.DecodedResult{Metadata: raw.Metadata{Width: 10, Height: 1 << 17}, BitsPerSample: 16}
	_, err = TranscodeWith(reg, huge, transfer.JPEG2000Lossless, nil)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestSyntaxByName(t *testing.T) {
	ts, err := SyntaxByName("JPEGLS-Lossless")
	require.NoError(t, err)
	assert.Equal(t, transfer.JPEGLSLossless, ts)

	ts, err = SyntaxByName("1.2.840.10008.1.2.4.90")
	require.NoError(t, err)
	assert.Equal(t, transfer.JPEG2000Lossless, ts)

	_, err = SyntaxByName("mpeg2")
	assert.Error(t, err)
}

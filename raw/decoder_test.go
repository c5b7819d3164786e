package raw_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/cocosip/go-raw-codec/raw"
	"github.com/cocosip/go-raw-codec/raw/rawtest"
)

func validSpec(seed byte) rawtest.Spec {
	return rawtest.Spec{
		Width:       48,
		Height:      32,
		Seed:        seed,
		Flip:        6,
		ISO:         400,
		FocalLength: 35,
		Aperture:    2.8,
		Shutter:     1.0 / 250,
	}
}

func checkNoLeaks(t *testing.T, e *rawtest.Engine) {
	t.Helper()
	c := e.Counts()
	if c.Leaked() != 0 {
		t.Errorf("leaked resources: %+v", c)
	}
	if p := e.Problems(); len(p) != 0 {
		t.Errorf("engine protocol problems: %v", p)
	}
}

func TestDecodeFourChannelLayout(t *testing.T) {
	engine := &rawtest.Engine{}
	dec := raw.NewDecoder(engine)

	res, err := dec.Decode(rawtest.Buffer(validSpec(1)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if res.Channels != 4 {
		t.Errorf("Channels = %d, want 4", res.Channels)
	}
	if res.BitsPerSample != 16 {
		t.Errorf("BitsPerSample = %d, want 16", res.BitsPerSample)
	}
	if res.ColorSpace != raw.ColorSpaceSRGB {
		t.Errorf("ColorSpace = %v, want sRGB", res.ColorSpace)
	}

	wantBytes := res.Width * res.Height * 4 * (res.BitsPerSample / 8)
	if res.ByteLen() != wantBytes {
		t.Errorf("ByteLen() = %d, want %d", res.ByteLen(), wantBytes)
	}
	if len(res.Pix) != res.Width*res.Height*4 {
		t.Errorf("len(Pix) = %d, want %d", len(res.Pix), res.Width*res.Height*4)
	}

	for i := 3; i < len(res.Pix); i += 4 {
		if res.Pix[i] != 65535 {
			t.Fatalf("alpha sample %d = %d, want 65535", i/4, res.Pix[i])
		}
	}

	checkNoLeaks(t, engine)
	t.Logf("Decoded %dx%d, %d bytes", res.Width, res.Height, res.ByteLen())
}

func TestDecodeMetadata(t *testing.T) {
	engine := &rawtest.Engine{}
	res, err := raw.NewDecoder(engine).Decode(rawtest.Buffer(validSpec(2)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if res.RawWidth != 48 || res.RawHeight != 32 {
		t.Errorf("raw size = %dx%d, want 48x32", res.RawWidth, res.RawHeight)
	}
	if res.ISO != 400 {
		t.Errorf("ISO = %v, want 400", res.ISO)
	}
	if res.FocalLength != 35 {
		t.Errorf("FocalLength = %v, want 35", res.FocalLength)
	}
	if res.Aperture != 2.8 {
		t.Errorf("Aperture = %v, want 2.8", res.Aperture)
	}
	if res.Shutter != float32(1.0/250) {
		t.Errorf("Shutter = %v, want 1/250", res.Shutter)
	}
	if res.Flip != 6 {
		t.Errorf("Flip = %d, want 6", res.Flip)
	}
	if res.Colors != 3 || res.Bits != 16 {
		t.Errorf("engine layout = %d colors at %d bits, want 3 at 16", res.Colors, res.Bits)
	}
}

func TestDecodeCropCoversSensor(t *testing.T) {
	sizes := []struct{ w, h int }{{1, 1}, {7, 3}, {48, 32}, {100, 1}}

	for _, sz := range sizes {
		engine := &rawtest.Engine{}
		spec := rawtest.Spec{Width: sz.w, Height: sz.h}
		res, err := raw.NewDecoder(engine).Decode(rawtest.Buffer(spec))
		if err != nil {
			t.Fatalf("%dx%d: Decode failed: %v", sz.w, sz.h, err)
		}
		if res.Width != res.RawWidth || res.Height != res.RawHeight {
			t.Errorf("%dx%d: output %dx%d differs from raw extent %dx%d",
				sz.w, sz.h, res.Width, res.Height, res.RawWidth, res.RawHeight)
		}

		params := engine.Parameters()
		if len(params) != 1 {
			t.Fatalf("%dx%d: %d parameter sets applied, want 1", sz.w, sz.h, len(params))
		}
		want := [4]int{0, 0, sz.w, sz.h}
		if params[0].CropBox != want {
			t.Errorf("%dx%d: CropBox = %v, want %v", sz.w, sz.h, params[0].CropBox, want)
		}
	}
}

func TestDecodeDeterministic(t *testing.T) {
	engine := &rawtest.Engine{}
	dec := raw.NewDecoder(engine)
	buf := rawtest.Buffer(validSpec(9))

	first, err := dec.Decode(buf)
	if err != nil {
		t.Fatalf("first Decode failed: %v", err)
	}
	second, err := dec.Decode(buf)
	if err != nil {
		t.Fatalf("second Decode failed: %v", err)
	}

	if first.Metadata != second.Metadata {
		t.Errorf("metadata differs: %+v vs %+v", first.Metadata, second.Metadata)
	}
	if len(first.Pix) != len(second.Pix) {
		t.Fatalf("pixel length differs: %d vs %d", len(first.Pix), len(second.Pix))
	}
	for i := range first.Pix {
		if first.Pix[i] != second.Pix[i] {
			t.Fatalf("sample %d differs: %d vs %d", i, first.Pix[i], second.Pix[i])
		}
	}
	if &first.Pix[0] == &second.Pix[0] {
		t.Error("results share pixel storage")
	}

	if c := engine.Counts(); c.Sessions != 2 {
		t.Errorf("Sessions = %d, want a fresh session per decode", c.Sessions)
	}
	checkNoLeaks(t, engine)
}

func TestDecodeOpenFailures(t *testing.T) {
	valid := rawtest.Buffer(validSpec(3))

	tests := []struct {
		name         string
		data         []byte
		wantSessions int
	}{
		{name: "empty", data: nil, wantSessions: 0},
		{name: "zero length", data: []byte{}, wantSessions: 0},
		{name: "truncated header", data: valid[:10], wantSessions: 1},
		{name: "truncated sensor data", data: valid[:len(valid)-1], wantSessions: 1},
		{name: "not a raw file", data: []byte("hello, world"), wantSessions: 1},
		{name: "scripted", data: rawtest.Buffer(rawtest.Spec{Width: 4, Height: 4, Fail: rawtest.StageOpen}), wantSessions: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &rawtest.Engine{}
			res, err := raw.NewDecoder(engine).Decode(tt.data)
			if res != nil {
				t.Errorf("Decode returned a result alongside error %v", err)
			}
			if !errors.Is(err, raw.ErrOpenFailed) {
				t.Fatalf("error = %v, want ErrOpenFailed", err)
			}
			if raw.KindOf(err) != raw.OpenFailed {
				t.Errorf("KindOf = %v, want OpenFailed", raw.KindOf(err))
			}

			c := engine.Counts()
			if c.Sessions != tt.wantSessions {
				t.Errorf("Sessions = %d, want %d", c.Sessions, tt.wantSessions)
			}
			if c.Unpacks != 0 || c.Processes != 0 || c.Images != 0 {
				t.Errorf("later stages ran after open failure: %+v", c)
			}
			checkNoLeaks(t, engine)
		})
	}
}

func TestDecodeStageFailures(t *testing.T) {
	tests := []struct {
		name     string
		stage    rawtest.Stage
		want     error
		wantKind raw.ErrorKind
	}{
		{"unpack", rawtest.StageUnpack, raw.ErrUnpackFailed, raw.UnpackFailed},
		{"process", rawtest.StageProcess, raw.ErrDemosaicFailed, raw.DemosaicFailed},
		{"layout", rawtest.StageLayout, raw.ErrDemosaicFailed, raw.DemosaicFailed},
		{"layout with image", rawtest.StageLayoutImage, raw.ErrDemosaicFailed, raw.DemosaicFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &rawtest.Engine{}
			spec := validSpec(4)
			spec.Fail = tt.stage

			res, err := raw.NewDecoder(engine).Decode(rawtest.Buffer(spec))
			if res != nil {
				t.Error("Decode returned a result on failure")
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, rawtest.ErrScripted) {
				t.Errorf("engine cause not wrapped: %v", err)
			}
			var de *raw.DecodeError
			if !errors.As(err, &de) || de.Kind != tt.wantKind {
				t.Errorf("error %v is not a DecodeError of kind %v", err, tt.wantKind)
			}
			checkNoLeaks(t, engine)
		})
	}
}

func TestDecodeKeepsFileOrientation(t *testing.T) {
	for _, flip := range []int{0, 3, 5, 6} {
		engine := &rawtest.Engine{}
		spec := validSpec(9)
		spec.Flip = flip

		res, err := raw.NewDecoder(engine).Decode(rawtest.Buffer(spec))
		if err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		// The engine rewrites its flip code from UserFlip while processing.
		if got := engine.Parameters()[0].UserFlip; got != 0 {
			t.Fatalf("UserFlip = %d, want 0", got)
		}
		if res.Flip != flip {
			t.Errorf("Flip = %d, want file orientation %d", res.Flip, flip)
		}
		checkNoLeaks(t, engine)
	}
}

func TestDecodeAfterDemosaicFailure(t *testing.T) {
	engine := &rawtest.Engine{}
	dec := raw.NewDecoder(engine)

	bad := validSpec(5)
	bad.Fail = rawtest.StageProcess
	if _, err := dec.Decode(rawtest.Buffer(bad)); !errors.Is(err, raw.ErrDemosaicFailed) {
		t.Fatalf("first decode error = %v, want ErrDemosaicFailed", err)
	}

	good := validSpec(6)
	good.Width, good.Height = 20, 10
	res, err := dec.Decode(rawtest.Buffer(good))
	if err != nil {
		t.Fatalf("decode after failure: %v", err)
	}
	if res.Width != 20 || res.Height != 10 {
		t.Errorf("size = %dx%d, want 20x10", res.Width, res.Height)
	}
	checkNoLeaks(t, engine)
}

func TestDecodeSessionAllocationFailure(t *testing.T) {
	engine := &rawtest.Engine{FailNewSession: true}
	_, err := raw.NewDecoder(engine).Decode(rawtest.Buffer(validSpec(1)))
	if !errors.Is(err, raw.ErrOpenFailed) {
		t.Errorf("error = %v, want ErrOpenFailed", err)
	}
}

func TestDecodeRejectsMalformedLayout(t *testing.T) {
	engine := &rawtest.Engine{}
	spec := validSpec(7)
	spec.Colors = 2

	_, err := raw.NewDecoder(engine).Decode(rawtest.Buffer(spec))
	if !errors.Is(err, raw.ErrDemosaicFailed) {
		t.Fatalf("error = %v, want ErrDemosaicFailed", err)
	}
	if !errors.Is(err, raw.ErrMalformedImage) {
		t.Errorf("error = %v, want ErrMalformedImage cause", err)
	}
	checkNoLeaks(t, engine)
}

func TestDecodeConcurrentSessions(t *testing.T) {
	engine := &rawtest.Engine{}
	dec := raw.NewDecoder(engine)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(seed byte) {
			defer wg.Done()
			_, err := dec.Decode(rawtest.Buffer(validSpec(seed)))
			errs <- err
		}(byte(i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent decode failed: %v", err)
		}
	}
	if c := engine.Counts(); c.Sessions != 16 {
		t.Errorf("Sessions = %d, want 16", c.Sessions)
	}
	checkNoLeaks(t, engine)
}

func TestDecodeLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	raw.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer raw.SetLogger(nil)

	engine := &rawtest.Engine{}
	spec := validSpec(8)
	spec.Fail = rawtest.StageUnpack
	_, _ = raw.NewDecoder(engine).Decode(rawtest.Buffer(spec))

	out := buf.String()
	if !strings.Contains(out, "decode failed") {
		t.Errorf("log output missing failure record: %q", out)
	}
	if !strings.Contains(out, "stage=UnpackFailed") {
		t.Errorf("log output missing stage: %q", out)
	}
	if !strings.Contains(out, "trace_id=") {
		t.Errorf("log output missing trace id: %q", out)
	}
}

func TestVersion(t *testing.T) {
	dec := raw.NewDecoder(&rawtest.Engine{})
	if v := dec.Version(); v != "rawtest-1.0" {
		t.Errorf("Version() = %q, want %q", v, "rawtest-1.0")
	}
}

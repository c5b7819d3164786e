package rawio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocosip/go-raw-codec/raw/rawtest"
)

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestUnwrap(t *testing.T) {
	payload := rawtest.Buffer(rawtest.Spec{Width: 64, Height: 64, Seed: 9})

	tests := []struct {
		name string
		data []byte
		want Compression
	}{
		{"plain", payload, None},
		{"zstd", zstdBytes(t, payload), Zstd},
		{"gzip", gzipBytes(t, payload), Gzip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.data))

			out, err := Unwrap(tt.data)
			require.NoError(t, err)
			assert.Equal(t, payload, out)
		})
	}
}

func TestUnwrapLimit(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 4096)

	for name, data := range map[string][]byte{
		"zstd": zstdBytes(t, payload),
		"gzip": gzipBytes(t, payload),
	} {
		_, err := UnwrapLimit(data, 4095)
		assert.ErrorIs(t, err, ErrTooLarge, name)

		out, err := UnwrapLimit(data, 4096)
		require.NoError(t, err, name)
		assert.Len(t, out, 4096, name)
	}
}

func TestUnwrapCorrupt(t *testing.T) {
	_, err := Unwrap([]byte{0x28, 0xB5, 0x2F, 0xFD, 0x00, 0x01})
	assert.Error(t, err)

	_, err = Unwrap([]byte{0x1F, 0x8B, 0x00})
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	payload := rawtest.Buffer(rawtest.Spec{Width: 16, Height: 16})

	plain := filepath.Join(dir, "photo.raw")
	packed := filepath.Join(dir, "photo.raw.zst")
	require.NoError(t, os.WriteFile(plain, payload, 0o600))
	require.NoError(t, os.WriteFile(packed, zstdBytes(t, payload), 0o600))

	for _, path := range []string{plain, packed} {
		out, err := ReadFile(path)
		require.NoError(t, err, path)
		assert.Equal(t, payload, out, path)
	}

	_, err := ReadFileLimit(plain, 10)
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = ReadFile(filepath.Join(dir, "missing.raw"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

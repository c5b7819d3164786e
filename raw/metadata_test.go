package raw

import (
	"strings"
	"testing"
)

func TestShutterString(t *testing.T) {
	tests := []struct {
		shutter float32
		want    string
	}{
		{1.0 / 250, "1/250"},
		{1.0 / 8000, "1/8000"},
		{0.5, "1/2"},
		{1, "1"},
		{2.5, "2.5"},
		{30, "30"},
		{0, "0"},
	}

	for _, tt := range tests {
		m := Metadata{Shutter: tt.shutter}
		if got := m.ShutterString(); got != tt.want {
			t.Errorf("ShutterString(%v) = %q, want %q", tt.shutter, got, tt.want)
		}
	}
}

func TestSummary(t *testing.T) {
	m := Metadata{
		RawWidth: 6024, RawHeight: 4020,
		Width: 6024, Height: 4020,
		ISO: 100, FocalLength: 50, Aperture: 1.8, Shutter: 1.0 / 125,
	}
	s := m.Summary()

	for _, want := range []string{
		"Dimensions: 6024x4020",
		"Focal Length: 50mm",
		"Aperture: f/1.8",
		"ISO: 100",
		"Shutter: 1/125",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("Summary() missing %q:\n%s", want, s)
		}
	}
}

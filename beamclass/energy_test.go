package beamclass

import (
	"strings"
	"testing"
)

func TestDecodeEnergyMaskFirstBands(t *testing.T) {
	desc, err := DecodeEnergyMask(0b11, 'k')
	if err != nil {
		t.Fatalf("DecodeEnergyMask failed: %v", err)
	}
	lines := strings.Split(desc, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 bands, got %d: %q", len(lines), desc)
	}
	if lines[0] != "0 eV to 100 eV" {
		t.Fatalf("unexpected first band %q", lines[0])
	}
	if lines[1] != "100 eV to 250 eV" {
		t.Fatalf("unexpected second band %q", lines[1])
	}
}

func TestDecodeEnergyMaskLinesDiffer(t *testing.T) {
	kDesc, err := DecodeEnergyMask(1, 'k')
	if err != nil {
		t.Fatalf("DecodeEnergyMask k failed: %v", err)
	}
	lDesc, err := DecodeEnergyMask(1, 'L')
	if err != nil {
		t.Fatalf("DecodeEnergyMask L failed: %v", err)
	}
	if kDesc == lDesc {
		t.Fatalf("expected different bands per line, both %q", kDesc)
	}
}

func TestDecodeEnergyMaskUnknownLine(t *testing.T) {
	if _, err := DecodeEnergyMask(1, 'x'); err == nil {
		t.Fatalf("expected error for unknown line")
	}
}

func TestDecodeEnergyMaskEmpty(t *testing.T) {
	desc, err := DecodeEnergyMask(0, 'l')
	if err != nil {
		t.Fatalf("DecodeEnergyMask failed: %v", err)
	}
	if desc != "no energy ranges permitted" {
		t.Fatalf("unexpected description %q", desc)
	}
}

func TestLineFromDeviceName(t *testing.T) {
	cases := []struct {
		name string
		line rune
		ok   bool
	}{
		{"mr1l0-flat_mirror", 'l', true},
		{"IM2K4-ppm", 'k', true},
		{"sl1k2-exit_slits", 'k', true},
		{"kl-device", 'l', true},
		{"tmo-spectrometer", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		line, ok := LineFromDeviceName(tc.name)
		if ok != tc.ok || line != tc.line {
			t.Fatalf("LineFromDeviceName(%q) = %q, %v; want %q, %v", tc.name, line, ok, tc.line, tc.ok)
		}
	}
}

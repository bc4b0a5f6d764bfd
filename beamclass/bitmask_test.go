package beamclass

import (
	"strings"
	"testing"
)

func TestZeroPadBinaryNormalizesNegatives(t *testing.T) {
	if got := ZeroPadBinary(-1, 16); got != "1111111111111111" {
		t.Fatalf("expected 16 ones for -1, got %q", got)
	}
	if got := ZeroPadBinary(-1, 32); got != strings.Repeat("1", 32) {
		t.Fatalf("expected 32 ones for -1, got %q", got)
	}
	if got := ZeroPadBinary(-2, 4); got != "1110" {
		t.Fatalf("expected 1110 for -2 at width 4, got %q", got)
	}
}

func TestZeroPadBinaryWidthAndCharset(t *testing.T) {
	cases := []struct {
		value int64
		width int
	}{
		{0, 16},
		{1, 16},
		{5, 16},
		{-1, 16},
		{-32768, 16},
		{0, 32},
		{123456, 32},
		{-2147483648, 32},
	}
	for _, tc := range cases {
		got := ZeroPadBinary(tc.value, tc.width)
		if len(got) != tc.width {
			t.Fatalf("ZeroPadBinary(%d, %d) length %d, want %d", tc.value, tc.width, len(got), tc.width)
		}
		for _, r := range got {
			if r != '0' && r != '1' {
				t.Fatalf("ZeroPadBinary(%d, %d) = %q contains %q", tc.value, tc.width, got, r)
			}
		}
	}
}

func TestZeroPadBinaryAgreesWithParseMask(t *testing.T) {
	for _, value := range []int64{0, 1, 2, 3, 120, 32767} {
		raw := ZeroPadBinary(value, BeamClassMaskWidth)
		parsed, err := ParseMask(raw)
		if err != nil {
			t.Fatalf("ParseMask(%q) failed: %v", raw, err)
		}
		if parsed != uint64(value) {
			t.Fatalf("round trip of %d gave %d", value, parsed)
		}
	}
}

func TestParseMaskRejectsNonBinary(t *testing.T) {
	for _, raw := range []string{"", "0120", "abc", "0b11"} {
		if _, err := ParseMask(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestDecodeBeamClassMaskNamesExactClasses(t *testing.T) {
	desc := DecodeBeamClassMask(0b11)
	if !strings.Contains(desc, "Beam Off") {
		t.Fatalf("expected Beam Off in %q", desc)
	}
	if !strings.Contains(desc, "Kicker STBY") {
		t.Fatalf("expected Kicker STBY in %q", desc)
	}
	for _, class := range Classes[2:] {
		if strings.Contains(desc, class.Name) {
			t.Fatalf("did not expect %q in %q", class.Name, desc)
		}
	}
}

func TestDecodeBeamClassMaskSingleBit(t *testing.T) {
	desc := DecodeBeamClassMask(1)
	if desc != "0: Beam Off" {
		t.Fatalf("unexpected description %q", desc)
	}
}

func TestDecodeBeamClassMaskEmpty(t *testing.T) {
	desc := DecodeBeamClassMask(0)
	if desc != "no beam classes permitted" {
		t.Fatalf("unexpected description %q", desc)
	}
	for _, class := range Classes {
		if strings.Contains(desc, class.Name) {
			t.Fatalf("did not expect %q in %q", class.Name, desc)
		}
	}
}

func TestDecodeBeamClassMaskIgnoresBitsBeyondTable(t *testing.T) {
	desc := DecodeBeamClassMask(1 << 15)
	if desc != "no beam classes permitted" {
		t.Fatalf("unexpected description %q", desc)
	}
}

package beamclass

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// BeamClassMaskWidth is the bit width of a beam-class permission mask.
	BeamClassMaskWidth = 16
	// EnergyMaskWidth is the bit width of a photon-energy permission mask.
	EnergyMaskWidth = 32
)

// ZeroPadBinary renders value as a binary string left-padded with zeros to
// width characters. Control-system channels deliver intrinsically unsigned
// bitmasks through signed integers, so a negative value is first normalized
// into [0, 2^width).
func ZeroPadBinary(value int64, width int) string {
	if value < 0 {
		value += 1 << width
	}
	return fmt.Sprintf("%0*b", width, value)
}

// ParseMask converts the binary-string form of a bitmask into its integer
// value.
func ParseMask(raw string) (uint64, error) {
	value, err := strconv.ParseUint(raw, 2, 64)
	if err != nil {
		return 0, fmt.Errorf("beamclass: invalid bitmask %q: %w", raw, err)
	}
	return value, nil
}

// DecodeBeamClassMask expands a permitted-beam-class bitmask into a
// line-per-class summary. Bit i selects the class at index i; bits beyond the
// table are ignored.
func DecodeBeamClassMask(mask uint64) string {
	var lines []string
	for _, class := range Classes {
		if mask&(1<<uint(class.Index)) != 0 {
			lines = append(lines, fmt.Sprintf("%d: %s", class.Index, class.Name))
		}
	}
	if len(lines) == 0 {
		return "no beam classes permitted"
	}
	return strings.Join(lines, "\n")
}

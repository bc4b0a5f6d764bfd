package beamclass

import (
	"fmt"
	"strings"
	"unicode"
)

// DefaultLine is the accelerator line assumed when a device name carries no
// line letter.
const DefaultLine = 'l'

// Photon energy band upper bounds in eV, one ascending table per accelerator
// line. Bit i of an energy mask covers the band from the previous bound
// (0 for bit 0) up to bound i.
var energyBounds = map[rune][EnergyMaskWidth]float64{
	'l': {
		1000, 1700, 2100, 2500, 3800, 4000, 5000, 7000, 7500, 7700,
		8900, 10000, 11100, 12000, 13000, 13500, 14000, 16900, 18000, 20000,
		22000, 24000, 25000, 25500, 26000, 27000, 28000, 28500, 29000, 30000,
		60000, 90000,
	},
	'k': {
		100, 250, 270, 350, 400, 450, 480, 530, 680, 730,
		850, 1100, 1150, 1250, 1450, 1500, 1550, 1650, 1700, 1900,
		1950, 2000, 2200, 2500, 2800, 3000, 3150, 3500, 4000, 4500,
		5000, 5300,
	},
}

// DecodeEnergyMask expands a permitted-photon-energy bitmask into a
// line-per-band summary for the given accelerator line.
func DecodeEnergyMask(mask uint64, line rune) (string, error) {
	line = unicode.ToLower(line)
	bounds, ok := energyBounds[line]
	if !ok {
		return "", fmt.Errorf("beamclass: unknown accelerator line %q", line)
	}
	var lines []string
	lower := 0.0
	for i, upper := range bounds {
		if mask&(1<<uint(i)) != 0 {
			lines = append(lines, fmt.Sprintf("%g eV to %g eV", lower, upper))
		}
		lower = upper
	}
	if len(lines) == 0 {
		return "no energy ranges permitted", nil
	}
	return strings.Join(lines, "\n"), nil
}

// LineFromDeviceName infers the accelerator line from a device name. The
// line letter is the last 'l' or 'k' in the first dash-separated token of
// the name, lowercased. Reports false when the token names neither line.
func LineFromDeviceName(name string) (rune, bool) {
	prefix, _, _ := strings.Cut(strings.ToLower(name), "-")
	line := rune(0)
	for _, r := range prefix {
		if r == 'l' || r == 'k' {
			line = r
		}
	}
	return line, line != 0
}

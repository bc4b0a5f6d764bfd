package models

import (
	"fmt"
	"maps"
	"slices"
)

// DiffKind classifies one finding of a structural comparison.
type DiffKind string

const (
	// DiffOnlyInA marks a path present only in the first compared contents.
	DiffOnlyInA DiffKind = "only_in_a"
	// DiffOnlyInB marks a path present only in the second compared contents.
	DiffOnlyInB DiffKind = "only_in_b"
	// DiffValueMismatch marks a field whose values differ between the sides.
	DiffValueMismatch DiffKind = "value_mismatch"
)

// Finding is one structural difference located by its device/state/field
// path. ValueA and ValueB are set for value mismatches only.
type Finding struct {
	Path   string
	Kind   DiffKind
	Field  string
	ValueA string
	ValueB string
}

// Diff is the result of structurally comparing two parsed exports. Matching
// paths contribute no findings.
type Diff struct {
	Findings []Finding
}

// Equal reports whether the comparison found no differences.
func (d *Diff) Equal() bool {
	return len(d.Findings) == 0
}

// Compare walks two parsed exports and reports every structural difference:
// devices present on one side only, states present on one side only, and
// fields whose values differ. Bitmask fields compare on decoded value, so
// equivalent masks serialized differently still match. The walk is pure and
// order-independent; devices and states are visited in sorted order, fields
// in schema order.
func Compare(a, b *FileContents) *Diff {
	diff := &Diff{}
	for _, device := range unionKeys(a.Devices, b.Devices) {
		aStates, inA := a.Devices[device]
		bStates, inB := b.Devices[device]
		switch {
		case !inB:
			diff.Findings = append(diff.Findings, Finding{Path: device, Kind: DiffOnlyInA})
		case !inA:
			diff.Findings = append(diff.Findings, Finding{Path: device, Kind: DiffOnlyInB})
		default:
			compareDevice(diff, device, aStates, bStates)
		}
	}
	return diff
}

func compareDevice(diff *Diff, device string, a, b DeviceStates) {
	for _, state := range unionKeys(a, b) {
		path := device + "/" + state
		aParams, inA := a[state]
		bParams, inB := b[state]
		switch {
		case !inB:
			diff.Findings = append(diff.Findings, Finding{Path: path, Kind: DiffOnlyInA})
		case !inA:
			diff.Findings = append(diff.Findings, Finding{Path: path, Kind: DiffOnlyInB})
		default:
			for _, finding := range compareParameters(aParams, bParams) {
				finding.Path = path + "/" + finding.Field
				diff.Findings = append(diff.Findings, finding)
			}
		}
	}
}

func compareParameters(a, b BeamParameters) []Finding {
	var findings []Finding
	add := func(field string, av, bv any) {
		if av != bv {
			findings = append(findings, Finding{
				Kind:   DiffValueMismatch,
				Field:  field,
				ValueA: fmt.Sprintf("%v", av),
				ValueB: fmt.Sprintf("%v", bv),
			})
		}
	}
	add("id", a.ID, b.ID)
	add("name", a.Name, b.Name)
	add("beamline", a.Beamline, b.Beamline)
	add("nBeamClassRange", a.BeamClassRange.Value, b.BeamClassRange.Value)
	add("neVRange", a.PhotonEnergyRange.Value, b.PhotonEnergyRange.Value)
	add("nTran", a.TransmissionLimit, b.TransmissionLimit)
	add("nRate", a.RateLimit, b.RateLimit)
	add("ap_name", a.Aperture.Name, b.Aperture.Name)
	add("ap_xgap", a.Aperture.XGap, b.Aperture.XGap)
	add("ap_xcenter", a.Aperture.XCenter, b.Aperture.XCenter)
	add("ap_ygap", a.Aperture.YGap, b.Aperture.YGap)
	add("ap_ycenter", a.Aperture.YCenter, b.Aperture.YCenter)
	add("damage_limit", a.DamageLimit, b.DamageLimit)
	add("pulse_energy", a.PulseEnergy, b.PulseEnergy)
	add("notes", a.Notes, b.Notes)
	add("special", a.Special, b.Special)
	return findings
}

func unionKeys[V any](a, b map[string]V) []string {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	return slices.Sorted(maps.Keys(keys))
}

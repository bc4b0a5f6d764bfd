package models

import (
	"fmt"
	"reflect"
	"testing"
)

func stateJSON(id int, rate string, mask string) string {
	return fmt.Sprintf(`{
		"id": %d,
		"name": "OUT",
		"beamline": "K2",
		"nBeamClassRange": "%s",
		"neVRange": "00000000000000000000000000000001",
		"nTran": "1.0",
		"nRate": "%s",
		"ap_name": "",
		"ap_xgap": 0,
		"ap_xcenter": 0,
		"ap_ygap": 0,
		"ap_ycenter": 0,
		"damage_limit": "",
		"pulse_energy": "",
		"notes": "",
		"special": false
	}`, id, mask, rate)
}

func TestCompareReflexive(t *testing.T) {
	contents := mustParse(t, validExport)
	if diff := Compare(contents, contents); !diff.Equal() {
		t.Fatalf("expected empty diff, got %+v", diff.Findings)
	}
	other := mustParse(t, validExport)
	if diff := Compare(contents, other); !diff.Equal() {
		t.Fatalf("expected empty diff across parses, got %+v", diff.Findings)
	}
}

func TestCompareReportsSortedFindings(t *testing.T) {
	a := mustParse(t, fmt.Sprintf(`{"plc-kfe-motion": {
		"im2k2-ppm": {"OUT": %s, "TARGET1": %s},
		"sl1k2-exit_slits": {"OUT": %s}
	}}`,
		stateJSON(1, "120", "0000000000000011"),
		stateJSON(2, "1", "0000000000000001"),
		stateJSON(3, "0", "0000000000000001"),
	))
	b := mustParse(t, fmt.Sprintf(`{"plc-kfe-motion": {
		"im2k2-ppm": {"OUT": %s, "TARGET2": %s},
		"al1k2-attenuator": {"OUT": %s}
	}}`,
		stateJSON(1, "60", "0000000000000011"),
		stateJSON(2, "1", "0000000000000001"),
		stateJSON(4, "0", "0000000000000001"),
	))

	want := []Finding{
		{Path: "al1k2-attenuator", Kind: DiffOnlyInB},
		{Path: "im2k2-ppm/OUT/nRate", Kind: DiffValueMismatch, Field: "nRate", ValueA: "120", ValueB: "60"},
		{Path: "im2k2-ppm/TARGET1", Kind: DiffOnlyInA},
		{Path: "im2k2-ppm/TARGET2", Kind: DiffOnlyInB},
		{Path: "sl1k2-exit_slits", Kind: DiffOnlyInA},
	}
	diff := Compare(a, b)
	if !reflect.DeepEqual(diff.Findings, want) {
		t.Fatalf("unexpected findings:\n got %+v\nwant %+v", diff.Findings, want)
	}
}

func TestCompareSymmetricSwapsRoles(t *testing.T) {
	a := mustParse(t, fmt.Sprintf(`{"plc": {"im2k2-ppm": {"OUT": %s}, "sl1k2-slits": {"OUT": %s}}}`,
		stateJSON(1, "120", "0000000000000011"),
		stateJSON(2, "0", "0000000000000001"),
	))
	b := mustParse(t, fmt.Sprintf(`{"plc": {"im2k2-ppm": {"OUT": %s}}}`,
		stateJSON(1, "60", "0000000000000011"),
	))

	forward := Compare(a, b)
	backward := Compare(b, a)
	if len(forward.Findings) != len(backward.Findings) {
		t.Fatalf("finding counts differ: %d vs %d", len(forward.Findings), len(backward.Findings))
	}
	for i, f := range forward.Findings {
		r := backward.Findings[i]
		if f.Path != r.Path {
			t.Fatalf("paths differ at %d: %q vs %q", i, f.Path, r.Path)
		}
		switch f.Kind {
		case DiffOnlyInA:
			if r.Kind != DiffOnlyInB {
				t.Fatalf("expected swapped kind at %q, got %q", f.Path, r.Kind)
			}
		case DiffOnlyInB:
			if r.Kind != DiffOnlyInA {
				t.Fatalf("expected swapped kind at %q, got %q", f.Path, r.Kind)
			}
		case DiffValueMismatch:
			if r.Kind != DiffValueMismatch || f.ValueA != r.ValueB || f.ValueB != r.ValueA {
				t.Fatalf("expected swapped values at %q: %+v vs %+v", f.Path, f, r)
			}
		}
	}
}

func TestCompareMasksOnDecodedValue(t *testing.T) {
	a := mustParse(t, fmt.Sprintf(`{"plc": {"im2k2-ppm": {"OUT": %s}}}`, stateJSON(1, "120", "0000000000000011")))
	b := mustParse(t, fmt.Sprintf(`{"plc": {"im2k2-ppm": {"OUT": %s}}}`, stateJSON(1, "120", "11")))
	if a.Devices["im2k2-ppm"]["OUT"].BeamClassRange.Raw == b.Devices["im2k2-ppm"]["OUT"].BeamClassRange.Raw {
		t.Fatalf("fixtures should serialize the mask differently")
	}
	if diff := Compare(a, b); !diff.Equal() {
		t.Fatalf("expected equal contents for equivalent masks, got %+v", diff.Findings)
	}
}

func TestComparePLCNameIgnored(t *testing.T) {
	a := mustParse(t, fmt.Sprintf(`{"plc-a": {"im2k2-ppm": {"OUT": %s}}}`, stateJSON(1, "120", "11")))
	b := mustParse(t, fmt.Sprintf(`{"plc-b": {"im2k2-ppm": {"OUT": %s}}}`, stateJSON(1, "120", "11")))
	if diff := Compare(a, b); !diff.Equal() {
		t.Fatalf("expected device-level comparison only, got %+v", diff.Findings)
	}
}

func TestBeamParametersEqual(t *testing.T) {
	a := mustParse(t, fmt.Sprintf(`{"plc": {"im2k2-ppm": {"OUT": %s}}}`, stateJSON(1, "120", "11")))
	b := mustParse(t, fmt.Sprintf(`{"plc": {"im2k2-ppm": {"OUT": %s}}}`, stateJSON(1, "60", "11")))
	base := a.Devices["im2k2-ppm"]["OUT"]
	if !base.Equal(base) {
		t.Fatalf("expected parameters to equal themselves")
	}
	if base.Equal(b.Devices["im2k2-ppm"]["OUT"]) {
		t.Fatalf("expected differing rate to break equality")
	}
}

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"

	"plcdb/beamclass"
)

// SchemaError reports raw export JSON whose shape does not match the
// expected schema. Device, State and Field locate the offending entry when
// known.
type SchemaError struct {
	Device string
	State  string
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	path := e.Field
	if e.State != "" {
		path = e.State + "/" + path
	}
	if e.Device != "" {
		path = e.Device + "/" + path
	}
	if path == "" {
		return "models: " + e.Reason
	}
	return fmt.Sprintf("models: %s: %s", path, e.Reason)
}

// Parse decodes a raw configuration export. The top level must be a JSON
// object with exactly one key, the PLC name, mapping device name to state
// name to a parameter object carrying every required field. Any missing or
// mistyped field fails the whole parse with a *SchemaError; a partial result
// is never returned. Parsing the same bytes twice yields identical contents.
func Parse(raw []byte) (*FileContents, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, &SchemaError{Reason: fmt.Sprintf("not a JSON object: %v", err)}
	}
	if len(top) != 1 {
		return nil, &SchemaError{Reason: fmt.Sprintf("expected exactly one top-level PLC name, found %d keys", len(top))}
	}
	contents := &FileContents{Devices: make(map[string]DeviceStates)}
	for plcName, rawDevices := range top {
		contents.PLCName = plcName
		var devices map[string]json.RawMessage
		if err := json.Unmarshal(rawDevices, &devices); err != nil {
			return nil, &SchemaError{Reason: fmt.Sprintf("PLC %q does not map devices to states: %v", plcName, err)}
		}
		for _, device := range slices.Sorted(maps.Keys(devices)) {
			var states map[string]json.RawMessage
			if err := json.Unmarshal(devices[device], &states); err != nil {
				return nil, &SchemaError{Device: device, Reason: fmt.Sprintf("not a state mapping: %v", err)}
			}
			deviceStates := make(DeviceStates, len(states))
			for _, state := range slices.Sorted(maps.Keys(states)) {
				fields, err := decodeFields(states[state])
				if err != nil {
					return nil, &SchemaError{Device: device, State: state, Reason: fmt.Sprintf("not a parameter object: %v", err)}
				}
				params, err := parseState(device, state, fields)
				if err != nil {
					return nil, err
				}
				deviceStates[state] = params
			}
			contents.Devices[device] = deviceStates
		}
	}
	return contents, nil
}

func decodeFields(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// parseState converts one raw parameter object field by field. Conversion is
// explicit per field; numeric fields accept JSON numbers or numeric strings.
func parseState(device, state string, fields map[string]any) (BeamParameters, error) {
	var params BeamParameters
	var err error
	if params.ID, err = intField(device, state, fields, "id"); err != nil {
		return BeamParameters{}, err
	}
	if params.Name, err = stringField(device, state, fields, "name"); err != nil {
		return BeamParameters{}, err
	}
	if params.Beamline, err = stringField(device, state, fields, "beamline"); err != nil {
		return BeamParameters{}, err
	}
	if params.BeamClassRange, err = maskField(device, state, fields, "nBeamClassRange"); err != nil {
		return BeamParameters{}, err
	}
	params.BeamClassRange.Description = beamclass.DecodeBeamClassMask(params.BeamClassRange.Value)
	if params.PhotonEnergyRange, err = maskField(device, state, fields, "neVRange"); err != nil {
		return BeamParameters{}, err
	}
	line := beamclass.DefaultLine
	if l, ok := beamclass.LineFromDeviceName(device); ok {
		line = l
	}
	desc, err := beamclass.DecodeEnergyMask(params.PhotonEnergyRange.Value, line)
	if err != nil {
		return BeamParameters{}, &SchemaError{Device: device, State: state, Field: "neVRange", Reason: err.Error()}
	}
	params.PhotonEnergyRange.Description = desc
	if params.TransmissionLimit, err = floatField(device, state, fields, "nTran"); err != nil {
		return BeamParameters{}, err
	}
	if params.RateLimit, err = intField(device, state, fields, "nRate"); err != nil {
		return BeamParameters{}, err
	}
	if params.Aperture.Name, err = stringField(device, state, fields, "ap_name"); err != nil {
		return BeamParameters{}, err
	}
	if params.Aperture.XGap, err = floatField(device, state, fields, "ap_xgap"); err != nil {
		return BeamParameters{}, err
	}
	if params.Aperture.XCenter, err = floatField(device, state, fields, "ap_xcenter"); err != nil {
		return BeamParameters{}, err
	}
	if params.Aperture.YGap, err = floatField(device, state, fields, "ap_ygap"); err != nil {
		return BeamParameters{}, err
	}
	if params.Aperture.YCenter, err = floatField(device, state, fields, "ap_ycenter"); err != nil {
		return BeamParameters{}, err
	}
	if params.DamageLimit, err = stringField(device, state, fields, "damage_limit"); err != nil {
		return BeamParameters{}, err
	}
	if params.PulseEnergy, err = stringField(device, state, fields, "pulse_energy"); err != nil {
		return BeamParameters{}, err
	}
	if params.Notes, err = stringField(device, state, fields, "notes"); err != nil {
		return BeamParameters{}, err
	}
	if params.Special, err = boolField(device, state, fields, "special"); err != nil {
		return BeamParameters{}, err
	}
	return params, nil
}

func lookupField(device, state string, fields map[string]any, field string) (any, error) {
	value, ok := fields[field]
	if !ok {
		return nil, &SchemaError{Device: device, State: state, Field: field, Reason: "missing required key"}
	}
	return value, nil
}

func stringField(device, state string, fields map[string]any, field string) (string, error) {
	value, err := lookupField(device, state, fields, field)
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", &SchemaError{Device: device, State: state, Field: field, Reason: fmt.Sprintf("expected string, got %T", value)}
	}
	return s, nil
}

func intField(device, state string, fields map[string]any, field string) (int, error) {
	value, err := lookupField(device, state, fields, field)
	if err != nil {
		return 0, err
	}
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n), nil
		}
		if f, err := v.Float64(); err == nil && f == math.Trunc(f) {
			return int(f), nil
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n, nil
		}
	}
	return 0, &SchemaError{Device: device, State: state, Field: field, Reason: fmt.Sprintf("expected integer, got %v", value)}
}

func floatField(device, state string, fields map[string]any, field string) (float64, error) {
	value, err := lookupField(device, state, fields, field)
	if err != nil {
		return 0, err
	}
	switch v := value.(type) {
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, nil
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	}
	return 0, &SchemaError{Device: device, State: state, Field: field, Reason: fmt.Sprintf("expected number, got %v", value)}
}

func boolField(device, state string, fields map[string]any, field string) (bool, error) {
	value, err := lookupField(device, state, fields, field)
	if err != nil {
		return false, err
	}
	b, ok := value.(bool)
	if !ok {
		return false, &SchemaError{Device: device, State: state, Field: field, Reason: fmt.Sprintf("expected bool, got %T", value)}
	}
	return b, nil
}

func maskField(device, state string, fields map[string]any, field string) (MaskField, error) {
	raw, err := stringField(device, state, fields, field)
	if err != nil {
		return MaskField{}, err
	}
	value, err := beamclass.ParseMask(raw)
	if err != nil {
		return MaskField{}, &SchemaError{Device: device, State: state, Field: field, Reason: fmt.Sprintf("invalid bitmask %q", raw)}
	}
	return MaskField{Raw: raw, Value: value}, nil
}

type rawState struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	Beamline        string  `json:"beamline"`
	BeamClassRange  string  `json:"nBeamClassRange"`
	EVRange         string  `json:"neVRange"`
	Transmission    float64 `json:"nTran"`
	Rate            int     `json:"nRate"`
	ApertureName    string  `json:"ap_name"`
	ApertureXGap    float64 `json:"ap_xgap"`
	ApertureXCenter float64 `json:"ap_xcenter"`
	ApertureYGap    float64 `json:"ap_ygap"`
	ApertureYCenter float64 `json:"ap_ycenter"`
	DamageLimit     string  `json:"damage_limit"`
	PulseEnergy     string  `json:"pulse_energy"`
	Notes           string  `json:"notes"`
	Special         bool    `json:"special"`
}

// Marshal renders the contents back into the export schema. Mask fields are
// written from their raw strings so serialization round-trips bit for bit.
func (f *FileContents) Marshal() ([]byte, error) {
	devices := make(map[string]map[string]rawState, len(f.Devices))
	for device, states := range f.Devices {
		rawStates := make(map[string]rawState, len(states))
		for state, p := range states {
			rawStates[state] = rawState{
				ID:              p.ID,
				Name:            p.Name,
				Beamline:        p.Beamline,
				BeamClassRange:  p.BeamClassRange.Raw,
				EVRange:         p.PhotonEnergyRange.Raw,
				Transmission:    p.TransmissionLimit,
				Rate:            p.RateLimit,
				ApertureName:    p.Aperture.Name,
				ApertureXGap:    p.Aperture.XGap,
				ApertureXCenter: p.Aperture.XCenter,
				ApertureYGap:    p.Aperture.YGap,
				ApertureYCenter: p.Aperture.YCenter,
				DamageLimit:     p.DamageLimit,
				PulseEnergy:     p.PulseEnergy,
				Notes:           p.Notes,
				Special:         p.Special,
			}
		}
		devices[device] = rawStates
	}
	raw, err := json.MarshalIndent(map[string]map[string]map[string]rawState{f.PLCName: devices}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("models: marshal %s: %w", f.PLCName, err)
	}
	return raw, nil
}

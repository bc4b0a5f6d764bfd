package models

// MaskField carries one bitmask field in both its forms. Raw is the
// zero-padded binary string as serialized and is authoritative for
// round-tripping; Value is the decoded integer and is authoritative for
// comparison.
type MaskField struct {
	Raw         string
	Value       uint64
	Description string
}

// Aperture bounds the beam cross-section for one operating state.
type Aperture struct {
	Name    string
	XGap    float64
	XCenter float64
	YGap    float64
	YCenter float64
}

// BeamParameters is the validated parameter set of one operating state of
// one device.
type BeamParameters struct {
	ID                int
	Name              string
	Beamline          string
	BeamClassRange    MaskField
	PhotonEnergyRange MaskField
	TransmissionLimit float64
	RateLimit         int
	Aperture          Aperture
	DamageLimit       string
	PulseEnergy       string
	Notes             string
	Special           bool
}

// Equal reports whether two parameter sets match field for field, comparing
// bitmask fields on their decoded values.
func (p BeamParameters) Equal(other BeamParameters) bool {
	return len(compareParameters(p, other)) == 0
}

// DeviceStates maps state name to the beam parameters configured for it.
type DeviceStates map[string]BeamParameters

// FileContents is one fully parsed configuration export: every device and
// operating state deployed to a single PLC. Contents are read-only snapshots
// and are never mutated after parsing.
type FileContents struct {
	PLCName string
	Devices map[string]DeviceStates
}

package beamclass

// BeamClass describes one named machine operating point and the nominal
// limits it carries. Limit fields are nil where the table defines no limit.
type BeamClass struct {
	Index            int
	Name             string
	ChargeTime       *float64 // seconds
	PulsePeriod      *float64 // seconds
	Charge           *int     // pC
	MaxRate          *int     // Hz
	Current          *float64 // nA
	Power            *float64 // W
	IntegratedEnergy *float64 // J
	Notes            string
}

// Classes is the fixed table of machine beam classes, ordered by index.
// Bit i of a beam-class bitmask selects Classes[i].
var Classes = []BeamClass{
	{Index: 0, Name: "Beam Off", ChargeTime: limit(0.5), Charge: count(0), MaxRate: count(0), Current: limit(0), Power: limit(0), IntegratedEnergy: limit(0), Notes: "Beam off, Kickers off"},
	{Index: 1, Name: "Kicker STBY", ChargeTime: limit(0.5), Charge: count(0), MaxRate: count(0), Current: limit(0), Power: limit(0), IntegratedEnergy: limit(0), Notes: "Beam off, Kickers standby"},
	{Index: 2, Name: "BC1Hz", ChargeTime: limit(1), PulsePeriod: limit(1), Charge: count(350), MaxRate: count(1), Current: limit(0.35), Power: limit(1.4), IntegratedEnergy: limit(1.4), Notes: "350 pC x 1 Hz"},
	{Index: 3, Name: "BC10Hz", ChargeTime: limit(1), PulsePeriod: limit(0.1), Charge: count(3500), MaxRate: count(10), Current: limit(3.5), Power: limit(14), IntegratedEnergy: limit(14), Notes: "350 pC X 10 Hz"},
	{Index: 4, Name: "Diagnostic", ChargeTime: limit(0.5), Charge: count(5000), Current: limit(10), Power: limit(40), IntegratedEnergy: limit(20), Notes: "50 pC x 200 Hz"},
	{Index: 5, Name: "BC120Hz", ChargeTime: limit(0.2), PulsePeriod: limit(0.0083), Charge: count(6000), MaxRate: count(120), Current: limit(30), Power: limit(120), IntegratedEnergy: limit(24), Notes: "250 pC x 120 Hz"},
	{Index: 6, Name: "Tuning", ChargeTime: limit(0.2), Charge: count(7000), Current: limit(35), Power: limit(140), IntegratedEnergy: limit(28), Notes: "100 pC X 350 Hz"},
	{Index: 7, Name: "1% MAP", ChargeTime: limit(0.01), Charge: count(3000), Current: limit(300), Power: limit(1200), IntegratedEnergy: limit(12), Notes: "100 pC X 3 kHz"},
	{Index: 8, Name: "5% MAP", ChargeTime: limit(0.003), Charge: count(4500), Current: limit(1500), Power: limit(6000), IntegratedEnergy: limit(18), Notes: "100 pC x 15 kHz"},
	{Index: 9, Name: "10% MAP", ChargeTime: limit(0.001), Charge: count(3000), Current: limit(3000), Power: limit(12000), IntegratedEnergy: limit(12), Notes: "100 pC X 30 kHz"},
	{Index: 10, Name: "25% MAP", ChargeTime: limit(4e-4), Charge: count(3000), Current: limit(7500), Power: limit(30000), IntegratedEnergy: limit(12), Notes: "100 pC x 75 kHz"},
	{Index: 11, Name: "50% MAP", ChargeTime: limit(2e-1), Charge: count(3000), Current: limit(15000), Power: limit(60000), IntegratedEnergy: limit(12), Notes: "100 pC x 150 kHz"},
	{Index: 12, Name: "100% MAP", ChargeTime: limit(2e-4), Charge: count(6000), Current: limit(30000), Power: limit(120000), IntegratedEnergy: limit(24), Notes: "100 pC x 300 kHz"},
	{Index: 13, Name: "Unlimited"},
}

// ByIndex returns the beam class at index i and whether the table has one.
func ByIndex(i int) (BeamClass, bool) {
	if i < 0 || i >= len(Classes) {
		return BeamClass{}, false
	}
	return Classes[i], true
}

func limit(v float64) *float64 {
	return &v
}

func count(v int) *int {
	return &v
}

package types

import "time"

// Snapshot is the result of one refresh cycle. It is immutable once built;
// a new cycle produces a whole new snapshot that replaces the previous one.
type Snapshot struct {
	// Electricity holds today's (and, when published, tomorrow's) electricity
	// prices in EUR/kWh.
	Electricity PriceSeries `json:"electricity"`

	// Gas holds today's (and, when published, tomorrow's) gas prices in
	// EUR/m³.
	Gas PriceSeries `json:"gas"`

	// TomorrowAvailable reports whether tomorrow's electricity series was
	// published upstream when the snapshot was taken.
	TomorrowAvailable bool `json:"tomorrowAvailable"`

	// RefreshedAt is when the snapshot was produced.
	RefreshedAt time.Time `json:"refreshedAt"`
}

// CurrentElectricityPrice returns the electricity price for the interval
// containing now.
func (s *Snapshot) CurrentElectricityPrice(now time.Time) (float64, bool) {
	return s.Electricity.CurrentPrice(now)
}

// CurrentGasPrice returns the gas price for the interval containing now.
func (s *Snapshot) CurrentGasPrice(now time.Time) (float64, bool) {
	return s.Gas.CurrentPrice(now)
}

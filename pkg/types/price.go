package types

import "time"

// PriceInterval is the fixed length of one market-price slot. The energiek
// dashboard publishes quarter-hourly series (frequency DAY_QUARTER).
const PriceInterval = 15 * time.Minute

// MarketSegment identifies the commodity a price series belongs to.
type MarketSegment string

const (
	SegmentElectricity MarketSegment = "ELECTRICITY"
	SegmentGas         MarketSegment = "GAS"
)

// Price represents the all-in cost of energy in a single 15-minute interval.
type Price struct {
	// From is the UTC start of the interval.
	From time.Time `json:"from"`

	// Price is the VAT-inclusive cost in EUR per unit (kWh for electricity,
	// m³ for gas).
	Price float64 `json:"price"`
}

// PriceSeries is a chronologically ordered sequence of prices for one
// commodity, spanning today and optionally tomorrow.
type PriceSeries []Price

// At returns the price point whose interval contains now, i.e. the point
// with from <= now < from+15m. The second return is false when now falls
// outside every interval (day boundaries, gaps, empty series).
func (s PriceSeries) At(now time.Time) (Price, bool) {
	for _, p := range s {
		if !now.Before(p.From) && now.Before(p.From.Add(PriceInterval)) {
			return p, true
		}
	}
	return Price{}, false
}

// CurrentPrice returns the price for the interval containing now.
func (s PriceSeries) CurrentPrice(now time.Time) (float64, bool) {
	p, ok := s.At(now)
	return p.Price, ok
}

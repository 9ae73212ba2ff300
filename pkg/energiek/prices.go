package energiek

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tariefwacht/tariefwacht/pkg/log"
	"github.com/tariefwacht/tariefwacht/pkg/types"
)

// MarketPrices mirrors the dashboard marketprice payload. Only the
// VAT-inclusive levels are consumed.
type MarketPrices struct {
	WithTotalVat *PriceLevels `json:"withTotalVat"`
}

// PriceLevels pairs a value series with equally-indexed wall-clock labels.
type PriceLevels struct {
	Series []float64    `json:"series"`
	Labels []PriceLabel `json:"labels"`
}

// PriceLabel holds a "HH:MM" wall-clock label for one series index.
type PriceLabel struct {
	Label string `json:"label"`
}

// HasSeries reports whether the payload carries a non-empty VAT-inclusive
// series. Used to decide whether tomorrow's prices have been published.
func (m *MarketPrices) HasSeries() bool {
	return m != nil && m.WithTotalVat != nil && len(m.WithTotalVat.Series) > 0
}

// GetMarketPrices fetches one day's quarter-hourly prices for the given
// segment. date is formatted YYYY-MM-DD. A nil payload with a nil error
// means the day's prices aren't published yet (the portal 422s with
// "Geen marktprijs gevonden" until day-ahead prices land, usually mid
// afternoon). Requires a prior successful Login.
func (c *Client) GetMarketPrices(ctx context.Context, date string, segment types.MarketSegment) (*MarketPrices, error) {
	c.mu.Lock()
	authenticated := c.authenticated
	orgUUID := c.orgUUID
	cluster := c.cluster
	c.mu.Unlock()

	if !authenticated {
		return nil, &AuthError{Message: "not authenticated"}
	}

	query := url.Values{}
	query.Set("frequency", "DAY_QUARTER")
	query.Set("date", date)
	query.Set("marketSegment", string(segment))

	log.Ctx(ctx).DebugContext(
		ctx,
		"fetching market prices",
		slog.String("date", date),
		slog.String("segment", string(segment)),
	)

	var res MarketPrices
	err := c.request(ctx, http.MethodGet, "/api/dashboard/marketprice", requestOpts{
		query: query,
		headers: map[string]string{
			"X-Organization": orgUUID,
			"X-Cluster":      cluster,
		},
	}, &res)
	if errors.Is(err, errNoMarketPrice) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Package series converts raw marketprice payloads into absolute-time price
// points.
package series

import (
	"context"
	"log/slog"
	"time"

	"github.com/tariefwacht/tariefwacht/pkg/energiek"
	"github.com/tariefwacht/tariefwacht/pkg/log"
	"github.com/tariefwacht/tariefwacht/pkg/types"
)

// labelLayout matches the "YYYY-MM-DD HH:MM" string built from a query date
// and a series label.
const labelLayout = "2006-01-02 15:04"

// Parser turns the label/value series of a payload into UTC-stamped price
// points. Labels are wall-clock times in the portal's local timezone, so the
// parser needs a location to anchor them.
type Parser struct {
	loc *time.Location
}

// NewParser returns a Parser anchoring labels in loc. A nil loc falls back
// to the system's local timezone.
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	return &Parser{loc: loc}
}

// ParseElectricity converts one day's electricity payload into price points.
// A nil payload, or one without the VAT-inclusive levels, yields an empty
// slice. When the label list is shorter than the series the extra values are
// dropped.
func (p *Parser) ParseElectricity(ctx context.Context, dateStr string, payload *energiek.MarketPrices) types.PriceSeries {
	return p.parse(ctx, dateStr, payload)
}

// ParseGas converts one day's gas payload into price points. Gas series have
// so far looked identical to electricity series, but that is unverified
// upstream; callers bind to this method so a diverging shape only changes
// one place.
func (p *Parser) ParseGas(ctx context.Context, dateStr string, payload *energiek.MarketPrices) types.PriceSeries {
	return p.parse(ctx, dateStr, payload)
}

func (p *Parser) parse(ctx context.Context, dateStr string, payload *energiek.MarketPrices) types.PriceSeries {
	prices := types.PriceSeries{}
	if payload == nil || payload.WithTotalVat == nil {
		return prices
	}

	levels := payload.WithTotalVat
	for i, value := range levels.Series {
		if i >= len(levels.Labels) {
			break
		}
		local, err := time.ParseInLocation(labelLayout, dateStr+" "+levels.Labels[i].Label, p.loc)
		if err != nil {
			log.Ctx(ctx).WarnContext(
				ctx,
				"skipping unparseable price label",
				slog.String("date", dateStr),
				slog.String("label", levels.Labels[i].Label),
				slog.Any("error", err),
			)
			continue
		}
		prices = append(prices, types.Price{
			From:  local.UTC(),
			Price: value,
		})
	}
	return prices
}

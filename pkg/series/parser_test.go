package series

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tariefwacht/tariefwacht/pkg/energiek"
	"github.com/tariefwacht/tariefwacht/pkg/types"
)

func payloadOf(series []float64, labels ...string) *energiek.MarketPrices {
	pl := &energiek.PriceLevels{Series: series}
	for _, l := range labels {
		pl.Labels = append(pl.Labels, energiek.PriceLabel{Label: l})
	}
	return &energiek.MarketPrices{WithTotalVat: pl}
}

func TestParseElectricity(t *testing.T) {
	amsterdam, err := time.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)
	p := NewParser(amsterdam)
	ctx := context.Background()

	t.Run("TwoPoints", func(t *testing.T) {
		got := p.ParseElectricity(ctx, "2024-01-01", payloadOf([]float64{10.5, 11.0}, "00:00", "00:15"))
		require.Len(t, got, 2)

		// 2024-01-01 is CET (UTC+1), so 00:00 local is 23:00 UTC the day before
		assert.Equal(t, time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC), got[0].From)
		assert.Equal(t, time.Date(2023, 12, 31, 23, 15, 0, 0, time.UTC), got[1].From)
		assert.Equal(t, 10.5, got[0].Price)
		assert.Equal(t, 11.0, got[1].Price)
		assert.Equal(t, 15*time.Minute, got[1].From.Sub(got[0].From))
	})

	t.Run("SummerTime", func(t *testing.T) {
		// CEST is UTC+2
		got := p.ParseElectricity(ctx, "2024-07-01", payloadOf([]float64{5}, "12:00"))
		require.Len(t, got, 1)
		assert.Equal(t, time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC), got[0].From)
	})

	t.Run("NilPayload", func(t *testing.T) {
		got := p.ParseElectricity(ctx, "2024-01-01", nil)
		assert.Empty(t, got)
	})

	t.Run("MissingLevels", func(t *testing.T) {
		got := p.ParseElectricity(ctx, "2024-01-01", &energiek.MarketPrices{})
		assert.Empty(t, got)
	})

	t.Run("LabelsShorterThanSeries", func(t *testing.T) {
		// truncates silently to the labelled prefix
		got := p.ParseElectricity(ctx, "2024-01-01", payloadOf([]float64{1, 2, 3}, "00:00", "00:15"))
		require.Len(t, got, 2)
		assert.Equal(t, 1.0, got[0].Price)
		assert.Equal(t, 2.0, got[1].Price)
	})

	t.Run("BadLabelSkipped", func(t *testing.T) {
		got := p.ParseElectricity(ctx, "2024-01-01", payloadOf([]float64{1, 2}, "garbage", "00:15"))
		require.Len(t, got, 1)
		assert.Equal(t, 2.0, got[0].Price)
	})

	t.Run("Ordered", func(t *testing.T) {
		got := p.ParseElectricity(ctx, "2024-01-01", payloadOf([]float64{1, 2, 3, 4}, "00:00", "00:15", "00:30", "00:45"))
		require.Len(t, got, 4)
		for i := 1; i < len(got); i++ {
			assert.True(t, got[i].From.After(got[i-1].From), "timestamps must be strictly increasing")
		}
	})
}

func TestParseGas(t *testing.T) {
	p := NewParser(time.UTC)

	got := p.ParseGas(context.Background(), "2024-01-01", payloadOf([]float64{1.23}, "06:00"))
	require.Len(t, got, 1)
	assert.Equal(t, types.Price{
		From:  time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC),
		Price: 1.23,
	}, got[0])
}

func TestNewParserDefaultsToLocal(t *testing.T) {
	p := NewParser(nil)
	assert.Equal(t, time.Local, p.loc)
}

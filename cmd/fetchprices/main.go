package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/tariefwacht/tariefwacht/pkg/energiek"
	"github.com/tariefwacht/tariefwacht/pkg/log"
	"github.com/tariefwacht/tariefwacht/pkg/series"
	"github.com/tariefwacht/tariefwacht/pkg/types"
)

func main() {
	email := lflag.RequiredString("energiek-email", "Email address for the energiek portal")
	password := lflag.RequiredString("energiek-password", "Password for the energiek portal")
	baseURL := lflag.String("energiek-base-url", energiek.DefaultBaseURL, "Base URL of the energiek portal")
	date := lflag.String("date", "", "Date to fetch prices for (YYYY-MM-DD, defaults to today)")
	segment := lflag.String("segment", "ELECTRICITY", "Market segment to fetch (ELECTRICITY or GAS)")
	tz := lflag.String("timezone", "Europe/Amsterdam", "Timezone the portal's price labels are anchored in")
	raw := lflag.Bool("raw", false, "Print the raw portal payload instead of the parsed series")
	lflag.Configure()

	ctx := context.Background()

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid timezone", "timezone", *tz, "error", err)
		os.Exit(1)
	}

	var seg types.MarketSegment
	switch *segment {
	case string(types.SegmentElectricity):
		seg = types.SegmentElectricity
	case string(types.SegmentGas):
		seg = types.SegmentGas
	default:
		log.Ctx(ctx).ErrorContext(ctx, "invalid segment", "segment", *segment)
		os.Exit(1)
	}

	day := *date
	if day == "" {
		day = time.Now().In(loc).Format("2006-01-02")
	}

	client := energiek.NewClient(*baseURL, nil)
	defer client.Close()

	if err := client.Login(ctx, *email, *password); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "login failed", "error", err)
		os.Exit(1)
	}

	prices, err := client.GetMarketPrices(ctx, day, seg)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch prices", "error", err)
		os.Exit(1)
	}
	if prices == nil {
		fmt.Printf("no prices published yet for %s %s\n", day, seg)
		return
	}

	var out any
	if *raw {
		out = prices
	} else {
		parser := series.NewParser(loc)
		if seg == types.SegmentGas {
			out = parser.ParseGas(ctx, day, prices)
		} else {
			out = parser.ParseElectricity(ctx, day, prices)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to encode output", "error", err)
		os.Exit(1)
	}
}

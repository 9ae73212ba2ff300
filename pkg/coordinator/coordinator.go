// Package coordinator drives the periodic refresh cycle: ensure the client
// is authenticated, fetch today's (and, best-effort, tomorrow's) prices,
// parse them, and publish an immutable snapshot.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/tariefwacht/tariefwacht/pkg/energiek"
	"github.com/tariefwacht/tariefwacht/pkg/log"
	"github.com/tariefwacht/tariefwacht/pkg/series"
	"github.com/tariefwacht/tariefwacht/pkg/types"
)

var (
	// ErrAuthFailed means the cycle could not authenticate; the credentials
	// need attention and retrying without a fresh login is pointless.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrUpdateFailed means fetching today's data failed; the previous
	// snapshot is stale but the next scheduled cycle may succeed.
	ErrUpdateFailed = errors.New("update failed")
)

const dateLayout = "2006-01-02"

// Coordinator produces one Snapshot per refresh cycle. Cycles are
// serialized: a manual trigger that lands while a scheduled cycle runs waits
// for it.
type Coordinator struct {
	client *energiek.Client
	parser *series.Parser

	email    string
	password string
	interval time.Duration
	loc      *time.Location

	// now is swapped out in tests
	now func() time.Time

	mu       sync.Mutex
	snapshot atomic.Pointer[types.Snapshot]
}

// Configured sets up the coordinator from flags.
// It uses lflag to register command-line flags for configuration.
func Configured() *Coordinator {
	c := &Coordinator{now: time.Now}

	email := lflag.RequiredString("energiek-email", "Email address for the energiek portal")
	password := lflag.RequiredString("energiek-password", "Password for the energiek portal")
	baseURL := lflag.String("energiek-base-url", energiek.DefaultBaseURL, "Base URL of the energiek portal")
	interval := lflag.Duration("refresh-interval", 30*time.Minute, "How often to refresh market prices")
	tz := lflag.String("timezone", "Europe/Amsterdam", "Timezone the portal's price labels are anchored in")

	lflag.Do(func() {
		loc, err := time.LoadLocation(*tz)
		if err != nil {
			panic(fmt.Sprintf("invalid timezone %q: %v", *tz, err))
		}
		c.email = *email
		c.password = *password
		c.interval = *interval
		c.loc = loc
		c.client = energiek.NewClient(*baseURL, nil)
		c.parser = series.NewParser(loc)
	})

	return c
}

// New wires a coordinator from explicit dependencies. Primarily used by
// tests; the daemon goes through Configured.
func New(client *energiek.Client, loc *time.Location, email, password string, interval time.Duration) *Coordinator {
	if loc == nil {
		loc = time.Local
	}
	return &Coordinator{
		client:   client,
		parser:   series.NewParser(loc),
		email:    email,
		password: password,
		interval: interval,
		loc:      loc,
		now:      time.Now,
	}
}

// Snapshot returns the last published snapshot, or nil before the first
// successful cycle. The returned value is never mutated afterwards.
func (c *Coordinator) Snapshot() *types.Snapshot {
	return c.snapshot.Load()
}

// Close releases the underlying client session.
func (c *Coordinator) Close() {
	c.client.Close()
}

// Refresh runs one full cycle and publishes the resulting snapshot. Errors
// wrap ErrAuthFailed or ErrUpdateFailed; in either case no partial snapshot
// is published and the previous one stays visible.
func (c *Coordinator) Refresh(ctx context.Context) (*types.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log.Ctx(ctx).DebugContext(ctx, "refreshing market prices")

	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, err
	}

	now := c.now().In(c.loc)
	today := now.Format(dateLayout)
	tomorrow := now.AddDate(0, 0, 1).Format(dateLayout)

	electricityToday, err := c.client.GetMarketPrices(ctx, today, types.SegmentElectricity)
	if err != nil {
		return nil, classify(err)
	}
	gasToday, err := c.client.GetMarketPrices(ctx, today, types.SegmentGas)
	if err != nil {
		return nil, classify(err)
	}

	td := c.fetchTomorrow(ctx, tomorrow)

	electricity := c.parser.ParseElectricity(ctx, today, electricityToday)
	electricity = append(electricity, c.parser.ParseElectricity(ctx, tomorrow, td.electricity)...)

	gas := c.parser.ParseGas(ctx, today, gasToday)
	gas = append(gas, c.parser.ParseGas(ctx, tomorrow, td.gas)...)

	snap := &types.Snapshot{
		Electricity:       electricity,
		Gas:               gas,
		TomorrowAvailable: td.available,
		RefreshedAt:       c.now().UTC(),
	}
	c.snapshot.Store(snap)

	log.Ctx(ctx).InfoContext(
		ctx,
		"market prices refreshed",
		slog.Int("electricityPoints", len(electricity)),
		slog.Int("gasPoints", len(gas)),
		slog.Bool("tomorrowAvailable", td.available),
	)
	return snap, nil
}

// ensureAuthenticated logs in when the session isn't (or no longer is)
// authenticated. The client itself never retries.
func (c *Coordinator) ensureAuthenticated(ctx context.Context) error {
	if c.client.IsAuthenticated() {
		return nil
	}
	log.Ctx(ctx).DebugContext(ctx, "logging in to energiek")
	if err := c.client.Login(ctx, c.email, c.password); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps client errors onto the coordinator's two failure modes.
func classify(err error) error {
	var authErr *energiek.AuthError
	if errors.As(err, &authErr) {
		return fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}
	return fmt.Errorf("%w: %w", ErrUpdateFailed, err)
}

// tomorrowData is the best-effort result of the tomorrow fetch. All fields
// stay zero unless tomorrow's electricity series has actually been
// published.
type tomorrowData struct {
	electricity *energiek.MarketPrices
	gas         *energiek.MarketPrices
	available   bool
}

// fetchTomorrow tries to fetch tomorrow's prices. Day-ahead prices commonly
// aren't published until mid afternoon, so every failure here folds into
// "tomorrow not available" instead of failing the cycle.
func (c *Coordinator) fetchTomorrow(ctx context.Context, date string) tomorrowData {
	var td tomorrowData

	electricity, err := c.client.GetMarketPrices(ctx, date, types.SegmentElectricity)
	if err != nil {
		log.Ctx(ctx).DebugContext(ctx, "tomorrow's prices not yet available", slog.Any("error", err))
		return td
	}
	gas, err := c.client.GetMarketPrices(ctx, date, types.SegmentGas)
	if err != nil {
		log.Ctx(ctx).DebugContext(ctx, "tomorrow's gas prices not yet available", slog.Any("error", err))
		return td
	}

	if electricity.HasSeries() {
		td.electricity = electricity
		td.gas = gas
		td.available = true
	}
	return td
}

// Run performs an immediate first refresh and then one per interval until
// the context is canceled. Cycle failures are logged and the loop carries
// on; the scheduled cadence is the only retry mechanism.
func (c *Coordinator) Run(ctx context.Context) error {
	c.refreshAndLog(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Ctx(ctx).InfoContext(ctx, "stopping refresh loop")
			return nil
		case <-ticker.C:
			c.refreshAndLog(ctx)
		}
	}
}

func (c *Coordinator) refreshAndLog(ctx context.Context) {
	if _, err := c.Refresh(ctx); err != nil {
		if errors.Is(err, ErrAuthFailed) {
			log.Ctx(ctx).ErrorContext(ctx, "refresh could not authenticate", slog.Any("error", err))
		} else {
			log.Ctx(ctx).ErrorContext(ctx, "refresh failed", slog.Any("error", err))
		}
	}
}

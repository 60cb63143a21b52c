package service

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/zappabad/agriflow/internal/kv"
	"github.com/zappabad/agriflow/internal/logging"
	"github.com/zappabad/agriflow/internal/market"
	marketview "github.com/zappabad/agriflow/internal/market/view"
)

var ErrClosed = errors.New("market service closed")

// MarketService evolves the persisted price catalog one tick at a time.
//
// Refresh is a read-modify-write over two store keys, so it runs under mu;
// the HTTP API and the auto-refresh loop may call it concurrently.
type MarketService struct {
	cfg    Config
	store  *kv.Store
	logger *zap.Logger
	mview  *marketview.MarketView

	mu     sync.Mutex
	rng    *rand.Rand
	seq    int64
	closed bool

	events        chan marketview.RefreshEvent
	droppedEvents atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
}

// NewMarketService creates a MarketService over store. A nil rng is seeded from the clock.
func NewMarketService(cfg Config, store *kv.Store, rng *rand.Rand, logger *zap.Logger) *MarketService {
	cfg = cfg.withDefaults()
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &MarketService{
		cfg:    cfg,
		store:  store,
		logger: logging.OrNop(logger).Named("market"),
		mview:  marketview.NewMarketView(cfg.TapeSize),
		rng:    rng,
		events: make(chan marketview.RefreshEvent, cfg.EventBuffer),
		done:   make(chan struct{}),
	}
}

// Refresh advances every instrument by one tick, persists the catalog and the
// trend records, and returns the updated catalog.
func (s *MarketService) Refresh(ctx context.Context) ([]market.Instrument, error) {
	if err := s.simulateLatency(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	catalog := market.Complete(s.loadCatalog(ctx), s.cfg.Defaults)
	regimes := s.loadRegimes(ctx)

	updated := make([]market.Instrument, len(catalog))
	var rolled []string
	for i, in := range catalog {
		rec, ok := regimes[in.Name]
		if !ok || rec.Duration <= 0 {
			rec = s.roll()
			rolled = append(rolled, in.Name)
		}
		updated[i], regimes[in.Name] = s.evolve(in, rec)
	}

	pricesOK := kv.Write(ctx, s.store, s.cfg.CatalogKey, updated)
	trendsOK := kv.Write(ctx, s.store, s.cfg.TrendsKey, regimes)
	if !pricesOK || !trendsOK {
		s.logger.Warn("market state not fully persisted",
			zap.Bool("catalog", pricesOK),
			zap.Bool("trends", trendsOK),
		)
	}

	s.seq++
	ev := marketview.RefreshEvent{
		Seq:     s.seq,
		Time:    time.Now().UnixNano(),
		Prices:  cloneCatalog(updated),
		Regimes: regimes.Clone(),
		Rolled:  rolled,
	}
	s.mview.Apply(ev)
	s.emit(ctx, ev)

	s.logger.Debug("prices refreshed",
		zap.Int64("seq", ev.Seq),
		zap.Int("instruments", len(updated)),
		zap.Strings("rolled", rolled),
	)

	return updated, nil
}

// roll draws a fresh regime.
func (s *MarketService) roll() market.TrendRecord {
	p := s.cfg.Params

	r := s.rng.Float64()
	direction := market.DirectionStable
	if r > p.UpThreshold {
		direction = market.DirectionUp
	} else if r < p.DownThreshold {
		direction = market.DirectionDown
	}

	span := p.MaxDuration - p.MinDuration + 1
	if span < 1 {
		span = 1
	}
	return market.TrendRecord{
		Direction: direction,
		Duration:  s.rng.Intn(span) + p.MinDuration,
	}
}

// evolve applies one tick of rec to in. The returned record has already been
// decremented, so a freshly rolled regime's first tick counts against it.
func (s *MarketService) evolve(in market.Instrument, rec market.TrendRecord) (market.Instrument, market.TrendRecord) {
	p := s.cfg.Params

	var bias float64
	switch rec.Direction {
	case market.DirectionUp:
		bias = p.TrendBias
	case market.DirectionDown:
		bias = -p.TrendBias
	}
	noise := s.rng.Float64()*p.Volatility*2 - p.Volatility
	total := bias + noise

	in.Price = math.Max(p.PriceFloor, roundTo(in.Price*(1+total), 2))
	in.ChangePercentage = roundTo(total*100, 1)
	in.Trend = Classify(in.ChangePercentage, p.DisplayThreshold)

	rec.Duration--
	return in, rec
}

// Classify maps a percentage change to a display trend. threshold is fractional
// (0.005 means half a percent). The persisted percentage is what gets compared,
// so a stored record always agrees with its own trend.
func Classify(changePercentage, threshold float64) market.Trend {
	limit := roundTo(threshold*100, 6)
	switch {
	case changePercentage > limit:
		return market.TrendUp
	case changePercentage < -limit:
		return market.TrendDown
	}
	return market.TrendStable
}

// Prices returns the persisted catalog without advancing it.
func (s *MarketService) Prices(ctx context.Context) []market.Instrument {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog := s.loadCatalog(ctx)
	s.mview.Seed(catalog, s.loadRegimes(ctx), time.Now().UnixNano())
	return catalog
}

// Regimes returns the persisted trend records.
func (s *MarketService) Regimes(ctx context.Context) market.Regimes {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadRegimes(ctx)
}

// View returns the market view fed by refreshes.
func (s *MarketService) View() *marketview.MarketView {
	return s.mview
}

// Snapshot returns the latest refresh state.
func (s *MarketService) Snapshot() marketview.MarketSnapshot {
	return s.mview.Snapshot()
}

// Events returns the refresh events channel. It is closed by Close.
func (s *MarketService) Events() <-chan marketview.RefreshEvent {
	return s.events
}

// DroppedEvents returns the count of dropped refresh events.
func (s *MarketService) DroppedEvents() int64 {
	return s.droppedEvents.Load()
}

// Ticks returns how many refreshes this service has performed.
func (s *MarketService) Ticks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Keys returns the storage keys owned by the market service.
func (s *MarketService) Keys() []string {
	return []string{s.cfg.CatalogKey, s.cfg.TrendsKey}
}

// Close stops the service and closes the events channel.
func (s *MarketService) Close() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		close(s.events)
	})
}

func (s *MarketService) loadCatalog(ctx context.Context) []market.Instrument {
	raw := kv.Read(ctx, s.store, s.cfg.CatalogKey, s.cfg.Defaults)
	return market.NormalizeCatalog(raw, s.cfg.Params.PriceFloor)
}

func (s *MarketService) loadRegimes(ctx context.Context) market.Regimes {
	raw := kv.Read(ctx, s.store, s.cfg.TrendsKey, market.Regimes{})
	return market.NormalizeRegimes(raw)
}

func (s *MarketService) emit(ctx context.Context, ev marketview.RefreshEvent) {
	if s.cfg.DropEvents {
		select {
		case s.events <- ev:
		default:
			s.droppedEvents.Add(1)
		}
		return
	}

	select {
	case s.events <- ev:
	case <-ctx.Done():
		s.droppedEvents.Add(1)
	case <-s.done:
	}
}

func (s *MarketService) simulateLatency(ctx context.Context) error {
	if s.cfg.Latency <= 0 {
		return nil
	}

	s.mu.Lock()
	d := time.Duration(s.rng.Int63n(int64(s.cfg.Latency)))
	s.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func cloneCatalog(in []market.Instrument) []market.Instrument {
	out := make([]market.Instrument, len(in))
	copy(out, in)
	return out
}

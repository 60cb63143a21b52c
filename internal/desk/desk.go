// Package desk owns the agriflow subsystems and wires market refreshes to
// bulletins and live subscribers.
package desk

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zappabad/agriflow/internal/advisor"
	"github.com/zappabad/agriflow/internal/kv"
	"github.com/zappabad/agriflow/internal/logging"
	"github.com/zappabad/agriflow/internal/market"
	marketservice "github.com/zappabad/agriflow/internal/market/service"
	marketview "github.com/zappabad/agriflow/internal/market/view"
	"github.com/zappabad/agriflow/internal/news"
	newsservice "github.com/zappabad/agriflow/internal/news/service"
	"github.com/zappabad/agriflow/internal/projection"
	"github.com/zappabad/agriflow/internal/weather"
)

// Listener receives every refresh together with the bulletins it produced.
// Listeners run on the fan-out goroutine and must not block.
type Listener func(ev marketview.RefreshEvent, bulletins []news.Bulletin)

// Desk owns all the subsystems and manages their lifecycle.
type Desk struct {
	Store   *kv.Store
	Market  *marketservice.MarketService
	News    *newsservice.NewsService
	Weather *weather.Service
	Advisor advisor.Briefer

	cfg    Config
	logger *zap.Logger

	mu        sync.Mutex
	listeners []Listener
	closeOnce sync.Once
}

// New creates a Desk over store. The desk takes ownership of store and closes it.
func New(ctx context.Context, cfg Config, store *kv.Store, logger *zap.Logger) *Desk {
	logger = logging.OrNop(logger)
	d := &Desk{
		Store:   store,
		Weather: weather.NewService(cfg.WeatherLatency),
		cfg:     cfg,
		logger:  logger.Named("desk"),
	}

	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}
	d.Market = marketservice.NewMarketService(cfg.Market, store, rng, logger)
	d.News = newsservice.NewNewsService(cfg.News, logger)
	d.Advisor = newBriefer(ctx, cfg.Advisor, logger)

	return d
}

func newBriefer(ctx context.Context, cfg advisor.Config, logger *zap.Logger) advisor.Briefer {
	primary, err := advisor.NewGenAIAdvisor(ctx, cfg, logger)
	if err != nil {
		if !errors.Is(err, advisor.ErrDisabled) {
			logger.Warn("advisor unavailable, using offline briefs", zap.Error(err))
		}
		return advisor.Local{}
	}
	return advisor.Fallback{Primary: primary, Secondary: advisor.Local{}}
}

// OnRefresh registers l for every subsequent refresh.
func (d *Desk) OnRefresh(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// Run fans refreshes out to the news service and listeners, and refreshes
// automatically when an interval is configured. It returns when ctx is done
// or the market service is closed.
func (d *Desk) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		d.runForwarder(ctx)
		return nil
	})

	if d.cfg.RefreshInterval > 0 {
		g.Go(func() error {
			return d.runAutoRefresh(ctx)
		})
	}

	return g.Wait()
}

func (d *Desk) runForwarder(ctx context.Context) {
	events := d.Market.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			bulletins := d.News.PublishRefresh(ev)

			d.mu.Lock()
			listeners := append([]Listener(nil), d.listeners...)
			d.mu.Unlock()

			for _, l := range listeners {
				l(ev, bulletins)
			}
		}
	}
}

func (d *Desk) runAutoRefresh(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := d.Market.Refresh(ctx); err != nil {
				if errors.Is(err, marketservice.ErrClosed) {
					return nil
				}
				if ctx.Err() != nil {
					return nil
				}
				d.logger.Warn("auto refresh failed", zap.Error(err))
			}
		}
	}
}

// Refresh advances the market one tick.
func (d *Desk) Refresh(ctx context.Context) ([]market.Instrument, error) {
	return d.Market.Refresh(ctx)
}

// Prices returns the persisted catalog without advancing it.
func (d *Desk) Prices(ctx context.Context) []market.Instrument {
	return d.Market.Prices(ctx)
}

// Regimes returns the persisted trend records.
func (d *Desk) Regimes(ctx context.Context) market.Regimes {
	return d.Market.Regimes(ctx)
}

// Snapshot returns the latest refresh seen by the market view.
func (d *Desk) Snapshot() marketview.MarketSnapshot {
	return d.Market.Snapshot()
}

// Bulletins returns the last n bulletins, oldest first.
func (d *Desk) Bulletins(n int) []news.Bulletin {
	return d.News.Latest(n)
}

// LookupWeather returns the weather report at lat/lon.
func (d *Desk) LookupWeather(ctx context.Context, lat, lon float64) (weather.Report, error) {
	return d.Weather.Lookup(ctx, lat, lon)
}

// Conditions returns the weather report at the farm.
func (d *Desk) Conditions(ctx context.Context) (weather.Report, error) {
	return d.Weather.Lookup(ctx, d.cfg.Lat, d.cfg.Lon)
}

// Projection values the configured plots at current prices.
func (d *Desk) Projection(ctx context.Context) (projection.Summary, error) {
	return projection.Summarize(d.cfg.Plots, d.Market.Prices(ctx))
}

// Brief asks the advisor for a market brief over the current state.
func (d *Desk) Brief(ctx context.Context) (string, error) {
	req := advisor.Request{
		Prices:  d.Market.Prices(ctx),
		Regimes: d.Market.Regimes(ctx),
	}
	if w, err := d.Conditions(ctx); err == nil {
		req.Weather = &w
	}
	if p, err := projection.Summarize(d.cfg.Plots, req.Prices); err == nil {
		req.Plots = &p
	} else {
		d.logger.Warn("projection skipped", zap.Error(err))
	}
	return d.Advisor.Brief(ctx, req)
}

// Export returns a JSON backup of the desk's persisted state.
func (d *Desk) Export(ctx context.Context) ([]byte, error) {
	return d.Store.Export(ctx, d.Market.Keys())
}

// Import restores a backup produced by Export and returns the keys written.
func (d *Desk) Import(ctx context.Context, data []byte) ([]string, error) {
	return d.Store.Import(ctx, data, d.Market.Keys())
}

// Reset deletes the persisted state so the next refresh starts from the default catalog.
func (d *Desk) Reset(ctx context.Context) int {
	return d.Store.Reset(ctx, d.Market.Keys())
}

// Close shuts down all subsystems in reverse dependency order.
func (d *Desk) Close() {
	d.closeOnce.Do(func() {
		d.Market.Close()
		d.News.Close()
		if err := d.Store.Close(); err != nil {
			d.logger.Warn("close store", zap.Error(err))
		}
	})
}

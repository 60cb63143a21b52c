package service

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/agriflow/internal/kv"
	"github.com/zappabad/agriflow/internal/market"
)

func newTestService(t *testing.T, cfg Config, seed int64) (*MarketService, *kv.Store) {
	t.Helper()
	store := kv.NewStore(kv.NewMemoryBackend(), nil)
	svc := NewMarketService(cfg, store, rand.New(rand.NewSource(seed)), nil)
	t.Cleanup(svc.Close)
	return svc, store
}

func assertTrendConsistent(t *testing.T, in market.Instrument) {
	t.Helper()
	switch {
	case in.ChangePercentage > 0.5:
		assert.Equal(t, market.TrendUp, in.Trend, "%s %+v", in.Name, in)
	case in.ChangePercentage < -0.5:
		assert.Equal(t, market.TrendDown, in.Trend, "%s %+v", in.Name, in)
	default:
		assert.Equal(t, market.TrendStable, in.Trend, "%s %+v", in.Name, in)
	}
}

func TestRefreshSingleInstrumentScenario(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Defaults = []market.Instrument{}
	svc, store := newTestService(t, cfg, 42)

	require.True(t, kv.Write(ctx, store, cfg.CatalogKey, []market.Instrument{
		{Name: "Maize", Price: 42.00, Unit: "per 90kg", Trend: market.TrendDown, ChangePercentage: -5.4, InputCostIndex: 115},
	}))

	got, err := svc.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	maize := got[0]
	assert.Equal(t, "Maize", maize.Name)
	assert.Equal(t, "per 90kg", maize.Unit)
	assert.Equal(t, 115.0, maize.InputCostIndex, "input cost index is never mutated")
	assert.GreaterOrEqual(t, maize.Price, math.Max(0.5, 42.00*0.95))
	assert.LessOrEqual(t, maize.Price, 42.00*1.05)
	assert.InDelta(t, (maize.Price/42.00-1)*100, maize.ChangePercentage, 0.07)
	assertTrendConsistent(t, maize)

	regimes := kv.Read(ctx, store, cfg.TrendsKey, market.Regimes{})
	rec, ok := regimes["Maize"]
	require.True(t, ok, "trend record synthesized")
	assert.True(t, rec.Direction.Valid())
	assert.GreaterOrEqual(t, rec.Duration, 2)
	assert.LessOrEqual(t, rec.Duration, 6)
}

func TestRefreshCompletesCatalog(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	svc, store := newTestService(t, cfg, 7)

	require.True(t, kv.Write(ctx, store, cfg.CatalogKey, []market.Instrument{
		{Name: "Wheat", Price: 60, Unit: "per bushel"},
		{Name: "Sorghum", Price: 12, Unit: "per bag"},
	}))

	got, err := svc.Refresh(ctx)
	require.NoError(t, err)

	counts := map[string]int{}
	for _, in := range got {
		counts[in.Name]++
	}
	for _, d := range market.DefaultCatalog() {
		assert.Equal(t, 1, counts[d.Name], "default %q", d.Name)
	}
	assert.Equal(t, 1, counts["Sorghum"])
	assert.Equal(t, "Wheat", got[0].Name)
	assert.Equal(t, "Sorghum", got[1].Name)
	assert.Len(t, got, len(market.DefaultCatalog())+1)
}

func TestRefreshUsesDefaultsWhenStorageEmpty(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig(), 1)

	got, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, market.Names(market.DefaultCatalog()), market.Names(got))
}

func TestRefreshRecoversFromCorruptStorage(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	svc, store := newTestService(t, cfg, 3)

	backend := store.Backend()
	require.NoError(t, backend.Set(ctx, cfg.CatalogKey, []byte("{{{")))
	require.NoError(t, backend.Set(ctx, cfg.TrendsKey, []byte(`"garbage"`)))

	got, err := svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Len(t, got, len(market.DefaultCatalog()))

	regimes := kv.Read(ctx, store, cfg.TrendsKey, market.Regimes{})
	assert.Len(t, regimes, len(market.DefaultCatalog()))
}

func TestPriceFloorHolds(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Params.UpThreshold = 1.0
	cfg.Params.DownThreshold = 1.0 // every roll is DOWN
	cfg.Defaults = []market.Instrument{{Name: "Cotton", Price: 0.85, Unit: "per lb"}}
	svc, _ := newTestService(t, cfg, 11)

	for i := 0; i < 200; i++ {
		got, err := svc.Refresh(ctx)
		require.NoError(t, err)
		for _, in := range got {
			require.GreaterOrEqual(t, in.Price, 0.5, "tick %d", i)
		}
	}

	got := svc.Prices(ctx)
	assert.Equal(t, 0.5, got[0].Price, "a relentless DOWN regime pins the price to the floor")
}

func TestRegimePersistsUntilExhausted(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	svc, store := newTestService(t, cfg, 2024)

	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	for tick := 0; tick < 60; tick++ {
		before := kv.Read(ctx, store, cfg.TrendsKey, market.Regimes{})

		_, err := svc.Refresh(ctx)
		require.NoError(t, err)
		after := kv.Read(ctx, store, cfg.TrendsKey, market.Regimes{})

		for name, prev := range before {
			next := after[name]
			if prev.Duration > 0 {
				assert.Equal(t, prev.Direction, next.Direction, "tick %d %s keeps its regime", tick, name)
				assert.Equal(t, prev.Duration-1, next.Duration, "tick %d %s counts down", tick, name)
			} else {
				assert.GreaterOrEqual(t, next.Duration, cfg.Params.MinDuration-1, "tick %d %s", tick, name)
				assert.LessOrEqual(t, next.Duration, cfg.Params.MaxDuration-1, "tick %d %s", tick, name)
			}
		}
	}
}

func TestRerollOnExhaustedOrInvalidRecord(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Defaults = []market.Instrument{
		{Name: "Maize", Price: 42},
		{Name: "Rice", Price: 18.5},
		{Name: "Cocoa", Price: 3400},
	}
	svc, store := newTestService(t, cfg, 5)

	require.True(t, kv.Write(ctx, store, cfg.TrendsKey, market.Regimes{
		"Maize": {Direction: market.DirectionUp, Duration: 0},
		"Rice":  {Direction: "SIDEWAYS", Duration: 4},
		"Cocoa": {Direction: market.DirectionDown, Duration: 3},
	}))

	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	snap := svc.Snapshot()
	assert.ElementsMatch(t, []string{"Maize", "Rice"}, rolledNames(svc))
	assert.Equal(t, market.TrendRecord{Direction: market.DirectionDown, Duration: 2}, snap.Regimes["Cocoa"])
	assert.True(t, snap.Regimes["Rice"].Direction.Valid())
}

func rolledNames(svc *MarketService) []string {
	select {
	case ev := <-svc.Events():
		return ev.Rolled
	default:
		return nil
	}
}

func TestRollDistribution(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig(), 99)

	const trials = 20000
	counts := map[market.Direction]int{}
	durations := map[int]int{}
	for i := 0; i < trials; i++ {
		rec := svc.roll()
		counts[rec.Direction]++
		durations[rec.Duration]++
	}

	assert.InDelta(t, 0.4, float64(counts[market.DirectionUp])/trials, 0.02)
	assert.InDelta(t, 0.4, float64(counts[market.DirectionDown])/trials, 0.02)
	assert.InDelta(t, 0.2, float64(counts[market.DirectionStable])/trials, 0.02)

	for d := range durations {
		assert.GreaterOrEqual(t, d, 3)
		assert.LessOrEqual(t, d, 7)
	}
	assert.Len(t, durations, 5, "every duration in [3,7] occurs")
}

func TestEvolveBounds(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig(), 17)
	in := market.Instrument{Name: "Cocoa", Price: 3400, InputCostIndex: 130}

	tests := []struct {
		dir      market.Direction
		min, max float64
	}{
		{market.DirectionUp, 0.01, 0.05},
		{market.DirectionDown, -0.05, -0.01},
		{market.DirectionStable, -0.02, 0.02},
	}

	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			for i := 0; i < 500; i++ {
				out, rec := svc.evolve(in, market.TrendRecord{Direction: tt.dir, Duration: 4})
				assert.Equal(t, 3, rec.Duration)
				assert.Equal(t, tt.dir, rec.Direction)
				assert.GreaterOrEqual(t, out.ChangePercentage, tt.min*100-1e-9)
				assert.LessOrEqual(t, out.ChangePercentage, tt.max*100+1e-9)
				assert.GreaterOrEqual(t, out.Price, roundTo(3400*(1+tt.min), 2)-0.01)
				assert.LessOrEqual(t, out.Price, roundTo(3400*(1+tt.max), 2)+0.01)
				assert.Equal(t, 130.0, out.InputCostIndex)
				assertTrendConsistent(t, out)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		pct  float64
		want market.Trend
	}{
		{0.6, market.TrendUp},
		{0.5, market.TrendStable},
		{0, market.TrendStable},
		{-0.5, market.TrendStable},
		{-0.6, market.TrendDown},
		{4.9, market.TrendUp},
		// A fractional move in (0.005, 0.0055) is stored as 0.5 and shown as stable,
		// so the stored trend always agrees with the stored percentage.
		{roundTo(0.0052*100, 1), market.TrendStable},
		{roundTo(0.0054*100, 1), market.TrendStable},
		{roundTo(-0.0052*100, 1), market.TrendStable},
		{roundTo(0.0056*100, 1), market.TrendUp},
		{roundTo(-0.0056*100, 1), market.TrendDown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.pct, 0.005), "pct %v", tt.pct)
	}
}

func TestDisplayTrendConsistencyOverManyTicks(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, DefaultConfig(), 31337)

	for i := 0; i < 100; i++ {
		got, err := svc.Refresh(ctx)
		require.NoError(t, err)
		for _, in := range got {
			assertTrendConsistent(t, in)
		}
	}
}

func TestPersistedStateRoundTrips(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	svc, store := newTestService(t, cfg, 8)

	got, err := svc.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, got, kv.Read(ctx, store, cfg.CatalogKey, []market.Instrument(nil)))
	assert.Equal(t, got, svc.Prices(ctx))
	assert.Equal(t, svc.Snapshot().Regimes, svc.Regimes(ctx))
}

func TestSeededRefreshIsReproducible(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestService(t, DefaultConfig(), 77)
	b, _ := newTestService(t, DefaultConfig(), 77)

	for i := 0; i < 10; i++ {
		ga, err := a.Refresh(ctx)
		require.NoError(t, err)
		gb, err := b.Refresh(ctx)
		require.NoError(t, err)
		require.Equal(t, ga, gb, "tick %d", i)
	}
}

func TestRefreshSurvivesWriteFailure(t *testing.T) {
	store := kv.NewStore(kv.NewMemoryBackend(), nil, kv.WithMaxValueBytes(8))
	svc := NewMarketService(DefaultConfig(), store, rand.New(rand.NewSource(1)), nil)
	defer svc.Close()

	got, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, len(market.DefaultCatalog()))
	assert.Equal(t, int64(1), svc.Ticks())
}

func TestConcurrentRefreshesAreSerialized(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.EventBuffer = 100
	cfg.Defaults = []market.Instrument{{Name: "Maize", Price: 42}}
	svc, store := newTestService(t, cfg, 12)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Refresh(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(n), svc.Ticks())

	// Replaying the event stream must match the persisted final state: no lost updates.
	var last float64
	seqs := map[int64]bool{}
	for i := 0; i < n; i++ {
		ev := <-svc.Events()
		assert.False(t, seqs[ev.Seq], "duplicate seq %d", ev.Seq)
		seqs[ev.Seq] = true
		if ev.Seq == n {
			last = ev.Prices[0].Price
		}
	}
	persisted := kv.Read(ctx, store, cfg.CatalogKey, []market.Instrument(nil))
	assert.Equal(t, last, persisted[0].Price)
}

func TestEventsDropWhenFull(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.EventBuffer = 1
	svc, _ := newTestService(t, cfg, 4)

	for i := 0; i < 3; i++ {
		_, err := svc.Refresh(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(2), svc.DroppedEvents())
	assert.Equal(t, int64(1), (<-svc.Events()).Seq)
}

func TestRefreshAfterClose(t *testing.T) {
	svc, _ := newTestService(t, DefaultConfig(), 1)
	svc.Close()
	svc.Close()

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	_, ok := <-svc.Events()
	assert.False(t, ok, "events channel closed")
}

func TestLatencyHonorsContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Latency = time.Hour
	svc, _ := newTestService(t, cfg, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := svc.Refresh(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, svc.Ticks())
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultParams(), cfg.Params)
	assert.Equal(t, DefaultCatalogKey, cfg.CatalogKey)
	assert.Equal(t, DefaultTrendsKey, cfg.TrendsKey)
	assert.Len(t, cfg.Defaults, 8)
	assert.Positive(t, cfg.TapeSize)

	svc, _ := newTestService(t, Config{}, 1)
	assert.Equal(t, []string{DefaultCatalogKey, DefaultTrendsKey}, svc.Keys())
}

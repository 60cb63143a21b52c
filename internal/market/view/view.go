package view

import (
	"sync"

	"github.com/zappabad/agriflow/internal/market"
)

// MarketSnapshot is a point-in-time copy of the latest refresh.
type MarketSnapshot struct {
	Seq     int64
	Time    int64
	Prices  []market.Instrument
	Regimes market.Regimes
}

// Empty reports whether the view has been neither seeded nor refreshed.
// A seeded snapshot has prices but a zero Seq.
func (s MarketSnapshot) Empty() bool {
	return s.Seq == 0 && s.Prices == nil
}

// MarketView maintains the latest quotes and a price tape per instrument.
type MarketView struct {
	mu       sync.RWMutex
	tapeSize int
	latest   MarketSnapshot
	tapes    map[string]*PriceTape
}

// NewMarketView creates a MarketView whose tapes hold tapeSize points each.
func NewMarketView(tapeSize int) *MarketView {
	if tapeSize <= 0 {
		tapeSize = 120
	}
	return &MarketView{
		tapeSize: tapeSize,
		tapes:    make(map[string]*PriceTape),
	}
}

// Seed records a catalog that was read rather than evolved, so charts have a
// starting point before the first refresh. It never overwrites a refresh.
func (v *MarketView) Seed(prices []market.Instrument, regimes market.Regimes, at int64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.latest.Seq != 0 {
		return
	}
	for _, in := range prices {
		if _, ok := v.tapes[in.Name]; ok {
			continue
		}
		tape := NewPriceTape(v.tapeSize)
		tape.Append(PricePoint{Time: at, Price: in.Price})
		v.tapes[in.Name] = tape
	}
	v.latest.Prices = cloneInstruments(prices)
	v.latest.Regimes = regimes.Clone()
	v.latest.Time = at
}

// Apply records a refresh.
func (v *MarketView) Apply(ev RefreshEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, in := range ev.Prices {
		tape, ok := v.tapes[in.Name]
		if !ok {
			tape = NewPriceTape(v.tapeSize)
			v.tapes[in.Name] = tape
		}
		tape.Append(PricePoint{Seq: ev.Seq, Time: ev.Time, Price: in.Price})
	}

	v.latest = MarketSnapshot{
		Seq:     ev.Seq,
		Time:    ev.Time,
		Prices:  cloneInstruments(ev.Prices),
		Regimes: ev.Regimes.Clone(),
	}
}

// Snapshot returns a deep copy of the latest state.
func (v *MarketView) Snapshot() MarketSnapshot {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return MarketSnapshot{
		Seq:     v.latest.Seq,
		Time:    v.latest.Time,
		Prices:  cloneInstruments(v.latest.Prices),
		Regimes: v.latest.Regimes.Clone(),
	}
}

// History returns up to n recent price points for name, oldest first.
func (v *MarketView) History(name string, n int) []PricePoint {
	v.mu.RLock()
	defer v.mu.RUnlock()

	tape, ok := v.tapes[name]
	if !ok {
		return nil
	}
	return tape.Last(n)
}

func cloneInstruments(in []market.Instrument) []market.Instrument {
	if in == nil {
		return nil
	}
	out := make([]market.Instrument, len(in))
	copy(out, in)
	return out
}

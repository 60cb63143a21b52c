package market

import (
	"math"
	"strings"
)

// NormalizeCatalog validates a catalog loaded from storage.
//
// Instruments without a name are dropped and later duplicates of a name are
// discarded. Prices that are not finite or sit below floor are clamped to floor,
// and unknown display trends become stable. The result is always a fresh slice.
func NormalizeCatalog(raw []Instrument, floor float64) []Instrument {
	out := make([]Instrument, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, in := range raw {
		in.Name = strings.TrimSpace(in.Name)
		if in.Name == "" {
			continue
		}
		if _, dup := seen[in.Name]; dup {
			continue
		}
		seen[in.Name] = struct{}{}

		if math.IsNaN(in.Price) || math.IsInf(in.Price, 0) || in.Price < floor {
			in.Price = floor
		}
		if math.IsNaN(in.ChangePercentage) || math.IsInf(in.ChangePercentage, 0) {
			in.ChangePercentage = 0
		}
		if !in.Trend.Valid() {
			in.Trend = TrendStable
		}
		out = append(out, in)
	}
	return out
}

// NormalizeRegimes drops trend records whose direction is unknown so that the
// engine synthesizes them again on the next tick.
func NormalizeRegimes(raw Regimes) Regimes {
	out := make(Regimes, len(raw))
	for name, rec := range raw {
		if name == "" || !rec.Direction.Valid() {
			continue
		}
		out[name] = rec
	}
	return out
}

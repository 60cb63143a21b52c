package view

import "github.com/zappabad/agriflow/internal/market"

// RefreshEvent describes the outcome of one tick of the price engine.
type RefreshEvent struct {
	Seq     int64               `json:"seq"`
	Time    int64               `json:"time"`
	Prices  []market.Instrument `json:"prices"`
	Regimes market.Regimes      `json:"regimes"`
	// Rolled lists instruments whose regime was (re)rolled on this tick.
	Rolled []string `json:"rolled,omitempty"`
}

// WasRolled reports whether name's regime was rolled on this tick.
func (ev RefreshEvent) WasRolled(name string) bool {
	for _, n := range ev.Rolled {
		if n == name {
			return true
		}
	}
	return false
}

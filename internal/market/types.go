package market

// Trend is the display classification of the most recent price move.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Valid reports whether t is one of the known display trends.
func (t Trend) Valid() bool {
	switch t {
	case TrendUp, TrendDown, TrendStable:
		return true
	}
	return false
}

// Arrow returns a single-rune marker for t.
func (t Trend) Arrow() string {
	switch t {
	case TrendUp:
		return "▲"
	case TrendDown:
		return "▼"
	}
	return "■"
}

// Direction is the multi-tick regime an instrument's price walk is biased toward.
type Direction string

const (
	DirectionUp     Direction = "UP"
	DirectionDown   Direction = "DOWN"
	DirectionStable Direction = "STABLE"
)

// Valid reports whether d is one of the known regimes.
func (d Direction) Valid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionStable:
		return true
	}
	return false
}

// Instrument represents a tracked commodity with a simulated quote.
// JSON names match the layout the dashboard has always persisted.
type Instrument struct {
	Name             string  `json:"cropName"`
	Price            float64 `json:"price"`
	Unit             string  `json:"unit"`
	Trend            Trend   `json:"trend"`
	ChangePercentage float64 `json:"changePercentage"`
	// InputCostIndex is reference data for cost estimates; the engine never touches it.
	InputCostIndex float64 `json:"inputCostIndex"`
}

// TrendRecord tracks an instrument's current regime and the ticks left before it may re-roll.
type TrendRecord struct {
	Direction Direction `json:"direction"`
	Duration  int       `json:"duration"`
}

// Regimes maps instrument name to its trend record.
type Regimes map[string]TrendRecord

// Clone returns a copy of r.
func (r Regimes) Clone() Regimes {
	out := make(Regimes, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Find returns the instrument with the given name.
func Find(catalog []Instrument, name string) (Instrument, bool) {
	for _, in := range catalog {
		if in.Name == name {
			return in, true
		}
	}
	return Instrument{}, false
}

// Names returns the instrument names in catalog order.
func Names(catalog []Instrument) []string {
	out := make([]string, len(catalog))
	for i, in := range catalog {
		out[i] = in.Name
	}
	return out
}

package news

import (
	"fmt"
	"math"

	"github.com/zappabad/agriflow/internal/market"
	marketview "github.com/zappabad/agriflow/internal/market/view"
)

// Rules decide which refresh results are newsworthy.
type Rules struct {
	// MoveThreshold is the absolute percentage move that earns a headline.
	MoveThreshold float64 `yaml:"move_threshold"`
	// AlertThreshold is the absolute percentage move that raises severity.
	AlertThreshold float64 `yaml:"alert_threshold"`
}

// DefaultRules returns the stock thresholds.
func DefaultRules() Rules {
	return Rules{MoveThreshold: 3.0, AlertThreshold: 4.5}
}

// FromRefresh derives bulletins from a refresh event, in catalog order.
// IDs and times are left for the publisher to assign.
func FromRefresh(ev marketview.RefreshEvent, rules Rules) []Bulletin {
	var out []Bulletin
	for _, in := range ev.Prices {
		move := math.Abs(in.ChangePercentage)
		if move >= rules.MoveThreshold && in.Trend != market.TrendStable {
			b := Bulletin{
				Instrument: in.Name,
				Headline:   moveHeadline(in),
			}
			if move >= rules.AlertThreshold {
				b.Severity = 1
			}
			out = append(out, b)
		}

		if !ev.WasRolled(in.Name) {
			continue
		}
		if rec, ok := ev.Regimes[in.Name]; ok {
			out = append(out, Bulletin{
				Instrument: in.Name,
				Headline:   regimeHeadline(in.Name, rec),
			})
		}
	}
	return out
}

func moveHeadline(in market.Instrument) string {
	verb := "rallies"
	if in.ChangePercentage < 0 {
		verb = "slides"
	}
	headline := fmt.Sprintf("%s %s %.1f%% to %.2f", in.Name, verb, math.Abs(in.ChangePercentage), in.Price)
	if in.Unit != "" {
		headline += " " + in.Unit
	}
	return headline
}

// rec has already been charged for the tick that rolled it.
func regimeHeadline(name string, rec market.TrendRecord) string {
	sessions := rec.Duration + 1
	switch rec.Direction {
	case market.DirectionUp:
		return fmt.Sprintf("%s buyers take control, bullish run seen for %d sessions", name, sessions)
	case market.DirectionDown:
		return fmt.Sprintf("%s sellers take control, bearish run seen for %d sessions", name, sessions)
	}
	return fmt.Sprintf("%s settles into a sideways range for %d sessions", name, sessions)
}

// Package projection estimates what the configured field plots are worth at
// current market prices.
package projection

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/zappabad/agriflow/internal/market"
)

// BaseYield is the yield units per acre before soil and water modifiers.
const BaseYield = 100.0

// DefaultPrice is used for plots with no matching instrument.
const DefaultPrice = 50.0

var ErrInvalidPlot = errors.New("invalid plot")

// SoilHealth grades a plot's soil.
type SoilHealth string

const (
	SoilExcellent SoilHealth = "Excellent"
	SoilGood      SoilHealth = "Good"
	SoilDegraded  SoilHealth = "Degraded"
	SoilUnknown   SoilHealth = "Unknown"
)

// WaterEfficiency grades a plot's irrigation.
type WaterEfficiency string

const (
	WaterHigh     WaterEfficiency = "High"
	WaterModerate WaterEfficiency = "Moderate"
	WaterLow      WaterEfficiency = "Low"
)

// Plot is a planted field.
type Plot struct {
	Name            string          `yaml:"name" json:"name"`
	Variety         string          `yaml:"variety" json:"variety,omitempty"`
	Area            float64         `yaml:"area" json:"area"`
	SoilHealth      SoilHealth      `yaml:"soil_health" json:"soilHealth"`
	WaterEfficiency WaterEfficiency `yaml:"water_efficiency" json:"waterEfficiency"`
}

// Validate requires a name and a positive area.
func (p Plot) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPlot)
	}
	if !(p.Area > 0) || math.IsInf(p.Area, 0) {
		return fmt.Errorf("%w: %s: area must be > 0", ErrInvalidPlot, p.Name)
	}
	return nil
}

// DefaultPlots returns the demo farm.
func DefaultPlots() []Plot {
	return []Plot{
		{Name: "Maize", Variety: "Drought-Tol 404", Area: 12.5, SoilHealth: SoilDegraded, WaterEfficiency: WaterLow},
		{Name: "Coffee", Variety: "Arabica Shade", Area: 8.0, SoilHealth: SoilGood, WaterEfficiency: WaterModerate},
		{Name: "Wheat", Variety: "Winter Durum", Area: 20.0, SoilHealth: SoilExcellent, WaterEfficiency: WaterHigh},
	}
}

// Yield returns the expected units harvested from p.
func Yield(p Plot) float64 {
	y := BaseYield
	switch p.SoilHealth {
	case SoilExcellent:
		y *= 1.2
	case SoilDegraded:
		y *= 0.7
	}
	switch p.WaterEfficiency {
	case WaterHigh:
		y *= 1.1
	case WaterLow:
		y *= 0.9
	}
	return y * p.Area
}

// ProjectedRevenue values p's yield at price, rounded down to a whole unit of currency.
func ProjectedRevenue(p Plot, price float64) float64 {
	return math.Floor(Yield(p) * price)
}

// CostPerAcre returns the estimated input cost of planting one acre of crop.
func CostPerAcre(crop string) float64 {
	name := strings.ToLower(crop)
	switch {
	case strings.Contains(name, "maize"), strings.Contains(name, "corn"):
		return 450
	case strings.Contains(name, "soy"):
		return 300
	case strings.Contains(name, "wheat"):
		return 320
	case strings.Contains(name, "coffee"):
		return 800
	}
	return 350
}

// Line is the projection for one plot.
type Line struct {
	Plot       Plot    `json:"plot"`
	Instrument string  `json:"instrument,omitempty"`
	Price      float64 `json:"price"`
	Revenue    float64 `json:"revenue"`
	InputCost  float64 `json:"inputCost"`
	Margin     float64 `json:"margin"`
}

// Summary totals the projection for every plot.
type Summary struct {
	Lines     []Line  `json:"lines"`
	Revenue   float64 `json:"revenue"`
	InputCost float64 `json:"inputCost"`
	Margin    float64 `json:"margin"`
}

// Match returns the first instrument whose name contains the plot name,
// ignoring case.
func Match(p Plot, catalog []market.Instrument) (market.Instrument, bool) {
	needle := strings.ToLower(strings.TrimSpace(p.Name))
	for _, in := range catalog {
		if strings.Contains(strings.ToLower(in.Name), needle) {
			return in, true
		}
	}
	return market.Instrument{}, false
}

// Summarize prices every plot against catalog. The first invalid plot aborts the summary.
func Summarize(plots []Plot, catalog []market.Instrument) (Summary, error) {
	var s Summary
	s.Lines = make([]Line, 0, len(plots))

	for _, p := range plots {
		if err := p.Validate(); err != nil {
			return Summary{}, err
		}

		line := Line{Plot: p, Price: DefaultPrice}
		if in, ok := Match(p, catalog); ok {
			line.Instrument = in.Name
			line.Price = in.Price
		}
		line.Revenue = ProjectedRevenue(p, line.Price)
		line.InputCost = math.Round(CostPerAcre(p.Name) * p.Area)
		line.Margin = line.Revenue - line.InputCost

		s.Lines = append(s.Lines, line)
		s.Revenue += line.Revenue
		s.InputCost += line.InputCost
	}
	s.Margin = s.Revenue - s.InputCost
	return s, nil
}

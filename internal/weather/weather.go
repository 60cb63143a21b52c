// Package weather simulates local field conditions from coordinates.
// The same coordinates always produce the same report.
package weather

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Risk is the climate risk index attached to a report.
type Risk string

const (
	RiskLow      Risk = "Low"
	RiskModerate Risk = "Moderate"
	RiskHigh     Risk = "High"
	RiskSevere   Risk = "Severe"
)

// Report describes the conditions at a field.
type Report struct {
	LocationName string  `json:"locationName"`
	Temp         float64 `json:"temp"`
	Condition    string  `json:"condition"`
	Humidity     float64 `json:"humidity"`
	WindSpeed    float64 `json:"windSpeed"`
	Forecast     string  `json:"forecast"`
	Risk         Risk    `json:"climateRiskIndex"`
}

// At returns the simulated report for lat/lon.
func At(lat, lon float64) Report {
	temp := math.Round(18 + math.Mod(math.Abs(lat), 15))
	wind := math.Round(5 + math.Mod(math.Abs(lon), 20))

	r := Report{
		LocationName: fmt.Sprintf("Field Sector %.2f", lat),
		Temp:         temp,
		Condition:    "Partly Cloudy",
		Humidity:     math.Round(40 + math.Mod(math.Abs(lon), 40)),
		WindSpeed:    wind,
		Forecast:     "Optimal growing conditions. Soil moisture stable.",
		Risk:         RiskLow,
	}

	switch {
	case temp > 30:
		r.Condition, r.Risk = "Heat Wave", RiskHigh
		r.Forecast = "Extreme heat expected. Increase irrigation frequency immediately."
	case temp > 25:
		r.Condition, r.Risk = "Sunny", RiskModerate
		r.Forecast = "High evaporation rates. Monitor young seedlings."
	case temp < 10:
		r.Condition, r.Risk = "Frost Warning", RiskSevere
		r.Forecast = "Frost events likely overnight. Cover sensitive crops."
	case math.Mod(math.Abs(lon), 10) > 7:
		r.Condition, r.Risk = "Heavy Rain", RiskModerate
		r.Forecast = "Precipitation expected. Delay fertilizer application."
	}
	return r
}

// Service serves reports with an optional simulated lookup delay.
type Service struct {
	latency time.Duration
}

// NewService creates a Service. A zero latency answers immediately.
func NewService(latency time.Duration) *Service {
	return &Service{latency: latency}
}

// Lookup returns the report for lat/lon after the configured delay.
func (s *Service) Lookup(ctx context.Context, lat, lon float64) (Report, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 || math.IsNaN(lat) || math.IsNaN(lon) {
		return Report{}, fmt.Errorf("coordinates out of range: %v,%v", lat, lon)
	}
	if s.latency > 0 {
		timer := time.NewTimer(s.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Report{}, ctx.Err()
		}
	}
	return At(lat, lon), nil
}

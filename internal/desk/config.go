package desk

import (
	"time"

	"github.com/zappabad/agriflow/internal/advisor"
	"github.com/zappabad/agriflow/internal/config"
	marketservice "github.com/zappabad/agriflow/internal/market/service"
	newsservice "github.com/zappabad/agriflow/internal/news/service"
	"github.com/zappabad/agriflow/internal/projection"
)

// Config holds configuration for the desk.
type Config struct {
	// Market is the configuration for the market service.
	Market marketservice.Config
	// News is the configuration for the news service.
	News newsservice.Config
	// Advisor configures the generative brief; without a key briefs are written locally.
	Advisor advisor.Config
	// Lat and Lon locate the farm for weather reports.
	Lat, Lon float64
	// WeatherLatency simulates a slow weather lookup.
	WeatherLatency time.Duration
	// Plots are the fields valued by projections.
	Plots []projection.Plot
	// RefreshInterval drives automatic refreshes in Run; 0 disables them.
	RefreshInterval time.Duration
	// Seed fixes the price walk; 0 seeds from the clock.
	Seed int64
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return FromConfig(config.Default())
}

// FromConfig maps the loaded file configuration onto the desk.
func FromConfig(c *config.Config) Config {
	newsCfg := newsservice.DefaultConfig()
	newsCfg.Rules = c.News.Rules
	newsCfg.TapeSize = c.News.TapeSize

	return Config{
		Market: c.MarketService(),
		News:   newsCfg,
		Advisor: advisor.Config{
			APIKey:  c.Advisor.APIKey,
			Model:   c.Advisor.Model,
			Timeout: c.Advisor.Timeout,
		},
		Lat:             c.Location.Lat,
		Lon:             c.Location.Lon,
		WeatherLatency:  c.Location.Latency,
		Plots:           c.Plots,
		RefreshInterval: c.Market.RefreshInterval,
		Seed:            c.Market.Seed,
	}
}

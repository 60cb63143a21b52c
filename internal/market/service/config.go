package service

import (
	"time"

	"github.com/zappabad/agriflow/internal/market"
)

// Storage keys the dashboard has always used for the market state.
const (
	DefaultCatalogKey = "agriflow_market"
	DefaultTrendsKey  = "agriflow_market_trends"
)

// Params holds the tuning constants of the price walk.
type Params struct {
	// A regime roll above UpThreshold is UP, below DownThreshold is DOWN, otherwise STABLE.
	UpThreshold   float64 `yaml:"up_threshold"`
	DownThreshold float64 `yaml:"down_threshold"`
	// TrendBias is the fractional drift per tick applied by UP/DOWN regimes.
	TrendBias float64 `yaml:"trend_bias"`
	// Volatility is the half-width of the uniform noise band.
	Volatility float64 `yaml:"volatility"`
	// A rolled regime lasts between MinDuration and MaxDuration ticks inclusive.
	MinDuration int `yaml:"min_duration"`
	MaxDuration int `yaml:"max_duration"`
	// PriceFloor is the lowest quote the engine will ever persist.
	PriceFloor float64 `yaml:"price_floor"`
	// DisplayThreshold is the fractional move needed to show an up/down trend.
	DisplayThreshold float64 `yaml:"display_threshold"`
}

// DefaultParams returns the stock tuning.
func DefaultParams() Params {
	return Params{
		UpThreshold:      0.6,
		DownThreshold:    0.4,
		TrendBias:        0.03,
		Volatility:       0.02,
		MinDuration:      3,
		MaxDuration:      7,
		PriceFloor:       0.5,
		DisplayThreshold: 0.005,
	}
}

// Config holds configuration for the market service.
type Config struct {
	Params Params
	// CatalogKey and TrendsKey name the two persisted structures.
	CatalogKey string
	TrendsKey  string
	// Defaults is the canonical catalog merged into storage on every refresh.
	Defaults []market.Instrument
	// Latency is the upper bound of an artificial delay before each refresh; 0 disables it.
	Latency time.Duration
	// TapeSize is the number of price points kept per instrument.
	TapeSize int
	// EventBuffer is the size of the refresh events channel.
	EventBuffer int
	// DropEvents determines whether the events channel drops on overflow.
	DropEvents bool
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Params:      DefaultParams(),
		CatalogKey:  DefaultCatalogKey,
		TrendsKey:   DefaultTrendsKey,
		Defaults:    market.DefaultCatalog(),
		TapeSize:    120,
		EventBuffer: 64,
		DropEvents:  true,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Params == (Params{}) {
		c.Params = def.Params
	}
	if c.CatalogKey == "" {
		c.CatalogKey = def.CatalogKey
	}
	if c.TrendsKey == "" {
		c.TrendsKey = def.TrendsKey
	}
	if c.Defaults == nil {
		c.Defaults = def.Defaults
	}
	if c.TapeSize <= 0 {
		c.TapeSize = def.TapeSize
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = def.EventBuffer
	}
	return c
}

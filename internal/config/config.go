package config

import (
	"time"

	"github.com/zappabad/agriflow/internal/kv"
	"github.com/zappabad/agriflow/internal/logging"
	"github.com/zappabad/agriflow/internal/market/service"
	"github.com/zappabad/agriflow/internal/news"
	"github.com/zappabad/agriflow/internal/projection"
)

// Config is the root configuration for the agriflow desk.
type Config struct {
	Log      logging.Config    `yaml:"log"`
	Storage  StorageConfig     `yaml:"storage"`
	Market   MarketConfig      `yaml:"market"`
	News     NewsConfig        `yaml:"news"`
	Location LocationConfig    `yaml:"location"`
	Plots    []projection.Plot `yaml:"plots"`
	Advisor  AdvisorConfig     `yaml:"advisor"`
	Server   ServerConfig      `yaml:"server"`
}

// StorageConfig selects the key-value backend and the keys the market state lives under.
type StorageConfig struct {
	kv.Config  `yaml:",inline"`
	CatalogKey string `yaml:"catalog_key"`
	TrendsKey  string `yaml:"trends_key"`
}

// MarketConfig tunes the price simulation.
type MarketConfig struct {
	service.Params `yaml:",inline"`
	// Latency is the maximum simulated delay before a refresh.
	Latency time.Duration `yaml:"latency"`
	// RefreshInterval drives automatic refreshes; 0 refreshes only on request.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	TapeSize        int           `yaml:"tape_size"`
	// Seed makes the price walk reproducible; 0 seeds from the clock.
	Seed int64 `yaml:"seed"`
}

// NewsConfig tunes bulletin generation.
type NewsConfig struct {
	news.Rules `yaml:",inline"`
	TapeSize   int `yaml:"tape_size"`
}

// LocationConfig is the farm's position, used for the weather report.
type LocationConfig struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
	// Latency simulates a slow weather lookup.
	Latency time.Duration `yaml:"latency"`
}

// AdvisorConfig configures the generative market brief.
type AdvisorConfig struct {
	// APIKey enables the advisor; leave empty to disable it.
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Enabled reports whether a key is configured.
func (a AdvisorConfig) Enabled() bool {
	return a.APIKey != ""
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	PingInterval time.Duration `yaml:"ping_interval"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// MarketService returns the market service configuration described by c.
func (c *Config) MarketService() service.Config {
	cfg := service.DefaultConfig()
	cfg.Params = c.Market.Params
	cfg.CatalogKey = c.Storage.CatalogKey
	cfg.TrendsKey = c.Storage.TrendsKey
	cfg.Latency = c.Market.Latency
	cfg.TapeSize = c.Market.TapeSize
	return cfg
}

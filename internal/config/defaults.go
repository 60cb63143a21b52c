package config

import (
	"time"

	"github.com/zappabad/agriflow/internal/kv"
	"github.com/zappabad/agriflow/internal/market/service"
	"github.com/zappabad/agriflow/internal/news"
	"github.com/zappabad/agriflow/internal/projection"
)

// Default values for optional configuration fields.
const (
	DefaultLogLevel        = "info"
	DefaultStorageBackend  = kv.KindFile
	DefaultDataDir         = ".agriflow"
	DefaultDBPort          = 5432
	DefaultDBSSLMode       = "prefer"
	DefaultMaxConns        = 4
	DefaultMinConns        = 1
	DefaultTapeSize        = 120
	DefaultNewsTapeSize    = 100
	DefaultLat             = -1.2921
	DefaultLon             = 36.8219
	DefaultAdvisorModel    = "gemini-2.5-flash"
	DefaultAdvisorTimeout  = 30 * time.Second
	DefaultServerAddr      = ":8080"
	DefaultPingInterval    = 30 * time.Second
	DefaultWriteTimeout    = 10 * time.Second
	DefaultRefreshInterval = time.Duration(0)
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}

	// Storage defaults
	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultStorageBackend
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = DefaultDataDir
	}
	if c.Storage.CatalogKey == "" {
		c.Storage.CatalogKey = service.DefaultCatalogKey
	}
	if c.Storage.TrendsKey == "" {
		c.Storage.TrendsKey = service.DefaultTrendsKey
	}
	applyDBDefaults(&c.Storage.Postgres)

	// Market defaults fill individual constants so a file may override just one.
	applyParamDefaults(&c.Market.Params)
	if c.Market.TapeSize == 0 {
		c.Market.TapeSize = DefaultTapeSize
	}

	def := news.DefaultRules()
	if c.News.MoveThreshold == 0 {
		c.News.MoveThreshold = def.MoveThreshold
	}
	if c.News.AlertThreshold == 0 {
		c.News.AlertThreshold = def.AlertThreshold
	}
	if c.News.TapeSize == 0 {
		c.News.TapeSize = DefaultNewsTapeSize
	}

	if c.Location.Lat == 0 && c.Location.Lon == 0 {
		c.Location.Lat = DefaultLat
		c.Location.Lon = DefaultLon
	}

	if c.Plots == nil {
		c.Plots = projection.DefaultPlots()
	}

	if c.Advisor.Model == "" {
		c.Advisor.Model = DefaultAdvisorModel
	}
	if c.Advisor.Timeout == 0 {
		c.Advisor.Timeout = DefaultAdvisorTimeout
	}

	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.PingInterval == 0 {
		c.Server.PingInterval = DefaultPingInterval
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
}

func applyDBDefaults(db *kv.PostgresConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}

func applyParamDefaults(p *service.Params) {
	def := service.DefaultParams()
	if p.UpThreshold == 0 {
		p.UpThreshold = def.UpThreshold
	}
	if p.DownThreshold == 0 {
		p.DownThreshold = def.DownThreshold
	}
	if p.TrendBias == 0 {
		p.TrendBias = def.TrendBias
	}
	if p.Volatility == 0 {
		p.Volatility = def.Volatility
	}
	if p.MinDuration == 0 {
		p.MinDuration = def.MinDuration
	}
	if p.MaxDuration == 0 {
		p.MaxDuration = def.MaxDuration
	}
	if p.PriceFloor == 0 {
		p.PriceFloor = def.PriceFloor
	}
	if p.DisplayThreshold == 0 {
		p.DisplayThreshold = def.DisplayThreshold
	}
}

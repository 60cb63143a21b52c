package config

import (
	"errors"
	"fmt"

	"github.com/zappabad/agriflow/internal/kv"
	"github.com/zappabad/agriflow/internal/market/service"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}

	if err := c.Storage.validate(); err != nil {
		return err
	}
	if err := validateParams(c.Market.Params); err != nil {
		return err
	}
	if c.Market.Latency < 0 {
		return errors.New("market.latency must be >= 0")
	}
	if c.Market.RefreshInterval < 0 {
		return errors.New("market.refresh_interval must be >= 0")
	}
	if c.Market.TapeSize < 1 {
		return errors.New("market.tape_size must be >= 1")
	}

	if c.News.MoveThreshold <= 0 {
		return errors.New("news.move_threshold must be > 0")
	}
	if c.News.AlertThreshold < c.News.MoveThreshold {
		return fmt.Errorf("news.alert_threshold (%v) cannot be below move_threshold (%v)",
			c.News.AlertThreshold, c.News.MoveThreshold)
	}

	if c.Location.Lat < -90 || c.Location.Lat > 90 {
		return fmt.Errorf("location.lat must be between -90 and 90, got %v", c.Location.Lat)
	}
	if c.Location.Lon < -180 || c.Location.Lon > 180 {
		return fmt.Errorf("location.lon must be between -180 and 180, got %v", c.Location.Lon)
	}

	for i, p := range c.Plots {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("plots[%d]: %w", i, err)
		}
	}

	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.PingInterval <= 0 {
		return errors.New("server.ping_interval must be > 0")
	}
	return nil
}

func (s *StorageConfig) validate() error {
	switch s.Backend {
	case kv.KindMemory, kv.KindFile, kv.KindSQLite:
	case kv.KindPostgres:
		if err := validateDB(&s.Postgres, "storage.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage.backend must be one of memory, file, sqlite, postgres, got %q", s.Backend)
	}
	if s.MaxValueBytes < 0 {
		return errors.New("storage.max_value_bytes must be >= 0")
	}
	if s.CatalogKey == s.TrendsKey {
		return errors.New("storage.catalog_key and storage.trends_key must differ")
	}
	return nil
}

func validateDB(db *kv.PostgresConfig, prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func validateParams(p service.Params) error {
	if p.DownThreshold < 0 || p.UpThreshold > 1 || p.DownThreshold > p.UpThreshold {
		return fmt.Errorf("market thresholds must satisfy 0 <= down (%v) <= up (%v) <= 1", p.DownThreshold, p.UpThreshold)
	}
	if p.TrendBias < 0 || p.Volatility < 0 {
		return errors.New("market.trend_bias and market.volatility must be >= 0")
	}
	if p.MinDuration < 1 {
		return errors.New("market.min_duration must be >= 1")
	}
	if p.MaxDuration < p.MinDuration {
		return fmt.Errorf("market.max_duration (%d) cannot be below min_duration (%d)", p.MaxDuration, p.MinDuration)
	}
	if p.PriceFloor <= 0 {
		return errors.New("market.price_floor must be > 0")
	}
	if p.DisplayThreshold < 0 {
		return errors.New("market.display_threshold must be >= 0")
	}
	return nil
}

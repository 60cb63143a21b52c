// agriflow - a simulated agricultural commodity desk
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zappabad/agriflow/internal/config"
	"github.com/zappabad/agriflow/internal/desk"
	"github.com/zappabad/agriflow/internal/kv"
	"github.com/zappabad/agriflow/internal/logging"
)

var (
	version    = "0.1.0"
	configPath string
	logLevel   string
	storeKind  string
	seed       int64
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "agriflow",
		Short: "Simulated agricultural commodity desk",
		Long: `agriflow simulates prices for a catalog of agricultural commodities,
persists them between runs, and serves them over a terminal dashboard
or an HTTP API.`,
		SilenceUsage: true,
		RunE:         runTUI,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "agriflow.yaml", "Config file (optional)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&storeKind, "store", "", "Storage backend: memory, file, sqlite, postgres")
	root.PersistentFlags().Int64Var(&seed, "seed", 0, "Seed for a reproducible price walk")

	root.AddCommand(tuiCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(refreshCmd())
	root.AddCommand(pricesCmd())
	root.AddCommand(weatherCmd())
	root.AddCommand(projectCmd())
	root.AddCommand(briefCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(importCmd())
	root.AddCommand(resetCmd())
	root.AddCommand(versionCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agriflow version %s\n", version)
		},
	}
}

// app bundles what every command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	desk   *desk.Desk
}

// loadConfig reads the config file and applies the persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadOptional(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if storeKind != "" {
		cfg.Storage.Backend = storeKind
	}
	if cmd.Flags().Changed("seed") {
		cfg.Market.Seed = seed
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	if cfg.Storage.Backend == kv.KindFile || cfg.Storage.Backend == kv.KindSQLite {
		if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
			_ = logger.Sync()
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	backend, err := kv.Open(ctx, cfg.Storage.Config)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}
	store := kv.NewStore(backend, logger, kv.WithMaxValueBytes(cfg.Storage.MaxValueBytes))

	logger.Debug("desk opened",
		zap.String("store", cfg.Storage.Backend),
		zap.Int64("seed", cfg.Market.Seed),
		zap.Bool("advisor", cfg.Advisor.Enabled()))

	return &app{
		cfg:    cfg,
		logger: logger,
		desk:   desk.New(ctx, desk.FromConfig(cfg), store, logger),
	}, nil
}

// withApp loads the configuration, opens the desk, and closes it after fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return runApp(cmd.Context(), cfg, fn)
}

func runApp(ctx context.Context, cfg *config.Config, fn func(ctx context.Context, a *app) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		a.desk.Close()
		_ = a.logger.Sync()
	}()
	return fn(ctx, a)
}

// logFile returns where the dashboard logs go so they do not tear the screen.
func logFile(cfg *config.Config) string {
	dir := cfg.Storage.Dir
	if dir == "" {
		dir = config.DefaultDataDir
	}
	return filepath.Join(dir, "agriflow.log")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zappabad/agriflow/internal/api"
	"github.com/zappabad/agriflow/internal/market"
	"github.com/zappabad/agriflow/internal/weather"
	"github.com/zappabad/agriflow/tui"
	"github.com/zappabad/agriflow/tui/styles"
)

func tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal dashboard (default)",
		RunE:  runTUI,
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(cfg.Log.OutputPaths) == 0 {
		if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		cfg.Log.OutputPaths = []string{logFile(cfg)}
	}

	return runApp(cmd.Context(), cfg, func(ctx context.Context, a *app) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		runErr := make(chan error, 1)
		go func() { runErr <- a.desk.Run(ctx) }()

		p := tea.NewProgram(tui.NewModel(a.desk), tea.WithAltScreen())
		_, err := p.Run()

		cancel()
		if rerr := <-runErr; rerr != nil {
			a.logger.Warn("desk stopped", zap.Error(rerr))
		}
		if err != nil {
			return fmt.Errorf("run TUI: %w", err)
		}
		return nil
	})
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve prices, news and weather over HTTP and websocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runApp(ctx, cfg, func(ctx context.Context, a *app) error {
				apiCfg := api.DefaultConfig()
				apiCfg.Addr = cfg.Server.Addr
				apiCfg.PingInterval = cfg.Server.PingInterval
				apiCfg.WriteTimeout = cfg.Server.WriteTimeout

				srv := api.NewServer(apiCfg, a.desk, a.logger)
				a.desk.OnRefresh(srv.Publish)

				g, ctx := errgroup.WithContext(ctx)
				g.Go(func() error { return a.desk.Run(ctx) })
				g.Go(func() error { return srv.ListenAndServe(ctx) })
				return g.Wait()
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func refreshCmd() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Advance the market and print the new prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			if n < 1 {
				return fmt.Errorf("refresh count must be positive, got %d", n)
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				var prices []market.Instrument
				for i := 0; i < n; i++ {
					var err error
					if prices, err = a.desk.Refresh(ctx); err != nil {
						return err
					}
				}
				printPrices(cmd.OutOrStdout(), prices, a.desk.Regimes(ctx))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&n, "count", "n", 1, "Number of refreshes")
	return cmd
}

func pricesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prices",
		Short: "Print the stored prices without advancing the market",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				printPrices(cmd.OutOrStdout(), a.desk.Prices(ctx), a.desk.Regimes(ctx))
				return nil
			})
		},
	}
}

func printPrices(w io.Writer, prices []market.Instrument, regimes market.Regimes) {
	fmt.Fprintln(w, styles.HeaderStyle.Render(fmt.Sprintf("%-20s %10s %-11s %8s  %-6s", "Crop", "Price", "Unit", "Chg%", "Regime")))
	for _, p := range prices {
		regime := "-"
		if rec, ok := regimes[p.Name]; ok && rec.Direction.Valid() {
			regime = fmt.Sprintf("%s %d", rec.Direction, rec.Duration)
		}
		change := styles.ChangeStyle(p.ChangePercentage).Render(fmt.Sprintf("%+7.2f%%", p.ChangePercentage))
		fmt.Fprintf(w, "%-20s %10s %-11s %s  %-6s\n", p.Name, styles.FormatPrice(p.Price), p.Unit, change, regime)
	}
}

func weatherCmd() *cobra.Command {
	var lat, lon float64

	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Print the weather report for the farm or a coordinate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				var (
					r   weather.Report
					err error
				)
				if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
					r, err = a.desk.LookupWeather(ctx, lat, lon)
				} else {
					r, err = a.desk.Conditions(ctx)
				}
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, styles.LabelStyle.Render(r.LocationName))
				fmt.Fprintf(out, "%s, %.0f°C, humidity %.0f%%, wind %.0f km/h\n", r.Condition, r.Temp, r.Humidity, r.WindSpeed)
				fmt.Fprintf(out, "Climate risk: %s\n", r.Risk)
				fmt.Fprintln(out, r.Forecast)
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude")
	return cmd
}

func projectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "project",
		Short: "Value the configured plots at current prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				s, err := a.desk.Projection(ctx)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, styles.HeaderStyle.Render(fmt.Sprintf("%-10s %-20s %7s %10s %10s %10s", "Plot", "Crop", "Acres", "Revenue", "Inputs", "Margin")))
				for _, l := range s.Lines {
					crop := l.Instrument
					if crop == "" {
						crop = "(unpriced)"
					}
					fmt.Fprintf(out, "%-10s %-20s %7.1f %10.0f %10.0f %10.0f\n",
						l.Plot.Name, crop, l.Plot.Area, l.Revenue, l.InputCost, l.Margin)
				}
				fmt.Fprintf(out, "%-10s %-20s %7s %10.0f %10.0f %s\n", "Total", "", "", s.Revenue, s.InputCost,
					styles.ChangeStyle(s.Margin).Render(fmt.Sprintf("%10.0f", s.Margin)))
				return nil
			})
		},
	}
}

func briefCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "brief",
		Short: "Ask the advisor for a market brief",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				text, err := a.desk.Brief(ctx)
				if err != nil {
					return err
				}
				if raw {
					fmt.Fprintln(cmd.OutOrStdout(), text)
					return nil
				}

				r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
				if err != nil {
					return fmt.Errorf("create renderer: %w", err)
				}
				out, err := r.Render(text)
				if err != nil {
					return fmt.Errorf("render brief: %w", err)
				}
				fmt.Fprint(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print markdown without rendering")
	return cmd
}

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [FILE]",
		Short: "Write a JSON backup of the stored market state (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				data, err := a.desk.Export(ctx)
				if err != nil {
					return err
				}
				if len(args) == 0 || args[0] == "-" {
					_, err = cmd.OutOrStdout().Write(append(data, '\n'))
					return err
				}
				if err := os.WriteFile(args[0], data, 0o644); err != nil {
					return fmt.Errorf("write backup: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", args[0])
				return nil
			})
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Restore a backup written by export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}

			return withApp(cmd, func(ctx context.Context, a *app) error {
				keys, err := a.desk.Import(ctx, data)
				if err != nil {
					return err
				}
				if len(keys) == 0 {
					return errors.New("backup contained no market keys")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %v\n", keys)
				return nil
			})
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the stored market state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				n := a.desk.Reset(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d keys\n", n)
				return nil
			})
		},
	}
}

// Package api serves the desk over HTTP: JSON endpoints plus a websocket
// price stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/zappabad/agriflow/internal/logging"
	"github.com/zappabad/agriflow/internal/market"
	marketservice "github.com/zappabad/agriflow/internal/market/service"
	marketview "github.com/zappabad/agriflow/internal/market/view"
	"github.com/zappabad/agriflow/internal/news"
	"github.com/zappabad/agriflow/internal/projection"
	"github.com/zappabad/agriflow/internal/weather"
)

// Backend is the desk surface the API exposes.
type Backend interface {
	Refresh(ctx context.Context) ([]market.Instrument, error)
	Prices(ctx context.Context) []market.Instrument
	Regimes(ctx context.Context) market.Regimes
	Snapshot() marketview.MarketSnapshot
	Bulletins(n int) []news.Bulletin
	Conditions(ctx context.Context) (weather.Report, error)
	LookupWeather(ctx context.Context, lat, lon float64) (weather.Report, error)
	Projection(ctx context.Context) (projection.Summary, error)
}

// Server routes HTTP requests to a Backend.
type Server struct {
	cfg     Config
	backend Backend
	hub     *Hub
	logger  *zap.Logger
	mux     *http.ServeMux
}

// NewServer creates a Server.
func NewServer(cfg Config, backend Backend, logger *zap.Logger) *Server {
	cfg = cfg.withDefaults()
	logger = logging.OrNop(logger)

	s := &Server{
		cfg:     cfg,
		backend: backend,
		hub:     NewHub(cfg, logger),
		logger:  logger.Named("api"),
		mux:     http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/prices", s.handlePrices)
	s.mux.HandleFunc("POST /api/prices/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /api/regimes", s.handleRegimes)
	s.mux.HandleFunc("GET /api/news", s.handleNews)
	s.mux.HandleFunc("GET /api/weather", s.handleWeather)
	s.mux.HandleFunc("GET /api/projection", s.handleProjection)
	s.mux.HandleFunc("GET /ws", s.handleWS)

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Publish pushes a refresh to websocket subscribers. Its signature matches
// desk.Listener.
func (s *Server) Publish(ev marketview.RefreshEvent, bulletins []news.Bulletin) {
	s.hub.Broadcast(refreshMessage(ev, bulletins))
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"clients": s.hub.Clients(),
	})
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Prices(r.Context()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	prices, err := s.backend.Refresh(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, marketservice.ErrClosed) || errors.Is(err, context.Canceled) {
			status = http.StatusServiceUnavailable
		}
		s.writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

func (s *Server) handleRegimes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Regimes(r.Context()))
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	n := s.cfg.NewsLimit
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("n must be a positive integer"))
			return
		}
		n = min(v, s.cfg.NewsLimit)
	}

	items := s.backend.Bulletins(n)
	if items == nil {
		items = []news.Bulletin{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("lat") == "" && q.Get("lon") == "" {
		report, err := s.backend.Conditions(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
		return
	}

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid lat: %q", q.Get("lat")))
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid lon: %q", q.Get("lon")))
		return
	}

	report, err := s.backend.LookupWeather(r.Context(), lat, lon)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	summary, err := s.backend.Projection(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	var initial *StreamMessage
	if snap := s.backend.Snapshot(); !snap.Empty() {
		initial = &StreamMessage{
			Type:    MessageSnapshot,
			Seq:     snap.Seq,
			Time:    snap.Time,
			Prices:  snap.Prices,
			Regimes: snap.Regimes,
		}
	}
	s.hub.ServeWS(w, r, initial)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

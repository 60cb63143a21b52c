package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/agriflow/internal/desk"
	"github.com/zappabad/agriflow/internal/kv"
	"github.com/zappabad/agriflow/internal/market"
	marketview "github.com/zappabad/agriflow/internal/market/view"
	"github.com/zappabad/agriflow/internal/news"
	"github.com/zappabad/agriflow/internal/projection"
	"github.com/zappabad/agriflow/internal/weather"
)

func newTestServer(t *testing.T) (*Server, *desk.Desk, *httptest.Server) {
	t.Helper()
	cfg := desk.DefaultConfig()
	cfg.Seed = 21
	d := desk.New(context.Background(), cfg, kv.NewStore(kv.NewMemoryBackend(), nil), nil)

	srv := NewServer(Config{PingInterval: time.Second}, d, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Hub().Close()
		ts.Close()
		d.Close()
	})
	return srv, d, ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	_, _, ts := newTestServer(t)

	var body map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestPricesAndRefresh(t *testing.T) {
	_, _, ts := newTestServer(t)

	var prices []market.Instrument
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/prices", &prices))
	assert.Equal(t, market.DefaultCatalog(), prices)

	resp, err := http.Post(ts.URL+"/api/prices/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var refreshed []market.Instrument
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&refreshed))
	assert.Len(t, refreshed, len(market.DefaultCatalog()))

	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/prices", &prices))
	assert.Equal(t, refreshed, prices)

	var regimes market.Regimes
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/regimes", &regimes))
	assert.Len(t, regimes, len(market.DefaultCatalog()))
}

func TestRefreshRequiresPost(t *testing.T) {
	_, _, ts := newTestServer(t)
	assert.Equal(t, http.StatusMethodNotAllowed, getJSON(t, ts.URL+"/api/prices/refresh", nil))
}

func TestRefreshAfterClose(t *testing.T) {
	_, d, ts := newTestServer(t)
	d.Market.Close()

	resp, err := http.Post(ts.URL+"/api/prices/refresh", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, "closed")
}

func TestNews(t *testing.T) {
	_, d, ts := newTestServer(t)

	var items []news.Bulletin
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/news", &items))
	assert.Empty(t, items)

	d.News.Publish(news.Bulletin{Headline: "Cocoa rallies"})
	assert.Eventually(t, func() bool { return len(d.Bulletins(5)) == 1 }, time.Second, 5*time.Millisecond)

	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/news?n=5", &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Cocoa rallies", items[0].Headline)

	var body errorBody
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/news?n=zero", &body))
	assert.NotEmpty(t, body.Error)
}

func TestWeather(t *testing.T) {
	_, _, ts := newTestServer(t)

	var report weather.Report
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/weather?lat=14&lon=0", &report))
	assert.Equal(t, "Heat Wave", report.Condition)

	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/weather", &report))
	assert.Equal(t, "Field Sector -1.29", report.LocationName)

	var body errorBody
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/weather?lat=abc&lon=1", &body))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, ts.URL+"/api/weather?lat=95&lon=1", &body))
}

func TestProjection(t *testing.T) {
	_, _, ts := newTestServer(t)

	var summary projection.Summary
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/projection", &summary))
	assert.Len(t, summary.Lines, 3)
	assert.Equal(t, summary.Revenue-summary.InputCost, summary.Margin)
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func TestWebsocketStream(t *testing.T) {
	srv, d, ts := newTestServer(t)
	d.OnRefresh(srv.Publish)

	var fanned atomic.Int64
	d.OnRefresh(func(marketview.RefreshEvent, []news.Bulletin) { fanned.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	_, err := d.Refresh(context.Background())
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return fanned.Load() == 1 }, time.Second, 5*time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var snap StreamMessage
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, MessageSnapshot, snap.Type)
	assert.Equal(t, int64(1), snap.Seq)

	assert.Eventually(t, func() bool { return srv.Hub().Clients() == 1 }, time.Second, 5*time.Millisecond)

	_, err = d.Refresh(context.Background())
	require.NoError(t, err)

	var msg StreamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageRefresh, msg.Type)
	assert.Equal(t, int64(2), msg.Seq)
	assert.Len(t, msg.Prices, len(market.DefaultCatalog()))
	assert.Len(t, msg.Regimes, len(market.DefaultCatalog()))
}

func TestWebsocketSnapshotBeforeFirstRefresh(t *testing.T) {
	_, d, ts := newTestServer(t)
	require.Len(t, d.Prices(context.Background()), len(market.DefaultCatalog()))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var snap StreamMessage
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, MessageSnapshot, snap.Type)
	assert.Equal(t, int64(0), snap.Seq)
	assert.Len(t, snap.Prices, len(market.DefaultCatalog()))
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	srv, _, ts := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Eventually(t, func() bool { return srv.Hub().Clients() == 1 }, time.Second, 5*time.Millisecond)

	srv.Hub().Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Eventually(t, func() bool { return srv.Hub().Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig(), cfg)
}

package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/zappabad/agriflow/internal/market"
	marketview "github.com/zappabad/agriflow/internal/market/view"
	"github.com/zappabad/agriflow/internal/news"
)

func TestPublishAssignsIDAndTime(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewNewsService(DefaultConfig(), nil)
	defer s.Close()

	b := s.Publish(news.Bulletin{Headline: "Rains arrive early"})
	_, err := uuid.Parse(b.ID)
	require.NoError(t, err)
	assert.NotZero(t, b.Time)

	ev := <-s.Events()
	assert.Equal(t, b, ev.Item)

	assert.Eventually(t, func() bool { return len(s.Latest(10)) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, b, s.Latest(1)[0])
}

func TestPublishRefresh(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewNewsService(DefaultConfig(), nil)
	defer s.Close()

	ev := marketview.RefreshEvent{
		Seq:  1,
		Time: 1234,
		Prices: []market.Instrument{
			{Name: "Cocoa", Price: 3550, Unit: "per ton", Trend: market.TrendUp, ChangePercentage: 4.4},
		},
		Regimes: market.Regimes{"Cocoa": {Direction: market.DirectionUp, Duration: 3}},
		Rolled:  []string{"Cocoa"},
	}

	got := s.PublishRefresh(ev)
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.Equal(t, int64(1234), got[0].Time)

	assert.Eventually(t, func() bool { return len(s.Latest(10)) == 2 }, time.Second, 5*time.Millisecond)
}

func TestDropsWhenSubscriberIsSlow(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := DefaultConfig()
	cfg.ExternalEventBuffer = 1
	s := NewNewsService(cfg, nil)
	defer s.Close()

	for i := 0; i < 3; i++ {
		s.Publish(news.Bulletin{Headline: "tick"})
	}

	assert.Eventually(t, func() bool { return s.DroppedEvents() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, len(s.Latest(10)))
}

func TestCloseClosesEvents(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewNewsService(Config{}, nil)
	s.Close()
	s.Close()

	_, ok := <-s.Events()
	assert.False(t, ok)

	// Publishing after close does not block.
	s.Publish(news.Bulletin{Headline: "late"})
}

package news

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/agriflow/internal/market"
	marketview "github.com/zappabad/agriflow/internal/market/view"
)

func TestFromRefresh(t *testing.T) {
	ev := marketview.RefreshEvent{
		Seq: 4,
		Prices: []market.Instrument{
			{Name: "Maize", Price: 43.93, Unit: "per 90kg", Trend: market.TrendUp, ChangePercentage: 4.6},
			{Name: "Cotton", Price: 0.82, Unit: "per lb", Trend: market.TrendDown, ChangePercentage: -3.0},
			{Name: "Rice", Price: 18.6, Unit: "per cwt", Trend: market.TrendUp, ChangePercentage: 0.9},
		},
		Regimes: market.Regimes{
			"Maize":  {Direction: market.DirectionUp, Duration: 2},
			"Cotton": {Direction: market.DirectionDown, Duration: 1},
			"Rice":   {Direction: market.DirectionStable, Duration: 4},
		},
		Rolled: []string{"Rice"},
	}

	got := FromRefresh(ev, DefaultRules())
	require.Len(t, got, 3)

	assert.Equal(t, "Maize rallies 4.6% to 43.93 per 90kg", got[0].Headline)
	assert.Equal(t, 1, got[0].Severity)
	assert.Equal(t, "Maize", got[0].Instrument)

	assert.Equal(t, "Cotton slides 3.0% to 0.82 per lb", got[1].Headline)
	assert.Equal(t, 0, got[1].Severity)

	assert.Equal(t, "Rice settles into a sideways range for 5 sessions", got[2].Headline)
	assert.Empty(t, got[2].ID)
}

func TestFromRefreshQuietMarket(t *testing.T) {
	ev := marketview.RefreshEvent{
		Prices: []market.Instrument{{Name: "Wheat", Price: 58.2, Trend: market.TrendStable, ChangePercentage: 0.3}},
	}
	assert.Empty(t, FromRefresh(ev, DefaultRules()))
}

func TestRegimeHeadlines(t *testing.T) {
	assert.Contains(t, regimeHeadline("Cocoa", market.TrendRecord{Direction: market.DirectionUp, Duration: 6}), "bullish run seen for 7 sessions")
	assert.Contains(t, regimeHeadline("Cocoa", market.TrendRecord{Direction: market.DirectionDown, Duration: 2}), "bearish")
}

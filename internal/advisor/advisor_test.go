package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/agriflow/internal/market"
	"github.com/zappabad/agriflow/internal/projection"
	"github.com/zappabad/agriflow/internal/weather"
)

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	args := m.Called(ctx, model, prompt)
	return args.String(0), args.Error(1)
}

func sampleRequest() Request {
	w := weather.At(14, 0)
	summary, _ := projection.Summarize(projection.DefaultPlots(), market.DefaultCatalog())
	return Request{
		Prices:  market.DefaultCatalog(),
		Regimes: market.Regimes{"Maize": {Direction: market.DirectionDown, Duration: 2}},
		Weather: &w,
		Plots:   &summary,
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(sampleRequest())

	assert.Contains(t, p, "- Maize: 42.00 per 90kg (-5.4%, down), regime DOWN\n")
	assert.Contains(t, p, "- Cocoa: 3400.00 per ton (+4.2%, up)\n")
	assert.Contains(t, p, "Heat Wave")
	assert.Contains(t, p, "Planted fields:")
	assert.Contains(t, p, "- Wheat, 20.0 acres, soil Excellent, water High")
}

func TestBuildPromptWithoutExtras(t *testing.T) {
	p := BuildPrompt(Request{Prices: market.DefaultCatalog()[:1]})
	assert.NotContains(t, p, "Weather")
	assert.NotContains(t, p, "Planted fields")
}

func TestGenAIAdvisorBrief(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, "test-model", mock.MatchedBy(func(p string) bool {
		return len(p) > 0
	})).Return("```markdown\n## Sell cocoa\n- now\n```", nil)

	a := NewAdvisor(gen, Config{Model: "test-model", Timeout: time.Second}, nil)
	text, err := a.Brief(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, "## Sell cocoa\n- now", text)
	gen.AssertExpectations(t)
}

func TestGenAIAdvisorErrors(t *testing.T) {
	gen := new(mockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("quota")).Once()
	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("   ", nil).Once()

	a := NewAdvisor(gen, Config{}, nil)

	_, err := a.Brief(context.Background(), sampleRequest())
	assert.ErrorContains(t, err, "quota")

	_, err = a.Brief(context.Background(), sampleRequest())
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewGenAIAdvisorDisabled(t *testing.T) {
	_, err := NewGenAIAdvisor(context.Background(), Config{}, nil)
	assert.ErrorIs(t, err, ErrDisabled)
}

type failing struct{}

func (failing) Brief(context.Context, Request) (string, error) { return "", ErrDisabled }

func TestFallback(t *testing.T) {
	b := Fallback{Primary: failing{}, Secondary: Local{}}

	text, err := b.Brief(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Contains(t, text, "Strongest: **Coffee (Arabica)** +15.3%")
	assert.Contains(t, text, "Weakest: **Maize** -5.4%")
	assert.Contains(t, text, "Heat Wave")
}

func TestLocalEmpty(t *testing.T) {
	text, err := Local{}.Brief(context.Background(), Request{})
	require.NoError(t, err)
	assert.Contains(t, text, "No prices")
}

func TestCleanOutput(t *testing.T) {
	assert.Equal(t, "hello", CleanOutput("  hello \n"))
	assert.Equal(t, "body", CleanOutput("```\nbody\n```"))
	assert.Equal(t, "", CleanOutput("```"))
}

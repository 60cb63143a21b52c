package panels

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	marketview "github.com/zappabad/agriflow/internal/market/view"
	"github.com/zappabad/agriflow/tui/styles"
)

// Candle represents one refresh of an instrument: the move from the previous quote.
type Candle struct {
	Open  float64
	High  float64
	Low   float64
	Close float64
	Seq   int64
}

// CandlesFromTape turns consecutive price points into one candle per tick.
// The first point only opens the series.
func CandlesFromTape(points []marketview.PricePoint) []Candle {
	if len(points) < 2 {
		return nil
	}
	out := make([]Candle, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		open, closePrice := points[i-1].Price, points[i].Price
		out = append(out, Candle{
			Open:  open,
			High:  max(open, closePrice),
			Low:   min(open, closePrice),
			Close: closePrice,
			Seq:   points[i].Seq,
		})
	}
	return out
}

// ChartPanel displays the recent price path of the selected instrument.
type ChartPanel struct {
	name    string
	candles []Candle

	focused bool
	width   int
	height  int
}

// NewChartPanel creates a new chart panel.
func NewChartPanel() *ChartPanel {
	return &ChartPanel{}
}

// Init initializes the panel.
func (p *ChartPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *ChartPanel) Update(msg tea.Msg) (*ChartPanel, tea.Cmd) {
	return p, nil
}

// View renders the panel.
func (p *ChartPanel) View() string {
	name := "No crop"
	if p.name != "" {
		name = p.name
	}

	var content strings.Builder

	chartHeight := p.height - 6
	if chartHeight < 5 {
		chartHeight = 5
	}

	if len(p.candles) == 0 {
		content.WriteString(styles.MutedStyle.Render("Waiting for refreshes..."))
	} else {
		content.WriteString(p.renderChart(p.width-4, chartHeight))
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle(fmt.Sprintf("📉 Chart - %s", name), p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func (p *ChartPanel) renderChart(width, height int) string {
	// Reserve space: 9 chars for price axis, 1 for separator
	chartWidth := width - 10
	if chartWidth < 10 {
		chartWidth = 10
	}

	// Each candle takes its glyph plus a space
	candlesToShow := chartWidth / 2
	if candlesToShow < 1 {
		candlesToShow = 1
	}
	display := p.candles
	if len(display) > candlesToShow {
		display = display[len(display)-candlesToShow:]
	}

	minPrice, maxPrice := display[0].Low, display[0].High
	for _, c := range display {
		minPrice = min(minPrice, c.Low)
		maxPrice = max(maxPrice, c.High)
	}

	// Add padding to price range (10%)
	padding := (maxPrice - minPrice) * 0.1
	if padding == 0 {
		padding = maxPrice * 0.01
	}
	minPrice -= padding
	maxPrice += padding

	rows := height - 2
	if rows < 3 {
		rows = 3
	}

	var result strings.Builder

	// Top to bottom = high to low price
	for row := 0; row < rows; row++ {
		price := yToPrice(row, minPrice, maxPrice, rows)
		result.WriteString(styles.ChartAxisStyle.Render(fmt.Sprintf("%8s │", styles.FormatPrice(price))))

		for _, c := range display {
			style := styles.CandleUpStyle
			if c.Close < c.Open {
				style = styles.CandleDownStyle
			}
			result.WriteString(style.Render(string(candleChar(c, row, minPrice, maxPrice, rows))))
			result.WriteString(" ")
		}
		result.WriteString("\n")
	}

	result.WriteString(styles.ChartAxisStyle.Render("─────────┴"))
	for range display {
		result.WriteString(styles.ChartAxisStyle.Render("──"))
	}
	result.WriteString("\n")
	result.WriteString(styles.ChartLabelStyle.Render(
		fmt.Sprintf("          ticks %d-%d", display[0].Seq, display[len(display)-1].Seq)))

	return result.String()
}

// candleChar returns the glyph to draw for a candle at a given row.
func candleChar(c Candle, row int, minPrice, maxPrice float64, height int) rune {
	rowPrice := yToPrice(row, minPrice, maxPrice, height)

	// Continuous prices map onto discrete rows
	tolerance := (maxPrice - minPrice) / float64(height*2)

	if rowPrice <= c.High+tolerance && rowPrice >= c.Low-tolerance {
		return '┃'
	}
	return ' '
}

func yToPrice(y int, minPrice, maxPrice float64, height int) float64 {
	if height <= 1 {
		return minPrice
	}
	ratio := float64(y) / float64(height-1)
	return maxPrice - ratio*(maxPrice-minPrice)
}

// SetFocus sets the focus state of the panel.
func (p *ChartPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *ChartPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetSeries sets the instrument being charted and its price tape.
func (p *ChartPanel) SetSeries(name string, points []marketview.PricePoint) {
	p.name = name
	p.candles = CandlesFromTape(points)
}

// Name returns the charted instrument.
func (p *ChartPanel) Name() string {
	return p.name
}

package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/agriflow/internal/market"
	marketview "github.com/zappabad/agriflow/internal/market/view"
	"github.com/zappabad/agriflow/tui/styles"
)

// PricesPanel displays the current quote of every instrument.
type PricesPanel struct {
	prices        []market.Instrument
	regimes       market.Regimes
	seq           int64
	selectedIndex int
	focused       bool
	width         int
	height        int
}

// NewPricesPanel creates a new price board.
func NewPricesPanel() *PricesPanel {
	return &PricesPanel{}
}

// Init initializes the panel.
func (p *PricesPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *PricesPanel) Update(msg tea.Msg) (*PricesPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if p.selectedIndex > 0 {
				p.selectedIndex--
			}
		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if p.selectedIndex < len(p.prices)-1 {
				p.selectedIndex++
			}
		}
	}
	return p, nil
}

// View renders the panel.
func (p *PricesPanel) View() string {
	var content strings.Builder

	header := fmt.Sprintf("%-18s %9s %-11s %7s  %-10s", "Crop", "Price", "Unit", "Chg%", "Regime")
	content.WriteString(styles.HeaderStyle.Render(header))
	content.WriteString("\n")

	if len(p.prices) == 0 {
		content.WriteString(styles.MutedStyle.Render("No prices yet. Press r to refresh."))
	}

	for i, in := range p.prices {
		regime := "-"
		if rec, ok := p.regimes[in.Name]; ok {
			regime = fmt.Sprintf("%s %d", rec.Direction, rec.Duration)
		}

		name := in.Name
		if len(name) > 18 {
			name = name[:17] + "…"
		}
		change := styles.ChangeStyle(in.ChangePercentage).
			Render(fmt.Sprintf("%+6.1f%s", in.ChangePercentage, in.Trend.Arrow()))

		row := fmt.Sprintf("%-18s %9s %-11s %s  %-10s",
			name, styles.FormatPrice(in.Price), in.Unit, change, regime)

		style := styles.RowStyle
		if i == p.selectedIndex && p.focused {
			style = styles.SelectedRowStyle
		}
		content.WriteString(style.Render(row))
		if i < len(p.prices)-1 {
			content.WriteString("\n")
		}
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := fmt.Sprintf("🌾 Market Prices · tick %d", p.seq)
	panel := lipgloss.JoinVertical(lipgloss.Left, styles.RenderTitle(title, p.focused), content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetFocus sets the focus state of the panel.
func (p *PricesPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *PricesPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetSnapshot replaces the board with a market snapshot.
func (p *PricesPanel) SetSnapshot(snap marketview.MarketSnapshot) {
	p.prices = snap.Prices
	p.regimes = snap.Regimes
	p.seq = snap.Seq
	if p.selectedIndex >= len(p.prices) {
		p.selectedIndex = max(len(p.prices)-1, 0)
	}
}

// Selected returns the name of the selected instrument, or "" if the board is empty.
func (p *PricesPanel) Selected() string {
	if p.selectedIndex >= 0 && p.selectedIndex < len(p.prices) {
		return p.prices[p.selectedIndex].Name
	}
	return ""
}

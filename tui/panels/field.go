package panels

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/agriflow/internal/projection"
	"github.com/zappabad/agriflow/internal/weather"
	"github.com/zappabad/agriflow/tui/styles"
)

// FieldPanel shows local weather and the revenue projection of the farm's plots.
type FieldPanel struct {
	report  *weather.Report
	summary *projection.Summary
	err     string

	focused bool
	width   int
	height  int
}

// NewFieldPanel creates a new field panel.
func NewFieldPanel() *FieldPanel {
	return &FieldPanel{}
}

// Init initializes the panel.
func (p *FieldPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *FieldPanel) Update(msg tea.Msg) (*FieldPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case FieldMsg:
		p.report = msg.Report
		p.summary = msg.Summary
		p.err = ""
		if msg.Err != nil {
			p.err = msg.Err.Error()
		}
	}
	return p, nil
}

// View renders the panel.
func (p *FieldPanel) View() string {
	var content strings.Builder

	if r := p.report; r != nil {
		content.WriteString(styles.LabelStyle.Render(r.LocationName))
		content.WriteString("\n")
		fmt.Fprintf(&content, "%s  %.0f°C  💧%.0f%%  🌬 %.0f km/h\n", r.Condition, r.Temp, r.Humidity, r.WindSpeed)
		content.WriteString("Risk: " + riskStyle(r.Risk).Render(string(r.Risk)) + "\n")
		content.WriteString(styles.MutedStyle.Render(r.Forecast))
		content.WriteString("\n\n")
	} else {
		content.WriteString(styles.MutedStyle.Render("Loading weather...\n\n"))
	}

	if s := p.summary; s != nil {
		content.WriteString(styles.HeaderStyle.Render(fmt.Sprintf("%-10s %7s %10s %10s", "Plot", "Acres", "Revenue", "Margin")))
		content.WriteString("\n")
		for _, l := range s.Lines {
			margin := styles.ChangeStyle(l.Margin).Render(fmt.Sprintf("%10.0f", l.Margin))
			fmt.Fprintf(&content, "%-10s %7.1f %10.0f %s\n", l.Plot.Name, l.Plot.Area, l.Revenue, margin)
		}
		total := styles.ChangeStyle(s.Margin).Render(fmt.Sprintf("%10.0f", s.Margin))
		fmt.Fprintf(&content, "%-10s %7s %10.0f %s", "Total", "", s.Revenue, total)
	}

	if p.err != "" {
		content.WriteString("\n")
		content.WriteString(styles.PriceDownStyle.Render(p.err))
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("🌦 Field", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func riskStyle(r weather.Risk) lipgloss.Style {
	switch r {
	case weather.RiskLow:
		return styles.RiskLowStyle
	case weather.RiskModerate:
		return styles.RiskModerateStyle
	}
	return styles.RiskHighStyle
}

// SetFocus sets the focus state of the panel.
func (p *FieldPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *FieldPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// FieldMsg carries a weather report and projection.
type FieldMsg struct {
	Report  *weather.Report
	Summary *projection.Summary
	Err     error
}

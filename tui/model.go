package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/agriflow/internal/desk"
	"github.com/zappabad/agriflow/tui/panels"
	"github.com/zappabad/agriflow/tui/styles"
)

// PanelFocus represents which panel is currently focused.
type PanelFocus int

const (
	FocusPrices    PanelFocus = 0
	FocusChart     PanelFocus = 1
	FocusBulletins PanelFocus = 2
	FocusField     PanelFocus = 3

	panelCount = 4
)

// chartPoints is how many ticks of history the chart asks for.
const chartPoints = 60

// Model is the main TUI application model.
type Model struct {
	desk *desk.Desk

	// Panels
	pricesPanel    *panels.PricesPanel
	chartPanel     *panels.ChartPanel
	bulletinsPanel *panels.BulletinsPanel
	fieldPanel     *panels.FieldPanel
	brief          *panels.BriefOverlay

	// Focus management
	focusedPanel PanelFocus

	keys keyMap
	help help.Model

	// Window dimensions
	width  int
	height int

	// Status
	statusMsg  string
	refreshing bool
	ready      bool
}

// bulletinBacklog is how many past bulletins the dashboard opens with.
const bulletinBacklog = 50

// NewModel creates a new TUI model over d. The caller runs d.
func NewModel(d *desk.Desk) *Model {
	m := &Model{
		desk:           d,
		pricesPanel:    panels.NewPricesPanel(),
		chartPanel:     panels.NewChartPanel(),
		bulletinsPanel: panels.NewBulletinsPanel(),
		fieldPanel:     panels.NewFieldPanel(),
		brief:          panels.NewBriefOverlay(),
		focusedPanel:   FocusPrices,
		keys:           defaultKeyMap(),
		help:           help.New(),
	}
	m.bulletinsPanel.SetItems(d.Bulletins(bulletinBacklog))
	return m
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.pricesPanel.Init(),
		m.chartPanel.Init(),
		m.bulletinsPanel.Init(),
		m.fieldPanel.Init(),
		m.brief.Init(),
		m.loadPrices(),
		m.loadField(),
		m.listenBulletins(),
		m.tickRefresh(),
	)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.brief.Visible() {
			switch {
			case msg.String() == "ctrl+c":
				return m, tea.Quit
			case key.Matches(msg, m.keys.Close, m.keys.Brief, m.keys.Quit):
				m.brief.Hide()
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keys.Next):
			m.focusedPanel = (m.focusedPanel + 1) % panelCount

		case key.Matches(msg, m.keys.Prev):
			m.focusedPanel = (m.focusedPanel + panelCount - 1) % panelCount

		case key.Matches(msg, m.keys.Refresh):
			if !m.refreshing {
				m.refreshing = true
				m.statusMsg = "Refreshing prices..."
				cmds = append(cmds, m.refresh())
			}

		case key.Matches(msg, m.keys.Brief):
			cmds = append(cmds, m.brief.Start(), m.requestBrief())

		case key.Matches(msg, m.keys.Weather):
			cmds = append(cmds, m.loadField())
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case refreshResultMsg:
		m.refreshing = false
		if msg.err != nil {
			m.statusMsg = "❌ Refresh failed: " + msg.err.Error()
		} else {
			m.statusMsg = fmt.Sprintf("✓ Refreshed %d crops", msg.count)
			cmds = append(cmds, m.loadField())
		}
		m.updateMarketData()

	case panels.BulletinMsg:
		m.bulletinsPanel.Add(msg.Item)
		cmds = append(cmds, m.listenBulletins())

	case panels.BriefMsg:
		m.brief, _ = m.brief.Update(msg)

	case panels.FieldMsg:
		m.fieldPanel, _ = m.fieldPanel.Update(msg)

	case tickMsg:
		m.updateMarketData()
		cmds = append(cmds, m.tickRefresh())
	}

	if _, ok := msg.(tea.KeyMsg); !ok && m.brief.Loading() {
		var cmd tea.Cmd
		m.brief, cmd = m.brief.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	m.updateFocusedPanel(msg, &cmds)

	return m, tea.Batch(cmds...)
}

func (m *Model) updateFocusedPanel(msg tea.Msg, cmds *[]tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); !ok {
		return
	}

	var cmd tea.Cmd
	switch m.focusedPanel {
	case FocusPrices:
		m.pricesPanel, cmd = m.pricesPanel.Update(msg)
		if name := m.pricesPanel.Selected(); name != m.chartPanel.Name() {
			m.updateChart()
		}
	case FocusChart:
		m.chartPanel, cmd = m.chartPanel.Update(msg)
	case FocusBulletins:
		m.bulletinsPanel, cmd = m.bulletinsPanel.Update(msg)
	case FocusField:
		m.fieldPanel, cmd = m.fieldPanel.Update(msg)
	}

	if cmd != nil {
		*cmds = append(*cmds, cmd)
	}
}

// View renders the UI.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	if m.brief.Visible() {
		m.brief.SetSize(m.width, m.height-1)
		return lipgloss.JoinVertical(lipgloss.Left, m.brief.View(), m.renderStatusBar())
	}

	m.pricesPanel.SetFocus(m.focusedPanel == FocusPrices)
	m.chartPanel.SetFocus(m.focusedPanel == FocusChart)
	m.bulletinsPanel.SetFocus(m.focusedPanel == FocusBulletins)
	m.fieldPanel.SetFocus(m.focusedPanel == FocusField)

	// Layout:
	// ┌──────────────────────┬──────────────────┐
	// │    Market Prices     │      Chart       │
	// ├──────────────────────┼──────────────────┤
	// │      Bulletins       │      Field       │
	// └──────────────────────┴──────────────────┘

	leftWidth := m.width * 11 / 20
	rightWidth := m.width - leftWidth

	topHeight := (m.height - 1) * 3 / 5
	bottomHeight := m.height - 1 - topHeight

	m.pricesPanel.SetSize(leftWidth, topHeight)
	m.chartPanel.SetSize(rightWidth, topHeight)
	topRow := lipgloss.JoinHorizontal(lipgloss.Top, m.pricesPanel.View(), m.chartPanel.View())

	m.bulletinsPanel.SetSize(leftWidth, bottomHeight)
	m.fieldPanel.SetSize(rightWidth, bottomHeight)
	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top, m.bulletinsPanel.View(), m.fieldPanel.View())

	return lipgloss.JoinVertical(lipgloss.Left, topRow, bottomRow, m.renderStatusBar())
}

func (m *Model) renderStatusBar() string {
	m.help.Styles.ShortKey = styles.StatusBarKeyStyle
	m.help.Styles.ShortDesc = styles.StatusBarDescStyle
	m.help.Styles.ShortSeparator = styles.StatusBarDescStyle

	status := ""
	if m.statusMsg != "" {
		status = " │ " + m.statusMsg
	}

	return styles.StatusBarStyle.Width(m.width).Render(m.help.ShortHelpView(m.keys.ShortHelp()) + status)
}

func (m *Model) updateMarketData() {
	m.pricesPanel.SetSnapshot(m.desk.Snapshot())
	m.updateChart()
}

func (m *Model) updateChart() {
	name := m.pricesPanel.Selected()
	if name == "" {
		return
	}
	m.chartPanel.SetSeries(name, m.desk.Market.View().History(name, chartPoints))
}

func (m *Model) loadPrices() tea.Cmd {
	return func() tea.Msg {
		m.desk.Prices(context.Background())
		return tickMsg{}
	}
}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		prices, err := m.desk.Refresh(context.Background())
		return refreshResultMsg{count: len(prices), err: err}
	}
}

func (m *Model) requestBrief() tea.Cmd {
	return func() tea.Msg {
		text, err := m.desk.Brief(context.Background())
		return panels.BriefMsg{Text: text, Err: err}
	}
}

func (m *Model) loadField() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var msg panels.FieldMsg
		if r, err := m.desk.Conditions(ctx); err == nil {
			msg.Report = &r
		} else {
			msg.Err = err
		}
		if s, err := m.desk.Projection(ctx); err == nil {
			msg.Summary = &s
		} else {
			msg.Err = err
		}
		return msg
	}
}

func (m *Model) listenBulletins() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.desk.News.Events()
		if !ok {
			return nil
		}
		return panels.BulletinMsg{Item: ev.Item}
	}
}

// tickMsg is sent periodically to refresh data.
type tickMsg struct{}

func (m *Model) tickRefresh() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg{}
	})
}

// refreshResultMsg is sent after a manual refresh.
type refreshResultMsg struct {
	count int
	err   error
}

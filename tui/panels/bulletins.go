package panels

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/agriflow/internal/news"
	"github.com/zappabad/agriflow/tui/styles"
)

// BulletinsPanel displays market bulletins, newest last.
type BulletinsPanel struct {
	items         []news.Bulletin
	selectedIndex int
	scrollOffset  int
	focused       bool
	width         int
	height        int
	maxItems      int
}

// NewBulletinsPanel creates a new bulletins panel.
func NewBulletinsPanel() *BulletinsPanel {
	return &BulletinsPanel{
		maxItems: 50,
	}
}

// Init initializes the panel.
func (p *BulletinsPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *BulletinsPanel) Update(msg tea.Msg) (*BulletinsPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if p.selectedIndex > 0 {
				p.selectedIndex--
				if p.selectedIndex < p.scrollOffset {
					p.scrollOffset = p.selectedIndex
				}
			}
		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if p.selectedIndex < len(p.items)-1 {
				p.selectedIndex++
				visibleItems := p.height - 4
				if p.selectedIndex >= p.scrollOffset+visibleItems {
					p.scrollOffset = p.selectedIndex - visibleItems + 1
				}
			}
		}
	}
	return p, nil
}

// View renders the panel.
func (p *BulletinsPanel) View() string {
	var content strings.Builder

	if len(p.items) == 0 {
		content.WriteString(styles.MutedStyle.Render("Quiet market"))
	} else {
		visibleItems := p.height - 4
		if visibleItems < 1 {
			visibleItems = 1
		}

		start := p.scrollOffset
		end := min(start+visibleItems, len(p.items))

		for i := start; i < end; i++ {
			item := p.items[i]

			timeStr := time.Unix(0, item.Time).Format("15:04:05")

			headline := item.Headline
			if limit := p.width - 15; limit > 3 && len(headline) > limit {
				headline = headline[:limit-3] + "..."
			}

			headlineStyle := styles.NewsNormalStyle
			if item.Severity > 0 {
				headlineStyle = styles.NewsImportantStyle
			}

			line := fmt.Sprintf("%s %s", styles.TimeStyle.Render(timeStr), headlineStyle.Render(headline))
			if i == p.selectedIndex && p.focused {
				line = styles.SelectedRowStyle.Render(line)
			}

			content.WriteString(line)
			if i < end-1 {
				content.WriteString("\n")
			}
		}

		if len(p.items) > visibleItems {
			content.WriteString("\n")
			content.WriteString(styles.MutedStyle.Render(fmt.Sprintf(" (%d/%d)", p.selectedIndex+1, len(p.items))))
		}
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}

	title := styles.RenderTitle("📰 Bulletins", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())

	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetFocus sets the focus state of the panel.
func (p *BulletinsPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *BulletinsPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetItems replaces the bulletins.
func (p *BulletinsPanel) SetItems(items []news.Bulletin) {
	p.items = items
	if p.selectedIndex >= len(p.items) {
		p.selectedIndex = max(len(p.items)-1, 0)
	}
}

// Add appends a bulletin, keeping at most maxItems.
func (p *BulletinsPanel) Add(item news.Bulletin) {
	p.items = append(p.items, item)
	if len(p.items) > p.maxItems {
		p.items = p.items[len(p.items)-p.maxItems:]
	}
}

// Items returns the bulletins shown.
func (p *BulletinsPanel) Items() []news.Bulletin {
	return p.items
}

// BulletinMsg is sent when a bulletin is published.
type BulletinMsg struct {
	Item news.Bulletin
}

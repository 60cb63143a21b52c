package panels

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/zappabad/agriflow/tui/styles"
)

// BriefOverlay shows the advisor's market brief over the dashboard.
type BriefOverlay struct {
	spinner  spinner.Model
	visible  bool
	loading  bool
	markdown string
	rendered string
	err      error

	width  int
	height int
}

// NewBriefOverlay creates a hidden overlay.
func NewBriefOverlay() *BriefOverlay {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.AccentColor)
	return &BriefOverlay{spinner: sp}
}

// Init initializes the overlay.
func (o *BriefOverlay) Init() tea.Cmd {
	return nil
}

// Start shows the overlay in its loading state.
func (o *BriefOverlay) Start() tea.Cmd {
	o.visible = true
	o.loading = true
	o.markdown = ""
	o.rendered = ""
	o.err = nil
	return o.spinner.Tick
}

// Update handles messages for the overlay.
func (o *BriefOverlay) Update(msg tea.Msg) (*BriefOverlay, tea.Cmd) {
	switch msg := msg.(type) {
	case BriefMsg:
		o.loading = false
		o.err = msg.Err
		o.markdown = msg.Text
		o.rendered = o.render(msg.Text)
	case spinner.TickMsg:
		if !o.loading {
			return o, nil
		}
		var cmd tea.Cmd
		o.spinner, cmd = o.spinner.Update(msg)
		return o, cmd
	}
	return o, nil
}

func (o *BriefOverlay) render(md string) string {
	wrap := o.width - 8
	if wrap < 20 {
		wrap = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

// View renders the overlay.
func (o *BriefOverlay) View() string {
	var body string
	switch {
	case o.loading:
		body = o.spinner.View() + " Asking the advisor..."
	case o.err != nil:
		body = styles.PriceDownStyle.Render("Brief failed: " + o.err.Error())
	default:
		body = o.rendered
	}

	title := styles.RenderTitle("🧑‍🌾 Market Brief", true)
	hint := styles.MutedStyle.Render("esc to close")
	panel := lipgloss.JoinVertical(lipgloss.Left, title, body, hint)

	return styles.OverlayStyle.Width(o.width - 4).MaxHeight(o.height).Render(panel)
}

// Hide closes the overlay.
func (o *BriefOverlay) Hide() {
	o.visible = false
	o.loading = false
}

// Visible reports whether the overlay is shown.
func (o *BriefOverlay) Visible() bool {
	return o.visible
}

// Loading reports whether a brief is in flight.
func (o *BriefOverlay) Loading() bool {
	return o.loading
}

// Markdown returns the raw brief.
func (o *BriefOverlay) Markdown() string {
	return o.markdown
}

// SetSize sets the overlay dimensions.
func (o *BriefOverlay) SetSize(width, height int) {
	o.width = width
	o.height = height
}

// BriefMsg carries the result of a brief request.
type BriefMsg struct {
	Text string
	Err  error
}

package views

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/paulmach/orb"

	"github.com/rendis/geofind/internal/search"
	"github.com/rendis/geofind/internal/tui/components"
	"github.com/rendis/geofind/internal/tui/styles"
)

const (
	panelTitle    = "More About Country"
	panelEmpty    = "Select A Country First"
	noResultsText = "No country found."
	maxListed     = 10
)

// SnapshotMsg carries a search state change published by the controller.
type SnapshotMsg struct {
	Snapshot search.Snapshot
}

// SelectedMsg is emitted once per new Selection.
type SelectedMsg struct {
	Selection search.Selection
	Query     string
}

type frameMsg time.Time

func frameTick() tea.Cmd {
	return tea.Tick(time.Second/components.FrameRate, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// ListenUpdates waits for the next snapshot on ch.
func ListenUpdates(ch <-chan search.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

// SearchModel is the country view: combobox, info panel and map.
type SearchModel struct {
	ctrl    *search.Controller
	mapView *components.MapView

	input   textinput.Model
	spinner spinner.Model
	snap    search.Snapshot
	cursor  int
	ticking bool

	width  int
	height int
}

func NewSearchModel(ctrl *search.Controller, mapView *components.MapView) SearchModel {
	ti := textinput.New()
	ti.Placeholder = "Search Country..."
	ti.CharLimit = 60
	ti.Width = 26

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Secondary)

	return SearchModel{
		ctrl:    ctrl,
		mapView: mapView,
		input:   ti,
		spinner: sp,
		snap:    ctrl.Snapshot(),
	}
}

func (m SearchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Prefill types query into the search box, as if the user had.
func (m *SearchModel) Prefill(query string) tea.Cmd {
	m.input.SetValue(query)
	m.input.CursorEnd()
	m.ctrl.Input(query)
	m.apply(m.ctrl.SetPopover(true))
	m.cursor = 0
	return m.input.Focus()
}

func (m SearchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeMap()
		return m, nil
	case SnapshotMsg:
		m.apply(msg.Snapshot)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case frameMsg:
		if m.mapView.Step() {
			return m, frameTick()
		}
		m.ticking = false
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m SearchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "tab" {
		m.apply(m.ctrl.TogglePanel())
		return m, nil
	}

	if m.snap.PopoverOpen {
		switch key {
		case "esc":
			m.input.Blur()
			m.apply(m.ctrl.SetPopover(false))
			return m, nil
		case "up":
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case "down":
			if m.cursor < m.listed()-1 {
				m.cursor++
			}
			return m, nil
		case "enter":
			cmd := m.pick()
			return m, cmd
		}

		prev := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if v := m.input.Value(); v != prev {
			m.cursor = 0
			m.apply(m.ctrl.Input(v))
		}
		return m, cmd
	}

	switch key {
	case "esc", "q":
		return m, func() tea.Msg { return NavigateToHome{} }
	case "/", "enter":
		m.apply(m.ctrl.SetPopover(true))
		cmd := m.input.Focus()
		return m, cmd
	case "+", "=":
		m.mapView.ZoomIn()
	case "-":
		m.mapView.ZoomOut()
	case "up", "k":
		m.mapView.Pan(1, 0)
	case "down", "j":
		m.mapView.Pan(-1, 0)
	case "left", "h":
		m.mapView.Pan(0, -1)
	case "right", "l":
		m.mapView.Pan(0, 1)
	case "t":
		if m.mapView.Style() == components.StyleStandard {
			m.mapView.SetStyle(components.StyleMono)
		} else {
			m.mapView.SetStyle(components.StyleStandard)
		}
		return m, nil
	default:
		return m, nil
	}
	cmd := m.startFrames()
	return m, cmd
}

// pick hands the highlighted entry to the selection resolver.
func (m *SearchModel) pick() tea.Cmd {
	// while loading the list is hidden and Results belong to the old query
	if m.snap.Loading || m.listed() == 0 {
		return nil
	}
	name := m.snap.Results[m.cursor].CommonName
	before := m.snap.Selection

	m.input.Blur()
	m.apply(m.ctrl.Select(name))

	cmds := []tea.Cmd{m.startFrames()}
	if sel := m.snap.Selection; sel != nil && (before == nil || before.Rev != sel.Rev) {
		selected := SelectedMsg{Selection: *sel, Query: m.snap.Query}
		cmds = append(cmds, func() tea.Msg { return selected })
	}
	return tea.Batch(cmds...)
}

func (m *SearchModel) startFrames() tea.Cmd {
	if m.ticking || !m.mapView.Animating() {
		return nil
	}
	m.ticking = true
	return frameTick()
}

func (m *SearchModel) apply(snap search.Snapshot) {
	m.snap = snap
	if m.cursor >= m.listed() {
		m.cursor = max(m.listed()-1, 0)
	}

	var markers []orb.Point
	for _, c := range snap.Results {
		if c.HasCoords {
			markers = append(markers, c.Point())
		}
	}
	m.mapView.SetMarkers(markers)

	if snap.Selection != nil && snap.Selection.Country.HasCoords {
		p := snap.Selection.Country.Point()
		m.mapView.SetSelected(&p)
	} else {
		m.mapView.SetSelected(nil)
	}
}

func (m SearchModel) listed() int {
	return min(len(m.snap.Results), maxListed)
}

func (m *SearchModel) resizeMap() {
	w := m.width - lipgloss.Width(styles.Panel.Render("")) - 6
	h := m.height - 8
	m.mapView.SetSize(max(w, 20), max(h, 6))
}

// InfoPanelLines returns the plain content lines of the info panel.
func InfoPanelLines(sel *search.Selection) []string {
	if sel == nil {
		return []string{panelEmpty}
	}
	c := sel.Country
	lines := []string{c.CommonName}
	if c.OfficialName != "" && c.OfficialName != c.CommonName {
		lines = append(lines, c.OfficialName)
	}
	lines = append(lines,
		"Capital : "+c.Capital,
		"Continent : "+c.Region,
		"Population : "+humanize.Comma(c.Population),
	)
	if c.HasCoords {
		lines = append(lines,
			"latitude : "+formatCoord(c.Lat()),
			"longitude : "+formatCoord(c.Lng()),
		)
	}
	if c.FlagSVG != "" {
		lines = append(lines, "Flag : "+c.FlagSVG)
	}
	return lines
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (m SearchModel) View() string {
	left := lipgloss.JoinVertical(lipgloss.Left,
		styles.Title.Render("geofind"),
		m.viewTrigger(),
		m.viewPopover(),
	)
	top := lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", m.viewPanel())

	var b strings.Builder
	b.WriteString(top)
	b.WriteString("\n")
	b.WriteString(m.mapView.View())
	b.WriteString("\n")

	var status string
	if m.snap.PopoverOpen {
		status = "type to search • ↑↓ choose • enter select • esc close • tab panel"
	} else {
		status = "/ search • ←→↑↓ pan • +/- zoom • t style • tab panel • esc back"
	}
	b.WriteString(styles.StatusBar.Render(m.mapView.Status() + "  " + status))
	return b.String()
}

func (m SearchModel) viewTrigger() string {
	text := m.snap.Trigger
	style := styles.Value
	if m.snap.Label == "" || text != m.snap.Label {
		style = styles.Placeholder
	}
	return styles.Trigger.Render(style.Render(text) + " " + styles.InactiveItem.Render("⇅"))
}

func (m SearchModel) viewPopover() string {
	if !m.snap.PopoverOpen {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.input.View())
	b.WriteString("\n")

	switch {
	case m.snap.Loading:
		b.WriteString(m.spinner.View() + styles.InactiveItem.Render(" searching..."))
	case len(m.snap.Results) == 0:
		b.WriteString(styles.Placeholder.Render(noResultsText))
	default:
		for i := 0; i < m.listed(); i++ {
			c := m.snap.Results[i]
			cursor := "  "
			style := styles.InactiveItem
			if i == m.cursor {
				cursor = "> "
				style = styles.ActiveItem
			}
			check := " "
			if c.CommonName == m.snap.Label {
				check = lipgloss.NewStyle().Foreground(styles.Success).Render("✓")
			}
			b.WriteString(fmt.Sprintf("%s%s %s", cursor, style.Render(c.CommonName), check))
			if i < m.listed()-1 {
				b.WriteString("\n")
			}
		}
		if more := len(m.snap.Results) - m.listed(); more > 0 {
			b.WriteString("\n" + styles.InactiveItem.Render(fmt.Sprintf("  +%d more", more)))
		}
	}
	return styles.Popover.Render(b.String())
}

func (m SearchModel) viewPanel() string {
	arrow := "▸"
	if m.snap.PanelOpen {
		arrow = "▾"
	}
	header := styles.ActiveItem.Render(arrow + " " + panelTitle)
	if !m.snap.PanelOpen {
		return styles.Panel.Render(header)
	}

	lines := InfoPanelLines(m.snap.Selection)
	var b strings.Builder
	b.WriteString(header + "\n\n")
	if m.snap.Selection == nil {
		b.WriteString(styles.Placeholder.Render(lines[0]))
		return styles.Panel.Render(b.String())
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(styles.Text).Render(lines[0]))
	for _, line := range lines[1:] {
		b.WriteString("\n")
		label, value, ok := strings.Cut(line, " : ")
		if !ok {
			b.WriteString(styles.InactiveItem.Render(line))
			continue
		}
		b.WriteString(styles.Label.Render(label) + styles.Value.Render(value))
	}
	return styles.Panel.Render(b.String())
}

package views

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rendis/geofind/internal/engine/storage"
	"github.com/rendis/geofind/internal/search"
	"github.com/rendis/geofind/internal/tui/styles"
)

const historyLimit = 500

// HistorySource lists past selections, newest first.
type HistorySource interface {
	Recent(ctx context.Context, limit int) ([]storage.Entry, error)
	Count(ctx context.Context) (int, error)
}

type historyFocus int

const (
	focusTable historyFocus = iota
	focusFilter
)

// HistoryModel lists past selections with a filter and a detail card.
type HistoryModel struct {
	source    HistorySource
	exportDir string

	total     int
	entries   []storage.Entry
	filtered  []storage.Entry
	table     table.Model
	filter    textinput.Model
	focus     historyFocus
	width     int
	height    int
	err       error
	loaded    bool
	exportMsg string
}

type historyLoadedMsg struct {
	total   int
	entries []storage.Entry
	err     error
}

func NewHistoryModel(source HistorySource, exportDir string) HistoryModel {
	filter := textinput.New()
	filter.Placeholder = "Type to filter..."
	filter.CharLimit = 50

	m := HistoryModel{
		source:    source,
		exportDir: exportDir,
		filter:    filter,
	}
	m.buildTable(nil)
	return m
}

func (m HistoryModel) Init() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		if source == nil {
			return historyLoadedMsg{err: fmt.Errorf("history is unavailable")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		total, err := source.Count(ctx)
		if err != nil {
			return historyLoadedMsg{err: err}
		}
		entries, err := source.Recent(ctx, historyLimit)
		return historyLoadedMsg{total: total, entries: entries, err: err}
	}
}

func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.buildTable(m.filtered)
		return m, nil

	case historyLoadedMsg:
		m.loaded = true
		m.err = msg.err
		m.total = msg.total
		m.entries = msg.entries
		m.filtered = msg.entries
		m.buildTable(m.filtered)
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		switch m.focus {
		case focusTable:
			switch key {
			case "esc", "q":
				return m, func() tea.Msg { return NavigateToHome{} }
			case "/", "tab":
				m.focus = focusFilter
				m.filter.Focus()
				m.table.Blur()
				return m, textinput.Blink
			case "e":
				m.exportCSV()
				return m, nil
			case "enter":
				e, ok := m.current()
				if !ok {
					return m, nil
				}
				query := e.Country.CommonName
				return m, func() tea.Msg { return NavigateToSearch{Query: query} }
			}
		case focusFilter:
			switch key {
			case "esc", "enter", "tab":
				m.focus = focusTable
				m.filter.Blur()
				m.table.Focus()
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusTable:
		m.table, cmd = m.table.Update(msg)
	case focusFilter:
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
	}
	return m, cmd
}

func (m HistoryModel) current() (storage.Entry, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.filtered) {
		return storage.Entry{}, false
	}
	return m.filtered[i], true
}

func (m *HistoryModel) buildTable(entries []storage.Entry) {
	nameW, capW, regionW, queryW, whenW := 22, 16, 10, 12, 14
	if m.width > 100 {
		extra := m.width - 100
		nameW += extra * 4 / 10
		capW += extra * 3 / 10
		queryW += extra * 3 / 10
	}

	columns := []table.Column{
		{Title: "Country", Width: nameW},
		{Title: "Capital", Width: capW},
		{Title: "Region", Width: regionW},
		{Title: "Query", Width: queryW},
		{Title: "When", Width: whenW},
	}

	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		rows[i] = table.Row{
			truncate(e.Country.CommonName, nameW),
			truncate(e.Country.Capital, capW),
			truncate(e.Country.Region, regionW),
			truncate(e.Query, queryW),
			humanize.Time(e.SelectedAt),
		}
	}

	height := m.height/2 - 4
	if height < 5 {
		height = 5
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(m.focus == focusTable),
		table.WithHeight(height),
	)
	t.SetStyles(tableStyles())
	m.table = t
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Secondary)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(styles.Primary).
		Bold(true)
	return s
}

// normalize removes accents and lowercases text for matching.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	result, _, _ := transform.String(t, strings.ToLower(s))
	return result
}

func filterEntries(entries []storage.Entry, raw string) []storage.Entry {
	words := strings.Fields(normalize(raw))
	if len(words) == 0 {
		return entries
	}
	var out []storage.Entry
	for _, e := range entries {
		haystack := normalize(strings.Join([]string{
			e.Country.CommonName, e.Country.OfficialName, e.Country.Capital,
			e.Country.Region, e.Query,
		}, " "))
		match := true
		for _, w := range words {
			if !strings.Contains(haystack, w) {
				match = false
				break
			}
		}
		if match {
			out = append(out, e)
		}
	}
	return out
}

func (m *HistoryModel) applyFilter() {
	m.filtered = filterEntries(m.entries, m.filter.Value())
	m.buildTable(m.filtered)
}

func (m *HistoryModel) exportCSV() {
	data := m.filtered
	if len(data) == 0 {
		m.exportMsg = "Nothing to export"
		return
	}
	if err := os.MkdirAll(m.exportDir, 0755); err != nil {
		m.exportMsg = fmt.Sprintf("Export error: %v", err)
		return
	}
	path := filepath.Join(m.exportDir, "history-"+time.Now().Format("20060102-150405")+".csv")

	f, err := os.Create(path)
	if err != nil {
		m.exportMsg = fmt.Sprintf("Export error: %v", err)
		return
	}
	defer f.Close()

	if err := storage.WriteCSV(f, data); err != nil {
		m.exportMsg = fmt.Sprintf("Export error: %v", err)
		return
	}
	m.exportMsg = fmt.Sprintf("Exported %d rows to %s", len(data), path)
}

func (m HistoryModel) View() string {
	if m.err != nil {
		return styles.ErrorText.Render(fmt.Sprintf("Error loading history: %v", m.err)) +
			"\n\n" + styles.StatusBar.Render("esc back")
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render(fmt.Sprintf("History: %s selections", humanize.Comma(int64(m.total)))))
	if m.total > len(m.entries) {
		b.WriteString(styles.InactiveItem.Render(fmt.Sprintf(" (latest %d loaded)", len(m.entries))))
	}
	if len(m.filtered) != len(m.entries) {
		b.WriteString(styles.InactiveItem.Render(fmt.Sprintf(" (showing %d)", len(m.filtered))))
	}
	b.WriteString("\n\n")

	filterStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	if m.focus == focusFilter {
		filterStyle = lipgloss.NewStyle().Foreground(styles.Primary)
	}
	b.WriteString(filterStyle.Render("Filter: "))
	b.WriteString(m.filter.View())
	b.WriteString("\n")

	switch {
	case !m.loaded:
		b.WriteString(styles.Placeholder.Render("Loading..."))
	case len(m.entries) == 0:
		b.WriteString(styles.Placeholder.Render("No countries selected yet."))
	default:
		b.WriteString(m.table.View())
		b.WriteString("\n\n")
		b.WriteString(m.viewCard())
	}
	b.WriteString("\n\n")

	if m.exportMsg != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Render(m.exportMsg))
		b.WriteString("\n")
	}

	var status string
	if m.focus == focusFilter {
		status = "type to filter • esc back"
	} else {
		status = "↑↓ navigate • enter search again • / filter • e export • esc back"
	}
	b.WriteString(styles.StatusBar.Render(status))
	return b.String()
}

func (m HistoryModel) viewCard() string {
	e, ok := m.current()
	if !ok {
		return styles.Placeholder.Render("No match")
	}
	lines := InfoPanelLines(&search.Selection{Country: e.Country})
	lines = append(lines, "", "Selected "+e.SelectedAt.Format("2006-01-02 15:04")+" from \""+e.Query+"\"")
	return styles.Panel.Render(strings.Join(lines, "\n"))
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}

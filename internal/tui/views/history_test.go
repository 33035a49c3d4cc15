package views

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/geofind/internal/engine/storage"
	"github.com/rendis/geofind/internal/model"
)

type stubHistory struct {
	total   int
	entries []storage.Entry
	err     error
}

func (s stubHistory) Recent(context.Context, int) ([]storage.Entry, error) {
	return s.entries, s.err
}

func (s stubHistory) Count(context.Context) (int, error) {
	if s.total == 0 {
		return len(s.entries), s.err
	}
	return s.total, s.err
}

func sampleEntries() []storage.Entry {
	now := time.Now()
	return []storage.Entry{
		{Query: "Cur", SelectedAt: now, Country: model.Country{CommonName: "Curaçao", Capital: "Willemstad", Region: "Americas"}},
		{Query: "Fra", SelectedAt: now.Add(-time.Hour), Country: france},
		{Query: "Ger", SelectedAt: now.Add(-2 * time.Hour), Country: model.Country{CommonName: "Germany", Capital: "Berlin", Region: "Europe"}},
	}
}

func loadHistory(t *testing.T, src HistorySource) HistoryModel {
	t.Helper()
	m := NewHistoryModel(src, t.TempDir())
	next, _ := m.Update(m.Init()())
	return next.(HistoryModel)
}

func sendHistory(m HistoryModel, msgs ...tea.Msg) (HistoryModel, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(HistoryModel)
	}
	return m, cmd
}

func TestHistoryListsEntries(t *testing.T) {
	m := loadHistory(t, stubHistory{entries: sampleEntries()})

	view := m.View()
	assert.Contains(t, view, "History: 3 selections")
	assert.Contains(t, view, "Curaçao")
	assert.Contains(t, view, "Willemstad")
	assert.NotContains(t, view, "loaded)")
}

func TestHistoryHeaderShowsStoreTotal(t *testing.T) {
	m := loadHistory(t, stubHistory{total: 1234, entries: sampleEntries()})

	view := m.View()
	assert.Contains(t, view, "History: 1,234 selections")
	assert.Contains(t, view, "(latest 3 loaded)")
}

func TestHistoryFilterIgnoresAccents(t *testing.T) {
	got := filterEntries(sampleEntries(), "curacao")
	require.Len(t, got, 1)
	assert.Equal(t, "Curaçao", got[0].Country.CommonName)

	got = filterEntries(sampleEntries(), "europe")
	assert.Len(t, got, 2)

	assert.Len(t, filterEntries(sampleEntries(), "  "), 3)
}

func TestHistoryEnterSearchesAgain(t *testing.T) {
	m := loadHistory(t, stubHistory{entries: sampleEntries()})

	m, _ = sendHistory(m, tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := sendHistory(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, NavigateToSearch{Query: "France"}, cmd())
}

func TestHistoryFilterFocus(t *testing.T) {
	m := loadHistory(t, stubHistory{entries: sampleEntries()})

	m, _ = sendHistory(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	for _, r := range "berlin" {
		m, _ = sendHistory(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	require.Len(t, m.filtered, 1)
	assert.Contains(t, m.View(), "showing 1")

	m, _ = sendHistory(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, focusTable, m.focus)
}

func TestHistoryExport(t *testing.T) {
	m := loadHistory(t, stubHistory{entries: sampleEntries()})

	m, _ = sendHistory(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("e")})
	assert.Contains(t, m.exportMsg, "Exported 3 rows")

	files, err := os.ReadDir(m.exportDir)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestHistoryEmptyAndError(t *testing.T) {
	m := loadHistory(t, stubHistory{})
	assert.Contains(t, m.View(), "No countries selected yet.")

	m = loadHistory(t, stubHistory{err: errors.New("disk gone")})
	assert.Contains(t, m.View(), "disk gone")

	m = loadHistory(t, nil)
	assert.Contains(t, m.View(), "unavailable")
}

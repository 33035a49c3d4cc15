package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/geofind/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	france := model.Country{
		CommonName: "France", OfficialName: "French Republic", Capital: "Paris",
		Region: "Europe", Population: 67391582, FlagSVG: "https://flagcdn.com/fr.svg",
		LatLng: [2]float64{46.6, 1.88}, HasCoords: true,
	}
	atlantis := model.Country{CommonName: "Atlantis"}
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.Record(ctx, "s1", "Fra", france, t0))
	require.NoError(t, s.Record(ctx, "s1", "Atl", atlantis, t0.Add(time.Minute)))

	entries, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Atlantis", entries[0].Country.CommonName)
	assert.False(t, entries[0].Country.HasCoords)

	assert.Equal(t, france, entries[1].Country)
	assert.Equal(t, "Fra", entries[1].Query)
	assert.Equal(t, "s1", entries[1].SessionID)
	assert.True(t, entries[1].SelectedAt.Equal(t0))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRecentLimit(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	t0 := time.Now()

	for i, name := range []string{"A", "B", "C"} {
		require.NoError(t, s.Record(ctx, "s", name, model.Country{CommonName: name}, t0.Add(time.Duration(i)*time.Second)))
	}

	entries, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "C", entries[0].Country.CommonName)
	assert.Equal(t, "B", entries[1].Country.CommonName)
}

func TestReopenKeepsHistory(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, "s", "Ger", model.Country{CommonName: "Germany"}, time.Now()))
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

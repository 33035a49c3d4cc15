package mapsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/geofind/internal/model"
	"github.com/rendis/geofind/internal/search"
)

type fakeMap struct {
	flights   []FlyToOptions
	destroyed int
}

func (m *fakeMap) FlyTo(opts FlyToOptions) { m.flights = append(m.flights, opts) }
func (m *fakeMap) Destroy()                { m.destroyed++ }

type fakeService struct {
	created []*fakeMap
	center  orb.Point
	zoom    float64
	err     error
}

func (s *fakeService) Create(container, style string, center orb.Point, zoom float64) (Instance, error) {
	if s.err != nil {
		return nil, s.err
	}
	m := &fakeMap{}
	s.created = append(s.created, m)
	s.center, s.zoom = center, zoom
	return m, nil
}

func sel(rev uint64, c model.Country) *search.Selection {
	return &search.Selection{Country: c, Rev: rev}
}

var paris = model.Country{CommonName: "France", LatLng: [2]float64{48.8566, 2.3522}, HasCoords: true}

func TestMountCreatesOnceAndUnmountDestroysOnce(t *testing.T) {
	svc := &fakeService{}
	s := New(svc, DefaultConfig("map"), nil)

	require.NoError(t, s.Mount())
	require.NoError(t, s.Mount())
	for i := uint64(1); i <= 5; i++ {
		s.Sync(sel(i, paris))
	}
	s.Unmount()
	s.Unmount()

	require.Len(t, svc.created, 1)
	assert.Equal(t, 1, svc.created[0].destroyed)
	assert.Equal(t, DefaultCenter, svc.center)
	assert.Equal(t, DefaultZoom, svc.zoom)
	assert.ErrorIs(t, s.Mount(), ErrUnmounted)
}

func TestMountPropagatesCreateError(t *testing.T) {
	s := New(&fakeService{err: errors.New("no terminal")}, DefaultConfig("map"), nil)
	assert.ErrorContains(t, s.Mount(), "creating map")
}

func TestSyncSwapsAxesAndReportsPanelOpen(t *testing.T) {
	svc := &fakeService{}
	s := New(svc, DefaultConfig("map"), nil)
	require.NoError(t, s.Mount())

	assert.True(t, s.Sync(sel(1, paris)))

	m := svc.created[0]
	require.Len(t, m.flights, 1)
	assert.Equal(t, orb.Point{2.3522, 48.8566}, m.flights[0].Center)
	assert.Equal(t, DefaultFlyZoom, m.flights[0].Zoom)
	assert.True(t, m.flights[0].Animated)
}

func TestSyncNoops(t *testing.T) {
	svc := &fakeService{}
	s := New(svc, DefaultConfig("map"), nil)

	assert.False(t, s.Sync(sel(1, paris)), "not mounted yet")
	require.NoError(t, s.Mount())

	assert.False(t, s.Sync(nil))
	assert.False(t, s.Sync(sel(2, model.Country{CommonName: "Nowhere"})))
	assert.True(t, s.Sync(sel(3, paris)))
	assert.False(t, s.Sync(sel(3, paris)), "same revision")

	assert.Len(t, svc.created[0].flights, 1)
}

func TestSyncAfterUnmountIsNoop(t *testing.T) {
	svc := &fakeService{}
	s := New(svc, DefaultConfig("map"), nil)
	require.NoError(t, s.Mount())
	s.Unmount()

	assert.False(t, s.Sync(sel(1, paris)))
	assert.Empty(t, svc.created[0].flights)
}

type staticFetcher map[string][]model.Country

func (f staticFetcher) SearchByName(_ context.Context, name string) ([]model.Country, error) {
	if c, ok := f[name]; ok {
		return c, nil
	}
	return nil, model.ErrCountryNotFound
}

func TestTypeSelectAndFly(t *testing.T) {
	france := model.Country{
		CommonName: "France", Capital: "Paris", Region: "Europe", Population: 67391582,
		LatLng: [2]float64{46.6, 1.88}, HasCoords: true,
	}
	c := search.NewController(staticFetcher{"Fra": {france}}, nil, search.Options{Debounce: 20 * time.Millisecond})
	defer c.Close()

	svc := &fakeService{}
	s := New(svc, DefaultConfig("map"), nil)
	require.NoError(t, s.Mount())
	defer s.Unmount()
	s.Attach(c)

	for _, text := range []string{"F", "Fr", "Fra"} {
		c.Input(text)
	}
	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return !snap.Loading && len(snap.Results) == 1
	}, time.Second, 5*time.Millisecond)

	snap := c.Select("France")

	assert.True(t, snap.PanelOpen)
	require.NotNil(t, snap.Selection)
	assert.Equal(t, france, snap.Selection.Country)
	flights := svc.created[0].flights
	require.Len(t, flights, 1)
	assert.Equal(t, orb.Point{1.88, 46.6}, flights[0].Center)
	assert.Equal(t, 5.0, flights[0].Zoom)
}

func TestZeroZoomIsKept(t *testing.T) {
	svc := &fakeService{}
	cfg := DefaultConfig("map")
	cfg.Zoom = 0
	cfg.FlyZoom = 0
	s := New(svc, cfg, nil)
	require.NoError(t, s.Mount())

	require.True(t, s.Sync(sel(1, paris)))
	assert.Equal(t, 0.0, svc.zoom)
	assert.Equal(t, 0.0, svc.created[0].flights[0].Zoom)
}

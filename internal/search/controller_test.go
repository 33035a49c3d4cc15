package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rendis/geofind/internal/model"
)

const testDebounce = 30 * time.Millisecond

// fakeFetcher answers from a table and records every query it receives.
// Queries listed in gates block until their channel is closed.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   []string
	answers map[string][]model.Country
	errs    map[string]error
	gates   map[string]chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		answers: map[string][]model.Country{},
		errs:    map[string]error{},
		gates:   map[string]chan struct{}{},
	}
}

func (f *fakeFetcher) SearchByName(ctx context.Context, name string) ([]model.Country, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	gate := f.gates[name]
	answer, err := f.answers[name], f.errs[name]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return answer, err
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func newTestController(f Fetcher, policy RacePolicy) *Controller {
	return NewController(f, zap.NewNop(), Options{Debounce: testDebounce, Policy: policy})
}

func TestController_BurstTriggersSingleFetch(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFakeFetcher()
	f.answers["Fra"] = []model.Country{france}
	c := newTestController(f, LatestIssuedWins)
	defer c.Close()

	for _, text := range []string{"F", "Fr", "Fra"} {
		snap := c.Input(text)
		assert.True(t, snap.Loading, "loading is set on the keystroke itself")
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return !c.Snapshot().Loading
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"Fra"}, f.Calls())
	assert.Equal(t, []model.Country{france}, c.Snapshot().Results)
}

func TestController_BlankInputNeverFetches(t *testing.T) {
	f := newFakeFetcher()
	c := newTestController(f, LatestIssuedWins)
	defer c.Close()

	c.Input("   ")
	require.Eventually(t, func() bool {
		return !c.Snapshot().Loading
	}, time.Second, 5*time.Millisecond)

	assert.Empty(t, f.Calls())
	assert.Nil(t, c.Snapshot().Results)
}

func TestController_FailureIsLoggedAndSwallowed(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	f := newFakeFetcher()
	f.answers["Fra"] = []model.Country{france}
	f.errs["Ger"] = errors.New("dial tcp: connection refused")
	c := NewController(f, zap.New(core), Options{Debounce: testDebounce})
	defer c.Close()

	c.Input("Fra")
	require.Eventually(t, func() bool { return len(c.Snapshot().Results) == 1 }, time.Second, 5*time.Millisecond)

	c.Input("Ger")
	require.Eventually(t, func() bool {
		return logs.FilterMessage("country lookup failed").Len() == 1
	}, time.Second, 5*time.Millisecond)

	snap := c.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, []model.Country{france}, snap.Results)

	entry := logs.FilterMessage("country lookup failed").All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "Ger", entry.ContextMap()["query"])
}

func TestController_NotFoundEmptiesResults(t *testing.T) {
	f := newFakeFetcher()
	f.answers["Fra"] = []model.Country{france}
	f.errs["Atlantis"] = model.ErrCountryNotFound
	c := newTestController(f, LatestIssuedWins)
	defer c.Close()

	c.Input("Fra")
	require.Eventually(t, func() bool { return len(c.Snapshot().Results) == 1 }, time.Second, 5*time.Millisecond)

	c.Input("Atlantis")
	require.Eventually(t, func() bool {
		s := c.Snapshot()
		return !s.Loading && len(s.Results) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestController_OutOfOrderResolution(t *testing.T) {
	tests := []struct {
		policy RacePolicy
		want   string
	}{
		{LatestIssuedWins, "France"},
		{LastResolvedWins, "Germany"},
	}
	for _, tc := range tests {
		t.Run(tc.policy.String(), func(t *testing.T) {
			f := newFakeFetcher()
			f.answers["Ger"] = []model.Country{germany}
			f.answers["Fra"] = []model.Country{france}
			slow := make(chan struct{})
			f.gates["Ger"] = slow
			c := newTestController(f, tc.policy)
			defer c.Close()

			c.Input("Ger")
			require.Eventually(t, func() bool { return len(f.Calls()) == 1 }, time.Second, 5*time.Millisecond)

			c.Input("Fra")
			require.Eventually(t, func() bool {
				r := c.Snapshot().Results
				return len(r) == 1 && r[0].CommonName == "France"
			}, time.Second, 5*time.Millisecond)

			close(slow)
			c.wg.Wait()
			assert.False(t, c.Snapshot().Loading)

			results := c.Snapshot().Results
			require.Len(t, results, 1)
			assert.Equal(t, tc.want, results[0].CommonName)
			assert.Equal(t, []string{"Ger", "Fra"}, f.Calls(), "neither request is cancelled")
		})
	}
}

func TestController_SelectNotifiesObservers(t *testing.T) {
	f := newFakeFetcher()
	f.answers["Fra"] = []model.Country{france}
	c := newTestController(f, LatestIssuedWins)
	defer c.Close()

	var got []Selection
	c.OnSelection(func(sel Selection) {
		got = append(got, sel)
		c.OpenPanel()
	})

	c.Input("Fra")
	require.Eventually(t, func() bool { return len(c.Snapshot().Results) == 1 }, time.Second, 5*time.Millisecond)

	snap := c.Select("France")
	assert.True(t, snap.PanelOpen)
	assert.Equal(t, "France", snap.Trigger)
	require.Len(t, got, 1)
	assert.Equal(t, france, got[0].Country)

	c.Select("France")
	assert.Len(t, got, 1, "repeat pick does not notify")
}

func TestController_UpdatesCarryLatestSnapshot(t *testing.T) {
	f := newFakeFetcher()
	f.answers["Fra"] = []model.Country{france}
	c := newTestController(f, LatestIssuedWins)
	defer c.Close()

	c.Input("Fra")

	deadline := time.After(time.Second)
	for {
		select {
		case snap := <-c.Updates():
			if !snap.Loading && len(snap.Results) == 1 {
				return
			}
		case <-deadline:
			t.Fatal("no settled snapshot delivered")
		}
	}
}

func TestController_CloseCancelsInFlight(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newFakeFetcher()
	f.gates["Fra"] = make(chan struct{})
	c := newTestController(f, LatestIssuedWins)

	c.Input("Fra")
	require.Eventually(t, func() bool { return len(f.Calls()) == 1 }, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	c.Input("Ger")
	time.Sleep(2 * testDebounce)
	assert.Equal(t, []string{"Fra"}, f.Calls(), "closed controller issues nothing")
}

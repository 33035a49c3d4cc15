package search

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rendis/geofind/internal/model"
)

// RacePolicy decides what happens when lookups resolve out of order.
type RacePolicy int

const (
	// LatestIssuedWins drops any response older than the latest request.
	LatestIssuedWins RacePolicy = iota
	// LastResolvedWins applies every response in arrival order, so a slow
	// older lookup can overwrite a newer one.
	LastResolvedWins
)

func (p RacePolicy) String() string {
	switch p {
	case LastResolvedWins:
		return "last-resolved"
	default:
		return "latest-issued"
	}
}

func ParseRacePolicy(s string) (RacePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latest-issued", "latest":
		return LatestIssuedWins, nil
	case "last-resolved", "last":
		return LastResolvedWins, nil
	}
	return LatestIssuedWins, fmt.Errorf("unknown race policy %q", s)
}

// Request is a lookup issued by a debounce fire.
type Request struct {
	Seq   uint64
	Query string
}

// Response is the completion of a Request.
type Response struct {
	Seq       uint64
	Query     string
	Countries []model.Country
	Err       error
}

type Outcome int

const (
	OutcomeApplied Outcome = iota // ResultSet replaced
	OutcomeEmpty                  // not found, ResultSet cleared
	OutcomeFailed                 // transport/parse error, ResultSet kept
	OutcomeStale                  // superseded response dropped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	case OutcomeStale:
		return "stale"
	}
	return "unknown"
}

// Selection is the country currently shown on the map and panel. Rev
// changes every time a pick resolves to a new record.
type Selection struct {
	Country model.Country
	Rev     uint64
}

// State is the whole search surface. Every event goes through one of its
// transition methods; nothing else writes to it.
type State struct {
	Policy RacePolicy

	Query       string
	Results     []model.Country
	Loading     bool
	Selection   *Selection
	Label       string // text on the trigger control
	PopoverOpen bool
	PanelOpen   bool

	gen             uint64 // keystroke generation, matched by debounce fires
	debouncePending bool
	issued          uint64 // seq of the latest issued request
	latestDone      bool
	resultsGen      uint64
	selectedFrom    uint64 // resultsGen the Selection was resolved against
	rev             uint64
}

func NewState(policy RacePolicy) State {
	return State{Policy: policy}
}

// Keystroke records new input. Loading turns on right away so the
// debounce window itself shows as pending. The returned generation must be
// handed back to DebounceFired.
func (s *State) Keystroke(text string) uint64 {
	s.Query = text
	s.gen++
	s.debouncePending = true
	s.refreshLoading()
	return s.gen
}

// DebounceFired turns the settled query into a request. Blank queries and
// fires from a superseded generation issue nothing.
func (s *State) DebounceFired(gen uint64) (Request, bool) {
	if gen != s.gen || !s.debouncePending {
		return Request{}, false
	}
	s.debouncePending = false

	q := strings.TrimSpace(s.Query)
	if q == "" {
		s.refreshLoading()
		return Request{}, false
	}

	s.issued++
	s.latestDone = false
	s.refreshLoading()
	return Request{Seq: s.issued, Query: q}, true
}

// Resolve applies a completed lookup according to the race policy.
// Loading is recomputed whatever the outcome.
func (s *State) Resolve(resp Response) Outcome {
	defer s.refreshLoading()

	if resp.Seq == s.issued {
		s.latestDone = true
	}
	if resp.Seq < s.issued && s.Policy == LatestIssuedWins {
		return OutcomeStale
	}

	switch {
	case errors.Is(resp.Err, model.ErrCountryNotFound):
		s.Results = []model.Country{}
		s.resultsGen++
		return OutcomeEmpty
	case resp.Err != nil:
		return OutcomeFailed
	}

	s.Results = slices.Clone(resp.Countries)
	if s.Results == nil {
		s.Results = []model.Country{}
	}
	s.resultsGen++
	return OutcomeApplied
}

func (s *State) TogglePanel() {
	s.PanelOpen = !s.PanelOpen
}

func (s *State) OpenPanel() {
	s.PanelOpen = true
}

func (s *State) SetPopover(open bool) {
	s.PopoverOpen = open
}

// InFlight reports whether the latest issued request is still unresolved.
func (s *State) InFlight() bool {
	return s.issued > 0 && !s.latestDone
}

func (s *State) refreshLoading() {
	s.Loading = s.debouncePending || s.InFlight()
}

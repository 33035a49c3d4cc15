package search

import "github.com/rendis/geofind/internal/model"

const triggerPlaceholder = "Select Country..."

// Select resolves a picked name against the current ResultSet. It closes
// the popover and toggles the trigger label; the label clears when the
// same name is picked twice, while the Selection record is kept. It
// reports whether Selection moved to a new record.
func (s *State) Select(name string) bool {
	if name == "" {
		return false
	}
	s.PopoverOpen = false
	if s.Label == name {
		s.Label = ""
	} else {
		s.Label = name
	}

	c, ok := model.FindByName(s.Results, name)
	if !ok {
		return false
	}
	if s.Selection != nil && s.Selection.Country.CommonName == name && s.selectedFrom == s.resultsGen {
		return false
	}

	s.rev++
	s.Selection = &Selection{Country: c, Rev: s.rev}
	s.selectedFrom = s.resultsGen
	return true
}

// TriggerText is what the popover trigger shows: the placeholder when no
// label is set, and blank when the label is not in the current ResultSet.
func (s *State) TriggerText() string {
	if s.Label == "" {
		return triggerPlaceholder
	}
	if _, ok := model.FindByName(s.Results, s.Label); !ok {
		return ""
	}
	return s.Label
}

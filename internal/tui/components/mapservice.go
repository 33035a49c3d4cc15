package components

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/rendis/geofind/internal/mapsync"
)

// MapService creates Braille map views for mapsync.
type MapService struct {
	width, height int
	created       map[string]*MapView
}

func NewMapService(width, height int) *MapService {
	return &MapService{width: width, height: height, created: make(map[string]*MapView)}
}

func (s *MapService) Create(container, style string, center orb.Point, zoom float64) (mapsync.Instance, error) {
	switch style {
	case "":
		style = StyleStandard
	case StyleStandard, StyleMono:
	default:
		return nil, fmt.Errorf("unknown map style %q", style)
	}
	if _, ok := s.created[container]; ok {
		return nil, fmt.Errorf("map container %q already in use", container)
	}
	m := NewMapView(style, center, zoom)
	m.SetSize(s.width, s.height)
	s.created[container] = m
	return m, nil
}

// Map returns the view created for container, or nil.
func (s *MapService) Map(container string) *MapView {
	return s.created[container]
}

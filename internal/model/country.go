package model

import (
	"errors"

	"github.com/paulmach/orb"
)

// ErrCountryNotFound is returned by lookups when the API reports no match.
var ErrCountryNotFound = errors.New("country not found")

// Country is a single record of a lookup ResultSet.
type Country struct {
	CommonName   string     `json:"common_name"`
	OfficialName string     `json:"official_name"`
	Capital      string     `json:"capital"`
	Region       string     `json:"region"`
	Population   int64      `json:"population"`
	FlagSVG      string     `json:"flag_svg"`
	LatLng       [2]float64 `json:"latlng"` // [lat, lng], as the API stores it
	HasCoords    bool       `json:"has_coords"`
}

func (c Country) Lat() float64 { return c.LatLng[0] }
func (c Country) Lng() float64 { return c.LatLng[1] }

// Point returns the coordinates as an orb.Point, which is [lng, lat].
func (c Country) Point() orb.Point {
	return orb.Point{c.LatLng[1], c.LatLng[0]}
}

// FindByName returns the record whose common name equals name exactly.
func FindByName(countries []Country, name string) (Country, bool) {
	for _, c := range countries {
		if c.CommonName == name {
			return c, true
		}
	}
	return Country{}, false
}

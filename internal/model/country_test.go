package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountryPointSwapsAxes(t *testing.T) {
	c := Country{CommonName: "France", LatLng: [2]float64{48.8566, 2.3522}, HasCoords: true}

	p := c.Point()
	assert.Equal(t, 2.3522, p.Lon())
	assert.Equal(t, 48.8566, p.Lat())
}

func TestFindByName(t *testing.T) {
	set := []Country{{CommonName: "France"}, {CommonName: "French Guiana"}}

	got, ok := FindByName(set, "France")
	assert.True(t, ok)
	assert.Equal(t, "France", got.CommonName)

	_, ok = FindByName(set, "france")
	assert.False(t, ok, "match is exact")

	_, ok = FindByName(nil, "France")
	assert.False(t, ok)
}

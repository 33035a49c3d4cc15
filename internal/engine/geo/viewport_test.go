package geo

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func TestSpanDegreesHalvesPerZoom(t *testing.T) {
	assert.Equal(t, 360.0, SpanDegrees(0))
	assert.Equal(t, 360.0, SpanDegrees(1))
	assert.Equal(t, 90.0, SpanDegrees(3))
	assert.Equal(t, 22.5, SpanDegrees(5))
}

func TestClampCenter(t *testing.T) {
	assert.Equal(t, orb.Point{-170, 10}, ClampCenter(orb.Point{190, 10}))
	assert.Equal(t, orb.Point{10, 85}, ClampCenter(orb.Point{10, 89}))
	assert.Equal(t, orb.Point{10, -85}, ClampCenter(orb.Point{-350, -89}))
}

func TestViewportContainsCenter(t *testing.T) {
	center := orb.Point{1.88, 46.6}
	b := Viewport(center, 5, 2)

	assert.True(t, b.Contains(center))
	assert.InDelta(t, 22.5, b.Max.Lon()-b.Min.Lon(), 1e-9)
	assert.InDelta(t, center.Lon(), b.Center().Lon(), 1e-9)
	assert.InDelta(t, center.Lat(), b.Center().Lat(), 1e-9)
}

func TestViewportStaysInsidePoles(t *testing.T) {
	b := Viewport(orb.Point{0, 84}, 2, 1)

	assert.LessOrEqual(t, b.Max.Lat(), 85.0)
	assert.GreaterOrEqual(t, b.Min.Lat(), -85.0)
	assert.Greater(t, b.Max.Lat()-b.Min.Lat(), 0.0)
}

func TestGraticuleStep(t *testing.T) {
	assert.Equal(t, 90.0, GraticuleStep(360))
	assert.Equal(t, 15.0, GraticuleStep(90))
	assert.Equal(t, 5.0, GraticuleStep(22.5))
	assert.Equal(t, defaultStep, GraticuleStep(0))
}

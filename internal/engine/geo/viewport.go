package geo

import (
	"math"

	"github.com/paulmach/orb"
)

const (
	maxLat      = 85.0
	worldSpan   = 360.0
	zoom0Span   = 720.0 // lng degrees across the map at zoom 0; the terminal is narrow
	minCosLat   = 0.2
	graticuleN  = 6 // aim for roughly this many grid lines across
	defaultStep = 30.0
)

// SpanDegrees converts a zoom level to the longitude span shown across the
// map. Each zoom step halves it, like web map tiles.
func SpanDegrees(zoom float64) float64 {
	span := zoom0Span / math.Pow(2, zoom)
	return math.Min(span, worldSpan)
}

// ClampCenter wraps longitude into [-180, 180] and keeps latitude inside
// the Mercator range.
func ClampCenter(p orb.Point) orb.Point {
	lng := math.Mod(p.Lon()+180, 360)
	if lng < 0 {
		lng += 360
	}
	lng -= 180
	lat := math.Max(-maxLat, math.Min(maxLat, p.Lat()))
	return orb.Point{lng, lat}
}

// Viewport returns the bound visible around center at zoom on a dot grid
// with the given width/height ratio. Latitude span is derived from the
// longitude span so that shapes keep their proportions at center's
// latitude.
func Viewport(center orb.Point, zoom, dotAspect float64) orb.Bound {
	center = ClampCenter(center)
	if dotAspect <= 0 {
		dotAspect = 1
	}

	lngSpan := SpanDegrees(zoom)
	cosLat := math.Max(minCosLat, math.Cos(center.Lat()*math.Pi/180))
	latSpan := lngSpan * cosLat / dotAspect
	if latSpan > 2*maxLat {
		latSpan = 2 * maxLat
	}

	minLat := center.Lat() - latSpan/2
	maxLatB := center.Lat() + latSpan/2
	// slide the window back inside the poles instead of shrinking it
	if minLat < -maxLat {
		maxLatB += -maxLat - minLat
		minLat = -maxLat
	}
	if maxLatB > maxLat {
		minLat -= maxLatB - maxLat
		maxLatB = maxLat
	}

	return orb.Bound{
		Min: orb.Point{center.Lon() - lngSpan/2, minLat},
		Max: orb.Point{center.Lon() + lngSpan/2, maxLatB},
	}
}

// GraticuleStep picks a grid spacing in degrees that draws a handful of
// lines across span.
func GraticuleStep(span float64) float64 {
	if span <= 0 {
		return defaultStep
	}
	for _, step := range []float64{1, 2, 5, 10, 15, 30, 45, 90} {
		if span/step <= graticuleN {
			return step
		}
	}
	return 90
}

package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/paulmach/orb"

	"github.com/rendis/geofind/internal/engine/geo"
	"github.com/rendis/geofind/internal/mapsync"
	"github.com/rendis/geofind/internal/tui/styles"
)

const (
	FrameRate = 60

	settleEps = 0.005
	minZoom   = 0.0
	maxZoom   = 12.0
)

// Styles understood by the map.
const (
	StyleStandard = "standard"
	StyleMono     = "mono"
)

// MapView renders a world map viewport with Braille characters. It is the
// map instance behind mapsync: FlyTo retargets an eased camera animation
// that advances one frame per Step.
type MapView struct {
	width  int
	height int
	style  string

	center orb.Point // [lng, lat]
	zoom   float64

	target     orb.Point
	targetZoom float64
	velLng     float64
	velLat     float64
	velZoom    float64
	spring     harmonica.Spring
	animating  bool

	markers   []orb.Point
	selected  *orb.Point
	destroyed bool
}

func NewMapView(style string, center orb.Point, zoom float64) *MapView {
	center = geo.ClampCenter(center)
	return &MapView{
		style:      style,
		center:     center,
		zoom:       zoom,
		target:     center,
		targetZoom: zoom,
		spring:     harmonica.NewSpring(harmonica.FPS(FrameRate), 5.0, 1.0),
	}
}

// FlyTo moves the camera. A new call while animating retargets the
// running animation.
func (m *MapView) FlyTo(opts mapsync.FlyToOptions) {
	if m.destroyed {
		return
	}
	target := geo.ClampCenter(opts.Center)
	// take the short way around the antimeridian
	if d := target.Lon() - m.center.Lon(); d > 180 {
		target[0] -= 360
	} else if d < -180 {
		target[0] += 360
	}
	zoom := clampZoom(opts.Zoom)

	if !opts.Animated {
		m.center = geo.ClampCenter(target)
		m.zoom = zoom
		m.target, m.targetZoom = m.center, zoom
		m.velLng, m.velLat, m.velZoom = 0, 0, 0
		m.animating = false
		return
	}
	m.target = target
	m.targetZoom = zoom
	m.animating = true
}

func (m *MapView) Destroy() {
	m.destroyed = true
	m.animating = false
	m.markers = nil
	m.selected = nil
}

func (m *MapView) Destroyed() bool { return m.destroyed }
func (m *MapView) Animating() bool { return m.animating }

// Camera returns the current center and zoom.
func (m *MapView) Camera() (orb.Point, float64) {
	return m.center, m.zoom
}

// Step advances the animation by one frame and reports whether it is
// still running.
func (m *MapView) Step() bool {
	if !m.animating {
		return false
	}
	lng, vLng := m.spring.Update(m.center.Lon(), m.velLng, m.target.Lon())
	lat, vLat := m.spring.Update(m.center.Lat(), m.velLat, m.target.Lat())
	zoom, vZoom := m.spring.Update(m.zoom, m.velZoom, m.targetZoom)
	m.center = orb.Point{lng, lat}
	m.zoom = zoom
	m.velLng, m.velLat, m.velZoom = vLng, vLat, vZoom

	if settled(lng, vLng, m.target.Lon()) && settled(lat, vLat, m.target.Lat()) && settled(zoom, vZoom, m.targetZoom) {
		m.center = geo.ClampCenter(m.target)
		m.zoom = m.targetZoom
		m.target = m.center
		m.velLng, m.velLat, m.velZoom = 0, 0, 0
		m.animating = false
	}
	return m.animating
}

func settled(pos, vel, target float64) bool {
	return math.Abs(pos-target) < settleEps && math.Abs(vel) < settleEps
}

func (m *MapView) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *MapView) SetStyle(style string) {
	m.style = style
}

func (m *MapView) Style() string { return m.style }

// SetMarkers sets the points plotted on the map, [lng, lat] each.
func (m *MapView) SetMarkers(points []orb.Point) {
	m.markers = points
}

// SetSelected highlights one point; nil clears it.
func (m *MapView) SetSelected(p *orb.Point) {
	m.selected = p
}

func (m *MapView) ZoomIn() {
	m.FlyTo(mapsync.FlyToOptions{Center: m.target, Zoom: m.targetZoom + 1, Animated: true})
}

func (m *MapView) ZoomOut() {
	m.FlyTo(mapsync.FlyToOptions{Center: m.target, Zoom: m.targetZoom - 1, Animated: true})
}

// Pan shifts the camera by a tenth of the visible span per step.
func (m *MapView) Pan(dLat, dLng float64) {
	span := geo.SpanDegrees(m.targetZoom)
	next := orb.Point{m.target.Lon() + dLng*span*0.1, m.target.Lat() + dLat*span*0.1}
	m.FlyTo(mapsync.FlyToOptions{Center: next, Zoom: m.targetZoom, Animated: true})
}

// Status is a one-line camera readout.
func (m *MapView) Status() string {
	return fmt.Sprintf("lng %.2f  lat %.2f  z%.1f", m.center.Lon(), m.center.Lat(), m.zoom)
}

func clampZoom(z float64) float64 {
	return math.Max(minZoom, math.Min(maxZoom, z))
}

// Braille character encoding:
// Each braille char is a 2x4 dot grid.
// Dot positions:  0 3
//
//	1 4
//	2 5
//	6 7
//
// Unicode: 0x2800 + sum of raised dot bits
var brailleDots = [8]rune{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}

var dotPositions = [8][2]int{
	{0, 0}, {1, 0}, {2, 0}, {0, 1},
	{1, 1}, {2, 1}, {3, 0}, {3, 1},
}

type layer int

const (
	layerGrid layer = iota
	layerPoint
	layerSelected
	layerCount
)

func (m *MapView) View() string {
	if m.destroyed || m.width <= 0 || m.height <= 0 {
		return ""
	}

	cols, rows := m.width, m.height
	dotW, dotH := cols*2, rows*4

	bound := geo.Viewport(m.center, m.zoom, float64(dotW)/float64(dotH))
	minLng, maxLng := bound.Min.Lon(), bound.Max.Lon()
	minLat, maxLat := bound.Min.Lat(), bound.Max.Lat()
	lngRange, latRange := maxLng-minLng, maxLat-minLat
	if lngRange <= 0 || latRange <= 0 {
		return strings.Repeat(strings.Repeat(" ", cols)+"\n", rows)
	}

	var grids [layerCount][][]bool
	for l := range grids {
		grids[l] = make([][]bool, dotH)
		for i := range grids[l] {
			grids[l][i] = make([]bool, dotW)
		}
	}

	toDot := func(p orb.Point) (int, int, bool) {
		lng := p.Lon()
		// markers may sit one world away when the view crosses the antimeridian
		for _, shift := range []float64{0, -360, 360} {
			if l := lng + shift; l >= minLng && l <= maxLng {
				lng = l
				break
			}
		}
		x := int((lng - minLng) / lngRange * float64(dotW-1))
		y := int((maxLat - p.Lat()) / latRange * float64(dotH-1))
		return x, y, x >= 0 && x < dotW && y >= 0 && y < dotH
	}

	// Graticule, dotted every other dot
	step := geo.GraticuleStep(lngRange)
	for lng := math.Ceil(minLng/step) * step; lng <= maxLng; lng += step {
		x0, y0, _ := toDot(orb.Point{lng, maxLat})
		x1, y1, _ := toDot(orb.Point{lng, minLat})
		drawLine(grids[layerGrid], x0, y0, x1, y1, dotW, dotH, 2)
	}
	for lat := math.Ceil(minLat/step) * step; lat <= maxLat; lat += step {
		x0, y0, _ := toDot(orb.Point{minLng, lat})
		x1, y1, _ := toDot(orb.Point{maxLng, lat})
		drawLine(grids[layerGrid], x0, y0, x1, y1, dotW, dotH, 2)
	}

	for _, p := range m.markers {
		if x, y, ok := toDot(p); ok {
			grids[layerPoint][y][x] = true
		}
	}

	if m.selected != nil {
		if x, y, ok := toDot(*m.selected); ok {
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if yy, xx := y+dy, x+dx; yy >= 0 && yy < dotH && xx >= 0 && xx < dotW {
						grids[layerSelected][yy][xx] = true
					}
				}
			}
		}
	}

	palette := m.palette()

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			var cells [layerCount]rune
			for l := range cells {
				cells[l] = 0x2800
			}
			for dot := 0; dot < 8; dot++ {
				dy := row*4 + dotPositions[dot][0]
				dx := col*2 + dotPositions[dot][1]
				for l := range grids {
					if grids[l][dy][dx] {
						cells[l] |= brailleDots[dot]
					}
				}
			}

			switch {
			case cells[layerSelected] != 0x2800:
				sb.WriteString(palette[layerSelected].Render(string(cells[layerSelected])))
			case cells[layerPoint] != 0x2800:
				sb.WriteString(palette[layerPoint].Render(string(cells[layerPoint])))
			case cells[layerGrid] != 0x2800:
				sb.WriteString(palette[layerGrid].Render(string(cells[layerGrid])))
			default:
				sb.WriteRune(' ')
			}
		}
		if row < rows-1 {
			sb.WriteRune('\n')
		}
	}

	return sb.String()
}

func (m *MapView) palette() [layerCount]lipgloss.Style {
	if m.style == StyleMono {
		s := lipgloss.NewStyle().Foreground(styles.Text)
		return [layerCount]lipgloss.Style{
			lipgloss.NewStyle().Foreground(styles.Muted),
			s,
			s.Bold(true),
		}
	}
	return [layerCount]lipgloss.Style{
		lipgloss.NewStyle().Foreground(styles.Muted),
		lipgloss.NewStyle().Foreground(styles.Secondary),
		lipgloss.NewStyle().Foreground(styles.Warning).Bold(true),
	}
}

// drawLine draws a line between two points using Bresenham's algorithm,
// setting every stride-th dot.
func drawLine(grid [][]bool, x0, y0, x1, y1, maxW, maxH, stride int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 >= x1 {
		sx = -1
	}
	sy := 1
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	for n := 0; ; n++ {
		if n%stride == 0 && x0 >= 0 && x0 < maxW && y0 >= 0 && y0 < maxH {
			grid[y0][x0] = true
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

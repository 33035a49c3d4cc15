// Package mapsync keeps an externally owned map in step with the selected
// country.
package mapsync

import (
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/rendis/geofind/internal/search"
)

const (
	DefaultZoom    = 3.0
	DefaultFlyZoom = 5.0
)

// DefaultCenter is the initial camera position, [lng, lat].
var DefaultCenter = orb.Point{20, 47}

var ErrUnmounted = errors.New("map already destroyed")

type FlyToOptions struct {
	Center   orb.Point // [lng, lat]
	Zoom     float64
	Animated bool
}

// Instance is a live map. Calls are fire-and-forget.
type Instance interface {
	FlyTo(opts FlyToOptions)
	Destroy()
}

// Service creates map instances.
type Service interface {
	Create(container, style string, center orb.Point, zoom float64) (Instance, error)
}

type Config struct {
	Container string
	Style     string
	Center    orb.Point
	Zoom      float64
	FlyZoom   float64
}

// Synchronizer owns the single map instance of a view and moves its
// camera whenever the Selection changes.
type Synchronizer struct {
	mu        sync.Mutex
	svc       Service
	cfg       Config
	logger    *zap.Logger
	inst      Instance
	destroyed bool
	lastRev   uint64
}

// DefaultConfig is the world view the map opens on.
func DefaultConfig(container string) Config {
	return Config{
		Container: container,
		Center:    DefaultCenter,
		Zoom:      DefaultZoom,
		FlyZoom:   DefaultFlyZoom,
	}
}

// New uses cfg as given; a zero zoom is a valid whole-world view.
func New(svc Service, cfg Config, logger *zap.Logger) *Synchronizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{svc: svc, cfg: cfg, logger: logger}
}

// Mount creates the map instance. Later calls are no-ops; mounting after
// Unmount fails.
func (s *Synchronizer) Mount() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return ErrUnmounted
	}
	if s.inst != nil {
		return nil
	}
	inst, err := s.svc.Create(s.cfg.Container, s.cfg.Style, s.cfg.Center, s.cfg.Zoom)
	if err != nil {
		return fmt.Errorf("creating map: %w", err)
	}
	s.inst = inst
	s.logger.Debug("map created",
		zap.String("container", s.cfg.Container),
		zap.String("style", s.cfg.Style))
	return nil
}

// Unmount destroys the instance exactly once.
func (s *Synchronizer) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.destroyed = true
	if s.inst != nil {
		s.inst.Destroy()
		s.inst = nil
		s.logger.Debug("map destroyed", zap.String("container", s.cfg.Container))
	}
}

// Sync flies the camera to sel when it is a new selection with
// coordinates. It reports whether it did, in which case the info panel
// has to be opened.
func (s *Synchronizer) Sync(sel *search.Selection) bool {
	if sel == nil || !sel.Country.HasCoords {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inst == nil || sel.Rev == s.lastRev {
		return false
	}
	s.lastRev = sel.Rev

	// the record stores [lat, lng]; the camera wants [lng, lat]
	center := sel.Country.Point()
	s.inst.FlyTo(FlyToOptions{Center: center, Zoom: s.cfg.FlyZoom, Animated: true})
	s.logger.Debug("camera moved",
		zap.String("country", sel.Country.CommonName),
		zap.Float64("lng", center.Lon()),
		zap.Float64("lat", center.Lat()))
	return true
}

// Attach subscribes the synchronizer to a controller's selections and
// opens the panel after every camera move.
func (s *Synchronizer) Attach(c *search.Controller) {
	c.OnSelection(func(sel search.Selection) {
		if s.Sync(&sel) {
			c.OpenPanel()
		}
	})
}

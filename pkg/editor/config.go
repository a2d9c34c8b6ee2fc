package editor

import (
	"strings"

	"github.com/matzehuels/nodewire/pkg/geometry"
)

// Mode gates what pointer and keyboard input may do.
type Mode int

const (
	// ModeEdit allows every interaction.
	ModeEdit Mode = iota
	// ModeFixed only allows panning the canvas.
	ModeFixed
	// ModeView allows panning and selecting but never mutates the document.
	ModeView
)

// String returns "edit", "fixed" or "view".
func (m Mode) String() string {
	switch m {
	case ModeFixed:
		return "fixed"
	case ModeView:
		return "view"
	default:
		return "edit"
	}
}

// ParseMode maps a mode name to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(s) {
	case "edit", "":
		return ModeEdit, true
	case "fixed":
		return ModeFixed, true
	case "view":
		return ModeView, true
	}
	return ModeEdit, false
}

// Default zoom limits.
const (
	DefaultZoomMin  = 0.5
	DefaultZoomMax  = 1.6
	DefaultZoomStep = 0.1

	// DefaultPinchThreshold is the inter-pointer distance, in screen pixels,
	// the previous pinch sample must exceed before pinching zooms.
	DefaultPinchThreshold = 100
	// DefaultWaypointRadius is the drawn radius of waypoint markers.
	DefaultWaypointRadius = 6
)

// Config holds the editor behavior switches.
type Config struct {
	Mode      Mode
	Curvature geometry.Curvature

	// Reroute enables inserting waypoints by double-clicking a selected wire.
	Reroute bool
	// RerouteFixCurvature makes hosts draw one path per wire segment so each
	// keeps its own curvature; the projection always provides both forms.
	RerouteFixCurvature bool
	// ForceFirstInput lets a wire dropped anywhere on a node attach to the
	// node's first input.
	ForceFirstInput bool
	// DraggableInputs allows starting a node drag from text inputs inside
	// node content. Select controls never start a drag.
	DraggableInputs bool

	ZoomMin, ZoomMax, ZoomStep float64
	PinchThreshold             float64
	WaypointRadius             float64
}

// DefaultConfig returns the editor defaults.
func DefaultConfig() Config {
	return Config{
		Mode:            ModeEdit,
		Curvature:       geometry.DefaultCurvatures(),
		Reroute:         true,
		DraggableInputs: true,
		ZoomMin:         DefaultZoomMin,
		ZoomMax:         DefaultZoomMax,
		ZoomStep:        DefaultZoomStep,
		PinchThreshold:  DefaultPinchThreshold,
		WaypointRadius:  DefaultWaypointRadius,
	}
}

func (c *Config) normalize() {
	d := DefaultConfig()
	if c.ZoomMin <= 0 {
		c.ZoomMin = d.ZoomMin
	}
	if c.ZoomMax < c.ZoomMin {
		c.ZoomMax = c.ZoomMin
	}
	if c.ZoomStep <= 0 {
		c.ZoomStep = d.ZoomStep
	}
	if c.PinchThreshold <= 0 {
		c.PinchThreshold = d.PinchThreshold
	}
	if c.WaypointRadius <= 0 {
		c.WaypointRadius = d.WaypointRadius
	}
}

// Option configures an Editor.
type Option func(*Editor)

// WithConfig replaces the editor configuration.
func WithConfig(c Config) Option {
	return func(e *Editor) { e.cfg = c }
}

// WithMode sets the initial interaction mode.
func WithMode(m Mode) Option {
	return func(e *Editor) { e.cfg.Mode = m }
}

// OnReady registers fn to receive the editor's API once construction is done.
func OnReady(fn func(API)) Option {
	return func(e *Editor) { e.ready = fn }
}

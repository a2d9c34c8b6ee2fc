package editor

import (
	"math"

	"github.com/matzehuels/nodewire/pkg/events"
	"github.com/matzehuels/nodewire/pkg/geometry"
)

// Wheel zooms around the pointer when ctrl is held. Plain wheel steps are
// left to the host and Wheel reports false for them.
func (e *Editor) Wheel(ev WheelEvent) bool {
	if !ev.Ctrl || ev.DeltaY == 0 {
		return false
	}
	focus := geometry.Point{X: ev.X, Y: ev.Y}
	if ev.DeltaY > 0 {
		e.zoomAround(e.viewport.Zoom-e.cfg.ZoomStep, focus)
	} else {
		e.zoomAround(e.viewport.Zoom+e.cfg.ZoomStep, focus)
	}
	return true
}

// ZoomIn increases the zoom by one step, scaling the pan offset with it.
func (e *Editor) ZoomIn() { e.zoomTo(e.viewport.Zoom + e.cfg.ZoomStep) }

// ZoomOut decreases the zoom by one step, scaling the pan offset with it.
func (e *Editor) ZoomOut() { e.zoomTo(e.viewport.Zoom - e.cfg.ZoomStep) }

// ZoomReset returns to zoom 1, or the nearest allowed zoom, scaling the pan
// offset with it.
func (e *Editor) ZoomReset() { e.zoomTo(e.homeViewport().Zoom) }

// Zoom returns the current zoom factor.
func (e *Editor) Zoom() float64 { return e.viewport.Zoom }

// Pan moves the canvas to offset (x, y).
func (e *Editor) Pan(x, y float64) {
	e.viewport.X, e.viewport.Y = x, y
	e.applyViewport()
	e.publish(events.Translate, e.viewport)
}

func (e *Editor) clampZoom(z float64) float64 {
	// keep repeated 0.1 steps from drifting into 1.5999999
	z = math.Round(z*1e9) / 1e9
	return math.Max(e.cfg.ZoomMin, math.Min(e.cfg.ZoomMax, z))
}

// zoomTo scales the pan offset proportionally, keeping the content origin's
// relation to the viewport fixed.
func (e *Editor) zoomTo(z float64) {
	z = e.clampZoom(z)
	old := e.viewport.Zoom
	if z == old {
		return
	}
	k := geometry.Ratio(z, old)
	e.viewport.X *= k
	e.viewport.Y *= k
	e.viewport.Zoom = z
	e.applyViewport()
	e.publish(events.Zoom, z)
}

// zoomAround changes the zoom so the content point under focus stays under it.
func (e *Editor) zoomAround(z float64, focus geometry.Point) {
	z = e.clampZoom(z)
	old := e.viewport.Zoom
	if z == old {
		return
	}
	canvas := e.proj.Surface().Canvas()
	// content point under the focus, before zooming
	cx := geometry.Ratio(focus.X-canvas.X, old)
	cy := geometry.Ratio(focus.Y-canvas.Y, old)
	// where the canvas origin must move so that point stays put
	e.viewport.X += (focus.X - cx*z) - canvas.X
	e.viewport.Y += (focus.Y - cy*z) - canvas.Y
	e.viewport.Zoom = z
	e.applyViewport()
	e.publish(events.Zoom, z)
}

// pinch zooms while two pointers move apart or together.
func (e *Editor) pinch() {
	if len(e.pointers) < 2 {
		return
	}
	a, b := e.pointers[0].at, e.pointers[1].at
	cur := a.Dist(b)
	if e.pinchPrev > e.cfg.PinchThreshold {
		mid := geometry.Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
		switch {
		case cur > e.pinchPrev:
			e.zoomAround(e.viewport.Zoom+e.cfg.ZoomStep, mid)
		case cur < e.pinchPrev:
			e.zoomAround(e.viewport.Zoom-e.cfg.ZoomStep, mid)
		}
	}
	e.pinchPrev = cur
}

func (e *Editor) applyViewport() {
	e.proj.SetTransform(e.viewport.Transform())
}

package render

import (
	"github.com/echoflaresat/natalglobe/overlay"
)

// Pick tolerances in pixels around drawn shapes.
const (
	pointSlop = 2.0
	arcSlop   = 3.0
)

// Hit is the overlay record under the pointer. At most one field is set.
type Hit struct {
	Point *overlay.GeoPoint
	Arc   *overlay.GeoArc
}

// Empty reports whether nothing was hit.
func (h Hit) Empty() bool {
	return h.Point == nil && h.Arc == nil
}

// Pick resolves the frontmost overlay primitive under pixel (x, y), testing
// the same projected shapes the renderer draws. Arcs are tested along their
// whole visible path, dash gaps included, so the dash animation never changes
// the result. Points win ties with arcs because they are drawn on top.
func Pick(s *Scene, x, y float64) Hit {
	var (
		best      Hit
		bestDepth = -1.0
	)
	for _, sp := range projectPoints(s.Camera, s.Overlays) {
		dx, dy := x-sp.x, y-sp.y
		r := sp.radius + pointSlop
		if dx*dx+dy*dy > r*r {
			continue
		}
		if bestDepth < 0 || sp.depth < bestDepth {
			best, bestDepth = Hit{Point: sp.prim.Source}, sp.depth
		}
	}
	if best.Point != nil {
		return best
	}

	for _, seg := range projectArcs(s.Camera, s.Overlays, 0, false) {
		d, _ := segmentDistance(x, y, seg.x0, seg.y0, seg.x1, seg.y1)
		if d > seg.prim.Style.StrokePx/2+arcSlop {
			continue
		}
		if bestDepth < 0 || seg.depth < bestDepth {
			best, bestDepth = Hit{Arc: seg.prim.Source}, seg.depth
		}
	}
	return best
}

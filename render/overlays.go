package render

import (
	"image"
	"math"

	"github.com/echoflaresat/natalglobe/colors"
	"github.com/echoflaresat/natalglobe/geo"
	"github.com/echoflaresat/natalglobe/overlay"
	"github.com/echoflaresat/natalglobe/sun"
	"github.com/echoflaresat/natalglobe/vectors"
)

// arcSegments is the number of straight segments used to draw one arc.
const arcSegments = 64

// PointPrim is a point marker bound to its catalog record.
type PointPrim struct {
	Source      *overlay.GeoPoint
	Style       overlay.PointStyle
	Center      vectors.Vec3
	WorldRadius float64
}

// ArcPrim is an arc stroke bound to its catalog record.
type ArcPrim struct {
	Source *overlay.GeoArc
	Style  overlay.ArcStyle
	Path   []vectors.Vec3
}

// Overlays is the set of drawable primitives for one catalog.
type Overlays struct {
	Points []PointPrim
	Arcs   []ArcPrim
}

// Bind maps every catalog record to a primitive. It runs once per session;
// the result only depends on the catalog.
func Bind(c *overlay.Catalog) Overlays {
	if c == nil {
		return Overlays{}
	}
	o := Overlays{
		Points: make([]PointPrim, 0, len(c.Points)),
		Arcs:   make([]ArcPrim, 0, len(c.Arcs)),
	}
	for i := range c.Points {
		p := &c.Points[i]
		st := overlay.PointStyleFor(p)
		o.Points = append(o.Points, PointPrim{
			Source:      p,
			Style:       st,
			Center:      geo.ToCartesian(p.Lat, p.Lng, st.Altitude),
			WorldRadius: geo.Radius * st.Radius * math.Pi / 180,
		})
	}
	for i := range c.Arcs {
		a := &c.Arcs[i]
		st := overlay.ArcStyleFor(a)
		o.Arcs = append(o.Arcs, ArcPrim{
			Source: a,
			Style:  st,
			Path:   geo.GreatCircle(a.Start(), a.End(), st.Altitude, arcSegments),
		})
	}
	return o
}

// screenPoint is a projected marker.
type screenPoint struct {
	prim   *PointPrim
	x, y   float64
	radius float64
	depth  float64
}

// screenSegment is a visible, dash-lit piece of a projected arc.
type screenSegment struct {
	prim           *ArcPrim
	x0, y0, x1, y1 float64
	t0, t1         float64
	depth          float64
}

func projectPoints(cam Camera, o Overlays) []screenPoint {
	out := make([]screenPoint, 0, len(o.Points))
	for i := range o.Points {
		p := &o.Points[i]
		if cam.Occluded(p.Center) {
			continue
		}
		x, y, depth, ok := cam.Project(p.Center)
		if !ok {
			continue
		}
		r := math.Max(1.5, p.WorldRadius*cam.PixelsPerUnit(depth))
		out = append(out, screenPoint{prim: p, x: x, y: y, radius: r, depth: depth})
	}
	return out
}

// projectArcs returns the on-screen, unoccluded segments of every arc. With
// dashed set, segments in a dash gap at phase are dropped as well.
func projectArcs(cam Camera, o Overlays, phase float64, dashed bool) []screenSegment {
	var out []screenSegment
	for i := range o.Arcs {
		a := &o.Arcs[i]
		n := len(a.Path) - 1
		for k := 0; k < n; k++ {
			t0 := float64(k) / float64(n)
			t1 := float64(k+1) / float64(n)
			if dashed && !a.Style.DashVisible((t0+t1)/2, phase) {
				continue
			}
			p0, p1 := a.Path[k], a.Path[k+1]
			if cam.Occluded(p0) || cam.Occluded(p1) {
				continue
			}
			x0, y0, d0, ok0 := cam.Project(p0)
			x1, y1, d1, ok1 := cam.Project(p1)
			if !ok0 || !ok1 {
				continue
			}
			out = append(out, screenSegment{
				prim: a, x0: x0, y0: y0, x1: x1, y1: y1,
				t0: t0, t1: t1, depth: (d0 + d1) / 2,
			})
		}
	}
	return out
}

// drawPoints paints markers as lit discs. The disc normal is approximated by
// the surface normal under the marker so that night-side markers dim.
func drawPoints(img *image.NRGBA, pts []screenPoint, light *sun.Light, selected *overlay.GeoPoint) {
	for _, sp := range pts {
		base := sp.prim.Style.Color
		if light != nil {
			base = base.Mix(light.Illuminate(base, sp.prim.Center), 0.35)
		}
		fillDisc(img, sp.x, sp.y, sp.radius, base)
		if sp.prim.Source == selected {
			strokeRing(img, sp.x, sp.y, sp.radius+2, 1.2, colors.White())
		}
	}
}

func drawArcs(img *image.NRGBA, segs []screenSegment, selected *overlay.GeoArc) {
	for _, s := range segs {
		width := s.prim.Style.StrokePx
		if s.prim.Source == selected {
			width += 1.5
		}
		strokeSegment(img, s, width)
	}
}

// blendPixel composites c over the pixel at (x,y) with coverage cov.
func blendPixel(img *image.NRGBA, x, y int, c colors.Color4, cov float64) {
	if !(image.Point{X: x, Y: y}).In(img.Rect) || cov <= 0 {
		return
	}
	dst := colors.FromStandardColor(img.NRGBAAt(x, y))
	out := dst.MixAlpha(c, cov)
	out.A = 1
	img.SetNRGBA(x, y, out.ToNRGBA())
}

func fillDisc(img *image.NRGBA, cx, cy, r float64, c colors.Color4) {
	x0, x1 := int(math.Floor(cx-r-1)), int(math.Ceil(cx+r+1))
	y0, y1 := int(math.Floor(cy-r-1)), int(math.Ceil(cy+r+1))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			d := math.Hypot(float64(x)-cx, float64(y)-cy)
			blendPixel(img, x, y, c, coverage(r-d))
		}
	}
}

func strokeRing(img *image.NRGBA, cx, cy, r, width float64, c colors.Color4) {
	x0, x1 := int(math.Floor(cx-r-width)), int(math.Ceil(cx+r+width))
	y0, y1 := int(math.Floor(cy-r-width)), int(math.Ceil(cy+r+width))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			d := math.Abs(math.Hypot(float64(x)-cx, float64(y)-cy) - r)
			blendPixel(img, x, y, c, coverage(width/2-d))
		}
	}
}

func strokeSegment(img *image.NRGBA, s screenSegment, width float64) {
	half := width / 2
	x0, x1 := int(math.Floor(math.Min(s.x0, s.x1)-half-1)), int(math.Ceil(math.Max(s.x0, s.x1)+half+1))
	y0, y1 := int(math.Floor(math.Min(s.y0, s.y1)-half-1)), int(math.Ceil(math.Max(s.y0, s.y1)+half+1))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			d, u := segmentDistance(float64(x), float64(y), s.x0, s.y0, s.x1, s.y1)
			cov := coverage(half - d)
			if cov <= 0 {
				continue
			}
			t := s.t0 + (s.t1-s.t0)*u
			blendPixel(img, x, y, s.prim.Style.ColorAt(t), cov)
		}
	}
}

// coverage turns a signed distance to an edge (positive inside) into a
// one-pixel anti-aliased coverage value.
func coverage(inside float64) float64 {
	return clamp01(inside + 0.5)
}

// segmentDistance returns the distance from (px,py) to the segment and the
// parameter of the closest point along it.
func segmentDistance(px, py, x0, y0, x1, y1 float64) (dist, u float64) {
	dx, dy := x1-x0, y1-y0
	l2 := dx*dx + dy*dy
	if l2 > 0 {
		u = clamp01(((px-x0)*dx + (py-y0)*dy) / l2)
	}
	cx, cy := x0+u*dx, y0+u*dy
	return math.Hypot(px-cx, py-cy), u
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Package overlay holds the annotated points and arcs drawn over the globe
// and the rules that map them to visual styles.
package overlay

import (
	"github.com/echoflaresat/natalglobe/colors"
	"github.com/echoflaresat/natalglobe/geo"
)

// Category classifies a point's astrological influence.
type Category string

const (
	Beneficial  Category = "beneficial"
	Challenging Category = "challenging"
	Neutral     Category = "neutral"
)

// Known reports whether c is one of the defined categories.
func (c Category) Known() bool {
	switch c {
	case Beneficial, Challenging, Neutral:
		return true
	}
	return false
}

// Weight selects an arc's emphasis tier.
type Weight string

const (
	Major Weight = "major"
	Minor Weight = "minor"
)

// Details is the free-form annotation shown in a point's detail panel.
type Details struct {
	Tags      []string
	Notes     []string
	Narrative string
}

// GeoPoint is an annotated location. Records are immutable once loaded and
// are identified by pointer.
type GeoPoint struct {
	Lat      float64
	Lng      float64
	Name     string
	Category Category
	Details  Details
}

// Position returns the point's coordinates.
func (p *GeoPoint) Position() geo.LatLng {
	return geo.LatLng{Lat: p.Lat, Lng: p.Lng}
}

// GeoArc is an annotated great-circle connection between two locations.
type GeoArc struct {
	StartLat float64
	StartLng float64
	EndLat   float64
	EndLng   float64
	Weight   Weight

	BaseColor     colors.Color4
	GradientStart colors.Color4
	GradientEnd   colors.Color4
	// HasGradient is set when both gradient ends were supplied.
	HasGradient bool

	Label     string
	Narrative string
	// Intensity is the stroke opacity in [0,1]; nil means unspecified.
	Intensity *float64
}

func (a *GeoArc) Start() geo.LatLng {
	return geo.LatLng{Lat: a.StartLat, Lng: a.StartLng}
}

func (a *GeoArc) End() geo.LatLng {
	return geo.LatLng{Lat: a.EndLat, Lng: a.EndLng}
}

// Catalog is the read-only set of overlays bound to one viewport session.
type Catalog struct {
	Points []GeoPoint
	Arcs   []GeoArc
}

// Point returns a stable pointer to the i-th point, or nil.
func (c *Catalog) Point(i int) *GeoPoint {
	if c == nil || i < 0 || i >= len(c.Points) {
		return nil
	}
	return &c.Points[i]
}

// Arc returns a stable pointer to the i-th arc, or nil.
func (c *Catalog) Arc(i int) *GeoArc {
	if c == nil || i < 0 || i >= len(c.Arcs) {
		return nil
	}
	return &c.Arcs[i]
}

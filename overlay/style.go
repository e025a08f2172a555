package overlay

import (
	"math"
	"time"

	"github.com/echoflaresat/natalglobe/colors"
)

// DefaultArcAlpha is used when an arc carries no intensity.
const DefaultArcAlpha = 0.7

var categoryColors = map[Category]colors.Color4{
	Beneficial:  colors.New(0x4A/255.0, 0xDE/255.0, 0x80/255.0, 1), // green
	Challenging: colors.New(0xF8/255.0, 0x71/255.0, 0x71/255.0, 1), // red
	Neutral:     colors.New(0x9C/255.0, 0xA3/255.0, 0xAF/255.0, 1), // gray
}

// PointStyle is how a point marker is drawn.
type PointStyle struct {
	Color colors.Color4
	// Radius is the marker radius in degrees of arc on the globe surface.
	Radius float64
	// Altitude lifts the marker above the surface, in globe radii.
	Altitude float64
}

// PointStyleFor maps a point to its marker style. Beneficial points are drawn
// larger and higher; unknown categories are white.
func PointStyleFor(p *GeoPoint) PointStyle {
	c, ok := categoryColors[p.Category]
	if !ok {
		c = colors.White()
	}
	if p.Category == Beneficial {
		return PointStyle{Color: c, Radius: 1.2, Altitude: 0.06}
	}
	return PointStyle{Color: c, Radius: 0.8, Altitude: 0.03}
}

// ArcStyle is how an arc is stroked.
type ArcStyle struct {
	// Color is the base colour with the arc's intensity as alpha.
	Color colors.Color4
	// Gradient ends, alpha-matched to Color; only used when HasGradient.
	GradientStart colors.Color4
	GradientEnd   colors.Color4
	HasGradient   bool

	// StrokePx is the stroke width in output pixels.
	StrokePx float64
	// DashLength and DashGap are fractions of the arc length.
	DashLength float64
	DashGap    float64
	// Altitude is the peak lift of the arc at its midpoint, in globe radii.
	Altitude float64
}

// ArcStyleFor maps an arc to its stroke style. Major arcs are thicker, use
// longer dashes and rise higher; anything else uses the minor tier.
func ArcStyleFor(a *GeoArc) ArcStyle {
	alpha := DefaultArcAlpha
	if a.Intensity != nil {
		alpha = *a.Intensity
	}

	s := ArcStyle{
		Color:       a.BaseColor.WithAlpha(alpha),
		HasGradient: a.HasGradient,
	}
	if a.HasGradient {
		s.GradientStart = a.GradientStart.WithAlpha(alpha)
		s.GradientEnd = a.GradientEnd.WithAlpha(alpha)
	}

	if a.Weight == Major {
		s.StrokePx, s.DashLength, s.DashGap, s.Altitude = 3.0, 0.5, 0.15, 0.35
	} else {
		s.StrokePx, s.DashLength, s.DashGap, s.Altitude = 1.5, 0.25, 0.25, 0.18
	}
	return s
}

// ColorAt returns the stroke colour at arc parameter t in [0,1].
func (s ArcStyle) ColorAt(t float64) colors.Color4 {
	if !s.HasGradient {
		return s.Color
	}
	return s.GradientStart.Mix(s.GradientEnd, t)
}

// DashPhase is the animation position in [0,1) after elapsed time, repeating
// every period. It is driven by wall time, not by the time of day.
func DashPhase(elapsed, period time.Duration) float64 {
	if period <= 0 {
		return 0
	}
	p := math.Mod(float64(elapsed)/float64(period), 1)
	if p < 0 {
		p += 1
	}
	return p
}

// DashVisible reports whether arc parameter t falls inside a dash when the
// pattern has advanced by phase of one dash cycle.
func (s ArcStyle) DashVisible(t, phase float64) bool {
	cycle := s.DashLength + s.DashGap
	if cycle <= 0 || s.DashGap <= 0 {
		return true
	}
	pos := math.Mod(t-phase*cycle, cycle)
	if pos < 0 {
		pos += cycle
	}
	return pos < s.DashLength
}

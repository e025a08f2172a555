// Package sun derives the virtual sun from a time-of-day scalar.
//
// This is not an ephemeris: the sun circles the equatorial plane at 15° per
// hour and sits on +X at solar noon (12:00).
package sun

import (
	"fmt"
	"math"

	"github.com/soniakeys/unit"

	"github.com/echoflaresat/natalglobe/colors"
	"github.com/echoflaresat/natalglobe/vectors"
)

const (
	HoursPerDay    = 24.0
	DegreesPerHour = 15.0
	Noon           = 12.0

	// LightDistance is how far from the origin the directional light is placed.
	LightDistance = 10.0
)

// TimeOfDay is an hour scalar in [0, 24). 0 and 24 denote the same instant.
type TimeOfDay float64

// Wrap folds t into [0, 24).
func (t TimeOfDay) Wrap() TimeOfDay {
	w := math.Mod(float64(t), HoursPerDay)
	if w < 0 {
		w += HoursPerDay
	}
	return TimeOfDay(w)
}

// Clamp limits t to the slider range [0, 24].
func (t TimeOfDay) Clamp() TimeOfDay {
	switch {
	case math.IsNaN(float64(t)) || t < 0:
		return 0
	case t > HoursPerDay:
		return HoursPerDay
	}
	return t
}

// String formats t as HH:MM, rounding minutes and carrying a full hour.
func (t TimeOfDay) String() string {
	c := float64(t.Clamp())
	h := math.Floor(c)
	m := math.Round((c - h) * 60)
	if m >= 60 {
		h++
		m = 0
	}
	return fmt.Sprintf("%02d:%02d", int(h), int(m))
}

// Angle returns the sun's hour angle relative to solar noon, in [-180, 180).
func Angle(t TimeOfDay) unit.Angle {
	return unit.AngleFromDeg((float64(t.Wrap()) - Noon) * DegreesPerHour)
}

// Direction maps a time of day to the unit vector pointing at the sun.
func Direction(t TimeOfDay) vectors.Vec3 {
	a := Angle(t)
	return vectors.Vec3{X: a.Cos(), Y: 0, Z: a.Sin()}
}

// Light is the scene's directional sun light plus its ambient fill.
// The controller keeps a pointer to it instead of searching the scene.
type Light struct {
	Position  vectors.Vec3
	Target    vectors.Vec3
	Color     colors.Color4
	Intensity float64
	Ambient   colors.Color4
}

// NewLight returns a white sun light of intensity 0.65 aimed from dir at the
// origin, with a 0x222222 ambient term.
func NewLight(dir vectors.Vec3) *Light {
	l := &Light{
		Color:     colors.White(),
		Intensity: 0.65,
		Ambient:   colors.FromHex24(0x222222),
	}
	l.Point(dir)
	return l
}

// Point moves the light so that it shines from dir toward its target.
func (l *Light) Point(dir vectors.Vec3) {
	l.Position = l.Target.Add(dir.Normalize().Scale(LightDistance))
}

// Direction returns the unit vector from the target toward the light.
func (l *Light) Direction() vectors.Vec3 {
	return l.Position.Sub(l.Target).Normalize()
}

// Illuminate returns the Lambert-lit colour of base for a surface normal.
func (l *Light) Illuminate(base colors.Color4, normal vectors.Vec3) colors.Color4 {
	diffuse := math.Max(0, normal.Normalize().Dot(l.Direction())) * l.Intensity
	lit := l.Ambient.Add(l.Color.Scale(diffuse))
	return colors.Color4{
		R: base.R * lit.R,
		G: base.G * lit.G,
		B: base.B * lit.B,
		A: base.A,
	}
}

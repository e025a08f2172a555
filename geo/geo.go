// Package geo maps geographic coordinates onto the globe's scene frame.
//
// The frame is Y-up: the north pole lies on +Y, longitude 0 on +Z and
// longitude 90°E on +X. Altitudes are fractions of the globe radius.
package geo

import (
	"math"

	"github.com/echoflaresat/natalglobe/vectors"
)

// Radius is the globe radius in scene units.
const Radius = 100.0

// LatLng is a geographic position in degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// ToCartesian returns the scene position of (lat, lng) at the given altitude
// above the surface, expressed in globe radii.
func ToCartesian(latDeg, lngDeg, altitude float64) vectors.Vec3 {
	phi := (90 - latDeg) * math.Pi / 180
	theta := (90 - lngDeg) * math.Pi / 180
	r := Radius * (1 + altitude)
	return vectors.Vec3{
		X: r * math.Sin(phi) * math.Cos(theta),
		Y: r * math.Cos(phi),
		Z: r * math.Sin(phi) * math.Sin(theta),
	}
}

// FromCartesian is the inverse of ToCartesian. The altitude is returned in
// globe radii; the zero vector maps to (0, 0, -1).
func FromCartesian(p vectors.Vec3) (latDeg, lngDeg, altitude float64) {
	r := p.Norm()
	if r == 0 {
		return 0, 0, -1
	}
	latDeg = 90 - math.Acos(clamp(p.Y/r, -1, 1))*180/math.Pi
	lngDeg = NormalizeLng(90 - math.Atan2(p.Z, p.X)*180/math.Pi)
	return latDeg, lngDeg, r/Radius - 1
}

// NormalizeLng wraps a longitude into [-180, 180).
func NormalizeLng(lng float64) float64 {
	lng = math.Mod(lng+180, 360)
	if lng < 0 {
		lng += 360
	}
	return lng - 180
}

// GreatCircle samples n+1 positions from a to b along the great circle,
// lifted above the surface by lift*sin(πs) radii at parameter s.
func GreatCircle(a, b LatLng, lift float64, n int) []vectors.Vec3 {
	if n < 1 {
		n = 1
	}
	ua := ToCartesian(a.Lat, a.Lng, 0).Normalize()
	ub := ToCartesian(b.Lat, b.Lng, 0).Normalize()

	out := make([]vectors.Vec3, 0, n+1)
	for i := 0; i <= n; i++ {
		s := float64(i) / float64(n)
		dir := vectors.Slerp(ua, ub, s).Normalize()
		alt := lift * math.Sin(math.Pi*s)
		out = append(out, dir.Scale(Radius*(1+alt)))
	}
	return out
}

// AngularDistance returns the central angle between a and b in degrees.
func AngularDistance(a, b LatLng) float64 {
	return ToCartesian(a.Lat, a.Lng, 0).Angle(ToCartesian(b.Lat, b.Lng, 0)) * 180 / math.Pi
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

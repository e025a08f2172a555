// Package shading blends the globe's night and day textures across a soft
// terminator band.
package shading

import (
	"math"

	"github.com/echoflaresat/natalglobe/colors"
	"github.com/echoflaresat/natalglobe/geo"
	"github.com/echoflaresat/natalglobe/vectors"
)

// Terminator band edges in cosine space.
const (
	BandLow  = -0.2
	BandHigh = 0.2
)

// Sampler returns a texel for a geographic position in degrees.
type Sampler interface {
	Sample(latDeg, lngDeg float64) colors.Color4
}

// Smoothstep performs a Hermite interpolation between 0 and 1 across [edge0, edge1].
// Returns 0 if x < edge0, 1 if x > edge1.
func Smoothstep(edge0, edge1, x float64) float64 {
	// Avoid division by zero
	if edge0 == edge1 {
		if x < edge0 {
			return 0.0
		}
		return 1.0
	}

	t := Clip((x-edge0)/(edge1-edge0), 0.0, 1.0)
	return t * t * (3.0 - 2.0*t)
}

// Clip clamps x into the inclusive range [min, max].
func Clip(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

// MixFactor is the day weight for a surface whose normal makes the given
// cosine with the sun direction.
func MixFactor(cosAngle float64) float64 {
	return Smoothstep(BandLow, BandHigh, cosAngle)
}

// CosAngle returns dot(normalize(worldPos), normalize(sunDir)).
func CosAngle(worldPos, sunDir vectors.Vec3) float64 {
	return worldPos.Normalize().Dot(sunDir.Normalize())
}

// Blend returns lerp(night, day, MixFactor(cosAngle)).
func Blend(night, day colors.Color4, cosAngle float64) colors.Color4 {
	return night.Mix(day, MixFactor(cosAngle))
}

// Uniforms is the per-frame constant state of the globe material.
// SunDirection only changes when the time of day does.
type Uniforms struct {
	SunDirection vectors.Vec3
	Day          Sampler
	Night        Sampler
}

// SetSunDirection stores the normalized direction.
func (u *Uniforms) SetSunDirection(dir vectors.Vec3) {
	u.SunDirection = dir.Normalize()
}

// Material shades globe surface points from a snapshot of Uniforms.
type Material struct {
	Uniforms Uniforms
}

// Shade returns the terminator-blended colour at a world-space surface point.
func (m Material) Shade(worldPos vectors.Vec3) colors.Color4 {
	lat, lng, _ := geo.FromCartesian(worldPos)
	day := sample(m.Uniforms.Day, lat, lng, colors.White())
	night := sample(m.Uniforms.Night, lat, lng, colors.Black())
	return Blend(night, day, CosAngle(worldPos, m.Uniforms.SunDirection))
}

// Light returns the day weight at worldPos without sampling textures.
func (m Material) Light(worldPos vectors.Vec3) float64 {
	return MixFactor(CosAngle(worldPos, m.Uniforms.SunDirection))
}

func sample(s Sampler, lat, lng float64, fallback colors.Color4) colors.Color4 {
	if s == nil || math.IsNaN(lat) {
		return fallback
	}
	return s.Sample(lat, lng)
}

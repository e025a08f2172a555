package render

import (
	"math"

	"github.com/echoflaresat/natalglobe/geo"
	"github.com/echoflaresat/natalglobe/vectors"
)

// RayContext carries per-ray state needed by the globe shader.
// Each worker owns one; it is not safe to share.
type RayContext struct {
	Origin        vectors.Vec3
	RayDirection  vectors.Vec3
	DistToCenter  float64
	T             float64
	HitPoint      vectors.Vec3
	SurfaceNormal vectors.Vec3
	ViewDotNormal float64
}

func NewRayContext(origin vectors.Vec3) *RayContext {
	return &RayContext{Origin: origin}
}

// SetRayDirection updates the per-ray fields for a new view direction.
func (c *RayContext) SetRayDirection(rayDirection vectors.Vec3) {
	c.RayDirection = rayDirection

	// Closest approach of the ray to the origin (globe centre).
	dotOriginRay := c.Origin.Dot(c.RayDirection)
	closestPointToCenter := c.Origin.Sub(c.RayDirection.Scale(dotOriginRay))
	c.DistToCenter = closestPointToCenter.Norm()

	c.T = intersectSphere(c.Origin, c.RayDirection, geo.Radius)
	if c.T <= 0 {
		return
	}

	c.HitPoint = c.Origin.Add(c.RayDirection.Scale(c.T))
	c.SurfaceNormal = c.HitPoint.Normalize()
	c.ViewDotNormal = -c.SurfaceNormal.Dot(c.RayDirection)
}

// Hit reports whether the ray meets the globe in front of the camera.
func (c *RayContext) Hit() bool {
	return c.T > 0
}

// intersectSphere calculates the intersection of a ray (O + t*D) with a
// sphere of radius r centred at the origin. D must be a unit vector.
// Returns the closest positive t, or -1.0 if there is no intersection.
func intersectSphere(O, D vectors.Vec3, r float64) float64 {
	// b = 2*O·D, c = O·O - r^2, solve t^2 + b t + c = 0
	b := 2.0 * O.Dot(D)
	c := O.Dot(O) - r*r

	discriminant := b*b - 4.0*c
	if discriminant < 0 {
		return -1.0
	}

	sqrtDisc := math.Sqrt(discriminant)
	t1 := (-b - sqrtDisc) / 2.0
	t2 := (-b + sqrtDisc) / 2.0

	if t1 > 0 {
		return t1
	}
	if t2 > 0 {
		return t2
	}
	return -1.0
}

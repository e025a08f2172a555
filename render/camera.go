package render

import (
	"math"

	"github.com/echoflaresat/natalglobe/geo"
	"github.com/echoflaresat/natalglobe/vectors"
)

// Altitude bounds in globe radii (camera distance 200..800 scene units).
const (
	MinAltitude     = 1.0
	MaxAltitude     = 7.0
	DefaultAltitude = 2.5
)

// PointOfView places an orbit camera above (Lat, Lng) at Altitude globe radii
// from the surface, looking at the globe centre.
type PointOfView struct {
	Lat      float64
	Lng      float64
	Altitude float64
}

// ClampAltitude limits the altitude to the allowed camera distance.
func (p PointOfView) ClampAltitude() PointOfView {
	p.Altitude = math.Max(MinAltitude, math.Min(MaxAltitude, p.Altitude))
	return p
}

// Camera models a pinhole camera in the globe's scene frame.
type Camera struct {
	POV        PointOfView
	FOVDeg     float64
	TanHalfFOV float64
	Width      int
	Height     int
	Position   vectors.Vec3
	Forward    vectors.Vec3
	Right      vectors.Vec3
	Up         vectors.Vec3
}

// NewCamera builds a camera for pov with a vertical field of view fovDeg and
// an output surface of width x height pixels.
func NewCamera(pov PointOfView, fovDeg float64, width, height int) Camera {
	pos := geo.ToCartesian(pov.Lat, pov.Lng, pov.Altitude)

	// Basis vectors
	fwd := pos.Normalize().Scale(-1.0) // look toward the globe centre
	globalUp := vectors.Vec3{X: 0, Y: 1, Z: 0}
	right := fwd.Cross(globalUp)
	if right.Norm() < 1e-6 {
		// Straight above a pole: keep longitude 0 at the bottom of the frame.
		right = vectors.Vec3{X: 1, Y: 0, Z: 0}
	}
	right = right.Normalize()
	up := right.Cross(fwd).Normalize()

	return Camera{
		POV:        pov,
		FOVDeg:     fovDeg,
		TanHalfFOV: math.Tan(fovDeg * math.Pi / 360.0),
		Width:      width,
		Height:     height,
		Position:   pos,
		Forward:    fwd,
		Right:      right,
		Up:         up,
	}
}

func (c Camera) aspect() float64 {
	if c.Height == 0 {
		return 1
	}
	return float64(c.Width) / float64(c.Height)
}

// ComputeRay returns the normalized viewing direction through pixel (i,j).
// i,j can be fractional (for supersampling); pixel centres sit at +0.5.
func (c Camera) ComputeRay(i, j float64) vectors.Vec3 {
	w := float64(c.Width)
	h := float64(c.Height)

	// NDC in [-1, +1] (centered), flip Y to make +up in screen space.
	xNDC := (i+0.5)/w*2 - 1
	yNDC := 1 - (j+0.5)/h*2

	xPlane := xNDC * c.TanHalfFOV * c.aspect()
	yPlane := yNDC * c.TanHalfFOV

	dir := c.Right.Scale(xPlane).
		Add(c.Up.Scale(yPlane)).
		Add(c.Forward)

	return dir.Normalize()
}

// Project maps a scene position to pixel coordinates. depth is the distance
// along the view axis; ok is false for points behind the camera.
func (c Camera) Project(p vectors.Vec3) (x, y, depth float64, ok bool) {
	rel := p.Sub(c.Position)
	depth = rel.Dot(c.Forward)
	if depth <= 1e-9 {
		return 0, 0, depth, false
	}
	xPlane := rel.Dot(c.Right) / depth
	yPlane := rel.Dot(c.Up) / depth

	xNDC := xPlane / (c.TanHalfFOV * c.aspect())
	yNDC := yPlane / c.TanHalfFOV

	x = (xNDC+1)/2*float64(c.Width) - 0.5
	y = (1-yNDC)/2*float64(c.Height) - 0.5
	return x, y, depth, true
}

// PixelsPerUnit is the on-screen size of one scene unit at the given depth.
func (c Camera) PixelsPerUnit(depth float64) float64 {
	if depth <= 0 {
		return 0
	}
	return float64(c.Height) / (2 * c.TanHalfFOV * depth)
}

// Occluded reports whether the globe hides p from the camera.
func (c Camera) Occluded(p vectors.Vec3) bool {
	toP := p.Sub(c.Position)
	dist := toP.Norm()
	if dist == 0 {
		return false
	}
	t := intersectSphere(c.Position, toP.Scale(1/dist), geo.Radius)
	return t > 0 && t < dist-1e-6
}

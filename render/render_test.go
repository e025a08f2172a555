package render

import (
	"context"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echoflaresat/natalglobe/colors"
	"github.com/echoflaresat/natalglobe/geo"
	"github.com/echoflaresat/natalglobe/overlay"
	"github.com/echoflaresat/natalglobe/shading"
	"github.com/echoflaresat/natalglobe/sun"
	"github.com/echoflaresat/natalglobe/texture"
	"github.com/echoflaresat/natalglobe/vectors"
)

func floatPtr(v float64) *float64 { return &v }

func testCatalog() *overlay.Catalog {
	return &overlay.Catalog{
		Points: []overlay.GeoPoint{
			{Name: "Origin", Lat: 0, Lng: 0, Category: overlay.Beneficial},
			{Name: "Antipode", Lat: 0, Lng: 180, Category: overlay.Neutral},
		},
		Arcs: []overlay.GeoArc{
			{
				StartLat: 20, StartLng: -10, EndLat: 20, EndLng: 10,
				Weight: overlay.Major, BaseColor: colors.New(0.2, 0.83, 0.6, 1),
				Intensity: floatPtr(0.9),
			},
		},
	}
}

func testScene(pov PointOfView, t sun.TimeOfDay, w, h int, c *overlay.Catalog) *Scene {
	dir := sun.Direction(t)
	m := shading.Material{Uniforms: shading.Uniforms{
		Day:   texture.Solid(colors.White()),
		Night: texture.Solid(colors.Black()),
	}}
	m.Uniforms.SetSunDirection(dir)
	return &Scene{
		Camera:     NewCamera(pov, 50, w, h),
		Material:   m,
		Light:      sun.NewLight(dir),
		Atmosphere: DefaultAtmosphere(),
		Overlays:   Bind(c),
	}
}

func TestCameraProjectInvertsRay(t *testing.T) {
	cam := NewCamera(PointOfView{Lat: 30, Lng: -40, Altitude: DefaultAltitude}, 50, 320, 200)

	for _, px := range [][2]float64{{0, 0}, {159.5, 99.5}, {10, 180}, {319, 1}} {
		dir := cam.ComputeRay(px[0], px[1])
		assert.InDelta(t, 1.0, dir.Norm(), 1e-12)

		x, y, depth, ok := cam.Project(cam.Position.Add(dir.Scale(300)))
		require.True(t, ok)
		assert.Greater(t, depth, 0.0)
		assert.InDelta(t, px[0], x, 1e-9)
		assert.InDelta(t, px[1], y, 1e-9)
	}
}

func TestCameraLooksAtCentre(t *testing.T) {
	cam := NewCamera(PointOfView{Lat: 10, Lng: 20, Altitude: 2.5}, 50, 101, 81)

	assert.InDelta(t, geo.Radius*3.5, cam.Position.Norm(), 1e-9)
	fwd := cam.ComputeRay(50, 40)
	assert.InDelta(t, 0, fwd.Sub(cam.Forward).Norm(), 1e-12)

	x, y, _, ok := cam.Project(vectors.Zero())
	require.True(t, ok)
	assert.InDelta(t, 50, x, 1e-9)
	assert.InDelta(t, 40, y, 1e-9)

	// Behind the camera.
	_, _, _, ok = cam.Project(cam.Position.Scale(2))
	assert.False(t, ok)
}

func TestCameraOverPole(t *testing.T) {
	cam := NewCamera(PointOfView{Lat: 90, Lng: 0, Altitude: 2}, 50, 10, 10)
	for _, v := range []vectors.Vec3{cam.Forward, cam.Right, cam.Up} {
		assert.False(t, math.IsNaN(v.X+v.Y+v.Z))
		assert.InDelta(t, 1.0, v.Norm(), 1e-9)
	}
}

func TestClampAltitude(t *testing.T) {
	assert.Equal(t, MinAltitude, PointOfView{Altitude: 0.2}.ClampAltitude().Altitude)
	assert.Equal(t, MaxAltitude, PointOfView{Altitude: 40}.ClampAltitude().Altitude)
	assert.Equal(t, 3.0, PointOfView{Altitude: 3}.ClampAltitude().Altitude)
}

func TestOccluded(t *testing.T) {
	cam := NewCamera(PointOfView{Lat: 0, Lng: 0, Altitude: 2.5}, 50, 10, 10)
	assert.False(t, cam.Occluded(geo.ToCartesian(0, 0, 0.01)))
	assert.True(t, cam.Occluded(geo.ToCartesian(0, 180, 0.01)))
}

func TestIntersectSphere(t *testing.T) {
	o := vectors.Vec3{Z: 300}
	assert.InDelta(t, 200, intersectSphere(o, vectors.Vec3{Z: -1}, geo.Radius), 1e-9)
	assert.Equal(t, -1.0, intersectSphere(o, vectors.Vec3{Z: 1}, geo.Radius))
	assert.Equal(t, -1.0, intersectSphere(o, vectors.Vec3{X: 1}, geo.Radius))
}

func TestSupersamplingOffsets(t *testing.T) {
	assert.Equal(t, [][2]float64{{0, 0}}, GenerateSupersamplingOffsets(0))
	offs := GenerateSupersamplingOffsets(2)
	require.Len(t, offs, 4)
	assert.Equal(t, [2]float64{-0.25, -0.25}, offs[0])
	assert.Equal(t, [2]float64{0.25, 0.25}, offs[3])
}

func TestRenderShadesSunFacingSide(t *testing.T) {
	const w, h = 64, 48
	cases := []struct {
		name string
		lng  float64
		want uint8
	}{
		{"day", 90, 255},
		{"night", -90, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := testScene(PointOfView{Lat: 0, Lng: c.lng, Altitude: 2.5}, 12, w, h, nil)
			s.Atmosphere = Atmosphere{}
			dst := image.NewNRGBA(image.Rect(0, 0, w, h))
			require.NoError(t, Renderer{Workers: 2}.Render(context.Background(), s, dst))

			centre := dst.NRGBAAt(w/2, h/2)
			assert.Equal(t, c.want, centre.R)
			assert.Equal(t, uint8(255), centre.A)

			assert.Equal(t, uint8(0), dst.NRGBAAt(0, 0).G)
		})
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	const w, h = 96, 72
	c := testCatalog()
	render := func(workers int) *image.NRGBA {
		s := testScene(PointOfView{Lat: 15, Lng: 5, Altitude: 2.5}, 15.5, w, h, c)
		s.SelectedPoint = c.Point(0)
		s.Label = "15:30"
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		require.NoError(t, Renderer{Workers: workers, Supersample: 2}.Render(context.Background(), s, dst))
		return dst
	}

	assert.Equal(t, render(1).Pix, render(4).Pix)
}

func TestRenderRejectsMismatchedDestination(t *testing.T) {
	s := testScene(PointOfView{Altitude: 2.5}, 12, 32, 32, nil)
	err := Renderer{}.Render(context.Background(), s, image.NewNRGBA(image.Rect(0, 0, 16, 32)))
	assert.Error(t, err)
}

func TestRenderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := testScene(PointOfView{Altitude: 2.5}, 12, 32, 32, nil)
	err := Renderer{Workers: 2}.Render(ctx, s, image.NewNRGBA(image.Rect(0, 0, 32, 32)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBindKeepsCatalogIdentity(t *testing.T) {
	c := testCatalog()
	o := Bind(c)
	require.Len(t, o.Points, 2)
	require.Len(t, o.Arcs, 1)
	assert.Same(t, c.Point(1), o.Points[1].Source)
	assert.Same(t, c.Arc(0), o.Arcs[0].Source)
	assert.Len(t, o.Arcs[0].Path, arcSegments+1)

	assert.Equal(t, Overlays{}, Bind(nil))
}

func TestBindIsRepeatable(t *testing.T) {
	c := testCatalog()
	assert.Equal(t, Bind(c), Bind(c))
}

func TestPick(t *testing.T) {
	const w, h = 320, 240
	c := testCatalog()
	s := testScene(PointOfView{Lat: 0, Lng: 0, Altitude: 2.5}, 12, w, h, c)

	pointCentre := s.Overlays.Points[0].Center
	px, py, _, ok := s.Camera.Project(pointCentre)
	require.True(t, ok)
	hit := Pick(s, px+1, py)
	assert.Same(t, c.Point(0), hit.Point)
	assert.Nil(t, hit.Arc)

	// The far-side point is hidden by the globe.
	for _, sp := range projectPoints(s.Camera, s.Overlays) {
		assert.NotSame(t, c.Point(1), sp.prim.Source)
	}

	path := s.Overlays.Arcs[0].Path
	x0, y0, _, ok0 := s.Camera.Project(path[5])
	x1, y1, _, ok1 := s.Camera.Project(path[6])
	require.True(t, ok0 && ok1)
	hit = Pick(s, (x0+x1)/2, (y0+y1)/2+2)
	assert.Same(t, c.Arc(0), hit.Arc)
	assert.Nil(t, hit.Point)

	assert.True(t, Pick(s, 2, 2).Empty())
}

func TestPickArcIgnoresDashPhase(t *testing.T) {
	const w, h = 320, 240
	c := testCatalog()
	s := testScene(PointOfView{Lat: 0, Lng: 0, Altitude: 2.5}, 12, w, h, c)
	arc := s.Overlays.Arcs[0]
	n := len(arc.Path) - 1

	for k := 3; k < n-3; k++ {
		x0, y0, _, ok0 := s.Camera.Project(arc.Path[k])
		x1, y1, _, ok1 := s.Camera.Project(arc.Path[k+1])
		require.True(t, ok0 && ok1)
		mid := (float64(k) + 0.5) / float64(n)

		gaps := 0
		for step := 0; step < 20; step++ {
			s.DashPhase = float64(step) / 20
			if !arc.Style.DashVisible(mid, s.DashPhase) {
				gaps++
			}
			hit := Pick(s, (x0+x1)/2, (y0+y1)/2)
			assert.Same(t, c.Arc(0), hit.Arc, "segment %d phase %.2f", k, s.DashPhase)
		}
		assert.Positive(t, gaps, "segment %d never falls in a dash gap", k)
	}
}

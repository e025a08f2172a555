package viewport

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echoflaresat/natalglobe/colors"
	"github.com/echoflaresat/natalglobe/geo"
	"github.com/echoflaresat/natalglobe/observability"
	"github.com/echoflaresat/natalglobe/overlay"
	"github.com/echoflaresat/natalglobe/render"
	"github.com/echoflaresat/natalglobe/sun"
)

const (
	frameW = 320
	frameH = 240
)

var t0 = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func floatPtr(v float64) *float64 { return &v }

func testCatalog() *overlay.Catalog {
	return &overlay.Catalog{
		Points: []overlay.GeoPoint{
			{Name: "Gulf of Guinea", Lat: 0, Lng: 0, Category: overlay.Beneficial,
				Details: overlay.Details{Tags: []string{"jupiter"}, Narrative: "expansion"}},
			{Name: "Pacific", Lat: 0, Lng: 180, Category: overlay.Neutral},
		},
		Arcs: []overlay.GeoArc{
			{
				StartLat: 20, StartLng: -10, EndLat: 20, EndLng: 10,
				Weight: overlay.Major, BaseColor: colors.New(0.2, 0.83, 0.6, 1),
				Intensity: floatPtr(0.9), Label: "Sun trine Moon",
			},
		},
	}
}

var origin = Input{
	Date:     time.Date(1990, 4, 12, 8, 30, 0, 0, time.UTC),
	Location: Location{Lat: 0, Lng: 0, Name: "Null Island"},
}

func newController(t *testing.T, w Window, mod func(*Options)) (*Controller, *clock) {
	t.Helper()
	clk := &clock{now: t0}
	opts := Options{Renderer: render.Renderer{Workers: 2}, Now: clk.Now}
	if mod != nil {
		mod(&opts)
	}
	c := New(w, opts)
	t.Cleanup(func() { _ = c.Dispose() })
	return c, clk
}

func TestInitWithoutSurfaceIsNoop(t *testing.T) {
	c, _ := newController(t, nil, nil)
	ok, err := c.Init(origin, testCatalog())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Uninitialized, c.State())

	win := NewEventWindow(0, 0)
	c, _ = newController(t, win, nil)
	ok, err = c.Init(origin, testCatalog())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, win.ListenerCount())

	win.Resize(frameW, frameH)
	ok, err = c.Init(origin, testCatalog())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Initialized, c.State())
	assert.Equal(t, 1, win.ListenerCount())
}

func TestNewInputWithoutSurfaceEndsSession(t *testing.T) {
	win := NewEventWindow(frameW, frameH)
	c, _ := newController(t, win, nil)
	_, err := c.Init(origin, testCatalog())
	require.NoError(t, err)

	win.Resize(0, 0)
	lisbon := origin
	lisbon.Location = Location{Lat: 38.7, Lng: -9.1, Name: "Lisbon"}
	ok, err := c.Init(lisbon, testCatalog())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Uninitialized, c.State())
	assert.Nil(t, c.Session())
	assert.Equal(t, 0, win.ListenerCount())

	win.Resize(frameW, frameH)
	ok, err = c.Init(lisbon, testCatalog())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Lisbon", c.Session().Input.Location.Name)
	assert.InDelta(t, 38.7, c.PointOfView().Lat, 1e-12)
	assert.Equal(t, 1, win.ListenerCount())
}

func TestResizeListenerInvariant(t *testing.T) {
	win := NewEventWindow(frameW, frameH)
	c, _ := newController(t, win, nil)
	cat := testCatalog()

	ok, err := c.Init(origin, cat)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, win.ListenerCount())
	first := c.Session().ID

	// Same input: nothing to do.
	ok, err = c.Init(origin, cat)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, win.ListenerCount())
	assert.Equal(t, first, c.Session().ID)

	// New identity: full rebuild, still one listener.
	moved := origin
	moved.Location = Location{Lat: 38.7, Lng: -9.1, Name: "Lisbon"}
	ok, err = c.Init(moved, cat)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, win.ListenerCount())
	assert.NotEqual(t, first, c.Session().ID)

	require.NoError(t, c.Dispose())
	assert.Equal(t, Disposed, c.State())
	assert.Equal(t, 0, win.ListenerCount())
	assert.Nil(t, c.Session())
	require.NoError(t, c.Dispose())
	assert.Equal(t, 0, win.ListenerCount())

	// Re-supplying the same input after dispose rebuilds a working viewport.
	ok, err = c.Init(origin, cat)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, Initialized, c.State())
	assert.Equal(t, 1, win.ListenerCount())
	frame, err := c.Tick(t0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, frameW, frameH), frame.Rect)
}

func TestDisposeBeforeInit(t *testing.T) {
	win := NewEventWindow(frameW, frameH)
	c, _ := newController(t, win, nil)
	require.NoError(t, c.Dispose())
	assert.Equal(t, Disposed, c.State())
	assert.Equal(t, 0, win.ListenerCount())
}

func TestRepeatedInitIsDeterministic(t *testing.T) {
	cat := testCatalog()
	frame := func() ([]byte, render.PointOfView) {
		c, _ := newController(t, NewEventWindow(frameW, frameH), nil)
		ok, err := c.Init(origin, cat)
		require.NoError(t, err)
		require.True(t, ok)
		f, err := c.Tick(t0)
		require.NoError(t, err)
		return append([]byte(nil), f.Pix...), c.PointOfView()
	}

	pixA, povA := frame()
	pixB, povB := frame()
	assert.Equal(t, povA, povB)
	assert.Equal(t, render.PointOfView{Lat: 0, Lng: 0, Altitude: render.DefaultAltitude}, povA)
	assert.Equal(t, pixA, pixB)
}

func TestUpdateTimeReusesLightAndFrame(t *testing.T) {
	c, _ := newController(t, NewEventWindow(frameW, frameH), nil)
	_, err := c.Init(origin, testCatalog())
	require.NoError(t, err)

	light := c.Light()
	before, err := c.Tick(t0)
	require.NoError(t, err)

	c.UpdateTime(18)
	assert.Same(t, light, c.Light())
	x, y, z := c.SunDirection()
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, 0, y, 1e-12)
	assert.InDelta(t, 1, z, 1e-12)
	assert.InDelta(t, 0, light.Direction().Sub(sun.Direction(18)).Norm(), 1e-12)

	after, err := c.Tick(t0)
	require.NoError(t, err)
	assert.Same(t, before, after)
}

func TestTimeBeforeInitIsApplied(t *testing.T) {
	c, _ := newController(t, NewEventWindow(frameW, frameH), nil)
	c.UpdateTime(6)
	c.UpdateTime(30)
	assert.Equal(t, sun.TimeOfDay(24), c.Time())

	c.UpdateTime(6)
	_, err := c.Init(origin, testCatalog())
	require.NoError(t, err)
	x, _, z := c.SunDirection()
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, -1, z, 1e-12)
}

func TestResizeReallocatesFrame(t *testing.T) {
	win := NewEventWindow(frameW, frameH)
	c, _ := newController(t, win, nil)
	_, err := c.Init(origin, testCatalog())
	require.NoError(t, err)

	win.Resize(200, 100)
	frame, err := c.Tick(t0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), frame.Rect)

	require.NoError(t, c.Dispose())
	assert.NotPanics(t, func() { win.Resize(50, 50) })
}

func pointPixel(t *testing.T, c *Controller, p *overlay.GeoPoint) (float64, float64) {
	t.Helper()
	cam := render.NewCamera(c.PointOfView(), 50, frameW, frameH)
	x, y, _, ok := cam.Project(geo.ToCartesian(p.Lat, p.Lng, overlay.PointStyleFor(p).Altitude))
	require.True(t, ok)
	return x, y
}

func arcPixel(t *testing.T, c *Controller, cat *overlay.Catalog) (float64, float64) {
	t.Helper()
	cam := render.NewCamera(c.PointOfView(), 50, frameW, frameH)
	path := render.Bind(cat).Arcs[0].Path
	x0, y0, _, ok0 := cam.Project(path[5])
	x1, y1, _, ok1 := cam.Project(path[6])
	require.True(t, ok0 && ok1)
	return (x0 + x1) / 2, (y0 + y1) / 2
}

func TestArcPickSteadyAcrossDashPeriod(t *testing.T) {
	c, clk := newController(t, NewEventWindow(frameW, frameH), func(o *Options) {
		o.DashPeriod = 2 * time.Second
	})
	cat := testCatalog()
	_, err := c.Init(origin, cat)
	require.NoError(t, err)

	ax, ay := arcPixel(t, c, cat)
	for i := 0; i < 20; i++ {
		clk.now = t0.Add(time.Duration(i) * 100 * time.Millisecond)
		assert.True(t, c.Hover(ax, ay), "hover at +%dms", i*100)
		hit, err := c.Click(ax, ay)
		require.NoError(t, err)
		assert.Same(t, cat.Arc(0), hit.Arc, "click at +%dms", i*100)
	}
}

func TestClickFillsIndependentSlots(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewViewportCollector(reg)
	require.NoError(t, err)
	c, _ := newController(t, NewEventWindow(frameW, frameH), func(o *Options) { o.Metrics = metrics })
	cat := testCatalog()
	_, err = c.Init(origin, cat)
	require.NoError(t, err)

	ax, ay := arcPixel(t, c, cat)
	hit, err := c.Click(ax, ay)
	require.NoError(t, err)
	assert.Same(t, cat.Arc(0), hit.Arc)

	px, py := pointPixel(t, c, cat.Point(0))
	hit, err = c.Click(px, py)
	require.NoError(t, err)
	assert.Same(t, cat.Point(0), hit.Point)

	sel := c.Selection()
	assert.Same(t, cat.Point(0), sel.Point())
	assert.Same(t, cat.Arc(0), sel.Arc())

	// Empty space does not deselect.
	hit, err = c.Click(1, 1)
	require.NoError(t, err)
	assert.True(t, hit.Empty())
	sel = c.Selection()
	assert.NotNil(t, sel.Point())
	assert.NotNil(t, sel.Arc())

	c.DismissPoint()
	sel = c.Selection()
	assert.Nil(t, sel.Point())
	assert.Same(t, cat.Arc(0), sel.Arc())

	panel, ok := sel.ArcPanel()
	require.True(t, ok)
	assert.Equal(t, "Sun trine Moon", panel.Title)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Picks.WithLabelValues("point")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Picks.WithLabelValues("arc")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Picks.WithLabelValues("none")))
}

func TestHoverArcAffordance(t *testing.T) {
	c, _ := newController(t, NewEventWindow(frameW, frameH), nil)
	cat := testCatalog()
	_, err := c.Init(origin, cat)
	require.NoError(t, err)

	ax, ay := arcPixel(t, c, cat)
	assert.True(t, c.Hover(ax, ay))

	px, py := pointPixel(t, c, cat.Point(0))
	assert.False(t, c.Hover(px, py))

	// Hover never touches selection.
	sel := c.Selection()
	assert.Nil(t, sel.Point())
	assert.Nil(t, sel.Arc())
}

func TestFlyToTakesShortestPathAndKeepsAltitude(t *testing.T) {
	c, _ := newController(t, NewEventWindow(frameW, frameH), nil)
	start := origin
	start.Location = Location{Lat: 0, Lng: 170}
	_, err := c.Init(start, testCatalog())
	require.NoError(t, err)
	require.NoError(t, c.Zoom(1))

	require.NoError(t, c.FlyTo(0, -170))
	_, err = c.Tick(t0.Add(500 * time.Millisecond))
	require.NoError(t, err)
	mid := c.PointOfView()
	assert.InDelta(t, 180, math.Abs(mid.Lng), 1e-9)
	assert.InDelta(t, 3.5, mid.Altitude, 1e-12)

	// Time updates do not interrupt the flight.
	c.UpdateTime(3)

	_, err = c.Tick(t0.Add(time.Second))
	require.NoError(t, err)
	end := c.PointOfView()
	assert.InDelta(t, -170, end.Lng, 1e-9)
	assert.InDelta(t, 0, end.Lat, 1e-9)
	assert.InDelta(t, 3.5, end.Altitude, 1e-12)
}

func TestFlyToIsSuperseded(t *testing.T) {
	c, clk := newController(t, NewEventWindow(frameW, frameH), nil)
	cat := testCatalog()
	_, err := c.Init(origin, cat)
	require.NoError(t, err)

	require.NoError(t, c.FlyTo(40, 40))
	clk.now = t0.Add(300 * time.Millisecond)
	_, err = c.Tick(clk.now)
	require.NoError(t, err)

	require.NoError(t, c.FlyToPoint(cat.Point(1)))
	_, err = c.Tick(clk.now.Add(time.Second))
	require.NoError(t, err)
	pov := c.PointOfView()
	assert.InDelta(t, 0, pov.Lat, 1e-9)
	assert.InDelta(t, 180, math.Abs(pov.Lng), 1e-9)
	assert.Equal(t, render.DefaultAltitude, pov.Altitude)
}

func TestFlyToCurrentPositionCancelsFlight(t *testing.T) {
	c, clk := newController(t, NewEventWindow(frameW, frameH), nil)
	_, err := c.Init(origin, testCatalog())
	require.NoError(t, err)

	require.NoError(t, c.FlyTo(40, 40))
	require.NoError(t, c.FlyTo(0, 0))
	_, err = c.Tick(clk.now.Add(300 * time.Millisecond))
	require.NoError(t, err)

	pov := c.PointOfView()
	assert.Equal(t, 0.0, pov.Lat)
	assert.Equal(t, 0.0, pov.Lng)
}

func TestZoomClamps(t *testing.T) {
	c, _ := newController(t, NewEventWindow(frameW, frameH), nil)
	_, err := c.Init(origin, testCatalog())
	require.NoError(t, err)

	require.NoError(t, c.Zoom(100))
	assert.Equal(t, render.MaxAltitude, c.PointOfView().Altitude)
	require.NoError(t, c.Zoom(-100))
	assert.Equal(t, render.MinAltitude, c.PointOfView().Altitude)
}

func TestOperationsOutsideSession(t *testing.T) {
	c, _ := newController(t, NewEventWindow(frameW, frameH), nil)

	_, err := c.Click(1, 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = c.Tick(t0)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.False(t, c.Hover(1, 1))

	_, err = c.Init(origin, testCatalog())
	require.NoError(t, err)
	require.NoError(t, c.Dispose())

	_, err = c.Tick(t0)
	assert.ErrorIs(t, err, ErrDisposed)
	assert.ErrorIs(t, c.FlyTo(1, 1), ErrDisposed)
	assert.ErrorIs(t, c.Zoom(1), ErrDisposed)
	assert.NotPanics(t, func() { c.UpdateTime(9) })
}

func TestInitRejectsInvalidCatalog(t *testing.T) {
	win := NewEventWindow(frameW, frameH)
	c, _ := newController(t, win, nil)
	bad := &overlay.Catalog{Points: []overlay.GeoPoint{{Name: "nowhere", Lat: 95}}}

	ok, err := c.Init(origin, bad)
	assert.ErrorIs(t, err, overlay.ErrInvalidCatalog)
	assert.False(t, ok)
	assert.Equal(t, Uninitialized, c.State())
	assert.Equal(t, 0, win.ListenerCount())
}

func TestInitTextureFailureLeaksNothing(t *testing.T) {
	win := NewEventWindow(frameW, frameH)
	c, _ := newController(t, win, func(o *Options) {
		o.DayTexture = filepath.Join(t.TempDir(), "missing.png")
	})

	ok, err := c.Init(origin, testCatalog())
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, Uninitialized, c.State())
	assert.Equal(t, 0, win.ListenerCount())
}

func TestInitialTimeDefaultsToNoon(t *testing.T) {
	c, _ := newController(t, NewEventWindow(frameW, frameH), nil)
	assert.Equal(t, sun.TimeOfDay(sun.Noon), c.Time())

	midnight := sun.TimeOfDay(0)
	c, _ = newController(t, NewEventWindow(frameW, frameH), func(o *Options) {
		o.InitialTime = &midnight
	})
	assert.Equal(t, sun.TimeOfDay(0), c.Time())
	_, err := c.Init(origin, testCatalog())
	require.NoError(t, err)
	x, _, _ := c.SunDirection()
	assert.InDelta(t, -1, x, 1e-12)
}

func TestInitLoadsTextures(t *testing.T) {
	dir := t.TempDir()
	writePNG := func(name string, c color.NRGBA) string {
		img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
		}
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
		return path
	}
	day := writePNG("day.png", color.NRGBA{R: 255, A: 255})
	night := writePNG("night.png", color.NRGBA{B: 255, A: 255})

	c, _ := newController(t, NewEventWindow(64, 48), func(o *Options) {
		o.DayTexture, o.NightTexture = day, night
	})
	in := origin
	in.Location = Location{Lat: 0, Lng: 90}
	_, err := c.Init(in, nil)
	require.NoError(t, err)

	// Noon sun is overhead at 90°E.
	frame, err := c.Tick(t0)
	require.NoError(t, err)
	centre := frame.NRGBAAt(32, 24)
	assert.Greater(t, centre.R, uint8(200))
	assert.Less(t, centre.B, uint8(50))

	c.UpdateTime(0)
	frame, err = c.Tick(t0)
	require.NoError(t, err)
	centre = frame.NRGBAAt(32, 24)
	assert.Greater(t, centre.B, uint8(200))
	assert.Less(t, centre.R, uint8(50))

	require.NoError(t, c.Dispose())
}

func TestMetricsFollowLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewViewportCollector(reg)
	require.NoError(t, err)
	c, _ := newController(t, NewEventWindow(64, 48), func(o *Options) { o.Metrics = metrics })

	_, err = c.Init(origin, testCatalog())
	require.NoError(t, err)
	c.UpdateTime(13)
	_, err = c.Tick(t0)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Sessions))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ResizeListeners))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TimeUpdates))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Frames))

	require.NoError(t, c.Dispose())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ResizeListeners))
}

func TestRunStopsOnDispose(t *testing.T) {
	c, _ := newController(t, NewEventWindow(32, 24), nil)
	_, err := c.Init(origin, testCatalog())
	require.NoError(t, err)

	events := make(chan func(*Controller), 2)
	events <- func(c *Controller) { c.UpdateTime(6) }
	events <- func(c *Controller) { _ = c.Dispose() }

	frames := 0
	done := make(chan error, 1)
	go func() {
		done <- c.Run(context.Background(), 200, events, func(*image.NRGBA) { frames++ })
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("render loop did not stop after dispose")
	}
	assert.Equal(t, Disposed, c.State())
	assert.Equal(t, sun.TimeOfDay(6), c.Time())
}

func TestRunHonoursContext(t *testing.T) {
	c, _ := newController(t, NewEventWindow(32, 24), nil)
	_, err := c.Init(origin, testCatalog())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = c.Run(ctx, 100, nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Initialized, c.State())
}

func TestInputIdentity(t *testing.T) {
	a := origin
	b := origin
	b.Date = origin.Date.In(time.FixedZone("X", 3600))
	assert.True(t, a.Same(b))

	b.Location.Name = "elsewhere"
	assert.False(t, a.Same(b))

	j2000 := Input{Date: time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)}
	assert.InDelta(t, 2451545.0, j2000.JulianDay(), 1e-9)
	assert.Zero(t, Input{}.JulianDay())
}

func TestEventWindow(t *testing.T) {
	w := NewEventWindow(10, 10)
	var got [][2]int
	remove := w.AddResizeListener(func(width, height int) { got = append(got, [2]int{width, height}) })
	w.Resize(10, 10)
	w.Resize(20, 15)
	remove()
	remove()
	w.Resize(30, 30)

	assert.Equal(t, [][2]int{{20, 15}}, got)
	assert.Equal(t, 0, w.ListenerCount())
	width, height := w.Size()
	assert.Equal(t, 30, width)
	assert.Equal(t, 30, height)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "uninitialized", Uninitialized.String())
	assert.Equal(t, "initialized", Initialized.String())
	assert.Equal(t, "disposed", Disposed.String())
	assert.Equal(t, "State(7)", State(7).String())
}

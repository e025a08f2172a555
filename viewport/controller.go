// Package viewport owns the lifecycle of an interactive globe session: the
// frame buffer, the sun light and shading uniforms, overlay bindings, the
// camera and its fly-to animation, selection, and the window resize listener.
package viewport

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/echoflaresat/natalglobe/colors"
	"github.com/echoflaresat/natalglobe/geo"
	"github.com/echoflaresat/natalglobe/logging"
	"github.com/echoflaresat/natalglobe/observability"
	"github.com/echoflaresat/natalglobe/overlay"
	"github.com/echoflaresat/natalglobe/render"
	"github.com/echoflaresat/natalglobe/selection"
	"github.com/echoflaresat/natalglobe/shading"
	"github.com/echoflaresat/natalglobe/sun"
	"github.com/echoflaresat/natalglobe/texture"
)

// minFlightDeg is the smallest camera move, in degrees of arc, that is
// animated. Shorter moves snap.
const minFlightDeg = 1e-6

var (
	ErrNotInitialized = errors.New("viewport: not initialized")
	ErrDisposed       = errors.New("viewport: disposed")
)

// State is the controller lifecycle state.
type State int

const (
	Uninitialized State = iota
	Initialized
	Disposed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Disposed:
		return "disposed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Fallback surface colours when no texture path is configured.
var (
	defaultDay   = colors.FromHex24(0x2F6FA8)
	defaultNight = colors.FromHex24(0x0B1026)
)

type Options struct {
	Logger   zerolog.Logger
	Metrics  *observability.ViewportCollector
	Renderer render.Renderer

	// Texture paths; empty uses a solid colour.
	DayTexture   string
	NightTexture string

	FOV           float64
	Altitude      float64
	FlyToDuration time.Duration
	DashPeriod    time.Duration

	// InitialTime is the time of day before the first UpdateTime. Nil means
	// noon; midnight has to be set explicitly.
	InitialTime *sun.TimeOfDay

	// Now is the clock used for fly-to starts and the dash epoch.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.FOV <= 0 {
		o.FOV = 50
	}
	if o.Altitude <= 0 {
		o.Altitude = render.DefaultAltitude
	}
	if o.FlyToDuration <= 0 {
		o.FlyToDuration = time.Second
	}
	if o.DashPeriod <= 0 {
		o.DashPeriod = 2 * time.Second
	}
	if o.InitialTime == nil {
		noon := sun.TimeOfDay(sun.Noon)
		o.InitialTime = &noon
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Controller drives one globe viewport. Its methods are safe to call from
// event handlers and a render loop on different goroutines; every mutation
// completes before the next frame reads the state.
type Controller struct {
	mu       sync.Mutex
	window   Window
	opts     Options
	log      zerolog.Logger
	frameLog zerolog.Logger

	state   State
	session *Session
	time    sun.TimeOfDay

	removeResize func()
	closers      []io.Closer
	width        int
	height       int
	frame        *image.NRGBA

	light    *sun.Light
	material shading.Material
	catalog  *overlay.Catalog
	overlays render.Overlays

	pov       render.PointOfView
	flight    *flight
	dashEpoch time.Time

	selection selection.State
}

func New(window Window, opts Options) *Controller {
	opts = opts.withDefaults()
	return &Controller{
		window:   window,
		opts:     opts,
		log:      opts.Logger,
		frameLog: logging.Sampled(opts.Logger),
		time:     opts.InitialTime.Clamp(),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the active session, or nil when not initialized.
func (c *Controller) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Init starts a session for in with the given catalog. It returns false
// without error when there is nothing to do: no usable window yet, or the
// controller is already initialized for the same input. A different input
// always ends the current session, even when the window is not ready for
// the new one, and rebuilds from scratch.
func (c *Controller) Init(in Input, catalog *overlay.Catalog) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Initialized && c.session.Input.Same(in) {
		return false, nil
	}
	var w, h int
	if c.window != nil {
		w, h = c.window.Size()
	}
	if w <= 0 || h <= 0 {
		c.retire()
		return false, nil
	}
	if catalog == nil {
		catalog = &overlay.Catalog{}
	}
	if err := catalog.Validate(); err != nil {
		return false, err
	}
	c.retire()

	day, err := c.loadSampler(c.opts.DayTexture, defaultDay)
	if err != nil {
		c.releaseClosers()
		return false, fmt.Errorf("day texture: %w", err)
	}
	night, err := c.loadSampler(c.opts.NightTexture, defaultNight)
	if err != nil {
		c.releaseClosers()
		return false, fmt.Errorf("night texture: %w", err)
	}

	now := c.opts.Now()
	dir := sun.Direction(c.time)
	c.light = sun.NewLight(dir)
	c.material = shading.Material{Uniforms: shading.Uniforms{Day: day, Night: night}}
	c.material.Uniforms.SetSunDirection(dir)

	c.catalog = catalog
	c.overlays = render.Bind(catalog)
	c.selection = selection.State{}
	c.flight = nil
	c.pov = render.PointOfView{
		Lat:      in.Location.Lat,
		Lng:      in.Location.Lng,
		Altitude: c.opts.Altitude,
	}.ClampAltitude()
	c.dashEpoch = now

	c.width, c.height = w, h
	c.frame = image.NewNRGBA(image.Rect(0, 0, w, h))
	c.removeResize = c.window.AddResizeListener(c.onResize)

	c.session = newSession(in, now)
	c.state = Initialized
	c.opts.Metrics.SessionStarted()
	c.opts.Metrics.SetResizeListeners(1)

	c.log.Info().
		Str("session", c.session.ID.String()).
		Str("place", in.Location.Name).
		Float64("lat", in.Location.Lat).
		Float64("lng", in.Location.Lng).
		Float64("birthJD", in.JulianDay()).
		Int("points", len(catalog.Points)).
		Int("arcs", len(catalog.Arcs)).
		Msg("viewport initialized")
	return true, nil
}

func (c *Controller) loadSampler(path string, fallback colors.Color4) (shading.Sampler, error) {
	if path == "" {
		return texture.Solid(fallback), nil
	}
	t, err := texture.Load(path, c.log)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, t)
	return t, nil
}

func (c *Controller) releaseClosers() error {
	var errs []error
	for _, cl := range c.closers {
		errs = append(errs, cl.Close())
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Controller) onResize(w, h int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Initialized || w <= 0 || h <= 0 {
		return
	}
	if w == c.width && h == c.height {
		return
	}
	c.width, c.height = w, h
	c.frame = image.NewNRGBA(image.Rect(0, 0, w, h))
	c.log.Debug().Int("width", w).Int("height", h).Msg("viewport resized")
}

// Time returns the current time of day.
func (c *Controller) Time() sun.TimeOfDay {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.time
}

// UpdateTime sets the time of day. When initialized, the new sun direction is
// pushed into the light and the shading uniforms; nothing else is rebuilt.
func (c *Controller) UpdateTime(t sun.TimeOfDay) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.time = t.Clamp()
	if c.state != Initialized {
		return
	}
	dir := sun.Direction(c.time)
	c.light.Point(dir)
	c.material.Uniforms.SetSunDirection(dir)
	c.opts.Metrics.TimeUpdated()
}

// Light returns the sun light handle of the active session.
func (c *Controller) Light() *sun.Light {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.light
}

// SunDirection returns the shading uniform's current sun direction.
func (c *Controller) SunDirection() (x, y, z float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.material.Uniforms.SunDirection
	return d.X, d.Y, d.Z
}

func (c *Controller) usable() error {
	switch c.state {
	case Initialized:
		return nil
	case Disposed:
		return ErrDisposed
	}
	return ErrNotInitialized
}

// scene snapshots everything a frame or a pick reads.
func (c *Controller) scene(now time.Time) *render.Scene {
	label := c.time.String()
	if name := c.session.Input.Location.Name; name != "" {
		label = name + "  " + label
	}
	return &render.Scene{
		Camera:        render.NewCamera(c.pov, c.opts.FOV, c.width, c.height),
		Material:      c.material,
		Light:         c.light,
		Atmosphere:    render.DefaultAtmosphere(),
		Overlays:      c.overlays,
		DashPhase:     overlay.DashPhase(now.Sub(c.dashEpoch), c.opts.DashPeriod),
		SelectedPoint: c.selection.Point(),
		SelectedArc:   c.selection.Arc(),
		Label:         label,
	}
}

// Click selects the overlay under frame pixel (x, y). A miss selects nothing
// and keeps any open selection.
func (c *Controller) Click(x, y float64) (render.Hit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return render.Hit{}, err
	}

	hit := render.Pick(c.scene(c.opts.Now()), x, y)
	switch {
	case hit.Empty():
		c.opts.Metrics.Picked("none")
	case hit.Point != nil:
		c.selection.SelectPoint(hit.Point)
		c.opts.Metrics.Picked("point")
	case hit.Arc != nil:
		c.selection.SelectArc(hit.Arc)
		c.opts.Metrics.Picked("arc")
	}
	return hit, nil
}

// Hover reports whether an arc is under (x, y), for the pointer affordance.
// It never changes the selection.
func (c *Controller) Hover(x, y float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.usable() != nil {
		return false
	}
	return render.Pick(c.scene(c.opts.Now()), x, y).Arc != nil
}

// Selection returns a copy of the selection slots.
func (c *Controller) Selection() selection.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection
}

func (c *Controller) DismissPoint() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.DismissPoint()
}

func (c *Controller) DismissArc() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selection.DismissArc()
}

// Catalog returns the catalog bound to the active session.
func (c *Controller) Catalog() *overlay.Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog
}

// PointOfView returns the current camera pose.
func (c *Controller) PointOfView() render.PointOfView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pov
}

// FlyTo starts an animated transition to (lat, lng) at the current altitude,
// replacing any flight in progress.
func (c *Controller) FlyTo(lat, lng float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return err
	}
	dist := geo.AngularDistance(geo.LatLng{Lat: c.pov.Lat, Lng: c.pov.Lng}, geo.LatLng{Lat: lat, Lng: lng})
	if dist < minFlightDeg {
		// Already there; drop any flight heading elsewhere.
		c.flight = nil
		c.pov.Lat, c.pov.Lng = lat, geo.NormalizeLng(lng)
		return nil
	}
	c.flight = newFlight(c.pov, lat, lng, c.opts.Now(), c.opts.FlyToDuration)
	c.log.Debug().Float64("lat", lat).Float64("lng", lng).Float64("distanceDeg", dist).Msg("fly-to started")
	return nil
}

func (c *Controller) FlyToPoint(p *overlay.GeoPoint) error {
	if p == nil {
		return nil
	}
	return c.FlyTo(p.Lat, p.Lng)
}

// Zoom changes the altitude by delta globe radii within the camera limits.
func (c *Controller) Zoom(delta float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return err
	}
	c.pov.Altitude += delta
	c.pov = c.pov.ClampAltitude()
	return nil
}

// Tick advances the fly-to animation to now and renders a frame. The
// returned image is owned by the controller and valid until the next Tick,
// resize or Dispose.
func (c *Controller) Tick(now time.Time) (*image.NRGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usable(); err != nil {
		return nil, err
	}

	if c.flight != nil {
		var done bool
		c.pov, done = c.flight.at(now, c.pov.Altitude)
		if done {
			c.flight = nil
		}
	}

	start := time.Now()
	if err := c.opts.Renderer.Render(context.Background(), c.scene(now), c.frame); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	c.opts.Metrics.ObserveFrame(elapsed)
	c.frameLog.Trace().Dur("elapsed", elapsed).Str("time", c.time.String()).Msg("frame")
	return c.frame, nil
}

// Run renders fps frames per second until ctx is done or the controller is
// disposed. Events are applied on the loop goroutine between frames, and each
// frame is handed to sink before the next event is read.
func (c *Controller) Run(ctx context.Context, fps int, events <-chan func(*Controller), sink func(*image.NRGBA)) error {
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Debug().Msg("render loop cancelled")
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			ev(c)
		case now := <-ticker.C:
			frame, err := c.Tick(now)
			if errors.Is(err, ErrDisposed) {
				c.log.Debug().Msg("render loop stopped")
				return nil
			}
			if err != nil {
				return err
			}
			if sink != nil {
				sink(frame)
			}
		}
	}
}

// Dispose removes the resize listener and releases textures and the frame
// buffer. It always runs the full teardown and is safe to call repeatedly.
func (c *Controller) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Disposed {
		return nil
	}
	err := c.teardown()
	c.state = Disposed
	c.log.Info().Msg("viewport disposed")
	return err
}

// retire ends an initialized session so a new one can start.
func (c *Controller) retire() {
	if c.state != Initialized {
		return
	}
	if err := c.teardown(); err != nil {
		c.log.Warn().Err(err).Msg("releasing previous session")
	}
	c.state = Uninitialized
	c.log.Info().Msg("viewport session ended")
}

func (c *Controller) teardown() error {
	if c.removeResize != nil {
		c.removeResize()
		c.removeResize = nil
	}
	c.opts.Metrics.SetResizeListeners(0)
	err := c.releaseClosers()

	c.frame = nil
	c.light = nil
	c.material = shading.Material{}
	c.catalog = nil
	c.overlays = render.Overlays{}
	c.flight = nil
	c.selection = selection.State{}
	c.session = nil
	c.width, c.height = 0, 0
	return err
}

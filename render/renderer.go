// Package render raytraces the globe and rasterizes its overlays.
package render

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	"github.com/echoflaresat/natalglobe/colors"
	"github.com/echoflaresat/natalglobe/geo"
	"github.com/echoflaresat/natalglobe/overlay"
	"github.com/echoflaresat/natalglobe/shading"
	"github.com/echoflaresat/natalglobe/sun"
)

// Atmosphere is the glow drawn around the globe's limb.
type Atmosphere struct {
	Color colors.Color4
	// Altitude is the glow thickness in globe radii.
	Altitude float64
}

// DefaultAtmosphere is a violet halo a quarter radius thick.
func DefaultAtmosphere() Atmosphere {
	c, _ := colors.ParseHex("#3a228a")
	return Atmosphere{Color: c, Altitude: 0.25}
}

// Scene is an immutable snapshot of everything one frame reads.
type Scene struct {
	Camera     Camera
	Material   shading.Material
	Light      *sun.Light
	Atmosphere Atmosphere
	Overlays   Overlays
	// DashPhase is the arc dash animation position in [0,1).
	DashPhase     float64
	SelectedPoint *overlay.GeoPoint
	SelectedArc   *overlay.GeoArc
	// Label is drawn at the bottom centre of the frame when non-empty.
	Label string
}

// Renderer produces frames. The zero value uses one worker per CPU and no
// supersampling.
type Renderer struct {
	Workers     int
	Supersample int
}

// GenerateSupersamplingOffsets returns n×n offsets in [-0.5, +0.5] for
// supersampling, as pairs (dx, dy) with pixel-center spacing.
func GenerateSupersamplingOffsets(n int) [][2]float64 {
	if n <= 0 {
		n = 1
	}
	step := 1.0 / float64(n)
	out := make([][2]float64, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dx := (float64(i)+0.5)*step - 0.5
			dy := (float64(j)+0.5)*step - 0.5
			out = append(out, [2]float64{dx, dy})
		}
	}
	return out
}

// Render draws s into dst, which must match the camera's size. Rows are
// split across workers; overlays are drawn afterwards on the calling
// goroutine.
func (r Renderer) Render(ctx context.Context, s *Scene, dst *image.NRGBA) error {
	W, H := s.Camera.Width, s.Camera.Height
	if dst.Rect.Dx() != W || dst.Rect.Dy() != H {
		return fmt.Errorf("render: destination %v does not match %dx%d camera", dst.Rect, W, H)
	}

	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	offsets := GenerateSupersamplingOffsets(r.Supersample)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y := 0; y < H; y++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rc := NewRayContext(s.Camera.Position)
			for x := 0; x < W; x++ {
				dst.SetNRGBA(dst.Rect.Min.X+x, dst.Rect.Min.Y+y, s.shadePixel(rc, x, y, offsets).ToNRGBA())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	drawArcs(dst, projectArcs(s.Camera, s.Overlays, s.DashPhase, true), s.SelectedArc)
	drawPoints(dst, projectPoints(s.Camera, s.Overlays), s.Light, s.SelectedPoint)
	if s.Label != "" {
		drawLabel(dst, s.Label)
	}
	return nil
}

func (s *Scene) shadePixel(rc *RayContext, x, y int, offsets [][2]float64) colors.Color4 {
	accum := colors.Color4{}
	for _, off := range offsets {
		rc.SetRayDirection(s.Camera.ComputeRay(float64(x)+off[0], float64(y)+off[1]))

		c := colors.Black()
		if rc.Hit() {
			c = s.Material.Shade(rc.HitPoint)
		}
		c = s.applyAtmosphere(rc, c)
		accum = accum.Add(c)
	}
	return accum.Scale(1.0 / float64(len(offsets))).CompositeOverBlack()
}

// applyAtmosphere adds a halo that is strongest at the limb: a thin rim over
// the globe's edge and a fading glow outside it up to the atmosphere altitude.
func (s *Scene) applyAtmosphere(rc *RayContext, base colors.Color4) colors.Color4 {
	a := s.Atmosphere
	if a.Altitude <= 0 {
		return base
	}

	var amount float64
	if rc.Hit() {
		amount = 0.6 * math.Pow(1-shading.Clip(rc.ViewDotNormal, 0, 1), 3)
	} else {
		thickness := geo.Radius * a.Altitude
		h := rc.DistToCenter - geo.Radius
		if h >= thickness || rc.Origin.Dot(rc.RayDirection) > 0 {
			return base
		}
		f := 1 - h/thickness
		amount = 0.6 * f * f * f
	}
	return base.MixAlpha(a.Color, amount)
}

func drawLabel(img *image.NRGBA, label string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 230}),
		Face: face,
	}
	w := d.MeasureString(label).Ceil()
	x := img.Rect.Min.X + (img.Rect.Dx()-w)/2
	y := img.Rect.Max.Y - 12
	d.Dot = fixed.P(x, y)
	d.DrawString(label)
}

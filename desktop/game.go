// Package desktop runs a globe viewport in an ebiten window.
package desktop

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/rs/zerolog"

	"github.com/echoflaresat/natalglobe/overlay"
	"github.com/echoflaresat/natalglobe/viewport"
)

var (
	panelFill   = color.NRGBA{R: 12, G: 14, B: 32, A: 220}
	panelStroke = color.NRGBA{R: 58, G: 34, B: 138, A: 255}
	rowHover    = color.NRGBA{R: 58, G: 34, B: 138, A: 160}
)

type Options struct {
	// Scale divides the window size to get the render resolution.
	Scale int
	// ZoomStep is the altitude change per wheel notch, in globe radii.
	ZoomStep float64
	Logger   zerolog.Logger
}

// Game adapts a viewport controller to ebiten's Update/Draw/Layout loop.
// ebiten calls all three on one goroutine, so the controller sees events
// and frames strictly interleaved.
type Game struct {
	ctrl    *viewport.Controller
	window  *viewport.EventWindow
	input   viewport.Input
	catalog *overlay.Catalog
	opts    Options
	log     zerolog.Logger

	screenW, screenH int
	frame            *ebiten.Image
	hoverRow         int
}

func NewGame(ctrl *viewport.Controller, window *viewport.EventWindow, in viewport.Input, catalog *overlay.Catalog, opts Options) *Game {
	if opts.Scale < 1 {
		opts.Scale = 1
	}
	if opts.ZoomStep <= 0 {
		opts.ZoomStep = 0.25
	}
	return &Game{
		ctrl:     ctrl,
		window:   window,
		input:    in,
		catalog:  catalog,
		opts:     opts,
		log:      opts.Logger,
		hoverRow: -1,
	}
}

// Layout keeps the render surface matched to the window. The frame is
// rendered at 1/Scale resolution and stretched uniformly, so the aspect
// ratio is preserved.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.screenW, g.screenH = outsideWidth, outsideHeight
	g.window.Resize(outsideWidth/g.opts.Scale, outsideHeight/g.opts.Scale)
	return outsideWidth, outsideHeight
}

func (g *Game) Update() error {
	if g.ctrl.State() != viewport.Initialized {
		if _, err := g.ctrl.Init(g.input, g.catalog); err != nil {
			return err
		}
		if g.ctrl.State() != viewport.Initialized {
			// No surface yet; retry next tick.
			return nil
		}
	}

	g.handleKeys()
	g.handlePointer()

	frame, err := g.ctrl.Tick(time.Now())
	if err != nil {
		return err
	}
	b := frame.Rect
	if g.frame == nil || g.frame.Bounds().Dx() != b.Dx() || g.frame.Bounds().Dy() != b.Dy() {
		if g.frame != nil {
			g.frame.Deallocate()
		}
		g.frame = ebiten.NewImage(b.Dx(), b.Dy())
	}
	g.frame.WritePixels(frame.Pix)
	return nil
}

func (g *Game) handleKeys() {
	coarse := ebiten.IsKeyPressed(ebiten.KeyShift)
	if repeating(inpututil.KeyPressDuration(ebiten.KeyArrowLeft)) {
		g.ctrl.UpdateTime(stepTime(g.ctrl.Time(), -1, coarse))
	}
	if repeating(inpututil.KeyPressDuration(ebiten.KeyArrowRight)) {
		g.ctrl.UpdateTime(stepTime(g.ctrl.Time(), +1, coarse))
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.ctrl.DismissPoint()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		g.ctrl.DismissArc()
	}

	digits := []ebiten.Key{
		ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4, ebiten.Key5,
		ebiten.Key6, ebiten.Key7, ebiten.Key8, ebiten.Key9,
	}
	for i, k := range digits {
		if inpututil.IsKeyJustPressed(k) {
			g.flyToEntry(i)
		}
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) {
		_ = g.ctrl.Zoom(-g.opts.ZoomStep)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) {
		_ = g.ctrl.Zoom(g.opts.ZoomStep)
	}
	if _, dy := ebiten.Wheel(); dy != 0 {
		_ = g.ctrl.Zoom(-dy * g.opts.ZoomStep)
	}
}

func (g *Game) flyToEntry(i int) {
	p := g.catalog.Point(i)
	if p == nil {
		return
	}
	if err := g.ctrl.FlyToPoint(p); err != nil {
		g.log.Warn().Err(err).Str("point", p.Name).Msg("fly-to rejected")
	}
}

func (g *Game) handlePointer() {
	x, y := ebiten.CursorPosition()
	panels := layoutPanels(g.screenW, g.ctrl.Selection())
	g.hoverRow = sidebarEntry(g.catalog, x, y)

	overUI := g.hoverRow >= 0
	for _, p := range panels {
		if image.Pt(x, y).In(p.box) {
			overUI = true
		}
	}

	arc := false
	if !overUI {
		s := float64(g.opts.Scale)
		arc = g.ctrl.Hover(float64(x)/s, float64(y)/s)
	}
	if arc || g.hoverRow >= 0 {
		ebiten.SetCursorShape(ebiten.CursorShapePointer)
	} else {
		ebiten.SetCursorShape(ebiten.CursorShapeDefault)
	}

	if !inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		return
	}
	for _, p := range panels {
		if !image.Pt(x, y).In(p.close) {
			continue
		}
		switch p.kind {
		case pointPanel:
			g.ctrl.DismissPoint()
		case arcPanel:
			g.ctrl.DismissArc()
		}
		return
	}
	if g.hoverRow >= 0 {
		g.flyToEntry(g.hoverRow)
		return
	}
	if overUI {
		return
	}
	s := float64(g.opts.Scale)
	if _, err := g.ctrl.Click(float64(x)/s, float64(y)/s); err != nil {
		g.log.Debug().Err(err).Msg("click ignored")
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)
	if g.frame != nil {
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Scale(float64(g.opts.Scale), float64(g.opts.Scale))
		op.Filter = ebiten.FilterLinear
		screen.DrawImage(g.frame, op)
	}
	g.drawSidebar(screen)
	g.drawPanels(screen)
	g.drawClock(screen)
}

func (g *Game) drawSidebar(screen *ebiten.Image) {
	if g.catalog == nil || len(g.catalog.Points) == 0 {
		return
	}
	ebitenutil.DebugPrintAt(screen, "Places", margin, margin)
	for i, p := range g.catalog.Points {
		r := sidebarRow(i)
		if i == g.hoverRow {
			vector.DrawFilledRect(screen, float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()), rowHover, false)
		}
		label := p.Name
		if i < 9 {
			label = fmt.Sprintf("%d %s", i+1, p.Name)
		}
		ebitenutil.DebugPrintAt(screen, label, r.Min.X+2, r.Min.Y)
	}
}

func (g *Game) drawPanels(screen *ebiten.Image) {
	for _, p := range layoutPanels(g.screenW, g.ctrl.Selection()) {
		b := p.box
		vector.DrawFilledRect(screen, float32(b.Min.X), float32(b.Min.Y), float32(b.Dx()), float32(b.Dy()), panelFill, false)
		vector.StrokeRect(screen, float32(b.Min.X), float32(b.Min.Y), float32(b.Dx()), float32(b.Dy()), 1, panelStroke, false)
		ebitenutil.DebugPrintAt(screen, closeLabel, p.close.Min.X, p.close.Min.Y)
		for i, line := range p.lines {
			ebitenutil.DebugPrintAt(screen, line, b.Min.X+margin, b.Min.Y+margin+(i+1)*lineH)
		}
	}
}

func (g *Game) drawClock(screen *ebiten.Image) {
	msg := fmt.Sprintf("Time %s   left/right 0.1h (shift 1h)  wheel zoom  esc/backspace close", g.ctrl.Time())
	ebitenutil.DebugPrintAt(screen, msg, margin, g.screenH-margin-lineH)
}

// Close disposes the controller after the window is gone.
func (g *Game) Close() error {
	if g.frame != nil {
		g.frame.Deallocate()
		g.frame = nil
	}
	return g.ctrl.Dispose()
}

// Run opens the window and blocks until it is closed.
func Run(g *Game, title string, width, height int) error {
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	err := ebiten.RunGame(g)
	if cerr := g.Close(); err == nil {
		err = cerr
	}
	return err
}

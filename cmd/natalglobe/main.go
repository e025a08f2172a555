// Command natalglobe shows and renders the natal globe.
package main

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/echoflaresat/natalglobe/config"
	"github.com/echoflaresat/natalglobe/logging"
	"github.com/echoflaresat/natalglobe/observability"
	"github.com/echoflaresat/natalglobe/overlay"
	"github.com/echoflaresat/natalglobe/render"
	"github.com/echoflaresat/natalglobe/sun"
	"github.com/echoflaresat/natalglobe/viewport"
)

// app is the state shared by all subcommands once flags and config are read.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        config.Config
	log        zerolog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:          "natalglobe",
		Short:        "Interactive day/night globe with astrological overlays",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default natalglobe.yaml in . or ~/.config/natalglobe)")
	pf.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	pf.String("log-format", "console", "Log format: console or json")
	pf.String("day", "", "Day texture (TIFF, PNG or JPEG)")
	pf.String("night", "", "Night texture (TIFF, PNG or JPEG)")
	pf.String("catalog", "", "Overlay catalog YAML (default: built-in)")
	pf.Int("width", 960, "Frame width in pixels")
	pf.Int("height", 640, "Frame height in pixels")
	pf.Int("supersample", 1, "Supersampling factor (higher is slower but smoother)")
	pf.Int("workers", 0, "Render workers (0 = one per CPU)")
	pf.Float64("altitude", render.DefaultAltitude, "Camera altitude in globe radii (1..7)")
	pf.Float64("fov", 50, "Vertical field of view in degrees")
	pf.Float64("time", 12, "Time of day in hours (0..24)")
	pf.Float64("lat", 0, "Birth place latitude")
	pf.Float64("lng", 0, "Birth place longitude")
	pf.String("place", "", "Birth place name")
	pf.String("date", "", "Birth date, RFC3339")

	for key, flag := range map[string]string{
		"log.level":          "log-level",
		"log.format":         "log-format",
		"textures.day":       "day",
		"textures.night":     "night",
		"catalog.path":       "catalog",
		"render.width":       "width",
		"render.height":      "height",
		"render.supersample": "supersample",
		"render.workers":     "workers",
		"camera.altitude":    "altitude",
		"camera.fov":         "fov",
		"time.initial":       "time",
		"session.lat":        "lat",
		"session.lng":        "lng",
		"session.name":       "place",
		"session.date":       "date",
	} {
		if err := a.v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind %s: %v", key, err))
		}
	}

	root.AddCommand(
		newViewCmd(a),
		newRenderCmd(a),
		newTimelapseCmd(a),
		newCatalogCmd(a),
		newTilesCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Read(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Writer: cmd.ErrOrStderr(),
	})
	return nil
}

func (a *app) catalog() (*overlay.Catalog, error) {
	if a.cfg.Catalog.Path == "" {
		return overlay.DefaultCatalog(), nil
	}
	return overlay.LoadCatalogFile(a.cfg.Catalog.Path)
}

func (a *app) input() (viewport.Input, error) {
	date, err := a.cfg.Session.BirthDate()
	if err != nil {
		return viewport.Input{}, err
	}
	return viewport.Input{
		Date: date,
		Location: viewport.Location{
			Lat:  a.cfg.Session.Lat,
			Lng:  a.cfg.Session.Lng,
			Name: a.cfg.Session.Name,
		},
	}, nil
}

func (a *app) controllerOptions(metrics *observability.ViewportCollector) viewport.Options {
	c := a.cfg
	initial := sun.TimeOfDay(c.Time.Initial)
	return viewport.Options{
		Logger:        a.log,
		Metrics:       metrics,
		Renderer:      render.Renderer{Workers: c.Render.Workers, Supersample: c.Render.Supersample},
		DayTexture:    c.Textures.Day,
		NightTexture:  c.Textures.Night,
		FOV:           c.Camera.FOV,
		Altitude:      c.Camera.Altitude,
		FlyToDuration: c.Camera.FlyToDuration,
		DashPeriod:    c.Overlay.DashPeriod,
		InitialTime:   &initial,
	}
}

// headless starts a controller on an off-screen window of the configured size.
func (a *app) headless() (*viewport.Controller, *overlay.Catalog, error) {
	cat, err := a.catalog()
	if err != nil {
		return nil, nil, err
	}
	in, err := a.input()
	if err != nil {
		return nil, nil, err
	}
	win := viewport.NewEventWindow(a.cfg.Render.Width, a.cfg.Render.Height)
	ctrl := viewport.New(win, a.controllerOptions(nil))
	if _, err := ctrl.Init(in, cat); err != nil {
		return nil, nil, err
	}
	return ctrl, cat, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return (&png.Encoder{CompressionLevel: png.BestSpeed}).Encode(f, img)
}

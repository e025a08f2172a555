package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/echoflaresat/natalglobe/overlay"
	"github.com/echoflaresat/natalglobe/viewport"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		out   string
		point string
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a single frame to a PNG file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, cat, err := a.headless()
			if err != nil {
				return err
			}
			defer ctrl.Dispose()

			now := time.Now()
			if point != "" {
				if now, err = focusPoint(ctrl, cat, point, now); err != nil {
					return err
				}
			}
			frame, err := ctrl.Tick(now)
			if err != nil {
				return err
			}
			if err := writePNG(out, frame); err != nil {
				return err
			}
			a.log.Info().Str("out", out).Str("time", ctrl.Time().String()).Msg("frame written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "globe.png", "Output PNG file")
	cmd.Flags().StringVar(&point, "point", "", "Centre on the named catalog point and open its panel")
	return cmd
}

// focusPoint flies the camera to the named point, lets the flight finish and
// selects the point at the frame centre. It returns the time at which the
// flight is complete.
func focusPoint(ctrl *viewport.Controller, cat *overlay.Catalog, name string, now time.Time) (time.Time, error) {
	var target *overlay.GeoPoint
	for i := range cat.Points {
		if strings.EqualFold(cat.Points[i].Name, name) {
			target = &cat.Points[i]
			break
		}
	}
	if target == nil {
		return now, fmt.Errorf("no point named %q in catalog", name)
	}
	if err := ctrl.FlyToPoint(target); err != nil {
		return now, err
	}
	// Flights are timed from the controller clock, which is wall time here.
	done := time.Now().Add(24 * time.Hour)
	frame, err := ctrl.Tick(done)
	if err != nil {
		return now, err
	}

	hit, err := ctrl.Click(float64(frame.Rect.Dx())/2, float64(frame.Rect.Dy())/2)
	if err != nil {
		return now, err
	}
	if hit.Point != target {
		return now, fmt.Errorf("point %q is not visible from the camera", name)
	}
	return done, nil
}

package main

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/echoflaresat/natalglobe/desktop"
	"github.com/echoflaresat/natalglobe/observability"
	"github.com/echoflaresat/natalglobe/viewport"
)

func newViewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Open the interactive globe window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runView()
		},
	}
	cmd.Flags().Int("scale", 2, "Render at 1/scale of the window size")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	_ = a.v.BindPFlag("render.scale", cmd.Flags().Lookup("scale"))
	_ = a.v.BindPFlag("metrics.addr", cmd.Flags().Lookup("metrics-addr"))
	return cmd
}

func (a *app) runView() error {
	cat, err := a.catalog()
	if err != nil {
		return err
	}
	in, err := a.input()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewViewportCollector(reg)
	if err != nil {
		return err
	}
	if addr := a.cfg.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
			}
		}()
		defer srv.Close()
		a.log.Info().Str("addr", addr).Msg("serving metrics")
	}

	scale := a.cfg.Render.Scale
	win := viewport.NewEventWindow(0, 0)
	ctrl := viewport.New(win, a.controllerOptions(metrics))
	game := desktop.NewGame(ctrl, win, in, cat, desktop.Options{Scale: scale, Logger: a.log})

	title := "natalglobe"
	if in.Location.Name != "" {
		title += " - " + in.Location.Name
	}
	return desktop.Run(game, title, a.cfg.Render.Width, a.cfg.Render.Height)
}

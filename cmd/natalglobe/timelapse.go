package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/echoflaresat/natalglobe/sun"
)

func newTimelapseCmd(a *app) *cobra.Command {
	var (
		dir    string
		frames int
		from   float64
		to     float64
	)
	cmd := &cobra.Command{
		Use:   "timelapse",
		Short: "Render a sequence of frames sweeping the time of day",
		RunE: func(cmd *cobra.Command, args []string) error {
			if frames < 1 {
				return fmt.Errorf("frames must be at least 1, got %d", frames)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			ctrl, _, err := a.headless()
			if err != nil {
				return err
			}
			defer ctrl.Dispose()

			start := time.Now()
			for i := 0; i < frames; i++ {
				t := from
				if frames > 1 {
					t = from + (to-from)*float64(i)/float64(frames-1)
				}
				ctrl.UpdateTime(sun.TimeOfDay(t))
				frame, err := ctrl.Tick(time.Now())
				if err != nil {
					return err
				}
				name := filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i))
				if err := writePNG(name, frame); err != nil {
					return err
				}
				a.log.Debug().Str("file", name).Str("time", ctrl.Time().String()).Msg("frame written")
			}
			a.log.Info().Int("frames", frames).Str("dir", dir).Dur("elapsed", time.Since(start)).Msg("timelapse done")
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", "frames", "Output directory")
	cmd.Flags().IntVarP(&frames, "frames", "n", 48, "Number of frames")
	cmd.Flags().Float64Var(&from, "from", 0, "First time of day in hours")
	cmd.Flags().Float64Var(&to, "to", 24, "Last time of day in hours")
	return cmd
}

package main

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/image/draw"

	"github.com/echoflaresat/natalglobe/texture"
)

func newTilesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tiles",
		Short: "Prepare globe textures",
	}

	var width int
	merge := &cobra.Command{
		Use:   "merge <cols>x<rows> <output> <tile>...",
		Short: "Stitch texture tiles row by row into one equirectangular image",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, rows, err := parseLayout(args[0])
			if err != nil {
				return err
			}
			canvas, err := mergeTiles(cols, rows, args[2:], a.log)
			if err != nil {
				return err
			}
			if width > 0 && width != canvas.Rect.Dx() {
				canvas = resample(canvas, width)
			}
			a.log.Info().Str("out", args[1]).Int("width", canvas.Rect.Dx()).Int("height", canvas.Rect.Dy()).Msg("writing texture")
			return saveImage(args[1], canvas)
		},
	}
	merge.Flags().IntVar(&width, "target-width", 0, "Resample the result to this width, keeping the aspect ratio")

	cmd.AddCommand(merge)
	return cmd
}

func parseLayout(s string) (cols, rows int, err error) {
	parts := strings.Split(s, "x")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid tile layout %q (expected NxM)", s)
	}
	if cols, err = strconv.Atoi(parts[0]); err != nil || cols < 1 {
		return 0, 0, fmt.Errorf("invalid cols in %q", s)
	}
	if rows, err = strconv.Atoi(parts[1]); err != nil || rows < 1 {
		return 0, 0, fmt.Errorf("invalid rows in %q", s)
	}
	return cols, rows, nil
}

func mergeTiles(cols, rows int, paths []string, log zerolog.Logger) (*image.NRGBA, error) {
	if len(paths) != cols*rows {
		return nil, fmt.Errorf("expected %d input files, got %d", cols*rows, len(paths))
	}

	var canvas *image.NRGBA
	var tileW, tileH int
	for idx, path := range paths {
		log.Debug().Str("tile", path).Msg("processing")
		tex, err := texture.Load(path, log)
		if err != nil {
			return nil, fmt.Errorf("load %q: %w", path, err)
		}
		tile := tex.Image()
		b := tile.Bounds()

		if canvas == nil {
			tileW, tileH = b.Dx(), b.Dy()
			canvas = image.NewNRGBA(image.Rect(0, 0, cols*tileW, rows*tileH))
		} else if tileW != b.Dx() || tileH != b.Dy() {
			tex.Close()
			return nil, fmt.Errorf("tile size mismatch for %q: expected %dx%d, got %dx%d",
				path, tileW, tileH, b.Dx(), b.Dy())
		}

		x := (idx % cols) * tileW
		y := (idx / cols) * tileH
		draw.Draw(canvas, image.Rect(x, y, x+tileW, y+tileH), tile, b.Min, draw.Src)
		if err := tex.Close(); err != nil {
			return nil, err
		}
	}
	return canvas, nil
}

func resample(src *image.NRGBA, width int) *image.NRGBA {
	b := src.Rect
	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Rect, src, b, draw.Src, nil)
	return dst
}

func saveImage(output string, img image.Image) error {
	ext := strings.ToLower(filepath.Ext(output))
	if ext != ".png" && ext != ".jpg" && ext != ".jpeg" {
		return fmt.Errorf("unsupported output format: %s", ext)
	}
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer f.Close()

	if ext == ".png" {
		return png.Encode(f, img)
	}
	return jpeg.Encode(f, img, &jpeg.Options{Quality: 95})
}

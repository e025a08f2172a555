// Package texture provides equirectangular globe textures.
package texture

import (
	"errors"
	"image"
	"io"
	"math"
	"os"

	"github.com/rs/zerolog"

	"github.com/echoflaresat/natalglobe/colors"
	"github.com/echoflaresat/natalglobe/texture/tiff"

	_ "image/jpeg" // register JPEG format with image.Decode
	_ "image/png"  // register PNG format with image.Decode

	ftiff "github.com/echoflaresat/tiff"
)

// Texture samples an equirectangular image by latitude/longitude.
// Longitude -180 maps to the left edge, latitude 90 to the top row.
type Texture struct {
	Width  int
	Height int
	img    image.Image
	closer io.Closer
}

// FromImage wraps an in-memory image.
func FromImage(img image.Image) Texture {
	b := img.Bounds()
	return Texture{
		Width:  b.Dx(),
		Height: b.Dy(),
		img:    img,
	}
}

// Load opens a texture from disk. Plain striped or tiled TIFFs are memory
// mapped; anything else is decoded into memory.
func Load(path string, log zerolog.Logger) (Texture, error) {
	img, closer, err := loadImage(path, log)
	if err != nil {
		return Texture{}, err
	}
	t := FromImage(img)
	t.closer = closer
	return t, nil
}

func loadImage(path string, log zerolog.Logger) (image.Image, io.Closer, error) {
	mapped, err := tiff.Open(path)
	if err == nil {
		return mapped, mapped, nil
	}
	if !errors.Is(err, tiff.ErrInvalidTiffHeader) {
		log.Warn().Str("path", path).Err(err).Msg("mapped TIFF read failed, decoding instead")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	img, ferr := ftiff.Decode(f)
	if ferr == nil {
		return img, nil, nil
	}

	// fallback to image codecs
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, nil, err
	}
	img, _, err = image.Decode(f)
	return img, nil, err
}

// Image returns the underlying image. It is only valid until Close.
func (t Texture) Image() image.Image {
	return t.img
}

// Close releases the memory map behind a TIFF texture, if any.
func (t Texture) Close() error {
	if t.closer != nil {
		return t.closer.Close()
	}
	return nil
}

// Sample returns the nearest texel for (lat, lng) in degrees.
func (t Texture) Sample(latDeg, lngDeg float64) colors.Color4 {
	if t.img == nil || t.Width == 0 || t.Height == 0 {
		return colors.Black()
	}
	x, y := t.texel(latDeg, lngDeg)
	origin := t.img.Bounds().Min
	return colors.FromStandardColor(t.img.At(origin.X+x, origin.Y+y))
}

func (t Texture) texel(latDeg, lngDeg float64) (int, int) {
	u := math.Mod((lngDeg+180)/360, 1)
	if u < 0 {
		u += 1
	}
	v := (90 - latDeg) / 180

	x := int(u * float64(t.Width))
	y := int(v * float64(t.Height))

	if x < 0 {
		x = 0
	} else if x >= t.Width {
		x = t.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= t.Height {
		y = t.Height - 1
	}
	return x, y
}

// Solid is a constant-colour texture, used when no image is configured.
type Solid colors.Color4

func (s Solid) Sample(_, _ float64) colors.Color4 {
	return colors.Color4(s)
}

package tiff

import (
	"fmt"
	"image"
	"image/color"
	"io"
)

type stripedTiff struct {
	header TiffHeader
	reader io.ReaderAt
}

func newStriped(header TiffHeader, reader io.ReaderAt) (*stripedTiff, error) {
	if header.Compression != CompressionNone {
		return nil, fmt.Errorf("%w: striped compression %d", ErrUnsupported, header.Compression)
	}
	if err := checkPixelFormat(header); err != nil {
		return nil, err
	}
	if len(header.StripOffsets) == 0 || len(header.StripOffsets) != len(header.StripByteCounts) {
		return nil, fmt.Errorf("%w: invalid strip offset/length", ErrUnsupported)
	}
	if header.RowsPerStrip <= 0 || header.RowsPerStrip > header.Height {
		header.RowsPerStrip = header.Height
	}
	return &stripedTiff{header: header, reader: reader}, nil
}

func (t *stripedTiff) ColorModel() color.Model {
	return color.RGBAModel
}

func (t *stripedTiff) Bounds() image.Rectangle {
	return image.Rect(0, 0, t.header.Width, t.header.Height)
}

func (t *stripedTiff) At(x, y int) color.Color {
	h := t.header

	strip := y / h.RowsPerStrip
	localY := y % h.RowsPerStrip
	idx := h.StripOffsets[strip] + (localY*h.Width+x)*h.SamplesPerPixel

	switch h.Photometric {
	case PhotometricRGB:
		var buf [3]byte
		if _, err := t.reader.ReadAt(buf[:], int64(idx)); err != nil {
			panic(fmt.Sprintf("could not read RGB pixel at (%d,%d): %v", x, y, err))
		}
		return color.RGBA{R: buf[0], G: buf[1], B: buf[2], A: 255}
	default:
		var b [1]byte
		if _, err := t.reader.ReadAt(b[:], int64(idx)); err != nil {
			panic(fmt.Sprintf("could not read grayscale pixel at (%d,%d): %v", x, y, err))
		}
		return color.RGBA{R: b[0], G: b[0], B: b[0], A: 255}
	}
}

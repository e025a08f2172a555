package tiff

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"image/color"
	"io"

	lru "github.com/hashicorp/golang-lru"
)

// tileCacheSize is how many decompressed tiles stay resident per image.
const tileCacheSize = 200

type tiledTiff struct {
	header      TiffHeader
	reader      io.ReaderAt
	cache       *lru.Cache // tileIndex -> []byte
	tilesAcross int
}

func newTiled(header TiffHeader, reader io.ReaderAt) (*tiledTiff, error) {
	if header.Compression != CompressionNone && header.Compression != CompressionDeflate {
		return nil, fmt.Errorf("%w: tiled compression %d", ErrUnsupported, header.Compression)
	}
	if err := checkPixelFormat(header); err != nil {
		return nil, err
	}
	if header.TileWidth <= 0 || header.TileHeight <= 0 {
		return nil, fmt.Errorf("%w: missing tile size", ErrUnsupported)
	}
	if len(header.TileOffsets) == 0 || len(header.TileOffsets) != len(header.TileByteCounts) {
		return nil, fmt.Errorf("%w: invalid tile offset/length", ErrUnsupported)
	}

	cache, err := lru.New(tileCacheSize)
	if err != nil {
		return nil, err
	}

	return &tiledTiff{
		header:      header,
		reader:      reader,
		cache:       cache,
		tilesAcross: (header.Width + header.TileWidth - 1) / header.TileWidth,
	}, nil
}

func (t *tiledTiff) ColorModel() color.Model {
	return color.RGBAModel
}

func (t *tiledTiff) Bounds() image.Rectangle {
	return image.Rect(0, 0, t.header.Width, t.header.Height)
}

func (t *tiledTiff) At(x, y int) color.Color {
	h := t.header

	tileIndex := (y/h.TileHeight)*t.tilesAcross + x/h.TileWidth

	var tile []byte
	if val, ok := t.cache.Get(tileIndex); ok {
		tile = val.([]byte)
	} else {
		tile = t.loadTile(tileIndex)
		t.cache.Add(tileIndex, tile)
	}

	localX := x % h.TileWidth
	localY := y % h.TileHeight
	pixOffset := (localY*h.TileWidth + localX) * h.SamplesPerPixel

	if h.Photometric == PhotometricRGB {
		return color.RGBA{
			R: tile[pixOffset],
			G: tile[pixOffset+1],
			B: tile[pixOffset+2],
			A: 255,
		}
	}
	v := tile[pixOffset]
	return color.RGBA{R: v, G: v, B: v, A: 255}
}

func (t *tiledTiff) loadTile(index int) []byte {
	h := t.header
	buf := make([]byte, h.TileByteCounts[index])
	if _, err := t.reader.ReadAt(buf, int64(h.TileOffsets[index])); err != nil {
		panic(fmt.Sprintf("failed to read tile %d: %v", index, err))
	}

	if h.Compression != CompressionDeflate {
		return buf
	}
	r, err := zlib.NewReader(bytes.NewReader(buf))
	if err != nil {
		panic(fmt.Sprintf("zlib decompression error: %v", err))
	}
	defer r.Close()
	tile, err := io.ReadAll(r)
	if err != nil {
		panic(fmt.Sprintf("zlib read error: %v", err))
	}
	return tile
}

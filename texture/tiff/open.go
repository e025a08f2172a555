// Package tiff reads uncompressed striped and deflate/uncompressed tiled
// 8-bit TIFFs straight from a memory map, without decoding the whole raster.
package tiff

import (
	"image"
	"io"

	"golang.org/x/exp/mmap"
)

// Image is a lazily read TIFF raster. Close unmaps the file.
type Image interface {
	image.Image
	io.Closer
}

type mapped struct {
	image.Image
	reader *mmap.ReaderAt
}

func (m *mapped) Close() error {
	return m.reader.Close()
}

// Open memory-maps path and returns a striped or tiled reader, whichever
// layout the header describes. Files that are not TIFFs fail with
// ErrInvalidTiffHeader; TIFFs in other layouts fail with ErrUnsupported.
func Open(path string) (Image, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}

	img, err := decode(reader)
	if err != nil {
		reader.Close()
		return nil, err
	}
	return &mapped{Image: img, reader: reader}, nil
}

func decode(reader io.ReaderAt) (image.Image, error) {
	header, err := parseTiffHeader(reader)
	if err != nil {
		return nil, err
	}
	if len(header.TileOffsets) > 0 {
		return newTiled(header, reader)
	}
	return newStriped(header, reader)
}

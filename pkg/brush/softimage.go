package brush

import (
	"fmt"
	"image"
)

// SoftwareImage is the in-memory ImageFactory implementation used by the CLI
// and tests. Hosts with a GPU surface supply their own factory instead.
type SoftwareImage struct {
	rgba *image.RGBA
}

// Size implements Image.
func (s *SoftwareImage) Size() (int, int) {
	b := s.rgba.Bounds()
	return b.Dx(), b.Dy()
}

// RGBA exposes the backing bitmap for software rendering and PNG export.
func (s *SoftwareImage) RGBA() *image.RGBA {
	return s.rgba
}

// SoftwareFactory builds SoftwareImages from raw RGBA samples.
type SoftwareFactory struct{}

// FromRGBA implements ImageFactory.
func (SoftwareFactory) FromRGBA(pix []byte, width, height int) (Image, error) {
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("brush: pixel length %d does not match %dx%d RGBA", len(pix), width, height)
	}
	rgba := &image.RGBA{Pix: pix, Stride: width * 4, Rect: image.Rect(0, 0, width, height)}
	return &SoftwareImage{rgba: rgba}, nil
}

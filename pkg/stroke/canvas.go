package stroke

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// ImageCanvas is a software Canvas backed by an image.RGBA, used by the CLI
// and tests. The host application supplies its own Canvas for the live
// surface.
type ImageCanvas struct {
	dst *image.RGBA
}

// NewImageCanvas builds a transparent canvas of the given size.
func NewImageCanvas(width, height int) *ImageCanvas {
	return &ImageCanvas{dst: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// Fill floods the canvas with a color.
func (c *ImageCanvas) Fill(col color.NRGBA) {
	a := uint32(col.A)
	r := uint8(uint32(col.R) * a / 255)
	g := uint8(uint32(col.G) * a / 255)
	b := uint8(uint32(col.B) * a / 255)
	for i := 0; i < len(c.dst.Pix); i += 4 {
		c.dst.Pix[i+0] = r
		c.dst.Pix[i+1] = g
		c.dst.Pix[i+2] = b
		c.dst.Pix[i+3] = col.A
	}
}

// DrawStamp implements Canvas with a bilinear affine composite.
func (c *ImageCanvas) DrawStamp(img *image.RGBA, m f64.Aff3, alpha float64) {
	var opts *xdraw.Options
	if alpha < 1 {
		a := uint8(alpha*255 + 0.5)
		opts = &xdraw.Options{SrcMask: image.NewUniform(color.Alpha{A: a})}
	}
	xdraw.ApproxBiLinear.Transform(c.dst, m, img, img.Bounds(), xdraw.Over, opts)
}

// Image exposes the backing bitmap for export.
func (c *ImageCanvas) Image() *image.RGBA {
	return c.dst
}

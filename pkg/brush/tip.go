package brush

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

// MaxTipDim caps the pixel size of a built tip. Brush stamps are never
// displayed larger than a few hundred units, so retaining full-resolution
// oversized masks would waste memory permanently.
const MaxTipDim = 1024

// Image is an opaque renderable resource produced by an ImageFactory. Its
// lifetime is tied to the Tip that owns it.
type Image interface {
	Size() (width, height int)
}

// ImageFactory constructs renderable bitmaps from raw RGBA pixel samples.
// The core never touches the file system or a display; the host supplies
// whatever factory matches its surface.
type ImageFactory interface {
	FromRGBA(pix []byte, width, height int) (Image, error)
}

// Tip is an immutable brush tip: the renderable image resource plus the
// geometry the stroke engine needs. Image may be nil when resource
// construction failed; the preset is still usable, tip rendering simply
// unavailable.
type Tip struct {
	Name     string
	Image    Image
	Diameter int     // max(source width, height), before any downscale
	Spacing  float64 // fraction of diameter

	alpha  []byte // 8-bit mask at the (possibly downscaled) image size
	maskW  int
	maskH  int
}

// Alpha returns the tip's alpha mask and its dimensions. The mask is at the
// built image's scale, not necessarily the source scale.
func (t *Tip) Alpha() ([]byte, int, int) {
	return t.alpha, t.maskW, t.maskH
}

// NewTip converts a single-channel alpha mask into an opaque-white,
// variable-alpha bitmap and builds the image resource, downscaling
// aspect-preserved when the larger dimension exceeds MaxTipDim. A factory
// failure is returned to the caller for per-brush reporting; the batch owner
// decides whether to keep the preset anyway.
func NewTip(name string, mask []byte, width, height int, spacing float64, f ImageFactory) (*Tip, error) {
	if width <= 0 || height <= 0 || len(mask) != width*height {
		return nil, fmt.Errorf("brush: mask length %d does not match %dx%d", len(mask), width, height)
	}
	if spacing <= 0 {
		spacing = DefaultSpacing
	}

	diameter := max(width, height)
	scaledMask, w, h := mask, width, height
	if diameter > MaxTipDim {
		scaledMask, w, h = downscaleMask(mask, width, height, MaxTipDim)
	}

	tip := &Tip{
		Name:     name,
		Diameter: diameter,
		Spacing:  spacing,
		alpha:    scaledMask,
		maskW:    w,
		maskH:    h,
	}

	pix := make([]byte, w*h*4)
	for i, a := range scaledMask {
		pix[i*4+0] = 0xFF
		pix[i*4+1] = 0xFF
		pix[i*4+2] = 0xFF
		pix[i*4+3] = a
	}
	img, err := f.FromRGBA(pix, w, h)
	if err != nil {
		return tip, fmt.Errorf("brush: building image for %q: %w", name, err)
	}
	tip.Image = img
	return tip, nil
}

// downscaleMask resizes an 8-bit mask so its larger dimension equals limit,
// preserving aspect ratio.
func downscaleMask(mask []byte, width, height, limit int) ([]byte, int, int) {
	w, h := width, height
	if w >= h {
		h = max(1, h*limit/w)
		w = limit
	} else {
		w = max(1, w*limit/h)
		h = limit
	}

	src := &image.Gray{Pix: mask, Stride: width, Rect: image.Rect(0, 0, width, height)}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Rect, src, src.Rect, xdraw.Src, nil)
	return dst.Pix, w, h
}

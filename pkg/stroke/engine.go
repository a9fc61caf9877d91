// Package stroke turns pointer samples into positioned, rotated, scaled,
// tinted stamp draws against a caller-supplied canvas. One engine owns one
// stroke at a time; it runs synchronously on the input path and never blocks.
package stroke

import (
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"golang.org/x/image/math/f64"

	"github.com/Zirnworks/Pictaflux/pkg/brush"
)

// Point is a canvas position.
type Point struct {
	X, Y float64
}

// Tilt is the stylus tilt vector in degrees per axis.
type Tilt struct {
	X, Y float64
}

func (t Tilt) magnitude() float64 {
	return math.Hypot(t.X, t.Y)
}

// Canvas is the minimal drawing capability the engine needs. DrawStamp
// composites img over the surface under the given source-to-destination
// affine transform, scaled by a global alpha.
type Canvas interface {
	DrawStamp(img *image.RGBA, m f64.Aff3, alpha float64)
}

// Stamps below these floors are invisibly small or transparent and are
// skipped without error.
const (
	minStampDiameter = 0.5
	minStampAlpha    = 0.01
)

// strokeState is reset at BeginStroke/EndStroke and owned exclusively by one
// engine; concurrent strokes are out of scope.
type strokeState struct {
	last   Point
	dir    Point // unit vector, defaults to +x
	accum  float64
	active bool
}

// Engine places stamps along a stroke path at a density determined by path
// length and spacing only, independent of how finely the path was sampled.
type Engine struct {
	canvas Canvas
	rng    *rand.Rand

	tip   *brush.Tip
	dyn   brush.Dynamics
	color color.NRGBA

	state strokeState

	// Tinting the full mask is expensive relative to stamp placement, so the
	// tinted copy is cached until the color or tip changes.
	cachedStamp *image.RGBA
	cachedColor color.NRGBA
	cachedTip   *brush.Tip
}

// NewEngine builds an engine drawing into canvas with black paint and no
// brush selected.
func NewEngine(canvas Canvas) *Engine {
	return &Engine{
		canvas: canvas,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		color:  color.NRGBA{A: 0xFF},
		dyn:    brush.DefaultDynamics(),
	}
}

// SetRand replaces the jitter source, letting tests run deterministically.
func (e *Engine) SetRand(r *rand.Rand) {
	e.rng = r
}

// SetBrush selects the active preset.
func (e *Engine) SetBrush(p *brush.Preset) {
	e.tip = p.Tip
	e.dyn = p.Dynamics
}

// SetColor selects the active paint color.
func (e *Engine) SetColor(c color.NRGBA) {
	e.color = c
}

// Active reports whether a stroke is in progress.
func (e *Engine) Active() bool {
	return e.state.active
}

// BeginStroke starts a stroke at p and immediately places one stamp there.
// A second BeginStroke while active simply replaces the state.
func (e *Engine) BeginStroke(p Point, pressure float64, tilt Tilt) {
	e.state = strokeState{
		last:   p,
		dir:    Point{X: 1, Y: 0},
		active: true,
	}
	e.placeStamp(p, pressure, tilt)
}

// AddPoint extends the stroke to p, placing stamps at every full spacing
// interval crossed. A no-op when idle or when p duplicates the last sample.
func (e *Engine) AddPoint(p Point, pressure float64, tilt Tilt) {
	if !e.state.active {
		return
	}
	dx := p.X - e.state.last.X
	dy := p.Y - e.state.last.Y
	segment := math.Hypot(dx, dy)
	if segment == 0 {
		return
	}
	e.state.dir = Point{X: dx / segment, Y: dy / segment}

	threshold := math.Max(1, float64(e.diameter())*e.dyn.Spacing)
	if segment >= threshold-e.state.accum {
		traveled := threshold - e.state.accum
		for traveled <= segment {
			e.placeStamp(Point{
				X: e.state.last.X + e.state.dir.X*traveled,
				Y: e.state.last.Y + e.state.dir.Y*traveled,
			}, pressure, tilt)
			traveled += threshold
		}
		e.state.accum = segment - (traveled - threshold)
	} else {
		e.state.accum += segment
	}
	e.state.last = p
}

// EndStroke finishes the stroke. Stamps already drawn remain; there is no
// mid-stroke cancellation.
func (e *Engine) EndStroke() {
	e.state.active = false
	e.state.accum = 0
}

func (e *Engine) diameter() int {
	if e.tip == nil {
		return 1
	}
	return e.tip.Diameter
}

// placeStamp resolves every dynamics-controlled parameter for one stamp and
// draws it. A resolved diameter or alpha below the visibility floor aborts
// the stamp silently.
func (e *Engine) placeStamp(p Point, pressure float64, tilt Tilt) {
	if e.tip == nil || e.canvas == nil {
		return
	}
	stamp := e.stampImage()
	if stamp == nil {
		return
	}

	diameter := float64(e.tip.Diameter) *
		e.resolve(e.dyn.Size, pressure, tilt) * e.jitterMul(e.dyn.Size.Jitter)
	if diameter < minStampDiameter {
		return
	}

	alpha := e.resolve(e.dyn.Opacity, pressure, tilt) * e.jitterMul(e.dyn.Opacity.Jitter) *
		e.resolve(e.dyn.Flow, pressure, tilt) * e.jitterMul(e.dyn.Flow.Jitter)
	if alpha < minStampAlpha {
		return
	}

	// Angle: the controller scales the configured tip angle; direction and
	// tilt compose additively, then jitter as a signed fraction of a turn.
	angle := e.dyn.TipAngle * e.resolve(e.dyn.Angle, pressure, tilt)
	switch e.dyn.Angle.Source {
	case brush.ControlDirection:
		angle += math.Atan2(e.state.dir.Y, e.state.dir.X)
	case brush.ControlTilt:
		if tilt.magnitude() > 0 {
			angle += math.Atan2(tilt.Y, tilt.X)
		}
	}
	if j := e.dyn.Angle.Jitter; j > 0 {
		angle += (e.rng.Float64()*2 - 1) * j * 2 * math.Pi
	}

	roundness := e.dyn.TipRoundness *
		e.resolve(e.dyn.Roundness, pressure, tilt) * e.jitterMul(e.dyn.Roundness.Jitter)
	roundness = math.Min(1, math.Max(0.01, roundness))

	count := 1
	if e.dyn.ScatterEnabled && e.dyn.ScatterCount > 1 {
		count = e.dyn.ScatterCount
	}
	for i := 0; i < count; i++ {
		pos := p
		if e.dyn.ScatterEnabled && e.dyn.Scatter.Jitter > 0 {
			scale := e.dyn.Scatter.Jitter * diameter
			perp := (e.rng.Float64()*2 - 1) * scale
			pos.X += -e.state.dir.Y * perp
			pos.Y += e.state.dir.X * perp
			if e.dyn.ScatterBothAxes {
				along := (e.rng.Float64()*2 - 1) * scale
				pos.X += e.state.dir.X * along
				pos.Y += e.state.dir.Y * along
			}
		}
		e.canvas.DrawStamp(stamp, e.stampTransform(stamp, pos, diameter, angle, roundness), alpha)
	}
}

// stampTransform maps the stamp bitmap onto the canvas: centered at pos,
// rotated by angle, scaled so the larger dimension equals the resolved
// diameter, with roundness squashing the height into an ellipse.
func (e *Engine) stampTransform(stamp *image.RGBA, pos Point, diameter, angle, roundness float64) f64.Aff3 {
	b := stamp.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	s := diameter / math.Max(w, h)
	sx, sy := s, s*roundness
	if e.dyn.FlipX {
		sx = -sx
	}
	if e.dyn.FlipY {
		sy = -sy
	}

	cos, sin := math.Cos(angle), math.Sin(angle)
	a, bb := cos*sx, -sin*sy
	d, ee := sin*sx, cos*sy
	cx, cy := w/2, h/2
	return f64.Aff3{
		a, bb, pos.X - a*cx - bb*cy,
		d, ee, pos.Y - d*cx - ee*cy,
	}
}

// resolve maps a controller to a scalar multiplier. Direction and fade do
// not modulate magnitude; they act through the angle and position rules.
func (e *Engine) resolve(c brush.Controller, pressure float64, tilt Tilt) float64 {
	switch c.Source {
	case brush.ControlPressure:
		return c.Minimum + (1-c.Minimum)*clamp01(pressure)
	case brush.ControlTilt:
		return c.Minimum + (1-c.Minimum)*math.Min(1, tilt.magnitude()/90)
	}
	return 1
}

func (e *Engine) jitterMul(jitter float64) float64 {
	if jitter <= 0 {
		return 1
	}
	return 1 - jitter*e.rng.Float64()
}

// stampImage returns the color-tinted copy of the tip's alpha mask,
// rebuilding it only when the color or tip changed.
func (e *Engine) stampImage() *image.RGBA {
	if e.cachedStamp != nil && e.cachedTip == e.tip && e.cachedColor == e.color {
		return e.cachedStamp
	}
	mask, w, h := e.tip.Alpha()
	if len(mask) == 0 {
		return nil
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	cr, cg, cb := uint32(e.color.R), uint32(e.color.G), uint32(e.color.B)
	ca := uint32(e.color.A)
	for i, m := range mask {
		a := uint32(m) * ca / 255
		img.Pix[i*4+0] = uint8(cr * a / 255)
		img.Pix[i*4+1] = uint8(cg * a / 255)
		img.Pix[i*4+2] = uint8(cb * a / 255)
		img.Pix[i*4+3] = uint8(a)
	}
	e.cachedStamp = img
	e.cachedColor = e.color
	e.cachedTip = e.tip
	return img
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

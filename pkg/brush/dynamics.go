// Package brush holds the preset-facing value types of the pipeline: per
// parameter dynamics controllers, the immutable tip image built from a decoded
// alpha mask, and the preset that ties them together.
package brush

// ControlSource selects the input signal driving a dynamics controller.
type ControlSource int

const (
	ControlOff ControlSource = iota
	ControlPressure
	ControlTilt
	ControlDirection
	ControlFade
)

func (c ControlSource) String() string {
	switch c {
	case ControlOff:
		return "off"
	case ControlPressure:
		return "pressure"
	case ControlTilt:
		return "tilt"
	case ControlDirection:
		return "direction"
	case ControlFade:
		return "fade"
	}
	return "unknown"
}

// Controller maps an input signal to a scalar modulation of one stamp
// parameter. Value type, copied by value.
type Controller struct {
	Source    ControlSource
	Jitter    float64 // [0,1]
	Minimum   float64 // [0,1]
	FadeSteps int     // >= 0
}

// Dynamics is the full per-preset dynamics record: one controller per
// modulated parameter plus the tip geometry. One instance per preset; edits
// replace the whole preset rather than mutating this in place.
type Dynamics struct {
	Size      Controller
	Angle     Controller
	Roundness Controller
	Scatter   Controller
	Opacity   Controller
	Flow      Controller

	ScatterEnabled  bool
	ScatterCount    int // >= 1
	ScatterBothAxes bool

	Spacing      float64 // fraction of diameter, always > 0
	TipAngle     float64 // radians
	TipRoundness float64 // (0,1]
	FlipX        bool
	FlipY        bool
	Hardness     float64
}

// DefaultSpacing is used when a source provides no spacing or a zero one.
const DefaultSpacing = 0.25

// DefaultDynamics returns the record every preset starts from, independent of
// any decoded file: all controllers off, circular upright tip.
func DefaultDynamics() Dynamics {
	return Dynamics{
		ScatterCount: 1,
		Spacing:      DefaultSpacing,
		TipRoundness: 1,
		Hardness:     1,
	}
}

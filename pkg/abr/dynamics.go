package abr

import (
	"math"

	"github.com/Zirnworks/Pictaflux/pkg/brush"
)

// Descriptor keys consumed by the normalizer. The preset list lives under
// "Brsh" at the top level; each preset object nests its tip shape under a
// second "Brsh".
const (
	keyPresetList = "Brsh"
	keyName       = "Nm  "
	keySampleID   = "sampledData"

	keyTipShape  = "Brsh"
	keyDiameter  = "Dmtr"
	keySpacing   = "Spcn"
	keyAngle     = "Angl"
	keyRoundness = "Rndn"
	keyFlipX     = "flipX"
	keyFlipY     = "flipY"
	keyHardness  = "Hrdn"

	keyUseTipDynamics   = "useTipDynamics"
	keyUsePaintDynamics = "usePaintDynamics"
	keyUseScatter       = "useScatter"
	keySizeDyn          = "szVr"
	keyAngleDyn         = "angleDynamics"
	keyRoundnessDyn     = "roundnessDynamics"
	keyOpacityDyn       = "opVr"
	keyFlowDyn          = "flVr"
	keyScatterDyn       = "scatterDynamics"
	keyScatterCount     = "Cnt "
	keyScatterBothAxes  = "bothAxes"
	keyMinDiameter      = "minimumDiameter"

	keyControlSource = "bVTy"
	keyFadeSteps     = "fStp"
	keyJitter        = "jitter"
	keyMinimum       = "Mnm "

	keyToolOptions     = "toolOptions"
	keySizePressure    = "sizeUsesPressure"
	keyOpacityPressure = "opacityUsesPressure"
)

// presetMeta is one descriptor preset after normalization, ready for the
// merge with the sample block.
type presetMeta struct {
	Name       string
	Identifier string
	Spacing    float64 // <= 0 when the descriptor carries none
	Dynamics   brush.Dynamics
}

// descriptorPresets pulls the per-preset sub-objects out of a decoded
// descriptor block and normalizes each one.
func descriptorPresets(root Value) []presetMeta {
	list, ok := root.Lookup(keyPresetList)
	if !ok || list.Kind != KindList {
		return nil
	}
	metas := make([]presetMeta, 0, len(list.Items))
	for _, item := range list.Items {
		if item.Kind != KindObject {
			continue
		}
		metas = append(metas, normalizePreset(item))
	}
	return metas
}

func normalizePreset(v Value) presetMeta {
	m := presetMeta{Spacing: -1, Dynamics: normalizeDynamics(v)}
	m.Name, _ = v.String(keyName)
	m.Identifier, _ = v.String(keySampleID)
	if tip, ok := v.Object(keyTipShape); ok {
		if s, ok := tip.Float(keySpacing); ok && s > 0 {
			m.Spacing = s
		}
	}
	return m
}

// normalizeDynamics maps a preset sub-object onto a dynamics record, starting
// from defaults and overlaying only what the source provides. Unit-valued
// numbers arrive normalized by Value.Float (percent -> fraction); angles are
// converted from degrees here.
func normalizeDynamics(v Value) brush.Dynamics {
	d := brush.DefaultDynamics()

	if tip, ok := v.Object(keyTipShape); ok {
		if s, ok := tip.Float(keySpacing); ok && s > 0 {
			d.Spacing = s
		}
		if a, ok := tip.Float(keyAngle); ok {
			d.TipAngle = a * math.Pi / 180
		}
		if r, ok := tip.Float(keyRoundness); ok && r > 0 {
			d.TipRoundness = math.Min(r, 1)
		}
		if f, ok := tip.Flag(keyFlipX); ok {
			d.FlipX = f
		}
		if f, ok := tip.Flag(keyFlipY); ok {
			d.FlipY = f
		}
		if h, ok := tip.Float(keyHardness); ok {
			d.Hardness = clamp01(h)
		}
	}

	if on, _ := v.Flag(keyUseTipDynamics); on {
		d.Size = controllerFrom(v, keySizeDyn)
		d.Angle = controllerFrom(v, keyAngleDyn)
		d.Roundness = controllerFrom(v, keyRoundnessDyn)
	}
	if on, _ := v.Flag(keyUsePaintDynamics); on {
		d.Opacity = controllerFrom(v, keyOpacityDyn)
		d.Flow = controllerFrom(v, keyFlowDyn)
	}

	if md, ok := v.Float(keyMinDiameter); ok && md > 0 && d.Size.Source != brush.ControlOff {
		d.Size.Minimum = clamp01(md)
	}

	if on, _ := v.Flag(keyUseScatter); on {
		d.ScatterEnabled = true
		d.Scatter = controllerFrom(v, keyScatterDyn)
		if n, ok := v.Int(keyScatterCount); ok && n >= 1 {
			d.ScatterCount = n
		}
		if b, ok := v.Flag(keyScatterBothAxes); ok {
			d.ScatterBothAxes = b
		}
	}

	// Legacy tool options can force pressure control, but only onto
	// controllers still at their default so an explicit setting is never
	// clobbered.
	if opts, ok := v.Object(keyToolOptions); ok {
		if on, _ := opts.Flag(keySizePressure); on && d.Size.Source == brush.ControlOff {
			d.Size.Source = brush.ControlPressure
		}
		if on, _ := opts.Flag(keyOpacityPressure); on && d.Opacity.Source == brush.ControlOff {
			d.Opacity.Source = brush.ControlPressure
		}
	}
	return d
}

// controllerFrom decodes one controller sub-object; a missing sub-object
// leaves the controller at its default.
func controllerFrom(v Value, key string) brush.Controller {
	var c brush.Controller
	obj, ok := v.Object(key)
	if !ok {
		return c
	}
	if code, ok := obj.Int(keyControlSource); ok {
		c.Source = controlSource(code)
	}
	if n, ok := obj.Int(keyFadeSteps); ok && n > 0 {
		c.FadeSteps = n
	}
	if j, ok := obj.Float(keyJitter); ok {
		c.Jitter = clamp01(j)
	}
	if m, ok := obj.Float(keyMinimum); ok {
		c.Minimum = clamp01(m)
	}
	return c
}

// controlSource maps the numeric control codes of the source format. Codes 3
// and 5 belong to the tilt family, 6 to stroke direction; anything
// unrecognized falls back to off.
func controlSource(code int) brush.ControlSource {
	switch code {
	case 1:
		return brush.ControlFade
	case 2:
		return brush.ControlPressure
	case 3, 5:
		return brush.ControlTilt
	case 6:
		return brush.ControlDirection
	}
	return brush.ControlOff
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

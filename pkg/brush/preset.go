package brush

import (
	"github.com/Zirnworks/Pictaflux/pkg/util"
)

// Preset is an immutable snapshot of a brush: tip, dynamics, display name.
// Edits never mutate a preset in place; callers build a new one and swap it
// wholesale.
type Preset struct {
	ID        string
	Name      string
	Tip       *Tip
	Dynamics  Dynamics
	Thumbnail Image // optional cached thumbnail, assigned by the UI owner
}

// NewPreset builds a preset with a deterministic ID derived from the tip
// content and name, so re-importing the same pack yields stable identifiers.
func NewPreset(name string, tip *Tip, dyn Dynamics) *Preset {
	return &Preset{
		ID:       presetID(name, tip),
		Name:     name,
		Tip:      tip,
		Dynamics: dyn,
	}
}

// WithDynamics returns a copy of the preset carrying new dynamics. The tip is
// shared, never rebuilt; the ID is preserved so the UI can swap in place.
func (p *Preset) WithDynamics(dyn Dynamics) *Preset {
	cp := *p
	cp.Dynamics = dyn
	return &cp
}

func presetID(name string, tip *Tip) string {
	seed := struct {
		Name     string
		Diameter int
		Mask     string
	}{Name: name}
	if tip != nil {
		mask, _, _ := tip.Alpha()
		seed.Diameter = tip.Diameter
		seed.Mask = util.Md5ThenHex(mask)
	}
	return util.HashUUID(seed)
}

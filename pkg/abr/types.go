// Package abr decodes brush-pack files: the versioned binary container, its
// run-length-packed sample masks, and the nested descriptor metadata tree,
// merged into ready-to-build brush definitions.
package abr

import (
	"errors"

	"github.com/Zirnworks/Pictaflux/pkg/brush"
)

// Fatal decode errors: the whole import is rejected, zero brushes returned.
// Everything else is recoverable per entry (skip and continue).
var (
	// ErrTruncated reports a buffer too small to hold the pack header.
	ErrTruncated = errors.New("abr: truncated input")
	// ErrUnsupportedVersion reports an unrecognized top-level version.
	ErrUnsupportedVersion = errors.New("abr: unsupported version")
)

// RawBrush is one decoded sampled brush, before tip building. Immutable;
// discarded once converted to a brush.Tip.
type RawBrush struct {
	Name       string
	Identifier string // opaque sample id, empty when the format has none
	Width      int
	Height     int
	AlphaMask  []byte  // row-major 8-bit samples, one per pixel
	Spacing    float64 // fraction of diameter
	Diameter   int     // max(Width, Height)

	// Dynamics is attached by the descriptor merge; nil means no metadata
	// matched and the preset gets defaults.
	Dynamics *brush.Dynamics
}

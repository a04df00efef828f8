package skintone

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Descriptor identifies a skin tone. It is an immutable value; build
// one with New or Parse and copy it freely.
type Descriptor struct {
	R           uint8  // Red channel (0-255)
	G           uint8  // Green channel (0-255)
	B           uint8  // Blue channel (0-255)
	Hex         string // Canonical lowercase "#rrggbb"
	Description string // Human-readable label, not part of identity
}

// Key is the cache identity of a tone, derived solely from its RGB
// channels. Two descriptors with equal RGB but different descriptions
// map to the same key and therefore share one cache entry.
type Key uint32

// New builds a descriptor from raw channels. The hex form is derived.
func New(r, g, b uint8, description string) Descriptor {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	return Descriptor{
		R:           r,
		G:           g,
		B:           b,
		Hex:         c.Hex(),
		Description: description,
	}
}

// Parse builds a descriptor from a "#rrggbb" (or "#rgb") hex string.
func Parse(hex, description string) (Descriptor, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to parse skin tone %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return New(r, g, b, description), nil
}

// Key packs the RGB channels into the cache identity.
func (d Descriptor) Key() Key {
	return Key(uint32(d.R)<<16 | uint32(d.G)<<8 | uint32(d.B))
}

// Hex renders the key back to "#rrggbb" form, for URLs and logs.
func (k Key) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", uint8(k>>16), uint8(k>>8), uint8(k))
}

// RGBA returns the tone as an opaque stdlib color.
func (d Descriptor) RGBA() color.RGBA {
	return color.RGBA{R: d.R, G: d.G, B: d.B, A: 255}
}

// Colorful returns the tone in go-colorful's 0..1 space.
func (d Descriptor) Colorful() colorful.Color {
	return colorful.Color{R: float64(d.R) / 255, G: float64(d.G) / 255, B: float64(d.B) / 255}
}

// Luminance returns the perceptual lightness of the tone as the L
// component of CIE Lab, in [0,1]. The generators scale variation
// amplitude, base roughness, and scattering depth with it.
func (d Descriptor) Luminance() float64 {
	l, _, _ := d.Colorful().Lab()
	if l < 0 {
		return 0
	}
	if l > 1 {
		return 1
	}
	return l
}

func (d Descriptor) String() string {
	if d.Description == "" {
		return d.Hex
	}
	return fmt.Sprintf("%s (%s)", d.Hex, d.Description)
}

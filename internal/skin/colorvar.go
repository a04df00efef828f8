package skin

import (
	"fmt"

	"github.com/MeKo-Tech/skintex/internal/skintone"
	"github.com/MeKo-Tech/skintex/internal/texture"
)

// Seeds and scales for the base color octaves. The three layers model
// subdermal blood vessels (broad), pigment patches (mid) and
// micro-texture (fine); fixed seeds keep the maps reproducible and
// decorrelated from the other generators.
const (
	seedVessels = 1101
	seedPatches = 1102
	seedMicro   = 1103

	freqVessels = 6.0
	freqPatches = 18.0
	freqMicro   = 70.0

	weightVessels = 0.5
	weightPatches = 0.3
	weightMicro   = 0.2

	// Perturbation amplitude in byte space: base plus a luminance-scaled
	// share, so variation reads clearly on light skin without turning
	// dark skin blotchy.
	variationBase    = 6.0
	variationLumGain = 14.0

	// Fraction of the amplitude added to the red channel where the
	// vessel octave is strong (blood flush).
	redBias = 0.35
)

// GenerateBaseColor bakes the color variation map: the flat tone
// perturbed by three noise octaves, luminance-adaptive and red-biased.
// Identical inputs produce byte-identical buffers.
func GenerateBaseColor(tone skintone.Descriptor, p Params) (*texture.Buffer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	vessels := p.source(seedVessels)
	patches := p.source(seedPatches)
	micro := p.source(seedMicro)

	buf, err := texture.NewBuffer(p.Resolution, p.Resolution)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate base color map: %w", err)
	}

	amp := (variationBase + variationLumGain*tone.Luminance()) * p.variation()
	baseR := float64(tone.R)
	baseG := float64(tone.G)
	baseB := float64(tone.B)

	size := float64(p.Resolution)
	for y := 0; y < p.Resolution; y++ {
		v := float64(y) / size
		for x := 0; x < p.Resolution; x++ {
			u := float64(x) / size

			nv := vessels.At(u*freqVessels, v*freqVessels)
			np := patches.At(u*freqPatches, v*freqPatches)
			nm := micro.At(u*freqMicro, v*freqMicro)

			delta := (weightVessels*signed(nv) + weightPatches*signed(np) + weightMicro*signed(nm)) * amp
			flush := nv * amp * redBias

			buf.SetRGBA(x, y,
				clampByte(baseR+delta+flush),
				clampByte(baseG+delta),
				clampByte(baseB+delta),
				255)
		}
	}
	return buf, nil
}

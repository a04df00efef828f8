package skin

import (
	"fmt"

	"github.com/MeKo-Tech/skintex/internal/skintone"
	"github.com/MeKo-Tech/skintex/internal/texture"
)

const (
	seedBloodFlow = 4401
	seedBone      = 4402

	freqBloodFlow = 7.0
	freqBone      = 3.5

	// Lighter skin scatters more; base depth rises with luminance.
	sssBase    = 0.30
	sssLumGain = 0.45

	bloodRaising = 0.18
	boneLowering = 0.22
)

// GenerateSSS bakes the grayscale subsurface scattering map. Blood-flow
// regions scatter more, bone-proximity regions less.
func GenerateSSS(tone skintone.Descriptor, p Params) (*texture.Buffer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	blood := p.source(seedBloodFlow)
	bone := p.source(seedBone)

	buf, err := texture.NewBuffer(p.Resolution, p.Resolution)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate scattering map: %w", err)
	}

	base := sssBase + sssLumGain*tone.Luminance()

	size := float64(p.Resolution)
	for y := 0; y < p.Resolution; y++ {
		v := float64(y) / size
		for x := 0; x < p.Resolution; x++ {
			u := float64(x) / size

			s := base
			s += bloodRaising * blood.At(u*freqBloodFlow, v*freqBloodFlow)
			s -= boneLowering * bone.At(u*freqBone, v*freqBone)

			g := toByte(clamp01(s))
			buf.SetRGBA(x, y, g, g, g, 255)
		}
	}
	return buf, nil
}

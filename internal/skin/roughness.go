package skin

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/skintex/internal/skintone"
	"github.com/MeKo-Tech/skintex/internal/texture"
)

const (
	seedTZone      = 3301
	seedDryPatches = 3302
	seedRoughMicro = 3303

	freqTZone      = 4.0
	freqDryPatches = 12.0
	freqRoughMicro = 90.0

	// Base roughness falls slightly with luminance: lighter skin bakes
	// with a mild oily sheen.
	roughnessBase    = 0.62
	roughnessLumDrop = 0.18

	oilyLowering  = 0.16
	dryRaising    = 0.14
	microJitter   = 0.04
	roughnessMin  = 0.3
	roughnessMax  = 0.9
	dryPatchShape = 3.0
)

// GenerateRoughness bakes the grayscale roughness map. Oily T-zone
// regions lower the value, dry patches raise it, and every pixel is
// clamped to [0.3, 0.9] before byte mapping.
func GenerateRoughness(tone skintone.Descriptor, p Params) (*texture.Buffer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	tzone := p.source(seedTZone)
	dry := p.source(seedDryPatches)
	micro := p.source(seedRoughMicro)

	buf, err := texture.NewBuffer(p.Resolution, p.Resolution)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate roughness map: %w", err)
	}

	base := roughnessBase - roughnessLumDrop*tone.Luminance()
	strength := p.imperfection()

	size := float64(p.Resolution)
	for y := 0; y < p.Resolution; y++ {
		v := float64(y) / size
		for x := 0; x < p.Resolution; x++ {
			u := float64(x) / size

			tz := tzone.At(u*freqTZone, v*freqTZone)
			dp := dry.At(u*freqDryPatches, v*freqDryPatches)
			mj := signed(micro.At(u*freqRoughMicro, v*freqRoughMicro))

			rough := base
			rough -= oilyLowering * strength * tz * tz
			rough += dryRaising * strength * math.Pow(dp, dryPatchShape)
			rough += microJitter * strength * mj

			g := toByte(clampRange(rough, roughnessMin, roughnessMax))
			buf.SetRGBA(x, y, g, g, g, 255)
		}
	}
	return buf, nil
}

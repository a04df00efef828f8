package skin

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/skintex/internal/skintone"
	"github.com/MeKo-Tech/skintex/internal/texture"
)

const (
	seedPoreA   = 2201
	seedPoreB   = 2202
	seedWrinkle = 2203

	// Second pore octave runs at a non-integer multiple of the first so
	// the two never line up on the lattice.
	poreOctaveRatio = 2.3

	// Powing the noise concentrates the bright tail into small round
	// spots; those become the circular depressions.
	poreShapeExp = 6.0

	poreDepth    = 0.55
	wrinkleDepth = 0.25

	// Wrinkles undulate an order of magnitude slower than pores.
	wrinkleFreqDivisor = 9.0

	normalStrength = 3.5
)

// GenerateNormal bakes the tangent-space pore and wrinkle normal map.
// Pore geometry depends only on resolution and detail level, not on the
// tone. A flat region encodes R=G=128, B=255.
func GenerateNormal(tone skintone.Descriptor, p Params) (*texture.Buffer, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	poreA := p.source(seedPoreA)
	poreB := p.source(seedPoreB)
	wrinkle := p.source(seedWrinkle)
	freq := poreFrequency[p.detail()]
	depth := poreDepth * p.poreIntensity()

	buf, err := texture.NewBuffer(p.Resolution, p.Resolution)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate normal map: %w", err)
	}

	height := func(u, v float64) float64 {
		a := math.Pow(poreA.At(u*freq, v*freq), poreShapeExp)
		b := math.Pow(poreB.At(u*freq*poreOctaveRatio, v*freq*poreOctaveRatio), poreShapeExp)
		pore := 0.7*a + 0.3*b

		wf := freq / wrinkleFreqDivisor
		w := wrinkle.At(u*wf, v*wf)

		return 1.0 - pore*depth - w*wrinkleDepth
	}

	// One texel is the fixed offset for the finite-difference gradient.
	texel := 1.0 / float64(p.Resolution)

	size := float64(p.Resolution)
	for y := 0; y < p.Resolution; y++ {
		v := float64(y) / size
		for x := 0; x < p.Resolution; x++ {
			u := float64(x) / size

			h := height(u, v)
			dx := height(u+texel, v) - h
			dy := height(u, v+texel) - h

			nx := -dx * normalStrength
			ny := -dy * normalStrength
			inv := 1.0 / math.Sqrt(nx*nx+ny*ny+1.0)

			buf.SetRGBA(x, y,
				toByte(nx*inv*0.5+0.5),
				toByte(ny*inv*0.5+0.5),
				toByte(inv),
				255)
		}
	}
	return buf, nil
}

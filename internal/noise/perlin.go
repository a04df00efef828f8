package noise

import (
	"math"

	"github.com/aquilax/go-perlin"
)

// PerlinSource adapts github.com/aquilax/go-perlin to the Source
// interface, for callers that want gradient noise instead of the
// default value noise. Output is normalized from roughly [-1,1] to
// [0,1) and clamped, so both sources honor the same contract.
type PerlinSource struct {
	noise *perlin.Perlin
}

func NewPerlinSource(seed int64) *PerlinSource {
	return &PerlinSource{
		noise: perlin.NewPerlin(2.0, 2.0, 3, seed),
	}
}

func (s *PerlinSource) At(x, y float64) float64 {
	v := (s.noise.Noise2D(x, y) + 1) * 0.5
	if v < 0 {
		return 0
	}
	if v >= 1 {
		return math.Nextafter(1, 0)
	}
	return v
}

package noise

import "math"

// Eval returns deterministic value noise in [0,1) for the given
// coordinates and seed. The same (x, y, seed) always yields the same
// value, across runs and platforms. Coordinates may be negative or
// fractional; integer lattice corners are hashed and blended with a
// smoothstep-faded bilinear interpolation, so the field is continuous
// everywhere and C1 across cell boundaries.
func Eval(x, y float64, seed int64) float64 {
	fx := math.Floor(x)
	fy := math.Floor(y)
	xi := int64(fx)
	yi := int64(fy)

	tx := fade(x - fx)
	ty := fade(y - fy)

	v00 := corner(xi, yi, seed)
	v10 := corner(xi+1, yi, seed)
	v01 := corner(xi, yi+1, seed)
	v11 := corner(xi+1, yi+1, seed)

	top := v00 + (v10-v00)*tx
	bot := v01 + (v11-v01)*tx
	return top + (bot-top)*ty
}

// fade is the smoothstep curve 3t^2 - 2t^3. Zero first derivative at
// t=0 and t=1 keeps lattice seams invisible.
func fade(t float64) float64 {
	return t * t * (3 - 2*t)
}

// corner hashes a lattice point together with the seed into [0,1).
// splitmix64-style finalizer; the odd multipliers decorrelate the two
// axes and the seed before mixing.
func corner(xi, yi, seed int64) float64 {
	h := uint64(xi)*0x9E3779B97F4A7C15 ^ uint64(yi)*0xC2B2AE3D27D4EB4F ^ uint64(seed)*0x165667B19E3779F9
	h ^= h >> 30
	h *= 0xBF58476D1CE4E5B9
	h ^= h >> 27
	h *= 0x94D049BB133111EB
	h ^= h >> 31
	return float64(h>>11) / (1 << 53)
}

// Source produces deterministic 2D noise in [0,1). Implementations must
// be safe for concurrent use; the map generators share one source per
// octave across all pixels.
type Source interface {
	At(x, y float64) float64
}

// ValueSource is the default Source, binding a seed to Eval.
type ValueSource struct {
	seed int64
}

func NewValueSource(seed int64) *ValueSource {
	return &ValueSource{seed: seed}
}

func (s *ValueSource) At(x, y float64) float64 {
	return Eval(x, y, s.seed)
}

// FBM layers octaves of src into a fractal sum, renormalized so the
// result stays in [0,1). Each octave multiplies frequency by lacunarity
// and amplitude by gain.
func FBM(src Source, x, y float64, octaves int, lacunarity, gain float64) float64 {
	if octaves < 1 {
		octaves = 1
	}
	amp := 1.0
	freq := 1.0
	sum := 0.0
	norm := 0.0
	for i := 0; i < octaves; i++ {
		sum += amp * src.At(x*freq, y*freq)
		norm += amp
		amp *= gain
		freq *= lacunarity
	}
	return sum / norm
}

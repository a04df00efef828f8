package skin

import (
	"fmt"

	"github.com/MeKo-Tech/skintex/internal/noise"
)

// DetailLevel selects pore density for the normal map.
type DetailLevel string

const (
	DetailLow    DetailLevel = "low"
	DetailMedium DetailLevel = "medium"
	DetailHigh   DetailLevel = "high"
	DetailUltra  DetailLevel = "ultra"
)

// poreFrequency maps detail levels to the base pore noise frequency.
// Higher frequency packs more, finer pores into the same UV square.
var poreFrequency = map[DetailLevel]float64{
	DetailLow:    90,
	DetailMedium: 140,
	DetailHigh:   200,
	DetailUltra:  280,
}

// ParseDetailLevel validates a user-supplied detail name.
func ParseDetailLevel(s string) (DetailLevel, error) {
	switch DetailLevel(s) {
	case DetailLow, DetailMedium, DetailHigh, DetailUltra:
		return DetailLevel(s), nil
	}
	return "", fmt.Errorf("unknown detail level %q (want low, medium, high or ultra)", s)
}

// SourceFactory builds the noise source for a generator seed. Nil
// selects the built-in value noise; pass one returning a
// noise.PerlinSource to swap the primitive.
type SourceFactory func(seed int64) noise.Source

// Params configures a bake. The zero Detail means medium; a zero or
// negative Resolution is rejected, not defaulted. The three intensity
// knobs scale the strength of their map's detail in (0,1]; zero or
// negative selects full strength and values above 1 are treated as 1.
type Params struct {
	Resolution int
	Detail     DetailLevel
	IncludeSSS bool
	Source     SourceFactory

	// Variation scales the base color perturbation amplitude.
	Variation float64
	// PoreIntensity scales the pore depression depth in the normal map.
	PoreIntensity float64
	// Imperfection scales the oily, dry and micro roughness components.
	Imperfection float64
}

// DefaultParams is the configuration used when the caller does not care:
// 512x512, medium detail, full intensities, with the scattering map.
func DefaultParams() Params {
	return Params{
		Resolution:    512,
		Detail:        DetailMedium,
		IncludeSSS:    true,
		Variation:     1,
		PoreIntensity: 1,
		Imperfection:  1,
	}
}

func (p Params) Validate() error {
	if p.Resolution <= 0 {
		return fmt.Errorf("resolution must be positive, got %d", p.Resolution)
	}
	if p.Detail != "" {
		if _, err := ParseDetailLevel(string(p.Detail)); err != nil {
			return err
		}
	}
	return nil
}

// detail resolves the zero value to medium.
func (p Params) detail() DetailLevel {
	if p.Detail == "" {
		return DetailMedium
	}
	return p.Detail
}

// source builds the noise source for one seed.
func (p Params) source(seed int64) noise.Source {
	if p.Source != nil {
		return p.Source(seed)
	}
	return noise.NewValueSource(seed)
}

// intensity resolves one knob: zero and below mean full strength, and
// anything above 1 saturates.
func intensity(v float64) float64 {
	if v <= 0 || v > 1 {
		return 1
	}
	return v
}

func (p Params) variation() float64     { return intensity(p.Variation) }
func (p Params) poreIntensity() float64 { return intensity(p.PoreIntensity) }
func (p Params) imperfection() float64  { return intensity(p.Imperfection) }

package skin

import (
	"fmt"

	"github.com/MeKo-Tech/skintex/internal/skintone"
	"github.com/MeKo-Tech/skintex/internal/texture"
)

// GenerateSet bakes the full texture set for one tone. The bake is all
// or nothing: on any failure the maps built so far are disposed and an
// error is returned, so callers never see a partial set.
func GenerateSet(tone skintone.Descriptor, p Params) (*texture.Set, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	set := &texture.Set{}

	var err error
	if set.BaseColor, err = GenerateBaseColor(tone, p); err != nil {
		return nil, fmt.Errorf("failed to generate base color map: %w", err)
	}
	if set.Normal, err = GenerateNormal(tone, p); err != nil {
		set.Dispose()
		return nil, fmt.Errorf("failed to generate normal map: %w", err)
	}
	if set.Roughness, err = GenerateRoughness(tone, p); err != nil {
		set.Dispose()
		return nil, fmt.Errorf("failed to generate roughness map: %w", err)
	}
	if p.IncludeSSS {
		if set.SSS, err = GenerateSSS(tone, p); err != nil {
			set.Dispose()
			return nil, fmt.Errorf("failed to generate scattering map: %w", err)
		}
	}
	return set, nil
}

package texture

import "fmt"

// MapKind names one map of a texture set.
type MapKind string

const (
	MapBaseColor MapKind = "basecolor"
	MapNormal    MapKind = "normal"
	MapRoughness MapKind = "roughness"
	MapSSS       MapKind = "sss"
)

// AllMapKinds lists the kinds in canonical bake order.
func AllMapKinds() []MapKind {
	return []MapKind{MapBaseColor, MapNormal, MapRoughness, MapSSS}
}

// ParseMapKind validates a user-supplied kind name.
func ParseMapKind(s string) (MapKind, error) {
	switch MapKind(s) {
	case MapBaseColor, MapNormal, MapRoughness, MapSSS:
		return MapKind(s), nil
	}
	return "", fmt.Errorf("unknown map kind %q (want basecolor, normal, roughness or sss)", s)
}

// Set bundles the maps baked for one skin tone. SSS is nil when
// subsurface scattering was not requested.
type Set struct {
	BaseColor *Buffer
	Normal    *Buffer
	Roughness *Buffer
	SSS       *Buffer
}

// Map returns the buffer for kind, nil when absent.
func (s *Set) Map(kind MapKind) *Buffer {
	switch kind {
	case MapBaseColor:
		return s.BaseColor
	case MapNormal:
		return s.Normal
	case MapRoughness:
		return s.Roughness
	case MapSSS:
		return s.SSS
	}
	return nil
}

// Kinds lists the kinds present in this set, in canonical order.
func (s *Set) Kinds() []MapKind {
	kinds := make([]MapKind, 0, 4)
	for _, k := range AllMapKinds() {
		if s.Map(k) != nil {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// MemoryBytes sums the approximate memory of all present maps.
func (s *Set) MemoryBytes() int64 {
	var total int64
	for _, k := range s.Kinds() {
		total += int64(s.Map(k).Bytes())
	}
	return total
}

// Dispose releases every map in the set. Idempotent per buffer.
func (s *Set) Dispose() {
	if s == nil {
		return
	}
	s.BaseColor.Dispose()
	s.Normal.Dispose()
	s.Roughness.Dispose()
	s.SSS.Dispose()
}

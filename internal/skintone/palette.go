package skintone

import "math"

// DefaultPalette returns the preload palette: the six Fitzpatrick-scale
// presets plus warm and cool variants of the middle tones. Order is
// light to dark; the preloader walks it front to back.
func DefaultPalette() []Descriptor {
	return []Descriptor{
		New(255, 224, 196, "Fitzpatrick I - pale ivory"),
		New(241, 194, 161, "Fitzpatrick II - fair"),
		New(224, 172, 138, "Fitzpatrick III - light medium"),
		New(189, 127, 90, "Fitzpatrick IV - olive tan"),
		New(141, 85, 54, "Fitzpatrick V - brown"),
		New(84, 48, 34, "Fitzpatrick VI - deep brown"),
		New(246, 204, 156, "Fitzpatrick II variant - warm golden"),
		New(229, 182, 158, "Fitzpatrick III variant - cool rose"),
		New(172, 112, 68, "Fitzpatrick IV variant - warm bronze"),
		New(120, 72, 50, "Fitzpatrick V variant - cool umber"),
	}
}

// Nearest returns the palette entry perceptually closest to d (CIE Lab
// distance) together with that distance. The fallback zero descriptor
// is returned only for an empty palette.
func Nearest(d Descriptor, palette []Descriptor) (Descriptor, float64) {
	best := Descriptor{}
	bestDist := math.Inf(1)
	c := d.Colorful()
	for _, p := range palette {
		dist := c.DistanceLab(p.Colorful())
		if dist < bestDist {
			best = p
			bestDist = dist
		}
	}
	return best, bestDist
}

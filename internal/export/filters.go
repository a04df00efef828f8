package export

import (
	"image"

	"github.com/disintegration/gift"

	"github.com/MeKo-Tech/skintex/internal/texture"
)

// Inspect exaggerates the subtle detail of a map so it reads clearly in
// an image viewer. Base color blotches and roughness zones sit within a
// narrow value band, so the raw PNGs look almost uniform at a glance.
func Inspect(kind texture.MapKind, buf *texture.Buffer) *image.RGBA {
	g := inspectFilter(kind)

	dst := image.NewRGBA(g.Bounds(buf.Image().Bounds()))
	g.Draw(dst, buf.Image())
	return dst
}

func inspectFilter(kind texture.MapKind) *gift.GIFT {
	switch kind {
	case texture.MapBaseColor:
		return gift.New(
			gift.Contrast(20),
			gift.Saturation(25),
		)
	case texture.MapNormal:
		return gift.New(
			gift.Contrast(35),
		)
	case texture.MapRoughness:
		return gift.New(
			gift.Gamma(0.8),
			gift.Contrast(30),
		)
	case texture.MapSSS:
		// Soft blur previews how scatter diffuses the map at render time.
		return gift.New(
			gift.GaussianBlur(2.0),
			gift.Contrast(15),
		)
	}
	return gift.New()
}

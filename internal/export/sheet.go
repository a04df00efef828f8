package export

import (
	"fmt"
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/skintex/internal/skintone"
	"github.com/MeKo-Tech/skintex/internal/texture"
)

const (
	defaultCellSize = 128
	cellGap         = 4
	labelWidth      = 96
	swatchSize      = 16
)

var (
	sheetBackground = color.RGBA{R: 28, G: 28, B: 30, A: 255}
	emptyCellFill   = color.RGBA{R: 48, G: 48, B: 52, A: 255}
	labelColor      = color.RGBA{R: 235, G: 235, B: 235, A: 255}
)

// SheetEntry pairs a tone with its baked set for sheet rendering.
type SheetEntry struct {
	Tone skintone.Descriptor
	Set  *texture.Set
}

// ContactSheet renders one row per tone: a color swatch, the hex label
// and one scaled cell per map kind. Cells for maps a set does not carry
// are filled with a neutral placeholder.
func ContactSheet(entries []SheetEntry, cellSize int) (*image.RGBA, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("contact sheet needs at least one entry")
	}
	if cellSize <= 0 {
		cellSize = defaultCellSize
	}

	kinds := texture.AllMapKinds()
	width := labelWidth + len(kinds)*(cellSize+cellGap) + cellGap
	height := len(entries)*(cellSize+cellGap) + cellGap

	sheet := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(sheet, sheet.Bounds(), image.NewUniform(sheetBackground), image.Point{}, xdraw.Src)

	for row, entry := range entries {
		rowY := cellGap + row*(cellSize+cellGap)

		drawLabel(sheet, entry.Tone, rowY, cellSize)

		for col, kind := range kinds {
			cell := image.Rect(0, 0, cellSize, cellSize).
				Add(image.Pt(labelWidth+cellGap+col*(cellSize+cellGap), rowY))

			buf := entry.Set.Map(kind)
			if buf == nil {
				xdraw.Draw(sheet, cell, image.NewUniform(emptyCellFill), image.Point{}, xdraw.Src)
				continue
			}
			src := buf.Image()
			xdraw.CatmullRom.Scale(sheet, cell, src, src.Bounds(), xdraw.Src, nil)
		}
	}

	return sheet, nil
}

func drawLabel(sheet *image.RGBA, tone skintone.Descriptor, rowY, cellSize int) {
	swatch := image.Rect(0, 0, swatchSize, swatchSize).
		Add(image.Pt(cellGap, rowY+(cellSize-swatchSize)/2))
	xdraw.Draw(sheet, swatch, image.NewUniform(tone.RGBA()), image.Point{}, xdraw.Src)

	d := &font.Drawer{
		Dst:  sheet,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(cellGap*2+swatchSize, rowY+cellSize/2+basicfont.Face7x13.Ascent/2),
	}
	d.DrawString(tone.Hex)
}

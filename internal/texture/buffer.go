package texture

import (
	"fmt"
	"image"
	"image/draw"
	"sync/atomic"
)

// Buffer is a CPU-side RGBA8 texture map, row-major, 4 bytes per pixel.
// Buffers are written once by a generator and then treated as read-only.
// Dispose releases the pixel storage at most once; callers that only
// borrowed the buffer (cache entries, server responses) must not call it.
type Buffer struct {
	Width  int
	Height int
	Pix    []uint8

	disposed atomic.Bool
}

// NewBuffer allocates a zeroed buffer.
func NewBuffer(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("buffer dimensions must be positive, got %dx%d", width, height)
	}
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}, nil
}

// NewBufferFrom wraps existing pixel data, e.g. a decoded archive blob.
func NewBufferFrom(width, height int, pix []uint8) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("buffer dimensions must be positive, got %dx%d", width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("pixel data length %d does not match %dx%d RGBA", len(pix), width, height)
	}
	return &Buffer{Width: width, Height: height, Pix: pix}, nil
}

// FromImage copies a decoded image into a new buffer.
func FromImage(img image.Image) (*Buffer, error) {
	bounds := img.Bounds()
	buf, err := NewBuffer(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}
	dst := buf.Image()
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return buf, nil
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (b *Buffer) PixOffset(x, y int) int {
	return (y*b.Width + x) * 4
}

// SetRGBA writes one pixel. No bounds check; generators iterate the
// exact dimensions they allocated.
func (b *Buffer) SetRGBA(x, y int, r, g, bl, a uint8) {
	i := b.PixOffset(x, y)
	b.Pix[i] = r
	b.Pix[i+1] = g
	b.Pix[i+2] = bl
	b.Pix[i+3] = a
}

// Image exposes the buffer as a stdlib image sharing the same pixel
// storage. The view is valid until Dispose.
func (b *Buffer) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Bytes reports the approximate memory held by the buffer.
func (b *Buffer) Bytes() int {
	return len(b.Pix)
}

// Dispose releases the pixel storage. Safe to call from any goroutine;
// every call after the first is a no-op.
func (b *Buffer) Dispose() {
	if b == nil {
		return
	}
	if b.disposed.Swap(true) {
		return
	}
	b.Pix = nil
}

// Disposed reports whether Dispose has run.
func (b *Buffer) Disposed() bool {
	if b == nil {
		return false
	}
	return b.disposed.Load()
}

package texture

import (
	"sync"
	"testing"
)

func TestNewBufferValidation(t *testing.T) {
	if _, err := NewBuffer(0, 64); err == nil {
		t.Error("expected error for zero width")
	}
	if _, err := NewBuffer(64, -1); err == nil {
		t.Error("expected error for negative height")
	}

	b, err := NewBuffer(8, 4)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	if len(b.Pix) != 8*4*4 {
		t.Errorf("unexpected pixel storage size: %d", len(b.Pix))
	}
}

func TestNewBufferFrom(t *testing.T) {
	pix := make([]uint8, 4*4*4)
	if _, err := NewBufferFrom(4, 4, pix); err != nil {
		t.Fatalf("NewBufferFrom failed: %v", err)
	}
	if _, err := NewBufferFrom(4, 4, pix[:10]); err == nil {
		t.Error("expected error for short pixel data")
	}
	if _, err := NewBufferFrom(0, 4, nil); err == nil {
		t.Error("expected error for zero width")
	}
}

func TestBufferPixelAccess(t *testing.T) {
	b, err := NewBuffer(4, 4)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	b.SetRGBA(2, 1, 10, 20, 30, 255)

	i := b.PixOffset(2, 1)
	if i != (1*4+2)*4 {
		t.Errorf("unexpected offset: %d", i)
	}
	if b.Pix[i] != 10 || b.Pix[i+1] != 20 || b.Pix[i+2] != 30 || b.Pix[i+3] != 255 {
		t.Errorf("pixel not written: %v", b.Pix[i:i+4])
	}

	img := b.Image()
	if got := img.RGBAAt(2, 1); got.R != 10 || got.G != 20 || got.B != 30 || got.A != 255 {
		t.Errorf("Image view mismatch: %+v", got)
	}
}

func TestBufferDisposeIdempotent(t *testing.T) {
	b, err := NewBuffer(16, 16)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}
	if b.Disposed() {
		t.Error("fresh buffer should not be disposed")
	}

	b.Dispose()
	if !b.Disposed() {
		t.Error("buffer should be disposed after Dispose")
	}
	if b.Pix != nil {
		t.Error("Dispose should release pixel storage")
	}

	// Second and later calls are no-ops.
	b.Dispose()
	b.Dispose()

	var nilBuf *Buffer
	nilBuf.Dispose()
	if nilBuf.Disposed() {
		t.Error("nil buffer reports not disposed")
	}
}

func TestBufferDisposeConcurrent(t *testing.T) {
	b, err := NewBuffer(32, 32)
	if err != nil {
		t.Fatalf("NewBuffer failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Dispose()
		}()
	}
	wg.Wait()

	if !b.Disposed() {
		t.Error("buffer should be disposed")
	}
}

func TestSetKindsAndMemory(t *testing.T) {
	base, _ := NewBuffer(8, 8)
	normal, _ := NewBuffer(8, 8)
	rough, _ := NewBuffer(8, 8)
	set := &Set{BaseColor: base, Normal: normal, Roughness: rough}

	kinds := set.Kinds()
	if len(kinds) != 3 {
		t.Fatalf("expected 3 kinds without SSS, got %v", kinds)
	}
	if set.Map(MapSSS) != nil {
		t.Error("SSS map should be absent")
	}
	if got := set.MemoryBytes(); got != 3*8*8*4 {
		t.Errorf("unexpected memory total: %d", got)
	}

	sss, _ := NewBuffer(8, 8)
	set.SSS = sss
	if len(set.Kinds()) != 4 {
		t.Error("expected 4 kinds with SSS present")
	}
}

func TestSetDispose(t *testing.T) {
	base, _ := NewBuffer(8, 8)
	normal, _ := NewBuffer(8, 8)
	rough, _ := NewBuffer(8, 8)
	set := &Set{BaseColor: base, Normal: normal, Roughness: rough}

	set.Dispose()
	for _, k := range set.Kinds() {
		if !set.Map(k).Disposed() {
			t.Errorf("map %s not disposed", k)
		}
	}

	// Nil SSS and repeated disposal are both fine.
	set.Dispose()

	var nilSet *Set
	nilSet.Dispose()
}

func TestParseMapKind(t *testing.T) {
	for _, k := range AllMapKinds() {
		got, err := ParseMapKind(string(k))
		if err != nil || got != k {
			t.Errorf("ParseMapKind(%s) = %v, %v", k, got, err)
		}
	}
	if _, err := ParseMapKind("albedo"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

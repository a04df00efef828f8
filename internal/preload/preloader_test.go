package preload

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/MeKo-Tech/skintex/internal/cache"
	"github.com/MeKo-Tech/skintex/internal/pipeline"
	"github.com/MeKo-Tech/skintex/internal/skin"
	"github.com/MeKo-Tech/skintex/internal/skintone"
)

func testPalette() []skintone.Descriptor {
	return []skintone.Descriptor{
		skintone.New(255, 224, 196, "I"),
		skintone.New(189, 127, 90, "IV"),
		skintone.New(84, 48, 34, "VI"),
	}
}

func testBuilder(t *testing.T) *pipeline.Builder {
	t.Helper()
	b, err := pipeline.New(cache.New(20, nil), skin.Params{Resolution: 16, Detail: skin.DetailLow}, nil)
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	return b
}

func TestPreloadWarmsPalette(t *testing.T) {
	b := testBuilder(t)
	p, err := New(b, Config{Palette: testPalette(), Yield: time.Millisecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if !p.Start(context.Background()) {
		t.Fatal("first Start should run")
	}
	p.Wait()

	if p.Running() {
		t.Error("preloader should be idle after Wait")
	}
	if got := b.Cache().Len(); got != len(testPalette()) {
		t.Errorf("cache entries = %d, want %d", got, len(testPalette()))
	}
	completed, total := p.Progress()
	if completed != total || total != len(testPalette()) {
		t.Errorf("progress = %d/%d, want %d/%d", completed, total, len(testPalette()), len(testPalette()))
	}
}

func TestPreloadSkipsCachedTones(t *testing.T) {
	b := testBuilder(t)
	palette := testPalette()

	// Warm one tone up front; its entry must stay untouched.
	if _, err := b.Build(context.Background(), palette[0]); err != nil {
		t.Fatalf("pre-bake failed: %v", err)
	}

	p, err := New(b, Config{Palette: palette, Yield: time.Millisecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	p.Start(context.Background())
	p.Wait()

	if got := b.Cache().Len(); got != len(palette) {
		t.Fatalf("cache entries = %d, want %d", got, len(palette))
	}

	// The cached tone was detected with Has, which neither bumps the
	// hit counter nor its access count.
	info, ok := b.Cache().Info(palette[0].Key())
	if !ok {
		t.Fatal("pre-baked tone missing")
	}
	if info.AccessCount != 1 {
		t.Errorf("pre-baked tone access count = %d, want 1", info.AccessCount)
	}
	stats := b.Cache().Stats()
	if stats.Hits != 0 {
		t.Errorf("skip detection must not record hits, got %d", stats.Hits)
	}
	if stats.Misses != uint64(len(palette)) {
		t.Errorf("misses = %d, want %d (one per actual bake)", stats.Misses, len(palette))
	}
}

func TestPreloadSecondStartIsNoOp(t *testing.T) {
	b := testBuilder(t)
	palette := skintone.DefaultPalette()

	p, err := New(b, Config{Palette: palette, Yield: 30 * time.Millisecond})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if !p.Start(context.Background()) {
		t.Fatal("first Start should run")
	}
	if p.Start(context.Background()) {
		t.Error("second Start while running should be ignored")
	}
	p.Wait()

	if got := b.Cache().Len(); got != len(palette) {
		t.Errorf("cache entries = %d, want palette size %d", got, len(palette))
	}
}

func TestPreloadProgressCallback(t *testing.T) {
	b := testBuilder(t)
	palette := testPalette()

	var mu sync.Mutex
	var reports [][2]int
	p, err := New(b, Config{
		Palette: palette,
		Yield:   time.Millisecond,
		OnProgress: func(completed, total int) {
			mu.Lock()
			reports = append(reports, [2]int{completed, total})
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	p.Start(context.Background())
	p.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(reports) != len(palette) {
		t.Fatalf("expected %d progress reports, got %d", len(palette), len(reports))
	}
	for i, r := range reports {
		if r[0] != i+1 || r[1] != len(palette) {
			t.Errorf("report %d = %v, want [%d %d]", i, r, i+1, len(palette))
		}
	}
}

func TestPreloadCancellationStopsBetweenTones(t *testing.T) {
	b := testBuilder(t)
	palette := skintone.DefaultPalette()

	ctx, cancel := context.WithCancel(context.Background())
	p, err := New(b, Config{
		Palette: palette,
		Yield:   20 * time.Millisecond,
		OnProgress: func(completed, total int) {
			if completed == 1 {
				cancel()
			}
		},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	p.Start(ctx)
	p.Wait()

	if p.Running() {
		t.Error("preloader should be idle after cancellation")
	}
	got := b.Cache().Len()
	if got == 0 {
		t.Error("the in-flight tone should have completed before the stop")
	}
	if got == len(palette) {
		t.Error("cancellation should have stopped the run early")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, Config{}); err == nil {
		t.Error("expected error for nil builder")
	}

	p, err := New(testBuilder(t), Config{})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, total := p.Progress(); total != len(skintone.DefaultPalette()) {
		t.Errorf("default palette size = %d", total)
	}
}

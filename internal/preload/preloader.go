package preload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/skintex/internal/pipeline"
	"github.com/MeKo-Tech/skintex/internal/skintone"
)

// ProgressFunc is called after each palette tone has been handled,
// whether it was baked or already cached.
type ProgressFunc func(completed, total int)

// Config configures a Preloader.
type Config struct {
	// Palette is the list of tones to warm (default: the Fitzpatrick
	// preload palette).
	Palette []skintone.Descriptor
	// Yield is the voluntary pause between tones so a host render loop
	// is never starved (default: 15ms).
	Yield time.Duration
	// OnProgress receives completion updates. Optional.
	OnProgress ProgressFunc
	// Logger for preload operations.
	Logger *slog.Logger
}

// Preloader warms the texture cache for a fixed palette in a single
// background goroutine. One tone's full bake is atomic; the preloader
// suspends only between tones. Starting an already-running preloader
// is a logged no-op.
type Preloader struct {
	builder *pipeline.Builder
	cfg     Config
	total   int

	running   atomic.Bool
	completed atomic.Int32
	wg        sync.WaitGroup
}

// New prepares a preloader over the given builder.
func New(builder *pipeline.Builder, cfg Config) (*Preloader, error) {
	if builder == nil {
		return nil, fmt.Errorf("builder must not be nil")
	}
	if len(cfg.Palette) == 0 {
		cfg.Palette = skintone.DefaultPalette()
	}
	if cfg.Yield <= 0 {
		cfg.Yield = 15 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Preloader{
		builder: builder,
		cfg:     cfg,
		total:   len(cfg.Palette),
	}, nil
}

// Start launches the warm-up goroutine and reports whether it actually
// started. A second call while a run is in flight is ignored; once a
// run has finished the preloader may be started again (already-cached
// tones are skipped, so a re-run is cheap).
func (p *Preloader) Start(ctx context.Context) bool {
	if !p.running.CompareAndSwap(false, true) {
		p.cfg.Logger.Warn("preload already running; ignoring request")
		return false
	}

	p.completed.Store(0)
	p.wg.Add(1)
	go p.run(ctx)
	return true
}

// Wait blocks until the current run (if any) has finished.
func (p *Preloader) Wait() {
	p.wg.Wait()
}

// Running reports whether a warm-up run is in flight.
func (p *Preloader) Running() bool {
	return p.running.Load()
}

// Progress returns how many palette tones have been handled so far and
// the palette size.
func (p *Preloader) Progress() (completed, total int) {
	return int(p.completed.Load()), p.total
}

func (p *Preloader) run(ctx context.Context) {
	defer p.wg.Done()
	defer p.running.Store(false)

	log := p.cfg.Logger
	log.Info("preloading skin tone palette", "tones", p.total)
	start := time.Now()

	for i, tone := range p.cfg.Palette {
		if ctx.Err() != nil {
			log.Info("preload canceled", "completed", i, "total", p.total)
			return
		}

		if p.builder.Cache().Has(tone.Key()) {
			log.Debug("tone already cached; skipping", "tone", tone.Hex)
		} else if _, err := p.builder.Build(ctx, tone); err != nil {
			// Warm as much of the palette as possible; a failed tone is
			// reported and the run moves on.
			log.Error("failed to preload tone", "tone", tone.Hex, "error", err)
		}

		p.completed.Store(int32(i + 1))
		if p.cfg.OnProgress != nil {
			p.cfg.OnProgress(i+1, p.total)
		}

		if i < p.total-1 {
			select {
			case <-ctx.Done():
				log.Info("preload canceled", "completed", i+1, "total", p.total)
				return
			case <-time.After(p.cfg.Yield):
			}
		}
	}

	log.Info("preload complete",
		"tones", p.total,
		"duration", time.Since(start),
		"cacheEntries", p.builder.Cache().Len())
}

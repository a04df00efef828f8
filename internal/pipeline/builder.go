package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/skintex/internal/cache"
	"github.com/MeKo-Tech/skintex/internal/skin"
	"github.com/MeKo-Tech/skintex/internal/skintone"
	"github.com/MeKo-Tech/skintex/internal/texture"
)

// Builder wires the map generators to the texture cache. It is the
// only path through which the rest of the engine obtains texture sets,
// so every consumer shares one cache and one parameter set. Construct
// one per engine instance and inject it; there is no package-level
// singleton.
type Builder struct {
	cache  *cache.Manager
	params skin.Params
	logger *slog.Logger

	// bake is swapped out by tests to count invocations.
	bake func(skintone.Descriptor, skin.Params) (*texture.Set, error)
}

// New validates the parameters and prepares a builder.
func New(textureCache *cache.Manager, params skin.Params, logger *slog.Logger) (*Builder, error) {
	if textureCache == nil {
		return nil, fmt.Errorf("texture cache must not be nil")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Builder{
		cache:  textureCache,
		params: params,
		logger: logger,
		bake:   skin.GenerateSet,
	}, nil
}

func (b *Builder) log() *slog.Logger {
	if b.logger != nil {
		return b.logger
	}
	return slog.Default()
}

// Cache exposes the underlying cache for stats and warm checks.
func (b *Builder) Cache() *cache.Manager {
	return b.cache
}

// Params returns the bake configuration shared by all tones.
func (b *Builder) Params() skin.Params {
	return b.params
}

// Build returns the texture set for tone, baking it on a cache miss.
// The returned set is borrowed from the cache: it stays valid until the
// entry is evicted and must not be disposed by the caller.
//
// The context is honored only between cache check and bake: once a bake
// has started it runs to completion, so the cache never sees a torn
// set. A failed bake stores nothing.
func (b *Builder) Build(ctx context.Context, tone skintone.Descriptor) (*texture.Set, error) {
	key := tone.Key()
	if set, ok := b.cache.Get(key); ok {
		b.log().Debug("texture cache hit", "tone", tone.Hex)
		return set, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build canceled for %s: %w", tone.Hex, err)
	}

	start := time.Now()
	set, err := b.bake(tone, b.params)
	if err != nil {
		return nil, fmt.Errorf("failed to bake texture set for %s: %w", tone.Hex, err)
	}

	b.cache.Set(key, tone.Hex, set)
	b.log().Info("Baked texture set",
		"tone", tone.Hex,
		"resolution", b.params.Resolution,
		"maps", len(set.Kinds()),
		"duration", time.Since(start))
	return set, nil
}

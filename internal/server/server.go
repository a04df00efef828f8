// Package server exposes baked skin texture maps over HTTP for preview
// tooling: on-demand bakes, archive serving, status and metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/skintex/internal/cache"
	"github.com/MeKo-Tech/skintex/internal/export"
	"github.com/MeKo-Tech/skintex/internal/pipeline"
	"github.com/MeKo-Tech/skintex/internal/preload"
	"github.com/MeKo-Tech/skintex/internal/skintone"
	"github.com/MeKo-Tech/skintex/internal/texture"
)

type OnDemandMapsConfig struct {
	CacheControl       string
	MaxConcurrentBakes int
	BakeTimeout        time.Duration
	MetricsNamespace   string
	// Palette used by the preload endpoint (default: built-in presets)
	Palette []skintone.Descriptor
}

type OnDemandMaps struct {
	builder    *pipeline.Builder
	preloader  *preload.Preloader
	metrics    *Metrics
	logger     *slog.Logger
	cfg        OnDemandMapsConfig
	sem        chan struct{}
	locks      sync.Map
	baseCtx    context.Context
	baseCancel context.CancelFunc

	// Status tracking for bakes
	activeBakes  atomic.Int32
	totalBaked   atomic.Int64
	totalFailed  atomic.Int64
	currentBakes sync.Map // map[string]time.Time - tone hex -> start time

	// Queue tracking - tones waiting for the bake semaphore
	queuedBakes atomic.Int32
	queuedTones sync.Map // map[string]time.Time - tone hex -> queue time
}

// MapStatus represents the current status of the texture baking system.
type MapStatus struct {
	Cache   cache.Stats   `json:"cache"`
	Bake    BakeStatus    `json:"bake"`
	Preload PreloadStatus `json:"preload"`
}

// BakeStatus contains current bake operation status.
type BakeStatus struct {
	ActiveBakes   int      `json:"active_bakes"`
	TotalBaked    int64    `json:"total_baked"`
	TotalFailed   int64    `json:"total_failed"`
	CurrentTones  []string `json:"current_tones"`
	MaxConcurrent int      `json:"max_concurrent"`
	QueuedBakes   int      `json:"queued_bakes"`
	QueuedTones   []string `json:"queued_tones"`
}

// PreloadStatus contains palette preload progress.
type PreloadStatus struct {
	Running   bool `json:"running"`
	Completed int  `json:"completed"`
	Total     int  `json:"total"`
}

func NewOnDemandMaps(builder *pipeline.Builder, cfg OnDemandMapsConfig, logger *slog.Logger) (*OnDemandMaps, error) {
	if builder == nil {
		return nil, fmt.Errorf("builder must not be nil")
	}
	if cfg.MaxConcurrentBakes <= 0 {
		cfg.MaxConcurrentBakes = 2
	}
	if cfg.BakeTimeout <= 0 {
		cfg.BakeTimeout = 30 * time.Second
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}
	if cfg.MetricsNamespace == "" {
		cfg.MetricsNamespace = "skintex"
	}

	ctx, cancel := context.WithCancel(context.Background())

	pre, err := preload.New(builder, preload.Config{
		Palette: cfg.Palette,
		Logger:  logger,
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create preloader: %w", err)
	}

	s := &OnDemandMaps{
		builder:    builder,
		preloader:  pre,
		metrics:    NewMetrics(cfg.MetricsNamespace),
		logger:     logger,
		cfg:        cfg,
		sem:        make(chan struct{}, cfg.MaxConcurrentBakes),
		baseCtx:    ctx,
		baseCancel: cancel,
	}
	return s, nil
}

// Stop cancels background work and waits for a running preload to finish.
func (s *OnDemandMaps) Stop() {
	s.baseCancel()
	s.preloader.Wait()
}

// StartPreload kicks off a background palette warm-up. It reports false
// when a preload is already running.
func (s *OnDemandMaps) StartPreload() bool {
	return s.preloader.Start(s.baseCtx)
}

// Status returns the current status of the texture baking system.
func (s *OnDemandMaps) Status() MapStatus {
	var currentTones []string
	s.currentBakes.Range(func(key, _ any) bool {
		currentTones = append(currentTones, key.(string))
		return true
	})

	var queuedTones []string
	s.queuedTones.Range(func(key, _ any) bool {
		queuedTones = append(queuedTones, key.(string))
		return true
	})

	completed, total := s.preloader.Progress()

	return MapStatus{
		Cache: s.builder.Cache().Stats(),
		Bake: BakeStatus{
			ActiveBakes:   int(s.activeBakes.Load()),
			TotalBaked:    s.totalBaked.Load(),
			TotalFailed:   s.totalFailed.Load(),
			CurrentTones:  currentTones,
			MaxConcurrent: s.cfg.MaxConcurrentBakes,
			QueuedBakes:   int(s.queuedBakes.Load()),
			QueuedTones:   queuedTones,
		},
		Preload: PreloadStatus{
			Running:   s.preloader.Running(),
			Completed: completed,
			Total:     total,
		},
	}
}

// StatusHandler returns an HTTP handler for the status endpoint (JSON).
func (s *OnDemandMaps) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Cache-Control", "no-store")

		status := s.Status()
		if err := json.NewEncoder(w).Encode(status); err != nil {
			s.log().Error("failed to encode status", "error", err)
			http.Error(w, "failed to encode status", http.StatusInternalServerError)
			return
		}
	})
}

// StatusStreamHandler returns an SSE handler for real-time status
// streaming, so preview UIs can watch preloads and bakes without
// polling through their connection limit.
func (s *OnDemandMaps) StatusStreamHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Set SSE headers
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "SSE not supported", http.StatusInternalServerError)
			return
		}

		// Send status updates every 250ms
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()

		// Send initial status immediately
		s.sendStatusEvent(w, flusher)

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				s.sendStatusEvent(w, flusher)
			}
		}
	})
}

func (s *OnDemandMaps) sendStatusEvent(w http.ResponseWriter, flusher http.Flusher) {
	status := s.Status()
	data, err := json.Marshal(status)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

// PreloadHandler triggers a background palette preload.
func (s *OnDemandMaps) PreloadHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		started := s.preloader.Start(s.baseCtx)
		completed, total := s.preloader.Progress()

		if started {
			w.WriteHeader(http.StatusAccepted)
		} else {
			w.WriteHeader(http.StatusConflict)
		}
		resp := map[string]any{
			"started":   started,
			"completed": completed,
			"total":     total,
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			s.log().Error("failed to encode preload response", "error", err)
		}
	})
}

// HealthHandler reports liveness.
func (s *OnDemandMaps) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
}

// MetricsHandler exposes Prometheus metrics.
func (s *OnDemandMaps) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

func (s *OnDemandMaps) Handler() http.Handler {
	return http.HandlerFunc(s.serveMap)
}

func (s *OnDemandMaps) serveMap(w http.ResponseWriter, r *http.Request) {
	// Browser-based material editors fetch maps straight from this endpoint.
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	hex, kindName, ok := parseMapPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	kind, err := texture.ParseMapKind(kindName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	tone, err := skintone.Parse("#"+strings.TrimPrefix(hex, "#"), "")
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid skin tone %q", hex), http.StatusBadRequest)
		return
	}

	w.Header().Set("Cache-Control", s.cfg.CacheControl)
	inspect := r.URL.Query().Get("inspect") != ""

	// Serve straight from the cache when the set is already baked
	if set, ok := s.builder.Cache().Get(tone.Key()); ok {
		s.writeMap(w, tone, kind, set, inspect)
		return
	}

	mu := s.getLock(tone.Hex)
	mu.Lock()
	defer mu.Unlock()

	if set, ok := s.builder.Cache().Get(tone.Key()); ok {
		s.writeMap(w, tone, kind, set, inspect)
		return
	}

	// Track tone as queued (waiting for semaphore)
	s.queuedBakes.Add(1)
	s.queuedTones.Store(tone.Hex, time.Now())

	select {
	case s.sem <- struct{}{}:
		// Got semaphore - remove from queue
		s.queuedBakes.Add(-1)
		s.queuedTones.Delete(tone.Hex)
		defer func() { <-s.sem }()
	case <-r.Context().Done():
		// Request cancelled - remove from queue
		s.queuedBakes.Add(-1)
		s.queuedTones.Delete(tone.Hex)
		http.Error(w, "request cancelled", http.StatusRequestTimeout)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.BakeTimeout)
	defer cancel()

	start := time.Now()
	s.activeBakes.Add(1)
	s.currentBakes.Store(tone.Hex, start)

	set, err := s.builder.Build(ctx, tone)

	s.activeBakes.Add(-1)
	s.currentBakes.Delete(tone.Hex)
	s.metrics.RecordBake(err == nil, time.Since(start))

	if err != nil {
		s.totalFailed.Add(1)
		s.log().Error("failed to bake texture set", "tone", tone.Hex, "error", err)
		http.Error(w, fmt.Sprintf("failed to bake %s: %v", tone.Hex, err), http.StatusInternalServerError)
		return
	}
	s.totalBaked.Add(1)
	s.metrics.SyncCache(s.builder.Cache().Stats())
	s.log().Info("map baked on-demand", "tone", tone.Hex, "kind", kind, "ms", time.Since(start).Milliseconds())

	s.writeMap(w, tone, kind, set, inspect)
}

func (s *OnDemandMaps) writeMap(w http.ResponseWriter, tone skintone.Descriptor, kind texture.MapKind, set *texture.Set, inspect bool) {
	buf := set.Map(kind)
	if buf == nil {
		http.Error(w, fmt.Sprintf("map %s not baked for %s", kind, tone.Hex), http.StatusNotFound)
		return
	}

	var img image.Image = buf.Image()
	if inspect {
		img = export.Inspect(kind, buf)
	}

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, img); err != nil {
		s.log().Error("failed to encode map", "tone", tone.Hex, "kind", kind, "error", err)
	}
}

func (s *OnDemandMaps) getLock(key string) *sync.Mutex {
	if v, ok := s.locks.Load(key); ok {
		return v.(*sync.Mutex)
	}
	mu := &sync.Mutex{}
	actual, _ := s.locks.LoadOrStore(key, mu)
	return actual.(*sync.Mutex)
}

func (s *OnDemandMaps) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func parseMapPath(requestPath string) (hex string, kind string, ok bool) {
	// Expect: /maps/e0ac8a/basecolor.png
	if !strings.HasPrefix(requestPath, "/maps/") {
		return "", "", false
	}
	rest := strings.TrimPrefix(requestPath, "/maps/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		return "", "", false
	}
	hex = parts[0]
	base := parts[1]
	if !strings.HasSuffix(base, ".png") {
		return "", "", false
	}
	kind = strings.TrimSuffix(base, ".png")
	if hex == "" || kind == "" {
		return "", "", false
	}
	return hex, kind, true
}

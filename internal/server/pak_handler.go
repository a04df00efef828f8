package server

import (
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MeKo-Tech/skintex/internal/skinpak"
	"github.com/MeKo-Tech/skintex/internal/texture"
)

// PakHandler serves texture maps from a .skinpak archive.
type PakHandler struct {
	reader       *skinpak.Reader
	logger       *slog.Logger
	cacheControl string
}

// PakConfig configures the archive handler.
type PakConfig struct {
	PakPath      string
	CacheControl string
}

// NewPakHandler creates a new archive-backed map handler.
func NewPakHandler(cfg PakConfig, logger *slog.Logger) (*PakHandler, error) {
	reader, err := skinpak.OpenReader(cfg.PakPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open skinpak: %w", err)
	}

	return &PakHandler{
		reader:       reader,
		logger:       logger,
		cacheControl: cfg.CacheControl,
	}, nil
}

// Handler returns the HTTP handler function.
func (h *PakHandler) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serveMap(w, r)
	}
}

// serveMap serves a single map from the archive.
func (h *PakHandler) serveMap(w http.ResponseWriter, r *http.Request) {
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

	w.Header().Set("Cache-Control", h.cacheControl)

	buf, err := h.reader.ReadMap("#"+strings.TrimPrefix(hex, "#"), kind)
	if err != nil {
		h.log().Warn("map not found in archive", "tone", hex, "kind", kind, "error", err)
		http.Error(w, fmt.Sprintf("map not found: %s/%s", hex, kind), http.StatusNotFound)
		return
	}
	defer buf.Dispose()

	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, buf.Image()); err != nil {
		h.log().Error("failed to encode map", "tone", hex, "kind", kind, "error", err)
	}
}

// Close releases the archive reader.
func (h *PakHandler) Close() error {
	return h.reader.Close()
}

func (h *PakHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

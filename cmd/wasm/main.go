//go:build js && wasm
// +build js,wasm

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"strings"
	"syscall/js"

	"github.com/MeKo-Tech/skintex/internal/skin"
	"github.com/MeKo-Tech/skintex/internal/skintone"
	"github.com/MeKo-Tech/skintex/internal/texture"
)

// BakeMapRequest represents a single-map bake request from JS.
// Omitted intensities bake at full strength.
type BakeMapRequest struct {
	Tone          string  `json:"tone"`
	Kind          string  `json:"kind"`
	Resolution    int     `json:"resolution"`
	Detail        string  `json:"detail"`
	Variation     float64 `json:"variation,omitempty"`
	PoreIntensity float64 `json:"poreIntensity,omitempty"`
	Imperfection  float64 `json:"imperfection,omitempty"`
}

// bakeMap is called from JavaScript to bake one texture map in-page.
// The generators are pure Go, so the full pipeline runs in the browser;
// low resolutions keep bakes responsive.
func bakeMap(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return map[string]interface{}{"error": "missing arguments"}
	}

	reqStr := args[0].String()
	var req BakeMapRequest
	if err := json.Unmarshal([]byte(reqStr), &req); err != nil {
		return map[string]interface{}{"error": fmt.Sprintf("failed to parse request: %v", err)}
	}

	if req.Resolution <= 0 || req.Resolution > 512 {
		req.Resolution = 128
	}
	if req.Detail == "" {
		req.Detail = "low"
	}
	if req.Kind == "" {
		req.Kind = "basecolor"
	}

	tone, err := skintone.Parse(normalizeHex(req.Tone), "")
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	kind, err := texture.ParseMapKind(req.Kind)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	detail, err := skin.ParseDetailLevel(req.Detail)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	params := skin.Params{
		Resolution:    req.Resolution,
		Detail:        detail,
		IncludeSSS:    kind == texture.MapSSS,
		Variation:     req.Variation,
		PoreIntensity: req.PoreIntensity,
		Imperfection:  req.Imperfection,
	}
	if err := params.Validate(); err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	buf, err := bakeOne(tone, kind, params)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	defer buf.Dispose()

	var out bytes.Buffer
	if err := png.Encode(&out, buf.Image()); err != nil {
		return map[string]interface{}{"error": fmt.Sprintf("failed to encode png: %v", err)}
	}

	dst := js.Global().Get("Uint8Array").New(out.Len())
	js.CopyBytesToJS(dst, out.Bytes())

	return map[string]interface{}{
		"tone":   tone.Hex,
		"kind":   string(kind),
		"width":  buf.Width,
		"height": buf.Height,
		"png":    dst,
	}
}

func bakeOne(tone skintone.Descriptor, kind texture.MapKind, params skin.Params) (*texture.Buffer, error) {
	switch kind {
	case texture.MapBaseColor:
		return skin.GenerateBaseColor(tone, params)
	case texture.MapNormal:
		return skin.GenerateNormal(tone, params)
	case texture.MapRoughness:
		return skin.GenerateRoughness(tone, params)
	case texture.MapSSS:
		return skin.GenerateSSS(tone, params)
	default:
		return nil, fmt.Errorf("unknown map kind: %s", kind)
	}
}

// MapURLRequest asks for the canonical map path on a backend server
type MapURLRequest struct {
	Tone string `json:"tone"`
	Kind string `json:"kind"`
}

// mapURL builds the canonical request path so browser code can reliably
// hit a backend `skintex serve` instance instead of baking in-page.
func mapURL(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return map[string]interface{}{"error": "missing arguments"}
	}

	reqStr := args[0].String()
	var req MapURLRequest
	if err := json.Unmarshal([]byte(reqStr), &req); err != nil {
		return map[string]interface{}{"error": fmt.Sprintf("failed to parse request: %v", err)}
	}

	tone, err := skintone.Parse(normalizeHex(req.Tone), "")
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	kind, err := texture.ParseMapKind(req.Kind)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	key := fmt.Sprintf("%s_%s", strings.TrimPrefix(tone.Hex, "#"), kind)
	return map[string]interface{}{
		"key":      key,
		"filename": key + ".png",
		"url":      fmt.Sprintf("/maps/%s/%s.png", strings.TrimPrefix(tone.Hex, "#"), kind),
	}
}

// listPalette returns the preset palette as JSON for tone pickers.
func listPalette(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(skintone.DefaultPalette())
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}
	return string(data)
}

func normalizeHex(s string) string {
	s = strings.TrimSpace(s)
	if s != "" && !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	return s
}

// initModule is called on page load to set up the WASM module
func initModule(this js.Value, args []js.Value) interface{} {
	fmt.Println("Skintex WASM module initialized")
	return map[string]interface{}{"status": "ready"}
}

func main() {
	c := make(chan struct{})

	js.Global().Set("skintexBakeMap", js.FuncOf(bakeMap))
	js.Global().Set("skintexMapURL", js.FuncOf(mapURL))
	js.Global().Set("skintexPalette", js.FuncOf(listPalette))
	js.Global().Set("skintexInit", js.FuncOf(initModule))

	fmt.Println("Skintex WASM module loaded")
	<-c
}

package skinpak

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/skintex/internal/skintone"
	"github.com/MeKo-Tech/skintex/internal/texture"
)

func TestReader_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	pakPath := filepath.Join(tmpDir, "test.skinpak")

	tone := skintone.New(224, 172, 138, "tan")
	set := &texture.Set{
		BaseColor: testBuffer(t, 8, 0xC8),
		Normal:    testBuffer(t, 8, 0x80),
		Roughness: testBuffer(t, 8, 0x60),
	}

	w, err := New(pakPath, Metadata{Name: "Test", Resolution: 8})
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := w.WriteSet(tone, set); err != nil {
		t.Fatalf("Failed to write set: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	r, err := OpenReader(pakPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer r.Close()

	got, err := r.ReadSet(tone.Hex)
	if err != nil {
		t.Fatalf("Failed to read set: %v", err)
	}
	defer got.Dispose()

	kinds := got.Kinds()
	if len(kinds) != 3 {
		t.Fatalf("Expected 3 maps in set, got %d (%v)", len(kinds), kinds)
	}
	if got.SSS != nil {
		t.Error("Expected no sss map in restored set")
	}

	for _, kind := range kinds {
		want := set.Map(kind)
		have := got.Map(kind)
		if have.Width != want.Width || have.Height != want.Height {
			t.Errorf("%s dimensions mismatch: got %dx%d, want %dx%d",
				kind, have.Width, have.Height, want.Width, want.Height)
		}
		if !bytes.Equal(have.Pix, want.Pix) {
			t.Errorf("%s pixel data mismatch after round trip", kind)
		}
	}
}

func TestReader_ReadMap(t *testing.T) {
	tmpDir := t.TempDir()
	pakPath := filepath.Join(tmpDir, "test.skinpak")

	buf := testBuffer(t, 8, 0x33)

	w, err := New(pakPath, Metadata{Name: "Test", Resolution: 8})
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := w.WriteMap("#b47f5a", texture.MapRoughness, buf); err != nil {
		t.Fatalf("Failed to write map: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	r, err := OpenReader(pakPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer r.Close()

	// Lookup is case-insensitive
	got, err := r.ReadMap("#B47F5A", texture.MapRoughness)
	if err != nil {
		t.Fatalf("Failed to read map: %v", err)
	}
	if !bytes.Equal(got.Pix, buf.Pix) {
		t.Error("Pixel data mismatch after round trip")
	}
}

func TestReader_Metadata(t *testing.T) {
	tmpDir := t.TempDir()
	pakPath := filepath.Join(tmpDir, "test.skinpak")

	expectedMetadata := Metadata{
		Name:        "Test Archive",
		Description: "Test description",
		Resolution:  1024,
		Detail:      "high",
		Version:     "1.0",
	}

	w, err := New(pakPath, expectedMetadata)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	r, err := OpenReader(pakPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer r.Close()

	meta, err := r.Metadata()
	if err != nil {
		t.Fatalf("Failed to read metadata: %v", err)
	}

	if meta.Name != expectedMetadata.Name {
		t.Errorf("Name mismatch: got %q, want %q", meta.Name, expectedMetadata.Name)
	}
	if meta.Description != expectedMetadata.Description {
		t.Errorf("Description mismatch: got %q, want %q", meta.Description, expectedMetadata.Description)
	}
	if meta.Resolution != expectedMetadata.Resolution {
		t.Errorf("Resolution mismatch: got %d, want %d", meta.Resolution, expectedMetadata.Resolution)
	}
	if meta.Detail != expectedMetadata.Detail {
		t.Errorf("Detail mismatch: got %q, want %q", meta.Detail, expectedMetadata.Detail)
	}
	if meta.Version != expectedMetadata.Version {
		t.Errorf("Version mismatch: got %q, want %q", meta.Version, expectedMetadata.Version)
	}
}

func TestReader_Tones(t *testing.T) {
	tmpDir := t.TempDir()
	pakPath := filepath.Join(tmpDir, "test.skinpak")

	w, err := New(pakPath, Metadata{Name: "Test", Resolution: 4})
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}

	buf := testBuffer(t, 4, 0x55)
	for _, tone := range []string{"#f1c2a1", "#552e1f", "#8d5536"} {
		if err := w.WriteMap(tone, texture.MapBaseColor, buf); err != nil {
			t.Fatalf("Failed to write map for %s: %v", tone, err)
		}
		if err := w.WriteMap(tone, texture.MapNormal, buf); err != nil {
			t.Fatalf("Failed to write map for %s: %v", tone, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	r, err := OpenReader(pakPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer r.Close()

	tones, err := r.Tones()
	if err != nil {
		t.Fatalf("Failed to list tones: %v", err)
	}

	want := []string{"#552e1f", "#8d5536", "#f1c2a1"}
	if len(tones) != len(want) {
		t.Fatalf("Expected %d tones, got %d: %v", len(want), len(tones), tones)
	}
	for i, tone := range want {
		if tones[i] != tone {
			t.Errorf("Tone %d mismatch: got %q, want %q", i, tones[i], tone)
		}
	}
}

func TestReader_MapNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	pakPath := filepath.Join(tmpDir, "test.skinpak")

	w, err := New(pakPath, Metadata{Name: "Test"})
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	r, err := OpenReader(pakPath)
	if err != nil {
		t.Fatalf("Failed to open reader: %v", err)
	}
	defer r.Close()

	if _, err := r.ReadMap("#e0ac8a", texture.MapBaseColor); err == nil {
		t.Error("Expected error for non-existent map, got nil")
	}
	if _, err := r.ReadSet("#e0ac8a"); err == nil {
		t.Error("Expected error for non-existent set, got nil")
	}
}

func TestReader_InvalidDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	pakPath := filepath.Join(tmpDir, "invalid.skinpak")

	if err := os.WriteFile(pakPath, []byte("not a database"), 0o644); err != nil {
		t.Fatalf("Failed to create invalid file: %v", err)
	}

	if _, err := OpenReader(pakPath); err == nil {
		t.Error("Expected error for invalid database, got nil")
	}
}

package skinpak

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/skintex/internal/texture"
)

func testBuffer(t *testing.T, size int, fill uint8) *texture.Buffer {
	t.Helper()
	buf, err := texture.NewBuffer(size, size)
	if err != nil {
		t.Fatalf("Failed to allocate buffer: %v", err)
	}
	for i := range buf.Pix {
		buf.Pix[i] = fill
	}
	return buf
}

func TestWriter_New(t *testing.T) {
	tmpDir := t.TempDir()
	pakPath := filepath.Join(tmpDir, "test.skinpak")

	metadata := Metadata{
		Name:        "Test Archive",
		Description: "Test description",
		Resolution:  512,
		Detail:      "medium",
		Version:     "1.0",
	}

	w, err := New(pakPath, metadata)
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()

	// Verify database file exists
	if _, err := os.Stat(pakPath); os.IsNotExist(err) {
		t.Fatal("Database file was not created")
	}

	// Verify schema exists
	var count int
	err = w.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='maps'").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query schema: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected maps table to exist, got count=%d", count)
	}

	// Verify metadata was inserted
	err = w.db.QueryRow("SELECT COUNT(*) FROM metadata").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query metadata: %v", err)
	}
	if count == 0 {
		t.Error("Expected metadata to be inserted")
	}
}

func TestWriter_WriteMap(t *testing.T) {
	tmpDir := t.TempDir()
	pakPath := filepath.Join(tmpDir, "test.skinpak")

	w, err := New(pakPath, Metadata{Name: "Test", Resolution: 8})
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()

	buf := testBuffer(t, 8, 0x42)
	err = w.WriteMap("#E0AC8A", texture.MapBaseColor, buf)
	if err != nil {
		t.Fatalf("Failed to write map: %v", err)
	}

	// Flush to ensure it's written
	err = w.Flush()
	if err != nil {
		t.Fatalf("Failed to flush: %v", err)
	}

	// Verify map was written
	var count int
	err = w.db.QueryRow("SELECT COUNT(*) FROM maps").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query maps: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 map, got %d", count)
	}

	// Verify the tone was stored lowercased
	var blob []byte
	err = w.db.QueryRow("SELECT data FROM maps WHERE tone=? AND kind=?",
		"#e0ac8a", "basecolor").Scan(&blob)
	if err != nil {
		t.Fatalf("Failed to read map: %v", err)
	}
	if len(blob) == 0 {
		t.Error("Expected map data to be stored")
	}
	if len(blob) >= len(buf.Pix) {
		t.Errorf("Expected compressed blob smaller than %d raw bytes, got %d", len(buf.Pix), len(blob))
	}
}

func TestWriter_BatchFlush(t *testing.T) {
	tmpDir := t.TempDir()
	pakPath := filepath.Join(tmpDir, "test.skinpak")

	w, err := New(pakPath, Metadata{Name: "Test", Resolution: 4})
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()

	// Write more maps than one batch holds
	buf := testBuffer(t, 4, 0x10)
	for i := 0; i < DefaultBatchSize+9; i++ {
		tone := []byte{'#', '0', '0', hexDigit(i / 16), hexDigit(i % 16), '0', '0'}
		err = w.WriteMap(string(tone), texture.MapRoughness, buf)
		if err != nil {
			t.Fatalf("Failed to write map %d: %v", i, err)
		}
	}

	// Close should flush remaining maps
	err = w.Close()
	if err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	// Re-open and verify all maps were written
	db, err := sql.Open("sqlite", pakPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM maps").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query maps: %v", err)
	}
	if count != DefaultBatchSize+9 {
		t.Errorf("Expected %d maps, got %d", DefaultBatchSize+9, count)
	}
}

func TestWriter_ReplaceExisting(t *testing.T) {
	tmpDir := t.TempDir()
	pakPath := filepath.Join(tmpDir, "test.skinpak")

	w, err := New(pakPath, Metadata{Name: "Test", Resolution: 4})
	if err != nil {
		t.Fatalf("Failed to create writer: %v", err)
	}
	defer w.Close()

	// Write a map
	err = w.WriteMap("#8d5536", texture.MapNormal, testBuffer(t, 4, 0x01))
	if err != nil {
		t.Fatalf("Failed to write first map: %v", err)
	}
	w.Flush()

	// Write the same tone and kind again with different data
	err = w.WriteMap("#8d5536", texture.MapNormal, testBuffer(t, 4, 0x02))
	if err != nil {
		t.Fatalf("Failed to write second map: %v", err)
	}
	w.Flush()

	// Verify only one map exists (was replaced)
	var count int
	err = w.db.QueryRow("SELECT COUNT(*) FROM maps").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query maps: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 map (replaced), got %d", count)
	}
}

func hexDigit(n int) byte {
	if n < 10 {
		return byte('0' + n)
	}
	return byte('a' + n - 10)
}

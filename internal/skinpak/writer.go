package skinpak

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/MeKo-Tech/skintex/internal/skintone"
	"github.com/MeKo-Tech/skintex/internal/texture"
)

// DefaultBatchSize is the number of map blobs buffered before a flush.
// Raw RGBA maps are large, so the batch is kept short.
const DefaultBatchSize = 16

// Writer writes texture maps to a .skinpak archive.
type Writer struct {
	db        *sql.DB
	path      string
	mu        sync.Mutex
	batch     []mapEntry
	batchSize int
	encoder   *zstd.Encoder
}

type mapEntry struct {
	tone          string
	kind          string
	width, height int
	pix           []byte
}

// New creates a .skinpak archive at path and stores its metadata.
// Writing a map for a tone and kind already present replaces it.
func New(path string, metadata Metadata) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set pragmas for performance
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=50000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}

	w := &Writer{
		db:        db,
		path:      path,
		batchSize: DefaultBatchSize,
		encoder:   encoder,
	}

	if err := w.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := w.insertMetadata(metadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert metadata: %w", err)
	}

	return w, nil
}

func (w *Writer) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS metadata (
		name TEXT,
		value TEXT
	);
	CREATE TABLE IF NOT EXISTS maps (
		tone TEXT NOT NULL,
		kind TEXT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		data BLOB NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS map_index ON maps (tone, kind);
	`
	_, err := w.db.Exec(schema)
	return err
}

func (w *Writer) insertMetadata(metadata Metadata) error {
	// Clear existing metadata
	if _, err := w.db.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}

	stmt, err := w.db.Prepare("INSERT INTO metadata (name, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for name, value := range metadata.ToMap() {
		if _, err := stmt.Exec(name, value); err != nil {
			return fmt.Errorf("failed to insert metadata %s: %w", name, err)
		}
	}

	return nil
}

// WriteMap adds one texture map to the write batch. Maps are written in
// batches for performance. The tone is stored lowercased so lookups are
// case-insensitive.
func (w *Writer) WriteMap(tone string, kind texture.MapKind, buf *texture.Buffer) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.batch = append(w.batch, mapEntry{
		tone:   strings.ToLower(tone),
		kind:   string(kind),
		width:  buf.Width,
		height: buf.Height,
		pix:    buf.Pix,
	})

	if len(w.batch) >= w.batchSize {
		return w.flushLocked()
	}

	return nil
}

// WriteSet writes every map present in a baked set under the tone's
// canonical hex string.
func (w *Writer) WriteSet(tone skintone.Descriptor, set *texture.Set) error {
	for _, kind := range set.Kinds() {
		if err := w.WriteMap(tone.Hex, kind, set.Map(kind)); err != nil {
			return fmt.Errorf("failed to write %s map for %s: %w", kind, tone.Hex, err)
		}
	}
	return nil
}

// flushLocked writes the current batch to the database (must be called with lock held).
func (w *Writer) flushLocked() error {
	if len(w.batch) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO maps (tone, kind, width, height, data) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range w.batch {
		compressed := w.encoder.EncodeAll(m.pix, nil)
		if _, err := stmt.Exec(m.tone, m.kind, m.width, m.height, compressed); err != nil {
			return fmt.Errorf("failed to insert map: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.batch = w.batch[:0]
	return nil
}

// Flush writes any pending maps to the database.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// Close flushes pending maps and closes the database.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := w.encoder.Close(); err != nil {
		return fmt.Errorf("failed to close encoder: %w", err)
	}
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

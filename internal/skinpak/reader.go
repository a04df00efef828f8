package skinpak

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/MeKo-Tech/skintex/internal/texture"
)

// Reader reads texture maps from a .skinpak archive.
type Reader struct {
	db      *sql.DB
	path    string
	decoder *zstd.Decoder
}

// OpenReader opens a .skinpak archive for reading.
func OpenReader(path string) (*Reader, error) {
	// Open in read-only mode with immutable flag
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify schema exists
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='maps'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database does not contain maps table")
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &Reader{
		db:      db,
		path:    path,
		decoder: decoder,
	}, nil
}

// ReadMap reads one texture map for a tone, identified by its hex string.
func (r *Reader) ReadMap(tone string, kind texture.MapKind) (*texture.Buffer, error) {
	tone = strings.ToLower(tone)

	var (
		width, height int
		compressed    []byte
	)
	err := r.db.QueryRow(
		"SELECT width, height, data FROM maps WHERE tone=? AND kind=?",
		tone, string(kind),
	).Scan(&width, &height, &compressed)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("map not found: %s/%s", tone, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query map: %w", err)
	}

	pix, err := r.decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress map: %w", err)
	}

	buf, err := texture.NewBufferFrom(width, height, pix)
	if err != nil {
		return nil, fmt.Errorf("failed to restore map %s/%s: %w", tone, kind, err)
	}
	return buf, nil
}

// ReadSet reads every map stored for a tone and reassembles the set.
func (r *Reader) ReadSet(tone string) (*texture.Set, error) {
	tone = strings.ToLower(tone)

	rows, err := r.db.Query("SELECT kind, width, height, data FROM maps WHERE tone=?", tone)
	if err != nil {
		return nil, fmt.Errorf("failed to query maps: %w", err)
	}
	defer rows.Close()

	set := &texture.Set{}
	for rows.Next() {
		var (
			kind          string
			width, height int
			compressed    []byte
		)
		if err := rows.Scan(&kind, &width, &height, &compressed); err != nil {
			set.Dispose()
			return nil, fmt.Errorf("failed to scan map row: %w", err)
		}

		pix, err := r.decoder.DecodeAll(compressed, nil)
		if err != nil {
			set.Dispose()
			return nil, fmt.Errorf("failed to decompress %s map: %w", kind, err)
		}
		buf, err := texture.NewBufferFrom(width, height, pix)
		if err != nil {
			set.Dispose()
			return nil, fmt.Errorf("failed to restore %s map: %w", kind, err)
		}

		switch texture.MapKind(kind) {
		case texture.MapBaseColor:
			set.BaseColor = buf
		case texture.MapNormal:
			set.Normal = buf
		case texture.MapRoughness:
			set.Roughness = buf
		case texture.MapSSS:
			set.SSS = buf
		default:
			// Unknown kind from a newer format version, skip it.
			buf.Dispose()
		}
	}
	if err := rows.Err(); err != nil {
		set.Dispose()
		return nil, fmt.Errorf("error iterating maps: %w", err)
	}
	if len(set.Kinds()) == 0 {
		return nil, fmt.Errorf("no maps stored for tone %s", tone)
	}

	return set, nil
}

// Tones lists the tone hex strings stored in the archive, sorted.
func (r *Reader) Tones() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT tone FROM maps ORDER BY tone")
	if err != nil {
		return nil, fmt.Errorf("failed to query tones: %w", err)
	}
	defer rows.Close()

	var tones []string
	for rows.Next() {
		var tone string
		if err := rows.Scan(&tone); err != nil {
			return nil, fmt.Errorf("failed to scan tone row: %w", err)
		}
		tones = append(tones, tone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tones: %w", err)
	}
	return tones, nil
}

// Metadata reads metadata from the archive.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	metaMap := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		metaMap[name] = value
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	meta := Metadata{
		Name:        metaMap["name"],
		Description: metaMap["description"],
		Detail:      metaMap["detail"],
		Version:     metaMap["version"],
	}
	if v, ok := metaMap["resolution"]; ok {
		if i, err := strconv.Atoi(v); err == nil {
			meta.Resolution = i
		}
	}

	return meta, nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	r.decoder.Close()
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

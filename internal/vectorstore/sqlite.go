package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite"
)

// DatabaseFile is the file created inside the store path
const DatabaseFile = "vectors.db"

// SQLiteCollection is a Collection stored in a SQLite database under a directory.
// Search is brute force over the collection rows.
type SQLiteCollection struct {
	db   *sql.DB
	name string
	path string
}

var _ Collection = (*SQLiteCollection)(nil)

// OpenSQLiteCollection opens (creating if needed) the named collection in dir
func OpenSQLiteCollection(ctx context.Context, dir, name string) (*SQLiteCollection, error) {
	if dir == "" {
		return nil, errors.New("vector store path is empty")
	}
	if name == "" {
		name = DefaultCollection
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create vector store directory: %w", err)
	}

	path := filepath.Join(dir, DatabaseFile)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Pragmas are per connection
	db.SetMaxOpenConns(1)

	c := &SQLiteCollection{db: db, name: name, path: path}
	if err := c.init(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

func (c *SQLiteCollection) init(ctx context.Context) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := c.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("pragma failed: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS collections (
			name TEXT PRIMARY KEY,
			dimension INTEGER NOT NULL DEFAULT 0,
			next_seq INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS records (
			collection TEXT NOT NULL,
			seq INTEGER NOT NULL,
			id TEXT NOT NULL,
			document TEXT NOT NULL,
			embedding BLOB NOT NULL,
			metadata TEXT,
			PRIMARY KEY (collection, id)
		);
		CREATE INDEX IF NOT EXISTS idx_records_seq ON records (collection, seq);
	`
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}

	if _, err := c.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO collections (name) VALUES (?)", c.name); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", c.name, err)
	}

	return nil
}

// Name returns the collection name
func (c *SQLiteCollection) Name() string { return c.name }

// Path returns the database file path
func (c *SQLiteCollection) Path() string { return c.path }

// Add stores the records in one transaction. Ids are chunk-<n> where n counts
// every record ever added to the collection.
func (c *SQLiteCollection) Add(ctx context.Context, documents []string, embeddings [][]float32, metadatas []map[string]string) ([]string, error) {
	if len(documents) != len(embeddings) {
		return nil, ErrCountMismatch
	}
	if len(documents) == 0 {
		return []string{}, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var dimension, nextSeq int
	err = tx.QueryRowContext(ctx,
		"SELECT dimension, next_seq FROM collections WHERE name = ?", c.name).Scan(&dimension, &nextSeq)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", c.name, err)
	}

	if dimension == 0 {
		dimension = len(embeddings[0])
	}
	for i, e := range embeddings {
		if len(e) == 0 || len(e) != dimension {
			return nil, fmt.Errorf("%w: record %d has %d values, collection uses %d",
				ErrDimensionMismatch, i, len(e), dimension)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO records (collection, seq, id, document, embedding, metadata) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make([]string, len(documents))
	for i, doc := range documents {
		seq := nextSeq + i
		ids[i] = fmt.Sprintf("chunk-%d", seq)

		var metaJSON []byte
		if i < len(metadatas) && metadatas[i] != nil {
			metaJSON, err = json.Marshal(metadatas[i])
			if err != nil {
				return nil, fmt.Errorf("failed to encode metadata: %w", err)
			}
		}
		if _, err := stmt.ExecContext(ctx, c.name, seq, ids[i], doc, encodeFloat32Slice(embeddings[i]), metaJSON); err != nil {
			return nil, fmt.Errorf("failed to insert %s: %w", ids[i], err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE collections SET dimension = ?, next_seq = ? WHERE name = ?",
		dimension, nextSeq+len(documents), c.name); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Query returns up to n records ordered by ascending cosine distance.
// Ties keep insertion order.
func (c *SQLiteCollection) Query(ctx context.Context, embedding []float32, n int) (*QueryResult, error) {
	var dimension int
	err := c.db.QueryRowContext(ctx,
		"SELECT dimension FROM collections WHERE name = ?", c.name).Scan(&dimension)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", c.name, err)
	}
	if dimension != 0 && len(embedding) != dimension {
		return nil, fmt.Errorf("%w: query has %d values, collection uses %d",
			ErrDimensionMismatch, len(embedding), dimension)
	}

	rows, err := c.db.QueryContext(ctx,
		"SELECT id, document, embedding, metadata FROM records WHERE collection = ? ORDER BY seq", c.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type hit struct {
		id       string
		document string
		distance float64
		meta     map[string]string
	}

	var hits []hit
	for rows.Next() {
		var h hit
		var embBytes []byte
		var metaJSON sql.NullString

		if err := rows.Scan(&h.id, &h.document, &embBytes, &metaJSON); err != nil {
			return nil, err
		}
		h.distance = 1 - Cosine(embedding, decodeFloat32Slice(embBytes))
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &h.meta); err != nil {
				return nil, fmt.Errorf("corrupt metadata for %s: %w", h.id, err)
			}
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].distance < hits[j].distance
	})
	if n > len(hits) {
		n = len(hits)
	}

	result := &QueryResult{
		IDs:       make([]string, n),
		Documents: make([]string, n),
		Distances: make([]float64, n),
		Metadatas: make([]map[string]string, n),
	}
	for i := 0; i < n; i++ {
		result.IDs[i] = hits[i].id
		result.Documents[i] = hits[i].document
		result.Distances[i] = hits[i].distance
		result.Metadatas[i] = hits[i].meta
	}
	return result, nil
}

// Count returns the number of records in the collection
func (c *SQLiteCollection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE collection = ?", c.name).Scan(&n)
	return n, err
}

// Close closes the database connection
func (c *SQLiteCollection) Close() error {
	return c.db.Close()
}

// encodeFloat32Slice converts []float32 to little-endian bytes
func encodeFloat32Slice(f []float32) []byte {
	buf := make([]byte, len(f)*4)
	for i, v := range f {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeFloat32Slice(b []byte) []float32 {
	f := make([]float32, len(b)/4)
	for i := range f {
		f[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return f
}

package registry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/graphflow/internal/models"
)

// GraphRow represents a row in the graphs table.
type GraphRow struct {
	Path      string
	Checksum  string
	Source    models.GraphSource
	UpdatedAt time.Time
}

// UpsertGraph inserts or replaces the graph indexed from path.
func (db *DB) UpsertGraph(row GraphRow) error {
	data, err := json.Marshal(row.Source)
	if err != nil {
		return fmt.Errorf("registry: encode graph: %w", err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO graphs (path, resource_id, checksum, descriptor, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			resource_id = excluded.resource_id,
			checksum    = excluded.checksum,
			descriptor  = excluded.descriptor,
			updated_at  = excluded.updated_at
	`, row.Path, row.Source.ResourceID(), row.Checksum, string(data), row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("registry: upsert graph: %w", err)
	}
	return nil
}

// DeleteGraph removes the graph indexed from path.
func (db *DB) DeleteGraph(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM graphs WHERE path = ?`, path); err != nil {
		return fmt.Errorf("registry: delete graph: %w", err)
	}
	return nil
}

// Graphs returns every indexed graph ordered by resource id.
func (db *DB) Graphs() ([]GraphRow, error) {
	rows, err := db.conn.Query(`SELECT path, checksum, descriptor, updated_at FROM graphs ORDER BY resource_id`)
	if err != nil {
		return nil, fmt.Errorf("registry: list graphs: %w", err)
	}
	defer rows.Close()

	var out []GraphRow
	for rows.Next() {
		var (
			r   GraphRow
			raw string
		)
		if err := rows.Scan(&r.Path, &r.Checksum, &raw, &r.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &r.Source); err != nil {
			return nil, fmt.Errorf("registry: decode graph %q: %w", r.Path, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetChecksum returns the stored checksum for a descriptor path, or empty
// string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM graphs WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every indexed descriptor.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM graphs`)
	if err != nil {
		return nil, fmt.Errorf("registry: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

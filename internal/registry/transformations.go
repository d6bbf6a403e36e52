package registry

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/graphflow/internal/apperr"
	"github.com/starford/graphflow/internal/workflow"
)

// PutTransformation inserts or replaces a workflow record under its resource id.
func (db *DB) PutTransformation(rec *workflow.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("registry: encode record: %w", err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO transformations (resource_id, name, variant, record, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(resource_id) DO UPDATE SET
			record     = excluded.record,
			updated_at = excluded.updated_at
	`, rec.ResourceID(), rec.Name, rec.Variant.String(), string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("registry: put transformation: %w", err)
	}
	return nil
}

// Transformation returns the record stored under id.
func (db *DB) Transformation(id string) (*workflow.Record, error) {
	var raw string
	err := db.conn.QueryRow(`SELECT record FROM transformations WHERE resource_id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("registry: transformation %q: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("registry: get transformation: %w", err)
	}
	var rec workflow.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("registry: decode transformation %q: %w", id, err)
	}
	return &rec, nil
}

// Transformations returns every record keyed by resource id.
func (db *DB) Transformations() (map[string]workflow.Record, error) {
	rows, err := db.conn.Query(`SELECT resource_id, record FROM transformations`)
	if err != nil {
		return nil, fmt.Errorf("registry: list transformations: %w", err)
	}
	defer rows.Close()

	out := make(map[string]workflow.Record)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var rec workflow.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("registry: decode transformation %q: %w", id, err)
		}
		out[id] = rec
	}
	return out, rows.Err()
}

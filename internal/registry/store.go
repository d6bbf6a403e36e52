package registry

import "github.com/starford/graphflow/internal/workflow"

// Store defines the persistence operations of the registry.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type Store interface {
	PutTransformation(rec *workflow.Record) error
	Transformation(id string) (*workflow.Record, error)
	Transformations() (map[string]workflow.Record, error)
	UpsertGraph(row GraphRow) error
	DeleteGraph(path string) error
	Graphs() ([]GraphRow, error)
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

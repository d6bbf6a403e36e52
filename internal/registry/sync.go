package registry

import (
	"log/slog"
	"time"

	"github.com/starford/graphflow/internal/checksum"
	"github.com/starford/graphflow/internal/parser"
	"github.com/starford/graphflow/internal/storage"
)

// Sync walks the sources directory and brings the graphs table up to date:
//   - new/changed descriptors are parsed and upserted
//   - descriptors removed from disk are deleted from the table
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteGraph(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// indexFile parses a descriptor and upserts it.
func indexFile(db *DB, path string, data []byte) error {
	src, err := parser.Parse(path, data)
	if err != nil {
		return err
	}
	return db.UpsertGraph(GraphRow{
		Path:      path,
		Checksum:  checksum.Sum(data),
		Source:    *src,
		UpdatedAt: time.Now().UTC(),
	})
}

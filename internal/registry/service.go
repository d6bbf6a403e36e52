package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/graphflow/internal/apperr"
	"github.com/starford/graphflow/internal/checksum"
	"github.com/starford/graphflow/internal/models"
	"github.com/starford/graphflow/internal/parser"
	"github.com/starford/graphflow/internal/storage"
	"github.com/starford/graphflow/internal/workflow"
)

// Service coordinates the store, the sources directory and the catalog.
type Service struct {
	db      *DB
	store   storage.Provider
	catalog *Catalog
	labels  Labels
	logger  *slog.Logger
}

// NewService creates a registry service. labels are offered by every graph
// projection in addition to those declared by registered graphs.
func NewService(db *DB, store storage.Provider, catalog *Catalog, labels Labels, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, store: store, catalog: catalog, labels: labels, logger: logger}
}

// Procedures returns the graph-domain procedure keys.
func (s *Service) Procedures(_ context.Context) []string {
	return s.catalog.Procedures()
}

// ConfigSchema returns the config schema of a procedure.
func (s *Service) ConfigSchema(_ context.Context, key string) (json.RawMessage, error) {
	if !s.catalog.Supported(key) {
		return nil, fmt.Errorf("registry: no config schema for %q: %w", key, apperr.ErrNotFound)
	}
	labels, err := s.projectionLabels()
	if err != nil {
		return nil, err
	}
	return s.catalog.Schema(key, labels)
}

// projectionLabels merges the configured labels with those of registered graphs.
func (s *Service) projectionLabels() (Labels, error) {
	rows, err := s.db.Graphs()
	if err != nil {
		return Labels{}, err
	}
	vertices := append([]string{}, s.labels.Vertices...)
	edges := append([]string{}, s.labels.Edges...)
	for _, r := range rows {
		vertices = append(vertices, r.Source.VertexLabels...)
		edges = append(edges, r.Source.EdgeLabels...)
	}
	return Labels{Vertices: unique(vertices), Edges: unique(edges)}, nil
}

// Transformation returns the workflow record stored under id.
func (s *Service) Transformation(_ context.Context, id string) (*workflow.Record, error) {
	if id == "" {
		return nil, fmt.Errorf("registry: transformation id not provided: %w", apperr.ErrInvalidPayload)
	}
	return s.db.Transformation(id)
}

// Transformations returns every record keyed by resource id.
func (s *Service) Transformations(_ context.Context) (map[string]workflow.Record, error) {
	return s.db.Transformations()
}

// SaveTransformation validates and stores rec, replacing any record with the
// same resource id. It returns the resource id.
func (s *Service) SaveTransformation(_ context.Context, rec *workflow.Record) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("registry: %v: %w", err, apperr.ErrInvalidPayload)
	}
	if _, err := workflow.ParseBody(rec.Body); err != nil {
		return "", fmt.Errorf("registry: %v: %w", err, apperr.ErrInvalidPayload)
	}
	if err := s.db.PutTransformation(rec); err != nil {
		return "", err
	}
	s.logger.Info("registry: transformation saved", slog.String("id", rec.ResourceID()))
	return rec.ResourceID(), nil
}

// Graphs returns every registered graph keyed by resource id.
func (s *Service) Graphs(_ context.Context) (map[string]models.GraphSource, error) {
	rows, err := s.db.Graphs()
	if err != nil {
		return nil, err
	}
	out := make(map[string]models.GraphSource, len(rows))
	for _, r := range rows {
		out[r.Source.ResourceID()] = r.Source
	}
	return out, nil
}

// RegisterGraph writes a descriptor for src into the sources directory and
// indexes it right away. A descriptor of the same name must not exist.
func (s *Service) RegisterGraph(_ context.Context, src *models.GraphSource) (string, error) {
	parser.Normalize(src)
	if err := parser.Validate(src); err != nil {
		return "", fmt.Errorf("registry: %w", err)
	}
	existing, err := s.Graphs(context.Background())
	if err != nil {
		return "", err
	}
	if _, ok := existing[src.ResourceID()]; ok {
		return "", fmt.Errorf("registry: graph %q: %w", src.ResourceID(), apperr.ErrAlreadyExists)
	}

	path := descriptorPath(src)
	if _, err := s.store.Read(path); err == nil {
		return "", fmt.Errorf("registry: descriptor %q: %w", path, apperr.ErrAlreadyExists)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return "", err
	}

	data, err := parser.Encode(src)
	if err != nil {
		return "", err
	}
	if err := s.store.Write(path, data); err != nil {
		return "", err
	}
	if err := s.db.UpsertGraph(GraphRow{
		Path:      path,
		Checksum:  checksum.Sum(data),
		Source:    *src,
		UpdatedAt: time.Now().UTC(),
	}); err != nil {
		return "", err
	}
	s.logger.Info("registry: graph registered", slog.String("id", src.ResourceID()), slog.String("path", path))
	return src.ResourceID(), nil
}

func descriptorPath(src *models.GraphSource) string {
	if src.Variant == "" || src.Variant == models.DefaultVariant {
		return src.Name + ".yaml"
	}
	return src.Name + "." + src.Variant + ".yaml"
}

func unique(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

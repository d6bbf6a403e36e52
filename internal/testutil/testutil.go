// Package testutil provides shared test helpers for setting up source
// directories, registry databases and a running registry backend.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/starford/graphflow/internal/models"
	"github.com/starford/graphflow/internal/registry"
	"github.com/starford/graphflow/internal/storage"
)

// QuietLogger discards everything.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite registry database that is automatically cleaned up.
func TestDB(t *testing.T) *registry.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "graphflow-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := registry.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSources creates a temporary graph-source directory with a storage.Provider.
func TestSources(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// TestRegistry creates a registry service offering the "redis" infra and
// registers graphs.
func TestRegistry(t *testing.T, graphs ...models.GraphSource) *registry.Service {
	t.Helper()
	_, store := TestSources(t)
	svc := registry.NewService(TestDB(t), store, registry.NewCatalog([]string{"redis"}), registry.Labels{}, QuietLogger())
	for i := range graphs {
		if _, err := svc.RegisterGraph(context.Background(), &graphs[i]); err != nil {
			t.Fatalf("register %s: %v", graphs[i].Name, err)
		}
	}
	return svc
}

// Reviews is a small graph used across tests.
func Reviews() models.GraphSource {
	return models.GraphSource{
		Name:         "reviews",
		VertexLabels: []string{"Product", "Reviewer"},
		EdgeLabels:   []string{"rates"},
	}
}

// Serve starts h on a test server closed at cleanup and returns its URL.
func Serve(t *testing.T, h http.Handler) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

package registry

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/graphflow/internal/storage"
)

// watcherTestEnv sets up a sources dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store, testDB(t)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewDescriptorIndexed(t *testing.T) {
	dir, store, db := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string
	go Watch(ctx, db, store, dir, quietLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "new.yaml"), []byte("name: fresh\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("new.yaml")
		return cs != ""
	}, "new descriptor not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:new.yaml" || e == "updated:new.yaml" {
				return true
			}
		}
		return false
	}, "expected a callback for new.yaml")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir, store, db := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, dir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("name: x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "real.yml"), []byte("name: real\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("real.yml")
		return cs != ""
	}, "descriptor not indexed")
	if cs, _ := db.GetChecksum("notes.txt"); cs != "" {
		t.Error("non-descriptor file indexed")
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	dir, store, db := watcherTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, dir, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	sub := filepath.Join(dir, "team")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(200 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "deep.yaml"), []byte("name: deep\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(filepath.Join("team", "deep.yaml"))
		return cs != ""
	}, "descriptor in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesGraph(t *testing.T) {
	dir, store, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(dir, "del.yaml"), []byte("name: del\n"), 0o644)
	_ = Sync(db, store, logger)
	if cs, _ := db.GetChecksum("del.yaml"); cs == "" {
		t.Fatal("precondition: descriptor should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, dir, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(dir, "del.yaml"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del.yaml")
		return cs == ""
	}, "deleted descriptor still registered")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	dir, store, db := watcherTestEnv(t)
	logger := quietLogger()

	_ = os.WriteFile(filepath.Join(dir, "old.yaml"), []byte("name: moved\n"), 0o644)
	_ = Sync(db, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, store, dir, logger, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(dir, "old.yaml"), filepath.Join(dir, "renamed.yaml"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old.yaml")
		newCS, _ := db.GetChecksum("renamed.yaml")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed")
}

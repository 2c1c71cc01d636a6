package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slideshow-server/core"
	"strings"
	"sync"
	"testing"
)

func setupTestDB(t *testing.T) *sqliteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := NewStore(DriverPure, dbPath, "legacy_slides")
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestInitialize_TablesCreated(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := NewStore("", dbPath, "legacy_slides")
	t.Cleanup(func() { store.Close() })

	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("second Initialize() failed: %v", err)
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Initialize() did not create database file")
	}

	for _, table := range []string{"slides", "legacy_kv"} {
		var name string
		err := store.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("%s table not created: %v", table, err)
		}
	}
}

func TestInitialize_Unavailable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing", "dir", "test.db")
	store := NewStore(DriverPure, dbPath, "legacy_slides")

	err := store.Initialize(context.Background())
	if !errors.Is(err, core.ErrStorageUnavailable) {
		t.Errorf("Initialize() error = %v, want ErrStorageUnavailable", err)
	}
}

func TestUninitializedStore(t *testing.T) {
	store := NewStore(DriverPure, filepath.Join(t.TempDir(), "test.db"), "legacy_slides")

	if _, err := store.LoadAll(context.Background()); !errors.Is(err, core.ErrStorageUnavailable) {
		t.Errorf("LoadAll() error = %v, want ErrStorageUnavailable", err)
	}
	if err := store.SaveAll(context.Background(), nil); !errors.Is(err, core.ErrStorageUnavailable) {
		t.Errorf("SaveAll() error = %v, want ErrStorageUnavailable", err)
	}
}

func TestLoadAll_Empty(t *testing.T) {
	store := setupTestDB(t)

	slides, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	if slides == nil || len(slides) != 0 {
		t.Errorf("LoadAll() = %v, want empty slice", slides)
	}
}

func TestSaveAll_RoundTrip(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	input := []core.Slide{
		{ID: "slide-b", ImageData: "data:image/png;base64,iVBOR", Title: "Hello 世界", Description: "🌍"},
		{ID: "default-1", ImageData: "https://picsum.photos/1920/1080", Title: "Seed", Description: "welcome"},
		{ID: "slide-a", ImageData: strings.Repeat("y", 512*1024), Title: "Large", Description: ""},
	}

	if err := store.SaveAll(ctx, input); err != nil {
		t.Fatalf("SaveAll() failed: %v", err)
	}

	loaded, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	got := core.ResolveOrder(loaded)
	if len(got) != len(input) {
		t.Fatalf("LoadAll() returned %d slides, want %d", len(got), len(input))
	}
	for i := range input {
		want := input[i].WithOrder(i)
		if got[i].ID != want.ID || got[i].Title != want.Title || got[i].Description != want.Description || got[i].ImageData != want.ImageData {
			t.Errorf("slide %d mismatch: got %s, want %s", i, got[i].ID, want.ID)
		}
		if got[i].Order == nil || *got[i].Order != i {
			t.Errorf("slide %d order = %v, want %d", i, got[i].Order, i)
		}
	}
}

func TestSaveAll_ReplacesPreviousSet(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.SaveAll(ctx, []core.Slide{{ID: "a"}, {ID: "b"}, {ID: "c"}}); err != nil {
		t.Fatalf("SaveAll() failed: %v", err)
	}
	if err := store.SaveAll(ctx, []core.Slide{{ID: "c"}, {ID: "a"}}); err != nil {
		t.Fatalf("SaveAll() failed: %v", err)
	}

	var count int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM slides").Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != 2 {
		t.Errorf("slides table has %d rows, want 2", count)
	}

	loaded, _ := store.LoadAll(ctx)
	got := core.ResolveOrder(loaded)
	if got[0].ID != "c" || got[1].ID != "a" {
		t.Errorf("order after resave = [%s %s], want [c a]", got[0].ID, got[1].ID)
	}
}

func TestSaveAll_DuplicateIDRollsBack(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.SaveAll(ctx, []core.Slide{{ID: "keep"}}); err != nil {
		t.Fatalf("SaveAll() failed: %v", err)
	}

	err := store.SaveAll(ctx, []core.Slide{{ID: "x"}, {ID: "x"}})
	if !errors.Is(err, core.ErrStorageWriteFailed) {
		t.Fatalf("SaveAll() error = %v, want ErrStorageWriteFailed", err)
	}

	loaded, _ := store.LoadAll(ctx)
	if len(loaded) != 1 || loaded[0].ID != "keep" {
		t.Errorf("LoadAll() = %+v, want previous set after rollback", loaded)
	}
}

func TestLoadAll_NullOrder(t *testing.T) {
	store := setupTestDB(t)

	_, err := store.db.Exec("INSERT INTO slides (id, image_data, title, description, sort_order) VALUES ('old', '', '', '', NULL)")
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	loaded, err := store.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Order != nil {
		t.Errorf("LoadAll() = %+v, want one slide without order", loaded)
	}
}

func TestLegacy(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if _, err := store.ReadLegacy(ctx); !errors.Is(err, core.ErrLegacyNotFound) {
		t.Errorf("ReadLegacy() error = %v, want ErrLegacyNotFound", err)
	}

	payload := `[{"id":"x"}]`
	if _, err := store.db.Exec("INSERT INTO legacy_kv (key, value) VALUES (?, ?)", "legacy_slides", payload); err != nil {
		t.Fatalf("insert legacy failed: %v", err)
	}

	got, err := store.ReadLegacy(ctx)
	if err != nil {
		t.Fatalf("ReadLegacy() failed: %v", err)
	}
	if string(got) != payload {
		t.Errorf("ReadLegacy() = %q, want %q", got, payload)
	}

	if err := store.ClearLegacy(ctx); err != nil {
		t.Fatalf("ClearLegacy() failed: %v", err)
	}
	if _, err := store.ReadLegacy(ctx); !errors.Is(err, core.ErrLegacyNotFound) {
		t.Errorf("ReadLegacy() after clear error = %v, want ErrLegacyNotFound", err)
	}
}

func TestConcurrentSaves(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures int
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			slides := []core.Slide{{ID: fmt.Sprintf("s%d-a", i)}, {ID: fmt.Sprintf("s%d-b", i)}}
			if err := store.SaveAll(ctx, slides); err != nil {
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if failures != 0 {
		t.Fatalf("%d concurrent SaveAll() calls failed", failures)
	}

	loaded, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Errorf("LoadAll() returned %d slides, want exactly one snapshot of 2", len(loaded))
	}
	if len(loaded) == 2 && loaded[0].ID[:3] != loaded[1].ID[:3] {
		t.Errorf("LoadAll() mixed snapshots: %s and %s", loaded[0].ID, loaded[1].ID)
	}
}

func TestCGODriver(t *testing.T) {
	if !CGOEnabled {
		t.Skip("skipping go-sqlite3 driver test: CGO disabled")
	}

	store := NewStore(DriverCGO, filepath.Join(t.TempDir(), "cgo.db"), "legacy_slides")
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	if err := store.SaveAll(ctx, []core.Slide{{ID: "a"}, {ID: "b"}}); err != nil {
		t.Fatalf("SaveAll() failed: %v", err)
	}
	loaded, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll() failed: %v", err)
	}
	if got := core.ResolveOrder(loaded); len(got) != 2 || got[0].ID != "a" {
		t.Errorf("LoadAll() = %+v", got)
	}
}

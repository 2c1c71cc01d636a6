package stores

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slideshow-server/config"
	"slideshow-server/core"
	"testing"
)

func TestOpen_Memory(t *testing.T) {
	store, err := Open(context.Background(), config.AppConfig{StorageType: "memory"})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	if _, err := store.ReadLegacy(context.Background()); !errors.Is(err, core.ErrLegacyNotFound) {
		t.Errorf("ReadLegacy() error = %v, want ErrLegacyNotFound", err)
	}
}

func TestOpen_Filesystem(t *testing.T) {
	base := t.TempDir()
	store, err := Open(context.Background(), config.AppConfig{
		StorageType:      "filesystem",
		LocalStoragePath: base,
		LegacyKey:        "legacy",
	})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(filepath.Join(base, "slides")); err != nil {
		t.Errorf("Open() did not initialize the slides directory: %v", err)
	}
}

func TestOpen_SQLite(t *testing.T) {
	store, err := Open(context.Background(), config.AppConfig{
		StorageType:    "sqlite",
		DataSourceName: filepath.Join(t.TempDir(), "slides.db"),
		SQLiteDriver:   "sqlite",
		LegacyKey:      "legacy",
	})
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SaveAll(ctx, []core.Slide{{ID: "a"}}); err != nil {
		t.Fatalf("SaveAll() failed: %v", err)
	}
	slides, err := store.LoadAll(ctx)
	if err != nil || len(slides) != 1 {
		t.Errorf("LoadAll() = %v, %v; want one slide", slides, err)
	}
}

func TestOpen_Unavailable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		cfg  config.AppConfig
	}{
		{"filesystem under a file", config.AppConfig{StorageType: "filesystem", LocalStoragePath: blocker}},
		{"s3 without bucket", config.AppConfig{StorageType: "s3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.cfg)
			if !errors.Is(err, core.ErrStorageUnavailable) {
				t.Errorf("Open() error = %v, want ErrStorageUnavailable", err)
			}
		})
	}
}

func TestOpenMemory(t *testing.T) {
	store := OpenMemory()
	slides, err := store.LoadAll(context.Background())
	if err != nil || len(slides) != 0 {
		t.Errorf("LoadAll() = %v, %v; want empty", slides, err)
	}
}

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rogerio-castellano/storefront/internal/config"
	"github.com/rogerio-castellano/storefront/internal/db"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, KeyToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing key, got %v", err)
	}

	if err := s.Set(ctx, KeyToken, "abc"); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := s.Set(ctx, KeyToken, "def"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	v, err := s.Get(ctx, KeyToken)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if v != "def" {
		t.Errorf("expected def, got %q", v)
	}

	if err := s.Delete(ctx, KeyToken); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.Get(ctx, KeyToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "never-set"); err != nil {
		t.Errorf("deleting a missing key should not fail: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kv.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, s)
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.json")

	s, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, KeyRedirectAfterLogin, "/checkout"); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	v, err := reopened.Get(ctx, KeyRedirectAfterLogin)
	if err != nil || v != "/checkout" {
		t.Errorf("expected /checkout after reopen, got %q (%v)", v, err)
	}
}

func TestSQLiteStore(t *testing.T) {
	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })

	s, err := NewSQLiteStore(database)
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, s)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type profile struct {
		Username string `json:"username"`
	}
	if err := SetJSON(ctx, s, KeyUser, profile{Username: "ana"}); err != nil {
		t.Fatal(err)
	}

	var p profile
	if err := GetJSON(ctx, s, KeyUser, &p); err != nil {
		t.Fatal(err)
	}
	if p.Username != "ana" {
		t.Errorf("expected ana, got %q", p.Username)
	}

	_ = s.Set(ctx, KeyUser, "{broken")
	if err := GetJSON(ctx, s, KeyUser, &p); err == nil {
		t.Error("expected decode error for malformed value")
	}
}

func TestOpen_Memory(t *testing.T) {
	s, closer, err := Open(context.Background(), config.StorageConfig{Type: "memory"})
	if err != nil {
		t.Fatal(err)
	}
	defer closer.Close()
	exerciseStore(t, s)
}

func TestOpen_Unknown(t *testing.T) {
	if _, _, err := Open(context.Background(), config.StorageConfig{Type: "tape"}); err == nil {
		t.Error("expected error for unknown storage type")
	}
}

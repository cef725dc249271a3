package cache

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/rtlive/rtlive/internal/config"
)

// exerciseStore runs the common Get/Put/Delete contract against s.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.Get(ctx, "p_delay.csv"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Put(ctx, "p_delay.csv", []byte("day,p_delay\n0,1\n")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := s.Get(ctx, "p_delay.csv")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "day,p_delay\n0,1\n" {
		t.Errorf("Get() = %q", got)
	}

	// Put overwrites.
	if err := s.Put(ctx, "p_delay.csv", []byte("v2")); err != nil {
		t.Fatalf("Put(overwrite) error = %v", err)
	}
	if got, _ := s.Get(ctx, "p_delay.csv"); string(got) != "v2" {
		t.Errorf("Get() after overwrite = %q, want v2", got)
	}

	existed, err := s.Delete(ctx, "p_delay.csv")
	if err != nil || !existed {
		t.Fatalf("Delete() = %v, %v; want true, nil", existed, err)
	}
	existed, err = s.Delete(ctx, "p_delay.csv")
	if err != nil || existed {
		t.Fatalf("Delete(again) = %v, %v; want false, nil", existed, err)
	}
	if _, err := s.Get(ctx, "p_delay.csv"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(deleted) error = %v, want ErrNotFound", err)
	}
}

func TestFS_Contract(t *testing.T) {
	s, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS() error = %v", err)
	}
	if s.Driver() != DriverFilesystem {
		t.Errorf("Driver() = %q", s.Driver())
	}
	exerciseStore(t, s)
}

func TestFS_NestedKeyAndPath(t *testing.T) {
	root := t.TempDir()
	s, err := NewFS(root)
	if err != nil {
		t.Fatalf("NewFS() error = %v", err)
	}
	if err := s.Put(context.Background(), "v1/p_delay.csv", []byte("x")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(root, "v1", "p_delay.csv"))
	if err != nil || !bytes.Equal(data, []byte("x")) {
		t.Errorf("file contents = %q, %v", data, err)
	}
}

func TestFS_WithMkdirFailure(t *testing.T) {
	expect := errors.New("mocked error")
	mkdir := func(string, fs.FileMode) error { return expect }
	s, err := newFS(filepath.Join(t.TempDir(), "x"), mkdir)
	if !errors.Is(err, expect) {
		t.Fatalf("newFS() error = %v, want %v", err, expect)
	}
	if s != nil {
		t.Fatal("expected nil store")
	}
}

func TestSanitizeKeyErrors(t *testing.T) {
	for _, key := range []string{"", "  ", "../escape", "/abs", "a/../b"} {
		if _, err := sanitizeKey(key); err == nil {
			t.Errorf("sanitizeKey(%q) expected error", key)
		}
	}
}

func TestMemory_Contract(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_GetReturnsCopy(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	_ = s.Put(ctx, "k", []byte("abc"))
	got, _ := s.Get(ctx, "k")
	got[0] = 'z'
	if again, _ := s.Get(ctx, "k"); string(again) != "abc" {
		t.Errorf("stored value mutated through Get result: %q", again)
	}
}

func TestSQLite_Contract(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "cache", "rtlive.db"))
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	defer s.Close()
	if s.Driver() != DriverSQLite {
		t.Errorf("Driver() = %q", s.Driver())
	}
	exerciseStore(t, s)
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rtlive.db")
	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	if err := s.Put(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	s.Close()

	s2, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s2.Close()
	if got, err := s2.Get(context.Background(), "k"); err != nil || string(got) != "v" {
		t.Errorf("Get() after reopen = %q, %v", got, err)
	}
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		cfg  config.Cache
		want Driver
	}{
		{config.Cache{Driver: "fs", Path: filepath.Join(dir, "fs")}, DriverFilesystem},
		{config.Cache{Path: filepath.Join(dir, "default")}, DriverFilesystem},
		{config.Cache{Driver: "memory"}, DriverMemory},
		{config.Cache{Driver: "sqlite", Path: filepath.Join(dir, "c.db")}, DriverSQLite},
	}
	for _, tc := range tests {
		s, err := Open(ctx, tc.cfg)
		if err != nil {
			t.Fatalf("Open(%+v) error = %v", tc.cfg, err)
		}
		if s.Driver() != tc.want {
			t.Errorf("Open(%+v).Driver() = %q, want %q", tc.cfg, s.Driver(), tc.want)
		}
		_ = s.Close()
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, config.Cache{Driver: "redis"}); err == nil {
		t.Error("expected error for unknown driver")
	}
	if _, err := Open(ctx, config.Cache{Driver: "s3"}); err == nil {
		t.Error("expected error for s3 without bucket")
	}
}

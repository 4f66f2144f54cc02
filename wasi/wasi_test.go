package wasi

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	errs "github.com/wasmlite/wasmlite/errors"
)

func TestSetEnvLengthMismatch(t *testing.T) {
	c := NewConfig()
	err := c.SetEnv([]string{"A", "B"}, []string{"1"})
	if err == nil {
		t.Fatal("expected error")
	}
	var e *errs.Error
	if !errors.As(err, &e) || e.Phase != errs.PhaseWasi {
		t.Errorf("error = %v", err)
	}
}

func TestSetStdinFileMissing(t *testing.T) {
	c := NewConfig()
	if err := c.SetStdinFile(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFileRedirectionAndClose(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	if err := os.WriteFile(in, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewConfig()
	if err := c.SetStdinFile(in); err != nil {
		t.Fatalf("SetStdinFile: %v", err)
	}
	if err := c.SetStdoutFile(filepath.Join(dir, "out.txt")); err != nil {
		t.Fatalf("SetStdoutFile: %v", err)
	}
	if len(c.closers) != 2 {
		t.Errorf("closers = %d, want 2", len(c.closers))
	}
	if c.ModuleConfig() == nil {
		t.Error("nil module config")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if c.closers != nil {
		t.Error("closers not cleared")
	}
}

func TestPreopenDir(t *testing.T) {
	c := NewConfig()
	if err := c.PreopenDir(t.TempDir(), "/data"); err != nil {
		t.Fatalf("PreopenDir: %v", err)
	}
	if err := c.PreopenDir(filepath.Join(t.TempDir(), "missing"), "/x"); err == nil {
		t.Error("expected error for missing directory")
	}

	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.PreopenDir(f, "/f"); err == nil {
		t.Error("expected error for non-directory")
	}
}

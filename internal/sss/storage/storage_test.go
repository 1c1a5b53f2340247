package storage

// Tests for atomic writes and symlink protection of the tool's own files.

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestWriteFileAtomic_CreatesFileAndDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	storage := New(fs)

	path := "/data/sss/state.toml"
	if err := storage.WriteFileAtomic(path, []byte("content")); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	content, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(content) != "content" {
		t.Errorf("expected 'content', got %q", string(content))
	}

	info, err := fs.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected file mode 0600, got %o", info.Mode().Perm())
	}
}

func TestWriteFileAtomic_ReplacesAndLeavesNoTempFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	storage := New(fs)

	path := "/data/state.toml"
	if err := afero.WriteFile(fs, path, []byte("old and longer"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := storage.WriteFileAtomic(path, []byte("new")); err != nil {
		t.Fatalf("WriteFileAtomic failed: %v", err)
	}

	content, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(content) != "new" {
		t.Errorf("expected 'new', got %q", string(content))
	}

	entries, err := afero.ReadDir(fs, "/data")
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestWriteFileAtomic_ReadOnlyFilesystem(t *testing.T) {
	base := afero.NewMemMapFs()
	if err := base.MkdirAll("/data", 0o700); err != nil {
		t.Fatalf("setup: %v", err)
	}
	storage := New(afero.NewReadOnlyFs(base))

	if err := storage.WriteFileAtomic("/data/state.toml", []byte("x")); err == nil {
		t.Fatal("expected error on read-only filesystem")
	}
}

func TestWriteFileAtomic_RefusesSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "state.toml")
	if err := os.WriteFile(target, []byte("keep"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	storage := New(afero.NewOsFs())
	if err := storage.WriteFileAtomic(link, []byte("overwrite")); err == nil {
		t.Fatal("expected symlink to be refused")
	}
	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read target: %v", err)
	}
	if string(content) != "keep" {
		t.Errorf("symlink target modified: %q", content)
	}
}

func TestValidatePathSafety_NonExistentPath(t *testing.T) {
	storage := New(afero.NewMemMapFs())

	if err := storage.ValidatePathSafety("/nonexistent/file.toml"); err != nil {
		t.Errorf("non-existent path should be safe: %v", err)
	}
}

func TestMkdirAll_SecurePermissions(t *testing.T) {
	fs := afero.NewMemMapFs()
	storage := New(fs)

	path := "/deeply/nested/path"
	if err := storage.MkdirAll(path); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	info, err := fs.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !info.IsDir() {
		t.Error("path should be a directory")
	}
	if info.Mode().Perm() != 0o700 {
		t.Errorf("expected secure mode 0700, got %o", info.Mode().Perm())
	}
}

package backup

// Tests for content-addressed tree backups.
//
// Focus: deduplication by fingerprint, timestamp refresh, and PruneBackups
// (time-based cleanup). Backups are assembled with a directory rename, so
// these tests run against the real filesystem.

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/OpenGG/save-slot-switch/internal/sss/storage"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(storage.New(afero.NewOsFs()), filepath.Join(root, "backups"), logger)
	return svc, root
}

func writeSave(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestBackupTree_CreatesCopy(t *testing.T) {
	svc, root := newTestService(t)
	primary := filepath.Join(root, "primary")
	writeSave(t, primary, "slot1.sav", "day 3")
	writeSave(t, primary, "meta/options.ini", "volume=4")

	id, err := svc.BackupTree(primary)
	if err != nil {
		t.Fatalf("BackupTree failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a backup id")
	}

	data, err := os.ReadFile(filepath.Join(svc.BackupDir(), id, "meta", "options.ini"))
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(data) != "volume=4" {
		t.Errorf("unexpected backup content %q", data)
	}

	entries, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id {
		t.Errorf("unexpected entries %+v", entries)
	}
}

func TestBackupTree_DeduplicatesAndRefreshesTimestamp(t *testing.T) {
	svc, root := newTestService(t)
	primary := filepath.Join(root, "primary")
	writeSave(t, primary, "slot1.sav", "day 3")

	time1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	time2 := time1.Add(48 * time.Hour)

	svc.SetNow(func() time.Time { return time1 })
	id1, err := svc.BackupTree(primary)
	if err != nil {
		t.Fatalf("first backup: %v", err)
	}

	svc.SetNow(func() time.Time { return time2 })
	id2, err := svc.BackupTree(primary)
	if err != nil {
		t.Fatalf("second backup: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("identical trees produced different ids %s and %s", id1, id2)
	}

	info, err := os.Stat(filepath.Join(svc.BackupDir(), id1))
	if err != nil {
		t.Fatalf("stat backup: %v", err)
	}
	if !info.ModTime().Equal(time2) {
		t.Errorf("expected mod time %v, got %v", time2, info.ModTime())
	}

	writeSave(t, primary, "slot1.sav", "day 4")
	id3, err := svc.BackupTree(primary)
	if err != nil {
		t.Fatalf("third backup: %v", err)
	}
	if id3 == id1 {
		t.Error("changed content should produce a new backup")
	}
	entries, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 backups, got %d", len(entries))
	}
}

func TestBackupTree_SkipsEmptyDirectory(t *testing.T) {
	svc, root := newTestService(t)
	primary := filepath.Join(root, "primary")
	if err := os.MkdirAll(primary, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	id, err := svc.BackupTree(primary)
	if err != nil {
		t.Fatalf("BackupTree: %v", err)
	}
	if id != "" {
		t.Errorf("expected no backup for empty tree, got %q", id)
	}
}

func TestBackupTree_MissingSource(t *testing.T) {
	svc, root := newTestService(t)

	if _, err := svc.BackupTree(filepath.Join(root, "missing")); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestPruneBackups(t *testing.T) {
	svc, root := newTestService(t)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, age := range []time.Duration{40 * 24 * time.Hour, 10 * 24 * time.Hour} {
		primary := filepath.Join(root, "p", string(rune('a'+i)))
		writeSave(t, primary, "save.dat", primary)
		svc.SetNow(func() time.Time { return now.Add(-age) })
		if _, err := svc.BackupTree(primary); err != nil {
			t.Fatalf("backup %d: %v", i, err)
		}
	}
	// abandoned staging copy from an interrupted run
	stale := filepath.Join(svc.BackupDir(), ".deadbeef"+partialSuffix)
	if err := os.MkdirAll(stale, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	old := now.Add(-100 * 24 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	svc.SetNow(func() time.Time { return now })
	deleted, err := svc.PruneBackups(30 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("PruneBackups: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deletions, got %d", deleted)
	}
	entries, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 remaining backup, got %d", len(entries))
	}
}

func TestPruneBackups_MissingDirectory(t *testing.T) {
	svc, _ := newTestService(t)

	deleted, err := svc.PruneBackups(time.Hour)
	if err != nil {
		t.Fatalf("PruneBackups: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected nothing deleted, got %d", deleted)
	}
}

var (
	errCreate = errors.New("disk full")
	errRemove = errors.New("device busy")
)

// stuckStagingFs fails every file creation and removal below a partial
// backup directory.
type stuckStagingFs struct {
	afero.Fs
}

func (fs stuckStagingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&os.O_CREATE != 0 && strings.Contains(name, partialSuffix) {
		return nil, errCreate
	}
	return fs.Fs.OpenFile(name, flag, perm)
}

func (fs stuckStagingFs) RemoveAll(name string) error {
	if strings.Contains(name, partialSuffix) {
		return errRemove
	}
	return fs.Fs.RemoveAll(name)
}

func TestBackupTree_ReportsLeftoverStaging(t *testing.T) {
	root := t.TempDir()
	svc := New(storage.New(stuckStagingFs{Fs: afero.NewOsFs()}), filepath.Join(root, "backups"), nil)
	primary := filepath.Join(root, "primary")
	writeSave(t, primary, "slot1.sav", "day 3")

	_, err := svc.BackupTree(primary)
	if !errors.Is(err, errCreate) {
		t.Fatalf("expected copy error, got %v", err)
	}
	if !errors.Is(err, errRemove) {
		t.Fatalf("expected cleanup error to be reported, got %v", err)
	}

	entries, err := svc.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("a partial copy must not be listed, got %d entries", len(entries))
	}
}

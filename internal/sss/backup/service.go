package backup

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/OpenGG/save-slot-switch/internal/sss/fstree"
	"github.com/OpenGG/save-slot-switch/internal/sss/storage"
)

const partialSuffix = ".partial"

// Service keeps content-addressed copies of primary directories taken before
// they are overwritten.
type Service struct {
	storage   *storage.Storage
	backupDir string
	now       func() time.Time
	logger    *slog.Logger
}

// Entry describes one stored backup.
type Entry struct {
	ID      string
	Path    string
	ModTime time.Time
}

// New creates a new backup Service.
func New(storage *storage.Storage, backupDir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		storage:   storage,
		backupDir: backupDir,
		now:       time.Now,
		logger:    logger,
	}
}

// SetNow allows overriding the clock for testing.
func (s *Service) SetNow(now func() time.Time) {
	if now == nil {
		s.now = time.Now
		return
	}
	s.now = now
}

// BackupTree stores a copy of the tree at src and returns its id.
//
// The id is the tree fingerprint, so backing up identical content twice keeps
// a single copy and only refreshes its modification time, which is what
// PruneBackups ages by. Empty trees are not backed up and yield an empty id.
//
// A new backup is assembled under a temporary name and renamed into place, so
// an interrupted copy never poses as a complete backup.
func (s *Service) BackupTree(src string) (string, error) {
	fs := s.storage.FileSystem()
	id, err := fstree.Fingerprint(fs, src)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint %s: %w", src, err)
	}
	if id == fstree.EmptyFingerprint {
		s.logger.Debug("skipping backup of empty directory", "path", src)
		return "", nil
	}

	target := filepath.Join(s.backupDir, id)
	now := s.now()
	if _, err := s.storage.Stat(target); err == nil {
		if err := s.storage.Chtimes(target, now, now); err != nil {
			return "", fmt.Errorf("failed to update backup timestamp: %w", err)
		}
		s.logger.Debug("backup already exists, updated timestamp",
			"path", src,
			"backup_path", target)
		return id, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to stat backup: %w", err)
	}

	staging := filepath.Join(s.backupDir, "."+id+partialSuffix)
	if err := fstree.ClearDir(fs, staging); err != nil {
		return "", fmt.Errorf("failed to prepare backup: %w", err)
	}
	if err := fstree.CopyTree(fs, src, staging); err != nil {
		return "", s.discardStaging(staging, fmt.Errorf("failed to copy backup: %w", err))
	}
	if err := s.storage.Rename(staging, target); err != nil {
		return "", s.discardStaging(staging, fmt.Errorf("failed to finalize backup: %w", err))
	}
	if err := s.storage.Chtimes(target, now, now); err != nil {
		return "", fmt.Errorf("failed to update backup timestamp: %w", err)
	}

	s.logger.Info("backup created",
		"path", src,
		"id", id,
		"backup_path", target)
	return id, nil
}

// List returns the complete backups, newest first.
func (s *Service) List() ([]Entry, error) {
	infos, err := s.readDir()
	if err != nil {
		return nil, err
	}
	var entries []Entry
	for _, info := range infos {
		if !info.IsDir() || strings.HasPrefix(info.Name(), ".") {
			continue
		}
		entries = append(entries, Entry{
			ID:      info.Name(),
			Path:    filepath.Join(s.backupDir, info.Name()),
			ModTime: info.ModTime(),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ModTime.After(entries[j].ModTime)
	})
	return entries, nil
}

// PruneBackups removes backups, including abandoned partial copies, whose
// modification time is older than olderThan.
//
// Returns the number of backups deleted and any error encountered.
func (s *Service) PruneBackups(olderThan time.Duration) (int, error) {
	infos, err := s.readDir()
	if err != nil {
		return 0, err
	}
	cutoff := s.now().Add(-olderThan)
	deleted := 0
	for _, info := range infos {
		if !info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(s.backupDir, info.Name())
		if err := s.storage.RemoveAll(path); err != nil {
			return deleted, fmt.Errorf("failed to delete backup: %w", err)
		}
		s.logger.Debug("backup pruned", "backup_path", path)
		deleted++
	}
	return deleted, nil
}

// discardStaging removes an unfinished backup and returns cause, joined with
// the cleanup error when the partial copy could not be removed.
func (s *Service) discardStaging(staging string, cause error) error {
	if err := s.storage.RemoveAll(staging); err != nil {
		s.logger.Warn("failed to remove partial backup",
			"backup_path", staging,
			"error", err)
		return errors.Join(cause, fmt.Errorf("failed to remove partial backup %s: %w", staging, err))
	}
	return cause
}

// BackupDir returns the backup directory path.
func (s *Service) BackupDir() string {
	return s.backupDir
}

func (s *Service) readDir() ([]os.FileInfo, error) {
	infos, err := s.storage.ReadDir(s.backupDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}
	return infos, nil
}

// Package swapper keeps one primary directory populated with exactly one of
// several named versions stored side by side in a versions directory.
//
// The layout on disk is the whole state: versions/<name>/ exists iff the
// version exists. The only in-memory state is which version the primary
// directory currently holds. A Swapper is not safe for concurrent use; hosts
// that share one between goroutines must serialize calls themselves.
package swapper

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/OpenGG/save-slot-switch/internal/sss/domain"
	"github.com/OpenGG/save-slot-switch/internal/sss/fstree"
)

const dirPerm = 0o755

// Swapper swaps whole version trees in and out of a primary directory.
type Swapper struct {
	fs          afero.Fs
	primaryDir  string
	versionsDir string
	active      string
	hasActive   bool
}

// Build prepares primaryDir and versionsDir and marks initialName active.
//
// When versionsDir/initialName is missing it is created empty; the current
// primary contents are parked into it by the first swap away from it. An
// existing directory of that name is reused untouched, so building again after
// a restart neither duplicates nor loses data.
func Build(fs afero.Fs, primaryDir, versionsDir, initialName string) (*Swapper, error) {
	if err := checkName(initialName); err != nil {
		return nil, err
	}
	s, err := Attach(fs, primaryDir, versionsDir)
	if err != nil {
		return nil, err
	}
	slot := s.slot(initialName)
	if err := fs.MkdirAll(slot, dirPerm); err != nil {
		return nil, domain.WrapIO("mkdir", slot, err)
	}
	s.setActive(initialName)
	return s, nil
}

// Attach prepares primaryDir and versionsDir without marking any version
// active. It restores a swapper whose primary contents are untracked.
func Attach(fs afero.Fs, primaryDir, versionsDir string) (*Swapper, error) {
	primaryDir = filepath.Clean(primaryDir)
	versionsDir = filepath.Clean(versionsDir)
	if Overlaps(primaryDir, versionsDir) {
		return nil, fmt.Errorf("%w: %s and %s", domain.ErrOverlappingDirs, primaryDir, versionsDir)
	}
	if err := fs.MkdirAll(primaryDir, dirPerm); err != nil {
		return nil, domain.WrapIO("mkdir", primaryDir, err)
	}
	if err := fs.MkdirAll(versionsDir, dirPerm); err != nil {
		return nil, domain.WrapIO("mkdir", versionsDir, err)
	}
	return &Swapper{fs: fs, primaryDir: primaryDir, versionsDir: versionsDir}, nil
}

// PrimaryDir returns the live directory path.
func (s *Swapper) PrimaryDir() string {
	return s.primaryDir
}

// VersionsDir returns the directory holding one subdirectory per version.
func (s *Swapper) VersionsDir() string {
	return s.versionsDir
}

// ActiveVersion returns the version currently held by the primary directory.
func (s *Swapper) ActiveVersion() (string, bool) {
	return s.active, s.hasActive
}

// VersionDir returns the stored directory of name when it exists.
func (s *Swapper) VersionDir(name string) (string, bool) {
	if checkName(name) != nil {
		return "", false
	}
	slot := s.slot(name)
	ok, err := afero.DirExists(s.fs, slot)
	if err != nil || !ok {
		return "", false
	}
	return slot, true
}

// Versions lists the stored version names in lexical order.
func (s *Swapper) Versions() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.versionsDir)
	if err != nil {
		return nil, domain.WrapIO("readdir", s.versionsDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// AddVersion creates an empty version. The active version is unchanged.
func (s *Swapper) AddVersion(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if _, ok := s.VersionDir(name); ok {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, name)
	}
	slot := s.slot(name)
	// A non-directory entry under the name still blocks the slot.
	if taken, err := fstree.Exists(s.fs, slot); err != nil {
		return err
	} else if taken {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, name)
	}
	if err := s.fs.Mkdir(slot, dirPerm); err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, name)
		}
		return domain.WrapIO("mkdir", slot, err)
	}
	return nil
}

// SetActive makes name the live version.
//
// The active version's slot is refreshed from the primary directory, then the
// primary directory is refilled from name's slot. The primary directory is
// rewritten in place and never replaced, so its path and identity stay stable
// for whatever program reads it.
//
// Both trees are scanned before anything is cleared. If a later step fails
// the active version is left unchanged; when the failure happens after the
// primary directory was cleared the error also wraps domain.ErrSwapIncomplete
// and the primary contents must be recovered by hand.
//
// Activating the version that is already active does nothing.
func (s *Swapper) SetActive(name string) error {
	newDir, ok := s.VersionDir(name)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, name)
	}
	if s.hasActive && s.active == name {
		return nil
	}

	if err := fstree.Scan(s.fs, s.primaryDir); err != nil {
		return err
	}
	if err := fstree.Scan(s.fs, newDir); err != nil {
		return err
	}

	if s.hasActive {
		if err := s.park(); err != nil {
			return err
		}
	}

	if err := fstree.ClearDir(s.fs, s.primaryDir); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSwapIncomplete, err)
	}
	if err := fstree.CopyTree(s.fs, newDir, s.primaryDir); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSwapIncomplete, err)
	}

	s.setActive(name)
	return nil
}

// Capture stores the current primary contents as name and marks it active.
// The slot is created when missing and overwritten otherwise. The primary
// directory itself is only read.
func (s *Swapper) Capture(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := fstree.Scan(s.fs, s.primaryDir); err != nil {
		return err
	}
	slot := s.slot(name)
	if err := fstree.ClearDir(s.fs, slot); err != nil {
		return err
	}
	if err := fstree.CopyTree(s.fs, s.primaryDir, slot); err != nil {
		return err
	}
	s.setActive(name)
	return nil
}

// DeleteVersion removes the stored copy of name. Deleting the active version
// leaves the primary contents in place but untracked.
func (s *Swapper) DeleteVersion(name string) error {
	slot, ok := s.VersionDir(name)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, name)
	}
	if err := s.fs.RemoveAll(slot); err != nil {
		return domain.WrapIO("remove", slot, err)
	}
	if s.hasActive && s.active == name {
		s.active, s.hasActive = "", false
	}
	return nil
}

// RenameVersion moves the stored copy of oldName to newName. The active
// version follows the rename.
func (s *Swapper) RenameVersion(oldName, newName string) error {
	from, ok := s.VersionDir(oldName)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, oldName)
	}
	if err := checkName(newName); err != nil {
		return err
	}
	if oldName == newName {
		return nil
	}
	if _, taken := s.VersionDir(newName); taken {
		return fmt.Errorf("%w: %s", domain.ErrAlreadyExists, newName)
	}
	to := s.slot(newName)
	if err := s.fs.Rename(from, to); err != nil {
		return domain.WrapIO("rename", from, err)
	}
	if s.hasActive && s.active == oldName {
		s.setActive(newName)
	}
	return nil
}

// park refreshes the active version's slot from the primary directory.
func (s *Swapper) park() error {
	oldDir := s.slot(s.active)
	if err := fstree.ClearDir(s.fs, oldDir); err != nil {
		return err
	}
	return fstree.CopyTree(s.fs, s.primaryDir, oldDir)
}

func (s *Swapper) setActive(name string) {
	s.active, s.hasActive = name, true
}

func (s *Swapper) slot(name string) string {
	return filepath.Join(s.versionsDir, name)
}

// checkName rejects names that would not map to a single child of the
// versions directory. Full validation lives in the validator package.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidName, name)
	}
	return nil
}

// Overlaps reports whether one of the cleaned paths a and b contains the
// other, or both name the same directory.
func Overlaps(a, b string) bool {
	return within(a, b) || within(b, a)
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

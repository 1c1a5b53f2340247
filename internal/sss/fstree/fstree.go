// Package fstree implements the whole-directory operations the swapper is built
// from: clearing a directory in place, copying the contents of one tree into
// another, and inspecting trees before they are touched.
//
// Symlinks and other irregular entries are never copied. Scan reports them as
// *UnsupportedEntryError so callers can refuse a tree before mutating anything;
// CopyTree fails with the same error if it meets one anyway. A symlinked root
// is followed, since the root is the caller's own path.
package fstree

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/OpenGG/save-slot-switch/internal/sss/domain"
)

const dirPerm = 0o755

// UnsupportedEntryError reports an entry that is neither a regular file nor a directory.
type UnsupportedEntryError struct {
	Path string
	Mode os.FileMode
}

func (e *UnsupportedEntryError) Error() string {
	if e.Mode&os.ModeSymlink != 0 {
		return fmt.Sprintf("refusing to copy symlink: %s", e.Path)
	}
	return fmt.Sprintf("refusing to copy irregular file (%s): %s", e.Mode.Type(), e.Path)
}

// Exists reports whether path exists.
func Exists(fs afero.Fs, path string) (bool, error) {
	ok, err := afero.Exists(fs, path)
	if err != nil {
		return false, domain.WrapIO("stat", path, err)
	}
	return ok, nil
}

// DirExists reports whether path exists and is a directory.
func DirExists(fs afero.Fs, path string) (bool, error) {
	ok, err := afero.DirExists(fs, path)
	if err != nil {
		return false, domain.WrapIO("stat", path, err)
	}
	return ok, nil
}

// ClearDir removes every entry below path and leaves path itself in place,
// creating it first when it is missing.
func ClearDir(fs afero.Fs, path string) error {
	if err := fs.MkdirAll(path, dirPerm); err != nil {
		return domain.WrapIO("mkdir", path, err)
	}
	entries, err := afero.ReadDir(fs, path)
	if err != nil {
		return domain.WrapIO("readdir", path, err)
	}
	for _, entry := range entries {
		child := filepath.Join(path, entry.Name())
		if err := fs.RemoveAll(child); err != nil {
			return domain.WrapIO("remove", child, err)
		}
	}
	return nil
}

// CopyTree copies the contents of src into dst. dst and any missing parents are
// created; the src directory node itself is not copied. Files keep their
// permission bits and modification times.
func CopyTree(fs afero.Fs, src, dst string) error {
	info, err := fs.Stat(src)
	if err != nil {
		return domain.WrapIO("stat", src, err)
	}
	if !info.IsDir() {
		return domain.WrapIO("copy", src, fmt.Errorf("not a directory"))
	}
	if err := fs.MkdirAll(dst, dirPerm); err != nil {
		return domain.WrapIO("mkdir", dst, err)
	}
	return copyDir(fs, src, dst)
}

func copyDir(fs afero.Fs, src, dst string) error {
	entries, err := afero.ReadDir(fs, src)
	if err != nil {
		return domain.WrapIO("readdir", src, err)
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())
		switch mode := entry.Mode(); {
		case mode.IsDir():
			if err := fs.MkdirAll(to, mode.Perm()|0o700); err != nil {
				return domain.WrapIO("mkdir", to, err)
			}
			if err := copyDir(fs, from, to); err != nil {
				return err
			}
		case mode.IsRegular():
			if err := copyFile(fs, from, to, entry); err != nil {
				return err
			}
		default:
			return &UnsupportedEntryError{Path: from, Mode: mode}
		}
	}
	return nil
}

func copyFile(fs afero.Fs, src, dst string, info os.FileInfo) (err error) {
	source, err := fs.Open(src)
	if err != nil {
		return domain.WrapIO("open", src, err)
	}
	defer source.Close()

	dest, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return domain.WrapIO("create", dst, err)
	}
	_, copyErr := io.Copy(dest, source)
	closeErr := dest.Close()
	if copyErr != nil {
		return domain.WrapIO("copy", dst, copyErr)
	}
	if closeErr != nil {
		return domain.WrapIO("close", dst, closeErr)
	}

	mtime := info.ModTime()
	if err := fs.Chtimes(dst, mtime, mtime); err != nil {
		return domain.WrapIO("chtimes", dst, err)
	}
	return nil
}

// Scan walks root and returns *UnsupportedEntryError for the first entry that
// CopyTree would refuse. A missing root is an error.
func Scan(fs afero.Fs, root string) error {
	return Walk(fs, root, func(rel string, info os.FileInfo) error {
		mode := info.Mode()
		if mode.IsDir() || mode.IsRegular() {
			return nil
		}
		return &UnsupportedEntryError{Path: filepath.Join(root, rel), Mode: mode}
	})
}

// WalkFunc is called for every entry below the walk root with its slash
// separated path relative to the root.
type WalkFunc func(rel string, info os.FileInfo) error

// Walk visits the entries below root in lexical pre-order. Entry information
// comes from Lstat where the filesystem supports it, so symlinks are reported
// rather than followed.
func Walk(fs afero.Fs, root string, fn WalkFunc) error {
	info, err := fs.Stat(root)
	if err != nil {
		return domain.WrapIO("stat", root, err)
	}
	if !info.IsDir() {
		return domain.WrapIO("walk", root, fmt.Errorf("not a directory"))
	}
	return walk(fs, root, "", fn)
}

func walk(fs afero.Fs, dir, rel string, fn WalkFunc) error {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return domain.WrapIO("readdir", dir, err)
	}
	for _, entry := range entries {
		childRel := entry.Name()
		if rel != "" {
			childRel = rel + "/" + entry.Name()
		}
		if err := fn(childRel, entry); err != nil {
			return err
		}
		if entry.IsDir() {
			if err := walk(fs, filepath.Join(dir, entry.Name()), childRel, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// List returns the sorted relative paths below root. Directories carry a
// trailing slash.
func List(fs afero.Fs, root string) ([]string, error) {
	var paths []string
	err := Walk(fs, root, func(rel string, info os.FileInfo) error {
		if info.IsDir() {
			rel += "/"
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

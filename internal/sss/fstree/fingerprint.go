package fstree

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"github.com/zeebo/xxh3"

	"github.com/OpenGG/save-slot-switch/internal/sss/domain"
)

// EmptyFingerprint is the fingerprint of a directory without entries.
const EmptyFingerprint = "empty"

// Fingerprint hashes the shape and file contents of the tree below root.
// Two trees with the same relative paths, entry kinds and file bytes produce
// the same fingerprint; timestamps and permissions are ignored.
func Fingerprint(fs afero.Fs, root string) (string, error) {
	h := xxh3.New()
	entries := 0
	var size [8]byte
	err := Walk(fs, root, func(rel string, info os.FileInfo) error {
		entries++
		mode := info.Mode()
		switch {
		case mode.IsDir():
			h.Write([]byte("d\x00" + rel + "\x00"))
		case mode.IsRegular():
			h.Write([]byte("f\x00" + rel + "\x00"))
			binary.LittleEndian.PutUint64(size[:], uint64(info.Size()))
			h.Write(size[:])
			if err := hashFile(fs, filepath.Join(root, filepath.FromSlash(rel)), h); err != nil {
				return err
			}
		default:
			return &UnsupportedEntryError{Path: filepath.Join(root, filepath.FromSlash(rel)), Mode: mode}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if entries == 0 {
		return EmptyFingerprint, nil
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

func hashFile(fs afero.Fs, path string, w io.Writer) error {
	f, err := fs.Open(path)
	if err != nil {
		return domain.WrapIO("open", path, err)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return domain.WrapIO("read", path, err)
	}
	return nil
}

// Manifest describes the tree below root one line per entry: the relative
// path for directories, and the relative path, size and content hash for
// files. Lines are sorted like List.
func Manifest(fs afero.Fs, root string) ([]string, error) {
	var lines []string
	err := Walk(fs, root, func(rel string, info os.FileInfo) error {
		mode := info.Mode()
		switch {
		case mode.IsDir():
			lines = append(lines, rel+"/")
		case mode.IsRegular():
			h := xxh3.New()
			if err := hashFile(fs, filepath.Join(root, filepath.FromSlash(rel)), h); err != nil {
				return err
			}
			lines = append(lines, fmt.Sprintf("%s  %d  %016x", rel, info.Size(), h.Sum64()))
		default:
			lines = append(lines, fmt.Sprintf("%s  (%s)", rel, mode.Type()))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(lines)
	return lines, nil
}

package sss

import (
	"fmt"
	"strings"
	"time"

	"github.com/OpenGG/save-slot-switch/internal/sss/fstree"
	"github.com/OpenGG/save-slot-switch/internal/sss/swapper"
)

// ListEntry represents a single version, or the untracked contents of the
// save directory, and its display state.
type ListEntry struct {
	Name         string
	Active       bool
	Modified     bool
	Missing      bool
	Untracked    bool
	Label        string
	CreatedAt    time.Time
	LastLoadedAt time.Time
}

// Display renders the entry the way `sss list` prints it.
func (e ListEntry) Display() string {
	if e.Untracked {
		return "* (Current contents are untracked)"
	}
	prefix := "  "
	var qualifiers []string
	switch {
	case e.Missing:
		prefix = "! "
		qualifiers = append(qualifiers, "active", "missing!")
	case e.Active:
		prefix = "* "
		qualifiers = append(qualifiers, "active")
		if e.Modified {
			qualifiers = append(qualifiers, "modified")
		}
	}
	line := fmt.Sprintf("%s[%s]", prefix, e.Name)
	if len(qualifiers) > 0 {
		line += " (" + strings.Join(qualifiers, ", ") + ")"
	}
	if e.Label != "" {
		line += " " + e.Label
	}
	return line
}

// ListVersions reports every version of id in name order. The active version
// is marked modified when the save directory no longer matches the copy taken
// when it was loaded or saved.
func (m *Manager) ListVersions(id string) ([]ListEntry, error) {
	var result []ListEntry
	err := m.registry.Do(id, func(sw *swapper.Swapper) error {
		names, err := sw.Versions()
		if err != nil {
			return err
		}
		active, tracked := sw.ActiveVersion()
		current, err := fstree.Fingerprint(m.fs, sw.PrimaryDir())
		if err != nil {
			return err
		}

		m.mu.Lock()
		meta := m.state.Games[id].Versions
		m.mu.Unlock()

		activeSeen := false
		for _, name := range names {
			entry := ListEntry{
				Name:         name,
				Label:        meta[name].Label,
				CreatedAt:    meta[name].CreatedAt,
				LastLoadedAt: meta[name].LastLoadedAt,
			}
			if tracked && name == active {
				activeSeen = true
				entry.Active = true
				dir, _ := sw.VersionDir(name)
				stored, err := fstree.Fingerprint(m.fs, dir)
				if err != nil {
					return err
				}
				entry.Modified = stored != current
			}
			result = append(result, entry)
		}

		if tracked && !activeSeen {
			result = append(result, ListEntry{Name: active, Active: true, Missing: true})
		} else if !tracked && current != fstree.EmptyFingerprint {
			result = append(result, ListEntry{Untracked: true})
		}
		return nil
	})
	return result, err
}

// Package state persists the game registry: which directory each game's saves
// live in, which version is active, and display metadata per version.
//
// The versions store on disk stays the source of truth for which versions
// exist; this file only adds what the directory layout cannot hold.
package state

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/OpenGG/save-slot-switch/internal/sss/storage"
)

// VersionMeta is display metadata for one stored version.
type VersionMeta struct {
	Label        string    `toml:"label,omitempty"`
	CreatedAt    time.Time `toml:"created_at,omitempty"`
	LastLoadedAt time.Time `toml:"last_loaded_at,omitempty"`
}

// Game is the persisted record of one tracked directory-set.
type Game struct {
	Title      string                 `toml:"title,omitempty"`
	PrimaryDir string                 `toml:"primary_dir"`
	Active     string                 `toml:"active,omitempty"`
	Versions   map[string]VersionMeta `toml:"versions,omitempty"`
}

// State is the content of state.toml.
type State struct {
	Games map[string]Game `toml:"games"`
}

// New returns an empty state.
func New() *State {
	return &State{Games: map[string]Game{}}
}

// Load reads the state file. A missing file yields an empty state.
func Load(st *storage.Storage, path string) (*State, error) {
	data, err := st.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	s := New()
	if _, err := toml.Decode(string(data), s); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", path, err)
	}
	if s.Games == nil {
		s.Games = map[string]Game{}
	}
	return s, nil
}

// Save writes the state file atomically.
func Save(st *storage.Storage, path string, s *State) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := st.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

// GameIDs returns the registered game ids in lexical order.
func (s *State) GameIDs() []string {
	ids := make([]string, 0, len(s.Games))
	for id := range s.Games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Touch records a metadata update for a version, creating its entry.
func (g *Game) Touch(name string, update func(*VersionMeta)) {
	if g.Versions == nil {
		g.Versions = map[string]VersionMeta{}
	}
	meta := g.Versions[name]
	update(&meta)
	g.Versions[name] = meta
}

// RenameVersion moves the metadata of oldName to newName.
func (g *Game) RenameVersion(oldName, newName string) {
	meta, ok := g.Versions[oldName]
	if !ok {
		return
	}
	delete(g.Versions, oldName)
	g.Versions[newName] = meta
}

// ForgetVersion drops the metadata of name.
func (g *Game) ForgetVersion(name string) {
	delete(g.Versions, name)
}

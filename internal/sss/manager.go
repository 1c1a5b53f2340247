package sss

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/afero"

	"github.com/OpenGG/save-slot-switch/internal/sss/backup"
	"github.com/OpenGG/save-slot-switch/internal/sss/config"
	"github.com/OpenGG/save-slot-switch/internal/sss/domain"
	"github.com/OpenGG/save-slot-switch/internal/sss/fstree"
	"github.com/OpenGG/save-slot-switch/internal/sss/paths"
	"github.com/OpenGG/save-slot-switch/internal/sss/state"
	"github.com/OpenGG/save-slot-switch/internal/sss/storage"
	"github.com/OpenGG/save-slot-switch/internal/sss/swapper"
	"github.com/OpenGG/save-slot-switch/internal/sss/validator"
)

// Manager ties the per-game swappers to the persisted registry, the backup
// store and the user's configuration.
type Manager struct {
	fs        afero.Fs
	storage   *storage.Storage
	paths     *paths.PathBuilder
	validator *validator.Validator
	logger    *slog.Logger
	now       func() time.Time

	mu       sync.Mutex
	config   config.Config
	state    *state.State
	registry *Registry
}

// GameInfo summarizes one registered game.
type GameInfo struct {
	ID         string
	Title      string
	PrimaryDir string
	Active     string
}

// NewManager creates a Manager rooted at dataDir. Call Init before use.
func NewManager(fs afero.Fs, dataDir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := &Manager{
		fs:        fs,
		storage:   storage.New(fs),
		paths:     paths.New(dataDir),
		validator: validator.New(),
		logger:    logger,
		now:       time.Now,
		config:    config.Default(),
		state:     state.New(),
	}
	m.registry = NewRegistry(m.openSwapper)
	return m
}

// Init creates the data directories and loads the config and state files.
func (m *Manager) Init() error {
	for _, dir := range []string{m.paths.DataDir(), m.paths.VersionsRoot(), m.paths.BackupsRoot()} {
		if err := m.storage.MkdirAll(dir); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	cfg, err := config.Load(m.storage, m.paths.ConfigPath())
	if err != nil {
		return err
	}
	st, err := state.Load(m.storage, m.paths.StatePath())
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg
	m.state = st
	return nil
}

// SetNow allows overriding the clock for testing.
func (m *Manager) SetNow(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	m.now = now
}

// DataDir returns the data directory.
func (m *Manager) DataDir() string {
	return m.paths.DataDir()
}

// FileSystem returns the underlying filesystem.
func (m *Manager) FileSystem() afero.Fs {
	return m.fs
}

// Config returns the loaded configuration.
func (m *Manager) Config() config.Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// ValidateName checks a version or game name.
func (m *Manager) ValidateName(name string) error {
	return m.validator.ValidateName(name)
}

// Games lists the registered games ordered by id.
func (m *Manager) Games() []GameInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.state.GameIDs()
	games := make([]GameInfo, 0, len(ids))
	for _, id := range ids {
		games = append(games, gameInfo(id, m.state.Games[id]))
	}
	return games
}

// Game returns one registered game.
func (m *Manager) Game(id string) (GameInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.state.Games[id]
	if !ok {
		return GameInfo{}, fmt.Errorf("%w: %s", domain.ErrGameNotFound, id)
	}
	return gameInfo(id, g), nil
}

// AddGame registers primaryDir under id. Whatever primaryDir holds now
// becomes version initialName; it is parked there on the first swap.
func (m *Manager) AddGame(id, title, primaryDir, initialName string) error {
	id, err := m.validator.NormalizeName(id)
	if err != nil {
		return fmt.Errorf("invalid game id: %w", err)
	}
	initialName, err = m.validator.NormalizeName(initialName)
	if err != nil {
		return err
	}
	if !filepath.IsAbs(primaryDir) {
		return fmt.Errorf("save directory must be an absolute path: %s", primaryDir)
	}

	return m.registry.Replace(id, func() (*swapper.Swapper, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, exists := m.state.Games[id]; exists {
			return nil, fmt.Errorf("%w: %s", domain.ErrGameExists, id)
		}
		if err := m.checkPrimaryDirLocked(id, primaryDir); err != nil {
			return nil, err
		}
		sw, err := swapper.Build(m.fs, primaryDir, m.paths.GameVersionsDir(id), initialName)
		if err != nil {
			return nil, err
		}
		now := m.now()
		g := state.Game{Title: strings.TrimSpace(title), PrimaryDir: sw.PrimaryDir(), Active: initialName}
		g.Touch(initialName, func(meta *state.VersionMeta) {
			if meta.CreatedAt.IsZero() {
				meta.CreatedAt = now
			}
		})
		m.state.Games[id] = g
		if err := m.saveStateLocked(); err != nil {
			delete(m.state.Games, id)
			return nil, err
		}
		m.logger.Info("game registered", "game", id, "primary_dir", sw.PrimaryDir(), "version", initialName)
		return sw, nil
	})
}

// RemoveGame unregisters id. The save directory is left untouched; stored
// versions and backups are deleted only when purge is set.
func (m *Manager) RemoveGame(id string, purge bool) error {
	return m.registry.Replace(id, func() (*swapper.Swapper, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		g, ok := m.state.Games[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrGameNotFound, id)
		}
		delete(m.state.Games, id)
		if err := m.saveStateLocked(); err != nil {
			m.state.Games[id] = g
			return nil, err
		}
		if purge {
			for _, dir := range []string{m.paths.GameVersionsDir(id), m.paths.GameBackupDir(id)} {
				if err := m.storage.RemoveAll(dir); err != nil {
					return nil, fmt.Errorf("failed to remove %s: %w", dir, err)
				}
			}
		}
		m.logger.Info("game removed", "game", id, "purged", purge)
		return nil, nil
	})
}

// SetPrimaryDir points id at a different save directory. Its contents are
// not known to match any stored version, so the game becomes untracked.
func (m *Manager) SetPrimaryDir(id, dir string) error {
	if !filepath.IsAbs(dir) {
		return fmt.Errorf("save directory must be an absolute path: %s", dir)
	}
	return m.registry.Replace(id, func() (*swapper.Swapper, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		g, ok := m.state.Games[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrGameNotFound, id)
		}
		if err := m.checkPrimaryDirLocked(id, dir); err != nil {
			return nil, err
		}
		prev := g
		g.PrimaryDir = filepath.Clean(dir)
		g.Active = ""
		m.state.Games[id] = g
		if err := m.saveStateLocked(); err != nil {
			m.state.Games[id] = prev
			return nil, err
		}
		m.logger.Info("save directory changed", "game", id, "primary_dir", g.PrimaryDir)
		return nil, nil
	})
}

// StoredVersions lists the version names of id.
func (m *Manager) StoredVersions(id string) ([]string, error) {
	var names []string
	err := m.registry.Do(id, func(sw *swapper.Swapper) error {
		var err error
		names, err = sw.Versions()
		return err
	})
	return names, err
}

// ActiveVersion returns the active version of id, or "" when untracked.
func (m *Manager) ActiveVersion(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Games[id].Active
}

// IsLoaded reports whether name is the active version of id.
func (m *Manager) IsLoaded(id, name string) bool {
	active := m.ActiveVersion(id)
	return active != "" && active == name
}

// NewVersion creates an empty version.
func (m *Manager) NewVersion(id, name string) error {
	name, err := m.validator.NormalizeName(name)
	if err != nil {
		return err
	}
	return m.registry.Do(id, func(sw *swapper.Swapper) error {
		if err := sw.AddVersion(name); err != nil {
			return err
		}
		now := m.now()
		m.logger.Info("version created", "game", id, "version", name)
		return m.commit(id, sw, func(g *state.Game) {
			g.Touch(name, func(meta *state.VersionMeta) { meta.CreatedAt = now })
		})
	})
}

// Use swaps name into the save directory of id.
//
// The live contents are backed up first when backups are enabled, and always
// when they are untracked, since the swap would otherwise discard them.
func (m *Manager) Use(id, name string) error {
	name, err := m.validator.NormalizeName(name)
	if err != nil {
		return err
	}
	return m.registry.Do(id, func(sw *swapper.Swapper) error {
		if _, ok := sw.VersionDir(name); !ok {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, name)
		}
		previous, tracked := sw.ActiveVersion()
		now := m.now()
		touch := func(g *state.Game) {
			g.Touch(name, func(meta *state.VersionMeta) { meta.LastLoadedAt = now })
		}
		if tracked && previous == name {
			m.logger.Debug("version already active", "game", id, "version", name)
			return m.commit(id, sw, touch)
		}

		backupID := ""
		if !tracked || m.Config().BackupBeforeSwap {
			backupID, err = m.backups(id).BackupTree(sw.PrimaryDir())
			if err != nil {
				return fmt.Errorf("backup before swap failed, nothing was changed: %w", err)
			}
		}

		if err := sw.SetActive(name); err != nil {
			if errors.Is(err, domain.ErrSwapIncomplete) {
				m.logger.Error("swap failed after the save directory was cleared",
					"game", id,
					"version", name,
					"primary_dir", sw.PrimaryDir(),
					"backup", backupID,
					"error", err)
			}
			return err
		}
		m.logger.Info("version activated", "game", id, "version", name, "previous", previous, "backup", backupID)
		return m.commit(id, sw, touch)
	})
}

// Save stores the current contents of the save directory as name and makes
// it the active version. An existing version of that name is overwritten,
// after being backed up when backups are enabled.
func (m *Manager) Save(id, name string) error {
	name, err := m.validator.NormalizeName(name)
	if err != nil {
		return err
	}
	return m.registry.Do(id, func(sw *swapper.Swapper) error {
		slot, existed := sw.VersionDir(name)
		if existed && m.Config().BackupBeforeSwap {
			if _, err := m.backups(id).BackupTree(slot); err != nil {
				return fmt.Errorf("backup of %s failed, nothing was changed: %w", name, err)
			}
		}
		if err := sw.Capture(name); err != nil {
			return err
		}
		now := m.now()
		m.logger.Info("version saved", "game", id, "version", name, "overwritten", existed)
		return m.commit(id, sw, func(g *state.Game) {
			g.Touch(name, func(meta *state.VersionMeta) {
				if !existed || meta.CreatedAt.IsZero() {
					meta.CreatedAt = now
				}
				meta.LastLoadedAt = now
			})
		})
	})
}

// Rename renames a stored version, keeping its metadata.
func (m *Manager) Rename(id, oldName, newName string) error {
	newName, err := m.validator.NormalizeName(newName)
	if err != nil {
		return err
	}
	return m.registry.Do(id, func(sw *swapper.Swapper) error {
		if err := sw.RenameVersion(oldName, newName); err != nil {
			return err
		}
		m.logger.Info("version renamed", "game", id, "from", oldName, "to", newName)
		return m.commit(id, sw, func(g *state.Game) {
			g.RenameVersion(oldName, newName)
		})
	})
}

// Delete removes a stored version. Deleting the active version leaves the
// save directory as it is, untracked.
func (m *Manager) Delete(id, name string) error {
	return m.registry.Do(id, func(sw *swapper.Swapper) error {
		if err := sw.DeleteVersion(name); err != nil {
			return err
		}
		m.logger.Info("version deleted", "game", id, "version", name)
		return m.commit(id, sw, func(g *state.Game) {
			g.ForgetVersion(name)
		})
	})
}

// SetLabel attaches a free-form description to a version.
func (m *Manager) SetLabel(id, name, label string) error {
	return m.registry.Do(id, func(sw *swapper.Swapper) error {
		if _, ok := sw.VersionDir(name); !ok {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, name)
		}
		return m.commit(id, sw, func(g *state.Game) {
			g.Touch(name, func(meta *state.VersionMeta) { meta.Label = strings.TrimSpace(label) })
		})
	})
}

// Diff returns a unified diff from the stored copy of name to the live save
// directory, one line per entry with sizes and content hashes for files.
// An empty string means the trees are identical.
func (m *Manager) Diff(id, name string) (string, error) {
	var out string
	err := m.registry.Do(id, func(sw *swapper.Swapper) error {
		dir, ok := sw.VersionDir(name)
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, name)
		}
		stored, err := fstree.Manifest(m.fs, dir)
		if err != nil {
			return err
		}
		live, err := fstree.Manifest(m.fs, sw.PrimaryDir())
		if err != nil {
			return err
		}
		out, err = difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        withNewlines(stored),
			B:        withNewlines(live),
			FromFile: name,
			ToFile:   "(save directory)",
			Context:  2,
		})
		return err
	})
	return out, err
}

// Backups lists the backups of id, newest first.
func (m *Manager) Backups(id string) ([]backup.Entry, error) {
	if _, err := m.Game(id); err != nil {
		return nil, err
	}
	return m.backups(id).List()
}

// PruneBackups removes backups of every game, registered or not, older than
// olderThan.
func (m *Manager) PruneBackups(olderThan time.Duration) (int, error) {
	dirs, err := m.storage.ReadDir(m.paths.BackupsRoot())
	if err != nil {
		return 0, fmt.Errorf("failed to read backups directory: %w", err)
	}
	total := 0
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		svc := m.backups(dir.Name())
		n, err := svc.PruneBackups(olderThan)
		total += n
		if err != nil {
			return total, err
		}
	}
	m.logger.Info("backups pruned", "count", total, "older_than", olderThan)
	return total, nil
}

// BackupDir returns the directory holding the backups of id.
func (m *Manager) BackupDir(id string) string {
	return m.paths.GameBackupDir(id)
}

func (m *Manager) backups(id string) *backup.Service {
	svc := backup.New(m.storage, m.paths.GameBackupDir(id), m.logger.With("game", id))
	svc.SetNow(m.now)
	return svc
}

func (m *Manager) openSwapper(id string) (*swapper.Swapper, error) {
	m.mu.Lock()
	g, ok := m.state.Games[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrGameNotFound, id)
	}
	versionsDir := m.paths.GameVersionsDir(id)
	if g.Active == "" {
		return swapper.Attach(m.fs, g.PrimaryDir, versionsDir)
	}
	return swapper.Build(m.fs, g.PrimaryDir, versionsDir, g.Active)
}

// commit applies update to the record of id, mirrors the swapper's active
// version into it and persists the state file.
func (m *Manager) commit(id string, sw *swapper.Swapper, update func(*state.Game)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.state.Games[id]
	update(&g)
	g.Active, _ = sw.ActiveVersion()
	m.state.Games[id] = g
	if err := m.saveStateLocked(); err != nil {
		return fmt.Errorf("files updated but state not saved: %w", err)
	}
	return nil
}

// checkPrimaryDirLocked rejects a save directory for id that overlaps the
// data directory or the save directory of another game. Swapping such a
// directory would rewrite stored versions, backups or another game's saves.
func (m *Manager) checkPrimaryDirLocked(id, dir string) error {
	dir = filepath.Clean(dir)
	if dataDir := m.paths.DataDir(); swapper.Overlaps(dir, dataDir) {
		return fmt.Errorf("%w: %s and the data directory %s", domain.ErrOverlappingDirs, dir, dataDir)
	}
	for _, other := range m.state.GameIDs() {
		if other == id {
			continue
		}
		if swapper.Overlaps(dir, m.state.Games[other].PrimaryDir) {
			return fmt.Errorf("%w: %s and the save directory of %s", domain.ErrOverlappingDirs, dir, other)
		}
	}
	return nil
}

func (m *Manager) saveStateLocked() error {
	return state.Save(m.storage, m.paths.StatePath(), m.state)
}

func gameInfo(id string, g state.Game) GameInfo {
	return GameInfo{ID: id, Title: g.Title, PrimaryDir: g.PrimaryDir, Active: g.Active}
}

func withNewlines(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = line + "\n"
	}
	return out
}

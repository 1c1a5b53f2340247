package paths

import (
	"path/filepath"
	"strings"
)

// Directory and file name constants below the data directory.
const (
	AppDirName     = "sss"
	ConfigFileName = "config.toml"
	StateFileName  = "state.toml"
	VersionsDir    = "versions"
	BackupsDir     = "backups"
)

// PathBuilder constructs the tool's paths relative to its data directory.
type PathBuilder struct {
	dataDir string
}

// New creates a new PathBuilder for the given data directory.
func New(dataDir string) *PathBuilder {
	return &PathBuilder{dataDir: filepath.Clean(dataDir)}
}

// DataDir returns the data directory path.
func (p *PathBuilder) DataDir() string {
	return p.dataDir
}

// ConfigPath returns the path to config.toml.
func (p *PathBuilder) ConfigPath() string {
	return filepath.Join(p.dataDir, ConfigFileName)
}

// StatePath returns the path to the persisted registry state.
func (p *PathBuilder) StatePath() string {
	return filepath.Join(p.dataDir, StateFileName)
}

// VersionsRoot returns the directory holding every game's versions store.
func (p *PathBuilder) VersionsRoot() string {
	return filepath.Join(p.dataDir, VersionsDir)
}

// GameVersionsDir returns the versions store of one game.
func (p *PathBuilder) GameVersionsDir(gameID string) string {
	return filepath.Join(p.VersionsRoot(), gameID)
}

// BackupsRoot returns the directory holding every game's backups.
func (p *PathBuilder) BackupsRoot() string {
	return filepath.Join(p.dataDir, BackupsDir)
}

// GameBackupDir returns the backup directory of one game.
func (p *PathBuilder) GameBackupDir(gameID string) string {
	return filepath.Join(p.BackupsRoot(), gameID)
}

// HomeEnv overrides the data directory when set.
const HomeEnv = "SSS_HOME"

// ResolveDataDir returns $SSS_HOME, made absolute, when set, otherwise
// <user config dir>/sss.
func ResolveDataDir(getenv func(string) string, userConfigDir func() (string, error)) (string, error) {
	if custom := strings.TrimSpace(getenv(HomeEnv)); custom != "" {
		return filepath.Abs(custom)
	}
	base, err := userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, AppDirName), nil
}

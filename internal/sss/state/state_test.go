package state

import (
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/OpenGG/save-slot-switch/internal/sss/storage"
)

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s, err := Load(storage.New(afero.NewMemMapFs()), "/data/state.toml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(s.Games) != 0 {
		t.Errorf("expected no games, got %v", s.Games)
	}
}

func TestSaveThenLoad(t *testing.T) {
	st := storage.New(afero.NewMemMapFs())
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	loaded := created.Add(time.Hour)

	s := New()
	g := Game{Title: "UNDERTALE", PrimaryDir: "/home/test/.config/UNDERTALE", Active: "Genocide"}
	g.Touch("Genocide", func(m *VersionMeta) { m.CreatedAt = created; m.LastLoadedAt = loaded })
	g.Touch("Pacifist", func(m *VersionMeta) { m.CreatedAt = created; m.Label = "true ending" })
	s.Games["undertale"] = g
	s.Games["msc"] = Game{PrimaryDir: "/saves/msc"}

	if err := Save(st, "/data/state.toml", s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(st, "/data/state.toml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if ids := got.GameIDs(); len(ids) != 2 || ids[0] != "msc" || ids[1] != "undertale" {
		t.Fatalf("unexpected ids %v", ids)
	}
	ut := got.Games["undertale"]
	if ut.Active != "Genocide" || ut.Title != "UNDERTALE" {
		t.Errorf("unexpected game %+v", ut)
	}
	if !ut.Versions["Genocide"].LastLoadedAt.Equal(loaded) {
		t.Errorf("last loaded lost: %+v", ut.Versions["Genocide"])
	}
	if ut.Versions["Pacifist"].Label != "true ending" {
		t.Errorf("label lost: %+v", ut.Versions["Pacifist"])
	}
	if got.Games["msc"].Active != "" {
		t.Errorf("expected untracked msc, got %q", got.Games["msc"].Active)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/state.toml", []byte("[games\n"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}
	if _, err := Load(storage.New(fs), "/state.toml"); err == nil {
		t.Error("expected parse error")
	}
}

func TestGameMetadataHelpers(t *testing.T) {
	var g Game
	g.Touch("a", func(m *VersionMeta) { m.Label = "first" })
	g.RenameVersion("a", "b")
	if _, ok := g.Versions["a"]; ok {
		t.Error("old name should be gone")
	}
	if g.Versions["b"].Label != "first" {
		t.Errorf("metadata not moved: %+v", g.Versions)
	}
	g.RenameVersion("missing", "c")
	if _, ok := g.Versions["c"]; ok {
		t.Error("renaming unknown metadata should not create entries")
	}
	g.ForgetVersion("b")
	if len(g.Versions) != 0 {
		t.Errorf("expected empty metadata, got %v", g.Versions)
	}
}

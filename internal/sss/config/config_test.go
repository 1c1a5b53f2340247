package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/OpenGG/save-slot-switch/internal/sss/storage"
)

func TestLoad_WritesDefaultsWhenMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	st := storage.New(fs)

	cfg, err := Load(st, "/data/config.toml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("expected defaults, got %+v", cfg)
	}

	data, err := afero.ReadFile(fs, "/data/config.toml")
	if err != nil {
		t.Fatalf("config file should have been written: %v", err)
	}
	if !strings.Contains(string(data), "backup_before_swap = true") {
		t.Errorf("unexpected config file:\n%s", data)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/data/config.toml", []byte("log_level = \"debug\"\n"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	cfg, err := Load(storage.New(fs), "/data/config.toml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.Level())
	}
	if !cfg.BackupBeforeSwap || cfg.BackupRetention != "30d" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad toml", "log_level = "},
		{"bad level", "log_level = \"loud\""},
		{"bad retention", "backup_retention = \"forever\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if err := afero.WriteFile(fs, "/c.toml", []byte(tt.content), 0o600); err != nil {
				t.Fatalf("setup: %v", err)
			}
			if _, err := Load(storage.New(fs), "/c.toml"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSaveThenLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	st := storage.New(fs)
	want := Config{LogLevel: "error", BackupBeforeSwap: false, BackupRetention: "7d"}

	if err := Save(st, "/c.toml", want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(st, "/c.toml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
	retention, err := got.Retention()
	if err != nil || retention != 7*24*time.Hour {
		t.Errorf("Retention() = %v, %v", retention, err)
	}
}

func TestParseRetentionInterval(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{"12h", 12 * time.Hour, false},
		{"1d12h", 36 * time.Hour, false},
		{"90M", 90 * time.Minute, false},
		{" 45s ", 45 * time.Second, false},
		{"", 0, true},
		{"5x", 0, true},
		{"10", 0, true},
		{"d", 0, true},
		{"-1d", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRetentionInterval(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

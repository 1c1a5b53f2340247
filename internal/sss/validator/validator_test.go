package validator

// Version names become directory names under the versions store. These tests
// keep names from escaping that directory or breaking on Windows volumes.

import (
	"errors"
	"testing"

	"github.com/OpenGG/save-slot-switch/internal/sss/domain"
)

func TestValidateName_ValidNames(t *testing.T) {
	v := New()

	validNames := []string{
		"Default",
		"before-boss",
		"run_2",
		"v1.2.3",
		"Day 14 (house)",
		"test-~",
		"with.multiple.dots",
		"console",
		"COM10",
		"sauvegarde-été",
		"Sauvé",
		"セーブ",
	}

	for _, name := range validNames {
		t.Run(name, func(t *testing.T) {
			if err := v.ValidateName(name); err != nil {
				t.Errorf("expected %q to be valid, got %v", name, err)
			}
		})
	}
}

func TestValidateName_InvalidNames(t *testing.T) {
	v := New()

	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty string", "", domain.ErrVersionNameEmpty},
		{"only spaces", "   ", domain.ErrVersionNameEmpty},
		{"only whitespace", " \t\n ", domain.ErrVersionNameEmpty},
		{"single dot", ".", domain.ErrVersionNameDot},
		{"double dot with spaces", " .. ", domain.ErrVersionNameDot},
		{"null at start", "\x00save", domain.ErrVersionNameNullByte},
		{"null in middle", "sa\x00ve", domain.ErrVersionNameNullByte},
		{"control char", "save\x01", domain.ErrVersionNameNonPrintable},
		{"delete char", "save\x7f", domain.ErrVersionNameNonPrintable},
		{"invalid utf-8", "save\xff", domain.ErrVersionNameNonPrintable},
		{"c1 control", "save\u0085", domain.ErrVersionNameNonPrintable},
		{"zero width space", "save\u200b", domain.ErrVersionNameNonPrintable},
		{"forward slash", "a/b", domain.ErrVersionNameInvalidChars},
		{"backslash", `a\b`, domain.ErrVersionNameInvalidChars},
		{"traversal", "../x", domain.ErrVersionNameInvalidChars},
		{"colon", "c:save", domain.ErrVersionNameInvalidChars},
		{"wildcard", "save*", domain.ErrVersionNameInvalidChars},
		{"pipe", "a|b", domain.ErrVersionNameInvalidChars},
		{"reserved con", "CON", domain.ErrVersionNameReserved},
		{"reserved lowercase", "nul", domain.ErrVersionNameReserved},
		{"reserved with extension", "aux.txt", domain.ErrVersionNameReserved},
		{"reserved lpt", "lpt9", domain.ErrVersionNameReserved},
		{"trailing dot", "save.", domain.ErrVersionNameTrailing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateName(tt.input)
			if !errors.Is(err, tt.want) {
				t.Errorf("ValidateName(%q) = %v, want %v", tt.input, err, tt.want)
			}
		})
	}
}

func TestNormalizeName(t *testing.T) {
	v := New()

	got, err := v.NormalizeName("  before-boss \t")
	if err != nil {
		t.Fatalf("NormalizeName: %v", err)
	}
	if got != "before-boss" {
		t.Errorf("expected trimmed name, got %q", got)
	}

	if _, err := v.NormalizeName("a/b"); !errors.Is(err, domain.ErrVersionNameInvalidChars) {
		t.Errorf("expected invalid chars error, got %v", err)
	}
}

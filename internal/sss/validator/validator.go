package validator

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/OpenGG/save-slot-switch/internal/sss/domain"
)

var (
	reservedNamePattern = regexp.MustCompile(`^(?i)(con|prn|aux|nul|com[1-9]|lpt[1-9])(\..*)?$`)
	invalidCharsPattern = regexp.MustCompile(`[<>:"/\\|?*]`)
)

// Validator checks that version and game names are usable as a single
// directory name on every platform the saves may be moved to.
type Validator struct{}

// New creates a new Validator instance.
func New() *Validator {
	return &Validator{}
}

// ValidateName validates a name for use as a directory in the versions store.
//
// The function checks for:
//   - Empty names or whitespace-only names
//   - Dot navigation (. or ..)
//   - Null bytes
//   - Invalid UTF-8 and non-printable or control characters
//   - Invalid filesystem characters (<>:"/\|?*)
//   - Reserved Windows device names, with or without an extension
//   - A trailing dot or space, which Windows silently strips from directory names
func (v *Validator) ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) == 0 {
		return domain.ErrVersionNameEmpty
	}
	if trimmed == "." || trimmed == ".." {
		return domain.ErrVersionNameDot
	}
	if strings.ContainsRune(trimmed, 0) {
		return domain.ErrVersionNameNullByte
	}
	if !utf8.ValidString(trimmed) {
		return domain.ErrVersionNameNonPrintable
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) || !unicode.IsPrint(r) {
			return domain.ErrVersionNameNonPrintable
		}
	}
	if invalidCharsPattern.MatchString(trimmed) {
		return domain.ErrVersionNameInvalidChars
	}
	if reservedNamePattern.MatchString(trimmed) {
		return domain.ErrVersionNameReserved
	}
	if strings.HasSuffix(trimmed, ".") {
		return domain.ErrVersionNameTrailing
	}
	return nil
}

// NormalizeName trims whitespace and validates the name.
func (v *Validator) NormalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if err := v.ValidateName(trimmed); err != nil {
		return "", err
	}
	return trimmed, nil
}

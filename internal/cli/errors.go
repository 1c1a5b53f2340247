package cli

import "errors"

var (
	// ErrPromptCancelled indicates that the user aborted an interactive prompt.
	ErrPromptCancelled = errors.New("prompt cancelled")
	// ErrNotInteractive is wrapped by errors for input that would have been
	// prompted for on a terminal.
	ErrNotInteractive = errors.New("stdin is not a terminal")
)

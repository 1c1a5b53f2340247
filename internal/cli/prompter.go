package cli

// Prompter asks the user for missing input. PromptUI is the terminal
// implementation; tests substitute a stub.
type Prompter interface {
	Select(label string, items []string, defaultValue string) (int, string, error)
	Prompt(label string) (string, error)
	Confirm(label string, defaultYes bool) (bool, error)
}

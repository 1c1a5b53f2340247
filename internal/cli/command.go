package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/OpenGG/save-slot-switch/internal/sss"
	"github.com/OpenGG/save-slot-switch/internal/sss/config"
	"github.com/OpenGG/save-slot-switch/internal/sss/domain"
)

// session carries what every command needs: the manager, the prompter used
// to ask for missing arguments, and the --game flag.
//
// A nil prompter means stdin is not a terminal; commands then fail with an
// error naming the missing argument instead of asking for it.
type session struct {
	mgr      *sss.Manager
	prompter Prompter
	game     string
}

// NewRootCommand constructs the root Cobra command for sss.
func NewRootCommand(mgr *sss.Manager, prompter Prompter, stdout, stderr io.Writer) *cobra.Command {
	s := &session{mgr: mgr, prompter: prompter}

	cmd := &cobra.Command{
		Use:   "sss",
		Short: "Save Slot Switcher",
		Long: "sss keeps several versions of a game's save directory and swaps them in place.\n" +
			"The save directory itself is never moved or replaced; only its contents change.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.PersistentFlags().StringVarP(&s.game, "game", "g", "", "Game id (may be omitted when only one game is registered)")

	cmd.AddCommand(newGamesCommand(s, stdout))
	cmd.AddCommand(newListCommand(s, stdout))
	cmd.AddCommand(newUseCommand(s, stdout))
	cmd.AddCommand(newNewCommand(s, stdout))
	cmd.AddCommand(newSaveCommand(s))
	cmd.AddCommand(newRenameCommand(s, stdout))
	cmd.AddCommand(newDeleteCommand(s, stdout))
	cmd.AddCommand(newLabelCommand(s, stdout))
	cmd.AddCommand(newDiffCommand(s, stdout))
	cmd.AddCommand(newBackupsCommand(s, stdout))
	cmd.AddCommand(newPruneCommand(s, stdout))

	return cmd
}

func (s *session) interactive() bool {
	return s.prompter != nil
}

// resolveGame returns the game the command applies to: the --game flag, the
// only registered game, or the user's pick.
func (s *session) resolveGame() (string, error) {
	if s.game != "" {
		if _, err := s.mgr.Game(s.game); err != nil {
			return "", err
		}
		return s.game, nil
	}
	games := s.mgr.Games()
	switch len(games) {
	case 0:
		return "", errors.New("no games registered. Add one with 'sss games add <id> <save-dir>'")
	case 1:
		return games[0].ID, nil
	}
	if !s.interactive() {
		return "", fmt.Errorf("several games are registered, pass --game: %w", ErrNotInteractive)
	}
	ids := make([]string, len(games))
	for i, g := range games {
		ids[i] = g.ID
	}
	_, selected, err := s.prompter.Select("Select game", ids, "")
	if err != nil {
		return "", err
	}
	return selected, nil
}

// pickVersion returns args[0] when given, otherwise lets the user choose
// among the stored versions of game.
func (s *session) pickVersion(game string, args []string, label string) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(args[0]), nil
	}
	if !s.interactive() {
		return "", fmt.Errorf("missing version name argument: %w", ErrNotInteractive)
	}
	names, err := s.mgr.StoredVersions(game)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no stored versions for %s. Use 'sss save' first", game)
	}
	active := s.mgr.ActiveVersion(game)
	names = reorderWithDefault(names, active)
	_, selected, err := s.prompter.Select(label, names, active)
	if err != nil {
		return "", err
	}
	return selected, nil
}

// promptNewName asks for a name until it is valid and not already taken.
func (s *session) promptNewName(cmd *cobra.Command, game, label string) (string, error) {
	existing, err := s.mgr.StoredVersions(game)
	if err != nil {
		return "", err
	}
	for {
		name, err := s.prompter.Prompt(label)
		if err != nil {
			return "", err
		}
		name = strings.TrimSpace(name)
		if vErr := s.mgr.ValidateName(name); vErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", vErr.Error())
			continue
		}
		if contains(existing, name) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: Version '%s' already exists.\n", name)
			continue
		}
		return name, nil
	}
}

// confirm asks the user and reports whether to go ahead. Without a terminal
// it refuses, so destructive commands need --force in scripts.
func (s *session) confirm(label string) (bool, error) {
	if !s.interactive() {
		return false, fmt.Errorf("confirmation required, pass --force: %w", ErrNotInteractive)
	}
	return s.prompter.Confirm(label, false)
}

type listItem struct {
	Name         string    `yaml:"name,omitempty"`
	Active       bool      `yaml:"active,omitempty"`
	Modified     bool      `yaml:"modified,omitempty"`
	Missing      bool      `yaml:"missing,omitempty"`
	Untracked    bool      `yaml:"untracked,omitempty"`
	Label        string    `yaml:"label,omitempty"`
	CreatedAt    time.Time `yaml:"created_at,omitempty"`
	LastLoadedAt time.Time `yaml:"last_loaded_at,omitempty"`
}

type listDocument struct {
	Game     string     `yaml:"game"`
	Versions []listItem `yaml:"versions"`
}

func newListCommand(s *session, stdout io.Writer) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			game, err := s.resolveGame()
			if err != nil {
				return err
			}
			entries, err := s.mgr.ListVersions(game)
			if err != nil {
				return err
			}

			switch output {
			case "text", "":
				for _, entry := range entries {
					fmt.Fprintln(stdout, entry.Display())
				}
				if len(entries) == 0 {
					fmt.Fprintln(stdout, "No saved versions found.")
				}
				return nil
			case "yaml":
				doc := listDocument{Game: game, Versions: make([]listItem, 0, len(entries))}
				for _, e := range entries {
					doc.Versions = append(doc.Versions, listItem{
						Name:         e.Name,
						Active:       e.Active,
						Modified:     e.Modified,
						Missing:      e.Missing,
						Untracked:    e.Untracked,
						Label:        e.Label,
						CreatedAt:    e.CreatedAt,
						LastLoadedAt: e.LastLoadedAt,
					})
				}
				enc := yaml.NewEncoder(stdout)
				enc.SetIndent(2)
				if err := enc.Encode(doc); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("unsupported output format %q (want text or yaml)", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format: text or yaml")
	return cmd
}

func newUseCommand(s *session, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "use [name]",
		Short: "Swap a stored version into the save directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			game, err := s.resolveGame()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				// Early validation of command-line argument
				if err := s.mgr.ValidateName(args[0]); err != nil {
					return fmt.Errorf("invalid version name: %w", err)
				}
			}
			name, err := s.pickVersion(game, args, "Select version to activate")
			if err != nil {
				return err
			}
			if err := s.mgr.Use(game, name); err != nil {
				if errors.Is(err, domain.ErrSwapIncomplete) {
					fmt.Fprintf(cmd.ErrOrStderr(), "The save directory may be incomplete. Backups are kept in %s\n",
						s.mgr.BackupDir(game))
				}
				return err
			}
			fmt.Fprintf(stdout, "Successfully switched %s to version: %s\n", game, name)
			return nil
		},
	}
}

func newNewCommand(s *session, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "new [name]",
		Short: "Create an empty version",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			game, err := s.resolveGame()
			if err != nil {
				return err
			}
			var name string
			switch {
			case len(args) > 0:
				name = args[0]
			case s.interactive():
				if name, err = s.promptNewName(cmd, game, "Enter a name for the new version"); err != nil {
					return err
				}
			default:
				return fmt.Errorf("missing version name argument: %w", ErrNotInteractive)
			}
			if err := s.mgr.NewVersion(game, name); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Created empty version: %s\n", strings.TrimSpace(name))
			return nil
		},
	}
}

const newVersionLabel = "[New Version]"

func newSaveCommand(s *session) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "save [name]",
		Short: "Store the current save directory as a version and activate it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			game, err := s.resolveGame()
			if err != nil {
				return err
			}
			names, err := s.mgr.StoredVersions(game)
			if err != nil {
				return err
			}

			var target string
			if len(args) > 0 {
				target = strings.TrimSpace(args[0])
				if err := s.mgr.ValidateName(target); err != nil {
					return fmt.Errorf("invalid version name: %w", err)
				}
			} else {
				if !s.interactive() {
					return fmt.Errorf("missing version name argument: %w", ErrNotInteractive)
				}
				defaultValue := s.mgr.ActiveVersion(game)
				if defaultValue == "" {
					defaultValue = newVersionLabel
				}
				names = reorderWithDefault(names, defaultValue)
				items := append([]string{newVersionLabel}, names...)
				_, selection, err := s.prompter.Select("Select destination to save current contents", items, defaultValue)
				if err != nil {
					return err
				}
				target = selection
				if selection == newVersionLabel {
					if target, err = s.promptNewName(cmd, game, "Enter a name for the new version"); err != nil {
						return err
					}
				}
			}

			// Overwriting the version that is already active only refreshes
			// its stored copy, so it needs no confirmation.
			if contains(names, target) && !force && !s.mgr.IsLoaded(game, target) {
				ok, err := s.confirm(fmt.Sprintf("Overwrite %s?", target))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted saving version.")
					return nil
				}
			}

			if err := s.mgr.Save(game, target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Successfully saved and activated version: %s\n", target)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing version without asking")
	return cmd
}

func newRenameCommand(s *session, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a stored version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			game, err := s.resolveGame()
			if err != nil {
				return err
			}
			if err := s.mgr.Rename(game, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Renamed %s to %s\n", args[0], strings.TrimSpace(args[1]))
			return nil
		},
	}
}

func newDeleteCommand(s *session, stdout io.Writer) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a stored version",
		Long: "Delete a stored version. Deleting the active version keeps the save\n" +
			"directory as it is, but its contents are no longer tracked.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			game, err := s.resolveGame()
			if err != nil {
				return err
			}
			name, err := s.pickVersion(game, args, "Select version to delete")
			if err != nil {
				return err
			}
			if !force {
				ok, err := s.confirm(fmt.Sprintf("Delete %s?", name))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(stdout, "Delete cancelled.")
					return nil
				}
			}
			if err := s.mgr.Delete(game, name); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Deleted version: %s\n", name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Do not prompt for confirmation")
	return cmd
}

func newLabelCommand(s *session, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "label <name> [text]",
		Short: "Describe a stored version; omit text to clear it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			game, err := s.resolveGame()
			if err != nil {
				return err
			}
			text := ""
			if len(args) > 1 {
				text = args[1]
			}
			if err := s.mgr.SetLabel(game, args[0], text); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Updated label of %s\n", args[0])
			return nil
		},
	}
}

func newDiffCommand(s *session, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "diff [name]",
		Short: "Compare a stored version with the save directory (defaults to the active version)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			game, err := s.resolveGame()
			if err != nil {
				return err
			}
			name := s.mgr.ActiveVersion(game)
			if len(args) > 0 {
				name = args[0]
			}
			if name == "" {
				return errors.New("no active version; name the version to compare")
			}
			out, err := s.mgr.Diff(game, name)
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Fprintf(stdout, "No differences between %s and the save directory.\n", name)
				return nil
			}
			fmt.Fprint(stdout, out)
			return nil
		},
	}
}

func newBackupsCommand(s *session, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List backups taken before swaps, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			game, err := s.resolveGame()
			if err != nil {
				return err
			}
			entries, err := s.mgr.Backups(game)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(stdout, "No backups found.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(stdout, "%s  %s  %s\n", e.ModTime.Format(time.DateTime), e.ID, e.Path)
			}
			return nil
		},
	}
}

func newPruneCommand(s *session, stdout io.Writer) *cobra.Command {
	var olderThanStr string
	var force bool

	cmd := &cobra.Command{
		Use:   "prune-backups",
		Short: "Remove outdated backups of every game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var duration time.Duration
			var err error

			switch {
			case olderThanStr != "":
				duration, err = config.ParseRetentionInterval(olderThanStr)
				if err != nil {
					return err
				}
			case s.interactive():
				retention := s.mgr.Config().BackupRetention
				options := reorderWithDefault([]string{"30d", "90d", "180d"}, retention)
				if !contains(options, retention) {
					options = append([]string{retention}, options...)
				}
				options = append(options, "Cancel")
				_, choice, err := s.prompter.Select("Prune backups older than", options, retention)
				if err != nil {
					return err
				}
				if choice == "Cancel" {
					fmt.Fprintln(stdout, "Prune cancelled.")
					return nil
				}
				duration, err = config.ParseRetentionInterval(choice)
				if err != nil {
					return err
				}
			default:
				duration, err = s.mgr.Config().Retention()
				if err != nil {
					return err
				}
			}

			if !force {
				ok, err := s.confirm(fmt.Sprintf("Delete backups older than %s?", duration))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(stdout, "Prune cancelled.")
					return nil
				}
			}

			count, err := s.mgr.PruneBackups(duration)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Deleted %d backup(s).\n", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&olderThanStr, "older-than", "", "Delete backups older than the specified duration (default: backup_retention from config.toml)")
	cmd.Flags().BoolVar(&force, "force", false, "Do not prompt for confirmation")

	return cmd
}

// reorderWithDefault moves the default value to the front of the list.
// If defaultValue is empty or not found, or already first, returns items unchanged.
func reorderWithDefault(items []string, defaultValue string) []string {
	if defaultValue == "" {
		return items
	}

	idx := -1
	for i, item := range items {
		if item == defaultValue {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return items
	}

	reordered := make([]string, 0, len(items))
	reordered = append(reordered, defaultValue)
	reordered = append(reordered, items[:idx]...)
	reordered = append(reordered, items[idx+1:]...)
	return reordered
}

func contains(list []string, target string) bool {
	for _, item := range list {
		if item == target {
			return true
		}
	}
	return false
}

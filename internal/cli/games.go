package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
)

const defaultInitialVersion = "default"

func newGamesCommand(s *session, stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "games",
		Short: "Manage registered games",
	}
	cmd.AddCommand(newGamesListCommand(s, stdout))
	cmd.AddCommand(newGamesAddCommand(s, stdout))
	cmd.AddCommand(newGamesRemoveCommand(s, stdout))
	cmd.AddCommand(newGamesSetPathCommand(s, stdout))
	return cmd
}

func newGamesListCommand(s *session, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			games := s.mgr.Games()
			if len(games) == 0 {
				fmt.Fprintln(stdout, "No games registered.")
				return nil
			}
			for _, g := range games {
				title := ""
				if g.Title != "" {
					title = " (" + g.Title + ")"
				}
				active := "untracked"
				if g.Active != "" {
					active = "[" + g.Active + "]"
				}
				fmt.Fprintf(stdout, "%s%s %s %s\n", g.ID, title, active, g.PrimaryDir)
			}
			return nil
		},
	}
}

func newGamesAddCommand(s *session, stdout io.Writer) *cobra.Command {
	var title, initial string

	cmd := &cobra.Command{
		Use:   "add <id> <save-dir>",
		Short: "Register a save directory",
		Long: "Register a save directory under a short id. Its current contents become\n" +
			"the first version, named by --name.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[1])
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", args[1], err)
			}
			if err := s.mgr.AddGame(args[0], title, dir, initial); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Registered %s at %s with version %s\n", args[0], dir, initial)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Display title")
	cmd.Flags().StringVar(&initial, "name", defaultInitialVersion, "Name of the version holding the current contents")
	return cmd
}

func newGamesRemoveCommand(s *session, stdout io.Writer) *cobra.Command {
	var purge, force bool

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Unregister a game; the save directory is left untouched",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if purge && !force {
				ok, err := s.confirm(fmt.Sprintf("Delete all stored versions and backups of %s?", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(stdout, "Remove cancelled.")
					return nil
				}
			}
			if err := s.mgr.RemoveGame(id, purge); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Removed %s\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "Also delete stored versions and backups")
	cmd.Flags().BoolVar(&force, "force", false, "Do not prompt for confirmation")
	return cmd
}

func newGamesSetPathCommand(s *session, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "set-path <id> <save-dir>",
		Short: "Point a game at a different save directory",
		Long: "Point a game at a different save directory. Its contents are not assumed to\n" +
			"match any stored version, so the game becomes untracked until the next use or save.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[1])
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", args[1], err)
			}
			if err := s.mgr.SetPrimaryDir(args[0], dir); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Save directory of %s is now %s\n", args[0], dir)
			return nil
		},
	}
}

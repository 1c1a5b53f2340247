package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/OpenGG/save-slot-switch/internal/cli"
	"github.com/OpenGG/save-slot-switch/internal/sss"
	"github.com/OpenGG/save-slot-switch/internal/sss/config"
	"github.com/OpenGG/save-slot-switch/internal/sss/paths"
)

var exitFunc = os.Exit

func main() {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	exitFunc(run(os.Args[1:], interactive, os.Stdout, os.Stderr, os.Getenv))
}

// run executes one sss invocation and returns the process exit code.
// Prompts are only shown when interactive is set.
func run(args []string, interactive bool, stdout, stderr io.Writer, getenv func(string) string) int {
	dataDir, err := paths.ResolveDataDir(getenv, os.UserConfigDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to resolve data directory: %v\n", err)
		return 1
	}

	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	mgr := sss.NewManager(afero.NewOsFs(), dataDir, logger)
	if err := mgr.Init(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	level.Set(mgr.Config().Level())

	var prompter cli.Prompter
	if interactive {
		prompter = cli.NewPromptUI()
	}

	root := cli.NewRootCommand(mgr, prompter, stdout, stderr)
	var logLevel string
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config.toml)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if logLevel == "" {
			return nil
		}
		lvl, err := config.ParseLogLevel(logLevel)
		if err != nil {
			return err
		}
		level.Set(lvl)
		return nil
	}
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

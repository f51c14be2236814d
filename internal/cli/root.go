// Package cli wires the todo command line: cobra subcommands over the
// state store, plus the interactive list.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/idilsaglam/tada/internal/config"
	"github.com/idilsaglam/tada/internal/logging"
	"github.com/idilsaglam/tada/internal/tui"
	"github.com/idilsaglam/tada/internal/ui"
)

// Exit codes returned by Run.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Streams are the process's standard streams.
type Streams struct {
	In       io.Reader
	Out, Err io.Writer
}

// runTUI starts the interactive list. Replaced in tests.
var runTUI = tui.Run

// app carries what every subcommand needs once the config is loaded.
type app struct {
	streams    Streams
	configPath string

	cfg config.Config
	dir string // holds config, credentials and the default log
	log *logrus.Logger
}

// usageError marks a failure caused by how the command was invoked.
type usageError struct {
	msg  string
	hint string
}

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// Run executes args against the real standard streams.
func Run(ctx context.Context, args []string) int {
	return Execute(ctx, args, Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
}

// Execute runs args and maps the outcome to an exit code: 0 ok, 1 runtime
// failure, 2 usage error.
func Execute(ctx context.Context, args []string, streams Streams) int {
	a := &app{streams: streams}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(streams.In)
	root.SetOut(streams.Out)
	root.SetErr(streams.Err)

	err := root.ExecuteContext(ctx)
	if a.log != nil && err != nil {
		a.log.WithError(err).WithField("args", strings.Join(args, " ")).Warn("command failed")
	}
	return a.report(err)
}

func (a *app) report(err error) int {
	if err == nil {
		return ExitOK
	}
	ui.Fail(a.streams.Err, err.Error())

	var ue *usageError
	switch {
	case errors.As(err, &ue):
		if ue.hint != "" {
			fmt.Fprintln(a.streams.Err, ui.Current().Muted.Render(ue.hint))
		}
		return ExitUsage
	case strings.HasPrefix(err.Error(), "unknown command"):
		fmt.Fprintln(a.streams.Err, ui.Current().Muted.Render("Run `todo --help` for usage."))
		return ExitUsage
	}
	return ExitError
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "todo",
		Short: "A to-do list kept in sync with a remote todos API",
		Long: `todo keeps a local copy of your to-do list in sync with a remote todos API.

Run "todo ls" for the interactive list, or use the subcommands in scripts.`,
		Example: `  todo add "Buy milk"
  todo ls
  todo ls --plain --group
  todo done 2
  todo rename 2 Buy oat milk
  todo rm 3`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.HasParent() || cmd.Name() == "help" {
				return nil
			}
			return a.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return err
			}
			return &usageError{msg: "missing subcommand"}
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error(), hint: "Run `todo --help` for usage."}
	})
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.tada/config.yaml)")

	root.AddCommand(
		a.lsCmd(),
		a.addCmd(),
		a.doneCmd(),
		a.renameCmd(),
		a.rmCmd(),
		a.toggleAllCmd(),
		a.clearCmd(),
		a.authCmd(),
	)
	return root
}

// setup loads the config, applies the theme and opens the log.
func (a *app) setup() error {
	path := a.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.dir = filepath.Dir(path)
	ui.SetTheme(cfg.Theme)
	a.log = logging.New(cfg.Log, nil)
	a.log.WithFields(logrus.Fields{
		"backend": cfg.Backend,
		"user_id": cfg.UserID,
	}).Debug("config loaded")
	return nil
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return usageErrorf("usage: todo %s", usage)
		}
		return nil
	}
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < n {
			return usageErrorf("usage: todo %s", usage)
		}
		return nil
	}
}

func maxArgs(n int, usage string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) > n {
			return usageErrorf("usage: todo %s", usage)
		}
		return nil
	}
}

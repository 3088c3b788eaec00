// Package cli implements the roster command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/roster/internal/logging"
	"github.com/mesh-intelligence/roster/internal/paths"
	"github.com/mesh-intelligence/roster/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Version is the roster release.
const Version = "0.3.0"

// rootFlags holds the global flag values.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app carries the state shared by the subcommands of one invocation.
type app struct {
	flags    rootFlags
	settings settings
	dataDir  string
	logger   *zap.Logger
}

// NewRootCmd creates the "roster" command with its global flags and every
// subcommand registered.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "roster",
		Short: "Manage members, groups and their memberships",
		Long: "Roster keeps a set of members and groups and the many-to-many\n" +
			"membership relation between them, on SQLite or PostgreSQL.",
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.roster-db)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return userError(err)
	})

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newServeCmd(a),
		newMemberCmd(a),
		newGroupCmd(a),
		newMembershipCmd(a),
	)
	return root
}

// Execute runs roster with the process arguments and returns the exit code.
func Execute() int {
	return run(NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "roster:", err)
		return exitCode(err)
	}
	return exitSuccess
}

// setup loads the configuration and builds the logger before any command
// that touches storage runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	switch cmd.Name() {
	case "version", "help":
		return nil
	}

	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	s, err := loadConfig(configDir, a.flags.dataDir)
	if err != nil {
		return sysError(err)
	}
	a.settings = s

	a.dataDir, err = paths.ResolveDataDir(a.flags.dataDir, s.DataDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve data dir: %w", err))
	}

	logger, err := logging.New(s.Log.Level, s.Log.Development)
	if err != nil {
		return userError(err)
	}
	a.logger = logger
	return nil
}

// exitError attaches an exit code to an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }
func sysError(err error) error  { return &exitError{code: exitSysError, err: err} }

// classify marks business failures as user errors and anything else as a
// system error.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}
	if types.KindOf(err) != types.KindNone {
		return userError(err)
	}
	return sysError(err)
}

// exitCode returns the code carried by err. Errors cobra raises itself
// (unknown commands, wrong argument counts) are user errors.
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// Command kiz runs and inspects compiled kiz units.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/kiz-lang/kiz/vm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// exitError carries a process exit code without a message to print.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

type app struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer
	// scriptArgs are the arguments after "--", passed to os.args().
	scriptArgs []string
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "kiz [file]",
		Short:         "Run compiled kiz programs",
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			a.processGlobalFlags()
			return nil
		},
		RunE: a.runHandler,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.String("config", "", "Directory containing kiz.toml (default: search upward from cwd)")
	pf.StringSlice("modules", nil, "Directories searched for imported units")
	pf.String("log-level", "", "VM debug log level (trace, debug, info, warn, error)")
	pf.Bool("no-color", false, "Disable colored output")
	if err := a.v.BindPFlags(pf); err != nil {
		panic(err)
	}
	a.v.SetEnvPrefix("kiz")
	a.v.AutomaticEnv()
	if err := a.v.BindEnv("no-color", "NO_COLOR"); err != nil {
		panic(err)
	}

	root.Flags().Bool("timing", false, "Show execution time")

	root.AddCommand(
		newRunCmd(a),
		newDisCmd(a),
		newStatsCmd(a),
		newVersionCmd(a),
	)
	return root
}

func main() {
	a := &app{v: viper.New(), stdout: os.Stdout, stderr: os.Stderr}
	args, scriptArgs := splitScriptArgs(os.Args[1:])
	a.scriptArgs = scriptArgs

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(a)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(a.exitCode(err))
	}
}

// exitCode reports err and returns the process exit code for it. Unhandled
// kiz errors were already printed with their trace by the VM.
func (a *app) exitCode(err error) int {
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	var unhandled *vm.UnhandledError
	if !errors.As(err, &unhandled) {
		fmt.Fprintln(a.stderr, color.RedString(err.Error()))
	}
	return 1
}

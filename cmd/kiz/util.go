package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/kiz-lang/kiz/bytecode"
	"github.com/kiz-lang/kiz/internal/config"
	"github.com/mattn/go-isatty"
	"github.com/mitchellh/go-homedir"
)

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// splitScriptArgs separates arguments for the kiz CLI from arguments meant
// for the program, which follow "--".
func splitScriptArgs(args []string) ([]string, []string) {
	for i, arg := range args {
		if arg == "--" {
			return args[:i], args[i+1:]
		}
	}
	return args, nil
}

// useColor reports whether output to w should be colored.
func (a *app) useColor(w io.Writer) bool {
	if a.v.GetBool("no-color") {
		return false
	}
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}

func (a *app) processGlobalFlags() {
	if a.v.GetBool("no-color") {
		color.NoColor = true
	}
}

// loadConfig loads kiz.toml from --config, or searches upward from the
// working directory. Without a file the defaults apply.
func (a *app) loadConfig() (*config.Config, error) {
	if dir := a.v.GetString("config"); dir != "" {
		expanded, err := homedir.Expand(dir)
		if err != nil {
			return nil, err
		}
		return config.Load(expanded)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.FindAndLoad(cwd)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default(cwd)
	}
	return cfg, nil
}

// unitPath picks the unit to load: the argument when given, else the
// configured entry.
func unitPath(cfg *config.Config, args []string) (string, error) {
	if len(args) > 0 {
		return homedir.Expand(args[0])
	}
	entry, err := cfg.EntryPath()
	if err != nil {
		return "", err
	}
	if entry == "" {
		return "", fmt.Errorf("no input file and no entry configured in %s", config.FileName)
	}
	return entry, nil
}

func readUnit(path string) (*bytecode.Code, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	code, err := bytecode.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return code, nil
}

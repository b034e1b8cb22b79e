package main

import (
	"fmt"

	"github.com/kiz-lang/kiz/internal/config"
	"github.com/kiz-lang/kiz/modules/builtins"
	kizio "github.com/kiz-lang/kiz/modules/io"
	kizos "github.com/kiz-lang/kiz/modules/os"
	"github.com/kiz-lang/kiz/vm"
	"github.com/rs/zerolog"
)

func (a *app) logger(cfg *config.Config) (zerolog.Logger, error) {
	levelName := a.v.GetString("log-level")
	if levelName == "" {
		levelName = cfg.Log.Level
	}
	level, err := zerolog.ParseLevel(levelName)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", levelName)
	}
	out := zerolog.ConsoleWriter{Out: a.stderr, NoColor: !a.useColor(a.stderr)}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// vmOptions returns the options for running the unit at path.
func (a *app) vmOptions(cfg *config.Config, path string) ([]vm.Option, error) {
	logger, err := a.logger(cfg)
	if err != nil {
		return nil, err
	}
	dirs := a.v.GetStringSlice("modules")
	if len(dirs) == 0 {
		if dirs, err = cfg.ModuleDirPaths(); err != nil {
			return nil, err
		}
	}
	scriptArgs := append([]string{path}, a.scriptArgs...)
	opts := []vm.Option{
		vm.WithLogger(logger),
		vm.WithErrorWriter(a.stderr),
		vm.WithColor(a.useColor(a.stderr)),
		vm.WithBuiltins(builtins.Module(a.stdout)),
		vm.WithModule("io", kizio.Module()),
		vm.WithModule("os", kizos.Module(kizos.WithArgs(scriptArgs))),
		vm.WithImporter(vm.NewFileImporter(dirs...)),
	}
	if n := cfg.Run.ContextCheckInterval; n > 0 {
		opts = append(opts, vm.WithContextCheckInterval(n))
	}
	return opts, nil
}

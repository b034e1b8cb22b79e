// Package os implements the kiz "os" module: process arguments, environment
// variables and basic filesystem operations.
package os

import (
	"context"
	"os"

	"github.com/kiz-lang/kiz/errz"
	"github.com/kiz-lang/kiz/object"
	"github.com/mitchellh/go-homedir"
)

// Option configures the os module.
type Option func(*module)

// WithArgs sets the list returned by os.args(). Defaults to os.Args.
func WithArgs(args []string) Option {
	return func(m *module) {
		m.args = args
	}
}

// WithExit sets the function called by os.exit(). Defaults to os.Exit.
func WithExit(exit func(code int)) Option {
	return func(m *module) {
		m.exit = exit
	}
}

type module struct {
	h    *object.Heap
	args []string
	exit func(code int)
}

// Module returns the initializer of the os module.
func Module(opts ...Option) object.ModuleInit {
	return func(ctx context.Context, h *object.Heap) (*object.Module, error) {
		m := &module{h: h, args: os.Args, exit: os.Exit}
		for _, opt := range opts {
			opt(m)
		}
		return h.NewNativeModule("os", map[string]object.NativeFunc{
			"args":   m.Args,
			"env":    m.Env,
			"cwd":    m.Cwd,
			"chdir":  m.Chdir,
			"mkdir":  m.Mkdir,
			"rmdir":  m.Rmdir,
			"remove": m.Remove,
			"exit":   m.Exit,
		}), nil
	}
}

func (m *module) path(arg object.Object) (string, error) {
	path, err := object.AsString(arg)
	if err != nil {
		return "", err
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", errz.Wrap(errz.OS, err)
	}
	return expanded, nil
}

// Args returns the process arguments as a list of strings.
func (m *module) Args(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	if err := object.AssertArgc(args, 0); err != nil {
		return nil, err
	}
	items := make([]object.Object, len(m.args))
	for i, arg := range m.args {
		items[i] = m.h.String(arg)
	}
	return m.h.NewList(items), nil
}

// Env returns an environment variable: env(name[, default]). A missing
// variable without a default is nil.
func (m *module) Env(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	if err := object.AssertArgc(args, 1, 2); err != nil {
		return nil, err
	}
	name, err := object.AsString(args[0])
	if err != nil {
		return nil, err
	}
	if value, ok := os.LookupEnv(name); ok {
		return m.h.String(value), nil
	}
	if len(args) == 2 {
		return object.CopyOrRef(args[1]), nil
	}
	return m.h.Nil(), nil
}

func (m *module) Cwd(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	if err := object.AssertArgc(args, 0); err != nil {
		return nil, err
	}
	dir, err := os.Getwd()
	if err != nil {
		return nil, errz.Wrap(errz.OS, err)
	}
	return m.h.String(dir), nil
}

// pathOp runs fn on the single path argument and returns nil.
func (m *module) pathOp(args []object.Object, fn func(path string) error) (object.Object, error) {
	if err := object.AssertArgc(args, 1); err != nil {
		return nil, err
	}
	path, err := m.path(args[0])
	if err != nil {
		return nil, err
	}
	if err := fn(path); err != nil {
		return nil, errz.Wrap(errz.OS, err)
	}
	return m.h.Nil(), nil
}

func (m *module) Chdir(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	return m.pathOp(args, os.Chdir)
}

// Mkdir creates a directory along with any missing parents.
func (m *module) Mkdir(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	return m.pathOp(args, func(path string) error {
		return os.MkdirAll(path, 0o755)
	})
}

// Rmdir removes an empty directory.
func (m *module) Rmdir(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	return m.pathOp(args, func(path string) error {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return errz.Errorf(errz.OS, "%s is not a directory", path)
		}
		return os.Remove(path)
	})
}

// Remove deletes a file or an empty directory.
func (m *module) Remove(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	return m.pathOp(args, os.Remove)
}

// Exit terminates the process: exit([code]). The code defaults to 0.
func (m *module) Exit(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	if err := object.AssertArgc(args, 0, 1); err != nil {
		return nil, err
	}
	code := int64(0)
	if len(args) == 1 {
		var err error
		if code, err = object.AsInt(args[0]); err != nil {
			return nil, err
		}
	}
	m.exit(int(code))
	return m.h.Nil(), nil
}

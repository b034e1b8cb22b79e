// Package io implements the kiz "io" module: opening files and whole-file
// reads and writes.
package io

import (
	"context"
	"os"

	"github.com/kiz-lang/kiz/errz"
	"github.com/kiz-lang/kiz/object"
	"github.com/mitchellh/go-homedir"
)

var openFlags = map[string]int{
	"r":  os.O_RDONLY,
	"w":  os.O_WRONLY | os.O_CREATE | os.O_TRUNC,
	"a":  os.O_WRONLY | os.O_CREATE | os.O_APPEND,
	"r+": os.O_RDWR,
	"w+": os.O_RDWR | os.O_CREATE | os.O_TRUNC,
	"a+": os.O_RDWR | os.O_CREATE | os.O_APPEND,
}

type module struct {
	h *object.Heap
}

// Module returns the initializer of the io module.
func Module() object.ModuleInit {
	return func(ctx context.Context, h *object.Heap) (*object.Module, error) {
		m := &module{h: h}
		return h.NewNativeModule("io", map[string]object.NativeFunc{
			"open":       m.Open,
			"fast_read":  m.FastRead,
			"fast_write": m.FastWrite,
		}), nil
	}
}

func expandPath(arg object.Object) (string, error) {
	path, err := object.AsString(arg)
	if err != nil {
		return "", err
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", errz.Wrap(errz.File, err)
	}
	return expanded, nil
}

// Open opens a file and returns its handle: open(path[, mode]). The mode
// defaults to "r".
func (m *module) Open(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	if err := object.AssertArgc(args, 1, 2); err != nil {
		return nil, err
	}
	path, err := expandPath(args[0])
	if err != nil {
		return nil, err
	}
	mode := "r"
	if len(args) == 2 {
		if mode, err = object.AsString(args[1]); err != nil {
			return nil, err
		}
	}
	flags, ok := openFlags[mode]
	if !ok {
		return nil, errz.Errorf(errz.File, "invalid file mode %q", mode)
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, errz.Errorf(errz.File, "Failed to open file %s", path).WithCause(err)
	}
	return m.h.NewFileHandle(path, mode, f), nil
}

// FastRead returns the whole content of a file.
func (m *module) FastRead(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	if err := object.AssertArgc(args, 1); err != nil {
		return nil, err
	}
	path, err := expandPath(args[0])
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errz.Errorf(errz.File, "Failed to read file %s", path).WithCause(err)
	}
	return m.h.String(string(data)), nil
}

// FastWrite replaces the content of a file, creating it if needed.
func (m *module) FastWrite(ctx context.Context, self object.Object, args []object.Object) (object.Object, error) {
	if err := object.AssertArgc(args, 2); err != nil {
		return nil, err
	}
	path, err := expandPath(args[0])
	if err != nil {
		return nil, err
	}
	content, err := object.Str(ctx, args[1])
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, errz.Errorf(errz.File, "Failed to write file %s", path).WithCause(err)
	}
	return m.h.Nil(), nil
}

package object

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kiz-lang/kiz/errz"
)

// FileHandle is an open file. The handle closes its file when destroyed.
type FileHandle struct {
	base
	path   string
	mode   string
	file   *os.File
	closed bool
}

func (f *FileHandle) Type() Type {
	return FILE
}

func (f *FileHandle) Inspect() string {
	state := "open"
	if f.closed {
		state = "closed"
	}
	return fmt.Sprintf("<file_handle %q mode=%q %s>", f.path, f.mode, state)
}

// Path returns the path the file was opened with.
func (f *FileHandle) Path() string {
	return f.path
}

// Mode returns the mode the file was opened with.
func (f *FileHandle) Mode() string {
	return f.mode
}

// Closed reports whether the handle has been closed.
func (f *FileHandle) Closed() bool {
	return f.closed
}

// Close closes the file. Closing a closed handle is a no-op.
func (f *FileHandle) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.file == nil {
		return nil
	}
	if err := f.file.Close(); err != nil {
		return errz.Wrap(errz.File, err)
	}
	return nil
}

func (f *FileHandle) finalize() error {
	return f.Close()
}

func (f *FileHandle) check(action string) error {
	if f.closed {
		return errz.Errorf(errz.File, "Cannot %s closed file handle", action)
	}
	if f.file == nil {
		return errz.New(errz.File, "Invalid or corrupted file handle")
	}
	return nil
}

// ReadAll returns the whole file content, reading from the beginning.
func (f *FileHandle) ReadAll() (string, error) {
	if err := f.check("read from"); err != nil {
		return "", err
	}
	if _, err := f.file.Seek(0, io.SeekStart); err != nil {
		return "", errz.Wrap(errz.File, err)
	}
	data, err := io.ReadAll(f.file)
	if err != nil {
		return "", errz.Errorf(errz.File, "Read failed: %v", err)
	}
	return string(data), nil
}

// ReadLine returns line n, counting from 1. Every line but the last keeps its
// trailing newline. A line past the end of the file is the empty string.
func (f *FileHandle) ReadLine(n int64) (string, error) {
	if err := f.check("read from"); err != nil {
		return "", err
	}
	if _, err := f.file.Seek(0, io.SeekStart); err != nil {
		return "", errz.Wrap(errz.File, err)
	}
	r := bufio.NewReader(f.file)
	for lineno := int64(1); ; lineno++ {
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", errz.Errorf(errz.File, "Read failed: %v", err)
		}
		if lineno == n {
			if err == io.EOF {
				return line, nil
			}
			if _, peekErr := r.Peek(1); peekErr == io.EOF {
				return strings.TrimSuffix(line, "\n"), nil
			}
			return line, nil
		}
		if err == io.EOF {
			return "", nil
		}
	}
}

// Write writes s to the file and flushes it.
func (f *FileHandle) Write(s string) error {
	if err := f.check("write to"); err != nil {
		return err
	}
	if _, err := f.file.WriteString(s); err != nil {
		return errz.Errorf(errz.File, "Write failed: %v", err)
	}
	return nil
}

// Flush commits written content to storage.
func (f *FileHandle) Flush() error {
	if err := f.check("flush"); err != nil {
		return err
	}
	if err := f.file.Sync(); err != nil {
		return errz.Errorf(errz.File, "Flush failed: %v", err)
	}
	return nil
}

// NewFileHandle wraps an open file. The handle takes ownership of file.
func (h *Heap) NewFileHandle(path, mode string, file *os.File) *FileHandle {
	f := &FileHandle{path: path, mode: mode, file: file}
	h.init(&f.base, FILE)
	return f
}

func fileSelf(self Object) (*FileHandle, error) {
	f, ok := self.(*FileHandle)
	if !ok {
		return nil, errz.Errorf(errz.Type, "expected file_handle receiver, got %s", typeName(self))
	}
	return f, nil
}

func (h *Heap) initFileMethods() {
	h.define(FILE, "read", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		f, err := fileSelf(self)
		if err != nil {
			return nil, err
		}
		s, err := f.ReadAll()
		if err != nil {
			return nil, err
		}
		return h.String(s), nil
	})
	h.define(FILE, "readline", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		f, err := fileSelf(self)
		if err != nil {
			return nil, err
		}
		n, err := AsInt(args[0])
		if err != nil {
			return nil, err
		}
		s, err := f.ReadLine(n)
		if err != nil {
			return nil, err
		}
		return h.String(s), nil
	})
	h.define(FILE, "write", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		f, err := fileSelf(self)
		if err != nil {
			return nil, err
		}
		s, err := Str(ctx, args[0])
		if err != nil {
			return nil, err
		}
		if err := f.Write(s); err != nil {
			return nil, err
		}
		return h.Nil(), nil
	})
	h.define(FILE, "flush", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		f, err := fileSelf(self)
		if err != nil {
			return nil, err
		}
		if err := f.Flush(); err != nil {
			return nil, err
		}
		return h.Nil(), nil
	})
	h.define(FILE, "close", func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 0); err != nil {
			return nil, err
		}
		f, err := fileSelf(self)
		if err != nil {
			return nil, err
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
		return h.Nil(), nil
	})
}

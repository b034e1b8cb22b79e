package vm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiz-lang/kiz/bytecode"
	"github.com/kiz-lang/kiz/errz"
	"github.com/kiz-lang/kiz/object"
)

// Importer finds the compiled unit for a module name.
type Importer interface {
	Import(ctx context.Context, name string) (*bytecode.Code, error)
}

// FileImporter loads CBOR-encoded units from the filesystem. A module
// named "a.b" is read from "a/b.kizc" under the first directory that
// contains it.
type FileImporter struct {
	Dirs      []string
	Extension string
}

// NewFileImporter creates an importer searching dirs in order.
func NewFileImporter(dirs ...string) *FileImporter {
	return &FileImporter{Dirs: dirs, Extension: ".kizc"}
}

func (i *FileImporter) Import(ctx context.Context, name string) (*bytecode.Code, error) {
	rel := filepath.FromSlash(strings.ReplaceAll(name, ".", "/")) + i.Extension
	for _, dir := range i.Dirs {
		path := filepath.Join(dir, rel)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, errz.Wrap(errz.Import, err)
		}
		code, err := bytecode.Unmarshal(data)
		if err != nil {
			return nil, errz.Errorf(errz.Import, "module '%s': %v", name, err)
		}
		return code, nil
	}
	return nil, errz.Errorf(errz.Import, "module '%s' not found", name)
}

// importModule pushes the module for name. Native modules and cached
// modules are pushed directly; a module loaded by the importer gets a
// frame, and is pushed once that frame finishes.
func (vm *VirtualMachine) importModule(ctx context.Context, name string) error {
	if module, ok := vm.modules[name]; ok {
		vm.push(object.Retain(module))
		return nil
	}
	if initModule, ok := vm.moduleInits[name]; ok {
		module, err := initModule(ctx, vm.heap)
		if err != nil {
			return errz.Errorf(errz.Import, "module '%s': %v", name, err)
		}
		vm.cacheModule(name, module)
		vm.push(object.Retain(module))
		vm.logger.Debug().Str("module", name).Msg("imported native module")
		return nil
	}
	if vm.importer == nil {
		return errz.Errorf(errz.Import, "module '%s' not found", name)
	}
	code, err := vm.importer.Import(ctx, name)
	if err != nil {
		return errz.Wrap(errz.Import, err)
	}
	module := vm.heap.NewModule(name, code.Path())
	// Cached before it runs so that an import cycle sees the partial module.
	vm.cacheModule(name, module)
	vm.logger.Debug().Str("module", name).Str("path", code.Path()).Msg("importing module")
	return vm.pushModuleFrame(object.Retain(module), code)
}

// cacheModule stores module under name, taking over the reference.
func (vm *VirtualMachine) cacheModule(name string, module *object.Module) {
	vm.modules[name] = module
	vm.moduleOrder = append(vm.moduleOrder, name)
}

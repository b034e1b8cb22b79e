package vm

import (
	"github.com/kiz-lang/kiz/bytecode"
	"github.com/kiz-lang/kiz/errz"
	"github.com/kiz-lang/kiz/object"
)

// code is a compiled unit loaded into a VM. Its constants occupy the VM-wide
// pool starting at constBase.
type code struct {
	*bytecode.Code
	constBase int

	// module is the namespace the unit was loaded into. Borrowed.
	module *object.Module
}

// load appends the constants of c to the pool the first time c is seen and
// returns the loaded unit.
func (vm *VirtualMachine) load(c *bytecode.Code, module *object.Module) (*code, error) {
	if loaded, ok := vm.loaded[c]; ok {
		return loaded, nil
	}
	loaded := &code{Code: c, constBase: len(vm.consts), module: module}
	for i := 0; i < c.ConstantCount(); i++ {
		obj, err := vm.constant(c.ConstantAt(i))
		if err != nil {
			return nil, err
		}
		vm.consts = append(vm.consts, obj)
	}
	vm.loaded[c] = loaded
	vm.logger.Debug().
		Str("code", c.Name()).
		Str("id", c.ID()).
		Int("constants", c.ConstantCount()).
		Int("const_base", loaded.constBase).
		Msg("loaded code")
	return loaded, nil
}

func (vm *VirtualMachine) constant(value any) (object.Object, error) {
	h := vm.heap
	switch v := value.(type) {
	case nil:
		return h.Nil(), nil
	case bool:
		return h.Bool(v), nil
	case int64:
		return h.Int(v), nil
	case int:
		return h.Int(int64(v)), nil
	case bytecode.Decimal:
		return h.DecimalFromString(string(v))
	case string:
		return h.String(v), nil
	case *bytecode.Function:
		return h.NewCodeObject(v.Code()), nil
	default:
		return nil, errz.Errorf(errz.Future, "unsupported constant type %T", value)
	}
}

// constantAt returns a borrowed reference to constant i of c.
func (vm *VirtualMachine) constantAt(c *code, i int) (object.Object, error) {
	if i < 0 || i >= c.ConstantCount() {
		return nil, errz.Errorf(errz.Index, "constant index %d out of range", i)
	}
	return vm.consts[c.constBase+i], nil
}

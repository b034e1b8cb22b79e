package object

import (
	"context"
	"math"

	"github.com/cockroachdb/apd/v3"
	"github.com/kiz-lang/kiz/errz"
)

// arith describes a binary arithmetic method. ints handles Int operands and
// returns a nil Object when the result needs decimal precision, for example
// on overflow or an inexact division.
type arith struct {
	name     string
	symbol   string
	ints     func(h *Heap, a, b int64) (Object, error)
	decimals func(h *Heap, a, b *apd.Decimal) (Object, error)
}

func (h *Heap) arithMethod(a arith) NativeFunc {
	return func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		other := args[0]
		if x, ok := self.(*Int); ok {
			if y, ok := other.(*Int); ok {
				res, err := a.ints(h, x.value, y.value)
				if res != nil || err != nil {
					return res, err
				}
			}
		}
		x, ok1 := toDecimal(self)
		y, ok2 := toDecimal(other)
		if !ok1 || !ok2 {
			return nil, errz.Errorf(errz.Type, "unsupported operand type(s) for %s: '%s' and '%s'",
				a.symbol, typeName(self), typeName(other))
		}
		return a.decimals(h, x, y)
	}
}

func decimalOp(fn func(d, x, y *apd.Decimal) (apd.Condition, error)) func(h *Heap, x, y *apd.Decimal) (Object, error) {
	return func(h *Heap, x, y *apd.Decimal) (Object, error) {
		d := new(apd.Decimal)
		if _, err := fn(d, x, y); err != nil {
			return nil, errz.Wrap(errz.Type, err)
		}
		return h.Decimal(d), nil
	}
}

var errZeroDivision = errz.New(errz.ZeroDivision, "division by zero")

func (h *Heap) numericArith() []arith {
	return []arith{
		{
			name: "__add__", symbol: "+",
			ints: func(h *Heap, a, b int64) (Object, error) {
				if s, ok := addInt64(a, b); ok {
					return h.Int(s), nil
				}
				return nil, nil
			},
			decimals: decimalOp(decimalCtx.Add),
		},
		{
			name: "__sub__", symbol: "-",
			ints: func(h *Heap, a, b int64) (Object, error) {
				if s, ok := subInt64(a, b); ok {
					return h.Int(s), nil
				}
				return nil, nil
			},
			decimals: decimalOp(decimalCtx.Sub),
		},
		{
			name: "__mul__", symbol: "*",
			ints: func(h *Heap, a, b int64) (Object, error) {
				if p, ok := mulInt64(a, b); ok {
					return h.Int(p), nil
				}
				return nil, nil
			},
			decimals: decimalOp(decimalCtx.Mul),
		},
		{
			name: "__div__", symbol: "/",
			ints: func(h *Heap, a, b int64) (Object, error) {
				if b == 0 {
					return nil, errZeroDivision
				}
				if a%b == 0 && !(a == math.MinInt64 && b == -1) {
					return h.Int(a / b), nil
				}
				return nil, nil
			},
			decimals: func(h *Heap, x, y *apd.Decimal) (Object, error) {
				if y.IsZero() {
					return nil, errZeroDivision
				}
				d := new(apd.Decimal)
				if _, err := decimalCtx.Quo(d, x, y); err != nil {
					return nil, errz.Wrap(errz.Type, err)
				}
				// Quo pads the coefficient to full precision.
				d.Reduce(d)
				return h.Decimal(d), nil
			},
		},
		{
			name: "__mod__", symbol: "%",
			ints: func(h *Heap, a, b int64) (Object, error) {
				if b == 0 {
					return nil, errZeroDivision
				}
				if b == -1 {
					return h.Int(0), nil
				}
				return h.Int(floorMod(a, b)), nil
			},
			decimals: func(h *Heap, x, y *apd.Decimal) (Object, error) {
				if y.IsZero() {
					return nil, errZeroDivision
				}
				d := new(apd.Decimal)
				if _, err := decimalCtx.Rem(d, x, y); err != nil {
					return nil, errz.Wrap(errz.Type, err)
				}
				if !d.IsZero() && d.Sign() != y.Sign() {
					if _, err := decimalCtx.Add(d, d, y); err != nil {
						return nil, errz.Wrap(errz.Type, err)
					}
				}
				return h.Decimal(d), nil
			},
		},
		{
			name: "__pow__", symbol: "**",
			ints: func(h *Heap, a, b int64) (Object, error) {
				if b < 0 {
					return nil, nil
				}
				if p, ok := powInt64(a, b); ok {
					return h.Int(p), nil
				}
				return nil, nil
			},
			decimals: func(h *Heap, x, y *apd.Decimal) (Object, error) {
				if x.IsZero() && y.Sign() < 0 {
					return nil, errZeroDivision
				}
				d := new(apd.Decimal)
				if _, err := decimalCtx.Pow(d, x, y); err != nil {
					return nil, errz.Wrap(errz.Type, err)
				}
				return h.Decimal(d), nil
			},
		},
	}
}

// compareNumbers returns -1, 0 or 1. ok is false unless both operands are
// numbers.
func compareNumbers(a, b Object) (int, bool) {
	if x, isInt := a.(*Int); isInt {
		if y, isInt := b.(*Int); isInt {
			switch {
			case x.value < y.value:
				return -1, true
			case x.value > y.value:
				return 1, true
			}
			return 0, true
		}
	}
	x, ok1 := toDecimal(a)
	y, ok2 := toDecimal(b)
	if !ok1 || !ok2 {
		return 0, false
	}
	return x.Cmp(y), true
}

func (h *Heap) initNumericMethods() {
	for _, t := range []Type{INT, DECIMAL} {
		for _, a := range h.numericArith() {
			h.define(t, a.name, h.arithMethod(a))
		}
		h.define(t, "__neg__", func(ctx context.Context, self Object, args []Object) (Object, error) {
			if err := AssertArgc(args, 0); err != nil {
				return nil, err
			}
			switch v := self.(type) {
			case *Int:
				if v.value != math.MinInt64 {
					return h.Int(-v.value), nil
				}
				d := apd.New(v.value, 0)
				return h.Decimal(d.Neg(d)), nil
			case *Decimal:
				return h.Decimal(new(apd.Decimal).Neg(&v.value)), nil
			}
			return nil, errz.Errorf(errz.Type, "bad operand type for unary -: '%s'", typeName(self))
		})
		h.define(t, "__eq__", func(ctx context.Context, self Object, args []Object) (Object, error) {
			if err := AssertArgc(args, 1); err != nil {
				return nil, err
			}
			c, ok := compareNumbers(self, args[0])
			return h.Bool(ok && c == 0), nil
		})
		h.define(t, "__lt__", h.orderMethod("<", func(c int) bool { return c < 0 }, compareNumbers))
		h.define(t, "__gt__", h.orderMethod(">", func(c int) bool { return c > 0 }, compareNumbers))
		h.define(t, "__hash__", func(ctx context.Context, self Object, args []Object) (Object, error) {
			if err := AssertArgc(args, 0); err != nil {
				return nil, err
			}
			switch v := self.(type) {
			case *Int:
				return h.Int(v.value), nil
			case *Decimal:
				return h.Int(hashDecimal(&v.value)), nil
			}
			return nil, errz.Errorf(errz.Type, "expected number receiver, got %s", typeName(self))
		})
		h.define(t, "__str__", h.inspectMethod)
	}
}

// orderMethod builds "__lt__" or "__gt__" from a three-way comparison.
func (h *Heap) orderMethod(symbol string, test func(int) bool, compare func(a, b Object) (int, bool)) NativeFunc {
	return func(ctx context.Context, self Object, args []Object) (Object, error) {
		if err := AssertArgc(args, 1); err != nil {
			return nil, err
		}
		c, ok := compare(self, args[0])
		if !ok {
			return nil, errz.Errorf(errz.Type, "'%s' not supported between instances of '%s' and '%s'",
				symbol, typeName(self), typeName(args[0]))
		}
		return h.Bool(test(c)), nil
	}
}

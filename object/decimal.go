package object

import (
	"github.com/cockroachdb/apd/v3"
	"github.com/zeebo/xxh3"
)

// DecimalPrecision is the number of significant digits kept by decimal
// arithmetic.
const DecimalPrecision = 34

var decimalCtx = apd.BaseContext.WithPrecision(DecimalPrecision)

// Decimal is an arbitrary precision decimal number.
type Decimal struct {
	base
	value apd.Decimal
}

func (d *Decimal) Type() Type {
	return DECIMAL
}

// Value returns a copy of the decimal value.
func (d *Decimal) Value() *apd.Decimal {
	return new(apd.Decimal).Set(&d.value)
}

func (d *Decimal) Inspect() string {
	return d.value.Text('f')
}

// Decimal returns a new decimal object holding a copy of v.
func (h *Heap) Decimal(v *apd.Decimal) *Decimal {
	d := &Decimal{}
	d.value.Set(v)
	h.init(&d.base, DECIMAL)
	return d
}

// DecimalFromString parses s into a new decimal object.
func (h *Heap) DecimalFromString(s string) (*Decimal, error) {
	v, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return h.Decimal(v), nil
}

func toDecimal(obj Object) (*apd.Decimal, bool) {
	switch v := obj.(type) {
	case *Int:
		return apd.New(v.value, 0), true
	case *Decimal:
		return new(apd.Decimal).Set(&v.value), true
	}
	return nil, false
}

// hashDecimal hashes integral decimals like the equal Int so that 2 and 2.0
// land on the same dictionary entry.
func hashDecimal(d *apd.Decimal) int64 {
	if i, err := d.Int64(); err == nil {
		return i
	}
	reduced := new(apd.Decimal)
	reduced.Reduce(d)
	return int64(xxh3.HashString(reduced.String()))
}

package bytecode

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Decimal is a decimal literal constant, stored as its canonical text.
type Decimal string

// ParseDecimal validates s and returns it in canonical form.
func ParseDecimal(s string) (Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return "", fmt.Errorf("invalid decimal constant %q: %w", s, err)
	}
	return Decimal(d.String()), nil
}

// Value parses the constant into an arbitrary precision decimal.
func (d Decimal) Value() (*apd.Decimal, error) {
	v, _, err := apd.NewFromString(string(d))
	if err != nil {
		return nil, fmt.Errorf("invalid decimal constant %q: %w", string(d), err)
	}
	return v, nil
}

// String returns the decimal text.
func (d Decimal) String() string {
	return string(d)
}

package errz

import (
	"fmt"
	"strings"
)

// SourceLocation represents a position in source code.
type SourceLocation struct {
	File   string `cbor:"1,keyasint,omitempty" json:"file,omitempty"`
	Line   int    `cbor:"2,keyasint" json:"line"`   // 1-based line number
	Column int    `cbor:"3,keyasint" json:"column"` // 1-based column number
}

// String returns a formatted string representation of the source location.
func (s SourceLocation) String() string {
	if s.File != "" {
		return fmt.Sprintf("%s:%d:%d", s.File, s.Line, s.Column)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsZero returns true if the location has not been set.
func (s SourceLocation) IsZero() bool {
	return s.Line == 0 && s.Column == 0
}

// StackFrame is one entry of a position chain: the path of the module or
// function a live frame was executing, and its current position.
type StackFrame struct {
	Path     string
	Location SourceLocation
}

// String returns a formatted string representation of the stack frame.
func (f StackFrame) String() string {
	if f.Path != "" {
		return fmt.Sprintf("at %s (%s)", f.Path, f.Location.String())
	}
	return fmt.Sprintf("at %s", f.Location.String())
}

// FormatStackTrace formats a slice of stack frames as a human-readable string.
func FormatStackTrace(frames []StackFrame) string {
	if len(frames) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Stack trace:\n")
	for _, frame := range frames {
		b.WriteString("  ")
		b.WriteString(frame.String())
		b.WriteString("\n")
	}
	return b.String()
}

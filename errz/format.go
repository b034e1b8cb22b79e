package errz

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Formatter renders error traces, optionally with ANSI colors.
type Formatter struct {
	// UseColor enables ANSI color codes in output.
	UseColor bool
}

// NewFormatter creates a new error formatter.
func NewFormatter(useColor bool) *Formatter {
	return &Formatter{UseColor: useColor}
}

func (f *Formatter) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if f.UseColor {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// FormatTrace renders an unhandled error: one line per position in the
// chain, outermost first, followed by the error name and message.
func (f *Formatter) FormatTrace(name, message string, trace []StackFrame) string {
	var b strings.Builder
	header := f.paint(color.FgHiRed)
	location := f.paint(color.FgCyan)
	errName := f.paint(color.Bold, color.FgHiRed)
	errMsg := f.paint(color.FgWhite)

	if len(trace) > 0 {
		b.WriteString("\n")
		b.WriteString(header.Sprint("Trace Back: "))
		b.WriteString("\n")
		for _, frame := range trace {
			path := frame.Path
			if path == "" {
				path = "<unknown>"
			}
			fmt.Fprintf(&b, "  File %q, %s\n", path,
				location.Sprintf("line %d, column %d", frame.Location.Line, frame.Location.Column))
		}
	}
	b.WriteString(errName.Sprint(name))
	b.WriteString(errMsg.Sprint(" : " + message))
	b.WriteString("\n")
	return b.String()
}

// PrintTrace writes FormatTrace output to w.
func (f *Formatter) PrintTrace(w io.Writer, name, message string, trace []StackFrame) {
	if w == nil {
		return
	}
	fmt.Fprintln(w, f.FormatTrace(name, message, trace))
}

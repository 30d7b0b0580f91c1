// Package ui renders the human-facing step banners and run summary.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Step titles shown before each pipeline phase.
var stepTitles = map[string]string{
	"reservation": "Retrieve Grid'5000 resources",
	"fabric":      "Configure distem on physical hosts",
	"vnodes":      "Create virtual nodes",
}

// StepTitle returns the banner title of a phase, or "" when the phase has none.
func StepTitle(phase string) string {
	return stepTitles[phase]
}

// Field is one key/value line of a summary.
type Field struct {
	Key   string
	Value string
}

// Printer writes banners to a stream, styled only when it is a terminal.
type Printer struct {
	w      io.Writer
	styled bool
}

// NewPrinter returns a printer for w. Styling is enabled when w is a
// terminal file descriptor.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, styled: IsTerminal(w)}
}

// NewPlainPrinter returns a printer that never styles its output.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Step prints a step banner.
func (p *Printer) Step(title string) {
	if !p.styled {
		fmt.Fprintf(p.w, "==> %s\n", title)
		return
	}
	fmt.Fprintln(p.w, stepStyle.Render("==> "+title))
}

// Done prints the closing line and the summary fields.
func (p *Printer) Done(message string, fields []Field) {
	p.finish(checkMark, readyStyle.Render, message, fields)
}

// Failed prints the failure line and the summary fields.
func (p *Printer) Failed(message string, fields []Field) {
	p.finish(crossMark, failedStyle.Render, message, fields)
}

func (p *Printer) finish(mark string, style func(...string) string, message string, fields []Field) {
	var b strings.Builder
	if p.styled {
		b.WriteString(style(mark + " " + message))
	} else {
		b.WriteString(mark + " " + message)
	}
	b.WriteByte('\n')
	for _, f := range fields {
		if p.styled {
			b.WriteString("    " + keyStyle.Render(f.Key) + valueStyle.Render(f.Value))
		} else {
			fmt.Fprintf(&b, "    %-14s%s", f.Key, f.Value)
		}
		b.WriteByte('\n')
	}
	_, _ = io.WriteString(p.w, b.String())
}

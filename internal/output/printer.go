// Package output writes result pages and user-facing messages
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// ColorMode represents color output mode
type ColorMode int

const (
	// ColorAuto enables colors based on environment (default)
	ColorAuto ColorMode = iota
	// ColorAlways forces colors on
	ColorAlways
	// ColorNever forces colors off
	ColorNever
)

// JSONIndent is the indentation of printed pages
const JSONIndent = "    "

// PrinterOptions configures the Printer
type PrinterOptions struct {
	ColorMode    ColorMode
	ConfigColors bool // output.colors from the config file
	Out          io.Writer
	Err          io.Writer
}

// Printer writes pages to stdout and messages to stderr.
// Stdout only ever receives JSON so the output can be piped.
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
}

// ParseColorMode parses a string into a ColorMode
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "auto", "":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("invalid color mode %q: must be auto, always, or never", s)
	}
}

// ResolveColors determines whether to use colors based on mode and environment
func ResolveColors(mode ColorMode, configColors bool) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default: // ColorAuto
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false
		}
		if os.Getenv("TERM") == "dumb" {
			return false
		}
		return configColors
	}
}

// NewPrinter creates a printer. Nil writers default to stdout and stderr.
func NewPrinter(opts PrinterOptions) *Printer {
	out, errw := opts.Out, opts.Err
	if out == nil {
		out = os.Stdout
	}
	if errw == nil {
		errw = os.Stderr
	}
	return &Printer{
		out:       out,
		err:       errw,
		useColors: ResolveColors(opts.ColorMode, opts.ConfigColors),
	}
}

// WritePage prints one page of records as an indented JSON array
func (p *Printer) WritePage(records []json.RawMessage) error {
	if records == nil {
		records = []json.RawMessage{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", JSONIndent)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("formatting page: %w", err)
	}
	if _, err := p.out.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing page: %w", err)
	}
	return nil
}

// Info prints an informational message to stderr
func (p *Printer) Info(format string, args ...interface{}) {
	if p.useColors {
		color.New(color.FgCyan).Fprintf(p.err, format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, format+"\n", args...)
	}
}

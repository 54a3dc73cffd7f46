package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Verbosity levels
type Verbosity int

const (
	// VerbosityQuiet shows errors only
	VerbosityQuiet Verbosity = iota
	// VerbosityNormal shows errors, warnings and results (default)
	VerbosityNormal
	// VerbosityDetailed also shows per-library details
	VerbosityDetailed
	// VerbosityDiagnostic also shows debug output
	VerbosityDiagnostic
)

// ParseVerbosity maps a log level name (silent, error, warn, info, perf, verbose,
// silly) to a console verbosity.
func ParseVerbosity(level string) Verbosity {
	switch strings.ToLower(level) {
	case "silent", "error", "warn":
		return VerbosityQuiet
	case "verbose", "perf":
		return VerbosityDetailed
	case "silly", "debug":
		return VerbosityDiagnostic
	default:
		return VerbosityNormal
	}
}

// Console writes command results to out and diagnostics to err.
type Console struct {
	out       io.Writer
	err       io.Writer
	verbosity Verbosity
	mu        sync.Mutex
	colors    bool
}

// NewConsole creates a new console
func NewConsole(out, err io.Writer, verbosity Verbosity) *Console {
	c := &Console{
		out:       out,
		err:       err,
		verbosity: verbosity,
		colors:    IsColorEnabled(),
	}

	if !c.colors {
		DisableColors()
	}

	return c
}

// DefaultConsole creates a console with stdout/stderr and normal verbosity
func DefaultConsole() *Console {
	return NewConsole(os.Stdout, os.Stderr, VerbosityNormal)
}

// SetVerbosity sets the verbosity level
func (c *Console) SetVerbosity(v Verbosity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verbosity = v
}

// GetVerbosity returns the current verbosity level
func (c *Console) GetVerbosity() Verbosity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verbosity
}

// SetColors enables or disables color output
func (c *Console) SetColors(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.colors = enabled
	if enabled {
		EnableColors()
	} else {
		DisableColors()
	}
}

// ErrWriter returns the diagnostics stream; loggers write there so that out only
// carries command results.
func (c *Console) ErrWriter() io.Writer { return c.err }

// Println writes line to output
func (c *Console) Println(a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.out, a...)
}

// Printf writes formatted output
func (c *Console) Printf(format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.out, format, a...)
}

// WriteJSON writes v as indented JSON to output.
func (c *Console) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	encoder := json.NewEncoder(c.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (c *Console) write(w io.Writer, col colorPrinter, prefix, format string, a ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.colors {
		_, _ = col.Fprintf(w, prefix+format+"\n", a...)
	} else {
		_, _ = fmt.Fprintf(w, prefix+format+"\n", a...)
	}
}

type colorPrinter interface {
	Fprintf(w io.Writer, format string, a ...any) (int, error)
}

// Success writes success message (green)
func (c *Console) Success(format string, a ...any) {
	if c.GetVerbosity() >= VerbosityNormal {
		c.write(c.out, ColorSuccess, "", format, a...)
	}
}

// Header writes a bold section header
func (c *Console) Header(format string, a ...any) {
	if c.GetVerbosity() >= VerbosityNormal {
		c.write(c.out, ColorHeader, "", format, a...)
	}
}

// Error writes error message (red) to the error stream
func (c *Console) Error(format string, a ...any) {
	c.write(c.err, ColorError, "Error: ", format, a...)
}

// Warning writes warning message (yellow) to the error stream
func (c *Console) Warning(format string, a ...any) {
	if c.GetVerbosity() >= VerbosityNormal {
		c.write(c.err, ColorWarning, "Warning: ", format, a...)
	}
}

// Info writes info message (cyan)
func (c *Console) Info(format string, a ...any) {
	if c.GetVerbosity() >= VerbosityNormal {
		c.write(c.out, ColorInfo, "", format, a...)
	}
}

// Detail writes detailed message
func (c *Console) Detail(format string, a ...any) {
	if c.GetVerbosity() >= VerbosityDetailed {
		c.mu.Lock()
		defer c.mu.Unlock()
		_, _ = fmt.Fprintf(c.out, format+"\n", a...)
	}
}

// Debug writes debug message (white)
func (c *Console) Debug(format string, a ...any) {
	if c.GetVerbosity() >= VerbosityDiagnostic {
		c.write(c.err, ColorDebug, "[DEBUG] ", format, a...)
	}
}

// Package prompt asks yes/no questions on an interactive terminal.
package prompt

import (
	"io"
	"os"

	"golang.org/x/term"
)

// TTYDetector detects whether a stream is attached to a terminal.
// This interface allows mocking in tests.
type TTYDetector interface {
	// IsTerminal returns true if s is a terminal (not piped/redirected)
	IsTerminal(s any) bool
}

// RealTTYDetector uses golang.org/x/term to detect real terminals
type RealTTYDetector struct{}

// IsTerminal returns true if s is an *os.File connected to a terminal
func (d *RealTTYDetector) IsTerminal(s any) bool {
	if f, ok := s.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// DefaultTTYDetector is the default detector used in production
var DefaultTTYDetector TTYDetector = &RealTTYDetector{}

// IsInteractive reports whether both in and out are terminals, i.e. a user can be asked.
func IsInteractive(detector TTYDetector, in io.Reader, out io.Writer) bool {
	if detector == nil {
		detector = DefaultTTYDetector
	}
	return detector.IsTerminal(in) && detector.IsTerminal(out)
}

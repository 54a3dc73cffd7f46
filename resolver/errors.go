package resolver

import (
	"fmt"
	"strings"
)

// LibraryError is the failure of a single library.
type LibraryError struct {
	Library string
	Err     error
}

func (e *LibraryError) Error() string {
	return fmt.Sprintf("Failed to resolve library %s: %s", e.Library, e.Err.Error())
}

func (e *LibraryError) Unwrap() error { return e.Err }

// ResolutionError aggregates the failures of several libraries.
type ResolutionError struct {
	Errors []error
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString("Resolution of framework libraries failed with errors:")
	for n, err := range e.Errors {
		fmt.Fprintf(&b, "\n  %d. %s", n+1, err.Error())
	}
	return b.String()
}

func (e *ResolutionError) Unwrap() []error { return e.Errors }

package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// DefaultTimeout bounds how long Confirm waits for an answer.
const DefaultTimeout = 2 * time.Minute

// Prompter asks questions on In/Out.
type Prompter struct {
	In       io.Reader
	Out      io.Writer
	Detector TTYDetector
	Timeout  time.Duration
}

// New returns a prompter on the process's standard streams.
func New() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stderr, Detector: DefaultTTYDetector, Timeout: DefaultTimeout}
}

// Interactive reports whether the prompter is attached to a terminal.
func (p *Prompter) Interactive() bool {
	return IsInteractive(p.Detector, p.In, p.Out)
}

// Confirm asks a yes/no question. An empty answer selects defaultYes. When no
// answer arrives within the timeout, or ctx ends first, the question counts as
// declined.
func (p *Prompter) Confirm(ctx context.Context, question string, defaultYes bool) (bool, error) {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	if _, err := fmt.Fprintf(p.Out, "%s %s ", question, hint); err != nil {
		return false, err
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type answer struct {
		line string
		err  error
	}
	answers := make(chan answer, 1)
	// The reader cannot be interrupted; on timeout the goroutine ends with the next line
	go func() {
		line, err := bufio.NewReader(p.In).ReadString('\n')
		answers <- answer{line, err}
	}()

	select {
	case <-ctx.Done():
		_, _ = fmt.Fprintln(p.Out)
		return false, nil
	case a := <-answers:
		switch {
		case a.err == nil, errors.Is(a.err, io.EOF) && a.line != "":
			return parseAnswer(a.line, defaultYes), nil
		case errors.Is(a.err, io.EOF):
			// Closed input without an answer
			return false, nil
		default:
			return false, a.err
		}
	}
}

func parseAnswer(line string, defaultYes bool) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return defaultYes
	case "y", "yes":
		return true
	default:
		return false
	}
}

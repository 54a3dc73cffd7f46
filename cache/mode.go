package cache

import (
	"context"
	"fmt"
	"strings"
)

// Mode governs how cached artifact metadata may be used.
type Mode int

const (
	// Default uses cached metadata until it expires.
	Default Mode = iota
	// Force uses cached metadata only and fails when nothing is cached.
	Force
	// Off always refreshes metadata from the remote repository.
	Off
)

func (m Mode) String() string {
	switch m {
	case Force:
		return "Force"
	case Off:
		return "Off"
	default:
		return "Default"
	}
}

// ParseMode parses a mode name case-insensitively. The empty string yields Default.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return Default, nil
	case "force":
		return Force, nil
	case "off":
		return Off, nil
	default:
		return Default, fmt.Errorf("invalid cache mode %q: expected one of Default, Force, Off", s)
	}
}

type contextKey string

const modeContextKey contextKey = "ui5.cache.mode"

// WithMode attaches a cache mode to ctx, overriding the installer's configured mode
// for operations running under it.
func WithMode(ctx context.Context, mode Mode) context.Context {
	return context.WithValue(ctx, modeContextKey, mode)
}

// ModeFromContext returns the mode attached by WithMode and whether one was set.
func ModeFromContext(ctx context.Context) (Mode, bool) {
	if ctx == nil {
		return Default, false
	}
	mode, ok := ctx.Value(modeContextKey).(Mode)
	return mode, ok
}

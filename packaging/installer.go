// Package packaging holds the installer mechanics shared by the npm and Maven
// backends: named cross-process locks, lock name sanitization, archive extraction
// and staging promotion.
package packaging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var illegalFileNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-._@/]`)

// Base provides lock-scoped execution for installers sharing one lock directory.
type Base struct {
	LockDir string
	Lock    LockOptions
}

// NewBase returns a Base using lockDir with default wait and staleness bounds.
func NewBase(lockDir string) *Base {
	return &Base{LockDir: lockDir}
}

// LockPath returns the lock file used for lockName.
func (b *Base) LockPath(lockName string) (string, error) {
	name, err := SanitizeFileName(lockName)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.LockDir, name+LockFileExtension), nil
}

// Synchronize runs fn while holding the named lock. At most one fn per lockName runs
// at a time across all processes sharing LockDir.
func (b *Base) Synchronize(ctx context.Context, lockName string, fn func() error) error {
	_, err := Synchronized(ctx, b, lockName, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Synchronized is Synchronize for bodies producing a value.
func Synchronized[T any](ctx context.Context, b *Base, lockName string, fn func() (T, error)) (T, error) {
	var zero T

	lockPath, err := b.LockPath(lockName)
	if err != nil {
		return zero, err
	}

	unlock, err := AcquireLock(ctx, lockPath, b.Lock)
	if err != nil {
		return zero, fmt.Errorf("acquire lock %q: %w", lockName, err)
	}
	defer unlock()

	return fn()
}

// SanitizeFileName validates name for use as a single file name and replaces
// path separators with dashes. Names starting with a dot or containing characters
// outside [A-Za-z0-9-._@/] are rejected.
func SanitizeFileName(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, ".") || illegalFileNameChars.MatchString(name) {
		return "", fmt.Errorf("%w: %s", ErrIllegalFileName, name)
	}
	return strings.ReplaceAll(name, "/", "-"), nil
}

// PathExists reports whether path exists.
func PathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Promote publishes a fully staged directory or file by renaming it to target.
// The parent of target is created first.
func Promote(stagingPath, targetPath string) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return fmt.Errorf("create target parent: %w", err)
	}
	if err := os.Rename(stagingPath, targetPath); err != nil {
		return fmt.Errorf("promote %s: %w", stagingPath, err)
	}
	return nil
}

// RemoveStale removes leftovers of a previous interrupted install.
func RemoveStale(paths ...string) error {
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

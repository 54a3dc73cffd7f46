package packaging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/SAP/ui5-project-sub000/observability"
)

const (
	// DefaultLockWait is the maximum time to wait for lock acquisition
	DefaultLockWait = 10 * time.Second

	// DefaultLockStale is the age after which a held lock is considered abandoned
	DefaultLockStale = 60 * time.Second

	// LockRetryDelay is the retry delay for lock acquisition
	LockRetryDelay = 100 * time.Millisecond

	// LockFileExtension is the lock file extension
	LockFileExtension = ".lock"
)

// LockOptions bounds lock acquisition.
type LockOptions struct {
	// Wait is how long to retry before giving up. Zero means DefaultLockWait.
	Wait time.Duration
	// StaleAfter is the lock file age after which a held lock is reclaimed.
	// Zero means DefaultLockStale.
	StaleAfter time.Duration
}

func (o LockOptions) withDefaults() LockOptions {
	if o.Wait <= 0 {
		o.Wait = DefaultLockWait
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = DefaultLockStale
	}
	return o
}

// AcquireLock acquires an exclusive advisory lock on lockPath.
// Returns an unlock function that MUST be called when done (use defer).
//
// The lock is an flock on the lock file, so it is honored by goroutines of this
// process and by other processes alike. While held, the lock file's modification
// time is refreshed; a holder that stops refreshing for longer than StaleAfter is
// treated as abandoned and its lock file is replaced.
func AcquireLock(ctx context.Context, lockPath string, opts LockOptions) (unlock func(), err error) {
	opts = opts.withDefaults()

	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	start := time.Now()
	for {
		fl := flock.New(lockPath)
		locked, err := fl.TryLock()
		if err != nil {
			_ = fl.Close()
			return nil, fmt.Errorf("lock %s: %w", lockPath, err)
		}

		if locked {
			observability.LockWaitDuration.Observe(time.Since(start).Seconds())
			touch(lockPath)
			stop := keepFresh(lockPath, opts.StaleAfter/2)
			return func() {
				stop()
				_ = fl.Unlock()
			}, nil
		}
		_ = fl.Close()

		if isStale(lockPath, opts.StaleAfter) {
			// The next iteration creates and locks a fresh file
			_ = os.Remove(lockPath)
			continue
		}

		if time.Since(start) >= opts.Wait {
			return nil, fmt.Errorf("%w %s after %s", ErrLockTimeout, lockPath, opts.Wait)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock acquisition cancelled: %w", ctx.Err())
		case <-time.After(LockRetryDelay):
		}
	}
}

func isStale(lockPath string, staleAfter time.Duration) bool {
	info, err := os.Stat(lockPath)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > staleAfter
}

func touch(path string) {
	now := time.Now()
	_ = os.Chtimes(path, now, now)
}

// keepFresh refreshes the lock file mtime every interval until the returned stop
// function is called.
func keepFresh(lockPath string, interval time.Duration) (stop func()) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				touch(lockPath)
			}
		}
	}()
	return func() { close(done) }
}

// WithFileLock executes a function while holding an exclusive lock on lockPath.
func WithFileLock(ctx context.Context, lockPath string, opts LockOptions, fn func() error) error {
	unlock, err := AcquireLock(ctx, lockPath, opts)
	if err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer unlock()

	return fn()
}

// Package testutil provides shared testing helpers for the connection
// pool and its supporting packages.
package testutil

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/nebulapool/connpool/internal/factory"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// AssertCreatedCountEventually polls count until it reaches want, the
// shape the ConnectionTester and ReleaseHelper tests in internal/pool
// need: those loops mutate a partition's created-count
// off the calling goroutine, so a plain equality check right after
// triggering one races the background loop.
func AssertCreatedCountEventually(t *testing.T, count func() int, want int, timeout time.Duration) {
	t.Helper()
	AssertEventually(t, func() bool {
		return count() == want
	}, timeout, "createdCount never reached the expected value")
}

// NewFailingFactory returns a factory.MemoryFactory whose every Open call
// fails, for exercising the paths where a pool can never reach its
// minimum connection count (New's partial-creation rollback,
// unableToCreateMore).
func NewFailingFactory() *factory.MemoryFactory {
	f := factory.NewMemory()
	f.Fail.Store(true)
	return f
}

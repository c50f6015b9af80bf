package build

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain ensures Executor.Build's parallel addon-packing goroutines and
// Watcher's event-loop goroutines never leak past a test, matching the
// teacher's internal/core goleak harness.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("sync.runtime_Semacquire"),
	)
}

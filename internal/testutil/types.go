package testutil

import "time"

// ExecutionRecord holds when a fake process was spawned and terminated.
// End is zero while the process is still up.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Package executor is the launch sequencer. It walks a process graph in
// dependency order, starts every process whose requirements are Running,
// waits for declared readiness and collects the outcome of each start into
// a single LaunchResult.
//
// Each process moves through a small state machine:
//
//	Pending -> Starting -> Running | Failed
//	Pending -> DependencyFailed | Cancelled
//	Running -> Stopped
//
// A failure aborts only the processes that require the failed one. When
// the launch context is cancelled, every started process is terminated in
// reverse start order and the result carries one CancelledError.
package executor

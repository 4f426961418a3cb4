// Package supervisor owns tool process lifetimes.
//
// One goroutine per process holds the handle from spawn to reap. It drains
// stdout and stderr into a single ordered event channel, emits exactly one
// exit event last, closes the channel and then runs the exit hook. Nothing
// is attached to a process that failed to start.
package supervisor

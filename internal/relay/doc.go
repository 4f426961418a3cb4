// Package relay owns client sessions.
//
// Ownership boundary:
// - WebSocket handshake and sub-protocol gate
//
// - inbound frame decoding and routing
//
// - the submit pipeline: validate -> materialize -> resolve -> spawn -> stream
//
// - outbound event ordering per submission
//
// Lifecycle per submission:
// - accept precedes any stdout/stderr, finished is always last
//
// - the materialized root is removed exactly once, by the process exit hook,
//   or inline when setup fails before a process exists
//
// Sessions do not own processes. Closing a session drops its remaining
// events; the processes run to completion and still clean up.
package relay

// Package tools provides host checks for the external tools the relay runs.
//
// Ownership boundary:
// - command lookup on the local host
//
// Nothing here spawns a tool; that is the supervisor's job.
package tools

// Package resolver maps submitted arguments onto a concrete command.
//
// A Resolver sees the client arguments, the materialized root and the
// submitted tree. It never touches the filesystem and never spawns anything;
// a rejection is returned as an error whose text is shown to the client.
package resolver

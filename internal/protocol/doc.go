// Package protocol owns the command contract shared by the codec layers.
//
// Ownership boundary:
// - command identity (project, class, command)
// - argument and command specs
// - decoded command values
// - error taxonomy for decode and dispatch
//
// Layout:
// - wire: per-type marshalling primitives
// - schema: immutable command table
// - frame: command frame encode/decode
// - session: network framing and transport loop
package protocol

// Package session carries command frames over a network link.
//
// Ownership boundary:
// - network frame layout and reassembly (netframe.go)
// - per-buffer sequence numbers, acknowledgements and ping replies
// - retry/backoff/outbox primitives for acknowledged sends
//
// Command payloads are decoded in bounded mode because a network frame
// carries exactly one command frame, so an unknown or malformed command
// only costs that network frame.
package session

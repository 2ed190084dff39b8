package protocol

import "errors"

// Sentinel kinds for decode errors. Both mark the offending packet as
// undecodable; the ingest loop discards the packet and keeps listening.
var (
	// ErrTruncated indicates a box header or payload ran past the buffer.
	ErrTruncated = errors.New("truncated packet")

	// ErrMissingField indicates a mandatory sub-box was absent.
	ErrMissingField = errors.New("missing mandatory field")
)

// Package doc is the engine façade: it owns one replica's document state,
// stamps local mutations into wire operations, and applies remote operations
// idempotently in any delivery order.
package doc

import "errors"

// Sentinel errors for operation application.
var (
	// ErrMalformedOperation is returned for operations with an unknown kind
	// or missing required fields. They are rejected before touching state.
	ErrMalformedOperation = errors.New("malformed operation")

	// ErrDanglingReference is returned when an operation targets an element
	// id that is not known locally. The applier buffers such operations and
	// retries as new operations arrive; the error only surfaces once the
	// retry budget is spent.
	ErrDanglingReference = errors.New("operation references unknown element")

	// ErrUnknownTarget is returned by local mutations that read state which
	// does not exist, e.g. deleting from a text that was never created.
	ErrUnknownTarget = errors.New("unknown target")
)

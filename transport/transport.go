// Package transport moves operations between a replica and its peers.
// Delivery order and reliability are the transport's problem to have, not to
// solve: the applier tolerates any ordering and any duplication, so a
// transport only promises that operations eventually arrive.
package transport

import "github.com/kevinxiao27/quill/doc"

// Transport ships operations to peers and hands received ones to a single
// callback. Implementations must not call the callback concurrently; the
// document behind it is single-threaded.
type Transport interface {
	Send(op doc.Operation) error
	OnReceive(fn func(doc.Operation))
	Close() error
}

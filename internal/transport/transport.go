// Package transport defines the contract between network listeners and the
// quiz core. Each listener decodes its own framing (stream lines, datagrams,
// websocket messages) into the same join/answer/leave events.
package transport

// Conn is one connected client session. Implementations must be safe for
// concurrent writes; the quiz engine broadcasts from its own goroutine while
// the listener's read loop is still running.
type Conn interface {
	// WriteLine sends a single protocol line, appending whatever terminator
	// the transport uses.
	WriteLine(line string) error

	// Probe verifies the peer is still reachable without sending a payload
	// line. A non-nil error marks the player dead on the next reap.
	Probe() error

	// Origin identifies the network source for duplicate-connection checks,
	// typically the host part of the remote address.
	Origin() string

	Close() error
}

// Handler consumes decoded protocol events. Join returns an error when the
// player is rejected; the rejection line has already been written to conn,
// so the listener only needs to drop the peer.
type Handler interface {
	Join(name string, conn Conn) error
	Answer(name, option string)
	Leave(name string)
}

// SPDX-License-Identifier: MIT
/*
Package transport delivers pitch estimates to their consumers: the console,
the application log, WebSocket clients and, in the udp subpackage, a UDP
listener.
*/
package transport

// Transport defines a generic interface for sending estimates or events.
// Implementations should be thread-safe.
type Transport interface {
	Send(data any) error
	Close() error
}

// Package netlinkmux multiplexes request/reply streams over one generic
// netlink socket.
//
// Ownership boundary:
//   - Conn owns the socket, the sequence counter and the table of pending
//     requests.
//   - Run is the only reader of the socket and the only goroutine that ends a
//     Stream.
//   - Payload decoding belongs to callers; this package only looks at the
//     netlink header and error/done control messages.
package netlinkmux

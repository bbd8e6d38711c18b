// Package ethtool speaks the ethtool generic netlink protocol.
//
// Ownership boundary:
//   - typed attribute codecs per group (channels, pause, rings, coalesce,
//     features, link modes) with lossless fallback for unknown attributes
//   - request builders and the execution driver that turns one request into
//     a reply Stream
//   - Handle, the copyable entry point bound to one Conn
//
// Socket ownership and reply demultiplexing live behind Conn; see
// internal/netlinkmux for the Linux implementation.
package ethtool

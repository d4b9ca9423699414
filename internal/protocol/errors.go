// Package protocol implements the line-oriented wire format shared by the
// tcpnetlock server and client: newline-terminated messages of the form
// ACTION[,KEY[:VALUE][,KEY[:VALUE]...]].
package protocol

import "errors"

// ErrPeerDisconnected is returned by ReadLine/CheckConnection when a
// zero-length read indicates the remote end closed the stream.
var ErrPeerDisconnected = errors.New("protocol: peer disconnected")

// ErrLineTooLong is returned when a single line exceeds MaxLineLength
// without a terminator; the caller must close the connection.
var ErrLineTooLong = errors.New("protocol: line exceeds maximum length")

// Package transport implements the byte-level Transport capability the
// protocol engine consumes: open/close/flush a link, send and receive
// raw bytes with a timeout, and drive an optional reset line. The
// engine and frame layer never see a UART, an SPI device, or a USB
// bridge directly — only this interface.
package transport

import "time"

// Transport is the byte-level contract the protocol engine and frame
// layer are built against. Implementations carry no protocol knowledge:
// no command bytes, no checksums, no ACK/NACK interpretation.
type Transport interface {
	// Open acquires the underlying link (serial port, spidev node, USB
	// device handle).
	Open() error

	// Close releases the underlying link. Safe to call on an
	// already-closed or never-opened Transport.
	Close() error

	// Flush discards any buffered input and output.
	Flush() error

	// Send writes p in full or returns an error.
	Send(p []byte) error

	// Recv reads exactly n bytes, blocking up to timeout. A partial
	// read followed by a timeout returns the bytes read so far and
	// bslerr.ResponseTimeout.
	Recv(n int, timeout time.Duration) ([]byte, error)

	// SetResetLine asserts (true) or deasserts (false) the configured
	// reset strategy. Implementations that expose no reset line return
	// bslerr.UnknownInterface.
	SetResetLine(asserted bool) error
}

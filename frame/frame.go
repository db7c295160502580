// Package frame implements the byte-level framing on top of a
// transport.Transport: command bytes with their bitwise complement,
// echo suppression for UART reply/two-wire modes, BUSY-byte polling
// for SPI, and ACK/NACK interpretation. The protocol engine composes
// these primitives; frame itself carries no command-table or
// retry-policy knowledge.
package frame

import (
	"time"

	"github.com/tocurd/go-bsl/bslerr"
	"github.com/tocurd/go-bsl/transport"
)

const (
	Ack  byte = 0x79
	Nack byte = 0x1F
	Busy byte = 0xAA
)

// EchoMode describes how a target reflects bytes it receives, which
// determines whether Framer must consume and validate echoes.
type EchoMode int

const (
	// EchoNone: full-duplex link, no echo to consume (most USB bridges).
	EchoNone EchoMode = iota
	// EchoReply: the target echoes every received byte unchanged before
	// its real reply (UART reply mode).
	EchoReply
	// EchoTwoWire: the target echoes every received byte inverted
	// (bitwise complement) before its real reply (UART two-wire mode).
	EchoTwoWire
)

// Mode selects the framing discipline: UART echo suppression versus
// SPI BUSY-byte polling.
type Mode int

const (
	ModeUART Mode = iota
	ModeSPI
)

const (
	defaultByteTimeout     = 100 * time.Millisecond
	defaultResponseTimeout = time.Second
)

// Framer drives one Transport under a fixed Mode/EchoMode.
type Framer struct {
	T               transport.Transport
	Mode            Mode
	Echo            EchoMode
	ByteTimeout     time.Duration
	ResponseTimeout time.Duration
}

// New returns a Framer with spec-default timeouts.
func New(t transport.Transport, mode Mode, echo EchoMode) *Framer {
	return &Framer{
		T:               t,
		Mode:            mode,
		Echo:            echo,
		ByteTimeout:     defaultByteTimeout,
		ResponseTimeout: defaultResponseTimeout,
	}
}

// SendCommand writes cmd followed by its bitwise complement. Under
// UART echo modes each byte's echo is read back and validated before
// the next is sent.
func (f *Framer) SendCommand(cmd byte) error {
	return f.SendByteComplement(cmd)
}

// SendByteComplement writes b followed by its bitwise complement. The
// wire format uses this pattern both for command opcodes and for a
// few length fields (e.g. the READ count byte).
func (f *Framer) SendByteComplement(b byte) error {
	return f.sendBytes([]byte{b, b ^ 0xFF})
}

// sendBytes writes p one byte at a time when echo suppression applies,
// validating each echo; otherwise it writes p in one call.
func (f *Framer) sendBytes(p []byte) error {
	if f.Mode == ModeUART && f.Echo != EchoNone {
		for _, b := range p {
			if err := f.T.Send([]byte{b}); err != nil {
				return err
			}
			echoed, err := f.readByte()
			if err != nil {
				return err
			}
			want := b
			if f.Echo == EchoTwoWire {
				want = b ^ 0xFF
			}
			if echoed != want {
				return &bslerr.ResponseUnexpected{Got: echoed}
			}
		}
		return nil
	}
	return f.T.Send(p)
}

// SendPayload writes bytes followed by the XOR checksum of bytes.
func (f *Framer) SendPayload(payload []byte) error {
	chk := byte(0)
	for _, b := range payload {
		chk ^= b
	}
	return f.sendBytes(append(append([]byte(nil), payload...), chk))
}

// ExpectAck reads one protocol byte, skipping BUSY polling bytes in
// SPI mode, and interprets it as ACK/NACK/unexpected.
func (f *Framer) ExpectAck() error {
	b, err := f.readAckByte()
	if err != nil {
		return err
	}
	switch b {
	case Ack:
		return nil
	case Nack:
		return &bslerr.ResponseUnexpected{Got: Nack}
	default:
		return &bslerr.ResponseUnexpected{Got: b}
	}
}

// readAckByte polls past BUSY bytes in SPI mode; in UART mode it reads
// exactly one byte.
func (f *Framer) readAckByte() (byte, error) {
	deadline := time.Now().Add(f.ResponseTimeout)
	for {
		b, err := f.readByte()
		if err != nil {
			return 0, err
		}
		if f.Mode == ModeSPI && b == Busy {
			if time.Now().After(deadline) {
				return 0, &bslerr.ResponseTimeout{After: f.ResponseTimeout.String()}
			}
			continue
		}
		return b, nil
	}
}

// RecvBytes reads exactly n data bytes (not protocol control bytes)
// with one Transport.Recv call. It does not skip BUSY bytes itself; in
// SPI mode, SPIDevice.Recv does its own BUSY polling when BusyPoll is set.
func (f *Framer) RecvBytes(n int) ([]byte, error) {
	buf, err := f.T.Recv(n, f.ResponseTimeout)
	if err != nil {
		return buf, err
	}
	return buf, nil
}

func (f *Framer) readByte() (byte, error) {
	buf, err := f.T.Recv(1, f.ByteTimeout)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

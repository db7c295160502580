package transport

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/tocurd/go-bsl/bslerr"
)

// ResetLine selects which modem control line (if any) drives the
// target's RESET pin when a UART transport asserts/deasserts reset.
type ResetLine int

const (
	ResetNone ResetLine = iota
	ResetDTR
	ResetRTS
)

// SerialConfig configures a UART transport, including USB-serial
// bridges: a CP210x/FTDI/CH340 adapter enumerates as the same kind of
// port and needs no special casing here.
type SerialConfig struct {
	Port      string
	Baud      int
	Parity    serial.Parity
	ResetLine ResetLine
}

// Serial is a Transport over a local serial port using go.bug.st/serial,
// the library the go-bsl module has depended on since its teacher
// repository.
type Serial struct {
	cfg  SerialConfig
	port serial.Port
}

// NewSerial returns an unopened UART transport.
func NewSerial(cfg SerialConfig) *Serial {
	if cfg.Parity == 0 {
		cfg.Parity = serial.NoParity
	}
	return &Serial{cfg: cfg}
}

func (s *Serial) Open() error {
	mode := &serial.Mode{
		BaudRate: s.cfg.Baud,
		DataBits: 8,
		StopBits: serial.OneStopBit,
		Parity:   s.cfg.Parity,
	}
	port, err := serial.Open(s.cfg.Port, mode)
	if err != nil {
		return &bslerr.CannotSend{Err: err}
	}
	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		_ = port.Close()
		return &bslerr.CannotSend{Err: err}
	}
	s.port = port
	return nil
}

func (s *Serial) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

func (s *Serial) Flush() error {
	if s.port == nil {
		return &bslerr.PortNotOpen{}
	}
	if err := s.port.ResetInputBuffer(); err != nil {
		return err
	}
	return s.port.ResetOutputBuffer()
}

func (s *Serial) Send(p []byte) error {
	if s.port == nil {
		return &bslerr.PortNotOpen{}
	}
	n, err := s.port.Write(p)
	if err != nil {
		return &bslerr.CannotSend{Err: err}
	}
	if n != len(p) {
		return &bslerr.CannotSend{Err: errShortWrite(n, len(p))}
	}
	return nil
}

// Recv reads exactly n bytes. go.bug.st/serial's per-read timeout is
// configured once at Open; Recv loops reads until n bytes have arrived
// or timeout, a budget for the whole call, has elapsed.
func (s *Serial) Recv(n int, timeout time.Duration) ([]byte, error) {
	if s.port == nil {
		return nil, &bslerr.PortNotOpen{}
	}
	buf := make([]byte, 0, n)
	deadline := time.Now().Add(timeout)
	for len(buf) < n {
		if time.Now().After(deadline) {
			return buf, &bslerr.ResponseTimeout{After: timeout.String()}
		}
		chunk := make([]byte, n-len(buf))
		read, err := s.port.Read(chunk)
		if err != nil {
			return buf, err
		}
		if read == 0 {
			continue
		}
		buf = append(buf, chunk[:read]...)
	}
	return buf, nil
}

func (s *Serial) SetResetLine(asserted bool) error {
	if s.port == nil {
		return &bslerr.PortNotOpen{}
	}
	switch s.cfg.ResetLine {
	case ResetDTR:
		return s.port.SetDTR(asserted)
	case ResetRTS:
		return s.port.SetRTS(asserted)
	default:
		return &bslerr.UnknownInterface{Name: "reset_method=none"}
	}
}

type shortWriteError struct{ got, want int }

func (e *shortWriteError) Error() string {
	return fmt.Sprintf("short write: wrote %d of %d bytes", e.got, e.want)
}

func errShortWrite(got, want int) error { return &shortWriteError{got, want} }

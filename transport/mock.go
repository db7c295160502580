package transport

import (
	"time"

	"github.com/tocurd/go-bsl/bslerr"
)

// Mock is an in-memory Transport for unit-testing the frame and
// protocol layers without a real link. Script queues bytes to hand
// back from Recv in order; Sent records every Send call for
// assertions.
type Mock struct {
	Script  [][]byte
	Sent    [][]byte
	opened  bool
	resetHi bool
}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Open() error  { m.opened = true; return nil }
func (m *Mock) Close() error { m.opened = false; return nil }
func (m *Mock) Flush() error { return nil }

func (m *Mock) Send(p []byte) error {
	if !m.opened {
		return &bslerr.PortNotOpen{}
	}
	cp := append([]byte(nil), p...)
	m.Sent = append(m.Sent, cp)
	return nil
}

// Recv pops the next scripted response. It ignores timeout: a Mock
// never blocks.
func (m *Mock) Recv(n int, timeout time.Duration) ([]byte, error) {
	if !m.opened {
		return nil, &bslerr.PortNotOpen{}
	}
	if len(m.Script) == 0 {
		return nil, &bslerr.ResponseTimeout{After: timeout.String()}
	}
	next := m.Script[0]
	m.Script = m.Script[1:]
	if len(next) < n {
		return next, &bslerr.ResponseTimeout{After: timeout.String()}
	}
	return next[:n], nil
}

func (m *Mock) SetResetLine(asserted bool) error {
	m.resetHi = asserted
	return nil
}

// ResetLineState reports the last value passed to SetResetLine, for
// assertions in tests that exercise a hardware-reset entry sequence.
func (m *Mock) ResetLineState() bool { return m.resetHi }

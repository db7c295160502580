package transport

import (
	"testing"
	"time"

	"github.com/tocurd/go-bsl/bslerr"
)

func TestMockSendRecordsBytes(t *testing.T) {
	m := NewMock()
	_ = m.Open()
	if err := m.Send([]byte{0x7F}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(m.Sent) != 1 || m.Sent[0][0] != 0x7F {
		t.Fatalf("Sent not recorded: %v", m.Sent)
	}
}

func TestMockRecvScriptOrder(t *testing.T) {
	m := NewMock()
	_ = m.Open()
	m.Script = [][]byte{{0x79}, {0x11, 0xEE}}
	got, err := m.Recv(1, time.Millisecond)
	if err != nil || got[0] != 0x79 {
		t.Fatalf("Recv 1: got (%v,%v)", got, err)
	}
	got, err = m.Recv(2, time.Millisecond)
	if err != nil || got[0] != 0x11 || got[1] != 0xEE {
		t.Fatalf("Recv 2: got (%v,%v)", got, err)
	}
}

func TestMockRecvTimeoutOnEmptyScript(t *testing.T) {
	m := NewMock()
	_ = m.Open()
	if _, err := m.Recv(1, time.Millisecond); err == nil {
		t.Fatalf("expected timeout error on empty script")
	}
}

func TestMockNotOpenReturnsPortNotOpen(t *testing.T) {
	m := NewMock()
	err := m.Send([]byte{0x00})
	if _, ok := err.(*bslerr.PortNotOpen); !ok {
		t.Fatalf("expected PortNotOpen sending on unopened mock, got %v", err)
	}
}

func TestMockSetResetLine(t *testing.T) {
	m := NewMock()
	_ = m.Open()
	_ = m.SetResetLine(true)
	if !m.ResetLineState() {
		t.Fatalf("expected reset line state true")
	}
}

package frame

import (
	"testing"

	"github.com/tocurd/go-bsl/bslerr"
	"github.com/tocurd/go-bsl/transport"
)

func TestSendCommandNoEcho(t *testing.T) {
	m := transport.NewMock()
	_ = m.Open()
	f := New(m, ModeUART, EchoNone)
	if err := f.SendCommand(0x00); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if len(m.Sent) != 1 || m.Sent[0][0] != 0x00 || m.Sent[0][1] != 0xFF {
		t.Fatalf("unexpected sent bytes: %v", m.Sent)
	}
}

func TestSendCommandReplyEcho(t *testing.T) {
	m := transport.NewMock()
	_ = m.Open()
	m.Script = [][]byte{{0x00}, {0xFF}}
	f := New(m, ModeUART, EchoReply)
	if err := f.SendCommand(0x00); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
}

func TestSendCommandTwoWireEchoMismatch(t *testing.T) {
	m := transport.NewMock()
	_ = m.Open()
	m.Script = [][]byte{{0x11}} // wrong: two-wire expects the complement 0xFF
	f := New(m, ModeUART, EchoTwoWire)
	err := f.SendCommand(0x00)
	if _, ok := err.(*bslerr.ResponseUnexpected); !ok {
		t.Fatalf("expected ResponseUnexpected, got %v", err)
	}
}

func TestExpectAckSuccess(t *testing.T) {
	m := transport.NewMock()
	_ = m.Open()
	m.Script = [][]byte{{Ack}}
	f := New(m, ModeUART, EchoNone)
	if err := f.ExpectAck(); err != nil {
		t.Fatalf("ExpectAck: %v", err)
	}
}

func TestExpectAckNack(t *testing.T) {
	m := transport.NewMock()
	_ = m.Open()
	m.Script = [][]byte{{Nack}}
	f := New(m, ModeUART, EchoNone)
	if err := f.ExpectAck(); err == nil {
		t.Fatalf("expected error for NACK")
	}
}

func TestExpectAckPollsBusyInSPIMode(t *testing.T) {
	m := transport.NewMock()
	_ = m.Open()
	m.Script = [][]byte{{Busy}, {Busy}, {Ack}}
	f := New(m, ModeSPI, EchoNone)
	if err := f.ExpectAck(); err != nil {
		t.Fatalf("ExpectAck: %v", err)
	}
}

func TestSendPayloadChecksum(t *testing.T) {
	m := transport.NewMock()
	_ = m.Open()
	f := New(m, ModeUART, EchoNone)
	if err := f.SendPayload([]byte{0x01, 0x02, 0x03}); err != nil {
		t.Fatalf("SendPayload: %v", err)
	}
	want := []byte{0x01, 0x02, 0x03, 0x01 ^ 0x02 ^ 0x03}
	got := m.Sent[0]
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

package ramload

import (
	"testing"

	"github.com/tocurd/go-bsl/bslerr"
	"github.com/tocurd/go-bsl/frame"
	"github.com/tocurd/go-bsl/protocol"
	"github.com/tocurd/go-bsl/transport"
)

func newEngine(m *transport.Mock, family protocol.Family, flashKB int, version byte) *protocol.Engine {
	_ = m.Open()
	f := frame.New(m, frame.ModeUART, frame.EchoNone)
	e := protocol.New(f)
	e.Family, e.FlashKB, e.Version = family, flashKB, version
	return e
}

func TestEnsureResidentUploadsForFamilyA(t *testing.T) {
	m := transport.NewMock()
	e := newEngine(m, protocol.FamilyA, 32, 0x10)
	m.Script = [][]byte{{frame.Ack}, {frame.Ack}, {frame.Ack}}

	l := New(e)
	if err := l.EnsureResident(); err != nil {
		t.Fatalf("EnsureResident: %v", err)
	}
	if len(m.Sent) == 0 {
		t.Fatalf("expected a WRITE transaction to be sent")
	}
	if !l.resident {
		t.Fatalf("expected routine marked resident")
	}
}

func TestEnsureResidentNoopForFamilyB(t *testing.T) {
	m := transport.NewMock()
	e := newEngine(m, protocol.FamilyB, 0, 0xA1)
	l := New(e)
	if err := l.EnsureResident(); err != nil {
		t.Fatalf("EnsureResident: %v", err)
	}
	if len(m.Sent) != 0 {
		t.Fatalf("expected no transaction for a family that needs no RAM routine")
	}
}

func TestEnsureResidentUnknownDevice(t *testing.T) {
	m := transport.NewMock()
	e := newEngine(m, protocol.FamilyA, 64, 0x99)
	l := New(e)
	err := l.EnsureResident()
	if _, ok := err.(*bslerr.CannotIdentifyDevice); !ok {
		t.Fatalf("expected CannotIdentifyDevice, got %v", err)
	}
}

func TestEnsureResidentSkipsSecondCall(t *testing.T) {
	m := transport.NewMock()
	e := newEngine(m, protocol.FamilyA, 32, 0x10)
	m.Script = [][]byte{{frame.Ack}, {frame.Ack}, {frame.Ack}}
	l := New(e)
	if err := l.EnsureResident(); err != nil {
		t.Fatalf("EnsureResident: %v", err)
	}
	sentAfterFirst := len(m.Sent)
	if err := l.EnsureResident(); err != nil {
		t.Fatalf("EnsureResident (second call): %v", err)
	}
	if len(m.Sent) != sentAfterFirst {
		t.Fatalf("expected no further transactions once resident")
	}
}

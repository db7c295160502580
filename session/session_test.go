package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/tocurd/go-bsl/frame"
	"github.com/tocurd/go-bsl/transport"
)

func withMockTransport(t *testing.T, m *transport.Mock) func() {
	t.Helper()
	orig := openTransport
	openTransport = func(c Config) (transport.Transport, error) { return m, nil }
	return func() { openTransport = orig }
}

func identifyScript(bslVersion byte) [][]byte {
	return [][]byte{
		{frame.Ack}, // sync
		{frame.Ack}, // GET command
		{0x05},
		{bslVersion, 0x00, 0x11, 0x31, 0x43, 0x21},
		{frame.Ack},
	}
}

func TestRunProgramsFromIntelHex(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "app.hex")
	if err := os.WriteFile(inputPath, []byte(":0410000000200020AC\n:00000001FF\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	m := transport.NewMock()
	defer withMockTransport(t, m)()

	m.Script = append(identifyScript(0xA1),
		[][]byte{{frame.Ack}, {frame.Ack}, {frame.Ack}}..., // one WRITE transaction
	)

	var events []Progress
	s := New(
		WithUART("/dev/mock", 115200),
		WithUARTModeOverride(frame.EchoNone),
		WithInputFile(inputPath, FormatIntelHex),
		WithProgressCallback(func(p Progress) { events = append(events, p) }),
	)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(events) == 0 {
		t.Fatalf("expected progress events")
	}
	if events[len(events)-1].Phase != "complete" {
		t.Fatalf("expected final phase complete, got %s", events[len(events)-1].Phase)
	}
}

func TestRunHonorsCancelledContext(t *testing.T) {
	m := transport.NewMock()
	defer withMockTransport(t, m)()
	m.Script = identifyScript(0xA1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(WithUART("/dev/mock", 115200), WithUARTModeOverride(frame.EchoNone))
	err := s.Run(ctx)
	if err == nil {
		t.Fatalf("expected context-cancellation error")
	}
}

func TestRunMemCheckReportsNonFatalMiss(t *testing.T) {
	m := transport.NewMock()
	defer withMockTransport(t, m)()
	m.Script = append(identifyScript(0xA1),
		[][]byte{{frame.Ack}, {frame.Nack}}..., // memCheck: address phase NACK'd
	)

	s := New(
		WithUART("/dev/mock", 115200),
		WithUARTModeOverride(frame.EchoNone),
		WithMemCheck(0xFFFFFFFF),
	)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	exists, checked := s.MemCheckResult(0xFFFFFFFF)
	if !checked {
		t.Fatalf("expected 0xFFFFFFFF to have been checked")
	}
	if exists {
		t.Fatalf("expected exists=false")
	}
}

func TestRunAppliesTransformBeforeUpload(t *testing.T) {
	m := transport.NewMock()
	defer withMockTransport(t, m)()
	m.Script = append(identifyScript(0xA1),
		[][]byte{{frame.Ack}, {frame.Ack}, {frame.Ack}}...,
	)

	s := New(
		WithUART("/dev/mock", 115200),
		WithUARTModeOverride(frame.EchoNone),
		WithTransform(Transform{Kind: TransformFill, Lo: 0x100, Hi: 0x103, Value: 0xEE}),
	)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The last bytes sent are the WRITE data phase of the filled range:
	// length-1, four 0xEE bytes, XOR checksum.
	last := m.Sent[len(m.Sent)-1]
	want := []byte{0x03, 0xEE, 0xEE, 0xEE, 0xEE, 0x03}
	if string(last) != string(want) {
		t.Fatalf("last sent bytes % X, want % X", last, want)
	}
}

// Package protocol implements the BSL command state machine on top of
// package frame: synchronize, detect UART echo mode, identify the
// target, and issue READ/WRITE/ERASE/GO transactions with the retry
// and block-planning semantics the programming orchestrator relies on.
package protocol

import (
	"time"

	"github.com/tocurd/go-bsl/bslerr"
	"github.com/tocurd/go-bsl/frame"
	"github.com/tocurd/go-bsl/internal/logging"
)

const defaultTransactionRetries = 3

// Engine drives one target session through its Framer. Once Tainted
// is set, only Synchronize clears it.
type Engine struct {
	F       *frame.Framer
	Family  Family
	FlashKB int
	Version byte
	Opcodes []Command
	Tainted bool

	// Retries bounds the whole-transaction retry budget (§4.4 Failure
	// semantics). New sets it to defaultTransactionRetries; set to 0
	// explicitly to disable retries.
	Retries int
}

func New(f *frame.Framer) *Engine {
	return &Engine{F: f, Retries: defaultTransactionRetries}
}

// Synchronize sends SYNCH and accepts either ACK or NACK as success
// (NACK means the target considers itself already synced). Any other
// byte, or a timeout, counts against the attempt budget.
func (e *Engine) Synchronize(maxAttempts int) error {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := e.F.T.Send([]byte{Sync}); err != nil {
			continue
		}
		b, err := e.F.T.Recv(1, e.F.ResponseTimeout)
		if err == nil && len(b) == 1 && (b[0] == frame.Ack || b[0] == frame.Nack) {
			e.Tainted = false
			logging.Log().Debugf("protocol: synchronized after %d attempt(s)", attempt)
			return nil
		}
	}
	return &bslerr.TooManySyncAttempts{Attempts: maxAttempts}
}

// Identify issues GET and validates that the required opcodes are
// present, then resolves the device's family and flash size from the
// returned BSL version byte.
func (e *Engine) Identify() error {
	if err := e.F.SendCommand(byte(CmdGet)); err != nil {
		return err
	}
	if err := e.F.ExpectAck(); err != nil {
		return err
	}
	lenByte, err := e.F.RecvBytes(1)
	if err != nil {
		return err
	}
	n := int(lenByte[0])
	body, err := e.F.RecvBytes(n + 1) // version byte + n opcode bytes
	if err != nil {
		return err
	}
	if err := e.F.ExpectAck(); err != nil {
		return err
	}

	e.Version = body[0]
	opcodes := body[1:]
	e.Opcodes = e.Opcodes[:0]
	for _, b := range opcodes {
		e.Opcodes = append(e.Opcodes, Command(b))
	}

	if err := e.checkRequiredOpcodes(); err != nil {
		return err
	}

	family, flashKB, ok := LookupDevice(e.Version)
	if !ok {
		return &bslerr.CannotIdentifyFamily{BSLVersion: e.Version}
	}
	e.Family, e.FlashKB = family, flashKB
	return nil
}

func (e *Engine) hasOpcode(want Command) bool {
	for _, c := range e.Opcodes {
		if c == want {
			return true
		}
	}
	return false
}

func (e *Engine) checkRequiredOpcodes() error {
	if !e.hasOpcode(CmdGet) {
		return &bslerr.IncorrectGetCode{}
	}
	if !e.hasOpcode(CmdReadMemory) {
		return &bslerr.IncorrectReadCode{}
	}
	if !e.hasOpcode(CmdWriteMemory) {
		return &bslerr.IncorrectWriteCode{}
	}
	if !e.hasOpcode(CmdErase) {
		return &bslerr.IncorrectEraseCode{}
	}
	if !e.hasOpcode(CmdGo) {
		return &bslerr.IncorrectGoCode{}
	}
	return nil
}

// DetectUARTMode probes echo behavior by sending one byte and
// inspecting what (if anything) comes back.
func (e *Engine) DetectUARTMode(probe byte, maxAttempts int) (frame.EchoMode, error) {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := e.F.T.Send([]byte{probe}); err != nil {
			continue
		}
		b, err := e.F.T.Recv(1, e.F.ByteTimeout)
		if err != nil {
			return frame.EchoNone, nil // no echo within the byte timeout: full duplex
		}
		switch b[0] {
		case probe:
			return frame.EchoReply, nil
		case probe ^ 0xFF:
			return frame.EchoTwoWire, nil
		}
	}
	return frame.EchoNone, &bslerr.CannotDetermineUartMode{}
}

func addrBytes(addr uint32) []byte {
	return []byte{byte(addr >> 24), byte(addr >> 16), byte(addr >> 8), byte(addr)}
}

// readOnce performs one READ transaction with no retry: the body Read
// wraps in withRetry, and the body MemCheck calls directly so a
// NACK'd address does not go through the retry-and-taint path a real
// read failure would.
func (e *Engine) readOnce(addr uint32, count int) ([]byte, error) {
	if err := e.F.SendCommand(byte(CmdReadMemory)); err != nil {
		return nil, err
	}
	if err := e.F.ExpectAck(); err != nil {
		return nil, err
	}
	if err := e.F.SendPayload(addrBytes(addr)); err != nil {
		return nil, err
	}
	if err := e.expectAckOrAddressNotExist(addr); err != nil {
		return nil, err
	}
	if err := e.F.SendByteComplement(byte(count - 1)); err != nil {
		return nil, err
	}
	if err := e.F.ExpectAck(); err != nil {
		return nil, err
	}
	return e.F.RecvBytes(count)
}

// Read performs one READ transaction of up to MaxReadLen bytes.
func (e *Engine) Read(addr uint32, count int) ([]byte, error) {
	var out []byte
	err := e.withRetry(func() error {
		data, err := e.readOnce(addr, count)
		if err != nil {
			return err
		}
		out = data
		return nil
	})
	return out, err
}

// MemCheck reports whether addr exists on the target, by attempting a
// single-byte read outside the normal retry/taint path: a target NACK
// here means "address does not exist" (a query result), not a failed
// transaction, so it neither retries nor taints the session. Any other
// failure (timeout, structural error) still taints it and is returned.
func (e *Engine) MemCheck(addr uint32) (bool, error) {
	_, err := e.readOnce(addr, 1)
	if err == nil {
		return true, nil
	}
	if _, ok := err.(*bslerr.AddressNotExist); ok {
		return false, nil
	}
	e.Tainted = true
	return false, err
}

// Write performs one WRITE transaction of up to MaxWriteLen bytes.
func (e *Engine) Write(addr uint32, data []byte) error {
	return e.withRetry(func() error {
		if err := e.F.SendCommand(byte(CmdWriteMemory)); err != nil {
			return err
		}
		if err := e.F.ExpectAck(); err != nil {
			return err
		}
		if err := e.F.SendPayload(addrBytes(addr)); err != nil {
			return err
		}
		if err := e.expectAckOrAddressNotExist(addr); err != nil {
			return err
		}
		payload := append([]byte{byte(len(data) - 1)}, data...)
		if err := e.F.SendPayload(payload); err != nil {
			return err
		}
		return e.F.ExpectAck()
	})
}

// EraseSectors erases the given sector indices.
func (e *Engine) EraseSectors(sectors []byte) error {
	return e.withRetry(func() error {
		if err := e.F.SendCommand(byte(CmdErase)); err != nil {
			return err
		}
		if err := e.F.ExpectAck(); err != nil {
			return err
		}
		payload := append([]byte{byte(len(sectors) - 1)}, sectors...)
		if err := e.F.SendPayload(payload); err != nil {
			return err
		}
		return e.F.ExpectAck()
	})
}

// MassErase erases the whole flash. The final ACK carries a long
// timeout (the spec's ≥10s floor).
func (e *Engine) MassErase() error {
	return e.withRetry(func() error {
		if err := e.F.SendCommand(byte(CmdErase)); err != nil {
			return err
		}
		if err := e.F.ExpectAck(); err != nil {
			return err
		}
		if err := e.F.SendByteComplement(0xFF); err != nil {
			return err
		}
		byteTimeout, responseTimeout := e.F.ByteTimeout, e.F.ResponseTimeout
		e.F.ByteTimeout, e.F.ResponseTimeout = 10*time.Second, 10*time.Second
		defer func() { e.F.ByteTimeout, e.F.ResponseTimeout = byteTimeout, responseTimeout }()
		return e.F.ExpectAck()
	})
}

// Go jumps to addr. Go sets Tainted whether or not the transaction
// succeeded. No engine method checks Tainted: Read, Write, EraseSectors,
// MassErase and Go still run on a tainted engine.
func (e *Engine) Go(addr uint32) error {
	err := e.withRetry(func() error {
		if err := e.F.SendCommand(byte(CmdGo)); err != nil {
			return err
		}
		if err := e.F.ExpectAck(); err != nil {
			return err
		}
		if err := e.F.SendPayload(addrBytes(addr)); err != nil {
			return err
		}
		return e.F.ExpectAck()
	})
	e.Tainted = true
	return err
}

// expectAckOrAddressNotExist reads the ACK/NACK that follows an
// address phase and translates a NACK specifically into
// AddressNotExist, since a target NACKs the address phase when the
// address is out of range rather than for a generic protocol reason.
func (e *Engine) expectAckOrAddressNotExist(addr uint32) error {
	err := e.F.ExpectAck()
	if err == nil {
		return nil
	}
	if unexpected, ok := err.(*bslerr.ResponseUnexpected); ok && unexpected.Got == frame.Nack {
		return &bslerr.AddressNotExist{Address: addr}
	}
	return err
}

// withRetry retries a whole transaction on ResponseTimeout or a
// NACK-as-rejection, up to the configured budget. Structural errors
// (anything else) are not retried. Any fatal failure after the budget
// is exhausted taints the session.
func (e *Engine) withRetry(txn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= e.Retries; attempt++ {
		err := txn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			e.Tainted = true
			return err
		}
		logging.Log().Debugf("protocol: retrying transaction after %v (attempt %d)", err, attempt+1)
	}
	e.Tainted = true
	return lastErr
}

func isRetryable(err error) bool {
	switch v := err.(type) {
	case *bslerr.ResponseTimeout:
		return true
	case *bslerr.ResponseUnexpected:
		return v.Got == frame.Nack
	default:
		return false
	}
}

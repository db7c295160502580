// Package bslerr defines the typed error values returned across the
// go-bsl module: memory/range errors, file codec errors, frame/protocol
// errors. Every kind carries the context spec.md's error handling
// design requires (line number, address, received byte) instead of a
// bare string, so callers can switch on type or use errors.As.
package bslerr

import "fmt"

// Memory/range errors, returned by memimage.Image operations.

// AddressStartGreaterEnd is returned when a range's low address exceeds
// its high address.
type AddressStartGreaterEnd struct {
	Start, End int
}

func (e *AddressStartGreaterEnd) Error() string {
	return fmt.Sprintf("address range invalid: start 0x%X > end 0x%X", e.Start, e.End)
}

// AddressStartGreaterBuffer is returned when a range's low address lies
// outside the image's capacity.
type AddressStartGreaterBuffer struct {
	Start, Capacity int
}

func (e *AddressStartGreaterBuffer) Error() string {
	return fmt.Sprintf("address 0x%X exceeds buffer capacity 0x%X", e.Start, e.Capacity)
}

// AddressEndGreaterBuffer is returned when a range's high address lies
// outside the image's capacity.
type AddressEndGreaterBuffer struct {
	End, Capacity int
}

func (e *AddressEndGreaterBuffer) Error() string {
	return fmt.Sprintf("address 0x%X exceeds buffer capacity 0x%X", e.End, e.Capacity)
}

// File errors, returned by the codec package.

// FailedOpen is returned when an input file could not be opened.
type FailedOpen struct {
	Path string
	Err  error
}

func (e *FailedOpen) Error() string { return fmt.Sprintf("open %s: %v", e.Path, e.Err) }
func (e *FailedOpen) Unwrap() error { return e.Err }

// FailedCreate is returned when an output file could not be created.
type FailedCreate struct {
	Path string
	Err  error
}

func (e *FailedCreate) Error() string { return fmt.Sprintf("create %s: %v", e.Path, e.Err) }
func (e *FailedCreate) Unwrap() error { return e.Err }

// FileBufferExceeded is returned when decoded data would not fit in the
// destination image.
type FileBufferExceeded struct {
	Address, Capacity int
}

func (e *FileBufferExceeded) Error() string {
	return fmt.Sprintf("decoded address 0x%X exceeds image capacity 0x%X", e.Address, e.Capacity)
}

// SRecordInvalidStart is returned when a line does not begin with 'S'.
type SRecordInvalidStart struct{ Line int }

func (e *SRecordInvalidStart) Error() string {
	return fmt.Sprintf("line %d: S-record must start with 'S'", e.Line)
}

// SRecordAddressOverflow is returned when a record's address field does
// not fit its record type's address width.
type SRecordAddressOverflow struct {
	Line int
	Type byte
}

func (e *SRecordAddressOverflow) Error() string {
	return fmt.Sprintf("line %d: address overflows S%d record", e.Line, e.Type)
}

// SRecordChecksum is returned when a record's trailing checksum byte
// does not match the computed checksum.
type SRecordChecksum struct {
	Line           int
	Expected, Got  byte
}

func (e *SRecordChecksum) Error() string {
	return fmt.Sprintf("line %d: checksum mismatch, expected 0x%02X got 0x%02X", e.Line, e.Expected, e.Got)
}

// HexInvalidStart is returned when a line does not begin with ':'.
type HexInvalidStart struct{ Line int }

func (e *HexInvalidStart) Error() string {
	return fmt.Sprintf("line %d: Intel HEX record must start with ':'", e.Line)
}

// HexAddressOverflow is returned when a computed linear address exceeds
// 32 bits.
type HexAddressOverflow struct{ Line int }

func (e *HexAddressOverflow) Error() string {
	return fmt.Sprintf("line %d: address overflows 32-bit linear space", e.Line)
}

// HexUnsupportedType is returned for a record type this codec does not
// implement (explicitly: type 02, extended-segment-address).
type HexUnsupportedType struct {
	Line int
	Type byte
}

func (e *HexUnsupportedType) Error() string {
	return fmt.Sprintf("line %d: unsupported Intel HEX record type 0x%02X", e.Line, e.Type)
}

// HexChecksum is returned when a record's trailing checksum byte does
// not match the computed checksum.
type HexChecksum struct {
	Line          int
	Expected, Got byte
}

func (e *HexChecksum) Error() string {
	return fmt.Sprintf("line %d: checksum mismatch, expected 0x%02X got 0x%02X", e.Line, e.Expected, e.Got)
}

// InvalidCharacter is returned when an ASCII-table token contains a
// character outside the accepted decimal/hex charset.
type InvalidCharacter struct {
	Line  int
	Token string
}

func (e *InvalidCharacter) Error() string {
	return fmt.Sprintf("line %d: invalid character in token %q", e.Line, e.Token)
}

// Transport errors, returned by the transport package and frame layer.

// PortNotOpen is returned when an operation is attempted on a closed
// transport.
type PortNotOpen struct{}

func (e *PortNotOpen) Error() string { return "transport is not open" }

// CannotSend is returned when a transport write fails.
type CannotSend struct{ Err error }

func (e *CannotSend) Error() string { return fmt.Sprintf("cannot send: %v", e.Err) }
func (e *CannotSend) Unwrap() error { return e.Err }

// ResponseTimeout is returned when no byte arrived within the
// configured timeout.
type ResponseTimeout struct{ After string }

func (e *ResponseTimeout) Error() string { return fmt.Sprintf("response timeout after %s", e.After) }

// ResponseUnexpected is returned when a received byte does not match
// any protocol-legal value at that position.
type ResponseUnexpected struct{ Got byte }

func (e *ResponseUnexpected) Error() string {
	return fmt.Sprintf("unexpected response byte 0x%02X", e.Got)
}

// Protocol errors, returned by the protocol engine.

// TooManySyncAttempts is returned when sync fails after its retry
// budget is exhausted.
type TooManySyncAttempts struct{ Attempts int }

func (e *TooManySyncAttempts) Error() string {
	return fmt.Sprintf("failed to sync after %d attempts", e.Attempts)
}

// CannotDetermineUartMode is returned when the echo-probe sequence
// matches none of full-duplex/reply/two-wire.
type CannotDetermineUartMode struct{}

func (e *CannotDetermineUartMode) Error() string { return "cannot determine UART echo mode" }

// CannotIdentifyFamily is returned when the BSL version byte from GET
// does not match any entry in the family/flash-size table.
type CannotIdentifyFamily struct{ BSLVersion byte }

func (e *CannotIdentifyFamily) Error() string {
	return fmt.Sprintf("cannot identify device family for BSL version 0x%02X", e.BSLVersion)
}

// CannotIdentifyDevice is returned when the RAM-routine registry has no
// blob for the identified (family, flash size, BSL version).
type CannotIdentifyDevice struct {
	Family           string
	FlashKB          int
	BSLVersion       byte
}

func (e *CannotIdentifyDevice) Error() string {
	return fmt.Sprintf("no RAM routine registered for family=%s flash=%dKB bsl=0x%02X",
		e.Family, e.FlashKB, e.BSLVersion)
}

// IncorrectGetCode is returned when GET's opcode list omits GET itself.
type IncorrectGetCode struct{}

func (e *IncorrectGetCode) Error() string { return "GET opcode missing from GET response" }

// IncorrectReadCode is returned when GET's opcode list omits READ.
type IncorrectReadCode struct{}

func (e *IncorrectReadCode) Error() string { return "READ opcode missing from GET response" }

// IncorrectWriteCode is returned when GET's opcode list omits WRITE.
type IncorrectWriteCode struct{}

func (e *IncorrectWriteCode) Error() string { return "WRITE opcode missing from GET response" }

// IncorrectEraseCode is returned when GET's opcode list omits ERASE.
type IncorrectEraseCode struct{}

func (e *IncorrectEraseCode) Error() string { return "ERASE opcode missing from GET response" }

// IncorrectGoCode is returned when GET's opcode list omits GO.
type IncorrectGoCode struct{}

func (e *IncorrectGoCode) Error() string { return "GO opcode missing from GET response" }

// UnknownInterface is returned when a configured interface or
// capability (e.g. set_reset_line on a bare SPI device) has no
// implementation.
type UnknownInterface struct{ Name string }

func (e *UnknownInterface) Error() string { return fmt.Sprintf("unknown interface %q", e.Name) }

// AddressNotExist is returned when the target NACKs the address phase
// of a READ or WRITE.
type AddressNotExist struct{ Address uint32 }

func (e *AddressNotExist) Error() string {
	return fmt.Sprintf("address 0x%08X does not exist on target", e.Address)
}

// VerifyMismatch is returned when a post-program read-back byte does
// not match the byte that was written.
type VerifyMismatch struct {
	Address       uint32
	Expected, Got byte
}

func (e *VerifyMismatch) Error() string {
	return fmt.Sprintf("verify mismatch at 0x%08X: expected 0x%02X, got 0x%02X", e.Address, e.Expected, e.Got)
}

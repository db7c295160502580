package protocol

// Command is a BSL opcode, sent on the wire as (cmd, cmd XOR 0xFF).
type Command byte

const (
	CmdGet              Command = 0x00
	CmdGetVersion       Command = 0x01
	CmdGetID            Command = 0x02
	CmdReadMemory       Command = 0x11
	CmdGo               Command = 0x21
	CmdWriteMemory      Command = 0x31
	CmdErase            Command = 0x43
	CmdExtendedErase    Command = 0x44
	CmdWriteProtect     Command = 0x63
	CmdWriteUnprotect   Command = 0x73
	CmdReadoutProtect   Command = 0x82
	CmdReadoutUnprotect Command = 0x92
)

const (
	Sync byte = 0x7F

	MaxReadLen  = 256
	MaxWriteLen = 128
)

package session

import (
	"time"

	"github.com/google/gousb"
	"go.bug.st/serial"

	"github.com/tocurd/go-bsl/frame"
	"github.com/tocurd/go-bsl/transport"
)

// Interface selects which physical transport a Session opens.
type Interface int

const (
	InterfaceUART Interface = iota
	InterfaceSPI
	InterfaceUSB
)

// ResetMethod selects how (if at all) a Session pulses the target's
// reset line before synchronizing.
type ResetMethod int

const (
	ResetMethodNone ResetMethod = iota
	ResetMethodDTR
	ResetMethodRTS
	// ResetMethodGPIO pulses reset via SPIDevice.ResetGPIOPath (set with
	// WithGPIOReset); other transports have no reset line of their own
	// and return UnknownInterface for it.
	ResetMethodGPIO
)

// FileFormat names one of the four codecs in package codec.
type FileFormat int

const (
	FormatSRecord FileFormat = iota
	FormatIntelHex
	FormatASCIITable
	FormatRawBinary
)

// InputFile is one file to decode into the session image before
// programming.
type InputFile struct {
	Path     string
	Format   FileFormat
	BaseAddr int // only meaningful for FormatRawBinary
}

// OutputFile describes a read-out export.
type OutputFile struct {
	Path   string
	Format FileFormat
	Lo, Hi int
}

// TransformKind names one memimage range operation applied to the
// session image before programming.
type TransformKind int

const (
	TransformFill TransformKind = iota
	TransformClip
	TransformCut
	TransformCopy
	TransformMove
)

// Transform is one requested memimage.Image edit, applied in the
// order given.
type Transform struct {
	Kind   TransformKind
	Lo, Hi int
	DstLo  int  // TransformCopy, TransformMove
	Value  byte // TransformFill
}

// Progress reports where a Run is in its overall work, in the style
// of a library that lets a caller drive its own UI off a callback.
type Progress struct {
	Phase       string
	BytesDone   int
	BytesTotal  int
	ElapsedTime time.Duration
}

// ProgressCallback receives Progress events during Run. Implementations
// should return quickly.
type ProgressCallback func(Progress)

// Config is the full external configuration surface for a Session.
type Config struct {
	Iface Interface

	// UART
	Port   string
	Baud   int
	Parity serial.Parity

	// SPI
	SPIDevice  string
	SPIClockHz uint32

	// USB bridge
	USBVendorID, USBProductID uint16

	UARTModeOverride *frame.EchoMode
	ResetMethod      ResetMethod
	GPIOResetPath    string // sysfs "value" file; only honored when Iface == InterfaceSPI

	MassErase    bool
	EraseSectors []byte

	MemCheckAddrs []uint32

	Verify    bool
	JumpAfter *uint32

	Inputs     []InputFile
	Output     *OutputFile
	Transforms []Transform

	SyncAttempts int
	Retries      int

	ProgressCallback ProgressCallback
}

// Option configures a Config, in the functional-options style the
// rest of the module's public constructors use.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Iface:        InterfaceUART,
		Baud:         115200,
		SyncAttempts: 5,
		Retries:      3,
	}
}

func WithUART(port string, baud int) Option {
	return func(c *Config) { c.Iface = InterfaceUART; c.Port = port; c.Baud = baud }
}

func WithSPI(device string, clockHz uint32) Option {
	return func(c *Config) { c.Iface = InterfaceSPI; c.SPIDevice = device; c.SPIClockHz = clockHz }
}

func WithUSBBridge(vendorID, productID uint16) Option {
	return func(c *Config) { c.Iface = InterfaceUSB; c.USBVendorID = vendorID; c.USBProductID = productID }
}

func WithUARTModeOverride(mode frame.EchoMode) Option {
	return func(c *Config) { c.UARTModeOverride = &mode }
}

func WithResetMethod(m ResetMethod) Option {
	return func(c *Config) { c.ResetMethod = m }
}

// WithGPIOReset selects ResetMethodGPIO and records the sysfs GPIO
// "value" file path to pulse it through. Only takes effect with
// WithSPI: no other transport in this module exposes a GPIO reset line.
func WithGPIOReset(path string) Option {
	return func(c *Config) { c.ResetMethod = ResetMethodGPIO; c.GPIOResetPath = path }
}

func WithMassErase() Option {
	return func(c *Config) { c.MassErase = true }
}

func WithEraseSectors(sectors []byte) Option {
	return func(c *Config) { c.EraseSectors = sectors }
}

// WithMemCheck requests an existence probe of each address during Run,
// via Engine.MemCheck. A missing address is reported through
// MemCheckResult rather than failing the session, unlike an
// AddressNotExist encountered during an ordinary read or write.
func WithMemCheck(addrs ...uint32) Option {
	return func(c *Config) { c.MemCheckAddrs = append(c.MemCheckAddrs, addrs...) }
}

func WithVerify(verify bool) Option {
	return func(c *Config) { c.Verify = verify }
}

func WithJumpAfter(addr uint32) Option {
	return func(c *Config) { c.JumpAfter = &addr }
}

func WithInputFile(path string, format FileFormat) Option {
	return func(c *Config) { c.Inputs = append(c.Inputs, InputFile{Path: path, Format: format}) }
}

func WithRawBinaryInput(path string, baseAddr int) Option {
	return func(c *Config) {
		c.Inputs = append(c.Inputs, InputFile{Path: path, Format: FormatRawBinary, BaseAddr: baseAddr})
	}
}

func WithOutputFile(path string, format FileFormat, lo, hi int) Option {
	return func(c *Config) { c.Output = &OutputFile{Path: path, Format: format, Lo: lo, Hi: hi} }
}

func WithTransform(t Transform) Option {
	return func(c *Config) { c.Transforms = append(c.Transforms, t) }
}

func WithSyncAttempts(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SyncAttempts = n
		}
	}
}

func WithRetries(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.Retries = n
		}
	}
}

func WithProgressCallback(cb ProgressCallback) Option {
	return func(c *Config) { c.ProgressCallback = cb }
}

// openTransport builds the Transport the Config selects. Exposed as a
// var so tests can substitute a mock without going through a real
// Interface.
var openTransport = func(c Config) (transport.Transport, error) {
	switch c.Iface {
	case InterfaceSPI:
		resetPath := ""
		if c.ResetMethod == ResetMethodGPIO {
			resetPath = c.GPIOResetPath
		}
		return transport.NewSPIDevice(transport.SPIConfig{
			Device:        c.SPIDevice,
			SpeedHz:       c.SPIClockHz,
			BusyPoll:      true,
			ResetGPIOPath: resetPath,
		}), nil
	case InterfaceUSB:
		return transport.NewUSBBridge(transport.USBBridgeConfig{
			VendorID:  gousb.ID(c.USBVendorID),
			ProductID: gousb.ID(c.USBProductID),
		}), nil
	default:
		reset := transport.ResetNone
		switch c.ResetMethod {
		case ResetMethodDTR:
			reset = transport.ResetDTR
		case ResetMethodRTS:
			reset = transport.ResetRTS
		}
		return transport.NewSerial(transport.SerialConfig{
			Port:      c.Port,
			Baud:      c.Baud,
			Parity:    c.Parity,
			ResetLine: reset,
		}), nil
	}
}

package transport

import (
	"os"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/tocurd/go-bsl/bslerr"
)

// SPI ioctl constants from linux/spi/spidev.h. golang.org/x/sys/unix
// does not expose these as named constants, so they're reproduced here
// the way a spidev client has to.
const (
	spiIOCMessageBase = 0x40006b00 // _IOC(_IOC_WRITE, 'k', 0, len) base, len added per-call
	spiIOCMessageSize = 32         // sizeof(struct spi_ioc_transfer)
)

// spiIOCTransfer mirrors struct spi_ioc_transfer.
type spiIOCTransfer struct {
	txBuf       uint64
	rxBuf       uint64
	length      uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNBits     uint8
	rxNBits     uint8
	pad         uint16
}

// SPIConfig configures a Linux spidev transport.
type SPIConfig struct {
	Device   string // e.g. "/dev/spidev0.0"
	SpeedHz  uint32
	BusyPoll bool // BSL-over-SPI signals not-ready by echoing 0xAA instead of asserting a line
	BusyByte byte

	// ResetGPIOPath is the sysfs "value" file of a GPIO wired to the
	// target's RESET pin (e.g. "/sys/class/gpio/gpio17/value"). A bare
	// spidev node exposes no reset line of its own, so this is the only
	// way an SPIDevice can drive one. Empty disables SetResetLine.
	ResetGPIOPath string
}

// SPIDevice is a Transport over a Linux spidev character device,
// driven with raw ioctl(SPI_IOC_MESSAGE) transfers rather than a
// higher-level SPI framework: the BSL-over-SPI protocol needs
// full-duplex single transfers with precise byte counts, which the
// ioctl interface gives directly.
type SPIDevice struct {
	cfg SPIConfig
	fd  int
}

// NewSPIDevice returns an unopened SPI transport.
func NewSPIDevice(cfg SPIConfig) *SPIDevice {
	if cfg.BusyByte == 0 {
		cfg.BusyByte = 0xAA
	}
	return &SPIDevice{cfg: cfg}
}

func (d *SPIDevice) Open() error {
	fd, err := unix.Open(d.cfg.Device, unix.O_RDWR, 0)
	if err != nil {
		return &bslerr.CannotSend{Err: err}
	}
	d.fd = fd
	return nil
}

func (d *SPIDevice) Close() error {
	if d.fd == 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = 0
	return err
}

func (d *SPIDevice) Flush() error {
	// A spidev node has no separate input/output buffering to discard;
	// every transfer is synchronous.
	return nil
}

// transfer performs one full-duplex SPI exchange of len(tx) bytes,
// returning the bytes clocked in on MISO.
func (d *SPIDevice) transfer(tx []byte) ([]byte, error) {
	if d.fd == 0 {
		return nil, &bslerr.PortNotOpen{}
	}
	rx := make([]byte, len(tx))
	xfer := spiIOCTransfer{
		txBuf:       uint64(uintptr(unsafe.Pointer(&tx[0]))),
		rxBuf:       uint64(uintptr(unsafe.Pointer(&rx[0]))),
		length:      uint32(len(tx)),
		speedHz:     d.cfg.SpeedHz,
		bitsPerWord: 8,
	}
	req := ioctlMessageRequest(1)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(unsafe.Pointer(&xfer)))
	if errno != 0 {
		return nil, &bslerr.CannotSend{Err: errno}
	}
	return rx, nil
}

func ioctlMessageRequest(nTransfers int) uintptr {
	return uintptr(spiIOCMessageBase) | uintptr(nTransfers*spiIOCMessageSize)<<16
}

func (d *SPIDevice) Send(p []byte) error {
	_, err := d.transfer(p)
	return err
}

// Recv clocks n bytes of 0x00 filler out while reading n bytes in,
// polling for BusyByte when BusyPoll is set: BSL-over-SPI answers a
// not-yet-ready poll with a run of BusyByte before the real response
// appears.
func (d *SPIDevice) Recv(n int, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	filler := make([]byte, n)
	for {
		rx, err := d.transfer(filler)
		if err != nil {
			return nil, err
		}
		if !d.cfg.BusyPoll || !allBusy(rx, d.cfg.BusyByte) {
			return rx, nil
		}
		if time.Now().After(deadline) {
			return nil, &bslerr.ResponseTimeout{After: timeout.String()}
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func allBusy(b []byte, busy byte) bool {
	for _, v := range b {
		if v != busy {
			return false
		}
	}
	return len(b) > 0
}

// SetResetLine asserts reset by writing to the GPIO sysfs path given in
// SPIConfig.ResetGPIOPath. Returns UnknownInterface if none was
// configured: plain spidev exposes no reset line of its own.
func (d *SPIDevice) SetResetLine(asserted bool) error {
	if d.cfg.ResetGPIOPath == "" {
		return &bslerr.UnknownInterface{Name: "spidevice.reset"}
	}
	value := []byte("0")
	if asserted {
		value = []byte("1")
	}
	if err := os.WriteFile(d.cfg.ResetGPIOPath, value, 0o644); err != nil {
		return &bslerr.CannotSend{Err: err}
	}
	return nil
}

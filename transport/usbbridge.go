package transport

import (
	"context"
	"time"

	"github.com/google/gousb"

	"github.com/tocurd/go-bsl/bslerr"
	"github.com/tocurd/go-bsl/internal/logging"
)

// USBBridgeConfig identifies a USB CDC-style bridge (an on-board
// debugger or adapter that exposes the BSL link over a bulk in/out
// endpoint pair instead of a native serial port).
type USBBridgeConfig struct {
	VendorID    gousb.ID
	ProductID   gousb.ID
	Interface   int
	InEndpoint  int
	OutEndpoint int
}

// USBBridge is a Transport over a libusb bulk endpoint pair via
// github.com/google/gousb.
type USBBridge struct {
	cfg  USBBridgeConfig
	ctx  *gousb.Context
	dev  *gousb.Device
	intf *gousb.Interface
	done func()
	in   *gousb.InEndpoint
	out  *gousb.OutEndpoint
}

// NewUSBBridge returns an unopened USB bridge transport.
func NewUSBBridge(cfg USBBridgeConfig) *USBBridge {
	return &USBBridge{cfg: cfg}
}

func (u *USBBridge) Open() error {
	u.ctx = gousb.NewContext()
	dev, err := u.ctx.OpenDeviceWithVIDPID(u.cfg.VendorID, u.cfg.ProductID)
	if err != nil {
		u.ctx.Close()
		return &bslerr.CannotSend{Err: err}
	}
	if dev == nil {
		u.ctx.Close()
		return &bslerr.UnknownInterface{Name: "usb vid/pid not found"}
	}
	if err := dev.SetAutoDetach(true); err != nil {
		logging.Log().Warnf("usb: set auto detach: %v", err)
	}
	intf, done, err := dev.DefaultInterface()
	if err != nil {
		dev.Close()
		u.ctx.Close()
		return &bslerr.CannotSend{Err: err}
	}
	in, err := intf.InEndpoint(u.cfg.InEndpoint)
	if err != nil {
		done()
		dev.Close()
		u.ctx.Close()
		return &bslerr.CannotSend{Err: err}
	}
	out, err := intf.OutEndpoint(u.cfg.OutEndpoint)
	if err != nil {
		done()
		dev.Close()
		u.ctx.Close()
		return &bslerr.CannotSend{Err: err}
	}
	u.dev, u.intf, u.done, u.in, u.out = dev, intf, done, in, out
	logging.Log().Debugf("usb: opened %04x:%04x", uint16(u.cfg.VendorID), uint16(u.cfg.ProductID))
	return nil
}

func (u *USBBridge) Close() error {
	if u.done != nil {
		u.done()
	}
	if u.dev != nil {
		_ = u.dev.Close()
	}
	if u.ctx != nil {
		_ = u.ctx.Close()
	}
	u.dev, u.intf, u.done, u.in, u.out, u.ctx = nil, nil, nil, nil, nil, nil
	return nil
}

func (u *USBBridge) Flush() error {
	// Bulk endpoints carry no separate flush primitive in gousb; a BSL
	// session over USB relies on the ACK/NACK framing instead.
	return nil
}

func (u *USBBridge) Send(p []byte) error {
	if u.out == nil {
		return &bslerr.PortNotOpen{}
	}
	n, err := u.out.Write(p)
	if err != nil {
		return &bslerr.CannotSend{Err: err}
	}
	if n != len(p) {
		return &bslerr.CannotSend{Err: errShortWrite(n, len(p))}
	}
	return nil
}

func (u *USBBridge) Recv(n int, timeout time.Duration) ([]byte, error) {
	if u.in == nil {
		return nil, &bslerr.PortNotOpen{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	buf := make([]byte, n)
	read, err := u.in.ReadContext(ctx, buf)
	if err != nil {
		return buf[:read], &bslerr.ResponseTimeout{After: timeout.String()}
	}
	if read < n {
		return buf[:read], &bslerr.ResponseTimeout{After: timeout.String()}
	}
	return buf[:read], nil
}

func (u *USBBridge) SetResetLine(asserted bool) error {
	return &bslerr.UnknownInterface{Name: "usbbridge.reset"}
}

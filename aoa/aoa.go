// Package aoa drives Android Open Accessory 2 HID over USB. A host opens
// the device, registers one or more HID report descriptors and then sends
// input reports to them; Android exposes each registration as an input
// device, so no app or debugging mode is needed on the phone.
//
// See https://source.android.com/docs/core/interaction/accessories/aoa2
package aoa

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/gousb"

	"github.com/HopIT-Hub/macrokey/internal/errdef"
)

// Rabbit R1 in normal (non-accessory) mode.
const (
	DefaultVendorID  gousb.ID = 0x0e8d
	DefaultProductID gousb.ID = 0x2304
)

// request is an AOA2 vendor request (bRequest).
type request uint8

const (
	registerHID   request = 54
	unregisterHID request = 55
	setHIDDesc    request = 56
	sendHIDEvent  request = 57
)

func (r request) String() string {
	switch r {
	case registerHID:
		return "REGISTER_HID"
	case unregisterHID:
		return "UNREGISTER_HID"
	case setHIDDesc:
		return "SET_HID_REPORT_DESC"
	case sendHIDEvent:
		return "SEND_HID_EVENT"
	}
	return fmt.Sprintf("request(%d)", uint8(r))
}

// Vendor request, host to device, device recipient.
const requestTypeOut = 0x40

// DescriptorType names a report descriptor this package can register.
type DescriptorType int

const (
	DescKeyboard DescriptorType = iota // boot keyboard, 8-byte reports
	DescMouse                          // 3-button relative mouse, 3-byte reports
)

func (d DescriptorType) String() string {
	switch d {
	case DescKeyboard:
		return "keyboard"
	case DescMouse:
		return "mouse"
	}
	return "unknown"
}

// Descriptor returns the report descriptor bytes, nil for an unknown type.
func Descriptor(dt DescriptorType) []byte {
	switch dt {
	case DescKeyboard:
		return keyboardDescriptor
	case DescMouse:
		return mouseDescriptor
	}
	return nil
}

// Target selects the USB device to open. An empty Serial matches any.
type Target struct {
	Vendor  gousb.ID
	Product gousb.ID
	Serial  string
}

// DefaultTarget is the R1, optionally narrowed to one serial number.
func DefaultTarget(serial string) Target {
	return Target{Vendor: DefaultVendorID, Product: DefaultProductID, Serial: serial}
}

func (t Target) matches(desc *gousb.DeviceDesc) bool {
	return desc.Vendor == t.Vendor && desc.Product == t.Product
}

func (t Target) String() string {
	s := fmt.Sprintf("%s:%s", t.Vendor, t.Product)
	if t.Serial != "" {
		s += " serial " + t.Serial
	}
	return s
}

// Device is an open USB handle with its registered HID ids.
type Device struct {
	ctx *gousb.Context
	dev *gousb.Device

	// Settle is how long Register waits for Android to create the input
	// device before reports are accepted.
	Settle time.Duration

	next uint16
	ids  []uint16
}

// Open connects to the first device matching t. Nothing is registered yet.
func Open(t Target) (*Device, error) {
	ctx := gousb.NewContext()

	devs, err := ctx.OpenDevices(t.matches)
	if err != nil && len(devs) == 0 {
		ctx.Close()
		return nil, errdef.Wrap(errdef.CodeExternal, err, "open %s", t)
	}

	dev := pick(devs, t.Serial)
	if dev == nil {
		ctx.Close()
		return nil, errdef.New(errdef.CodeNotFound, "no device %s", t)
	}
	dev.SetAutoDetach(true)

	return &Device{ctx: ctx, dev: dev, Settle: 300 * time.Millisecond, next: 1}, nil
}

// pick keeps the first device whose serial matches and closes the rest.
func pick(devs []*gousb.Device, serial string) *gousb.Device {
	var found *gousb.Device
	for _, d := range devs {
		if found == nil && serialMatches(d, serial) {
			found = d
			continue
		}
		d.Close()
	}
	return found
}

func serialMatches(d *gousb.Device, serial string) bool {
	if serial == "" {
		return true
	}
	s, err := d.SerialNumber()
	return err == nil && s == serial
}

// Register registers descriptor dt and returns its HID id for Send.
func (d *Device) Register(dt DescriptorType) (uint16, error) {
	desc := Descriptor(dt)
	if desc == nil {
		return 0, errdef.New(errdef.CodeValidation, "unknown descriptor %d", int(dt))
	}

	id := d.next
	d.next++

	// wIndex carries the descriptor length on registration.
	if err := d.control(registerHID, id, uint16(len(desc)), nil); err != nil {
		return 0, fmt.Errorf("%s: %w", dt, err)
	}
	if err := d.control(setHIDDesc, id, 0, desc); err != nil {
		_ = d.control(unregisterHID, id, 0, nil)
		return 0, fmt.Errorf("%s: %w", dt, err)
	}

	time.Sleep(d.Settle)
	d.ids = append(d.ids, id)
	return id, nil
}

// Unregister removes one registration.
func (d *Device) Unregister(id uint16) error {
	i := slices.Index(d.ids, id)
	if i < 0 {
		return errdef.New(errdef.CodeNotFound, "hid %d not registered", id)
	}
	d.ids = slices.Delete(d.ids, i, i+1)
	return d.control(unregisterHID, id, 0, nil)
}

// Send delivers one input report to a registered HID id.
func (d *Device) Send(id uint16, report []byte) error {
	return d.control(sendHIDEvent, id, 0, report)
}

// Ping reads the serial number to check the device is still attached.
func (d *Device) Ping() error {
	if _, err := d.dev.SerialNumber(); err != nil {
		return errdef.Wrap(errdef.CodeExternal, err, "ping")
	}
	return nil
}

// Close unregisters every id and releases the handle.
func (d *Device) Close() {
	for _, id := range slices.Backward(d.ids) {
		_ = d.control(unregisterHID, id, 0, nil)
	}
	d.ids = nil
	d.dev.Close()
	d.ctx.Close()
}

func (d *Device) control(req request, value, index uint16, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	if _, err := d.dev.Control(requestTypeOut, uint8(req), value, index, data); err != nil {
		return errdef.Wrap(errdef.CodeExternal, err, "%s id=%d", req, value)
	}
	return nil
}
